package application

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	payroll "opsledger/internal/payroll/domain"
)

// ScheduleConfig mirrors the deduction schedule in yaml. Amounts are
// strings so no float ever touches a monetary figure.
type ScheduleConfig struct {
	Tier1Ceiling string `yaml:"tier1_ceiling"`
	Tier1Rate    string `yaml:"tier1_rate"`
	Tier2Ceiling string `yaml:"tier2_ceiling"`
	Tier2Flat    string `yaml:"tier2_flat"`
	Tier2Rate    string `yaml:"tier2_rate"`
	Tier3Flat    string `yaml:"tier3_flat"`
	Tier3Rate    string `yaml:"tier3_rate"`

	StatutoryARate string `yaml:"statutory_a_rate"`
	StatutoryACap  string `yaml:"statutory_a_cap"`
	StatutoryBRate string `yaml:"statutory_b_rate"`
	StatutoryBCap  string `yaml:"statutory_b_cap"`
}

// AllowanceConfig mirrors one department's allowance grid in yaml.
type AllowanceConfig struct {
	Housing   string `yaml:"housing"`
	Transport string `yaml:"transport"`
	Medical   string `yaml:"medical"`
	Other     string `yaml:"other"`
}

// Config defines payroll configuration.
type Config struct {
	Currency   string                     `yaml:"currency"`
	Schedule   ScheduleConfig             `yaml:"schedule"`
	Allowances map[string]AllowanceConfig `yaml:"allowances"`
}

// LoadConfig loads payroll config from yaml or falls back to defaults.
// The yaml path comes from PAYROLL_CONFIG; missing fields keep their
// default values.
func LoadConfig() (Config, payroll.DeductionSchedule, payroll.AllowancePolicy, error) {
	cfg := Config{Currency: getenvDefault("PAYROLL_CURRENCY", "KES")}
	schedule := payroll.DefaultSchedule()
	policy := payroll.DefaultAllowancePolicy()

	path := os.Getenv("PAYROLL_CONFIG")
	if path == "" {
		return cfg, schedule, policy, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, schedule, policy, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, schedule, policy, err
	}
	if cfg.Currency == "" {
		cfg.Currency = getenvDefault("PAYROLL_CURRENCY", "KES")
	}

	if schedule, err = applyScheduleConfig(schedule, cfg.Schedule); err != nil {
		return cfg, schedule, policy, err
	}
	if len(cfg.Allowances) > 0 {
		if policy, err = buildPolicy(cfg.Allowances); err != nil {
			return cfg, schedule, policy, err
		}
	}
	if err := schedule.Validate(); err != nil {
		return cfg, schedule, policy, err
	}
	return cfg, schedule, policy, nil
}

func applyScheduleConfig(schedule payroll.DeductionSchedule, cfg ScheduleConfig) (payroll.DeductionSchedule, error) {
	fields := []struct {
		raw  string
		dest *decimal.Decimal
	}{
		{cfg.Tier1Ceiling, &schedule.Tier1Ceiling},
		{cfg.Tier1Rate, &schedule.Tier1Rate},
		{cfg.Tier2Ceiling, &schedule.Tier2Ceiling},
		{cfg.Tier2Flat, &schedule.Tier2Flat},
		{cfg.Tier2Rate, &schedule.Tier2Rate},
		{cfg.Tier3Flat, &schedule.Tier3Flat},
		{cfg.Tier3Rate, &schedule.Tier3Rate},
		{cfg.StatutoryARate, &schedule.StatutoryARate},
		{cfg.StatutoryACap, &schedule.StatutoryACap},
		{cfg.StatutoryBRate, &schedule.StatutoryBRate},
		{cfg.StatutoryBCap, &schedule.StatutoryBCap},
	}
	for _, field := range fields {
		if field.raw == "" {
			continue
		}
		parsed, err := decimal.NewFromString(field.raw)
		if err != nil {
			return schedule, fmt.Errorf("payroll config: bad value %q: %w", field.raw, err)
		}
		*field.dest = parsed
	}
	return schedule, nil
}

func buildPolicy(configs map[string]AllowanceConfig) (payroll.AllowancePolicy, error) {
	policy := make(payroll.AllowancePolicy, len(configs))
	for department, cfg := range configs {
		var set payroll.AllowanceSet
		fields := []struct {
			raw  string
			dest *decimal.Decimal
		}{
			{cfg.Housing, &set.Housing},
			{cfg.Transport, &set.Transport},
			{cfg.Medical, &set.Medical},
			{cfg.Other, &set.Other},
		}
		for _, field := range fields {
			if field.raw == "" {
				continue
			}
			parsed, err := decimal.NewFromString(field.raw)
			if err != nil {
				return nil, fmt.Errorf("payroll config: bad allowance %q for %s: %w", field.raw, department, err)
			}
			if parsed.IsNegative() {
				return nil, fmt.Errorf("payroll config: negative allowance for %s", department)
			}
			*field.dest = parsed
		}
		// Compose looks departments up lowercased; normalize yaml keys to match.
		policy[strings.ToLower(strings.TrimSpace(department))] = set
	}
	return policy, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
