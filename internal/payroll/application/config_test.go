package application

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuildPolicyNormalizesDepartmentKeys(t *testing.T) {
	policy, err := buildPolicy(map[string]AllowanceConfig{
		"Management ": {Housing: "22000", Transport: "16000"},
	})
	if err != nil {
		t.Fatalf("build policy: %v", err)
	}

	allowances, err := policy.Compose("management", "KES")
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if got := allowances.Housing.StringFixed(); got != "22000.00" {
		t.Fatalf("housing = %s, want 22000.00", got)
	}
	if got := allowances.Total.StringFixed(); got != "38000.00" {
		t.Fatalf("total = %s, want 38000.00", got)
	}
}

func TestLoadConfigMixedCaseYAMLKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payroll.yaml")
	yaml := `currency: KES
allowances:
  Management:
    housing: "25000"
  Development:
    medical: "6000"
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PAYROLL_CONFIG", path)

	_, _, policy, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	allowances, err := policy.Compose("development", "KES")
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if got := allowances.Medical.StringFixed(); got != "6000.00" {
		t.Fatalf("medical = %s, want 6000.00", got)
	}
}
