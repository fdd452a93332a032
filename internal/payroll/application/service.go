package application

import (
	"context"
	"errors"
	"log"
	"time"

	masterdata "opsledger/internal/masterdata/domain"
	"opsledger/internal/observability/metrics"
	payroll "opsledger/internal/payroll/domain"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// PayrollService runs payroll over the employee roster.
type PayrollService struct {
	employees masterdata.EmployeeRepository
	schedule  payroll.DeductionSchedule
	policy    payroll.AllowancePolicy
	currency  string
	clock     Clock
	logger    *log.Logger
}

// NewPayrollService constructs the service.
func NewPayrollService(
	employees masterdata.EmployeeRepository,
	schedule payroll.DeductionSchedule,
	policy payroll.AllowancePolicy,
	currency string,
	clock Clock,
	logger *log.Logger,
) (*PayrollService, error) {
	if employees == nil {
		return nil, errors.New("payroll service: nil employee repository")
	}
	if err := schedule.Validate(); err != nil {
		return nil, err
	}
	if currency == "" {
		currency = "KES"
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &PayrollService{
		employees: employees,
		schedule:  schedule,
		policy:    policy,
		currency:  currency,
		clock:     clock,
		logger:    logger,
	}, nil
}

// Run computes the payroll batch for one period. The roster snapshot
// is active employees hired on or before the period start. The batch
// is returned, not persisted; runs for different periods can execute
// concurrently.
func (s *PayrollService) Run(ctx context.Context, period payroll.Period) (payroll.Batch, error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObservePayrollRun(result, time.Since(start))
	}()

	roster, err := s.employees.ListRoster(ctx, masterdata.RosterFilter{
		Status:          masterdata.EmployeeStatusActive,
		HiredOnOrBefore: period.Start(),
	})
	if err != nil {
		result = metrics.ResultError
		return payroll.Batch{}, err
	}

	batch, err := s.Compute(period, roster)
	if err != nil {
		result = metrics.ResultError
		return payroll.Batch{}, err
	}

	s.logger.Printf("payroll run: period=%s employees=%d net=%s", period, batch.Totals.Count, batch.Totals.Net.StringFixed())
	return batch, nil
}

// Compute is the pure run over a given roster snapshot.
func (s *PayrollService) Compute(period payroll.Period, roster []masterdata.Employee) (payroll.Batch, error) {
	entries := make([]payroll.Entry, 0, len(roster))
	for _, employee := range roster {
		entry, err := payroll.ComputeEntry(payroll.EntryInput{
			EmployeeID:   employee.ID,
			EmployeeCode: employee.Code,
			EmployeeName: employee.FullName,
			Department:   employee.Department,
			BasicSalary:  employee.BasicSalary,
		}, s.policy, s.schedule)
		if err != nil {
			return payroll.Batch{}, err
		}
		entries = append(entries, entry)
	}
	return payroll.BuildBatch(period, s.clock.Now(), entries, s.currency)
}
