package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	masterdata "opsledger/internal/masterdata/domain"
	"opsledger/internal/money"
)

const defaultEmployeesTable = "employees"

// EmployeeRepository is a Postgres implementation for the employee roster.
type EmployeeRepository struct {
	db    DBTX
	table string
}

// NewEmployeeRepository constructs a repository.
func NewEmployeeRepository(db DBTX, opts ...EmployeeOption) *EmployeeRepository {
	repo := &EmployeeRepository{db: db, table: defaultEmployeesTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// EmployeeOption configures the repository.
type EmployeeOption func(*EmployeeRepository)

// WithEmployeesTable overrides the default table name.
func WithEmployeesTable(table string) EmployeeOption {
	return func(repo *EmployeeRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Get loads an employee by id.
func (r *EmployeeRepository) Get(ctx context.Context, id string) (*masterdata.Employee, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("employee repo: nil db")
	}
	if id == "" {
		return nil, errors.New("employee repo: empty id")
	}

	query := fmt.Sprintf(`
SELECT id, code, full_name, email, department, role, basic_salary, salary_currency,
	status, hire_date, created_at, updated_at
FROM %s
WHERE id = $1
LIMIT 1`, r.table)

	employee, err := scanEmployee(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return employee, nil
}

// ListRoster returns a roster snapshot matching the filter, ordered by code.
func (r *EmployeeRepository) ListRoster(ctx context.Context, filter masterdata.RosterFilter) ([]masterdata.Employee, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("employee repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT id, code, full_name, email, department, role, basic_salary, salary_currency,
	status, hire_date, created_at, updated_at
FROM %s
WHERE 1=1`, r.table)
	args := make([]any, 0, 3)

	if filter.Department != "" {
		args = append(args, filter.Department)
		query += fmt.Sprintf(" AND department = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if !filter.HiredOnOrBefore.IsZero() {
		args = append(args, filter.HiredOnOrBefore)
		query += fmt.Sprintf(" AND hire_date <= $%d", len(args))
	}
	query += " ORDER BY code ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roster []masterdata.Employee
	for rows.Next() {
		employee, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		roster = append(roster, *employee)
	}
	return roster, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (*masterdata.Employee, error) {
	var (
		employee masterdata.Employee
		salary   decimal.Decimal
		currency string
	)
	if err := row.Scan(
		&employee.ID,
		&employee.Code,
		&employee.FullName,
		&employee.Email,
		&employee.Department,
		&employee.Role,
		&salary,
		&currency,
		&employee.Status,
		&employee.HireDate,
		&employee.CreatedAt,
		&employee.UpdatedAt,
	); err != nil {
		return nil, err
	}
	basic, err := money.New(salary, currency)
	if err != nil {
		return nil, fmt.Errorf("employee repo: %w", err)
	}
	employee.BasicSalary = basic
	employee.HireDate = employee.HireDate.UTC()
	employee.CreatedAt = employee.CreatedAt.UTC()
	employee.UpdatedAt = employee.UpdatedAt.UTC()
	return &employee, nil
}
