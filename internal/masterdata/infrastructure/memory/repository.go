package memory

import (
	"context"
	"sort"
	"sync"

	masterdata "opsledger/internal/masterdata/domain"
)

// Directory is an in-memory masterdata store used by tests and tools.
type Directory struct {
	mu        sync.RWMutex
	clients   map[string]masterdata.Client
	projects  map[string]masterdata.Project
	employees map[string]masterdata.Employee
}

// NewDirectory constructs an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		clients:   make(map[string]masterdata.Client),
		projects:  make(map[string]masterdata.Project),
		employees: make(map[string]masterdata.Employee),
	}
}

// PutClient stores a client.
func (d *Directory) PutClient(client masterdata.Client) {
	d.mu.Lock()
	d.clients[client.ID] = client
	d.mu.Unlock()
}

// PutProject stores a project.
func (d *Directory) PutProject(project masterdata.Project) {
	d.mu.Lock()
	d.projects[project.ID] = project
	d.mu.Unlock()
}

// PutEmployee stores an employee.
func (d *Directory) PutEmployee(employee masterdata.Employee) {
	d.mu.Lock()
	d.employees[employee.ID] = employee
	d.mu.Unlock()
}

// Clients returns a ClientRepository view.
func (d *Directory) Clients() masterdata.ClientRepository { return clientView{d} }

// Projects returns a ProjectRepository view.
func (d *Directory) Projects() masterdata.ProjectRepository { return projectView{d} }

// Employees returns an EmployeeRepository view.
func (d *Directory) Employees() masterdata.EmployeeRepository { return employeeView{d} }

type clientView struct{ d *Directory }

func (v clientView) Exists(_ context.Context, id string) (bool, error) {
	v.d.mu.RLock()
	_, ok := v.d.clients[id]
	v.d.mu.RUnlock()
	return ok, nil
}

func (v clientView) Get(_ context.Context, id string) (*masterdata.Client, error) {
	v.d.mu.RLock()
	client, ok := v.d.clients[id]
	v.d.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return &client, nil
}

type projectView struct{ d *Directory }

func (v projectView) Exists(_ context.Context, id string) (bool, error) {
	v.d.mu.RLock()
	_, ok := v.d.projects[id]
	v.d.mu.RUnlock()
	return ok, nil
}

func (v projectView) Get(_ context.Context, id string) (*masterdata.Project, error) {
	v.d.mu.RLock()
	project, ok := v.d.projects[id]
	v.d.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return &project, nil
}

type employeeView struct{ d *Directory }

func (v employeeView) Get(_ context.Context, id string) (*masterdata.Employee, error) {
	v.d.mu.RLock()
	employee, ok := v.d.employees[id]
	v.d.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return &employee, nil
}

func (v employeeView) ListRoster(_ context.Context, filter masterdata.RosterFilter) ([]masterdata.Employee, error) {
	v.d.mu.RLock()
	roster := make([]masterdata.Employee, 0, len(v.d.employees))
	for _, employee := range v.d.employees {
		if filter.Department != "" && employee.Department != filter.Department {
			continue
		}
		if filter.Status != "" && employee.Status != filter.Status {
			continue
		}
		if !filter.HiredOnOrBefore.IsZero() && employee.HireDate.After(filter.HiredOnOrBefore) {
			continue
		}
		roster = append(roster, employee)
	}
	v.d.mu.RUnlock()

	sort.Slice(roster, func(i, j int) bool { return roster[i].Code < roster[j].Code })
	return roster, nil
}
