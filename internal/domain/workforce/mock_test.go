package workforce

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -- in-memory store shared by the mock repositories --

type memDB struct {
	companies   map[uuid.UUID]*Company
	employees   map[uuid.UUID]*Employee
	departments map[uuid.UUID]*Department
	sites       map[uuid.UUID]*Site
	deptRows    []*DepartmentEmployee
	siteRows    []*SiteEmployee
}

func newMemDB() *memDB {
	return &memDB{
		companies:   make(map[uuid.UUID]*Company),
		employees:   make(map[uuid.UUID]*Employee),
		departments: make(map[uuid.UUID]*Department),
		sites:       make(map[uuid.UUID]*Site),
	}
}

type noTx struct{}

func (noTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

type mockCompanyRepo struct{ *memDB }

func (m mockCompanyRepo) Create(_ context.Context, c *Company) error {
	c.ID = uuid.New()
	c.CreatedAt, c.UpdatedAt = time.Now(), time.Now()
	cp := *c
	m.companies[c.ID] = &cp
	return nil
}

func (m mockCompanyRepo) GetByID(_ context.Context, id uuid.UUID) (*Company, error) {
	c, ok := m.companies[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (m mockCompanyRepo) Update(_ context.Context, c *Company) error {
	stored, ok := m.companies[c.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Name, stored.ContactEmail, stored.ContactPhone = c.Name, c.ContactEmail, c.ContactPhone
	return nil
}

func (m mockCompanyRepo) ListByOwner(_ context.Context, userID string, limit, offset int) ([]*Company, int, error) {
	var r []*Company
	for _, c := range m.companies {
		if c.UserID == userID {
			r = append(r, c)
		}
	}
	return r, len(r), nil
}

type mockEmployeeRepo struct{ *memDB }

func (m mockEmployeeRepo) Create(_ context.Context, e *Employee) error {
	e.ID = uuid.New()
	cp := *e
	m.employees[e.ID] = &cp
	return nil
}

func (m mockEmployeeRepo) GetByID(_ context.Context, id uuid.UUID) (*Employee, error) {
	e, ok := m.employees[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (m mockEmployeeRepo) GetMany(_ context.Context, ids []uuid.UUID) ([]*Employee, error) {
	var r []*Employee
	for _, id := range ids {
		if e, ok := m.employees[id]; ok {
			cp := *e
			r = append(r, &cp)
		}
	}
	return r, nil
}

func (m mockEmployeeRepo) Update(_ context.Context, e *Employee) error {
	if _, ok := m.employees[e.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *e
	m.employees[e.ID] = &cp
	return nil
}

func (m mockEmployeeRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.employees, id)
	return nil
}

func (m mockEmployeeRepo) ListByCompany(_ context.Context, companyID uuid.UUID, limit, offset int) ([]*Employee, int, error) {
	var r []*Employee
	for _, e := range m.employees {
		if e.CompanyID != nil && *e.CompanyID == companyID {
			r = append(r, e)
		}
	}
	return r, len(r), nil
}

type mockDepartmentRepo struct{ *memDB }

func (m mockDepartmentRepo) Create(_ context.Context, d *Department) error {
	d.ID = uuid.New()
	cp := *d
	m.departments[d.ID] = &cp
	return nil
}

func (m mockDepartmentRepo) GetByID(_ context.Context, id uuid.UUID) (*Department, error) {
	d, ok := m.departments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *d
	return &cp, nil
}

func (m mockDepartmentRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.departments, id)
	kept := m.deptRows[:0]
	for _, a := range m.deptRows {
		if a.DepartmentID != id {
			kept = append(kept, a)
		}
	}
	m.memDB.deptRows = kept
	return nil
}

func (m mockDepartmentRepo) ListByCompany(_ context.Context, companyID uuid.UUID) ([]*Department, error) {
	var r []*Department
	for _, d := range m.departments {
		if d.CompanyID == companyID {
			r = append(r, d)
		}
	}
	return r, nil
}

type mockSiteRepo struct{ *memDB }

func (m mockSiteRepo) Create(_ context.Context, s *Site) error {
	s.ID = uuid.New()
	cp := *s
	m.sites[s.ID] = &cp
	return nil
}

func (m mockSiteRepo) GetByID(_ context.Context, id uuid.UUID) (*Site, error) {
	s, ok := m.sites[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (m mockSiteRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.sites, id)
	return nil
}

func (m mockSiteRepo) ListByCompany(_ context.Context, companyID uuid.UUID) ([]*Site, error) {
	var r []*Site
	for _, s := range m.sites {
		if s.CompanyID == companyID {
			r = append(r, s)
		}
	}
	return r, nil
}

type mockAssignmentRepo struct{ *memDB }

func (m mockAssignmentRepo) UpsertDepartment(_ context.Context, a *DepartmentEmployee) error {
	a.Active = true
	for _, row := range m.deptRows {
		if row.DepartmentID == a.DepartmentID && row.EmployeeID == a.EmployeeID {
			row.Role, row.IsManager, row.Active = a.Role, a.IsManager, true
			a.ID = row.ID
			return nil
		}
	}
	a.ID = uuid.New()
	cp := *a
	m.memDB.deptRows = append(m.deptRows, &cp)
	return nil
}

func (m mockAssignmentRepo) DeactivateDepartment(_ context.Context, departmentID, employeeID uuid.UUID) (bool, error) {
	for _, row := range m.deptRows {
		if row.DepartmentID == departmentID && row.EmployeeID == employeeID && row.Active {
			row.Active = false
			return true, nil
		}
	}
	return false, nil
}

func (m mockAssignmentRepo) ListDepartment(_ context.Context, departmentID uuid.UUID) ([]*DepartmentEmployee, error) {
	var r []*DepartmentEmployee
	for _, row := range m.deptRows {
		if row.DepartmentID == departmentID && row.Active {
			r = append(r, row)
		}
	}
	return r, nil
}

func (m mockAssignmentRepo) DepartmentEmployeeIDs(_ context.Context, departmentID uuid.UUID) ([]uuid.UUID, error) {
	var r []uuid.UUID
	for _, row := range m.deptRows {
		if row.DepartmentID == departmentID && row.Active {
			r = append(r, row.EmployeeID)
		}
	}
	return r, nil
}

func (m mockAssignmentRepo) UpsertSite(_ context.Context, a *SiteEmployee) error {
	a.Active = true
	for _, row := range m.siteRows {
		if row.SiteID == a.SiteID && row.EmployeeID == a.EmployeeID {
			row.Role, row.IsPrimary, row.Active = a.Role, a.IsPrimary, true
			a.ID = row.ID
			return nil
		}
	}
	a.ID = uuid.New()
	cp := *a
	m.memDB.siteRows = append(m.siteRows, &cp)
	return nil
}

func (m mockAssignmentRepo) DeactivateSite(_ context.Context, siteID, employeeID uuid.UUID) (bool, error) {
	for _, row := range m.siteRows {
		if row.SiteID == siteID && row.EmployeeID == employeeID && row.Active {
			row.Active = false
			return true, nil
		}
	}
	return false, nil
}

func (m mockAssignmentRepo) ListSite(_ context.Context, siteID uuid.UUID) ([]*SiteEmployee, error) {
	var r []*SiteEmployee
	for _, row := range m.siteRows {
		if row.SiteID == siteID && row.Active {
			r = append(r, row)
		}
	}
	return r, nil
}

func (m mockAssignmentRepo) SiteEmployeeIDs(_ context.Context, siteID uuid.UUID) ([]uuid.UUID, error) {
	var r []uuid.UUID
	for _, row := range m.siteRows {
		if row.SiteID == siteID && row.Active {
			r = append(r, row.EmployeeID)
		}
	}
	return r, nil
}

func (m mockAssignmentRepo) DeleteForEmployee(_ context.Context, employeeID uuid.UUID) ([]uuid.UUID, []uuid.UUID, error) {
	var depts, sites []uuid.UUID
	keptD := make([]*DepartmentEmployee, 0, len(m.deptRows))
	for _, row := range m.deptRows {
		if row.EmployeeID != employeeID {
			keptD = append(keptD, row)
		} else if row.Active {
			depts = append(depts, row.DepartmentID)
		}
	}
	keptS := make([]*SiteEmployee, 0, len(m.siteRows))
	for _, row := range m.siteRows {
		if row.EmployeeID != employeeID {
			keptS = append(keptS, row)
		} else if row.Active {
			sites = append(sites, row.SiteID)
		}
	}
	m.memDB.deptRows, m.memDB.siteRows = keptD, keptS
	return depts, sites, nil
}

func (m mockAssignmentRepo) DeactivateOutsideCompany(_ context.Context, employeeID uuid.UUID, companyID *uuid.UUID) ([]uuid.UUID, []uuid.UUID, error) {
	var depts, sites []uuid.UUID
	for _, row := range m.deptRows {
		d := m.departments[row.DepartmentID]
		if row.EmployeeID == employeeID && row.Active && (companyID == nil || d.CompanyID != *companyID) {
			row.Active = false
			depts = append(depts, row.DepartmentID)
		}
	}
	for _, row := range m.siteRows {
		s := m.sites[row.SiteID]
		if row.EmployeeID == employeeID && row.Active && (companyID == nil || s.CompanyID != *companyID) {
			row.Active = false
			sites = append(sites, row.SiteID)
		}
	}
	return depts, sites, nil
}

type recountCall struct {
	target Target
	id     uuid.UUID
}

type mockCounterRepo struct {
	*memDB
	recounts int
	calls    []recountCall
}

func (m *mockCounterRepo) Recount(_ context.Context, target Target, id uuid.UUID) (Recount, bool, error) {
	m.recounts++
	m.calls = append(m.calls, recountCall{target, id})
	switch target {
	case TargetCompany:
		c, ok := m.companies[id]
		if !ok {
			return Recount{}, false, nil
		}
		n := 0
		for _, e := range m.employees {
			if e.CompanyID != nil && *e.CompanyID == id {
				n++
			}
		}
		rc := Recount{Before: c.EmployeeCount, After: n}
		c.EmployeeCount = n
		return rc, true, nil
	case TargetDepartment:
		d, ok := m.departments[id]
		if !ok {
			return Recount{}, false, nil
		}
		n := 0
		for _, row := range m.deptRows {
			if row.DepartmentID == id && row.Active {
				n++
			}
		}
		rc := Recount{Before: d.EmployeeCount, After: n}
		d.EmployeeCount = n
		return rc, true, nil
	default:
		s, ok := m.sites[id]
		if !ok {
			return Recount{}, false, nil
		}
		n := 0
		for _, row := range m.siteRows {
			if row.SiteID == id && row.Active {
				n++
			}
		}
		rc := Recount{Before: s.EmployeeCount, After: n}
		s.EmployeeCount = n
		return rc, true, nil
	}
}

func (m *mockCounterRepo) OwnedIDs(_ context.Context, target Target, userID string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	switch target {
	case TargetCompany:
		for id, c := range m.companies {
			if c.UserID == userID {
				ids = append(ids, id)
			}
		}
	case TargetDepartment:
		for id, d := range m.departments {
			if d.UserID == userID {
				ids = append(ids, id)
			}
		}
	case TargetSite:
		for id, s := range m.sites {
			if s.UserID == userID {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

func newTestService() (*Service, *memDB, *mockCounterRepo) {
	mem := newMemDB()
	counters := &mockCounterRepo{memDB: mem}
	svc := NewService(noTx{},
		mockCompanyRepo{mem}, mockEmployeeRepo{mem}, mockDepartmentRepo{mem},
		mockSiteRepo{mem}, mockAssignmentRepo{mem}, counters)
	return svc, mem, counters
}
