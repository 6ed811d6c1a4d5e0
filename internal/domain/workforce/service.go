package workforce

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/occhealth/occhealth/internal/platform/apperr"
	"github.com/occhealth/occhealth/internal/platform/auth"
	"github.com/occhealth/occhealth/internal/platform/db"
)

type Service struct {
	tx          db.Transactor
	companies   CompanyRepository
	employees   EmployeeRepository
	departments DepartmentRepository
	sites       SiteRepository
	assignments AssignmentRepository
	index       *MembershipIndex
	reconciler  *Reconciler
}

func NewService(tx db.Transactor, c CompanyRepository, e EmployeeRepository, d DepartmentRepository,
	s SiteRepository, a AssignmentRepository, counters CounterRepository) *Service {
	return &Service{
		tx:          tx,
		companies:   c,
		employees:   e,
		departments: d,
		sites:       s,
		assignments: a,
		index:       NewMembershipIndex(d, s, a),
		reconciler:  NewReconciler(counters),
	}
}

// Membership returns the index the booking flow expands selections with.
func (s *Service) Membership() *MembershipIndex { return s.index }

// -- owned lookups --

func (s *Service) company(ctx context.Context, id uuid.UUID) (*Company, error) {
	c, err := s.companies.GetByID(ctx, id)
	return auth.RequireOwner(ctx, "company", id, c, err)
}

func (s *Service) employee(ctx context.Context, id uuid.UUID) (*Employee, error) {
	e, err := s.employees.GetByID(ctx, id)
	return auth.RequireOwner(ctx, "employee", id, e, err)
}

func (s *Service) department(ctx context.Context, id uuid.UUID) (*Department, error) {
	d, err := s.departments.GetByID(ctx, id)
	return auth.RequireOwner(ctx, "department", id, d, err)
}

func (s *Service) site(ctx context.Context, id uuid.UUID) (*Site, error) {
	st, err := s.sites.GetByID(ctx, id)
	return auth.RequireOwner(ctx, "site", id, st, err)
}

func requireName(field string, v *string) error {
	*v = strings.TrimSpace(*v)
	if *v == "" {
		return apperr.Invalid(field, "is required")
	}
	return nil
}

// -- companies --

func (s *Service) CreateCompany(ctx context.Context, c *Company) error {
	user, err := auth.MustUser(ctx)
	if err != nil {
		return err
	}
	if err := requireName("name", &c.Name); err != nil {
		return err
	}
	c.UserID = user
	c.EmployeeCount = 0
	return s.companies.Create(ctx, c)
}

func (s *Service) GetCompany(ctx context.Context, id uuid.UUID) (*Company, error) {
	return s.company(ctx, id)
}

// CompanyUpdate changes the descriptive fields of a company. The counter is
// never written from outside the reconciler.
type CompanyUpdate struct {
	Name         *string `json:"name,omitempty"`
	ContactEmail *string `json:"contact_email,omitempty"`
	ContactPhone *string `json:"contact_phone,omitempty"`
}

func (s *Service) UpdateCompany(ctx context.Context, id uuid.UUID, upd CompanyUpdate) (*Company, error) {
	c, err := s.company(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		if err := requireName("name", upd.Name); err != nil {
			return nil, err
		}
		c.Name = *upd.Name
	}
	if upd.ContactEmail != nil {
		c.ContactEmail = upd.ContactEmail
	}
	if upd.ContactPhone != nil {
		c.ContactPhone = upd.ContactPhone
	}
	if err := s.companies.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) ListCompanies(ctx context.Context, limit, offset int) ([]*Company, int, error) {
	user, err := auth.MustUser(ctx)
	if err != nil {
		return nil, 0, err
	}
	return s.companies.ListByOwner(ctx, user, limit, offset)
}

// -- employees --

// CreateEmployee stores a new employee. A department or site given on creation
// must belong to the employee's company and is recorded as an assignment.
func (s *Service) CreateEmployee(ctx context.Context, e *Employee) error {
	user, err := auth.MustUser(ctx)
	if err != nil {
		return err
	}
	if err := requireName("first_name", &e.FirstName); err != nil {
		return err
	}
	if err := requireName("last_name", &e.LastName); err != nil {
		return err
	}
	if e.Status == "" {
		e.Status = StatusActive
	}
	if !validEmployeeStatuses[e.Status] {
		return apperr.Invalid("status", "unknown status %q", e.Status)
	}
	if (e.DepartmentID != nil || e.SiteID != nil) && e.CompanyID == nil {
		return apperr.Invalid("company_id", "is required when department_id or site_id is set")
	}
	e.UserID = user

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if e.CompanyID != nil {
			if _, err := s.company(ctx, *e.CompanyID); err != nil {
				return err
			}
		}
		if e.DepartmentID != nil {
			d, err := s.department(ctx, *e.DepartmentID)
			if err != nil {
				return err
			}
			if d.CompanyID != *e.CompanyID {
				return apperr.Invalid("department_id", "belongs to a different company")
			}
		}
		if e.SiteID != nil {
			st, err := s.site(ctx, *e.SiteID)
			if err != nil {
				return err
			}
			if st.CompanyID != *e.CompanyID {
				return apperr.Invalid("site_id", "belongs to a different company")
			}
		}

		if err := s.employees.Create(ctx, e); err != nil {
			return err
		}

		if e.DepartmentID != nil {
			a := &DepartmentEmployee{UserID: user, DepartmentID: *e.DepartmentID, EmployeeID: e.ID}
			if err := s.assignments.UpsertDepartment(ctx, a); err != nil {
				return err
			}
			if _, err := s.reconciler.ReconcileAfterAssignmentChange(ctx, TargetDepartment, *e.DepartmentID); err != nil {
				return err
			}
		}
		if e.SiteID != nil {
			a := &SiteEmployee{UserID: user, SiteID: *e.SiteID, EmployeeID: e.ID, IsPrimary: true}
			if err := s.assignments.UpsertSite(ctx, a); err != nil {
				return err
			}
			if _, err := s.reconciler.ReconcileAfterAssignmentChange(ctx, TargetSite, *e.SiteID); err != nil {
				return err
			}
		}
		return s.reconciler.ReconcileAfterCompanyReassignment(ctx, nil, e.CompanyID)
	})
}

func (s *Service) GetEmployee(ctx context.Context, id uuid.UUID) (*Employee, error) {
	return s.employee(ctx, id)
}

// GetEmployees loads every id for the current user. A missing or foreign id
// fails the whole call.
func (s *Service) GetEmployees(ctx context.Context, ids []uuid.UUID) ([]*Employee, error) {
	found, err := s.employees.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*Employee, len(found))
	for _, e := range found {
		byID[e.ID] = e
	}
	out := make([]*Employee, 0, len(ids))
	for _, id := range ids {
		e, ok := byID[id]
		if !ok {
			return nil, apperr.NotFound("employee", id)
		}
		if err := auth.CheckOwner(ctx, "employee", id, e.UserID); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Service) ListEmployees(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*Employee, int, error) {
	if _, err := s.company(ctx, companyID); err != nil {
		return nil, 0, err
	}
	return s.employees.ListByCompany(ctx, companyID, limit, offset)
}

func (s *Service) PatchEmployee(ctx context.Context, id uuid.UUID, patch *EmployeePatch) (*Employee, error) {
	e, err := s.employee(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return e, nil
	}
	if err := patch.Apply(e); err != nil {
		return nil, err
	}
	if err := s.employees.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// ReassignCompany moves an employee to another company, or out of any company
// when newCompanyID is nil. Assignments to departments and sites of the old
// company are deactivated and every affected counter is recomputed in the same
// transaction.
func (s *Service) ReassignCompany(ctx context.Context, id uuid.UUID, newCompanyID *uuid.UUID) (*Employee, error) {
	var out *Employee
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		e, err := s.employee(ctx, id)
		if err != nil {
			return err
		}
		if newCompanyID != nil {
			if _, err := s.company(ctx, *newCompanyID); err != nil {
				return err
			}
		}
		old := e.CompanyID
		if sameCompany(old, newCompanyID) {
			out = e
			return nil
		}

		depts, sites, err := s.assignments.DeactivateOutsideCompany(ctx, e.ID, newCompanyID)
		if err != nil {
			return err
		}
		e.CompanyID = newCompanyID
		e.DepartmentID = nil
		e.SiteID = nil
		if err := s.employees.Update(ctx, e); err != nil {
			return err
		}

		if err := s.reconciler.reconcileMany(ctx, TargetDepartment, depts); err != nil {
			return err
		}
		if err := s.reconciler.reconcileMany(ctx, TargetSite, sites); err != nil {
			return err
		}
		if err := s.reconciler.ReconcileAfterCompanyReassignment(ctx, old, newCompanyID); err != nil {
			return err
		}
		out = e
		return nil
	})
	return out, err
}

func sameCompany(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// DeleteEmployee removes the employee together with their department and site
// assignments. Appointment history keeps the denormalized name.
func (s *Service) DeleteEmployee(ctx context.Context, id uuid.UUID) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		e, err := s.employee(ctx, id)
		if err != nil {
			return err
		}
		depts, sites, err := s.assignments.DeleteForEmployee(ctx, e.ID)
		if err != nil {
			return err
		}
		if err := s.employees.Delete(ctx, e.ID); err != nil {
			return err
		}
		if err := s.reconciler.reconcileMany(ctx, TargetDepartment, depts); err != nil {
			return err
		}
		if err := s.reconciler.reconcileMany(ctx, TargetSite, sites); err != nil {
			return err
		}
		return s.reconciler.ReconcileAfterCompanyReassignment(ctx, e.CompanyID, nil)
	})
}

// -- departments and sites --

func (s *Service) CreateDepartment(ctx context.Context, d *Department) error {
	user, err := auth.MustUser(ctx)
	if err != nil {
		return err
	}
	if err := requireName("name", &d.Name); err != nil {
		return err
	}
	if d.CompanyID == uuid.Nil {
		return apperr.User(apperr.CodeMissingCompany, "company_id is required")
	}
	if _, err := s.company(ctx, d.CompanyID); err != nil {
		return err
	}
	d.UserID = user
	d.EmployeeCount = 0
	return s.departments.Create(ctx, d)
}

func (s *Service) GetDepartment(ctx context.Context, id uuid.UUID) (*Department, error) {
	return s.department(ctx, id)
}

func (s *Service) ListDepartments(ctx context.Context, companyID uuid.UUID) ([]*Department, error) {
	if _, err := s.company(ctx, companyID); err != nil {
		return nil, err
	}
	return s.departments.ListByCompany(ctx, companyID)
}

func (s *Service) DeleteDepartment(ctx context.Context, id uuid.UUID) error {
	if _, err := s.department(ctx, id); err != nil {
		return err
	}
	return s.departments.Delete(ctx, id)
}

func (s *Service) CreateSite(ctx context.Context, st *Site) error {
	user, err := auth.MustUser(ctx)
	if err != nil {
		return err
	}
	if err := requireName("name", &st.Name); err != nil {
		return err
	}
	if st.CompanyID == uuid.Nil {
		return apperr.User(apperr.CodeMissingCompany, "company_id is required")
	}
	if _, err := s.company(ctx, st.CompanyID); err != nil {
		return err
	}
	st.UserID = user
	st.EmployeeCount = 0
	return s.sites.Create(ctx, st)
}

func (s *Service) GetSite(ctx context.Context, id uuid.UUID) (*Site, error) {
	return s.site(ctx, id)
}

func (s *Service) ListSites(ctx context.Context, companyID uuid.UUID) ([]*Site, error) {
	if _, err := s.company(ctx, companyID); err != nil {
		return nil, err
	}
	return s.sites.ListByCompany(ctx, companyID)
}

func (s *Service) DeleteSite(ctx context.Context, id uuid.UUID) error {
	if _, err := s.site(ctx, id); err != nil {
		return err
	}
	return s.sites.Delete(ctx, id)
}

// -- assignments --

func (s *Service) memberOf(ctx context.Context, employeeID, companyID uuid.UUID) (*Employee, error) {
	e, err := s.employee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if e.CompanyID == nil || *e.CompanyID != companyID {
		return nil, apperr.User(apperr.CodeEmployeeNotInCompany, "employee "+employeeID.String()+" does not belong to the company")
	}
	return e, nil
}

// AddToDepartment assigns an employee of the department's company. Adding an
// existing member updates role and manager flag without changing the count.
func (s *Service) AddToDepartment(ctx context.Context, a *DepartmentEmployee) error {
	user, err := auth.MustUser(ctx)
	if err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		d, err := s.department(ctx, a.DepartmentID)
		if err != nil {
			return err
		}
		if _, err := s.memberOf(ctx, a.EmployeeID, d.CompanyID); err != nil {
			return err
		}
		a.UserID = user
		if err := s.assignments.UpsertDepartment(ctx, a); err != nil {
			return err
		}
		_, err = s.reconciler.ReconcileAfterAssignmentChange(ctx, TargetDepartment, d.ID)
		return err
	})
}

func (s *Service) RemoveFromDepartment(ctx context.Context, departmentID, employeeID uuid.UUID) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.department(ctx, departmentID); err != nil {
			return err
		}
		e, err := s.employee(ctx, employeeID)
		if err != nil {
			return err
		}
		removed, err := s.assignments.DeactivateDepartment(ctx, departmentID, employeeID)
		if err != nil {
			return err
		}
		if !removed {
			return apperr.NotFound("department assignment", employeeID)
		}
		if e.DepartmentID != nil && *e.DepartmentID == departmentID {
			e.DepartmentID = nil
			if err := s.employees.Update(ctx, e); err != nil {
				return err
			}
		}
		_, err = s.reconciler.ReconcileAfterAssignmentChange(ctx, TargetDepartment, departmentID)
		return err
	})
}

func (s *Service) ListDepartmentMembers(ctx context.Context, departmentID uuid.UUID) ([]*DepartmentEmployee, error) {
	if _, err := s.department(ctx, departmentID); err != nil {
		return nil, err
	}
	return s.assignments.ListDepartment(ctx, departmentID)
}

func (s *Service) AddToSite(ctx context.Context, a *SiteEmployee) error {
	user, err := auth.MustUser(ctx)
	if err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		st, err := s.site(ctx, a.SiteID)
		if err != nil {
			return err
		}
		if _, err := s.memberOf(ctx, a.EmployeeID, st.CompanyID); err != nil {
			return err
		}
		a.UserID = user
		if err := s.assignments.UpsertSite(ctx, a); err != nil {
			return err
		}
		_, err = s.reconciler.ReconcileAfterAssignmentChange(ctx, TargetSite, st.ID)
		return err
	})
}

func (s *Service) RemoveFromSite(ctx context.Context, siteID, employeeID uuid.UUID) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.site(ctx, siteID); err != nil {
			return err
		}
		e, err := s.employee(ctx, employeeID)
		if err != nil {
			return err
		}
		removed, err := s.assignments.DeactivateSite(ctx, siteID, employeeID)
		if err != nil {
			return err
		}
		if !removed {
			return apperr.NotFound("site assignment", employeeID)
		}
		if e.SiteID != nil && *e.SiteID == siteID {
			e.SiteID = nil
			if err := s.employees.Update(ctx, e); err != nil {
				return err
			}
		}
		_, err = s.reconciler.ReconcileAfterAssignmentChange(ctx, TargetSite, siteID)
		return err
	})
}

func (s *Service) ListSiteMembers(ctx context.Context, siteID uuid.UUID) ([]*SiteEmployee, error) {
	if _, err := s.site(ctx, siteID); err != nil {
		return nil, err
	}
	return s.assignments.ListSite(ctx, siteID)
}

// -- reconciliation --

// Reconcile recomputes every counter owned by the current user.
func (s *Service) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	user, err := auth.MustUser(ctx)
	if err != nil {
		return nil, err
	}
	var report *ReconcileReport
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		r, err := s.reconciler.ReconcileAll(ctx, user)
		report = r
		return err
	})
	return report, err
}
