package workforce

import (
	"context"

	"github.com/google/uuid"
)

// Lookups return pgx.ErrNoRows when the record does not exist. Ownership is
// checked by the service, list queries filter on user_id themselves.

type CompanyRepository interface {
	Create(ctx context.Context, c *Company) error
	GetByID(ctx context.Context, id uuid.UUID) (*Company, error)
	Update(ctx context.Context, c *Company) error
	ListByOwner(ctx context.Context, userID string, limit, offset int) ([]*Company, int, error)
}

type EmployeeRepository interface {
	Create(ctx context.Context, e *Employee) error
	GetByID(ctx context.Context, id uuid.UUID) (*Employee, error)
	// GetMany returns the employees found among ids, in no particular order.
	GetMany(ctx context.Context, ids []uuid.UUID) ([]*Employee, error)
	Update(ctx context.Context, e *Employee) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByCompany(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*Employee, int, error)
}

type DepartmentRepository interface {
	Create(ctx context.Context, d *Department) error
	GetByID(ctx context.Context, id uuid.UUID) (*Department, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*Department, error)
}

type SiteRepository interface {
	Create(ctx context.Context, s *Site) error
	GetByID(ctx context.Context, id uuid.UUID) (*Site, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*Site, error)
}

// AssignmentRepository manages the departmentEmployees and siteEmployees join tables.
type AssignmentRepository interface {
	// UpsertDepartment inserts the assignment or reactivates an existing row
	// for the same (department, employee) pair.
	UpsertDepartment(ctx context.Context, a *DepartmentEmployee) error
	// DeactivateDepartment reports whether an active row was deactivated.
	DeactivateDepartment(ctx context.Context, departmentID, employeeID uuid.UUID) (bool, error)
	ListDepartment(ctx context.Context, departmentID uuid.UUID) ([]*DepartmentEmployee, error)
	// DepartmentEmployeeIDs returns the distinct employees actively assigned.
	DepartmentEmployeeIDs(ctx context.Context, departmentID uuid.UUID) ([]uuid.UUID, error)

	UpsertSite(ctx context.Context, a *SiteEmployee) error
	DeactivateSite(ctx context.Context, siteID, employeeID uuid.UUID) (bool, error)
	ListSite(ctx context.Context, siteID uuid.UUID) ([]*SiteEmployee, error)
	SiteEmployeeIDs(ctx context.Context, siteID uuid.UUID) ([]uuid.UUID, error)

	// DeleteForEmployee removes every assignment row of the employee and
	// returns the departments and sites that had an active one.
	DeleteForEmployee(ctx context.Context, employeeID uuid.UUID) (departments, sites []uuid.UUID, err error)
	// DeactivateOutsideCompany deactivates the employee's assignments to
	// departments and sites of any company other than companyID (all of them
	// when companyID is nil).
	DeactivateOutsideCompany(ctx context.Context, employeeID uuid.UUID, companyID *uuid.UUID) (departments, sites []uuid.UUID, err error)
}

// Recount is a stored counter before and after it was recomputed.
type Recount struct {
	Before int `json:"before"`
	After  int `json:"after"`
}

// CounterRepository recomputes stored employee counts from membership. Recount
// row-locks the aggregate before counting and reports found=false when the
// aggregate row no longer exists.
type CounterRepository interface {
	Recount(ctx context.Context, target Target, id uuid.UUID) (rc Recount, found bool, err error)
	// OwnedIDs lists every aggregate of the given kind owned by userID.
	OwnedIDs(ctx context.Context, target Target, userID string) ([]uuid.UUID, error)
}
