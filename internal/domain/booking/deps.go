package booking

import (
	"context"

	"github.com/google/uuid"
)

// Membership expands departments and sites of a company into employee ids.
// A department or site of another company is reported as not found.
type Membership interface {
	ExpandDepartmentInCompany(ctx context.Context, companyID, departmentID uuid.UUID) ([]uuid.UUID, error)
	ExpandSiteInCompany(ctx context.Context, companyID, siteID uuid.UUID) ([]uuid.UUID, error)
}

// EmployeeInfo is the part of an employee a booking copies.
type EmployeeInfo struct {
	ID        uuid.UUID
	CompanyID *uuid.UUID
	Name      string
}

// EmployeeDirectory loads employees owned by the caller. A missing or foreign
// id fails the whole call with apperr.ErrNotFound or apperr.ErrForbidden.
type EmployeeDirectory interface {
	Employees(ctx context.Context, ids []uuid.UUID) ([]EmployeeInfo, error)
}

type CompanyInfo struct {
	ID   uuid.UUID
	Name string
}

// CompanyDirectory loads a company owned by the caller.
type CompanyDirectory interface {
	Company(ctx context.Context, id uuid.UUID) (*CompanyInfo, error)
}

type ClinicInfo struct {
	ID                   uuid.UUID
	Name                 string
	MaxDailyAppointments *int
	OwnerID              string
	Admins               []string
}

// CanManage reports whether user owns the clinic or administers it.
func (c *ClinicInfo) CanManage(user string) bool {
	if user == "" {
		return false
	}
	if c.OwnerID == user {
		return true
	}
	for _, a := range c.Admins {
		if a == user {
			return true
		}
	}
	return false
}

// ClinicCatalog looks clinics up. Clinics are readable by every authenticated user.
type ClinicCatalog interface {
	Clinic(ctx context.Context, id uuid.UUID) (*ClinicInfo, error)
}
