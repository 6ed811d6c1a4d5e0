package workforce

import (
	"time"

	"github.com/google/uuid"
)

// Company maps to the companies table. EmployeeCount mirrors the number of
// employees whose company_id is this company.
type Company struct {
	ID            uuid.UUID `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	Name          string    `db:"name" json:"name"`
	ContactEmail  *string   `db:"contact_email" json:"contact_email,omitempty"`
	ContactPhone  *string   `db:"contact_phone" json:"contact_phone,omitempty"`
	EmployeeCount int       `db:"employee_count" json:"employee_count"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

func (c *Company) OwnerID() string { return c.UserID }

// Employee maps to the employees table. Company, department and site are
// plain references; none of them owns the employee.
type Employee struct {
	ID           uuid.UUID   `db:"id" json:"id"`
	UserID       string      `db:"user_id" json:"user_id"`
	CompanyID    *uuid.UUID  `db:"company_id" json:"company_id,omitempty"`
	DepartmentID *uuid.UUID  `db:"department_id" json:"department_id,omitempty"`
	SiteID       *uuid.UUID  `db:"site_id" json:"site_id,omitempty"`
	FirstName    string      `db:"first_name" json:"first_name"`
	LastName     string      `db:"last_name" json:"last_name"`
	Email        *string     `db:"email" json:"email,omitempty"`
	JobTitle     *string     `db:"job_title" json:"job_title,omitempty"`
	Status       string      `db:"status" json:"status"`
	MedicalInfo  MedicalInfo `db:"medical_info" json:"medical_info"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

func (e *Employee) OwnerID() string { return e.UserID }

func (e *Employee) FullName() string {
	switch {
	case e.FirstName == "":
		return e.LastName
	case e.LastName == "":
		return e.FirstName
	}
	return e.FirstName + " " + e.LastName
}

// MedicalInfo is stored as JSONB on the employee row.
type MedicalInfo struct {
	Allergies   []string `json:"allergies,omitempty"`
	Conditions  []string `json:"conditions,omitempty"`
	Medications []string `json:"medications,omitempty"`
	BloodType   *string  `json:"blood_type,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
}

// Department maps to the departments table.
type Department struct {
	ID            uuid.UUID `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	CompanyID     uuid.UUID `db:"company_id" json:"company_id"`
	Name          string    `db:"name" json:"name"`
	EmployeeCount int       `db:"employee_count" json:"employee_count"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

func (d *Department) OwnerID() string { return d.UserID }

// Site maps to the sites table.
type Site struct {
	ID            uuid.UUID `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	CompanyID     uuid.UUID `db:"company_id" json:"company_id"`
	Name          string    `db:"name" json:"name"`
	Address       *string   `db:"address" json:"address,omitempty"`
	EmployeeCount int       `db:"employee_count" json:"employee_count"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

func (s *Site) OwnerID() string { return s.UserID }

// DepartmentEmployee maps to the "departmentEmployees" join table. Removing an
// employee clears Active rather than deleting the row.
type DepartmentEmployee struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	DepartmentID uuid.UUID `db:"department_id" json:"department_id"`
	EmployeeID   uuid.UUID `db:"employee_id" json:"employee_id"`
	Role         *string   `db:"role" json:"role,omitempty"`
	IsManager    bool      `db:"is_manager" json:"is_manager"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// SiteEmployee maps to the "siteEmployees" join table.
type SiteEmployee struct {
	ID         uuid.UUID `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	SiteID     uuid.UUID `db:"site_id" json:"site_id"`
	EmployeeID uuid.UUID `db:"employee_id" json:"employee_id"`
	Role       *string   `db:"role" json:"role,omitempty"`
	IsPrimary  bool      `db:"is_primary" json:"is_primary"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Target names an aggregate whose employee_count is derived from membership.
type Target string

const (
	TargetCompany    Target = "company"
	TargetDepartment Target = "department"
	TargetSite       Target = "site"
)

const (
	StatusActive     = "active"
	StatusInactive   = "inactive"
	StatusOnLeave    = "on_leave"
	StatusTerminated = "terminated"
)

var validEmployeeStatuses = map[string]bool{
	StatusActive: true, StatusInactive: true, StatusOnLeave: true, StatusTerminated: true,
}
