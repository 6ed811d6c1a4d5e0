package app

import (
	"context"

	"github.com/google/uuid"

	"github.com/occhealth/occhealth/internal/domain/booking"
	"github.com/occhealth/occhealth/internal/domain/clinic"
	"github.com/occhealth/occhealth/internal/domain/workforce"
)

// The booking package depends on small interfaces rather than on the
// workforce and clinic packages. These adapters bridge the services.

type employeeLoader interface {
	GetEmployees(ctx context.Context, ids []uuid.UUID) ([]*workforce.Employee, error)
}

type companyLoader interface {
	GetCompany(ctx context.Context, id uuid.UUID) (*workforce.Company, error)
}

type clinicLoader interface {
	GetClinic(ctx context.Context, id uuid.UUID) (*clinic.Clinic, error)
}

var (
	_ booking.EmployeeDirectory = employeeDirectory{}
	_ booking.CompanyDirectory  = companyDirectory{}
	_ booking.ClinicCatalog     = clinicCatalog{}
	_ booking.Membership        = (*workforce.MembershipIndex)(nil)

	_ employeeLoader = (*workforce.Service)(nil)
	_ companyLoader  = (*workforce.Service)(nil)
	_ clinicLoader   = (*clinic.Service)(nil)
)

type employeeDirectory struct{ svc employeeLoader }

func (d employeeDirectory) Employees(ctx context.Context, ids []uuid.UUID) ([]booking.EmployeeInfo, error) {
	employees, err := d.svc.GetEmployees(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]booking.EmployeeInfo, 0, len(employees))
	for _, e := range employees {
		out = append(out, booking.EmployeeInfo{ID: e.ID, CompanyID: e.CompanyID, Name: e.FullName()})
	}
	return out, nil
}

type companyDirectory struct{ svc companyLoader }

func (d companyDirectory) Company(ctx context.Context, id uuid.UUID) (*booking.CompanyInfo, error) {
	c, err := d.svc.GetCompany(ctx, id)
	if err != nil {
		return nil, err
	}
	return &booking.CompanyInfo{ID: c.ID, Name: c.Name}, nil
}

type clinicCatalog struct{ svc clinicLoader }

func (d clinicCatalog) Clinic(ctx context.Context, id uuid.UUID) (*booking.ClinicInfo, error) {
	c, err := d.svc.GetClinic(ctx, id)
	if err != nil {
		return nil, err
	}
	return &booking.ClinicInfo{
		ID:                   c.ID,
		Name:                 c.Name,
		MaxDailyAppointments: c.MaxDailyAppointments,
		OwnerID:              c.UserID,
		Admins:               c.Admins,
	}, nil
}
