// Package app wires the domain services and their PostgreSQL repositories over
// one connection pool.
package app

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/occhealth/occhealth/internal/domain/booking"
	"github.com/occhealth/occhealth/internal/domain/clinic"
	"github.com/occhealth/occhealth/internal/domain/workforce"
	"github.com/occhealth/occhealth/internal/platform/db"
)

type Services struct {
	Workforce *workforce.Service
	Clinic    *clinic.Service
	Booking   *booking.Service
}

func New(pool *pgxpool.Pool, policy booking.Policy) *Services {
	tx := db.NewTxRunner(pool)
	wf := workforce.NewService(
		tx,
		workforce.NewCompanyRepoPG(pool),
		workforce.NewEmployeeRepoPG(pool),
		workforce.NewDepartmentRepoPG(pool),
		workforce.NewSiteRepoPG(pool),
		workforce.NewAssignmentRepoPG(pool),
		workforce.NewCounterRepoPG(pool),
	)
	cl := clinic.NewService(
		clinic.NewClinicRepoPG(pool),
		clinic.NewDoctorRepoPG(pool),
		clinic.NewOfferingRepoPG(pool),
	)
	bk := booking.NewService(
		tx,
		booking.NewRepoPG(pool),
		wf.Membership(),
		employeeDirectory{svc: wf},
		companyDirectory{svc: wf},
		clinicCatalog{svc: cl},
		policy,
	)
	return &Services{Workforce: wf, Clinic: cl, Booking: bk}
}

// RegisterRoutes mounts every domain handler on api.
func (s *Services) RegisterRoutes(api *echo.Group) {
	workforce.NewHandler(s.Workforce).RegisterRoutes(api)
	clinic.NewHandler(s.Clinic).RegisterRoutes(api)
	booking.NewHandler(s.Booking).RegisterRoutes(api)
}
