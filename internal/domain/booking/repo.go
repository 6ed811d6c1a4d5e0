package booking

import (
	"context"

	"github.com/google/uuid"
)

// Repository stores appointments and their children. Lookups return
// pgx.ErrNoRows when the record does not exist.
type Repository interface {
	// LockClinicDay takes the per-(clinic, date) reservation lock for the rest
	// of the current transaction, creating the key on first use.
	LockClinicDay(ctx context.Context, clinicID uuid.UUID, date Day) error
	// BookedCount sums employee_count over the clinic's appointments on date
	// that still hold capacity.
	BookedCount(ctx context.Context, clinicID uuid.UUID, date Day) (int, error)

	// CreateAppointment inserts a with the id it already carries.
	CreateAppointment(ctx context.Context, a *Appointment) error
	// CreateChildren inserts every child and cross-reference in one round trip.
	CreateChildren(ctx context.Context, children []*EmployeeAppointment, refs []*AppointmentEmployee) error

	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// GetAppointmentForUpdate reads the appointment and row-locks it for the
	// rest of the current transaction.
	GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error)
	UpdateAppointment(ctx context.Context, a *Appointment) error
	ListByCompany(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	ListByClinicDay(ctx context.Context, clinicID uuid.UUID, date Day) ([]*Appointment, error)

	ListChildren(ctx context.Context, appointmentID uuid.UUID) ([]*EmployeeAppointment, error)
	// ListLinkedEmployees reads the cross-reference table.
	ListLinkedEmployees(ctx context.Context, appointmentID uuid.UUID) ([]uuid.UUID, error)
	// MoveChildren sets the date of every child of the appointment.
	MoveChildren(ctx context.Context, appointmentID uuid.UUID, date Day) error
	GetChild(ctx context.Context, id uuid.UUID) (*EmployeeAppointment, error)
	UpdateChild(ctx context.Context, c *EmployeeAppointment) error
}
