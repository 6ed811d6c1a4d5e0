package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/occhealth/occhealth/internal/platform/apperr"
	"github.com/occhealth/occhealth/internal/platform/db"
)

// Result is a committed booking.
type Result struct {
	Appointment          *Appointment           `json:"appointment"`
	EmployeeAppointments []*EmployeeAppointment `json:"employee_appointments"`
	AppointmentEmployees []*AppointmentEmployee `json:"appointment_employees"`
	Capacity             *Evaluation            `json:"capacity"`
}

// Writer persists a ready booking: the parent appointment, one
// EmployeeAppointment and one AppointmentEmployee per employee, all in one
// transaction. The capacity check is repeated inside that transaction under
// the clinic day lock.
type Writer struct {
	tx       db.Transactor
	repo     Repository
	capacity *CapacityChecker
	strict   bool
}

// NewWriter builds a writer. With strict set a booking that would exceed the
// clinic's ceiling is rejected with apperr.ErrCapacityExceeded.
func NewWriter(tx db.Transactor, repo Repository, capacity *CapacityChecker, strict bool) *Writer {
	return &Writer{tx: tx, repo: repo, capacity: capacity, strict: strict}
}

// Commit writes b and returns the stored records. Store failures come back as
// apperr.ErrCommit with nothing persisted.
func (w *Writer) Commit(ctx context.Context, b *Booking) (*Result, error) {
	parent := *b.Appointment
	children, refs := buildChildren(&parent, b)

	var eval *Evaluation
	err := w.tx.InTx(ctx, func(ctx context.Context) error {
		if err := w.repo.LockClinicDay(ctx, parent.ClinicID, parent.Date); err != nil {
			return fmt.Errorf("lock clinic day: %w", err)
		}
		// The clinic is reloaded so a retried draft sees the current ceiling.
		c, err := w.capacity.RemainingCapacity(ctx, parent.ClinicID, parent.Date)
		if err != nil {
			return err
		}
		eval = c.Evaluate(parent.EmployeeCount)
		if w.strict && eval.Over() {
			return fmt.Errorf("%w: %s", apperr.ErrCapacityExceeded, eval.Warning.Message)
		}
		if err := w.repo.CreateAppointment(ctx, &parent); err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}
		if err := w.repo.CreateChildren(ctx, children, refs); err != nil {
			return fmt.Errorf("insert appointment children: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrCapacityExceeded) {
			zerolog.Ctx(ctx).Info().Stringer("clinic_id", parent.ClinicID).Str("date", parent.Date.String()).
				Int("employee_count", parent.EmployeeCount).Msg("booking rejected, clinic at capacity")
			return nil, err
		}
		zerolog.Ctx(ctx).Error().Err(err).Stringer("appointment_id", parent.ID).Msg("booking commit failed")
		return nil, apperr.Commit(err)
	}

	ev := zerolog.Ctx(ctx).Info().
		Stringer("appointment_id", parent.ID).
		Stringer("clinic_id", parent.ClinicID).
		Str("date", parent.Date.String()).
		Int("employee_count", parent.EmployeeCount)
	if eval.Warning != nil {
		ev = ev.Str("capacity_warning", eval.Warning.Level)
	}
	ev.Msg("booking committed")

	return &Result{
		Appointment:          &parent,
		EmployeeAppointments: children,
		AppointmentEmployees: refs,
		Capacity:             eval,
	}, nil
}

func buildChildren(parent *Appointment, b *Booking) ([]*EmployeeAppointment, []*AppointmentEmployee) {
	children := make([]*EmployeeAppointment, 0, len(b.Employees))
	refs := make([]*AppointmentEmployee, 0, len(b.Employees))
	for _, e := range b.Employees {
		children = append(children, &EmployeeAppointment{
			ID:                  uuid.New(),
			UserID:              parent.UserID,
			ParentAppointmentID: parent.ID,
			EmployeeID:          e.ID,
			EmployeeName:        e.Name,
			CompanyName:         b.CompanyName,
			ClinicName:          b.Clinic.Name,
			Date:                parent.Date,
			Status:              StatusPending,
		})
		refs = append(refs, &AppointmentEmployee{
			ID:            uuid.New(),
			UserID:        parent.UserID,
			AppointmentID: parent.ID,
			EmployeeID:    e.ID,
		})
	}
	return children, refs
}
