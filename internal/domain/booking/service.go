package booking

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/occhealth/occhealth/internal/platform/apperr"
	"github.com/occhealth/occhealth/internal/platform/auth"
	"github.com/occhealth/occhealth/internal/platform/db"
)

// Policy selects how capacity is enforced.
type Policy struct {
	// Strict rejects bookings that exceed the ceiling instead of warning.
	Strict bool
	// UnknownIsZero treats a clinic without a ceiling as full.
	UnknownIsZero bool
}

type Service struct {
	tx        db.Transactor
	repo      Repository
	clinics   ClinicCatalog
	companies CompanyDirectory
	capacity  *CapacityChecker
	agg       *Aggregator
	strict    bool
}

func NewService(tx db.Transactor, repo Repository, m Membership, e EmployeeDirectory,
	co CompanyDirectory, cl ClinicCatalog, policy Policy) *Service {
	capacity := NewCapacityChecker(cl, repo, policy.UnknownIsZero)
	writer := NewWriter(tx, repo, capacity, policy.Strict)
	return &Service{
		tx:        tx,
		repo:      repo,
		clinics:   cl,
		companies: co,
		capacity:  capacity,
		agg:       NewAggregator(m, e, co, cl, capacity, writer),
		strict:    policy.Strict,
	}
}

func (s *Service) NewDraft() *Draft { return s.agg.NewDraft() }

// Preview is a booking selection expanded and checked against capacity
// without writing anything.
type Preview struct {
	EmployeeIDs   []uuid.UUID `json:"employee_ids"`
	EmployeeCount int         `json:"employee_count"`
	Capacity      *Evaluation `json:"capacity"`
}

func (s *Service) Preview(ctx context.Context, req *Request) (*Preview, error) {
	if _, err := auth.MustUser(ctx); err != nil {
		return nil, err
	}
	d := s.agg.NewDraft()
	if err := d.Apply(ctx, req); err != nil {
		return nil, err
	}
	ev, err := d.CheckCapacity(ctx)
	if err != nil {
		return nil, err
	}
	ids := d.EmployeeIDs()
	return &Preview{EmployeeIDs: ids, EmployeeCount: len(ids), Capacity: ev}, nil
}

// Book runs a request through every stage up to Committed.
func (s *Service) Book(ctx context.Context, req *Request) (*Result, error) {
	return s.book(ctx, s.agg.NewDraft(), req)
}

func (s *Service) book(ctx context.Context, d *Draft, req *Request) (*Result, error) {
	if err := d.Apply(ctx, req); err != nil {
		return nil, err
	}
	if _, err := d.CheckCapacity(ctx); err != nil {
		return nil, err
	}
	if _, err := d.Ready(ctx); err != nil {
		return nil, err
	}
	return d.Commit(ctx)
}

// access loads an appointment the caller booked or whose clinic they manage.
func (s *Service) access(ctx context.Context, id uuid.UUID) (*Appointment, *ClinicInfo, error) {
	return s.accessWith(ctx, id, s.repo.GetAppointment)
}

// accessLocked is access reading the appointment under a row lock. Status
// changes decide on this copy, so a concurrent change that committed while
// they waited is seen instead of overwritten.
func (s *Service) accessLocked(ctx context.Context, id uuid.UUID) (*Appointment, *ClinicInfo, error) {
	return s.accessWith(ctx, id, s.repo.GetAppointmentForUpdate)
}

func (s *Service) accessWith(ctx context.Context, id uuid.UUID,
	load func(context.Context, uuid.UUID) (*Appointment, error)) (*Appointment, *ClinicInfo, error) {
	user, err := auth.MustUser(ctx)
	if err != nil {
		return nil, nil, err
	}
	a, err := load(ctx, id)
	if err != nil {
		return nil, nil, apperr.FromNoRows(err, "appointment", id)
	}
	clinic, err := s.clinics.Clinic(ctx, a.ClinicID)
	if err != nil {
		return nil, nil, err
	}
	if a.UserID != user && !clinic.CanManage(user) {
		return nil, nil, apperr.Forbidden("appointment", id)
	}
	return a, clinic, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, _, err := s.access(ctx, id)
	return a, err
}

func (s *Service) ListChildren(ctx context.Context, id uuid.UUID) ([]*EmployeeAppointment, error) {
	if _, _, err := s.access(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListChildren(ctx, id)
}

// LinkedEmployees lists the employees of an appointment from the
// cross-reference records.
func (s *Service) LinkedEmployees(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	if _, _, err := s.access(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListLinkedEmployees(ctx, id)
}

func (s *Service) ListByCompany(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	if _, err := s.companies.Company(ctx, companyID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListByCompany(ctx, companyID, limit, offset)
}

// ListByClinicDay is the clinic's schedule for one date. Only the clinic's
// owner and admins see it.
func (s *Service) ListByClinicDay(ctx context.Context, clinicID uuid.UUID, date Day) ([]*Appointment, error) {
	if err := s.manage(ctx, clinicID); err != nil {
		return nil, err
	}
	return s.repo.ListByClinicDay(ctx, clinicID, date)
}

func (s *Service) manage(ctx context.Context, clinicID uuid.UUID) error {
	user, err := auth.MustUser(ctx)
	if err != nil {
		return err
	}
	clinic, err := s.clinics.Clinic(ctx, clinicID)
	if err != nil {
		return err
	}
	if !clinic.CanManage(user) {
		return apperr.Forbidden("clinic", clinicID)
	}
	return nil
}

// CapacityReport returns max, booked and remaining for one clinic day.
func (s *Service) CapacityReport(ctx context.Context, clinicID uuid.UUID, date Day) (*Capacity, error) {
	if _, err := auth.MustUser(ctx); err != nil {
		return nil, err
	}
	return s.capacity.RemainingCapacity(ctx, clinicID, date)
}

// lockDays takes the clinic day locks in date order. Callers that also lock an
// appointment row take that first.
func (s *Service) lockDays(ctx context.Context, clinicID uuid.UUID, days ...Day) error {
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j].Time) })
	for i, d := range days {
		if i > 0 && d.Equal(days[i-1].Time) {
			continue
		}
		if err := s.repo.LockClinicDay(ctx, clinicID, d); err != nil {
			return err
		}
	}
	return nil
}

// UpdateStatus moves an appointment through review. Only clinic staff may do
// this. Declining releases the appointment's head-count.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*Appointment, error) {
	if !validStatuses[status] {
		return nil, apperr.Invalid("status", "unknown status %q", status)
	}
	var out *Appointment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		a, clinic, err := s.accessLocked(ctx, id)
		if err != nil {
			return err
		}
		if !clinic.CanManage(auth.UserIDFromContext(ctx)) {
			return apperr.Forbidden("appointment", id)
		}
		if a.ScheduleStatus == ScheduleCancelled {
			return apperr.Invalid("status", "appointment is cancelled")
		}
		if !canTransition(a.Status, status) {
			return apperr.Invalid("status", "cannot move from %q to %q", a.Status, status)
		}
		if err := s.lockDays(ctx, a.ClinicID, a.Date); err != nil {
			return err
		}
		released := a.HoldsCapacity() && status == StatusDeclined
		a.Status = status
		if err := s.repo.UpdateAppointment(ctx, a); err != nil {
			return err
		}
		if released {
			zerolog.Ctx(ctx).Info().Stringer("appointment_id", a.ID).Int("employee_count", a.EmployeeCount).
				Msg("appointment declined, capacity released")
		}
		out = a
		return nil
	})
	return out, err
}

// ScheduleUpdate changes the scheduling status. Rescheduling needs a date.
type ScheduleUpdate struct {
	Status string `json:"status"`
	Date   *Day   `json:"date,omitempty"`
}

// ScheduleResult is an appointment after a scheduling change together with
// the capacity of its new day when it moved.
type ScheduleResult struct {
	Appointment *Appointment `json:"appointment"`
	Capacity    *Evaluation  `json:"capacity,omitempty"`
}

// UpdateSchedule cancels or reschedules an appointment. Cancelling is final
// and releases capacity. Rescheduling moves the parent and every child to the
// new date and is checked against that day's capacity under its lock.
func (s *Service) UpdateSchedule(ctx context.Context, id uuid.UUID, upd ScheduleUpdate) (*ScheduleResult, error) {
	switch upd.Status {
	case ScheduleScheduled, ScheduleCancelled:
	case ScheduleRescheduled:
		if upd.Date == nil || upd.Date.IsZero() {
			return nil, apperr.User(apperr.CodeMissingDate, "date is required to reschedule")
		}
	default:
		return nil, apperr.Invalid("status", "unknown schedule status %q", upd.Status)
	}

	var out *ScheduleResult
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		a, clinic, err := s.accessLocked(ctx, id)
		if err != nil {
			return err
		}
		if a.ScheduleStatus == ScheduleCancelled {
			return apperr.Invalid("status", "appointment is cancelled")
		}
		res := &ScheduleResult{Appointment: a}

		if upd.Status != ScheduleRescheduled || upd.Date.Equal(a.Date.Time) {
			if err := s.lockDays(ctx, a.ClinicID, a.Date); err != nil {
				return err
			}
		} else {
			if err := s.lockDays(ctx, a.ClinicID, a.Date, *upd.Date); err != nil {
				return err
			}
			if a.HoldsCapacity() {
				c, err := s.capacity.forClinic(ctx, clinic, *upd.Date)
				if err != nil {
					return err
				}
				res.Capacity = c.Evaluate(a.EmployeeCount)
				if s.strict && res.Capacity.Over() {
					return apperr.ErrCapacityExceeded
				}
			}
			a.Date = *upd.Date
			if err := s.repo.MoveChildren(ctx, a.ID, a.Date); err != nil {
				return err
			}
		}

		a.ScheduleStatus = upd.Status
		if err := s.repo.UpdateAppointment(ctx, a); err != nil {
			return err
		}
		zerolog.Ctx(ctx).Info().Stringer("appointment_id", a.ID).Str("schedule_status", a.ScheduleStatus).
			Str("date", a.Date.String()).Msg("appointment schedule updated")
		out = res
		return nil
	})
	return out, err
}

// ChildUpdate changes one employee's appointment. Nil fields are left alone.
type ChildUpdate struct {
	Status *string `json:"status,omitempty"`
	Notes  *string `json:"notes,omitempty"`
}

func (s *Service) UpdateChild(ctx context.Context, id uuid.UUID, upd ChildUpdate) (*EmployeeAppointment, error) {
	if upd.Status != nil && !validStatuses[*upd.Status] {
		return nil, apperr.Invalid("status", "unknown status %q", *upd.Status)
	}
	child, err := s.repo.GetChild(ctx, id)
	if err != nil {
		return nil, apperr.FromNoRows(err, "employee appointment", id)
	}
	if _, _, err := s.access(ctx, child.ParentAppointmentID); err != nil {
		return nil, err
	}
	if upd.Status != nil {
		child.Status = *upd.Status
	}
	if upd.Notes != nil {
		child.Notes = upd.Notes
	}
	if err := s.repo.UpdateChild(ctx, child); err != nil {
		return nil, err
	}
	return child, nil
}
