package booking

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Warning levels attached to a capacity evaluation.
const (
	WarningAtCapacity   = "at_capacity"
	WarningOverCapacity = "over_capacity"
)

// CapacityWarning flags a booking that fills or exceeds a clinic's daily
// ceiling. It is informational unless the strict policy is active.
type CapacityWarning struct {
	Level          string `json:"level"`
	Max            int    `json:"max"`
	Booked         int    `json:"booked"`
	Requested      int    `json:"requested"`
	RemainingAfter int    `json:"remaining_after"`
	Message        string `json:"message"`
}

// Capacity is the state of one clinic day. Max and Remaining are nil when the
// clinic has no ceiling and unknown capacity is treated as unlimited.
type Capacity struct {
	ClinicID  uuid.UUID `json:"clinic_id"`
	Date      Day       `json:"date"`
	Max       *int      `json:"max,omitempty"`
	Booked    int       `json:"booked"`
	Remaining *int      `json:"remaining,omitempty"`
}

// Evaluation is a capacity reading plus the effect of adding Requested more
// employees.
type Evaluation struct {
	Capacity
	Requested      int              `json:"requested"`
	RemainingAfter *int             `json:"remaining_after,omitempty"`
	Warning        *CapacityWarning `json:"warning,omitempty"`
}

// Over reports whether the request exceeds the ceiling.
func (e *Evaluation) Over() bool {
	return e.RemainingAfter != nil && *e.RemainingAfter < 0
}

// Evaluate adds n employees to the reading.
func (c Capacity) Evaluate(n int) *Evaluation {
	ev := &Evaluation{Capacity: c, Requested: n}
	if c.Max == nil {
		return ev
	}
	after := *c.Max - c.Booked - n
	ev.RemainingAfter = &after
	switch {
	case after < 0:
		ev.Warning = &CapacityWarning{Level: WarningOverCapacity}
	case after == 0:
		ev.Warning = &CapacityWarning{Level: WarningAtCapacity}
	default:
		return ev
	}
	ev.Warning.Max, ev.Warning.Booked, ev.Warning.Requested, ev.Warning.RemainingAfter = *c.Max, c.Booked, n, after
	ev.Warning.Message = fmt.Sprintf("clinic capacity for %s: max %d, booked %d, requested %d, remaining %d",
		c.Date, *c.Max, c.Booked, n, after)
	return ev
}

// CapacityChecker computes how many more employees a clinic can take on a day.
// It never blocks a write; callers decide what to do with the result.
type CapacityChecker struct {
	clinics       ClinicCatalog
	repo          Repository
	unknownIsZero bool
}

// NewCapacityChecker builds a checker. With unknownIsZero a clinic without a
// configured ceiling is treated as having none left.
func NewCapacityChecker(clinics ClinicCatalog, repo Repository, unknownIsZero bool) *CapacityChecker {
	return &CapacityChecker{clinics: clinics, repo: repo, unknownIsZero: unknownIsZero}
}

// RemainingCapacity returns max - booked for the clinic and date, where booked
// sums the head-count of appointments still holding capacity.
func (c *CapacityChecker) RemainingCapacity(ctx context.Context, clinicID uuid.UUID, date Day) (*Capacity, error) {
	clinic, err := c.clinics.Clinic(ctx, clinicID)
	if err != nil {
		return nil, err
	}
	return c.forClinic(ctx, clinic, date)
}

func (c *CapacityChecker) forClinic(ctx context.Context, clinic *ClinicInfo, date Day) (*Capacity, error) {
	booked, err := c.repo.BookedCount(ctx, clinic.ID, date)
	if err != nil {
		return nil, fmt.Errorf("booked count: %w", err)
	}
	capacity := &Capacity{ClinicID: clinic.ID, Date: date, Booked: booked}
	max := clinic.MaxDailyAppointments
	if max == nil && c.unknownIsZero {
		zero := 0
		max = &zero
	}
	if max != nil {
		m := *max
		remaining := m - booked
		capacity.Max, capacity.Remaining = &m, &remaining
	}
	return capacity, nil
}
