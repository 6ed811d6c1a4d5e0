package booking

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const dayLayout = "2006-01-02"

// Day is a calendar date without time of day, always at UTC midnight.
type Day struct {
	time.Time
}

func NewDay(year int, month time.Month, day int) Day {
	return Day{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, strings.TrimSpace(s))
	if err != nil {
		return Day{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return Day{t}, nil
}

// DayOf truncates t to its calendar date in t's location.
func DayOf(t time.Time) Day {
	return NewDay(t.Year(), t.Month(), t.Day())
}

func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dayLayout)
}

func (d Day) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Day) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Day{}
		return nil
	}
	p, err := ParseDay(s)
	if err != nil {
		return err
	}
	*d = p
	return nil
}

// Parent appointment statuses.
const (
	StatusPending    = "Pending"
	StatusApproved   = "Approved"
	StatusInProgress = "In Progress"
	StatusComplete   = "Complete"
	StatusDeclined   = "Declined"
)

// Scheduling statuses, tracked separately from the review status.
const (
	ScheduleScheduled   = "scheduled"
	ScheduleRescheduled = "rescheduled"
	ScheduleCancelled   = "cancelled"
)

var validStatuses = map[string]bool{
	StatusPending: true, StatusApproved: true, StatusInProgress: true, StatusComplete: true, StatusDeclined: true,
}

var statusTransitions = map[string][]string{
	StatusPending:    {StatusApproved, StatusDeclined},
	StatusApproved:   {StatusInProgress, StatusDeclined},
	StatusInProgress: {StatusComplete},
}

func canTransition(from, to string) bool {
	for _, s := range statusTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Appointment is the parent record of one booking and maps to the
// appointments table.
type Appointment struct {
	ID                  uuid.UUID `db:"id" json:"id"`
	UserID              string    `db:"user_id" json:"user_id"`
	CompanyID           uuid.UUID `db:"company_id" json:"company_id"`
	BillingCompanyID    uuid.UUID `db:"billing_company_id" json:"billing_company_id"`
	ClinicID            uuid.UUID `db:"clinic_id" json:"clinic_id"`
	Date                Day       `db:"date" json:"date"`
	EmployeeCount       int       `db:"employee_count" json:"employee_count"`
	Status              string    `db:"status" json:"status"`
	ScheduleStatus      string    `db:"schedule_status" json:"schedule_status"`
	PurchaseOrderNumber *string   `db:"purchase_order_number" json:"purchase_order_number,omitempty"`
	Notes               *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

func (a *Appointment) OwnerID() string { return a.UserID }

// HoldsCapacity reports whether the appointment counts against its clinic's
// daily ceiling.
func (a *Appointment) HoldsCapacity() bool {
	return a.Status != StatusDeclined && a.ScheduleStatus != ScheduleCancelled
}

// EmployeeAppointment is one employee's share of a parent appointment and maps
// to the "employeeAppointments" table. Names are copied at booking time so the
// record outlives renames and deletions.
type EmployeeAppointment struct {
	ID                  uuid.UUID `db:"id" json:"id"`
	UserID              string    `db:"user_id" json:"user_id"`
	ParentAppointmentID uuid.UUID `db:"parent_appointment_id" json:"parent_appointment_id"`
	EmployeeID          uuid.UUID `db:"employee_id" json:"employee_id"`
	EmployeeName        string    `db:"employee_name" json:"employee_name"`
	CompanyName         string    `db:"company_name" json:"company_name"`
	ClinicName          string    `db:"clinic_name" json:"clinic_name"`
	Date                Day       `db:"date" json:"date"`
	Status              string    `db:"status" json:"status"`
	Notes               *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// AppointmentEmployee maps to the "appointmentEmployees" cross-reference.
type AppointmentEmployee struct {
	ID            uuid.UUID `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	AppointmentID uuid.UUID `db:"appointment_id" json:"appointment_id"`
	EmployeeID    uuid.UUID `db:"employee_id" json:"employee_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
