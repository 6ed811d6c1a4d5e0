package clinic

import (
	"time"

	"github.com/google/uuid"
)

// Clinic maps to the clinics table. MaxDailyAppointments is the daily
// head-count ceiling; nil means no ceiling was configured.
type Clinic struct {
	ID                   uuid.UUID   `db:"id" json:"id"`
	UserID               string      `db:"user_id" json:"user_id"`
	Name                 string      `db:"name" json:"name"`
	Address              *string     `db:"address" json:"address,omitempty"`
	Phone                *string     `db:"phone" json:"phone,omitempty"`
	MaxDailyAppointments *int        `db:"max_daily_appointments" json:"max_daily_appointments,omitempty"`
	Doctors              []uuid.UUID `json:"doctors"`
	Admins               []string    `db:"admins" json:"admins"`
	CreatedAt            time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time   `db:"updated_at" json:"updated_at"`
}

func (c *Clinic) OwnerID() string { return c.UserID }

// CanManage reports whether user owns the clinic or is one of its admins.
func (c *Clinic) CanManage(user string) bool {
	if user == "" {
		return false
	}
	if c.UserID == user {
		return true
	}
	for _, a := range c.Admins {
		if a == user {
			return true
		}
	}
	return false
}

// Doctor maps to the doctors table.
type Doctor struct {
	ID            uuid.UUID `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	FirstName     string    `db:"first_name" json:"first_name"`
	LastName      string    `db:"last_name" json:"last_name"`
	Specialty     *string   `db:"specialty" json:"specialty,omitempty"`
	LicenseNumber *string   `db:"license_number" json:"license_number,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// ServiceOffering is a priced service a clinic provides. Prices are stored in
// minor units; nothing here charges them.
type ServiceOffering struct {
	ID          uuid.UUID `db:"id" json:"id"`
	ClinicID    uuid.UUID `db:"clinic_id" json:"clinic_id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	PriceCents  int64     `db:"price_cents" json:"price_cents"`
	Currency    string    `db:"currency" json:"currency"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

const DefaultCurrency = "USD"
