package clinic

import (
	"context"

	"github.com/google/uuid"
)

type ClinicRepository interface {
	Create(ctx context.Context, c *Clinic) error
	// GetByID loads the clinic with its doctor ids and admins, or pgx.ErrNoRows.
	GetByID(ctx context.Context, id uuid.UUID) (*Clinic, error)
	Update(ctx context.Context, c *Clinic) error
	List(ctx context.Context, limit, offset int) ([]*Clinic, int, error)

	AddAdmin(ctx context.Context, clinicID uuid.UUID, userID string) error
	// RemoveAdmin reports whether userID was an admin.
	RemoveAdmin(ctx context.Context, clinicID uuid.UUID, userID string) (bool, error)
	AttachDoctor(ctx context.Context, clinicID, doctorID uuid.UUID) error
	DetachDoctor(ctx context.Context, clinicID, doctorID uuid.UUID) (bool, error)
}

type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	List(ctx context.Context, limit, offset int) ([]*Doctor, int, error)
}

type OfferingRepository interface {
	Create(ctx context.Context, s *ServiceOffering) error
	ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]*ServiceOffering, error)
}
