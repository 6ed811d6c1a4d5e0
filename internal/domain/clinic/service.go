package clinic

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/occhealth/occhealth/internal/platform/apperr"
	"github.com/occhealth/occhealth/internal/platform/auth"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Service manages the clinic catalogue. Any authenticated user may read it;
// writes to a clinic need its owner or one of its admins.
type Service struct {
	clinics   ClinicRepository
	doctors   DoctorRepository
	offerings OfferingRepository
}

func NewService(c ClinicRepository, d DoctorRepository, o OfferingRepository) *Service {
	return &Service{clinics: c, doctors: d, offerings: o}
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	if _, err := auth.MustUser(ctx); err != nil {
		return nil, err
	}
	c, err := s.clinics.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.FromNoRows(err, "clinic", id)
	}
	return c, nil
}

// manageable loads the clinic and checks the caller may change it.
func (s *Service) manageable(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.CanManage(auth.UserIDFromContext(ctx)) {
		return nil, apperr.Forbidden("clinic", id)
	}
	return c, nil
}

func validCapacity(max *int) error {
	if max != nil && *max < 0 {
		return apperr.Invalid("max_daily_appointments", "must not be negative")
	}
	return nil
}

// -- clinics --

func (s *Service) CreateClinic(ctx context.Context, c *Clinic) error {
	user, err := auth.MustUser(ctx)
	if err != nil {
		return err
	}
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return apperr.Invalid("name", "is required")
	}
	if err := validCapacity(c.MaxDailyAppointments); err != nil {
		return err
	}
	c.UserID = user
	c.Admins = uniqueStrings(c.Admins)
	c.Doctors = []uuid.UUID{}
	return s.clinics.Create(ctx, c)
}

func (s *Service) GetClinic(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	return s.load(ctx, id)
}

func (s *Service) ListClinics(ctx context.Context, limit, offset int) ([]*Clinic, int, error) {
	if _, err := auth.MustUser(ctx); err != nil {
		return nil, 0, err
	}
	return s.clinics.List(ctx, limit, offset)
}

// ClinicUpdate changes descriptive fields and the daily ceiling. Nil fields
// are left alone.
type ClinicUpdate struct {
	Name                 *string `json:"name,omitempty"`
	Address              *string `json:"address,omitempty"`
	Phone                *string `json:"phone,omitempty"`
	MaxDailyAppointments *int    `json:"max_daily_appointments,omitempty"`
}

func (s *Service) UpdateClinic(ctx context.Context, id uuid.UUID, upd ClinicUpdate) (*Clinic, error) {
	c, err := s.manageable(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, apperr.Invalid("name", "must not be blank")
		}
		c.Name = name
	}
	if err := validCapacity(upd.MaxDailyAppointments); err != nil {
		return nil, err
	}
	if upd.Address != nil {
		c.Address = upd.Address
	}
	if upd.Phone != nil {
		c.Phone = upd.Phone
	}
	if upd.MaxDailyAppointments != nil {
		c.MaxDailyAppointments = upd.MaxDailyAppointments
		zerolog.Ctx(ctx).Info().Stringer("clinic_id", id).Int("max_daily_appointments", *c.MaxDailyAppointments).
			Msg("clinic capacity changed")
	}
	if err := s.clinics.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// -- admins --

// AddAdmin grants userID write access to the clinic. Only the owner may
// change the admin set.
func (s *Service) AddAdmin(ctx context.Context, clinicID uuid.UUID, userID string) (*Clinic, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperr.Invalid("user_id", "is required")
	}
	c, err := s.owned(ctx, clinicID)
	if err != nil {
		return nil, err
	}
	if err := s.clinics.AddAdmin(ctx, clinicID, userID); err != nil {
		return nil, err
	}
	c.Admins = uniqueStrings(append(c.Admins, userID))
	return c, nil
}

func (s *Service) RemoveAdmin(ctx context.Context, clinicID uuid.UUID, userID string) error {
	if _, err := s.owned(ctx, clinicID); err != nil {
		return err
	}
	removed, err := s.clinics.RemoveAdmin(ctx, clinicID, userID)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.NotFound("clinic admin", userID)
	}
	return nil
}

func (s *Service) owned(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.CheckOwner(ctx, "clinic", id, c.UserID); err != nil {
		return nil, err
	}
	return c, nil
}

// -- doctors --

func (s *Service) CreateDoctor(ctx context.Context, d *Doctor) error {
	user, err := auth.MustUser(ctx)
	if err != nil {
		return err
	}
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.LastName = strings.TrimSpace(d.LastName)
	if d.FirstName == "" {
		return apperr.Invalid("first_name", "is required")
	}
	if d.LastName == "" {
		return apperr.Invalid("last_name", "is required")
	}
	d.UserID = user
	return s.doctors.Create(ctx, d)
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	if _, err := auth.MustUser(ctx); err != nil {
		return nil, err
	}
	d, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.FromNoRows(err, "doctor", id)
	}
	return d, nil
}

func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	if _, err := auth.MustUser(ctx); err != nil {
		return nil, 0, err
	}
	return s.doctors.List(ctx, limit, offset)
}

// AttachDoctor adds the doctor to the clinic's doctor set. Attaching twice is
// harmless.
func (s *Service) AttachDoctor(ctx context.Context, clinicID, doctorID uuid.UUID) (*Clinic, error) {
	if _, err := s.manageable(ctx, clinicID); err != nil {
		return nil, err
	}
	if _, err := s.GetDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	if err := s.clinics.AttachDoctor(ctx, clinicID, doctorID); err != nil {
		return nil, err
	}
	return s.load(ctx, clinicID)
}

func (s *Service) DetachDoctor(ctx context.Context, clinicID, doctorID uuid.UUID) error {
	if _, err := s.manageable(ctx, clinicID); err != nil {
		return err
	}
	removed, err := s.clinics.DetachDoctor(ctx, clinicID, doctorID)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.NotFound("clinic doctor", doctorID)
	}
	return nil
}

// -- services --

func (s *Service) CreateOffering(ctx context.Context, o *ServiceOffering) error {
	if _, err := s.manageable(ctx, o.ClinicID); err != nil {
		return err
	}
	o.Name = strings.TrimSpace(o.Name)
	if o.Name == "" {
		return apperr.Invalid("name", "is required")
	}
	if o.PriceCents < 0 {
		return apperr.Invalid("price_cents", "must not be negative")
	}
	o.Currency = strings.ToUpper(strings.TrimSpace(o.Currency))
	if o.Currency == "" {
		o.Currency = DefaultCurrency
	}
	if !currencyPattern.MatchString(o.Currency) {
		return apperr.Invalid("currency", "must be a three letter code")
	}
	return s.offerings.Create(ctx, o)
}

func (s *Service) ListOfferings(ctx context.Context, clinicID uuid.UUID) ([]*ServiceOffering, error) {
	if _, err := s.load(ctx, clinicID); err != nil {
		return nil, err
	}
	return s.offerings.ListByClinic(ctx, clinicID)
}

func uniqueStrings(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
