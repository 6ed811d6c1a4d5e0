package clinic

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type mockClinicRepo struct {
	store   map[uuid.UUID]*Clinic
	doctors map[uuid.UUID][]uuid.UUID
}

func newMockClinicRepo() *mockClinicRepo {
	return &mockClinicRepo{store: make(map[uuid.UUID]*Clinic), doctors: make(map[uuid.UUID][]uuid.UUID)}
}

func (m *mockClinicRepo) Create(_ context.Context, c *Clinic) error {
	c.ID = uuid.New()
	c.CreatedAt, c.UpdatedAt = time.Now(), time.Now()
	cp := *c
	cp.Admins = append([]string{}, c.Admins...)
	m.store[c.ID] = &cp
	return nil
}

func (m *mockClinicRepo) GetByID(_ context.Context, id uuid.UUID) (*Clinic, error) {
	c, ok := m.store[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *c
	cp.Admins = append([]string{}, c.Admins...)
	cp.Doctors = append([]uuid.UUID{}, m.doctors[id]...)
	return &cp, nil
}

func (m *mockClinicRepo) Update(_ context.Context, c *Clinic) error {
	stored, ok := m.store[c.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Name, stored.Address, stored.Phone, stored.MaxDailyAppointments = c.Name, c.Address, c.Phone, c.MaxDailyAppointments
	return nil
}

func (m *mockClinicRepo) List(_ context.Context, limit, offset int) ([]*Clinic, int, error) {
	var r []*Clinic
	for _, c := range m.store {
		r = append(r, c)
	}
	return r, len(r), nil
}

func (m *mockClinicRepo) AddAdmin(_ context.Context, clinicID uuid.UUID, userID string) error {
	c := m.store[clinicID]
	for _, a := range c.Admins {
		if a == userID {
			return nil
		}
	}
	c.Admins = append(c.Admins, userID)
	return nil
}

func (m *mockClinicRepo) RemoveAdmin(_ context.Context, clinicID uuid.UUID, userID string) (bool, error) {
	c := m.store[clinicID]
	for i, a := range c.Admins {
		if a == userID {
			c.Admins = append(c.Admins[:i], c.Admins[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *mockClinicRepo) AttachDoctor(_ context.Context, clinicID, doctorID uuid.UUID) error {
	for _, d := range m.doctors[clinicID] {
		if d == doctorID {
			return nil
		}
	}
	m.doctors[clinicID] = append(m.doctors[clinicID], doctorID)
	return nil
}

func (m *mockClinicRepo) DetachDoctor(_ context.Context, clinicID, doctorID uuid.UUID) (bool, error) {
	ds := m.doctors[clinicID]
	for i, d := range ds {
		if d == doctorID {
			m.doctors[clinicID] = append(ds[:i], ds[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type mockDoctorRepo struct {
	store map[uuid.UUID]*Doctor
}

func (m *mockDoctorRepo) Create(_ context.Context, d *Doctor) error {
	d.ID = uuid.New()
	m.store[d.ID] = d
	return nil
}

func (m *mockDoctorRepo) GetByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	d, ok := m.store[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return d, nil
}

func (m *mockDoctorRepo) List(_ context.Context, limit, offset int) ([]*Doctor, int, error) {
	var r []*Doctor
	for _, d := range m.store {
		r = append(r, d)
	}
	return r, len(r), nil
}

type mockOfferingRepo struct {
	store map[uuid.UUID]*ServiceOffering
}

func (m *mockOfferingRepo) Create(_ context.Context, s *ServiceOffering) error {
	s.ID = uuid.New()
	m.store[s.ID] = s
	return nil
}

func (m *mockOfferingRepo) ListByClinic(_ context.Context, clinicID uuid.UUID) ([]*ServiceOffering, error) {
	var r []*ServiceOffering
	for _, s := range m.store {
		if s.ClinicID == clinicID {
			r = append(r, s)
		}
	}
	return r, nil
}

func newTestService() (*Service, *mockClinicRepo) {
	clinics := newMockClinicRepo()
	svc := NewService(clinics,
		&mockDoctorRepo{store: make(map[uuid.UUID]*Doctor)},
		&mockOfferingRepo{store: make(map[uuid.UUID]*ServiceOffering)})
	return svc, clinics
}
