package booking

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/occhealth/occhealth/internal/platform/apperr"
	"github.com/occhealth/occhealth/internal/platform/auth"
)

type dayKey struct {
	clinic uuid.UUID
	date   string
}

// memStore is an in-memory Repository. memTx restores a snapshot when the
// unit of work fails, so tests can observe rollback.
type memStore struct {
	appts    map[uuid.UUID]*Appointment
	children map[uuid.UUID]*EmployeeAppointment
	refs     []*AppointmentEmployee
	locks    map[dayKey]int

	// failChildAt makes CreateChildren fail on the n-th insert (1-based).
	failChildAt int
	failParent  bool

	// onLockAppointment runs when an appointment is read for update, standing
	// in for a transaction that committed while the lock was awaited.
	onLockAppointment func(a *Appointment)
	rowLocks          int
}

var errInjected = errors.New("injected store failure")

func newMemStore() *memStore {
	return &memStore{
		appts:    make(map[uuid.UUID]*Appointment),
		children: make(map[uuid.UUID]*EmployeeAppointment),
		locks:    make(map[dayKey]int),
	}
}

type snapshot struct {
	appts    map[uuid.UUID]Appointment
	children map[uuid.UUID]EmployeeAppointment
	refs     []AppointmentEmployee
}

func (m *memStore) snapshot() snapshot {
	s := snapshot{appts: map[uuid.UUID]Appointment{}, children: map[uuid.UUID]EmployeeAppointment{}}
	for k, v := range m.appts {
		s.appts[k] = *v
	}
	for k, v := range m.children {
		s.children[k] = *v
	}
	for _, r := range m.refs {
		s.refs = append(s.refs, *r)
	}
	return s
}

func (m *memStore) restore(s snapshot) {
	m.appts = make(map[uuid.UUID]*Appointment)
	for k, v := range s.appts {
		v := v
		m.appts[k] = &v
	}
	m.children = make(map[uuid.UUID]*EmployeeAppointment)
	for k, v := range s.children {
		v := v
		m.children[k] = &v
	}
	m.refs = nil
	for _, r := range s.refs {
		r := r
		m.refs = append(m.refs, &r)
	}
}

type memTx struct{ store *memStore }

func (t memTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := t.store.snapshot()
	if err := fn(ctx); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

func (m *memStore) LockClinicDay(_ context.Context, clinicID uuid.UUID, date Day) error {
	m.locks[dayKey{clinicID, date.String()}]++
	return nil
}

func (m *memStore) BookedCount(_ context.Context, clinicID uuid.UUID, date Day) (int, error) {
	n := 0
	for _, a := range m.appts {
		if a.ClinicID == clinicID && a.Date.Equal(date.Time) && a.HoldsCapacity() {
			n += a.EmployeeCount
		}
	}
	return n, nil
}

func (m *memStore) CreateAppointment(_ context.Context, a *Appointment) error {
	if m.failParent {
		return errInjected
	}
	a.CreatedAt, a.UpdatedAt = time.Now(), time.Now()
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *memStore) CreateChildren(_ context.Context, children []*EmployeeAppointment, refs []*AppointmentEmployee) error {
	n := 0
	for _, c := range children {
		n++
		if n == m.failChildAt {
			return errInjected
		}
		cp := *c
		m.children[c.ID] = &cp
	}
	for _, r := range refs {
		n++
		if n == m.failChildAt {
			return errInjected
		}
		cp := *r
		m.refs = append(m.refs, &cp)
	}
	return nil
}

func (m *memStore) GetAppointment(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	m.rowLocks++
	if a, ok := m.appts[id]; ok && m.onLockAppointment != nil {
		m.onLockAppointment(a)
	}
	return m.GetAppointment(ctx, id)
}

func (m *memStore) UpdateAppointment(_ context.Context, a *Appointment) error {
	if _, ok := m.appts[a.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *memStore) ListByCompany(_ context.Context, companyID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var r []*Appointment
	for _, a := range m.appts {
		if a.CompanyID == companyID {
			r = append(r, a)
		}
	}
	return r, len(r), nil
}

func (m *memStore) ListByClinicDay(_ context.Context, clinicID uuid.UUID, date Day) ([]*Appointment, error) {
	var r []*Appointment
	for _, a := range m.appts {
		if a.ClinicID == clinicID && a.Date.Equal(date.Time) {
			r = append(r, a)
		}
	}
	return r, nil
}

func (m *memStore) ListChildren(_ context.Context, appointmentID uuid.UUID) ([]*EmployeeAppointment, error) {
	var r []*EmployeeAppointment
	for _, c := range m.children {
		if c.ParentAppointmentID == appointmentID {
			r = append(r, c)
		}
	}
	sort.Slice(r, func(i, j int) bool { return r[i].EmployeeName < r[j].EmployeeName })
	return r, nil
}

func (m *memStore) ListLinkedEmployees(_ context.Context, appointmentID uuid.UUID) ([]uuid.UUID, error) {
	var r []uuid.UUID
	for _, ref := range m.refs {
		if ref.AppointmentID == appointmentID {
			r = append(r, ref.EmployeeID)
		}
	}
	return r, nil
}

func (m *memStore) MoveChildren(_ context.Context, appointmentID uuid.UUID, date Day) error {
	for _, c := range m.children {
		if c.ParentAppointmentID == appointmentID {
			c.Date = date
		}
	}
	return nil
}

func (m *memStore) GetChild(_ context.Context, id uuid.UUID) (*EmployeeAppointment, error) {
	c, ok := m.children[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) UpdateChild(_ context.Context, c *EmployeeAppointment) error {
	cp := *c
	m.children[c.ID] = &cp
	return nil
}

// -- collaborators --

type fakeWorkforce struct {
	owner       string
	companies   map[uuid.UUID]*CompanyInfo
	employees   map[uuid.UUID]EmployeeInfo
	departments map[uuid.UUID][]uuid.UUID
	sites       map[uuid.UUID][]uuid.UUID
	unitCompany map[uuid.UUID]uuid.UUID
	expansions  int
}

func newFakeWorkforce(owner string) *fakeWorkforce {
	return &fakeWorkforce{
		owner:       owner,
		companies:   make(map[uuid.UUID]*CompanyInfo),
		employees:   make(map[uuid.UUID]EmployeeInfo),
		departments: make(map[uuid.UUID][]uuid.UUID),
		sites:       make(map[uuid.UUID][]uuid.UUID),
		unitCompany: make(map[uuid.UUID]uuid.UUID),
	}
}

func (f *fakeWorkforce) checkOwner(ctx context.Context, kind string, id uuid.UUID) error {
	return auth.CheckOwner(ctx, kind, id, f.owner)
}

func (f *fakeWorkforce) company(name string) uuid.UUID {
	id := uuid.New()
	f.companies[id] = &CompanyInfo{ID: id, Name: name}
	return id
}

func (f *fakeWorkforce) employee(companyID *uuid.UUID, name string) uuid.UUID {
	id := uuid.New()
	f.employees[id] = EmployeeInfo{ID: id, CompanyID: companyID, Name: name}
	return id
}

func (f *fakeWorkforce) department(companyID uuid.UUID, members ...uuid.UUID) uuid.UUID {
	id := uuid.New()
	f.departments[id] = members
	f.unitCompany[id] = companyID
	return id
}

func (f *fakeWorkforce) site(companyID uuid.UUID, members ...uuid.UUID) uuid.UUID {
	id := uuid.New()
	f.sites[id] = members
	f.unitCompany[id] = companyID
	return id
}

func (f *fakeWorkforce) expand(ctx context.Context, kind string, units map[uuid.UUID][]uuid.UUID, companyID, id uuid.UUID) ([]uuid.UUID, error) {
	f.expansions++
	members, ok := units[id]
	if !ok || f.unitCompany[id] != companyID {
		return nil, apperr.NotFound(kind, id)
	}
	if err := f.checkOwner(ctx, kind, id); err != nil {
		return nil, err
	}
	return append([]uuid.UUID{}, members...), nil
}

func (f *fakeWorkforce) ExpandDepartmentInCompany(ctx context.Context, companyID, departmentID uuid.UUID) ([]uuid.UUID, error) {
	return f.expand(ctx, "department", f.departments, companyID, departmentID)
}

func (f *fakeWorkforce) ExpandSiteInCompany(ctx context.Context, companyID, siteID uuid.UUID) ([]uuid.UUID, error) {
	return f.expand(ctx, "site", f.sites, companyID, siteID)
}

func (f *fakeWorkforce) Employees(ctx context.Context, ids []uuid.UUID) ([]EmployeeInfo, error) {
	out := make([]EmployeeInfo, 0, len(ids))
	for _, id := range ids {
		e, ok := f.employees[id]
		if !ok {
			return nil, apperr.NotFound("employee", id)
		}
		if err := f.checkOwner(ctx, "employee", id); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeWorkforce) Company(ctx context.Context, id uuid.UUID) (*CompanyInfo, error) {
	c, ok := f.companies[id]
	if !ok {
		return nil, apperr.NotFound("company", id)
	}
	if err := f.checkOwner(ctx, "company", id); err != nil {
		return nil, err
	}
	return c, nil
}

type fakeClinics map[uuid.UUID]*ClinicInfo

func (f fakeClinics) Clinic(ctx context.Context, id uuid.UUID) (*ClinicInfo, error) {
	if _, err := auth.MustUser(ctx); err != nil {
		return nil, err
	}
	c, ok := f[id]
	if !ok {
		return nil, apperr.NotFound("clinic", id)
	}
	return c, nil
}

func (f fakeClinics) add(name string, max *int, owner string, admins ...string) uuid.UUID {
	id := uuid.New()
	f[id] = &ClinicInfo{ID: id, Name: name, MaxDailyAppointments: max, OwnerID: owner, Admins: admins}
	return id
}

// -- fixture --

const (
	companyUser = "hr-manager"
	clinicUser  = "clinic-owner"
)

type env struct {
	svc     *Service
	store   *memStore
	wf      *fakeWorkforce
	clinics fakeClinics
	ctx     context.Context
}

func newEnv(policy Policy) *env {
	store := newMemStore()
	wf := newFakeWorkforce(companyUser)
	clinics := fakeClinics{}
	svc := NewService(memTx{store}, store, wf, wf, wf, clinics, policy)
	return &env{
		svc:     svc,
		store:   store,
		wf:      wf,
		clinics: clinics,
		ctx:     auth.WithUser(context.Background(), companyUser, auth.RoleCompanyAdmin),
	}
}

func clinicCtx(user string) context.Context {
	return auth.WithUser(context.Background(), user, auth.RoleClinicAdmin)
}

func intPtr(n int) *int { return &n }

func (e *env) countRecords() (parents, children, refs int) {
	return len(e.store.appts), len(e.store.children), len(e.store.refs)
}
