package booking

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/occhealth/occhealth/internal/platform/apperr"
	"github.com/occhealth/occhealth/internal/platform/auth"
)

// State is the stage a booking draft has reached.
type State int

const (
	CollectingSelection State = iota
	Expanding
	CapacityChecked
	Ready
	Committed
)

var stateNames = [...]string{"collecting_selection", "expanding", "capacity_checked", "ready", "committed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

var (
	ErrNotReady         = errors.New("booking draft is not ready")
	ErrAlreadyCommitted = errors.New("booking draft already committed")
)

// Request is a raw booking selection as submitted by a client.
type Request struct {
	CompanyID           *uuid.UUID  `json:"company_id"`
	BillingCompanyID    *uuid.UUID  `json:"billing_company_id,omitempty"`
	ClinicID            *uuid.UUID  `json:"clinic_id"`
	Date                *Day        `json:"date"`
	EmployeeIDs         []uuid.UUID `json:"employee_ids,omitempty"`
	DepartmentIDs       []uuid.UUID `json:"department_ids,omitempty"`
	SiteIDs             []uuid.UUID `json:"site_ids,omitempty"`
	PurchaseOrderNumber *string     `json:"purchase_order_number,omitempty"`
	Notes               *string     `json:"notes,omitempty"`
}

// Booking is a draft that passed validation: the parent record with its id
// assigned and everything the writer needs to build the children.
type Booking struct {
	Appointment *Appointment
	Employees   []EmployeeInfo
	CompanyName string
	Clinic      *ClinicInfo
	Capacity    *Evaluation
}

// Aggregator starts booking drafts over a shared set of collaborators.
type Aggregator struct {
	membership Membership
	employees  EmployeeDirectory
	companies  CompanyDirectory
	clinics    ClinicCatalog
	capacity   *CapacityChecker
	writer     *Writer
}

func NewAggregator(m Membership, e EmployeeDirectory, co CompanyDirectory, cl ClinicCatalog,
	capacity *CapacityChecker, writer *Writer) *Aggregator {
	return &Aggregator{membership: m, employees: e, companies: co, clinics: cl, capacity: capacity, writer: writer}
}

func (a *Aggregator) NewDraft() *Draft {
	return &Draft{
		agg:         a,
		seen:        make(map[uuid.UUID]struct{}),
		departments: make(map[uuid.UUID]bool),
		sites:       make(map[uuid.UUID]bool),
		trail:       []State{CollectingSelection},
	}
}

// Draft builds one appointment. The selection is a set: picking the same
// employee, department or site again never duplicates anyone. Any change to a
// draft that was checked or made ready sends it back to CollectingSelection.
// A draft is not safe for concurrent use.
type Draft struct {
	agg   *Aggregator
	state State
	trail []State

	companyID        *uuid.UUID
	billingCompanyID *uuid.UUID
	clinicID         *uuid.UUID
	date             *Day
	purchaseOrder    *string
	notes            *string

	selected    []uuid.UUID
	seen        map[uuid.UUID]struct{}
	departments map[uuid.UUID]bool
	sites       map[uuid.UUID]bool

	evaluation *Evaluation
	booking    *Booking
	result     *Result
}

func (d *Draft) State() State { return d.state }

// Trail lists the states the draft has entered, oldest first. Staying in a
// state is not a new entry.
func (d *Draft) Trail() []State { return append([]State(nil), d.trail...) }

func (d *Draft) enter(s State) {
	d.state = s
	if d.trail[len(d.trail)-1] != s {
		d.trail = append(d.trail, s)
	}
}

// EmployeeIDs returns the selection in the order employees were first added.
func (d *Draft) EmployeeIDs() []uuid.UUID {
	return append([]uuid.UUID{}, d.selected...)
}

// Evaluation is the latest capacity reading, if any.
func (d *Draft) Evaluation() *Evaluation { return d.evaluation }

func (d *Draft) reopen() error {
	if d.state == Committed {
		return ErrAlreadyCommitted
	}
	d.enter(CollectingSelection)
	d.evaluation = nil
	d.booking = nil
	return nil
}

func (d *Draft) SetCompany(id uuid.UUID) error {
	if err := d.reopen(); err != nil {
		return err
	}
	d.companyID = &id
	return nil
}

func (d *Draft) SetBillingCompany(id uuid.UUID) error {
	if err := d.reopen(); err != nil {
		return err
	}
	d.billingCompanyID = &id
	return nil
}

func (d *Draft) SetClinic(id uuid.UUID) error {
	if err := d.reopen(); err != nil {
		return err
	}
	d.clinicID = &id
	return nil
}

func (d *Draft) SetDate(day Day) error {
	if err := d.reopen(); err != nil {
		return err
	}
	d.date = &day
	return nil
}

func (d *Draft) SetPurchaseOrder(po *string) error {
	if err := d.reopen(); err != nil {
		return err
	}
	d.purchaseOrder = po
	return nil
}

func (d *Draft) SetNotes(notes *string) error {
	if err := d.reopen(); err != nil {
		return err
	}
	d.notes = notes
	return nil
}

func (d *Draft) add(ids []uuid.UUID) {
	for _, id := range ids {
		if _, ok := d.seen[id]; ok {
			continue
		}
		d.seen[id] = struct{}{}
		d.selected = append(d.selected, id)
	}
}

// PickEmployees adds individually chosen employees. Their company is checked
// when the draft is made ready.
func (d *Draft) PickEmployees(ids ...uuid.UUID) error {
	if err := d.reopen(); err != nil {
		return err
	}
	d.add(ids)
	return nil
}

// PickDepartment expands the department through the membership index and
// merges its employees into the selection.
func (d *Draft) PickDepartment(ctx context.Context, departmentID uuid.UUID) error {
	return d.expand(ctx, departmentID, d.departments, d.agg.membership.ExpandDepartmentInCompany)
}

// PickSite expands the site and merges its employees into the selection.
func (d *Draft) PickSite(ctx context.Context, siteID uuid.UUID) error {
	return d.expand(ctx, siteID, d.sites, d.agg.membership.ExpandSiteInCompany)
}

func (d *Draft) expand(ctx context.Context, id uuid.UUID, picked map[uuid.UUID]bool,
	fn func(ctx context.Context, companyID, id uuid.UUID) ([]uuid.UUID, error)) error {
	if err := d.reopen(); err != nil {
		return err
	}
	if d.companyID == nil {
		return apperr.User(apperr.CodeMissingCompany, "select a company before picking departments or sites")
	}
	if picked[id] {
		return nil
	}
	d.enter(Expanding)
	ids, err := fn(ctx, *d.companyID, id)
	d.enter(CollectingSelection)
	if err != nil {
		return err
	}
	picked[id] = true
	d.add(ids)
	return nil
}

// Apply feeds a whole request into the draft, explicit picks first.
func (d *Draft) Apply(ctx context.Context, req *Request) error {
	if req.CompanyID != nil {
		if err := d.SetCompany(*req.CompanyID); err != nil {
			return err
		}
	}
	if req.BillingCompanyID != nil {
		if err := d.SetBillingCompany(*req.BillingCompanyID); err != nil {
			return err
		}
	}
	if req.ClinicID != nil {
		if err := d.SetClinic(*req.ClinicID); err != nil {
			return err
		}
	}
	if req.Date != nil && !req.Date.IsZero() {
		if err := d.SetDate(*req.Date); err != nil {
			return err
		}
	}
	if err := d.SetPurchaseOrder(req.PurchaseOrderNumber); err != nil {
		return err
	}
	if err := d.SetNotes(req.Notes); err != nil {
		return err
	}
	if err := d.PickEmployees(req.EmployeeIDs...); err != nil {
		return err
	}
	for _, id := range req.DepartmentIDs {
		if err := d.PickDepartment(ctx, id); err != nil {
			return err
		}
	}
	for _, id := range req.SiteIDs {
		if err := d.PickSite(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (d *Draft) requireClinicDay() error {
	if d.clinicID == nil {
		return apperr.User(apperr.CodeMissingClinic, "clinic_id is required")
	}
	if d.date == nil {
		return apperr.User(apperr.CodeMissingDate, "date is required")
	}
	return nil
}

// CheckCapacity reads the clinic's remaining capacity for the date and
// evaluates the current selection against it. A warning never fails the call.
func (d *Draft) CheckCapacity(ctx context.Context) (*Evaluation, error) {
	if d.state == Committed {
		return nil, ErrAlreadyCommitted
	}
	if err := d.requireClinicDay(); err != nil {
		return nil, err
	}
	c, err := d.agg.capacity.RemainingCapacity(ctx, *d.clinicID, *d.date)
	if err != nil {
		return nil, err
	}
	d.setEvaluation(ctx, c.Evaluate(len(d.selected)))
	d.enter(CapacityChecked)
	return d.evaluation, nil
}

func (d *Draft) setEvaluation(ctx context.Context, ev *Evaluation) {
	d.evaluation = ev
	if ev.Warning != nil {
		zerolog.Ctx(ctx).Warn().
			Str("level", ev.Warning.Level).
			Stringer("clinic_id", ev.ClinicID).
			Str("date", ev.Date.String()).
			Int("remaining_after", ev.Warning.RemainingAfter).
			Msg("clinic capacity warning")
	}
}

// Ready validates the draft and fixes the parent appointment. It checks that
// company, clinic and date are set, that the selection is not empty and that
// every selected employee belongs to the company.
func (d *Draft) Ready(ctx context.Context) (*Booking, error) {
	switch d.state {
	case Committed:
		return nil, ErrAlreadyCommitted
	case Ready:
		return d.booking, nil
	}
	user, err := auth.MustUser(ctx)
	if err != nil {
		return nil, err
	}
	if d.companyID == nil {
		return nil, apperr.User(apperr.CodeMissingCompany, "company_id is required")
	}
	if err := d.requireClinicDay(); err != nil {
		return nil, err
	}
	if len(d.selected) == 0 {
		return nil, apperr.User(apperr.CodeEmptySelection, "select at least one employee, department or site")
	}

	company, err := d.agg.companies.Company(ctx, *d.companyID)
	if err != nil {
		return nil, err
	}
	billing := company.ID
	if d.billingCompanyID != nil && *d.billingCompanyID != company.ID {
		bc, err := d.agg.companies.Company(ctx, *d.billingCompanyID)
		if err != nil {
			return nil, err
		}
		billing = bc.ID
	}
	clinic, err := d.agg.clinics.Clinic(ctx, *d.clinicID)
	if err != nil {
		return nil, err
	}

	infos, err := d.agg.employees.Employees(ctx, d.selected)
	if err != nil {
		return nil, err
	}
	for _, e := range infos {
		if e.CompanyID == nil || *e.CompanyID != company.ID {
			return nil, apperr.User(apperr.CodeEmployeeNotInCompany,
				"employee "+e.ID.String()+" does not belong to the company")
		}
	}

	if d.state != CapacityChecked {
		if _, err := d.CheckCapacity(ctx); err != nil {
			return nil, err
		}
	}

	d.booking = &Booking{
		Appointment: &Appointment{
			ID:                  uuid.New(),
			UserID:              user,
			CompanyID:           company.ID,
			BillingCompanyID:    billing,
			ClinicID:            clinic.ID,
			Date:                *d.date,
			EmployeeCount:       len(infos),
			Status:              StatusPending,
			ScheduleStatus:      ScheduleScheduled,
			PurchaseOrderNumber: d.purchaseOrder,
			Notes:               d.notes,
		},
		Employees:   infos,
		CompanyName: company.Name,
		Clinic:      clinic,
		Capacity:    d.evaluation,
	}
	d.enter(Ready)
	return d.booking, nil
}

// Commit hands a ready draft to the atomic writer. On failure the draft stays
// Ready and may be committed again.
func (d *Draft) Commit(ctx context.Context) (*Result, error) {
	switch d.state {
	case Committed:
		return nil, ErrAlreadyCommitted
	case Ready:
	default:
		return nil, ErrNotReady
	}
	res, err := d.agg.writer.Commit(ctx, d.booking)
	if err != nil {
		return nil, err
	}
	d.enter(Committed)
	d.result = res
	return res, nil
}
