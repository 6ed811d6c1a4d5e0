package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/occhealth/occhealth/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

// LockClinicDay upserts the reservation row. ON CONFLICT DO UPDATE locks the
// existing row, so concurrent bookings for the same key queue here until the
// holder commits or rolls back.
func (r *repoPG) LockClinicDay(ctx context.Context, clinicID uuid.UUID, date Day) error {
	_, err := db.Q(ctx, r.pool).Exec(ctx, `
		INSERT INTO "clinicDayCapacity" (clinic_id, date) VALUES ($1, $2)
		ON CONFLICT (clinic_id, date) DO UPDATE SET updated_at = NOW()`,
		clinicID, date.Time)
	return err
}

func (r *repoPG) BookedCount(ctx context.Context, clinicID uuid.UUID, date Day) (int, error) {
	var n int
	err := db.Q(ctx, r.pool).QueryRow(ctx, `
		SELECT COALESCE(SUM(employee_count), 0)::int FROM appointments
		WHERE clinic_id = $1 AND date = $2 AND status <> $3 AND schedule_status <> $4`,
		clinicID, date.Time, StatusDeclined, ScheduleCancelled,
	).Scan(&n)
	return n, err
}

const appointmentCols = `id, user_id, company_id, billing_company_id, clinic_id, date, employee_count,
	status, schedule_status, purchase_order_number, notes, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var date time.Time
	err := row.Scan(&a.ID, &a.UserID, &a.CompanyID, &a.BillingCompanyID, &a.ClinicID, &date,
		&a.EmployeeCount, &a.Status, &a.ScheduleStatus, &a.PurchaseOrderNumber, &a.Notes,
		&a.CreatedAt, &a.UpdatedAt)
	a.Date = DayOf(date)
	return &a, err
}

func (r *repoPG) CreateAppointment(ctx context.Context, a *Appointment) error {
	return db.Q(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO appointments (id, user_id, company_id, billing_company_id, clinic_id, date,
			employee_count, status, schedule_status, purchase_order_number, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`,
		a.ID, a.UserID, a.CompanyID, a.BillingCompanyID, a.ClinicID, a.Date.Time,
		a.EmployeeCount, a.Status, a.ScheduleStatus, a.PurchaseOrderNumber, a.Notes,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *repoPG) CreateChildren(ctx context.Context, children []*EmployeeAppointment, refs []*AppointmentEmployee) error {
	if len(children) == 0 && len(refs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, c := range children {
		batch.Queue(`
			INSERT INTO "employeeAppointments" (id, user_id, parent_appointment_id, employee_id,
				employee_name, company_name, clinic_name, date, status, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			c.ID, c.UserID, c.ParentAppointmentID, c.EmployeeID,
			c.EmployeeName, c.CompanyName, c.ClinicName, c.Date.Time, c.Status, c.Notes)
	}
	for _, ref := range refs {
		batch.Queue(`
			INSERT INTO "appointmentEmployees" (id, user_id, appointment_id, employee_id)
			VALUES ($1, $2, $3, $4)`,
			ref.ID, ref.UserID, ref.AppointmentID, ref.EmployeeID)
	}

	br := db.Q(ctx, r.pool).SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("batch insert %d of %d: %w", i+1, batch.Len(), err)
		}
	}
	return br.Close()
}

func (r *repoPG) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(db.Q(ctx, r.pool).QueryRow(ctx,
		`SELECT `+appointmentCols+` FROM appointments WHERE id = $1`, id))
}

func (r *repoPG) GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(db.Q(ctx, r.pool).QueryRow(ctx,
		`SELECT `+appointmentCols+` FROM appointments WHERE id = $1 FOR UPDATE`, id))
}

func (r *repoPG) UpdateAppointment(ctx context.Context, a *Appointment) error {
	return db.Q(ctx, r.pool).QueryRow(ctx, `
		UPDATE appointments SET date = $2, status = $3, schedule_status = $4,
			purchase_order_number = $5, notes = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		a.ID, a.Date.Time, a.Status, a.ScheduleStatus, a.PurchaseOrderNumber, a.Notes,
	).Scan(&a.UpdatedAt)
}

func (r *repoPG) listAppointments(ctx context.Context, query string, args ...interface{}) ([]*Appointment, error) {
	rows, err := db.Q(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *repoPG) ListByCompany(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := db.Q(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM appointments WHERE company_id = $1`, companyID).Scan(&total); err != nil {
		return nil, 0, err
	}
	items, err := r.listAppointments(ctx, `SELECT `+appointmentCols+` FROM appointments
		WHERE company_id = $1 ORDER BY date DESC, created_at DESC LIMIT $2 OFFSET $3`, companyID, limit, offset)
	return items, total, err
}

func (r *repoPG) ListByClinicDay(ctx context.Context, clinicID uuid.UUID, date Day) ([]*Appointment, error) {
	return r.listAppointments(ctx, `SELECT `+appointmentCols+` FROM appointments
		WHERE clinic_id = $1 AND date = $2 ORDER BY created_at`, clinicID, date.Time)
}

const childCols = `id, user_id, parent_appointment_id, employee_id, employee_name, company_name,
	clinic_name, date, status, notes, created_at, updated_at`

func scanChild(row pgx.Row) (*EmployeeAppointment, error) {
	var c EmployeeAppointment
	var date time.Time
	err := row.Scan(&c.ID, &c.UserID, &c.ParentAppointmentID, &c.EmployeeID, &c.EmployeeName,
		&c.CompanyName, &c.ClinicName, &date, &c.Status, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	c.Date = DayOf(date)
	return &c, err
}

func (r *repoPG) ListChildren(ctx context.Context, appointmentID uuid.UUID) ([]*EmployeeAppointment, error) {
	rows, err := db.Q(ctx, r.pool).Query(ctx, `SELECT `+childCols+` FROM "employeeAppointments"
		WHERE parent_appointment_id = $1 ORDER BY employee_name`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*EmployeeAppointment
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (r *repoPG) ListLinkedEmployees(ctx context.Context, appointmentID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := db.Q(ctx, r.pool).Query(ctx,
		`SELECT employee_id FROM "appointmentEmployees" WHERE appointment_id = $1 ORDER BY created_at, id`, appointmentID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

func (r *repoPG) MoveChildren(ctx context.Context, appointmentID uuid.UUID, date Day) error {
	_, err := db.Q(ctx, r.pool).Exec(ctx, `
		UPDATE "employeeAppointments" SET date = $2, updated_at = NOW()
		WHERE parent_appointment_id = $1`, appointmentID, date.Time)
	return err
}

func (r *repoPG) GetChild(ctx context.Context, id uuid.UUID) (*EmployeeAppointment, error) {
	return scanChild(db.Q(ctx, r.pool).QueryRow(ctx,
		`SELECT `+childCols+` FROM "employeeAppointments" WHERE id = $1`, id))
}

func (r *repoPG) UpdateChild(ctx context.Context, c *EmployeeAppointment) error {
	return db.Q(ctx, r.pool).QueryRow(ctx, `
		UPDATE "employeeAppointments" SET status = $2, notes = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		c.ID, c.Status, c.Notes,
	).Scan(&c.UpdatedAt)
}
