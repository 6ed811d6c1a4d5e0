package clinic

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/occhealth/occhealth/internal/platform/db"
)

// -- clinics --

type clinicRepoPG struct{ pool *pgxpool.Pool }

func NewClinicRepoPG(pool *pgxpool.Pool) ClinicRepository {
	return &clinicRepoPG{pool: pool}
}

const clinicCols = `id, user_id, name, address, phone, max_daily_appointments, admins, created_at, updated_at`

func scanClinic(row pgx.Row) (*Clinic, error) {
	var c Clinic
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Address, &c.Phone,
		&c.MaxDailyAppointments, &c.Admins, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func (r *clinicRepoPG) Create(ctx context.Context, c *Clinic) error {
	c.ID = uuid.New()
	if c.Admins == nil {
		c.Admins = []string{}
	}
	return db.Q(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO clinics (id, user_id, name, address, phone, max_daily_appointments, admins)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		c.ID, c.UserID, c.Name, c.Address, c.Phone, c.MaxDailyAppointments, c.Admins,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *clinicRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	q := db.Q(ctx, r.pool)
	c, err := scanClinic(q.QueryRow(ctx, `SELECT `+clinicCols+` FROM clinics WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	c.Doctors, err = r.doctorIDs(ctx, q, id)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *clinicRepoPG) doctorIDs(ctx context.Context, q db.Querier, clinicID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.Query(ctx, `SELECT doctor_id FROM clinic_doctors WHERE clinic_id = $1 ORDER BY created_at`, clinicID)
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return ids, nil
}

func (r *clinicRepoPG) Update(ctx context.Context, c *Clinic) error {
	return db.Q(ctx, r.pool).QueryRow(ctx, `
		UPDATE clinics SET name = $2, address = $3, phone = $4, max_daily_appointments = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		c.ID, c.Name, c.Address, c.Phone, c.MaxDailyAppointments,
	).Scan(&c.UpdatedAt)
}

func (r *clinicRepoPG) List(ctx context.Context, limit, offset int) ([]*Clinic, int, error) {
	q := db.Q(ctx, r.pool)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM clinics`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := q.Query(ctx, `SELECT `+clinicCols+` FROM clinics ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Clinic
	for rows.Next() {
		c, err := scanClinic(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

func (r *clinicRepoPG) AddAdmin(ctx context.Context, clinicID uuid.UUID, userID string) error {
	_, err := db.Q(ctx, r.pool).Exec(ctx, `
		UPDATE clinics SET admins = array_append(admins, $2), updated_at = NOW()
		WHERE id = $1 AND NOT ($2 = ANY(admins))`, clinicID, userID)
	return err
}

func (r *clinicRepoPG) RemoveAdmin(ctx context.Context, clinicID uuid.UUID, userID string) (bool, error) {
	tag, err := db.Q(ctx, r.pool).Exec(ctx, `
		UPDATE clinics SET admins = array_remove(admins, $2), updated_at = NOW()
		WHERE id = $1 AND $2 = ANY(admins)`, clinicID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *clinicRepoPG) AttachDoctor(ctx context.Context, clinicID, doctorID uuid.UUID) error {
	_, err := db.Q(ctx, r.pool).Exec(ctx, `
		INSERT INTO clinic_doctors (clinic_id, doctor_id) VALUES ($1, $2)
		ON CONFLICT (clinic_id, doctor_id) DO NOTHING`, clinicID, doctorID)
	return err
}

func (r *clinicRepoPG) DetachDoctor(ctx context.Context, clinicID, doctorID uuid.UUID) (bool, error) {
	tag, err := db.Q(ctx, r.pool).Exec(ctx,
		`DELETE FROM clinic_doctors WHERE clinic_id = $1 AND doctor_id = $2`, clinicID, doctorID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// -- doctors --

type doctorRepoPG struct{ pool *pgxpool.Pool }

func NewDoctorRepoPG(pool *pgxpool.Pool) DoctorRepository {
	return &doctorRepoPG{pool: pool}
}

const doctorCols = `id, user_id, first_name, last_name, specialty, license_number, created_at`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.UserID, &d.FirstName, &d.LastName, &d.Specialty, &d.LicenseNumber, &d.CreatedAt)
	return &d, err
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	d.ID = uuid.New()
	return db.Q(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO doctors (id, user_id, first_name, last_name, specialty, license_number)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		d.ID, d.UserID, d.FirstName, d.LastName, d.Specialty, d.LicenseNumber,
	).Scan(&d.CreatedAt)
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return scanDoctor(db.Q(ctx, r.pool).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE id = $1`, id))
}

func (r *doctorRepoPG) List(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	q := db.Q(ctx, r.pool)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM doctors`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := q.Query(ctx, `SELECT `+doctorCols+` FROM doctors ORDER BY last_name, first_name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

// -- services --

type offeringRepoPG struct{ pool *pgxpool.Pool }

func NewOfferingRepoPG(pool *pgxpool.Pool) OfferingRepository {
	return &offeringRepoPG{pool: pool}
}

func (r *offeringRepoPG) Create(ctx context.Context, s *ServiceOffering) error {
	s.ID = uuid.New()
	return db.Q(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO clinic_services (id, clinic_id, name, description, price_cents, currency)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		s.ID, s.ClinicID, s.Name, s.Description, s.PriceCents, s.Currency,
	).Scan(&s.CreatedAt)
}

func (r *offeringRepoPG) ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]*ServiceOffering, error) {
	rows, err := db.Q(ctx, r.pool).Query(ctx, `
		SELECT id, clinic_id, name, description, price_cents, currency, created_at
		FROM clinic_services WHERE clinic_id = $1 ORDER BY name`, clinicID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[ServiceOffering])
}
