package workforce

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/occhealth/occhealth/internal/platform/db"
)

// -- companies --

type companyRepoPG struct{ pool *pgxpool.Pool }

func NewCompanyRepoPG(pool *pgxpool.Pool) CompanyRepository {
	return &companyRepoPG{pool: pool}
}

const companyCols = `id, user_id, name, contact_email, contact_phone, employee_count, created_at, updated_at`

func scanCompany(row pgx.Row) (*Company, error) {
	var c Company
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.ContactEmail, &c.ContactPhone,
		&c.EmployeeCount, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func (r *companyRepoPG) Create(ctx context.Context, c *Company) error {
	c.ID = uuid.New()
	return db.Q(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO companies (id, user_id, name, contact_email, contact_phone)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING employee_count, created_at, updated_at`,
		c.ID, c.UserID, c.Name, c.ContactEmail, c.ContactPhone,
	).Scan(&c.EmployeeCount, &c.CreatedAt, &c.UpdatedAt)
}

func (r *companyRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Company, error) {
	return scanCompany(db.Q(ctx, r.pool).QueryRow(ctx, `SELECT `+companyCols+` FROM companies WHERE id = $1`, id))
}

func (r *companyRepoPG) Update(ctx context.Context, c *Company) error {
	return db.Q(ctx, r.pool).QueryRow(ctx, `
		UPDATE companies SET name = $2, contact_email = $3, contact_phone = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		c.ID, c.Name, c.ContactEmail, c.ContactPhone,
	).Scan(&c.UpdatedAt)
}

func (r *companyRepoPG) ListByOwner(ctx context.Context, userID string, limit, offset int) ([]*Company, int, error) {
	q := db.Q(ctx, r.pool)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM companies WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := q.Query(ctx, `SELECT `+companyCols+` FROM companies WHERE user_id = $1
		ORDER BY name LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

// -- employees --

type employeeRepoPG struct{ pool *pgxpool.Pool }

func NewEmployeeRepoPG(pool *pgxpool.Pool) EmployeeRepository {
	return &employeeRepoPG{pool: pool}
}

const employeeCols = `id, user_id, company_id, department_id, site_id, first_name, last_name,
	email, job_title, status, medical_info, created_at, updated_at`

func scanEmployee(row pgx.Row) (*Employee, error) {
	var e Employee
	err := row.Scan(&e.ID, &e.UserID, &e.CompanyID, &e.DepartmentID, &e.SiteID,
		&e.FirstName, &e.LastName, &e.Email, &e.JobTitle, &e.Status, &e.MedicalInfo,
		&e.CreatedAt, &e.UpdatedAt)
	return &e, err
}

func (r *employeeRepoPG) Create(ctx context.Context, e *Employee) error {
	e.ID = uuid.New()
	return db.Q(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO employees (id, user_id, company_id, department_id, site_id,
			first_name, last_name, email, job_title, status, medical_info)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`,
		e.ID, e.UserID, e.CompanyID, e.DepartmentID, e.SiteID,
		e.FirstName, e.LastName, e.Email, e.JobTitle, e.Status, e.MedicalInfo,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
}

func (r *employeeRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Employee, error) {
	return scanEmployee(db.Q(ctx, r.pool).QueryRow(ctx, `SELECT `+employeeCols+` FROM employees WHERE id = $1`, id))
}

func (r *employeeRepoPG) GetMany(ctx context.Context, ids []uuid.UUID) ([]*Employee, error) {
	rows, err := db.Q(ctx, r.pool).Query(ctx, `SELECT `+employeeCols+` FROM employees WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]*Employee, 0, len(ids))
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (r *employeeRepoPG) Update(ctx context.Context, e *Employee) error {
	return db.Q(ctx, r.pool).QueryRow(ctx, `
		UPDATE employees SET company_id = $2, department_id = $3, site_id = $4,
			first_name = $5, last_name = $6, email = $7, job_title = $8,
			status = $9, medical_info = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		e.ID, e.CompanyID, e.DepartmentID, e.SiteID,
		e.FirstName, e.LastName, e.Email, e.JobTitle, e.Status, e.MedicalInfo,
	).Scan(&e.UpdatedAt)
}

func (r *employeeRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := db.Q(ctx, r.pool).Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	return err
}

func (r *employeeRepoPG) ListByCompany(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*Employee, int, error) {
	q := db.Q(ctx, r.pool)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM employees WHERE company_id = $1`, companyID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := q.Query(ctx, `SELECT `+employeeCols+` FROM employees WHERE company_id = $1
		ORDER BY last_name, first_name LIMIT $2 OFFSET $3`, companyID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

// -- departments --

type departmentRepoPG struct{ pool *pgxpool.Pool }

func NewDepartmentRepoPG(pool *pgxpool.Pool) DepartmentRepository {
	return &departmentRepoPG{pool: pool}
}

const departmentCols = `id, user_id, company_id, name, employee_count, created_at, updated_at`

func scanDepartment(row pgx.Row) (*Department, error) {
	var d Department
	err := row.Scan(&d.ID, &d.UserID, &d.CompanyID, &d.Name, &d.EmployeeCount, &d.CreatedAt, &d.UpdatedAt)
	return &d, err
}

func (r *departmentRepoPG) Create(ctx context.Context, d *Department) error {
	d.ID = uuid.New()
	return db.Q(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO departments (id, user_id, company_id, name)
		VALUES ($1, $2, $3, $4)
		RETURNING employee_count, created_at, updated_at`,
		d.ID, d.UserID, d.CompanyID, d.Name,
	).Scan(&d.EmployeeCount, &d.CreatedAt, &d.UpdatedAt)
}

func (r *departmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Department, error) {
	return scanDepartment(db.Q(ctx, r.pool).QueryRow(ctx, `SELECT `+departmentCols+` FROM departments WHERE id = $1`, id))
}

func (r *departmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := db.Q(ctx, r.pool).Exec(ctx, `DELETE FROM departments WHERE id = $1`, id)
	return err
}

func (r *departmentRepoPG) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*Department, error) {
	rows, err := db.Q(ctx, r.pool).Query(ctx, `SELECT `+departmentCols+` FROM departments
		WHERE company_id = $1 ORDER BY name`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Department
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

// -- sites --

type siteRepoPG struct{ pool *pgxpool.Pool }

func NewSiteRepoPG(pool *pgxpool.Pool) SiteRepository {
	return &siteRepoPG{pool: pool}
}

const siteCols = `id, user_id, company_id, name, address, employee_count, created_at, updated_at`

func scanSite(row pgx.Row) (*Site, error) {
	var s Site
	err := row.Scan(&s.ID, &s.UserID, &s.CompanyID, &s.Name, &s.Address, &s.EmployeeCount, &s.CreatedAt, &s.UpdatedAt)
	return &s, err
}

func (r *siteRepoPG) Create(ctx context.Context, s *Site) error {
	s.ID = uuid.New()
	return db.Q(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO sites (id, user_id, company_id, name, address)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING employee_count, created_at, updated_at`,
		s.ID, s.UserID, s.CompanyID, s.Name, s.Address,
	).Scan(&s.EmployeeCount, &s.CreatedAt, &s.UpdatedAt)
}

func (r *siteRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Site, error) {
	return scanSite(db.Q(ctx, r.pool).QueryRow(ctx, `SELECT `+siteCols+` FROM sites WHERE id = $1`, id))
}

func (r *siteRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := db.Q(ctx, r.pool).Exec(ctx, `DELETE FROM sites WHERE id = $1`, id)
	return err
}

func (r *siteRepoPG) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*Site, error) {
	rows, err := db.Q(ctx, r.pool).Query(ctx, `SELECT `+siteCols+` FROM sites
		WHERE company_id = $1 ORDER BY name`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Site
	for rows.Next() {
		s, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// -- assignments --

type assignmentRepoPG struct{ pool *pgxpool.Pool }

func NewAssignmentRepoPG(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepoPG{pool: pool}
}

func (r *assignmentRepoPG) UpsertDepartment(ctx context.Context, a *DepartmentEmployee) error {
	a.Active = true
	return db.Q(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO "departmentEmployees" (id, user_id, department_id, employee_id, role, is_manager, active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		ON CONFLICT (department_id, employee_id) DO UPDATE
			SET role = EXCLUDED.role, is_manager = EXCLUDED.is_manager, active = TRUE, updated_at = NOW()
		RETURNING id, created_at, updated_at`,
		uuid.New(), a.UserID, a.DepartmentID, a.EmployeeID, a.Role, a.IsManager,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (r *assignmentRepoPG) DeactivateDepartment(ctx context.Context, departmentID, employeeID uuid.UUID) (bool, error) {
	tag, err := db.Q(ctx, r.pool).Exec(ctx, `
		UPDATE "departmentEmployees" SET active = FALSE, updated_at = NOW()
		WHERE department_id = $1 AND employee_id = $2 AND active`, departmentID, employeeID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *assignmentRepoPG) ListDepartment(ctx context.Context, departmentID uuid.UUID) ([]*DepartmentEmployee, error) {
	rows, err := db.Q(ctx, r.pool).Query(ctx, `
		SELECT id, user_id, department_id, employee_id, role, is_manager, active, created_at, updated_at
		FROM "departmentEmployees" WHERE department_id = $1 AND active ORDER BY created_at`, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*DepartmentEmployee
	for rows.Next() {
		var a DepartmentEmployee
		if err := rows.Scan(&a.ID, &a.UserID, &a.DepartmentID, &a.EmployeeID, &a.Role,
			&a.IsManager, &a.Active, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}

func (r *assignmentRepoPG) DepartmentEmployeeIDs(ctx context.Context, departmentID uuid.UUID) ([]uuid.UUID, error) {
	return r.ids(ctx, `SELECT DISTINCT employee_id FROM "departmentEmployees"
		WHERE department_id = $1 AND active ORDER BY employee_id`, departmentID)
}

func (r *assignmentRepoPG) UpsertSite(ctx context.Context, a *SiteEmployee) error {
	a.Active = true
	return db.Q(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO "siteEmployees" (id, user_id, site_id, employee_id, role, is_primary, active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		ON CONFLICT (site_id, employee_id) DO UPDATE
			SET role = EXCLUDED.role, is_primary = EXCLUDED.is_primary, active = TRUE, updated_at = NOW()
		RETURNING id, created_at, updated_at`,
		uuid.New(), a.UserID, a.SiteID, a.EmployeeID, a.Role, a.IsPrimary,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (r *assignmentRepoPG) DeactivateSite(ctx context.Context, siteID, employeeID uuid.UUID) (bool, error) {
	tag, err := db.Q(ctx, r.pool).Exec(ctx, `
		UPDATE "siteEmployees" SET active = FALSE, updated_at = NOW()
		WHERE site_id = $1 AND employee_id = $2 AND active`, siteID, employeeID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *assignmentRepoPG) ListSite(ctx context.Context, siteID uuid.UUID) ([]*SiteEmployee, error) {
	rows, err := db.Q(ctx, r.pool).Query(ctx, `
		SELECT id, user_id, site_id, employee_id, role, is_primary, active, created_at, updated_at
		FROM "siteEmployees" WHERE site_id = $1 AND active ORDER BY created_at`, siteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*SiteEmployee
	for rows.Next() {
		var a SiteEmployee
		if err := rows.Scan(&a.ID, &a.UserID, &a.SiteID, &a.EmployeeID, &a.Role,
			&a.IsPrimary, &a.Active, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}

func (r *assignmentRepoPG) SiteEmployeeIDs(ctx context.Context, siteID uuid.UUID) ([]uuid.UUID, error) {
	return r.ids(ctx, `SELECT DISTINCT employee_id FROM "siteEmployees"
		WHERE site_id = $1 AND active ORDER BY employee_id`, siteID)
}

func (r *assignmentRepoPG) DeleteForEmployee(ctx context.Context, employeeID uuid.UUID) ([]uuid.UUID, []uuid.UUID, error) {
	depts, err := r.ids(ctx, `WITH gone AS (
			DELETE FROM "departmentEmployees" WHERE employee_id = $1 RETURNING department_id, active
		) SELECT DISTINCT department_id FROM gone WHERE active`, employeeID)
	if err != nil {
		return nil, nil, fmt.Errorf("delete department assignments: %w", err)
	}
	sites, err := r.ids(ctx, `WITH gone AS (
			DELETE FROM "siteEmployees" WHERE employee_id = $1 RETURNING site_id, active
		) SELECT DISTINCT site_id FROM gone WHERE active`, employeeID)
	if err != nil {
		return nil, nil, fmt.Errorf("delete site assignments: %w", err)
	}
	return depts, sites, nil
}

func (r *assignmentRepoPG) DeactivateOutsideCompany(ctx context.Context, employeeID uuid.UUID, companyID *uuid.UUID) ([]uuid.UUID, []uuid.UUID, error) {
	depts, err := r.ids(ctx, `
		UPDATE "departmentEmployees" de SET active = FALSE, updated_at = NOW()
		FROM departments d
		WHERE de.department_id = d.id AND de.employee_id = $1 AND de.active
			AND ($2::uuid IS NULL OR d.company_id <> $2::uuid)
		RETURNING de.department_id`, employeeID, companyID)
	if err != nil {
		return nil, nil, fmt.Errorf("deactivate department assignments: %w", err)
	}
	sites, err := r.ids(ctx, `
		UPDATE "siteEmployees" se SET active = FALSE, updated_at = NOW()
		FROM sites s
		WHERE se.site_id = s.id AND se.employee_id = $1 AND se.active
			AND ($2::uuid IS NULL OR s.company_id <> $2::uuid)
		RETURNING se.site_id`, employeeID, companyID)
	if err != nil {
		return nil, nil, fmt.Errorf("deactivate site assignments: %w", err)
	}
	return depts, sites, nil
}

func (r *assignmentRepoPG) ids(ctx context.Context, sql string, args ...interface{}) ([]uuid.UUID, error) {
	rows, err := db.Q(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// -- counters --

type counterRepoPG struct {
	pool *pgxpool.Pool
	tx   *db.TxRunner
}

func NewCounterRepoPG(pool *pgxpool.Pool) CounterRepository {
	return &counterRepoPG{pool: pool, tx: db.NewTxRunner(pool)}
}

// counterSQL locks the aggregate row and then recounts in a second statement.
// Under READ COMMITTED a statement only sees rows committed before it starts,
// so the count has to begin after the lock is granted: by then every other
// transaction that changed this membership and locked the row first has
// committed.
type counterSQL struct {
	lock    string
	recount string
}

var recountSQL = map[Target]counterSQL{
	TargetCompany: {
		lock: `SELECT employee_count FROM companies WHERE id = $1 FOR NO KEY UPDATE`,
		recount: `UPDATE companies
			SET employee_count = (SELECT COUNT(*) FROM employees e WHERE e.company_id = $1), updated_at = NOW()
			WHERE id = $1 RETURNING employee_count`,
	},
	TargetDepartment: {
		lock: `SELECT employee_count FROM departments WHERE id = $1 FOR NO KEY UPDATE`,
		recount: `UPDATE departments
			SET employee_count = (SELECT COUNT(*) FROM "departmentEmployees" de
				WHERE de.department_id = $1 AND de.active), updated_at = NOW()
			WHERE id = $1 RETURNING employee_count`,
	},
	TargetSite: {
		lock: `SELECT employee_count FROM sites WHERE id = $1 FOR NO KEY UPDATE`,
		recount: `UPDATE sites
			SET employee_count = (SELECT COUNT(*) FROM "siteEmployees" se
				WHERE se.site_id = $1 AND se.active), updated_at = NOW()
			WHERE id = $1 RETURNING employee_count`,
	},
}

var ownedSQL = map[Target]string{
	TargetCompany:    `SELECT id FROM companies WHERE user_id = $1 ORDER BY id`,
	TargetDepartment: `SELECT id FROM departments WHERE user_id = $1 ORDER BY id`,
	TargetSite:       `SELECT id FROM sites WHERE user_id = $1 ORDER BY id`,
}

func (r *counterRepoPG) Recount(ctx context.Context, target Target, id uuid.UUID) (Recount, bool, error) {
	q, ok := recountSQL[target]
	if !ok {
		return Recount{}, false, fmt.Errorf("unknown counter target %q", target)
	}
	var rc Recount
	found := true
	// The row lock must outlive the first statement, so both run in one tx.
	err := r.tx.InTx(ctx, func(ctx context.Context) error {
		conn := db.Q(ctx, r.pool)
		err := conn.QueryRow(ctx, q.lock, id).Scan(&rc.Before)
		if errors.Is(err, pgx.ErrNoRows) {
			found = false
			return nil
		}
		if err != nil {
			return err
		}
		return conn.QueryRow(ctx, q.recount, id).Scan(&rc.After)
	})
	if err != nil || !found {
		return Recount{}, false, err
	}
	return rc, true, nil
}

func (r *counterRepoPG) OwnedIDs(ctx context.Context, target Target, userID string) ([]uuid.UUID, error) {
	sql, ok := ownedSQL[target]
	if !ok {
		return nil, fmt.Errorf("unknown counter target %q", target)
	}
	rows, err := db.Q(ctx, r.pool).Query(ctx, sql, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}
