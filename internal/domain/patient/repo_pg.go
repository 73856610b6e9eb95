package patient

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/backoffice/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct {
	conn    queryable
	timeout time.Duration
}

func NewRepoPG(pool *pgxpool.Pool, timeout time.Duration) Repository {
	return &repoPG{conn: pool, timeout: timeout}
}

const patientCols = `id, full_name, email, phone, personal_id, date_of_birth::text, allergies, created_at`

const visitCols = `id, patient_id, visit_date::text, summary, doctor_notes, created_at`

// Newest visit first; same-day visits fall back to insertion order.
const visitOrder = `ORDER BY visit_date DESC, created_at DESC`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.FullName, &p.Email, &p.Phone, &p.PersonalID,
		&p.DateOfBirth, &p.Allergies, &p.CreatedAt)
	return &p, err
}

func scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	err := row.Scan(&v.ID, &v.PatientID, &v.VisitDate, &v.Summary, &v.DoctorNotes, &v.CreatedAt)
	return &v, err
}

func (r *repoPG) List(ctx context.Context, limit int) ([]*Patient, error) {
	ctx, cancel := db.Bound(ctx, r.timeout)
	defer cancel()

	rows, err := r.conn.Query(ctx, `SELECT `+patientCols+` FROM patients ORDER BY full_name LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	ctx, cancel := db.Bound(ctx, r.timeout)
	defer cancel()
	return scanPatient(r.conn.QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	ctx, cancel := db.Bound(ctx, r.timeout)
	defer cancel()

	p.ID = uuid.New()
	return r.conn.QueryRow(ctx, `
		INSERT INTO patients (id, full_name, email, phone, personal_id, date_of_birth, allergies)
		VALUES ($1, $2, $3, $4, $5, $6::date, $7)
		RETURNING created_at`,
		p.ID, p.FullName, p.Email, p.Phone, p.PersonalID, p.DateOfBirth, p.Allergies).Scan(&p.CreatedAt)
}

func (r *repoPG) Update(ctx context.Context, p *Patient) (bool, error) {
	ctx, cancel := db.Bound(ctx, r.timeout)
	defer cancel()

	tag, err := r.conn.Exec(ctx, `
		UPDATE patients SET full_name = $2, email = $3, phone = $4, personal_id = $5,
			date_of_birth = $6::date, allergies = $7
		WHERE id = $1`,
		p.ID, p.FullName, p.Email, p.Phone, p.PersonalID, p.DateOfBirth, p.Allergies)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repoPG) collectVisits(rows pgx.Rows) ([]*Visit, error) {
	defer rows.Close()
	var out []*Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *repoPG) ListVisits(ctx context.Context, patientID uuid.UUID) ([]*Visit, error) {
	ctx, cancel := db.Bound(ctx, r.timeout)
	defer cancel()

	rows, err := r.conn.Query(ctx, `SELECT `+visitCols+` FROM visits WHERE patient_id = $1 `+visitOrder, patientID)
	if err != nil {
		return nil, err
	}
	return r.collectVisits(rows)
}

func (r *repoPG) VisitsForPatients(ctx context.Context, ids []uuid.UUID) ([]*Visit, error) {
	ctx, cancel := db.Bound(ctx, r.timeout)
	defer cancel()

	rows, err := r.conn.Query(ctx, `SELECT `+visitCols+` FROM visits WHERE patient_id = ANY($1) `+visitOrder, ids)
	if err != nil {
		return nil, err
	}
	return r.collectVisits(rows)
}

func (r *repoPG) CreateVisit(ctx context.Context, v *Visit) error {
	ctx, cancel := db.Bound(ctx, r.timeout)
	defer cancel()

	v.ID = uuid.New()
	return r.conn.QueryRow(ctx, `
		INSERT INTO visits (id, patient_id, visit_date, summary, doctor_notes)
		VALUES ($1, $2, $3::date, $4, $5)
		RETURNING created_at`,
		v.ID, v.PatientID, v.VisitDate, v.Summary, v.DoctorNotes).Scan(&v.CreatedAt)
}

func (r *repoPG) UpdateVisit(ctx context.Context, v *Visit) (bool, error) {
	ctx, cancel := db.Bound(ctx, r.timeout)
	defer cancel()

	tag, err := r.conn.Exec(ctx, `
		UPDATE visits SET visit_date = $3::date, summary = $4, doctor_notes = $5
		WHERE id = $1 AND patient_id = $2`,
		v.ID, v.PatientID, v.VisitDate, v.Summary, v.DoctorNotes)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
