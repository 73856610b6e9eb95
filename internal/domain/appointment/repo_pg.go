package appointment

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

const apptSelect = `SELECT a.id, a.created_at, a.patient_id, p.full_name,
	a.first_name, a.last_name, a.email, a.phone,
	a.service, a.date::text, a.time, a.notes, a.status
	FROM appointments a LEFT JOIN patients p ON p.id = a.patient_id`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var fullName *string
	err := row.Scan(&a.ID, &a.CreatedAt, &a.PatientID, &fullName,
		&a.FirstName, &a.LastName, &a.Email, &a.Phone,
		&a.Service, &a.Date, &a.Time, &a.Notes, &a.Status)
	if err != nil {
		return nil, err
	}
	a.Patient = ResolveRef(a.PatientID, fullName, a.FirstName, a.LastName, a.Email, a.Phone)
	a.PatientName = a.Name()
	return &a, nil
}

func collect(rows pgx.Rows) ([]*Appointment, error) {
	defer rows.Close()
	var out []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *repoPG) Create(ctx context.Context, in *CreateInput) (uuid.UUID, error) {
	ctx, cancel := db.Bound(ctx, r.timeout)
	defer cancel()

	var id uuid.UUID
	err := r.conn.QueryRow(ctx,
		`SELECT create_appointment($1, $2, $3, $4, $5, $6::date, $7, $8)`,
		in.FirstName, in.LastName, nullIfEmpty(in.Email), nullIfEmpty(in.Phone),
		in.Service, in.Date, in.Time, nullIfEmpty(in.Notes)).Scan(&id)
	return id, err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	ctx, cancel := db.Bound(ctx, r.timeout)
	defer cancel()
	return scanAppointment(r.conn.QueryRow(ctx, apptSelect+` WHERE a.id = $1`, id))
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Appointment, int, error) {
	ctx, cancel := db.Bound(ctx, r.timeout)
	defer cancel()

	var total int
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM appointments`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn.Query(ctx, apptSelect+` ORDER BY a.created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows)
	return items, total, err
}

func (r *repoPG) ListAll(ctx context.Context) ([]*Appointment, error) {
	ctx, cancel := db.Bound(ctx, r.timeout)
	defer cancel()

	rows, err := r.conn.Query(ctx, apptSelect+` ORDER BY a.created_at DESC`)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error) {
	ctx, cancel := db.Bound(ctx, r.timeout)
	defer cancel()

	rows, err := r.conn.Query(ctx, apptSelect+` WHERE a.patient_id = $1 ORDER BY a.date DESC, a.time DESC`, patientID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (bool, error) {
	ctx, cancel := db.Bound(ctx, r.timeout)
	defer cancel()

	tag, err := r.conn.Exec(ctx, `UPDATE appointments SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, cancel := db.Bound(ctx, r.timeout)
	defer cancel()

	tag, err := r.conn.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
