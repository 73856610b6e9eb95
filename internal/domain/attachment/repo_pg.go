package attachment

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

const fileCols = `id, appointment_id, file_name, file_path, file_type, created_at`

func scanFile(row pgx.Row) (*File, error) {
	var f File
	err := row.Scan(&f.ID, &f.AppointmentID, &f.FileName, &f.FilePath, &f.FileType, &f.CreatedAt)
	return &f, err
}

func (r *repoPG) Create(ctx context.Context, f *File) error {
	ctx, cancel := db.Bound(ctx, r.timeout)
	defer cancel()

	f.ID = uuid.New()
	return r.conn.QueryRow(ctx, `
		INSERT INTO appointment_files (id, appointment_id, file_name, file_path, file_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		f.ID, f.AppointmentID, f.FileName, f.FilePath, f.FileType).Scan(&f.CreatedAt)
}

func (r *repoPG) ListByAppointments(ctx context.Context, ids []uuid.UUID) ([]*File, error) {
	ctx, cancel := db.Bound(ctx, r.timeout)
	defer cancel()

	rows, err := r.conn.Query(ctx, `SELECT `+fileCols+` FROM appointment_files
		WHERE appointment_id = ANY($1) ORDER BY created_at DESC`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *repoPG) AppointmentSlots(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Slot, error) {
	ctx, cancel := db.Bound(ctx, r.timeout)
	defer cancel()

	rows, err := r.conn.Query(ctx, `SELECT id, date::text, time FROM appointments WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uuid.UUID]Slot, len(ids))
	for rows.Next() {
		var id uuid.UUID
		var s Slot
		if err := rows.Scan(&id, &s.Date, &s.Time); err != nil {
			return nil, err
		}
		out[id] = s
	}
	return out, rows.Err()
}

func (r *repoPG) AppointmentIDsForPatient(ctx context.Context, patientID uuid.UUID) ([]uuid.UUID, error) {
	ctx, cancel := db.Bound(ctx, r.timeout)
	defer cancel()

	rows, err := r.conn.Query(ctx, `SELECT id FROM appointments WHERE patient_id = $1`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
