package billing

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

const invoiceCols = `id, patient_id, invoice_number, status, subtotal::float8, tax::float8, total::float8,
	currency, sent_to_email, sent_at, created_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var i Invoice
	err := row.Scan(&i.ID, &i.PatientID, &i.InvoiceNumber, &i.Status, &i.Subtotal, &i.Tax, &i.Total,
		&i.Currency, &i.SentToEmail, &i.SentAt, &i.CreatedAt)
	return &i, err
}

func collectInvoices(rows pgx.Rows) ([]*Invoice, error) {
	defer rows.Close()
	var out []*Invoice
	for rows.Next() {
		i, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	ctx, cancel := db.Bound(ctx, r.timeout)
	defer cancel()
	return scanInvoice(r.conn.QueryRow(ctx, `SELECT `+invoiceCols+` FROM invoices WHERE id = $1`, id))
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Invoice, error) {
	ctx, cancel := db.Bound(ctx, r.timeout)
	defer cancel()

	rows, err := r.conn.Query(ctx, `SELECT `+invoiceCols+` FROM invoices
		WHERE patient_id = $1 ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	return collectInvoices(rows)
}

func (r *repoPG) ListForPatients(ctx context.Context, ids []uuid.UUID) ([]*Invoice, error) {
	ctx, cancel := db.Bound(ctx, r.timeout)
	defer cancel()

	rows, err := r.conn.Query(ctx, `SELECT `+invoiceCols+` FROM invoices
		WHERE patient_id = ANY($1) ORDER BY created_at DESC`, ids)
	if err != nil {
		return nil, err
	}
	return collectInvoices(rows)
}

func (r *repoPG) Items(ctx context.Context, invoiceID uuid.UUID) ([]*InvoiceItem, error) {
	ctx, cancel := db.Bound(ctx, r.timeout)
	defer cancel()

	rows, err := r.conn.Query(ctx, `SELECT id, invoice_id, description, qty::float8, unit_price::float8,
		line_total::float8, created_at
		FROM invoice_items WHERE invoice_id = $1 ORDER BY created_at ASC`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*InvoiceItem
	for rows.Next() {
		var it InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.Description, &it.Qty, &it.UnitPrice,
			&it.LineTotal, &it.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &it)
	}
	return out, rows.Err()
}

func (r *repoPG) PatientContact(ctx context.Context, patientID uuid.UUID) (*Contact, error) {
	ctx, cancel := db.Bound(ctx, r.timeout)
	defer cancel()

	var c Contact
	err := r.conn.QueryRow(ctx, `SELECT full_name, email, phone FROM patients WHERE id = $1`,
		patientID).Scan(&c.FullName, &c.Email, &c.Phone)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repoPG) MarkSent(ctx context.Context, id uuid.UUID, to string, at time.Time) (bool, error) {
	ctx, cancel := db.Bound(ctx, r.timeout)
	defer cancel()

	tag, err := r.conn.Exec(ctx, `UPDATE invoices SET status = $2, sent_to_email = $3, sent_at = $4
		WHERE id = $1`, id, StatusSent, to, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
