package settings

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/backoffice/internal/platform/db"
)

type queryable interface {
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

const settingsCols = `id, doctor_title, doctor_name, license_number, clinic_name, clinic_address,
	whatsapp, email, clinic_hours, signature_url, logo_url, invoice_footer,
	calendar_url, accounting_url, business_id, updated_at`

func (r *repoPG) Latest(ctx context.Context) (*Settings, error) {
	ctx, cancel := db.Bound(ctx, r.timeout)
	defer cancel()

	var s Settings
	err := r.conn.QueryRow(ctx, `SELECT `+settingsCols+` FROM clinic_settings
		ORDER BY updated_at DESC LIMIT 1`).Scan(
		&s.ID, &s.DoctorTitle, &s.DoctorName, &s.LicenseNumber, &s.ClinicName, &s.ClinicAddress,
		&s.WhatsApp, &s.Email, &s.ClinicHours, &s.SignatureURL, &s.LogoURL, &s.InvoiceFooter,
		&s.CalendarURL, &s.AccountingURL, &s.BusinessID, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) Update(ctx context.Context, s *Settings) error {
	ctx, cancel := db.Bound(ctx, r.timeout)
	defer cancel()

	return r.conn.QueryRow(ctx, `
		UPDATE clinic_settings SET doctor_title = $2, doctor_name = $3, license_number = $4,
			clinic_name = $5, clinic_address = $6, whatsapp = $7, email = $8, clinic_hours = $9,
			signature_url = $10, logo_url = $11, invoice_footer = $12, calendar_url = $13,
			accounting_url = $14, business_id = $15, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		s.ID, s.DoctorTitle, s.DoctorName, s.LicenseNumber, s.ClinicName, s.ClinicAddress,
		s.WhatsApp, s.Email, s.ClinicHours, s.SignatureURL, s.LogoURL, s.InvoiceFooter,
		s.CalendarURL, s.AccountingURL, s.BusinessID).Scan(&s.UpdatedAt)
}

func (r *repoPG) Insert(ctx context.Context, s *Settings) error {
	ctx, cancel := db.Bound(ctx, r.timeout)
	defer cancel()

	return r.conn.QueryRow(ctx, `
		INSERT INTO clinic_settings (doctor_title, doctor_name, license_number, clinic_name,
			clinic_address, whatsapp, email, clinic_hours, signature_url, logo_url,
			invoice_footer, calendar_url, accounting_url, business_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, updated_at`,
		s.DoctorTitle, s.DoctorName, s.LicenseNumber, s.ClinicName, s.ClinicAddress,
		s.WhatsApp, s.Email, s.ClinicHours, s.SignatureURL, s.LogoURL, s.InvoiceFooter,
		s.CalendarURL, s.AccountingURL, s.BusinessID).Scan(&s.ID, &s.UpdatedAt)
}
