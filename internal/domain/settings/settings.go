package settings

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/clinic/backoffice/internal/platform/apperr"
)

// Settings is the clinic profile shown on invoices and the dashboard. Only
// the most recently updated row is ever read.
type Settings struct {
	ID            uuid.UUID `json:"id"`
	DoctorTitle   *string   `json:"doctor_title,omitempty"`
	DoctorName    *string   `json:"doctor_name,omitempty"`
	LicenseNumber *string   `json:"license_number,omitempty"`
	ClinicName    *string   `json:"clinic_name,omitempty"`
	ClinicAddress *string   `json:"clinic_address,omitempty"`
	WhatsApp      *string   `json:"whatsapp,omitempty"`
	Email         *string   `json:"email,omitempty"`
	ClinicHours   *string   `json:"clinic_hours,omitempty"`
	SignatureURL  *string   `json:"signature_url,omitempty"`
	LogoURL       *string   `json:"logo_url,omitempty"`
	InvoiceFooter *string   `json:"invoice_footer,omitempty"`
	CalendarURL   *string   `json:"calendar_url,omitempty"`
	AccountingURL *string   `json:"accounting_url,omitempty"`
	BusinessID    *string   `json:"business_id,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Normalize trims every field and turns blanks into NULL.
func (s *Settings) Normalize() {
	for _, f := range []**string{
		&s.DoctorTitle, &s.DoctorName, &s.LicenseNumber, &s.ClinicName, &s.ClinicAddress,
		&s.WhatsApp, &s.Email, &s.ClinicHours, &s.SignatureURL, &s.LogoURL,
		&s.InvoiceFooter, &s.CalendarURL, &s.AccountingURL, &s.BusinessID,
	} {
		if *f == nil {
			continue
		}
		v := strings.TrimSpace(**f)
		if v == "" {
			*f = nil
		} else {
			*f = &v
		}
	}
}

type Repository interface {
	// Latest returns the newest row by updated_at, or pgx.ErrNoRows.
	Latest(ctx context.Context) (*Settings, error)
	Update(ctx context.Context, s *Settings) error
	Insert(ctx context.Context, s *Settings) error
}

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "settings").Logger()}
}

// Get returns the current settings. A clinic that never saved any gets an
// empty profile rather than an error.
func (s *Service) Get(ctx context.Context) (*Settings, error) {
	cur, err := s.repo.Latest(ctx)
	if errors.Is(err, pgx.ErrNoRows) {
		return &Settings{}, nil
	}
	if err != nil {
		return nil, apperr.FromStore("load settings", "clinic_settings", "", err)
	}
	return cur, nil
}

// Save overwrites the newest row, or inserts the first one.
func (s *Service) Save(ctx context.Context, in *Settings) (*Settings, error) {
	in.Normalize()

	cur, err := s.repo.Latest(ctx)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		err = s.repo.Insert(ctx, in)
	case err != nil:
	default:
		in.ID = cur.ID
		err = s.repo.Update(ctx, in)
	}
	if err != nil {
		err = apperr.FromStore("save settings", "clinic_settings", in.ID.String(), err)
		s.logger.Error().Err(err).Msg("settings save failed")
		return nil, err
	}
	return in, nil
}
