package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/clinic/backoffice/internal/domain/settings"
	"github.com/clinic/backoffice/internal/platform/apperr"
	"github.com/clinic/backoffice/internal/platform/notification"
)

// SettingsSource supplies the clinic profile printed on invoices.
type SettingsSource interface {
	Get(ctx context.Context) (*settings.Settings, error)
}

type Service struct {
	repo     Repository
	settings SettingsSource
	mailer   notification.EmailSender
	loc      *time.Location
	now      func() time.Time
	logger   zerolog.Logger
}

func NewService(repo Repository, st SettingsSource, mailer notification.EmailSender, loc *time.Location, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		settings: st,
		mailer:   mailer,
		loc:      loc,
		now:      time.Now,
		logger:   logger.With().Str("component", "billing").Logger(),
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*InvoiceWithItems, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.FromStore("get invoice", "invoice", id.String(), err)
	}
	items, err := s.repo.Items(ctx, id)
	if err != nil {
		return nil, apperr.FromStore("list invoice items", "invoice", id.String(), err)
	}
	if items == nil {
		items = []*InvoiceItem{}
	}
	return &InvoiceWithItems{Invoice: inv, Items: items}, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Invoice, error) {
	items, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, apperr.FromStore("list invoices", "patient", patientID.String(), err)
	}
	return items, nil
}

// ListForPatients is the batched invoice lookup used by the dashboard
// hydrator. Rows come back newest first.
func (s *Service) ListForPatients(ctx context.Context, ids []uuid.UUID) ([]*Invoice, error) {
	return s.repo.ListForPatients(ctx, ids)
}

// Send e-mails the invoice and marks it sent. The recipient is the address
// the invoice was last sent to, else the patient's e-mail.
func (s *Service) Send(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	inv := detail.Invoice

	contact, err := s.repo.PatientContact(ctx, inv.PatientID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.FromStore("get patient contact", "patient", inv.PatientID.String(), err)
	}

	to := val(inv.SentToEmail)
	if to == "" && contact != nil {
		to = val(contact.Email)
	}
	if to == "" {
		return nil, &apperr.ValidationError{Fields: []string{"email"}, Message: "no recipient"}
	}

	clinic, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	body, err := RenderEmail(inv, detail.Items, contact, clinic, s.loc)
	if err != nil {
		return nil, err
	}
	if err := s.mailer.SendEmail(ctx, to, Subject(inv, clinic), body); err != nil {
		s.logger.Error().Err(err).Str("invoice_id", id.String()).Msg("invoice e-mail failed")
		return nil, fmt.Errorf("send invoice %s: %w", inv.InvoiceNumber, err)
	}

	at := s.now()
	found, err := s.repo.MarkSent(ctx, id, to, at)
	if err != nil {
		err = apperr.FromStore("mark invoice sent", "invoice", id.String(), err)
		s.logger.Error().Err(err).Str("invoice_id", id.String()).Msg("invoice sent but status not updated")
		return nil, err
	}
	if !found {
		return nil, apperr.NotFound("invoice", id.String())
	}

	inv.Status = StatusSent
	inv.SentToEmail = &to
	inv.SentAt = &at
	s.logger.Info().Str("invoice_id", id.String()).Str("to", to).Msg("invoice sent")
	return inv, nil
}
