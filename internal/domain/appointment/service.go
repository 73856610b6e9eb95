package appointment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/backoffice/internal/domain/attachment"
	"github.com/clinic/backoffice/internal/platform/apperr"
)

// FileUploader stores the files submitted with an appointment.
type FileUploader interface {
	UploadAll(ctx context.Context, appointmentID uuid.UUID, uploads []attachment.Upload) []attachment.UploadResult
}

type Option func(*Service)

// WithStrictTransitions makes confirmed and cancelled terminal.
func WithStrictTransitions() Option {
	return func(s *Service) { s.strict = true }
}

type Service struct {
	repo   Repository
	files  FileUploader
	strict bool
	logger zerolog.Logger
}

func NewService(repo Repository, files FileUploader, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		files:  files,
		logger: logger.With().Str("component", "appointments").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateResult carries the new id and the per-file upload outcomes. Upload
// failures do not undo the appointment.
type CreateResult struct {
	ID      uuid.UUID                 `json:"id"`
	Uploads []attachment.UploadResult `json:"uploads"`
}

// Normalize trims every field in place.
func (in *CreateInput) Normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Service = strings.TrimSpace(in.Service)
	in.Date = strings.TrimSpace(in.Date)
	in.Time = strings.TrimSpace(in.Time)
	in.Notes = strings.TrimSpace(in.Notes)
}

// Validate reports every missing required field at once. A contact is either
// an e-mail or a phone number.
func (in *CreateInput) Validate() error {
	var missing []string
	if in.FirstName == "" {
		missing = append(missing, "first_name")
	}
	if in.LastName == "" {
		missing = append(missing, "last_name")
	}
	if in.Email == "" && in.Phone == "" {
		missing = append(missing, "email_or_phone")
	}
	if in.Service == "" {
		missing = append(missing, "service")
	}
	if in.Date == "" {
		missing = append(missing, "date")
	}
	if in.Time == "" {
		missing = append(missing, "time")
	}
	if len(missing) > 0 {
		return apperr.MissingFields(missing...)
	}
	if _, err := time.Parse("2006-01-02", in.Date); err != nil {
		return &apperr.ValidationError{Fields: []string{"date"}, Message: "date must be YYYY-MM-DD"}
	}
	return nil
}

// Create validates, stores the appointment, then uploads any queued files.
func (s *Service) Create(ctx context.Context, in *CreateInput, uploads []attachment.Upload) (*CreateResult, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	id, err := s.repo.Create(ctx, in)
	if err != nil {
		err = apperr.FromStore("create appointment", "appointment", "", err)
		s.logger.Error().Err(err).Str("service", in.Service).Msg("appointment create failed")
		return nil, err
	}

	res := &CreateResult{ID: id, Uploads: []attachment.UploadResult{}}
	if len(uploads) > 0 && s.files != nil {
		res.Uploads = s.files.UploadAll(ctx, id, uploads)
		for _, u := range res.Uploads {
			if u.Err != nil {
				s.logger.Warn().Err(u.Err).
					Str("appointment_id", id.String()).
					Str("file_name", u.FileName).
					Msg("attachment not stored")
			}
		}
	}
	return res, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.FromStore("get appointment", "appointment", id.String(), err)
	}
	return a, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Appointment, int, error) {
	items, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperr.FromStore("list appointments", "appointment", "", err)
	}
	return items, total, nil
}

// ListAll returns every appointment, newest first.
func (s *Service) ListAll(ctx context.Context) ([]*Appointment, error) {
	items, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, apperr.FromStore("list appointments", "appointment", "", err)
	}
	return items, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error) {
	items, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, apperr.FromStore("list patient appointments", "patient", patientID.String(), err)
	}
	return items, nil
}

// SetStatus moves an appointment to status. Repeating the current status is a
// no-op that succeeds.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status Status) error {
	if !status.Valid() {
		return &apperr.ValidationError{
			Fields:  []string{"status"},
			Message: fmt.Sprintf("invalid appointment status: %s", status),
		}
	}

	if s.strict {
		cur, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if cur.Status == status {
			return nil
		}
		if cur.Status != StatusNew {
			return &apperr.ValidationError{
				Fields:  []string{"status"},
				Message: fmt.Sprintf("cannot change status from %s to %s", cur.Status, status),
			}
		}
	}

	found, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		err = apperr.FromStore("update appointment status", "appointment", id.String(), err)
		s.logger.Error().Err(err).Str("appointment_id", id.String()).Msg("status update failed")
		return err
	}
	if !found {
		return apperr.NotFound("appointment", id.String())
	}
	return nil
}

// Delete removes the appointment row. Its files stay in place.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	found, err := s.repo.Delete(ctx, id)
	if err != nil {
		err = apperr.FromStore("delete appointment", "appointment", id.String(), err)
		s.logger.Error().Err(err).Str("appointment_id", id.String()).Msg("delete failed")
		return err
	}
	if !found {
		return apperr.NotFound("appointment", id.String())
	}
	return nil
}
