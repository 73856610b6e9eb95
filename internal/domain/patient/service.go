package patient

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/backoffice/internal/platform/apperr"
)

// ListLimit caps the registry listing.
const ListLimit = 500

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "patients").Logger()}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func lower(s *string) string {
	if s == nil {
		return ""
	}
	return strings.ToLower(*s)
}

func validDate(field, v string) error {
	if _, err := time.Parse("2006-01-02", v); err != nil {
		return &apperr.ValidationError{Fields: []string{field}, Message: field + " must be YYYY-MM-DD"}
	}
	return nil
}

func (in PatientInput) toPatient() (*Patient, error) {
	p := &Patient{
		FullName:    strings.TrimSpace(in.FullName),
		Email:       optional(in.Email),
		Phone:       optional(in.Phone),
		PersonalID:  optional(in.PersonalID),
		DateOfBirth: optional(in.DateOfBirth),
		Allergies:   optional(in.Allergies),
	}
	if p.FullName == "" {
		return nil, apperr.MissingFields("full_name")
	}
	if p.DateOfBirth != nil {
		if err := validDate("date_of_birth", *p.DateOfBirth); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Search lists the registry and keeps patients whose name, e-mail or personal
// id contains q (case-insensitive) or whose phone contains q's digits. An
// empty q returns the whole listing.
func (s *Service) Search(ctx context.Context, q string) ([]*Patient, error) {
	all, err := s.repo.List(ctx, ListLimit)
	if err != nil {
		err = apperr.FromStore("list patients", "patient", "", err)
		s.logger.Error().Err(err).Msg("patient listing failed")
		return nil, err
	}
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return all, nil
	}
	out := make([]*Patient, 0, len(all))
	for _, p := range all {
		if strings.Contains(strings.ToLower(p.FullName), q) ||
			strings.Contains(lower(p.Email), q) ||
			strings.Contains(lower(p.PersonalID), q) ||
			(p.Phone != nil && phoneMatches(*p.Phone, q)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.FromStore("get patient", "patient", id.String(), err)
	}
	return p, nil
}

func (s *Service) Create(ctx context.Context, in PatientInput) (*Patient, error) {
	p, err := in.toPatient()
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		err = apperr.FromStore("create patient", "patient", "", err)
		s.logger.Error().Err(err).Msg("patient create failed")
		return nil, err
	}
	return p, nil
}

// Update overwrites every editable field. Blank optional fields, allergies
// included, are stored as NULL.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in PatientInput) (*Patient, error) {
	p, err := in.toPatient()
	if err != nil {
		return nil, err
	}
	p.ID = id
	found, err := s.repo.Update(ctx, p)
	if err != nil {
		err = apperr.FromStore("update patient", "patient", id.String(), err)
		s.logger.Error().Err(err).Str("patient_id", id.String()).Msg("patient update failed")
		return nil, err
	}
	if !found {
		return nil, apperr.NotFound("patient", id.String())
	}
	return s.Get(ctx, id)
}

func (s *Service) ListVisits(ctx context.Context, patientID uuid.UUID) ([]*Visit, error) {
	items, err := s.repo.ListVisits(ctx, patientID)
	if err != nil {
		return nil, apperr.FromStore("list visits", "patient", patientID.String(), err)
	}
	return items, nil
}

func (in VisitInput) toVisit(patientID uuid.UUID) (*Visit, error) {
	date := strings.TrimSpace(in.VisitDate)
	if date == "" {
		return nil, apperr.MissingFields("visit_date")
	}
	if err := validDate("visit_date", date); err != nil {
		return nil, err
	}
	return &Visit{
		PatientID:   patientID,
		VisitDate:   date,
		Summary:     optional(in.Summary),
		DoctorNotes: optional(in.DoctorNotes),
	}, nil
}

func (s *Service) CreateVisit(ctx context.Context, patientID uuid.UUID, in VisitInput) (*Visit, error) {
	v, err := in.toVisit(patientID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateVisit(ctx, v); err != nil {
		err = apperr.FromStore("create visit", "patient", patientID.String(), err)
		s.logger.Error().Err(err).Str("patient_id", patientID.String()).Msg("visit create failed")
		return nil, err
	}
	return v, nil
}

// UpdateVisit edits a visit of patientID. A visit belonging to another
// patient is reported as not found.
func (s *Service) UpdateVisit(ctx context.Context, patientID, visitID uuid.UUID, in VisitInput) (*Visit, error) {
	v, err := in.toVisit(patientID)
	if err != nil {
		return nil, err
	}
	v.ID = visitID
	found, err := s.repo.UpdateVisit(ctx, v)
	if err != nil {
		err = apperr.FromStore("update visit", "visit", visitID.String(), err)
		s.logger.Error().Err(err).Str("visit_id", visitID.String()).Msg("visit update failed")
		return nil, err
	}
	if !found {
		return nil, apperr.NotFound("visit", visitID.String())
	}
	return v, nil
}

// VisitsForPatients is the batched visit lookup used by the dashboard
// hydrator. Rows come back newest first.
func (s *Service) VisitsForPatients(ctx context.Context, ids []uuid.UUID) ([]*Visit, error) {
	return s.repo.VisitsForPatients(ctx, ids)
}
