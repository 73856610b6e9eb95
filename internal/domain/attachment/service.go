package attachment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/clinic/backoffice/internal/platform/apperr"
	"github.com/clinic/backoffice/internal/platform/blobstore"
)

const (
	DefaultLinkTTL     = 30 * time.Minute
	defaultParallelism = 8
)

// Service lists appointment files with time-limited links and stores new
// uploads. A single blob store instance is shared by both paths.
type Service struct {
	repo        Repository
	blobs       blobstore.Store
	ttl         time.Duration
	parallelism int
	logger      zerolog.Logger
	now         func() time.Time
}

func NewService(repo Repository, blobs blobstore.Store, ttl time.Duration, logger zerolog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultLinkTTL
	}
	return &Service{
		repo:        repo,
		blobs:       blobs,
		ttl:         ttl,
		parallelism: defaultParallelism,
		logger:      logger.With().Str("component", "attachments").Logger(),
		now:         time.Now,
	}
}

func (s *Service) ListForAppointment(ctx context.Context, appointmentID uuid.UUID) ([]Descriptor, error) {
	return s.list(ctx, []uuid.UUID{appointmentID})
}

func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]Descriptor, error) {
	ids, err := s.repo.AppointmentIDsForPatient(ctx, patientID)
	if err != nil {
		return nil, apperr.FromStore("list patient appointments", "patient", patientID.String(), err)
	}
	if len(ids) == 0 {
		return []Descriptor{}, nil
	}
	return s.list(ctx, ids)
}

func (s *Service) list(ctx context.Context, ids []uuid.UUID) ([]Descriptor, error) {
	files, err := s.repo.ListByAppointments(ctx, ids)
	if err != nil {
		return nil, apperr.FromStore("list files", "appointment", joinIDs(ids), err)
	}
	if len(files) == 0 {
		return []Descriptor{}, nil
	}

	slots, err := s.repo.AppointmentSlots(ctx, ids)
	if err != nil {
		// Enrichment only; the files are still listed.
		s.logger.Warn().Err(err).Msg("appointment date lookup failed")
		slots = nil
	}
	return s.Resolve(ctx, files, slots), nil
}

// Resolve builds one descriptor per file in input order. Links are issued
// concurrently; a file whose link cannot be issued gets a nil URL.
func (s *Service) Resolve(ctx context.Context, files []*File, slots map[uuid.UUID]Slot) []Descriptor {
	out := make([]Descriptor, len(files))
	var g errgroup.Group
	g.SetLimit(s.parallelism)

	for i, f := range files {
		d := Descriptor{
			ID:            f.ID,
			AppointmentID: f.AppointmentID,
			FileName:      f.FileName,
			FileType:      f.FileType,
			CreatedAt:     f.CreatedAt,
		}
		if slot, ok := slots[f.AppointmentID]; ok {
			d.Date, d.Time = slot.Date, slot.Time
		}
		out[i] = d

		i, path := i, f.FilePath
		g.Go(func() error {
			out[i].URL = s.link(ctx, path)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// link tries a signed URL, then the public URL.
func (s *Service) link(ctx context.Context, path string) *string {
	signed, err := s.blobs.SignedURL(ctx, path, s.ttl)
	if err == nil && signed != "" {
		return &signed
	}
	signErr := apperr.Blob("sign", path, err)

	public, err := s.blobs.PublicURL(path)
	if err == nil && public != "" {
		return &public
	}
	s.logger.Warn().
		Err(signErr).
		AnErr("public_err", err).
		Str("file_path", path).
		Msg("no link available for file")
	return nil
}

// Upload stores one file and records it. When the blob write fails no row is
// written; when the row insert fails the stored blob is left in place.
func (s *Service) Upload(ctx context.Context, appointmentID uuid.UUID, u Upload) (*File, error) {
	name := SanitizeFileName(u.FileName)
	path := ObjectPath(appointmentID, s.now(), name)

	if err := s.blobs.Put(ctx, path, u.ContentType, u.Body, u.Size); err != nil {
		berr := apperr.Blob("put", path, err)
		s.logger.Error().Err(berr).Str("appointment_id", appointmentID.String()).Msg("file upload failed")
		return nil, berr
	}

	f := &File{
		AppointmentID: appointmentID,
		FileName:      u.FileName,
		FilePath:      path,
	}
	if u.ContentType != "" {
		ct := u.ContentType
		f.FileType = &ct
	}
	if err := s.repo.Create(ctx, f); err != nil {
		perr := apperr.FromStore("insert file", "appointment", appointmentID.String(), err)
		s.logger.Error().Err(perr).Str("file_path", path).Msg("file row insert failed; blob kept")
		return nil, perr
	}
	return f, nil
}

// UploadAll uploads each file independently and reports every outcome.
func (s *Service) UploadAll(ctx context.Context, appointmentID uuid.UUID, uploads []Upload) []UploadResult {
	results := make([]UploadResult, 0, len(uploads))
	for _, u := range uploads {
		f, err := s.Upload(ctx, appointmentID, u)
		r := UploadResult{FileName: u.FileName, File: f, Err: err}
		if err != nil {
			r.Error = err.Error()
		}
		results = append(results, r)
	}
	return results
}

// SanitizeFileName replaces every character outside letters, digits, and
// ". _ - ( ) space" with an underscore. An empty result becomes "file".
func SanitizeFileName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '_', r == '-', r == '(', r == ')', r == ' ':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}

// ObjectPath is the blob key for an upload: appointments/{id}/{epochMillis}_{name}.
func ObjectPath(appointmentID uuid.UUID, at time.Time, safeName string) string {
	return fmt.Sprintf("appointments/%s/%d_%s", appointmentID, at.UnixMilli(), safeName)
}

func joinIDs(ids []uuid.UUID) string {
	if len(ids) == 1 {
		return ids[0].String()
	}
	return fmt.Sprintf("%d appointments", len(ids))
}
