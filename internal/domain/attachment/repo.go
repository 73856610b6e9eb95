package attachment

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, f *File) error
	// ListByAppointments returns files for any of ids, newest first.
	ListByAppointments(ctx context.Context, ids []uuid.UUID) ([]*File, error)
	// AppointmentSlots returns date/time for the ids that still exist.
	AppointmentSlots(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Slot, error)
	AppointmentIDsForPatient(ctx context.Context, patientID uuid.UUID) ([]uuid.UUID, error)
}
