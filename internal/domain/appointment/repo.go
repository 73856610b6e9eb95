package appointment

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create runs the intake procedure, which also links or creates the patient.
	Create(ctx context.Context, in *CreateInput) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// List returns appointments newest first.
	List(ctx context.Context, limit, offset int) ([]*Appointment, int, error)
	ListAll(ctx context.Context) ([]*Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error)
	// UpdateStatus and Delete report whether a row matched.
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}
