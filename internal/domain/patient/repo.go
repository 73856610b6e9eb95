package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// List returns up to limit patients ordered by full_name.
	List(ctx context.Context, limit int) ([]*Patient, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Create(ctx context.Context, p *Patient) error
	Update(ctx context.Context, p *Patient) (bool, error)

	ListVisits(ctx context.Context, patientID uuid.UUID) ([]*Visit, error)
	CreateVisit(ctx context.Context, v *Visit) error
	// UpdateVisit only touches the row when it belongs to v.PatientID.
	UpdateVisit(ctx context.Context, v *Visit) (bool, error)
	// VisitsForPatients returns every visit of the given patients, newest first.
	VisitsForPatients(ctx context.Context, ids []uuid.UUID) ([]*Visit, error)
}
