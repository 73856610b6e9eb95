package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Invoice, error)
	// ListForPatients returns the invoices of every given patient, newest first.
	ListForPatients(ctx context.Context, ids []uuid.UUID) ([]*Invoice, error)
	// Items returns the lines of an invoice in insertion order.
	Items(ctx context.Context, invoiceID uuid.UUID) ([]*InvoiceItem, error)
	PatientContact(ctx context.Context, patientID uuid.UUID) (*Contact, error)
	MarkSent(ctx context.Context, id uuid.UUID, to string, at time.Time) (bool, error)
}
