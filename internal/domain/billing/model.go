package billing

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultCurrency applies when an invoice row carries none.
const DefaultCurrency = "ILS"

const (
	StatusDraft = "draft"
	StatusSent  = "sent"
	StatusPaid  = "paid"
)

// Invoice maps to the invoices table. Status is an open string; the known
// values are draft, sent and paid.
type Invoice struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	PatientID     uuid.UUID  `db:"patient_id" json:"patient_id"`
	InvoiceNumber string     `db:"invoice_number" json:"invoice_number"`
	Status        string     `db:"status" json:"status"`
	Subtotal      float64    `db:"subtotal" json:"subtotal"`
	Tax           float64    `db:"tax" json:"tax"`
	Total         float64    `db:"total" json:"total"`
	Currency      string     `db:"currency" json:"currency"`
	SentToEmail   *string    `db:"sent_to_email" json:"sent_to_email,omitempty"`
	SentAt        *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// IsPaid compares the status case-insensitively.
func (i *Invoice) IsPaid() bool {
	return strings.EqualFold(strings.TrimSpace(i.Status), StatusPaid)
}

// InvoiceItem maps to invoice_items. LineTotal is stored, not recomputed.
type InvoiceItem struct {
	ID          uuid.UUID `db:"id" json:"id"`
	InvoiceID   uuid.UUID `db:"invoice_id" json:"invoice_id"`
	Description string    `db:"description" json:"description"`
	Qty         float64   `db:"qty" json:"qty"`
	UnitPrice   float64   `db:"unit_price" json:"unit_price"`
	LineTotal   float64   `db:"line_total" json:"line_total"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Contact is the patient data printed on an invoice.
type Contact struct {
	FullName string
	Email    *string
	Phone    *string
}

// InvoiceWithItems is the detail view.
type InvoiceWithItems struct {
	*Invoice
	Items []*InvoiceItem `json:"items"`
}
