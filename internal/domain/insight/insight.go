// Package insight attaches each patient's latest visit and latest invoice to
// the dashboard rows.
package insight

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/clinic/backoffice/internal/domain/billing"
	"github.com/clinic/backoffice/internal/domain/patient"
)

// VisitSource returns visits of the given patients, newest first.
type VisitSource interface {
	VisitsForPatients(ctx context.Context, ids []uuid.UUID) ([]*patient.Visit, error)
}

// InvoiceSource returns invoices of the given patients, newest first.
type InvoiceSource interface {
	ListForPatients(ctx context.Context, ids []uuid.UUID) ([]*billing.Invoice, error)
}

type Insights struct {
	LastVisit   map[uuid.UUID]*patient.Visit   `json:"last_visit"`
	LastInvoice map[uuid.UUID]*billing.Invoice `json:"last_invoice"`
	// UnpaidCount counts hydrated last invoices whose status is not paid.
	UnpaidCount int `json:"unpaid_count"`
}

func empty() *Insights {
	return &Insights{
		LastVisit:   map[uuid.UUID]*patient.Visit{},
		LastInvoice: map[uuid.UUID]*billing.Invoice{},
	}
}

type Hydrator struct {
	visits   VisitSource
	invoices InvoiceSource
	logger   zerolog.Logger
}

func NewHydrator(visits VisitSource, invoices InvoiceSource, logger zerolog.Logger) *Hydrator {
	return &Hydrator{
		visits:   visits,
		invoices: invoices,
		logger:   logger.With().Str("component", "insight").Logger(),
	}
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Hydrate runs the visit and invoice lookups concurrently. A failed lookup is
// logged and leaves its map empty; Hydrate itself never fails.
func (h *Hydrator) Hydrate(ctx context.Context, patientIDs []uuid.UUID) *Insights {
	res := empty()
	ids := dedupe(patientIDs)
	if len(ids) == 0 {
		return res
	}

	var g errgroup.Group
	g.Go(func() error {
		visits, err := h.visits.VisitsForPatients(ctx, ids)
		if err != nil {
			h.logger.Warn().Err(err).Int("patients", len(ids)).Msg("visit lookup failed")
			return nil
		}
		for _, v := range visits {
			if _, ok := res.LastVisit[v.PatientID]; !ok {
				res.LastVisit[v.PatientID] = v
			}
		}
		return nil
	})
	g.Go(func() error {
		invoices, err := h.invoices.ListForPatients(ctx, ids)
		if err != nil {
			h.logger.Warn().Err(err).Int("patients", len(ids)).Msg("invoice lookup failed")
			return nil
		}
		for _, inv := range invoices {
			if _, ok := res.LastInvoice[inv.PatientID]; !ok {
				res.LastInvoice[inv.PatientID] = inv
			}
		}
		return nil
	})
	_ = g.Wait()

	for _, inv := range res.LastInvoice {
		if !inv.IsPaid() {
			res.UnpaidCount++
		}
	}
	return res
}
