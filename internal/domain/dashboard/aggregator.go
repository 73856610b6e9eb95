package dashboard

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/backoffice/internal/domain/appointment"
	"github.com/clinic/backoffice/internal/domain/insight"
)

// AppointmentSource lists every appointment, newest first.
type AppointmentSource interface {
	ListAll(ctx context.Context) ([]*appointment.Appointment, error)
}

type InsightSource interface {
	Hydrate(ctx context.Context, patientIDs []uuid.UUID) *insight.Insights
}

// Snapshot is an immutable dashboard state. It is replaced, never mutated.
type Snapshot struct {
	Rows        []*Row
	UnpaidCount int
	BuiltAt     time.Time
}

type View struct {
	Rows            []*Row    `json:"rows"`
	KPIs            KPIs      `json:"kpis"`
	Today           Today     `json:"today"`
	AccountingCount int       `json:"accounting_count"`
	UnpaidCount     int       `json:"unpaid_count"`
	BuiltAt         time.Time `json:"built_at"`
}

type Aggregator struct {
	appts    AppointmentSource
	insights InsightSource
	policy   Policy
	now      func() time.Time
	snap     atomic.Pointer[Snapshot]
	logger   zerolog.Logger
}

func NewAggregator(appts AppointmentSource, insights InsightSource, policy Policy, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		appts:    appts,
		insights: insights,
		policy:   policy,
		now:      time.Now,
		logger:   logger.With().Str("component", "dashboard").Logger(),
	}
}

// Refresh loads appointments, hydrates their patients and swaps in a new
// snapshot. Concurrent refreshes race; the last one to finish wins.
func (a *Aggregator) Refresh(ctx context.Context) (*Snapshot, error) {
	appts, err := a.appts.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(appts))
	for _, ap := range appts {
		if ap.PatientID != nil {
			ids = append(ids, *ap.PatientID)
		}
	}
	ins := a.insights.Hydrate(ctx, ids)

	rows := make([]*Row, len(appts))
	for i, ap := range appts {
		r := &Row{Appointment: ap}
		if ap.PatientID != nil {
			r.LastVisit = ins.LastVisit[*ap.PatientID]
			r.LastInvoice = ins.LastInvoice[*ap.PatientID]
		}
		rows[i] = r
	}

	s := &Snapshot{Rows: rows, UnpaidCount: ins.UnpaidCount, BuiltAt: a.now()}
	a.snap.Store(s)
	a.logger.Debug().Int("rows", len(rows)).Int("patients", len(ids)).Msg("dashboard refreshed")
	return s, nil
}

// Snapshot returns the current snapshot, refreshing when there is none.
func (a *Aggregator) Snapshot(ctx context.Context) (*Snapshot, error) {
	if s := a.snap.Load(); s != nil {
		return s, nil
	}
	return a.Refresh(ctx)
}

// View filters the current snapshot. KPIs cover the filtered rows; the today
// list and the accounting count cover every row.
func (a *Aggregator) View(ctx context.Context, f Filter) (*View, error) {
	s, err := a.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	filtered := ApplyFilters(s.Rows, f)
	return &View{
		Rows:            filtered,
		KPIs:            BuildKPIs(filtered),
		Today:           BuildToday(s.Rows, a.now(), a.policy),
		AccountingCount: BuildKPIs(s.Rows).Confirmed,
		UnpaidCount:     s.UnpaidCount,
		BuiltAt:         s.BuiltAt,
	}, nil
}
