package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/backoffice/internal/domain/appointment"
	"github.com/clinic/backoffice/internal/domain/billing"
	"github.com/clinic/backoffice/internal/domain/insight"
	"github.com/clinic/backoffice/internal/domain/patient"
)

type memAppts struct {
	mu    sync.Mutex
	rows  []*appointment.Appointment
	err   error
	calls int
}

func (m *memAppts) ListAll(context.Context) ([]*appointment.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*appointment.Appointment, len(m.rows))
	for i, a := range m.rows {
		cp := *a
		out[i] = &cp
	}
	return out, nil
}

type fakeInsights struct {
	mu  sync.Mutex
	res *insight.Insights
	got []uuid.UUID
}

func (f *fakeInsights) Hydrate(_ context.Context, ids []uuid.UUID) *insight.Insights {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = ids
	if f.res == nil {
		return &insight.Insights{LastVisit: map[uuid.UUID]*patient.Visit{}, LastInvoice: map[uuid.UUID]*billing.Invoice{}}
	}
	return f.res
}

func linked(name, date, tm string, status appointment.Status) *appointment.Appointment {
	pid := uuid.New()
	a := &appointment.Appointment{ID: uuid.New(), PatientID: &pid, Date: date, Time: tm, Status: status, Service: "consult"}
	a.Patient = appointment.LinkedPatient{ID: pid, FullName: name}
	a.PatientName = appointment.DisplayName(a.Patient)
	return a
}

func newTestAggregator(src *memAppts, ins InsightSource) *Aggregator {
	a := NewAggregator(src, ins, Policy{Location: time.UTC}, zerolog.Nop())
	a.now = func() time.Time { return time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC) }
	return a
}

func TestAggregator_DanaLeviScenario(t *testing.T) {
	dana := linked("Dana Levi", "2025-03-01", "10:00", appointment.StatusNew)
	src := &memAppts{rows: []*appointment.Appointment{dana}}
	agg := newTestAggregator(src, &fakeInsights{})

	v, err := agg.View(context.Background(), Filter{Text: "dana", Status: "confirmed"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v.Rows) != 0 {
		t.Fatalf("expected no confirmed rows yet, got %d", len(v.Rows))
	}

	src.mu.Lock()
	src.rows[0].Status = appointment.StatusConfirmed
	src.mu.Unlock()

	if _, err := agg.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	v, _ = agg.View(context.Background(), Filter{Text: "dana", Status: "confirmed"})
	if len(v.Rows) != 1 || v.Rows[0].ID != dana.ID {
		t.Fatalf("expected Dana Levi after confirm, got %+v", v.Rows)
	}
	if v.KPIs.Confirmed != 1 || v.AccountingCount != 1 {
		t.Errorf("unexpected counters kpis=%+v accounting=%d", v.KPIs, v.AccountingCount)
	}
	if v.Today.Total != 1 {
		t.Errorf("expected Dana on today's list, got %d", v.Today.Total)
	}
}

func TestAggregator_LazyRefreshOnce(t *testing.T) {
	src := &memAppts{rows: []*appointment.Appointment{linked("Dana Levi", "2025-03-01", "10:00", appointment.StatusNew)}}
	agg := newTestAggregator(src, &fakeInsights{})

	for i := 0; i < 3; i++ {
		if _, err := agg.View(context.Background(), Filter{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if src.calls != 1 {
		t.Errorf("expected one load, got %d", src.calls)
	}
}

func TestAggregator_AttachesInsights(t *testing.T) {
	a := linked("Dana Levi", "2025-03-01", "10:00", appointment.StatusNew)
	inline := &appointment.Appointment{ID: uuid.New(), Date: "2025-03-01", Time: "11:00", Status: appointment.StatusNew}
	visit := &patient.Visit{PatientID: *a.PatientID, VisitDate: "2025-02-01"}
	inv := &billing.Invoice{PatientID: *a.PatientID, Status: "sent"}
	ins := &fakeInsights{res: &insight.Insights{
		LastVisit:   map[uuid.UUID]*patient.Visit{*a.PatientID: visit},
		LastInvoice: map[uuid.UUID]*billing.Invoice{*a.PatientID: inv},
		UnpaidCount: 1,
	}}
	agg := newTestAggregator(&memAppts{rows: []*appointment.Appointment{a, inline}}, ins)

	s, err := agg.Refresh(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ins.got) != 1 || ins.got[0] != *a.PatientID {
		t.Errorf("expected only linked patient ids hydrated, got %v", ins.got)
	}
	if s.Rows[0].LastVisit != visit || s.Rows[0].LastInvoice != inv {
		t.Error("expected insights on linked row")
	}
	if s.Rows[1].LastVisit != nil {
		t.Error("expected no insight on inline row")
	}
	if s.UnpaidCount != 1 {
		t.Errorf("expected unpaid 1, got %d", s.UnpaidCount)
	}
}

func TestAggregator_RefreshFailureKeepsSnapshot(t *testing.T) {
	src := &memAppts{rows: []*appointment.Appointment{linked("Dana Levi", "2025-03-01", "10:00", appointment.StatusNew)}}
	agg := newTestAggregator(src, &fakeInsights{})
	first, _ := agg.Refresh(context.Background())

	src.err = errors.New("db down")
	if _, err := agg.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	cur, err := agg.Snapshot(context.Background())
	if err != nil || cur != first {
		t.Error("expected previous snapshot to remain")
	}
}

func TestAggregator_ConcurrentViewAndRefresh(t *testing.T) {
	src := &memAppts{rows: []*appointment.Appointment{linked("Dana Levi", "2025-03-01", "10:00", appointment.StatusNew)}}
	agg := newTestAggregator(src, &fakeInsights{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			agg.Refresh(context.Background())
		}()
		go func() {
			defer wg.Done()
			if _, err := agg.View(context.Background(), Filter{}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
}
