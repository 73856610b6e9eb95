package dashboard

import (
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/clinic/backoffice/internal/domain/appointment"
)

func newTestHandler() (*Handler, *memAppts) {
	src := &memAppts{rows: []*appointment.Appointment{
		linked("Dana Levi", "2025-03-01", "10:00", appointment.StatusConfirmed),
		linked("Avi Cohen", "2025-03-02", "09:00", appointment.StatusNew),
	}}
	return NewHandler(newTestAggregator(src, &fakeInsights{})), src
}

func TestHandler_View_FiltersFromQuery(t *testing.T) {
	h, _ := newTestHandler()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/dashboard?text=avi&status=all", nil), rec)

	if err := h.View(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var v struct {
		Rows []struct {
			PatientName string `json:"patient_name"`
		} `json:"rows"`
		KPIs            KPIs `json:"kpis"`
		AccountingCount int  `json:"accounting_count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(v.Rows) != 1 || v.Rows[0].PatientName != "Avi Cohen" {
		t.Errorf("unexpected rows %+v", v.Rows)
	}
	if v.KPIs.Total != 1 || v.AccountingCount != 1 {
		t.Errorf("unexpected counters %+v / %d", v.KPIs, v.AccountingCount)
	}
}

func TestHandler_Refresh(t *testing.T) {
	h, src := newTestHandler()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/dashboard/refresh", nil), rec)

	if err := h.Refresh(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK || src.calls != 1 {
		t.Errorf("expected 200 and one load, got %d and %d", rec.Code, src.calls)
	}
}

func TestHandler_Export(t *testing.T) {
	h, _ := newTestHandler()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/dashboard/export.csv?date=2025-03-01", nil), rec)

	if err := h.Export(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("expected csv content type, got %s", ct)
	}
	records, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}
	if len(records) != 2 || records[1][2] != "Dana Levi" {
		t.Errorf("unexpected records %v", records)
	}
}
