package dashboard

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/clinic/backoffice/internal/domain/appointment"
	"github.com/clinic/backoffice/internal/domain/billing"
	"github.com/clinic/backoffice/internal/domain/patient"
)

func TestWriteCSV_RoundTrip(t *testing.T) {
	notes := "needs \"quiet\" room, please\nsecond line"
	r := row("Dana Levi", "2025-03-01", "10:00", appointment.StatusNew, "consult")
	r.Notes = &notes
	r.LastVisit = &patient.Visit{VisitDate: "2025-02-01"}
	r.LastInvoice = &billing.Invoice{InvoiceNumber: "INV-1", Status: "sent", Total: 120}
	bare := row("Avi Cohen", "2025-03-02", "09:00", appointment.StatusConfirmed, "followup")

	var buf bytes.Buffer
	if err := WriteCSV(&buf, []*Row{r, bare}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(records))
	}
	if strings.Join(records[0], ",") != strings.Join(CSVHeader, ",") {
		t.Errorf("unexpected header %v", records[0])
	}

	col := func(name string) int {
		for i, h := range CSVHeader {
			if h == name {
				return i
			}
		}
		t.Fatalf("no column %s", name)
		return -1
	}
	if got := records[1][col("notes")]; got != notes {
		t.Errorf("notes did not round-trip: %q", got)
	}
	if got := records[1][col("last_invoice_total")]; got != "120.00" {
		t.Errorf("expected 120.00, got %q", got)
	}
	if got := records[1][col("last_visit_date")]; got != "2025-02-01" {
		t.Errorf("expected last visit date, got %q", got)
	}
	for _, name := range []string{"notes", "email", "last_invoice_number"} {
		if got := records[2][col(name)]; got != "" {
			t.Errorf("expected empty %s, got %q", name, got)
		}
	}
}

func TestWriteCSV_NoRows(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Count(buf.String(), "\n") != 1 {
		t.Errorf("expected header only, got %q", buf.String())
	}
}
