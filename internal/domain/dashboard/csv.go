package dashboard

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// CSVHeader is the export column order.
var CSVHeader = []string{
	"id", "created_at", "patient_name", "first_name", "last_name", "email", "phone",
	"service", "date", "time", "status", "notes",
	"last_visit_date", "last_invoice_number", "last_invoice_status", "last_invoice_total",
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func csvRecord(r *Row) []string {
	rec := []string{
		r.ID.String(),
		r.CreatedAt.UTC().Format(time.RFC3339),
		r.PatientName,
		str(r.FirstName),
		str(r.LastName),
		str(r.Email),
		str(r.Phone),
		r.Service,
		r.Date,
		r.Time,
		string(r.Status),
		str(r.Notes),
		"", "", "", "",
	}
	if r.LastVisit != nil {
		rec[12] = r.LastVisit.VisitDate
	}
	if inv := r.LastInvoice; inv != nil {
		rec[13] = inv.InvoiceNumber
		rec[14] = inv.Status
		rec[15] = strconv.FormatFloat(inv.Total, 'f', 2, 64)
	}
	return rec
}

// WriteCSV writes the header and one record per row. Missing values are
// written as empty fields.
func WriteCSV(w io.Writer, rows []*Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(csvRecord(r)); err != nil {
			return fmt.Errorf("write csv row %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
