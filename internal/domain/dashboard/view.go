// Package dashboard builds the staff dashboard: the filtered appointment
// table, the today worklist and the status counters.
package dashboard

import (
	"sort"
	"strings"
	"time"

	"github.com/clinic/backoffice/internal/domain/appointment"
	"github.com/clinic/backoffice/internal/domain/billing"
	"github.com/clinic/backoffice/internal/domain/patient"
)

// All disables a filter dimension.
const All = "all"

// DefaultTodayLimit caps the rendered today list.
const DefaultTodayLimit = 8

// Row is an appointment with the insights of its patient attached.
type Row struct {
	*appointment.Appointment
	LastVisit   *patient.Visit   `json:"last_visit,omitempty"`
	LastInvoice *billing.Invoice `json:"last_invoice,omitempty"`
}

type Filter struct {
	Text    string `query:"text"`
	Date    string `query:"date"`
	Status  string `query:"status"`
	Service string `query:"service"`
}

func unfiltered(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || v == All
}

func (f Filter) match(r *Row) bool {
	if text := strings.ToLower(strings.TrimSpace(f.Text)); text != "" {
		if !matchesName(r.SearchNames(), text) {
			return false
		}
	}
	if date := strings.TrimSpace(f.Date); date != "" && r.Date != date {
		return false
	}
	if !unfiltered(f.Status) && string(r.Status) != strings.TrimSpace(f.Status) {
		return false
	}
	if !unfiltered(f.Service) && r.Service != strings.TrimSpace(f.Service) {
		return false
	}
	return true
}

func matchesName(names []string, text string) bool {
	for _, n := range names {
		if strings.Contains(strings.ToLower(n), text) {
			return true
		}
	}
	return false
}

// ApplyFilters returns the rows matching every predicate of f, in input order.
func ApplyFilters(rows []*Row, f Filter) []*Row {
	out := make([]*Row, 0, len(rows))
	for _, r := range rows {
		if f.match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Policy holds the knobs that differ between dashboard variants.
type Policy struct {
	TodayIncludeCancelled bool
	TodayLimit            int
	Location              *time.Location
}

func (p Policy) limit() int {
	if p.TodayLimit <= 0 {
		return DefaultTodayLimit
	}
	return p.TodayLimit
}

func (p Policy) location() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}

type Today struct {
	Date  string `json:"date"`
	Rows  []*Row `json:"rows"`
	Total int    `json:"total"`
}

// BuildToday selects the rows dated today in the clinic's zone, sorted by
// their time string. Total counts every match; Rows is capped.
func BuildToday(rows []*Row, now time.Time, p Policy) Today {
	date := now.In(p.location()).Format("2006-01-02")
	var matched []*Row
	for _, r := range rows {
		if r.Date != date {
			continue
		}
		if r.Status == appointment.StatusCancelled && !p.TodayIncludeCancelled {
			continue
		}
		matched = append(matched, r)
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Time < matched[j].Time })

	t := Today{Date: date, Total: len(matched), Rows: matched}
	if t.Rows == nil {
		t.Rows = []*Row{}
	}
	if len(t.Rows) > p.limit() {
		t.Rows = t.Rows[:p.limit()]
	}
	return t
}

type KPIs struct {
	Total     int `json:"total"`
	New       int `json:"new"`
	Confirmed int `json:"confirmed"`
	Cancelled int `json:"cancelled"`
}

// BuildKPIs counts rows per status. Unknown statuses only count toward Total.
func BuildKPIs(rows []*Row) KPIs {
	k := KPIs{Total: len(rows)}
	for _, r := range rows {
		switch r.Status {
		case appointment.StatusNew:
			k.New++
		case appointment.StatusConfirmed:
			k.Confirmed++
		case appointment.StatusCancelled:
			k.Cancelled++
		}
	}
	return k
}
