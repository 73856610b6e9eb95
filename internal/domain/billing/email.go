package billing

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/clinic/backoffice/internal/domain/settings"
)

const defaultClinicName = "מרפאה"

var emailFuncs = template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"nl2br": func(s string) template.HTML {
		lines := strings.Split(s, "\n")
		for i, l := range lines {
			lines[i] = template.HTMLEscapeString(l)
		}
		return template.HTML(strings.Join(lines, "<br/>"))
	},
}

var emailTmpl = template.Must(template.New("invoice").Funcs(emailFuncs).Parse(`<div style="direction:rtl;font-family:Arial,Helvetica,sans-serif;background:#f6f7fb;padding:24px;">
<div style="max-width:720px;margin:0 auto;background:#fff;border:1px solid #eee;border-radius:14px;overflow:hidden;">
  <div style="padding:18px;border-bottom:1px solid #eee;">
    <div style="font-size:20px;font-weight:800;">{{.ClinicName}}</div>
    {{with .Doctor}}<div style="margin-top:4px;color:#444;">{{.}}</div>{{end}}
    {{with .Credentials}}<div style="margin-top:6px;color:#666;font-size:13px;">{{.}}</div>{{end}}
    {{with .ClinicContact}}<div style="margin-top:6px;color:#666;font-size:13px;">{{.}}</div>{{end}}
    {{with .Hours}}<div style="margin-top:6px;color:#666;font-size:13px;">שעות פעילות: {{.}}</div>{{end}}
    {{with .LogoURL}}<img src="{{.}}" alt="logo" style="max-height:52px;max-width:180px;"/>{{end}}
  </div>
  <div style="padding:18px;">
    <div style="font-weight:800;font-size:18px;">חשבונית</div>
    <div style="margin-top:6px;color:#555;">מס׳: <strong>{{.Number}}</strong></div>
    <div style="margin-top:4px;color:#555;">תאריך: {{.Date}}</div>
    <div style="margin-top:4px;color:#555;">סטטוס: {{.Status}}</div>
    <div style="margin-top:14px;padding:12px;border:1px solid #eee;border-radius:12px;background:#fafafa;">
      <div style="font-weight:800;">פרטי מטופל</div>
      <div style="margin-top:6px;color:#444;">{{.PatientName}}</div>
      {{with .PatientContact}}<div style="margin-top:4px;color:#666;font-size:13px;">{{.}}</div>{{end}}
    </div>
    <table style="width:100%;border-collapse:collapse;margin-top:14px;">
      <thead><tr style="background:#f3f5fb;">
        <th style="padding:10px;text-align:right;">תיאור</th>
        <th style="padding:10px;text-align:center;">כמות</th>
        <th style="padding:10px;text-align:right;">מחיר יח׳</th>
        <th style="padding:10px;text-align:right;">סה״כ</th>
      </tr></thead>
      <tbody>
      {{range .Items}}<tr>
        <td style="padding:10px;border-bottom:1px solid #eee;">{{.Description}}</td>
        <td style="padding:10px;border-bottom:1px solid #eee;text-align:center;">{{.Qty}}</td>
        <td style="padding:10px;border-bottom:1px solid #eee;text-align:right;">{{money .UnitPrice}}</td>
        <td style="padding:10px;border-bottom:1px solid #eee;text-align:right;">{{money .LineTotal}}</td>
      </tr>{{else}}<tr><td colspan="4" style="padding:12px;color:#666;">אין פריטים</td></tr>{{end}}
      </tbody>
    </table>
    <div style="margin-top:14px;text-align:left;">סה״כ לתשלום: <strong>{{money .Total}} {{.Currency}}</strong></div>
    {{with .SignatureURL}}<div style="margin-top:20px;"><div style="color:#555;font-size:13px;">חתימה</div><img src="{{.}}" alt="signature" style="max-height:70px;max-width:220px;"/></div>{{end}}
    {{with .Footer}}<div style="margin-top:18px;padding-top:12px;border-top:1px solid #eee;color:#666;font-size:13px;">{{nl2br .}}</div>{{end}}
  </div>
</div>
<div style="max-width:720px;margin:10px auto 0;color:#8a8a8a;font-size:12px;text-align:center;">הודעה זו נשלחה אוטומטית ממערכת המרפאה.</div>
</div>`))

type emailData struct {
	ClinicName     string
	Doctor         string
	Credentials    string
	ClinicContact  string
	Hours          string
	LogoURL        string
	SignatureURL   string
	Footer         string
	Number         string
	Date           string
	Status         string
	Total          float64
	Currency       string
	PatientName    string
	PatientContact string
	Items          []*InvoiceItem
}

func val(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// joinNonEmpty joins the non-empty parts with " | ".
func joinNonEmpty(parts ...string) string {
	var keep []string
	for _, p := range parts {
		if p != "" {
			keep = append(keep, p)
		}
	}
	return strings.Join(keep, " | ")
}

func labelled(label, v string) string {
	if v == "" {
		return ""
	}
	return label + v
}

// clinicName falls back to a generic label when the clinic has none.
func clinicName(s *settings.Settings) string {
	if s != nil {
		if n := val(s.ClinicName); n != "" {
			return n
		}
	}
	return defaultClinicName
}

// Subject is the e-mail subject line for inv.
func Subject(inv *Invoice, s *settings.Settings) string {
	return fmt.Sprintf("חשבונית %s | %s", inv.InvoiceNumber, clinicName(s))
}

// RenderEmail builds the HTML body. Amounts are printed with two decimals.
func RenderEmail(inv *Invoice, items []*InvoiceItem, patient *Contact, s *settings.Settings, loc *time.Location) (string, error) {
	if s == nil {
		s = &settings.Settings{}
	}
	if patient == nil {
		patient = &Contact{}
	}
	if loc == nil {
		loc = time.Local
	}
	currency := inv.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	var date string
	if !inv.CreatedAt.IsZero() {
		date = inv.CreatedAt.In(loc).Format("02/01/2006 15:04")
	}

	data := emailData{
		ClinicName:    clinicName(s),
		Doctor:        strings.TrimSpace(val(s.DoctorTitle) + " " + val(s.DoctorName)),
		Credentials:   joinNonEmpty(labelled("רישיון: ", val(s.LicenseNumber)), labelled("מס׳ עסק: ", val(s.BusinessID))),
		ClinicContact: joinNonEmpty(val(s.ClinicAddress), labelled("וואטסאפ: ", val(s.WhatsApp)), labelled("אימייל: ", val(s.Email))),
		Hours:         val(s.ClinicHours),
		LogoURL:       val(s.LogoURL),
		SignatureURL:  val(s.SignatureURL),
		Footer:        val(s.InvoiceFooter),
		Number:        inv.InvoiceNumber,
		Date:          date,
		Status:        inv.Status,
		Total:         inv.Total,
		Currency:      currency,
		PatientName:   patient.FullName,
		PatientContact: joinNonEmpty(
			labelled("אימייל: ", val(patient.Email)),
			labelled("טלפון: ", val(patient.Phone)),
		),
		Items: items,
	}

	var buf bytes.Buffer
	if err := emailTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render invoice %s: %w", inv.InvoiceNumber, err)
	}
	return buf.String(), nil
}
