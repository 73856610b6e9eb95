package appointment

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusNew       Status = "new"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

var validStatuses = map[Status]bool{
	StatusNew: true, StatusConfirmed: true, StatusCancelled: true,
}

func (s Status) Valid() bool { return validStatuses[s] }

// PatientRef identifies who an appointment is for. It is either a
// LinkedPatient (row joined to the registry) or an InlinePatient (legacy rows
// that only carry the intake form's name and contact fields).
type PatientRef interface {
	patientRef()
}

type LinkedPatient struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
}

type InlinePatient struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
}

func (LinkedPatient) patientRef() {}
func (InlinePatient) patientRef() {}

// DisplayName collapses a reference to a single name.
func DisplayName(ref PatientRef) string {
	switch p := ref.(type) {
	case LinkedPatient:
		return strings.TrimSpace(p.FullName)
	case InlinePatient:
		return strings.TrimSpace(p.FirstName + " " + p.LastName)
	default:
		return ""
	}
}

// ResolveRef picks the linked form when the row points at a patient whose
// record was found, and falls back to the denormalized columns otherwise.
func ResolveRef(patientID *uuid.UUID, fullName *string, first, last, email, phone *string) PatientRef {
	if patientID != nil && fullName != nil && strings.TrimSpace(*fullName) != "" {
		return LinkedPatient{ID: *patientID, FullName: *fullName}
	}
	return InlinePatient{
		FirstName: deref(first),
		LastName:  deref(last),
		Email:     email,
		Phone:     phone,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Appointment maps to the appointments table joined with patients.
type Appointment struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	PatientID   *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	FirstName   *string    `db:"first_name" json:"first_name,omitempty"`
	LastName    *string    `db:"last_name" json:"last_name,omitempty"`
	Email       *string    `db:"email" json:"email,omitempty"`
	Phone       *string    `db:"phone" json:"phone,omitempty"`
	Service     string     `db:"service" json:"service"`
	Date        string     `db:"date" json:"date"`
	Time        string     `db:"time" json:"time"`
	Notes       *string    `db:"notes" json:"notes,omitempty"`
	Status      Status     `db:"status" json:"status"`
	PatientName string     `json:"patient_name"`

	Patient PatientRef `json:"-"`
}

// InlineName is the "first last" the appointment row itself carries.
func (a *Appointment) InlineName() string {
	return strings.TrimSpace(deref(a.FirstName) + " " + deref(a.LastName))
}

// Name is shown in lists. A row linked to a patient by shared e-mail or phone
// keeps the name that was booked with.
func (a *Appointment) Name() string {
	if n := a.InlineName(); n != "" {
		return n
	}
	return DisplayName(a.Patient)
}

// SearchNames are the names the dashboard text filter matches: the row's own
// name and, for linked rows, the registry full name.
func (a *Appointment) SearchNames() []string {
	names := make([]string, 0, 3)
	for _, n := range []string{a.InlineName(), DisplayName(a.Patient), a.PatientName} {
		if n != "" {
			names = append(names, n)
		}
	}
	return names
}

// CreateInput is the intake form (public) and the staff manual-entry form.
type CreateInput struct {
	FirstName string `json:"first_name" form:"first_name"`
	LastName  string `json:"last_name" form:"last_name"`
	Email     string `json:"email" form:"email"`
	Phone     string `json:"phone" form:"phone"`
	Service   string `json:"service" form:"service"`
	Date      string `json:"date" form:"date"`
	Time      string `json:"time" form:"time"`
	Notes     string `json:"notes" form:"notes"`
}
