package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patients table. Rows are created by intake or by staff
// and are never deleted.
type Patient struct {
	ID          uuid.UUID `db:"id" json:"id"`
	FullName    string    `db:"full_name" json:"full_name"`
	Email       *string   `db:"email" json:"email,omitempty"`
	Phone       *string   `db:"phone" json:"phone,omitempty"`
	PersonalID  *string   `db:"personal_id" json:"personal_id,omitempty"`
	DateOfBirth *string   `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Allergies   *string   `db:"allergies" json:"allergies,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Visit maps to the visits table.
type Visit struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	VisitDate   string    `db:"visit_date" json:"visit_date"`
	Summary     *string   `db:"summary" json:"summary,omitempty"`
	DoctorNotes *string   `db:"doctor_notes" json:"doctor_notes,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type PatientInput struct {
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	PersonalID  string `json:"personal_id"`
	DateOfBirth string `json:"date_of_birth"`
	Allergies   string `json:"allergies"`
}

type VisitInput struct {
	VisitDate   string `json:"visit_date"`
	Summary     string `json:"summary"`
	DoctorNotes string `json:"doctor_notes"`
}
