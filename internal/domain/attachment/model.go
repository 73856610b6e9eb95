package attachment

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// File maps to the appointment_files table.
type File struct {
	ID            uuid.UUID `db:"id" json:"id"`
	AppointmentID uuid.UUID `db:"appointment_id" json:"appointment_id"`
	FileName      string    `db:"file_name" json:"file_name"`
	FilePath      string    `db:"file_path" json:"file_path"`
	FileType      *string   `db:"file_type" json:"file_type,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Slot is the display date and time of the appointment a file belongs to.
type Slot struct {
	Date string
	Time string
}

// Descriptor is a file as shown to staff. URL is nil when no link could be
// issued; the row is still listed.
type Descriptor struct {
	ID            uuid.UUID `json:"id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	FileName      string    `json:"file_name"`
	FileType      *string   `json:"file_type,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	URL           *string   `json:"url"`
}

// Upload is one file queued for storage.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadResult reports the outcome for a single queued file.
type UploadResult struct {
	FileName string `json:"file_name"`
	File     *File  `json:"file,omitempty"`
	Error    string `json:"error,omitempty"`
	Err      error  `json:"-"`
}
