// Package doctor provides read-only lookups into the user directory, which
// is owned by the external account service. Booking and availability only
// need a handful of profile fields from it.
package doctor

import (
	"time"

	"github.com/google/uuid"
)

const (
	UserTypeDoctor  = "doctor"
	UserTypePatient = "patient"
)

// BreakWindow is the doctor's configured daily break, during which the
// doctor is not offerable regardless of slot state.
type BreakWindow struct {
	Enabled   bool
	StartTime string // "HH:MM"
	EndTime   string // "HH:MM"
}

type Doctor struct {
	ID              uuid.UUID
	UserType        string
	FirstName       string
	LastName        string
	Email           string
	Phone           *string
	Specialization  *string
	Experience      *int
	ConsultationFee float64
	IsActive        bool // online/offline toggle, not account status
	Verified        bool
	Break           BreakWindow
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (d *Doctor) FullName() string {
	return d.FirstName + " " + d.LastName
}
