package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusConfirmed   Status = "confirmed"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusNoShow      Status = "no-show"
	StatusRescheduled Status = "rescheduled"
)

// ValidStatus reports whether s is a member of the status enum.
func ValidStatus(s Status) bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow, StatusRescheduled:
		return true
	}
	return false
}

// CanTransition encodes the lifecycle state machine. A rescheduled
// appointment continues as a re-entered scheduled-like state; completed,
// cancelled and no-show are terminal.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusScheduled, StatusRescheduled:
		return to == StatusConfirmed || to == StatusCancelled || to == StatusCompleted ||
			to == StatusNoShow || to == StatusRescheduled
	case StatusConfirmed:
		return to == StatusCompleted || to == StatusCancelled || to == StatusNoShow
	default:
		return false
	}
}

const (
	TypeConsultation = "consultation"
	TypeFollowUp     = "follow-up"
	TypeCheckup      = "checkup"
	TypeEmergency    = "emergency"
)

func ValidType(t string) bool {
	switch t {
	case TypeConsultation, TypeFollowUp, TypeCheckup, TypeEmergency:
		return true
	}
	return false
}

// Appointment weak-references the Schedule and Slot that produced it; the
// references are used to release the slot on cancel/reschedule, never for
// ownership.
type Appointment struct {
	ID                 uuid.UUID
	PatientID          uuid.UUID
	DoctorID           uuid.UUID
	Date               time.Time
	Time               string // slot start, "HH:MM"
	TimeSlot           string // "HH:MM-HH:MM"
	Duration           int    // minutes
	Reason             string
	Type               string
	Status             Status
	ScheduleID         *uuid.UUID
	SlotID             *uuid.UUID
	CancellationReason *string
	CancelledBy        *string
	CancelledAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// RescheduleEntry is one append-only record of a reschedule. Entries are
// never mutated after insert.
type RescheduleEntry struct {
	ID            int64
	AppointmentID uuid.UUID
	OldDate       time.Time
	OldTime       string
	NewDate       time.Time
	NewTime       string
	Reason        string
	RescheduledBy uuid.UUID
	RescheduledAt time.Time
}

// PartySummary is the doctor/patient projection attached to a Detail.
type PartySummary struct {
	ID             uuid.UUID
	Name           string
	Email          string
	Phone          *string
	Specialization *string
}

type Detail struct {
	Appointment
	Doctor            PartySummary
	Patient           PartySummary
	RescheduleHistory []RescheduleEntry
}

const (
	EventAppointmentBooked      = "APPOINTMENT_BOOKED"
	EventAppointmentConfirmed   = "APPOINTMENT_CONFIRMED"
	EventAppointmentCompleted   = "APPOINTMENT_COMPLETED"
	EventAppointmentCancelled   = "APPOINTMENT_CANCELLED"
	EventAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
	EventAppointmentNoShow      = "APPOINTMENT_NO_SHOW"
)

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
