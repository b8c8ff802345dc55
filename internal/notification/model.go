package notification

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeAppointmentBooked      = "appointment_booked"
	TypeAppointmentConfirmed   = "appointment_confirmed"
	TypeAppointmentCancelled   = "appointment_cancelled"
	TypeAppointmentRescheduled = "appointment_rescheduled"
	TypeScheduleUpdated        = "schedule_updated"
	TypeGeneral                = "general"
)

func ValidType(t string) bool {
	switch t {
	case TypeAppointmentBooked, TypeAppointmentConfirmed, TypeAppointmentCancelled,
		TypeAppointmentRescheduled, TypeScheduleUpdated, TypeGeneral:
		return true
	}
	return false
}

// Notification is a durable per-recipient message with a hard expiry.
// Expired rows are invisible to reads immediately and removed by the worker
// later.
type Notification struct {
	ID          uuid.UUID  `json:"id"`
	RecipientID uuid.UUID  `json:"recipient_id"`
	Type        string     `json:"type"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	Read        bool       `json:"read"`
	ExpiresAt   time.Time  `json:"expires_at"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
