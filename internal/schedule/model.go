package schedule

import (
	"time"

	"github.com/google/uuid"
)

type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotBooked    SlotStatus = "booked"
	SlotCancelled SlotStatus = "cancelled"
	SlotCompleted SlotStatus = "completed"

	// SlotExpired is derived at read time for today's slots whose start time
	// has passed unbooked. It is never persisted.
	SlotExpired SlotStatus = "expired"
)

// Slot is one bookable subdivision of a doctor's working window. Slots are
// owned by their Schedule; appointments hold only a weak id reference.
type Slot struct {
	ID            uuid.UUID
	ScheduleID    uuid.UUID
	SlotNumber    int    // 1-based position within the grid
	StartTime     string // "HH:MM"
	EndTime       string // "HH:MM"
	Duration      int    // minutes
	Status        SlotStatus
	IsBooked      bool // kept in lockstep with Status == SlotBooked for legacy readers
	PatientID     *uuid.UUID
	AppointmentID *uuid.UUID
	BookingTime   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Schedule is the per-doctor, per-calendar-day aggregate. Date is stored at
// the canonical noon-UTC instant (see dates.go); at most one active schedule
// exists per (DoctorID, day).
type Schedule struct {
	ID           uuid.UUID
	DoctorID     uuid.UUID
	Date         time.Time
	StartTime    string // "HH:MM"
	EndTime      string // "HH:MM"
	TotalSlots   int
	SlotDuration int // minutes, floor(window / TotalSlots)
	Slots        []Slot
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SlotByStart returns the slot whose StartTime matches, or nil.
func (s *Schedule) SlotByStart(start string) *Slot {
	for i := range s.Slots {
		if s.Slots[i].StartTime == start {
			return &s.Slots[i]
		}
	}
	return nil
}

// Window is a doctor-specified working window before slot subdivision.
type Window struct {
	StartTime  string
	EndTime    string
	TotalSlots int
}

// DayWindow is one entry of a bulk upcoming-schedule save.
type DayWindow struct {
	Date string // "YYYY-MM-DD"
	Window
}
