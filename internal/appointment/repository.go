package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotNotFound        = errors.New("requested time slot does not exist in the schedule")
	ErrSlotAlreadyBooked   = errors.New("time slot already booked by another patient")
)

// ClaimParams carries everything the atomic claim needs: the slot to take
// and the appointment row to create against it.
type ClaimParams struct {
	ScheduleID uuid.UUID
	SlotStart  string // "HH:MM"
	PatientID  uuid.UUID
	DoctorID   uuid.UUID
	Date       time.Time
	TimeSlot   string
	Duration   int
	Reason     string
	Type       string
}

// RescheduleParams moves an appointment onto a new slot. The old slot is
// released and the new one claimed in the same transaction; a lost claim on
// the new slot leaves the old one untouched.
type RescheduleParams struct {
	AppointmentID uuid.UUID
	PatientID     uuid.UUID
	OldSlotID     *uuid.UUID
	NewScheduleID uuid.UUID
	NewSlotStart  string
	NewDate       time.Time
	NewTimeSlot   string
	NewDuration   int
	Reason        string
	Actor         uuid.UUID
}

// Repository contains all DB interactions needed by the booking engine and
// lifecycle operations.
type Repository interface {
	// ClaimSlotAndCreate atomically flips the matched slot to booked and
	// creates the appointment referencing it. Exactly one concurrent caller
	// can succeed per slot; losers get ErrSlotAlreadyBooked, callers naming
	// a start time absent from the grid get ErrSlotNotFound.
	ClaimSlotAndCreate(ctx context.Context, p ClaimParams) (*Appointment, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error)

	// ListByPatient optionally filters by status and by a from-day lower
	// bound (upcoming only).
	ListByPatient(ctx context.Context, patientID uuid.UUID, status Status, fromDay *time.Time) ([]Detail, error)

	// ListByDoctor optionally filters by calendar day and status.
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, day *time.Time, status Status) ([]Detail, error)

	// UpdateStatus is a compare-and-swap on the status column.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	// CancelAndRelease cancels the appointment (guarded by its current
	// status) and, in the same transaction, frees the referenced slot unless
	// it has since been reassigned.
	CancelAndRelease(ctx context.Context, id uuid.UUID, expect Status, reason, by string) (*Appointment, error)

	// RescheduleAndReclaim implements RescheduleParams semantics and appends
	// the history entry.
	RescheduleAndReclaim(ctx context.Context, p RescheduleParams, expect Status) (*Appointment, error)

	ListRescheduleHistory(ctx context.Context, id uuid.UUID) ([]RescheduleEntry, error)

	// MarkNoShowsBefore flips live appointments dated before cutoff to
	// no-show and returns the affected rows.
	MarkNoShowsBefore(ctx context.Context, cutoff time.Time) ([]Appointment, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
