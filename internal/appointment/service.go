package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carelink/clinic-booking/internal/doctor"
	redisclient "github.com/carelink/clinic-booking/internal/redis"
	"github.com/carelink/clinic-booking/internal/schedule"
	"github.com/carelink/clinic-booking/pkg/logging"
)

var (
	ErrDoctorNotFound    = errors.New("doctor not found")
	ErrNotADoctor        = errors.New("user is not a doctor")
	ErrDoctorOffline     = errors.New("doctor is not available for same-day appointments while offline")
	ErrNoScheduleForDate = errors.New("doctor has no schedule for this date")
	ErrSlotBeingBooked   = errors.New("slot is currently being booked, please retry")
	ErrReasonRequired    = errors.New("reason for visit is required")
	ErrInvalidType       = errors.New("invalid appointment type")
	ErrInvalidStatus     = errors.New("invalid appointment status")
	ErrInvalidTransition = errors.New("status transition not permitted")
	ErrForbidden         = errors.New("not authorized for this appointment")
)

// defaultCancelReason is persisted whenever a cancellation arrives without
// one, so both cancel paths record the same value.
const defaultCancelReason = "No reason provided"

type Service struct {
	repo      Repository
	schedules schedule.Repository
	doctors   doctor.Repository
	locker    redisclient.Locker
	log       *logging.Logger

	// now is swappable in tests.
	now func() time.Time
}

func NewService(repo Repository, schedules schedule.Repository, doctors doctor.Repository, locker redisclient.Locker, log *logging.Logger) *Service {
	if log == nil {
		log = logging.Default()
	}
	return &Service{
		repo:      repo,
		schedules: schedules,
		doctors:   doctors,
		locker:    locker,
		log:       log,
		now:       time.Now,
	}
}

func (s *Service) today() time.Time {
	return schedule.DayOf(s.now())
}

// BookParams describes one booking request. PaymentRef is set when the
// request originates from a payment-confirmed callback; the path through the
// claim primitive is identical either way.
type BookParams struct {
	DoctorID   uuid.UUID
	PatientID  uuid.UUID
	Date       string // "YYYY-MM-DD"
	Time       string // "HH:MM" or "HH:MM-HH:MM"
	TimeSlot   string // optional explicit "HH:MM-HH:MM"
	Reason     string
	Type       string
	PaymentRef string
}

// extractSlotStart accepts either a bare start time or a full range and
// returns the start portion.
func extractSlotStart(t string) (string, error) {
	start := t
	if idx := strings.Index(t, "-"); idx >= 0 {
		start = t[:idx]
	}
	if _, err := schedule.ClockMinutes(start); err != nil {
		return "", err
	}
	return start, nil
}

// Book reserves exactly one slot and creates the appointment record.
// Concurrent callers for the same slot are serialized by a per-slot Redis
// lock; correctness does not depend on the lock, because the claim itself is
// a conditional write that only one caller can win.
func (s *Service) Book(ctx context.Context, p BookParams) (*Detail, error) {
	if strings.TrimSpace(p.Reason) == "" {
		return nil, ErrReasonRequired
	}
	if p.Type == "" {
		p.Type = TypeConsultation
	}
	if !ValidType(p.Type) {
		return nil, ErrInvalidType
	}

	doc, err := s.doctors.GetByID(ctx, p.DoctorID)
	if err != nil {
		if errors.Is(err, doctor.ErrDoctorNotFound) {
			return nil, ErrDoctorNotFound
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	if doc.UserType != doctor.UserTypeDoctor {
		return nil, ErrNotADoctor
	}

	day, err := schedule.ParseDay(p.Date)
	if err != nil {
		return nil, err
	}
	today := s.today()
	if schedule.BeforeDay(day, today) {
		return nil, schedule.ErrPastDate
	}

	// Same-day bookings need the doctor's live presence; future days only
	// need a published schedule.
	isToday := schedule.SameDay(day, today)
	if isToday && !doc.IsActive {
		return nil, ErrDoctorOffline
	}

	sched, err := s.schedules.GetForDay(ctx, p.DoctorID, day, true)
	if err != nil {
		if errors.Is(err, schedule.ErrScheduleNotFound) {
			return nil, ErrNoScheduleForDate
		}
		return nil, fmt.Errorf("load schedule: %w", err)
	}

	slotStart, err := extractSlotStart(p.Time)
	if err != nil {
		return nil, err
	}

	timeSlot := p.TimeSlot
	if timeSlot == "" {
		if sl := sched.SlotByStart(slotStart); sl != nil {
			timeSlot = sl.StartTime + "-" + sl.EndTime
		} else {
			return nil, ErrSlotNotFound
		}
	}

	var appt *Appointment
	lockKey := redisclient.SlotKey(sched.ID, slotStart)
	err = s.locker.WithSlotLock(ctx, lockKey, func(lockCtx context.Context) error {
		created, claimErr := s.repo.ClaimSlotAndCreate(lockCtx, ClaimParams{
			ScheduleID: sched.ID,
			SlotStart:  slotStart,
			PatientID:  p.PatientID,
			DoctorID:   p.DoctorID,
			Date:       day,
			TimeSlot:   timeSlot,
			Duration:   sched.SlotDuration,
			Reason:     p.Reason,
			Type:       p.Type,
		})
		if claimErr != nil {
			return claimErr
		}
		appt = created
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	s.logEvent(ctx, appt.ID, EventAppointmentBooked, map[string]any{
		"doctor_id":   p.DoctorID.String(),
		"patient_id":  p.PatientID.String(),
		"date":        schedule.DayString(day),
		"time_slot":   timeSlot,
		"same_day":    isToday,
		"payment_ref": p.PaymentRef,
	})

	s.log.Info("appointment booked",
		"appointment_id", appt.ID,
		"doctor_id", p.DoctorID,
		"date", schedule.DayString(day),
		"slot", timeSlot)

	detail, err := s.repo.GetDetail(ctx, appt.ID)
	if err != nil {
		return nil, fmt.Errorf("load booked appointment: %w", err)
	}
	return detail, nil
}

// actorRole returns "patient" or "doctor", or an error when the actor is
// neither party of the appointment.
func actorRole(appt *Appointment, actor uuid.UUID) (string, error) {
	switch actor {
	case appt.PatientID:
		return "patient", nil
	case appt.DoctorID:
		return "doctor", nil
	default:
		return "", ErrForbidden
	}
}

// UpdateStatus moves the appointment to newStatus. Rescheduling goes through
// Reschedule, not here.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus Status, actor uuid.UUID) (*Appointment, error) {
	if !ValidStatus(newStatus) || newStatus == StatusRescheduled {
		return nil, ErrInvalidStatus
	}

	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	role, err := actorRole(appt, actor)
	if err != nil {
		return nil, err
	}
	if !CanTransition(appt.Status, newStatus) {
		return nil, ErrInvalidTransition
	}

	// Cancellation frees the slot; every other transition is a plain CAS.
	var updated *Appointment
	if newStatus == StatusCancelled {
		updated, err = s.repo.CancelAndRelease(ctx, id, appt.Status, defaultCancelReason, role)
	} else {
		updated, err = s.repo.UpdateStatus(ctx, id, appt.Status, newStatus)
	}
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// CAS lost: the status changed under us.
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	s.logEvent(ctx, updated.ID, eventForStatus(newStatus), map[string]any{"by": role})
	return updated, nil
}

// Cancel cancels the appointment and releases its slot back to available.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string, actor uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	role, err := actorRole(appt, actor)
	if err != nil {
		return nil, err
	}
	if !CanTransition(appt.Status, StatusCancelled) {
		return nil, ErrInvalidTransition
	}
	if reason == "" {
		reason = defaultCancelReason
	}

	updated, err := s.repo.CancelAndRelease(ctx, id, appt.Status, reason, role)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	s.logEvent(ctx, updated.ID, EventAppointmentCancelled, map[string]any{
		"reason": reason,
		"by":     role,
	})
	return updated, nil
}

// Reschedule moves the appointment to a new day/slot. The old slot is
// released and the new one claimed atomically; if the new slot is taken the
// appointment keeps its original claim.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newDate, newTime, reason string, actor uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	role, err := actorRole(appt, actor)
	if err != nil {
		return nil, err
	}
	if !CanTransition(appt.Status, StatusRescheduled) {
		return nil, ErrInvalidTransition
	}

	day, err := schedule.ParseDay(newDate)
	if err != nil {
		return nil, err
	}
	if schedule.BeforeDay(day, s.today()) {
		return nil, schedule.ErrPastDate
	}

	sched, err := s.schedules.GetForDay(ctx, appt.DoctorID, day, true)
	if err != nil {
		if errors.Is(err, schedule.ErrScheduleNotFound) {
			return nil, ErrNoScheduleForDate
		}
		return nil, fmt.Errorf("load schedule: %w", err)
	}

	slotStart, err := extractSlotStart(newTime)
	if err != nil {
		return nil, err
	}
	target := sched.SlotByStart(slotStart)
	if target == nil {
		return nil, ErrSlotNotFound
	}

	if reason == "" {
		reason = "Rescheduled by " + role
	}

	var updated *Appointment
	lockKey := redisclient.SlotKey(sched.ID, slotStart)
	err = s.locker.WithSlotLock(ctx, lockKey, func(lockCtx context.Context) error {
		moved, moveErr := s.repo.RescheduleAndReclaim(lockCtx, RescheduleParams{
			AppointmentID: appt.ID,
			PatientID:     appt.PatientID,
			OldSlotID:     appt.SlotID,
			NewScheduleID: sched.ID,
			NewSlotStart:  slotStart,
			NewDate:       day,
			NewTimeSlot:   target.StartTime + "-" + target.EndTime,
			NewDuration:   sched.SlotDuration,
			Reason:        reason,
			Actor:         actor,
		}, appt.Status)
		if moveErr != nil {
			return moveErr
		}
		updated = moved
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	s.logEvent(ctx, updated.ID, EventAppointmentRescheduled, map[string]any{
		"new_date": schedule.DayString(day),
		"new_time": slotStart,
		"reason":   reason,
		"by":       role,
	})
	return updated, nil
}

// Get returns the appointment detail, restricted to its two parties.
func (s *Service) Get(ctx context.Context, id uuid.UUID, actor uuid.UUID) (*Detail, error) {
	detail, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := actorRole(&detail.Appointment, actor); err != nil {
		return nil, err
	}
	return detail, nil
}

// ListForPatient returns a patient's appointments, optionally filtered by
// status and limited to today onwards.
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, status Status, upcomingOnly bool) ([]Detail, error) {
	if status != "" && !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	var fromDay *time.Time
	if upcomingOnly {
		t := s.today()
		fromDay = &t
	}
	return s.repo.ListByPatient(ctx, patientID, status, fromDay)
}

// ListForDoctor returns a doctor's appointments, optionally filtered by
// calendar day and status.
func (s *Service) ListForDoctor(ctx context.Context, doctorID uuid.UUID, date string, status Status) ([]Detail, error) {
	if status != "" && !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	var day *time.Time
	if date != "" {
		d, err := schedule.ParseDay(date)
		if err != nil {
			return nil, err
		}
		day = &d
	}
	return s.repo.ListByDoctor(ctx, doctorID, day, status)
}

// MarkNoShows flips live appointments from past days to no-show. Run by the
// expiry worker.
func (s *Service) MarkNoShows(ctx context.Context) (int, error) {
	// Cut off at the very start of today so a midnight-stored row for today
	// is never swept.
	cutoff, _ := schedule.DayRange(s.today())
	flipped, err := s.repo.MarkNoShowsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("mark no-shows: %w", err)
	}
	for _, appt := range flipped {
		s.logEvent(ctx, appt.ID, EventAppointmentNoShow, map[string]any{"reason": "worker"})
	}
	return len(flipped), nil
}

func eventForStatus(st Status) string {
	switch st {
	case StatusConfirmed:
		return EventAppointmentConfirmed
	case StatusCompleted:
		return EventAppointmentCompleted
	case StatusCancelled:
		return EventAppointmentCancelled
	case StatusNoShow:
		return EventAppointmentNoShow
	default:
		return "APPOINTMENT_STATUS_CHANGED"
	}
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn("marshal event payload failed", "event", eventType, "error", err)
		data = nil
	}

	apptID := appointmentID
	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Warn("insert event log failed", "event", eventType, "appointment_id", appointmentID, "error", err)
	}
}
