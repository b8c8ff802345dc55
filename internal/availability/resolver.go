// Package availability computes which doctors and slots are actually
// offerable to a patient at a point in time, combining schedule existence,
// the doctor's online toggle, break windows, and clock-based slot expiry.
package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/carelink/clinic-booking/internal/doctor"
	"github.com/carelink/clinic-booking/internal/schedule"
	"github.com/carelink/clinic-booking/pkg/logging"
)

// ScheduleStatus is the roll-up over a schedule's slots.
type ScheduleStatus string

const (
	ScheduleAvailable ScheduleStatus = "available"
	ScheduleEnded     ScheduleStatus = "ended"
	ScheduleNoSlots   ScheduleStatus = "no_slots"
)

// SlotView is one slot annotated with its effective status. For today's
// schedules an unbooked slot whose start time has passed is reported as
// expired; the persisted row is never touched.
type SlotView struct {
	SlotNumber int                 `json:"slot_number"`
	StartTime  string              `json:"start_time"`
	EndTime    string              `json:"end_time"`
	Duration   int                 `json:"duration"`
	Status     schedule.SlotStatus `json:"status"`
}

// Counts aggregates slot statuses for one schedule.
type Counts struct {
	Available int `json:"available"`
	Booked    int `json:"booked"`
	Expired   int `json:"expired"`
	Total     int `json:"total"`
}

// DoctorAvailability is one offerable doctor with their annotated slot list
// and profile metadata.
type DoctorAvailability struct {
	DoctorID        string         `json:"doctor_id"`
	Name            string         `json:"name"`
	Specialization  *string        `json:"specialization,omitempty"`
	ConsultationFee float64        `json:"consultation_fee"`
	Date            string         `json:"date"`
	StartTime       string         `json:"start_time"`
	EndTime         string         `json:"end_time"`
	ScheduleStatus  ScheduleStatus `json:"schedule_status"`
	Counts          Counts         `json:"counts"`
	Slots           []SlotView     `json:"slots"`
}

type Resolver struct {
	schedules schedule.Repository
	doctors   doctor.Repository
	log       *logging.Logger

	// now is swappable in tests.
	now func() time.Time
}

func NewResolver(schedules schedule.Repository, doctors doctor.Repository, log *logging.Logger) *Resolver {
	if log == nil {
		log = logging.Default()
	}
	return &Resolver{
		schedules: schedules,
		doctors:   doctors,
		log:       log,
		now:       time.Now,
	}
}

// nowMinutes returns the wall-clock as whole minutes since midnight.
func (r *Resolver) nowMinutes() int {
	n := r.now()
	return n.Hour()*60 + n.Minute()
}

// inWindow reports start <= at < end for "HH:MM" bounds. Malformed bounds
// count as outside.
func inWindow(at int, start, end string) bool {
	s, err := schedule.ClockMinutes(start)
	if err != nil {
		return false
	}
	e, err := schedule.ClockMinutes(end)
	if err != nil {
		return false
	}
	return s <= at && at < e
}

// ListAvailableDoctors resolves offerable doctors for the given day.
// An empty date means today. Today's resolution honors the doctor's online
// toggle, break window, and clock expiry; future days only consider schedule
// existence and booked state.
func (r *Resolver) ListAvailableDoctors(ctx context.Context, date string) ([]DoctorAvailability, error) {
	var day time.Time
	if date == "" {
		day = schedule.DayOf(r.now())
	} else {
		parsed, err := schedule.ParseDay(date)
		if err != nil {
			return nil, err
		}
		day = parsed
	}

	isToday := day.Equal(schedule.DayOf(r.now()))

	scheds, err := r.schedules.ListActiveForDay(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}

	out := make([]DoctorAvailability, 0, len(scheds))
	nowMin := r.nowMinutes()

	for i := range scheds {
		s := &scheds[i]

		doc, err := r.doctors.GetByID(ctx, s.DoctorID)
		if err != nil {
			// A schedule whose doctor row is gone is not offerable; skip
			// rather than failing the whole listing.
			r.log.Warn("schedule without doctor row", "doctor_id", s.DoctorID, "error", err)
			continue
		}
		if doc.UserType != doctor.UserTypeDoctor || !doc.Verified {
			continue
		}

		if isToday {
			if !doc.IsActive {
				continue
			}
			if !inWindow(nowMin, s.StartTime, s.EndTime) {
				continue
			}
			if doc.Break.Enabled && inWindow(nowMin, doc.Break.StartTime, doc.Break.EndTime) {
				continue
			}
		}

		entry := r.annotate(s, doc, isToday, nowMin)
		out = append(out, entry)
	}
	return out, nil
}

// annotate builds the per-doctor view, deriving expired status for today's
// unbooked slots whose start has passed.
func (r *Resolver) annotate(s *schedule.Schedule, doc *doctor.Doctor, isToday bool, nowMin int) DoctorAvailability {
	views := make([]SlotView, 0, len(s.Slots))
	var counts Counts

	for _, slot := range s.Slots {
		status := slot.Status
		if isToday && status == schedule.SlotAvailable {
			if startMin, err := schedule.ClockMinutes(slot.StartTime); err == nil && nowMin >= startMin {
				status = schedule.SlotExpired
			}
		}

		switch status {
		case schedule.SlotAvailable:
			counts.Available++
		case schedule.SlotBooked:
			counts.Booked++
		case schedule.SlotExpired:
			counts.Expired++
		}
		counts.Total++

		views = append(views, SlotView{
			SlotNumber: slot.SlotNumber,
			StartTime:  slot.StartTime,
			EndTime:    slot.EndTime,
			Duration:   slot.Duration,
			Status:     status,
		})
	}

	var rollup ScheduleStatus
	switch {
	case counts.Total == 0:
		rollup = ScheduleNoSlots
	case counts.Available > 0:
		rollup = ScheduleAvailable
	case counts.Expired > 0:
		rollup = ScheduleEnded
	default:
		rollup = ScheduleNoSlots
	}

	return DoctorAvailability{
		DoctorID:        doc.ID.String(),
		Name:            doc.FullName(),
		Specialization:  doc.Specialization,
		ConsultationFee: doc.ConsultationFee,
		Date:            schedule.DayString(s.Date),
		StartTime:       s.StartTime,
		EndTime:         s.EndTime,
		ScheduleStatus:  rollup,
		Counts:          counts,
		Slots:           views,
	}
}
