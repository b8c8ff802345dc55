package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carelink/clinic-booking/pkg/logging"
)

type Service struct {
	repo Repository
	log  *logging.Logger

	// now is swappable in tests.
	now func() time.Time
}

func NewService(repo Repository, log *logging.Logger) *Service {
	if log == nil {
		log = logging.Default()
	}
	return &Service{repo: repo, log: log, now: time.Now}
}

// today returns the canonical instant for the current calendar day.
func (s *Service) today() time.Time {
	return DayOf(s.now())
}

// SaveToday creates or replaces the doctor's schedule for the current day.
// Today is always a valid day to (re)configure, so there is no past check.
func (s *Service) SaveToday(ctx context.Context, doctorID uuid.UUID, w Window) (*Schedule, error) {
	return s.save(ctx, doctorID, s.today(), w)
}

// SaveForDay creates or replaces the schedule for a future day. Days
// strictly before today are rejected with ErrPastDate.
func (s *Service) SaveForDay(ctx context.Context, doctorID uuid.UUID, date string, w Window) (*Schedule, error) {
	day, err := ParseDay(date)
	if err != nil {
		return nil, err
	}
	if BeforeDay(day, s.today()) {
		return nil, ErrPastDate
	}
	return s.save(ctx, doctorID, day, w)
}

func (s *Service) save(ctx context.Context, doctorID uuid.UUID, day time.Time, w Window) (*Schedule, error) {
	slots, err := GenerateSlots(w.StartTime, w.EndTime, w.TotalSlots)
	if err != nil {
		return nil, err
	}

	sched, err := s.repo.Upsert(ctx, doctorID, day, w, slots[0].Duration, slots)
	if err != nil {
		return nil, fmt.Errorf("upsert schedule: %w", err)
	}

	s.log.Info("schedule saved",
		"doctor_id", doctorID,
		"date", DayString(day),
		"window", w.StartTime+"-"+w.EndTime,
		"slots", len(slots))
	return sched, nil
}

// BulkEntryError is one failed entry of a bulk save.
type BulkEntryError struct {
	Index int    `json:"index"`
	Date  string `json:"date"`
	Error string `json:"error"`
}

// BulkSaveReport carries the partial-success result of SaveUpcoming.
type BulkSaveReport struct {
	Saved  []Schedule
	Errors []BulkEntryError
}

// SaveUpcoming upserts one schedule per entry. Entries fail independently;
// a bad date or window never aborts the rest of the batch.
func (s *Service) SaveUpcoming(ctx context.Context, doctorID uuid.UUID, entries []DayWindow) (*BulkSaveReport, error) {
	report := &BulkSaveReport{}

	for i, entry := range entries {
		sched, err := s.SaveForDay(ctx, doctorID, entry.Date, entry.Window)
		if err != nil {
			report.Errors = append(report.Errors, BulkEntryError{
				Index: i,
				Date:  entry.Date,
				Error: err.Error(),
			})
			continue
		}
		report.Saved = append(report.Saved, *sched)
	}

	return report, nil
}

// GetToday returns today's schedule, active or not, or ErrScheduleNotFound.
func (s *Service) GetToday(ctx context.Context, doctorID uuid.UUID) (*Schedule, error) {
	return s.repo.GetForDay(ctx, doctorID, s.today(), false)
}

// GetForDay returns the schedule for a specific day.
func (s *Service) GetForDay(ctx context.Context, doctorID uuid.UUID, date string) (*Schedule, error) {
	day, err := ParseDay(date)
	if err != nil {
		return nil, err
	}
	return s.repo.GetForDay(ctx, doctorID, day, false)
}

// ListUpcoming returns the doctor's schedules from today onwards.
func (s *Service) ListUpcoming(ctx context.Context, doctorID uuid.UUID) ([]Schedule, error) {
	return s.repo.ListUpcoming(ctx, doctorID, s.today())
}

// History returns past and present schedules, newest first.
func (s *Service) History(ctx context.Context, doctorID uuid.UUID, page, limit int) ([]Schedule, int, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return s.repo.ListHistory(ctx, doctorID, limit, (page-1)*limit)
}

// DeleteToday removes today's schedule.
func (s *Service) DeleteToday(ctx context.Context, doctorID uuid.UUID) error {
	return s.repo.DeleteForDay(ctx, doctorID, s.today())
}

// DeleteForDay removes the schedule for a specific day.
func (s *Service) DeleteForDay(ctx context.Context, doctorID uuid.UUID, date string) error {
	day, err := ParseDay(date)
	if err != nil {
		return err
	}
	return s.repo.DeleteForDay(ctx, doctorID, day)
}

// ExistsSummary describes an existing schedule in a CheckExists response.
type ExistsSummary struct {
	ID        uuid.UUID `json:"id"`
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
	IsActive  bool      `json:"isActive"`
}

// CheckExists reports, per requested day, whether a schedule already exists.
// Unparseable dates are silently dropped, matching the lenient legacy
// behavior of the endpoint.
func (s *Service) CheckExists(ctx context.Context, doctorID uuid.UUID, dates []string) (map[string]ExistsSummary, error) {
	var days []time.Time
	for _, d := range dates {
		day, err := ParseDay(d)
		if err != nil {
			continue
		}
		days = append(days, day)
	}

	schedules, err := s.repo.ListForDays(ctx, doctorID, days)
	if err != nil {
		return nil, fmt.Errorf("list schedules for days: %w", err)
	}

	result := make(map[string]ExistsSummary, len(schedules))
	for _, sched := range schedules {
		result[DayString(sched.Date)] = ExistsSummary{
			ID:        sched.ID,
			StartTime: sched.StartTime,
			EndTime:   sched.EndTime,
			IsActive:  sched.IsActive,
		}
	}
	return result, nil
}
