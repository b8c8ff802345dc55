package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrPastDate         = errors.New("cannot use a past date")
)

// Repository contains all DB interactions needed by the schedule service and
// the booking engine. Days passed in are matched by day-range, never by
// exact instant (see dates.go).
type Repository interface {
	// Upsert atomically creates or replaces the schedule for (doctorID, day),
	// including its slot grid, and resets IsActive to true.
	Upsert(ctx context.Context, doctorID uuid.UUID, day time.Time, w Window, slotDuration int, slots []Slot) (*Schedule, error)

	// GetForDay returns the schedule for (doctorID, day) with its slots.
	// With activeOnly, inactive schedules are treated as absent.
	GetForDay(ctx context.Context, doctorID uuid.UUID, day time.Time, activeOnly bool) (*Schedule, error)

	// ListActiveForDay returns every doctor's active schedule for a day.
	ListActiveForDay(ctx context.Context, day time.Time) ([]Schedule, error)

	// ListUpcoming returns the doctor's schedules from a day onwards,
	// ascending by date.
	ListUpcoming(ctx context.Context, doctorID uuid.UUID, fromDay time.Time) ([]Schedule, error)

	// ListHistory returns the doctor's schedules newest-first with a total
	// count for pagination.
	ListHistory(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]Schedule, int, error)

	// DeleteForDay removes the schedule for (doctorID, day).
	DeleteForDay(ctx context.Context, doctorID uuid.UUID, day time.Time) error

	// ListForDays returns the doctor's schedules falling on any of the given
	// days, without slots. Used for existence checks.
	ListForDays(ctx context.Context, doctorID uuid.UUID, days []time.Time) ([]Schedule, error)
}
