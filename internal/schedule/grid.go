package schedule

import (
	"errors"
	"fmt"
	"regexp"
)

const (
	// DefaultTotalSlots is used when a window does not request a count.
	DefaultTotalSlots = 6

	MaxTotalSlots = 50

	// MinWindowMinutes is the smallest working window a doctor may publish.
	MinWindowMinutes = 30

	// MinSlotMinutes is the shortest slot the grid may produce.
	MinSlotMinutes = 10
)

var (
	ErrInvalidTimeFormat = errors.New("time must be in 24-hour HH:MM format")
	ErrInvalidWindow     = errors.New("working window is invalid")
	ErrInvalidSlotCount  = errors.New("total slots must be between 1 and 50")
	ErrSlotTooShort      = errors.New("slot duration below minimum")
)

var clockRE = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)

// SlotTooShortError reports how many slots the window could actually hold,
// so callers can surface remediation guidance.
type SlotTooShortError struct {
	Duration int // minutes the requested grid would produce
	MaxSlots int // largest feasible TotalSlots for the window
}

func (e *SlotTooShortError) Error() string {
	return fmt.Sprintf("slot duration of %d minutes is below the %d minute minimum; this window fits at most %d slots",
		e.Duration, MinSlotMinutes, e.MaxSlots)
}

func (e *SlotTooShortError) Unwrap() error { return ErrSlotTooShort }

// ClockMinutes converts "HH:MM" to minutes since midnight.
func ClockMinutes(clock string) (int, error) {
	if !clockRE.MatchString(clock) {
		return 0, ErrInvalidTimeFormat
	}
	var h, m int
	if _, err := fmt.Sscanf(clock, "%d:%d", &h, &m); err != nil {
		return 0, ErrInvalidTimeFormat
	}
	return h*60 + m, nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// GenerateSlots expands a working window into a contiguous grid of
// totalSlots equal slots. Pure function: validation errors are returned
// before any slot is produced, and the caller owns persistence.
//
// When the window is not evenly divisible the remainder is left as dead
// time after the last slot; it is never redistributed.
func GenerateSlots(startTime, endTime string, totalSlots int) ([]Slot, error) {
	startMin, err := ClockMinutes(startTime)
	if err != nil {
		return nil, err
	}
	endMin, err := ClockMinutes(endTime)
	if err != nil {
		return nil, err
	}

	totalMinutes := endMin - startMin
	if totalMinutes <= 0 {
		return nil, fmt.Errorf("%w: end time must be after start time", ErrInvalidWindow)
	}
	if totalMinutes < MinWindowMinutes {
		return nil, fmt.Errorf("%w: window must be at least %d minutes", ErrInvalidWindow, MinWindowMinutes)
	}

	if totalSlots == 0 {
		totalSlots = DefaultTotalSlots
	}
	if totalSlots < 1 || totalSlots > MaxTotalSlots {
		return nil, ErrInvalidSlotCount
	}

	slotDuration := totalMinutes / totalSlots
	if slotDuration < MinSlotMinutes {
		return nil, &SlotTooShortError{
			Duration: slotDuration,
			MaxSlots: totalMinutes / MinSlotMinutes,
		}
	}

	slots := make([]Slot, 0, totalSlots)
	cursor := startMin
	for i := 1; i <= totalSlots; i++ {
		slots = append(slots, Slot{
			SlotNumber: i,
			StartTime:  formatClock(cursor),
			EndTime:    formatClock(cursor + slotDuration),
			Duration:   slotDuration,
			Status:     SlotAvailable,
		})
		cursor += slotDuration
	}

	return slots, nil
}
