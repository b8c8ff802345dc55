package schedule

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSlots_FullGrid(t *testing.T) {
	slots, err := GenerateSlots("09:00", "12:00", 6)
	require.NoError(t, err)
	require.Len(t, slots, 6)

	for i, sl := range slots {
		assert.Equal(t, i+1, sl.SlotNumber)
		assert.Equal(t, 30, sl.Duration)
		assert.Equal(t, SlotAvailable, sl.Status)
		assert.False(t, sl.IsBooked)
		if i > 0 {
			// Contiguous and non-overlapping.
			assert.Equal(t, slots[i-1].EndTime, sl.StartTime)
		}
	}
	assert.Equal(t, "09:00", slots[0].StartTime)
	assert.Equal(t, "12:00", slots[5].EndTime)
}

func TestGenerateSlots_TruncationLeavesDeadTime(t *testing.T) {
	// 100 minutes over 3 slots: 33-minute slots, 1 minute of dead time.
	slots, err := GenerateSlots("09:00", "10:40", 3)
	require.NoError(t, err)
	require.Len(t, slots, 3)

	assert.Equal(t, 33, slots[0].Duration)
	assert.Equal(t, "10:39", slots[2].EndTime)
}

func TestGenerateSlots_DefaultSlotCount(t *testing.T) {
	slots, err := GenerateSlots("09:00", "12:00", 0)
	require.NoError(t, err)
	assert.Len(t, slots, DefaultTotalSlots)
}

func TestGenerateSlots_MinimumWindowBoundary(t *testing.T) {
	// Exactly 30 minutes is accepted even as a single 30-minute slot.
	slots, err := GenerateSlots("09:00", "09:30", 1)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "09:00", slots[0].StartTime)
	assert.Equal(t, "09:30", slots[0].EndTime)
}

func TestGenerateSlots_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		count      int
		wantErr    error
	}{
		{"bad start format", "9am", "12:00", 4, ErrInvalidTimeFormat},
		{"bad end format", "09:00", "25:00", 4, ErrInvalidTimeFormat},
		{"end before start", "12:00", "09:00", 4, ErrInvalidWindow},
		{"end equals start", "09:00", "09:00", 1, ErrInvalidWindow},
		{"window below minimum", "09:00", "09:05", 1, ErrInvalidWindow},
		{"negative slot count", "09:00", "12:00", -1, ErrInvalidSlotCount},
		{"slot count above max", "09:00", "12:00", 51, ErrInvalidSlotCount},
		{"slots too short", "09:00", "10:00", 10, ErrSlotTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GenerateSlots(tt.start, tt.end, tt.count)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGenerateSlots_SlotTooShortReportsMaxFeasible(t *testing.T) {
	_, err := GenerateSlots("09:00", "10:00", 10)
	require.Error(t, err)

	var tooShort *SlotTooShortError
	require.True(t, errors.As(err, &tooShort))
	assert.Equal(t, 6, tooShort.Duration)
	assert.Equal(t, 6, tooShort.MaxSlots)
}

func TestClockMinutes(t *testing.T) {
	m, err := ClockMinutes("14:30")
	require.NoError(t, err)
	assert.Equal(t, 14*60+30, m)

	_, err = ClockMinutes("14:60")
	assert.ErrorIs(t, err, ErrInvalidTimeFormat)
}
