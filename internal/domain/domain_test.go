package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOffset(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"+3", 3},
		{"3", 3},
		{"-5", -5},
		{"utc+14", 14},
		{" GMT-12 ", -12},
		{"+0", 0},
	}
	for _, tt := range tests {
		got, err := ParseOffset(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "UTC", "+15", "-13", "+3:30", "msk"} {
		_, err := ParseOffset(bad)
		assert.Error(t, err, bad)
	}
}

func TestZone(t *testing.T) {
	loc := Zone(3)
	assert.Equal(t, "+3", loc.String())
	_, offset := time.Date(2024, 1, 1, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, 3*3600, offset)

	assert.Equal(t, "-5", FormatOffset(-5))
	assert.Equal(t, "+0", FormatOffset(0))

	var p *UserProfile
	assert.Equal(t, "+3", p.Location().String())
	assert.Equal(t, "+7", (&UserProfile{UTCOffset: 7}).Location().String())
}

func TestParseTaskAction(t *testing.T) {
	for in, want := range map[string]TaskAction{
		"finish": TaskFinish, "закончить": TaskFinish,
		"postpone": TaskPostpone, "перенести": TaskPostpone,
		"remove": TaskRemove, "удалить": TaskRemove,
	} {
		got, ok := ParseTaskAction(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseTaskAction("snooze")
	assert.False(t, ok)
}

func TestTaskDueAt(t *testing.T) {
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	later := at.Add(SnoozeDuration)
	task := &Task{ID: 7, ReminderTime: at}
	assert.Equal(t, at, task.DueAt())

	task.TransferTime = &later
	assert.Equal(t, at, task.DueAt(), "transfer time counts only while transferred")

	task.IsTransfered = true
	assert.Equal(t, later, task.DueAt())
	assert.Equal(t, later, task.Entry().At)
	assert.Equal(t, "task-7@remindbot", task.Entry().CalendarUID())
}

func TestRepeatKind(t *testing.T) {
	assert.False(t, RepeatNone.IsRecurring())
	assert.True(t, RepeatDaily.IsRecurring())
	assert.Equal(t, 7*24*time.Hour, RepeatWeekly.Period())
	assert.Equal(t, time.Duration(0), RepeatNone.Period())
	assert.Equal(t, "повторится завтра", RepeatDaily.Label())
	assert.Empty(t, RepeatNone.Label())
}

func TestWeekdays(t *testing.T) {
	d, ok := ParseWeekday("среду")
	require.True(t, ok)
	assert.Equal(t, time.Wednesday, d)
	_, ok = ParseWeekday("пятниц")
	assert.False(t, ok)

	assert.Equal(t, 0, MondayIndex(time.Monday))
	assert.Equal(t, 6, MondayIndex(time.Sunday))
	assert.Equal(t, 2, DaysUntil(time.Monday, time.Wednesday))
	assert.Equal(t, 7, DaysUntil(time.Friday, time.Friday))
	assert.Equal(t, 1, DaysUntil(time.Sunday, time.Monday))

	m, ok := ParseMonth("марта")
	require.True(t, ok)
	assert.Equal(t, time.March, m)
	assert.Equal(t, "среда", WeekdayName(time.Wednesday))
}

func TestIndexOutOfRangeError(t *testing.T) {
	err := fmt.Errorf("follow up: %w", &IndexOutOfRangeError{Index: 5, Max: 3})
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))

	var rangeErr *IndexOutOfRangeError
	require.True(t, errors.As(err, &rangeErr))
	assert.Equal(t, 3, rangeErr.Max)
	assert.Equal(t, "index 5 out of range [1, 3]", rangeErr.Error())
}
