package service

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/tazhate/remindbot/internal/domain"
)

// Schedule is the full set of timestamps stored with an entry.
type Schedule struct {
	ReminderTime    time.Time
	PreReminderTime time.Time
	RepeatTime      *time.Time
}

// NextSchedule rolls a recurring entry that started at start to its first
// occurrence strictly after now.
func NextSchedule(kind domain.RepeatKind, start, now time.Time) (*Schedule, error) {
	freq, ok := frequency(kind)
	if !ok {
		return nil, fmt.Errorf("entry does not repeat")
	}

	rule, err := rrule.NewRRule(rrule.ROption{Freq: freq, Dtstart: start})
	if err != nil {
		return nil, fmt.Errorf("build rrule: %w", err)
	}
	next := rule.After(now, false)
	if next.IsZero() {
		return nil, fmt.Errorf("no occurrence after %s", now.Format(time.RFC3339))
	}
	following := rule.After(next, false)

	return &Schedule{
		ReminderTime:    next,
		PreReminderTime: next.Add(-domain.PreReminderOffset),
		RepeatTime:      &following,
	}, nil
}

func frequency(kind domain.RepeatKind) (rrule.Frequency, bool) {
	switch kind {
	case domain.RepeatDaily:
		return rrule.DAILY, true
	case domain.RepeatWeekly:
		return rrule.WEEKLY, true
	}
	return 0, false
}

// RRule renders the iCalendar recurrence of kind, empty for one-shot entries.
func RRule(kind domain.RepeatKind) string {
	freq, ok := frequency(kind)
	if !ok {
		return ""
	}
	return (&rrule.ROption{Freq: freq}).RRuleString()
}
