package domain

import "time"

// RepeatKind is the persisted recurrence of a reminder or task.
type RepeatKind string

const (
	RepeatNone   RepeatKind = ""
	RepeatDaily  RepeatKind = "daily"
	RepeatWeekly RepeatKind = "weekly"
)

// IsRecurring reports whether the entry repeats.
func (k RepeatKind) IsRecurring() bool {
	return k == RepeatDaily || k == RepeatWeekly
}

// Period is the distance between two occurrences.
func (k RepeatKind) Period() time.Duration {
	switch k {
	case RepeatDaily:
		return 24 * time.Hour
	case RepeatWeekly:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// Label is the Russian suffix shown in notifications.
func (k RepeatKind) Label() string {
	switch k {
	case RepeatDaily:
		return "повторится завтра"
	case RepeatWeekly:
		return "повторится через неделю"
	default:
		return ""
	}
}

// PreReminderOffset is how long before reminder_time the pre-notification fires.
const PreReminderOffset = 15 * time.Minute

type Reminder struct {
	ID                 int64
	UserID             int64
	Text               string
	ReminderTime       time.Time
	PreReminderTime    time.Time
	IsPreReminderSent  bool
	IsMainReminderSent bool
	RepeatType         RepeatKind
	RepeatTime         *time.Time
	CreatedAt          time.Time
}

// IsRepeat reports whether the reminder recurs.
func (r *Reminder) IsRepeat() bool {
	return r.RepeatType.IsRecurring()
}
