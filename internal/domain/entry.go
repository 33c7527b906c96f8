package domain

import (
	"strconv"
	"time"
)

// EntityKind distinguishes the two kinds of scheduled entries.
type EntityKind string

const (
	KindReminder EntityKind = "reminder"
	KindTask     EntityKind = "task"
)

// Title is the Russian noun in the accusative used by bot replies.
func (k EntityKind) Title() string {
	if k == KindTask {
		return "задачу"
	}
	return "напоминание"
}

// Entry is a kind-agnostic view of a reminder or a task, used for listing and
// deletion candidates.
type Entry struct {
	Kind       EntityKind
	ID         int64
	UserID     int64
	Text       string
	At         time.Time
	RepeatType RepeatKind
}

func (r *Reminder) Entry() Entry {
	return Entry{Kind: KindReminder, ID: r.ID, UserID: r.UserID, Text: r.Text, At: r.ReminderTime, RepeatType: r.RepeatType}
}

func (t *Task) Entry() Entry {
	return Entry{Kind: KindTask, ID: t.ID, UserID: t.UserID, Text: t.Text, At: t.DueAt(), RepeatType: t.RepeatType}
}

// CalendarUID is the stable CalDAV identifier of an entry.
func (e Entry) CalendarUID() string {
	return string(e.Kind) + "-" + strconv.FormatInt(e.ID, 10) + "@remindbot"
}
