package domain

import "time"

// TaskAction is an inline-button action on a delivered task.
type TaskAction string

const (
	TaskFinish   TaskAction = "finish"
	TaskPostpone TaskAction = "postpone"
	TaskRemove   TaskAction = "remove"
)

// ParseTaskAction accepts both the callback verbs and the legacy Russian ones.
func ParseTaskAction(s string) (TaskAction, bool) {
	switch s {
	case "finish", "закончить":
		return TaskFinish, true
	case "postpone", "перенести":
		return TaskPostpone, true
	case "remove", "удалить":
		return TaskRemove, true
	}
	return "", false
}

// SnoozeDuration is how far "postpone" moves a task.
const SnoozeDuration = 30 * time.Minute

// Task is a reminder that expects an explicit action from the user.
type Task struct {
	ID                 int64
	UserID             int64
	Text               string
	ReminderTime       time.Time
	PreReminderTime    time.Time
	IsPreReminderSent  bool
	IsMainReminderSent bool
	RepeatType         RepeatKind
	RepeatTime         *time.Time
	IsCompleted        bool
	IsTransfered       bool
	TransferTime       *time.Time
	CreatedAt          time.Time
}

func (t *Task) IsRepeat() bool {
	return t.RepeatType.IsRecurring()
}

// DueAt is the moment the task is expected to fire next.
func (t *Task) DueAt() time.Time {
	if t.IsTransfered && t.TransferTime != nil {
		return *t.TransferTime
	}
	return t.ReminderTime
}
