package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tazhate/remindbot/internal/domain"
	"github.com/tazhate/remindbot/internal/storage"
)

type TaskService struct {
	storage  *storage.Storage
	profiles *ProfileService
	calendar *CalendarService
	now      func() time.Time
}

func NewTaskService(s *storage.Storage, profiles *ProfileService, calendar *CalendarService) *TaskService {
	return &TaskService{
		storage:  s,
		profiles: profiles,
		calendar: calendar,
		now:      time.Now,
	}
}

// ActionResult is the task state after an inline-button action.
type ActionResult struct {
	Action   domain.TaskAction
	Task     *domain.Task
	Location *time.Location
	// Rescheduled is set when finishing a recurring task moved it to the next occurrence.
	Rescheduled bool
}

// ApplyAction handles the Finish / Postpone / Remove buttons of a delivered task.
func (s *TaskService) ApplyAction(ctx context.Context, userID, taskID int64, action domain.TaskAction) (*ActionResult, error) {
	task, err := s.storage.GetTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task == nil || task.UserID != userID {
		return nil, fmt.Errorf("task %d: %w", taskID, domain.ErrNotFound)
	}

	res := &ActionResult{Action: action, Task: task, Location: s.profiles.Location(userID)}
	now := s.now()

	switch action {
	case domain.TaskFinish:
		if task.IsRepeat() {
			// skip the current occurrence even when finished ahead of time
			from := now
			if task.ReminderTime.After(from) {
				from = task.ReminderTime
			}
			next, err := NextSchedule(task.RepeatType, task.ReminderTime, from)
			if err != nil {
				return nil, err
			}
			if err := s.storage.RescheduleTask(taskID, next.ReminderTime, next.PreReminderTime, next.RepeatTime); err != nil {
				return nil, fmt.Errorf("reschedule task: %w", err)
			}
			task.ReminderTime, task.PreReminderTime, task.RepeatTime = next.ReminderTime, next.PreReminderTime, next.RepeatTime
			task.IsTransfered, task.TransferTime = false, nil
			res.Rescheduled = true
			return res, nil
		}
		if err := s.storage.CompleteTask(taskID); err != nil {
			return nil, fmt.Errorf("complete task: %w", err)
		}
		task.IsCompleted = true

	case domain.TaskPostpone:
		at := postponeTime(task, now)
		if err := s.storage.TransferTask(taskID, at); err != nil {
			return nil, fmt.Errorf("transfer task: %w", err)
		}
		task.IsTransfered, task.TransferTime = true, &at

	case domain.TaskRemove:
		if err := s.storage.DeleteTask(taskID); err != nil {
			return nil, fmt.Errorf("delete task: %w", err)
		}
		if err := s.calendar.Remove(ctx, task.Entry()); err != nil {
			log.Printf("Error removing task %d from calendar: %v", taskID, err)
		}

	default:
		return nil, fmt.Errorf("unknown task action %q", action)
	}
	return res, nil
}

// postponeTime moves the task by SnoozeDuration from its last due moment, the
// later of reminder_time and a previous transfer. The result is never in the past.
func postponeTime(task *domain.Task, now time.Time) time.Time {
	base := task.ReminderTime
	if task.TransferTime != nil && task.TransferTime.After(base) {
		base = *task.TransferTime
	}
	at := base.Add(domain.SnoozeDuration)
	if !at.After(now) {
		at = now.Add(domain.SnoozeDuration)
	}
	return at
}

// FormatActionResult is the confirmation of an ApplyAction call.
func FormatActionResult(r *ActionResult) string {
	text := escapeHTML(r.Task.Text)
	switch r.Action {
	case domain.TaskFinish:
		if r.Rescheduled {
			return fmt.Sprintf("✅ Задача выполнена: <b>%s</b>\n🔄 Следующий раз: %s", text, FormatTime(r.Task.ReminderTime, r.Location))
		}
		return fmt.Sprintf("✅ Задача выполнена: <b>%s</b>", text)
	case domain.TaskPostpone:
		return fmt.Sprintf("⏰ Задача <b>%s</b> перенесена на %s", text, FormatTime(*r.Task.TransferTime, r.Location))
	case domain.TaskRemove:
		return fmt.Sprintf("🗑 Задача удалена: <b>%s</b>", text)
	}
	return ""
}
