package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/tazhate/remindbot/internal/domain"
	"github.com/tazhate/remindbot/internal/storage"
	"github.com/tazhate/remindbot/internal/timeparse"
)

// ReminderService creates reminders and tasks from a label and a free-form
// Russian time phrase.
type ReminderService struct {
	storage  *storage.Storage
	profiles *ProfileService
	resolver *timeparse.Resolver
	calendar *CalendarService
	now      func() time.Time
}

func NewReminderService(s *storage.Storage, profiles *ProfileService, resolver *timeparse.Resolver, calendar *CalendarService) *ReminderService {
	return &ReminderService{
		storage:  s,
		profiles: profiles,
		resolver: resolver,
		calendar: calendar,
		now:      time.Now,
	}
}

// Created describes a freshly stored entry in the user's zone.
type Created struct {
	Entry           domain.Entry
	PreReminderTime time.Time
	Location        *time.Location
}

// Create resolves timePhrase against the current time in the user's zone and
// stores a reminder or a task. An empty label falls back to whatever is left of
// the phrase once the time is cut out.
func (s *ReminderService) Create(ctx context.Context, userID int64, kind domain.EntityKind, label, timePhrase string) (*Created, error) {
	label = strings.TrimSpace(label)
	timePhrase = strings.TrimSpace(timePhrase)
	if timePhrase == "" {
		if label == "" {
			return nil, domain.ErrEmptyText
		}
		return nil, domain.ErrEmptyTime
	}

	ex := timeparse.Extract(timePhrase)
	if label == "" {
		label = ex.Remainder
	}
	if label == "" {
		return nil, domain.ErrEmptyText
	}

	loc := s.profiles.Location(userID)
	res, err := s.resolver.Resolve(ex, s.now().In(loc))
	if err != nil {
		return nil, fmt.Errorf("resolve time: %w", err)
	}

	var entry domain.Entry
	switch kind {
	case domain.KindTask:
		t := &domain.Task{
			UserID:          userID,
			Text:            label,
			ReminderTime:    res.ReminderTime,
			PreReminderTime: res.PreReminderTime,
			RepeatType:      res.Repeat,
			RepeatTime:      res.RepeatTime,
		}
		if err := s.storage.CreateTask(t); err != nil {
			return nil, fmt.Errorf("create task: %w", err)
		}
		entry = t.Entry()
	default:
		r := &domain.Reminder{
			UserID:          userID,
			Text:            label,
			ReminderTime:    res.ReminderTime,
			PreReminderTime: res.PreReminderTime,
			RepeatType:      res.Repeat,
			RepeatTime:      res.RepeatTime,
		}
		if err := s.storage.CreateReminder(r); err != nil {
			return nil, fmt.Errorf("create reminder: %w", err)
		}
		entry = r.Entry()
	}

	if err := s.calendar.Publish(ctx, entry); err != nil {
		log.Printf("Error publishing %s %d to calendar: %v", entry.Kind, entry.ID, err)
	}

	return &Created{Entry: entry, PreReminderTime: res.PreReminderTime, Location: loc}, nil
}

// List returns the user's reminders and open tasks.
func (s *ReminderService) List(userID int64) (reminders, tasks []domain.Entry, err error) {
	rs, err := s.storage.ListRemindersByUser(userID)
	if err != nil {
		return nil, nil, fmt.Errorf("list reminders: %w", err)
	}
	ts, err := s.storage.ListTasksByUser(userID, false)
	if err != nil {
		return nil, nil, fmt.Errorf("list tasks: %w", err)
	}
	for _, r := range rs {
		reminders = append(reminders, r.Entry())
	}
	for _, t := range ts {
		tasks = append(tasks, t.Entry())
	}
	return reminders, tasks, nil
}

// FormatList renders the user's entries for /list.
func (s *ReminderService) FormatList(userID int64) (string, error) {
	reminders, tasks, err := s.List(userID)
	if err != nil {
		return "", err
	}
	return FormatEntries(reminders, tasks, s.profiles.Location(userID), s.now()), nil
}

// FormatCreated is the confirmation sent after Create.
func FormatCreated(c *Created) string {
	title := "✅ Напоминание установлено!"
	if c.Entry.Kind == domain.KindTask {
		title = "✅ Задача установлена!"
	}

	var sb strings.Builder
	sb.WriteString(title + "\n")
	sb.WriteString("📝 Текст: " + escapeHTML(c.Entry.Text) + "\n")
	sb.WriteString("🕐 Время: " + FormatTime(c.Entry.At, c.Location) + "\n")
	sb.WriteString("⏰ Предварительное напоминание: " + FormatTime(c.PreReminderTime, c.Location))
	if rt := repeatText(c.Entry.RepeatType); rt != "" {
		sb.WriteString("\n🔄 Тип: " + rt)
	}
	return sb.String()
}

// AskForTime is the reply when the label is known but the time is missing.
func AskForTime(label string) string {
	prefix := "Конечно! Я помогу создать напоминание."
	if label = strings.TrimSpace(label); label != "" {
		prefix = "Конечно! Я помогу создать: " + escapeHTML(label)
	}
	return prefix + "\n\n" +
		"⏰ Когда вам напомнить? Укажите время, например:\n" +
		"• 'завтра в 10 утра'\n" +
		"• 'в понедельник в 15:30'\n" +
		"• 'каждый день в 22:00'\n" +
		"• 'через 2 часа'"
}

// TimeNotUnderstood asks the user to rephrase.
func TimeNotUnderstood(phrase string) string {
	return "Не удалось определить время напоминания из фразы: '" + escapeHTML(phrase) + "'\n\n" +
		"Пожалуйста, укажите время более точно.\n" +
		"Примеры:\n" +
		"- 'завтра в 10 часов утра'\n" +
		"- 'в понедельник в 15:30'\n" +
		"- 'каждый день в 22:00'\n" +
		"- 'через 2 часа'\n" +
		"- 'послезавтра в обед'\n" +
		"- 'в среду в 2 дня'"
}
