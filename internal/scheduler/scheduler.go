package scheduler

import (
	"context"
	"fmt"
	"html"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tazhate/remindbot/internal/domain"
	"github.com/tazhate/remindbot/internal/service"
	"github.com/tazhate/remindbot/internal/storage"
)

const (
	DefaultCheckSpec    = "* * * * *"
	DefaultCleanupEvery = 10
)

type MessageSender interface {
	SendMessage(chatID int64, text string) error
	// SendTaskNotification sends text with Finish / Postpone / Remove buttons.
	SendTaskNotification(chatID int64, text string, taskID int64) error
}

type Config struct {
	CheckSpec    string // cron spec of the delivery poll
	CleanupEvery int    // run cleanup on every Nth poll
	Location     *time.Location
}

// Scheduler delivers pre- and main notifications on a fixed poll interval and
// periodically drops expired entries.
type Scheduler struct {
	cron    *cron.Cron
	cfg     Config
	storage *storage.Storage
	sender  MessageSender
	now     func() time.Time

	// polls counts DeliverDue runs since start; cleanup fires when it hits CleanupEvery.
	polls int
}

func New(cfg Config, s *storage.Storage) *Scheduler {
	if cfg.CheckSpec == "" {
		cfg.CheckSpec = DefaultCheckSpec
	}
	if cfg.CleanupEvery <= 0 {
		cfg.CleanupEvery = DefaultCleanupEvery
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	c := cron.New(
		cron.WithLocation(cfg.Location),
		cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		),
	)

	return &Scheduler{
		cron:    c,
		cfg:     cfg,
		storage: s,
		now:     time.Now,
	}
}

func (s *Scheduler) SetSender(sender MessageSender) {
	s.sender = sender
}

func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.cfg.CheckSpec, s.poll); err != nil {
		return fmt.Errorf("add delivery poll: %w", err)
	}

	s.cron.Start()
	log.Printf("Scheduler started (poll: %q, cleanup every %d polls)", s.cfg.CheckSpec, s.cfg.CleanupEvery)

	<-ctx.Done()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Scheduler stopped")
}

// poll is the cron job. SkipIfStillRunning keeps it from overlapping itself,
// so polls needs no lock.
func (s *Scheduler) poll() {
	now := s.now()
	s.DeliverDue(now)

	s.polls++
	if s.polls >= s.cfg.CleanupEvery {
		s.polls = 0
		s.Cleanup(now)
	}
}

// DeliverDue sends every pre-notification that is due, then every main
// notification. A failed send is logged and left for the next poll; flags are
// only set after a successful send.
func (s *Scheduler) DeliverDue(now time.Time) {
	if s.sender == nil {
		return
	}
	s.deliverReminders(now)
	s.deliverTasks(now)
}

func (s *Scheduler) deliverReminders(now time.Time) {
	pre, err := s.storage.ListPreDueReminders(now)
	if err != nil {
		log.Printf("Error getting pre-due reminders: %v", err)
	}
	for _, r := range pre {
		if err := s.sender.SendMessage(r.UserID, preNotification(r.Text, r.IsRepeat())); err != nil {
			log.Printf("Error sending pre-reminder %d to user %d: %v", r.ID, r.UserID, err)
			continue
		}
		if err := s.storage.MarkReminderPreSent(r.ID); err != nil {
			log.Printf("Error marking pre-reminder %d as sent: %v", r.ID, err)
		}
	}

	due, err := s.storage.ListMainDueReminders(now)
	if err != nil {
		log.Printf("Error getting due reminders: %v", err)
		return
	}
	for _, r := range due {
		if err := s.sender.SendMessage(r.UserID, mainNotification(r.Text, r.RepeatType)); err != nil {
			log.Printf("Error sending reminder %d to user %d: %v", r.ID, r.UserID, err)
			continue
		}
		if !r.IsRepeat() {
			if err := s.storage.MarkReminderMainSent(r.ID); err != nil {
				log.Printf("Error marking reminder %d as sent: %v", r.ID, err)
			}
			continue
		}
		next, err := service.NextSchedule(r.RepeatType, r.ReminderTime, now)
		if err != nil {
			log.Printf("Error computing next occurrence of reminder %d: %v", r.ID, err)
			if err := s.storage.MarkReminderMainSent(r.ID); err != nil {
				log.Printf("Error marking reminder %d as sent: %v", r.ID, err)
			}
			continue
		}
		if err := s.storage.RescheduleReminder(r.ID, next.ReminderTime, next.PreReminderTime, next.RepeatTime); err != nil {
			log.Printf("Error rescheduling reminder %d: %v", r.ID, err)
		}
	}
}

func (s *Scheduler) deliverTasks(now time.Time) {
	pre, err := s.storage.ListPreDueTasks(now)
	if err != nil {
		log.Printf("Error getting pre-due tasks: %v", err)
	}
	for _, t := range pre {
		if err := s.sender.SendMessage(t.UserID, preNotification(t.Text, t.IsRepeat())); err != nil {
			log.Printf("Error sending pre-reminder for task %d to user %d: %v", t.ID, t.UserID, err)
			continue
		}
		if err := s.storage.MarkTaskPreSent(t.ID); err != nil {
			log.Printf("Error marking task %d pre-reminder as sent: %v", t.ID, err)
		}
	}

	due, err := s.storage.ListMainDueTasks(now)
	if err != nil {
		log.Printf("Error getting due tasks: %v", err)
		return
	}
	for _, t := range due {
		text := mainNotification(t.Text, t.RepeatType)
		if t.IsTransfered {
			text = "🔔 Напоминаю об отложенной задаче!\n📝 " + html.EscapeString(t.Text)
		}
		if err := s.sender.SendTaskNotification(t.UserID, text, t.ID); err != nil {
			log.Printf("Error sending task %d to user %d: %v", t.ID, t.UserID, err)
			continue
		}
		if err := s.storage.MarkTaskMainSent(t.ID); err != nil {
			log.Printf("Error marking task %d as sent: %v", t.ID, err)
		}
	}
}

// Cleanup deletes expired one-shot reminders and completed tasks.
func (s *Scheduler) Cleanup(now time.Time) {
	n, err := s.storage.DeleteExpiredReminders(now)
	if err != nil {
		log.Printf("Error deleting expired reminders: %v", err)
	} else if n > 0 {
		log.Printf("Cleanup: deleted %d expired reminders", n)
	}

	n, err = s.storage.DeleteCompletedTasks()
	if err != nil {
		log.Printf("Error deleting completed tasks: %v", err)
	} else if n > 0 {
		log.Printf("Cleanup: deleted %d completed tasks", n)
	}
}

func preNotification(text string, recurring bool) string {
	mark := ""
	if recurring {
		mark = " 🔄"
	}
	return fmt.Sprintf("⏰ Предварительное напоминание (через %d минут)!%s\n📝 %s",
		int(domain.PreReminderOffset/time.Minute), mark, html.EscapeString(text))
}

func mainNotification(text string, kind domain.RepeatKind) string {
	head := "🔔 Время пришло!"
	if label := kind.Label(); label != "" {
		head += " 🔄 (" + label + ")"
	}
	return head + "\n📝 " + html.EscapeString(text)
}
