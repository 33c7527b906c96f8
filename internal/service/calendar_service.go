package service

import (
	"context"
	"fmt"
	"log"

	"github.com/tazhate/remindbot/internal/clients/caldav"
	"github.com/tazhate/remindbot/internal/domain"
)

// EventStore is the part of the CalDAV client the calendar export needs.
type EventStore interface {
	IsConfigured() bool
	CalendarPath() string
	SetCalendarPath(path string)
	DiscoverCalendars(ctx context.Context) ([]caldav.Calendar, error)
	PutEvent(ctx context.Context, event *caldav.Event) error
	DeleteEvent(ctx context.Context, uid string) error
}

// CalendarService mirrors created reminders and tasks into an external calendar.
// A nil *CalendarService is valid and does nothing.
type CalendarService struct {
	client EventStore
}

func NewCalendarService(client EventStore) *CalendarService {
	return &CalendarService{client: client}
}

// IsConfigured returns true if CalDAV client is configured
func (s *CalendarService) IsConfigured() bool {
	return s != nil && s.client != nil && s.client.IsConfigured()
}

// Init picks the first discovered calendar when none was configured.
func (s *CalendarService) Init(ctx context.Context) error {
	if !s.IsConfigured() || s.client.CalendarPath() != "" {
		return nil
	}
	cals, err := s.client.DiscoverCalendars(ctx)
	if err != nil {
		return fmt.Errorf("discover calendars: %w", err)
	}
	if len(cals) == 0 {
		return fmt.Errorf("no calendars found")
	}
	s.client.SetCalendarPath(cals[0].Path)
	log.Printf("CalDAV calendar: %s (%s)", cals[0].DisplayName, cals[0].Path)
	return nil
}

// Publish writes e as an event with a pre-notification alarm.
func (s *CalendarService) Publish(ctx context.Context, e domain.Entry) error {
	if !s.IsConfigured() {
		return nil
	}
	event := &caldav.Event{
		UID:         e.CalendarUID(),
		Summary:     e.Text,
		StartTime:   e.At,
		AlarmBefore: domain.PreReminderOffset,
		RRule:       RRule(e.RepeatType),
	}
	if e.Kind == domain.KindTask {
		event.Description = "Задача"
	}
	if err := s.client.PutEvent(ctx, event); err != nil {
		return fmt.Errorf("publish %s %d: %w", e.Kind, e.ID, err)
	}
	return nil
}

// Remove deletes the event mirrored from e.
func (s *CalendarService) Remove(ctx context.Context, e domain.Entry) error {
	if !s.IsConfigured() {
		return nil
	}
	if err := s.client.DeleteEvent(ctx, e.CalendarUID()); err != nil {
		return fmt.Errorf("remove %s %d: %w", e.Kind, e.ID, err)
	}
	return nil
}
