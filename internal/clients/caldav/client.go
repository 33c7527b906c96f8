package caldav

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
)

const defaultEventDuration = 15 * time.Minute

// Client writes reminders to a CalDAV calendar using Basic auth.
type Client struct {
	baseURL      string
	username     string
	password     string
	calendarPath string

	mu     sync.Mutex
	client *caldav.Client
}

func NewClient(baseURL, username, password string) *Client {
	return &Client{
		baseURL:  baseURL,
		username: username,
		password: password,
	}
}

// IsConfigured returns true if the client has an endpoint and credentials
func (c *Client) IsConfigured() bool {
	return c != nil && c.baseURL != "" && c.username != "" && c.password != ""
}

func (c *Client) SetCalendarPath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calendarPath = path
}

func (c *Client) CalendarPath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calendarPath
}

func (c *Client) connect() (*caldav.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}

	httpClient := &http.Client{
		Transport: &basicAuthTransport{
			username: c.username,
			password: c.password,
		},
		Timeout: 30 * time.Second,
	}

	client, err := caldav.NewClient(httpClient, c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to CalDAV: %w", err)
	}
	c.client = client
	return client, nil
}

type basicAuthTransport struct {
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	return http.DefaultTransport.RoundTrip(req)
}

// DiscoverCalendars lists the calendars of the authenticated user.
func (c *Client) DiscoverCalendars(ctx context.Context) ([]Calendar, error) {
	client, err := c.connect()
	if err != nil {
		return nil, err
	}

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("find principal: %w", err)
	}
	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("find home set: %w", err)
	}
	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("find calendars: %w", err)
	}

	result := make([]Calendar, 0, len(cals))
	for _, cal := range cals {
		result = append(result, Calendar{Path: cal.Path, DisplayName: cal.Name})
	}
	return result, nil
}

// PutEvent creates or replaces the event with event.UID.
func (c *Client) PutEvent(ctx context.Context, event *Event) error {
	if event.UID == "" {
		return fmt.Errorf("event UID is empty")
	}
	client, err := c.connect()
	if err != nil {
		return err
	}
	path, err := c.eventPath(event.UID)
	if err != nil {
		return err
	}

	if _, err := client.PutCalendarObject(ctx, path, eventToICS(event, time.Now())); err != nil {
		return fmt.Errorf("put event: %w", err)
	}
	return nil
}

// DeleteEvent removes an event by UID.
func (c *Client) DeleteEvent(ctx context.Context, uid string) error {
	client, err := c.connect()
	if err != nil {
		return err
	}
	path, err := c.eventPath(uid)
	if err != nil {
		return err
	}

	if err := client.RemoveAll(ctx, path); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

func (c *Client) eventPath(uid string) (string, error) {
	path := c.CalendarPath()
	if path == "" {
		return "", fmt.Errorf("calendar path not specified")
	}
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return path + uid + ".ics", nil
}

func eventToICS(event *Event, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//RemindBot//CalDAV//RU")

	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, event.UID)
	vevent.Props.SetText(ical.PropSummary, event.Summary)
	if event.Description != "" {
		vevent.Props.SetText(ical.PropDescription, event.Description)
	}

	duration := event.Duration
	if duration <= 0 {
		duration = defaultEventDuration
	}
	vevent.Props.SetDateTime(ical.PropDateTimeStart, event.StartTime.UTC())
	vevent.Props.SetDateTime(ical.PropDateTimeEnd, event.StartTime.Add(duration).UTC())
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())

	if event.RRule != "" {
		vevent.Props.Set(&ical.Prop{Name: ical.PropRecurrenceRule, Params: make(ical.Params), Value: event.RRule})
	}

	if event.AlarmBefore > 0 {
		alarm := ical.NewComponent(ical.CompAlarm)
		alarm.Props.SetText(ical.PropAction, "DISPLAY")
		alarm.Props.SetText(ical.PropDescription, event.Summary)
		alarm.Props.Set(&ical.Prop{Name: ical.PropTrigger, Params: make(ical.Params), Value: formatTrigger(event.AlarmBefore)})
		vevent.Children = append(vevent.Children, alarm)
	}

	cal.Children = append(cal.Children, vevent.Component)
	return cal
}

// formatTrigger renders a negative iCalendar duration, "-PT15M".
func formatTrigger(d time.Duration) string {
	minutes := int(d / time.Minute)
	if minutes%60 == 0 {
		return fmt.Sprintf("-PT%dH", minutes/60)
	}
	return fmt.Sprintf("-PT%dM", minutes)
}

// SerializeCalendar encodes cal as text.
func SerializeCalendar(cal *ical.Calendar) (string, error) {
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return "", fmt.Errorf("encode calendar: %w", err)
	}
	return buf.String(), nil
}
