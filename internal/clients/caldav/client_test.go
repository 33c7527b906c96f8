package caldav

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent() *Event {
	return &Event{
		UID:         "reminder-1@remindbot",
		Summary:     "планерка",
		StartTime:   time.Date(2024, 1, 8, 8, 0, 0, 0, time.FixedZone("+3", 3*3600)),
		AlarmBefore: 15 * time.Minute,
		RRule:       "FREQ=WEEKLY",
	}
}

func TestEventToICS(t *testing.T) {
	cal := eventToICS(testEvent(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.Len(t, cal.Children, 1)
	vevent := cal.Children[0]
	assert.Equal(t, ical.CompEvent, vevent.Name)
	assert.Equal(t, "FREQ=WEEKLY", vevent.Props.Get(ical.PropRecurrenceRule).Value)
	require.Len(t, vevent.Children, 1)
	assert.Equal(t, ical.CompAlarm, vevent.Children[0].Name)
	assert.Equal(t, "-PT15M", vevent.Children[0].Props.Get(ical.PropTrigger).Value)

	text, err := SerializeCalendar(cal)
	require.NoError(t, err)
	assert.Contains(t, text, "DTSTART:20240108T050000Z")
	assert.Contains(t, text, "DTEND:20240108T051500Z")
	assert.Contains(t, text, "BEGIN:VALARM")
}

func TestEventToICSOneShotHasNoRule(t *testing.T) {
	e := testEvent()
	e.RRule = ""
	e.AlarmBefore = 0
	cal := eventToICS(e, time.Now())
	vevent := cal.Children[0]
	assert.Nil(t, vevent.Props.Get(ical.PropRecurrenceRule))
	assert.Empty(t, vevent.Children)
}

func TestFormatTrigger(t *testing.T) {
	assert.Equal(t, "-PT15M", formatTrigger(15*time.Minute))
	assert.Equal(t, "-PT1H", formatTrigger(time.Hour))
}

func TestPutAndDeleteEvent(t *testing.T) {
	var methods, paths []string
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "anna" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		methods = append(methods, r.Method)
		paths = append(paths, r.URL.Path)
		if r.Method == http.MethodPut {
			b, _ := io.ReadAll(r.Body)
			body = string(b)
			w.WriteHeader(http.StatusCreated)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anna", "secret")
	require.True(t, c.IsConfigured())
	c.SetCalendarPath("/calendars/anna/main")

	require.NoError(t, c.PutEvent(context.Background(), testEvent()))
	require.NoError(t, c.DeleteEvent(context.Background(), "reminder-1@remindbot"))

	assert.Equal(t, []string{http.MethodPut, http.MethodDelete}, methods)
	assert.Equal(t, "/calendars/anna/main/reminder-1@remindbot.ics", paths[0])
	assert.Contains(t, body, "SUMMARY:планерка")
}

func TestPutEventWithoutCalendar(t *testing.T) {
	c := NewClient("http://localhost", "u", "p")
	assert.Error(t, c.PutEvent(context.Background(), testEvent()))
	assert.False(t, NewClient("", "u", "p").IsConfigured())
}
