package caldav

import "time"

// Calendar is a collection found under the user's calendar home.
type Calendar struct {
	Path        string
	DisplayName string
}

// Event is a reminder exported as a VEVENT.
type Event struct {
	UID         string
	Summary     string
	Description string
	StartTime   time.Time
	Duration    time.Duration
	// AlarmBefore adds a VALARM that fires this long before StartTime.
	AlarmBefore time.Duration
	RRule       string // e.g. "FREQ=WEEKLY"
}
