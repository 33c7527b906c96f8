package timeparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var clockRe = regexp.MustCompile(`(\d{1,2})(?::(\d{2}))?\s*(?:час(?:а|ов)?\s*)?(am|pm|утра|вечера|дня|ночи)?`)

// Clock is a wall-clock time of day.
type Clock struct {
	Hour, Minute int
}

// parseClock finds the first clock-like substring of s ("10", "9:30",
// "7 pm", "8 утра") and converts it to a 24-hour time of day.
func parseClock(s string) (Clock, bool) {
	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return Clock{}, false
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}

	suffix := m[3]
	if suffix == "" {
		// the marker can be separated from the digits by other words
		switch {
		case strings.Contains(s, "pm"):
			suffix = "pm"
		case strings.Contains(s, "am"):
			suffix = "am"
		}
	}
	switch suffix {
	case "pm", "вечера", "дня":
		if hour < 12 {
			hour += 12
		}
	case "am", "утра", "ночи":
		if hour == 12 {
			hour = 0
		}
	}

	if hour > 23 || minute > 59 {
		return Clock{}, false
	}
	return Clock{Hour: hour, Minute: minute}, true
}

// periodClock maps a day-period word found in s to its default time of day.
func periodClock(s string) (Clock, bool) {
	switch {
	case strings.Contains(s, "вечер"):
		return Clock{Hour: 19}, true
	case strings.Contains(s, "утр"):
		return Clock{Hour: 9}, true
	case strings.Contains(s, "ноч"):
		return Clock{Hour: 22}, true
	case strings.Contains(s, "обед"):
		return Clock{Hour: 13}, true
	}
	return Clock{}, false
}

// on returns date d at clock c in d's location, seconds cleared.
func (c Clock) on(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour, c.Minute, 0, 0, d.Location())
}

var defaultClock = Clock{Hour: 9}
