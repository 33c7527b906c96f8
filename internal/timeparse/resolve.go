package timeparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tazhate/remindbot/internal/domain"
)

// Result is a resolved schedule in the user's zone.
type Result struct {
	ReminderTime    time.Time
	PreReminderTime time.Time
	Repeat          domain.RepeatKind
	// RepeatTime is the next occurrence after ReminderTime, nil for one-shot entries.
	RepeatTime *time.Time
}

// FallbackParser resolves phrases none of the built-in shapes understand.
// ok is false when the phrase carries no recognizable date.
type FallbackParser interface {
	Parse(phrase string, now time.Time) (t time.Time, ok bool, err error)
}

type Resolver struct {
	fallback FallbackParser
}

// NewResolver creates a resolver. fallback may be nil.
func NewResolver(fallback FallbackParser) *Resolver {
	return &Resolver{fallback: fallback}
}

var (
	offsetWithClockRe = regexp.MustCompile(`^через (\d+)\s*(` + unitAlt + `)\s*(?:в\s*)?(` + clockAlt + `)`)
	offsetRe          = regexp.MustCompile(`^через (\d+)\s*(` + unitAlt + `)`)
	inClockRe         = regexp.MustCompile(`в\s*(` + clockAlt + `)`)
	weekdayInPhraseRe = regexp.MustCompile(`(следующий\s*|следующую\s*|следующее\s*)?(` + weekdayAlt + `)`)
	barePeriodRe      = regexp.MustCompile(`^(?:в\s*|с\s*)?(обеденное время|обед|утром|утро|утра|вечером|вечер|ночью|ночь|am|pm)$`)
	bareClockRe       = regexp.MustCompile(`^(?:в\s*)?(` + clockAlt + `|13:00)$`)
	digitRe           = regexp.MustCompile(`\d`)
)

var nextWeekMarkers = []string{"на следующей неделе", "следующую неделю", "через неделю"}

var recurrenceOnly = map[string]bool{
	"каждую неделю": true,
	"каждый день":   true,
	"каждое утро":   true,
	"каждый вечер":  true,
}

// Resolve turns an extraction into concrete timestamps. now must already be
// expressed in the user's zone.
func (r *Resolver) Resolve(ex Extraction, now time.Time) (*Result, error) {
	reminderTime, ok, err := r.reminderTime(ex, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("resolve %q: %w", ex.Phrase, domain.ErrTimeNotUnderstood)
	}

	res := &Result{
		ReminderTime:    reminderTime,
		PreReminderTime: reminderTime.Add(-domain.PreReminderOffset),
		Repeat:          ex.Recurrence.Kind(),
	}
	if next, ok := NextOccurrence(res.Repeat, reminderTime); ok {
		res.RepeatTime = &next
	}
	return res, nil
}

func (r *Resolver) reminderTime(ex Extraction, now time.Time) (time.Time, bool, error) {
	if !ex.Found() {
		if ex.Recurrence == NoRecurrence {
			// dates like "15 января" are left to the fallback parser
			return r.resolveGeneric(ex.Normalized, now)
		}
		t, ok := recurrenceDefault(ex.Recurrence, now)
		return t, ok, nil
	}
	phrase := ex.Phrase

	if t, ok := resolveOffset(phrase, now); ok {
		return t, true, nil
	}
	if t, ok := resolveDay(ex, now); ok {
		return t, true, nil
	}
	if t, ok := resolveWeekday(phrase, now); ok {
		return t, true, nil
	}
	if t, ok := resolveNextWeek(phrase, now); ok {
		return t, true, nil
	}

	if !recurrenceOnly[phrase] {
		t, ok, err := r.resolveGeneric(phrase, now)
		if err != nil {
			return time.Time{}, false, err
		}
		if ok {
			return t, true, nil
		}
	}

	t, ok := recurrenceDefault(ex.Recurrence, now)
	return t, ok, nil
}

// resolveOffset handles "через N минут/часов/дней [в HH:MM]".
func resolveOffset(phrase string, now time.Time) (time.Time, bool) {
	if m := offsetWithClockRe.FindStringSubmatch(phrase); m != nil {
		n, _ := strconv.Atoi(m[1])
		if isDayUnit(m[2]) {
			c, ok := parseClock(m[3])
			if !ok {
				c = defaultClock
			}
			return c.on(now.AddDate(0, 0, n)), true
		}
		return addUnits(now, n, m[2]), true
	}

	m := offsetRe.FindStringSubmatch(phrase)
	if m == nil {
		return time.Time{}, false
	}
	n, _ := strconv.Atoi(m[1])
	if !isDayUnit(m[2]) {
		return addUnits(now, n, m[2]), true
	}
	c := defaultClock
	if cm := inClockRe.FindStringSubmatch(phrase[len(m[0]):]); cm != nil {
		if parsed, ok := parseClock(cm[1]); ok {
			c = parsed
		}
	}
	return c.on(now.AddDate(0, 0, n)), true
}

func isDayUnit(unit string) bool {
	return strings.HasPrefix(unit, "дн") || unit == "день"
}

func addUnits(now time.Time, n int, unit string) time.Time {
	d := time.Duration(n) * time.Minute
	if strings.HasPrefix(unit, "час") {
		d = time.Duration(n) * time.Hour
	}
	return now.Truncate(time.Minute).Add(d)
}

var periodWords = []string{"вечером", "вечер", "утром", "утро", "с утра", "ночью", "ночь", "в обед", "обед"}

// resolveDay handles "завтра" and "послезавтра" with an optional clock.
func resolveDay(ex Extraction, now time.Time) (time.Time, bool) {
	phrase := ex.Phrase
	if !strings.Contains(phrase, "завтра") && !strings.Contains(phrase, "after tomorrow") {
		return time.Time{}, false
	}

	raw := strings.ToLower(ex.Raw)
	days := 1
	if strings.Contains(phrase, "after tomorrow") || strings.Contains(phrase, "послезавтра") ||
		strings.Contains(raw, "послезавтра") || strings.Contains(raw, "после завтра") {
		days = 2
	}
	day := now.AddDate(0, 0, days)

	if digitRe.MatchString(phrase) {
		if c, ok := parseClock(phrase); ok {
			return c.on(day), true
		}
		return defaultClock.on(day), true
	}
	if strings.Contains(phrase, "обед") {
		return Clock{Hour: 13}.on(day), true
	}
	for _, w := range periodWords {
		if hasWord(raw, w) {
			c, _ := periodClock(w)
			return c.on(day), true
		}
	}
	return defaultClock.on(day), true
}

// resolveWeekday handles phrases naming a weekday. The result is always
// strictly after now: naming today means next week.
func resolveWeekday(phrase string, now time.Time) (time.Time, bool) {
	m := weekdayInPhraseRe.FindStringSubmatch(phrase)
	if m == nil {
		return time.Time{}, false
	}
	target, ok := domain.ParseWeekday(m[2])
	if !ok {
		return time.Time{}, false
	}

	days := domain.DaysUntil(now.Weekday(), target)
	if m[1] != "" || containsAny(phrase, nextWeekMarkers) {
		if days < 7 {
			days += 7
		}
	}
	day := now.AddDate(0, 0, days)

	if c, ok := periodClock(phrase); ok {
		return c.on(day), true
	}
	if c, ok := parseClock(phrase); ok {
		return c.on(day), true
	}
	return defaultClock.on(day), true
}

// resolveNextWeek handles "через неделю" and the like without a weekday.
func resolveNextWeek(phrase string, now time.Time) (time.Time, bool) {
	if !containsAny(phrase, nextWeekMarkers) {
		return time.Time{}, false
	}
	day := now.AddDate(0, 0, 7)
	if c, ok := parseClock(phrase); ok {
		return c.on(day), true
	}
	if c, ok := periodClock(phrase); ok {
		return c.on(day), true
	}
	return defaultClock.on(day), true
}

// resolveGeneric hands the phrase to the fallback parser. Bare day periods
// follow the fixed defaults instead, and plain clocks the parser cannot read
// ("в 10") are handled locally. A time already past today moves to tomorrow.
func (r *Resolver) resolveGeneric(phrase string, now time.Time) (time.Time, bool, error) {
	var t time.Time
	if barePeriodRe.MatchString(phrase) {
		t = bareClock(phrase).on(now)
	} else {
		parsed, ok, err := r.parseFallback(phrase, now)
		if err != nil {
			return time.Time{}, false, err
		}
		switch {
		case ok:
			t = parsed
		case bareClockRe.MatchString(phrase):
			c, ok := parseClock(phrase)
			if !ok {
				return time.Time{}, false, nil
			}
			t = c.on(now)
		default:
			return time.Time{}, false, nil
		}
	}

	if t.Before(now) {
		t = t.AddDate(0, 0, 1)
	}
	return t, true, nil
}

func (r *Resolver) parseFallback(phrase string, now time.Time) (time.Time, bool, error) {
	if r.fallback == nil {
		return time.Time{}, false, nil
	}
	parsed, ok, err := r.fallback.Parse(phrase, now)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("fallback parse %q: %v: %w", phrase, err, domain.ErrTimeNotUnderstood)
	}
	if !ok {
		return time.Time{}, false, nil
	}
	return parsed.In(now.Location()), true, nil
}

// bareClock maps a lone day period or am/pm marker to its default clock.
func bareClock(phrase string) Clock {
	if c, ok := periodClock(phrase); ok {
		return c
	}
	if strings.HasSuffix(phrase, "pm") {
		return Clock{Hour: 19}
	}
	return defaultClock
}

// recurrenceDefault picks the first occurrence of a recurrence given without
// an explicit time.
func recurrenceDefault(rec Recurrence, now time.Time) (time.Time, bool) {
	switch rec {
	case DailyMorning:
		return nextAt(Clock{Hour: 8}, now), true
	case DailyEvening:
		return nextAt(Clock{Hour: 20}, now), true
	case Weekly:
		return defaultClock.on(now.AddDate(0, 0, domain.DaysUntil(now.Weekday(), time.Monday))), true
	case Daily:
		return defaultClock.on(now.AddDate(0, 0, 1)), true
	}
	return time.Time{}, false
}

// nextAt returns today at c, or tomorrow when that moment has passed.
func nextAt(c Clock, now time.Time) time.Time {
	t := c.on(now)
	if !t.After(now) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// NextOccurrence returns the occurrence one period after t for recurring kinds.
// User zones are fixed offsets, so a period is always a whole number of days.
func NextOccurrence(kind domain.RepeatKind, t time.Time) (time.Time, bool) {
	if !kind.IsRecurring() {
		return time.Time{}, false
	}
	return t.Add(kind.Period()), true
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
