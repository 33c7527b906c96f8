package timeparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tazhate/remindbot/internal/domain"
)

var (
	monthDateRe   = regexp.MustCompile(`(\d{1,2})\s+(января|февраля|марта|апреля|мая|июня|июля|августа|сентября|октября|ноября|декабря)`)
	dottedDateRe  = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})(?:\.(\d{2,4}))?`)
	slashedDateRe = regexp.MustCompile(`(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?`)
)

var relativeDays = []struct {
	words  []string
	offset int
}{
	// before "завтра", which it contains
	{[]string{"послезавтра"}, 2},
	{[]string{"сегодня", "сегодняшние", "сегодняшнее"}, 0},
	{[]string{"завтра", "завтрашние", "завтрашнее"}, 1},
	{[]string{"вчера", "вчерашние", "вчерашнее"}, -1},
}

// ParseDateQuery detects a calendar date in a deletion query such as
// "удали все на завтра" or "удали напоминания 15 января". The date is returned
// as midnight in now's zone.
func ParseDateQuery(query string, now time.Time) (time.Time, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	for _, rd := range relativeDays {
		for _, w := range rd.words {
			if hasWord(q, w) {
				return today.AddDate(0, 0, rd.offset), true
			}
		}
	}

	for _, w := range strings.FieldsFunc(q, func(r rune) bool { return !isWordRune(r) }) {
		if d, ok := domain.ParseWeekday(w); ok {
			return today.AddDate(0, 0, domain.DaysUntil(now.Weekday(), d)), true
		}
	}

	if m := monthDateRe.FindStringSubmatch(q); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := domain.ParseMonth(m[2])
		if d, ok := makeDate(today.Year(), month, day, now.Location()); ok {
			if d.Before(today) {
				d, ok = makeDate(today.Year()+1, month, day, now.Location())
			}
			if ok {
				return d, true
			}
		}
	}

	for _, re := range []*regexp.Regexp{dottedDateRe, slashedDateRe} {
		m := re.FindStringSubmatch(q)
		if m == nil {
			continue
		}
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year := today.Year()
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
			if year < 100 {
				year += 2000
			}
		}
		if d, ok := makeDate(year, time.Month(month), day, now.Location()); ok {
			return d, true
		}
	}
	return time.Time{}, false
}

// makeDate rejects dates that time.Date would silently normalize (31.02).
func makeDate(year int, month time.Month, day int, loc *time.Location) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 {
		return time.Time{}, false
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if d.Month() != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

// SameDay reports whether t falls on the calendar date of day in day's zone.
func SameDay(t, day time.Time) bool {
	t = t.In(day.Location())
	y1, m1, d1 := t.Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
