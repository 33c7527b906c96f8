// Package timeparse extracts and resolves Russian temporal phrases ("завтра в
// 10 утра", "через 2 часа", "каждый понедельник") into concrete timestamps.
package timeparse

import (
	"regexp"
	"strings"

	"github.com/tazhate/remindbot/internal/domain"
)

// Recurrence is the raw repeat marker found in the text. The morning and
// evening variants only exist until resolution, where they collapse to daily.
type Recurrence int

const (
	NoRecurrence Recurrence = iota
	Daily
	Weekly
	DailyMorning
	DailyEvening
)

func (r Recurrence) String() string {
	switch r {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case DailyMorning:
		return "daily_morning"
	case DailyEvening:
		return "daily_evening"
	default:
		return "none"
	}
}

// Kind is the persisted form of the recurrence.
func (r Recurrence) Kind() domain.RepeatKind {
	switch r {
	case Daily, DailyMorning, DailyEvening:
		return domain.RepeatDaily
	case Weekly:
		return domain.RepeatWeekly
	default:
		return domain.RepeatNone
	}
}

var repeatRules = []struct {
	re   *regexp.Regexp
	kind Recurrence
}{
	{regexp.MustCompile(`каждый (понедельник|вторник|среду|четверг|пятницу|субботу|воскресенье)`), Weekly},
	{regexp.MustCompile(`каждую (неделю)`), Weekly},
	{regexp.MustCompile(`каждый (день)`), Daily},
	{regexp.MustCompile(`каждое (утро)`), DailyMorning},
	{regexp.MustCompile(`каждый (вечер)`), DailyEvening},
}

func detectRecurrence(text string) Recurrence {
	for _, r := range repeatRules {
		if r.re.MatchString(text) {
			return r.kind
		}
	}
	return NoRecurrence
}

const (
	clockAlt      = `\d{1,2}(?::\d{2})?\s*(?:час(?:а|ов)?\s*)?(?:am|pm|утра|вечера|дня|ночи)?`
	weekdayPrefix = `(?:в\s*|на\s*|эту\s*|этот\s*|это\s*|следующий\s*|следующую\s*)?`
	unitAlt       = `минут|час[ао]?в?|дн[ейяи]|день|дня|дни`
)

type phraseRule struct {
	name string
	re   *regexp.Regexp
	// notBeforeDigit rejects matches directly followed by a number, so a bare
	// weekday never swallows the weekday of "среду 10:00".
	notBeforeDigit bool
}

func (r phraseRule) find(text string) []int {
	for _, loc := range r.re.FindAllStringIndex(text, -1) {
		if r.notBeforeDigit && followedByDigit(text[loc[1]:]) {
			continue
		}
		return loc
	}
	return nil
}

func followedByDigit(s string) bool {
	s = strings.TrimLeft(s, " \t\n\r\f\v")
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

// phraseRules run in order; the first match wins. More specific shapes come
// first.
var phraseRules = []phraseRule{
	{name: "offset_with_clock", re: regexp.MustCompile(`через (\d+)\s*(` + unitAlt + `)\s*(?:в\s*)?(` + clockAlt + `)`)},
	{name: "weekday_period", re: regexp.MustCompile(weekdayPrefix + `(` + weekdayAlt + `)\s+(утром|утро|вечером|вечер|ночью|ночь|в\s*обед|обед)`)},
	{name: "day_with_clock", re: regexp.MustCompile(`(завтра|послезавтра|после завтра|after tomorrow)\s*(?:в\s*)?(` + clockAlt + `|13:00|обед)`)},
	{name: "weekday_clock", re: regexp.MustCompile(weekdayPrefix + `(` + weekdayAlt + `)\s*(?:в\s*)?(` + clockAlt + `|13:00)`)},
	{name: "weekday_lunch", re: regexp.MustCompile(weekdayPrefix + `(` + weekdayAlt + `)\s*в\s*обед`)},
	{name: "every_weekday_clock", re: regexp.MustCompile(`каждый\s*(` + weekdayAlt + `)\s*(?:в\s*)?(` + clockAlt + `|13:00|обед|утро|вечер|ночь)`)},
	{name: "clock", re: regexp.MustCompile(`в (` + clockAlt + `|13:00|обед|утро|вечер|ночь)`)},
	{name: "offset", re: regexp.MustCompile(`через (\d+)\s*(` + unitAlt + `)`)},
	{name: "leading_weekday", re: regexp.MustCompile(`^(?:эту\s*|этот\s*|это\s*|следующий\s*|следующую\s*)?(` + weekdayAlt + `)(?:\s+(?:в\s*)?(` + clockAlt + `|13:00|обед|утро|вечер|ночь))?`)},
	{name: "weekday", re: regexp.MustCompile(weekdayPrefix + `(` + weekdayAlt + `)`), notBeforeDigit: true},
	{name: "day", re: regexp.MustCompile(`(завтра|послезавтра|после завтра|after tomorrow)`), notBeforeDigit: true},
	{name: "recurrence", re: regexp.MustCompile(`(каждую неделю|каждый день|каждое утро|каждый вечер)`)},
	{name: "every_weekday", re: regexp.MustCompile(`каждый\s*(` + weekdayAlt + `)`), notBeforeDigit: true},
	{name: "lunch", re: regexp.MustCompile(`(в обед|обед|обеденное время)`)},
	{name: "morning", re: regexp.MustCompile(`(утром|утро|с утра)`)},
	{name: "evening", re: regexp.MustCompile(`(вечером|вечер)`)},
	{name: "night", re: regexp.MustCompile(`(ночью|ночь)`)},
	{name: "next_week", re: regexp.MustCompile(`(на следующей неделе|следующую неделю|через неделю)\s*(?:в\s*)?(` + weekdayAlt + `)?\s*(?:в\s*)?(` + clockAlt + `|13:00|обед|утро|вечер|ночь)?`)},
	// bare "утром" and "вечером" reach here already folded into markers
	{name: "period_marker", re: regexp.MustCompile(`(?:^|\s)((?:с\s+)?(?:am|pm))(?:$|\s)`)},
}

var inAnHourRe = regexp.MustCompile(`через час($|[^\p{L}\p{N}_])`)

// Extraction is the outcome of scanning one message for a temporal phrase.
type Extraction struct {
	Raw        string
	Normalized string
	// Phrase is the matched temporal expression, empty when none was found.
	Phrase     string
	Rule       string
	Remainder  string
	Recurrence Recurrence
}

// Found reports whether a temporal phrase was matched.
func (e Extraction) Found() bool {
	return e.Phrase != ""
}

// Extract normalizes raw, detects recurrence and the first temporal phrase and
// returns the cleaned remainder as a label candidate.
func Extract(raw string) Extraction {
	text := Normalize(raw)
	text = inAnHourRe.ReplaceAllString(text, "через 1 час${1}")

	ex := Extraction{
		Raw:        raw,
		Normalized: text,
		Recurrence: detectRecurrence(text),
		Remainder:  strings.TrimSpace(raw),
	}

	for _, rule := range phraseRules {
		loc := rule.find(text)
		if loc == nil {
			continue
		}
		ex.Phrase = strings.TrimSpace(text[loc[0]:loc[1]])
		ex.Rule = rule.name
		rest := strings.TrimSpace(text[:loc[0]] + " " + text[loc[1]:])
		ex.Remainder = Clean(rest, ex.Phrase)
		break
	}
	return ex
}
