package timeparse

import (
	"regexp"
	"strings"
)

const weekdayAlt = `понедельник|вторник|среда|среду|четверг|пятница|пятницу|суббота|субботу|воскресенье`

var (
	weekdayWithPeriodRe = regexp.MustCompile(`(?:в\s*|на\s*)?(` + weekdayAlt + `)\s+(утром|утро|вечером|вечер|ночью|ночь|в\s*обед|обед)`)
	relativeDaysRe      = regexp.MustCompile(`через\s+\d+\s+дня`)
	afternoonRe         = regexp.MustCompile(`(\d{1,2}(?::\d{2})?\s*)дня`)
)

type replacement struct {
	old, new string
}

// Applied in order as plain substring replacements.
var phraseReplacements = []replacement{
	{"полдень", "12:00"},
	{"полночь", "00:00"},
	{"послезавтра", "after tomorrow"},
	{"после завтра", "after tomorrow"},
	{"в понедельник", "понедельник"},
	{"в вторник", "вторник"},
	{"в среду", "среду"},
	{"в четверг", "четверг"},
	{"в пятницу", "пятницу"},
	{"в субботу", "субботу"},
	{"в воскресенье", "воскресенье"},
	{"на понедельник", "понедельник"},
	{"на вторник", "вторник"},
	{"на среду", "среду"},
	{"на четверг", "четверг"},
	{"на пятницу", "пятницу"},
	{"на субботу", "субботу"},
	{"на воскресенье", "воскресенье"},
}

// Day-period words folded into am/pm markers. Skipped when a weekday carries its
// own period ("в среду вечером"), otherwise the period would be lost.
var periodReplacements = []replacement{
	{"вечера", "pm"},
	{"вечером", "pm"},
	{"днём", "pm"},
	{"днем", "pm"},
	{"утра", "am"},
	{"утром", "am"},
	{"ночи", "am"},
	{"ночью", "am"},
}

// Normalize lower-cases s and rewrites common Russian time words into a
// canonical vocabulary understood by the extractor.
func Normalize(s string) string {
	text := strings.ToLower(s)
	weekdayPeriod := weekdayWithPeriodRe.MatchString(text)

	// "в 3 дня" is an afternoon hour, "через 3 дня" is an offset
	if !relativeDaysRe.MatchString(text) {
		text = afternoonRe.ReplaceAllString(text, "${1}pm")
	}

	for _, r := range phraseReplacements {
		text = strings.ReplaceAll(text, r.old, r.new)
	}
	if !weekdayPeriod {
		for _, r := range periodReplacements {
			text = strings.ReplaceAll(text, r.old, r.new)
		}
	}
	return text
}
