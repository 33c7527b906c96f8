package domain

import "time"

// weekdayForms maps every accepted Russian weekday spelling (full names in the
// nominative and accusative, plus two-letter abbreviations) to a weekday.
var weekdayForms = map[string]time.Weekday{
	"понедельник": time.Monday, "пн": time.Monday,
	"вторник": time.Tuesday, "вт": time.Tuesday,
	"среда": time.Wednesday, "среду": time.Wednesday, "ср": time.Wednesday,
	"четверг": time.Thursday, "чт": time.Thursday,
	"пятница": time.Friday, "пятницу": time.Friday, "пт": time.Friday,
	"суббота": time.Saturday, "субботу": time.Saturday, "сб": time.Saturday,
	"воскресенье": time.Sunday, "вс": time.Sunday,
}

// ParseWeekday parses a lower-case Russian weekday word.
func ParseWeekday(s string) (time.Weekday, bool) {
	d, ok := weekdayForms[s]
	return d, ok
}

// MondayIndex numbers weekdays Monday=0 ... Sunday=6.
func MondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// DaysUntil returns how many days ahead of from the next target weekday is.
// The same weekday counts as a full week ahead.
func DaysUntil(from, target time.Weekday) int {
	ahead := MondayIndex(target) - MondayIndex(from)
	if ahead <= 0 {
		ahead += 7
	}
	return ahead
}

var genitiveMonths = map[string]time.Month{
	"января": time.January, "февраля": time.February, "марта": time.March,
	"апреля": time.April, "мая": time.May, "июня": time.June,
	"июля": time.July, "августа": time.August, "сентября": time.September,
	"октября": time.October, "ноября": time.November, "декабря": time.December,
}

// ParseMonth parses a Russian month name in the genitive ("5 марта").
func ParseMonth(s string) (time.Month, bool) {
	m, ok := genitiveMonths[s]
	return m, ok
}

var weekdayNames = [...]string{"воскресенье", "понедельник", "вторник", "среда", "четверг", "пятница", "суббота"}

// WeekdayName returns the nominative Russian name of d.
func WeekdayName(d time.Weekday) string {
	return weekdayNames[d]
}
