package timeparse

import (
	"fmt"
	"regexp"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/olebedev/when/rules/ru"
)

// timeOfDayRe detects a clock inside the text the parser matched. Offsets
// ("через месяц") keep the time they computed.
var timeOfDayRe = regexp.MustCompile(`(?:^|\D)\d{1,2}[:.]\d{2}(?:$|[^\d.])|\d\s*(?:am|pm)|час|утр|вечер|дня|обед|ноч|через`)

// WhenParser is the general-purpose fallback backed by olebedev/when with the
// Russian rule set. Numeric dates are read day-first. The English hour rules
// read the am/pm markers left by Normalize.
type WhenParser struct {
	w *when.Parser
}

func NewWhenParser() *WhenParser {
	w := when.New(nil)
	w.Add(ru.All...)
	w.Add(common.All...)
	w.Add(en.Hour(rules.Override), en.HourMinute(rules.Override))
	return &WhenParser{w: w}
}

// Parse resolves phrase relative to now. Dates without a time of day land at
// 09:00.
func (p *WhenParser) Parse(phrase string, now time.Time) (time.Time, bool, error) {
	r, err := p.w.Parse(phrase, now)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("when parse: %w", err)
	}
	if r == nil {
		return time.Time{}, false, nil
	}

	t := r.Time.In(now.Location()).Truncate(time.Minute)
	if !timeOfDayRe.MatchString(r.Text) {
		t = defaultClock.on(t)
	}
	return t, true, nil
}
