package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/tazhate/remindbot/internal/domain"
)

const timeLayout = "02.01.2006 15:04"

var shortWeekdays = [...]string{"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"}

// FormatTime renders t in loc as "02.01.2006 15:04".
func FormatTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(timeLayout)
}

// FormatDate renders the calendar date the way deletion replies show it: "3.1.2024".
func FormatDate(t time.Time, loc *time.Location) string {
	t = t.In(loc)
	return fmt.Sprintf("%d.%d.%d", t.Day(), int(t.Month()), t.Year())
}

// RelativeHint is "через N дн./ч./мин." for future moments and "скоро" otherwise.
func RelativeHint(t, now time.Time) string {
	until := t.Sub(now)
	switch {
	case until <= 0:
		return "скоро"
	case until >= 24*time.Hour:
		return fmt.Sprintf("через %d дн.", int(until/(24*time.Hour)))
	case until > time.Hour:
		return fmt.Sprintf("через %d ч.", int(until/time.Hour))
	default:
		return fmt.Sprintf("через %d мин.", int(until/time.Minute))
	}
}

func repeatText(k domain.RepeatKind) string {
	switch k {
	case domain.RepeatDaily:
		return "каждый день"
	case domain.RepeatWeekly:
		return "каждую неделю"
	}
	return ""
}

// nextText is the "Следующее:" part of a recurring entry.
func nextText(e domain.Entry, loc *time.Location) string {
	t := e.At.In(loc)
	switch e.RepeatType {
	case domain.RepeatDaily:
		return t.Format("15:04")
	case domain.RepeatWeekly:
		return shortWeekdays[t.Weekday()] + " в " + t.Format("15:04")
	}
	return FormatTime(t, loc)
}

// FormatEntries renders the /list reply. Reminders and tasks are grouped into
// one-shot and recurring sections.
func FormatEntries(reminders, tasks []domain.Entry, loc *time.Location, now time.Time) string {
	if len(reminders) == 0 && len(tasks) == 0 {
		return "📋 У вас пока нет активных напоминаний.\n\n" +
			"💡 Создайте новое напоминание, написав мне что-то вроде:\n" +
			"• 'Напомни завтра в 10 утра купить хлеб'\n" +
			"• 'Каждый день в 22:00 принимать витамины'\n" +
			"• 'В понедельник в 15:30 встреча'"
	}

	var sb strings.Builder
	sb.WriteString("📋 <b>Ваши напоминания:</b>\n")
	writeSection(&sb, "📅 <b>Разовые напоминания:</b>", "🔄 <b>Повторяющиеся напоминания:</b>", reminders, loc, now)
	writeSection(&sb, "📅 <b>Разовые задачи:</b>", "🔄 <b>Повторяющиеся задачи:</b>", tasks, loc, now)
	sb.WriteString("\n💡 <b>Информация:</b>\n")
	sb.WriteString("• Разовые напоминания удаляются автоматически после выполнения\n")
	sb.WriteString("• Повторяющиеся напоминания и задачи работают по расписанию\n")
	sb.WriteString("• Вы получите уведомление за 15 минут до события\n")
	sb.WriteString("• При переносе задача будет отложена на полчаса")
	return sb.String()
}

func writeSection(sb *strings.Builder, oneShotTitle, recurringTitle string, entries []domain.Entry, loc *time.Location, now time.Time) {
	var oneShot, recurring []domain.Entry
	for _, e := range entries {
		if e.RepeatType.IsRecurring() {
			recurring = append(recurring, e)
		} else {
			oneShot = append(oneShot, e)
		}
	}

	if len(oneShot) > 0 {
		sb.WriteString("\n" + oneShotTitle + "\n")
		for _, e := range oneShot {
			icon := "⏳"
			if !e.At.After(now) {
				icon = "🔔"
			}
			fmt.Fprintf(sb, "%s <b>%s</b>\n   🕐 %s (%s)\n", icon, escapeHTML(e.Text), FormatTime(e.At, loc), RelativeHint(e.At, now))
		}
	}
	if len(recurring) > 0 {
		sb.WriteString("\n" + recurringTitle + "\n")
		for _, e := range recurring {
			fmt.Fprintf(sb, "🔄 <b>%s</b> (%s)\n   🕐 Следующее: %s\n", escapeHTML(e.Text), repeatText(e.RepeatType), nextText(e, loc))
		}
	}
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
