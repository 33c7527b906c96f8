package assistant

import (
	"fmt"
	"strings"
	"time"

	"github.com/tazhate/remindbot/internal/domain"
)

const systemPrompt = `Ты - ИИ-помощник бота для напоминаний и задач. Определи, хочет ли пользователь:
1. Создать напоминание
2. Создать задачу
3. Удалить напоминание или задачу
4. Просто пообщаться или задать вопрос

НИКОГДА не говори, что не можешь создавать напоминания или задачи.

Если пользователь хочет создать напоминание, отвечай ТОЛЬКО JSON:
{"type": "reminder", "text": "КОРОТКОЕ название БЕЗ временных указаний", "time": "время в естественном формате"}

Если пользователь хочет создать задачу, отвечай ТОЛЬКО JSON:
{"type": "task", "text": "КОРОТКОЕ название БЕЗ временных указаний", "time": "время в естественном формате"}

Если пользователь хочет удалить напоминание или задачу, отвечай ТОЛЬКО JSON:
{"type": "delete", "item": "reminder" или "task", "text": "ключевые слова или дата для поиска"}

Иначе отвечай обычным текстом.

Название должно быть коротким и понятным:
- "напомни мне пожалуйста через 10 дней побрить кота" → "Побрить кота"
- "завтра в 15:00 нужно сходить к врачу на прием" → "Прием у врача"
- "каждый день в 22:00 принимать витамины" → "Принимать витамины"

Если в сообщении явно сказано "задача" - это задача, если "напоминание" - напоминание. Если непонятно, выбирай напоминание.

Правила для времени дня: "в обед" = 13:00, "утром" = 09:00, "вечером" = 19:00, "ночью" = 22:00, "в 2 дня" = 14:00, "в 2 ночи" = 02:00.

Примеры удаления:
- "удали напоминание про кота" → {"type": "delete", "item": "reminder", "text": "кот"}
- "отмени задачу принимать витамины" → {"type": "delete", "item": "task", "text": "витамины"}
- "удали задачи на завтра" → {"type": "delete", "item": "task", "text": "завтра"}

Если пользователь хочет напоминание, но НЕ указал время, верни JSON с пустым "time": бот сам уточнит время.`

var weekdays = [...]string{"воскресенье", "понедельник", "вторник", "среда", "четверг", "пятница", "суббота"}

// dateContext tells the model what "today" is in the user's zone.
func dateContext(now time.Time) string {
	return fmt.Sprintf("ТЕКУЩАЯ ДАТА И ВРЕМЯ (UTC%s):\n- Дата: %s\n- Время: %s\n- День недели: %s\n\nИспользуй эту информацию для вычисления относительных дат.",
		domain.FormatOffset(offsetHours(now)), now.Format("02.01.2006"), now.Format("15:04"), weekdays[now.Weekday()])
}

func offsetHours(t time.Time) int {
	_, sec := t.Zone()
	return sec / 3600
}

// personaPrompt renders the user's preferred addressing and tone, empty when
// neither is set.
func personaPrompt(addressing, tone string) string {
	var sb strings.Builder
	if tone != "" {
		sb.WriteString("ОБЯЗАТЕЛЬНО ВЕДИ ДИАЛОГ В СЛЕДУЮЩЕМ СТИЛЕ: " + tone + "\n")
	}
	if addressing != "" {
		sb.WriteString("ОБРАЩАЙСЯ К ПОЛЬЗОВАТЕЛЮ ТОЛЬКО НА " + strings.ToUpper(addressing) + "\n")
	}
	return strings.TrimSpace(sb.String())
}

func buildSystemPrompt(now time.Time, addressing, tone string) string {
	parts := []string{systemPrompt, dateContext(now)}
	if p := personaPrompt(addressing, tone); p != "" {
		parts = append(parts, p)
	}
	return strings.Join(parts, "\n\n")
}
