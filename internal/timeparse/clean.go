package timeparse

import (
	"strings"
	"unicode/utf8"
)

// Left-over temporal words removed wherever they stand as separate words.
// Longer phrases go first so their parts are not removed piecemeal.
var timeArtifacts = []string{
	"следующий понедельник", "следующий вторник", "следующую среду", "следующий четверг",
	"следующую пятницу", "следующую субботу", "следующее воскресенье",
	"каждый день", "каждую неделю", "каждое утро", "каждый вечер",
	"after tomorrow", "послезавтра", "после завтра", "завтра",
	"понедельник", "вторник", "среда", "среду", "четверг",
	"пятница", "пятницу", "суббота", "субботу", "воскресенье",
	"следующий", "следующую",
}

// One-letter words kept after the stray-letter sweep.
var keptLetters = map[string]bool{"я": true, "в": true, "с": true, "к": true, "о": true, "у": true}

var introPhrases = []string{
	"слушай неплохо было бы мне помнить",
	"слушай неплохо было бы",
	"неплохо было бы мне помнить",
	"неплохо было бы",
	"мне нужно помнить",
	"нужно помнить",
	"я хочу помнить",
	"хочу помнить",
	"хотелось бы помнить",
	"надо помнить",
	"стоит помнить",
	"слушай",
	"кстати",
	"между прочим",
	"мне нужно",
	"нужно",
	"надо",
}

var servicePhrases = []string{
	"напомни мне",
	"напомнить мне",
	"поставь напоминание",
	"создай напоминание",
}

var serviceWords = []string{
	"напомнить", "напомни",
	"поставить", "поставь",
	"создать", "создай",
	"добавить", "добавь",
}

var politeWords = []string{"пожалуйста,", "пожалуйста", "будь добра", "будь добр"}

var normalizationArtifacts = []string{"am", "pm", "каждый", "каждую", "мне"}

var leadingPrepositions = map[string]bool{
	"в": true, "на": true, "с": true, "к": true, "от": true, "до": true,
	"для": true, "под": true, "над": true, "за": true, "при": true, "через": true,
}

// Clean turns the text left after removing the temporal phrase into a short
// reminder label. The result may be empty.
func Clean(text, phrase string) string {
	cleaned := strings.ToLower(strings.TrimSpace(text))
	if phrase != "" {
		cleaned = strings.ReplaceAll(cleaned, strings.ToLower(phrase), " ")
	}

	for _, a := range timeArtifacts {
		cleaned = removeWord(cleaned, a)
	}

	words := strings.Fields(cleaned)
	kept := words[:0]
	for _, w := range words {
		if utf8.RuneCountInString(w) > 1 || keptLetters[w] {
			kept = append(kept, w)
		}
	}
	cleaned = strings.Join(kept, " ")

	for _, w := range politeWords {
		cleaned = removeWord(cleaned, w)
	}
	cleaned = squeeze(cleaned)

	cleaned = trimFirstPrefix(cleaned, introPhrases)
	cleaned = trimFirstPrefix(cleaned, servicePhrases)
	cleaned = trimFirstPrefix(cleaned, serviceWords)

	for _, a := range normalizationArtifacts {
		cleaned = removeWord(cleaned, a)
	}
	cleaned = squeeze(cleaned)

	if words := strings.Fields(cleaned); len(words) > 1 && leadingPrepositions[words[0]] {
		cleaned = strings.Join(words[1:], " ")
	}

	return strings.Trim(cleaned, " .,!?:;")
}

// trimFirstPrefix strips the first prefix of the list that s starts with.
func trimFirstPrefix(s string, prefixes []string) string {
	for _, p := range prefixes {
		if rest, ok := trimWordPrefix(s, p); ok {
			return rest
		}
	}
	return s
}
