package bot

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/tazhate/remindbot/internal/domain"
)

// listButton is the reply-keyboard button that shows the user's entries.
const listButton = "📋 Мои напоминания"

// Main menu keyboard
func mainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(listButton),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

// Task action keyboard attached to a delivered task
func taskKeyboard(taskID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Закончить", callbackData(domain.TaskFinish, taskID)),
			tgbotapi.NewInlineKeyboardButtonData("⏰ Перенести", callbackData(domain.TaskPostpone, taskID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить", callbackData(domain.TaskRemove, taskID)),
		),
	)
}

func callbackData(action domain.TaskAction, taskID int64) string {
	return fmt.Sprintf("%s:%d", action, taskID)
}

// parseCallback reads "finish:12".
func parseCallback(data string) (domain.TaskAction, int64, bool) {
	verb, rawID, ok := strings.Cut(data, ":")
	if !ok {
		return "", 0, false
	}
	action, ok := domain.ParseTaskAction(verb)
	if !ok {
		return "", 0, false
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return "", 0, false
	}
	return action, id, true
}
