package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/tazhate/remindbot/internal/clients/assistant"
	"github.com/tazhate/remindbot/internal/domain"
	"github.com/tazhate/remindbot/internal/service"
)

const (
	msgInternal      = "😔 Что-то пошло не так. Попробуйте ещё раз чуть позже."
	msgUpstream      = "😔 Не получилось обработать сообщение: сервис временно недоступен. Попробуйте ещё раз."
	msgVoiceFailed   = "🎤 Не удалось распознать голосовое сообщение, попробуйте ещё раз."
	msgVoiceOff      = "🎤 Голосовые сообщения пока не поддерживаются, напишите текстом."
	msgEmptyText     = "Не понял, о чём напомнить. Напишите, например: 'напомни завтра в 10 купить хлеб'."
	msgDeleteWhat    = "Что удалить? Укажите текст или дату, например: 'удали напоминание про врача'."
	msgNotUnderstood = "Не понял вас. Напишите, о чём и когда напомнить, или /help."
)

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message != nil {
		b.handleMessage(ctx, update.Message)
	} else if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	userID := msg.From.ID
	chatID := msg.Chat.ID

	if _, err := b.profiles.Ensure(userID, displayName(msg.From)); err != nil {
		log.Printf("Error ensuring profile %d: %v", userID, err)
		b.reply(chatID, msgInternal)
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if msg.Voice != nil {
		var err error
		text, err = b.transcribe(ctx, msg.Voice)
		if err != nil {
			log.Printf("Error transcribing voice from %d: %v", userID, err)
			if b.transcriber == nil || !b.transcriber.IsConfigured() {
				b.reply(chatID, msgVoiceOff)
			} else {
				b.reply(chatID, msgVoiceFailed)
			}
			return
		}
		log.Printf("Voice from %d: %q", userID, text)
	}
	if text == "" {
		return
	}

	b.reply(chatID, b.respond(ctx, userID, text))
}

func (b *Bot) reply(chatID int64, text string) {
	if err := b.SendMessage(chatID, text); err != nil {
		log.Printf("Error sending message to %d: %v", chatID, err)
	}
}

func displayName(from *tgbotapi.User) string {
	name := from.FirstName
	if from.LastName != "" {
		name += " " + from.LastName
	}
	return name
}

// transcribe downloads the voice file from Telegram and converts it to text.
func (b *Bot) transcribe(ctx context.Context, voice *tgbotapi.Voice) (string, error) {
	if b.transcriber == nil || !b.transcriber.IsConfigured() {
		return "", fmt.Errorf("speech recognition is not configured")
	}
	url, err := b.api.GetFileDirectURL(voice.FileID)
	if err != nil {
		return "", fmt.Errorf("get file url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download voice: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download voice: status %d", resp.StatusCode)
	}
	return b.transcriber.Transcribe(ctx, resp.Body, "voice.ogg")
}

// respond routes one text message: a pending deletion choice first, then the
// classifier.
func (b *Bot) respond(ctx context.Context, userID int64, text string) string {
	if text == listButton {
		return b.listText(userID)
	}
	if reply, ok := b.followUp(ctx, userID, text); ok {
		return reply
	}

	req := assistant.Request{UserID: userID, Text: text, Now: b.now().In(b.profiles.Location(userID))}
	if p, err := b.profiles.Get(userID); err != nil {
		log.Printf("Error getting profile %d: %v", userID, err)
	} else if p != nil {
		req.Addressing = p.Addressing
		req.Tone = p.Tone
	}

	intent, err := b.classifier.Classify(ctx, req)
	if err != nil {
		log.Printf("Error classifying message from %d: %v", userID, err)
		b.notifyAdmin("classifier failed for %d: %v", userID, err)
		return msgUpstream
	}

	switch intent.Type {
	case assistant.IntentReminder, assistant.IntentTask:
		return b.create(ctx, userID, intent)
	case assistant.IntentDelete:
		return b.delete(ctx, userID, intent)
	}
	if intent.Message == "" {
		return msgNotUnderstood
	}
	return html.EscapeString(intent.Message)
}

func (b *Bot) create(ctx context.Context, userID int64, intent *assistant.Intent) string {
	created, err := b.reminders.Create(ctx, userID, intent.Kind(), intent.Text, intent.Time)
	switch {
	case err == nil:
		return service.FormatCreated(created)
	case errors.Is(err, domain.ErrEmptyTime):
		return service.AskForTime(intent.Text)
	case errors.Is(err, domain.ErrTimeNotUnderstood):
		return service.TimeNotUnderstood(intent.Time)
	case errors.Is(err, domain.ErrEmptyText):
		return msgEmptyText
	}
	log.Printf("Error creating %s for %d: %v", intent.Kind(), userID, err)
	b.notifyAdmin("create %s for %d: %v", intent.Kind(), userID, err)
	return msgInternal
}

func (b *Bot) delete(ctx context.Context, userID int64, intent *assistant.Intent) string {
	out, err := b.deletion.Request(ctx, userID, intent.Kind(), intent.Text)
	switch {
	case errors.Is(err, domain.ErrEmptyText):
		return msgDeleteWhat
	case errors.Is(err, domain.ErrNotFound):
		return service.NotFound(intent.Text)
	case err != nil:
		log.Printf("Error deleting for %d: %v", userID, err)
		return msgInternal
	}

	loc := b.profiles.Location(userID)
	if out.Pending != nil {
		return service.FormatCandidates(out.Pending, loc)
	}
	return service.FormatDeleted(out, intent.Text, loc)
}

// followUp answers a reply to a numbered deletion list. ok is false when the
// text should go to the classifier instead.
func (b *Bot) followUp(ctx context.Context, userID int64, text string) (string, bool) {
	dc, ok := b.deletion.Pending(userID)
	if !ok {
		return "", false
	}
	out, handled, err := b.deletion.FollowUp(ctx, userID, text)
	if !handled {
		return "", false
	}

	var rangeErr *domain.IndexOutOfRangeError
	switch {
	case errors.As(err, &rangeErr):
		return fmt.Sprintf("❌ Неверный номер. Укажите число от 1 до %d", rangeErr.Max), true
	case errors.Is(err, domain.ErrNotFound):
		return service.NotFound(dc.Query), true
	case err != nil:
		log.Printf("Error deleting for %d: %v", userID, err)
		return msgInternal, true
	case out.Cancelled:
		return "❌ Удаление отменено", true
	}
	return service.FormatDeleted(out, dc.Query, b.profiles.Location(userID)), true
}

func (b *Bot) listText(userID int64) string {
	text, err := b.reminders.FormatList(userID)
	if err != nil {
		log.Printf("Error listing entries for %d: %v", userID, err)
		return msgInternal
	}
	return text
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil {
		return
	}
	chatID := callback.Message.Chat.ID
	msgID := callback.Message.MessageID

	text, answer := b.applyCallback(ctx, callback.From.ID, callback.Data)
	b.api.Request(tgbotapi.NewCallback(callback.ID, answer))
	if text == "" {
		return
	}

	edit := tgbotapi.NewEditMessageText(chatID, msgID, text)
	edit.ParseMode = "HTML"
	if _, err := b.api.Send(edit); err != nil {
		log.Printf("Error editing message %d: %v", msgID, err)
	}
}

// applyCallback runs a task button. text replaces the notification, answer is
// the short popup.
func (b *Bot) applyCallback(ctx context.Context, userID int64, data string) (text, answer string) {
	action, taskID, ok := parseCallback(data)
	if !ok {
		return "", ""
	}

	res, err := b.tasks.ApplyAction(ctx, userID, taskID, action)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "", "Задача не найдена"
	case err != nil:
		log.Printf("Error applying %s to task %d: %v", action, taskID, err)
		return "", "❌ Ошибка"
	}
	return service.FormatActionResult(res), ""
}
