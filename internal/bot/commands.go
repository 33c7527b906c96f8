package bot

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/tazhate/remindbot/internal/domain"
)

const helpText = `<b>Что я умею:</b>

<b>Напоминания</b>
Просто напишите или скажите голосом:
• напомни завтра в 10 утра позвонить маме
• через 2 часа выключить духовку
• каждый день в 22:00 выпить витамины

<b>Задачи</b>
• задача: в пятницу сдать отчёт
Когда придёт время, можно закончить, перенести на 30 минут или удалить задачу.

<b>Удаление</b>
• удали напоминание про врача
• удали напоминания на завтра

<b>Команды</b>
/list — мои напоминания и задачи
/timezone +3 — часовой пояс (смещение от UTC)
/style ты дружелюбный — как ко мне обращаться
/help — эта справка`

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	text := b.command(msg.From.ID, displayName(msg.From), msg.Command(), strings.TrimSpace(msg.CommandArguments()))

	switch msg.Command() {
	case "start", "help":
		if err := b.SendMessageWithKeyboard(chatID, text, mainKeyboard()); err != nil {
			log.Printf("Error sending message to %d: %v", chatID, err)
		}
	default:
		b.reply(chatID, text)
	}
}

func (b *Bot) command(userID int64, name, cmd, args string) string {
	switch cmd {
	case "start":
		return b.cmdStart(userID, name)
	case "help":
		return helpText
	case "list":
		return b.listText(userID)
	case "timezone":
		return b.cmdTimezone(userID, args)
	case "style":
		return b.cmdStyle(userID, args)
	}
	return "Неизвестная команда. /help для списка команд"
}

func (b *Bot) cmdStart(userID int64, name string) string {
	if b.classifier != nil {
		b.classifier.Reset(userID)
	}
	loc := b.profiles.Location(userID)
	greeting := "👋 Привет!"
	if name = strings.TrimSpace(name); name != "" {
		greeting = fmt.Sprintf("👋 Привет, %s!", html.EscapeString(name))
	}
	return fmt.Sprintf("%s\n\nЯ помогу не забыть о важном: напишите, о чём и когда напомнить.\n\n"+
		"🕐 Ваше время: %s (UTC%s)\nЕсли оно неверное, укажите пояс: /timezone +5\n\n/help — что я умею",
		greeting, b.now().In(loc).Format("15:04"), loc.String())
}

func (b *Bot) cmdTimezone(userID int64, args string) string {
	if args == "" {
		loc := b.profiles.Location(userID)
		return fmt.Sprintf("🌍 Ваш часовой пояс: UTC%s\nМестное время: %s\n\nЧтобы изменить: /timezone +5",
			loc.String(), b.now().In(loc).Format("15:04"))
	}

	p, err := b.profiles.SetTimezone(userID, args)
	if err != nil {
		log.Printf("Error setting timezone %q for %d: %v", args, userID, err)
		return fmt.Sprintf("❌ Укажите смещение от UTC целым числом часов от %d до +%d, например: /timezone +5",
			domain.MinUTCOffset, domain.MaxUTCOffset)
	}
	loc := p.Location()
	return fmt.Sprintf("✅ Часовой пояс: UTC%s\nМестное время: %s", loc.String(), b.now().In(loc).Format("15:04"))
}

// cmdStyle reads "/style вы деловой": the first word is the form of address,
// the rest is the tone.
func (b *Bot) cmdStyle(userID int64, args string) string {
	addressing, tone, _ := strings.Cut(args, " ")
	addressing = strings.ToLower(addressing)
	if addressing != "ты" && addressing != "вы" {
		return "Укажите обращение и, если хотите, тон: /style ты дружелюбный"
	}
	if err := b.profiles.SetStyle(userID, addressing, tone); err != nil {
		log.Printf("Error setting style for %d: %v", userID, err)
		return msgInternal
	}
	if b.classifier != nil {
		b.classifier.Reset(userID)
	}
	text := "✅ Буду обращаться на «" + addressing + "»"
	if tone = strings.TrimSpace(tone); tone != "" {
		text += ", тон: " + html.EscapeString(tone)
	}
	return text
}
