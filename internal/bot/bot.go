package bot

import (
	"context"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/tazhate/remindbot/config"
	"github.com/tazhate/remindbot/internal/clients/assistant"
	"github.com/tazhate/remindbot/internal/service"
)

// Classifier turns a user message into an intent.
type Classifier interface {
	Classify(ctx context.Context, req assistant.Request) (*assistant.Intent, error)
	Reset(userID int64)
}

// Transcriber turns a voice message into text.
type Transcriber interface {
	IsConfigured() bool
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

type Services struct {
	Profiles  *service.ProfileService
	Reminders *service.ReminderService
	Tasks     *service.TaskService
	Deletion  *service.DeletionService
}

type Bot struct {
	api         *tgbotapi.BotAPI
	cfg         *config.Config
	profiles    *service.ProfileService
	reminders   *service.ReminderService
	tasks       *service.TaskService
	deletion    *service.DeletionService
	classifier  Classifier
	transcriber Transcriber
	server      *http.Server
	now         func() time.Time
}

func New(cfg *config.Config, svc Services, classifier Classifier, transcriber Transcriber) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("Authorized as @%s", api.Self.UserName)

	bot := newBot(cfg, svc, classifier, transcriber)
	bot.api = api

	// Set bot commands (menu button)
	bot.setCommands()

	return bot, nil
}

func newBot(cfg *config.Config, svc Services, classifier Classifier, transcriber Transcriber) *Bot {
	return &Bot{
		cfg:         cfg,
		profiles:    svc.Profiles,
		reminders:   svc.Reminders,
		tasks:       svc.Tasks,
		deletion:    svc.Deletion,
		classifier:  classifier,
		transcriber: transcriber,
		now:         time.Now,
	}
}

func (b *Bot) setCommands() {
	commands := []tgbotapi.BotCommand{
		{Command: "list", Description: "📋 Мои напоминания"},
		{Command: "timezone", Description: "🌍 Часовой пояс"},
		{Command: "style", Description: "💬 Как ко мне обращаться"},
		{Command: "help", Description: "❓ Справка"},
	}

	cfg := tgbotapi.NewSetMyCommands(commands...)
	if _, err := b.api.Request(cfg); err != nil {
		log.Printf("Failed to set commands: %v", err)
	}
}

func (b *Bot) SetupWebhook() error {
	webhookURL := b.cfg.WebhookURL + "/bot"

	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return fmt.Errorf("create webhook: %w", err)
	}

	_, err = b.api.Request(wh)
	if err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}

	info, err := b.api.GetWebhookInfo()
	if err != nil {
		return fmt.Errorf("get webhook info: %w", err)
	}

	if info.LastErrorDate != 0 {
		log.Printf("Webhook last error: %s", info.LastErrorMessage)
	}

	log.Printf("Webhook set to: %s", webhookURL)
	return nil
}

// updates returns the webhook channel when WEBHOOK_URL is set and a
// long-polling channel otherwise.
func (b *Bot) updates() (tgbotapi.UpdatesChannel, error) {
	if b.cfg.UseWebhook() {
		if err := b.SetupWebhook(); err != nil {
			return nil, err
		}
		return b.api.ListenForWebhook("/bot"), nil
	}

	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return nil, fmt.Errorf("delete webhook: %w", err)
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	log.Printf("Using long polling")
	return b.api.GetUpdatesChan(u), nil
}

func (b *Bot) Start(ctx context.Context) error {
	updates, err := b.updates()
	if err != nil {
		return err
	}

	// Health check endpoint
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Setup REST API with Basic Auth
	b.SetupAPI(http.DefaultServeMux)

	b.server = &http.Server{
		Addr:    ":" + b.cfg.ServerPort,
		Handler: nil, // use DefaultServeMux
	}

	go func() {
		log.Printf("Starting HTTP server on :%s", b.cfg.ServerPort)
		if err := b.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			if !b.cfg.UseWebhook() {
				b.api.StopReceivingUpdates()
			}
			return nil
		case update := <-updates:
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) Stop(ctx context.Context) error {
	if b.server != nil {
		return b.server.Shutdown(ctx)
	}
	return nil
}

func (b *Bot) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "HTML"
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) SendMessageWithKeyboard(chatID int64, text string, keyboard interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "HTML"
	msg.ReplyMarkup = keyboard
	_, err := b.api.Send(msg)
	return err
}

// SendTaskNotification sends a due task with the finish / postpone / remove buttons
func (b *Bot) SendTaskNotification(chatID int64, text string, taskID int64) error {
	return b.SendMessageWithKeyboard(chatID, text, taskKeyboard(taskID))
}

// notifyAdmin forwards an internal failure to the operator, if one is configured.
func (b *Bot) notifyAdmin(format string, args ...interface{}) {
	if b.cfg.AdminTelegramID == 0 || b.api == nil {
		return
	}
	text := "⚠️ " + html.EscapeString(fmt.Sprintf(format, args...))
	if err := b.SendMessage(b.cfg.AdminTelegramID, text); err != nil {
		log.Printf("Error notifying admin: %v", err)
	}
}

func (b *Bot) API() *tgbotapi.BotAPI {
	return b.api
}
