package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	TelegramToken   string
	AdminTelegramID int64
	DatabasePath    string
	WebhookURL      string
	ServerPort      string

	DefaultUTCOffset int
	CheckInterval    string
	CleanupEvery     int
	DeleteContextTTL time.Duration

	AIBaseURL string
	AIAPIKey  string
	AIModel   string

	SpeechBaseURL string
	SpeechAPIKey  string
	SpeechModel   string

	CalDAVURL      string
	CalDAVUsername string
	CalDAVPassword string
	CalDAVCalendar string

	APIUsername string
	APIPassword string
}

// loadEnv reads the first .env file found. Variables already set in the
// process environment win.
func loadEnv() {
	for _, path := range []string{".env", "../.env", "/etc/remindbot/.env"} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			log.Printf("Error loading %s: %v", path, err)
			continue
		}
		log.Printf("Loaded environment from %s", path)
		return
	}
}

func Load() (*Config, error) {
	loadEnv()

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	var adminID int64
	if p := os.Getenv("ADMIN_TELEGRAM_ID"); p != "" {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ADMIN_TELEGRAM_ID must be a number: %w", err)
		}
		adminID = id
	}

	offset, err := intEnv("DEFAULT_UTC_OFFSET", 3)
	if err != nil {
		return nil, err
	}
	if offset < -12 || offset > 14 {
		return nil, fmt.Errorf("DEFAULT_UTC_OFFSET %d out of range", offset)
	}

	cleanupEvery, err := intEnv("CLEANUP_EVERY", 10)
	if err != nil {
		return nil, err
	}

	ttl := 10 * time.Minute
	if v := os.Getenv("DELETE_CONTEXT_TTL"); v != "" {
		ttl, err = time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid DELETE_CONTEXT_TTL: %w", err)
		}
	}

	return &Config{
		TelegramToken:    token,
		AdminTelegramID:  adminID,
		DatabasePath:     stringEnv("DATABASE_PATH", "./data/remindbot.db"),
		WebhookURL:       os.Getenv("WEBHOOK_URL"),
		ServerPort:       stringEnv("SERVER_PORT", "8080"),
		DefaultUTCOffset: offset,
		CheckInterval:    stringEnv("CHECK_INTERVAL", "* * * * *"),
		CleanupEvery:     cleanupEvery,
		DeleteContextTTL: ttl,
		AIBaseURL:        stringEnv("AI_BASE_URL", "https://api.vsegpt.ru/v1"),
		AIAPIKey:         os.Getenv("AI_API_KEY"),
		AIModel:          stringEnv("AI_MODEL", "openai/gpt-4o-mini"),
		SpeechBaseURL:    os.Getenv("SPEECH_BASE_URL"),
		SpeechAPIKey:     os.Getenv("SPEECH_API_KEY"),
		SpeechModel:      os.Getenv("SPEECH_MODEL"),
		CalDAVURL:        os.Getenv("CALDAV_URL"),
		CalDAVUsername:   os.Getenv("CALDAV_USERNAME"),
		CalDAVPassword:   os.Getenv("CALDAV_PASSWORD"),
		CalDAVCalendar:   os.Getenv("CALDAV_CALENDAR"),
		APIUsername:      os.Getenv("API_USERNAME"),
		APIPassword:      os.Getenv("API_PASSWORD"),
	}, nil
}

// UseWebhook is true when updates arrive over HTTP instead of long polling.
func (c *Config) UseWebhook() bool {
	return c.WebhookURL != ""
}

func (c *Config) IsAdmin(telegramID int64) bool {
	return c.AdminTelegramID != 0 && telegramID == c.AdminTelegramID
}

func stringEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return n, nil
}
