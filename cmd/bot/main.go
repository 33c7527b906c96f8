package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tazhate/remindbot/config"
	"github.com/tazhate/remindbot/internal/bot"
	"github.com/tazhate/remindbot/internal/clients/assistant"
	"github.com/tazhate/remindbot/internal/clients/caldav"
	"github.com/tazhate/remindbot/internal/clients/speech"
	"github.com/tazhate/remindbot/internal/domain"
	"github.com/tazhate/remindbot/internal/scheduler"
	"github.com/tazhate/remindbot/internal/service"
	"github.com/tazhate/remindbot/internal/storage"
	"github.com/tazhate/remindbot/internal/timeparse"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Загрузка конфига
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация storage
	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to init storage: %v", err)
	}
	defer store.Close()

	// Контекст для graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// CalDAV (optional)
	calDAV := caldav.NewClient(cfg.CalDAVURL, cfg.CalDAVUsername, cfg.CalDAVPassword)
	if cfg.CalDAVCalendar != "" {
		calDAV.SetCalendarPath(cfg.CalDAVCalendar)
	}
	calendarSvc := service.NewCalendarService(calDAV)
	if calendarSvc.IsConfigured() {
		if err := calendarSvc.Init(ctx); err != nil {
			log.Printf("CalDAV disabled: %v", err)
			calendarSvc = nil
		}
	}

	// Инициализация сервисов
	profileSvc := service.NewProfileService(store, cfg.DefaultUTCOffset)
	resolver := timeparse.NewResolver(timeparse.NewWhenParser())
	svc := bot.Services{
		Profiles:  profileSvc,
		Reminders: service.NewReminderService(store, profileSvc, resolver, calendarSvc),
		Tasks:     service.NewTaskService(store, profileSvc, calendarSvc),
		Deletion:  service.NewDeletionService(store, profileSvc, calendarSvc, cfg.DeleteContextTTL),
	}

	classifier, err := assistant.NewClient(cfg.AIBaseURL, cfg.AIAPIKey, cfg.AIModel)
	if err != nil {
		log.Fatalf("Failed to init assistant: %v", err)
	}
	transcriber := speech.NewClient(cfg.SpeechBaseURL, cfg.SpeechAPIKey, cfg.SpeechModel)

	// Инициализация бота
	tgBot, err := bot.New(cfg, svc, classifier, transcriber)
	if err != nil {
		log.Fatalf("Failed to init bot: %v", err)
	}

	// Инициализация scheduler
	sched := scheduler.New(scheduler.Config{
		CheckSpec:    cfg.CheckInterval,
		CleanupEvery: cfg.CleanupEvery,
		Location:     domain.Zone(cfg.DefaultUTCOffset),
	}, store)
	sched.SetSender(tgBot)

	// Запуск scheduler в горутине
	go func() {
		if err := sched.Start(ctx); err != nil {
			log.Printf("Scheduler error: %v", err)
		}
	}()

	// Запуск бота в горутине
	go func() {
		if err := tgBot.Start(ctx); err != nil {
			log.Printf("Bot error: %v", err)
		}
	}()

	log.Println("RemindBot started")

	// Ожидание сигнала завершения
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")

	// Graceful shutdown
	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := tgBot.Stop(shutdownCtx); err != nil {
		log.Printf("Error stopping bot: %v", err)
	}

	log.Println("RemindBot stopped")
}
