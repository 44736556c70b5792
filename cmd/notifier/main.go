package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"bank-support-be/internal/bootstrap"
	"bank-support-be/internal/config"
	"bank-support-be/internal/pkg/logger"
	"bank-support-be/internal/pkg/mailer"
	"bank-support-be/internal/service"
	pktNats "bank-support-be/pkg/nats"
)

// The notifier consumes escalation and handover events from NATS and
// delivers operator alerts, so the chat server never waits on SMTP.
func main() {
	cfg := config.Load()
	if cfg.App.NatsURL == "" {
		log.Fatal("Error: NATS_URL is not set")
	}

	sysLogger := logger.NewZapLogger("logs/notifier.log", cfg.IsProduction())
	defer sysLogger.Sync()

	sub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Fatalf("Error: NATS subscriber: %v", err)
	}
	defer sub.Close()

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.Email,
		cfg.SMTP.SenderName,
		sysLogger,
	)
	notifier := service.NewNotifierService(emailService, bootstrap.NotifierOptions(cfg), sysLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := notifier.Start(ctx, sub); err != nil {
		log.Fatalf("Error: start notifier: %v", err)
	}

	<-ctx.Done()
	sysLogger.Info("NOTIFIER", "Shutting down", nil)
}
