package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"stayride/internal/app/policies"
	"stayride/internal/infra/broker/kafka"
	"stayride/internal/infra/config"
	mongodb "stayride/internal/infra/db/mongo"
	"stayride/internal/infra/inbox"
	"stayride/internal/infra/notify"
	"stayride/internal/infra/obs"
)

// The notifier consumes the booking event stream and mails invoices for
// settled payments. Delivery is at-least-once from Kafka; the inbox keeps
// the emails exactly-once.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration invalid", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Error("mongo connection failed", "error", err)
		os.Exit(1)
	}

	var notifier policies.Notifier
	if cfg.SendgridAPIKey != "" {
		notifier = &notify.SendGridNotifier{
			APIKey:    cfg.SendgridAPIKey,
			FromEmail: cfg.NotifyFromEmail,
			FromName:  "StayRide",
		}
	} else {
		logger.Warn("sendgrid key missing, invoices go to the log")
		notifier = notify.LogNotifier{Logger: logger}
	}

	handler := &notify.InvoiceConsumer{
		Inbox:    inbox.NewStore(client.DB, "invoice-notifier"),
		Notifier: notifier,
		Logger:   logger,
	}

	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, "stayride-invoice-notifier", nil, handler)
	if err != nil {
		logger.Error("kafka consumer init failed", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	topic := cfg.KafkaTopicPrefix + "booking.events.v1"
	logger.Info("invoice notifier consuming", "topic", topic)
	if err := consumer.Run(ctx, []string{topic}); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("invoice notifier stopped")
}
