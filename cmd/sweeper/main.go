package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"stayride/internal/app/commands"
	bookingapp "stayride/internal/app/handlers/booking"
	paymentapp "stayride/internal/app/handlers/payment"
	"stayride/internal/app/middleware"
	appoutbox "stayride/internal/app/outbox"
	"stayride/internal/app/policies"
	"stayride/internal/infra/broker/kafka"
	"stayride/internal/infra/config"
	mongodb "stayride/internal/infra/db/mongo"
	"stayride/internal/infra/notify"
	"stayride/internal/infra/obs"
	infraoutbox "stayride/internal/infra/outbox"
)

// The sweeper runs the periodic maintenance jobs: expiring stale pending
// bookings and nudging guests with unclaimed refunds.
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

	producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
	if err != nil {
		logger.Error("kafka producer init failed", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	outboxStore := infraoutbox.NewStore(client.DB)
	worker := &infraoutbox.Worker{
		Store:       outboxStore,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
	}
	go func() {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("outbox worker stopped", "error", err)
		}
	}()

	var notifier policies.Notifier
	if cfg.SendgridAPIKey != "" {
		notifier = &notify.SendGridNotifier{
			APIKey:    cfg.SendgridAPIKey,
			FromEmail: cfg.NotifyFromEmail,
			FromName:  "StayRide",
		}
	} else {
		notifier = notify.LogNotifier{Logger: logger}
	}

	uowFactory := mongodb.Factory{
		DB:            client.DB,
		ListingsRepo:  mongodb.NewListingRepository(client.DB),
		BookingsRepo:  mongodb.NewBookingRepository(client.DB),
		TripsRepo:     mongodb.NewTripRepository(client.DB),
		PayoutsRepo:   mongodb.NewPayoutRepository(client.DB),
		ReferralsRepo: mongodb.NewReferralRepository(client.DB),
	}
	encoder := appoutbox.JSONEventEncoder{}

	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, bookingapp.ExpirePendingCommand{}.Key(), &bookingapp.ExpirePendingHandler{
		UoWFactory: uowFactory,
		Notifier:   notifier,
		Outbox:     outboxStore,
		Encoder:    encoder,
		Logger:     logger,
	})
	commands.RegisterHandler(bus, paymentapp.RemindRefundsCommand{}.Key(), &paymentapp.RemindRefundsHandler{
		UoWFactory: uowFactory,
		Notifier:   notifier,
		Logger:     logger,
	})
	dispatcher := middleware.ChainCommands(bus,
		middleware.Validation(middleware.SelfValidator{}),
		middleware.Transaction(uowFactory, nil),
		middleware.OutboxFlush(outboxStore),
	)

	scheduler := cron.New()
	scheduler.Schedule(cron.Every(cfg.SweepInterval), cron.FuncJob(func() {
		jobCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		result, err := commands.Dispatch[bookingapp.ExpirePendingCommand, *bookingapp.ExpirePendingResult](jobCtx, dispatcher, bookingapp.ExpirePendingCommand{Now: time.Now()})
		if err != nil {
			logger.Error("expire sweep failed", "error", err)
			return
		}
		if len(result.Expired) > 0 {
			logger.Info("expired stale bookings", "count", len(result.Expired))
		}
	}))
	if _, err := scheduler.AddFunc(cfg.ReminderCron, func() {
		jobCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		result, err := commands.Dispatch[paymentapp.RemindRefundsCommand, *paymentapp.RemindRefundsResult](jobCtx, dispatcher, paymentapp.RemindRefundsCommand{})
		if err != nil {
			logger.Error("refund reminder sweep failed", "error", err)
			return
		}
		if result.Reminded > 0 {
			logger.Info("refund reminders sent", "count", result.Reminded)
		}
	}); err != nil {
		logger.Error("reminder schedule invalid", "cron", cfg.ReminderCron, "error", err)
		os.Exit(1)
	}

	scheduler.Start()
	logger.Info("sweeper started", "sweep_interval", cfg.SweepInterval, "reminder_cron", cfg.ReminderCron)

	<-ctx.Done()
	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
	logger.Info("sweeper stopped")
}
