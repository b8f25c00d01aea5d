package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/joho/godotenv"

	"stayride/internal/app/commands"
	bookingapp "stayride/internal/app/handlers/booking"
	meapp "stayride/internal/app/handlers/me"
	modificationapp "stayride/internal/app/handlers/modification"
	paymentapp "stayride/internal/app/handlers/payment"
	payoutadmin "stayride/internal/app/handlers/payoutadmin"
	"stayride/internal/app/middleware"
	appoutbox "stayride/internal/app/outbox"
	"stayride/internal/app/policies"
	"stayride/internal/app/queries"
	"stayride/internal/domain/availability"
	"stayride/internal/domain/fees"
	"stayride/internal/infra/broker/kafka"
	redisstore "stayride/internal/infra/cache/redis"
	"stayride/internal/infra/config"
	mongodb "stayride/internal/infra/db/mongo"
	"stayride/internal/infra/gateway"
	ginserver "stayride/internal/infra/http/gin"
	"stayride/internal/infra/notify"
	"stayride/internal/infra/obs"
	infraoutbox "stayride/internal/infra/outbox"
)

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

	idStore, err := buildIdempotencyStore(cfg, client)
	if err != nil {
		logger.Error("idempotency store init failed", "error", err)
		os.Exit(1)
	}

	gatewayClient := &gateway.Client{
		HTTP:        &http.Client{Timeout: cfg.GatewayTimeout},
		BaseURL:     cfg.GatewayBaseURL,
		StoreID:     cfg.GatewayStoreID,
		StorePass:   cfg.GatewayStorePass,
		CallbackURL: cfg.CallbackBaseURL,
		Logger:      logger,
	}

	var notifier policies.Notifier
	if cfg.SendgridAPIKey != "" {
		notifier = &notify.SendGridNotifier{
			APIKey:    cfg.SendgridAPIKey,
			FromEmail: cfg.NotifyFromEmail,
			FromName:  "StayRide",
		}
	} else {
		logger.Warn("sendgrid key missing, notifications go to the log")
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

	commandBus, queryBus := buildBuses(uowFactory, gatewayClient, notifier, outboxStore, logger)

	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Validation(middleware.SelfValidator{}),
		middleware.Idempotency(idStore, nil),
		middleware.Transaction(uowFactory, nil),
		middleware.OutboxFlush(outboxStore),
	)
	queryBusWithMiddleware := middleware.ChainQueries(queryBus)

	handlers := ginserver.Handlers{
		Booking: ginserver.BookingHandler{Commands: commandBusWithMiddleware},
		Payment: ginserver.PaymentHandler{
			Commands: commandBusWithMiddleware,
			Currency: cfg.Currency,
			Logger:   logger,
		},
		Modification: ginserver.ModificationHandler{Commands: commandBusWithMiddleware},
		Payout: ginserver.PayoutHandler{
			Commands: commandBusWithMiddleware,
			Queries:  queryBusWithMiddleware,
		},
		Me: ginserver.MeHandler{Queries: queryBusWithMiddleware, Logger: logger},
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		},
	}, handlers)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

func buildIdempotencyStore(cfg config.Config, client *mongodb.Client) (middleware.IdempotencyStore, error) {
	switch cfg.IdempotencyMode {
	case "redis":
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			return nil, err
		}
		return redisstore.NewIdempotencyStore(rdb, cfg.IdempotencyTTL), nil
	default:
		return mongodb.NewIdempotencyStore(client.DB), nil
	}
}

func buildBuses(uowFactory mongodb.Factory, gw policies.GatewayPort, notifier policies.Notifier, box appoutbox.Outbox, logger *slog.Logger) (commands.Bus, queries.Bus) {
	encoder := appoutbox.JSONEventEncoder{}
	ledger := availability.Ledger{}
	feePolicy := fees.DefaultPolicy()

	commandBus := commands.NewInMemoryBus()

	commands.RegisterHandler(commandBus, bookingapp.RequestBookingCommand{}.Key(), &bookingapp.RequestBookingHandler{
		UoWFactory: uowFactory,
		Ledger:     ledger,
		Notifier:   notifier,
		Outbox:     box,
		Encoder:    encoder,
		Logger:     logger,
	})
	commands.RegisterHandler(commandBus, bookingapp.AcceptBookingCommand{}.Key(), &bookingapp.AcceptBookingHandler{
		UoWFactory: uowFactory,
		Notifier:   notifier,
		Outbox:     box,
		Encoder:    encoder,
		Logger:     logger,
	})
	commands.RegisterHandler(commandBus, bookingapp.CancelBookingCommand{}.Key(), &bookingapp.CancelBookingHandler{
		UoWFactory: uowFactory,
		Notifier:   notifier,
		Outbox:     box,
		Encoder:    encoder,
		Logger:     logger,
	})
	commands.RegisterHandler(commandBus, bookingapp.CheckInCommand{}.Key(), &bookingapp.CheckInHandler{
		UoWFactory: uowFactory,
		Outbox:     box,
		Encoder:    encoder,
	})
	commands.RegisterHandler(commandBus, bookingapp.CheckOutCommand{}.Key(), &bookingapp.CheckOutHandler{
		UoWFactory: uowFactory,
		Notifier:   notifier,
		Outbox:     box,
		Encoder:    encoder,
		Logger:     logger,
	})

	commands.RegisterHandler(commandBus, paymentapp.InitiateChargeCommand{}.Key(), &paymentapp.InitiateChargeHandler{
		UoWFactory: uowFactory,
		Gateway:    gw,
	})
	commands.RegisterHandler(commandBus, paymentapp.InitiateExtraChargeCommand{}.Key(), &paymentapp.InitiateExtraChargeHandler{
		UoWFactory: uowFactory,
		Gateway:    gw,
	})
	successHandler := &paymentapp.PaymentSuccessHandler{
		UoWFactory: uowFactory,
		Fees:       feePolicy,
		Notifier:   notifier,
		Outbox:     box,
		Encoder:    encoder,
		Logger:     logger,
	}
	commands.RegisterHandler(commandBus, paymentapp.PaymentSuccessCommand{}.Key(), successHandler)
	commands.RegisterHandler(commandBus, paymentapp.GatewayIPNCommand{}.Key(), &paymentapp.GatewayIPNHandler{
		UoWFactory: uowFactory,
		Success:    successHandler,
		Logger:     logger,
	})
	commands.RegisterHandler(commandBus, paymentapp.ClaimRefundCommand{}.Key(), &paymentapp.ClaimRefundHandler{
		UoWFactory: uowFactory,
		Notifier:   notifier,
		Outbox:     box,
		Encoder:    encoder,
		Logger:     logger,
	})

	commands.RegisterHandler(commandBus, modificationapp.RequestDateChangeCommand{}.Key(), &modificationapp.RequestDateChangeHandler{
		UoWFactory: uowFactory,
		Ledger:     ledger,
		Notifier:   notifier,
		Outbox:     box,
		Encoder:    encoder,
		Logger:     logger,
	})
	commands.RegisterHandler(commandBus, modificationapp.RespondDateChangeCommand{}.Key(), &modificationapp.RespondDateChangeHandler{
		UoWFactory: uowFactory,
		Ledger:     ledger,
		Notifier:   notifier,
		Outbox:     box,
		Encoder:    encoder,
		Logger:     logger,
	})

	commands.RegisterHandler(commandBus, payoutadmin.MarkPayoutPaidCommand{}.Key(), &payoutadmin.MarkPayoutPaidHandler{
		UoWFactory: uowFactory,
		Notifier:   notifier,
		Logger:     logger,
	})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, payoutadmin.ListPendingPayoutsQuery{}.Key(), &payoutadmin.ListPendingPayoutsHandler{
		UoWFactory: uowFactory,
	})
	queries.RegisterHandler(queryBus, meapp.ListGuestBookingsQuery{}.Key(), &meapp.ListGuestBookingsHandler{
		UoWFactory: uowFactory,
		Logger:     logger,
	})

	return commandBus, queryBus
}
