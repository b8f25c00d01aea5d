package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env                string
	HTTPAddr           string
	MongoURI           string
	MongoDB            string
	KafkaBrokers       []string
	KafkaTopicPrefix   string
	RedisAddr          string
	RedisPassword      string
	IdempotencyMode    string
	IdempotencyTTL     time.Duration
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration
	GatewayBaseURL     string
	GatewayStoreID     string
	GatewayStorePass   string
	GatewayTimeout     time.Duration
	CallbackBaseURL    string
	SendgridAPIKey     string
	NotifyFromEmail    string
	SweepInterval      time.Duration
	ReminderCron       string
	Currency           string
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	cfg := Config{
		Env:              getEnv("APP_ENV", "dev"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          getEnv("MONGO_DB", "stayride"),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", ""),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		IdempotencyMode:  strings.ToLower(getEnv("IDEMP_MODE", "mongo")),
		GatewayBaseURL:   getEnv("GATEWAY_BASE_URL", "https://sandbox.sslcommerz.com"),
		GatewayStoreID:   os.Getenv("GATEWAY_STORE_ID"),
		GatewayStorePass: os.Getenv("GATEWAY_STORE_PASS"),
		CallbackBaseURL:  getEnv("CALLBACK_BASE_URL", "http://localhost:8080"),
		SendgridAPIKey:   os.Getenv("SENDGRID_API_KEY"),
		NotifyFromEmail:  getEnv("NOTIFY_FROM_EMAIL", "no-reply@stayride.app"),
		ReminderCron:     getEnv("REFUND_REMINDER_CRON", "0 9 * * *"),
		Currency:         strings.ToUpper(getEnv("CURRENCY", "BDT")),
	}
	brokers := getEnv("KAFKA_BROKERS", "")
	if brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	idempotencyTTL, err := parseDurationEnv("IDEMP_TTL", 168*time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.IdempotencyTTL = idempotencyTTL

	poll, err := parseDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond)
	if err != nil {
		return Config{}, err
	}
	cfg.OutboxPollInterval = poll

	gatewayTimeout, err := parseDurationEnv("GATEWAY_TIMEOUT", 15*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.GatewayTimeout = gatewayTimeout

	sweep, err := parseDurationEnv("SWEEP_INTERVAL", time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.SweepInterval = sweep

	retryStr := getEnv("RETRY_BACKOFF", "1s,5s,30s")
	for _, raw := range strings.Split(retryStr, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	if cfg.MongoURI == "" {
		return Config{}, fmt.Errorf("MONGO_URI is required")
	}
	if len(cfg.KafkaBrokers) == 0 {
		return Config{}, fmt.Errorf("KAFKA_BROKERS is required")
	}
	switch cfg.IdempotencyMode {
	case "mongo", "redis":
	default:
		return Config{}, fmt.Errorf("invalid IDEMP_MODE %q: want mongo or redis", cfg.IdempotencyMode)
	}
	if cfg.IdempotencyMode == "redis" && cfg.RedisAddr == "" {
		return Config{}, fmt.Errorf("REDIS_ADDR is required when IDEMP_MODE=redis")
	}
	if len(cfg.Currency) != 3 {
		return Config{}, fmt.Errorf("invalid CURRENCY %q", cfg.Currency)
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}
