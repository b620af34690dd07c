package app

import (
	"errors"
	"flag"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             int
	Env              string
	Migrate          bool
	OtelCollectorUrl string

	DB struct {
		Dsn          string
		MaxOpenConns int
		MaxIdleTime  time.Duration
	}
	Redis struct {
		Url          string
		MaxOpenConns int
		MaxIdleConns int
		MaxIdleTime  time.Duration
		CatalogTTL   time.Duration
		StatusTTL    time.Duration
	}
	Payment struct {
		Provider       string
		Currency       string
		GatewayTimeout time.Duration
		Midtrans       struct {
			ServerKey  string
			Production bool
		}
		Stripe struct {
			SecretKey     string
			WebhookSecret string
			SuccessUrl    string
			FailureUrl    string
		}
	}
	Sweeper struct {
		Enabled   bool
		Interval  time.Duration
		Grace     time.Duration
		BatchSize int
	}
	Events struct {
		Driver       string
		AmqpUrl      string
		AmqpExchange string
		KafkaBrokers string
		KafkaTopic   string
	}
	SMTP struct {
		Host     string
		Port     int
		Username string
		Password string
		Sender   string
	}
	Auth struct {
		JwtSecret string
	}
}

// loadEnv reads .env into the process environment. A missing file is not an
// error; variables already set take precedence.
func loadEnv(filenames ...string) error {
	err := godotenv.Load(filenames...)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}

// registerFlags binds every setting to fs. Environment variables provide the
// defaults so flags only need to be passed to override them.
func (cfg *Config) registerFlags(fs *flag.FlagSet) {
	fs.IntVar(&cfg.Port, "port", envInt("PORT", 3000), "server port")
	fs.StringVar(&cfg.Env, "env", envString("ENV", "dev"), "Environment (dev|staging|prod)")
	fs.BoolVar(&cfg.Migrate, "migrate", envBool("MIGRATE", false), "Apply database migrations at startup")
	fs.StringVar(&cfg.OtelCollectorUrl, "otel-collector-url", envString("OTEL_COLLECTOR_URL", ""), "OpenTelemetry collector gRPC endpoint")

	fs.StringVar(&cfg.DB.Dsn, "db-dsn", envString("DB_DSN", ""), "PostgreSQL DSN")
	fs.IntVar(&cfg.DB.MaxOpenConns, "db-max-open-conns", envInt("DB_MAX_OPEN_CONNS", 25), "PostgreSQL max open connections")
	fs.DurationVar(&cfg.DB.MaxIdleTime, "db-max-idle-time", envDuration("DB_MAX_IDLE_TIME", 15*time.Minute), "PostgreSQL max idle time for connections")

	fs.StringVar(&cfg.Redis.Url, "redis-url", envString("REDIS_URL", ""), "Redis URL")
	fs.IntVar(&cfg.Redis.MaxOpenConns, "redis-max-open-conns", envInt("REDIS_MAX_OPEN_CONNS", 25), "Redis max open connections")
	fs.IntVar(&cfg.Redis.MaxIdleConns, "redis-max-idle-conns", envInt("REDIS_MAX_IDLE_CONNS", 10), "Redis max idle connections")
	fs.DurationVar(&cfg.Redis.MaxIdleTime, "redis-max-idle-time", envDuration("REDIS_MAX_IDLE_TIME", 2*time.Minute), "Redis max idle time for connections")
	fs.DurationVar(&cfg.Redis.CatalogTTL, "cache-ttl", envDuration("CACHE_TTL", 5*time.Minute), "Catalog cache TTL")
	fs.DurationVar(&cfg.Redis.StatusTTL, "status-cache-ttl", envDuration("STATUS_CACHE_TTL", 10*time.Second), "Gateway status cache TTL")

	fs.StringVar(&cfg.Payment.Provider, "payment-provider", envString("PAYMENT_PROVIDER", "mock"), "Payment gateway (mock|midtrans|stripe)")
	fs.StringVar(&cfg.Payment.Currency, "payment-currency", envString("PAYMENT_CURRENCY", "idr"), "Currency for Stripe checkout sessions")
	fs.DurationVar(&cfg.Payment.GatewayTimeout, "gateway-timeout", envDuration("GATEWAY_TIMEOUT", 15*time.Second), "Payment gateway call timeout")
	fs.StringVar(&cfg.Payment.Midtrans.ServerKey, "midtrans-server-key", envString("MIDTRANS_SERVER_KEY", ""), "Midtrans server key")
	fs.BoolVar(&cfg.Payment.Midtrans.Production, "midtrans-production", envBool("MIDTRANS_PRODUCTION", false), "Use the Midtrans production environment")
	fs.StringVar(&cfg.Payment.Stripe.SecretKey, "stripe-key", envString("STRIPE_KEY", ""), "Stripe secret key")
	fs.StringVar(&cfg.Payment.Stripe.WebhookSecret, "stripe-webhook-secret", envString("STRIPE_WEBHOOK_SECRET", ""), "Stripe webhook secret")
	fs.StringVar(&cfg.Payment.Stripe.SuccessUrl, "stripe-success-url", envString("STRIPE_SUCCESS_URL", "https://example.com/success.html"), "Stripe payment success page")
	fs.StringVar(&cfg.Payment.Stripe.FailureUrl, "stripe-failure-url", envString("STRIPE_FAILURE_URL", "https://example.com/failure.html"), "Stripe payment failure page")

	fs.BoolVar(&cfg.Sweeper.Enabled, "sweeper-enabled", envBool("SWEEPER_ENABLED", true), "Run the expiration sweeper in-process")
	fs.DurationVar(&cfg.Sweeper.Interval, "sweeper-interval", envDuration("SWEEPER_INTERVAL", time.Minute), "Expiration sweep interval")
	fs.DurationVar(&cfg.Sweeper.Grace, "sweeper-grace", envDuration("SWEEPER_GRACE", 10*time.Minute), "Age after which unpaid bookings expire")
	fs.IntVar(&cfg.Sweeper.BatchSize, "sweeper-batch", envInt("SWEEPER_BATCH", 100), "Maximum bookings expired per sweep")

	fs.StringVar(&cfg.Events.Driver, "events-driver", envString("EVENTS_DRIVER", "log"), "Booking event transport (log|amqp|kafka)")
	fs.StringVar(&cfg.Events.AmqpUrl, "amqp-url", envString("AMQP_URL", ""), "RabbitMQ URL")
	fs.StringVar(&cfg.Events.AmqpExchange, "amqp-exchange", envString("AMQP_EXCHANGE", "booking.events"), "RabbitMQ exchange")
	fs.StringVar(&cfg.Events.KafkaBrokers, "kafka-brokers", envString("KAFKA_BROKERS", ""), "Comma separated Kafka brokers")
	fs.StringVar(&cfg.Events.KafkaTopic, "kafka-topic", envString("KAFKA_TOPIC", "booking-events"), "Kafka topic")

	fs.StringVar(&cfg.SMTP.Host, "smtp-host", envString("SMTP_HOST", "sandbox.smtp.mailtrap.io"), "SMTP host")
	fs.IntVar(&cfg.SMTP.Port, "smtp-port", envInt("SMTP_PORT", 2525), "SMTP port")
	fs.StringVar(&cfg.SMTP.Username, "smtp-username", envString("SMTP_USERNAME", ""), "SMTP username")
	fs.StringVar(&cfg.SMTP.Password, "smtp-password", envString("SMTP_PASSWORD", ""), "SMTP password")
	fs.StringVar(&cfg.SMTP.Sender, "smtp-sender", envString("SMTP_SENDER", "CineX <no-reply@cinex.metinatakli.net>"), "SMTP sender")

	fs.StringVar(&cfg.Auth.JwtSecret, "jwt-secret", envString("JWT_SECRET", ""), "HMAC secret for access tokens")
}

func (cfg Config) kafkaBrokers() []string {
	var brokers []string

	for _, b := range strings.Split(cfg.Events.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	return brokers
}

// parseConfig loads .env, registers the flags on a new set and parses args.
func parseConfig(name string, args []string) (Config, bool, error) {
	var cfg Config

	err := loadEnv()
	if err != nil {
		return cfg, false, err
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	cfg.registerFlags(fs)

	displayVersion := fs.Bool("version", false, "Display version and exit")

	err = fs.Parse(args)
	if err != nil {
		return cfg, false, err
	}

	return cfg, *displayVersion, nil
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}

	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}

	return fallback
}

func envBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}

	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}

	return fallback
}
