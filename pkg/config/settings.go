package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"profitshare/pkg/money"
)

// DatabaseSettings describes the PostgreSQL connection.
type DatabaseSettings struct {
	Host            string        `env:"DB_HOST" envDefault:"localhost"`
	Port            string        `env:"DB_PORT" envDefault:"5432"`
	User            string        `env:"DB_USER" envDefault:"postgres"`
	Password        string        `env:"DB_PASSWORD"`
	Name            string        `env:"DB_NAME" envDefault:"profitshare"`
	SSLMode         string        `env:"DB_SSLMODE" envDefault:"disable"`
	TimeZone        string        `env:"DB_TIMEZONE" envDefault:"UTC"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"50"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"1h"`
	MigrationsDir   string        `env:"MIGRATIONS_DIR" envDefault:"migrations"`
}

// DSN returns the connection string for the gorm postgres driver.
func (d DatabaseSettings) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode, d.TimeZone)
}

// RabbitMQSettings describes the broker connection and queue names.
type RabbitMQSettings struct {
	Host              string `env:"RABBITMQ_HOST"`
	Port              string `env:"RABBITMQ_PORT" envDefault:"5672"`
	User              string `env:"RABBITMQ_USER" envDefault:"guest"`
	Password          string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	NotificationQueue string `env:"PAYMENT_NOTIFICATION_QUEUE" envDefault:"payment_notifications"`
	AuditQueue        string `env:"AUDIT_QUEUE" envDefault:"profit_audit"`
}

// Enabled reports whether a broker host is configured.
func (r RabbitMQSettings) Enabled() bool { return r.Host != "" }

// URL returns the AMQP connection URL.
func (r RabbitMQSettings) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", r.User, r.Password, r.Host, r.Port)
}

// PaymentSettings describes the payout gateway.
type PaymentSettings struct {
	GatewayURL  string        `env:"PAYMENT_GATEWAY_URL"`
	Channel     string        `env:"PAYMENT_GATEWAY_CHANNEL"`
	Secret      string        `env:"PAYMENT_GATEWAY_SECRET"`
	CallbackURL string        `env:"PAYMENT_CALLBACK_URL"`
	Timeout     time.Duration `env:"PAYMENT_TIMEOUT" envDefault:"30s"`
}

// Settings is the process configuration read from the environment.
type Settings struct {
	Port          string `env:"PORT" envDefault:"8080"`
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`

	PlatformFeeRate       string        `env:"PLATFORM_FEE_RATE" envDefault:"0.05"`
	Currency              string        `env:"CURRENCY" envDefault:"USD"`
	LedgerTimeout         time.Duration `env:"LEDGER_TIMEOUT" envDefault:"10s"`
	AuditTimeout          time.Duration `env:"AUDIT_TIMEOUT" envDefault:"5s"`
	ClaimWriteConcurrency int           `env:"CLAIM_WRITE_CONCURRENCY" envDefault:"16"`
	ClaimWriteAttempts    int           `env:"CLAIM_WRITE_ATTEMPTS" envDefault:"3"`

	JWTSecret      string   `env:"JWT_SECRET"`
	WebhookSecret  string   `env:"WEBHOOK_SECRET"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	RateLimitRPS   float64  `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int      `env:"RATE_LIMIT_BURST" envDefault:"20"`
	BankAccountKey string   `env:"BANK_ACCOUNT_KEY"`

	ReconcileCron  string `env:"RECONCILE_CRON" envDefault:"0 */15 * * * *"`
	AutoMigrate    bool   `env:"AUTO_MIGRATE" envDefault:"false"`
	WorkerPrefetch int    `env:"WORKER_PREFETCH" envDefault:"8"`

	// MemoryHoldingsFile seeds the in-memory ledger when STORAGE_DRIVER=memory.
	MemoryHoldingsFile string `env:"MEMORY_HOLDINGS_FILE"`

	Database DatabaseSettings
	RabbitMQ RabbitMQSettings
	Payment  PaymentSettings
}

// ParseEnv fills target from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads an optional .env file and then the environment.
func Load() (Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Settings{}, fmt.Errorf("load .env: %w", err)
	}
	var s Settings
	if err := ParseEnv(&s); err != nil {
		return Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks values env tags cannot express.
func (s Settings) Validate() error {
	if _, err := s.FeeRate(); err != nil {
		return fmt.Errorf("PLATFORM_FEE_RATE: %w", err)
	}
	switch s.StorageDriver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("STORAGE_DRIVER must be postgres or memory, got %q", s.StorageDriver)
	}
	if _, err := logrus.ParseLevel(s.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

// FeeRate parses the platform fee rate.
func (s Settings) FeeRate() (money.Rate, error) {
	return money.ParseRate(s.PlatformFeeRate)
}

// UseMemoryStorage reports whether the in-memory store was selected.
func (s Settings) UseMemoryStorage() bool {
	return strings.EqualFold(s.StorageDriver, "memory")
}

// SetupLogger configures the standard logrus logger the way every process
// uses it: JSON output at the configured level.
func SetupLogger(level string) *logrus.Logger {
	logger := logrus.StandardLogger()
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	logger.SetOutput(os.Stdout)
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}
