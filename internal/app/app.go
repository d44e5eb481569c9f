// Package app wires settings into a running engine for the api, worker,
// scheduler and profitctl processes.
package app

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"profitshare/internal/audit"
	"profitshare/internal/distribution"
	"profitshare/internal/ledger"
	"profitshare/internal/payment"
	"profitshare/internal/store/memory"
	"profitshare/internal/store/postgres"
	"profitshare/pkg/config"
	"profitshare/pkg/secure"
)

// App is a wired engine plus the connections it owns.
type App struct {
	Settings  config.Settings
	Engine    *distribution.Engine
	DB        *gorm.DB
	Broker    *amqp.Connection
	Publisher *config.Publisher
	Logger    *logrus.Logger

	closers []func() error
}

// Options select which optional connections a process needs.
type Options struct {
	// Broker connects to RabbitMQ when it is configured.
	Broker bool
}

// Build opens storage and optional broker connections and constructs the
// engine. Close releases everything Build opened.
func Build(ctx context.Context, s config.Settings, logger *logrus.Logger, opts Options) (*App, error) {
	a := &App{Settings: s, Logger: logger}

	feeRate, err := s.FeeRate()
	if err != nil {
		return nil, err
	}
	cfg := distribution.DefaultConfig()
	cfg.FeeRate = feeRate
	cfg.Currency = s.Currency
	cfg.LedgerTimeout = s.LedgerTimeout
	cfg.PaymentTimeout = s.Payment.Timeout
	cfg.AuditTimeout = s.AuditTimeout
	cfg.ClaimWriteConcurrency = s.ClaimWriteConcurrency
	cfg.ClaimWriteAttempts = s.ClaimWriteAttempts

	deps := distribution.Deps{Logger: logger}
	sinks := audit.MultiSink{audit.NewLogSink(logger)}

	if s.UseMemoryStorage() {
		logger.Warn("Using in-memory storage; data is lost on exit")
		store := memory.NewStore()
		deps.Distributions = store
		deps.Claims = store
		holdings := memory.NewLedger()
		if s.MemoryHoldingsFile != "" {
			if err := holdings.LoadFile(s.MemoryHoldingsFile); err != nil {
				return nil, err
			}
			logger.WithField("file", s.MemoryHoldingsFile).Info("Seeded in-memory ledger")
		} else {
			logger.Warn("MEMORY_HOLDINGS_FILE not set, every distribution will find no circulating tokens")
		}
		deps.Ledger = holdings
	} else {
		db, err := config.InitDB(s.Database)
		if err != nil {
			return nil, err
		}
		a.DB = db
		a.closers = append(a.closers, config.CloseDB)

		if s.AutoMigrate {
			if err := config.ExecuteMigrations(db, s.Database.MigrationsDir); err != nil {
				a.Close()
				return nil, err
			}
		}
		var repoOpts []postgres.Option
		if s.BankAccountKey != "" {
			fc, err := secure.NewFieldCipher(s.BankAccountKey)
			if err != nil {
				a.Close()
				return nil, err
			}
			repoOpts = append(repoOpts, postgres.WithFieldCipher(fc))
		} else {
			logger.Warn("BANK_ACCOUNT_KEY not set, bank accounts are stored in plain text")
		}
		repo := postgres.NewRepository(db, logger, repoOpts...)
		deps.Distributions = repo
		deps.Claims = repo
		deps.Ledger = ledger.NewGormLedger(db)
		sinks = append(sinks, audit.NewDBSink(db))
	}

	if opts.Broker && s.RabbitMQ.Enabled() {
		conn, err := config.InitRabbitMQ(ctx, s.RabbitMQ)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Broker = conn
		a.closers = append(a.closers, config.CloseRabbitMQ)

		pub, err := config.NewPublisher(conn)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Publisher = pub
		a.closers = append(a.closers, pub.Close)
		sinks = append(sinks, audit.NewQueueSink(pub, s.RabbitMQ.AuditQueue))
	}
	deps.Audit = sinks

	if s.Payment.GatewayURL == "" {
		logger.Warn("PAYMENT_GATEWAY_URL not set, claim requests will fail")
		deps.Payments = payment.Disabled{}
	} else {
		client, err := payment.NewClient(payment.Config{
			BaseURL:     s.Payment.GatewayURL,
			Channel:     s.Payment.Channel,
			Secret:      s.Payment.Secret,
			CallbackURL: s.Payment.CallbackURL,
			Currency:    s.Currency,
			Timeout:     s.Payment.Timeout,
		}, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		deps.Payments = client
	}

	engine, err := distribution.New(cfg, deps)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build engine: %w", err)
	}
	a.Engine = engine
	return a, nil
}

// Close releases connections in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
