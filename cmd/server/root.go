package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/iliyamo/event-ticket-booking/internal/config"
	"github.com/iliyamo/event-ticket-booking/internal/database"
	"github.com/iliyamo/event-ticket-booking/internal/logging"
	"github.com/iliyamo/event-ticket-booking/internal/queue"
	"github.com/iliyamo/event-ticket-booking/internal/repository"
	"github.com/iliyamo/event-ticket-booking/internal/repository/memory"
	"github.com/iliyamo/event-ticket-booking/internal/repository/mysql"
	"github.com/iliyamo/event-ticket-booking/internal/service"
)

func newRootCommand() *cobra.Command {
	serve := newServeCommand()
	root := &cobra.Command{
		Use:           "ticketd",
		Short:         "Event ticket booking service",
		SilenceUsage:  true,
		SilenceErrors: true,
		// Running without a subcommand starts the server.
		RunE: serve.RunE,
	}
	root.AddCommand(serve, newMigrateCommand(), newSweepCommand(), newTokenCommand())
	return root
}

// loadConfig reads the environment and configures logging.
func loadConfig() config.Config {
	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.LogFormat)
	return cfg
}

// backend is the storage selected by STORE together with its database
// handle, which is nil for the in-memory store.
type backend struct {
	store repository.Store
	db    *sqlx.DB
}

func (b backend) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

// openBackend opens the configured store.  The MySQL schema is migrated
// before the store is returned.
func openBackend(ctx context.Context, cfg config.Config) (backend, error) {
	if cfg.Store == config.StoreMemory {
		return backend{store: memory.New()}, nil
	}
	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return backend{}, fmt.Errorf("open database: %w", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return backend{}, fmt.Errorf("migrate: %w", err)
	}
	return backend{store: mysql.New(db), db: db}, nil
}

// publisherFor returns the broker publisher, or a no-op when no broker is
// configured.
func publisherFor(cfg config.Config) (service.Publisher, func() error) {
	if cfg.AMQPURL == "" {
		return queue.NopPublisher{}, func() error { return nil }
	}
	p := queue.NewPublisher(cfg.AMQPURL)
	return p, p.Close
}

func serviceOptions(cfg config.Config, pub service.Publisher) []service.Option {
	return []service.Option{
		service.WithHoldTTL(cfg.HoldTTL),
		service.WithSweepInterval(cfg.SweepInterval),
		service.WithPublisher(pub),
	}
}
