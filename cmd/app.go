package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"abo/internal/billing"
	"abo/internal/config"
	"abo/internal/contract"
	"abo/internal/events"
	"abo/internal/export"
	"abo/internal/invoice"
	"abo/internal/lock"
	"abo/internal/reconciliation"
	"abo/internal/sheets"
	"abo/internal/store/sqlite"
	"abo/pkg/services"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app holds the services a command works with.
type app struct {
	cfg       *config.Config
	store     *sqlite.Store
	locker    services.Locker
	publisher services.Publisher
	billing   *billing.Service
	creator   *contract.Creator
	matcher   *reconciliation.Matcher
	registry  *export.Registry
	closers   []func() error
}

// newApp opens the database and connects the optional infrastructure
// named in cfg.
func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg}

	store, err := sqlite.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.DatabasePath, err)
	}
	a.store = store
	a.closers = append(a.closers, store.Close)

	if cfg.RedisURL != "" {
		locker, err := lock.NewRedisLocker(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		a.locker = locker
		a.closers = append(a.closers, locker.Close)
		log.Debug().Msg("Using Redis contract locks")
	} else {
		a.locker = lock.NewMemoryLocker()
	}

	if cfg.RabbitMQURL != "" {
		publisher, err := events.NewRabbitMQPublisher(cfg.RabbitMQURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		a.publisher = publisher
		log.Debug().Msg("Publishing events to RabbitMQ")
	} else {
		a.publisher = events.NewNoopPublisher()
	}
	a.closers = append(a.closers, a.publisher.Close)

	builder := invoice.NewBuilder(invoice.WithDefaultMaturityOffset(cfg.MaturityOffset()))
	a.billing = billing.NewService(store, a.locker, a.publisher, builder)
	a.creator = contract.NewCreator(store, nil)
	a.matcher = reconciliation.NewMatcher(store, a.publisher)

	a.registry = export.NewRegistry()
	if err := export.RegisterBuiltins(a.registry, sheetsDialer(cfg.GoogleSheetURL)); err != nil {
		a.Close()
		return nil, err
	}
	if cfg.PluginManifest != "" {
		manifest, err := export.LoadManifest(cfg.PluginManifest)
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := a.registry.Apply(manifest); err != nil {
			a.Close()
			return nil, err
		}
	}

	return a, nil
}

// Close releases all connections in reverse order of opening.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
	a.closers = nil
}

// sheetsDialer connects to the spreadsheet once, on first use. It returns
// nil if no spreadsheet is configured.
func sheetsDialer(sheetURL string) export.SheetsDialer {
	if sheetURL == "" {
		return nil
	}
	var (
		once    sync.Once
		service *sheets.Service
		err     error
	)
	return func(ctx context.Context) (export.SheetsClient, error) {
		once.Do(func() {
			service, err = sheets.NewSheetsService(ctx, sheetURL)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Google Sheets service: %w", err)
		}
		return service, nil
	}
}

// runWithApp loads the app for one command run and cancels on interrupt.
func runWithApp(cmd *cobra.Command, component string, timeout time.Duration, fn func(ctx context.Context, a *app, log zerolog.Logger) error) error {
	log := loggerFor(component)

	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(timeout, log)
	defer cancel()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a, log)
}

// commandContext creates a context with timeout and signal handling
func commandContext(timeout time.Duration, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
