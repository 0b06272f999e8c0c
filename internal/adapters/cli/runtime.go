package cli

import (
	"context"
	"fmt"
	"os"

	"syzygy-tms/internal/app"
	"syzygy-tms/internal/config"
	"syzygy-tms/internal/core"
	"syzygy-tms/internal/db"
	"syzygy-tms/internal/logger"
	"syzygy-tms/internal/store/memory"
	"syzygy-tms/internal/store/postgres"
)

// loadConfig reads the environment and sets up the global logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	lc := cfg.GetLoggerConfig()
	if os.Getenv("LOG_OUTPUT") == "" {
		lc.Output = "stderr" // keep stdout for command output
	}
	if err := logger.Setup(lc); err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return cfg, nil
}

// openApp wires the services over Postgres, or over a fresh memory store.
func openApp(ctx context.Context, inMemory bool) (app.ApplicationService, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	invCfg, err := cfg.InvoicingConfig()
	if err != nil {
		return nil, nil, err
	}

	var store core.Store
	closeFn := func() {}
	if inMemory {
		store = memory.New()
		log := logger.WithComponent("store")
		log.Warn().Msg("using in-memory store, data is lost on exit")
	} else {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		store = postgres.New(pool)
		closeFn = pool.Close
	}

	svc := app.NewAppService(
		store,
		core.NewOrderService(store, logger.WithComponent("orders")),
		core.NewTripService(store, logger.WithComponent("trips")),
		core.NewInvoiceService(store, invCfg, logger.WithComponent("invoicing")),
	)
	return svc, closeFn, nil
}
