package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	webAdapter "syzygy-tms/internal/adapters/web"
	"syzygy-tms/internal/app"
	"syzygy-tms/internal/config"
	"syzygy-tms/internal/core"
	"syzygy-tms/internal/db"
	"syzygy-tms/internal/logger"
	"syzygy-tms/internal/store/postgres"
	"syzygy-tms/migrations"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
		log.Fatal().Err(err).Msg("logger")
	}
	invCfg, err := cfg.InvoicingConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("invoicing config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database")
	}
	defer pool.Close()

	if os.Getenv("MIGRATE_ON_START") == "true" {
		if _, err := db.Migrate(ctx, pool, migrations.FS, logger.WithComponent("migrate")); err != nil {
			log.Fatal().Err(err).Msg("migrate")
		}
	}

	store := postgres.New(pool)
	orderService := core.NewOrderService(store, logger.WithComponent("orders"))
	tripService := core.NewTripService(store, logger.WithComponent("trips"))
	invoiceService := core.NewInvoiceService(store, invCfg, logger.WithComponent("invoicing"))

	svc := app.NewAppService(store, orderService, tripService, invoiceService)
	handler := webAdapter.NewHandler(svc, cfg.AllowedOrigins, logger.WithComponent("http"))

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info().Str("port", cfg.ServerPort).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("server")
	}
}
