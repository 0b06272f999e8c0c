package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"syzygy-tms/internal/adapters/web"
	"syzygy-tms/internal/app"
	"syzygy-tms/internal/logger"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if port == "" {
				port = cfg.ServerPort
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return opts.withApp(ctx, func(svc app.ApplicationService) error {
				log := logger.WithComponent("http")
				srv := &http.Server{
					Addr:              ":" + port,
					Handler:           web.NewHandler(svc, cfg.AllowedOrigins, log),
					ReadHeaderTimeout: 10 * time.Second,
				}

				errCh := make(chan error, 1)
				go func() {
					log.Info().Str("addr", srv.Addr).Msg("server starting")
					errCh <- srv.ListenAndServe()
				}()

				select {
				case err := <-errCh:
					if !errors.Is(err, http.ErrServerClosed) {
						return err
					}
					return nil
				case <-ctx.Done():
				}

				log.Info().Msg("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (defaults to SERVER_PORT)")
	return cmd
}
