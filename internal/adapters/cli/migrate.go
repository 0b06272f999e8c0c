package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"syzygy-tms/internal/db"
	"syzygy-tms/internal/logger"
	"syzygy-tms/migrations"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			pool, err := db.NewPool(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("database: %w", err)
			}
			defer pool.Close()

			applied, err := db.Migrate(cmd.Context(), pool, migrations.FS, logger.WithComponent("migrate"))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d migration(s) applied\n", applied)
			return nil
		},
	}
}
