package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/entitysoft/billing/internal/adapter/storage"
	"github.com/entitysoft/billing/internal/core/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Bootstrap the Postgres documents table",
	Long: `Creates the documents table and its index. Safe to re-run.
The bolt driver needs no bootstrap; buckets are created on first write.`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	store, err := storage.ConnectPostgres(cmd.Context(), cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Migrate(cmd.Context()); err != nil {
		return err
	}
	slog.Info("Schema applied")
	return nil
}
