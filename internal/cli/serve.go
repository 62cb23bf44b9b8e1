package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/entitysoft/billing/internal/adapter/handler"
	"github.com/entitysoft/billing/internal/adapter/storage"
	"github.com/entitysoft/billing/internal/core/config"
	"github.com/entitysoft/billing/internal/core/ledger"
	"github.com/entitysoft/billing/internal/core/sale"
	"github.com/entitysoft/billing/internal/core/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	// The store connection is a hard precondition: no store, no server.
	store, err := openStore(cmd.Context(), cfg)
	if err != nil {
		slog.Error("Document store connection failed", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}

	clients := ledger.NewClientLedger(store)
	inventory := ledger.NewInventoryLedger(store)
	catalog := ledger.NewCatalogLedger(store)
	poster := sale.NewPoster(store, clients, inventory, cfg.AllowNegativeStock)
	queries := sale.NewQueries(store)

	var dispatcher *worker.Dispatcher
	if cfg.WebhookURL != "" {
		dispatcher = worker.NewDispatcher(store, cfg.WebhookURL)
		poster.SetNotifier(dispatcher)
		dispatcher.Start()
	}

	app := handler.NewApp(handler.Deps{
		Clients:        clients,
		Inventory:      inventory,
		Catalog:        catalog,
		Poster:         poster,
		Queries:        queries,
		MetricsEnabled: cfg.MetricsEnabled,
		StaticDir:      "./public",
	})

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("Server starting", "env", cfg.Env, "port", cfg.Port, "store", cfg.StoreDriver)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("Server stopped", "error", err)
		}
	}()

	<-stop
	slog.Info("Shutting down server")

	if err := app.Shutdown(); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
	if dispatcher != nil {
		dispatcher.Stop()
	}
	if err := store.Close(); err != nil {
		slog.Error("Store close failed", "error", err)
	}

	slog.Info("Server exited")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.StoreDriver == "bolt" {
		return storage.OpenBolt(cfg.BoltPath)
	}
	return storage.ConnectPostgres(ctx, cfg.DatabaseURL)
}
