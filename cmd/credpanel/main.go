package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	adminadapter "github.com/dmarchetti/credpanel/internal/adapter/driven/adminapi"
	sqliteadapter "github.com/dmarchetti/credpanel/internal/adapter/driven/sqlite"
	httphandler "github.com/dmarchetti/credpanel/internal/adapter/driving/http"
	"github.com/dmarchetti/credpanel/internal/application"
	"github.com/dmarchetti/credpanel/internal/config"
	"github.com/dmarchetti/credpanel/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on malformed env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"sync_interval", cfg.SyncInterval,
		"batch_window", cfg.BatchWindowSize,
		"admin_configured", cfg.HasAdminEndpoint(),
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on the writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire driven adapters.
	credStore := sqliteadapter.NewCredentialRepo(db)
	groupStore := sqliteadapter.NewGroupRepo(db)

	// 6. Create the admin client (may be nil until an endpoint is configured).
	var adminClient *adminadapter.Client
	if cfg.HasAdminEndpoint() {
		adminClient = adminadapter.NewClient(cfg.AdminBaseURL, cfg.AdminAPIKey)
		slog.Info("admin client created", "base_url", cfg.AdminBaseURL)
	} else {
		slog.Info("no admin endpoint configured, sync and batch actions disabled until one is provided")
	}

	provider := application.NewAdminClientProvider(nil)
	if adminClient != nil {
		provider.Replace(adminClient)
	}

	// 7. Create application services.
	broker := application.NewBroker()
	syncSvc := application.NewSyncService(provider, credStore, groupStore, broker, cfg.SyncInterval)
	go syncSvc.Start(ctx)

	listSvc := application.NewListService(credStore)
	selection := application.NewSelectionManager(cfg.PreserveSelection)
	batchSvc := application.NewBatchService(provider, application.NewJobRegistry(), syncSvc, broker, cfg.BatchWindowSize)

	// 8. Create the HTTP handler and register API routes.
	clientFactory := func(baseURL, apiKey string) driven.AdminClient {
		return adminadapter.NewClient(baseURL, apiKey)
	}
	apiHandler := httphandler.NewHandler(credStore, groupStore, provider, clientFactory, listSvc, selection, batchSvc, syncSvc, slog.Default())
	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, apiHandler)

	handler := httphandler.ApplyMiddleware(mux, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	slog.Info("shutdown complete")
	return nil
}
