package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/plansink/plansink/internal/config"
	"github.com/plansink/plansink/internal/drive"
	"github.com/plansink/plansink/internal/googleauth"
	"github.com/plansink/plansink/internal/handlers"
	"github.com/plansink/plansink/internal/logging"
	"github.com/plansink/plansink/internal/notify"
	"github.com/plansink/plansink/internal/secrets"
	"github.com/plansink/plansink/internal/server"
	"github.com/plansink/plansink/internal/service"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("plansink"))
	logging.SetDefault(logger)

	slog.Info("Starting plansink service",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Logging.Level),
		slog.String("log_format", cfg.Logging.Format),
	)
	if *configPath != "" {
		slog.Info("Loaded configuration", slog.String("config_path", *configPath))
	}
	slog.Info("Storage configured",
		slog.String("drive_folder", cfg.Drive.FolderID),
		slog.String("auth_method", cfg.Auth.Method),
		slog.Int("triggers", len(cfg.Triggers)),
	)

	notifier := notify.New(cfg.Notify.WebhookURL, cfg.Notify.Timeout)
	if cfg.Notify.WebhookURL == "" {
		log.Println("Notification webhook not configured - outcome notifications disabled")
	}

	if cfg.Secrets.Enabled() {
		log.Printf("Refreshed tokens will be pushed to secret %s in project %s",
			cfg.Secrets.SecretName, cfg.Secrets.ProjectID)
	}

	// Credentials are rebuilt per delivery so expired tokens are refreshed
	// mid-deployment without a restart.
	storageFactory := func(ctx context.Context) (service.Storage, error) {
		opts := googleauth.Options{
			Method:          googleauth.Method(cfg.Auth.Method),
			CredentialsJSON: []byte(cfg.Auth.CredentialsJSON),
			CredentialsFile: cfg.Auth.CredentialsFile,
			EnvFile:         cfg.Auth.EnvFile,
			EnvVar:          cfg.Auth.EnvVar,
			TokenJSON:       []byte(cfg.Auth.TokenJSON),
			Scopes:          cfg.Auth.Scopes,
		}
		if cfg.Secrets.Enabled() {
			// nil token source: the secret manager client authenticates with
			// application default credentials.
			opts.TokenStore = secrets.NewStore(
				cfg.Secrets.ProjectID, cfg.Secrets.SecretName, nil)
		}
		cred, err := googleauth.Build(ctx, opts)
		if err != nil {
			return nil, err
		}
		return drive.New(ctx, cred.TokenSource(), cfg.Drive.FolderID)
	}

	svc := service.New(cfg, storageFactory, notifier, logger)
	handler := handlers.NewWebhookHandler(svc, cfg.Ingestion.MaxBodySize)
	router := server.NewRouter(handler)

	// Create server with config values
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("plansink listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
