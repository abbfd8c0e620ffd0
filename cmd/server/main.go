package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"google.golang.org/api/option"

	"github.com/mmynk/familyfund/internal/auth"
	"github.com/mmynk/familyfund/internal/config"
	"github.com/mmynk/familyfund/internal/receipts"
	"github.com/mmynk/familyfund/internal/service"
	"github.com/mmynk/familyfund/internal/session"
	"github.com/mmynk/familyfund/internal/storage"
	"github.com/mmynk/familyfund/internal/storage/sheets"
	"github.com/mmynk/familyfund/internal/storage/sqlite"
	"github.com/mmynk/familyfund/internal/web"
	"github.com/mmynk/familyfund/pkg/logging"
)

func main() {
	// Setup structured logging
	logger := logging.Setup()

	if err := run(logger); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()

	// Initialize storage
	store, clientOpts, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	repo := storage.NewRepository(store, cfg.CacheTTL, 0)

	// Receipts are optional
	var uploader receipts.Uploader
	if cfg.ReceiptBucket != "" {
		gcs, err := receipts.NewGCSUploader(ctx, cfg.ReceiptBucket, clientOpts...)
		if err != nil {
			return err
		}
		defer gcs.Close()
		uploader = gcs
		logger.Info("Receipt uploads enabled", "bucket", cfg.ReceiptBucket)
	} else {
		logger.Warn("No RECEIPT_BUCKET configured - receipt uploads are disabled")
	}

	signer, err := session.NewSigner(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		return err
	}
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.APITokenTTL)
	authenticator := auth.NewPasswordAuthenticator(repo, auth.NewHasher(0, cfg.LegacySalt))

	srv, err := web.NewServer(web.Deps{
		Auth:          service.NewAuthService(authenticator, jwtManager, auth.NewRoles(cfg.AdminUsernames), logger),
		Contributions: service.NewContributionService(repo, cfg.Calendar, cfg.MinAmount, uploader, logger),
		Reports:       service.NewReportService(repo, cfg.Calendar, logger),
		Signer:        signer,
		JWT:           jwtManager,
		Logger:        logger,
		CSRFKey:       cfg.CSRFKey,
		Secure:        cfg.Production(),

		AllowedOrigins: cfg.AllowedOrigins,
	})
	if err != nil {
		return err
	}

	// Wrap with h2c for HTTP/2 without TLS
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h2c.NewHandler(srv.Handler(), &http2.Server{}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", server.Addr, "backend", cfg.StoreBackend, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errc:
		return err
	case <-quit:
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exited")
	return nil
}

// openStore opens the configured backend. For Sheets it also returns the
// client options carrying the resolved credentials, so other Google
// clients can share them.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, []option.ClientOption, error) {
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		store, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Storage initialized", "backend", "sqlite", "database", cfg.SQLitePath)
		return store, nil, nil

	default:
		creds, source, err := sheets.NewCredentialResolver(cfg.SecretsPath, cfg.CredentialsFile).Resolve()
		if err != nil {
			return nil, nil, err
		}
		opts := []option.ClientOption{option.WithCredentialsJSON(creds)}

		store, err := sheets.New(ctx, sheets.Config{
			SpreadsheetID:  cfg.SpreadsheetID,
			TransactionTab: cfg.TransactionTab,
			AuthTab:        cfg.AuthTab,
			Retry:          sheets.DefaultRetrier(cfg.StoreTimeout, cfg.StoreMaxAttempts),
		}, opts...)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Storage initialized", "backend", "sheets", "spreadsheet", cfg.SpreadsheetID, "credentials", source)
		return store, opts, nil
	}
}
