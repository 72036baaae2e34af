package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/roman-kulish/flight-log-viewer/internal/api"
	"github.com/roman-kulish/flight-log-viewer/internal/dji"
	"github.com/roman-kulish/flight-log-viewer/internal/importer"
	"github.com/roman-kulish/flight-log-viewer/internal/logfile"
	"github.com/roman-kulish/flight-log-viewer/internal/storage"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

const shutdownTimeout = 10 * time.Second

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	store := storage.NewSqliteStore(config.Storage.DatabasePath)
	defer store.Close()

	keyring := createKeyring(config, logger)

	clientOpts := []dji.ClientOption{
		dji.WithHTTPClient(&http.Client{Timeout: time.Duration(config.DJI.Timeout)}),
	}
	if config.DJI.BaseURL != "" {
		clientOpts = append(clientOpts, dji.WithBaseURL(config.DJI.BaseURL))
	}
	keys := dji.NewClient(keyring, clientOpts...)

	server := api.NewServer(&api.Dependencies{
		Store:    store,
		Importer: importer.New(store, logfile.NewDecoder(keys, logger), logger),
		Keyring:  keyring,
		Logger:   logger,
		Version:  Version,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			slog.String("addr", config.Server.Listen),
			slog.String("version", Version))
		errCh <- server.Start(config.Server.Listen)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		return nil
	}
}

func createKeyring(config *Config, logger *slog.Logger) *dji.Keyring {
	opts := []dji.KeyringOption{dji.WithLogger(logger)}
	if config.DJI.APIKey != "" {
		opts = append(opts, dji.WithAPIKey(config.DJI.APIKey))
	}
	if config.DJI.AppDataDir != "" {
		opts = append(opts, dji.WithAppDataDir(config.DJI.AppDataDir))
	}
	if config.DJI.EnvFile != "" {
		opts = append(opts, dji.WithEnvFile(config.DJI.EnvFile))
	}
	return dji.NewKeyring(opts...)
}
