package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brk3/habitkit/internal/logger"
	"github.com/brk3/habitkit/internal/server"
	"github.com/brk3/habitkit/internal/storage/open"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx)
		},
	}
}

func runServer(ctx context.Context) error {
	store, err := open.Store(cfg.StorageDriver, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open %s store at %s: %w", cfg.StorageDriver, cfg.DBPath, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close store", "error", err)
		}
	}()

	s, err := server.New(&cfg, store)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "addr", cfg.ListenAddr, "storage", cfg.StorageDriver, "auth", cfg.AuthEnabled)
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

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
