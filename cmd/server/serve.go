package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/dues-engine/api"
)

func serveCmd() *cobra.Command {
	var scenario string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API and, unless disabled, the scheduler that switches off
contribution types whose due date has passed.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM the scheduler stops, in-flight requests get 30s to
  finish and the database is closed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), scenario)
		},
	}

	cmd.Flags().Int("port", 0, "HTTP server port (default from config, 8080)")
	cmd.Flags().StringVar(&scenario, "scenario", "", "load a demo scenario on startup (resets data)")
	_ = v.BindPFlag("server.port", cmd.Flags().Lookup("port"))

	return cmd
}

func runServe(ctx context.Context, scenario string) error {
	logger := slog.Default()

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	handler := api.NewHandler(store, reconciler(), logger)

	if scenario != "" {
		if err := handler.ApplyScenario(ctx, scenario); err != nil {
			return err
		}
	}

	if cfg.Scheduler.Enabled {
		scheduler, err := api.NewExpiryScheduler(handler.Ledger, logger, cfg.Scheduler.Spec)
		if err != nil {
			return err
		}
		if err := scheduler.Start(); err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(handler, cfg.CORS.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", server.Addr, "database", cfg.Database.Path)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
