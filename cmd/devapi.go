/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
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

	"github.com/naukovi-znahidky/client/internal/devapi"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// devapiCmd represents the devapi command
var devapiCmd = &cobra.Command{
	Use:   "devapi",
	Short: "Runs an in-memory copy of the REST API",
	Long: `Runs an in-memory copy of the REST API for local development.
Nothing is persisted; every restart begins with the seeded scientific
fields only. Usage:

	znahidky devapi
	API_BASE_URL=http://localhost:8000/api znahidky server
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		logger, err := newLogger(cfg)
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()

		api := devapi.New(devapi.Config{
			JWTSecret:  cfg.DevAPI.JWTSecret,
			AccessTTL:  cfg.DevAPI.AccessTTL,
			RefreshTTL: cfg.DevAPI.RefreshTTL,
			Logger:     logger.Named("devapi"),
		})
		httpServer := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.DevAPI.Port),
			Handler:           api.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			logger.Info("dev api listening", zap.String("addr", httpServer.Addr))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		}
	},
}

func init() {
	rootCmd.AddCommand(devapiCmd)
}
