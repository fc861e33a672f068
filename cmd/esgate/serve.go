package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aneshas/esgate/api"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(os.Stderr)
		if err != nil {
			return err
		}
		defer a.Close()

		e := api.New(a.svc, a.logger)

		errCh := make(chan error, 1)

		go func() {
			a.logger.Info("HTTP server listening", "addr", a.cfg.HTTPAddr)
			if err := e.Start(a.cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		// Wait for SIGINT or SIGTERM
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			a.logger.Info("received signal, shutting down", "signal", sig)
		case err := <-errCh:
			a.logger.Error("HTTP server error", "err", err)
			return err
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("HTTP server shutdown error", "err", err)
		}

		a.logger.Info("shutdown complete")
		return nil
	},
}
