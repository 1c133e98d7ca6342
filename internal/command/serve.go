package command

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/rr-brian/rts-ai/internal/logger"
	server "github.com/rr-brian/rts-ai/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd)
		},
	}
}

func (a *app) serve(cmd *cobra.Command) error {
	cfg := a.cfg

	logger.L.Info("starting gateway",
		"environment", cfg.Environment,
		"port", cfg.Server.Port,
		"database", cfg.Database.Redacted(),
		"completion_configured", len(cfg.Completion.Missing()) == 0,
		"auth_enabled", cfg.Auth.Enabled)

	rt, err := server.Bootstrap(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	e := server.NewServer(rt)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		logger.L.Info("listening", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-errCh:
		if ok {
			return errors.Wrap(err, "server failed")
		}
		return nil
	case sig := <-quit:
		logger.L.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.L.Error("graceful shutdown failed", "error", err.Error())
		return err
	}
	logger.L.Info("gateway stopped")
	return nil
}
