package cmd

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"hot-server/handlers"
	"hot-server/services"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCMD = &cobra.Command{
	Use:   "serve",
	Short: "run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := setup(ctx)
	if err != nil {
		return err
	}
	defer rt.close(context.Background())

	svc := services.New(rt.cols, rt.cache, rt.logger)
	srv := &http.Server{
		Addr:              ":" + rt.cfg.Port,
		Handler:           handlers.NewRouter(svc, rt.logger, rt.cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		rt.logger.Info("server starting", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}

	rt.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}

func init() {
	rootCMD.AddCommand(serveCMD)
}
