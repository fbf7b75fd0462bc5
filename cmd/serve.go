package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobboard-scraper/internal/api"
	"github.com/JakeFAU/jobboard-scraper/internal/config"
	"github.com/JakeFAU/jobboard-scraper/internal/scheduler"
	"github.com/JakeFAU/jobboard-scraper/internal/sources"
)

const shutdownTimeout = 10 * time.Second

// listen is swapped in tests to bind an ephemeral port.
var listen = func(port int) (net.Listener, error) {
	return net.Listen("tcp", fmt.Sprintf(":%d", port))
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the run API and optionally scrape on an interval",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd.Context())
			if err != nil {
				return err
			}
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, appInstance)
		},
	}
}

func serve(ctx context.Context, cfg config.Config, appInstance App) error {
	logger := appInstance.Logger()
	sched := scheduler.New(appInstance.Run, appInstance.NewRunID,
		scheduler.Config{History: cfg.Schedule.History}, logger.Named("scheduler"))

	apiServer := api.NewServer(ctx, sched, appInstance.Checks(), api.Config{
		APIKey:         cfg.Server.APIKey,
		RequestTimeout: cfg.Server.RequestTimeout,
		Configured:     appInstance.SourceNames(),
		Registered:     sources.Names(),
	}, logger.Named("api"))

	ln, err := listen(cfg.Server.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	srv := &http.Server{
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if cfg.Schedule.Interval > 0 {
			logger.Info("scheduled runs enabled", zap.Duration("interval", cfg.Schedule.Interval))
			sched.Loop(ctx, cfg.Schedule.Interval)
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server started", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}
	logger.Info("shutdown initiated")
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	// The loop must stop claiming runs before the wait for the active one.
	<-loopDone
	sched.Wait()
	logger.Info("shutdown complete")
	return runErr
}
