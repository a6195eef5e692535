package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"estatemap/internal/api"
	"estatemap/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the lookup and quota HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.cfg
			if port != "" {
				cfg.API.Port = port
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(signalCtx, cfg, ctx.logger, true)
			if err != nil {
				return err
			}
			defer a.Close()

			gin.SetMode(gin.ReleaseMode)
			handler := api.NewHandler(a.places, a.resolver, a.buildings, a.selector, a.region, ctx.logger)
			server := &http.Server{
				Addr:              ":" + cfg.API.Port,
				Handler:           api.NewRouter(handler, cfg.API.AllowedOrigins),
				ReadHeaderTimeout: 10 * time.Second,
			}

			if interval := cfg.Mapping.ScheduleInterval; interval > 0 {
				sched := scheduler.NewScheduler("map", a.scheduledMapping, interval, ctx.logger)
				sched.Start(signalCtx)
				defer sched.Stop()
			}

			errCh := make(chan error, 1)
			go func() {
				ctx.logger.Infof("Starting server on port %s", cfg.API.Port)
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-signalCtx.Done():
			}

			ctx.logger.Info("Shutting down server")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer shutdownCancel()
			return server.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Override API_PORT")
	return cmd
}

// scheduledMapping is one scheduled mapping run. A run already holding the
// lock, from the map command or another server, is left alone.
func (a *app) scheduledMapping(ctx context.Context) error {
	lock, err := acquireLock(a.cfg.Mapping.LockPath)
	if errors.Is(err, errLocked) {
		a.logger.Info("Mapping run in progress elsewhere, skipping")
		return nil
	}
	if err != nil {
		return err
	}
	defer lock.Unlock()

	summary, err := a.runMapping(ctx)
	a.logger.Info(formatSummary(summary))
	return err
}
