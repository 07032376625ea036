package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/yanqian/thermostraw/internal/domain/dashboard"
	"github.com/yanqian/thermostraw/internal/infra/config"
	"github.com/yanqian/thermostraw/internal/infra/queue"
)

// App encapsulates the HTTP server and snapshot worker lifecycle.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	server *http.Server
	svc    *dashboard.Service
	jobs   queue.HandlerQueue
}

// NewApp is used by Wire to build the runnable app.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, svc *dashboard.Service, jobs queue.HandlerQueue) *App {
	return &App{cfg: cfg, logger: logger.With("component", "bootstrap"), server: server, svc: svc, jobs: jobs}
}

// Run starts the snapshot worker and the HTTP server and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	a.jobs.SetHandler(a.svc.HandleJob)

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("http server starting", "address", a.cfg.HTTP.Address)
		if err := a.server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.logger.Info("shutdown signal received")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := a.jobs.Close(shutdownCtx); err != nil {
			a.logger.Warn("snapshot jobs did not drain", "error", err)
		}
		return nil
	case err := <-errCh:
		_ = a.jobs.Close(context.Background())
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
