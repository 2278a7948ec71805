package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"GrowthLens/internal/service/ratelimit"
	"GrowthLens/internal/usecase"
	"GrowthLens/pkg/config"
	xhttp "GrowthLens/pkg/http"
	applogger "GrowthLens/pkg/logger"
)

// limiterSweepInterval is how often idle rate-limit buckets are dropped.
const limiterSweepInterval = time.Minute

// App encapsulates the service lifecycle: HTTP API plus report scheduler.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	httpServer *xhttp.Server
	scheduler  *usecase.Scheduler
	limiter    *ratelimit.Limiter
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	scheduler *usecase.Scheduler,
	limiter *ratelimit.Limiter,
) *App {
	if l == nil {
		l = applogger.NewNop()
	}
	return &App{cfg: cfg, l: l, httpServer: httpServer, scheduler: scheduler, limiter: limiter}
}

// Run starts the application and blocks until SIGINT/SIGTERM or ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	a.l.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Start launches the scheduler, the HTTP server and the limiter sweeper.
func (a *App) Start(ctx context.Context) error {
	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			return err
		}
	}
	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	if a.limiter != nil {
		go a.sweep(ctx)
	}
	a.l.Info("growthlens started",
		applogger.String("env", a.cfg.Environment),
		applogger.Int("port", a.cfg.Server.Port),
		applogger.Int("reports", len(a.cfg.Reports)),
	)
	return nil
}

func (a *App) sweep(ctx context.Context) {
	t := time.NewTicker(limiterSweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := a.limiter.Sweep(10 * limiterSweepInterval); n > 0 {
				a.l.Debug("rate limiter swept", applogger.Int("keys", n))
			}
		}
	}
}

// Shutdown stops HTTP intake, then waits for running reports. Infrastructure
// clients are closed by the injector's cleanup.
func (a *App) Shutdown(ctx context.Context) error {
	a.l.Info("shutting down...")
	var errs []error

	if err := a.httpServer.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}
	if a.scheduler != nil {
		if err := a.scheduler.Stop(ctx); err != nil {
			a.l.Warn("scheduler stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	a.l.Info("shutdown complete")
	return errors.Join(errs...)
}
