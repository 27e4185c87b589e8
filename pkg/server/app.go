package server

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/seethefuture888888-creator/kangbo/pkg/config"
	xhttp "github.com/seethefuture888888-creator/kangbo/pkg/http"
	applogger "github.com/seethefuture888888-creator/kangbo/pkg/logger"
	"github.com/seethefuture888888-creator/kangbo/pkg/scheduler"
)

// Background is a component with its own event loop, such as the stream hub.
type Background interface {
	Run(ctx context.Context)
	Stop()
}

// App encapsulates the serve lifecycle: background loops, scheduler, HTTP server.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	sched      *scheduler.Scheduler
	httpServer *xhttp.Server
	background []Background
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	sched *scheduler.Scheduler,
	httpServer *xhttp.Server,
	background ...Background,
) *App {
	return &App{
		cfg:        cfg,
		log:        l,
		sched:      sched,
		httpServer: httpServer,
		background: background,
	}
}

// Run starts the application and blocks until ctx is done or SIGINT/SIGTERM arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, b := range a.background {
		go b.Run(ctx)
	}

	if err := a.sched.Start(ctx); err != nil {
		a.log.Error("scheduler start error", applogger.Error(err))
		a.shutdown()
		return err
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		a.shutdown()
		return err
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	a.shutdown()
	return nil
}

// shutdown stops intake first, then the schedule. Infrastructure clients are closed by the caller.
func (a *App) shutdown() {
	a.log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	stopped := make(chan struct{})
	go func() {
		a.sched.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(a.cfg.Dashboard.RunTimeout):
		a.log.Warn("scheduler did not stop in time")
	}

	for _, b := range a.background {
		b.Stop()
	}

	a.log.Info("shutdown complete")
}
