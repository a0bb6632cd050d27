package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"RateCast/internal/usecase"
	"RateCast/pkg/config"
	xhttp "RateCast/pkg/http"
	pkgkafka "RateCast/pkg/kafka"
	applogger "RateCast/pkg/logger"
)

// App encapsulates the application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	httpServer *xhttp.Server
	consumer   *pkgkafka.Consumer
	trigger    pkgkafka.MessageHandler
	runs       *usecase.RunOrchestrator
}

// New creates an App. consumer and trigger may be nil when Kafka is disabled.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	trigger pkgkafka.MessageHandler,
	runs *usecase.RunOrchestrator,
) *App {
	return &App{
		cfg:        cfg,
		l:          l,
		httpServer: httpServer,
		consumer:   consumer,
		trigger:    trigger,
		runs:       runs,
	}
}

// Runs exposes the orchestrator for one-shot CLI commands.
func (a *App) Runs() *usecase.RunOrchestrator { return a.runs }

// Logger returns the application logger.
func (a *App) Logger() *applogger.Logger { return a.l }

// Serve starts HTTP and the trigger consumer and blocks until ctx is done or a signal arrives.
func (a *App) Serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.consumer != nil && a.trigger != nil {
		a.consumer.RegisterHandler(a.trigger)
		if err := a.consumer.Start(ctx); err != nil {
			return err
		}
		a.l.Info("kafka consumer started", applogger.String("topic", a.trigger.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	<-ctx.Done()
	a.l.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown stops HTTP, then the consumer. Stores and clients are closed by the DI cleanup.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	a.l.Info("shutdown complete")
	return nil
}
