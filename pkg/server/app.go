package server

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"CoinScout/pkg/config"
	pkgkafka "CoinScout/pkg/kafka"
	applogger "CoinScout/pkg/logger"
)

// Orchestrator is the refresh lifecycle the app drives.
type Orchestrator interface {
	Init(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Hub is a background broadcaster bound to the app context.
type Hub interface {
	Run(ctx context.Context)
	Done() <-chan struct{}
}

// HTTPServer is the non-blocking listener started last and stopped first.
type HTTPServer interface {
	Start() error
	Stop(ctx context.Context) error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg          *config.Config
	log          *applogger.Logger
	orchestrator Orchestrator
	hub          Hub
	httpServer   HTTPServer

	consumer     *pkgkafka.Consumer
	kh           pkgkafka.MessageHandler
	logPublisher applogger.Publisher
	closers      []namedCloser
}

type namedCloser struct {
	name string
	c    io.Closer
}

// Option configures optional App components.
type Option func(*App)

// WithConsumer attaches the refresh command consumer.
func WithConsumer(c *pkgkafka.Consumer, h pkgkafka.MessageHandler) Option {
	return func(a *App) {
		if c != nil && h != nil {
			a.consumer, a.kh = c, h
		}
	}
}

// WithLogCollector forwards aggregated warnings and errors to pub.
func WithLogCollector(pub applogger.Publisher) Option {
	return func(a *App) { a.logPublisher = pub }
}

// WithCloser registers an infrastructure client closed on shutdown, in reverse registration order.
func WithCloser(name string, c io.Closer) Option {
	return func(a *App) {
		if c != nil {
			a.closers = append(a.closers, namedCloser{name: name, c: c})
		}
	}
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, orch Orchestrator, hub Hub, srv HTTPServer, opts ...Option) *App {
	a := &App{cfg: cfg, log: l, orchestrator: orch, hub: hub, httpServer: srv}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts every component and blocks until ctx is done, then shuts down in reverse order.
func (a *App) RunContext(ctx context.Context) error {
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.consumer != nil {
		a.consumer.RegisterHandler(a.kh)
		if err := a.consumer.Start(); err != nil {
			return err
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if a.logPublisher != nil && a.cfg.Logging.CollectTopic != "" {
		a.log.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   a.cfg.Logging.CollectInterval,
			CountThreshold: a.cfg.Logging.CollectBatch,
			Topic:          a.cfg.Logging.CollectTopic,
			Publisher:      a.logPublisher,
		})
		a.log.Info("log collector started", applogger.String("topic", a.cfg.Logging.CollectTopic))
	}

	if a.hub != nil {
		go a.hub.Run(appCtx)
	}

	// A failed first cycle leaves the orchestrator in Error; the loop keeps retrying.
	if err := a.orchestrator.Init(appCtx); err != nil {
		a.log.Warn("initial portfolio unavailable", applogger.Error(err))
	}
	if err := a.orchestrator.Start(appCtx); err != nil {
		cancel()
		a.shutdown(false)
		return err
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		cancel()
		a.shutdown(false)
		return err
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	cancel()
	a.shutdown(true)
	return nil
}

func (a *App) shutdownTimeout() time.Duration {
	if a.cfg != nil && a.cfg.Server.ShutdownTimeout > 0 {
		return a.cfg.Server.ShutdownTimeout
	}
	return 10 * time.Second
}

func (a *App) shutdown(httpStarted bool) {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer cancel()
	a.log.Info("shutting down...")

	if httpStarted {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
	}

	if err := a.orchestrator.Stop(ctx); err != nil {
		a.log.Warn("orchestrator stop error", applogger.Error(err))
	}

	if a.hub != nil {
		select {
		case <-a.hub.Done():
		case <-ctx.Done():
			a.log.Warn("websocket hub did not stop in time")
		}
	}

	a.log.RemoveCollector()

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		nc := a.closers[i]
		if err := nc.c.Close(); err != nil {
			a.log.Warn("close error", applogger.String("component", nc.name), applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
}
