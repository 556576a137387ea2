package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	domrepo "CoinScout/internal/domain/repository"
	domsvc "CoinScout/internal/domain/service"
	"CoinScout/internal/handler/api"
	"CoinScout/internal/handler/ws"
	internalrepo "CoinScout/internal/repository"
	"CoinScout/internal/service/notify"
	"CoinScout/internal/service/okx"
	"CoinScout/internal/service/ratelimit"
	"CoinScout/internal/services/analytics"
	"CoinScout/internal/usecase"
	"CoinScout/pkg/cache"
	pkgch "CoinScout/pkg/clickhouse"
	"CoinScout/pkg/config"
	xhttp "CoinScout/pkg/http"
	pkgkafka "CoinScout/pkg/kafka"
	applogger "CoinScout/pkg/logger"
	"CoinScout/pkg/metrics"
	"CoinScout/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics registers the pipeline recorder on the default registry served at /metrics.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideCache selects the snapshot cache backend.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	switch cfg.Cache.Backend {
	case "memory":
		return cache.NewMemoryCache(), nil
	case "file":
		fc, err := cache.NewFileCache(cfg.Cache.FilePath)
		if err != nil {
			return nil, fmt.Errorf("file cache: %w", err)
		}
		return fc, nil
	case "redis", "layered":
		rc, err := cache.NewRedisCache(
			cache.WithRedisAddr(cfg.Redis.Addr),
			cache.WithRedisPassword(cfg.Redis.Password),
			cache.WithRedisDB(cfg.Redis.DB),
			cache.WithRedisPrefix(cfg.Redis.Prefix),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		if cfg.Cache.Backend == "layered" {
			return cache.NewLayeredCache(rc, cache.WithLayeredMemoryTTL(cfg.Cache.MaxAge)), nil
		}
		return rc, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// ProvideSnapshotStore creates the single-slot portfolio store.
func ProvideSnapshotStore(c cache.Service, cfg *config.Config, l *applogger.Logger) domrepo.SnapshotStore {
	return internalrepo.NewCacheSnapshotStore(c, cfg.Cache.Key, cfg.Cache.MaxAge,
		internalrepo.WithSnapshotLogger(l.With(applogger.String("component", "snapshot"))))
}

// ProvideOKXClient creates the public market-data client.
func ProvideOKXClient(cfg *config.Config, l *applogger.Logger) *okx.Client {
	return okx.NewClient(cfg.OKX,
		okx.WithLimiter(ratelimit.New()),
		okx.WithLogger(l.With(applogger.String("component", "okx"))),
	)
}

// ProvideMarketGateway wraps the client with synthetic fallback.
func ProvideMarketGateway(client *okx.Client, cfg *config.Config, m domrepo.Metrics, l *applogger.Logger) domrepo.MarketGateway {
	return okx.NewGateway(client, cfg.Strategy.QuoteCurrency, cfg.OKX.FallbackSynthetic, m,
		l.With(applogger.String("component", "gateway")))
}

// ProvideClickHouseClient opens ClickHouse when enabled. It returns nil otherwise.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.CandleSchema(cfg.ClickHouse.CandleTable)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideCandleSource picks where indicator history comes from.
func ProvideCandleSource(cfg *config.Config, client *okx.Client, ch *pkgch.Client, l *applogger.Logger) (domrepo.CandleSource, error) {
	if cfg.Indicators.Source != "clickhouse" {
		return client, nil
	}
	if ch == nil {
		return nil, fmt.Errorf("indicators.source clickhouse requires a clickhouse client")
	}
	store, err := internalrepo.NewCHCandleStore(ch, cfg.ClickHouse.CandleTable)
	if err != nil {
		return nil, err
	}
	store.SetLogger(l.With(applogger.String("component", "candles")))
	return store, nil
}

// ProvideSyntheticEngine creates the stand-in engine for synthetic batches and the synthetic fallback policy.
func ProvideSyntheticEngine() *analytics.SyntheticEngine {
	return analytics.NewSyntheticEngine(nil)
}

// ProvideIndicatorEngine creates the primary engine.
func ProvideIndicatorEngine(cfg *config.Config, src domrepo.CandleSource, synthetic *analytics.SyntheticEngine) domsvc.IndicatorEngine {
	if cfg.Indicators.Source == "synthetic" {
		return synthetic
	}
	return analytics.NewCandleEngine(src, cfg.Indicators.Source, cfg.Indicators)
}

func ProvideScorer(engine domsvc.IndicatorEngine, synthetic *analytics.SyntheticEngine, cfg *config.Config, l *applogger.Logger) *usecase.Scorer {
	return usecase.NewScorer(engine, synthetic, cfg, l.With(applogger.String("component", "scorer")))
}

func ProvideTickerFilter(cfg *config.Config) *usecase.TickerFilter {
	return usecase.NewTickerFilter(cfg.Strategy)
}

func ProvidePipeline(gw domrepo.MarketGateway, filter *usecase.TickerFilter, scorer *usecase.Scorer,
	synthetic *analytics.SyntheticEngine, cfg *config.Config, m domrepo.Metrics, l *applogger.Logger) *usecase.Pipeline {
	return usecase.NewPipeline(gw, filter, scorer, synthetic, cfg.Strategy.TopN, cfg.Strategy.Concurrency, m,
		l.With(applogger.String("component", "pipeline")))
}

// ProvideKafkaProducer creates a producer when Kafka is enabled. It returns nil otherwise.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvidePortfolioPublisher returns nil when there is no producer.
func ProvidePortfolioPublisher(producer *pkgkafka.Producer, cfg *config.Config, l *applogger.Logger) *internalrepo.KafkaPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.PortfolioTopic, cfg.Kafka.Producer.WriteTimeout,
		l.With(applogger.String("component", "publisher")))
}

// ProvideNotifier uses Telegram when configured and the log otherwise.
func ProvideNotifier(cfg *config.Config, l *applogger.Logger) (domsvc.Notifier, error) {
	if !cfg.Telegram.Enabled {
		return notify.NewLogNotifier(l.With(applogger.String("component", "alerts"))), nil
	}
	return notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, l)
}

func ProvideAlertObserver(n domsvc.Notifier, cfg *config.Config, l *applogger.Logger) *notify.AlertObserver {
	return notify.NewAlertObserver(n, cfg.Strategy.StrongSignalCount, l)
}

// ProvideOrchestrator creates the orchestrator with the publisher and alert observers.
func ProvideOrchestrator(pipeline *usecase.Pipeline, store domrepo.SnapshotStore, m domrepo.Metrics, cfg *config.Config,
	l *applogger.Logger, pub *internalrepo.KafkaPublisher, alerts *notify.AlertObserver) *usecase.Orchestrator {
	o := usecase.NewOrchestrator(pipeline, store, m, cfg.Strategy.RefreshInterval, cfg.Strategy.QualifiedScore,
		l.With(applogger.String("component", "orchestrator")))
	if pub != nil {
		o.AddObserver(pub)
	}
	o.AddObserver(alerts)
	return o
}

// ProvideHub creates the WebSocket hub and subscribes it to the orchestrator.
func ProvideHub(o *usecase.Orchestrator, l *applogger.Logger) *ws.Hub {
	h := ws.NewHub(o.Portfolio, l.With(applogger.String("component", "ws")))
	o.AddObserver(h)
	return h
}

func ProvidePortfolioHandler(l *applogger.Logger, o *usecase.Orchestrator, cfg *config.Config) *api.PortfolioEchoHandler {
	return api.NewPortfolioEchoHandler(l, o, cfg, ratelimit.New())
}

// ProvideHTTPServer registers the REST and WebSocket routes.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, ph *api.PortfolioEchoHandler, hub *ws.Hub) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer([]xhttp.Handler{ph, hub},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(l.With(applogger.String("component", "http"))),
	)
}

// ProvideKafkaConsumer creates the refresh command consumer when Kafka is enabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || cfg.Kafka.RefreshTopic == "" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerLogger(l.With(applogger.String("component", "kafka"))),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.TraceHook())
	return consumer, nil
}

func ProvideRefreshHandler(cfg *config.Config, o *usecase.Orchestrator, m domrepo.Metrics, l *applogger.Logger) *usecase.KafkaRefreshHandler {
	return usecase.NewKafkaRefreshHandler(cfg.Kafka.RefreshTopic, o, m, l.With(applogger.String("component", "refresh")))
}

// ProvideApp assembles the lifecycle. Closers run in reverse of the order added here.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	o *usecase.Orchestrator,
	hub *ws.Hub,
	srv *xhttp.Server,
	c cache.Service,
	ch *pkgch.Client,
	producer *pkgkafka.Producer,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaRefreshHandler,
) *server.App {
	opts := []server.Option{server.WithCloser("cache", c)}
	if ch != nil {
		opts = append(opts, server.WithCloser("clickhouse", ch))
	}
	if producer != nil {
		opts = append(opts, server.WithCloser("kafka producer", producer), server.WithLogCollector(producer))
	}
	if consumer != nil {
		opts = append(opts, server.WithConsumer(consumer, kh))
	}
	return server.New(cfg, l, o, hub, srv, opts...)
}
