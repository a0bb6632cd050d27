package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"RateCast/internal/domain/repository"
	domsvc "RateCast/internal/domain/service"
	"RateCast/internal/handler/api"
	internalrepo "RateCast/internal/repository"
	svccache "RateCast/internal/service/cache"
	"RateCast/internal/service/ratelimit"
	"RateCast/internal/services/narrative"
	"RateCast/internal/usecase"
	pkgcache "RateCast/pkg/cache"
	pkgch "RateCast/pkg/clickhouse"
	"RateCast/pkg/config"
	xhttp "RateCast/pkg/http"
	pkgkafka "RateCast/pkg/kafka"
	applogger "RateCast/pkg/logger"
	"RateCast/pkg/metrics"
	"RateCast/pkg/server"
)

// Store is the combined observation and run store selected by store.backend.
type Store interface {
	repository.ObservationStore
	repository.RunStore
}

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideStore opens the configured backend. ClickHouse gets its schema applied on startup.
func ProvideStore(cfg *config.Config, l *applogger.Logger) (Store, func(), error) {
	if cfg.Store.Backend != "clickhouse" {
		s := internalrepo.NewMemoryStore()
		s.SetLogger(l)
		l.Warn("using in-memory store; data is lost on restart")
		return s, func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ClickHouse.ConnectTimeout+cfg.ClickHouse.DialTimeout)
	defer cancel()
	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithConnectTimeout(cfg.ClickHouse.ConnectTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	if cfg.ClickHouse.InitSchema {
		if err := client.InitSchema(ctx, internalrepo.ClickHouseSchema()); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
		}
	}
	l.Info("clickhouse connected", applogger.String("database", cfg.ClickHouse.Database))

	s := internalrepo.NewCHStore(client)
	s.SetLogger(l)
	cleanup := func() {
		if err := client.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	return s, cleanup, nil
}

func ProvideObservationStore(s Store) repository.ObservationStore { return s }

func ProvideRunStore(s Store) repository.RunStore { return s }

// ProvideCacheService uses Redis when enabled, otherwise an in-process cache.
func ProvideCacheService(cfg *config.Config, l *applogger.Logger) (pkgcache.Service, func(), error) {
	if !cfg.Redis.Enabled {
		return pkgcache.NewMemoryCache(), func() {}, nil
	}
	rc, err := pkgcache.NewRedisCache(context.Background(),
		pkgcache.WithRedisAddr(cfg.Redis.Addr),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	l.Info("redis cache connected", applogger.String("addr", cfg.Redis.Addr))
	cleanup := func() {
		if err := rc.Close(); err != nil {
			l.Warn("redis close error", applogger.Error(err))
		}
	}
	return rc, cleanup, nil
}

func ProvideRunCache(svc pkgcache.Service, cfg *config.Config) repository.RunCache {
	return svccache.NewRunCache(svc, cfg.Redis.LatestRunTTL)
}

// ProvideKafkaProducer returns nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventPublisher publishes to the events topic, or drops events when Kafka is disabled.
func ProvideEventPublisher(producer *pkgkafka.Producer, cfg *config.Config, l *applogger.Logger) (repository.EventPublisher, func()) {
	if producer == nil {
		return internalrepo.NoopPublisher{}, func() {}
	}
	pub := internalrepo.NewKafkaPublisher(producer, cfg.Kafka.EventsTopic)
	return pub, func() {
		if err := pub.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
}

// ProvideKafkaConsumer returns nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.SetLogger(l)
	return consumer, nil
}

// ProvideNarrator returns nil when no narrator URL is configured.
func ProvideNarrator(cfg *config.Config) domsvc.Narrator {
	if cfg.Narrator.URL == "" {
		return nil
	}
	client := xhttp.NewClient(
		xhttp.WithBaseURL(cfg.Narrator.URL),
		xhttp.WithTimeout(cfg.Narrator.Timeout),
		xhttp.WithRetry(cfg.Narrator.Retries, 500*time.Millisecond),
		xhttp.WithRateLimit(cfg.Narrator.RPS, 1),
		xhttp.WithBearerToken(cfg.Narrator.Token),
	)
	return narrative.NewHTTPNarrator(client, cfg.Narrator.Path)
}

func ProvideIngestUseCase(
	store repository.ObservationStore,
	pub repository.EventPublisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.IngestUseCase {
	uc := usecase.NewIngestUseCase(store, pub, m)
	uc.SetLogger(l)
	return uc
}

func ProvideRunOrchestrator(
	obs repository.ObservationStore,
	runs repository.RunStore,
	pub repository.EventPublisher,
	m repository.Metrics,
	cache repository.RunCache,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.RunOrchestrator {
	o := usecase.NewRunOrchestrator(obs, runs, pub, m, cfg.Engine, usecase.WithRunCache(cache))
	o.SetLogger(l)
	return o
}

func ProvideExplainUseCase(
	runs repository.RunStore,
	narrator domsvc.Narrator,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.ExplainUseCase {
	uc := usecase.NewExplainUseCase(runs, narrator, m)
	uc.SetLogger(l)
	return uc
}

func ProvideRunTriggerHandler(cfg *config.Config, orch *usecase.RunOrchestrator, l *applogger.Logger) *usecase.RunTriggerHandler {
	h := usecase.NewRunTriggerHandler(cfg.Kafka.TriggerTopic, orch)
	h.SetLogger(l)
	return h
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Ingest.RPS, cfg.Ingest.Burst)
}

// ProvideHandlers lists every route group served by the HTTP server.
func ProvideHandlers(
	l *applogger.Logger,
	ingest *usecase.IngestUseCase,
	limiter *ratelimit.Limiter,
	orch *usecase.RunOrchestrator,
	explain *usecase.ExplainUseCase,
	store repository.ObservationStore,
) []xhttp.Handler {
	return []xhttp.Handler{
		api.NewObservationsEchoHandler(l, ingest, limiter),
		api.NewRunsEchoHandler(l, orch, explain),
		api.NewHealthEchoHandler(store),
	}
}

func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, handlers []xhttp.Handler) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(l, handlers,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithMetricsPath(metricsPath),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	trigger *usecase.RunTriggerHandler,
	orch *usecase.RunOrchestrator,
) *server.App {
	return server.New(cfg, l, srv, consumer, trigger, orch)
}
