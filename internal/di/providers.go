package di

import (
	"context"
	"fmt"
	"time"

	"github.com/seethefuture888888-creator/kangbo/internal/domain/models"
	domrepo "github.com/seethefuture888888-creator/kangbo/internal/domain/repository"
	"github.com/seethefuture888888-creator/kangbo/internal/handler/api"
	internalrepo "github.com/seethefuture888888-creator/kangbo/internal/repository"
	"github.com/seethefuture888888-creator/kangbo/internal/service/fred"
	"github.com/seethefuture888888-creator/kangbo/internal/service/providers"
	"github.com/seethefuture888888-creator/kangbo/internal/service/ratelimit"
	"github.com/seethefuture888888-creator/kangbo/internal/usecase"
	"github.com/seethefuture888888-creator/kangbo/pkg/cache"
	pkgch "github.com/seethefuture888888-creator/kangbo/pkg/clickhouse"
	"github.com/seethefuture888888-creator/kangbo/pkg/config"
	xhttp "github.com/seethefuture888888-creator/kangbo/pkg/http"
	pkgkafka "github.com/seethefuture888888-creator/kangbo/pkg/kafka"
	applogger "github.com/seethefuture888888-creator/kangbo/pkg/logger"
	"github.com/seethefuture888888-creator/kangbo/pkg/metrics"
	"github.com/seethefuture888888-creator/kangbo/pkg/scheduler"
	"github.com/seethefuture888888-creator/kangbo/pkg/server"
)

// ExternalSinks are the snapshot sinks backed by optional infrastructure.
type ExternalSinks []domrepo.SnapshotSink

// ProvideLogger creates the process logger.
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

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideLimiter creates the limiter shared by price sources and FRED.
func ProvideLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvideCache creates the series cache and run lock. Redis is layered under an
// in-process cache when enabled; an unreachable Redis degrades to memory only.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.Service, func(), error) {
	memory := func() (cache.Service, func(), error) {
		mc := cache.NewMemoryCache(cache.WithMemoryMaxSize(512), cache.WithMemoryCleanup(5*time.Minute))
		return mc, func() { _ = mc.Close() }, nil
	}
	if !cfg.Redis.Enabled {
		return memory()
	}

	host, port := cfg.RedisHostPort()
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(host),
		cache.WithRedisPort(port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
		cache.WithRedisDialTimeout(3*time.Second),
	)
	if err != nil {
		l.Warn("redis unavailable, using memory cache", applogger.String("addr", cfg.Redis.Addr), applogger.Error(err))
		return memory()
	}
	lc := cache.NewLayeredCache(rc, cache.WithLayeredMemorySize(512), cache.WithLayeredMemoryTTL(time.Minute))
	l.Info("redis cache connected", applogger.String("addr", cfg.Redis.Addr))
	return lc, func() { _ = lc.Close() }, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithLogger(l.With(applogger.String("component", "kafka"))),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideClickHouseClient creates a ClickHouse client with the history schema, or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(4, 2),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	client.SetLogger(l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.HistorySchema(cfg.ClickHouse.Table)); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideExternalSinks wires the Kafka and ClickHouse sinks that are enabled. Kafka also
// receives aggregated error logs.
func ProvideExternalSinks(cfg *config.Config, l *applogger.Logger, producer *pkgkafka.Producer, ch *pkgch.Client) (ExternalSinks, func()) {
	var sinks ExternalSinks
	cleanup := func() {}

	if producer != nil {
		pub := internalrepo.NewKafkaSnapshotPublisher(producer, cfg.Kafka.DailyTopic, cfg.Kafka.SignalsTopic)
		sinks = append(sinks, pub)
		if cfg.Log.CollectErrors {
			l.AddCollector(&applogger.CollectionConfig{
				Service:   "kangbo",
				Topic:     cfg.Kafka.LogsTopic,
				Publisher: pub,
			})
			cleanup = l.RemoveCollector
		}
	}
	if ch != nil {
		hs := internalrepo.NewClickHouseHistoryStore(ch, cfg.ClickHouse.Table)
		hs.SetLogger(l)
		sinks = append(sinks, hs)
	}
	return sinks, cleanup
}

// ProvideBatchSinks is the sink list for one-shot runs.
func ProvideBatchSinks(ext ExternalSinks) []domrepo.SnapshotSink {
	return ext
}

// ProvideServeSinks adds the websocket hub in front of the external sinks.
func ProvideServeSinks(hub *api.StreamHub, ext ExternalSinks) []domrepo.SnapshotSink {
	return append([]domrepo.SnapshotSink{hub}, ext...)
}

// ProvidePriceSource builds the provider chain.
func ProvidePriceSource(
	cfg *config.Config,
	limiter *ratelimit.Limiter,
	c cache.Service,
	m domrepo.Metrics,
	l *applogger.Logger,
) *providers.Chain {
	steps := providers.DefaultSteps(providers.Sources{
		Yahoo:        providers.NewYahoo(),
		Stooq:        providers.NewStooq(),
		AlphaVantage: providers.NewAlphaVantage(providers.WithAPIKey(cfg.Providers.AlphaVantageAPIKey)),
		MarketWatch:  providers.NewMarketWatch(),
		TwelveData:   providers.NewTwelveData(providers.WithAPIKey(cfg.Providers.TwelveDataAPIKey)),
		Binance:      providers.NewBinance(providers.WithBaseURL(cfg.Providers.BinanceBaseURL)),
	})
	return providers.NewChain(steps,
		providers.WithLimiter(limiter),
		providers.WithRateLimit(cfg.Providers.RateLimitRPS, cfg.Providers.RateLimitBurst),
		providers.WithSeriesCache(c, cfg.Providers.CacheTTL),
		providers.WithMetrics(m),
		providers.WithLogger(l.With(applogger.String("component", "providers"))),
	)
}

// ProvideFREDClient creates the FRED client. Without a key only the CSV mirror is used.
func ProvideFREDClient(cfg *config.Config, limiter *ratelimit.Limiter) *fred.Client {
	return fred.NewClient(cfg.Providers.FREDAPIKey, fred.WithLimiter(limiter))
}

// ProvideMacroSource creates the macro aggregator.
func ProvideMacroSource(cfg *config.Config, client *fred.Client, m domrepo.Metrics, l *applogger.Logger) *fred.Aggregator {
	return fred.NewAggregator(client,
		fred.WithLookbackYears(cfg.Providers.MacroLookbackYears),
		fred.WithMetrics(m),
		fred.WithLogger(l.With(applogger.String("component", "fred"))),
	)
}

// ProvideBuilder creates the payload builder over the tracked asset table.
func ProvideBuilder(cfg *config.Config) *usecase.Builder {
	return usecase.NewBuilder(models.DefaultAssets(), cfg.Dashboard.Workers)
}

// ProvideSnapshotStore creates the file snapshot store.
func ProvideSnapshotStore(cfg *config.Config, l *applogger.Logger) *internalrepo.FileSnapshotStore {
	s := internalrepo.NewFileSnapshotStore(cfg.Dashboard.JSONPath)
	s.SetLogger(l)
	return s
}

// ProvidePipeline creates the non-re-entrant dashboard pipeline.
func ProvidePipeline(
	cfg *config.Config,
	prices *providers.Chain,
	macro *fred.Aggregator,
	builder *usecase.Builder,
	store *internalrepo.FileSnapshotStore,
	sinks []domrepo.SnapshotSink,
	lock cache.Service,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.Pipeline {
	return usecase.NewPipeline(prices, macro, builder, store,
		usecase.WithSinks(sinks...),
		usecase.WithRunLock(lock),
		usecase.WithPipelineMetrics(m),
		usecase.WithPipelineLogger(l.With(applogger.String("component", "pipeline"))),
		usecase.WithWorkers(cfg.Dashboard.Workers),
		usecase.WithLookback(cfg.Dashboard.LookbackDays),
		usecase.WithRunTimeout(cfg.Dashboard.RunTimeout),
	)
}

// ProvideStreamHub creates the websocket hub and seeds it with the last snapshot on disk.
func ProvideStreamHub(cfg *config.Config, l *applogger.Logger, store *internalrepo.FileSnapshotStore) *api.StreamHub {
	hub := api.NewStreamHub(l.With(applogger.String("component", "stream")), cfg.Server.AllowOrigins)
	if raw, err := store.Read(context.Background()); err == nil {
		hub.Seed(raw)
	}
	return hub
}

// ProvideScheduler runs the pipeline once at start and then every interval.
func ProvideScheduler(cfg *config.Config, p *usecase.Pipeline, l *applogger.Logger) *scheduler.Scheduler {
	job := func(ctx context.Context) error {
		_, err := p.Run(ctx)
		return err
	}
	return scheduler.New("dashboard", job, cfg.Dashboard.Interval, l)
}

// ProvideDashboardHandler creates the read API handler.
func ProvideDashboardHandler(
	l *applogger.Logger,
	store *internalrepo.FileSnapshotStore,
	p *usecase.Pipeline,
	hub *api.StreamHub,
) *api.DashboardEchoHandler {
	return api.NewDashboardEchoHandler(l, store, p, hub)
}

// ProvideHTTPServer creates the echo server.
func ProvideHTTPServer(cfg *config.Config, h *api.DashboardEchoHandler, l *applogger.Logger) *xhttp.Server {
	return xhttp.NewServer(h,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.AllowOrigins),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithLogger(l.With(applogger.String("component", "http"))),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	sched *scheduler.Scheduler,
	srv *xhttp.Server,
	hub *api.StreamHub,
) *server.App {
	return server.New(cfg, l, sched, srv, hub)
}
