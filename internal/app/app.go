package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/CloudGames/internal/auth"
	"github.com/utafrali/CloudGames/internal/config"
	"github.com/utafrali/CloudGames/internal/event"
	handler "github.com/utafrali/CloudGames/internal/handler/http"
	"github.com/utafrali/CloudGames/internal/migrations"
	"github.com/utafrali/CloudGames/internal/outbox"
	"github.com/utafrali/CloudGames/internal/payment"
	"github.com/utafrali/CloudGames/internal/repository"
	"github.com/utafrali/CloudGames/internal/repository/postgres"
	rediscache "github.com/utafrali/CloudGames/internal/repository/redis"
	"github.com/utafrali/CloudGames/internal/search"
	"github.com/utafrali/CloudGames/internal/search/elasticsearch"
	"github.com/utafrali/CloudGames/internal/search/memory"
	"github.com/utafrali/CloudGames/internal/service"
	"github.com/utafrali/CloudGames/pkg/database"
	"github.com/utafrali/CloudGames/pkg/health"
	"github.com/utafrali/CloudGames/pkg/httpclient"
	pkgkafka "github.com/utafrali/CloudGames/pkg/kafka"
	"github.com/utafrali/CloudGames/pkg/tracing"
)

const serviceVersion = "0.1.0"

// App wires together all dependencies and runs the games service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	drainer        *outbox.Worker
	drainerStop    context.CancelFunc
	drainerDone    sync.WaitGroup
	tracerShutdown tracing.ShutdownFunc

	// Services are exposed for the seed command.
	Catalog *service.CatalogService
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.Init(ctx, tracing.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a := &App{cfg: cfg, logger: logger, tracerShutdown: tracerShutdown}
	if err := a.init(ctx); err != nil {
		a.closeClients()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	// Initialize PostgreSQL connection pool.
	pgCfg := database.PostgresConfig{
		Host:               cfg.PostgresHost,
		Port:               cfg.PostgresPort,
		User:               cfg.PostgresUser,
		Password:           cfg.PostgresPass,
		DBName:             cfg.PostgresDB,
		SSLMode:            cfg.PostgresSSL,
		MaxConns:           cfg.DBMaxConns,
		MinConns:           cfg.DBMinConns,
		MaxConnLifetime:    time.Hour,
		MaxConnIdleTime:    30 * time.Minute,
		SlowQueryThreshold: cfg.SlowQueryThreshold(),
	}

	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, cfg.ServiceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Search engine.
	engine, err := newSearchEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// Popular games cache. The service runs without it when Redis is absent.
	var cache repository.PopularCache
	if cfg.RedisAddr != "" {
		client, err := database.NewRedisClient(ctx, database.RedisConfig{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		})
		if err != nil {
			logger.Warn("redis unavailable, popular games cache disabled",
				slog.String("addr", cfg.RedisAddr),
				slog.String("error", err.Error()),
			)
		} else {
			a.redis = client
			cache = rediscache.NewPopularCache(client, cfg.PopularCacheTTL)
			logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr))
		}
	}

	// Domain events. Without brokers events are dropped.
	var events event.Publisher = event.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		if err := pingKafkaWithRetry(ctx, a.producer, logger); err != nil {
			logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
		}
		events = event.NewProducer(a.producer, cfg.KafkaTopic, logger)
	}

	// Payment service client: retries, then circuit breaker.
	httpClient := httpclient.New(httpclient.Config{
		Timeout:         cfg.PaymentsTimeout,
		MaxRetries:      2,
		RetryWaitMin:    200 * time.Millisecond,
		RetryWaitMax:    2 * time.Second,
		MaxConnsPerHost: 50,
	})
	breaker := httpclient.NewCircuitBreakerClient(httpClient, httpclient.CircuitBreakerConfig{
		Name:                "payments",
		MaxRequests:         cfg.CBMaxRequests,
		Interval:            cfg.CBInterval,
		Timeout:             cfg.CBTimeout,
		ConsecutiveFailures: cfg.CBFailureThreshold,
	}, logger)
	payments := payment.NewClient(breaker, payment.Config{BaseURL: cfg.PaymentsBaseURL}, logger)

	// Build the dependency graph.
	games := postgres.NewGameRepository(pool)
	markers := postgres.NewOutboxRepository(pool)

	a.Catalog = service.NewCatalogService(games, markers, engine, cache, events, logger)
	searchService := service.NewSearchService(engine, cache, logger)
	purchaseService := service.NewPurchaseService(games, payments, events, logger, cfg.PurchaseStepTimeout)

	a.drainer = outbox.NewWorker(markers, games, engine, cache, outbox.Config{
		PollInterval: cfg.OutboxPollInterval,
		BatchSize:    cfg.OutboxBatchSize,
		MaxAttempts:  cfg.OutboxMaxAttempts,
	}, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterCritical("search", engine.Ping)
	if a.redis != nil {
		client := a.redis
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}
	if a.producer != nil {
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
	}

	// HTTP router.
	router := handler.NewRouter(handler.RouterConfig{
		ServiceName:    cfg.ServiceName,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Catalog:        a.Catalog,
		Search:         searchService,
		Purchase:       purchaseService,
		PurchaseRPS:    cfg.PurchaseRateLimitRPS,
		PurchaseBurst:  cfg.PurchaseRateLimitBurst,
		Tokens: auth.NewJWTManager(auth.Config{
			Secret:   cfg.JWTSecret,
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		}),
		Health: healthHandler,
		Logger: logger,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

func newSearchEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) (search.Engine, error) {
	if cfg.SearchEngine == config.SearchEngineMemory {
		logger.Warn("using the in-memory search engine; the index is lost on restart")
		return memory.New(), nil
	}

	engine, err := elasticsearch.New(elasticsearch.Config{
		URL:      cfg.ElasticsearchURL,
		Index:    cfg.ElasticsearchIndex,
		Username: cfg.ElasticsearchUser,
		Password: cfg.ElasticsearchPass,
	}, logger)
	if err != nil {
		return nil, err
	}
	if err := engine.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("prepare search index: %w", err)
	}
	logger.Info("search index ready",
		slog.String("url", cfg.ElasticsearchURL),
		slog.String("index", cfg.ElasticsearchIndex),
	)
	return engine, nil
}

// Run starts the HTTP server and the outbox drainer, then blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	// Start HTTP server.
	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Start the index sync drainer.
	a.StartDrainer(ctx)

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// StartDrainer runs the outbox drainer in the background until Shutdown.
func (a *App) StartDrainer(ctx context.Context) {
	dctx, stop := context.WithCancel(context.WithoutCancel(ctx))
	a.drainerStop = stop
	a.drainerDone.Add(1)
	go func() {
		defer a.drainerDone.Done()
		a.drainer.Run(dctx)
	}()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Outbox drainer
// 3. Kafka producer
// 4. Redis
// 5. PostgreSQL pool
// 6. Tracer
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests.
	if a.httpServer != nil {
		httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer httpCancel()
		if err := a.httpServer.Shutdown(httpCtx); err != nil {
			a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 2. Stop the drainer after the last write has been acknowledged.
	if a.drainerStop != nil {
		a.drainerStop()
		a.drainerDone.Wait()
	}

	errs = append(errs, a.closeClients()...)

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeClients releases Kafka, Redis, the pool and the tracer, in that order.
func (a *App) closeClients() []error {
	var errs []error

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.pool != nil {
		a.pool.Close()
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	return errs
}

// pingKafkaWithRetry attempts to ping the Kafka producer with exponential
// backoff (3 attempts, 1s/2s/4s with ±25% jitter).
func pingKafkaWithRetry(ctx context.Context, producer *pkgkafka.Producer, logger *slog.Logger) error {
	var lastErr error
	for attempt := range 3 {
		lastErr = producer.Ping(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == 2 {
			break
		}
		base := time.Duration(1<<uint(attempt)) * time.Second
		jitter := time.Duration(float64(base) * 0.25 * (2*rand.Float64() - 1)) // #nosec G404 -- non-cryptographic jitter for retry backoff
		wait := base + jitter
		logger.Warn("kafka producer ping failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", 3),
			slog.Duration("backoff", wait),
			slog.String("error", lastErr.Error()),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("kafka ping: context canceled during retry: %w", ctx.Err())
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("kafka producer ping failed after 3 attempts: %w", lastErr)
}
