package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/utafrali/CloudGames/pkg/config"
)

// Search engine backends.
const (
	SearchEngineElasticsearch = "elasticsearch"
	SearchEngineMemory        = "memory"
)

// Config holds all configuration for the games service.
type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"games-service"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort           int           `env:"HTTP_PORT" envDefault:"8080"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"games"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"games"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"games"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	DBMaxConns   int32  `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	DBMinConns   int32  `env:"POSTGRES_MIN_CONNS" envDefault:"1"`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`

	// Search
	SearchEngine       string `env:"SEARCH_ENGINE" envDefault:"elasticsearch"`
	ElasticsearchURL   string `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	ElasticsearchIndex string `env:"ELASTICSEARCH_INDEX" envDefault:"games"`
	ElasticsearchUser  string `env:"ELASTICSEARCH_USERNAME"`
	ElasticsearchPass  string `env:"ELASTICSEARCH_PASSWORD"`

	// Payments
	PaymentsBaseURL     string        `env:"PAYMENTS_BASE_URL" envDefault:"http://localhost:8085"`
	PaymentsTimeout     time.Duration `env:"PAYMENTS_TIMEOUT" envDefault:"10s"`
	PurchaseStepTimeout time.Duration `env:"PURCHASE_STEP_TIMEOUT" envDefault:"15s"`

	// Per-caller purchase rate limit; 0 disables it.
	PurchaseRateLimitRPS   float64 `env:"PURCHASE_RATE_LIMIT_RPS" envDefault:"5"`
	PurchaseRateLimitBurst int     `env:"PURCHASE_RATE_LIMIT_BURST" envDefault:"10"`

	// Circuit breaker around the payment service
	CBMaxRequests      uint32        `env:"CB_MAX_REQUESTS" envDefault:"3"`
	CBInterval         time.Duration `env:"CB_INTERVAL" envDefault:"60s"`
	CBTimeout          time.Duration `env:"CB_TIMEOUT" envDefault:"30s"`
	CBFailureThreshold uint32        `env:"CB_FAILURE_THRESHOLD" envDefault:"5"`

	// Redis; an empty address disables the popular games cache.
	RedisAddr       string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0"`
	PopularCacheTTL time.Duration `env:"POPULAR_CACHE_TTL" envDefault:"30s"`

	// Kafka; no brokers disables event publishing.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"game.events"`

	// Index sync outbox
	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"5s"`
	OutboxBatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"50"`
	OutboxMaxAttempts  int           `env:"OUTBOX_MAX_ATTEMPTS" envDefault:"10"`

	// JWT
	JWTSecret   string `env:"JWT_SECRET"`
	JWTIssuer   string `env:"JWT_ISSUER" envDefault:"cloudgames"`
	JWTAudience string `env:"JWT_AUDIENCE" envDefault:"cloudgames"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from an optional .env file and the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadWithDotenv(cfg, ".env"); err != nil {
		return nil, fmt.Errorf("load games config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.PostgresHost == "" {
		return errors.New("POSTGRES_HOST is required")
	}
	if c.PostgresUser == "" {
		return errors.New("POSTGRES_USER is required")
	}

	switch c.SearchEngine {
	case SearchEngineElasticsearch:
		if err := validURL("ELASTICSEARCH_URL", c.ElasticsearchURL); err != nil {
			return err
		}
		if c.ElasticsearchIndex == "" {
			return errors.New("ELASTICSEARCH_INDEX is required")
		}
	case SearchEngineMemory:
	default:
		return fmt.Errorf("SEARCH_ENGINE must be %q or %q, got %q", SearchEngineElasticsearch, SearchEngineMemory, c.SearchEngine)
	}

	if err := validURL("PAYMENTS_BASE_URL", c.PaymentsBaseURL); err != nil {
		return err
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	for name, d := range map[string]time.Duration{
		"PAYMENTS_TIMEOUT":      c.PaymentsTimeout,
		"PURCHASE_STEP_TIMEOUT": c.PurchaseStepTimeout,
		"SHUTDOWN_TIMEOUT":      c.ShutdownTimeout,
		"OUTBOX_POLL_INTERVAL":  c.OutboxPollInterval,
		"CB_TIMEOUT":            c.CBTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.PurchaseRateLimitRPS < 0 {
		return fmt.Errorf("PURCHASE_RATE_LIMIT_RPS must not be negative, got %f", c.PurchaseRateLimitRPS)
	}
	if c.PurchaseRateLimitRPS > 0 && c.PurchaseRateLimitBurst < 1 {
		return fmt.Errorf("PURCHASE_RATE_LIMIT_BURST must be positive, got %d", c.PurchaseRateLimitBurst)
	}
	if c.OutboxBatchSize < 1 {
		return fmt.Errorf("OUTBOX_BATCH_SIZE must be positive, got %d", c.OutboxBatchSize)
	}
	if c.OutboxMaxAttempts < 1 {
		return fmt.Errorf("OUTBOX_MAX_ATTEMPTS must be positive, got %d", c.OutboxMaxAttempts)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

func validURL(name, raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", name, raw)
	}
	return nil
}

// SlowQueryThreshold returns the slow query warning threshold.
func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.SlowQueryThresholdMs) * time.Millisecond
}
