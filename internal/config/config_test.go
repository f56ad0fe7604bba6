package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "games-service", cfg.ServiceName)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, SearchEngineElasticsearch, cfg.SearchEngine)
	assert.Equal(t, "http://localhost:9200", cfg.ElasticsearchURL)
	assert.Equal(t, "games", cfg.ElasticsearchIndex)
	assert.Equal(t, "http://localhost:8085", cfg.PaymentsBaseURL)
	assert.Equal(t, 10*time.Second, cfg.PaymentsTimeout)
	assert.Equal(t, 15*time.Second, cfg.PurchaseStepTimeout)
	assert.Equal(t, 5.0, cfg.PurchaseRateLimitRPS)
	assert.Equal(t, 10, cfg.PurchaseRateLimitBurst)
	assert.Equal(t, uint32(5), cfg.CBFailureThreshold)
	assert.Equal(t, 30*time.Second, cfg.PopularCacheTTL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "game.events", cfg.KafkaTopic)
	assert.Equal(t, 50, cfg.OutboxBatchSize)
	assert.Equal(t, 10, cfg.OutboxMaxAttempts)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 500*time.Millisecond, cfg.SlowQueryThreshold())
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("SEARCH_ENGINE", "memory")
	t.Setenv("ELASTICSEARCH_URL", "")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("OUTBOX_POLL_INTERVAL", "250ms")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, SearchEngineMemory, cfg.SearchEngine)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 250*time.Millisecond, cfg.OutboxPollInterval)
}

func TestLoad_DotenvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("JWT_SECRET=from-file\nLOG_LEVEL=debug\n"), 0o600))

	// t.Setenv restores the variables the file sets once the test ends.
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")
	t.Setenv("LOG_LEVEL", "")
	os.Unsetenv("LOG_LEVEL")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "missing jwt secret", env: map[string]string{"JWT_SECRET": ""}, want: "JWT_SECRET"},
		{name: "bad port", env: map[string]string{"HTTP_PORT": "70000"}, want: "HTTP port"},
		{name: "bad engine", env: map[string]string{"SEARCH_ENGINE": "solr"}, want: "SEARCH_ENGINE"},
		{name: "relative es url", env: map[string]string{"ELASTICSEARCH_URL": "localhost:9200"}, want: "ELASTICSEARCH_URL"},
		{name: "bad payments url", env: map[string]string{"PAYMENTS_BASE_URL": "ftp://payments"}, want: "PAYMENTS_BASE_URL"},
		{name: "zero step timeout", env: map[string]string{"PURCHASE_STEP_TIMEOUT": "0s"}, want: "PURCHASE_STEP_TIMEOUT"},
		{name: "negative rate", env: map[string]string{"PURCHASE_RATE_LIMIT_RPS": "-1"}, want: "PURCHASE_RATE_LIMIT_RPS"},
		{name: "zero burst", env: map[string]string{"PURCHASE_RATE_LIMIT_BURST": "0"}, want: "PURCHASE_RATE_LIMIT_BURST"},
		{name: "zero batch", env: map[string]string{"OUTBOX_BATCH_SIZE": "0"}, want: "OUTBOX_BATCH_SIZE"},
		{name: "sample rate", env: map[string]string{"OTEL_SAMPLE_RATE": "1.5"}, want: "OTEL_SAMPLE_RATE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv("JWT_SECRET", "secret")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
