package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/kalshibot/config"
	"github.com/alejandrodnm/kalshibot/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// clearEnv evita que el entorno del runner pise los valores del YAML.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"KALSHI_ENV", "KALSHI_BASE_URL", "KALSHI_KEY_ID", "KALSHI_KEY_FILE",
		"KALSHI_DB", "METRICS_ADDR", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
}

const minimal = `
kalshi:
  key_id: key-123
  key_file: /tmp/kalshi.pem
`

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load(writeConfig(t, minimal))
	require.NoError(t, err)

	assert.Equal(t, "demo", cfg.Kalshi.Env)
	assert.Equal(t, "key-123", cfg.Kalshi.KeyID)
	assert.Equal(t, 1, cfg.Strategy.TradeSize)
	assert.Equal(t, 2, cfg.Strategy.MaxPositions)
	assert.InDelta(t, 0.01, cfg.MinMarketDelta(), 1e-12)
	assert.InDelta(t, 0.01, cfg.Strategy.PriceMin, 1e-12)
	assert.InDelta(t, 0.99, cfg.Strategy.PriceMax, 1e-12)
	assert.Equal(t, 60*time.Second, cfg.Interval())
	assert.Equal(t, 60*time.Second, cfg.Expiration())
	assert.Equal(t, 5*time.Minute, cfg.StopTradeWindow())
	assert.Equal(t, 30*24*time.Hour, cfg.Retention())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Empty(t, cfg.Storage.DSN)
	assert.Empty(t, cfg.Metrics.Addr)
}

func TestLoad_YAMLValues(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load(writeConfig(t, minimal+`
  env: PROD
strategy:
  interval_seconds: 15
  trade_size: 5
  price_min: 0.05
  price_max: 0.50
storage:
  dsn: ":memory:"
metrics:
  addr: 127.0.0.1:9102
log:
  format: json
`))
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Kalshi.Env)
	assert.Equal(t, 15*time.Second, cfg.Interval())
	assert.Equal(t, 5, cfg.Strategy.TradeSize)
	assert.InDelta(t, 0.05, cfg.Strategy.PriceMin, 1e-12)
	assert.InDelta(t, 0.50, cfg.Strategy.PriceMax, 1e-12)
	assert.Equal(t, ":memory:", cfg.Storage.DSN)
	assert.Equal(t, "127.0.0.1:9102", cfg.Metrics.Addr)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_ExplicitZeroIsKept(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load(writeConfig(t, minimal+`
strategy:
  min_market_delta: 0
  stop_trade_window_seconds: 0
`))
	require.NoError(t, err)
	assert.Zero(t, cfg.MinMarketDelta())
	assert.Zero(t, cfg.StopTradeWindow())
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("KALSHI_KEY_ID", "from-env")
	t.Setenv("KALSHI_ENV", "prod")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := config.Load(writeConfig(t, minimal))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Kalshi.KeyID)
	assert.Equal(t, "prod", cfg.Kalshi.Env)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		field  string
		reason string
	}{
		{
			name:   "missing key id",
			body:   "kalshi:\n  key_file: /tmp/k.pem\n",
			field:  "kalshi.key_id",
			reason: "is required",
		},
		{
			name:   "unknown env",
			body:   minimal + "  env: staging\n",
			field:  "kalshi.env",
			reason: "must be one of: demo, prod",
		},
		{
			name:   "inverted price range",
			body:   minimal + "strategy:\n  price_min: 0.60\n  price_max: 0.40\n",
			field:  "strategy.price_max",
			reason: "must not be below PriceMin",
		},
		{
			name:   "price outside unit interval",
			body:   minimal + "strategy:\n  price_max: 1.5\n",
			field:  "strategy.price_max",
			reason: "must be less than 1",
		},
		{
			name:   "negative trade size",
			body:   minimal + "strategy:\n  trade_size: -1\n",
			field:  "strategy.trade_size",
			reason: "must be greater than or equal to 1",
		},
		{
			name:   "negative expiration",
			body:   minimal + "strategy:\n  expiration_seconds: -5\n",
			field:  "strategy.expiration_seconds",
			reason: "must be greater than or equal to 1",
		},
		{
			name:   "negative stop window",
			body:   minimal + "strategy:\n  stop_trade_window_seconds: -1\n",
			field:  "strategy.stop_trade_window_seconds",
			reason: "must be greater than or equal to 0",
		},
		{
			name:   "bad log format",
			body:   minimal + "log:\n  format: xml\n",
			field:  "log.format",
			reason: "must be one of: text, json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := config.Load(writeConfig(t, tt.body))
			require.Error(t, err)

			var cfgErr *domain.ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "got %T: %v", err, err)
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.Equal(t, tt.reason, cfgErr.Reason)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)

	var cfgErr *domain.ConfigurationError
	assert.False(t, errors.As(err, &cfgErr))
}
