package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// Config es la configuración completa del bot.
type Config struct {
	Kalshi   KalshiConfig   `yaml:"kalshi"`
	Strategy StrategyConfig `yaml:"strategy"`
	Storage  StorageConfig  `yaml:"storage"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// KalshiConfig contiene el entorno y las credenciales del API key.
type KalshiConfig struct {
	Env     string `yaml:"env" default:"demo" validate:"oneof=demo prod"`
	BaseURL string `yaml:"base_url" validate:"omitempty,url"` // sobreescribe Env si está presente
	KeyID   string `yaml:"key_id" validate:"required"`
	KeyFile string `yaml:"key_file" validate:"required"` // clave privada RSA en PEM
}

// StrategyConfig controla la selección de mercados y el tamaño de las órdenes.
// En los campos escalares un cero toma el default; los punteros distinguen
// "ausente" (default) de un cero explícito, que es un valor válido.
type StrategyConfig struct {
	IntervalSeconds        int      `yaml:"interval_seconds" default:"60" validate:"gte=1"`
	TradeSize              int      `yaml:"trade_size" default:"1" validate:"gte=1"`
	MinMarketDelta         *float64 `yaml:"min_market_delta" default:"0.01" validate:"required,gte=0,lt=1"`
	ExpirationSeconds      int      `yaml:"expiration_seconds" default:"60" validate:"gte=1"`
	MaxPositions           int      `yaml:"max_positions" default:"2" validate:"gte=1"`
	PriceMin               float64  `yaml:"price_min" default:"0.01" validate:"gt=0,lt=1"`
	PriceMax               float64  `yaml:"price_max" default:"0.99" validate:"gt=0,lt=1,gtefield=PriceMin"`
	StopTradeWindowSeconds *int     `yaml:"stop_trade_window_seconds" default:"300" validate:"required,gte=0"`
}

// StorageConfig controla el journal SQLite.
type StorageConfig struct {
	DSN           string `yaml:"dsn"` // ruta al archivo SQLite, ":memory:", o vacío para desactivar
	RetentionDays int    `yaml:"retention_days" default:"30" validate:"gte=1"`
}

// MetricsConfig controla el endpoint de Prometheus.
type MetricsConfig struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"` // vacío = sin servidor
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"text" validate:"oneof=text json"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Los errores nombran la key del YAML, no el campo Go.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Las variables de entorno sobreescriben los valores del YAML. Un valor inválido
// se devuelve como *domain.ConfigurationError.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// Finalize aplica defaults y valida. Load la llama; se expone para construir
// un Config en código.
func (c *Config) Finalize() error {
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("apply defaults: %w", err)
	}
	c.Kalshi.Env = strings.ToLower(c.Kalshi.Env)
	if err := validate.Struct(c); err != nil {
		return toConfigurationError(err)
	}
	return nil
}

// Interval devuelve el intervalo entre ciclos.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Strategy.IntervalSeconds) * time.Second
}

// Expiration devuelve la vida de las órdenes enviadas.
func (c *Config) Expiration() time.Duration {
	return time.Duration(c.Strategy.ExpirationSeconds) * time.Second
}

// StopTradeWindow devuelve la ventana tras end_date en la que un programa sigue abierto.
func (c *Config) StopTradeWindow() time.Duration {
	if c.Strategy.StopTradeWindowSeconds == nil {
		return 0
	}
	return time.Duration(*c.Strategy.StopTradeWindowSeconds) * time.Second
}

// MinMarketDelta devuelve la distancia mínima entre top of book y el borde.
func (c *Config) MinMarketDelta() float64 {
	if c.Strategy.MinMarketDelta == nil {
		return 0
	}
	return *c.Strategy.MinMarketDelta
}

// Retention devuelve la antigüedad máxima de las filas del journal.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Storage.RetentionDays) * 24 * time.Hour
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	overrides := []struct {
		env string
		dst *string
	}{
		{"KALSHI_ENV", &cfg.Kalshi.Env},
		{"KALSHI_BASE_URL", &cfg.Kalshi.BaseURL},
		{"KALSHI_KEY_ID", &cfg.Kalshi.KeyID},
		{"KALSHI_KEY_FILE", &cfg.Kalshi.KeyFile},
		{"KALSHI_DB", &cfg.Storage.DSN},
		{"METRICS_ADDR", &cfg.Metrics.Addr},
		{"LOG_LEVEL", &cfg.Log.Level},
		{"LOG_FORMAT", &cfg.Log.Format},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}
}

// toConfigurationError convierte el primer fallo de validación.
func toConfigurationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &domain.ConfigurationError{Field: "config", Reason: err.Error()}
	}
	fe := verrs[0]
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	return &domain.ConfigurationError{Field: field, Reason: reason(fe)}
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lt":
		return "must be less than " + fe.Param()
	case "gtefield":
		return "must not be below " + fe.Param()
	case "url":
		return "must be a valid URL"
	case "hostname_port":
		return "must be host:port"
	}
	return "failed validation: " + fe.Tag()
}
