package configs

import (
	"fmt"
	"time"

	"github.com/hilthontt/synchat/internal/domain"
	"github.com/hilthontt/synchat/internal/infrastructure/env"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	HTTP        HTTPConfig        `koanf:"http"`
	RateLimiter RateLimiterConfig `koanf:"rateLimiter"`
	Storage     StorageConfig     `koanf:"storage"`
	Uploads     UploadsConfig     `koanf:"uploads"`
	Gateway     GatewayConfig     `koanf:"gateway"`
	Logger      LoggerConfig      `koanf:"logger"`
	Tracing     TracingConfig     `koanf:"tracing"`
}

type HTTPConfig struct {
	Host           string        `koanf:"host"`
	Port           uint16        `koanf:"port"`
	AllowedOrigins []string      `koanf:"allowed_origins"`
	ReadTimeout    time.Duration `koanf:"read_timeout"`
	WriteTimeout   time.Duration `koanf:"write_timeout"`
}

type RateLimiterConfig struct {
	Enabled              bool          `koanf:"enabled"`
	RequestsPerTimeFrame int           `koanf:"requestsPerTimeFrame"`
	TimeFrame            time.Duration `koanf:"timeFrame"`
}

type StorageConfig struct {
	// Driver is one of sqlite, postgres or memory.
	Driver   string `koanf:"driver"`
	DSN      string `koanf:"dsn"`
	LogLevel string `koanf:"log_level"`
}

type UploadsConfig struct {
	Dir     string `koanf:"dir"`
	MaxSize int64  `koanf:"max_size"`
}

type GatewayConfig struct {
	RequireActiveRoom bool          `koanf:"require_active_room"`
	ClientBuffer      int           `koanf:"client_buffer"`
	PersistTimeout    time.Duration `koanf:"persist_timeout"`
}

type LoggerConfig struct {
	Level    string `koanf:"level"`
	Encoding string `koanf:"encoding"`
	FilePath string `koanf:"file_path"`
}

type TracingConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Exporter    string `koanf:"exporter"`
	Endpoint    string `koanf:"endpoint"`
	Environment string `koanf:"environment"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	applyDefaults(k)
	applyEnvOverrides(k)

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	switch c.Tracing.Exporter {
	case "otlp", "jaeger":
	default:
		return fmt.Errorf("unsupported tracing exporter %q", c.Tracing.Exporter)
	}
	if c.Uploads.MaxSize <= 0 {
		return fmt.Errorf("uploads.max_size must be positive")
	}
	return nil
}

func applyDefaults(k *koanf.Koanf) {
	setDefault(k, "http.host", "0.0.0.0")
	setDefault(k, "http.port", 5000)
	setDefault(k, "http.read_timeout", 10*time.Second)
	setDefault(k, "http.write_timeout", 30*time.Second)
	setDefault(k, "http.allowed_origins", []string{"*"})

	setDefault(k, "rateLimiter.enabled", true)
	setDefault(k, "rateLimiter.requestsPerTimeFrame", 60)
	setDefault(k, "rateLimiter.timeFrame", time.Minute)

	setDefault(k, "storage.driver", "sqlite")
	setDefault(k, "storage.dsn", "synchat.db")
	setDefault(k, "storage.log_level", "warn")

	setDefault(k, "uploads.dir", "./static/uploads")
	setDefault(k, "uploads.max_size", int64(domain.MaxBlobSize))

	setDefault(k, "gateway.require_active_room", false)
	setDefault(k, "gateway.client_buffer", 64)
	setDefault(k, "gateway.persist_timeout", 5*time.Second)

	setDefault(k, "logger.level", "info")
	setDefault(k, "logger.encoding", "json")
	setDefault(k, "logger.file_path", "")

	setDefault(k, "tracing.enabled", false)
	setDefault(k, "tracing.exporter", "otlp")
	setDefault(k, "tracing.endpoint", "http://localhost:4318/v1/traces")
	setDefault(k, "tracing.environment", "development")
}

func applyEnvOverrides(k *koanf.Koanf) {
	if host := env.GetString("HTTP_HOST", ""); host != "" {
		k.Set("http.host", host)
	}
	if port := env.GetInt("HTTP_PORT", 0); port > 0 {
		k.Set("http.port", port)
	}
	if origins := env.GetList("HTTP_ALLOWED_ORIGINS"); len(origins) > 0 {
		k.Set("http.allowed_origins", origins)
	}

	if perFrame := env.GetInt("RATE_LIMIT_REQUESTS_PER_TIME_FRAME", 0); perFrame > 0 {
		k.Set("rateLimiter.requestsPerTimeFrame", perFrame)
	}
	if frame := env.GetInt("RATE_LIMIT_TIME_FRAME_SECONDS", 0); frame > 0 {
		k.Set("rateLimiter.timeFrame", time.Duration(frame)*time.Second)
	}

	if driver := env.GetString("STORAGE_DRIVER", ""); driver != "" {
		k.Set("storage.driver", driver)
	}
	if dsn := env.GetString("STORAGE_DSN", ""); dsn != "" {
		k.Set("storage.dsn", dsn)
	}

	if dir := env.GetString("UPLOADS_DIR", ""); dir != "" {
		k.Set("uploads.dir", dir)
	}

	if strict := env.GetString("GATEWAY_REQUIRE_ACTIVE_ROOM", ""); strict != "" {
		k.Set("gateway.require_active_room", env.GetBool("GATEWAY_REQUIRE_ACTIVE_ROOM", false))
	}

	if level := env.GetString("LOGGER_LEVEL", ""); level != "" {
		k.Set("logger.level", level)
	}
	if encoding := env.GetString("LOGGER_ENCODING", ""); encoding != "" {
		k.Set("logger.encoding", encoding)
	}
	if path := env.GetString("LOGGER_FILE_PATH", ""); path != "" {
		k.Set("logger.file_path", path)
	}

	if enabled := env.GetString("TRACING_ENABLED", ""); enabled != "" {
		k.Set("tracing.enabled", env.GetBool("TRACING_ENABLED", false))
	}
	if endpoint := env.GetString("TRACING_ENDPOINT", ""); endpoint != "" {
		k.Set("tracing.endpoint", endpoint)
	}
	if environment := env.GetString("ENVIRONMENT", ""); environment != "" {
		k.Set("tracing.environment", environment)
	}
}

// setDefault only sets the value if the key doesn't already exist
func setDefault(k *koanf.Koanf, key string, value interface{}) {
	if !k.Exists(key) {
		k.Set(key, value)
	}
}
