package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration loaded from environment variables or config files.
type Config struct {
	AppEnv          string        `mapstructure:"APP_ENV" validate:"required,oneof=development staging production test"`
	HTTPAddr        string        `mapstructure:"HTTP_ADDR" validate:"required,hostname_port"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" validate:"required"`

	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"required,oneof=debug info warn error dpanic panic fatal"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"required,oneof=json console"`

	// StoreDriver selects the gorm dialect behind the document store.
	StoreDriver string `mapstructure:"STORE_DRIVER" validate:"required,oneof=postgres sqlite"`
	// DatabaseURL may be empty; the API then starts without a store and
	// every sync request fails.
	DatabaseURL string `mapstructure:"-"`

	DefaultUserID    string        `mapstructure:"DEFAULT_USER_ID" validate:"required"`
	SharedUserPrefix string        `mapstructure:"SHARED_USER_PREFIX"`
	ListTimeout      time.Duration `mapstructure:"LIST_TIMEOUT" validate:"required"`
	MaxPayloadBytes  int64         `mapstructure:"MAX_PAYLOAD_BYTES" validate:"gte=1"`
	MaxRequestBytes  int64         `mapstructure:"MAX_REQUEST_BYTES" validate:"gtefield=MaxPayloadBytes"`

	RedisAddr     string `mapstructure:"-" validate:"omitempty,hostname_port"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	BlobNamespace string `mapstructure:"BLOB_NAMESPACE" validate:"required"`

	AsynqConcurrency int `mapstructure:"ASYNQ_CONCURRENCY" validate:"gte=1,lte=1000"`

	JWTSecret string `mapstructure:"JWT_SECRET"`

	GeminiAPIKey string `mapstructure:"-"`
	GeminiModel  string `mapstructure:"GEMINI_MODEL"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS" validate:"gte=0"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST" validate:"gte=0"`

	GoMaxProcs int `mapstructure:"GOMAXPROCS" validate:"gte=0,lte=4096"`
}

// Layered names: the first non-empty variable wins.
var (
	databaseURLKeys = []string{"STORE_DATABASE_URL", "DATABASE_URL", "POSTGRES_URL", "SUPABASE_DB_URL"}
	redisAddrKeys   = []string{"BLOB_REDIS_ADDR", "REDIS_ADDR"}
	geminiKeyKeys   = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
)

var (
	cfg      *Config
	validate = validator.New(validator.WithRequiredStructEnabled())
)

// Load initializes configuration using Viper. It loads from .env if present,
// applies defaults, binds env vars, and validates the result.
func Load() (*Config, error) {
	// Load .env if present (non-fatal)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDR", "0.0.0.0:8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("STORE_DRIVER", "postgres")
	v.SetDefault("DEFAULT_USER_ID", "anonymous-shared")
	v.SetDefault("SHARED_USER_PREFIX", "anonymous")
	v.SetDefault("LIST_TIMEOUT", "15s")
	v.SetDefault("MAX_PAYLOAD_BYTES", 4*1024*1024)
	v.SetDefault("MAX_REQUEST_BYTES", 16*1024*1024)
	v.SetDefault("BLOB_NAMESPACE", "project-sync")
	v.SetDefault("ASYNQ_CONCURRENCY", 10)
	v.SetDefault("GEMINI_MODEL", "gemini-2.0-flash")
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("GOMAXPROCS", 0)

	// Optional config file
	_ = v.ReadInConfig()

	keys := []string{
		"APP_ENV",
		"HTTP_ADDR",
		"SHUTDOWN_TIMEOUT",
		"LOG_LEVEL",
		"LOG_FORMAT",
		"STORE_DRIVER",
		"DEFAULT_USER_ID",
		"SHARED_USER_PREFIX",
		"LIST_TIMEOUT",
		"MAX_PAYLOAD_BYTES",
		"MAX_REQUEST_BYTES",
		"REDIS_PASSWORD",
		"BLOB_NAMESPACE",
		"ASYNQ_CONCURRENCY",
		"JWT_SECRET",
		"GEMINI_MODEL",
		"RATE_LIMIT_RPS",
		"RATE_LIMIT_BURST",
		"GOMAXPROCS",
	}
	keys = append(keys, databaseURLKeys...)
	keys = append(keys, redisAddrKeys...)
	keys = append(keys, geminiKeyKeys...)
	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	// Parse duration types that may come as string
	for key, dst := range map[string]*time.Duration{
		"SHUTDOWN_TIMEOUT": &c.ShutdownTimeout,
		"LIST_TIMEOUT":     &c.ListTimeout,
	} {
		if s := v.GetString(key); s != "" {
			d, err := time.ParseDuration(s)
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = d
		}
	}

	c.DatabaseURL = firstNonEmpty(v, databaseURLKeys)
	c.RedisAddr = firstNonEmpty(v, redisAddrKeys)
	c.GeminiAPIKey = firstNonEmpty(v, geminiKeyKeys)

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if c.GoMaxProcs > 0 {
		runtime.GOMAXPROCS(c.GoMaxProcs)
	}

	cfg = &c
	return cfg, nil
}

func firstNonEmpty(v *viper.Viper, keys []string) string {
	for _, k := range keys {
		if s := strings.TrimSpace(v.GetString(k)); s != "" {
			return s
		}
	}
	return ""
}

// StoreConfigured reports whether a document store DSN was supplied.
func (c *Config) StoreConfigured() bool { return c.DatabaseURL != "" }

// MustLoad loads configuration or exits the process on failure.
func MustLoad() *Config {
	c, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	return c
}

// Get returns the loaded configuration. Panics if not loaded.
func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call config.Load or config.MustLoad first")
	}
	return cfg
}
