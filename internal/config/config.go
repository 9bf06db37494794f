package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mcstats/exporter/internal/names"
)

type Config struct {
	// World
	WorldPath string `validate:"required,dir"`

	// Server
	Host string `validate:"required,ip"`
	Port int    `validate:"min=1,max=65535"`
	Env  string

	// Logging
	LogLevel string `validate:"oneof=trace debug info warn error"`

	// CORS
	AllowedOrigins []string

	// Scraping
	WorkerCount    int           `validate:"min=1"`
	ScrapeInterval time.Duration `validate:"gte=0s"`

	// Name lookup
	NameLookupURL     string        `validate:"required,url"`
	NameLookupTimeout time.Duration `validate:"gt=0s"`
	NameCacheTTL      time.Duration `validate:"gt=0s"`

	// Optional shared name directory
	RedisURL string
}

// Load loads configuration from environment variables.
// Positional arguments (<world-path> [log-level]) override WORLD_PATH and
// LOG_LEVEL. It returns an error if the result is invalid.
func Load(args []string) (*Config, error) {
	cfg := &Config{
		WorldPath: getEnv("WORLD_PATH", ""),

		Host: getEnv("HOST_IP", "0.0.0.0"),
		Port: getEnvInt("PORT", 8000),
		Env:  getEnv("ENV", "production"),

		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),

		WorkerCount:    getEnvInt("WORKER_COUNT", 8),
		ScrapeInterval: getEnvDuration("SCRAPE_INTERVAL", 0),

		NameLookupURL:     getEnv("NAME_LOOKUP_URL", names.DefaultProfileURL),
		NameLookupTimeout: getEnvDuration("NAME_LOOKUP_TIMEOUT", 5*time.Second),
		NameCacheTTL:      getEnvDuration("NAME_CACHE_TTL", 24*time.Hour),

		RedisURL: getEnv("REDIS_URL", ""),
	}

	origins := getEnv("ALLOWED_ORIGINS", "*")
	for _, o := range strings.Split(origins, ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	if len(args) > 0 {
		cfg.WorldPath = args[0]
	}
	if len(args) > 1 {
		cfg.LogLevel = strings.ToLower(args[1])
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

var validate = validator.New()

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.WorldPath == "" {
		return fmt.Errorf("no world path given: pass it as the first argument or set WORLD_PATH")
	}
	if err := validate.Struct(c); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(errs))
			for _, fe := range errs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
