package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Security SecurityConfig
	Scoring  ScoringConfig
	Bulk     BulkConfig
	Tracing  TracingConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig selects the transaction store. An empty URL keeps records in
// memory.
type DatabaseConfig struct {
	URL string
}

type LoggerConfig struct {
	Level  string
	Format string
}

type SecurityConfig struct {
	EnableRateLimit bool
	RateLimitRPS    int
	RateLimitBurst  int
	AllowedOrigins  []string
	TrustedProxies  []string
}

type ScoringConfig struct {
	ServiceURL      string
	FallbackPolicy  string
	Timeout         time.Duration
	BreakerFailures int
	BreakerCooldown time.Duration
}

type BulkConfig struct {
	Concurrency    int
	MaxUploadBytes int64
	Timeout        time.Duration
	SampleSize     int
}

type TracingConfig struct {
	OTLPEndpoint string
	ServiceName  string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "localhost"),
			Port:            getEnvInt("SERVER_PORT", 8084),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 3*time.Minute),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL: getEnvString("DATABASE_URL", ""),
		},
		Logger: LoggerConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			EnableRateLimit: getEnvBool("SECURITY_RATE_LIMIT_ENABLED", true),
			RateLimitRPS:    getEnvInt("SECURITY_RATE_LIMIT_RPS", 100),
			RateLimitBurst:  getEnvInt("SECURITY_RATE_LIMIT_BURST", 10),
			AllowedOrigins:  getEnvStringSlice("SECURITY_ALLOWED_ORIGINS", []string{"http://localhost:8084"}),
			TrustedProxies:  getEnvStringSlice("SECURITY_TRUSTED_PROXIES", []string{"127.0.0.1"}),
		},
		Scoring: ScoringConfig{
			ServiceURL:      getEnvString("SCORING_SERVICE_URL", ""),
			FallbackPolicy:  strings.ToLower(strings.TrimSpace(getEnvString("SCORING_FALLBACK_POLICY", "degrade"))),
			Timeout:         getEnvDuration("SCORING_TIMEOUT", 5*time.Second),
			BreakerFailures: getEnvInt("SCORING_BREAKER_FAILURES", 5),
			BreakerCooldown: getEnvDuration("SCORING_BREAKER_COOLDOWN", 30*time.Second),
		},
		Bulk: BulkConfig{
			Concurrency:    getEnvInt("BULK_CONCURRENCY", 8),
			MaxUploadBytes: int64(getEnvInt("BULK_MAX_UPLOAD_BYTES", 10<<20)),
			Timeout:        getEnvDuration("BULK_TIMEOUT", 2*time.Minute),
			SampleSize:     getEnvInt("BULK_SAMPLE_SIZE", 100),
		},
		Tracing: TracingConfig{
			OTLPEndpoint: getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName:  getEnvString("OTEL_SERVICE_NAME", "fraudguard"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	validPolicies := []string{"strict", "degrade"}
	if !contains(validPolicies, c.Scoring.FallbackPolicy) {
		return fmt.Errorf("invalid fallback policy %q, must be one of: %s", c.Scoring.FallbackPolicy, strings.Join(validPolicies, ", "))
	}

	if c.Scoring.FallbackPolicy == "strict" && c.Scoring.ServiceURL == "" {
		return fmt.Errorf("strict fallback policy requires SCORING_SERVICE_URL")
	}

	if c.Scoring.Timeout <= 0 {
		return fmt.Errorf("scoring timeout must be positive")
	}

	if c.Scoring.BreakerFailures <= 0 {
		return fmt.Errorf("scoring breaker failures must be positive")
	}

	if c.Bulk.Concurrency < 1 {
		return fmt.Errorf("bulk concurrency must be at least 1, got %d", c.Bulk.Concurrency)
	}

	if c.Bulk.MaxUploadBytes <= 0 {
		return fmt.Errorf("bulk max upload bytes must be positive")
	}

	if c.Bulk.Timeout <= 0 {
		return fmt.Errorf("bulk timeout must be positive")
	}

	if c.Bulk.SampleSize < 0 {
		return fmt.Errorf("bulk sample size cannot be negative")
	}

	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
