package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Server       ServerConfig                 `json:"server"`
	Logging      LoggingConfig                `json:"logging"`
	Tracing      TracingConfig                `json:"tracing"`
	Integrations map[string]IntegrationConfig `json:"integrations"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	Output string `json:"output"`
}

// TracingConfig contains distributed tracing configuration
type TracingConfig struct {
	Enabled        bool    `json:"enabled"`
	JaegerEndpoint string  `json:"jaeger_endpoint"`
	SamplingRate   float64 `json:"sampling_rate"`
}

// IntegrationConfig holds the tunables for one scanner integration. The
// execution core receives this struct as-is and never reads the environment.
type IntegrationConfig struct {
	BaseURL                 string        `json:"base_url"`
	Timeout                 time.Duration `json:"timeout"`
	MaxConcurrent           int           `json:"max_concurrent"`
	RetryAttempts           int           `json:"retry_attempts"`
	RetryDelay              time.Duration `json:"retry_delay"`
	CacheEnabled            bool          `json:"cache_enabled"`
	CacheTTL                time.Duration `json:"cache_ttl"`
	CacheMaxEntries         int           `json:"cache_max_entries"`
	RateLimitPerMinute      int           `json:"rate_limit_per_minute"`
	CircuitBreakerThreshold int           `json:"circuit_breaker_threshold"`
	CircuitBreakerTimeout   time.Duration `json:"circuit_breaker_timeout"`
}

// Known integration names
const (
	IntegrationGarak        = "garak"
	IntegrationCounterfit   = "counterfit"
	IntegrationART          = "art"
	IntegrationSecureTopTen = "securetopten"
)

// DefaultIntegrationConfig returns the default tunables for an integration.
// The breaker threshold of 10 is deliberate: a threshold of 5 proved too
// sensitive in production and caused spurious full outages.
func DefaultIntegrationConfig(baseURL string) IntegrationConfig {
	return IntegrationConfig{
		BaseURL:                 baseURL,
		Timeout:                 5 * time.Minute,
		MaxConcurrent:           3,
		RetryAttempts:           3,
		RetryDelay:              500 * time.Millisecond,
		CacheEnabled:            true,
		CacheTTL:                1 * time.Hour,
		CacheMaxEntries:         1024,
		RateLimitPerMinute:      60,
		CircuitBreakerThreshold: 10,
		CircuitBreakerTimeout:   30 * time.Second,
	}
}

// Load loads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	// Best effort; a missing .env file is not an error
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Host:         getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
			Output: getEnvString("LOG_OUTPUT", "stdout"),
		},
		Tracing: TracingConfig{
			Enabled:        getEnvBool("TRACING_ENABLED", false),
			JaegerEndpoint: getEnvString("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
			SamplingRate:   getEnvFloat("TRACING_SAMPLING_RATE", 1.0),
		},
		Integrations: map[string]IntegrationConfig{
			IntegrationGarak:        loadIntegrationConfig("GARAK", "http://localhost:8001"),
			IntegrationCounterfit:   loadIntegrationConfig("COUNTERFIT", "http://localhost:8002"),
			IntegrationART:          loadIntegrationConfig("ART", "http://localhost:8003"),
			IntegrationSecureTopTen: loadIntegrationConfig("SECURETOPTEN", "http://localhost:8004"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// loadIntegrationConfig loads one integration's tunables using a common prefix
func loadIntegrationConfig(prefix, defaultURL string) IntegrationConfig {
	defaults := DefaultIntegrationConfig(defaultURL)

	return IntegrationConfig{
		BaseURL:                 getEnvString(prefix+"_BASE_URL", defaults.BaseURL),
		Timeout:                 getEnvDuration(prefix+"_TIMEOUT", defaults.Timeout),
		MaxConcurrent:           getEnvInt(prefix+"_MAX_CONCURRENT", defaults.MaxConcurrent),
		RetryAttempts:           getEnvInt(prefix+"_RETRY_ATTEMPTS", defaults.RetryAttempts),
		RetryDelay:              getEnvDuration(prefix+"_RETRY_DELAY", defaults.RetryDelay),
		CacheEnabled:            getEnvBool(prefix+"_CACHE_ENABLED", defaults.CacheEnabled),
		CacheTTL:                getEnvDuration(prefix+"_CACHE_TTL", defaults.CacheTTL),
		CacheMaxEntries:         getEnvInt(prefix+"_CACHE_MAX_ENTRIES", defaults.CacheMaxEntries),
		RateLimitPerMinute:      getEnvInt(prefix+"_RATE_LIMIT_PER_MINUTE", defaults.RateLimitPerMinute),
		CircuitBreakerThreshold: getEnvInt(prefix+"_CIRCUIT_BREAKER_THRESHOLD", defaults.CircuitBreakerThreshold),
		CircuitBreakerTimeout:   getEnvDuration(prefix+"_CIRCUIT_BREAKER_TIMEOUT", defaults.CircuitBreakerTimeout),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	for name, ic := range c.Integrations {
		if err := ic.Validate(); err != nil {
			return fmt.Errorf("integration %s: %w", name, err)
		}
	}

	return nil
}

// Validate validates one integration's tunables
func (ic IntegrationConfig) Validate() error {
	if ic.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}
	if ic.MaxConcurrent <= 0 {
		return fmt.Errorf("max_concurrent must be positive, got %d", ic.MaxConcurrent)
	}
	if ic.RetryAttempts <= 0 {
		return fmt.Errorf("retry_attempts must be positive, got %d", ic.RetryAttempts)
	}
	if ic.RateLimitPerMinute <= 0 {
		return fmt.Errorf("rate_limit_per_minute must be positive, got %d", ic.RateLimitPerMinute)
	}
	if ic.CircuitBreakerThreshold <= 0 {
		return fmt.Errorf("circuit_breaker_threshold must be positive, got %d", ic.CircuitBreakerThreshold)
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
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
