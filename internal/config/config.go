package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/wordgrid/server/internal/procedural"
)

// Config holds all configuration for the word grid server
type Config struct {
	Server      ServerConfig
	Grid        GridConfig
	RateLimit   RateLimitConfig
	Events      EventsConfig
	Logging     LoggingConfig
	Performance PerformanceConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	Environment    string
	AllowedOrigins []string
}

// GridConfig holds world generation configuration
type GridConfig struct {
	ChunkSize         int
	MinWords          int
	MaxWords          int
	PlacementAttempts int
	MaxRegionCells    int64
	DictionaryPath    string // empty means the embedded list
}

// RateLimitConfig holds request throttling configuration
type RateLimitConfig struct {
	HTTPPerMinute int
	WSPerSecond   float64
	WSBurst       int
}

// EventsConfig holds word-found event sink configuration
type EventsConfig struct {
	KafkaBrokers []string // empty disables Kafka
	KafkaTopic   string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

// PerformanceConfig holds profiler configuration
type PerformanceConfig struct {
	ProfilingEnabled bool
}

// Load reads configuration from environment variables and .env file
// It returns a Config struct with all settings populated
func Load() (*Config, error) {
	// godotenv.Load() looks for .env in the current working directory
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg(".env file not found (this is OK if using environment variables)")
	}

	config := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnv("SERVER_PORT", "8080"),
			ReadTimeout:    getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second),
			Environment:    getEnv("ENVIRONMENT", "development"),
			AllowedOrigins: getListEnv("ALLOWED_ORIGINS", []string{
				"http://localhost:3000",
				"http://localhost:5173",
				"http://127.0.0.1:3000",
				"http://127.0.0.1:5173",
			}),
		},
		Grid: GridConfig{
			ChunkSize:         getIntEnv("GRID_CHUNK_SIZE", 10),
			MinWords:          getIntEnv("GRID_MIN_WORDS", 2),
			MaxWords:          getIntEnv("GRID_MAX_WORDS", 5),
			PlacementAttempts: getIntEnv("GRID_PLACEMENT_ATTEMPTS", 50),
			MaxRegionCells:    int64(getIntEnv("GRID_MAX_REGION_CELLS", 250000)),
			DictionaryPath:    getEnv("DICTIONARY_PATH", ""),
		},
		RateLimit: RateLimitConfig{
			HTTPPerMinute: getIntEnv("RATE_LIMIT_HTTP", 1000),
			WSPerSecond:   getFloatEnv("RATE_LIMIT_WS_PER_SECOND", 20),
			WSBurst:       getIntEnv("RATE_LIMIT_WS_BURST", 40),
		},
		Events: EventsConfig{
			KafkaBrokers: getListEnv("KAFKA_BROKERS", nil),
			KafkaTopic:   getEnv("KAFKA_TOPIC", "word_found"),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			OutputPath: getEnv("LOG_OUTPUT_PATH", ""),
		},
		Performance: PerformanceConfig{
			ProfilingEnabled: getBoolEnv("PROFILING_ENABLED", false),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate checks that all configuration values are usable
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}
	if c.Grid.ChunkSize < 2 {
		return fmt.Errorf("GRID_CHUNK_SIZE must be at least 2, got %d", c.Grid.ChunkSize)
	}
	if c.Grid.MinWords < 1 {
		return fmt.Errorf("GRID_MIN_WORDS must be at least 1, got %d", c.Grid.MinWords)
	}
	if c.Grid.MaxWords < c.Grid.MinWords {
		return fmt.Errorf("GRID_MAX_WORDS (%d) must not be less than GRID_MIN_WORDS (%d)", c.Grid.MaxWords, c.Grid.MinWords)
	}
	if c.Grid.PlacementAttempts < 1 {
		return fmt.Errorf("GRID_PLACEMENT_ATTEMPTS must be at least 1, got %d", c.Grid.PlacementAttempts)
	}
	if c.Grid.MaxRegionCells < 1 {
		return fmt.Errorf("GRID_MAX_REGION_CELLS must be at least 1, got %d", c.Grid.MaxRegionCells)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// ProceduralOptions converts the grid section into generator options
func (c *GridConfig) ProceduralOptions() procedural.Options {
	return procedural.Options{
		ChunkSize:   c.ChunkSize,
		MinWords:    c.MinWords,
		MaxWords:    c.MaxWords,
		MaxAttempts: c.PlacementAttempts,
	}
}

// Address returns the host:port the server listens on
func (c *ServerConfig) Address() string {
	return c.Host + ":" + c.Port
}

// IsDevelopment returns true if running in development mode
func (c *ServerConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

// KafkaEnabled reports whether word-found events go to Kafka
func (c *EventsConfig) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Helper functions for environment variable access

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Int("default", defaultValue).Msg("invalid integer value, using default")
		return defaultValue
	}
	return intValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Float64("default", defaultValue).Msg("invalid float value, using default")
		return defaultValue
	}
	return floatValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Bool("default", defaultValue).Msg("invalid boolean value, using default")
		return defaultValue
	}
	return boolValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Dur("default", defaultValue).Msg("invalid duration value, using default")
		return defaultValue
	}
	return duration
}

// getListEnv splits a comma-separated value, dropping empty entries
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
