// Package config provides configuration loading from environment variables.
package config

import (
	"os"
	"strconv"
	"time"
)

// Tool output defaults
const (
	DefaultToolPageSizeValue = 50
	MaxToolItemsValue        = 200
)

// Config holds all configuration for the service binaries.
type Config struct {
	ConnectionString string        // IOTHUB_CONNECTION_STRING, required
	APIVersion       string        // IOTHUB_API_VERSION, default "2021-04-12"
	BaseTimeout      time.Duration // IOTHUB_BASE_TIMEOUT_MS, default 24000ms (24s)
	QueryTimeout     time.Duration // IOTHUB_QUERY_TIMEOUT_MS, default 60000ms (60s)
	PageSize         int           // IOTHUB_PAGE_SIZE, default 100
	SASTokenTTL      time.Duration // IOTHUB_SAS_TTL_MS, default 3600000ms (1h)
	TokenCacheItems  int           // TOKEN_CACHE_MAX_ITEMS, default 64
	FetchWorkers     int           // FETCH_WORKERS, default 8
	StrictPages      bool          // STRICT_PAGES, default false
	MetricsAddr      string        // METRICS_ADDR, default "" (disabled)

	// Tool output limits
	DefaultToolPageSize int // DEFAULT_TOOL_PAGE_SIZE
	MaxToolItems        int // MAX_TOOL_ITEMS, default 200

	// Logging configuration
	LogLevel      string // LOG_LEVEL, default "info"
	LogFormat     string // LOG_FORMAT, default "text"
	LogFile       string // LOG_FILE, default "" (stderr only)
	LogMaxSizeMB  int    // LOG_MAX_SIZE_MB, default 10
	LogMaxBackups int    // LOG_MAX_BACKUPS, default 5
	LogMaxAgeDays int    // LOG_MAX_AGE_DAYS, default 28
	LogCompress   bool   // LOG_COMPRESS, default true
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		ConnectionString: getEnvString("IOTHUB_CONNECTION_STRING", ""),
		APIVersion:       getEnvString("IOTHUB_API_VERSION", "2021-04-12"),
		BaseTimeout:      getEnvDurationMs("IOTHUB_BASE_TIMEOUT_MS", 24000),
		QueryTimeout:     getEnvDurationMs("IOTHUB_QUERY_TIMEOUT_MS", 60000),
		PageSize:         getEnvInt("IOTHUB_PAGE_SIZE", 100),
		SASTokenTTL:      getEnvDurationMs("IOTHUB_SAS_TTL_MS", 3600000),
		TokenCacheItems:  getEnvInt("TOKEN_CACHE_MAX_ITEMS", 64),
		FetchWorkers:     getEnvInt("FETCH_WORKERS", 8),
		StrictPages:      getEnvBool("STRICT_PAGES", false),
		MetricsAddr:      getEnvString("METRICS_ADDR", ""),

		DefaultToolPageSize: getEnvInt("DEFAULT_TOOL_PAGE_SIZE", DefaultToolPageSizeValue),
		MaxToolItems:        getEnvInt("MAX_TOOL_ITEMS", MaxToolItemsValue),

		LogLevel:      getEnvString("LOG_LEVEL", "info"),
		LogFormat:     getEnvString("LOG_FORMAT", "text"),
		LogFile:       getEnvString("LOG_FILE", ""),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 10),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 28),
		LogCompress:   getEnvBool("LOG_COMPRESS", true),
	}
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		switch v {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultVal
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDurationMs(key string, defaultMs int) time.Duration {
	ms := getEnvInt(key, defaultMs)
	return time.Duration(ms) * time.Millisecond
}
