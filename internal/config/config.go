package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port       string
	Env        string
	CORSOrigin string
	StaticDir  string

	// Catalog
	CatalogFile  string
	HubAPIURL    string
	HubPageSize  int
	HubTimeout   time.Duration
	SyncSchedule string
	SyncOnStart  bool

	// LLM
	LLMProvider     string
	LLMBaseURL      string
	LLMModel        string
	LLMAPIKey       string
	LLMTimeout      time.Duration
	MaxTokens       int
	Temperature     float64
	ChatMaxAttempts int
	ChatRetryDelay  time.Duration
	ChatTimeout     time.Duration

	// Sessions
	SessionTTL           time.Duration
	SessionSweepSchedule string

	// Redis (optional, enables cross-process event fan-out)
	RedisURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:       getEnvOrDefault("PORT", "5000"),
		Env:        getEnvOrDefault("ENV", "development"),
		CORSOrigin: getEnvOrDefault("CORS_ORIGIN", "*"),
		StaticDir:  getEnvOrDefault("STATIC_DIR", ""),

		CatalogFile:  getEnvOrDefault("CATALOG_FILE", "models.json"),
		HubAPIURL:    getEnvOrDefault("HUB_API_URL", "https://hub-api.opengradient.ai/api/v0"),
		HubPageSize:  getEnvAsIntOrDefault("HUB_PAGE_SIZE", 100),
		HubTimeout:   getEnvAsDurationOrDefault("HUB_TIMEOUT", 10*time.Second),
		SyncSchedule: getEnvOrDefault("SYNC_SCHEDULE", "@every 24h"),
		SyncOnStart:  getEnvAsBoolOrDefault("SYNC_ON_STARTUP", false),

		LLMProvider:     getEnvOrDefault("LLM_PROVIDER", "openai"),
		LLMBaseURL:      getEnvOrDefault("LLM_BASE_URL", "https://api.x.ai/v1"),
		LLMModel:        getEnvOrDefault("LLM_MODEL", "grok-3-mini-beta"),
		LLMAPIKey:       mustGetEnv("LLM_API_KEY"),
		LLMTimeout:      getEnvAsDurationOrDefault("LLM_TIMEOUT", 60*time.Second),
		MaxTokens:       getEnvAsIntOrDefault("MAX_TOKENS", 800),
		Temperature:     getEnvAsFloatOrDefault("TEMPERATURE", 0.7),
		ChatMaxAttempts: getEnvAsIntOrDefault("CHAT_MAX_ATTEMPTS", 3),
		ChatRetryDelay:  getEnvAsDurationOrDefault("CHAT_RETRY_DELAY", 2*time.Second),
		ChatTimeout:     getEnvAsDurationOrDefault("CHAT_TIMEOUT", 100*time.Second),

		SessionTTL:           getEnvAsDurationOrDefault("SESSION_TTL", 0),
		SessionSweepSchedule: getEnvOrDefault("SESSION_SWEEP_SCHEDULE", "@every 10m"),

		RedisURL: getEnvOrDefault("REDIS_URL", ""),
	}

	return cfg
}

// writeTimeoutMargin leaves room to encode a timed-out chat turn's error
// before the server drops the connection.
const writeTimeoutMargin = 15 * time.Second

// ServerWriteTimeout is the HTTP write deadline. It always outlasts a full
// chat turn.
func (c *Config) ServerWriteTimeout() time.Duration {
	return c.ChatTimeout + writeTimeoutMargin
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsFloatOrDefault(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

// getEnvAsDurationOrDefault accepts Go duration strings ("24h", "2s").
func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
