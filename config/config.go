package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	Environment string

	// Database
	DatabaseURL string
	RedisURL    string

	// JWT (session tokens minted by the auth provider)
	JWTSecret string

	// OpenAI
	OpenAIAPIKey   string
	LLMModel       string
	LLMMaxTokens   int
	LLMTemperature float64

	// OAuth - Google
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Scan pipeline
	ScanMaxResults   int           // messages fetched per scan request
	ScanRecencyDays  int           // mailbox recency window
	ClassifyBatch    int           // LLM-call batch size
	ClassifyParallel int           // concurrent classification calls per batch
	DetailFetchDelay time.Duration // throttle before each detail fetch

	// Queue consumer
	ConsumerID        string
	ConsumerIdleSleep time.Duration

	// Fast-store mirror
	ProcessedTTL time.Duration

	// CORS
	AllowedOrigins []string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),

		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4"),
		LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 500),
		LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0.3),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),

		ScanMaxResults:   getEnvInt("SCAN_MAX_RESULTS", 100),
		ScanRecencyDays:  getEnvInt("SCAN_RECENCY_DAYS", 7),
		ClassifyBatch:    getEnvInt("CLASSIFY_BATCH_SIZE", 5),
		ClassifyParallel: getEnvInt("CLASSIFY_CONCURRENCY", 5),
		DetailFetchDelay: time.Duration(getEnvInt("DETAIL_FETCH_DELAY_MS", 100)) * time.Millisecond,

		ConsumerID:        getEnv("CONSUMER_ID", defaultConsumerID()),
		ConsumerIdleSleep: time.Duration(getEnvInt("CONSUMER_IDLE_SLEEP_MS", 1000)) * time.Millisecond,

		ProcessedTTL: time.Duration(getEnvInt("PROCESSED_TTL_HOURS", 24)) * time.Hour,

		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", nil),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// defaultConsumerID derives a unique consumer name from hostname and PID.
func defaultConsumerID() string {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "consumer"
	}
	return fmt.Sprintf("%s-%d", hostname, os.Getpid())
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	}
	return fallback
}
