package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Completion provider (OpenAI-compatible Gemini endpoint)
	GeminiAPIKey    string
	GeminiBaseURL   string
	CompletionModel string

	// Support pipeline
	AgentID      string
	LogListLimit int
	// StrictPersistence makes a log-store write failure fail the whole
	// request (the reference fail-loud behaviour). Off by default:
	// the reply is returned and the failure is logged.
	StrictPersistence bool

	// Log store credential (Firestore service account JSON).
	// Empty means the store handle stays nil and log operations
	// report unavailable.
	FirebaseServiceAccount string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience. MaxRetries defaults to 0: a single failure on either
	// external call fails the request.
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Observability
	OTLPEndpoint string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 3000),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		GeminiAPIKey:    getEnv("GEMINI_2_API_KEY", ""),
		GeminiBaseURL:   getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai"),
		CompletionModel: getEnv("COMPLETION_MODEL", "gemini-2.5-flash"),

		AgentID:           getEnv("SUPPORT_AGENT_ID", "echo-support"),
		LogListLimit:      getEnvInt("LOG_LIST_LIMIT", 100),
		StrictPersistence: getEnv("STRICT_PERSISTENCE", "false") == "true",

		FirebaseServiceAccount: getEnv("FIREBASE_SERVICE_ACCOUNT", ""),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 30*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 0),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
