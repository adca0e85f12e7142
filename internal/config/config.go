package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration values loaded from environment variables.
type Config struct {
	DatabaseURL     string
	JWTSecret       string
	HTTPPort        string
	TokenExpiration time.Duration

	// LLM transport
	OpenAIAPIKey      string
	OpenAIBaseURL     string // Empty means the default OpenAI endpoint
	OpenAIModel       string
	LLMRequestTimeout time.Duration
	LLMMaxAttempts    int
	LLMInitialDelay   time.Duration

	// Per-mode sampling temperatures
	GuardTemperature   float32
	ExtractTemperature float32
	FormatTemperature  float32

	// Pipeline limits
	RateLimitPerMinute int
	MaxMessageLength   int
	SearchLimit        int

	// Streaming
	PingInterval     time.Duration
	MaxResponseTime  time.Duration
	StreamChunkDelay time.Duration
}

// LoadConfig loads configuration from environment variables.
// It looks for a .env file first, then checks actual environment variables.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file (useful for development)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Could not load .env file. Using environment variables only.", err)
		// Don't fail if .env is not present, might be in production
	}

	dbURL := getEnv("DATABASE_URL", "")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set.")
	}

	apiKey := getEnv("OPENAI_API_KEY", "")
	if apiKey == "" {
		log.Fatal("FATAL: OPENAI_API_KEY environment variable is not set.")
	}

	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		JWTSecret:       getEnv("JWT_SECRET", "default-super-secret-key"), // CHANGE THIS IN PRODUCTION!
		DatabaseURL:     dbURL,
		TokenExpiration: time.Hour * time.Duration(getEnvInt("JWT_EXPIRATION_HOURS", 24)),

		OpenAIAPIKey:      apiKey,
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		LLMRequestTimeout: getEnvDuration("LLM_REQUEST_TIMEOUT", 30*time.Second),
		LLMMaxAttempts:    getEnvInt("LLM_MAX_ATTEMPTS", 3),
		LLMInitialDelay:   getEnvDuration("LLM_RETRY_INITIAL_DELAY", time.Second),

		GuardTemperature:   getEnvFloat32("LLM_GUARD_TEMPERATURE", 0.3),
		ExtractTemperature: getEnvFloat32("LLM_EXTRACT_TEMPERATURE", 0.3),
		FormatTemperature:  getEnvFloat32("LLM_FORMAT_TEMPERATURE", 0.7),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_MESSAGES_PER_MINUTE", 10),
		MaxMessageLength:   getEnvInt("MAX_MESSAGE_LENGTH", 4000),
		SearchLimit:        getEnvInt("SEARCH_RESULT_LIMIT", 10),

		PingInterval:     getEnvDuration("STREAM_PING_INTERVAL", 15*time.Second),
		MaxResponseTime:  getEnvDuration("STREAM_MAX_RESPONSE_TIME", 120*time.Second),
		StreamChunkDelay: getEnvDuration("STREAM_CHUNK_DELAY", 30*time.Millisecond),
	}

	log.Printf("Loaded config: Port=%s, DB_URL=***, Model=%s, TokenExp=%s, RateLimit=%d/min",
		cfg.HTTPPort, cfg.OpenAIModel, cfg.TokenExpiration, cfg.RateLimitPerMinute)

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Env variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: Invalid %s '%s', using default %d. Error: %v", key, value, fallback, err)
		return fallback
	}
	return n
}

func getEnvFloat32(key string, fallback float32) float32 {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 32)
	if err != nil {
		log.Printf("Warning: Invalid %s '%s', using default %v. Error: %v", key, value, fallback, err)
		return fallback
	}
	return float32(f)
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: Invalid %s '%s', using default %s. Error: %v", key, value, fallback, err)
		return fallback
	}
	return d
}
