package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Booking flows
	FlowIdleTTL         time.Duration
	FlowSweepInterval   time.Duration
	AssignmentDelay     time.Duration
	NotificationTTL     time.Duration
	ConfirmationTimeout time.Duration
	UseInMemoryBookings bool
	CORSAllowedOrigins  []string
	RateLimitPerSecond  float64
	RateLimitBurst      int
	ProviderJWTSecret   string
	ChatBackendURL      string
	ChatAPIKey          string
	ChatModel           string
	ChatTimeout         time.Duration
	ChatTranscriptLimit int64
	ChatTranscriptTTL   time.Duration

	// Outbox delivery
	OutboxInterval     time.Duration
	OutboxBatchSize    int
	BookingEventsQueue string
	OutboxMaxAttempts  int
	ProcessedRetention time.Duration
	EmailProvider      string
	EmailFromAddress   string
	EmailFromName      string
	SendGridAPIKey     string

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8080"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		FlowIdleTTL:         getEnvAsDuration("FLOW_IDLE_TTL", 30*time.Minute),
		FlowSweepInterval:   getEnvAsDuration("FLOW_SWEEP_INTERVAL", time.Minute),
		AssignmentDelay:     getEnvAsDuration("ASSIGNMENT_DELAY", 0),
		NotificationTTL:     getEnvAsDuration("NOTIFICATION_TTL", 10*time.Minute),
		ConfirmationTimeout: getEnvAsDuration("CONFIRMATION_TIMEOUT", 10*time.Second),
		UseInMemoryBookings: getEnvAsBool("USE_IN_MEMORY_BOOKINGS", false),
		CORSAllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		RateLimitPerSecond:  getEnvAsFloat("RATE_LIMIT_PER_SECOND", 10),
		RateLimitBurst:      getEnvAsInt("RATE_LIMIT_BURST", 20),
		ProviderJWTSecret:   getEnv("PROVIDER_JWT_SECRET", ""),
		ChatBackendURL:      getEnv("CHAT_BACKEND_URL", ""),
		ChatAPIKey:          getEnv("CHAT_API_KEY", ""),
		ChatModel:           getEnv("CHAT_MODEL", ""),
		ChatTimeout:         getEnvAsDuration("CHAT_TIMEOUT", 60*time.Second),
		ChatTranscriptLimit: int64(getEnvAsInt("CHAT_TRANSCRIPT_LIMIT", 100)),
		ChatTranscriptTTL:   getEnvAsDuration("CHAT_TRANSCRIPT_TTL", 24*time.Hour),

		OutboxInterval:     getEnvAsDuration("OUTBOX_INTERVAL", 2*time.Second),
		OutboxBatchSize:    getEnvAsInt("OUTBOX_BATCH_SIZE", 25),
		BookingEventsQueue: getEnv("BOOKING_EVENTS_QUEUE_URL", ""),
		OutboxMaxAttempts:  getEnvAsInt("OUTBOX_MAX_ATTEMPTS", 8),
		ProcessedRetention: getEnvAsDuration("PROCESSED_EVENT_RETENTION", 30*24*time.Hour),
		EmailProvider:      strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		EmailFromAddress:   getEnv("EMAIL_FROM_ADDRESS", ""),
		EmailFromName:      getEnv("EMAIL_FROM_NAME", "CareHub"),
		SendGridAPIKey:     getEnv("SENDGRID_API_KEY", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
	}
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c != nil && strings.EqualFold(c.Env, "production")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping empty entries.
func getEnvAsList(key string, defaultValue []string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
