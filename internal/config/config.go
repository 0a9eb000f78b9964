package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	PublicBaseURL string

	// Scheduling defaults
	Timezone               string
	BusinessHoursStart     string
	BusinessHoursEnd       string
	SlotIntervalMinutes    int
	MaxSlotsPerDay         int
	DefaultDurationMinutes int
	DefaultMeetingType     string

	// Session storage
	UseMemorySessions bool
	SessionTTL        time.Duration
	HistoryLimit      int
	RedisAddr         string
	RedisPassword     string
	RedisTLS          bool
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),

		Timezone:               getEnv("TIMEZONE", "Asia/Kolkata"),
		BusinessHoursStart:     getEnv("BUSINESS_HOURS_START", "09:00"),
		BusinessHoursEnd:       getEnv("BUSINESS_HOURS_END", "18:00"),
		SlotIntervalMinutes:    getEnvAsInt("SLOT_INTERVAL_MINUTES", 60),
		MaxSlotsPerDay:         getEnvAsInt("MAX_SLOTS_PER_DAY", 9),
		DefaultDurationMinutes: getEnvAsInt("DEFAULT_DURATION_MINUTES", 60),
		DefaultMeetingType:     getEnv("DEFAULT_MEETING_TYPE", "Meeting"),

		UseMemorySessions: getEnvAsBool("USE_MEMORY_SESSIONS", true),
		SessionTTL:        getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		HistoryLimit:      getEnvAsInt("HISTORY_LIMIT", 20),
		RedisAddr:         getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisTLS:          getEnvAsBool("REDIS_TLS", false),
	}
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
