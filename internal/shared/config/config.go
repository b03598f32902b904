package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port           string
	GinMode        string
	APIVersion     string
	APIPrefix      string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// Reservation ledger
	Ledger LedgerConfig

	// Live reservation sync
	LiveSync LiveSyncConfig

	// Cancellation policy
	Cancellation CancellationConfig

	// Kafka event stream
	Kafka KafkaConfig

	// Rate limiting
	RateLimit RateLimitConfig

	// Logging
	LogLevel string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	DSN      string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Addr     string
	Enabled  bool

	CacheTTL time.Duration
}

// LedgerConfig holds reservation ledger tuning
type LedgerConfig struct {
	// SeatHoldTTL bounds how long a hold may sit unconverted before the
	// seats fall back to free.
	SeatHoldTTL time.Duration

	// PaymentDeadline bounds how long a PENDING_PAYMENT booking keeps its
	// seats before the sweeper cancels it.
	PaymentDeadline time.Duration

	// LockTimeout bounds how long a mutation waits for the showtime lock
	// before surfacing a retryable error.
	LockTimeout time.Duration

	// JanitorInterval is how often expired holds are swept.
	JanitorInterval time.Duration
}

// LiveSyncConfig holds broadcaster tuning
type LiveSyncConfig struct {
	// RebroadcastInterval is the staleness bound: subscribers receive a
	// fresh full snapshot at least this often.
	RebroadcastInterval time.Duration

	// SubscriberBuffer is the per-subscriber channel depth; oldest
	// snapshots are dropped on overflow.
	SubscriberBuffer int
}

// CancellationConfig holds refund policy numbers. These are policy, not
// structure, so they live in configuration.
type CancellationConfig struct {
	FullRefundAfterHours float64
	LateFeeFraction      float64
	CutoffHours          float64
}

// KafkaConfig holds event stream configuration
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled                 bool
	WindowDuration          time.Duration
	DefaultRequests         int
	BrowseRequests          int
	LiveSyncRequests        int
	BookingRequests         int
	BookingCriticalRequests int
	HealthRequests          int
	WhitelistedIPs          []string
}

// Load loads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		APIVersion:     getEnv("API_VERSION", "v1"),
		APIPrefix:      getEnv("API_PREFIX", "/api"),
		ReadTimeout:    getDurationEnv("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:   getDurationEnv("WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:    getDurationEnv("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes: getIntEnv("MAX_HEADER_BYTES", 1<<20), // 1 MB

		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "cineseat_db"),
			User:     getEnv("DB_USER", "cineseat_user"),
			Password: getEnv("DB_PASSWORD", "cineseat_password"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			Enabled:  getBoolEnv("REDIS_ENABLED", true),
			CacheTTL: getDurationEnv("REDIS_CACHE_TTL", 1*time.Hour),
		},

		Ledger: LedgerConfig{
			SeatHoldTTL:     getDurationEnv("SEAT_HOLD_TTL", 10*time.Minute),
			PaymentDeadline: getDurationEnv("PAYMENT_DEADLINE", 10*time.Minute),
			LockTimeout:     getDurationEnv("LEDGER_LOCK_TIMEOUT", 3*time.Second),
			JanitorInterval: getDurationEnv("LEDGER_JANITOR_INTERVAL", 30*time.Second),
		},

		LiveSync: LiveSyncConfig{
			RebroadcastInterval: getDurationEnv("LIVESYNC_REBROADCAST_INTERVAL", 8*time.Second),
			SubscriberBuffer:    getIntEnv("LIVESYNC_SUBSCRIBER_BUFFER", 4),
		},

		Cancellation: CancellationConfig{
			FullRefundAfterHours: getFloatEnv("CANCEL_FULL_REFUND_AFTER_HOURS", 24),
			LateFeeFraction:      getFloatEnv("CANCEL_LATE_FEE_FRACTION", 0.10),
			CutoffHours:          getFloatEnv("CANCEL_CUTOFF_HOURS", 2),
		},

		Kafka: KafkaConfig{
			Enabled: getBoolEnv("KAFKA_ENABLED", false),
			Brokers: getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_BOOKING_TOPIC", "booking-events"),
		},

		RateLimit: RateLimitConfig{
			Enabled:                 getBoolEnv("RATE_LIMIT_ENABLED", true),
			WindowDuration:          getDurationEnv("RATE_LIMIT_WINDOW_DURATION", 60*time.Second),
			DefaultRequests:         getIntEnv("RATE_LIMIT_DEFAULT_REQUESTS", 60),
			BrowseRequests:          getIntEnv("RATE_LIMIT_BROWSE_REQUESTS", 120),
			LiveSyncRequests:        getIntEnv("RATE_LIMIT_LIVESYNC_REQUESTS", 240),
			BookingRequests:         getIntEnv("RATE_LIMIT_BOOKING_REQUESTS", 30),
			BookingCriticalRequests: getIntEnv("RATE_LIMIT_BOOKING_CRITICAL_REQUESTS", 10),
			HealthRequests:          getIntEnv("RATE_LIMIT_HEALTH_REQUESTS", 120),
			WhitelistedIPs:          getStringSliceEnv("RATE_LIMIT_WHITELISTED_IPS", []string{}),
		},

		LogLevel: getEnv("LOG_LEVEL", "debug"),
	}

	// Build composite values
	cfg.Database.DSN = buildDatabaseDSN(cfg.Database)
	cfg.Redis.Addr = cfg.Redis.Host + ":" + cfg.Redis.Port

	return cfg
}

// buildDatabaseDSN builds the database connection string
func buildDatabaseDSN(db DatabaseConfig) string {
	return "host=" + db.Host +
		" port=" + db.Port +
		" user=" + db.User +
		" password=" + db.Password +
		" dbname=" + db.Name +
		" sslmode=" + db.SSLMode
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

// getFloatEnv gets a float environment variable with a fallback value
func getFloatEnv(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

// getStringSliceEnv gets a comma-separated string environment variable as a slice
func getStringSliceEnv(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		var result []string
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GinMode == "debug"
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return ":" + c.Port
}

// GetAPIBasePath returns the API base path
func (c *Config) GetAPIBasePath() string {
	return c.APIPrefix + "/" + c.APIVersion
}
