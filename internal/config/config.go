package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	ServerPort string
	ServerHost string

	// Identity token verification
	AuthSecret string

	// Presence state machine thresholds
	IdleTimeout time.Duration
	AwayTimeout time.Duration

	// Sweep / eviction
	SweepInterval        time.Duration
	CanvasRetention      time.Duration // empty-canvas retention before eviction
	CursorThrottleSweep  time.Duration // stale cursor-throttle entry retention
	CursorThrottleWindow time.Duration // min gap between cursor_move log events

	// Activity log
	ActivityLogCap int

	// Session transport
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	ReconnectTokenTTL time.Duration

	// Persistence dispatcher
	PersistWorkers   int
	PersistQueueSize int

	// Observability
	JaegerEndpoint string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "drawboard"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		ServerPort: getEnv("SERVER_PORT", "8080"),
		ServerHost: getEnv("SERVER_HOST", "localhost"),

		AuthSecret: getEnv("AUTH_SECRET", ""),

		IdleTimeout: getEnvDuration("IDLE_TIMEOUT", 2*time.Minute),
		AwayTimeout: getEnvDuration("AWAY_TIMEOUT", 5*time.Minute),

		SweepInterval:        getEnvDuration("SWEEP_INTERVAL", 10*time.Minute),
		CanvasRetention:      getEnvDuration("CANVAS_RETENTION", 30*time.Minute),
		CursorThrottleSweep:  getEnvDuration("CURSOR_THROTTLE_SWEEP", 10*time.Minute),
		CursorThrottleWindow: getEnvDuration("CURSOR_THROTTLE_WINDOW", 5*time.Second),

		ActivityLogCap: getEnvInt("ACTIVITY_LOG_CAP", 100),

		HeartbeatInterval: getEnvDuration("HEARTBEAT_INTERVAL", 54*time.Second),
		HeartbeatTimeout:  getEnvDuration("HEARTBEAT_TIMEOUT", 60*time.Second),
		ReconnectTokenTTL: getEnvDuration("RECONNECT_TOKEN_TTL", 5*time.Minute),

		PersistWorkers:   getEnvInt("PERSIST_WORKERS", 2),
		PersistQueueSize: getEnvInt("PERSIST_QUEUE_SIZE", 256),

		JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
	}

	if cfg.AuthSecret == "" {
		return nil, fmt.Errorf("AUTH_SECRET is required")
	}

	return cfg, nil
}

func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
