package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var _ = godotenv.Load("dev.env")

// Config carries everything the runner wires together. All values come from
// the environment with working defaults, so a bare `market-ingestor assets`
// against a local database needs no dev.env at all.
type Config struct {
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	APIBaseURL string
	APIKey     string
	APITimeout time.Duration

	ListenAddr string

	MaxRequestsPerWindow int
	WindowDuration       time.Duration
	MinRequestInterval   time.Duration

	MaxRetries uint64
	BaseDelay  time.Duration

	// Tunable on purpose: the source values were never validated against
	// upstream behavior, operators may need to adjust them.
	SkipThreshold    time.Duration
	DensityThreshold float64

	SeriesEpochStart time.Time

	LogLevel  string
	LogFormat string
}

func Load() Config {
	return Config{
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBName:     getEnv("DB_NAME", "cryptodash"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTL:      getEnvDuration("CACHE_TTL", 60*time.Second),

		APIBaseURL: getEnv("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"),
		APIKey:     getEnv("COINGECKO_API_KEY", ""),
		APITimeout: getEnvDuration("COINGECKO_TIMEOUT", 30*time.Second),

		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),

		MaxRequestsPerWindow: getEnvInt("RATE_MAX_REQUESTS", 10),
		WindowDuration:       getEnvDuration("RATE_WINDOW", time.Minute),
		MinRequestInterval:   getEnvDuration("RATE_MIN_INTERVAL", 5*time.Second),

		MaxRetries: uint64(getEnvInt("RETRY_MAX", 3)),
		BaseDelay:  getEnvDuration("RETRY_BASE_DELAY", 10*time.Second),

		SkipThreshold:    getEnvDuration("SKIP_THRESHOLD", 24*time.Hour),
		DensityThreshold: getEnvFloat("DENSITY_THRESHOLD", 0.9),

		SeriesEpochStart: getEnvDate("SERIES_EPOCH_START", time.Date(2013, 4, 28, 0, 0, 0, 0, time.UTC)),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

func (c Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
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

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvDate(key string, fallback time.Time) time.Time {
	if v := os.Getenv(key); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			return t
		}
	}
	return fallback
}
