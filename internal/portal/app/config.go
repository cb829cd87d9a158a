package app

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	BackendBaseURL string        // Required: base URL of the enrolment backend API
	FetchTimeout   time.Duration // Optional: per-request timeout for backend fetches (default: 5s)

	SessionBackend string        // Optional: snapshot store driver (memory, sqlite, redis) (default: sqlite)
	SessionDBFile  string        // Optional: path to SQLite snapshot database (default: ./portal.db)
	RedisAddr      string        // Optional: redis address for the redis backend (default: localhost:6379)
	RedisPassword  string        // Optional: redis password
	SessionTTL     time.Duration // Optional: session lifetime (default: 24h)

	SealKey      string // Optional: hex-encoded 32-byte snapshot sealing key (random per boot if empty)
	CookieSecret string // Optional: session cookie signing secret (random per boot if empty)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Session sweep interval (default: 15m)
}

// fileConfig is the YAML shape of an optional config file. Only set fields
// override the defaults; environment variables win over both.
type fileConfig struct {
	BackendBaseURL string `yaml:"backend_base_url"`
	FetchTimeout   string `yaml:"fetch_timeout"`

	SessionBackend string `yaml:"session_backend"`
	SessionDBFile  string `yaml:"session_db_file"`
	RedisAddr      string `yaml:"redis_addr"`
	SessionTTL     string `yaml:"session_ttl"`

	Env                  string `yaml:"env"`
	LogLevel             string `yaml:"log_level"`
	LogFormat            string `yaml:"log_format"`
	Port                 int    `yaml:"port"`
	ShutdownGracePeriod  string `yaml:"shutdown_grace_period"`
	HousekeepingInterval string `yaml:"housekeeping_interval"`
}

// LoadConfig builds the configuration in three layers: built-in defaults, the
// optional YAML file named by PORTAL_CONFIG_FILE, then environment variables.
func LoadConfig() (Config, error) {
	cfg := Config{
		BackendBaseURL:       "http://localhost:3000",
		FetchTimeout:         5 * time.Second,
		SessionBackend:       "sqlite",
		SessionDBFile:        "portal.db",
		RedisAddr:            "localhost:6379",
		SessionTTL:           24 * time.Hour,
		Env:                  "dev",
		LogLevel:             "info",
		LogFormat:            "json",
		Port:                 8080,
		ShutdownGracePeriod:  10 * time.Second,
		HousekeepingInterval: 15 * time.Minute,
	}

	if path := os.Getenv("PORTAL_CONFIG_FILE"); path != "" {
		if err := overlayFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	overlayEnv(&cfg)

	return cfg, nil
}

func overlayFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.BackendBaseURL, fc.BackendBaseURL)
	setString(&cfg.SessionBackend, fc.SessionBackend)
	setString(&cfg.SessionDBFile, fc.SessionDBFile)
	setString(&cfg.RedisAddr, fc.RedisAddr)
	setString(&cfg.Env, fc.Env)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFormat, fc.LogFormat)
	setDuration(&cfg.FetchTimeout, fc.FetchTimeout)
	setDuration(&cfg.SessionTTL, fc.SessionTTL)
	setDuration(&cfg.ShutdownGracePeriod, fc.ShutdownGracePeriod)
	setDuration(&cfg.HousekeepingInterval, fc.HousekeepingInterval)
	if fc.Port != 0 {
		cfg.Port = fc.Port
	}
	return nil
}

func overlayEnv(cfg *Config) {
	cfg.BackendBaseURL = getEnvOrDefault("PORTAL_BACKEND_URL", cfg.BackendBaseURL)
	cfg.FetchTimeout = getEnvDurationOrDefault("PORTAL_FETCH_TIMEOUT", cfg.FetchTimeout)

	cfg.SessionBackend = getEnvOrDefault("PORTAL_SESSION_BACKEND", cfg.SessionBackend)
	cfg.SessionDBFile = getEnvOrDefault("PORTAL_SESSION_DB_FILE", cfg.SessionDBFile)
	cfg.RedisAddr = getEnvOrDefault("PORTAL_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = os.Getenv("PORTAL_REDIS_PASSWORD")
	cfg.SessionTTL = getEnvDurationOrDefault("PORTAL_SESSION_TTL", cfg.SessionTTL)

	cfg.SealKey = os.Getenv("PORTAL_SEAL_KEY")
	cfg.CookieSecret = os.Getenv("PORTAL_COOKIE_SECRET")

	cfg.Env = getEnvOrDefault("ENV", cfg.Env)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", cfg.LogFormat)
	cfg.Port = getEnvIntOrDefault("PORT", cfg.Port)
	cfg.ShutdownGracePeriod = getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", cfg.ShutdownGracePeriod)
	cfg.HousekeepingInterval = getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", cfg.HousekeepingInterval)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v string) {
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
