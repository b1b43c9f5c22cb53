package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	AppName string
	Env     string
	Host    string
	Port    int

	// SQLitePath is the DSN passed to the sqlite driver.
	SQLitePath string

	JWTSecret  string
	EncryptKey string

	CORSOrigins []string
	Debug       bool

	// PushEndpoint is the Expo push API URL; overridable for tests.
	PushEndpoint string

	// Per-connection realtime event rate limit.
	EventRatePerSecond float64
	EventBurst         int

	HistoryPageLimit    int
	MaxHistoryPageLimit int
	MaxContentLength    int
}

func Load() (*Config, error) {
	cfg := &Config{
		AppName: getEnv("APP_NAME", "SocialChat API"),
		Env:     getEnv("APP_ENV", "development"),
		Host:    getEnv("HTTP_HOST", "0.0.0.0"),
		Port:    getEnvAsInt("HTTP_PORT", 5000),

		SQLitePath: getEnv("SQLITE_PATH", "socialchat.db"),

		JWTSecret:  os.Getenv("JWT_SECRET"),
		EncryptKey: os.Getenv("ENCRYPTION_KEY"),

		Debug: getEnvAsBool("DEBUG", true),

		PushEndpoint: getEnv("PUSH_ENDPOINT", "https://exp.host/--/api/v2/push/send"),

		EventRatePerSecond: getEnvAsFloat("WS_EVENT_RATE", 20),
		EventBurst:         getEnvAsInt("WS_EVENT_BURST", 40),

		HistoryPageLimit:    getEnvAsInt("HISTORY_PAGE_LIMIT", 20),
		MaxHistoryPageLimit: getEnvAsInt("HISTORY_PAGE_LIMIT_MAX", 100),
		MaxContentLength:    getEnvAsInt("MAX_CONTENT_LENGTH", 5000),
	}

	cors := getEnv("CORS_ORIGINS", "")
	if cors != "" {
		parts := strings.Split(cors, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		cfg.CORSOrigins = parts
	} else {
		cfg.CORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.EncryptKey == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required")
	}

	return cfg, nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvAsInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvAsFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvAsBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
