package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	LogLevel string
	HTTPAddr string

	BackendURL     string
	BackendTimeout time.Duration
	AuthMode       string

	StorageBackend string
	SessionFile    string
	HandoffFile    string
	PostgresDSN    string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int

	SessionTTL   time.Duration
	HandoffTTL   time.Duration
	CookieSecure bool

	AllowedOrigins []string

	MenuDefaultScheme string
	MenuOptionCount   int
}

var (
	cfg  *Config
	once sync.Once
)

// Load reads .env (if present) and the process environment once. It panics on
// an invalid configuration; use FromEnv to get the error instead.
func Load() *Config {
	once.Do(func() {
		_ = godotenv.Load()
		c, err := FromEnv()
		if err != nil {
			panic("Invalid config: " + err.Error())
		}
		cfg = c
	})
	return cfg
}

func FromEnv() (*Config, error) {
	var errs []error
	dur := func(key, fallback string) time.Duration {
		d, err := time.ParseDuration(getEnv(key, fallback))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return d
	}
	num := func(key, fallback string) int {
		n, err := strconv.Atoi(getEnv(key, fallback))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return n
	}

	c := &Config{
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8088"),

		BackendURL:     strings.TrimRight(getEnv("BACKEND_URL", "http://127.0.0.1:8000"), "/"),
		BackendTimeout: dur("BACKEND_TIMEOUT", "15s"),
		AuthMode:       getEnv("AUTH_MODE", "remote"),

		StorageBackend: getEnv("STORAGE_BACKEND", "file"),
		SessionFile:    getEnv("SESSION_FILE", "data/sessions.json"),
		HandoffFile:    getEnv("HANDOFF_FILE", "data/handoffs.json"),
		PostgresDSN:    getEnv("POSTGRES_DSN", ""),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        num("REDIS_DB", "0"),

		SessionTTL:   dur("SESSION_TTL", "720h"),
		HandoffTTL:   dur("HANDOFF_TTL", "30m"),
		CookieSecure: getEnv("COOKIE_SECURE", "false") == "true",

		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")),

		MenuDefaultScheme: getEnv("MENU_DEFAULT_SCHEME", "4"),
		MenuOptionCount:   num("MENU_OPTION_COUNT", "5"),
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return errors.New("APP_ENV must be one of: development, staging, production")
	}
	switch c.StorageBackend {
	case "file":
		if c.SessionFile == "" || c.HandoffFile == "" {
			return errors.New("File storage requires SESSION_FILE and HANDOFF_FILE to be set")
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required when STORAGE_BACKEND=postgres")
		}
	case "redis":
		if c.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required when STORAGE_BACKEND=redis")
		}
	default:
		return errors.New("STORAGE_BACKEND must be one of: file, postgres, redis")
	}
	if c.AuthMode != "remote" && c.AuthMode != "local" {
		return errors.New("AUTH_MODE must be one of: remote, local")
	}
	if c.AuthMode == "local" && c.Env != "development" {
		return errors.New("AUTH_MODE=local is only allowed when APP_ENV=development")
	}
	if c.BackendURL == "" {
		return errors.New("BACKEND_URL is required")
	}
	if c.BackendTimeout <= 0 || c.SessionTTL <= 0 || c.HandoffTTL <= 0 {
		return errors.New("BACKEND_TIMEOUT, SESSION_TTL and HANDOFF_TTL must be positive")
	}
	if c.MenuOptionCount < 1 {
		return errors.New("MENU_OPTION_COUNT must be at least 1")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
