package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Backend names the rule store implementation.
type Backend string

const (
	BackendPostgres Backend = "postgres"
	BackendSQLite   Backend = "sqlite"
)

type Config struct {
	DatabaseURI   string
	TelegramToken string
	AdminID       int64
	Location      *time.Location

	AIAPIKey  string
	AIAuthURL string
	AIScope   string
	AIBaseURL string
	AIModel   string

	LogLevel  string
	LogFormat string

	NotifyRate      float64
	NotifyTimeout   time.Duration
	StoreTimeout    time.Duration
	DeliveryWorkers int
	ControlsTTL     time.Duration
}

// Load reads envFile when present, then the environment. A missing env file
// is not an error; an unparsable value is.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg := &Config{
		DatabaseURI:   os.Getenv("DATABASE_URI"),
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		AIAPIKey:      os.Getenv("AI_API_KEY"),
		AIAuthURL:     os.Getenv("AI_AUTH_URL"),
		AIScope:       getEnvOrDefault("AI_SCOPE", "GIGACHAT_API_PERS"),
		AIBaseURL:     getEnvOrDefault("AI_BASE_URL", "https://gigachat.devices.sberbank.ru/api/v1"),
		AIModel:       getEnvOrDefault("AI_MODEL", "GigaChat"),
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:     getEnvOrDefault("LOG_FORMAT", "console"),
	}

	var err error
	if raw := os.Getenv("ADMIN_ID"); raw != "" {
		if cfg.AdminID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, fmt.Errorf("ADMIN_ID must be a Telegram user id, got %q", raw)
		}
	}

	tz := getEnvOrDefault("TIMEZONE", "Europe/Moscow")
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", tz, err)
	}

	if cfg.NotifyRate, err = getFloat("NOTIFY_RATE", 25); err != nil {
		return nil, err
	}
	if cfg.DeliveryWorkers, err = getInt("DELIVERY_WORKERS", 8); err != nil {
		return nil, err
	}
	if cfg.NotifyTimeout, err = getDuration("NOTIFY_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.StoreTimeout, err = getDuration("STORE_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.ControlsTTL, err = getDuration("CONTROLS_TTL", 10*time.Second); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Backend selects the store from the DATABASE_URI scheme.
func (c *Config) Backend() (Backend, error) {
	switch {
	case c.DatabaseURI == "":
		return "", errors.New("DATABASE_URI is required")
	case strings.HasPrefix(c.DatabaseURI, "postgres://"), strings.HasPrefix(c.DatabaseURI, "postgresql://"):
		return BackendPostgres, nil
	case strings.HasPrefix(c.DatabaseURI, "sqlite://"), strings.HasPrefix(c.DatabaseURI, "file:"):
		return BackendSQLite, nil
	}
	return "", fmt.Errorf("DATABASE_URI: unsupported scheme in %q", c.DatabaseURI)
}

// SQLitePath is the file path of a sqlite:// or file: URI.
func (c *Config) SQLitePath() string {
	if p, ok := strings.CutPrefix(c.DatabaseURI, "sqlite://"); ok {
		return p
	}
	return strings.TrimPrefix(c.DatabaseURI, "file:")
}

// UsesOAuth reports whether AI_API_KEY is a Basic key exchanged at
// AI_AUTH_URL rather than a bearer key used as is.
func (c *Config) UsesOAuth() bool {
	return c.AIAuthURL != ""
}

// Validate checks what the bot needs to run.
func (c *Config) Validate() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_TOKEN is required")
	}
	_, err := c.Backend()
	return err
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return n, nil
}

func getFloat(key string, def float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("%s must be a positive number, got %q", key, raw)
	}
	return f, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration such as 10s, got %q", key, raw)
	}
	return d, nil
}
