// Package config provides application configuration loading from environment.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Defaults applied when the corresponding variable is unset.
const (
	DefaultAPIBaseURL    = "http://localhost:8000"
	DefaultAPIHost       = "0.0.0.0"
	DefaultAPIPort       = 8000
	DefaultAPITimeoutSec = 60
	DefaultMaxFileSize   = 20 * 1024 * 1024
	DefaultMaxTextLength = 5000
	DefaultGeminiModel   = "gemini-2.5-flash"
)

// Config holds all configuration for both the bot and the API server.
type Config struct {
	BotToken string
	AdminIDs []int64

	DatabaseURL string

	APIBaseURL    string
	APIHost       string
	APIPort       int
	APITimeoutSec int
	APIDebug      bool

	LogLevel string

	MaxFileSize   int64
	MaxTextLength int

	GeminiAPIKey string
	GeminiModel  string

	YooMoneyShopID    string
	YooMoneySecretKey string
	YooMoneyReturnURL string
}

// Load reads configuration from environment variables. A .env file is
// honoured for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		BotToken:          os.Getenv("BOT_TOKEN"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		LogLevel:          os.Getenv("LOG_LEVEL"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       os.Getenv("GEMINI_MODEL"),
		YooMoneyShopID:    os.Getenv("YOOMONEY_SHOP_ID"),
		YooMoneySecretKey: os.Getenv("YOOMONEY_SECRET_KEY"),
		YooMoneyReturnURL: os.Getenv("YOOMONEY_RETURN_URL"),
	}

	cfg.APIBaseURL = DefaultAPIBaseURL
	if v := os.Getenv("API_BASE_URL"); v != "" {
		cfg.APIBaseURL = strings.TrimRight(v, "/")
	}

	cfg.APIHost = DefaultAPIHost
	if v := os.Getenv("API_HOST"); v != "" {
		cfg.APIHost = v
	}

	cfg.APIPort = DefaultAPIPort
	if v := os.Getenv("API_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 && p <= 65535 {
			cfg.APIPort = p
		}
	}

	cfg.APITimeoutSec = DefaultAPITimeoutSec
	if v := os.Getenv("API_TIMEOUT"); v != "" {
		if t, err := strconv.Atoi(v); err == nil && t > 0 {
			cfg.APITimeoutSec = t
		}
	}

	cfg.APIDebug = os.Getenv("API_DEBUG") == "true"

	cfg.MaxFileSize = DefaultMaxFileSize
	if v := os.Getenv("MAX_FILE_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MaxFileSize = n
		}
	}

	cfg.MaxTextLength = DefaultMaxTextLength
	if v := os.Getenv("MAX_TEXT_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxTextLength = n
		}
	}

	if cfg.GeminiModel == "" {
		cfg.GeminiModel = DefaultGeminiModel
	}

	adminsStr := os.Getenv("ADMIN_IDS")
	if adminsStr != "" {
		for idStr := range strings.SplitSeq(adminsStr, ",") {
			idStr = strings.TrimSpace(idStr)
			if idStr == "" {
				continue
			}
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				continue
			}
			cfg.AdminIDs = append(cfg.AdminIDs, id)
		}
	}

	return cfg, nil
}

// ValidateBot checks the configuration required by the bot process.
func (c *Config) ValidateBot() error {
	var errs []string

	if c.BotToken == "" {
		errs = append(errs, "BOT_TOKEN is required")
	}
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}

	return joinErrs(errs)
}

// ValidateAPI checks the configuration required by the API process.
func (c *Config) ValidateAPI() error {
	var errs []string

	if c.GeminiAPIKey == "" {
		errs = append(errs, "GEMINI_API_KEY is required")
	}
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}

	return joinErrs(errs)
}

func joinErrs(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
}

// PaymentsConfigured reports whether YooKassa credentials are present.
// Without them the bot still works, purchases are just disabled.
func (c *Config) PaymentsConfigured() bool {
	return c.YooMoneyShopID != "" && c.YooMoneySecretKey != ""
}

// IsAdmin checks if a Telegram user ID belongs to an administrator.
func (c *Config) IsAdmin(userID int64) bool {
	return slices.Contains(c.AdminIDs, userID)
}

// APIAddr returns the host:port the API server listens on.
func (c *Config) APIAddr() string {
	return fmt.Sprintf("%s:%d", c.APIHost, c.APIPort)
}
