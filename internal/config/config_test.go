package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "token")
		t.Setenv("DATABASE_URL", "postgres://localhost/cardgen")
		t.Setenv("API_BASE_URL", "")
		t.Setenv("API_PORT", "")
		t.Setenv("MAX_FILE_SIZE", "")
		t.Setenv("MAX_TEXT_LENGTH", "")
		t.Setenv("ADMIN_IDS", "")
		t.Setenv("GEMINI_MODEL", "")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, DefaultAPIBaseURL, cfg.APIBaseURL)
		require.Equal(t, DefaultAPIPort, cfg.APIPort)
		require.Equal(t, int64(DefaultMaxFileSize), cfg.MaxFileSize)
		require.Equal(t, DefaultMaxTextLength, cfg.MaxTextLength)
		require.Equal(t, DefaultGeminiModel, cfg.GeminiModel)
		require.Empty(t, cfg.AdminIDs)
	})

	t.Run("parses admin ids and skips junk", func(t *testing.T) {
		t.Setenv("ADMIN_IDS", "123, 456,,abc, 789")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, []int64{123, 456, 789}, cfg.AdminIDs)
		require.True(t, cfg.IsAdmin(456))
		require.False(t, cfg.IsAdmin(999))
	})

	t.Run("trims trailing slash on api base url", func(t *testing.T) {
		t.Setenv("API_BASE_URL", "http://api:8000/")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, "http://api:8000", cfg.APIBaseURL)
	})

	t.Run("ignores invalid numeric overrides", func(t *testing.T) {
		t.Setenv("API_PORT", "not-a-port")
		t.Setenv("MAX_FILE_SIZE", "-5")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, DefaultAPIPort, cfg.APIPort)
		require.Equal(t, int64(DefaultMaxFileSize), cfg.MaxFileSize)
	})
}

func TestValidate(t *testing.T) {
	t.Run("bot requires token and database", func(t *testing.T) {
		cfg := &Config{}
		err := cfg.ValidateBot()
		require.Error(t, err)
		require.Contains(t, err.Error(), "BOT_TOKEN is required")
		require.Contains(t, err.Error(), "DATABASE_URL is required")
	})

	t.Run("api requires gemini key", func(t *testing.T) {
		cfg := &Config{DatabaseURL: "postgres://x"}
		err := cfg.ValidateAPI()
		require.Error(t, err)
		require.Contains(t, err.Error(), "GEMINI_API_KEY is required")
	})

	t.Run("valid bot config", func(t *testing.T) {
		cfg := &Config{BotToken: "t", DatabaseURL: "d"}
		require.NoError(t, cfg.ValidateBot())
	})
}

func TestPaymentsConfigured(t *testing.T) {
	t.Parallel()

	require.False(t, (&Config{}).PaymentsConfigured())
	require.False(t, (&Config{YooMoneyShopID: "shop"}).PaymentsConfigured())
	require.True(t, (&Config{YooMoneyShopID: "shop", YooMoneySecretKey: "sk"}).PaymentsConfigured())
}

func TestAPIAddr(t *testing.T) {
	t.Parallel()

	cfg := &Config{APIHost: "127.0.0.1", APIPort: 9000}
	require.Equal(t, "127.0.0.1:9000", cfg.APIAddr())
}
