package config

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "CORS_ALLOWED_ORIGINS", "STORE_DRIVER", "SUPABASE_URL", "SUPABASE_KEY",
		"DATABASE_URL", "SQLITE_PATH", "AUTH_PROVIDER", "LLM_PROVIDER",
		"OPENROUTER_API_KEY", "OPENROUTER_BASE_URL", "OPENROUTER_MODEL",
		"ARK_API_KEY", "ARK_ACCESS_KEY", "ARK_SECRET_KEY", "ARK_MODEL",
		"LLM_TEMPERATURE", "LLM_TOP_P", "LLM_MAX_TOKENS",
		"CHAT_HISTORY_LIMIT", "CHAT_SERIALIZE_SESSIONS", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, StoreSupabase, cfg.Store.Driver)
	assert.Equal(t, "./data/boardroom.db", cfg.Store.SQLitePath)
	assert.Equal(t, AuthSupabase, cfg.Auth.Provider)
	assert.Equal(t, ProviderOpenAI, cfg.AI.Provider)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.AI.OpenAIBaseURL)
	assert.Equal(t, "openai/gpt-4o-mini", cfg.AI.ModelName())
	assert.Equal(t, 8, cfg.Chat.HistoryLimit)
	assert.False(t, cfg.Chat.SerializeSessions)
	assert.Equal(t, "info", cfg.Log.Level)

	err = cfg.Validate()
	require.Error(t, err)
	for _, key := range []string{"SUPABASE_URL", "SUPABASE_KEY", "OPENROUTER_API_KEY"} {
		assert.Contains(t, err.Error(), key)
	}
	assert.Equal(t, 1, strings.Count(err.Error(), "SUPABASE_URL"))
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173, https://boardroom.app")
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("AUTH_PROVIDER", "memory")
	t.Setenv("LLM_PROVIDER", "ark")
	t.Setenv("ARK_API_KEY", "ark-key")
	t.Setenv("ARK_MODEL", "doubao-pro")
	t.Setenv("LLM_TEMPERATURE", "0.3")
	t.Setenv("CHAT_HISTORY_LIMIT", "0")
	t.Setenv("CHAT_SERIALIZE_SESSIONS", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, []string{"http://localhost:5173", "https://boardroom.app"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, StoreSQLite, cfg.Store.Driver)
	assert.Equal(t, "doubao-pro", cfg.AI.ModelName())
	require.NotNil(t, cfg.AI.Temperature)
	assert.InDelta(t, 0.3, *cfg.AI.Temperature, 1e-9)
	assert.Equal(t, 1, cfg.Chat.HistoryLimit)
	assert.True(t, cfg.Chat.SerializeSessions)
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "80 80")
	_, err := Load()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("CHAT_SERIALIZE_SESSIONS", "maybe")
	_, err = Load()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("LLM_MAX_TOKENS", "lots")
	_, err = Load()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("STORE_DRIVER", "mongo")
	cfg, err := Load()
	require.NoError(t, err)
	assert.ErrorContains(t, cfg.Validate(), "STORE_DRIVER")
}

func TestWarningsAndMasking(t *testing.T) {
	cfg := &Config{Store: StoreConfig{SupabaseKey: "sb_publishable_abcdef"}}
	require.Len(t, cfg.Warnings(), 1)
	assert.Contains(t, cfg.Warnings()[0], "RLS")

	cfg.Store.SupabaseKey = "eyJhbGciOiJIUzI1NiJ9"
	require.Len(t, cfg.Warnings(), 1)
	assert.Contains(t, cfg.Warnings()[0], "unexpected format")

	cfg.Store.SupabaseKey = "sb_secret_123"
	assert.Empty(t, cfg.Warnings())

	assert.Equal(t, "[NOT SET]", MaskSecret(""))
	assert.Equal(t, "SET (sb_secret_12...)", MaskSecret("sb_secret_123456"))
	assert.Equal(t, "SET (short...)", MaskSecret("short"))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"key":"value"`)

	assert.True(t, LogConfig{Level: "debug"}.NewLogger(&buf).Enabled(context.Background(), slog.LevelDebug))
	assert.False(t, LogConfig{Level: "bogus"}.NewLogger(&buf).Enabled(context.Background(), slog.LevelDebug))
}
