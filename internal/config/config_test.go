package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/heartchat/backend/internal/service/ai"
)

// clearEnv blanks every variable Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "ALLOWED_ORIGINS", "SESSION_TTL", "COOKIE_SECURE", "DB_PATH",
		"AI_PROVIDER", "AI_MODEL", "Model", "ARK_API_KEY", "ARK_ACCESS_KEY", "ARK_SECRET_KEY",
		"ARK_BASE_URL", "ARK_REGION", "LOCAL_MODEL_URL", "LOCAL_MODEL_API_KEY",
		"AI_TEMPERATURE", "AI_TOP_P", "AI_MAX_TOKENS", "AI_TIMEOUT",
		"SPEECH_APP_ID", "SPEECH_ACCESS_TOKEN", "SPEECH_API_KEY", "SPEECH_ASR_ENDPOINT",
		"SPEECH_CONCURRENT_MODE", "SPEECH_ASR_LANGUAGE", "SPEECH_ASR_FORMAT",
		"SPEECH_CHUNK_INTERVAL", "SPEECH_TIMEOUT",
		"OCR_ENABLED", "TESSERACT_CMD", "OCR_LANGUAGE", "LOG_LEVEL", "LOG_DEVELOPMENT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Server.Addr)
	assert.Equal(t, 7*24*time.Hour, cfg.Server.SessionTTL)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "data/heartchat.db", cfg.Store.Path)
	assert.False(t, cfg.AI.Enabled())
	assert.Equal(t, 180*time.Second, cfg.AI.Timeout)
	assert.False(t, cfg.Speech.Enabled())
	assert.True(t, cfg.OCR.Enabled)
	assert.Equal(t, "tesseract", cfg.OCR.Command)
	assert.Equal(t, "info", cfg.Log.Level)

	opts := cfg.AI.ResponderOptions()
	assert.Equal(t, ai.DefaultOptions(), opts)
}

func TestLoadServerAddr(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "127.0.0.1:9000")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)

	t.Setenv("PORT", "80 80")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadInfersProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOCAL_MODEL_URL", "http://127.0.0.1:8081/v1")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, cfg.AI.Provider)
	assert.True(t, cfg.AI.Enabled())

	t.Setenv("ARK_API_KEY", "key")
	t.Setenv("AI_MODEL", "doubao")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, ProviderArk, cfg.AI.Provider)
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("AI_PROVIDER", "llamafile")
	_, err := Load()
	assert.ErrorContains(t, err, "AI_PROVIDER")
}

func TestResponderOptionsOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("AI_MAX_TOKENS", "256")
	t.Setenv("AI_TEMPERATURE", "0.2")
	t.Setenv("AI_TOP_P", "0.5")
	t.Setenv("AI_TIMEOUT", "45")

	cfg, err := Load()
	require.NoError(t, err)

	opts := cfg.AI.ResponderOptions()
	assert.Equal(t, 256, opts.MaxTokens)
	assert.InDelta(t, 0.2, opts.Temperature, 1e-6)
	assert.InDelta(t, 0.5, opts.TopP, 1e-6)
	assert.Equal(t, 45*time.Second, opts.Timeout)
}

func TestLoadInvalidValues(t *testing.T) {
	for key, value := range map[string]string{
		"AI_MAX_TOKENS":  "many",
		"AI_TEMPERATURE": "warm",
		"AI_TIMEOUT":     "-5s",
		"SESSION_TTL":    "forever",
		"COOKIE_SECURE":  "sometimes",
	} {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := Load()
			assert.ErrorContains(t, err, key)
		})
	}
}

func TestParseDurationEnv(t *testing.T) {
	t.Setenv("X_DURATION", "1m30s")
	d, err := parseDurationEnv("X_DURATION", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	t.Setenv("X_DURATION", "")
	d, err = parseDurationEnv("X_DURATION", time.Second)
	require.NoError(t, err)
	assert.Equal(t, time.Second, d)
}

func TestNewCompleterLocal(t *testing.T) {
	c, err := AIConfig{Provider: ProviderLocal, LocalBaseURL: "http://127.0.0.1:8081/v1"}.NewCompleter(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &ai.LocalCompleter{}, c)

	_, err = AIConfig{}.NewCompleter(context.Background())
	assert.Error(t, err)

	_, err = AIConfig{Provider: ProviderArk}.NewCompleter(context.Background())
	assert.Error(t, err)
}

func TestSpeechModel(t *testing.T) {
	clearEnv(t)
	t.Setenv("SPEECH_APP_ID", "app")
	t.Setenv("SPEECH_API_KEY", "legacy")

	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.Speech.Enabled())

	m := cfg.Speech.Model()
	assert.Equal(t, "legacy", m.AccessToken)
	assert.Equal(t, "en-US", m.Language)
	assert.Equal(t, 200*time.Millisecond, m.ChunkInterval)
	assert.True(t, m.Enabled())
}
