package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromEnv(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		t.Setenv("LLM_PROVIDER", "")
		t.Setenv("GEMINI_API_KEY", "gemini_key")
		t.Setenv("GROQ_API_KEY", "groq_key")

		cfg, err := NewFromEnv()
		require.NoError(t, err)
		assert.Equal(t, ProviderGemini, cfg.LLMProvider)
		assert.Equal(t, "gemini_key", cfg.GeminiAPIKey)
		assert.Equal(t, "groq_key", cfg.GroqAPIKey)
		assert.Equal(t, 3, cfg.MealPlanMaxAttempts)
		assert.Equal(t, time.Second, cfg.MealPlanBackoffBase)
		assert.True(t, cfg.MealPlanLocalNormalize)
		assert.Equal(t, "8080", cfg.Port)
	})

	t.Run("MissingGeminiAPIKey", func(t *testing.T) {
		t.Setenv("LLM_PROVIDER", "gemini")
		t.Setenv("GEMINI_API_KEY", "")

		_, err := NewFromEnv()
		require.Error(t, err)
		assert.Equal(t, "GEMINI_API_KEY environment variable not set", err.Error())
	})

	t.Run("GroqOnlyNeedsGroqKey", func(t *testing.T) {
		t.Setenv("LLM_PROVIDER", "groq")
		t.Setenv("GROQ_API_KEY", "groq_key")
		t.Setenv("GEMINI_API_KEY", "")

		cfg, err := NewFromEnv()
		require.NoError(t, err)
		assert.Equal(t, ProviderGroq, cfg.LLMProvider)
	})

	t.Run("MissingGroqAPIKey", func(t *testing.T) {
		t.Setenv("LLM_PROVIDER", "groq")
		t.Setenv("GROQ_API_KEY", "")

		_, err := NewFromEnv()
		require.Error(t, err)
		assert.Equal(t, "GROQ_API_KEY environment variable not set", err.Error())
	})

	t.Run("UnknownProvider", func(t *testing.T) {
		t.Setenv("LLM_PROVIDER", "openai")

		_, err := NewFromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported LLM_PROVIDER")
	})

	t.Run("PipelineOverrides", func(t *testing.T) {
		t.Setenv("LLM_PROVIDER", "gemini")
		t.Setenv("GEMINI_API_KEY", "gemini_key")
		t.Setenv("MEALPLAN_MAX_ATTEMPTS", "5")
		t.Setenv("MEALPLAN_BACKOFF_BASE_MS", "250")
		t.Setenv("MEALPLAN_LOCAL_NORMALIZE", "false")

		cfg, err := NewFromEnv()
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.MealPlanMaxAttempts)
		assert.Equal(t, 250*time.Millisecond, cfg.MealPlanBackoffBase)
		assert.False(t, cfg.MealPlanLocalNormalize)
	})

	t.Run("InvalidMaxAttempts", func(t *testing.T) {
		for _, v := range []string{"0", "11", "40"} {
			t.Setenv("GEMINI_API_KEY", "gemini_key")
			t.Setenv("MEALPLAN_MAX_ATTEMPTS", v)

			_, err := NewFromEnv()
			require.Error(t, err, "MEALPLAN_MAX_ATTEMPTS=%s", v)
			assert.Contains(t, err.Error(), "between 1 and 10")
		}
	})

	t.Run("TelegramIDs", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "gemini_key")
		t.Setenv("MEALPLAN_MAX_ATTEMPTS", "")
		t.Setenv("TELEGRAM_ALLOWED_USER_IDS", "12, 34")
		t.Setenv("ADMIN_TELEGRAM_ID", "12")

		cfg, err := NewFromEnv()
		require.NoError(t, err)
		assert.Equal(t, []int64{12, 34}, cfg.TelegramAllowedUserIDs)
		assert.Equal(t, int64(12), cfg.AdminTelegramID)
	})

	t.Run("InvalidTelegramIDs", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "gemini_key")
		t.Setenv("TELEGRAM_ALLOWED_USER_IDS", "abc")

		_, err := NewFromEnv()
		require.Error(t, err)
	})
}
