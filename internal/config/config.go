package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ProviderGemini = "gemini"
	ProviderGroq   = "groq"

	// MaxMealPlanAttempts bounds MEALPLAN_MAX_ATTEMPTS so the exponential backoff stays small.
	MaxMealPlanAttempts = 10
)

// Config holds the configuration for the application.
type Config struct {
	LLMProvider  string
	GeminiAPIKey string
	GeminiModel  string
	GroqAPIKey   string
	GroqModel    string
	LLMTimeout   time.Duration

	// Meal plan pipeline
	MealPlanMaxAttempts    int
	MealPlanBackoffBase    time.Duration
	MealPlanLocalNormalize bool

	DatabasePath       string
	Port               string
	LogMode            string
	CORSAllowedOrigins []string

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	provider := strings.ToLower(envOr("LLM_PROVIDER", ProviderGemini))

	geminiAPIKey := os.Getenv("GEMINI_API_KEY")
	groqAPIKey := os.Getenv("GROQ_API_KEY")

	switch provider {
	case ProviderGemini:
		if geminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
	case ProviderGroq:
		if groqAPIKey == "" {
			return nil, fmt.Errorf("GROQ_API_KEY environment variable not set")
		}
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", provider)
	}

	timeoutSeconds, err := envInt("LLM_TIMEOUT_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	maxAttempts, err := envInt("MEALPLAN_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}
	if maxAttempts < 1 || maxAttempts > MaxMealPlanAttempts {
		return nil, fmt.Errorf("MEALPLAN_MAX_ATTEMPTS must be between 1 and %d, got %d", MaxMealPlanAttempts, maxAttempts)
	}
	backoffMS, err := envInt("MEALPLAN_BACKOFF_BASE_MS", 1000)
	if err != nil {
		return nil, err
	}
	localNormalize, err := envBool("MEALPLAN_LOCAL_NORMALIZE", true)
	if err != nil {
		return nil, err
	}

	// Telegram Config (optional for the API server, required for the bot)
	allowed, err := parseIDList(os.Getenv("TELEGRAM_ALLOWED_USER_IDS"))
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS: %w", err)
	}
	var adminID int64
	if raw := strings.TrimSpace(os.Getenv("ADMIN_TELEGRAM_ID")); raw != "" {
		adminID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}

	return &Config{
		LLMProvider:            provider,
		GeminiAPIKey:           geminiAPIKey,
		GeminiModel:            envOr("GEMINI_MODEL", "gemini-2.5-flash"),
		GroqAPIKey:             groqAPIKey,
		GroqModel:              envOr("GROQ_MODEL", "llama-3.3-70b-versatile"),
		LLMTimeout:             time.Duration(timeoutSeconds) * time.Second,
		MealPlanMaxAttempts:    maxAttempts,
		MealPlanBackoffBase:    time.Duration(backoffMS) * time.Millisecond,
		MealPlanLocalNormalize: localNormalize,
		DatabasePath:           envOr("DATABASE_PATH", "data/keto-planner.db"),
		Port:                   envOr("PORT", "8080"),
		LogMode:                envOr("LOG_MODE", "dev"),
		CORSAllowedOrigins:     splitList(envOr("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")),
		TelegramBotToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL:     os.Getenv("TELEGRAM_WEBHOOK_URL"),
		TelegramAllowedUserIDs: allowed,
		AdminTelegramID:        adminID,
	}, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func envBool(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseIDList(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range splitList(raw) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
