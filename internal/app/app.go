package app

import (
	"context"
	"fmt"
	"path/filepath"

	"keto-planner/internal/config"
	"keto-planner/internal/database"
	"keto-planner/internal/llm"
	"keto-planner/internal/logger"
	"keto-planner/internal/metrics"
	"keto-planner/internal/nutrition"
	"keto-planner/internal/planner"
	"keto-planner/internal/shared"
)

// MealPlanner produces a shape-conformant plan for a request.
type MealPlanner interface {
	Generate(ctx context.Context, req planner.PlanRequest, targets planner.NutritionTargets) (*planner.MealPlan, []shared.AgentMeta, error)
}

// MetricsStore persists and reports stage executions.
type MetricsStore interface {
	RecordMetas(metas []shared.AgentMeta) error
	GetDailyUsage(days int) ([]metrics.DailyUsage, error)
	CountByAgent(days int) ([]metrics.AgentCount, error)
	Cleanup(olderThanDays int) (int64, error)
}

// App holds the application's dependencies.
type App struct {
	mealPlanner  MealPlanner
	metricsStore MetricsStore
	log          *logger.Logger
	dataDir      string
}

// NewApp creates and initializes a new App instance.
func NewApp(mealPlanner MealPlanner, metricsStore MetricsStore, log *logger.Logger, dataDir string) *App {
	if log == nil {
		log = logger.NewNop()
	}
	return &App{
		mealPlanner:  mealPlanner,
		metricsStore: metricsStore,
		log:          log,
		dataDir:      dataDir,
	}
}

// Bootstrap wires the LLM client, the metrics database and the planner from cfg.
// The returned cleanup releases them.
func Bootstrap(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, func(), error) {
	client, err := llm.NewFromConfig(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gen := planner.NewGenerator(client, planner.Options{
		MaxAttempts:      cfg.MealPlanMaxAttempts,
		BackoffBase:      cfg.MealPlanBackoffBase,
		DisableNormalize: !cfg.MealPlanLocalNormalize,
		Logger:           log.With("component", "planner"),
	})

	a := NewApp(gen, metrics.NewStore(db.SQL), log, filepath.Dir(cfg.DatabasePath))
	cleanup := func() {
		if err := db.Close(); err != nil {
			log.Warn("failed to close database", "error", err)
		}
		if err := client.Close(); err != nil {
			log.Warn("failed to close LLM client", "error", err)
		}
	}
	log.Info("application initialized", "provider", cfg.LLMProvider, "database", cfg.DatabasePath)
	return a, cleanup, nil
}

// Calculate derives the nutrition metrics for input.
func (a *App) Calculate(input nutrition.UserInput) (*nutrition.CalcOutput, error) {
	return nutrition.Calculate(input, nutrition.DefaultForecastWeeks)
}

// GenerateMealPlan computes the targets for input and asks the planner for a plan.
// Stage metrics are persisted whether or not generation succeeded.
func (a *App) GenerateMealPlan(ctx context.Context, input nutrition.UserInput) (*planner.MealPlan, error) {
	input.ApplyDefaults()
	calc, err := a.Calculate(input)
	if err != nil {
		if nutrition.IsValidationError(err) {
			return nil, &planner.Error{Kind: planner.KindInvalidInput, Message: err.Error(), Err: err}
		}
		return nil, err
	}

	req := PlanRequestFor(input)
	targets := planner.NutritionTargets{
		CaloriesTotal: calc.Macros.CaloriesTotal,
		ProteinG:      calc.Macros.ProteinG,
		FatG:          calc.Macros.FatG,
		NetCarbsG:     calc.Macros.NetCarbsG,
	}

	plan, metas, err := a.mealPlanner.Generate(ctx, req, targets)
	a.record(metas)
	if err != nil {
		a.log.Warn("meal plan generation failed", "kind", planner.KindOf(err), "error", err)
		return nil, err
	}
	return plan, nil
}

// PlanRequestFor maps the user's preferences onto a planner request.
func PlanRequestFor(input nutrition.UserInput) planner.PlanRequest {
	return planner.PlanRequest{
		Days:        input.MealPlan.Days,
		MealsPerDay: input.MealPlan.MealsPerDay,
		Dietary: planner.DietaryFlags{
			Vegan:      input.Dietary.Vegan,
			Vegetarian: input.Dietary.Vegetarian,
			Kosher:     input.Dietary.Kosher,
			Halal:      input.Dietary.Halal,
		},
	}
}

func (a *App) record(metas []shared.AgentMeta) {
	if a.metricsStore == nil || len(metas) == 0 {
		return
	}
	if err := a.metricsStore.RecordMetas(metas); err != nil {
		a.log.Warn("failed to record metrics", "error", err)
	}
}

// UsageReport summarizes token usage and stage activity.
type UsageReport struct {
	Days    int                  `json:"days"`
	Daily   []metrics.DailyUsage `json:"daily"`
	ByAgent []metrics.AgentCount `json:"by_agent"`
	Health  metrics.SysHealth    `json:"health"`
}

// Usage reports the last N days of activity.
func (a *App) Usage(days int) (*UsageReport, error) {
	if a.metricsStore == nil {
		return nil, fmt.Errorf("metrics store is not configured")
	}
	daily, err := a.metricsStore.GetDailyUsage(days)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily usage: %w", err)
	}
	byAgent, err := a.metricsStore.CountByAgent(days)
	if err != nil {
		return nil, fmt.Errorf("failed to count stage executions: %w", err)
	}
	return &UsageReport{Days: days, Daily: daily, ByAgent: byAgent, Health: a.Health()}, nil
}

// Cleanup removes metrics older than the given number of days.
func (a *App) Cleanup(olderThanDays int) (int64, error) {
	if a.metricsStore == nil {
		return 0, fmt.Errorf("metrics store is not configured")
	}
	return a.metricsStore.Cleanup(olderThanDays)
}

// Health reports process health.
func (a *App) Health() metrics.SysHealth {
	return metrics.GetSysHealth(a.dataDir)
}
