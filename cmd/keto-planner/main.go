package main

import (
	"context"
	"fmt"
	"os"

	"keto-planner/internal/app"
	"keto-planner/internal/config"
	"keto-planner/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "keto-planner",
	Short: "Keto macro calculator and LLM meal plan generator",
	Long: `keto-planner computes BMI, BMR, TDEE and keto macro targets, and asks an LLM
for a meal plan with exactly the requested number of days and meals.

Configuration is read from the environment (and a .env file when present).`,
	SilenceUsage: true,
}

func main() {
	// A missing .env file is fine; the environment may already be populated.
	_ = godotenv.Load()

	rootCmd.AddCommand(serveCmd, calcCmd, mealPlanCmd, metricsCmd, cleanupCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads configuration and wires the application for a subcommand.
func bootstrap(ctx context.Context) (*app.App, *config.Config, *logger.Logger, func(), error) {
	cfg, err := config.NewFromEnv()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	application, cleanup, err := app.Bootstrap(ctx, cfg, log)
	if err != nil {
		log.Sync()
		return nil, nil, nil, nil, err
	}
	return application, cfg, log, func() {
		cleanup()
		log.Sync()
	}, nil
}
