package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"keto-planner/internal/app"
	"keto-planner/internal/logger"
	"keto-planner/internal/nutrition"
	"keto-planner/internal/server"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const metricsRetentionDays = 30

var (
	inputPath     string
	reportDays    int
	retentionDays int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		application, cfg, log, cleanup, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		srv := server.NewServer(":"+cfg.Port, server.RouterConfig{
			Service:     application,
			Log:         log,
			CORSOrigins: cfg.CORSAllowedOrigins,
			Mode:        ginMode(cfg.LogMode),
		})

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			log.Info("http server listening", "port", cfg.Port)
			return srv.Run(gctx)
		})
		g.Go(func() error {
			pruneMetrics(gctx, application, log)
			return nil
		})
		err = g.Wait()
		log.Info("server exiting")
		return err
	},
}

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Compute nutrition metrics for a JSON user input",
	RunE: func(cmd *cobra.Command, _ []string) error {
		input, err := readInput(cmd.InOrStdin())
		if err != nil {
			return err
		}
		out, err := nutrition.Calculate(input, nutrition.DefaultForecastWeeks)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), out)
	},
}

var mealPlanCmd = &cobra.Command{
	Use:   "mealplan",
	Short: "Generate a keto meal plan for a JSON user input",
	RunE: func(cmd *cobra.Command, _ []string) error {
		input, err := readInput(cmd.InOrStdin())
		if err != nil {
			return err
		}
		application, _, _, cleanup, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		plan, err := application.GenerateMealPlan(cmd.Context(), input)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), plan)
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Print token usage and stage counts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		application, _, _, cleanup, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		report, err := application.Usage(reportDays)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), report)
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "metrics-cleanup",
	Short: "Delete execution metrics older than --days",
	RunE: func(cmd *cobra.Command, _ []string) error {
		application, _, _, cleanup, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		n, err := application.Cleanup(retentionDays)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d metric rows\n", n)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{calcCmd, mealPlanCmd} {
		c.Flags().StringVarP(&inputPath, "input", "i", "-", "path to a JSON user input, - for stdin")
	}
	metricsCmd.Flags().IntVar(&reportDays, "days", 7, "number of days to report")
	cleanupCmd.Flags().IntVar(&retentionDays, "days", metricsRetentionDays, "keep metrics newer than this many days")
}

func readInput(stdin io.Reader) (nutrition.UserInput, error) {
	var input nutrition.UserInput
	r := stdin
	if inputPath != "-" {
		f, err := os.Open(inputPath)
		if err != nil {
			return input, fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(&input); err != nil {
		return input, fmt.Errorf("failed to decode input: %w", err)
	}
	return input, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func ginMode(logMode string) string {
	switch logMode {
	case "prod", "production":
		return "release"
	default:
		return "debug"
	}
}

// pruneMetrics drops old metric rows once a day until ctx is done.
func pruneMetrics(ctx context.Context, application *app.App, log *logger.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		if n, err := application.Cleanup(metricsRetentionDays); err != nil {
			log.Warn("metrics cleanup failed", "error", err)
		} else if n > 0 {
			log.Info("metrics cleanup", "deleted", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
