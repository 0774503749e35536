package main

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsweep/internal/config"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one aggregation and exit",
	Long:  "Searches every keyword in every scope once, records new listings in the cache, notifies, and exits.",
	RunE:  runOnce,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}
	logConfig(logger, cfg)

	a, err := buildApp(cfg, appOptions{}, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := a.engine.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if report != nil && report.NotifyErr != nil {
		return report.NotifyErr
	}
	return nil
}

func logConfig(logger *slog.Logger, cfg *config.Config) {
	logger.Info("config loaded",
		"keywords", len(cfg.Keywords),
		"scopes", len(cfg.Catalog.All()),
		"sources", len(cfg.Catalog.SourceIDs()),
		"recency_days", cfg.RecencyDays,
		"limit_per_scope", cfg.LimitPerScope,
		"cache", cfg.Cache.Backend,
		"notification", cfg.Notification.Type,
	)
}
