package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsweep/internal/scheduler"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run on the configured schedule",
	Long:  "Runs once immediately, then on the configured schedule; blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}
	logConfig(logger, cfg)

	trigger, err := scheduler.NewTrigger(cfg.Schedule)
	if err != nil {
		logger.Error("invalid schedule", "error", err)
		return err
	}

	a, err := buildApp(cfg, appOptions{}, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := scheduler.NewScheduler(a.engine, trigger, logger).Run(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
		return err
	}

	logger.Info("goodbye")
	return nil
}
