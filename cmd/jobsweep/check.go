package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Dry run: search once, log listings, exit",
	Long:  "One-shot run against an empty in-memory cache. Listings are logged, nothing is written to the cache and no digest is sent.",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	logger.Info("check mode: the cache is not read or written")

	a, err := buildApp(cfg, appOptions{dryRun: true}, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := a.engine.Run(ctx); err != nil {
		logger.Error("check failed", "error", err)
	}
	logger.Info("check complete")
	return nil
}
