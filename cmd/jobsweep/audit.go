package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsweep/internal/audit"
	"github.com/amishk599/jobsweep/internal/engine"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Browse one search interactively (TUI)",
	Long:  "Pick a scope and keyword, then browse everything found next to what a run would report. Nothing is written to the cache.",
	RunE:  runAuditCmd,
}

func init() {
	rootCmd.AddCommand(auditCmd)
}

func runAuditCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Log lines written while the TUI owns the terminal corrupt the display.
	silent := newLogger(io.Discard, false)

	a, err := buildApp(cfg, appOptions{preview: true}, silent)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scopes := cfg.Catalog.All()
	scopeOpts := make([]audit.Option, len(scopes))
	for i, s := range scopes {
		scopeOpts[i] = audit.Option{Label: s.Name, Detail: fmt.Sprintf("%s, %d sources", s.Region, len(s.Sources))}
	}
	keywordOpts := make([]audit.Option, len(cfg.Keywords))
	for i, k := range cfg.Keywords {
		keywordOpts[i] = audit.Option{Label: k}
	}

	for {
		si, err := audit.RunPicker("Audit: select a scope", scopeOpts)
		if err != nil || si < 0 {
			return err
		}
		scope := scopes[si]

		ki, err := audit.RunPicker("Audit: select a keyword for "+scope.Name, keywordOpts)
		if err != nil {
			return err
		}
		if ki < 0 {
			continue
		}
		keyword := cfg.Keywords[ki]

		res, err := audit.RunLoader(ctx, fmt.Sprintf("%q in %s", keyword, scope.Name), func(ctx context.Context) (*engine.PreviewResult, error) {
			return a.engine.Preview(ctx, keyword, scope.Code)
		})
		if errors.Is(err, audit.ErrCancelled) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Preview failed: %v\n", err)
			continue
		}

		wantQuit, err := audit.RunAuditTUI(res)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "TUI error: %v\n", err)
		}
		if wantQuit {
			return nil
		}
	}
}
