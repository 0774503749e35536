package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var scopesCmd = &cobra.Command{
	Use:   "scopes",
	Short: "List configured search scopes",
	Long:  "Reads the config and prints every scope with its region and sources.",
	RunE:  runScopes,
}

func init() {
	rootCmd.AddCommand(scopesCmd)
}

func runScopes(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-16s %-22s %-14s %s\n", "Code", "Name", "Region", "Sources")
	fmt.Fprintln(out, strings.Repeat("─", 78))

	for _, s := range cfg.Catalog.All() {
		fmt.Fprintf(out, "%-16s %-22s %-14s %s\n", s.Code, s.Name, s.Region, strings.Join(s.Sources, ", "))
	}

	fmt.Fprintf(out, "\nTotal: %d scopes, %d distinct sources, %d keywords\n",
		len(cfg.Catalog.All()), len(cfg.Catalog.SourceIDs()), len(cfg.Keywords))
	return nil
}
