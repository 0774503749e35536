package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsweep/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Identity cache subcommands",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the identity cache",
	RunE:  runCacheStats,
}

var pruneOlderThan time.Duration

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop cache entries first seen before a cutoff",
	Long:  "Removes entries first seen longer ago than --older-than. Entries without a first-seen time are kept.",
	RunE:  runCachePrune,
}

func init() {
	cachePruneCmd.Flags().DurationVar(&pruneOlderThan, "older-than", 90*24*time.Hour, "minimum age of entries to remove")
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd, cachePruneCmd)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	backend, closeFn, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	c, err := backend.Load()
	if err != nil {
		return fmt.Errorf("loading cache: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Cache: %s (%s)\n", cfg.Cache.Path, cfg.Cache.Backend)
	writeStats(out, summarize(c))
	return nil
}

func runCachePrune(cmd *cobra.Command, args []string) error {
	if pruneOlderThan <= 0 {
		return fmt.Errorf("--older-than must be positive")
	}
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	backend, closeFn, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	if cfg.Cache.Lock {
		lock := cache.NewLock(cfg.Cache.Path)
		if err := lock.Acquire(); err != nil {
			return err
		}
		defer lock.Release()
	}

	c, err := backend.Load()
	if err != nil {
		// Saving over a corrupt file would lose it.
		return fmt.Errorf("loading cache: %w", err)
	}
	removed := c.Prune(time.Now().Add(-pruneOlderThan))
	if removed == 0 {
		logger.Info("nothing to prune", "entries", c.Len())
		return nil
	}
	if err := backend.Save(c); err != nil {
		return fmt.Errorf("saving cache: %w", err)
	}
	logger.Info("cache pruned", "removed", removed, "remaining", c.Len())
	return nil
}

type cacheStats struct {
	Entries   int
	Undated   int
	Oldest    time.Time
	Newest    time.Time
	ByTerm    map[string]int
	ByCountry map[string]int
}

func summarize(c *cache.Cache) cacheStats {
	st := cacheStats{ByTerm: make(map[string]int), ByCountry: make(map[string]int)}
	for _, e := range c.Entries() {
		st.Entries++
		st.ByTerm[e.SearchTerm]++
		country := e.Country
		if country == "" {
			country = "(global)"
		}
		st.ByCountry[country]++

		if e.FirstSeen.IsZero() {
			st.Undated++
			continue
		}
		if st.Oldest.IsZero() || e.FirstSeen.Before(st.Oldest) {
			st.Oldest = e.FirstSeen.Time
		}
		if e.FirstSeen.After(st.Newest) {
			st.Newest = e.FirstSeen.Time
		}
	}
	return st
}

func writeStats(out io.Writer, st cacheStats) {
	fmt.Fprintf(out, "Entries: %d (%d without first-seen time)\n", st.Entries, st.Undated)
	if !st.Oldest.IsZero() {
		fmt.Fprintf(out, "First seen: %s .. %s\n", st.Oldest.Format(cache.TimestampLayout), st.Newest.Format(cache.TimestampLayout))
	}
	writeCounts(out, "By search term", st.ByTerm)
	writeCounts(out, "By country", st.ByCountry)
}

func writeCounts(out io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	fmt.Fprintf(out, "\n%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(out, "  %-28s %d\n", k, counts[k])
	}
}
