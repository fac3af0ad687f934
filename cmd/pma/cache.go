package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"pma/internal/storage"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the per-file result cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show result cache size",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withResultCache(cmd, func(c *storage.ResultCache) error {
			stats, err := c.Stats(newContext())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Entries: %s\nIssues:  %s\nPayload: %s\n",
				humanize.Comma(int64(stats.Entries)),
				humanize.Comma(int64(stats.Issues)),
				humanize.Bytes(uint64(stats.PayloadLen)))
			return nil
		})
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached file result",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withResultCache(cmd, func(c *storage.ResultCache) error {
			if err := c.Clear(newContext()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Result cache cleared.")
			return nil
		})
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove cached results older than cache.ttlSeconds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withResultCache(cmd, func(c *storage.ResultCache) error {
			n, err := c.Purge(newContext())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d expired entries.\n", n)
			return nil
		})
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}

func withResultCache(cmd *cobra.Command, fn func(*storage.ResultCache) error) error {
	env, err := envForRoot(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	store, err := env.openStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	ttl := time.Duration(env.cfg.Cache.TtlSeconds) * time.Second
	return fn(storage.NewResultCache(store, ttl, env.logger))
}
