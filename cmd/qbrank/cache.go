package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/qbrtools/qbrank/internal/cache"
	"github.com/urfave/cli/v2"
)

func cacheCmd() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage the analysis result cache",
		Subcommands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show cache statistics",
				Action: runCacheStatsCmd,
			},
			{
				Name:   "clear",
				Usage:  "Remove all cached results",
				Action: runCacheClearCmd,
			},
			{
				Name:   "prune",
				Usage:  "Remove expired cache entries",
				Action: runCachePruneCmd,
			},
		},
	}
}

func openCache(c *cli.Context) (*cache.Cache, string, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, "", err
	}
	store, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, true)
	if err != nil {
		return nil, "", err
	}
	return store, cfg.Cache.Dir, nil
}

func runCacheStatsCmd(c *cli.Context) error {
	store, dir, err := openCache(c)
	if err != nil {
		return err
	}

	stats, err := store.GetStats()
	if err != nil {
		return err
	}

	fmt.Printf("キャッシュ: %s\n", dir)
	fmt.Printf("エントリ数: %d\n", stats.Entries)
	fmt.Printf("合計サイズ: %s\n", formatBytes(stats.TotalSize))
	if stats.Entries > 0 {
		fmt.Printf("最古: %s前 / 最新: %s前\n",
			stats.OldestAge.Round(time.Second), stats.NewestAge.Round(time.Second))
	}
	return nil
}

func runCacheClearCmd(c *cli.Context) error {
	store, dir, err := openCache(c)
	if err != nil {
		return err
	}
	if err := store.Clear(); err != nil {
		return err
	}
	color.Green("キャッシュを削除しました: %s", dir)
	return nil
}

func runCachePruneCmd(c *cli.Context) error {
	store, _, err := openCache(c)
	if err != nil {
		return err
	}
	removed, err := store.Prune()
	if err != nil {
		return err
	}
	color.Green("期限切れエントリを%d件削除しました", removed)
	return nil
}
