package main

import (
	"fmt"

	"github.com/qbrtools/qbrank/internal/cache"
	"github.com/qbrtools/qbrank/internal/output"
	"github.com/qbrtools/qbrank/internal/service/analysis"
	"github.com/qbrtools/qbrank/pkg/config"
	"github.com/urfave/cli/v2"
)

// loadConfig resolves the effective configuration: the --config flag wins,
// otherwise the default search locations.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.Load(path)
	}
	return config.LoadOrDefault(), nil
}

// inputArg returns the survey CSV path argument, empty when the configured
// input should be used.
func inputArg(c *cli.Context) string {
	return c.Args().First()
}

// inputPath returns the survey CSV path a command is about to analyze, for
// display purposes.
func inputPath(c *cli.Context, cfg *config.Config) string {
	if path := inputArg(c); path != "" {
		return path
	}
	return cfg.Data.InputCSV
}

// outputFlags is the shared flag set for commands that render analysis
// results.
func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: text, json, markdown, toon",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write output to file",
		},
		&cli.BoolFlag{
			Name:  "no-cache",
			Usage: "Disable result caching",
		},
	}
}

// newService builds the analysis service for one command invocation, wiring
// the result cache unless disabled by the flag or the config.
func newService(c *cli.Context, cfg *config.Config) *analysis.Service {
	opts := []analysis.Option{analysis.WithConfig(cfg)}
	if cfg.Cache.Enabled && !c.Bool("no-cache") {
		if store, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, true); err == nil {
			opts = append(opts, analysis.WithCache(store))
		}
	}
	if n := c.Int("workers"); n > 0 {
		opts = append(opts, analysis.WithWorkers(n))
	}
	return analysis.New(opts...)
}

// newFormatter builds the output formatter, letting the format flag override
// the configured default.
func newFormatter(c *cli.Context, cfg *config.Config) (*output.Formatter, error) {
	format := c.String("format")
	if format == "" {
		format = cfg.Output.Format
	}
	return output.NewFormatter(output.ParseFormat(format), c.String("output"), cfg.Output.Color)
}

// validateRate validates a probability flag value.
func validateRate(name string, rate float64) error {
	if rate < 0 || rate > 1 {
		return fmt.Errorf("--%s must be between 0 and 1 (got %g)", name, rate)
	}
	return nil
}

// formatBytes renders a byte count in human-readable units.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}
