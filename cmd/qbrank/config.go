package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/pelletier/go-toml"
	"github.com/qbrtools/qbrank/pkg/config"
	"github.com/urfave/cli/v2"
)

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect the effective configuration",
		Description: `Shows or checks the configuration the other commands would use: the
--config flag when set, otherwise the first qbrank config file found
in ., .qbrank/, or config/.`,
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the effective configuration as TOML",
				Action: runConfigShowCmd,
			},
			{
				Name:   "validate",
				Usage:  "Check the configuration for problems",
				Action: runConfigValidateCmd,
			},
		},
	}
}

// resolveConfig loads the config the same way the analysis commands do, also
// reporting which file it came from ("" for built-in defaults).
func resolveConfig(c *cli.Context) (*config.Config, string, error) {
	path := c.String("config")
	if path == "" {
		path = config.Discover()
	}
	if path == "" {
		return config.DefaultConfig(), "", nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return cfg, path, nil
}

func runConfigShowCmd(c *cli.Context) error {
	cfg, path, err := resolveConfig(c)
	if err != nil {
		return err
	}

	if path != "" {
		fmt.Printf("# Configuration from: %s\n\n", path)
	} else {
		fmt.Print("# Default configuration (no config file found)\n\n")
	}

	content, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config to TOML: %w", err)
	}
	fmt.Print(string(content))
	return nil
}

func runConfigValidateCmd(c *cli.Context) error {
	cfg, path, err := resolveConfig(c)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		color.Red("Configuration validation failed:")
		for _, line := range strings.Split(err.Error(), "\n") {
			fmt.Printf("  - %s\n", line)
		}
		os.Exit(1)
	}

	for _, w := range cfg.Warnings() {
		color.Yellow("Warning: %s", w)
	}

	if path != "" {
		color.Green("Configuration valid: %s", path)
	} else {
		color.Yellow("No config file found. Default configuration is valid.")
	}
	return nil
}
