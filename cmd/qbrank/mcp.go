package main

import (
	"fmt"

	"github.com/qbrtools/qbrank/internal/mcpserver"
	"github.com/urfave/cli/v2"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start MCP (Model Context Protocol) server for LLM tool integration",
		Description: `Starts an MCP server over stdio transport that exposes qbrank's
analyzers as tools that LLMs can invoke. This enables AI assistants like
Claude to rank vendors, test significance, and audit survey data quality.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "qbrank": {
        "command": "qbrank",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - analyze_survey        Full pipeline: ranking, significance, segments, bias
  - analyze_ranking       Bias-corrected composite vendor ranking
  - analyze_bias          Respondent leniency profiles and anomaly flags
  - analyze_significance  ANOVA and Tukey HSD across vendors
  - analyze_segments      Per-segment rankings and Kruskal-Wallis tests
  - validate_dataset      Schema and quality validation`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "manifest",
				Usage: "Print the server manifest as JSON and exit",
			},
		},
		Action: runMCPCmd,
	}
}

func runMCPCmd(c *cli.Context) error {
	if c.Bool("manifest") {
		data, err := mcpserver.GenerateManifest(version)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	server := mcpserver.NewServer(version)
	return server.Run(c.Context)
}
