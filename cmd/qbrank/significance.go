package main

import (
	"github.com/qbrtools/qbrank/internal/progress"
	"github.com/qbrtools/qbrank/internal/report"
	"github.com/qbrtools/qbrank/internal/service/analysis"
	"github.com/urfave/cli/v2"
)

func significanceCmd() *cli.Command {
	return &cli.Command{
		Name:      "significance",
		Aliases:   []string{"sig"},
		Usage:     "Test whether vendor score differences are statistically significant",
		ArgsUsage: "[survey.csv]",
		Flags: append(outputFlags(),
			&cli.StringFlag{
				Name:  "column",
				Usage: "Score column to test (default: configured column)",
			},
			&cli.Float64Flag{
				Name:  "alpha",
				Usage: "Significance level (default: configured alpha)",
			},
		),
		Action: runSignificanceCmd,
	}
}

func runSignificanceCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	svc := newService(c, cfg)

	tbl, err := svc.AnalyzeSignificance(c.Context, analysis.SignificanceOptions{
		Input:   inputArg(c),
		Column:  c.String("column"),
		Alpha:   c.Float64("alpha"),
		Spinner: progress.NewSpinner("有意差検定中..."),
	})
	if err != nil {
		return err
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(report.Significance(cfg, tbl))
}
