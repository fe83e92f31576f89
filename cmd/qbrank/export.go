package main

import (
	"path/filepath"

	"github.com/fatih/color"
	"github.com/qbrtools/qbrank/internal/progress"
	"github.com/qbrtools/qbrank/internal/service/analysis"
	"github.com/qbrtools/qbrank/internal/service/export"
	"github.com/urfave/cli/v2"
)

func exportCmd() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Aliases:   []string{"xlsx"},
		Usage:     "Export the full analysis as a multi-sheet Excel workbook",
		ArgsUsage: "[survey.csv]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Workbook path (default: <output dir>/qbr_report.xlsx)",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Disable result caching",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Parallel pipeline stages (default: all CPUs)",
			},
		},
		Action: runExportCmd,
	}
}

func runExportCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	svc := newService(c, cfg)

	tracker := progress.NewTracker("分析中", pipelineStages)
	rep, err := svc.Analyze(c.Context, analysis.AnalyzeOptions{
		Input:   inputArg(c),
		OnStage: func(string) { tracker.Tick() },
	})
	if err != nil {
		tracker.FinishError(err)
		return err
	}
	if rep.FromCache {
		tracker.FinishSkipped("cached")
	} else {
		tracker.FinishSuccess()
	}

	out := c.String("output")
	if out == "" {
		out = filepath.Join(cfg.Output.Dir, "qbr_report.xlsx")
	}

	if err := export.New(export.WithConfig(cfg)).Write(rep, out); err != nil {
		return err
	}

	color.Green("エクスポート完了: %s", out)
	return nil
}
