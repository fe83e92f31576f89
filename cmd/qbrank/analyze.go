package main

import (
	"github.com/qbrtools/qbrank/internal/progress"
	"github.com/qbrtools/qbrank/internal/report"
	"github.com/qbrtools/qbrank/internal/service/analysis"
	"github.com/urfave/cli/v2"
)

// pipelineStages counts the stages Analyze reports: load, bias, then scoring,
// significance, and segments in parallel.
const pipelineStages = 5

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"a"},
		Usage:     "Run the full analysis pipeline and produce the QBR report",
		ArgsUsage: "[survey.csv]",
		Flags: append(outputFlags(),
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Parallel pipeline stages (default: all CPUs)",
			},
		),
		Action: runAnalyzeCmd,
	}
}

func runAnalyzeCmd(c *cli.Context) error {
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

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	meta := report.NewMeta(version, inputPath(c, cfg), rep)
	return formatter.Output(report.Build(cfg, meta, rep))
}
