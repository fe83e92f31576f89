package main

import (
	"github.com/qbrtools/qbrank/internal/progress"
	"github.com/qbrtools/qbrank/internal/report"
	"github.com/qbrtools/qbrank/internal/service/analysis"
	"github.com/urfave/cli/v2"
)

func rankCmd() *cli.Command {
	return &cli.Command{
		Name:      "rank",
		Aliases:   []string{"r"},
		Usage:     "Rank vendors by bias-corrected composite score",
		ArgsUsage: "[survey.csv]",
		Flags: append(outputFlags(),
			&cli.IntFlag{
				Name:  "top",
				Usage: "Show only the top N vendors",
			},
		),
		Action: runRankCmd,
	}
}

func runRankCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	svc := newService(c, cfg)

	rep, err := svc.AnalyzeRanking(c.Context, analysis.RankingOptions{
		Input:   inputArg(c),
		Spinner: progress.NewSpinner("スコアリング中..."),
	})
	if err != nil {
		return err
	}

	if top := c.Int("top"); top > 0 && top < len(rep.Scores.Composite) {
		rep.Scores.Composite = rep.Scores.Composite[:top]
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(report.Ranking(cfg, rep))
}
