package main

import (
	"github.com/qbrtools/qbrank/internal/progress"
	"github.com/qbrtools/qbrank/internal/report"
	"github.com/qbrtools/qbrank/internal/service/analysis"
	"github.com/qbrtools/qbrank/pkg/models"
	"github.com/urfave/cli/v2"
)

func biasCmd() *cli.Command {
	return &cli.Command{
		Name:      "bias",
		Aliases:   []string{"b"},
		Usage:     "Profile respondent leniency and flag anomalous raters",
		ArgsUsage: "[survey.csv]",
		Flags: append(outputFlags(),
			&cli.BoolFlag{
				Name:  "anomalies-only",
				Usage: "Show only respondents flagged as anomalous",
			},
		),
		Action: runBiasCmd,
	}
}

func runBiasCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	svc := newService(c, cfg)

	rep, err := svc.AnalyzeBias(c.Context, analysis.BiasOptions{
		Input:   inputArg(c),
		Spinner: progress.NewSpinner("バイアス診断中..."),
	})
	if err != nil {
		return err
	}

	if c.Bool("anomalies-only") {
		profiles := make([]models.RespondentProfile, 0, len(rep.Analysis.Profiles))
		for _, p := range rep.Analysis.Profiles {
			if p.IsAnomaly {
				profiles = append(profiles, p)
			}
		}
		rep.Analysis.Profiles = profiles
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(report.Bias(cfg, rep))
}
