package main

import (
	"os"

	"github.com/qbrtools/qbrank/internal/report"
	"github.com/qbrtools/qbrank/internal/service/analysis"
	"github.com/urfave/cli/v2"
)

func validateCmd() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Aliases:   []string{"v"},
		Usage:     "Validate a survey CSV against the schema and quality rules",
		ArgsUsage: "[survey.csv]",
		Flags: append(outputFlags(),
			&cli.StringFlag{
				Name:  "schema",
				Usage: "Schema document path (default: configured schema)",
			},
		),
		Action: runValidateCmd,
	}
}

func runValidateCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	svc := newService(c, cfg)

	rep, err := svc.Validate(c.Context, analysis.ValidateOptions{
		Input:  inputArg(c),
		Schema: c.String("schema"),
	})
	if err != nil {
		return err
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if err := formatter.Output(report.Validation(rep)); err != nil {
		return err
	}

	// Exit with error when the dataset fails validation
	if !rep.Valid {
		os.Exit(1)
	}
	return nil
}
