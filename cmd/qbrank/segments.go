package main

import (
	"fmt"
	"strings"

	"github.com/qbrtools/qbrank/internal/progress"
	"github.com/qbrtools/qbrank/internal/report"
	"github.com/qbrtools/qbrank/internal/service/analysis"
	"github.com/qbrtools/qbrank/pkg/analyzer/segments"
	"github.com/qbrtools/qbrank/pkg/config"
	"github.com/qbrtools/qbrank/pkg/models"
	"github.com/urfave/cli/v2"
)

func segmentsCmd() *cli.Command {
	return &cli.Command{
		Name:      "segments",
		Aliases:   []string{"seg"},
		Usage:     "Rank vendors within each respondent segment",
		ArgsUsage: "[survey.csv]",
		Flags: append(outputFlags(),
			&cli.StringFlag{
				Name:  "axis",
				Usage: "Show only one segmentation axis (e.g. department)",
			},
		),
		Action: runSegmentsCmd,
	}
}

func runSegmentsCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	svc := newService(c, cfg)

	an, err := svc.AnalyzeSegments(c.Context, analysis.SegmentsOptions{
		Input:   inputArg(c),
		Spinner: progress.NewSpinner("セグメント分析中..."),
	})
	if err != nil {
		return err
	}

	if axis := c.String("axis"); axis != "" {
		if err := filterSegmentAxis(an, cfg, axis); err != nil {
			return err
		}
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(report.Segments(cfg, an))
}

// filterSegmentAxis narrows the analysis to a single axis in place. Integrated
// rankings carry the axis display name, the other tables the attribute key.
func filterSegmentAxis(an *segments.Analysis, cfg *config.Config, axis string) error {
	tables := an.Tables[:0]
	for _, tbl := range an.Tables {
		if string(tbl.Axis) == axis {
			tables = append(tables, tbl)
		}
	}
	if len(tables) == 0 {
		valid := make([]string, len(cfg.Segments.Axes))
		for i, ax := range cfg.Segments.Axes {
			valid[i] = ax.Axis
		}
		return fmt.Errorf("unknown segmentation axis %q (valid: %s)", axis, strings.Join(valid, ", "))
	}
	an.Tables = tables

	kruskal := an.Kruskal[:0]
	for _, kr := range an.Kruskal {
		if kr.Attribute == axis {
			kruskal = append(kruskal, kr)
		}
	}
	an.Kruskal = kruskal

	display := axis
	if ax, ok := cfg.Axis(axis); ok {
		display = ax.Name
	}
	integrated := make([]models.IntegratedRanking, 0, len(an.Integrated))
	for _, ir := range an.Integrated {
		if ir.Category == display {
			integrated = append(integrated, ir)
		}
	}
	an.Integrated = integrated
	return nil
}
