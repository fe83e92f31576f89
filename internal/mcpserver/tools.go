package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/qbrtools/qbrank/internal/output"
	"github.com/qbrtools/qbrank/internal/report"
	"github.com/qbrtools/qbrank/internal/service/analysis"
	"github.com/qbrtools/qbrank/pkg/analyzer/segments"
	"github.com/qbrtools/qbrank/pkg/config"
	"github.com/qbrtools/qbrank/pkg/models"
	toon "github.com/toon-format/toon-go"
)

// Common input structures for tools

// SurveyInput is the base input shared by all analysis tools.
type SurveyInput struct {
	Input  string `json:"input,omitempty" jsonschema:"Path to the survey response CSV. Defaults to the configured input path."`
	Config string `json:"config,omitempty" jsonschema:"Path to a qbrank config file (TOML, YAML, or JSON). Defaults to discovery in the working directory."`
	Format string `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
}

// RankingInput adds ranking-specific options.
type RankingInput struct {
	SurveyInput
	Top int `json:"top,omitempty" jsonschema:"Limit the ranking to the top N vendors."`
}

// BiasInput adds bias-profiling options.
type BiasInput struct {
	SurveyInput
	AnomaliesOnly bool `json:"anomalies_only,omitempty" jsonschema:"List only respondents flagged as anomalous."`
}

// SignificanceInput adds significance-testing options.
type SignificanceInput struct {
	SurveyInput
	Column string  `json:"column,omitempty" jsonschema:"Score column to test. Defaults to the configured significance column."`
	Alpha  float64 `json:"alpha,omitempty" jsonschema:"Significance level. Defaults to the configured alpha (0.05)."`
}

// SegmentsInput adds segmentation options.
type SegmentsInput struct {
	SurveyInput
	Axis string `json:"axis,omitempty" jsonschema:"Restrict output to one segmentation axis (e.g. department, usage_frequency)."`
}

// ValidateInput adds validation options.
type ValidateInput struct {
	SurveyInput
	Schema string `json:"schema,omitempty" jsonschema:"Path to a schema document overriding the configured one."`
}

// Helper functions

func loadConfig(input SurveyInput) (*config.Config, error) {
	if input.Config != "" {
		return config.Load(input.Config)
	}
	return config.LoadOrDefault(), nil
}

func getFormat(input SurveyInput) output.Format {
	switch input.Format {
	case "json":
		return output.FormatJSON
	case "markdown", "md":
		return output.FormatMarkdown
	default:
		return output.FormatTOON
	}
}

// formatReport renders a report for the MCP text channel: readable markdown on
// request, compact TOON by default, indented JSON when asked.
func formatReport(r *output.Report, format output.Format) (string, error) {
	switch format {
	case output.FormatMarkdown:
		var buf bytes.Buffer
		if err := r.RenderMarkdown(&buf); err != nil {
			return "", err
		}
		return buf.String(), nil
	case output.FormatJSON:
		out, err := json.MarshalIndent(r.RenderData(), "", "  ")
		if err != nil {
			return "", err
		}
		return string(out), nil
	default:
		out, err := toon.Marshal(r.RenderData(), toon.WithIndent(2))
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}

func toolResult(r *output.Report, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatReport(r, format)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

// Tool handlers

func (s *Server) handleAnalyzeSurvey(ctx context.Context, req *mcp.CallToolRequest, input SurveyInput) (*mcp.CallToolResult, any, error) {
	cfg, err := loadConfig(input)
	if err != nil {
		return toolError(err.Error())
	}

	svc := analysis.New(analysis.WithConfig(cfg))
	rep, err := svc.Analyze(ctx, analysis.AnalyzeOptions{Input: input.Input})
	if err != nil {
		return toolError(err.Error())
	}

	path := input.Input
	if path == "" {
		path = cfg.Data.InputCSV
	}
	meta := report.NewMeta(s.version, path, rep)
	return toolResult(report.Build(cfg, meta, rep), getFormat(input))
}

func (s *Server) handleAnalyzeRanking(ctx context.Context, req *mcp.CallToolRequest, input RankingInput) (*mcp.CallToolResult, any, error) {
	cfg, err := loadConfig(input.SurveyInput)
	if err != nil {
		return toolError(err.Error())
	}

	svc := analysis.New(analysis.WithConfig(cfg))
	rep, err := svc.AnalyzeRanking(ctx, analysis.RankingOptions{Input: input.Input})
	if err != nil {
		return toolError(err.Error())
	}

	if input.Top > 0 && len(rep.Scores.Composite) > input.Top {
		rep.Scores.Composite = rep.Scores.Composite[:input.Top]
	}

	return toolResult(report.Ranking(cfg, rep), getFormat(input.SurveyInput))
}

func (s *Server) handleAnalyzeBias(ctx context.Context, req *mcp.CallToolRequest, input BiasInput) (*mcp.CallToolResult, any, error) {
	cfg, err := loadConfig(input.SurveyInput)
	if err != nil {
		return toolError(err.Error())
	}

	svc := analysis.New(analysis.WithConfig(cfg))
	rep, err := svc.AnalyzeBias(ctx, analysis.BiasOptions{Input: input.Input})
	if err != nil {
		return toolError(err.Error())
	}

	if input.AnomaliesOnly {
		var anomalous []models.RespondentProfile
		for _, p := range rep.Analysis.Profiles {
			if p.IsAnomaly {
				anomalous = append(anomalous, p)
			}
		}
		rep.Analysis.Profiles = anomalous
	}

	return toolResult(report.Bias(cfg, rep), getFormat(input.SurveyInput))
}

func (s *Server) handleAnalyzeSignificance(ctx context.Context, req *mcp.CallToolRequest, input SignificanceInput) (*mcp.CallToolResult, any, error) {
	cfg, err := loadConfig(input.SurveyInput)
	if err != nil {
		return toolError(err.Error())
	}

	svc := analysis.New(analysis.WithConfig(cfg))
	tbl, err := svc.AnalyzeSignificance(ctx, analysis.SignificanceOptions{
		Input:  input.Input,
		Column: input.Column,
		Alpha:  input.Alpha,
	})
	if err != nil {
		return toolError(err.Error())
	}

	return toolResult(report.Significance(cfg, tbl), getFormat(input.SurveyInput))
}

func (s *Server) handleAnalyzeSegments(ctx context.Context, req *mcp.CallToolRequest, input SegmentsInput) (*mcp.CallToolResult, any, error) {
	cfg, err := loadConfig(input.SurveyInput)
	if err != nil {
		return toolError(err.Error())
	}

	svc := analysis.New(analysis.WithConfig(cfg))
	an, err := svc.AnalyzeSegments(ctx, analysis.SegmentsOptions{Input: input.Input})
	if err != nil {
		return toolError(err.Error())
	}

	if input.Axis != "" {
		filterAxis(an, cfg, input.Axis)
		if len(an.Tables) == 0 {
			return toolError("unknown segmentation axis: " + input.Axis)
		}
	}

	return toolResult(report.Segments(cfg, an), getFormat(input.SurveyInput))
}

func (s *Server) handleValidateDataset(ctx context.Context, req *mcp.CallToolRequest, input ValidateInput) (*mcp.CallToolResult, any, error) {
	cfg, err := loadConfig(input.SurveyInput)
	if err != nil {
		return toolError(err.Error())
	}

	svc := analysis.New(analysis.WithConfig(cfg))
	rep, err := svc.Validate(ctx, analysis.ValidateOptions{
		Input:  input.Input,
		Schema: input.Schema,
	})
	if err != nil {
		return toolError(err.Error())
	}

	return toolResult(report.Validation(rep), getFormat(input.SurveyInput))
}

// filterAxis narrows a segment analysis to a single axis, in place.
func filterAxis(an *segments.Analysis, cfg *config.Config, axis string) {
	var tables []models.SegmentTable
	for _, tbl := range an.Tables {
		if string(tbl.Axis) == axis {
			tables = append(tables, tbl)
		}
	}
	an.Tables = tables

	var kruskal []models.KruskalResult
	for _, kr := range an.Kruskal {
		if kr.Attribute == axis {
			kruskal = append(kruskal, kr)
		}
	}
	an.Kruskal = kruskal

	name := axis
	if ax, ok := cfg.Axis(axis); ok {
		name = ax.Name
	}
	var integrated []models.IntegratedRanking
	for _, ir := range an.Integrated {
		if ir.Category == name {
			integrated = append(integrated, ir)
		}
	}
	an.Integrated = integrated
}
