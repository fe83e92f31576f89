package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/qbrtools/qbrank/internal/output"
	"github.com/qbrtools/qbrank/internal/service/analysis"
	"github.com/qbrtools/qbrank/pkg/analyzer/segments"
	"github.com/qbrtools/qbrank/pkg/config"
	"github.com/qbrtools/qbrank/pkg/dataset"
	"github.com/qbrtools/qbrank/pkg/generator"
	"github.com/qbrtools/qbrank/pkg/models"
)

// testSurvey writes a generated survey CSV and a config file pointing at it,
// returning both paths.
func testSurvey(t *testing.T) (csvPath, configPath string) {
	t.Helper()

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	csvPath = filepath.Join(dir, "survey.csv")

	rows := generator.New(cfg,
		generator.WithSeed(23),
		generator.WithRespondents(16),
		generator.WithMissingRate(0.1),
	).Generate()
	if err := dataset.WriteFile(csvPath, rows, cfg.ItemColumns()); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	configPath = filepath.Join(dir, "qbrank.toml")
	conf := "[data]\ninput_csv = '" + csvPath + "'\nschema = ''\n"
	if err := os.WriteFile(configPath, []byte(conf), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return csvPath, configPath
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("nil tool result")
	}
	if len(result.Content) == 0 {
		t.Fatal("tool result has no content")
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content is not TextContent: %T", result.Content[0])
	}
	if result.IsError {
		t.Fatalf("tool returned error: %s", tc.Text)
	}
	return tc.Text
}

// TestServerCreation verifies the MCP server can be created without panicking.
func TestServerCreation(t *testing.T) {
	server := NewServer("1.0.0-test")
	if server == nil {
		t.Fatal("NewServer() returned nil")
	}
	if server.server == nil {
		t.Fatal("NewServer().server is nil")
	}
	if server.version != "1.0.0-test" {
		t.Errorf("version = %q, want 1.0.0-test", server.version)
	}
}

// TestServerCreationEmptyVersion verifies empty version defaults to "dev".
func TestServerCreationEmptyVersion(t *testing.T) {
	server := NewServer("")
	if server == nil {
		t.Fatal("NewServer(\"\") returned nil")
	}
	if server.version != "dev" {
		t.Errorf("version = %q, want dev", server.version)
	}
}

// TestToolDescriptions verifies all description functions return non-empty strings.
func TestToolDescriptions(t *testing.T) {
	descriptions := map[string]func() string{
		"survey":       describeSurvey,
		"ranking":      describeRanking,
		"bias":         describeBias,
		"significance": describeSignificance,
		"segments":     describeSegments,
		"validate":     describeValidate,
	}

	for name, fn := range descriptions {
		t.Run(name, func(t *testing.T) {
			desc := fn()
			if desc == "" {
				t.Errorf("%s description is empty", name)
			}
			for _, section := range []string{"USE WHEN:", "INTERPRETING RESULTS:", "METRICS RETURNED:"} {
				if !strings.Contains(desc, section) {
					t.Errorf("%s description missing %s section", name, section)
				}
			}
		})
	}
}

// TestGetFormat verifies format parsing logic.
func TestGetFormat(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		expected output.Format
	}{
		{"empty defaults to toon", "", output.FormatTOON},
		{"json format", "json", output.FormatJSON},
		{"markdown format", "markdown", output.FormatMarkdown},
		{"md alias", "md", output.FormatMarkdown},
		{"toon explicit", "toon", output.FormatTOON},
		{"unknown defaults to toon", "xml", output.FormatTOON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := getFormat(SurveyInput{Format: tt.format})
			if result != tt.expected {
				t.Errorf("getFormat(%q) = %v, want %v", tt.format, result, tt.expected)
			}
		})
	}
}

// TestToolError verifies error result formatting.
func TestToolError(t *testing.T) {
	result, _, err := toolError("test error message")
	if err != nil {
		t.Fatalf("toolError returned unexpected error: %v", err)
	}
	if result == nil {
		t.Fatal("toolError returned nil result")
	}
	if !result.IsError {
		t.Error("toolError result.IsError should be true")
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("toolError content is not TextContent: %T", result.Content[0])
	}
	if tc.Text != "Error: test error message" {
		t.Errorf("toolError text = %q", tc.Text)
	}
}

// TestInputStructTags verifies all input structs marshal cleanly.
func TestInputStructTags(t *testing.T) {
	inputs := map[string]any{
		"SurveyInput":       SurveyInput{},
		"RankingInput":      RankingInput{},
		"BiasInput":         BiasInput{},
		"SignificanceInput": SignificanceInput{},
		"SegmentsInput":     SegmentsInput{},
		"ValidateInput":     ValidateInput{},
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			data, err := json.Marshal(input)
			if err != nil {
				t.Errorf("failed to marshal: %v", err)
			}
			if len(data) == 0 {
				t.Error("marshaled to empty data")
			}
		})
	}
}

// TestHandleAnalyzeSurvey runs the full pipeline tool against a generated survey.
func TestHandleAnalyzeSurvey(t *testing.T) {
	_, configPath := testSurvey(t)
	s := NewServer("test")

	input := SurveyInput{Config: configPath, Format: "markdown"}
	result, _, err := s.handleAnalyzeSurvey(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("handleAnalyzeSurvey returned error: %v", err)
	}

	text := resultText(t, result)
	for _, want := range []string{"総合ランキング", "有意差検定", "エグゼクティブサマリー"} {
		if !strings.Contains(text, want) {
			t.Errorf("survey output missing %q", want)
		}
	}
}

// TestHandleAnalyzeRanking verifies the ranking tool and its top filter.
func TestHandleAnalyzeRanking(t *testing.T) {
	_, configPath := testSurvey(t)
	s := NewServer("test")

	input := RankingInput{
		SurveyInput: SurveyInput{Config: configPath, Format: "json"},
		Top:         2,
	}
	result, _, err := s.handleAnalyzeRanking(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("handleAnalyzeRanking returned error: %v", err)
	}

	var rep analysis.RankingReport
	if err := json.Unmarshal([]byte(resultText(t, result)), &rep); err != nil {
		t.Fatalf("unmarshaling ranking payload: %v", err)
	}
	if got := len(rep.Scores.Composite); got != 2 {
		t.Errorf("top filter left %d vendors, want 2", got)
	}
	if rep.Stats.Records == 0 {
		t.Error("ranking payload missing dataset stats")
	}
}

// TestHandleAnalyzeBias verifies bias profiling and the anomaly filter.
func TestHandleAnalyzeBias(t *testing.T) {
	_, configPath := testSurvey(t)
	s := NewServer("test")

	input := BiasInput{SurveyInput: SurveyInput{Config: configPath, Format: "json"}}
	result, _, err := s.handleAnalyzeBias(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("handleAnalyzeBias returned error: %v", err)
	}

	var rep analysis.BiasReport
	if err := json.Unmarshal([]byte(resultText(t, result)), &rep); err != nil {
		t.Fatalf("unmarshaling bias payload: %v", err)
	}
	if len(rep.Analysis.Profiles) == 0 {
		t.Fatal("bias payload has no respondent profiles")
	}

	input.AnomaliesOnly = true
	result, _, err = s.handleAnalyzeBias(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("handleAnalyzeBias(anomalies) returned error: %v", err)
	}
	var filtered analysis.BiasReport
	if err := json.Unmarshal([]byte(resultText(t, result)), &filtered); err != nil {
		t.Fatalf("unmarshaling filtered payload: %v", err)
	}
	for _, p := range filtered.Analysis.Profiles {
		if !p.IsAnomaly {
			t.Errorf("respondent %d in anomalies-only output is not anomalous", p.RespondentID)
		}
	}
}

// TestHandleAnalyzeSignificance verifies the alpha override reaches the table.
func TestHandleAnalyzeSignificance(t *testing.T) {
	_, configPath := testSurvey(t)
	s := NewServer("test")

	input := SignificanceInput{
		SurveyInput: SurveyInput{Config: configPath, Format: "json"},
		Alpha:       0.01,
	}
	result, _, err := s.handleAnalyzeSignificance(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("handleAnalyzeSignificance returned error: %v", err)
	}

	var tbl models.SignificanceTable
	if err := json.Unmarshal([]byte(resultText(t, result)), &tbl); err != nil {
		t.Fatalf("unmarshaling significance payload: %v", err)
	}
	if tbl.Alpha != 0.01 {
		t.Errorf("Alpha = %v, want 0.01", tbl.Alpha)
	}
	if tbl.Column != config.DefaultConfig().Significance.Column {
		t.Errorf("Column = %q, want the configured default", tbl.Column)
	}
	if len(tbl.Rows) == 0 {
		t.Error("significance table has no pairwise rows")
	}
}

// TestHandleAnalyzeSegments verifies the axis filter.
func TestHandleAnalyzeSegments(t *testing.T) {
	_, configPath := testSurvey(t)
	s := NewServer("test")

	input := SegmentsInput{
		SurveyInput: SurveyInput{Config: configPath, Format: "json"},
		Axis:        "department",
	}
	result, _, err := s.handleAnalyzeSegments(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("handleAnalyzeSegments returned error: %v", err)
	}

	var an segments.Analysis
	if err := json.Unmarshal([]byte(resultText(t, result)), &an); err != nil {
		t.Fatalf("unmarshaling segments payload: %v", err)
	}
	if len(an.Tables) != 1 {
		t.Fatalf("axis filter left %d tables, want 1", len(an.Tables))
	}
	if string(an.Tables[0].Axis) != "department" {
		t.Errorf("Axis = %q, want department", an.Tables[0].Axis)
	}
	for _, kr := range an.Kruskal {
		if kr.Attribute != "department" {
			t.Errorf("Kruskal attribute %q survived the filter", kr.Attribute)
		}
	}
}

// TestHandleAnalyzeSegmentsUnknownAxis verifies unknown axes report an error.
func TestHandleAnalyzeSegmentsUnknownAxis(t *testing.T) {
	_, configPath := testSurvey(t)
	s := NewServer("test")

	input := SegmentsInput{
		SurveyInput: SurveyInput{Config: configPath},
		Axis:        "shoe_size",
	}
	result, _, err := s.handleAnalyzeSegments(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("handleAnalyzeSegments returned error: %v", err)
	}
	if !result.IsError {
		t.Error("expected IsError for unknown axis")
	}
}

// TestHandleValidateDataset verifies validation of a clean dataset.
func TestHandleValidateDataset(t *testing.T) {
	_, configPath := testSurvey(t)
	s := NewServer("test")

	input := ValidateInput{SurveyInput: SurveyInput{Config: configPath, Format: "json"}}
	result, _, err := s.handleValidateDataset(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("handleValidateDataset returned error: %v", err)
	}

	var rep analysis.ValidationReport
	if err := json.Unmarshal([]byte(resultText(t, result)), &rep); err != nil {
		t.Fatalf("unmarshaling validation payload: %v", err)
	}
	if !rep.Valid {
		t.Errorf("generated dataset should validate, got issues %v", rep.SchemaIssues)
	}
}

// TestHandleMissingInput verifies a missing CSV surfaces as a tool error.
func TestHandleMissingInput(t *testing.T) {
	_, configPath := testSurvey(t)
	s := NewServer("test")

	input := RankingInput{
		SurveyInput: SurveyInput{
			Config: configPath,
			Input:  filepath.Join(t.TempDir(), "missing.csv"),
		},
	}
	result, _, err := s.handleAnalyzeRanking(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("handleAnalyzeRanking returned error: %v", err)
	}
	if !result.IsError {
		t.Error("expected IsError for missing input file")
	}
}

// TestParseFrontmatter verifies frontmatter extraction.
func TestParseFrontmatter(t *testing.T) {
	content := []byte(`---
description: Test prompt
arguments:
  - name: input
    default: data/survey_data.csv
  - name: vendor1
    required: true
---

Body with {{input}} and {{vendor1}}.
`)
	fm, body := parseFrontmatter(content)
	if fm.Description != "Test prompt" {
		t.Errorf("Description = %q", fm.Description)
	}
	if len(fm.Arguments) != 2 {
		t.Fatalf("Arguments = %d, want 2", len(fm.Arguments))
	}
	if fm.Arguments[0].Default != "data/survey_data.csv" {
		t.Errorf("Default = %q", fm.Arguments[0].Default)
	}
	if !fm.Arguments[1].Required {
		t.Error("vendor1 should be required")
	}
	if !strings.HasPrefix(body, "Body with") {
		t.Errorf("body = %q", body)
	}

	plain := []byte("no frontmatter here")
	fm, body = parseFrontmatter(plain)
	if fm.Description != "" || body != "no frontmatter here" {
		t.Errorf("plain content mishandled: %+v, %q", fm, body)
	}
}

// TestSubstituteArg verifies argument substitution logic.
func TestSubstituteArg(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		key        string
		args       map[string]string
		defaultVal string
		expected   string
	}{
		{
			name:       "use provided value",
			text:       "analyze {{input}} now",
			key:        "input",
			args:       map[string]string{"input": "q3.csv"},
			defaultVal: "data/survey_data.csv",
			expected:   "analyze q3.csv now",
		},
		{
			name:       "use default when missing",
			text:       "analyze {{input}} now",
			key:        "input",
			args:       map[string]string{},
			defaultVal: "data/survey_data.csv",
			expected:   "analyze data/survey_data.csv now",
		},
		{
			name:       "use default when empty",
			text:       "analyze {{input}} now",
			key:        "input",
			args:       map[string]string{"input": ""},
			defaultVal: "data/survey_data.csv",
			expected:   "analyze data/survey_data.csv now",
		},
		{
			name:       "no placeholder unchanged",
			text:       "no placeholder here",
			key:        "input",
			args:       map[string]string{"input": "q3.csv"},
			defaultVal: "",
			expected:   "no placeholder here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := substituteArg(tt.text, tt.key, tt.args, tt.defaultVal)
			if result != tt.expected {
				t.Errorf("substituteArg() = %q, want %q", result, tt.expected)
			}
		})
	}
}

// TestPromptFiles verifies every embedded prompt parses with a description.
func TestPromptFiles(t *testing.T) {
	entries, err := promptFiles.ReadDir("prompts")
	if err != nil {
		t.Fatalf("reading embedded prompts: %v", err)
	}
	if len(entries) < 3 {
		t.Fatalf("expected at least 3 prompts, found %d", len(entries))
	}

	for _, entry := range entries {
		t.Run(entry.Name(), func(t *testing.T) {
			content, err := promptFiles.ReadFile(filepath.Join("prompts", entry.Name()))
			if err != nil {
				t.Fatalf("reading %s: %v", entry.Name(), err)
			}
			fm, body := parseFrontmatter(content)
			if fm.Description == "" {
				t.Error("prompt has no description")
			}
			if strings.TrimSpace(body) == "" {
				t.Error("prompt has no body")
			}
		})
	}
}

// TestPromptHandlerDefaults verifies defaults fill placeholders.
func TestPromptHandlerDefaults(t *testing.T) {
	content, err := promptFiles.ReadFile("prompts/quarterly-review.md")
	if err != nil {
		t.Fatalf("reading prompt: %v", err)
	}
	fm, body := parseFrontmatter(content)
	handler := makePromptHandler(fm, body)

	req := &mcp.GetPromptRequest{
		Params: &mcp.GetPromptParams{
			Name:      "quarterly-review",
			Arguments: map[string]string{},
		},
	}
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	tc := result.Messages[0].Content.(*mcp.TextContent)
	if !strings.Contains(tc.Text, "data/survey_data.csv") {
		t.Error("default input path not substituted")
	}
	if strings.Contains(tc.Text, "{{input}}") {
		t.Error("placeholder left in prompt body")
	}
}

// TestPromptHandlerRequired verifies missing required arguments error.
func TestPromptHandlerRequired(t *testing.T) {
	content, err := promptFiles.ReadFile("prompts/vendor-comparison.md")
	if err != nil {
		t.Fatalf("reading prompt: %v", err)
	}
	fm, body := parseFrontmatter(content)
	handler := makePromptHandler(fm, body)

	req := &mcp.GetPromptRequest{
		Params: &mcp.GetPromptParams{
			Name:      "vendor-comparison",
			Arguments: map[string]string{},
		},
	}
	if _, err := handler(context.Background(), req); err == nil {
		t.Error("expected error for missing required arguments")
	}

	req.Params.Arguments = map[string]string{"vendor1": "vendor_a", "vendor2": "vendor_c"}
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	tc := result.Messages[0].Content.(*mcp.TextContent)
	if !strings.Contains(tc.Text, "vendor_a") || !strings.Contains(tc.Text, "vendor_c") {
		t.Error("vendor arguments not substituted")
	}
}

// TestGenerateManifest verifies the manifest shape.
func TestGenerateManifest(t *testing.T) {
	data, err := GenerateManifest("1.2.3")
	if err != nil {
		t.Fatalf("GenerateManifest() error = %v", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshaling manifest: %v", err)
	}
	if m.Name != "io.github.qbrtools/qbrank" {
		t.Errorf("Name = %q", m.Name)
	}
	if m.Version != "1.2.3" {
		t.Errorf("Version = %q", m.Version)
	}
	if len(m.Packages) == 0 || m.Packages[0].Transport.Type != "stdio" {
		t.Error("manifest should declare a stdio package")
	}
}
