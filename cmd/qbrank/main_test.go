package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qbrtools/qbrank/internal/cache"
	"github.com/qbrtools/qbrank/internal/service/analysis"
	"github.com/qbrtools/qbrank/pkg/analyzer/segments"
	"github.com/qbrtools/qbrank/pkg/config"
	"github.com/qbrtools/qbrank/pkg/dataset"
	"github.com/qbrtools/qbrank/pkg/generator"
	"github.com/qbrtools/qbrank/pkg/models"
	"github.com/urfave/cli/v2"
)

// testSurvey writes a synthetic survey CSV and a config pointing at it,
// returning both paths. Caching is disabled so tests leave no state behind.
func testSurvey(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	rows := generator.New(cfg,
		generator.WithSeed(17),
		generator.WithRespondents(16),
		generator.WithMissingRate(0.1),
	).Generate()

	csvPath := filepath.Join(dir, "survey.csv")
	if err := dataset.WriteFile(csvPath, rows, cfg.ItemColumns()); err != nil {
		t.Fatalf("failed to write survey: %v", err)
	}

	cfgPath := filepath.Join(dir, "qbrank.toml")
	content := "[data]\ninput_csv = '" + csvPath + "'\nschema = ''\n\n[cache]\nenabled = false\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return csvPath, cfgPath
}

// TestVersionVariable verifies version variables are defined.
func TestVersionVariable(t *testing.T) {
	// These are set via ldflags at build time
	if version == "" {
		t.Error("version variable should have a default value")
	}
}

// TestNewApp verifies the command registry.
func TestNewApp(t *testing.T) {
	app := newApp()
	if app.Name != "qbrank" {
		t.Errorf("app.Name = %q, want %q", app.Name, "qbrank")
	}

	names := make(map[string]bool)
	for _, cmd := range app.Commands {
		names[cmd.Name] = true
	}
	required := []string{
		"analyze", "rank", "bias", "significance", "segments",
		"validate", "generate", "export", "cache", "init", "config", "mcp",
	}
	for _, name := range required {
		if !names[name] {
			t.Errorf("newApp() missing command %q", name)
		}
	}
}

// TestOutputFlags verifies the shared output flags are correctly defined.
func TestOutputFlags(t *testing.T) {
	flags := outputFlags()

	if len(flags) != 3 {
		t.Errorf("outputFlags() returned %d flags, want 3", len(flags))
	}

	flagNames := make(map[string]bool)
	for _, f := range flags {
		for _, name := range f.Names() {
			flagNames[name] = true
		}
	}

	required := []string{"format", "f", "output", "o", "no-cache"}
	for _, name := range required {
		if !flagNames[name] {
			t.Errorf("outputFlags() missing flag %q", name)
		}
	}
}

// TestInputArg verifies positional argument handling.
func TestInputArg(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{name: "no args", args: []string{}, expected: ""},
		{name: "single path", args: []string{"/foo/survey.csv"}, expected: "/foo/survey.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := &cli.App{
				Action: func(c *cli.Context) error {
					if got := inputArg(c); got != tt.expected {
						t.Errorf("inputArg() = %q, want %q", got, tt.expected)
					}
					return nil
				},
			}
			args := append([]string{"test"}, tt.args...)
			_ = app.Run(args)
		})
	}
}

// TestValidateRate verifies the rate validation function.
func TestValidateRate(t *testing.T) {
	tests := []struct {
		rate    float64
		wantErr bool
	}{
		{rate: 0, wantErr: false},
		{rate: 0.5, wantErr: false},
		{rate: 1, wantErr: false},
		{rate: -0.1, wantErr: true},
		{rate: 1.5, wantErr: true},
	}

	for _, tt := range tests {
		err := validateRate("missing-rate", tt.rate)
		if (err != nil) != tt.wantErr {
			t.Errorf("validateRate(%g) error = %v, wantErr %v", tt.rate, err, tt.wantErr)
		}
	}
}

// TestFormatBytes verifies byte count rendering.
func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n        int64
		expected string
	}{
		{n: 0, expected: "0 B"},
		{n: 512, expected: "512 B"},
		{n: 2048, expected: "2.0 KB"},
		{n: 5 * 1024 * 1024, expected: "5.0 MB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.expected {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.expected)
		}
	}
}

// TestFilterSegmentAxis verifies single-axis narrowing keeps the tables
// consistent.
func TestFilterSegmentAxis(t *testing.T) {
	cfg := config.DefaultConfig()
	an := &segments.Analysis{
		Tables: []models.SegmentTable{
			{Axis: models.AxisDepartment},
			{Axis: models.AxisUsage},
		},
		Kruskal: []models.KruskalResult{
			{Attribute: "department"},
			{Attribute: "usage_frequency"},
		},
		Integrated: []models.IntegratedRanking{
			{Category: "部門", Axis: "it"},
			{Category: "利用頻度", Axis: "daily"},
		},
	}

	if err := filterSegmentAxis(an, cfg, "department"); err != nil {
		t.Fatalf("filterSegmentAxis() error = %v", err)
	}
	if len(an.Tables) != 1 || an.Tables[0].Axis != models.AxisDepartment {
		t.Errorf("Tables = %+v, want department only", an.Tables)
	}
	if len(an.Kruskal) != 1 || an.Kruskal[0].Attribute != "department" {
		t.Errorf("Kruskal = %+v, want department only", an.Kruskal)
	}
	if len(an.Integrated) != 1 || an.Integrated[0].Category != "部門" {
		t.Errorf("Integrated = %+v, want 部門 only", an.Integrated)
	}
}

// TestFilterSegmentAxisUnknown verifies the error lists valid axes.
func TestFilterSegmentAxisUnknown(t *testing.T) {
	cfg := config.DefaultConfig()
	an := &segments.Analysis{
		Tables: []models.SegmentTable{{Axis: models.AxisDepartment}},
	}

	err := filterSegmentAxis(an, cfg, "shoe_size")
	if err == nil {
		t.Fatal("filterSegmentAxis() expected error for unknown axis")
	}
	if !strings.Contains(err.Error(), "shoe_size") || !strings.Contains(err.Error(), "department") {
		t.Errorf("error = %v, want axis name and valid list", err)
	}
}

// TestGenerateCommandE2E tests the generate command end-to-end.
func TestGenerateCommandE2E(t *testing.T) {
	_, cfgPath := testSurvey(t)
	outPath := filepath.Join(t.TempDir(), "generated.csv")

	err := newApp().Run([]string{"qbrank", "-c", cfgPath, "generate", "-n", "8", "-o", outPath})
	if err != nil {
		t.Fatalf("generate command failed: %v", err)
	}

	cfg := config.DefaultConfig()
	rows, _, err := dataset.ReadFile(outPath, cfg.ItemColumns())
	if err != nil {
		t.Fatalf("failed to read generated CSV: %v", err)
	}
	if want := 8 * len(cfg.Vendors); len(rows) != want {
		t.Errorf("generated %d rows, want %d", len(rows), want)
	}
}

// TestGenerateCommandBadRate verifies flag validation.
func TestGenerateCommandBadRate(t *testing.T) {
	_, cfgPath := testSurvey(t)

	err := newApp().Run([]string{"qbrank", "-c", cfgPath, "generate", "--missing-rate", "1.5"})
	if err == nil {
		t.Fatal("generate command expected error for rate > 1")
	}
}

// TestRankCommandE2E tests the rank command end-to-end.
func TestRankCommandE2E(t *testing.T) {
	_, cfgPath := testSurvey(t)
	outPath := filepath.Join(t.TempDir(), "rank.json")

	err := newApp().Run([]string{"qbrank", "-c", cfgPath, "rank", "-f", "json", "-o", outPath})
	if err != nil {
		t.Fatalf("rank command failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	var rep analysis.RankingReport
	if err := json.Unmarshal(data, &rep); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(rep.Scores.Composite) != 4 {
		t.Errorf("Composite has %d vendors, want 4", len(rep.Scores.Composite))
	}
	if rep.Stats.Records == 0 {
		t.Error("Stats.Records = 0, want > 0")
	}
}

// TestRankCommandTop verifies the --top flag truncates the ranking.
func TestRankCommandTop(t *testing.T) {
	_, cfgPath := testSurvey(t)
	outPath := filepath.Join(t.TempDir(), "rank.json")

	err := newApp().Run([]string{"qbrank", "-c", cfgPath, "rank", "-f", "json", "-o", outPath, "--top", "2"})
	if err != nil {
		t.Fatalf("rank command failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	var rep analysis.RankingReport
	if err := json.Unmarshal(data, &rep); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(rep.Scores.Composite) != 2 {
		t.Errorf("Composite has %d vendors, want 2", len(rep.Scores.Composite))
	}
}

// TestBiasCommandE2E tests the bias command end-to-end.
func TestBiasCommandE2E(t *testing.T) {
	_, cfgPath := testSurvey(t)
	outPath := filepath.Join(t.TempDir(), "bias.json")

	err := newApp().Run([]string{"qbrank", "-c", cfgPath, "bias", "-f", "json", "-o", outPath})
	if err != nil {
		t.Fatalf("bias command failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	var rep analysis.BiasReport
	if err := json.Unmarshal(data, &rep); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(rep.Analysis.Profiles) == 0 {
		t.Error("Profiles is empty, want one per respondent")
	}
}

// TestSignificanceCommandE2E tests the significance command with an alpha
// override.
func TestSignificanceCommandE2E(t *testing.T) {
	_, cfgPath := testSurvey(t)
	outPath := filepath.Join(t.TempDir(), "sig.json")

	err := newApp().Run([]string{"qbrank", "-c", cfgPath, "significance", "-f", "json", "-o", outPath, "--alpha", "0.01"})
	if err != nil {
		t.Fatalf("significance command failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	var tbl models.SignificanceTable
	if err := json.Unmarshal(data, &tbl); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if tbl.Alpha != 0.01 {
		t.Errorf("Alpha = %g, want 0.01", tbl.Alpha)
	}
	// 4 vendors -> 6 pairwise comparisons
	if len(tbl.Rows) != 6 {
		t.Errorf("Rows has %d pairs, want 6", len(tbl.Rows))
	}
}

// TestSegmentsCommandE2E tests the segments command with axis narrowing.
func TestSegmentsCommandE2E(t *testing.T) {
	_, cfgPath := testSurvey(t)
	outPath := filepath.Join(t.TempDir(), "seg.json")

	err := newApp().Run([]string{"qbrank", "-c", cfgPath, "segments", "-f", "json", "-o", outPath, "--axis", "department"})
	if err != nil {
		t.Fatalf("segments command failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	var an segments.Analysis
	if err := json.Unmarshal(data, &an); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(an.Tables) != 1 {
		t.Fatalf("Tables has %d axes, want 1", len(an.Tables))
	}
	if an.Tables[0].Axis != models.AxisDepartment {
		t.Errorf("Axis = %q, want department", an.Tables[0].Axis)
	}
}

// TestSegmentsCommandUnknownAxis verifies the unknown axis error surfaces.
func TestSegmentsCommandUnknownAxis(t *testing.T) {
	_, cfgPath := testSurvey(t)

	err := newApp().Run([]string{"qbrank", "-c", cfgPath, "segments", "--axis", "shoe_size"})
	if err == nil {
		t.Fatal("segments command expected error for unknown axis")
	}
	if !strings.Contains(err.Error(), "unknown segmentation axis") {
		t.Errorf("error = %v, want unknown axis message", err)
	}
}

// TestValidateCommandE2E tests the validate command on a clean dataset.
func TestValidateCommandE2E(t *testing.T) {
	_, cfgPath := testSurvey(t)
	outPath := filepath.Join(t.TempDir(), "validate.json")

	err := newApp().Run([]string{"qbrank", "-c", cfgPath, "validate", "-f", "json", "-o", outPath})
	if err != nil {
		t.Fatalf("validate command failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	var rep analysis.ValidationReport
	if err := json.Unmarshal(data, &rep); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if !rep.Valid {
		t.Error("Valid = false, want true for synthetic data")
	}
}

// TestAnalyzeCommandE2E tests the full pipeline command with markdown output.
func TestAnalyzeCommandE2E(t *testing.T) {
	_, cfgPath := testSurvey(t)
	outPath := filepath.Join(t.TempDir(), "report.md")

	err := newApp().Run([]string{"qbrank", "-c", cfgPath, "analyze", "-f", "markdown", "-o", outPath})
	if err != nil {
		t.Fatalf("analyze command failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	text := string(data)
	for _, want := range []string{"エグゼクティブサマリー", "総合ランキング", "有意差検定"} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing section %q", want)
		}
	}
}

// TestExportCommandE2E tests the Excel export command.
func TestExportCommandE2E(t *testing.T) {
	_, cfgPath := testSurvey(t)
	outPath := filepath.Join(t.TempDir(), "qbr.xlsx")

	err := newApp().Run([]string{"qbrank", "-c", cfgPath, "export", "-o", outPath})
	if err != nil {
		t.Fatalf("export command failed: %v", err)
	}

	info, err := os.Stat(outPath)
	if err != nil {
		t.Fatalf("workbook not written: %v", err)
	}
	if info.Size() == 0 {
		t.Error("workbook is empty")
	}
}

// TestInitCommandE2E verifies the generated config round-trips through the
// loader.
func TestInitCommandE2E(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "qbrank.toml")

	err := newApp().Run([]string{"qbrank", "init", "-o", outPath})
	if err != nil {
		t.Fatalf("init command failed: %v", err)
	}

	loaded, err := config.Load(outPath)
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	want := config.DefaultConfig()
	if loaded.Data.InputCSV != want.Data.InputCSV {
		t.Errorf("InputCSV = %q, want %q", loaded.Data.InputCSV, want.Data.InputCSV)
	}
	if loaded.Correction.ReliabilityThreshold != want.Correction.ReliabilityThreshold {
		t.Errorf("ReliabilityThreshold = %d, want %d",
			loaded.Correction.ReliabilityThreshold, want.Correction.ReliabilityThreshold)
	}
	if len(loaded.Vendors) != len(want.Vendors) {
		t.Errorf("Vendors has %d entries, want %d", len(loaded.Vendors), len(want.Vendors))
	}

	// Second run without --force must refuse to overwrite
	err = newApp().Run([]string{"qbrank", "init", "-o", outPath})
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("second init error = %v, want already exists", err)
	}
}

// TestConfigCommandsE2E tests the config inspection subcommands.
func TestConfigCommandsE2E(t *testing.T) {
	_, cfgPath := testSurvey(t)

	if err := newApp().Run([]string{"qbrank", "-c", cfgPath, "config", "show"}); err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if err := newApp().Run([]string{"qbrank", "-c", cfgPath, "config", "validate"}); err != nil {
		t.Fatalf("config validate failed: %v", err)
	}

	// Soft issues warn but do not fail the command
	warnPath := filepath.Join(t.TempDir(), "qbrank.toml")
	if err := os.WriteFile(warnPath, []byte("[significance]\nalpha = 1.5\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if err := newApp().Run([]string{"qbrank", "-c", warnPath, "config", "validate"}); err != nil {
		t.Fatalf("config validate with warnings failed: %v", err)
	}
}

// TestConfigShowBrokenFile verifies a parse failure surfaces as an error.
func TestConfigShowBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qbrank.toml")
	if err := os.WriteFile(path, []byte("[data\nbad"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	err := newApp().Run([]string{"qbrank", "-c", path, "config", "show"})
	if err == nil {
		t.Fatal("config show expected error for broken file")
	}
}

// TestCacheCommandsE2E tests the cache management subcommands.
func TestCacheCommandsE2E(t *testing.T) {
	dir := t.TempDir()
	cacheDir := filepath.Join(dir, "cache")
	cfgPath := filepath.Join(dir, "qbrank.toml")
	content := "[cache]\nenabled = true\ndir = '" + cacheDir + "'\nttl = 24\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	store, err := cache.New(cacheDir, 24, true)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	if err := store.Set("rank", []byte("cached")); err != nil {
		t.Fatalf("failed to seed cache: %v", err)
	}

	if err := newApp().Run([]string{"qbrank", "-c", cfgPath, "cache", "stats"}); err != nil {
		t.Fatalf("cache stats failed: %v", err)
	}
	if err := newApp().Run([]string{"qbrank", "-c", cfgPath, "cache", "prune"}); err != nil {
		t.Fatalf("cache prune failed: %v", err)
	}
	if err := newApp().Run([]string{"qbrank", "-c", cfgPath, "cache", "clear"}); err != nil {
		t.Fatalf("cache clear failed: %v", err)
	}
	if _, err := os.Stat(cacheDir); !os.IsNotExist(err) {
		t.Error("cache dir still exists after clear")
	}
}

// TestMCPManifest verifies the manifest flag prints without starting the
// server.
func TestMCPManifest(t *testing.T) {
	err := newApp().Run([]string{"qbrank", "mcp", "--manifest"})
	if err != nil {
		t.Fatalf("mcp --manifest failed: %v", err)
	}
}

// TestMissingInputError verifies a nonexistent survey path fails cleanly.
func TestMissingInputError(t *testing.T) {
	_, cfgPath := testSurvey(t)

	err := newApp().Run([]string{"qbrank", "-c", cfgPath, "rank", filepath.Join(t.TempDir(), "missing.csv")})
	if err == nil {
		t.Fatal("rank command expected error for missing input")
	}
}
