package generator

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/qbrtools/qbrank/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Vendors: []config.VendorConfig{
			{ID: "vendor_a", Name: "A社"},
			{ID: "vendor_b", Name: "B社"},
			{ID: "vendor_c", Name: "C社"},
		},
		Categories: []config.CategoryConfig{
			{Key: "performance", Name: "パフォーマンス", Weight: 0.6, Items: []string{"speed", "stability"}},
			{Key: "support", Name: "サポート", Weight: 0.4, Items: []string{"response", "quality"}},
		},
		Cleansing: config.CleansingConfig{ScoreMin: 1, ScoreMax: 5},
		Segments: config.SegmentsConfig{
			Axes: []config.SegmentAxisConfig{
				{Axis: "usage_frequency", Name: "利用頻度", Values: []string{"daily", "weekly", "monthly"}},
			},
			DepartmentGroups: map[string]string{
				"it":    "IT部門",
				"sales": "営業部門",
			},
		},
	}
}

func TestGenerateDeterministic(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := New(testConfig(), WithNow(now)).Generate()
	b := New(testConfig(), WithNow(now)).Generate()
	if !reflect.DeepEqual(a, b) {
		t.Fatal("same seed produced different datasets")
	}

	c := New(testConfig(), WithNow(now), WithSeed(7)).Generate()
	if reflect.DeepEqual(a, c) {
		t.Fatal("different seeds produced identical datasets")
	}
}

func TestGenerateShape(t *testing.T) {
	cfg := testConfig()
	rows := New(cfg, WithRespondents(10)).Generate()
	if len(rows) != 30 {
		t.Fatalf("rows = %d, want 30", len(rows))
	}
	for i, row := range rows {
		if row.ResponseID != i+1 {
			t.Fatalf("row %d: ResponseID = %d, want %d", i, row.ResponseID, i+1)
		}
		if want := i/3 + 1; row.RespondentID != want {
			t.Fatalf("row %d: RespondentID = %d, want %d", i, row.RespondentID, want)
		}
		if want := cfg.Vendors[i%3].ID; row.VendorID != want {
			t.Fatalf("row %d: VendorID = %s, want %s", i, row.VendorID, want)
		}
	}
}

func TestGenerateDefaultCount(t *testing.T) {
	rows := New(testConfig()).Generate()
	if len(rows) != 75 {
		t.Fatalf("rows = %d, want 75 (25 respondents x 3 vendors)", len(rows))
	}
}

func TestGenerateScoresWithinBounds(t *testing.T) {
	rows := New(testConfig()).Generate()
	for _, row := range rows {
		for col, cell := range row.Scores {
			v, ok := cell.Float()
			if !ok {
				t.Fatalf("response %d: %s holds a missing cell", row.ResponseID, col)
			}
			if v < 1 || v > 5 {
				t.Fatalf("response %d: %s = %v, want within [1, 5]", row.ResponseID, col, v)
			}
			if v != math.Trunc(v) {
				t.Fatalf("response %d: %s = %v, want a whole number", row.ResponseID, col, v)
			}
		}
	}
}

func TestGenerateRequiredAlwaysPresent(t *testing.T) {
	rows := New(testConfig(), WithMissingRate(1)).Generate()
	for _, row := range rows {
		for _, col := range []string{"performance_speed", "performance_stability"} {
			if _, ok := row.Scores[col]; !ok {
				t.Fatalf("response %d: required item %s missing", row.ResponseID, col)
			}
		}
		if _, ok := row.Scores["support_response"]; ok {
			t.Fatalf("response %d: optional item present at missing rate 1", row.ResponseID)
		}
	}
}

func TestGenerateMissingRateZero(t *testing.T) {
	rows := New(testConfig(), WithMissingRate(0)).Generate()
	for _, row := range rows {
		if len(row.Scores) != 4 {
			t.Fatalf("response %d: %d scores, want all 4", row.ResponseID, len(row.Scores))
		}
	}
}

func TestGenerateOptionalMissingness(t *testing.T) {
	rows := New(testConfig()).Generate()
	present := 0
	for _, row := range rows {
		if _, ok := row.Scores["support_quality"]; ok {
			present++
		}
	}
	if present == 0 || present == len(rows) {
		t.Fatalf("support_quality present in %d of %d rows, want a mix", present, len(rows))
	}
}

func TestGenerateOptionalOverride(t *testing.T) {
	rows := New(testConfig(), WithMissingRate(1), WithOptionalItems("performance_speed")).Generate()
	for _, row := range rows {
		if _, ok := row.Scores["performance_speed"]; ok {
			t.Fatalf("response %d: overridden optional item present at missing rate 1", row.ResponseID)
		}
		if len(row.Scores) != 3 {
			t.Fatalf("response %d: %d scores, want the 3 remaining items", row.ResponseID, len(row.Scores))
		}
	}
}

func TestGenerateTimestamps(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rows := New(testConfig(), WithNow(now)).Generate()
	earliest := now.AddDate(0, 0, -31)
	for _, row := range rows {
		if !row.Timestamp.Before(now) {
			t.Fatalf("response %d: timestamp %v not in the past", row.ResponseID, row.Timestamp)
		}
		if row.Timestamp.Before(earliest) {
			t.Fatalf("response %d: timestamp %v older than the window", row.ResponseID, row.Timestamp)
		}
		if h := row.Timestamp.Hour(); h < 8 || h > 18 {
			t.Fatalf("response %d: timestamp hour %d outside business hours", row.ResponseID, h)
		}
	}
}

func TestGenerateAttributesFromConfig(t *testing.T) {
	cfg := testConfig()
	frequencies := map[string]bool{"daily": true, "weekly": true, "monthly": true}
	rows := New(cfg).Generate()
	for _, row := range rows {
		if _, ok := cfg.Segments.DepartmentGroups[row.Department]; !ok {
			t.Fatalf("response %d: department %q has no configured group", row.ResponseID, row.Department)
		}
		if !frequencies[row.UsageFrequency] {
			t.Fatalf("response %d: usage frequency %q not from the configured axis", row.ResponseID, row.UsageFrequency)
		}
		if row.Role == "" {
			t.Fatalf("response %d: empty role", row.ResponseID)
		}
	}
}

func TestGenerateRespondentAttributesStable(t *testing.T) {
	rows := New(testConfig()).Generate()
	type attrs struct {
		department, role, frequency string
		incident                    bool
	}
	seen := make(map[int]attrs)
	for _, row := range rows {
		got := attrs{row.Department, row.Role, row.UsageFrequency, row.IncidentExperience}
		if want, ok := seen[row.RespondentID]; ok {
			if got != want {
				t.Fatalf("respondent %d: attributes changed between rows: %+v vs %+v", row.RespondentID, got, want)
			}
			continue
		}
		seen[row.RespondentID] = got
	}
}

func TestGenerateVendorQualitySpread(t *testing.T) {
	rows := New(testConfig(), WithRespondents(40), WithMissingRate(0)).Generate()
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, row := range rows {
		for _, cell := range row.Scores {
			v, _ := cell.Float()
			sums[row.VendorID] += v
			counts[row.VendorID]++
		}
	}
	first := sums["vendor_a"] / float64(counts["vendor_a"])
	last := sums["vendor_c"] / float64(counts["vendor_c"])
	if last-first < 0.3 {
		t.Fatalf("vendor_c mean %.2f not clearly above vendor_a mean %.2f", last, first)
	}
}

func TestGenerateComments(t *testing.T) {
	pool := make(map[string]bool, len(commentPool))
	for _, c := range commentPool {
		pool[c] = true
	}
	rows := New(testConfig()).Generate()
	withComment := 0
	for _, row := range rows {
		if row.Comment == "" {
			continue
		}
		withComment++
		if !pool[row.Comment] {
			t.Fatalf("response %d: comment %q not from the pool", row.ResponseID, row.Comment)
		}
	}
	if withComment == 0 || withComment == len(rows) {
		t.Fatalf("%d of %d rows carry comments, want a mix", withComment, len(rows))
	}
}
