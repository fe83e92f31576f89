package bias

import (
	"math"
	"testing"
	"time"

	"github.com/qbrtools/qbrank/pkg/config"
	"github.com/qbrtools/qbrank/pkg/dataset"
	"github.com/qbrtools/qbrank/pkg/models"
)

func testConfig() *config.Config {
	return &config.Config{
		Vendors: []config.VendorConfig{
			{ID: "vendor_a", Name: "Vendor A"},
			{ID: "vendor_b", Name: "Vendor B"},
		},
		Categories: []config.CategoryConfig{
			{Key: "performance", Name: "パフォーマンス", Weight: 0.5, Items: []string{"speed"}},
			{Key: "technical", Name: "技術力", Weight: 0.5, Items: []string{"quality"}},
		},
		Classification: config.ClassificationConfig{
			StrictMax:             3.0,
			StandardMin:           3.0,
			StandardMax:           4.0,
			ExtremeUsageThreshold: 0.8,
		},
	}
}

func evalRow(respondent int, vendor string, speed, quality float64) models.Response {
	return models.Response{
		RespondentID: respondent,
		VendorID:     vendor,
		Timestamp:    time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		Scores: map[string]models.Cell{
			"performance_speed": models.NewCell(speed),
			"technical_quality": models.NewCell(quality),
		},
	}
}

// Three respondents: one balanced, one rating everything 5, one using the
// full scale.
func fixtureDataset() *dataset.Dataset {
	return dataset.New([]models.Response{
		evalRow(1, "vendor_a", 2, 3),
		evalRow(1, "vendor_b", 4, 3),
		evalRow(2, "vendor_a", 5, 5),
		evalRow(2, "vendor_b", 5, 5),
		evalRow(3, "vendor_a", 1, 2),
		evalRow(3, "vendor_b", 5, 4),
	})
}

func TestProfiles(t *testing.T) {
	profiles := New(testConfig()).Profiles(fixtureDataset())
	if len(profiles) != 3 {
		t.Fatalf("got %d profiles, want 3", len(profiles))
	}

	p := profiles[0]
	if p.RespondentID != 1 {
		t.Fatalf("first profile is respondent %d, want 1", p.RespondentID)
	}

	speed := p.Items["performance_speed"]
	if v, _ := speed.Mean.Float(); v != 3 {
		t.Errorf("speed mean = %v, want 3", speed.Mean)
	}
	if v, _ := speed.Std.Float(); math.Abs(v-math.Sqrt2) > 1e-12 {
		t.Errorf("speed std = %v, want sqrt(2)", speed.Std)
	}
	if speed.Count != 2 {
		t.Errorf("speed count = %d, want 2", speed.Count)
	}

	quality := p.Items["technical_quality"]
	if v, _ := quality.Std.Float(); v != 0 {
		t.Errorf("quality std = %v, want 0", quality.Std)
	}

	// AvgScore averages the item means: (3+3)/2.
	if v, _ := p.AvgScore.Float(); v != 3 {
		t.Errorf("AvgScore = %v, want 3", p.AvgScore)
	}
	// StdScore averages the item stds: (sqrt2+0)/2.
	if v, _ := p.StdScore.Float(); math.Abs(v-math.Sqrt2/2) > 1e-12 {
		t.Errorf("StdScore = %v, want sqrt(2)/2", p.StdScore)
	}

	// Values {2,4,3,3}: no extremes, two midpoints.
	if p.ExtremeUsage != 0 {
		t.Errorf("ExtremeUsage = %f, want 0", p.ExtremeUsage)
	}
	if p.MedianUsage != 0.5 {
		t.Errorf("MedianUsage = %f, want 0.5", p.MedianUsage)
	}
	if p.Count != 2 {
		t.Errorf("Count = %d, want 2", p.Count)
	}
}

func TestClassifyFlagsDegenerateRespondent(t *testing.T) {
	a := New(testConfig())
	profiles := a.Profiles(fixtureDataset())
	a.Classify(profiles)

	all5 := profiles[1]
	if !all5.FlagZeroStd {
		t.Error("all-5s respondent should carry the zero-spread flag")
	}
	if !all5.FlagExtreme {
		t.Error("all-5s respondent uses only extremes, should carry the extreme flag")
	}
	if !all5.IsAnomaly {
		t.Error("all-5s respondent should be an anomaly")
	}
	if all5.Group != models.GroupLenient {
		t.Errorf("all-5s group = %s, want lenient", all5.Group)
	}

	balanced := profiles[0]
	if balanced.IsAnomaly {
		t.Error("balanced respondent should not be an anomaly")
	}
	if balanced.Group != models.GroupStandard {
		t.Errorf("balanced group = %s, want standard", balanced.Group)
	}

	// Full-scale respondent: avg (3+3)/2 = 3, half the cells extreme.
	wide := profiles[2]
	if wide.FlagExtreme {
		t.Errorf("ExtremeUsage = %f should not exceed the 0.8 threshold", wide.ExtremeUsage)
	}
	if wide.Group != models.GroupStandard {
		t.Errorf("full-scale group = %s, want standard", wide.Group)
	}
}

func TestGroupBoundaries(t *testing.T) {
	a := New(testConfig())

	tests := []struct {
		avg  float64
		want models.LeniencyGroup
	}{
		{2.999, models.GroupStrict},
		{3.0, models.GroupStandard},
		{3.5, models.GroupStandard},
		{4.0, models.GroupStandard},
		{4.001, models.GroupLenient},
	}
	for _, tt := range tests {
		if got := a.groupFor(tt.avg); got != tt.want {
			t.Errorf("groupFor(%g) = %s, want %s", tt.avg, got, tt.want)
		}
	}
}

func TestClassifySkipsEmptyProfile(t *testing.T) {
	a := New(testConfig())
	profiles := []models.RespondentProfile{{RespondentID: 9}}
	a.Classify(profiles)

	if profiles[0].FlagZeroStd {
		t.Error("missing StdScore must not count as zero spread")
	}
	if profiles[0].Group != "" {
		t.Errorf("Group = %q, want unclassified", profiles[0].Group)
	}
}

func TestNormalizeZProperties(t *testing.T) {
	ds := dataset.New([]models.Response{
		evalRow(1, "vendor_a", 2, 3),
		evalRow(1, "vendor_b", 3, 4),
		evalRow(1, "vendor_c", 4, 2),
		evalRow(1, "vendor_d", 5, 5),
	})

	a := New(testConfig())
	normalized := a.Normalize(ds, a.Profiles(ds))

	// Within one respondent and item, z has mean 0 and sample std 1.
	for _, item := range []string{"performance_speed", "technical_quality"} {
		var zs []float64
		for _, nr := range normalized {
			if z, ok := nr.ZScore(item).Float(); ok {
				zs = append(zs, z)
			}
		}
		if len(zs) != 4 {
			t.Fatalf("%s: got %d z values, want 4", item, len(zs))
		}

		var sum float64
		for _, z := range zs {
			sum += z
		}
		mean := sum / float64(len(zs))
		if math.Abs(mean) > 1e-9 {
			t.Errorf("%s: z mean = %g, want 0", item, mean)
		}

		var ss float64
		for _, z := range zs {
			ss += (z - mean) * (z - mean)
		}
		std := math.Sqrt(ss / float64(len(zs)-1))
		if math.Abs(std-1) > 1e-9 {
			t.Errorf("%s: z std = %g, want 1", item, std)
		}
	}
}

func TestNormalizeDegenerateRespondent(t *testing.T) {
	a := New(testConfig())
	ds := fixtureDataset()
	normalized := a.Normalize(ds, a.Profiles(ds))

	for _, nr := range normalized {
		if nr.RespondentID != 2 {
			continue
		}
		if nr.ZScore("performance_speed").Valid {
			t.Error("zero-spread respondent must have no z score")
		}
		if nr.Z5Score("performance_speed").Valid {
			t.Error("zero-spread respondent must have no z5 score")
		}
	}
}

func TestNormalizeZ5Range(t *testing.T) {
	a := New(testConfig())
	ds := fixtureDataset()
	normalized := a.Normalize(ds, a.Profiles(ds))

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, nr := range normalized {
		if v, ok := nr.Z5Score("performance_speed").Float(); ok {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}

	// The column's global minimum maps to 1 and maximum to 5.
	if math.Abs(lo-1) > 1e-12 {
		t.Errorf("z5 min = %g, want 1", lo)
	}
	if math.Abs(hi-5) > 1e-12 {
		t.Errorf("z5 max = %g, want 5", hi)
	}
}

func TestNormalizeConstantColumn(t *testing.T) {
	// Both respondents rate both vendors identically, so every z is
	// missing and z5 has no span to map onto.
	ds := dataset.New([]models.Response{
		evalRow(1, "vendor_a", 4, 4),
		evalRow(1, "vendor_b", 4, 4),
		evalRow(2, "vendor_a", 4, 4),
		evalRow(2, "vendor_b", 4, 4),
	})

	a := New(testConfig())
	for _, nr := range a.Normalize(ds, a.Profiles(ds)) {
		if nr.ZScore("performance_speed").Valid || nr.Z5Score("performance_speed").Valid {
			t.Fatal("constant column should produce no z or z5 values")
		}
	}
}

func TestCategoryAlphas(t *testing.T) {
	cfg := testConfig()
	cfg.Categories = []config.CategoryConfig{
		{Key: "performance", Weight: 1, Items: []string{"speed", "stability"}},
	}

	rows := []models.Response{
		{RespondentID: 1, VendorID: "vendor_a", Scores: map[string]models.Cell{
			"performance_speed": models.NewCell(1), "performance_stability": models.NewCell(1)}},
		{RespondentID: 2, VendorID: "vendor_a", Scores: map[string]models.Cell{
			"performance_speed": models.NewCell(3), "performance_stability": models.NewCell(3)}},
		{RespondentID: 3, VendorID: "vendor_a", Scores: map[string]models.Cell{
			"performance_speed": models.NewCell(5), "performance_stability": models.NewCell(5)}},
	}

	alphas := New(cfg).CategoryAlphas(dataset.New(rows))
	if len(alphas) != 1 {
		t.Fatalf("got %d alphas, want 1", len(alphas))
	}
	if alphas[0].Respondents != 3 {
		t.Errorf("Respondents = %d, want 3", alphas[0].Respondents)
	}
	// Perfectly correlated items give exactly 1.
	if v, ok := alphas[0].Alpha.Float(); !ok || v != 1 {
		t.Errorf("Alpha = %v, want 1", alphas[0].Alpha)
	}
}

func TestCategoryAlphaKnownValue(t *testing.T) {
	cfg := testConfig()
	cfg.Categories = []config.CategoryConfig{
		{Key: "performance", Weight: 1, Items: []string{"speed", "stability"}},
	}

	rows := []models.Response{
		{RespondentID: 1, VendorID: "vendor_a", Scores: map[string]models.Cell{
			"performance_speed": models.NewCell(1), "performance_stability": models.NewCell(1)}},
		{RespondentID: 2, VendorID: "vendor_a", Scores: map[string]models.Cell{
			"performance_speed": models.NewCell(2), "performance_stability": models.NewCell(3)}},
		{RespondentID: 3, VendorID: "vendor_a", Scores: map[string]models.Cell{
			"performance_speed": models.NewCell(3), "performance_stability": models.NewCell(5)}},
	}

	alphas := New(cfg).CategoryAlphas(dataset.New(rows))
	v, ok := alphas[0].Alpha.Float()
	if !ok {
		t.Fatal("alpha should be defined")
	}
	if math.Abs(v-8.0/9) > 1e-12 {
		t.Errorf("Alpha = %v, want 8/9", v)
	}
}

func TestCategoryAlphaDegenerate(t *testing.T) {
	cfg := testConfig()
	cfg.Categories = []config.CategoryConfig{
		{Key: "performance", Weight: 1, Items: []string{"speed"}}, // single item
	}

	rows := []models.Response{
		evalRow(1, "vendor_a", 3, 3),
		evalRow(2, "vendor_a", 4, 4),
	}
	alphas := New(cfg).CategoryAlphas(dataset.New(rows))
	if alphas[0].Alpha.Valid {
		t.Error("single-item category cannot have an alpha")
	}
}

func TestAlphaSkipsIncompleteRows(t *testing.T) {
	cfg := testConfig()
	cfg.Categories = []config.CategoryConfig{
		{Key: "performance", Weight: 1, Items: []string{"speed", "stability"}},
	}

	rows := []models.Response{
		{RespondentID: 1, VendorID: "vendor_a", Scores: map[string]models.Cell{
			"performance_speed": models.NewCell(1), "performance_stability": models.NewCell(2)}},
		{RespondentID: 2, VendorID: "vendor_a", Scores: map[string]models.Cell{
			"performance_speed": models.NewCell(4)}}, // stability missing
		{RespondentID: 3, VendorID: "vendor_a", Scores: map[string]models.Cell{
			"performance_speed": models.NewCell(3), "performance_stability": models.NewCell(4)}},
	}

	alphas := New(cfg).CategoryAlphas(dataset.New(rows))
	if alphas[0].Respondents != 2 {
		t.Errorf("Respondents = %d, want 2 (incomplete row dropped)", alphas[0].Respondents)
	}
}

func TestAnalyze(t *testing.T) {
	analysis := New(testConfig()).Analyze(fixtureDataset())

	if len(analysis.Profiles) != 3 {
		t.Errorf("Profiles = %d, want 3", len(analysis.Profiles))
	}
	if len(analysis.Normalized) != 6 {
		t.Errorf("Normalized = %d, want 6", len(analysis.Normalized))
	}
	if len(analysis.Alphas) != 2 {
		t.Errorf("Alphas = %d, want 2", len(analysis.Alphas))
	}
	if analysis.AnomalyCount() != 1 {
		t.Errorf("AnomalyCount = %d, want 1", analysis.AnomalyCount())
	}

	groups := analysis.GroupCounts()
	if groups[models.GroupStandard] != 2 || groups[models.GroupLenient] != 1 {
		t.Errorf("GroupCounts = %v", groups)
	}
}
