package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration options for qbrank. It is immutable after
// loading and passed explicitly into each component.
type Config struct {
	// Data input locations
	Data DataConfig `koanf:"data" toml:"data"`

	// Vendor set under evaluation
	Vendors []VendorConfig `koanf:"vendors" toml:"vendors"`

	// Evaluation categories in display order
	Categories []CategoryConfig `koanf:"categories" toml:"categories"`

	// Respondent leniency bands and anomaly thresholds
	Classification ClassificationConfig `koanf:"classification" toml:"classification"`

	// Bias-correction blend weights and reliability discount
	Correction CorrectionConfig `koanf:"correction" toml:"correction"`

	// Cross-vendor significance testing
	Significance SignificanceConfig `koanf:"significance" toml:"significance"`

	// Segmentation axes and department grouping
	Segments SegmentsConfig `koanf:"segments" toml:"segments"`

	// Cleansing rules
	Cleansing CleansingConfig `koanf:"cleansing" toml:"cleansing"`

	// Cache settings
	Cache CacheConfig `koanf:"cache" toml:"cache"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`
}

// DataConfig locates the survey inputs.
type DataConfig struct {
	InputCSV string `koanf:"input_csv" toml:"input_csv"`
	Schema   string `koanf:"schema" toml:"schema"`
}

// VendorConfig describes one vendor in the fixed evaluation set.
type VendorConfig struct {
	ID    string `koanf:"id" toml:"id" json:"id"`
	Name  string `koanf:"name" toml:"name" json:"name"`
	Color string `koanf:"color" toml:"color" json:"color"` // hex color for the visualization collaborator
}

// CategoryConfig is one evaluation category with its ordered item list. Item
// names are the short identifiers; the dataset column is "<key>_<item>".
type CategoryConfig struct {
	Key    string   `koanf:"key" toml:"key" json:"key"`
	Name   string   `koanf:"name" toml:"name" json:"name"`
	Weight float64  `koanf:"weight" toml:"weight" json:"weight"`
	Items  []string `koanf:"items" toml:"items" json:"items"`
}

// Columns returns the dataset column names of the category's items, in order.
func (c CategoryConfig) Columns() []string {
	cols := make([]string, len(c.Items))
	for i, item := range c.Items {
		cols[i] = c.Key + "_" + item
	}
	return cols
}

// ClassificationConfig holds the leniency cut points and the extreme-usage
// anomaly threshold. A respondent with avg score below StrictMax is strict,
// within [StandardMin, StandardMax] standard, above it lenient.
type ClassificationConfig struct {
	StrictMax             float64 `koanf:"strict_max" toml:"strict_max"`
	StandardMin           float64 `koanf:"standard_min" toml:"standard_min"`
	StandardMax           float64 `koanf:"standard_max" toml:"standard_max"`
	ExtremeUsageThreshold float64 `koanf:"extreme_usage_threshold" toml:"extreme_usage_threshold"`
}

// CompositeWeights blends the three ranking signals. They should sum to 1
// conceptually; the blend does not enforce it.
type CompositeWeights struct {
	ZScore float64 `koanf:"zscore" toml:"zscore"`
	Rank   float64 `koanf:"rank" toml:"rank"`
	Raw    float64 `koanf:"raw" toml:"raw"`
}

// CorrectionConfig holds composite blending and the reliability discount.
type CorrectionConfig struct {
	CompositeWeights     CompositeWeights `koanf:"composite_weights" toml:"composite_weights"`
	ReliabilityThreshold int              `koanf:"reliability_threshold" toml:"reliability_threshold"`
}

// SignificanceConfig selects the working column for the significance engine.
// The column must exist in the normalized dataset (an item column or a derived
// _z/_z5 column) and is used consistently for the omnibus, post-hoc, and
// effect-size stages.
type SignificanceConfig struct {
	Column string  `koanf:"column" toml:"column"`
	Alpha  float64 `koanf:"alpha" toml:"alpha"`
}

// SegmentAxisConfig fixes the display identity of one segmentation axis: its
// dataset attribute, display name, and the presentation order of its values.
// Values absent from the list sort after the listed ones.
type SegmentAxisConfig struct {
	Axis   string   `koanf:"axis" toml:"axis" json:"axis"`
	Name   string   `koanf:"name" toml:"name" json:"name"`
	Values []string `koanf:"values" toml:"values" json:"values"`
}

// SegmentsConfig drives the segment ranking engine. DepartmentGroups is the
// many-to-one relabeling behind the business-vs-IT axis; departments missing
// from it are reported, not silently dropped.
type SegmentsConfig struct {
	Axes             []SegmentAxisConfig `koanf:"axes" toml:"axes"`
	DepartmentGroups map[string]string   `koanf:"department_groups" toml:"department_groups"`
}

// CleansingConfig holds the response exclusion rules and fill strategy.
type CleansingConfig struct {
	ScoreMin            float64 `koanf:"score_min" toml:"score_min"`
	ScoreMax            float64 `koanf:"score_max" toml:"score_max"`
	MissingThreshold    float64 `koanf:"missing_threshold" toml:"missing_threshold"` // row missing-rate at or above this is excluded
	MinStdDev           float64 `koanf:"min_std_dev" toml:"min_std_dev"`             // row std at or below this is excluded
	ExcludeAllSameScore bool    `koanf:"exclude_all_same_score" toml:"exclude_all_same_score"`
	ExcludeSingleVendor bool    `koanf:"exclude_single_vendor" toml:"exclude_single_vendor"`
	FillMethod          string  `koanf:"fill_method" toml:"fill_method"` // category_mean, respondent_mean, drop
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl"` // TTL in hours
}

// OutputConfig controls output locations and formatting.
type OutputConfig struct {
	Dir    string `koanf:"dir" toml:"dir"`
	Format string `koanf:"format" toml:"format"` // text, json, markdown, toon
	Color  bool   `koanf:"color" toml:"color"`
}

// DefaultConfig returns a config with the standard QBR evaluation setup.
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			InputCSV: "data/survey_data.csv",
			Schema:   "config/survey_schema.yaml",
		},
		Vendors: []VendorConfig{
			{ID: "vendor_a", Name: "Vendor A", Color: "#1f77b4"},
			{ID: "vendor_b", Name: "Vendor B", Color: "#ff7f0e"},
			{ID: "vendor_c", Name: "Vendor C", Color: "#2ca02c"},
			{ID: "vendor_d", Name: "Vendor D", Color: "#d62728"},
		},
		Categories: []CategoryConfig{
			{
				Key:    "performance",
				Name:   "パフォーマンス",
				Weight: 0.4,
				Items:  []string{"incident_response_speed", "sla_compliance", "system_stability"},
			},
			{
				Key:    "technical",
				Name:   "技術力",
				Weight: 0.3,
				Items:  []string{"proposal_quality", "security_compliance", "architecture_design"},
			},
			{
				Key:    "business",
				Name:   "ビジネス対応",
				Weight: 0.2,
				Items:  []string{"cost_performance", "communication", "flexibility"},
			},
			{
				Key:    "improvement",
				Name:   "改善提案",
				Weight: 0.1,
				Items:  []string{"roadmap_clarity", "feedback_responsiveness", "proactive_improvement"},
			},
		},
		Classification: ClassificationConfig{
			StrictMax:             3.0,
			StandardMin:           3.0,
			StandardMax:           4.0,
			ExtremeUsageThreshold: 0.8,
		},
		Correction: CorrectionConfig{
			CompositeWeights: CompositeWeights{
				ZScore: 0.5,
				Rank:   0.3,
				Raw:    0.2,
			},
			ReliabilityThreshold: 20,
		},
		Significance: SignificanceConfig{
			Column: "performance_incident_response_speed_z5",
			Alpha:  0.05,
		},
		Segments: SegmentsConfig{
			Axes: []SegmentAxisConfig{
				{Axis: "respondent_group", Name: "評価者群", Values: []string{"strict", "standard", "lenient"}},
				{Axis: "department", Name: "部門", Values: []string{"it", "business", "finance", "hr", "sales", "logistics"}},
				{Axis: "usage_frequency", Name: "利用頻度", Values: []string{"daily", "weekly", "monthly", "rarely"}},
				{Axis: "incident_experience", Name: "インシデント経験", Values: []string{"true", "false"}},
				{Axis: "dept_category", Name: "部門分類", Values: []string{"IT部門", "業務部門", "営業部門"}},
			},
			DepartmentGroups: map[string]string{
				"it":        "IT部門",
				"business":  "業務部門",
				"finance":   "業務部門",
				"hr":        "業務部門",
				"sales":     "営業部門",
				"logistics": "業務部門",
			},
		},
		Cleansing: CleansingConfig{
			ScoreMin:            1,
			ScoreMax:            5,
			MissingThreshold:    0.5,
			MinStdDev:           0.0,
			ExcludeAllSameScore: true,
			ExcludeSingleVendor: true,
			FillMethod:          "category_mean",
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".qbrank/cache",
			TTL:     24,
		},
		Output: OutputConfig{
			Dir:    "output",
			Format: "text",
			Color:  true,
		},
	}
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	// Determine parser based on extension
	var parser koanf.Parser
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}

	// Roster lists in the file replace the defaults wholesale; the
	// element-wise merge would otherwise keep tail defaults when the file's
	// list is shorter.
	if k.Exists("vendors") {
		cfg.Vendors = nil
	}
	if k.Exists("categories") {
		cfg.Categories = nil
	}
	if k.Exists("segments.axes") {
		cfg.Segments.Axes = nil
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default discovery locations, in precedence order.
var (
	configNames = []string{
		"qbrank.toml",
		"qbrank.yaml",
		"qbrank.yml",
		"qbrank.json",
		".qbrank.toml",
		".qbrank.yaml",
		".qbrank.yml",
		".qbrank.json",
	}

	searchDirs = []string{".", ".qbrank", "config"}
)

// Discover returns the config file path LoadOrDefault would use, or the empty
// string when no candidate exists.
func Discover() string {
	for _, dir := range searchDirs {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// LoadOrDefault loads config from the standard locations or returns defaults.
func LoadOrDefault() *Config {
	if path := Discover(); path != "" {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	return DefaultConfig()
}

// ItemColumns returns every item column across all categories, in category
// then item order. This is the canonical column order for every aggregation.
func (c *Config) ItemColumns() []string {
	var cols []string
	for _, cat := range c.Categories {
		cols = append(cols, cat.Columns()...)
	}
	return cols
}

// Category returns the category with the given key.
func (c *Config) Category(key string) (CategoryConfig, bool) {
	for _, cat := range c.Categories {
		if cat.Key == key {
			return cat, true
		}
	}
	return CategoryConfig{}, false
}

// VendorIDs returns the configured vendor ids in order.
func (c *Config) VendorIDs() []string {
	ids := make([]string, len(c.Vendors))
	for i, v := range c.Vendors {
		ids[i] = v.ID
	}
	return ids
}

// VendorName returns the display name for a vendor id, falling back to the id.
func (c *Config) VendorName(id string) string {
	for _, v := range c.Vendors {
		if v.ID == id {
			return v.Name
		}
	}
	return id
}

// Axis returns the segmentation axis config for the given attribute.
func (c *Config) Axis(attribute string) (SegmentAxisConfig, bool) {
	for _, ax := range c.Segments.Axes {
		if ax.Axis == attribute {
			return ax, true
		}
	}
	return SegmentAxisConfig{}, false
}

// Validate reports hard configuration problems: missing vendors or categories,
// duplicate item columns, an unusable fill method or leniency band. Soft
// issues belong to Warnings.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Vendors) == 0 {
		errs = append(errs, errors.New("no vendors configured"))
	}
	seenVendor := make(map[string]bool)
	for _, v := range c.Vendors {
		if v.ID == "" {
			errs = append(errs, errors.New("vendor with empty id"))
			continue
		}
		if seenVendor[v.ID] {
			errs = append(errs, fmt.Errorf("duplicate vendor id %q", v.ID))
		}
		seenVendor[v.ID] = true
	}

	if len(c.Categories) == 0 {
		errs = append(errs, errors.New("no categories configured"))
	}
	seenCol := make(map[string]bool)
	for _, cat := range c.Categories {
		if cat.Key == "" {
			errs = append(errs, errors.New("category with empty key"))
			continue
		}
		if len(cat.Items) == 0 {
			errs = append(errs, fmt.Errorf("category %q has no items", cat.Key))
		}
		for _, col := range cat.Columns() {
			if seenCol[col] {
				errs = append(errs, fmt.Errorf("duplicate item column %q", col))
			}
			seenCol[col] = true
		}
	}

	if c.Classification.StandardMin > c.Classification.StandardMax {
		errs = append(errs, fmt.Errorf("classification standard band inverted: min %.2f > max %.2f",
			c.Classification.StandardMin, c.Classification.StandardMax))
	}

	switch c.Cleansing.FillMethod {
	case "category_mean", "respondent_mean", "drop":
	default:
		errs = append(errs, fmt.Errorf("unknown fill method %q", c.Cleansing.FillMethod))
	}

	if c.Correction.ReliabilityThreshold <= 0 {
		errs = append(errs, fmt.Errorf("reliability threshold must be positive, got %d",
			c.Correction.ReliabilityThreshold))
	}

	return errors.Join(errs...)
}

// Warnings reports soft configuration inconsistencies the caller should
// surface before running an analysis.
func (c *Config) Warnings() []string {
	var warnings []string

	var weightSum float64
	for _, cat := range c.Categories {
		weightSum += cat.Weight
	}
	if weightSum < 0.999 || weightSum > 1.001 {
		warnings = append(warnings, fmt.Sprintf("category weights sum to %.3f, expected 1.0", weightSum))
	}

	cw := c.Correction.CompositeWeights
	blend := cw.ZScore + cw.Rank + cw.Raw
	if blend < 0.999 || blend > 1.001 {
		warnings = append(warnings, fmt.Sprintf("composite weights sum to %.3f, expected 1.0", blend))
	}

	if c.Significance.Alpha <= 0 || c.Significance.Alpha >= 1 {
		warnings = append(warnings, fmt.Sprintf("significance alpha %.3f outside (0, 1)", c.Significance.Alpha))
	}

	return warnings
}
