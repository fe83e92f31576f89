package models

// AnovaResult is the omnibus one-way ANOVA across vendor groups on the
// significance column: H0 is "all vendor means are equal".
type AnovaResult struct {
	Column    string  `json:"column"`
	F         float64 `json:"F"`
	PValue    float64 `json:"p_value"`
	DFBetween int     `json:"df_between"`
	DFWithin  int     `json:"df_within"`
}

// PairwiseComparison is one Tukey HSD row. MeanDiff is mean(Vendor2) minus
// mean(Vendor1); Lower/Upper bound the family-wise confidence interval at the
// test's alpha; Reject is true when the adjusted p-value falls below alpha.
type PairwiseComparison struct {
	Vendor1  string  `json:"group1"`
	Vendor2  string  `json:"group2"`
	MeanDiff float64 `json:"meandiff"`
	PAdj     float64 `json:"p_adj"`
	Lower    float64 `json:"lower"`
	Upper    float64 `json:"upper"`
	Reject   bool    `json:"reject"`
}

// EffectSize is Cohen's d for one ordered vendor pair. D is positive when the
// first vendor scores higher, missing when the pooled spread is zero.
type EffectSize struct {
	Vendor1 string `json:"vendor1"`
	Vendor2 string `json:"vendor2"`
	Pair    string `json:"pair"`
	D       Cell   `json:"effect_size_d"`
}

// SignificanceRow merges one vendor pair's post-hoc comparison with its effect
// size and the shared omnibus p-value, one row of the significance table.
type SignificanceRow struct {
	AnovaPValue float64 `json:"anova_p_value"`
	Vendor1     string  `json:"group1"`
	Vendor2     string  `json:"group2"`
	Pair        string  `json:"pair"`
	MeanDiff    float64 `json:"meandiff"`
	PAdj        float64 `json:"p_adj"`
	Lower       float64 `json:"lower"`
	Upper       float64 `json:"upper"`
	Reject      bool    `json:"reject"`
	EffectSizeD Cell    `json:"effect_size_d"`
}

// SignificanceTable is the full cross-vendor significance report on one score
// column.
type SignificanceTable struct {
	Column string            `json:"column"`
	Alpha  float64           `json:"alpha"`
	Anova  AnovaResult       `json:"anova"`
	Rows   []SignificanceRow `json:"rows"`
}

// SegmentStat describes one segment's overall-score distribution inside a
// Kruskal-Wallis result.
type SegmentStat struct {
	Segment string `json:"segment"`
	N       int    `json:"n"`
	Mean    Cell   `json:"mean"`
	Median  Cell   `json:"median"`
	Std     Cell   `json:"std"`
}

// KruskalResult is the non-parametric omnibus test of whether segment
// membership on one attribute shifts the per-response overall score. Segments
// are listed in order of first appearance in the data.
type KruskalResult struct {
	Attribute      string        `json:"attribute"`
	Test           string        `json:"test"`
	Statistic      float64       `json:"statistic"`
	PValue         float64       `json:"p_value"`
	Significant    bool          `json:"significant"`
	Alpha          float64       `json:"alpha"`
	NSegments      int           `json:"n_segments"`
	Segments       []string      `json:"segments"`
	SegmentStats   []SegmentStat `json:"segment_stats"`
	Interpretation string        `json:"interpretation"`
}
