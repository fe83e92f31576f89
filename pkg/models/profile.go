package models

// LeniencyGroup classifies how generously a respondent uses the rating scale,
// derived from their average score against configured cut points.
type LeniencyGroup string

const (
	GroupStrict   LeniencyGroup = "strict"
	GroupStandard LeniencyGroup = "standard"
	GroupLenient  LeniencyGroup = "lenient"
)

// ItemStats carries one respondent's per-item rating statistics across all
// vendors they evaluated. Std is missing when the respondent rated the item
// fewer than two times.
type ItemStats struct {
	Mean  Cell `json:"mean"`
	Std   Cell `json:"std"`
	Count int  `json:"count"`
}

// RespondentProfile is the bias diagnostic for one respondent: scale-usage
// statistics, anomaly flags, and the leniency classification used by segment
// analysis. AvgScore and StdScore average the per-item means and stds rather
// than pooling all cells, so an item rated for many vendors does not dominate
// one rated once.
type RespondentProfile struct {
	RespondentID int                  `json:"respondent_id"`
	Items        map[string]ItemStats `json:"items,omitempty"`
	AvgScore     Cell                 `json:"avg_score"`
	StdScore     Cell                 `json:"std_score"`
	ExtremeUsage float64              `json:"extreme_usage"` // fraction of valid scores at 1 or 5
	MedianUsage  float64              `json:"median_usage"`  // fraction of valid scores at 3
	Count        int                  `json:"count"`         // max per-item response count
	FlagZeroStd  bool                 `json:"flag_zero_std"`
	FlagExtreme  bool                 `json:"flag_extreme"`
	IsAnomaly    bool                 `json:"is_anomaly"`
	Group        LeniencyGroup        `json:"respondent_group,omitempty"`
}

// CategoryAlpha is the internal-consistency diagnostic for one evaluation
// category: Cronbach's alpha over the complete-case respondent x item matrix.
// Alpha is missing when fewer than two items or two complete respondents exist.
type CategoryAlpha struct {
	Category    string `json:"category"`
	Alpha       Cell   `json:"alpha"`
	Items       int    `json:"items"`
	Respondents int    `json:"respondents"` // complete cases used
}
