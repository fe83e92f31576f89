package dataset

import (
	"fmt"
	"time"

	"github.com/qbrtools/qbrank/pkg/config"
	"github.com/qbrtools/qbrank/pkg/models"
	"github.com/qbrtools/qbrank/pkg/stats"
)

// ExclusionStats counts rows matched by each exclusion rule. Rules are
// evaluated independently against the input, so a row matching several
// rules is counted under each.
type ExclusionStats struct {
	Initial      int `json:"initial"`
	AllSameScore int `json:"all_same_score"`
	SingleVendor int `json:"single_vendor"`
	HighMissing  int `json:"high_missing_rate"`
	LowStdDev    int `json:"low_std_dev"`
	Final        int `json:"final"`
}

// FillStats summarizes missing-value handling.
type FillStats struct {
	Method           string `json:"method"`
	InitialMissing   int    `json:"initial_missing"`
	Filled           int    `json:"filled"`
	DroppedRows      int    `json:"dropped_rows"`
	RemainingMissing int    `json:"remaining_missing"`
}

// Issue is one data quality finding.
type Issue struct {
	Type    string `json:"type"`
	Column  string `json:"column,omitempty"`
	Count   int    `json:"count"`
	Details string `json:"details"`
}

// QualityReport collects quality findings over the cleansed rows.
type QualityReport struct {
	Records int     `json:"records"`
	Issues  []Issue `json:"issues"`
}

// Valid reports whether no quality issues were found.
func (q QualityReport) Valid() bool {
	return len(q.Issues) == 0
}

// Summary is the full cleansing outcome.
type Summary struct {
	Initial       int            `json:"initial"`
	Exclusion     ExclusionStats `json:"exclusion"`
	Fill          FillStats      `json:"fill"`
	Quality       QualityReport  `json:"quality"`
	Final         int            `json:"final"`
	TotalExcluded int            `json:"total_excluded"`
	ExclusionRate float64        `json:"exclusion_rate_percent"`
}

// Cleanser applies the configured exclusion rules, fills missing scores,
// and validates data quality.
type Cleanser struct {
	cfg   *config.Config
	items []string
}

// NewCleanser builds a Cleanser from the configuration.
func NewCleanser(cfg *config.Config) *Cleanser {
	return &Cleanser{cfg: cfg, items: cfg.ItemColumns()}
}

// Clean runs exclusion, fill, and quality validation in order and returns
// the surviving rows with a summary. Input rows are not modified.
func (c *Cleanser) Clean(rows []models.Response) ([]models.Response, *Summary) {
	summary := &Summary{Initial: len(rows)}

	kept, excl := c.exclude(rows)
	summary.Exclusion = excl

	filled, fill := c.fill(kept)
	summary.Fill = fill

	summary.Quality = c.validateQuality(filled)
	summary.Final = len(filled)
	summary.TotalExcluded = summary.Initial - summary.Final
	if summary.Initial > 0 {
		summary.ExclusionRate = float64(summary.TotalExcluded) / float64(summary.Initial) * 100
	}

	return filled, summary
}

// exclude drops rows matching any enabled exclusion rule. All rules are
// evaluated against the unmodified input before any row is removed.
func (c *Cleanser) exclude(rows []models.Response) ([]models.Response, ExclusionStats) {
	st := ExclusionStats{Initial: len(rows)}
	cl := c.cfg.Cleansing

	vendorsPerRespondent := make(map[int]map[string]bool)
	for _, r := range rows {
		set, ok := vendorsPerRespondent[r.RespondentID]
		if !ok {
			set = make(map[string]bool)
			vendorsPerRespondent[r.RespondentID] = set
		}
		set[r.VendorID] = true
	}

	excluded := make([]bool, len(rows))
	for i, r := range rows {
		valid := c.validScores(r)

		if cl.ExcludeAllSameScore && allSame(valid) {
			st.AllSameScore++
			excluded[i] = true
		}
		if cl.ExcludeSingleVendor && len(vendorsPerRespondent[r.RespondentID]) <= 1 {
			st.SingleVendor++
			excluded[i] = true
		}
		if c.missingRate(r) >= cl.MissingThreshold {
			st.HighMissing++
			excluded[i] = true
		}
		if rowStd(valid) <= cl.MinStdDev {
			st.LowStdDev++
			excluded[i] = true
		}
	}

	var kept []models.Response
	for i, r := range rows {
		if !excluded[i] {
			kept = append(kept, r)
		}
	}
	st.Final = len(kept)
	return kept, st
}

func (c *Cleanser) validScores(r models.Response) []float64 {
	out := make([]float64, 0, len(c.items))
	for _, item := range c.items {
		if v, ok := r.Score(item).Float(); ok {
			out = append(out, v)
		}
	}
	return out
}

func (c *Cleanser) missingRate(r models.Response) float64 {
	if len(c.items) == 0 {
		return 0
	}
	missing := 0
	for _, item := range c.items {
		if !r.Score(item).Valid {
			missing++
		}
	}
	return float64(missing) / float64(len(c.items))
}

// allSame reports whether two or more valid scores are all identical.
// Rows with fewer than two valid scores are left to the std rule.
func allSame(valid []float64) bool {
	if len(valid) <= 1 {
		return false
	}
	for _, v := range valid[1:] {
		if v != valid[0] {
			return false
		}
	}
	return true
}

// rowStd returns the sample standard deviation of a row's valid scores,
// treating rows with fewer than two values as zero spread.
func rowStd(valid []float64) float64 {
	if len(valid) <= 1 {
		return 0
	}
	return stats.SampleStd(valid)
}

// fill applies the configured missing-value strategy.
func (c *Cleanser) fill(rows []models.Response) ([]models.Response, FillStats) {
	st := FillStats{Method: c.cfg.Cleansing.FillMethod}
	st.InitialMissing = c.countMissing(rows)

	var out []models.Response
	switch c.cfg.Cleansing.FillMethod {
	case "category_mean":
		out = make([]models.Response, len(rows))
		for i, r := range rows {
			out[i] = c.fillCategoryMean(r, &st.Filled)
		}
	case "respondent_mean":
		out = make([]models.Response, len(rows))
		for i, r := range rows {
			out[i] = c.fillRowMean(r, &st.Filled)
		}
	case "drop":
		for _, r := range rows {
			if c.missingRate(r) > 0 {
				st.DroppedRows++
				continue
			}
			out = append(out, r)
		}
	default:
		out = rows
	}

	st.RemainingMissing = c.countMissing(out)
	return out, st
}

// fillCategoryMean fills each missing cell with the row's mean over the
// other items of the same category. Categories with no valid value in the
// row stay missing.
func (c *Cleanser) fillCategoryMean(r models.Response, filled *int) models.Response {
	out := cloneScores(r)
	for _, cat := range c.cfg.Categories {
		cols := cat.Columns()

		var valid []float64
		var missing []string
		for _, col := range cols {
			if v, ok := out.Score(col).Float(); ok {
				valid = append(valid, v)
			} else {
				missing = append(missing, col)
			}
		}
		if len(missing) == 0 || len(valid) == 0 {
			continue
		}
		mean := stats.Mean(valid)
		for _, col := range missing {
			out.Scores[col] = models.NewCell(mean)
			*filled++
		}
	}
	return out
}

// fillRowMean fills missing cells with the row's mean over all items.
func (c *Cleanser) fillRowMean(r models.Response, filled *int) models.Response {
	valid := c.validScores(r)
	if len(valid) == 0 {
		return r
	}
	mean := stats.Mean(valid)

	out := cloneScores(r)
	for _, item := range c.items {
		if !out.Score(item).Valid {
			out.Scores[item] = models.NewCell(mean)
			*filled++
		}
	}
	return out
}

func cloneScores(r models.Response) models.Response {
	scores := make(map[string]models.Cell, len(r.Scores))
	for k, v := range r.Scores {
		scores[k] = v
	}
	r.Scores = scores
	return r
}

func (c *Cleanser) countMissing(rows []models.Response) int {
	n := 0
	for _, r := range rows {
		for _, item := range c.items {
			if !r.Score(item).Valid {
				n++
			}
		}
	}
	return n
}

// validateQuality checks the cleansed rows for out-of-range scores,
// unknown vendor ids, duplicate (respondent, vendor) submissions, and
// future or unparseable timestamps.
func (c *Cleanser) validateQuality(rows []models.Response) QualityReport {
	rep := QualityReport{Records: len(rows)}
	cl := c.cfg.Cleansing

	for _, item := range c.items {
		out := 0
		for _, r := range rows {
			if v, ok := r.Score(item).Float(); ok && (v < cl.ScoreMin || v > cl.ScoreMax) {
				out++
			}
		}
		if out > 0 {
			rep.Issues = append(rep.Issues, Issue{
				Type:    "score_out_of_range",
				Column:  item,
				Count:   out,
				Details: fmt.Sprintf("outside %g-%g", cl.ScoreMin, cl.ScoreMax),
			})
		}
	}

	validVendors := make(map[string]bool)
	for _, id := range c.cfg.VendorIDs() {
		validVendors[id] = true
	}
	seen := make(map[string]bool)
	var invalid []string
	for _, r := range rows {
		if !validVendors[r.VendorID] && !seen[r.VendorID] {
			seen[r.VendorID] = true
			invalid = append(invalid, r.VendorID)
		}
	}
	if len(invalid) > 0 {
		rep.Issues = append(rep.Issues, Issue{
			Type:    "invalid_vendor_id",
			Count:   len(invalid),
			Details: fmt.Sprintf("unknown vendor ids: %v", invalid),
		})
	}

	pairCounts := make(map[uint64]int)
	for _, r := range rows {
		pairCounts[RowKey(r)]++
	}
	duplicates := 0
	for _, n := range pairCounts {
		if n > 1 {
			duplicates++
		}
	}
	if duplicates > 0 {
		rep.Issues = append(rep.Issues, Issue{
			Type:    "duplicate_response",
			Count:   duplicates,
			Details: "same respondent evaluated the same vendor more than once",
		})
	}

	now := time.Now()
	future, unparsed := 0, 0
	for _, r := range rows {
		switch {
		case r.Timestamp.IsZero():
			unparsed++
		case r.Timestamp.After(now):
			future++
		}
	}
	if future > 0 {
		rep.Issues = append(rep.Issues, Issue{
			Type:    "future_timestamp",
			Count:   future,
			Details: "timestamp after the current time",
		})
	}
	if unparsed > 0 {
		rep.Issues = append(rep.Issues, Issue{
			Type:    "invalid_timestamp",
			Count:   unparsed,
			Details: "missing or unparseable timestamp",
		})
	}

	return rep
}
