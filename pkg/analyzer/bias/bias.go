// Package bias profiles respondent rating behavior and corrects for it.
// Respondents differ in how they use a 1-5 scale: some cluster at the
// midpoint, some live at the extremes, some rate every vendor alike. The
// analyzer quantifies those habits per respondent, flags anomalous raters,
// and re-expresses every score relative to its own respondent's
// distribution so vendors can be compared across raters.
package bias

import (
	"github.com/qbrtools/qbrank/pkg/config"
	"github.com/qbrtools/qbrank/pkg/dataset"
	"github.com/qbrtools/qbrank/pkg/models"
)

// Analyzer computes respondent profiles, anomaly flags, score
// normalization, and scale reliability for one configured survey.
type Analyzer struct {
	items          []string
	categories     []config.CategoryConfig
	classification config.ClassificationConfig
}

// New creates a bias analyzer from the configuration.
func New(cfg *config.Config) *Analyzer {
	return &Analyzer{
		items:          cfg.ItemColumns(),
		categories:     cfg.Categories,
		classification: cfg.Classification,
	}
}

// Analysis bundles the bias diagnostics with the corrected rows.
type Analysis struct {
	Profiles   []models.RespondentProfile  `json:"profiles"`
	Normalized []models.NormalizedResponse `json:"-"`
	Alphas     []models.CategoryAlpha      `json:"alphas"`
}

// AnomalyCount returns how many respondents carry an anomaly flag.
func (a *Analysis) AnomalyCount() int {
	n := 0
	for _, p := range a.Profiles {
		if p.IsAnomaly {
			n++
		}
	}
	return n
}

// GroupCounts returns the respondent count per leniency group.
func (a *Analysis) GroupCounts() map[models.LeniencyGroup]int {
	counts := make(map[models.LeniencyGroup]int)
	for _, p := range a.Profiles {
		if p.Group != "" {
			counts[p.Group]++
		}
	}
	return counts
}

// Analyze runs the full bias pipeline: profile, classify, normalize, and
// measure scale reliability.
func (a *Analyzer) Analyze(ds *dataset.Dataset) *Analysis {
	profiles := a.Profiles(ds)
	a.Classify(profiles)
	return &Analysis{
		Profiles:   profiles,
		Normalized: a.Normalize(ds, profiles),
		Alphas:     a.CategoryAlphas(ds),
	}
}
