// Package scoring aggregates bias-corrected survey responses into vendor
// rankings: weighted category means, a composite of z-average, rank, and raw
// signals, and the detailed and positioning tables behind the report charts.
package scoring

import (
	"github.com/qbrtools/qbrank/pkg/config"
	"github.com/qbrtools/qbrank/pkg/dataset"
	"github.com/qbrtools/qbrank/pkg/models"
)

// Scorer computes vendor scores over a cleansed dataset. It works the
// configured vendor and category sets; vendors absent from the data are
// skipped, vendors absent from the config are ignored.
type Scorer struct {
	vendors    []config.VendorConfig
	categories []config.CategoryConfig
	correction config.CorrectionConfig
}

// New creates a Scorer from the evaluation config.
func New(cfg *config.Config) *Scorer {
	return &Scorer{
		vendors:    cfg.Vendors,
		categories: cfg.Categories,
		correction: cfg.Correction,
	}
}

// Result bundles every scoring table for one dataset.
type Result struct {
	CategoryScores []models.CategoryScore    `json:"category_scores"`
	WeightedScores []models.WeightedScore    `json:"weighted_scores"`
	Composite      []models.CompositeScore   `json:"composite_scores"`
	Detailed       []models.DetailedScore    `json:"detailed_scores"`
	Positioning    []models.PositioningTable `json:"positioning"`
}

// Ranking returns the composite rows in final-score order, which Score
// already guarantees.
func (r *Result) Ranking() []models.CompositeScore {
	return r.Composite
}

// Top returns the best-ranked vendor id, or "" for an empty result.
func (r *Result) Top() string {
	if len(r.Composite) == 0 {
		return ""
	}
	return r.Composite[0].VendorID
}

// Score runs the full scoring pass. normalized must be the bias-corrected
// rows for the same dataset, in row order.
func (s *Scorer) Score(ds *dataset.Dataset, normalized []models.NormalizedResponse) *Result {
	categories := s.CategoryScores(ds)
	return &Result{
		CategoryScores: categories,
		WeightedScores: s.WeightedScores(categories),
		Composite:      s.CompositeScores(ds, normalized),
		Detailed:       s.DetailedScores(ds),
		Positioning:    s.PositioningTables(ds, categories),
	}
}
