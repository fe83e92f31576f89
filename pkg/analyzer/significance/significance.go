// Package significance tests whether vendor score differences are real:
// one-way ANOVA across vendor groups on a single score column, Tukey HSD
// post-hoc pairwise comparisons, and Cohen's d effect sizes, merged into one
// significance table.
package significance

import (
	"errors"
	"strings"

	"github.com/qbrtools/qbrank/pkg/config"
	"github.com/qbrtools/qbrank/pkg/models"
)

var (
	ErrNoColumn           = errors.New("no significance column configured")
	ErrTooFewGroups       = errors.New("need at least two vendor groups with observations")
	ErrTooFewObservations = errors.New("not enough observations to estimate within-group variance")
	ErrConstantInput      = errors.New("all observations are identical")
)

// Analyzer runs the cross-vendor significance tests on one score column. The
// column may name a raw item, its _z variant, or its _z5 variant; the same
// column feeds the omnibus, post-hoc, and effect-size stages.
type Analyzer struct {
	vendors []config.VendorConfig
	column  string
	alpha   float64
}

// New creates an Analyzer from the evaluation config.
func New(cfg *config.Config) *Analyzer {
	return &Analyzer{
		vendors: cfg.Vendors,
		column:  cfg.Significance.Column,
		alpha:   cfg.Significance.Alpha,
	}
}

// Column returns the score column under test.
func (a *Analyzer) Column() string {
	return a.column
}

// Table runs the full significance pass: the omnibus ANOVA, one Tukey row per
// vendor pair, and the matching effect sizes, merged with the shared ANOVA
// p-value on every row.
func (a *Analyzer) Table(normalized []models.NormalizedResponse) (*models.SignificanceTable, error) {
	groups, err := a.groups(normalized)
	if err != nil {
		return nil, err
	}

	anova, err := a.anova(groups)
	if err != nil {
		return nil, err
	}
	comparisons, err := a.tukey(groups)
	if err != nil {
		return nil, err
	}
	effects := a.effectSizes(groups)

	effectFor := make(map[string]models.Cell, len(effects))
	for _, e := range effects {
		effectFor[e.Pair] = e.D
	}

	rows := make([]models.SignificanceRow, len(comparisons))
	for i, c := range comparisons {
		pair := c.Vendor1 + " vs " + c.Vendor2
		rows[i] = models.SignificanceRow{
			AnovaPValue: anova.PValue,
			Vendor1:     c.Vendor1,
			Vendor2:     c.Vendor2,
			Pair:        pair,
			MeanDiff:    c.MeanDiff,
			PAdj:        c.PAdj,
			Lower:       c.Lower,
			Upper:       c.Upper,
			Reject:      c.Reject,
			EffectSizeD: effectFor[pair],
		}
	}

	return &models.SignificanceTable{
		Column: a.column,
		Alpha:  a.alpha,
		Anova:  anova,
		Rows:   rows,
	}, nil
}

// Anova runs only the omnibus stage.
func (a *Analyzer) Anova(normalized []models.NormalizedResponse) (models.AnovaResult, error) {
	groups, err := a.groups(normalized)
	if err != nil {
		return models.AnovaResult{}, err
	}
	return a.anova(groups)
}

// Tukey runs only the post-hoc stage.
func (a *Analyzer) Tukey(normalized []models.NormalizedResponse) ([]models.PairwiseComparison, error) {
	groups, err := a.groups(normalized)
	if err != nil {
		return nil, err
	}
	return a.tukey(groups)
}

// EffectSizes computes Cohen's d for every vendor pair in config order.
func (a *Analyzer) EffectSizes(normalized []models.NormalizedResponse) ([]models.EffectSize, error) {
	groups, err := a.groups(normalized)
	if err != nil {
		return nil, err
	}
	return a.effectSizes(groups), nil
}

// group is one vendor's valid observations on the working column.
type group struct {
	vendor string
	values []float64
}

func (a *Analyzer) groups(normalized []models.NormalizedResponse) ([]group, error) {
	if a.column == "" {
		return nil, ErrNoColumn
	}

	byVendor := make(map[string][]float64)
	for i := range normalized {
		if v, ok := columnValue(&normalized[i], a.column).Float(); ok {
			byVendor[normalized[i].VendorID] = append(byVendor[normalized[i].VendorID], v)
		}
	}

	var out []group
	for _, vc := range a.vendors {
		if vals := byVendor[vc.ID]; len(vals) > 0 {
			out = append(out, group{vendor: vc.ID, values: vals})
		}
	}
	return out, nil
}

// columnValue resolves a column name against a normalized row: a _z5 or _z
// suffix selects the corrected variants, anything else the raw item score.
func columnValue(r *models.NormalizedResponse, column string) models.Cell {
	if strings.HasSuffix(column, "_z5") {
		return r.Z5Score(strings.TrimSuffix(column, "_z5"))
	}
	if strings.HasSuffix(column, "_z") {
		return r.ZScore(strings.TrimSuffix(column, "_z"))
	}
	return r.Score(column)
}
