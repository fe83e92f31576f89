package significance

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/qbrtools/qbrank/pkg/models"
	"github.com/qbrtools/qbrank/pkg/stats"
)

// anova is the one-way fixed-effects decomposition over the vendor groups:
// F = (SSB/dfB) / (SSW/dfW) against the F(dfB, dfW) null. A zero within-group
// sum of squares with spread between groups yields F = +Inf and p = 0.
func (a *Analyzer) anova(groups []group) (models.AnovaResult, error) {
	k := len(groups)
	if k < 2 {
		return models.AnovaResult{}, ErrTooFewGroups
	}

	n := 0
	var total float64
	for _, g := range groups {
		n += len(g.values)
		for _, v := range g.values {
			total += v
		}
	}
	dfB, dfW := k-1, n-k
	if dfW < 1 {
		return models.AnovaResult{}, ErrTooFewObservations
	}

	grand := total / float64(n)
	var ssb, ssw float64
	for _, g := range groups {
		m := stats.Mean(g.values)
		d := m - grand
		ssb += float64(len(g.values)) * d * d
		for _, v := range g.values {
			ssw += (v - m) * (v - m)
		}
	}

	res := models.AnovaResult{
		Column:    a.column,
		DFBetween: dfB,
		DFWithin:  dfW,
	}
	if ssw == 0 {
		if ssb == 0 {
			return models.AnovaResult{}, ErrConstantInput
		}
		res.F = math.Inf(1)
		res.PValue = 0
		return res, nil
	}

	res.F = (ssb / float64(dfB)) / (ssw / float64(dfW))
	res.PValue = distuv.F{D1: float64(dfB), D2: float64(dfW)}.Survival(res.F)
	return res, nil
}
