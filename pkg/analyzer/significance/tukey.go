package significance

import (
	"math"

	"github.com/qbrtools/qbrank/pkg/models"
	"github.com/qbrtools/qbrank/pkg/stats"
)

// tukey runs the Tukey-Kramer pairwise comparisons: for each vendor pair the
// mean difference is studentized by sqrt((MSE/2)(1/ni + 1/nj)) and referred to
// the studentized range distribution with k groups and dfW error degrees of
// freedom. The unequal-n standard error makes the test exact for balanced
// groups and conservative otherwise. Confidence bounds use the critical value
// at the configured alpha.
func (a *Analyzer) tukey(groups []group) ([]models.PairwiseComparison, error) {
	k := len(groups)
	if k < 2 {
		return nil, ErrTooFewGroups
	}

	n := 0
	var ssw float64
	means := make([]float64, k)
	for i, g := range groups {
		n += len(g.values)
		means[i] = stats.Mean(g.values)
		for _, v := range g.values {
			ssw += (v - means[i]) * (v - means[i])
		}
	}
	dfW := n - k
	if dfW < 1 {
		return nil, ErrTooFewObservations
	}
	mse := ssw / float64(dfW)
	qCrit := stats.StudentizedRangeQuantile(1-a.alpha, k, dfW)

	var out []models.PairwiseComparison
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			diff := means[j] - means[i]
			se := math.Sqrt(mse / 2 * (1/float64(len(groups[i].values)) + 1/float64(len(groups[j].values))))

			var pAdj float64
			switch {
			case se > 0:
				pAdj = 1 - stats.StudentizedRangeCDF(math.Abs(diff)/se, k, dfW)
			case diff == 0:
				pAdj = 1
			}

			out = append(out, models.PairwiseComparison{
				Vendor1:  groups[i].vendor,
				Vendor2:  groups[j].vendor,
				MeanDiff: diff,
				PAdj:     pAdj,
				Lower:    diff - qCrit*se,
				Upper:    diff + qCrit*se,
				Reject:   pAdj < a.alpha,
			})
		}
	}
	return out, nil
}
