package significance

import (
	"math"

	"github.com/qbrtools/qbrank/pkg/models"
	"github.com/qbrtools/qbrank/pkg/stats"
)

// effectSizes computes Cohen's d = (mean1 - mean2) / sqrt((s1^2 + s2^2)/2)
// for every vendor pair in config order. Pairs where either group has fewer
// than two observations, or where both groups are flat, carry a missing d.
func (a *Analyzer) effectSizes(groups []group) []models.EffectSize {
	var out []models.EffectSize
	for i := 0; i < len(groups); i++ {
		for j := i + 1; j < len(groups); j++ {
			g1, g2 := groups[i], groups[j]

			d := models.Missing()
			v1 := stats.SampleVariance(g1.values)
			v2 := stats.SampleVariance(g2.values)
			if !math.IsNaN(v1) && !math.IsNaN(v2) {
				if pooled := math.Sqrt((v1 + v2) / 2); pooled > 0 {
					d = models.NewCell((stats.Mean(g1.values) - stats.Mean(g2.values)) / pooled)
				}
			}

			out = append(out, models.EffectSize{
				Vendor1: g1.vendor,
				Vendor2: g2.vendor,
				Pair:    g1.vendor + " vs " + g2.vendor,
				D:       d,
			})
		}
	}
	return out
}
