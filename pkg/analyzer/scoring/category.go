package scoring

import (
	"math"

	"github.com/qbrtools/qbrank/pkg/config"
	"github.com/qbrtools/qbrank/pkg/dataset"
	"github.com/qbrtools/qbrank/pkg/models"
	"github.com/qbrtools/qbrank/pkg/stats"
)

// CategoryScores aggregates each (category, vendor) pair in config order.
// Vendors with no response contributing at least one valid item in the
// category are omitted.
func (s *Scorer) CategoryScores(ds *dataset.Dataset) []models.CategoryScore {
	var out []models.CategoryScore
	for _, cat := range s.categories {
		for _, v := range s.vendors {
			rows := ds.VendorRows(v.ID)
			if len(rows) == 0 {
				continue
			}
			if cs, ok := categoryScore(v.ID, cat, rows); ok {
				out = append(out, cs)
			}
		}
	}
	return out
}

// categoryScore aggregates one vendor's responses over one category. The mean
// is the mean of per-item means so that unevenly answered items weigh
// equally; the std pools every valid cell. N counts responses contributing at
// least one valid item, and the 95% interval uses the normal approximation
// 1.96*std/sqrt(N) around the mean.
func categoryScore(vendorID string, cat config.CategoryConfig, rows []models.Response) (models.CategoryScore, bool) {
	cols := cat.Columns()

	var colMeans []float64
	var pooled []float64
	for _, col := range cols {
		var vals []float64
		for i := range rows {
			if v, ok := rows[i].Score(col).Float(); ok {
				vals = append(vals, v)
			}
		}
		if len(vals) > 0 {
			colMeans = append(colMeans, stats.Mean(vals))
			pooled = append(pooled, vals...)
		}
	}

	n := 0
	for i := range rows {
		for _, col := range cols {
			if rows[i].Score(col).Valid {
				n++
				break
			}
		}
	}

	if n == 0 || len(colMeans) == 0 {
		return models.CategoryScore{}, false
	}

	mean := stats.Mean(colMeans)
	cs := models.CategoryScore{
		VendorID:     vendorID,
		Category:     cat.Key,
		CategoryName: cat.Name,
		MeanScore:    mean,
		Std:          models.NewCell(stats.SampleStd(pooled)),
		N:            n,
		Weighted:     mean * cat.Weight,
	}
	if std, ok := cs.Std.Float(); ok {
		half := 1.96 * std / math.Sqrt(float64(n))
		cs.CI95Low = models.NewCell(mean - half)
		cs.CI95High = models.NewCell(mean + half)
	}
	return cs, true
}

// WeightedScores sums each vendor's weighted category means, in configured
// vendor order. Vendors without a single category row are omitted.
func (s *Scorer) WeightedScores(categoryScores []models.CategoryScore) []models.WeightedScore {
	sums := make(map[string]float64)
	seen := make(map[string]bool)
	for _, cs := range categoryScores {
		sums[cs.VendorID] += cs.Weighted
		seen[cs.VendorID] = true
	}

	var out []models.WeightedScore
	for _, v := range s.vendors {
		if !seen[v.ID] {
			continue
		}
		out = append(out, models.WeightedScore{
			VendorID:      v.ID,
			WeightedScore: sums[v.ID],
		})
	}
	return out
}
