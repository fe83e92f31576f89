package bias

import (
	"github.com/qbrtools/qbrank/pkg/dataset"
	"github.com/qbrtools/qbrank/pkg/models"
)

// CategoryAlphas measures the internal consistency of each evaluation
// category with Cronbach's alpha over the complete-case response x item
// matrix. Alpha uses population variance consistently, so perfectly
// correlated items yield exactly 1.0, and is clamped to [0, 1]. It is
// missing when a category has fewer than two items, fewer than two
// complete rows, or no variance in the summed scores.
func (a *Analyzer) CategoryAlphas(ds *dataset.Dataset) []models.CategoryAlpha {
	out := make([]models.CategoryAlpha, 0, len(a.categories))
	for _, cat := range a.categories {
		cols := cat.Columns()
		ca := models.CategoryAlpha{Category: cat.Key, Items: len(cols)}

		var matrix [][]float64
		for _, r := range ds.Rows() {
			row := make([]float64, 0, len(cols))
			for _, col := range cols {
				v, ok := r.Score(col).Float()
				if !ok {
					row = nil
					break
				}
				row = append(row, v)
			}
			if row != nil {
				matrix = append(matrix, row)
			}
		}

		ca.Respondents = len(matrix)
		if alpha, ok := cronbachAlpha(matrix); ok {
			ca.Alpha = models.NewCell(alpha)
		}
		out = append(out, ca)
	}
	return out
}

// cronbachAlpha computes alpha for a [rows][items] matrix. The bool result
// is false when the input is degenerate.
func cronbachAlpha(matrix [][]float64) (float64, bool) {
	n := len(matrix)
	if n < 2 {
		return 0, false
	}
	k := len(matrix[0])
	if k < 2 {
		return 0, false
	}

	means := make([]float64, k)
	totals := make([]float64, n)
	for i, row := range matrix {
		for j, v := range row {
			means[j] += v
			totals[i] += v
		}
	}
	for j := range means {
		means[j] /= float64(n)
	}

	var itemVarSum float64
	for j := 0; j < k; j++ {
		var sum float64
		for i := 0; i < n; i++ {
			d := matrix[i][j] - means[j]
			sum += d * d
		}
		itemVarSum += sum / float64(n)
	}

	var totalMean float64
	for _, t := range totals {
		totalMean += t
	}
	totalMean /= float64(n)
	var totalVar float64
	for _, t := range totals {
		d := t - totalMean
		totalVar += d * d
	}
	totalVar /= float64(n)

	if totalVar == 0 {
		return 0, false
	}

	kf := float64(k)
	alpha := (kf / (kf - 1)) * (1 - itemVarSum/totalVar)
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	return alpha, true
}
