package stats

import "sort"

// DenseRanks ranks values so that equal values share a rank and the next
// distinct value receives rank+1, leaving no gaps: the distinct values map
// onto {1..k}. With descending true the largest value gets rank 1.
func DenseRanks(values []float64, descending bool) []int {
	if len(values) == 0 {
		return nil
	}

	distinct := make([]float64, 0, len(values))
	seen := make(map[float64]bool, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			distinct = append(distinct, v)
		}
	}

	if descending {
		sort.Sort(sort.Reverse(sort.Float64Slice(distinct)))
	} else {
		sort.Float64s(distinct)
	}

	rankOf := make(map[float64]int, len(distinct))
	for i, v := range distinct {
		rankOf[v] = i + 1
	}

	ranks := make([]int, len(values))
	for i, v := range values {
		ranks[i] = rankOf[v]
	}
	return ranks
}

// AverageRanks assigns ascending 1-based ranks with ties receiving the mean of
// the positions they span, the convention non-parametric rank tests expect.
func AverageRanks(values []float64) []float64 {
	n := len(values)
	if n == 0 {
		return nil
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return values[order[a]] < values[order[b]]
	})

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && values[order[j+1]] == values[order[i]] {
			j++
		}
		// positions i..j are tied; ranks are 1-based
		avg := float64(i+j+2) / 2
		for k := i; k <= j; k++ {
			ranks[order[k]] = avg
		}
		i = j + 1
	}
	return ranks
}

// TieCorrection returns the Kruskal-Wallis tie correction factor
// 1 - sum(t^3 - t) / (n^3 - n) over the tie groups of values. It is 1 when no
// ties exist and 0 when every value is identical.
func TieCorrection(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 1
	}

	counts := make(map[float64]int, n)
	for _, v := range values {
		counts[v]++
	}

	var tieSum float64
	for _, t := range counts {
		if t > 1 {
			tf := float64(t)
			tieSum += tf*tf*tf - tf
		}
	}

	nf := float64(n)
	return 1 - tieSum/(nf*nf*nf-nf)
}
