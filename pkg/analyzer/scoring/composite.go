package scoring

import (
	"math"
	"sort"

	"github.com/qbrtools/qbrank/pkg/dataset"
	"github.com/qbrtools/qbrank/pkg/models"
	"github.com/qbrtools/qbrank/pkg/stats"
)

// CompositeScores blends three per-vendor signals into the final ranking:
// the mean of corrected z5 item means, its dense rank (weighted negatively,
// rank 1 being best), and the raw item mean. The blend is then discounted by
// a reliability coefficient min(1, sqrt(respondents/threshold)) so that
// thinly covered vendors cannot win on a handful of answers. Vendors lacking
// any valid raw or z5 cell are omitted. Rows come back sorted by final score,
// best first.
func (s *Scorer) CompositeScores(ds *dataset.Dataset, normalized []models.NormalizedResponse) []models.CompositeScore {
	items := s.itemColumns()

	byVendor := make(map[string][]models.NormalizedResponse)
	for _, r := range normalized {
		byVendor[r.VendorID] = append(byVendor[r.VendorID], r)
	}

	var out []models.CompositeScore
	var zMeans []float64
	for _, v := range s.vendors {
		rows := byVendor[v.ID]
		if len(rows) == 0 {
			continue
		}

		raw, rawOK := meanOfItemMeans(rows, items, func(r models.NormalizedResponse, item string) models.Cell {
			return r.Score(item)
		})
		zAvg, zOK := meanOfItemMeans(rows, items, func(r models.NormalizedResponse, item string) models.Cell {
			return r.Z5Score(item)
		})
		if !rawOK || !zOK {
			continue
		}

		out = append(out, models.CompositeScore{
			VendorID:        v.ID,
			RawScore:        raw,
			ZAvgScore:       zAvg,
			RespondentCount: ds.DistinctRespondents(v.ID),
		})
		zMeans = append(zMeans, zAvg)
	}

	w := s.correction.CompositeWeights
	threshold := float64(s.correction.ReliabilityThreshold)
	for i, rank := range stats.DenseRanks(zMeans, true) {
		cs := &out[i]
		cs.Rank = rank
		cs.CompositeScore = cs.ZAvgScore*w.ZScore - float64(rank)*w.Rank + cs.RawScore*w.Raw
		cs.ReliabilityCoef = math.Min(1, math.Sqrt(float64(cs.RespondentCount)/threshold))
		cs.FinalScore = cs.CompositeScore * cs.ReliabilityCoef
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].FinalScore > out[b].FinalScore
	})
	return out
}

// meanOfItemMeans averages the per-item column means of one vendor's rows,
// so items answered by few respondents count the same as popular ones.
// ok is false when no item has a single valid cell.
func meanOfItemMeans(rows []models.NormalizedResponse, items []string, cell func(models.NormalizedResponse, string) models.Cell) (float64, bool) {
	var colMeans []float64
	for _, item := range items {
		var sum float64
		n := 0
		for _, r := range rows {
			if v, ok := cell(r, item).Float(); ok {
				sum += v
				n++
			}
		}
		if n > 0 {
			colMeans = append(colMeans, sum/float64(n))
		}
	}
	if len(colMeans) == 0 {
		return 0, false
	}
	return stats.Mean(colMeans), true
}

func (s *Scorer) itemColumns() []string {
	var cols []string
	for _, cat := range s.categories {
		cols = append(cols, cat.Columns()...)
	}
	return cols
}
