package bias

import (
	"math"

	"github.com/qbrtools/qbrank/pkg/dataset"
	"github.com/qbrtools/qbrank/pkg/models"
)

// Normalize re-expresses every score against its respondent's own
// distribution for that item, then rescales each z column back onto the
// 1-5 range using the column's global span.
//
// A z value exists only where the raw score is valid and the respondent
// rated the item at least twice with some spread. A z5 value additionally
// requires the column to have spread across the dataset: a column whose z
// values are all identical has no 1-5 image and stays missing.
func (a *Analyzer) Normalize(ds *dataset.Dataset, profiles []models.RespondentProfile) []models.NormalizedResponse {
	itemStats := make(map[int]map[string]models.ItemStats, len(profiles))
	for _, p := range profiles {
		itemStats[p.RespondentID] = p.Items
	}

	rows := ds.Rows()
	out := make([]models.NormalizedResponse, len(rows))
	for i, r := range rows {
		nr := models.NormalizedResponse{
			Response: r,
			Z:        make(map[string]models.Cell, len(a.items)),
			Z5:       make(map[string]models.Cell, len(a.items)),
		}
		stats := itemStats[r.RespondentID]
		for _, item := range a.items {
			cell := r.Score(item)
			st := stats[item]
			if !cell.Valid || !st.Std.Valid || st.Std.Value == 0 {
				nr.Z[item] = models.Missing()
				continue
			}
			nr.Z[item] = models.NewCell((cell.Value - st.Mean.Value) / st.Std.Value)
		}
		out[i] = nr
	}

	for _, item := range a.items {
		lo, hi := math.Inf(1), math.Inf(-1)
		for i := range out {
			if z, ok := out[i].Z[item].Float(); ok {
				lo = math.Min(lo, z)
				hi = math.Max(hi, z)
			}
		}
		span := hi - lo

		for i := range out {
			z, ok := out[i].Z[item].Float()
			if !ok || span <= 0 || math.IsInf(span, 0) {
				out[i].Z5[item] = models.Missing()
				continue
			}
			out[i].Z5[item] = models.NewCell((z-lo)/span*4 + 1)
		}
	}

	return out
}
