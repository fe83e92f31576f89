package scoring

import (
	"github.com/qbrtools/qbrank/pkg/dataset"
	"github.com/qbrtools/qbrank/pkg/models"
)

// DetailedScores returns the long-form (vendor, item) mean matrix. Every
// configured item appears for every vendor present in the data; items nobody
// answered carry a missing cell.
func (s *Scorer) DetailedScores(ds *dataset.Dataset) []models.DetailedScore {
	items := s.itemColumns()

	var out []models.DetailedScore
	for _, v := range s.vendors {
		rows := ds.VendorRows(v.ID)
		if len(rows) == 0 {
			continue
		}
		for _, item := range items {
			var sum float64
			n := 0
			for i := range rows {
				if val, ok := rows[i].Score(item).Float(); ok {
					sum += val
					n++
				}
			}
			score := models.Missing()
			if n > 0 {
				score = models.NewCell(sum / float64(n))
			}
			out = append(out, models.DetailedScore{
				VendorID: v.ID,
				Item:     item,
				Score:    score,
			})
		}
	}
	return out
}

// PositioningTables builds one scatter per category pair and variant: the raw
// variant plots plain category means, the weighted variant the same means
// multiplied by the category weights. Category pairs follow config order, so
// four categories yield six pairs and twelve tables.
func (s *Scorer) PositioningTables(ds *dataset.Dataset, categoryScores []models.CategoryScore) []models.PositioningTable {
	byCategory := make(map[string]map[string]models.CategoryScore)
	for _, cs := range categoryScores {
		m, ok := byCategory[cs.Category]
		if !ok {
			m = make(map[string]models.CategoryScore)
			byCategory[cs.Category] = m
		}
		m[cs.VendorID] = cs
	}

	var out []models.PositioningTable
	for i := 0; i < len(s.categories); i++ {
		for j := i + 1; j < len(s.categories); j++ {
			catX, catY := s.categories[i], s.categories[j]
			for _, variant := range []string{"raw", "weighted"} {
				table := models.PositioningTable{
					CategoryX: catX.Key,
					CategoryY: catY.Key,
					Variant:   variant,
				}
				for _, v := range s.vendors {
					n := ds.DistinctRespondents(v.ID)
					if n == 0 {
						continue
					}
					table.Points = append(table.Points, models.PositioningPoint{
						VendorID:        v.ID,
						X:               coordinate(byCategory[catX.Key], v.ID, variant),
						Y:               coordinate(byCategory[catY.Key], v.ID, variant),
						RespondentCount: n,
					})
				}
				out = append(out, table)
			}
		}
	}
	return out
}

func coordinate(scores map[string]models.CategoryScore, vendorID, variant string) models.Cell {
	cs, ok := scores[vendorID]
	if !ok {
		return models.Missing()
	}
	if variant == "weighted" {
		return models.NewCell(cs.Weighted)
	}
	return models.NewCell(cs.MeanScore)
}
