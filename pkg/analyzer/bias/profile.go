package bias

import (
	"github.com/qbrtools/qbrank/pkg/dataset"
	"github.com/qbrtools/qbrank/pkg/models"
	"github.com/qbrtools/qbrank/pkg/stats"
)

// Profiles builds one profile per respondent, ordered by respondent id.
func (a *Analyzer) Profiles(ds *dataset.Dataset) []models.RespondentProfile {
	respondents := ds.Respondents()
	profiles := make([]models.RespondentProfile, 0, len(respondents))
	for _, rid := range respondents {
		profiles = append(profiles, a.profileOne(rid, ds.RespondentRows(rid)))
	}
	return profiles
}

// profileOne summarizes one respondent's rating behavior across all their
// rows. AvgScore and StdScore average the per-item means and stds so an
// item rated for many vendors does not dominate one rated once. Extreme
// and median usage are shares of the respondent's valid cells.
func (a *Analyzer) profileOne(rid int, rows []models.Response) models.RespondentProfile {
	p := models.RespondentProfile{
		RespondentID: rid,
		Items:        make(map[string]models.ItemStats, len(a.items)),
	}

	var meanSum, stdSum float64
	var meanN, stdN int
	extreme, median, validCells := 0, 0, 0

	for _, item := range a.items {
		var values []float64
		for _, r := range rows {
			v, ok := r.Score(item).Float()
			if !ok {
				continue
			}
			values = append(values, v)
			validCells++
			if v == 1 || v == 5 {
				extreme++
			}
			if v == 3 {
				median++
			}
		}

		st := models.ItemStats{Count: len(values)}
		if len(values) > 0 {
			m := stats.Mean(values)
			st.Mean = models.NewCell(m)
			meanSum += m
			meanN++
		}
		if len(values) >= 2 {
			s := stats.SampleStd(values)
			st.Std = models.NewCell(s)
			stdSum += s
			stdN++
		}
		p.Items[item] = st
		if st.Count > p.Count {
			p.Count = st.Count
		}
	}

	if meanN > 0 {
		p.AvgScore = models.NewCell(meanSum / float64(meanN))
	}
	if stdN > 0 {
		p.StdScore = models.NewCell(stdSum / float64(stdN))
	}
	if validCells > 0 {
		p.ExtremeUsage = float64(extreme) / float64(validCells)
		p.MedianUsage = float64(median) / float64(validCells)
	}
	return p
}

// Classify annotates profiles in place with anomaly flags and the leniency
// group. The zero-spread flag requires a defined std: a respondent with a
// single rating per item has no spread to measure and is not flagged.
func (a *Analyzer) Classify(profiles []models.RespondentProfile) {
	c := a.classification
	for i := range profiles {
		p := &profiles[i]
		p.FlagZeroStd = p.StdScore.Valid && p.StdScore.Value == 0
		p.FlagExtreme = p.ExtremeUsage > c.ExtremeUsageThreshold
		p.IsAnomaly = p.FlagZeroStd || p.FlagExtreme
		if p.AvgScore.Valid {
			p.Group = a.groupFor(p.AvgScore.Value)
		}
	}
}

func (a *Analyzer) groupFor(avg float64) models.LeniencyGroup {
	switch {
	case avg < a.classification.StrictMax:
		return models.GroupStrict
	case avg <= a.classification.StandardMax:
		return models.GroupStandard
	default:
		return models.GroupLenient
	}
}
