package segments

import (
	"fmt"
	"sort"
	"strings"

	"github.com/qbrtools/qbrank/pkg/config"
	"github.com/qbrtools/qbrank/pkg/dataset"
	"github.com/qbrtools/qbrank/pkg/models"
	"github.com/qbrtools/qbrank/pkg/stats"
)

// Rankings builds one table per configured axis. Departments without a
// configured rollup are excluded from the dept_category axis and reported in
// the warnings.
func (a *Analyzer) Rankings(ds *dataset.Dataset, profiles []models.RespondentProfile) ([]models.SegmentTable, []string) {
	groups := groupsByRespondent(profiles)

	var warnings []string
	tables := make([]models.SegmentTable, 0, len(a.axes))
	for _, ax := range a.axes {
		unmapped := make(map[string]bool)
		tables = append(tables, a.rankAxis(ds.Rows(), ax, groups, unmapped))
		if len(unmapped) > 0 {
			names := make([]string, 0, len(unmapped))
			for d := range unmapped {
				names = append(names, d)
			}
			sort.Strings(names)
			warnings = append(warnings, fmt.Sprintf("%s: departments without a group mapping excluded: %s",
				ax.Axis, strings.Join(names, ", ")))
		}
	}
	return tables, warnings
}

// rankAxis groups the rows by (segment, vendor), scores each cell as the mean
// of per-item means, and dense-ranks vendors within each segment, best score
// first. Segments follow the configured value order, with unlisted values
// after them.
func (a *Analyzer) rankAxis(rows []models.Response, ax config.SegmentAxisConfig, groups map[int]models.LeniencyGroup, unmapped map[string]bool) models.SegmentTable {
	items := a.itemColumns()

	type cellKey struct{ segment, vendor string }
	sums := make(map[cellKey][]float64)
	counts := make(map[cellKey][]int)
	seen := make(map[string]bool)

	for i := range rows {
		r := &rows[i]
		seg, ok := a.segmentValue(r, ax.Axis, groups)
		if !ok {
			if models.SegmentAxis(ax.Axis) == models.AxisDepartmentGroup && r.Department != "" {
				unmapped[r.Department] = true
			}
			continue
		}

		k := cellKey{seg, r.VendorID}
		if sums[k] == nil {
			sums[k] = make([]float64, len(items))
			counts[k] = make([]int, len(items))
		}
		for idx, item := range items {
			if v, ok := r.Score(item).Float(); ok {
				sums[k][idx] += v
				counts[k][idx]++
			}
		}
		seen[seg] = true
	}

	table := models.SegmentTable{Axis: models.SegmentAxis(ax.Axis)}
	for _, seg := range orderedSegments(ax.Values, seen) {
		var vendors []string
		var scores []float64
		for _, vc := range a.vendors {
			k := cellKey{seg, vc.ID}
			if sums[k] == nil {
				continue
			}
			if score, ok := meanOfItemMeans(sums[k], counts[k]); ok {
				vendors = append(vendors, vc.ID)
				scores = append(scores, score)
			}
		}

		segRows := make([]models.SegmentRanking, len(vendors))
		for i, rank := range stats.DenseRanks(scores, true) {
			segRows[i] = models.SegmentRanking{
				Segment:  seg,
				VendorID: vendors[i],
				AvgScore: scores[i],
				Rank:     rank,
			}
		}
		sort.SliceStable(segRows, func(i, j int) bool {
			return segRows[i].Rank < segRows[j].Rank
		})
		table.Rows = append(table.Rows, segRows...)
	}
	return table
}

func meanOfItemMeans(sums []float64, counts []int) (float64, bool) {
	var total float64
	n := 0
	for i, c := range counts {
		if c > 0 {
			total += sums[i] / float64(c)
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return total / float64(n), true
}

// orderedSegments returns the segments present in the data, preferred values
// first in their configured order, anything else after them alphabetically.
func orderedSegments(preferred []string, seen map[string]bool) []string {
	var out []string
	used := make(map[string]bool, len(preferred))
	for _, v := range preferred {
		if seen[v] {
			out = append(out, v)
			used[v] = true
		}
	}

	var rest []string
	for v := range seen {
		if !used[v] {
			rest = append(rest, v)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}
