// Package segments ranks vendors within respondent segments (leniency group,
// department, usage frequency, incident experience, and the department
// business/IT rollup) and tests with Kruskal-Wallis whether segment membership
// shifts the overall score.
package segments

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/qbrtools/qbrank/pkg/config"
	"github.com/qbrtools/qbrank/pkg/dataset"
	"github.com/qbrtools/qbrank/pkg/models"
)

var (
	ErrTooFewSegments  = errors.New("need at least two segments with scores")
	ErrIdenticalScores = errors.New("all scores are identical across segments")
)

// Analyzer runs the segment ranking and testing pass over the configured
// axes.
type Analyzer struct {
	vendors    []config.VendorConfig
	categories []config.CategoryConfig
	axes       []config.SegmentAxisConfig
	deptGroups map[string]string
	alpha      float64
}

// New creates an Analyzer from the evaluation config.
func New(cfg *config.Config) *Analyzer {
	return &Analyzer{
		vendors:    cfg.Vendors,
		categories: cfg.Categories,
		axes:       cfg.Segments.Axes,
		deptGroups: cfg.Segments.DepartmentGroups,
		alpha:      cfg.Significance.Alpha,
	}
}

// Analysis bundles the per-axis rankings, the Kruskal-Wallis results for the
// axes where the test could run, the integrated cross-axis table, and any
// warnings raised along the way (unmapped departments, untestable axes).
type Analysis struct {
	Tables     []models.SegmentTable      `json:"tables"`
	Kruskal    []models.KruskalResult     `json:"kruskal"`
	Integrated []models.IntegratedRanking `json:"integrated"`
	Warnings   []string                   `json:"warnings,omitempty"`
}

// Analyze runs every configured axis: rankings first, then the score
// difference test per axis. Axes that cannot be tested are reported in
// Warnings rather than failing the run.
func (a *Analyzer) Analyze(ds *dataset.Dataset, profiles []models.RespondentProfile) *Analysis {
	tables, warnings := a.Rankings(ds, profiles)

	var kruskal []models.KruskalResult
	for _, ax := range a.axes {
		res, err := a.Kruskal(ds, profiles, ax)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", ax.Axis, err))
			continue
		}
		kruskal = append(kruskal, res)
	}

	return &Analysis{
		Tables:     tables,
		Kruskal:    kruskal,
		Integrated: a.Integrate(tables),
		Warnings:   warnings,
	}
}

// Integrate flattens the per-axis tables into the long cross-axis view, axes
// in config order, rows keeping their (segment, rank) order. Category carries
// the axis display name and Axis the concrete segment value.
func (a *Analyzer) Integrate(tables []models.SegmentTable) []models.IntegratedRanking {
	var out []models.IntegratedRanking
	for _, table := range tables {
		name := a.axisName(string(table.Axis))
		for _, row := range table.Rows {
			out = append(out, models.IntegratedRanking{
				Category: name,
				Axis:     row.Segment,
				VendorID: row.VendorID,
				Rank:     row.Rank,
				AvgScore: row.AvgScore,
			})
		}
	}
	return out
}

func (a *Analyzer) axisName(axis string) string {
	for _, ax := range a.axes {
		if ax.Axis == axis {
			return ax.Name
		}
	}
	return axis
}

// segmentValue resolves a row's segment membership on one axis. The second
// return is false when the row does not belong to any segment: an
// unclassified respondent, a blank attribute, or a department without a
// configured rollup.
func (a *Analyzer) segmentValue(r *models.Response, axis string, groups map[int]models.LeniencyGroup) (string, bool) {
	switch models.SegmentAxis(axis) {
	case models.AxisLeniency:
		g := groups[r.RespondentID]
		return string(g), g != ""
	case models.AxisDepartment:
		return r.Department, r.Department != ""
	case models.AxisUsage:
		return r.UsageFrequency, r.UsageFrequency != ""
	case models.AxisIncident:
		return strconv.FormatBool(r.IncidentExperience), true
	case models.AxisDepartmentGroup:
		g, ok := a.deptGroups[r.Department]
		return g, ok && r.Department != ""
	}
	return "", false
}

func groupsByRespondent(profiles []models.RespondentProfile) map[int]models.LeniencyGroup {
	groups := make(map[int]models.LeniencyGroup, len(profiles))
	for _, p := range profiles {
		if p.Group != "" {
			groups[p.RespondentID] = p.Group
		}
	}
	return groups
}

func (a *Analyzer) itemColumns() []string {
	var cols []string
	for _, cat := range a.categories {
		cols = append(cols, cat.Columns()...)
	}
	return cols
}
