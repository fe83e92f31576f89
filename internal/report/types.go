package report

import (
	"time"

	"github.com/qbrtools/qbrank/internal/service/analysis"
)

// Meta identifies one report: which tool version produced it, from which
// input, and when the underlying analysis ran.
type Meta struct {
	Version     string    `json:"version,omitempty"`
	Input       string    `json:"input,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
	FromCache   bool      `json:"from_cache,omitempty"`
}

// NewMeta derives report metadata from a finished analysis run.
func NewMeta(version, input string, rep *analysis.Report) Meta {
	return Meta{
		Version:     version,
		Input:       input,
		GeneratedAt: rep.GeneratedAt,
		FromCache:   rep.FromCache,
	}
}

// Summary is the executive summary: a one-paragraph reading of the run plus
// the individual findings behind it, derived with fixed rules from the
// analysis tables.
type Summary struct {
	ExecutiveSummary string   `json:"executive_summary"`
	KeyFindings      []string `json:"key_findings"`
}

// Document is the complete report payload used by the data formats.
type Document struct {
	Meta    Meta    `json:"meta"`
	Summary Summary `json:"summary"`
	*analysis.Report
}
