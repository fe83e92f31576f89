// Package dataset loads, validates, and cleanses vendor evaluation survey
// data. A Dataset wraps typed response rows with roaring bitmap indices for
// fast per-vendor and per-respondent subsetting.
package dataset

import (
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"

	"github.com/qbrtools/qbrank/pkg/config"
	"github.com/qbrtools/qbrank/pkg/models"
)

// Dataset holds survey responses plus bitmap indices over row positions
// and respondent ids.
type Dataset struct {
	rows              []models.Response
	vendorRows        map[string]*roaring.Bitmap // vendor id -> row positions
	respondentRows    map[int]*roaring.Bitmap    // respondent id -> row positions
	vendorRespondents map[string]*roaring.Bitmap // vendor id -> respondent ids
	respondents       *roaring.Bitmap            // all respondent ids
}

// New builds a Dataset and its indices from the given rows.
func New(rows []models.Response) *Dataset {
	d := &Dataset{
		rows:              rows,
		vendorRows:        make(map[string]*roaring.Bitmap),
		respondentRows:    make(map[int]*roaring.Bitmap),
		vendorRespondents: make(map[string]*roaring.Bitmap),
		respondents:       roaring.New(),
	}

	for i, r := range rows {
		pos := uint32(i)

		vb, ok := d.vendorRows[r.VendorID]
		if !ok {
			vb = roaring.New()
			d.vendorRows[r.VendorID] = vb
		}
		vb.Add(pos)

		rb, ok := d.respondentRows[r.RespondentID]
		if !ok {
			rb = roaring.New()
			d.respondentRows[r.RespondentID] = rb
		}
		rb.Add(pos)

		vr, ok := d.vendorRespondents[r.VendorID]
		if !ok {
			vr = roaring.New()
			d.vendorRespondents[r.VendorID] = vr
		}
		vr.Add(uint32(r.RespondentID))

		d.respondents.Add(uint32(r.RespondentID))
	}

	return d
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.rows)
}

// Rows returns all rows in their original order.
func (d *Dataset) Rows() []models.Response {
	return d.rows
}

// Vendors returns the distinct vendor ids present, sorted.
func (d *Dataset) Vendors() []string {
	ids := make([]string, 0, len(d.vendorRows))
	for id := range d.vendorRows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Respondents returns the distinct respondent ids present, ascending.
func (d *Dataset) Respondents() []int {
	ids := make([]int, 0, d.respondents.GetCardinality())
	it := d.respondents.Iterator()
	for it.HasNext() {
		ids = append(ids, int(it.Next()))
	}
	return ids
}

// VendorRows returns the rows for one vendor in row order.
func (d *Dataset) VendorRows(vendorID string) []models.Response {
	return d.selectRows(d.vendorRows[vendorID])
}

// RespondentRows returns the rows for one respondent in row order.
func (d *Dataset) RespondentRows(respondentID int) []models.Response {
	return d.selectRows(d.respondentRows[respondentID])
}

func (d *Dataset) selectRows(bm *roaring.Bitmap) []models.Response {
	if bm == nil {
		return nil
	}
	out := make([]models.Response, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, d.rows[it.Next()])
	}
	return out
}

// DistinctRespondents returns how many distinct respondents evaluated the
// given vendor.
func (d *Dataset) DistinctRespondents(vendorID string) int {
	bm, ok := d.vendorRespondents[vendorID]
	if !ok {
		return 0
	}
	return int(bm.GetCardinality())
}

// Column collects one score column across all rows, in row order.
func (d *Dataset) Column(item string) []models.Cell {
	out := make([]models.Cell, len(d.rows))
	for i, r := range d.rows {
		out[i] = r.Score(item)
	}
	return out
}

// Fingerprint returns a stable hex digest of the dataset contents. Two
// datasets with identical rows in identical order share a fingerprint, which
// keys the analysis result cache.
func (d *Dataset) Fingerprint(items []string) string {
	h := blake3.New()
	for _, r := range d.rows {
		fmt.Fprintf(h, "%d|%s|%d", r.RespondentID, r.VendorID, r.Timestamp.Unix())
		for _, item := range items {
			if v, ok := r.Score(item).Float(); ok {
				fmt.Fprintf(h, "|%g", v)
			} else {
				fmt.Fprint(h, "|-")
			}
		}
		fmt.Fprintln(h)
	}
	sum := h.Sum(nil)
	return fmt.Sprintf("%x", sum[:16])
}

// RowKey hashes the (respondent, vendor) identity of a row. Two rows with
// the same key are duplicate submissions.
func RowKey(r models.Response) uint64 {
	return xxhash.Sum64String(fmt.Sprintf("%d|%s", r.RespondentID, r.VendorID))
}

// Stats summarizes a dataset for the load report.
type Stats struct {
	Records      int            `json:"records"`
	Respondents  int            `json:"respondents"`
	Vendors      int            `json:"vendors"`
	DateStart    string         `json:"date_start,omitempty"`
	DateEnd      string         `json:"date_end,omitempty"`
	VendorCounts map[string]int `json:"vendor_counts"`
	Departments  map[string]int `json:"departments"`
	Roles        map[string]int `json:"roles"`
	UsageCounts  map[string]int `json:"usage_counts"`
	IncidentRate float64        `json:"incident_rate_percent"`
	MissingRate  float64        `json:"missing_rate_percent"`
}

// Stats computes record counts, attribute distributions, the evaluation
// date range, and the missing rate over the given score columns.
func (d *Dataset) Stats(items []string) Stats {
	st := Stats{
		Records:      len(d.rows),
		Respondents:  int(d.respondents.GetCardinality()),
		Vendors:      len(d.vendorRows),
		VendorCounts: make(map[string]int),
		Departments:  make(map[string]int),
		Roles:        make(map[string]int),
		UsageCounts:  make(map[string]int),
	}

	incidents := 0
	missing := 0
	for _, r := range d.rows {
		st.VendorCounts[r.VendorID]++
		if r.Department != "" {
			st.Departments[r.Department]++
		}
		if r.Role != "" {
			st.Roles[r.Role]++
		}
		if r.UsageFrequency != "" {
			st.UsageCounts[r.UsageFrequency]++
		}
		if r.IncidentExperience {
			incidents++
		}
		for _, item := range items {
			if !r.Score(item).Valid {
				missing++
			}
		}

		if r.Timestamp.IsZero() {
			continue
		}
		day := r.Timestamp.Format("2006-01-02")
		if st.DateStart == "" || day < st.DateStart {
			st.DateStart = day
		}
		if st.DateEnd == "" || day > st.DateEnd {
			st.DateEnd = day
		}
	}

	if len(d.rows) > 0 {
		st.IncidentRate = float64(incidents) / float64(len(d.rows)) * 100
		if len(items) > 0 {
			st.MissingRate = float64(missing) / float64(len(d.rows)*len(items)) * 100
		}
	}
	return st
}

// LoadResult bundles parsed rows with schema findings and basic statistics.
type LoadResult struct {
	Dataset      *Dataset
	Columns      []string
	SchemaIssues []string
	Stats        Stats
}

// Load reads the configured input CSV, validates it against the survey
// schema when one is configured, and computes basic statistics. Schema
// validation findings are surfaced in SchemaIssues rather than failing the
// load.
func Load(cfg *config.Config) (*LoadResult, error) {
	items := cfg.ItemColumns()

	rows, cols, err := ReadFile(cfg.Data.InputCSV, items)
	if err != nil {
		return nil, err
	}

	res := &LoadResult{Dataset: New(rows), Columns: cols}

	if cfg.Data.Schema != "" {
		schema, err := LoadSchema(cfg.Data.Schema)
		if err != nil {
			return nil, err
		}
		res.SchemaIssues = schema.Validate(cols, rows, items, cfg.Cleansing.ScoreMin, cfg.Cleansing.ScoreMax)
	}

	res.Stats = res.Dataset.Stats(items)
	return res, nil
}
