// Package generator produces seeded synthetic survey datasets: every
// respondent rates every configured vendor, vendors carry distinct quality
// profiles, and respondents lean strict or lenient, so the generated data
// exercises the whole analysis pipeline deterministically.
package generator

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/qbrtools/qbrank/pkg/config"
	"github.com/qbrtools/qbrank/pkg/models"
)

var (
	defaultDepartments = []string{"it", "business", "finance", "hr", "sales", "logistics"}
	defaultFrequencies = []string{"daily", "weekly", "monthly", "rarely"}

	roles = []string{"manager", "member", "director", "specialist"}

	commentPool = []string{
		"対応は迅速でしたが、もう少し詳細な説明が欲しかったです。",
		"技術的な知識が豊富で、安心して任せられます。",
		"コミュニケーションが取りやすく、信頼できるパートナーです。",
		"改善提案が的確で、ビジネスに貢献してくれています。",
		"もう少しコストを抑えられると助かります。",
		"今後も継続して利用したいと思います。",
		"一部対応に遅れが見られることがあります。",
		"全体的に満足していますが、ドキュメントの質を向上してほしいです。",
	}
)

// Generator builds survey responses for the configured vendor and category
// sets. The same seed always yields the same rows.
type Generator struct {
	cfg         *config.Config
	seed        int64
	respondents int
	missingRate float64
	optional    map[string]bool
	now         time.Time

	departments []string
	frequencies []string
	scoreMin    float64
	scoreMax    float64
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed sets the random seed.
func WithSeed(seed int64) Option {
	return func(g *Generator) { g.seed = seed }
}

// WithRespondents sets how many respondents to simulate. Each respondent
// rates every configured vendor once.
func WithRespondents(n int) Option {
	return func(g *Generator) { g.respondents = n }
}

// WithMissingRate sets the probability that an optional item is skipped.
func WithMissingRate(rate float64) Option {
	return func(g *Generator) { g.missingRate = rate }
}

// WithOptionalItems overrides which item columns respondents may skip. By
// default the last configured category's items are optional.
func WithOptionalItems(items ...string) Option {
	return func(g *Generator) {
		g.optional = make(map[string]bool, len(items))
		for _, item := range items {
			g.optional[item] = true
		}
	}
}

// WithNow anchors the timestamp window, which otherwise ends at the wall
// clock.
func WithNow(now time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// New creates a Generator over the evaluation config.
func New(cfg *config.Config, opts ...Option) *Generator {
	g := &Generator{
		cfg:         cfg,
		seed:        42,
		respondents: 25,
		missingRate: 0.5,
		now:         time.Now(),
		departments: departmentPool(cfg),
		frequencies: frequencyPool(cfg),
		scoreMin:    cfg.Cleansing.ScoreMin,
		scoreMax:    cfg.Cleansing.ScoreMax,
	}
	if g.scoreMax <= g.scoreMin {
		g.scoreMin, g.scoreMax = 1, 5
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.optional == nil {
		g.optional = make(map[string]bool)
		if n := len(cfg.Categories); n > 0 {
			for _, col := range cfg.Categories[n-1].Columns() {
				g.optional[col] = true
			}
		}
	}
	return g
}

// respondent is one simulated rater: fixed attributes plus a leniency offset
// applied to every score they give.
type respondent struct {
	id         int
	department string
	role       string
	frequency  string
	incident   bool
	leniency   float64
}

// Generate builds the full respondent x vendor response set.
func (g *Generator) Generate() []models.Response {
	r := rand.New(rand.NewSource(g.seed))

	quality := g.vendorQuality(r)
	people := g.people(r)

	rows := make([]models.Response, 0, len(people)*len(g.cfg.Vendors))
	id := 1
	for _, p := range people {
		for _, v := range g.cfg.Vendors {
			row := models.Response{
				ResponseID:         id,
				RespondentID:       p.id,
				VendorID:           v.ID,
				Timestamp:          g.timestamp(r),
				Department:         p.department,
				Role:               p.role,
				UsageFrequency:     p.frequency,
				IncidentExperience: p.incident,
				Scores:             make(map[string]models.Cell),
			}
			for _, cat := range g.cfg.Categories {
				base := quality[v.ID][cat.Key] + p.leniency
				for _, col := range cat.Columns() {
					if g.optional[col] && r.Float64() < g.missingRate {
						continue
					}
					row.Scores[col] = models.NewCell(g.score(r, base))
				}
			}
			if r.Float64() < 0.7 {
				row.Comment = commentPool[r.Intn(len(commentPool))]
			}
			rows = append(rows, row)
			id++
		}
	}
	return rows
}

// vendorQuality spreads the vendors across the quality range and jitters each
// category, so rankings and significance tests have real differences to find.
func (g *Generator) vendorQuality(r *rand.Rand) map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(g.cfg.Vendors))
	n := len(g.cfg.Vendors)
	for i, v := range g.cfg.Vendors {
		var skew float64
		if n > 1 {
			skew = -0.7 + 1.4*float64(i)/float64(n-1)
		}
		bases := make(map[string]float64, len(g.cfg.Categories))
		for _, cat := range g.cfg.Categories {
			bases[cat.Key] = 3.2 + skew + (r.Float64()-0.5)*0.6
		}
		out[v.ID] = bases
	}
	return out
}

func (g *Generator) people(r *rand.Rand) []respondent {
	people := make([]respondent, g.respondents)
	for i := range people {
		var leniency float64
		switch u := r.Float64(); {
		case u < 0.25:
			leniency = -0.7
		case u >= 0.75:
			leniency = 0.7
		}
		people[i] = respondent{
			id:         i + 1,
			department: g.departments[r.Intn(len(g.departments))],
			role:       roles[r.Intn(len(roles))],
			frequency:  g.frequencies[r.Intn(len(g.frequencies))],
			incident:   r.Float64() < 0.3,
			leniency:   leniency + r.NormFloat64()*0.15,
		}
	}
	return people
}

func (g *Generator) score(r *rand.Rand, center float64) float64 {
	v := math.Round(center + r.NormFloat64()*0.7)
	return math.Min(math.Max(v, g.scoreMin), g.scoreMax)
}

// timestamp picks a business-hours moment one to thirty days before the
// anchor, keeping every generated row safely in the past.
func (g *Generator) timestamp(r *rand.Rand) time.Time {
	day := g.now.AddDate(0, 0, -(1 + r.Intn(30)))
	return time.Date(day.Year(), day.Month(), day.Day(), 8+r.Intn(11), r.Intn(60), 0, 0, time.UTC)
}

// departmentPool generates departments the configured rollup knows about, so
// the dept_category axis never warns on synthetic data.
func departmentPool(cfg *config.Config) []string {
	if len(cfg.Segments.DepartmentGroups) == 0 {
		return defaultDepartments
	}
	pool := make([]string, 0, len(cfg.Segments.DepartmentGroups))
	for d := range cfg.Segments.DepartmentGroups {
		pool = append(pool, d)
	}
	sort.Strings(pool)
	return pool
}

func frequencyPool(cfg *config.Config) []string {
	for _, ax := range cfg.Segments.Axes {
		if models.SegmentAxis(ax.Axis) == models.AxisUsage && len(ax.Values) > 0 {
			return ax.Values
		}
	}
	return defaultFrequencies
}
