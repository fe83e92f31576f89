// Package analysis provides a high-level service for running survey analysis
// operations.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/qbrtools/qbrank/internal/cache"
	"github.com/qbrtools/qbrank/internal/progress"
	"github.com/qbrtools/qbrank/pkg/analyzer/bias"
	"github.com/qbrtools/qbrank/pkg/analyzer/scoring"
	"github.com/qbrtools/qbrank/pkg/analyzer/segments"
	"github.com/qbrtools/qbrank/pkg/analyzer/significance"
	"github.com/qbrtools/qbrank/pkg/config"
	"github.com/qbrtools/qbrank/pkg/dataset"
	"github.com/qbrtools/qbrank/pkg/models"
	"github.com/sourcegraph/conc/pool"
)

// ErrNoResponses is returned when cleansing excludes every response.
var ErrNoResponses = errors.New("no responses survive cleansing")

// Service orchestrates survey analysis operations: loading and cleansing the
// response CSV, respondent bias profiling, composite ranking, significance
// testing, and segment rankings, with optional result caching.
type Service struct {
	config  *config.Config
	cache   *cache.Cache
	workers int
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.config = cfg
		}
	}
}

// WithCache sets the result cache. Without one every operation recomputes.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithWorkers bounds the goroutines used for independent pipeline stages.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// New creates a new analysis service.
func New(opts ...Option) *Service {
	s := &Service{
		config:  config.LoadOrDefault(),
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// prepared is the shared front of every operation: the raw load result plus
// the cleansed dataset the analyzers run on.
type prepared struct {
	raw       *dataset.LoadResult
	ds        *dataset.Dataset
	stats     dataset.Stats
	cleansing *dataset.Summary
}

// load reads and cleanses the survey. When cleansing excludes every row it
// returns the prepared data together with ErrNoResponses so callers that only
// report can still show the exclusion breakdown.
func (s *Service) load(cfg *config.Config) (*prepared, error) {
	res, err := dataset.Load(cfg)
	if err != nil {
		return nil, err
	}

	rows, summary := dataset.NewCleanser(cfg).Clean(res.Dataset.Rows())
	ds := dataset.New(rows)
	p := &prepared{
		raw:       res,
		ds:        ds,
		stats:     ds.Stats(cfg.ItemColumns()),
		cleansing: summary,
	}
	if len(rows) == 0 {
		return p, fmt.Errorf("%s: %w", cfg.Data.InputCSV, ErrNoResponses)
	}
	return p, nil
}

// configFor returns the service config, cloned with the input path replaced
// when one is given.
func (s *Service) configFor(input string) *config.Config {
	if input == "" {
		return s.config
	}
	c := *s.config
	c.Data.InputCSV = input
	return &c
}

// cacheKey builds the cache key for an operation and its parameters. The
// dataset itself is covered by the content hash, not the key.
func (s *Service) cacheKey(op string, params ...string) string {
	return cache.Key(append([]string{op}, params...)...)
}

// fingerprint covers the cleansed rows and the effective configuration, so a
// weight or threshold edit invalidates cached results the same way new
// responses do.
func (s *Service) fingerprint(cfg *config.Config, ds *dataset.Dataset) string {
	fp := ds.Fingerprint(cfg.ItemColumns())
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fp
	}
	return fp + ":" + cache.HashBytes(raw)
}

func (s *Service) fromCache(key, hash string, v any) bool {
	if s.cache == nil {
		return false
	}
	data, ok := s.cache.GetWithHash(key, hash)
	if !ok {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

func (s *Service) toCache(key, hash string, v any) {
	if s.cache == nil {
		return
	}
	if data, err := json.Marshal(v); err == nil {
		_ = s.cache.SetWithHash(key, hash, data)
	}
}

// cached serves an analysis stage from the result cache, computing and
// storing it on a miss. The spinner, when present, is finished here so cache
// hits report as skipped.
func cached[T any](s *Service, key, hash string, sp *progress.Tracker, compute func() (*T, error)) (*T, error) {
	var hit T
	if s.fromCache(key, hash, &hit) {
		if sp != nil {
			sp.FinishSkipped("cached")
		}
		return &hit, nil
	}

	out, err := compute()
	if err != nil {
		if sp != nil {
			sp.FinishError(err)
		}
		return nil, err
	}
	s.toCache(key, hash, out)
	if sp != nil {
		sp.FinishSuccess()
	}
	return out, nil
}

// BiasOptions configures respondent bias profiling.
type BiasOptions struct {
	// Input overrides the configured dataset path
	Input string
	// Spinner, when set, reports the analysis stage outcome
	Spinner *progress.Tracker
}

// BiasReport bundles respondent profiling with the dataset it came from.
type BiasReport struct {
	Stats     dataset.Stats    `json:"stats"`
	Cleansing *dataset.Summary `json:"cleansing"`
	Analysis  *bias.Analysis   `json:"analysis"`
}

// AnalyzeBias loads and cleanses the survey, then profiles respondent
// leniency: per-respondent tendencies, group classification, anomaly flags,
// and Cronbach's alpha per category.
func (s *Service) AnalyzeBias(ctx context.Context, opts BiasOptions) (*BiasReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := s.configFor(opts.Input)
	p, err := s.load(cfg)
	if err != nil {
		return nil, err
	}

	analysis, err := cached(s, s.cacheKey("bias"), s.fingerprint(cfg, p.ds), opts.Spinner,
		func() (*bias.Analysis, error) {
			return bias.New(cfg).Analyze(p.ds), nil
		})
	if err != nil {
		return nil, err
	}

	return &BiasReport{Stats: p.stats, Cleansing: p.cleansing, Analysis: analysis}, nil
}

// RankingOptions configures composite ranking.
type RankingOptions struct {
	Input   string
	Spinner *progress.Tracker
}

// RankingReport bundles the scoring tables with the dataset they came from.
type RankingReport struct {
	Stats     dataset.Stats    `json:"stats"`
	Cleansing *dataset.Summary `json:"cleansing"`
	Scores    *scoring.Result  `json:"scores"`
}

// AnalyzeRanking runs the scoring pipeline end to end: bias-corrected
// normalization, category and weighted scores, the composite blend with its
// reliability discount, and the detail and positioning tables.
func (s *Service) AnalyzeRanking(ctx context.Context, opts RankingOptions) (*RankingReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := s.configFor(opts.Input)
	p, err := s.load(cfg)
	if err != nil {
		return nil, err
	}

	scores, err := cached(s, s.cacheKey("rank"), s.fingerprint(cfg, p.ds), opts.Spinner,
		func() (*scoring.Result, error) {
			ba := bias.New(cfg).Analyze(p.ds)
			return scoring.New(cfg).Score(p.ds, ba.Normalized), nil
		})
	if err != nil {
		return nil, err
	}

	return &RankingReport{Stats: p.stats, Cleansing: p.cleansing, Scores: scores}, nil
}

// SignificanceOptions configures the cross-vendor significance tests.
type SignificanceOptions struct {
	Input string
	// Column overrides the configured score column
	Column string
	// Alpha overrides the configured significance level when positive
	Alpha   float64
	Spinner *progress.Tracker
}

// AnalyzeSignificance tests whether vendor differences on one score column
// are statistically real: one-way ANOVA, Tukey HSD pairwise comparisons, and
// Cohen's d effect sizes merged into a single table.
func (s *Service) AnalyzeSignificance(ctx context.Context, opts SignificanceOptions) (*models.SignificanceTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := s.configFor(opts.Input)
	if opts.Column != "" || opts.Alpha > 0 {
		c := *cfg
		if opts.Column != "" {
			c.Significance.Column = opts.Column
		}
		if opts.Alpha > 0 {
			c.Significance.Alpha = opts.Alpha
		}
		cfg = &c
	}

	p, err := s.load(cfg)
	if err != nil {
		return nil, err
	}

	return cached(s, s.cacheKey("significance", cfg.Significance.Column), s.fingerprint(cfg, p.ds), opts.Spinner,
		func() (*models.SignificanceTable, error) {
			ba := bias.New(cfg).Analyze(p.ds)
			return significance.New(cfg).Table(ba.Normalized)
		})
}

// SegmentsOptions configures segment-level rankings.
type SegmentsOptions struct {
	Input   string
	Spinner *progress.Tracker
}

// AnalyzeSegments ranks vendors within every configured segmentation axis and
// tests per-axis score differences with Kruskal-Wallis.
func (s *Service) AnalyzeSegments(ctx context.Context, opts SegmentsOptions) (*segments.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := s.configFor(opts.Input)
	p, err := s.load(cfg)
	if err != nil {
		return nil, err
	}

	return cached(s, s.cacheKey("segments"), s.fingerprint(cfg, p.ds), opts.Spinner,
		func() (*segments.Analysis, error) {
			ba := bias.New(cfg).Analyze(p.ds)
			return segments.New(cfg).Analyze(p.ds, ba.Profiles), nil
		})
}

// ValidateOptions configures dataset validation.
type ValidateOptions struct {
	Input string
	// Schema overrides the configured schema path
	Schema string
}

// ValidationReport is the outcome of schema and quality validation.
type ValidationReport struct {
	Path         string                `json:"path"`
	Columns      []string              `json:"columns"`
	SchemaIssues []string              `json:"schema_issues,omitempty"`
	Stats        dataset.Stats         `json:"stats"`
	Cleansing    *dataset.Summary      `json:"cleansing"`
	Quality      dataset.QualityReport `json:"quality"`
	Valid        bool                  `json:"valid"`
}

// Validate checks the survey CSV against the schema document and the
// post-cleanse quality rules without running any analysis. A dataset that
// loses every row to cleansing is reported as invalid rather than as an
// error.
func (s *Service) Validate(ctx context.Context, opts ValidateOptions) (*ValidationReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := s.configFor(opts.Input)
	if opts.Schema != "" {
		c := *cfg
		c.Data.Schema = opts.Schema
		cfg = &c
	}

	p, err := s.load(cfg)
	if err != nil && !errors.Is(err, ErrNoResponses) {
		return nil, err
	}

	rep := &ValidationReport{
		Path:         cfg.Data.InputCSV,
		Columns:      p.raw.Columns,
		SchemaIssues: p.raw.SchemaIssues,
		Stats:        p.stats,
		Cleansing:    p.cleansing,
		Quality:      p.cleansing.Quality,
	}
	rep.Valid = len(rep.SchemaIssues) == 0 && rep.Quality.Valid() && p.cleansing.Final > 0
	return rep, nil
}

// AnalyzeOptions configures the full analysis pipeline.
type AnalyzeOptions struct {
	Input string
	// OnStage, when set, is called as each pipeline stage completes. The
	// parallel stages call it from their own goroutines.
	OnStage func(stage string)
}

// Report is the complete analysis bundle: every table the pipeline produces
// from a single pass over the survey.
type Report struct {
	GeneratedAt  time.Time                 `json:"generated_at"`
	Stats        dataset.Stats             `json:"stats"`
	Cleansing    *dataset.Summary          `json:"cleansing"`
	Bias         *bias.Analysis            `json:"bias"`
	Scores       *scoring.Result           `json:"scores"`
	Significance *models.SignificanceTable `json:"significance"`
	Segments     *segments.Analysis        `json:"segments"`

	// FromCache reports whether the bundle was served from the result cache.
	FromCache bool `json:"-"`
}

// Analyze runs the whole pipeline: load, cleanse, bias correction, then
// scoring, significance, and segmentation in parallel over the shared
// normalized rows.
func (s *Service) Analyze(ctx context.Context, opts AnalyzeOptions) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stage := func(name string) {
		if opts.OnStage != nil {
			opts.OnStage(name)
		}
	}

	cfg := s.configFor(opts.Input)
	p, err := s.load(cfg)
	if err != nil {
		return nil, err
	}
	stage("load")

	key := s.cacheKey("analyze")
	hash := s.fingerprint(cfg, p.ds)
	var hit Report
	if s.fromCache(key, hash, &hit) {
		hit.FromCache = true
		return &hit, nil
	}

	rep := &Report{
		GeneratedAt: time.Now(),
		Stats:       p.stats,
		Cleansing:   p.cleansing,
	}

	rep.Bias = bias.New(cfg).Analyze(p.ds)
	stage("bias")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var sigErr error
	wp := pool.New().WithMaxGoroutines(s.workers)
	wp.Go(func() {
		rep.Scores = scoring.New(cfg).Score(p.ds, rep.Bias.Normalized)
		stage("scoring")
	})
	wp.Go(func() {
		rep.Significance, sigErr = significance.New(cfg).Table(rep.Bias.Normalized)
		stage("significance")
	})
	wp.Go(func() {
		rep.Segments = segments.New(cfg).Analyze(p.ds, rep.Bias.Profiles)
		stage("segments")
	})
	wp.Wait()

	if sigErr != nil {
		return nil, fmt.Errorf("significance: %w", sigErr)
	}

	s.toCache(key, hash, rep)
	return rep, nil
}
