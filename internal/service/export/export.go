// Package export writes the analysis result bundle as a multi-sheet Excel
// workbook for QBR distribution.
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/qbrtools/qbrank/internal/service/analysis"
	"github.com/qbrtools/qbrank/pkg/analyzer/scoring"
	"github.com/qbrtools/qbrank/pkg/config"
	"github.com/qbrtools/qbrank/pkg/models"
	"github.com/xuri/excelize/v2"
)

// Service writes analysis results to an Excel workbook, one sheet per result
// table.
type Service struct {
	config *config.Config
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

// New creates a new export service.
func New(opts ...Option) *Service {
	s := &Service{config: config.LoadOrDefault()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Write saves the full result bundle to path, creating parent directories as
// needed. Sheets for missing bundle parts are skipped.
func (s *Service) Write(rep *analysis.Report, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := s.summarySheet(f, rep); err != nil {
		return err
	}
	if rep.Scores != nil {
		if err := s.scoreSheets(f, rep.Scores); err != nil {
			return err
		}
	}
	if rep.Significance != nil {
		if err := s.significanceSheet(f, rep.Significance); err != nil {
			return err
		}
	}
	if rep.Segments != nil {
		if err := s.segmentSheets(f, rep.Segments.Tables); err != nil {
			return err
		}
		if err := s.integratedSheet(f, rep.Segments.Integrated); err != nil {
			return err
		}
		if err := s.kruskalSheet(f, rep.Segments.Kruskal); err != nil {
			return err
		}
	}
	if rep.Bias != nil {
		if err := s.profileSheet(f, rep.Bias.Profiles); err != nil {
			return err
		}
		if err := s.alphaSheet(f, rep.Bias.Alphas); err != nil {
			return err
		}
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	return f.SaveAs(path)
}

func (s *Service) summarySheet(f *excelize.File, rep *analysis.Report) error {
	rows := [][]any{
		{"生成日時", rep.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"回答数", rep.Stats.Records},
		{"回答者数", rep.Stats.Respondents},
		{"ベンダー数", rep.Stats.Vendors},
		{"評価開始日", rep.Stats.DateStart},
		{"評価終了日", rep.Stats.DateEnd},
		{"欠損率(%)", rep.Stats.MissingRate},
		{"インシデント経験率(%)", rep.Stats.IncidentRate},
	}
	if cl := rep.Cleansing; cl != nil {
		rows = append(rows,
			[]any{"クレンジング前件数", cl.Initial},
			[]any{"除外件数", cl.TotalExcluded},
			[]any{"除外率(%)", cl.ExclusionRate},
			[]any{"有効件数", cl.Final},
		)
	}
	return writeSheet(f, "サマリー", []string{"項目", "値"}, rows)
}

func (s *Service) scoreSheets(f *excelize.File, res *scoring.Result) error {
	ranking := make([][]any, len(res.Composite))
	for i, cs := range res.Composite {
		ranking[i] = []any{
			i + 1,
			cs.VendorID,
			s.config.VendorName(cs.VendorID),
			cs.RawScore,
			cs.ZAvgScore,
			cs.Rank,
			cs.CompositeScore,
			cs.RespondentCount,
			cs.ReliabilityCoef,
			cs.FinalScore,
		}
	}
	err := writeSheet(f, "総合ランキング",
		[]string{"順位", "ベンダーID", "ベンダー名", "素点", "Z平均", "Z順位", "複合スコア", "回答者数", "信頼性係数", "最終スコア"},
		ranking)
	if err != nil {
		return err
	}

	categories := make([][]any, len(res.CategoryScores))
	for i, cs := range res.CategoryScores {
		categories[i] = []any{
			cs.VendorID,
			cs.Category,
			cs.CategoryName,
			cs.MeanScore,
			cellValue(cs.Std),
			cs.N,
			cellValue(cs.CI95Low),
			cellValue(cs.CI95High),
			cs.Weighted,
		}
	}
	err = writeSheet(f, "カテゴリ別スコア",
		[]string{"ベンダーID", "カテゴリ", "カテゴリ名", "平均", "標準偏差", "n", "CI下限", "CI上限", "加重値"},
		categories)
	if err != nil {
		return err
	}

	weighted := make([][]any, len(res.WeightedScores))
	for i, ws := range res.WeightedScores {
		weighted[i] = []any{ws.VendorID, ws.WeightedScore}
	}
	if err := writeSheet(f, "加重スコア", []string{"ベンダーID", "加重合計"}, weighted); err != nil {
		return err
	}

	detailed := make([][]any, len(res.Detailed))
	for i, d := range res.Detailed {
		detailed[i] = []any{d.VendorID, d.Item, cellValue(d.Score)}
	}
	err = writeSheet(f, "項目別スコア", []string{"ベンダーID", "評価項目", "平均スコア"}, detailed)
	if err != nil {
		return err
	}

	var points [][]any
	for _, tbl := range res.Positioning {
		for _, p := range tbl.Points {
			points = append(points, []any{
				tbl.CategoryX,
				tbl.CategoryY,
				tbl.Variant,
				p.VendorID,
				cellValue(p.X),
				cellValue(p.Y),
				p.RespondentCount,
			})
		}
	}
	return writeSheet(f, "ポジショニング",
		[]string{"X軸カテゴリ", "Y軸カテゴリ", "種別", "ベンダーID", "X", "Y", "回答者数"},
		points)
}

func (s *Service) significanceSheet(f *excelize.File, tbl *models.SignificanceTable) error {
	rows := make([][]any, len(tbl.Rows))
	for i, r := range tbl.Rows {
		rows[i] = []any{
			tbl.Column,
			r.Vendor1,
			r.Vendor2,
			r.MeanDiff,
			r.PAdj,
			r.Lower,
			r.Upper,
			r.Reject,
			cellValue(r.EffectSizeD),
			r.AnovaPValue,
		}
	}
	return writeSheet(f, "有意差検定",
		[]string{"対象列", "群1", "群2", "平均差", "調整p値", "下限", "上限", "有意", "効果量d", "ANOVA p値"},
		rows)
}

func (s *Service) segmentSheets(f *excelize.File, tables []models.SegmentTable) error {
	for _, tbl := range tables {
		name := "セグメント_" + s.axisName(string(tbl.Axis))
		rows := make([][]any, len(tbl.Rows))
		for i, r := range tbl.Rows {
			rows[i] = []any{r.Segment, r.VendorID, r.AvgScore, r.Rank}
		}
		if err := writeSheet(f, name, []string{"セグメント", "ベンダーID", "平均スコア", "順位"}, rows); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) integratedSheet(f *excelize.File, rows []models.IntegratedRanking) error {
	data := make([][]any, len(rows))
	for i, r := range rows {
		data[i] = []any{r.Category, r.Axis, r.VendorID, r.Rank, r.AvgScore}
	}
	return writeSheet(f, "統合ランキング",
		[]string{"分類", "セグメント", "ベンダーID", "順位", "平均スコア"},
		data)
}

func (s *Service) kruskalSheet(f *excelize.File, results []models.KruskalResult) error {
	rows := make([][]any, len(results))
	for i, kr := range results {
		rows[i] = []any{
			s.axisName(kr.Attribute),
			kr.Test,
			kr.Statistic,
			kr.PValue,
			kr.Significant,
			kr.Alpha,
			kr.NSegments,
			kr.Interpretation,
		}
	}
	return writeSheet(f, "セグメント検定",
		[]string{"セグメント軸", "検定", "統計量", "p値", "有意", "α", "群数", "解釈"},
		rows)
}

func (s *Service) profileSheet(f *excelize.File, profiles []models.RespondentProfile) error {
	rows := make([][]any, len(profiles))
	for i, p := range profiles {
		rows[i] = []any{
			p.RespondentID,
			cellValue(p.AvgScore),
			cellValue(p.StdScore),
			p.ExtremeUsage,
			p.MedianUsage,
			p.Count,
			p.FlagZeroStd,
			p.FlagExtreme,
			p.IsAnomaly,
			string(p.Group),
		}
	}
	return writeSheet(f, "回答者プロファイル",
		[]string{"回答者ID", "平均スコア", "標準偏差", "極端値率", "中央値率", "回答数", "分散ゼロ", "極端値フラグ", "異常", "評価者群"},
		rows)
}

func (s *Service) alphaSheet(f *excelize.File, alphas []models.CategoryAlpha) error {
	rows := make([][]any, len(alphas))
	for i, a := range alphas {
		name := a.Category
		if c, ok := s.config.Category(a.Category); ok {
			name = c.Name
		}
		rows[i] = []any{a.Category, name, cellValue(a.Alpha), a.Items, a.Respondents}
	}
	return writeSheet(f, "カテゴリ信頼性",
		[]string{"カテゴリ", "カテゴリ名", "α", "項目数", "完全回答者数"},
		rows)
}

func (s *Service) axisName(attribute string) string {
	if ax, ok := s.config.Axis(attribute); ok {
		return ax.Name
	}
	return attribute
}

// writeSheet creates a sheet with a header row and the given data rows.
func writeSheet(f *excelize.File, name string, headers []string, rows [][]any) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	for i, h := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		if err := f.SetCellValue(name, cell, h); err != nil {
			return err
		}
	}
	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell := fmt.Sprintf("%c%d", 'A'+c, r+2)
			if err := f.SetCellValue(name, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// cellValue converts a nullable cell to an Excel value, leaving missing
// cells blank.
func cellValue(c models.Cell) any {
	if !c.Valid {
		return nil
	}
	return c.Value
}
