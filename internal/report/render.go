// Package report assembles the quarterly vendor evaluation report from
// analysis results. Builders return output renderables so every surface
// shares the formatter: titled tables and sections for the text and markdown
// formats, the typed payload for the data formats.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/qbrtools/qbrank/internal/output"
	"github.com/qbrtools/qbrank/internal/service/analysis"
	"github.com/qbrtools/qbrank/pkg/analyzer/bias"
	"github.com/qbrtools/qbrank/pkg/analyzer/scoring"
	"github.com/qbrtools/qbrank/pkg/analyzer/segments"
	"github.com/qbrtools/qbrank/pkg/config"
	"github.com/qbrtools/qbrank/pkg/dataset"
	"github.com/qbrtools/qbrank/pkg/models"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// num formats counts with locale-aware digit grouping.
var num = message.NewPrinter(language.Japanese)

var groupLabels = map[models.LeniencyGroup]string{
	models.GroupStrict:   "厳格",
	models.GroupStandard: "標準",
	models.GroupLenient:  "寛大",
}

// Build assembles the complete QBR report from a full pipeline run.
func Build(cfg *config.Config, meta Meta, rep *analysis.Report) *output.Report {
	sum := buildSummary(cfg, rep)

	sections := []output.Renderable{
		overviewSection(meta, rep.Stats, rep.Cleansing),
		summarySection(sum),
	}
	if rep.Scores != nil {
		sections = append(sections,
			rankingTable(cfg, rep.Scores.Ranking()),
			categoryTable(cfg, rep.Scores),
			detailedTable(cfg, rep.Scores),
		)
	}
	if rep.Significance != nil {
		sections = append(sections,
			&output.Section{Title: "有意差検定", Content: anovaSummary(rep.Significance)},
			significanceTable(cfg, rep.Significance),
		)
	}
	if rep.Segments != nil {
		sections = append(sections,
			kruskalTable(cfg, rep.Segments.Kruskal),
			integratedTable(cfg, rep.Segments.Integrated),
		)
	}
	if rep.Bias != nil {
		sections = append(sections,
			&output.Section{Title: "回答者バイアス診断", Content: biasOverview(rep.Bias)},
			alphaTable(cfg, rep.Bias.Alphas),
		)
	}
	if rep.Segments != nil && len(rep.Segments.Warnings) > 0 {
		sections = append(sections, warningsSection(rep.Segments.Warnings))
	}

	return &output.Report{
		Title:    "QBRベンダー評価レポート",
		Sections: sections,
		Data:     &Document{Meta: meta, Summary: sum, Report: rep},
	}
}

// Ranking renders the composite ranking result.
func Ranking(cfg *config.Config, rep *analysis.RankingReport) *output.Report {
	return &output.Report{
		Title: "ベンダー総合評価",
		Sections: []output.Renderable{
			statsSection(rep.Stats, rep.Cleansing),
			rankingTable(cfg, rep.Scores.Ranking()),
			categoryTable(cfg, rep.Scores),
		},
		Data: rep,
	}
}

// Bias renders the respondent bias diagnostics.
func Bias(cfg *config.Config, rep *analysis.BiasReport) *output.Report {
	an := rep.Analysis
	sections := []output.Renderable{
		statsSection(rep.Stats, rep.Cleansing),
		&output.Section{Content: biasOverview(an)},
		alphaTable(cfg, an.Alphas),
	}
	if an.AnomalyCount() > 0 {
		sections = append(sections, anomalyTable(an.Profiles))
	}
	return &output.Report{Title: "回答者バイアス診断", Sections: sections, Data: rep}
}

// Significance renders the cross-vendor significance table.
func Significance(cfg *config.Config, tbl *models.SignificanceTable) *output.Report {
	return &output.Report{
		Title: "有意差検定",
		Sections: []output.Renderable{
			&output.Section{Content: anovaSummary(tbl)},
			significanceTable(cfg, tbl),
		},
		Data: tbl,
	}
}

// Segments renders the per-axis segment rankings.
func Segments(cfg *config.Config, an *segments.Analysis) *output.Report {
	sections := make([]output.Renderable, 0, len(an.Tables)+3)
	for _, tbl := range an.Tables {
		sections = append(sections, segmentTable(cfg, tbl))
	}
	sections = append(sections, kruskalTable(cfg, an.Kruskal), integratedTable(cfg, an.Integrated))
	if len(an.Warnings) > 0 {
		sections = append(sections, warningsSection(an.Warnings))
	}
	return &output.Report{Title: "セグメント別分析", Sections: sections, Data: an}
}

// Validation renders the dataset validation outcome.
func Validation(rep *analysis.ValidationReport) *output.Report {
	verdict := "不合格"
	if rep.Valid {
		verdict = "合格"
	}
	head := fmt.Sprintf("対象: %s\n判定: %s", rep.Path, verdict)

	sections := []output.Renderable{&output.Section{Content: head}}
	if len(rep.SchemaIssues) > 0 {
		sections = append(sections, &output.Section{
			Title:   "スキーマ検証",
			Content: "- " + strings.Join(rep.SchemaIssues, "\n- "),
		})
	}
	sections = append(sections, statsSection(rep.Stats, nil))
	if rep.Cleansing != nil {
		sections = append(sections, cleansingTable(rep.Cleansing))
	}
	if len(rep.Quality.Issues) > 0 {
		sections = append(sections, qualityTable(rep.Quality))
	}
	return &output.Report{Title: "データ検証", Sections: sections, Data: rep}
}

// buildSummary derives the executive summary from the analysis tables.
func buildSummary(cfg *config.Config, rep *analysis.Report) Summary {
	var findings []string

	exec := num.Sprintf("%d件の回答 (回答者%d名、対象%d社) を分析しました。",
		rep.Stats.Records, rep.Stats.Respondents, rep.Stats.Vendors)

	if rep.Scores != nil {
		if ranking := rep.Scores.Ranking(); len(ranking) > 0 {
			top := ranking[0]
			exec += num.Sprintf("総合評価1位は%sです (最終スコア %.3f)。",
				cfg.VendorName(top.VendorID), top.FinalScore)
			findings = append(findings, fmt.Sprintf("総合1位: %s (最終スコア %.3f、信頼性係数 %.2f)",
				cfg.VendorName(top.VendorID), top.FinalScore, top.ReliabilityCoef))
			if len(ranking) > 1 {
				findings = append(findings, fmt.Sprintf("2位 %s とのスコア差は %.3f",
					cfg.VendorName(ranking[1].VendorID), top.FinalScore-ranking[1].FinalScore))
			}
		}
	}

	if sig := rep.Significance; sig != nil {
		reject := 0
		for _, row := range sig.Rows {
			if row.Reject {
				reject++
			}
		}
		if reject > 0 {
			findings = append(findings, fmt.Sprintf("有意差検定 (%s): %d/%dペアで有意差を検出 (α=%g)",
				sig.Column, reject, len(sig.Rows), sig.Alpha))
		} else {
			findings = append(findings, fmt.Sprintf("有意差検定 (%s): 有意差のあるペアはありません (α=%g)",
				sig.Column, sig.Alpha))
		}
	}

	if an := rep.Bias; an != nil {
		if k := an.AnomalyCount(); k > 0 {
			findings = append(findings, fmt.Sprintf("回答者%d名中%d名に異常な回答パターンを検出",
				len(an.Profiles), k))
		}
		gc := an.GroupCounts()
		findings = append(findings, fmt.Sprintf("評価者群: %s%d名 / %s%d名 / %s%d名",
			groupLabels[models.GroupStrict], gc[models.GroupStrict],
			groupLabels[models.GroupStandard], gc[models.GroupStandard],
			groupLabels[models.GroupLenient], gc[models.GroupLenient]))
		for _, a := range an.Alphas {
			if v, ok := a.Alpha.Float(); ok && v < 0.7 {
				findings = append(findings, fmt.Sprintf("%s の内部一貫性が低め (α=%.2f)",
					categoryName(cfg, a.Category), v))
			}
		}
	}

	if seg := rep.Segments; seg != nil {
		for _, kr := range seg.Kruskal {
			if kr.Significant {
				findings = append(findings, fmt.Sprintf("%s によるスコア差が有意 (p=%.4f)",
					axisName(cfg, kr.Attribute), kr.PValue))
			}
		}
	}

	if cl := rep.Cleansing; cl != nil && cl.TotalExcluded > 0 {
		findings = append(findings, fmt.Sprintf("クレンジングで%d件を除外 (%.1f%%)",
			cl.TotalExcluded, cl.ExclusionRate))
	}

	return Summary{ExecutiveSummary: exec, KeyFindings: findings}
}

func overviewSection(meta Meta, st dataset.Stats, cl *dataset.Summary) *output.Section {
	var b strings.Builder
	if meta.Input != "" {
		fmt.Fprintf(&b, "入力: %s\n", meta.Input)
	}
	when := meta.GeneratedAt.Format("2006-01-02 15:04:05")
	if meta.FromCache {
		when += " (キャッシュ)"
	}
	fmt.Fprintf(&b, "生成日時: %s\n", when)
	if meta.Version != "" {
		fmt.Fprintf(&b, "qbrank %s\n", meta.Version)
	}
	statsLines(&b, st, cl)
	return &output.Section{Title: "データ概要", Content: b.String()}
}

func statsSection(st dataset.Stats, cl *dataset.Summary) *output.Section {
	var b strings.Builder
	statsLines(&b, st, cl)
	return &output.Section{Content: b.String()}
}

func statsLines(b *strings.Builder, st dataset.Stats, cl *dataset.Summary) {
	fmt.Fprintf(b, "回答: %s件 / 回答者: %s名 / ベンダー: %s社\n",
		num.Sprintf("%d", st.Records), num.Sprintf("%d", st.Respondents), num.Sprintf("%d", st.Vendors))
	if st.DateStart != "" {
		fmt.Fprintf(b, "評価期間: %s 〜 %s\n", st.DateStart, st.DateEnd)
	}
	fmt.Fprintf(b, "欠損率: %.1f%% / インシデント経験率: %.1f%%", st.MissingRate, st.IncidentRate)
	if cl != nil && cl.TotalExcluded > 0 {
		fmt.Fprintf(b, "\nクレンジング除外: %d件 (%.1f%%)", cl.TotalExcluded, cl.ExclusionRate)
	}
}

func summarySection(sum Summary) *output.Section {
	var b strings.Builder
	b.WriteString(sum.ExecutiveSummary)
	for _, f := range sum.KeyFindings {
		b.WriteString("\n- ")
		b.WriteString(f)
	}
	return &output.Section{Title: "エグゼクティブサマリー", Content: b.String()}
}

func rankingTable(cfg *config.Config, rows []models.CompositeScore) *output.Table {
	trows := make([][]string, len(rows))
	for i, cs := range rows {
		pos := i + 1
		trows[i] = []string{
			output.RankColor(pos, strconv.Itoa(pos)),
			cfg.VendorName(cs.VendorID),
			fmtFloat(cs.FinalScore, 3),
			fmtFloat(cs.CompositeScore, 3),
			fmtFloat(cs.ZAvgScore, 3),
			fmtFloat(cs.RawScore, 2),
			strconv.Itoa(cs.RespondentCount),
			fmtFloat(cs.ReliabilityCoef, 2),
		}
	}
	return output.NewTable("総合ランキング",
		[]string{"順位", "ベンダー", "最終スコア", "複合スコア", "Z平均", "素点", "回答者数", "信頼性係数"},
		trows, nil, rows)
}

// categoryTable pivots the long-form category scores into one row per vendor
// with the weighted total in the last column.
func categoryTable(cfg *config.Config, res *scoring.Result) *output.Table {
	byVendor := make(map[string]map[string]models.CategoryScore)
	for _, cs := range res.CategoryScores {
		m, ok := byVendor[cs.VendorID]
		if !ok {
			m = make(map[string]models.CategoryScore)
			byVendor[cs.VendorID] = m
		}
		m[cs.Category] = cs
	}
	weighted := make(map[string]float64, len(res.WeightedScores))
	for _, ws := range res.WeightedScores {
		weighted[ws.VendorID] = ws.WeightedScore
	}

	headers := make([]string, 0, len(cfg.Categories)+2)
	headers = append(headers, "ベンダー")
	for _, cat := range cfg.Categories {
		headers = append(headers, fmt.Sprintf("%s (%.0f%%)", cat.Name, cat.Weight*100))
	}
	headers = append(headers, "加重合計")

	order := vendorOrder(cfg, res)
	rows := make([][]string, 0, len(order))
	for _, vid := range order {
		row := make([]string, 0, len(headers))
		row = append(row, cfg.VendorName(vid))
		for _, cat := range cfg.Categories {
			if cs, ok := byVendor[vid][cat.Key]; ok {
				row = append(row, fmtFloat(cs.MeanScore, 2))
			} else {
				row = append(row, "-")
			}
		}
		row = append(row, fmtFloat(weighted[vid], 3))
		rows = append(rows, row)
	}
	return output.NewTable("カテゴリ別スコア", headers, rows, nil, res.CategoryScores)
}

// detailedTable pivots the per-item means into one row per evaluation item.
func detailedTable(cfg *config.Config, res *scoring.Result) *output.Table {
	byItem := make(map[string]map[string]models.Cell)
	for _, d := range res.Detailed {
		m, ok := byItem[d.Item]
		if !ok {
			m = make(map[string]models.Cell)
			byItem[d.Item] = m
		}
		m[d.VendorID] = d.Score
	}

	order := vendorOrder(cfg, res)
	headers := make([]string, 0, len(order)+1)
	headers = append(headers, "評価項目")
	for _, vid := range order {
		headers = append(headers, cfg.VendorName(vid))
	}

	items := cfg.ItemColumns()
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		row := make([]string, 0, len(headers))
		row = append(row, item)
		for _, vid := range order {
			row = append(row, fmtCell(byItem[item][vid], 2))
		}
		rows = append(rows, row)
	}
	return output.NewTable("項目別スコア", headers, rows, nil, res.Detailed)
}

func anovaSummary(tbl *models.SignificanceTable) string {
	verdict := "有意差なし"
	if tbl.Anova.PValue < tbl.Alpha {
		verdict = "有意差あり"
	}
	return fmt.Sprintf("対象列: %s\nANOVA: F(%d, %d) = %.3f, p = %.4f, 判定: %s (α=%g)",
		tbl.Column, tbl.Anova.DFBetween, tbl.Anova.DFWithin, tbl.Anova.F, tbl.Anova.PValue, verdict, tbl.Alpha)
}

func significanceTable(cfg *config.Config, tbl *models.SignificanceTable) *output.Table {
	rows := make([][]string, len(tbl.Rows))
	for i, r := range tbl.Rows {
		verdict := "n.s."
		if r.Reject {
			verdict = "有意"
		}
		rows[i] = []string{
			fmt.Sprintf("%s vs %s", cfg.VendorName(r.Vendor1), cfg.VendorName(r.Vendor2)),
			fmtFloat(r.MeanDiff, 3),
			fmt.Sprintf("[%.3f, %.3f]", r.Lower, r.Upper),
			output.PValueColor(r.PAdj, tbl.Alpha, fmtFloat(r.PAdj, 4)),
			fmtCell(r.EffectSizeD, 2),
			verdict,
		}
	}
	return output.NewTable("多重比較 (Tukey HSD)",
		[]string{"ペア", "平均差", "95%信頼区間", "調整p値", "効果量d", "判定"},
		rows, nil, tbl.Rows)
}

func segmentTable(cfg *config.Config, tbl models.SegmentTable) *output.Table {
	rows := make([][]string, len(tbl.Rows))
	for i, r := range tbl.Rows {
		rows[i] = []string{
			r.Segment,
			output.RankColor(r.Rank, strconv.Itoa(r.Rank)),
			cfg.VendorName(r.VendorID),
			fmtFloat(r.AvgScore, 2),
		}
	}
	return output.NewTable("セグメント別ランキング: "+axisName(cfg, string(tbl.Axis)),
		[]string{"セグメント", "順位", "ベンダー", "平均スコア"},
		rows, nil, tbl.Rows)
}

func kruskalTable(cfg *config.Config, results []models.KruskalResult) *output.Table {
	rows := make([][]string, len(results))
	for i, kr := range results {
		verdict := "n.s."
		if kr.Significant {
			verdict = "有意"
		}
		rows[i] = []string{
			axisName(cfg, kr.Attribute),
			strconv.Itoa(kr.NSegments),
			fmtFloat(kr.Statistic, 3),
			output.PValueColor(kr.PValue, kr.Alpha, fmtFloat(kr.PValue, 4)),
			verdict,
		}
	}
	return output.NewTable("セグメント間スコア差 (Kruskal-Wallis)",
		[]string{"セグメント軸", "群数", "H統計量", "p値", "判定"},
		rows, nil, results)
}

func integratedTable(cfg *config.Config, rows []models.IntegratedRanking) *output.Table {
	trows := make([][]string, len(rows))
	for i, r := range rows {
		trows[i] = []string{
			r.Category,
			r.Axis,
			output.RankColor(r.Rank, strconv.Itoa(r.Rank)),
			cfg.VendorName(r.VendorID),
			fmtFloat(r.AvgScore, 2),
		}
	}
	return output.NewTable("セグメント統合ランキング",
		[]string{"分類", "セグメント", "順位", "ベンダー", "平均スコア"},
		trows, nil, rows)
}

func biasOverview(an *bias.Analysis) string {
	gc := an.GroupCounts()
	var b strings.Builder
	fmt.Fprintf(&b, "回答者: %d名 / 異常検出: %d名\n", len(an.Profiles), an.AnomalyCount())
	fmt.Fprintf(&b, "評価者群: %s%d名 / %s%d名 / %s%d名",
		groupLabels[models.GroupStrict], gc[models.GroupStrict],
		groupLabels[models.GroupStandard], gc[models.GroupStandard],
		groupLabels[models.GroupLenient], gc[models.GroupLenient])
	return b.String()
}

func alphaTable(cfg *config.Config, alphas []models.CategoryAlpha) *output.Table {
	rows := make([][]string, len(alphas))
	for i, a := range alphas {
		rows[i] = []string{
			categoryName(cfg, a.Category),
			fmtCell(a.Alpha, 3),
			strconv.Itoa(a.Items),
			strconv.Itoa(a.Respondents),
		}
	}
	return output.NewTable("カテゴリ信頼性 (Cronbach's α)",
		[]string{"カテゴリ", "α", "項目数", "完全回答者数"},
		rows, nil, alphas)
}

func anomalyTable(profiles []models.RespondentProfile) *output.Table {
	var anomalous []models.RespondentProfile
	var rows [][]string
	for _, p := range profiles {
		if !p.IsAnomaly {
			continue
		}
		flags := make([]string, 0, 2)
		if p.FlagZeroStd {
			flags = append(flags, "分散ゼロ")
		}
		if p.FlagExtreme {
			flags = append(flags, "極端値多用")
		}
		anomalous = append(anomalous, p)
		rows = append(rows, []string{
			strconv.Itoa(p.RespondentID),
			fmtCell(p.AvgScore, 2),
			fmtCell(p.StdScore, 2),
			fmt.Sprintf("%.0f%%", p.ExtremeUsage*100),
			strings.Join(flags, "、"),
		})
	}
	return output.NewTable("異常回答者",
		[]string{"回答者ID", "平均", "標準偏差", "極端値率", "フラグ"},
		rows, nil, anomalous)
}

func cleansingTable(cl *dataset.Summary) *output.Table {
	rows := [][]string{
		{"初期件数", strconv.Itoa(cl.Initial)},
		{"全項目同一スコア", strconv.Itoa(cl.Exclusion.AllSameScore)},
		{"単一ベンダー回答者", strconv.Itoa(cl.Exclusion.SingleVendor)},
		{"高欠損率", strconv.Itoa(cl.Exclusion.HighMissing)},
		{"低標準偏差", strconv.Itoa(cl.Exclusion.LowStdDev)},
		{"欠損補完 (" + cl.Fill.Method + ")", strconv.Itoa(cl.Fill.Filled)},
		{"補完後残欠損", strconv.Itoa(cl.Fill.RemainingMissing)},
		{"有効件数", strconv.Itoa(cl.Final)},
	}
	return output.NewTable("クレンジング内訳", []string{"項目", "件数"}, rows, nil, cl)
}

func qualityTable(q dataset.QualityReport) *output.Table {
	rows := make([][]string, len(q.Issues))
	for i, is := range q.Issues {
		rows[i] = []string{is.Type, is.Column, strconv.Itoa(is.Count), is.Details}
	}
	return output.NewTable("品質チェック",
		[]string{"種別", "列", "件数", "詳細"},
		rows, nil, q.Issues)
}

func warningsSection(warnings []string) *output.Section {
	return &output.Section{Title: "警告", Content: "- " + strings.Join(warnings, "\n- ")}
}

// vendorOrder lists vendors in final-score order when the composite ranking
// exists, configuration order otherwise.
func vendorOrder(cfg *config.Config, res *scoring.Result) []string {
	if len(res.Composite) > 0 {
		ids := make([]string, len(res.Composite))
		for i, cs := range res.Composite {
			ids[i] = cs.VendorID
		}
		return ids
	}
	return cfg.VendorIDs()
}

func axisName(cfg *config.Config, attribute string) string {
	if ax, ok := cfg.Axis(attribute); ok {
		return ax.Name
	}
	return attribute
}

func categoryName(cfg *config.Config, key string) string {
	if c, ok := cfg.Category(key); ok {
		return c.Name
	}
	return key
}

func fmtFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func fmtCell(c models.Cell, prec int) string {
	if !c.Valid {
		return "-"
	}
	return strconv.FormatFloat(c.Value, 'f', prec, 64)
}
