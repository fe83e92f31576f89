package mcpserver

// Tool descriptions with interpretation guidance for LLMs.
// Each description explains what the tool does, when to use it,
// how to interpret results, and key thresholds.

func describeSurvey() string {
	return `Runs the complete vendor evaluation pipeline on a QBR survey export: cleansing, bias correction, ranking, significance tests, and segment breakdowns in one pass.

USE WHEN:
- Preparing a quarterly business review from a fresh survey export
- You want every table at once instead of calling the per-analysis tools
- Drafting an executive summary of vendor performance

INTERPRETING RESULTS:
- The executive summary states the top vendor and the findings behind it
- Final scores are bias-corrected: respondent leniency is removed before vendors are compared
- A reliability coefficient below 1.0 means the vendor had fewer than the configured minimum of respondents, so its score is discounted
- Rankings without a significant pairwise difference should be presented as "no measurable gap", not as a win
- Segment tables show where the overall ranking flips for a subgroup

METRICS RETURNED:
- Executive summary with key findings
- Overall ranking: raw, normalized, composite, and final scores per vendor
- Category and per-item score tables
- ANOVA + Tukey HSD significance table
- Per-axis segment rankings with Kruskal-Wallis tests
- Respondent bias profile and Cronbach's alpha per category`
}

func describeRanking() string {
	return `Ranks vendors by bias-corrected composite score from multi-respondent survey data.

USE WHEN:
- Answering "which vendor is performing best this quarter"
- Comparing vendors on category or item level
- Checking how much a ranking depends on respondent count

INTERPRETING RESULTS:
- Scores are normalized per respondent (z-scores) so lenient and strict raters weigh equally
- Composite score blends the z-score average (50%), the rank signal (30%), and the raw mean (20%)
- Final score = composite score x reliability coefficient
- Reliability coefficient < 1.0: vendor had fewer respondents than the reliability threshold (default 20), treat its position with caution
- Small final-score gaps (< 0.05) are usually not significant; confirm with analyze_significance
- Category means are on the raw 1-5 scale; the weighted column applies configured category weights

METRICS RETURNED:
- Per-vendor: raw mean, z-average, rank, composite score, respondent count, reliability coefficient, final score
- Per-category: mean, standard deviation, 95% confidence interval, weighted contribution
- Per-item detail scores and positioning coordinates`
}

func describeBias() string {
	return `Profiles respondent rating behavior: leniency classification, anomaly detection, and scale reliability.

USE WHEN:
- Checking whether survey answers are trustworthy before ranking
- Finding respondents who rate everything the same or only use extremes
- Verifying that evaluation categories measure consistently (Cronbach's alpha)

INTERPRETING RESULTS:
- Leniency groups by personal average on the 1-5 scale: strict (< 3.0), standard (3.0-4.0), lenient (> 4.0)
- A heavy skew toward one group is fine: normalization corrects it, that is the point of the tool
- FlagZeroStd: respondent gave the same score everywhere, their answers carry no ranking information
- FlagExtreme: 80% or more of answers are 1s or 5s
- Anomalous respondents are kept in the data but reported; consider excluding them at the source
- Cronbach's alpha >= 0.7: category items measure one construct; below 0.7 the category mean is a weak summary

METRICS RETURNED:
- Per-respondent: average, standard deviation, extreme-answer rate, flags, leniency group
- Group counts and anomaly count
- Per-category Cronbach's alpha with item and respondent counts`
}

func describeSignificance() string {
	return `Tests whether vendor score differences are statistically real: one-way ANOVA, Tukey HSD pairwise comparisons, and Cohen's d effect sizes.

USE WHEN:
- A stakeholder asks "is vendor A actually better than vendor B"
- Deciding whether a ranking gap justifies a contract decision
- Checking a specific score column rather than the overall ranking

INTERPRETING RESULTS:
- ANOVA is the gate: p >= alpha means no detectable difference anywhere, pairwise rows are then exploratory
- Tukey adjusted p-values control the family-wise error across all vendor pairs
- Reject = true: the pair differs at the configured alpha (default 0.05)
- The confidence interval of a significant pair excludes zero
- Cohen's d sizes the gap: 0.2 small, 0.5 medium, 0.8 large; a significant pair with d < 0.2 is real but practically negligible
- Mean differences are on the normalized scale, not raw points

METRICS RETURNED:
- Omnibus: F statistic, degrees of freedom, p-value
- Per-pair: mean difference, family-wise confidence interval, adjusted p-value, effect size, reject flag`
}

func describeSegments() string {
	return `Ranks vendors within each segmentation axis (department, usage frequency, incident experience, leniency group, business vs IT) and tests per-axis score differences.

USE WHEN:
- Checking whether the overall winner also wins for daily users or for IT
- Finding subgroups where a vendor underperforms
- Explaining why different stakeholders disagree about vendor quality

INTERPRETING RESULTS:
- Each axis table ranks vendors inside every segment value independently
- Kruskal-Wallis per axis: a significant p-value means segment membership shifts scores, so segment-level rankings matter for that axis
- A non-significant axis means the overall ranking holds across its segments
- The integrated ranking lists the per-segment winners side by side for cross-segment comparison
- Small segments (n < 5) produce unstable ranks; warnings call these out

METRICS RETURNED:
- Per axis and segment: vendor ranking with average scores
- Per axis: Kruskal-Wallis H statistic, p-value, segment distributions
- Integrated cross-segment ranking
- Warnings for thin or unmapped segments`
}

func describeValidate() string {
	return `Validates a survey CSV against the schema document and quality rules without running any analysis.

USE WHEN:
- Receiving a new survey export from the field
- Debugging why an analysis looks wrong or refuses to run
- Previewing how much data cleansing will discard

INTERPRETING RESULTS:
- Schema issues are structural: missing columns, wrong types, out-of-range scores
- Quality issues are content-level: duplicate respondent-vendor pairs, unknown vendor ids, empty segments
- The cleansing breakdown previews exclusions: straight-line answers, single-vendor respondents, high-missing rows
- Valid = false with a high exclusion rate usually means a broken export, not bad vendors
- A dataset can pass the schema and still lose most rows to cleansing; check the final count

METRICS RETURNED:
- Schema issue list and detected columns
- Dataset statistics: records, respondents, vendors, date range, missing rate
- Quality report and cleansing exclusion breakdown
- Overall valid verdict`
}
