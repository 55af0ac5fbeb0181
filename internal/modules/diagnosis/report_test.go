package diagnosis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReport = `{
	"report_date": "2026-08-25",
	"family_asset_overview": {
		"total_assets": 276800,
		"total_return": 12400,
		"total_return_pct": 4.7,
		"buckets": {
			"liquid": {"amount": 20000, "pct_of_total": 8},
			"stable": {"label": "稳健理财", "market_value": 100000, "pct_of_total": 40},
			"growth": {"amount": 150000, "pct_of_total": 52},
			"insurance": {"annual_premium": 6800}
		}
	},
	"diagnosis": {
		"scan1_mpt": {"theory": "现代投资组合理论", "findings": ["波动率高于有效前沿"], "expected_return": 6.2},
		"scan2_three_fund": {"theory": "三基金组合", "findings": []},
		"scan9_custom": {"theory": "自定义", "findings": [{"issue": "敞口过大", "severity": "medium"}]},
		"notes": "自由文本，不是扫描",
		"supplementary": {
			"bucket_allocation": {"findings": [{"issue": "长钱占比偏高", "severity": "medium", "detail": "52% vs 50-70"}]},
			"insurance": {"findings": [{"issue": "缺少重疾险", "severity": "high"}]},
			"platform_concentration": {"top_platform": "天天基金", "top_platform_pct": 82.5, "over_70_threshold": true}
		}
	},
	"issues_summary": [
		{"issue": "单一基金占比过高", "severity": "high", "detail": "110011 占股票仓位 45%", "source": "concentration"},
		{"issue": "行业集中于白酒", "severity": "medium", "source": "sector"},
		{"issue": "现金比例偏低", "severity": "info"},
		{"issue": "未知类型", "severity": "experimental"}
	],
	"exposure_analysis": {
		"by_geography": {"A股": 62.0, "美股": 28.0, "其他": 10.0},
		"by_asset_class": {"股票": 70.0, "债券": 20.0, "现金": 10.0},
		"by_index": {"沪深300": 45.5, "标普500": 28.0}
	},
	"recommendations": ["降低单一基金集中度", {"text": "增加现金储备"}],
	"disclaimer": "本报告仅供参考，不构成投资建议。"
}`

func mustReport(t *testing.T) *Report {
	t.Helper()
	report, err := ParseReport([]byte(sampleReport))
	require.NoError(t, err)
	return report
}

func TestReportIssues(t *testing.T) {
	report := mustReport(t)
	issues := report.Issues()

	require.Len(t, issues, 4)
	assert.Equal(t, "单一基金占比过高", issues[0].Issue)
	assert.Equal(t, SeverityHigh, issues[0].Severity)
	assert.Equal(t, "110011 占股票仓位 45%", issues[0].Detail)
	// Unknown severities survive verbatim.
	assert.Equal(t, "experimental", issues[3].Severity)
	// Missing fields decode as empty, never error.
	assert.Empty(t, issues[2].Detail)
}

func TestScanKindDetection(t *testing.T) {
	tests := []struct {
		id   string
		kind string
	}{
		{"scan1_mpt", ScanMPT},
		{"scan2_THREE_FUND", ScanThreeFund},
		{"scan3_all_weather", ScanAllWeather},
		{"scan4_core_satellite", ScanCoreSatellite},
		{"scan5_lifecycle", ScanLifecycle},
		{"scan9_custom", ScanGeneric},
		{"", ScanGeneric},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.kind, DetectScanKind(tt.id), tt.id)
	}
}

func TestReportScans(t *testing.T) {
	report := mustReport(t)
	scans := report.Scans()

	// Only theory-tagged sections qualify; notes and supplementary are skipped.
	require.Len(t, scans, 3)
	assert.Equal(t, "scan1_mpt", scans[0].ID)
	assert.Equal(t, ScanMPT, scans[0].Kind)
	assert.Equal(t, []string{"波动率高于有效前沿"}, scans[0].Findings)
	// Scan-specific numeric fields stay reachable through the raw value.
	ret, ok := scans[0].Fields.Get("expected_return").Float()
	require.True(t, ok)
	assert.Equal(t, 6.2, ret)

	assert.Empty(t, scans[1].Findings)

	// Structured findings contribute their issue text.
	assert.Equal(t, ScanGeneric, scans[2].Kind)
	assert.Equal(t, []string{"敞口过大"}, scans[2].Findings)
}

func TestReportBuckets(t *testing.T) {
	report := mustReport(t)
	buckets := report.Buckets(DefaultBenchmarks)
	require.Len(t, buckets, 4)

	byKey := map[string]Bucket{}
	for _, b := range buckets {
		byKey[b.Key] = b
	}

	// liquid 8% < lo 10 → under; label falls back to the built-in name.
	assert.Equal(t, StatusUnder, byKey["liquid"].Status)
	assert.Equal(t, 20000.0, byKey["liquid"].Amount)
	assert.Equal(t, "活钱", byKey["liquid"].Label)

	// stable 40% > 25*1.5=37.5 → over; amount falls back to market_value and
	// the document's own label wins.
	assert.Equal(t, StatusOver, byKey["stable"].Status)
	assert.Equal(t, 100000.0, byKey["stable"].Amount)
	assert.Equal(t, "稳健理财", byKey["stable"].Label)

	// growth 52% inside 50-70 → normal.
	assert.Equal(t, StatusNormal, byKey["growth"].Status)

	// insurance has no benchmark and no pct → normal, premium as amount.
	assert.Equal(t, StatusNormal, byKey["insurance"].Status)
	assert.Equal(t, 6800.0, byKey["insurance"].Amount)
	assert.Nil(t, byKey["insurance"].PctOfTotal)
}

func TestBucketOverNeedsCleanBreach(t *testing.T) {
	// Slightly above the band's top is still normal; over requires 1.5x.
	bench := BenchmarkRange{Lo: 10, Hi: 20}
	assert.Equal(t, StatusNormal, benchmarkStatus(25, bench))
	assert.Equal(t, StatusNormal, benchmarkStatus(30, bench))
	assert.Equal(t, StatusOver, benchmarkStatus(31, bench))
	assert.Equal(t, StatusUnder, benchmarkStatus(9.9, bench))
	assert.Equal(t, StatusNormal, benchmarkStatus(10, bench))
}

func TestReportOverviewTotals(t *testing.T) {
	report := mustReport(t)
	overview := report.Overview()
	assert.Equal(t, 276800.0, overview.TotalAssets)
	assert.Equal(t, 12400.0, overview.TotalReturn)
	assert.Equal(t, 4.7, overview.TotalReturnPct)
}

func TestReportSupplementary(t *testing.T) {
	report := mustReport(t)
	sections := report.Supplementary()
	require.Len(t, sections, 3)

	assert.Equal(t, "桶间配比", sections[0].Label)
	assert.Equal(t, "长钱占比偏高", sections[0].Findings[0].Issue)

	assert.Equal(t, "保险覆盖", sections[1].Label)
	assert.Equal(t, SeverityHigh, sections[1].Findings[0].Severity)

	// Platform concentration is synthesized from the raw percentages and goes
	// high once the 70% threshold is crossed.
	assert.Equal(t, "平台集中度", sections[2].Label)
	require.Len(t, sections[2].Findings, 1)
	assert.Equal(t, "天天基金 占比 82.5%", sections[2].Findings[0].Issue)
	assert.Equal(t, SeverityHigh, sections[2].Findings[0].Severity)
}

func TestReportExposures(t *testing.T) {
	report := mustReport(t)
	exposures := report.Exposures()
	assert.Equal(t, 62.0, exposures.ByGeography["A股"])
	assert.Equal(t, 20.0, exposures.ByAssetClass["债券"])
	assert.Equal(t, 45.5, exposures.ByIndex["沪深300"])
}

// A full contract-shaped document must yield non-empty projections and a
// sub-100 health score; anything else means the accessors read the wrong keys.
func TestReportProjectsContractShape(t *testing.T) {
	report := mustReport(t)

	issues := report.Issues()
	assert.NotEmpty(t, issues)
	assert.NotEmpty(t, report.Scans())
	assert.NotEmpty(t, report.Buckets(DefaultBenchmarks))
	assert.Less(t, HealthScore(issues), 100)
}

func TestReportRecommendationsAndText(t *testing.T) {
	report := mustReport(t)
	assert.Equal(t, []string{"降低单一基金集中度", "增加现金储备"}, report.Recommendations())
	assert.Equal(t, "2026-08-25", report.ReportDate())
	assert.NotEmpty(t, report.Disclaimer())
}

func TestReportToleratesMissingSections(t *testing.T) {
	report, err := ParseReport([]byte(`{"report_date": "2026-08-25"}`))
	require.NoError(t, err)

	assert.Empty(t, report.Issues())
	assert.Empty(t, report.Scans())
	assert.Empty(t, report.Buckets(DefaultBenchmarks))
	assert.Empty(t, report.Recommendations())
	assert.Empty(t, report.Supplementary())
	assert.Nil(t, report.Exposures().ByIndex)
	assert.Zero(t, report.Overview().TotalAssets)
}

func TestSortIssuesBySeverity(t *testing.T) {
	issues := []Issue{
		{Issue: "a", Severity: "info"},
		{Issue: "b", Severity: "weird"},
		{Issue: "c", Severity: "high"},
		{Issue: "d", Severity: "medium"},
		{Issue: "e", Severity: "high"},
	}
	SortIssuesBySeverity(issues)

	order := make([]string, len(issues))
	for i, issue := range issues {
		order[i] = issue.Issue
	}
	// Stable within severity: c before e.
	assert.Equal(t, []string{"c", "e", "d", "a", "b"}, order)
}
