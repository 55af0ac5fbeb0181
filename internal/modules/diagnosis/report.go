// Package diagnosis serves the portfolio diagnosis report. The report is a
// schema-less JSON document produced by the analysis pipeline; this package
// wraps it in permissive accessors so the document can evolve additively
// without breaking readers.
package diagnosis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mosaicfin/mosaic/pkg/dynval"
)

// Severity levels the report is expected to use. Anything else is preserved
// and rendered literally.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityInfo   = "info"
)

// Issue is one finding from the report's issues_summary list. Supplementary
// sections reuse the same shape for their findings.
type Issue struct {
	Issue    string `json:"issue"`
	Severity string `json:"severity"`
	Detail   string `json:"detail,omitempty"`
	Source   string `json:"source,omitempty"`
}

// Scan kinds, detected from the scan id. Unknown ids fall back to ScanGeneric
// which renders exposures by index.
const (
	ScanMPT           = "mpt"
	ScanThreeFund     = "three_fund"
	ScanAllWeather    = "all_weather"
	ScanCoreSatellite = "core_satellite"
	ScanLifecycle     = "lifecycle"
	ScanGeneric       = "generic"
)

// Scan is one theory-tagged analysis section from the diagnosis map. The map
// key (scan1_mpt, scan5_lifecycle, ...) becomes the id. Fields carries the
// scan-specific numbers (scenarios_covered, core_pct, recommended_equity_pct,
// ...) as-is.
type Scan struct {
	ID       string       `json:"id"`
	Kind     string       `json:"kind"`
	Theory   string       `json:"theory"`
	Findings []string     `json:"findings"`
	Fields   dynval.Value `json:"fields"`
}

// BucketStatus values.
const (
	StatusOver   = "over"
	StatusUnder  = "under"
	StatusNormal = "normal"
)

// Bucket is one asset bucket with its benchmark comparison.
type Bucket struct {
	Key        string   `json:"key"`
	Label      string   `json:"label"`
	Amount     float64  `json:"amount"`
	PctOfTotal *float64 `json:"pct_of_total,omitempty"`
	Status     string   `json:"status"`
}

// BenchmarkRange is the acceptable percentage band for a bucket.
type BenchmarkRange struct {
	Lo float64
	Hi float64
}

// DefaultBenchmarks are the household's reference bands per bucket key. These
// are advisory heuristics, not hard limits.
var DefaultBenchmarks = map[string]BenchmarkRange{
	"liquid": {Lo: 10, Hi: 15},
	"stable": {Lo: 15, Hi: 25},
	"growth": {Lo: 50, Hi: 70},
}

// bucketLabels are the display names used when a bucket carries no label of
// its own.
var bucketLabels = map[string]string{
	"liquid":    "活钱",
	"stable":    "稳钱",
	"growth":    "长钱",
	"insurance": "保险",
}

// Overview is the family_asset_overview totals block.
type Overview struct {
	TotalAssets    float64 `json:"total_assets"`
	TotalReturn    float64 `json:"total_return"`
	TotalReturnPct float64 `json:"total_return_pct"`
}

// SupplementarySection is one labelled group of supplementary findings.
type SupplementarySection struct {
	Label    string  `json:"label"`
	Findings []Issue `json:"findings"`
}

// Exposure is the exposure_analysis block, each axis a name-to-percent map.
type Exposure struct {
	ByGeography  map[string]float64 `json:"by_geography,omitempty"`
	ByAssetClass map[string]float64 `json:"by_asset_class,omitempty"`
	ByIndex      map[string]float64 `json:"by_index,omitempty"`
}

// Report wraps the raw diagnosis document.
type Report struct {
	doc dynval.Value
}

// NewReport wraps a decoded document.
func NewReport(doc dynval.Value) *Report {
	return &Report{doc: doc}
}

// ParseReport decodes raw JSON into a Report.
func ParseReport(data []byte) (*Report, error) {
	doc, err := dynval.Parse(data)
	if err != nil {
		return nil, err
	}
	return &Report{doc: doc}, nil
}

// Doc returns the raw document.
func (r *Report) Doc() dynval.Value { return r.doc }

// ReportDate returns the document's report_date, empty when absent.
func (r *Report) ReportDate() string {
	return r.doc.Get("report_date").StrOr("")
}

// Overview returns the family_asset_overview totals. Missing fields come back
// as zero.
func (r *Report) Overview() Overview {
	overview := r.doc.Get("family_asset_overview")
	return Overview{
		TotalAssets:    overview.Get("total_assets").FloatOr(0),
		TotalReturn:    overview.Get("total_return").FloatOr(0),
		TotalReturnPct: overview.Get("total_return_pct").FloatOr(0),
	}
}

// Disclaimer returns the report's disclaimer text.
func (r *Report) Disclaimer() string {
	return r.doc.Get("disclaimer").StrOr("")
}

// Issues returns the issues_summary list. Entries missing fields come back
// with empty strings; unknown severities are preserved verbatim.
func (r *Report) Issues() []Issue {
	items := r.doc.Get("issues_summary").Items()
	issues := make([]Issue, 0, len(items))
	for _, item := range items {
		issues = append(issues, decodeIssue(item))
	}
	return issues
}

func decodeIssue(item dynval.Value) Issue {
	return Issue{
		Issue:    item.Get("issue").StrOr(""),
		Severity: item.Get("severity").StrOr(""),
		Detail:   item.Get("detail").StrOr(""),
		Source:   item.Get("source").StrOr(""),
	}
}

// Scans returns the theory-tagged sections of the diagnosis map, in key order.
// A section qualifies when it is a map carrying a theory field; everything
// else (supplementary, loose notes) is skipped.
func (r *Report) Scans() []Scan {
	diagnosis := r.doc.Get("diagnosis")
	scans := make([]Scan, 0, diagnosis.Len())
	for _, id := range diagnosis.Keys() {
		section := diagnosis.Get(id)
		theory, ok := section.Lookup("theory")
		if !ok {
			continue
		}
		findings := []string{}
		for _, f := range section.Get("findings").Items() {
			if s, ok := f.Str(); ok {
				findings = append(findings, s)
			} else if s := f.Get("issue").StrOr(""); s != "" {
				findings = append(findings, s)
			}
		}
		scans = append(scans, Scan{
			ID:       id,
			Kind:     DetectScanKind(id),
			Theory:   theory.StrOr(""),
			Findings: findings,
			Fields:   section,
		})
	}
	return scans
}

// DetectScanKind maps a scan id to its interpretation by substring match.
func DetectScanKind(id string) string {
	lower := strings.ToLower(id)
	switch {
	case strings.Contains(lower, ScanMPT):
		return ScanMPT
	case strings.Contains(lower, ScanThreeFund):
		return ScanThreeFund
	case strings.Contains(lower, ScanAllWeather):
		return ScanAllWeather
	case strings.Contains(lower, ScanCoreSatellite):
		return ScanCoreSatellite
	case strings.Contains(lower, ScanLifecycle):
		return ScanLifecycle
	default:
		return ScanGeneric
	}
}

// Buckets returns family_asset_overview.buckets with benchmark status, in key
// order.
//
// Amount resolves in order: amount, market_value, annual_premium (insurance
// buckets report premiums, not values). Labels fall back to the built-in
// display names, then the key itself. Status compares pct_of_total to the
// bucket's benchmark band: under when below the band, over only when past 1.5x
// the band's upper edge, normal otherwise. A bucket with no benchmark or no
// percentage is always normal.
func (r *Report) Buckets(benchmarks map[string]BenchmarkRange) []Bucket {
	raw := r.doc.Get("family_asset_overview").Get("buckets")
	buckets := make([]Bucket, 0, raw.Len())
	for _, key := range raw.Keys() {
		item := raw.Get(key)
		label := item.Get("label").StrOr("")
		if label == "" {
			if builtin, ok := bucketLabels[key]; ok {
				label = builtin
			} else {
				label = key
			}
		}
		b := Bucket{
			Key:    key,
			Label:  label,
			Status: StatusNormal,
		}

		if amount, ok := item.Get("amount").Float(); ok {
			b.Amount = amount
		} else if mv, ok := item.Get("market_value").Float(); ok {
			b.Amount = mv
		} else if premium, ok := item.Get("annual_premium").Float(); ok {
			b.Amount = premium
		}

		if pct, ok := item.Get("pct_of_total").Float(); ok {
			b.PctOfTotal = &pct
			if bench, found := benchmarks[key]; found {
				b.Status = benchmarkStatus(pct, bench)
			}
		}
		buckets = append(buckets, b)
	}
	return buckets
}

func benchmarkStatus(pct float64, bench BenchmarkRange) string {
	switch {
	case pct > bench.Hi*1.5:
		return StatusOver
	case pct < bench.Lo:
		return StatusUnder
	default:
		return StatusNormal
	}
}

// Recommendations returns the report's recommendation strings.
func (r *Report) Recommendations() []string {
	items := r.doc.Get("recommendations").Items()
	recs := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.Str(); ok {
			recs = append(recs, s)
		} else if s := item.Get("text").StrOr(""); s != "" {
			// Structured recommendations carry their text in a field.
			recs = append(recs, s)
		}
	}
	return recs
}

// Supplementary returns the labelled finding groups under
// diagnosis.supplementary: bucket allocation, insurance coverage, and a
// synthesized platform concentration finding. Platform concentration turns
// high-severity once a single platform crosses the 70% threshold.
func (r *Report) Supplementary() []SupplementarySection {
	supp, ok := r.doc.Lookup("diagnosis", "supplementary")
	if !ok {
		return nil
	}

	sections := []SupplementarySection{}
	if findings := supp.Get("bucket_allocation").Get("findings"); findings.Len() > 0 {
		sections = append(sections, SupplementarySection{Label: "桶间配比", Findings: decodeIssues(findings)})
	}
	if findings := supp.Get("insurance").Get("findings"); findings.Len() > 0 {
		sections = append(sections, SupplementarySection{Label: "保险覆盖", Findings: decodeIssues(findings)})
	}

	pc := supp.Get("platform_concentration")
	if top := pc.Get("top_platform").StrOr(""); top != "" {
		finding := Issue{
			Issue:    fmt.Sprintf("%s 占比 %.1f%%", top, pc.Get("top_platform_pct").FloatOr(0)),
			Severity: SeverityInfo,
			Detail:   "平台分布尚可",
		}
		if pc.Get("over_70_threshold").BoolOr(false) {
			finding.Severity = SeverityHigh
			finding.Detail = "单一平台超过70%阈值"
		}
		sections = append(sections, SupplementarySection{Label: "平台集中度", Findings: []Issue{finding}})
	}
	return sections
}

func decodeIssues(items dynval.Value) []Issue {
	issues := make([]Issue, 0, items.Len())
	for _, item := range items.Items() {
		issues = append(issues, decodeIssue(item))
	}
	return issues
}

// Exposures returns the exposure_analysis axes. Axes absent from the document
// come back nil; generic scans fall back to the by_index axis.
func (r *Report) Exposures() Exposure {
	exposure := r.doc.Get("exposure_analysis")
	return Exposure{
		ByGeography:  floatMap(exposure.Get("by_geography")),
		ByAssetClass: floatMap(exposure.Get("by_asset_class")),
		ByIndex:      floatMap(exposure.Get("by_index")),
	}
}

func floatMap(v dynval.Value) map[string]float64 {
	fields := v.Fields()
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]float64, len(fields))
	for name, val := range fields {
		if f, ok := val.Float(); ok {
			out[name] = f
		}
	}
	return out
}

// SortIssuesBySeverity orders issues high, medium, info, then anything else,
// stably within each group.
func SortIssuesBySeverity(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		return SeverityRank(issues[i].Severity) < SeverityRank(issues[j].Severity)
	})
}

// SeverityRank maps a severity to its sort position. Unknown severities sort
// last.
func SeverityRank(severity string) int {
	switch severity {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	case SeverityInfo:
		return 2
	default:
		return 3
	}
}
