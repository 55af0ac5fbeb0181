package allocation

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// maxLegendEntries caps the pie legend; smaller slices are merged into one
// remainder entry so the chart stays readable.
const maxLegendEntries = 8

// otherLabel is the merged remainder slice.
const otherLabel = "其他"

// palette cycles by slice index.
var palette = []string{
	"#4E79A7", "#F28E2B", "#E15759", "#76B7B2", "#59A14F",
	"#EDC948", "#B07AA1", "#FF9DA7", "#9C755F", "#BAB0AC",
}

// Slice is one renderable pie slice.
type Slice struct {
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Percent float64 `json:"percent"`
	Color   string  `json:"color"`
}

// ChartSeries is the breakdown prepared for rendering: capped legend, colors
// assigned, and a coverage disclaimer when part of the portfolio is not
// explained by the breakdown.
type ChartSeries struct {
	Dimension  string  `json:"dimension"`
	Slices     []Slice `json:"slices"`
	HasData    bool    `json:"has_data"`
	Disclaimer string  `json:"disclaimer,omitempty"`
}

// BuildChartSeries renders a breakdown into chart form.
func BuildChartSeries(b *Breakdown) *ChartSeries {
	series := &ChartSeries{Dimension: b.Dimension}
	if len(b.Categories) == 0 {
		return series
	}
	series.HasData = true

	categories := b.Categories
	if len(categories) > maxLegendEntries {
		kept := categories[:maxLegendEntries-1]
		restValue := decimal.Zero
		restPct := decimal.Zero
		for _, c := range categories[maxLegendEntries-1:] {
			restValue = restValue.Add(decimal.NewFromFloat(c.Value))
			restPct = restPct.Add(decimal.NewFromFloat(c.Percent))
		}
		merged := make([]Category, 0, maxLegendEntries)
		merged = append(merged, kept...)
		merged = append(merged, Category{
			Name:    otherLabel,
			Value:   round2(restValue),
			Percent: round2(restPct),
		})
		categories = merged
	}

	series.Slices = make([]Slice, len(categories))
	for i, c := range categories {
		series.Slices[i] = Slice{
			Name:    c.Name,
			Value:   c.Value,
			Percent: c.Percent,
			Color:   palette[i%len(palette)],
		}
	}

	if b.Coverage.CoveredFunds < b.Coverage.TotalFunds {
		series.Disclaimer = fmt.Sprintf("覆盖 %d/%d 只基金，占总市值 %.1f%%",
			b.Coverage.CoveredFunds, b.Coverage.TotalFunds, b.Coverage.CoveredPercent)
	}
	return series
}

// ToggleSelection implements tap-to-select on a category: tapping the
// selected category clears the selection, tapping another moves it, and a
// category with no fund detail ignores the tap.
func ToggleSelection(selected, tapped string, tappedHasFunds bool) string {
	if !tappedHasFunds {
		return selected
	}
	if selected == tapped {
		return ""
	}
	return tapped
}
