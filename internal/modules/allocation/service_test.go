package allocation

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaicfin/mosaic/internal/database"
	"github.com/mosaicfin/mosaic/internal/domain"
	"github.com/mosaicfin/mosaic/internal/modules/funds"
	"github.com/mosaicfin/mosaic/internal/modules/household"
)

type fixture struct {
	service   *Service
	household *household.Repository
	funds     *funds.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	householdRepo := household.NewRepository(db.Conn(), zerolog.Nop())
	fundsRepo := funds.NewRepository(db.Conn(), zerolog.Nop())
	return &fixture{
		service:   NewService(householdRepo, fundsRepo, zerolog.Nop()),
		household: householdRepo,
		funds:     fundsRepo,
	}
}

func (f *fixture) addHolding(t *testing.T, code string, shares, costPrice float64) {
	t.Helper()
	_, err := f.household.CreateHolding(household.Holding{FundCode: code, Platform: "支付宝", Shares: shares, CostPrice: costPrice})
	require.NoError(t, err)
}

func (f *fixture) setAllocation(t *testing.T, code string, rows map[string]float64) {
	t.Helper()
	date := "2026-06-30"
	var allocRows []domain.FundAllocationRow
	for category, pct := range rows {
		allocRows = append(allocRows, domain.FundAllocationRow{
			FundCode: code, Dimension: DimensionAssetClass, Category: category,
			Percentage: pct, ReportDate: &date,
		})
	}
	require.NoError(t, f.funds.ReplaceAllocations(code, "api", allocRows))
}

func TestAggregateValueWeighted(t *testing.T) {
	f := newFixture(t)

	// Fund A: 6000 market value, 80% stocks / 20% bonds.
	f.addHolding(t, "110011", 1000, 1.0)
	require.NoError(t, f.funds.UpsertNav("110011", "2026-08-29", 6.0))
	f.setAllocation(t, "110011", map[string]float64{"股票": 80, "债券": 20})

	// Fund B: 4000 market value, all bonds.
	f.addHolding(t, "000961", 4000, 1.0)
	require.NoError(t, f.funds.UpsertNav("000961", "2026-08-29", 1.0))
	f.setAllocation(t, "000961", map[string]float64{"债券": 100})

	breakdown, err := f.service.Aggregate(DimensionAssetClass)
	require.NoError(t, err)

	require.Len(t, breakdown.Categories, 2)
	// Bonds: 6000*0.2 + 4000 = 5200 beats stocks 4800.
	assert.Equal(t, "债券", breakdown.Categories[0].Name)
	assert.Equal(t, 5200.0, breakdown.Categories[0].Value)
	assert.Equal(t, 52.0, breakdown.Categories[0].Percent)
	assert.Equal(t, "股票", breakdown.Categories[1].Name)
	assert.Equal(t, 4800.0, breakdown.Categories[1].Value)

	// Per-category fund detail, biggest contributor first.
	bonds := breakdown.Categories[0]
	require.Len(t, bonds.Funds, 2)
	assert.Equal(t, "000961", bonds.Funds[0].FundCode)
	assert.Equal(t, 4000.0, bonds.Funds[0].Value)
	assert.Equal(t, "110011", bonds.Funds[1].FundCode)
	assert.Equal(t, 1200.0, bonds.Funds[1].Value)

	assert.Equal(t, 2, breakdown.Coverage.CoveredFunds)
	assert.Equal(t, 100.0, breakdown.Coverage.CoveredPercent)
}

func TestAggregateCoverageExcludesFundsWithoutData(t *testing.T) {
	f := newFixture(t)

	f.addHolding(t, "110011", 9000, 1.0)
	require.NoError(t, f.funds.UpsertNav("110011", "2026-08-29", 1.0))
	f.setAllocation(t, "110011", map[string]float64{"股票": 100})

	// No allocation rows for this fund.
	f.addHolding(t, "007339", 1000, 1.0)
	require.NoError(t, f.funds.UpsertNav("007339", "2026-08-29", 1.0))

	breakdown, err := f.service.Aggregate(DimensionAssetClass)
	require.NoError(t, err)

	assert.Equal(t, 2, breakdown.Coverage.TotalFunds)
	assert.Equal(t, 1, breakdown.Coverage.CoveredFunds)
	assert.Equal(t, 10000.0, breakdown.Coverage.TotalValue)
	assert.Equal(t, 9000.0, breakdown.Coverage.CoveredValue)
	assert.Equal(t, 90.0, breakdown.Coverage.CoveredPercent)

	// Percentages are of covered value, so they still sum to 100.
	assert.Equal(t, 100.0, breakdown.Categories[0].Percent)
}

func TestAggregateEmptyPortfolio(t *testing.T) {
	f := newFixture(t)

	breakdown, err := f.service.Aggregate(DimensionAssetClass)
	require.NoError(t, err)

	assert.Empty(t, breakdown.Categories)
	assert.Equal(t, 0, breakdown.Coverage.TotalFunds)
	assert.Equal(t, 0.0, breakdown.Coverage.CoveredPercent)
}

func TestAggregateUnknownDimension(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Aggregate("currency")
	assert.Error(t, err)
}

func TestAggregateMergesPlatforms(t *testing.T) {
	f := newFixture(t)

	// Same fund on two platforms contributes once per platform by value but
	// counts as a single fund for coverage.
	f.addHolding(t, "110011", 1000, 1.0)
	_, err := f.household.CreateHolding(household.Holding{FundCode: "110011", Platform: "天天基金", Shares: 2000, CostPrice: 1.0})
	require.NoError(t, err)
	require.NoError(t, f.funds.UpsertNav("110011", "2026-08-29", 1.0))
	f.setAllocation(t, "110011", map[string]float64{"股票": 100})

	breakdown, err := f.service.Aggregate(DimensionAssetClass)
	require.NoError(t, err)

	assert.Equal(t, 1, breakdown.Coverage.TotalFunds)
	assert.Equal(t, 3000.0, breakdown.Categories[0].Value)
}

func TestBuildChartSeriesLegendCap(t *testing.T) {
	breakdown := &Breakdown{
		Dimension: DimensionSector,
		Coverage:  Coverage{TotalFunds: 3, CoveredFunds: 3, CoveredPercent: 100},
	}
	for i := 0; i < 12; i++ {
		breakdown.Categories = append(breakdown.Categories, Category{
			Name:    string(rune('A' + i)),
			Value:   float64(1200 - i*100),
			Percent: float64(12 - i),
		})
	}

	series := BuildChartSeries(breakdown)
	require.True(t, series.HasData)
	require.Len(t, series.Slices, maxLegendEntries)
	assert.Equal(t, otherLabel, series.Slices[maxLegendEntries-1].Name)
	// Merged slice carries the sum of everything past the cap.
	assert.Equal(t, 500.0+400+300+200+100, series.Slices[maxLegendEntries-1].Value)

	// Colors cycle through the palette by index.
	for i, s := range series.Slices {
		assert.Equal(t, palette[i%len(palette)], s.Color)
	}
}

func TestBuildChartSeriesDisclaimer(t *testing.T) {
	breakdown := &Breakdown{
		Dimension:  DimensionAssetClass,
		Categories: []Category{{Name: "股票", Value: 9000, Percent: 100}},
		Coverage:   Coverage{TotalFunds: 10, CoveredFunds: 8, CoveredPercent: 90.0},
	}
	series := BuildChartSeries(breakdown)
	assert.Equal(t, "覆盖 8/10 只基金，占总市值 90.0%", series.Disclaimer)

	breakdown.Coverage.CoveredFunds = 10
	assert.Empty(t, BuildChartSeries(breakdown).Disclaimer)
}

func TestBuildChartSeriesNoData(t *testing.T) {
	series := BuildChartSeries(&Breakdown{Dimension: DimensionAssetClass})
	assert.False(t, series.HasData)
	assert.Empty(t, series.Slices)
}

func TestToggleSelection(t *testing.T) {
	assert.Equal(t, "股票", ToggleSelection("", "股票", true))
	assert.Equal(t, "债券", ToggleSelection("股票", "债券", true))
	assert.Equal(t, "", ToggleSelection("股票", "股票", true))
	// A category with no fund detail ignores the tap.
	assert.Equal(t, "股票", ToggleSelection("股票", "其他", false))
}
