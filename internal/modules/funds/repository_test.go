package funds

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaicfin/mosaic/internal/database"
	"github.com/mosaicfin/mosaic/internal/domain"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })
	return NewRepository(db.Conn(), zerolog.Nop())
}

func TestNavUpsertAndHistory(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.UpsertNav("000961", "2026-08-27", 1.234))
	require.NoError(t, repo.UpsertNav("000961", "2026-08-28", 1.250))
	// Same day again replaces, never duplicates.
	require.NoError(t, repo.UpsertNav("000961", "2026-08-28", 1.255))

	records, err := repo.NavHistory("000961", "", "")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2026-08-27", records[0].Date)
	assert.Equal(t, 1.255, records[1].Nav)

	latest, err := repo.LatestNav("000961")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "2026-08-28", latest.Date)

	bounded, err := repo.NavHistory("000961", "2026-08-28", "2026-08-28")
	require.NoError(t, err)
	assert.Len(t, bounded, 1)
}

func TestLatestNavUnknownFund(t *testing.T) {
	repo := newTestRepo(t)
	latest, err := repo.LatestNav("999999")
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestReplaceAllocationsKeepsManualRows(t *testing.T) {
	repo := newTestRepo(t)
	date1 := "2026-06-30"

	require.NoError(t, repo.ReplaceAllocations("110011", "manual", []domain.FundAllocationRow{
		{FundCode: "110011", Dimension: "asset_class", Category: "股票", Percentage: 90, ReportDate: &date1},
	}))
	require.NoError(t, repo.ReplaceAllocations("110011", "api", []domain.FundAllocationRow{
		{FundCode: "110011", Dimension: "geography", Category: "中国", Percentage: 100, ReportDate: &date1},
	}))

	// API refresh replaces api rows only.
	require.NoError(t, repo.ReplaceAllocations("110011", "api", []domain.FundAllocationRow{
		{FundCode: "110011", Dimension: "geography", Category: "美国", Percentage: 100, ReportDate: &date1},
	}))

	grouped, err := repo.AllocationsByFund("110011")
	require.NoError(t, err)
	require.Len(t, grouped["asset_class"], 1)
	require.Len(t, grouped["geography"], 1)
	assert.Equal(t, "美国", grouped["geography"][0].Category)
}

func TestAllocationsForDimensionLatestReportWins(t *testing.T) {
	repo := newTestRepo(t)
	old := "2026-03-31"
	current := "2026-06-30"

	require.NoError(t, repo.ReplaceAllocations("110011", "api", []domain.FundAllocationRow{
		{FundCode: "110011", Dimension: "asset_class", Category: "股票", Percentage: 85, ReportDate: &old},
		{FundCode: "110011", Dimension: "asset_class", Category: "股票", Percentage: 92, ReportDate: &current},
		{FundCode: "110011", Dimension: "asset_class", Category: "债券", Percentage: 8, ReportDate: &current},
	}))

	rows, err := repo.AllocationsForDimension("110011", "asset_class")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		require.NotNil(t, row.ReportDate)
		assert.Equal(t, current, *row.ReportDate)
	}
}

func TestFundNameFallsBackToCode(t *testing.T) {
	repo := newTestRepo(t)
	assert.Equal(t, "007339", repo.FundName("007339"))

	require.NoError(t, repo.UpsertFund(domain.Fund{FundCode: "007339", FundName: "易方达安心回馈"}))
	assert.Equal(t, "易方达安心回馈", repo.FundName("007339"))
}

func TestTopHoldingsReplace(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.ReplaceTopHoldings("110011", []domain.TopHolding{
		{FundCode: "110011", StockCode: "600519", StockName: "贵州茅台", Percentage: 9.8},
		{FundCode: "110011", StockCode: "000858", StockName: "五粮液", Percentage: 7.2},
	}))
	require.NoError(t, repo.ReplaceTopHoldings("110011", []domain.TopHolding{
		{FundCode: "110011", StockCode: "300750", StockName: "宁德时代", Percentage: 8.1},
	}))

	holdings, err := repo.TopHoldings("110011")
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, "300750", holdings[0].StockCode)
}
