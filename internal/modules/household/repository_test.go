package household

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaicfin/mosaic/internal/database"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })
	return NewRepository(db.Conn(), zerolog.Nop())
}

func TestHoldingCRUD(t *testing.T) {
	repo := newTestRepo(t)

	created, err := repo.CreateHolding(Holding{
		FundCode: "110011", Platform: "支付宝", Shares: 1000, CostPrice: 1.2,
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	created.Shares = 1500
	require.NoError(t, repo.UpdateHolding(created))

	holdings, err := repo.ListHoldings()
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, 1500.0, holdings[0].Shares)
	assert.Equal(t, 1800.0, holdings[0].Cost())

	require.NoError(t, repo.DeleteHolding(created.ID))
	holdings, err = repo.ListHoldings()
	require.NoError(t, err)
	assert.Empty(t, holdings)
}

func TestUpdateMissingHoldingReturnsNoRows(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.UpdateHolding(Holding{ID: 999, FundCode: "110011"})
	assert.ErrorIs(t, err, sql.ErrNoRows)

	assert.ErrorIs(t, repo.DeleteHolding(999), sql.ErrNoRows)
}

func TestDistinctFundCodes(t *testing.T) {
	repo := newTestRepo(t)

	// Same fund on two platforms counts once.
	for _, h := range []Holding{
		{FundCode: "110011", Platform: "支付宝", Shares: 100, CostPrice: 1},
		{FundCode: "110011", Platform: "天天基金", Shares: 200, CostPrice: 1},
		{FundCode: "007339", Platform: "支付宝", Shares: 300, CostPrice: 1},
	} {
		_, err := repo.CreateHolding(h)
		require.NoError(t, err)
	}

	codes, err := repo.DistinctFundCodes()
	require.NoError(t, err)
	assert.Equal(t, []string{"007339", "110011"}, codes)
}

func TestLiquidAssetCRUD(t *testing.T) {
	repo := newTestRepo(t)

	created, err := repo.CreateLiquidAsset(LiquidAsset{
		Name: "余额宝", Platform: "支付宝", Amount: 20000, Note: "日常备用金",
	})
	require.NoError(t, err)

	created.Amount = 25000
	require.NoError(t, repo.UpdateLiquidAsset(created))

	assets, err := repo.ListLiquidAssets()
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, 25000.0, assets[0].Amount)
	assert.Equal(t, "余额宝", assets[0].Name)

	require.NoError(t, repo.DeleteLiquidAsset(created.ID))
}

func TestStableAssetKeepsTermDates(t *testing.T) {
	repo := newTestRepo(t)

	start, end := "2026-01-01", "2027-01-01"
	_, err := repo.CreateStableAsset(StableAsset{
		Name: "一年定期", Platform: "工商银行", Amount: 50000,
		AnnualRate: 2.1, StartDate: &start, EndDate: &end,
	})
	require.NoError(t, err)

	assets, err := repo.ListStableAssets()
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, 2.1, assets[0].AnnualRate)
	require.NotNil(t, assets[0].StartDate)
	assert.Equal(t, start, *assets[0].StartDate)
	require.NotNil(t, assets[0].EndDate)
	assert.Equal(t, end, *assets[0].EndDate)
}

func TestInsurancePolicyCRUD(t *testing.T) {
	repo := newTestRepo(t)

	created, err := repo.CreateInsurancePolicy(InsurancePolicy{
		Name: "重疾险", Insurer: "平安", PolicyType: "重疾",
		Insured: "本人", AnnualPremium: 6000, CoverageAmount: 500000,
	})
	require.NoError(t, err)

	created.AnnualPremium = 6500
	require.NoError(t, repo.UpdateInsurancePolicy(created))

	policies, err := repo.ListInsurancePolicies()
	require.NoError(t, err)
	require.Len(t, policies, 1)
	assert.Equal(t, 6500.0, policies[0].AnnualPremium)
	assert.Equal(t, 500000.0, policies[0].CoverageAmount)
	// Status defaults to active when the caller leaves it empty.
	assert.Equal(t, "active", policies[0].Status)
}

func TestInsurancePolicyRenewalFields(t *testing.T) {
	repo := newTestRepo(t)

	renewal := "2026-09-15"
	created, err := repo.CreateInsurancePolicy(InsurancePolicy{
		Name: "医疗险", AnnualPremium: 800, NextPaymentDate: &renewal,
	})
	require.NoError(t, err)

	created.Status = "lapsed"
	require.NoError(t, repo.UpdateInsurancePolicy(created))

	policies, err := repo.ListInsurancePolicies()
	require.NoError(t, err)
	require.Len(t, policies, 1)
	assert.Equal(t, "lapsed", policies[0].Status)
	require.NotNil(t, policies[0].NextPaymentDate)
	assert.Equal(t, renewal, *policies[0].NextPaymentDate)
}
