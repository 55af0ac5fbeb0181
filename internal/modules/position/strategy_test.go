package position

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaicfin/mosaic/pkg/dynval"
)

func TestSimpleStrategyNoBudget(t *testing.T) {
	result := NewSimpleStrategy().Evaluate(&Context{TotalBudget: 0})
	assert.Equal(t, noBudgetSummary, result.Summary)
	assert.Empty(t, result.Suggestions)
}

func TestSimpleStrategyBelowRange(t *testing.T) {
	result := NewSimpleStrategy().Evaluate(&Context{
		TotalBudget: 100000, TotalValue: 30000, PositionRatio: 30,
		TargetPositionMin: 50, TargetPositionMax: 80,
	})
	assert.Equal(t, ActionBuy, result.Metadata["action"])
	// Gap to the lower bound: 50000 - 30000.
	assert.Equal(t, 20000.0, result.Metadata["gap"])
	assert.Contains(t, result.Summary, "加仓")
}

func TestSimpleStrategyAboveRange(t *testing.T) {
	result := NewSimpleStrategy().Evaluate(&Context{
		TotalBudget: 100000, TotalValue: 90000, PositionRatio: 90,
		TargetPositionMin: 50, TargetPositionMax: 80,
	})
	assert.Equal(t, ActionSell, result.Metadata["action"])
	assert.Equal(t, 10000.0, result.Metadata["excess"])
	assert.Contains(t, result.Summary, "减仓")
}

func TestSimpleStrategyWithinRange(t *testing.T) {
	result := NewSimpleStrategy().Evaluate(&Context{
		TotalBudget: 100000, TotalValue: 60000, PositionRatio: 60,
		TargetPositionMin: 50, TargetPositionMax: 80,
	})
	assert.Equal(t, ActionHold, result.Metadata["action"])
	assert.Contains(t, result.Summary, "无需调仓")
}

func TestClassifyFund(t *testing.T) {
	tests := []struct {
		fundType string
		class    string
	}{
		{"债券型", "bond"},
		{"中长期纯债", "bond"},
		{"黄金ETF", "gold"},
		{"贵金属", "gold"},
		{"股票型", "equity"},
		{"混合型", "equity"},
		{"", "equity"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.class, ClassifyFund(tt.fundType), tt.fundType)
	}
}

func fixedClock(date string) func() time.Time {
	return func() time.Time {
		t, _ := time.Parse("2006-01-02", date)
		return t
	}
}

func rebalanceContext(positionRatio float64) *Context {
	// 100k budget; equity 90k, bond 5k, gold 5k → equity far above target.
	return &Context{
		TotalBudget:       100000,
		TotalValue:        100000,
		PositionRatio:     positionRatio,
		TargetPositionMin: 50,
		TargetPositionMax: 80,
		Holdings: []HoldingDetail{
			{FundCode: "110011", FundType: "股票型", MarketValue: 90000},
			{FundCode: "000961", FundType: "债券型", MarketValue: 5000},
			{FundCode: "518880", FundType: "黄金ETF", MarketValue: 5000},
		},
		Config: dynval.Null(),
	}
}

func TestAssetRebalanceOutsideWindow(t *testing.T) {
	// Aug 10, window = last 5 days of a 31-day month (27th-31st).
	s := NewAssetRebalanceStrategy(fixedClock("2026-08-10"))
	result := s.Evaluate(rebalanceContext(100))

	assert.Equal(t, ActionHold, result.Metadata["action"])
	assert.Equal(t, false, result.Metadata["in_window"])
	assert.Empty(t, result.Suggestions)
	assert.Contains(t, result.Summary, "8月27日-31日")
}

func TestAssetRebalanceInWindowTriggers(t *testing.T) {
	s := NewAssetRebalanceStrategy(fixedClock("2026-08-28"))
	result := s.Evaluate(rebalanceContext(100))

	assert.Equal(t, "rebalance", result.Metadata["action"])
	require.Len(t, result.Suggestions, 3)

	byClass := map[string]Suggestion{}
	for _, sug := range result.Suggestions {
		byClass[sug.FundCode] = sug
	}
	// equity 90% > max 75 → sell to 70% target: 90000 - 70000.
	assert.Equal(t, ActionSell, byClass["equity"].Action)
	assert.Equal(t, 20000.0, byClass["equity"].Amount)
	// bond 5% < min 8 → buy to 10% target.
	assert.Equal(t, ActionBuy, byClass["bond"].Action)
	assert.Equal(t, 5000.0, byClass["bond"].Amount)
	// gold 5% < min 16 → buy to 20% target.
	assert.Equal(t, ActionBuy, byClass["gold"].Action)
	assert.Equal(t, 15000.0, byClass["gold"].Amount)
}

func TestAssetRebalanceBalancedHolds(t *testing.T) {
	s := NewAssetRebalanceStrategy(fixedClock("2026-08-30"))
	ctx := &Context{
		TotalBudget: 100000, TotalValue: 100000, PositionRatio: 100,
		Holdings: []HoldingDetail{
			{FundType: "股票型", MarketValue: 70000},
			{FundType: "债券型", MarketValue: 10000},
			{FundType: "黄金ETF", MarketValue: 20000},
		},
		Config: dynval.Null(),
	}
	result := s.Evaluate(ctx)

	assert.Equal(t, ActionHold, result.Metadata["action"])
	assert.Equal(t, true, result.Metadata["in_window"])
	assert.Contains(t, result.Summary, "无需调仓")
}

func TestAssetRebalanceLowPositionFillsFirst(t *testing.T) {
	s := NewAssetRebalanceStrategy(fixedClock("2026-08-28"))
	ctx := rebalanceContext(60)
	ctx.TotalValue = 60000
	result := s.Evaluate(ctx)

	assert.Equal(t, "fill_position", result.Metadata["action"])
	require.Len(t, result.Suggestions, 1)
	assert.Equal(t, ActionBuy, result.Suggestions[0].Action)
	// Fill to 80% of budget: 80000 - 60000.
	assert.Equal(t, 20000.0, result.Suggestions[0].Amount)
}

func TestAssetRebalanceConfigOverrides(t *testing.T) {
	s := NewAssetRebalanceStrategy(fixedClock("2026-08-10"))
	ctx := rebalanceContext(100)
	config, err := dynval.Parse([]byte(`{
		"execution_window_days": 25,
		"targets": {"equity": {"target": 90, "min": 85, "max": 95}}
	}`))
	require.NoError(t, err)
	ctx.Config = config

	result := s.Evaluate(ctx)
	// Window widened to 25 days covers Aug 10; equity at 90% now inside its
	// overridden band, bond and gold still trigger on defaults.
	assert.Equal(t, true, result.Metadata["in_window"])
	assert.Equal(t, "rebalance", result.Metadata["action"])
	for _, sug := range result.Suggestions {
		assert.NotEqual(t, "equity", sug.FundCode)
	}
}

func TestAssetRebalanceNoBudget(t *testing.T) {
	s := NewAssetRebalanceStrategy(nil)
	result := s.Evaluate(&Context{Config: dynval.Null()})
	assert.Equal(t, noBudgetSummary, result.Summary)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(NewSimpleStrategy(), NewAssetRebalanceStrategy(nil))

	assert.NotNil(t, reg.Get("simple"))
	assert.NotNil(t, reg.Get("asset_rebalance"))
	assert.Nil(t, reg.Get("momentum"))

	list := reg.List()
	require.Len(t, list, 2)
	assert.Equal(t, "asset_rebalance", list[0].Name())
	assert.Equal(t, "simple", list[1].Name())
}
