// Package position manages the investment budget, the position gauge and the
// rebalancing strategies that turn (holdings, budget, strategy) into buy/sell
// suggestions.
package position

import (
	"time"

	"github.com/mosaicfin/mosaic/pkg/dynval"
)

// Budget is the single configured budget row.
type Budget struct {
	ID                int64     `json:"id"`
	TotalBudget       float64   `json:"total_budget"`
	TargetPositionMin float64   `json:"target_position_min"`
	TargetPositionMax float64   `json:"target_position_max"`
	ActiveStrategy    string    `json:"active_strategy"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Status is the derived position view served to clients.
type Status struct {
	TotalBudget       float64 `json:"total_budget"`
	TotalValue        float64 `json:"total_value"`
	TotalCost         float64 `json:"total_cost"`
	AvailableCash     float64 `json:"available_cash"`
	PositionRatio     float64 `json:"position_ratio"`
	TargetPositionMin float64 `json:"target_position_min"`
	TargetPositionMax float64 `json:"target_position_max"`
	ActiveStrategy    string  `json:"active_strategy"`
	IsBelowMin        bool    `json:"is_below_min"`
	IsAboveMax        bool    `json:"is_above_max"`
	Gauge             Gauge   `json:"gauge"`
}

// ChangeLogEntry is one immutable budget change record.
type ChangeLogEntry struct {
	ID        int64     `json:"id"`
	OldBudget float64   `json:"old_budget"`
	NewBudget float64   `json:"new_budget"`
	Reason    *string   `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HoldingDetail is one holding valued for strategy input.
type HoldingDetail struct {
	FundCode    string  `json:"fund_code"`
	FundName    string  `json:"fund_name"`
	FundType    string  `json:"fund_type"`
	Platform    string  `json:"platform"`
	Shares      float64 `json:"shares"`
	CostPrice   float64 `json:"cost_price"`
	Cost        float64 `json:"cost"`
	MarketValue float64 `json:"market_value"`
	Weight      float64 `json:"weight"`
}

// Context is the standardised input every strategy evaluates against. Config
// is the strategy's stored configuration document; strategies read it through
// permissive accessors so a partial config merges over their defaults.
type Context struct {
	TotalBudget       float64
	TotalValue        float64
	TotalCost         float64
	AvailableCash     float64
	PositionRatio     float64
	TargetPositionMin float64
	TargetPositionMax float64
	Holdings          []HoldingDetail
	Config            dynval.Value
}

// Suggestion actions.
const (
	ActionBuy  = "buy"
	ActionSell = "sell"
	ActionHold = "hold"
)

// Suggestion is one buy/sell/hold line. Amount is not meaningful for hold.
type Suggestion struct {
	FundCode string  `json:"fund_code"`
	FundName string  `json:"fund_name"`
	Action   string  `json:"action"`
	Amount   float64 `json:"amount"`
	Reason   string  `json:"reason"`
}

// Result is a strategy's evaluation output.
type Result struct {
	StrategyName string                 `json:"strategy_name"`
	Summary      string                 `json:"summary"`
	Suggestions  []Suggestion           `json:"suggestions"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// StrategyInfo describes a registered strategy.
type StrategyInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
}
