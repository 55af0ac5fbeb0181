package domain

import "time"

// Fund represents a fund known to the system. NAV and allocation data hang off
// it in separate tables keyed by fund code.
type Fund struct {
	FundCode  string    `json:"fund_code"`
	FundName  string    `json:"fund_name"`
	FundType  string    `json:"fund_type"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NavRecord is one day's net asset value for a fund.
type NavRecord struct {
	FundCode string  `json:"fund_code"`
	Date     string  `json:"date"` // YYYY-MM-DD
	Nav      float64 `json:"nav"`
}

// Holding represents one fund position on one platform.
type Holding struct {
	ID        int64     `json:"id"`
	FundCode  string    `json:"fund_code"`
	Platform  string    `json:"platform"`
	Shares    float64   `json:"shares"`
	CostPrice float64   `json:"cost_price"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Cost returns the invested amount for this holding.
func (h Holding) Cost() float64 {
	return h.Shares * h.CostPrice
}

// LiquidAsset is cash or a cash-like instrument (the "liquid" bucket).
type LiquidAsset struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Platform  string    `json:"platform"`
	Amount    float64   `json:"amount"`
	Note      string    `json:"note"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StableAsset is a term deposit or similar fixed-income instrument (the
// "stable" bucket).
type StableAsset struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Platform   string    `json:"platform"`
	Amount     float64   `json:"amount"`
	AnnualRate float64   `json:"annual_rate"`
	StartDate  *string   `json:"start_date,omitempty"`
	EndDate    *string   `json:"end_date,omitempty"`
	Note       string    `json:"note"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Insurance policy statuses. Only active policies count toward premiums and
// renewal reminders.
const (
	PolicyStatusActive = "active"
	PolicyStatusLapsed = "lapsed"
)

// InsurancePolicy is one policy in the "insurance" bucket. The bucket total is
// annual premium spend, not coverage.
type InsurancePolicy struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Insurer         string    `json:"insurer"`
	PolicyType      string    `json:"policy_type"`
	Insured         string    `json:"insured"`
	AnnualPremium   float64   `json:"annual_premium"`
	CoverageAmount  float64   `json:"coverage_amount"`
	Status          string    `json:"status"`
	NextPaymentDate *string   `json:"next_payment_date,omitempty"`
	Note            string    `json:"note"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// FundAllocationRow is one category percentage of a fund along a breakdown
// dimension (asset_class, geography, sector).
type FundAllocationRow struct {
	FundCode   string  `json:"fund_code"`
	Dimension  string  `json:"dimension"`
	Category   string  `json:"category"`
	Percentage float64 `json:"percentage"`
	Source     string  `json:"source"`
	ReportDate *string `json:"report_date,omitempty"`
}

// TopHolding is one of a fund's reported top stock positions.
type TopHolding struct {
	FundCode   string  `json:"fund_code"`
	StockCode  string  `json:"stock_code"`
	StockName  string  `json:"stock_name"`
	Percentage float64 `json:"percentage"`
}
