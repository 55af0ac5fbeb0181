package portfolio

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mosaicfin/mosaic/internal/domain"
	"github.com/mosaicfin/mosaic/internal/events"
	"github.com/mosaicfin/mosaic/internal/modules/funds"
	"github.com/mosaicfin/mosaic/internal/modules/household"
	"github.com/mosaicfin/mosaic/pkg/formulas"
)

// FundPosition is one holding valued at its latest stored NAV. A holding whose
// fund has no NAV yet is valued at cost so totals stay meaningful while data
// is still being refreshed.
type FundPosition struct {
	FundCode    string  `json:"fund_code"`
	FundName    string  `json:"fund_name"`
	Platform    string  `json:"platform"`
	Shares      float64 `json:"shares"`
	Nav         float64 `json:"nav"`
	NavDate     string  `json:"nav_date,omitempty"`
	MarketValue float64 `json:"market_value"`
	Cost        float64 `json:"cost"`
	Profit      float64 `json:"profit"`
	ProfitRate  float64 `json:"profit_rate"`
}

// Summary is the whole-household view: fund positions plus the liquid, stable
// and insurance buckets.
type Summary struct {
	TotalAssets            float64        `json:"total_assets"`
	FundMarketValue        float64        `json:"fund_market_value"`
	FundCost               float64        `json:"fund_cost"`
	FundProfit             float64        `json:"fund_profit"`
	FundProfitRate         float64        `json:"fund_profit_rate"`
	LiquidTotal            float64        `json:"liquid_total"`
	StableTotal            float64        `json:"stable_total"`
	InsuranceAnnualPremium float64        `json:"insurance_annual_premium"`
	Positions              []FundPosition `json:"positions"`
	GeneratedAt            time.Time      `json:"generated_at"`
}

// PlatformGroup is the summary of all positions held on one platform.
type PlatformGroup struct {
	Platform    string         `json:"platform"`
	MarketValue float64        `json:"market_value"`
	Cost        float64        `json:"cost"`
	Profit      float64        `json:"profit"`
	ProfitRate  float64        `json:"profit_rate"`
	Positions   []FundPosition `json:"positions"`
}

// TrendPoint is one snapshot rendered for the trend chart.
type TrendPoint struct {
	Date       string  `json:"date"`
	TotalValue float64 `json:"total_value"`
	TotalCost  float64 `json:"total_cost"`
	Profit     float64 `json:"profit"`
	ProfitRate float64 `json:"profit_rate"`
}

// TrendStats are the risk/return statistics over the requested window. Nil
// fields mean the window is too short for that statistic.
type TrendStats struct {
	StartDate            string   `json:"start_date"`
	EndDate              string   `json:"end_date"`
	TotalReturnPct       float64  `json:"total_return_pct"`
	AnnualizedVolatility float64  `json:"annualized_volatility"`
	MaxDrawdown          *float64 `json:"max_drawdown"`
	SharpeRatio          *float64 `json:"sharpe_ratio"`
}

// Trend is the snapshot series plus its statistics.
type Trend struct {
	Points []TrendPoint `json:"points"`
	Stats  *TrendStats  `json:"stats,omitempty"`
}

// Service computes portfolio aggregates
type Service struct {
	household *household.Repository
	funds     *funds.Repository
	snapshots *SnapshotRepository
	events    *events.Manager
	log       zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(householdRepo *household.Repository, fundsRepo *funds.Repository, snapshots *SnapshotRepository, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		household: householdRepo,
		funds:     fundsRepo,
		snapshots: snapshots,
		events:    eventManager,
		log:       log.With().Str("service", "portfolio").Logger(),
	}
}

// Summary computes the current whole-household summary. Money is accumulated
// in decimals and rounded to cents once at the end, so many small holdings
// never drift the totals.
func (s *Service) Summary() (*Summary, error) {
	positions, err := s.positions()
	if err != nil {
		return nil, err
	}

	fundValue := decimal.Zero
	fundCost := decimal.Zero
	for _, p := range positions {
		fundValue = fundValue.Add(decimal.NewFromFloat(p.MarketValue))
		fundCost = fundCost.Add(decimal.NewFromFloat(p.Cost))
	}

	liquid, err := s.household.ListLiquidAssets()
	if err != nil {
		return nil, err
	}
	liquidTotal := decimal.Zero
	for _, a := range liquid {
		liquidTotal = liquidTotal.Add(decimal.NewFromFloat(a.Amount))
	}

	stable, err := s.household.ListStableAssets()
	if err != nil {
		return nil, err
	}
	stableTotal := decimal.Zero
	for _, a := range stable {
		stableTotal = stableTotal.Add(decimal.NewFromFloat(a.Amount))
	}

	policies, err := s.household.ListInsurancePolicies()
	if err != nil {
		return nil, err
	}
	premiums := decimal.Zero
	for _, p := range policies {
		if p.Status != domain.PolicyStatusActive {
			continue
		}
		premiums = premiums.Add(decimal.NewFromFloat(p.AnnualPremium))
	}

	profit := fundValue.Sub(fundCost)
	total := fundValue.Add(liquidTotal).Add(stableTotal)

	return &Summary{
		TotalAssets:            round2(total),
		FundMarketValue:        round2(fundValue),
		FundCost:               round2(fundCost),
		FundProfit:             round2(profit),
		FundProfitRate:         rate(profit, fundCost),
		LiquidTotal:            round2(liquidTotal),
		StableTotal:            round2(stableTotal),
		InsuranceAnnualPremium: round2(premiums),
		Positions:              positions,
		GeneratedAt:            time.Now(),
	}, nil
}

// ByPlatform groups fund positions by platform, sorted by market value
// descending.
func (s *Service) ByPlatform() ([]PlatformGroup, error) {
	positions, err := s.positions()
	if err != nil {
		return nil, err
	}

	byPlatform := make(map[string][]FundPosition)
	for _, p := range positions {
		byPlatform[p.Platform] = append(byPlatform[p.Platform], p)
	}

	groups := make([]PlatformGroup, 0, len(byPlatform))
	for platform, members := range byPlatform {
		value := decimal.Zero
		cost := decimal.Zero
		for _, p := range members {
			value = value.Add(decimal.NewFromFloat(p.MarketValue))
			cost = cost.Add(decimal.NewFromFloat(p.Cost))
		}
		profit := value.Sub(cost)
		groups = append(groups, PlatformGroup{
			Platform:    platform,
			MarketValue: round2(value),
			Cost:        round2(cost),
			Profit:      round2(profit),
			ProfitRate:  rate(profit, cost),
			Positions:   members,
		})
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].MarketValue != groups[j].MarketValue {
			return groups[i].MarketValue > groups[j].MarketValue
		}
		return groups[i].Platform < groups[j].Platform
	})
	return groups, nil
}

// Trend returns the snapshot series between start and end plus risk/return
// statistics. Stats are omitted when fewer than two snapshots fall in the
// window.
func (s *Service) Trend(start, end string) (*Trend, error) {
	snapshots, err := s.snapshots.Range(start, end)
	if err != nil {
		return nil, err
	}

	points := make([]TrendPoint, 0, len(snapshots))
	values := make([]float64, 0, len(snapshots))
	for _, snap := range snapshots {
		profit := decimal.NewFromFloat(snap.TotalValue).Sub(decimal.NewFromFloat(snap.TotalCost))
		points = append(points, TrendPoint{
			Date:       snap.Date,
			TotalValue: snap.TotalValue,
			TotalCost:  snap.TotalCost,
			Profit:     round2(profit),
			ProfitRate: rate(profit, decimal.NewFromFloat(snap.TotalCost)),
		})
		values = append(values, snap.TotalValue)
	}

	trend := &Trend{Points: points}
	if len(values) >= 2 {
		returns := formulas.CalculateReturns(values)
		totalReturn := 0.0
		if values[0] != 0 {
			totalReturn = (values[len(values)-1] - values[0]) / values[0] * 100
		}
		trend.Stats = &TrendStats{
			StartDate:            points[0].Date,
			EndDate:              points[len(points)-1].Date,
			TotalReturnPct:       totalReturn,
			AnnualizedVolatility: formulas.AnnualizedVolatility(returns),
			MaxDrawdown:          formulas.CalculateMaxDrawdown(values),
			SharpeRatio:          formulas.CalculateSharpeRatio(returns, 0, 252),
		}
	}
	return trend, nil
}

// WriteDailySnapshot records today's total fund value and cost. Called by the
// scheduler after the evening NAV refresh; safe to call more than once a day.
func (s *Service) WriteDailySnapshot() error {
	positions, err := s.positions()
	if err != nil {
		return err
	}

	value := decimal.Zero
	cost := decimal.Zero
	for _, p := range positions {
		value = value.Add(decimal.NewFromFloat(p.MarketValue))
		cost = cost.Add(decimal.NewFromFloat(p.Cost))
	}

	snap := Snapshot{
		Date:       time.Now().Format("2006-01-02"),
		TotalValue: round2(value),
		TotalCost:  round2(cost),
	}
	if err := s.snapshots.Upsert(snap); err != nil {
		return err
	}

	s.events.Emit(events.SnapshotWritten, "portfolio", map[string]interface{}{
		"date":        snap.Date,
		"total_value": snap.TotalValue,
	})
	return nil
}

func (s *Service) positions() ([]FundPosition, error) {
	holdings, err := s.household.ListHoldings()
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}

	positions := make([]FundPosition, 0, len(holdings))
	for _, h := range holdings {
		shares := decimal.NewFromFloat(h.Shares)
		cost := shares.Mul(decimal.NewFromFloat(h.CostPrice))

		pos := FundPosition{
			FundCode: h.FundCode,
			FundName: s.funds.FundName(h.FundCode),
			Platform: h.Platform,
			Shares:   h.Shares,
			Cost:     round2(cost),
		}

		latest, err := s.funds.LatestNav(h.FundCode)
		if err != nil {
			return nil, err
		}
		if latest != nil {
			pos.Nav = latest.Nav
			pos.NavDate = latest.Date
			pos.MarketValue = round2(shares.Mul(decimal.NewFromFloat(latest.Nav)))
		} else {
			// No NAV yet: value at cost.
			pos.Nav = h.CostPrice
			pos.MarketValue = pos.Cost
		}

		profit := decimal.NewFromFloat(pos.MarketValue).Sub(cost)
		pos.Profit = round2(profit)
		pos.ProfitRate = rate(profit, cost)
		positions = append(positions, pos)
	}
	return positions, nil
}

func round2(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

// rate returns profit/cost as a percentage, 0 when cost is zero.
func rate(profit, cost decimal.Decimal) float64 {
	if cost.IsZero() {
		return 0
	}
	f, _ := profit.Div(cost).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	return f
}
