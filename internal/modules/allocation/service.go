// Package allocation computes the portfolio's look-through allocation: each
// holding's market value spread across the categories its fund reports, with
// explicit coverage accounting for funds that have no breakdown data yet.
package allocation

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mosaicfin/mosaic/internal/modules/funds"
	"github.com/mosaicfin/mosaic/internal/modules/household"
)

// Known breakdown dimensions.
const (
	DimensionAssetClass = "asset_class"
	DimensionGeography  = "geography"
	DimensionSector     = "sector"
)

// ValidDimension reports whether dim is a known breakdown dimension.
func ValidDimension(dim string) bool {
	return dim == DimensionAssetClass || dim == DimensionGeography || dim == DimensionSector
}

// FundContribution is one fund's share of a category's value.
type FundContribution struct {
	FundCode string  `json:"fund_code"`
	FundName string  `json:"fund_name"`
	Value    float64 `json:"value"`
}

// Category is one aggregated slice of the portfolio along a dimension.
type Category struct {
	Name    string             `json:"name"`
	Value   float64            `json:"value"`
	Percent float64            `json:"percent"` // share of covered value
	Funds   []FundContribution `json:"funds"`
}

// Coverage states how much of the fund portfolio the breakdown actually
// explains. Aggregation never pretends uncovered value is allocated.
type Coverage struct {
	TotalFunds     int     `json:"total_funds"`
	CoveredFunds   int     `json:"covered_funds"`
	TotalValue     float64 `json:"total_value"`
	CoveredValue   float64 `json:"covered_value"`
	CoveredPercent float64 `json:"covered_percent"`
}

// Breakdown is the aggregation result for one dimension.
type Breakdown struct {
	Dimension  string     `json:"dimension"`
	Categories []Category `json:"categories"`
	Coverage   Coverage   `json:"coverage"`
}

// Service aggregates fund allocations into portfolio breakdowns
type Service struct {
	household *household.Repository
	funds     *funds.Repository
	log       zerolog.Logger
}

// NewService creates a new allocation service
func NewService(householdRepo *household.Repository, fundsRepo *funds.Repository, log zerolog.Logger) *Service {
	return &Service{
		household: householdRepo,
		funds:     fundsRepo,
		log:       log.With().Str("service", "allocation").Logger(),
	}
}

// Aggregate computes the value-weighted breakdown along one dimension.
//
// Each fund's market value (latest NAV, cost when no NAV is stored) is split
// across its reported categories; a fund with no rows for the dimension
// contributes to TotalValue but not to any category. Categories are sorted by
// value descending, name ascending on ties.
func (s *Service) Aggregate(dimension string) (*Breakdown, error) {
	if !ValidDimension(dimension) {
		return nil, fmt.Errorf("unknown dimension %q", dimension)
	}

	holdings, err := s.household.ListHoldings()
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}

	// Market value per fund, all platforms combined.
	valueByFund := make(map[string]decimal.Decimal)
	for _, h := range holdings {
		value, err := s.marketValue(h)
		if err != nil {
			return nil, err
		}
		valueByFund[h.FundCode] = valueByFund[h.FundCode].Add(value)
	}

	totalValue := decimal.Zero
	coveredValue := decimal.Zero
	coveredFunds := 0
	byCategory := make(map[string]decimal.Decimal)
	fundsByCategory := make(map[string][]FundContribution)

	codes := lo.Keys(valueByFund)
	sort.Strings(codes)
	for _, code := range codes {
		fundValue := valueByFund[code]
		totalValue = totalValue.Add(fundValue)

		rows, err := s.funds.AllocationsForDimension(code, dimension)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			continue
		}

		name := s.funds.FundName(code)

		coveredFunds++
		coveredValue = coveredValue.Add(fundValue)
		for _, row := range rows {
			contribution := fundValue.Mul(decimal.NewFromFloat(row.Percentage)).Div(decimal.NewFromInt(100))
			byCategory[row.Category] = byCategory[row.Category].Add(contribution)
			fundsByCategory[row.Category] = append(fundsByCategory[row.Category], FundContribution{
				FundCode: code,
				FundName: name,
				Value:    round2(contribution),
			})
		}
	}

	categories := make([]Category, 0, len(byCategory))
	for name, value := range byCategory {
		pct := 0.0
		if !coveredValue.IsZero() {
			f, _ := value.Div(coveredValue).Mul(decimal.NewFromInt(100)).Round(2).Float64()
			pct = f
		}
		contributors := fundsByCategory[name]
		sort.Slice(contributors, func(i, j int) bool {
			if contributors[i].Value != contributors[j].Value {
				return contributors[i].Value > contributors[j].Value
			}
			return contributors[i].FundCode < contributors[j].FundCode
		})
		categories = append(categories, Category{
			Name:    name,
			Value:   round2(value),
			Percent: pct,
			Funds:   contributors,
		})
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].Value != categories[j].Value {
			return categories[i].Value > categories[j].Value
		}
		return categories[i].Name < categories[j].Name
	})

	coveredPercent := 0.0
	if !totalValue.IsZero() {
		f, _ := coveredValue.Div(totalValue).Mul(decimal.NewFromInt(100)).Round(1).Float64()
		coveredPercent = f
	}

	return &Breakdown{
		Dimension:  dimension,
		Categories: categories,
		Coverage: Coverage{
			TotalFunds:     len(valueByFund),
			CoveredFunds:   coveredFunds,
			TotalValue:     round2(totalValue),
			CoveredValue:   round2(coveredValue),
			CoveredPercent: coveredPercent,
		},
	}, nil
}

func (s *Service) marketValue(h household.Holding) (decimal.Decimal, error) {
	shares := decimal.NewFromFloat(h.Shares)
	latest, err := s.funds.LatestNav(h.FundCode)
	if err != nil {
		return decimal.Zero, err
	}
	if latest == nil {
		return shares.Mul(decimal.NewFromFloat(h.CostPrice)), nil
	}
	return shares.Mul(decimal.NewFromFloat(latest.Nav)), nil
}

func round2(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
