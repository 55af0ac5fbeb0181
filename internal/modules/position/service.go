package position

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/mosaicfin/mosaic/internal/events"
	"github.com/mosaicfin/mosaic/internal/modules/funds"
	"github.com/mosaicfin/mosaic/internal/modules/household"
	"github.com/mosaicfin/mosaic/pkg/dynval"
)

// ErrUnknownStrategy means the named strategy is not registered.
var ErrUnknownStrategy = errors.New("unknown strategy")

// ErrSameStrategy means a switch targeted the already-active strategy.
var ErrSameStrategy = errors.New("strategy already active")

// ErrInvalidRange means a budget update would violate 0 <= min <= max <= 100.
var ErrInvalidRange = errors.New("invalid target position range")

// BudgetUpdate is the mutable subset of the budget. Nil fields keep their
// current value.
type BudgetUpdate struct {
	TotalBudget       *float64 `json:"total_budget,omitempty"`
	TargetPositionMin *float64 `json:"target_position_min,omitempty"`
	TargetPositionMax *float64 `json:"target_position_max,omitempty"`
	Reason            *string  `json:"reason,omitempty"`
}

// Service manages the position budget and strategy evaluation
type Service struct {
	repo      *Repository
	household *household.Repository
	funds     *funds.Repository
	registry  *Registry
	events    *events.Manager
	log       zerolog.Logger

	// suggestionEpoch increments on every budget update and strategy switch.
	// A suggestion computed under an older epoch is stale and must be
	// refetched, never shown.
	suggestionEpoch atomic.Int64
}

// NewService creates a new position service
func NewService(repo *Repository, householdRepo *household.Repository, fundsRepo *funds.Repository, registry *Registry, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		household: householdRepo,
		funds:     fundsRepo,
		registry:  registry,
		events:    eventManager,
		log:       log.With().Str("service", "position").Logger(),
	}
}

// SuggestionEpoch returns the current epoch. Clients echo it back to detect
// stale suggestion responses.
func (s *Service) SuggestionEpoch() int64 {
	return s.suggestionEpoch.Load()
}

// Status returns the derived position view.
func (s *Service) Status() (*Status, error) {
	budget, err := s.repo.GetOrCreateBudget()
	if err != nil {
		return nil, err
	}
	ctx, err := s.buildContext(budget)
	if err != nil {
		return nil, err
	}
	return statusFrom(budget, ctx), nil
}

// UpdateBudget applies a partial budget update. The changelog records amount
// changes; any successful update invalidates outstanding suggestions.
func (s *Service) UpdateBudget(update BudgetUpdate) (*Status, error) {
	budget, err := s.repo.GetOrCreateBudget()
	if err != nil {
		return nil, err
	}
	oldBudget := budget.TotalBudget

	if update.TotalBudget != nil {
		if *update.TotalBudget < 0 {
			return nil, fmt.Errorf("%w: budget must not be negative", ErrInvalidRange)
		}
		budget.TotalBudget = *update.TotalBudget
	}
	if update.TargetPositionMin != nil {
		budget.TargetPositionMin = *update.TargetPositionMin
	}
	if update.TargetPositionMax != nil {
		budget.TargetPositionMax = *update.TargetPositionMax
	}
	if budget.TargetPositionMin < 0 || budget.TargetPositionMax > 100 ||
		budget.TargetPositionMin > budget.TargetPositionMax {
		return nil, ErrInvalidRange
	}

	if err := s.repo.UpdateBudget(budget, oldBudget, update.Reason); err != nil {
		return nil, err
	}
	s.suggestionEpoch.Add(1)

	s.events.Emit(events.BudgetUpdated, "position", map[string]interface{}{
		"old_budget": oldBudget,
		"new_budget": budget.TotalBudget,
	})

	ctx, err := s.buildContext(budget)
	if err != nil {
		return nil, err
	}
	return statusFrom(budget, ctx), nil
}

// Changelog returns the budget change history, newest first.
func (s *Service) Changelog() ([]ChangeLogEntry, error) {
	return s.repo.Changelog()
}

// Strategies lists the registered strategies.
func (s *Service) Strategies() []StrategyInfo {
	list := s.registry.List()
	infos := make([]StrategyInfo, 0, len(list))
	for _, strategy := range list {
		infos = append(infos, StrategyInfo{
			Name:        strategy.Name(),
			DisplayName: strategy.DisplayName(),
			Description: strategy.Description(),
		})
	}
	return infos
}

// SwitchStrategy activates a different strategy. Switching to the active
// strategy is rejected; an unknown name is rejected; a failed switch leaves
// the previous strategy active. A successful switch invalidates outstanding
// suggestions exactly once.
func (s *Service) SwitchStrategy(name string) (*Status, error) {
	if s.registry.Get(name) == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, name)
	}

	budget, err := s.repo.GetOrCreateBudget()
	if err != nil {
		return nil, err
	}
	if budget.ActiveStrategy == name {
		return nil, fmt.Errorf("%w: %s", ErrSameStrategy, name)
	}

	previous := budget.ActiveStrategy
	budget.ActiveStrategy = name
	if err := s.repo.UpdateBudget(budget, budget.TotalBudget, nil); err != nil {
		return nil, err
	}
	s.suggestionEpoch.Add(1)

	s.events.Emit(events.StrategySwitched, "position", map[string]interface{}{
		"from": previous,
		"to":   name,
	})

	ctx, err := s.buildContext(budget)
	if err != nil {
		return nil, err
	}
	return statusFrom(budget, ctx), nil
}

// StrategyConfig returns a strategy's stored configuration.
func (s *Service) StrategyConfig(name string) (dynval.Value, error) {
	if s.registry.Get(name) == nil {
		return dynval.Null(), fmt.Errorf("%w: %s", ErrUnknownStrategy, name)
	}
	raw, err := s.repo.StrategyConfig(name)
	if err != nil {
		return dynval.Null(), err
	}
	return dynval.Parse([]byte(raw))
}

// UpdateStrategyConfig stores a strategy's configuration and invalidates
// outstanding suggestions.
func (s *Service) UpdateStrategyConfig(name string, configJSON []byte) error {
	if s.registry.Get(name) == nil {
		return fmt.Errorf("%w: %s", ErrUnknownStrategy, name)
	}
	if _, err := dynval.Parse(configJSON); err != nil {
		return fmt.Errorf("invalid strategy config: %w", err)
	}
	if err := s.repo.SetStrategyConfig(name, string(configJSON)); err != nil {
		return err
	}
	s.suggestionEpoch.Add(1)
	return nil
}

// Suggestion evaluates the active strategy against current holdings, budget
// and config. The returned epoch identifies the state the suggestion was
// computed under.
func (s *Service) Suggestion() (*Result, int64, error) {
	budget, err := s.repo.GetOrCreateBudget()
	if err != nil {
		return nil, 0, err
	}

	strategy := s.registry.Get(budget.ActiveStrategy)
	if strategy == nil {
		return nil, 0, fmt.Errorf("%w: %s", ErrUnknownStrategy, budget.ActiveStrategy)
	}

	epoch := s.suggestionEpoch.Load()
	ctx, err := s.buildContext(budget)
	if err != nil {
		return nil, 0, err
	}
	return strategy.Evaluate(ctx), epoch, nil
}

// buildContext values all holdings at their latest NAV. A holding with no
// stored NAV contributes cost but zero market value; an unrefreshed fund
// should read as missing exposure, not fake exposure.
func (s *Service) buildContext(budget *Budget) (*Context, error) {
	holdings, err := s.household.ListHoldings()
	if err != nil {
		return nil, err
	}

	details := make([]HoldingDetail, 0, len(holdings))
	totalValue := 0.0
	totalCost := 0.0
	for _, h := range holdings {
		detail := HoldingDetail{
			FundCode:  h.FundCode,
			Platform:  h.Platform,
			Shares:    h.Shares,
			CostPrice: h.CostPrice,
			Cost:      round2f(h.Cost()),
		}

		if fund, err := s.funds.GetFund(h.FundCode); err != nil {
			return nil, err
		} else if fund != nil {
			detail.FundName = fund.FundName
			detail.FundType = fund.FundType
		}

		latest, err := s.funds.LatestNav(h.FundCode)
		if err != nil {
			return nil, err
		}
		if latest != nil {
			detail.MarketValue = round2f(h.Shares * latest.Nav)
		}

		totalCost += detail.Cost
		totalValue += detail.MarketValue
		details = append(details, detail)
	}

	for i := range details {
		if totalValue > 0 {
			details[i].Weight = round2f(details[i].MarketValue / totalValue * 100)
		}
	}

	ratio := 0.0
	if budget.TotalBudget > 0 {
		ratio = totalValue / budget.TotalBudget * 100
	}
	availableCash := budget.TotalBudget - totalValue
	if availableCash < 0 {
		availableCash = 0
	}

	rawConfig, err := s.repo.StrategyConfig(budget.ActiveStrategy)
	if err != nil {
		return nil, err
	}
	config, err := dynval.Parse([]byte(rawConfig))
	if err != nil {
		config = dynval.Null()
	}

	return &Context{
		TotalBudget:       budget.TotalBudget,
		TotalValue:        round2f(totalValue),
		TotalCost:         round2f(totalCost),
		AvailableCash:     round2f(availableCash),
		PositionRatio:     round2f(ratio),
		TargetPositionMin: budget.TargetPositionMin,
		TargetPositionMax: budget.TargetPositionMax,
		Holdings:          details,
		Config:            config,
	}, nil
}

func statusFrom(budget *Budget, ctx *Context) *Status {
	return &Status{
		TotalBudget:       budget.TotalBudget,
		TotalValue:        ctx.TotalValue,
		TotalCost:         ctx.TotalCost,
		AvailableCash:     ctx.AvailableCash,
		PositionRatio:     ctx.PositionRatio,
		TargetPositionMin: budget.TargetPositionMin,
		TargetPositionMax: budget.TargetPositionMax,
		ActiveStrategy:    budget.ActiveStrategy,
		IsBelowMin:        ctx.PositionRatio < budget.TargetPositionMin,
		IsAboveMax:        ctx.PositionRatio > budget.TargetPositionMax,
		Gauge:             BuildGauge(ctx.PositionRatio, budget.TargetPositionMin, budget.TargetPositionMax),
	}
}
