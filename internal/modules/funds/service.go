package funds

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mosaicfin/mosaic/internal/clients/fundapi"
	"github.com/mosaicfin/mosaic/internal/domain"
	"github.com/mosaicfin/mosaic/internal/events"
)

// Service refreshes fund data from the external data source and serves the
// stored copies.
type Service struct {
	repo   *Repository
	client *fundapi.Client
	events *events.Manager
	log    zerolog.Logger
}

// NewService creates a new funds service
func NewService(repo *Repository, client *fundapi.Client, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		client: client,
		events: eventManager,
		log:    log.With().Str("service", "funds").Logger(),
	}
}

// Repo exposes the underlying repository for read paths that do not need
// refresh behaviour.
func (s *Service) Repo() *Repository {
	return s.repo
}

// RefreshAvailable reports whether the external data source is configured.
func (s *Service) RefreshAvailable() bool {
	return s.client.Configured()
}

// RefreshFund refreshes one fund: metadata, NAV history since the last stored
// point, allocation breakdown and top holdings. Metadata and NAV failures fail
// the refresh; a source that simply has no allocation or top-holdings data for
// the fund does not.
func (s *Service) RefreshFund(ctx context.Context, fundCode string) error {
	if !s.client.Configured() {
		return fundapi.ErrNotConfigured
	}

	if err := s.refreshFund(ctx, fundCode); err != nil {
		s.events.Emit(events.FundRefreshFailed, "funds", map[string]interface{}{
			"fund_code": fundCode,
			"error":     err.Error(),
		})
		return err
	}

	s.events.Emit(events.FundRefreshed, "funds", map[string]interface{}{
		"fund_code": fundCode,
	})
	return nil
}

func (s *Service) refreshFund(ctx context.Context, fundCode string) error {
	info, err := s.client.GetFundInfo(ctx, fundCode)
	if err != nil {
		return fmt.Errorf("fund info: %w", err)
	}
	if err := s.repo.UpsertFund(domain.Fund{
		FundCode: info.FundCode,
		FundName: info.FundName,
		FundType: info.FundType,
	}); err != nil {
		return err
	}

	since := ""
	if latest, err := s.repo.LatestNav(fundCode); err != nil {
		return err
	} else if latest != nil {
		since = latest.Date
	}

	points, err := s.client.GetNavHistory(ctx, fundCode, since)
	if err != nil {
		return fmt.Errorf("nav history: %w", err)
	}
	for _, p := range points {
		if err := s.repo.UpsertNav(fundCode, p.Date, p.Nav); err != nil {
			return err
		}
	}

	if err := s.refreshAllocation(ctx, fundCode); err != nil {
		return err
	}
	return s.refreshTopHoldings(ctx, fundCode)
}

func (s *Service) refreshAllocation(ctx context.Context, fundCode string) error {
	entries, err := s.client.GetAllocation(ctx, fundCode)
	if errors.Is(err, fundapi.ErrNotFound) {
		s.log.Debug().Str("fund_code", fundCode).Msg("No allocation data at source")
		return nil
	}
	if err != nil {
		return fmt.Errorf("allocation: %w", err)
	}

	rows := make([]domain.FundAllocationRow, 0, len(entries))
	for _, e := range entries {
		row := domain.FundAllocationRow{
			FundCode:   fundCode,
			Dimension:  e.Dimension,
			Category:   e.Category,
			Percentage: e.Percentage,
			Source:     AllocationSourceAPI,
		}
		if e.ReportDate != "" {
			reportDate := e.ReportDate
			row.ReportDate = &reportDate
		}
		rows = append(rows, row)
	}
	return s.repo.ReplaceAllocations(fundCode, AllocationSourceAPI, rows)
}

func (s *Service) refreshTopHoldings(ctx context.Context, fundCode string) error {
	entries, err := s.client.GetTopHoldings(ctx, fundCode)
	if errors.Is(err, fundapi.ErrNotFound) {
		s.log.Debug().Str("fund_code", fundCode).Msg("No top holdings data at source")
		return nil
	}
	if err != nil {
		return fmt.Errorf("top holdings: %w", err)
	}

	holdings := make([]domain.TopHolding, 0, len(entries))
	for _, e := range entries {
		holdings = append(holdings, domain.TopHolding{
			FundCode:   fundCode,
			StockCode:  e.StockCode,
			StockName:  e.StockName,
			Percentage: e.Percentage,
		})
	}
	return s.repo.ReplaceTopHoldings(fundCode, holdings)
}
