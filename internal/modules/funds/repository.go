// Package funds manages fund reference data: metadata, NAV history,
// allocation breakdowns and top holdings, plus the refresh pipeline that
// keeps them current from the external data source.
package funds

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mosaicfin/mosaic/internal/domain"
)

// Repository handles fund data database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new funds repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "funds").Logger(),
	}
}

// GetFund returns a fund by code, or nil when unknown.
func (r *Repository) GetFund(fundCode string) (*domain.Fund, error) {
	var f domain.Fund
	var updated string
	err := r.db.QueryRow(`
		SELECT fund_code, fund_name, fund_type, updated_at FROM funds WHERE fund_code = ?
	`, fundCode).Scan(&f.FundCode, &f.FundName, &f.FundType, &updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fund %s: %w", fundCode, err)
	}
	if t, perr := time.Parse("2006-01-02 15:04:05", updated); perr == nil {
		f.UpdatedAt = t
	}
	return &f, nil
}

// UpsertFund inserts or updates fund metadata.
func (r *Repository) UpsertFund(f domain.Fund) error {
	_, err := r.db.Exec(`
		INSERT INTO funds (fund_code, fund_name, fund_type, updated_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT(fund_code) DO UPDATE SET
			fund_name = excluded.fund_name,
			fund_type = excluded.fund_type,
			updated_at = excluded.updated_at
	`, f.FundCode, f.FundName, f.FundType)
	if err != nil {
		return fmt.Errorf("failed to upsert fund %s: %w", f.FundCode, err)
	}
	return nil
}

// FundName returns the display name for a code, falling back to the code
// itself when the fund is unknown.
func (r *Repository) FundName(fundCode string) string {
	fund, err := r.GetFund(fundCode)
	if err != nil || fund == nil || fund.FundName == "" {
		return fundCode
	}
	return fund.FundName
}

// LatestNav returns the most recent NAV record for a fund.
func (r *Repository) LatestNav(fundCode string) (*domain.NavRecord, error) {
	var rec domain.NavRecord
	err := r.db.QueryRow(`
		SELECT fund_code, date, nav FROM fund_nav_history
		WHERE fund_code = ? ORDER BY date DESC LIMIT 1
	`, fundCode).Scan(&rec.FundCode, &rec.Date, &rec.Nav)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest nav for %s: %w", fundCode, err)
	}
	return &rec, nil
}

// NavHistory returns NAV records for a fund, optionally bounded by start/end
// dates (inclusive, YYYY-MM-DD), in ascending date order.
func (r *Repository) NavHistory(fundCode, start, end string) ([]domain.NavRecord, error) {
	query := `SELECT fund_code, date, nav FROM fund_nav_history WHERE fund_code = ?`
	args := []interface{}{fundCode}
	if start != "" {
		query += ` AND date >= ?`
		args = append(args, start)
	}
	if end != "" {
		query += ` AND date <= ?`
		args = append(args, end)
	}
	query += ` ORDER BY date`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query nav history for %s: %w", fundCode, err)
	}
	defer rows.Close()

	var records []domain.NavRecord
	for rows.Next() {
		var rec domain.NavRecord
		if err := rows.Scan(&rec.FundCode, &rec.Date, &rec.Nav); err != nil {
			return nil, fmt.Errorf("failed to scan nav record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// UpsertNav stores one NAV point, replacing an existing record for the same day.
func (r *Repository) UpsertNav(fundCode, date string, nav float64) error {
	_, err := r.db.Exec(`
		INSERT INTO fund_nav_history (fund_code, date, nav)
		VALUES (?, ?, ?)
		ON CONFLICT(fund_code, date) DO UPDATE SET nav = excluded.nav
	`, fundCode, date, nav)
	if err != nil {
		return fmt.Errorf("failed to upsert nav for %s: %w", fundCode, err)
	}
	return nil
}

// Allocation row sources. Replacement is scoped per source so manual
// overrides survive API refreshes.
const (
	AllocationSourceAPI    = "api"
	AllocationSourceManual = "manual"
)

// ReplaceAllocations atomically replaces all allocation rows for a fund from
// the given source.
func (r *Repository) ReplaceAllocations(fundCode, source string, rows []domain.FundAllocationRow) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin allocation replace: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.Exec(`
		DELETE FROM fund_allocations WHERE fund_code = ? AND source = ?
	`, fundCode, source); err != nil {
		return fmt.Errorf("failed to clear allocations for %s: %w", fundCode, err)
	}

	for _, row := range rows {
		if _, err := tx.Exec(`
			INSERT INTO fund_allocations (fund_code, dimension, category, percentage, source, report_date)
			VALUES (?, ?, ?, ?, ?, ?)
		`, fundCode, row.Dimension, row.Category, row.Percentage, source, row.ReportDate); err != nil {
			return fmt.Errorf("failed to insert allocation row for %s: %w", fundCode, err)
		}
	}

	return tx.Commit()
}

// AllocationsForDimension returns a fund's allocation rows for one dimension.
// Only the latest report_date is returned so stale report rows never double
// count a category.
func (r *Repository) AllocationsForDimension(fundCode, dimension string) ([]domain.FundAllocationRow, error) {
	rows, err := r.db.Query(`
		SELECT fund_code, dimension, category, percentage, source, report_date
		FROM fund_allocations
		WHERE fund_code = ? AND dimension = ?
		AND (report_date IS NULL OR report_date = (
			SELECT MAX(report_date) FROM fund_allocations
			WHERE fund_code = ? AND dimension = ?
		))
	`, fundCode, dimension, fundCode, dimension)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations for %s/%s: %w", fundCode, dimension, err)
	}
	defer rows.Close()

	return scanAllocationRows(rows)
}

// AllocationsByFund returns all allocation rows for a fund grouped by dimension.
func (r *Repository) AllocationsByFund(fundCode string) (map[string][]domain.FundAllocationRow, error) {
	rows, err := r.db.Query(`
		SELECT fund_code, dimension, category, percentage, source, report_date
		FROM fund_allocations WHERE fund_code = ?
	`, fundCode)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations for %s: %w", fundCode, err)
	}
	defer rows.Close()

	all, err := scanAllocationRows(rows)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]domain.FundAllocationRow)
	for _, row := range all {
		grouped[row.Dimension] = append(grouped[row.Dimension], row)
	}
	return grouped, nil
}

// ReplaceTopHoldings atomically replaces a fund's top holdings.
func (r *Repository) ReplaceTopHoldings(fundCode string, holdings []domain.TopHolding) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin top holdings replace: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM fund_top_holdings WHERE fund_code = ?`, fundCode); err != nil {
		return fmt.Errorf("failed to clear top holdings for %s: %w", fundCode, err)
	}
	for _, th := range holdings {
		if _, err := tx.Exec(`
			INSERT INTO fund_top_holdings (fund_code, stock_code, stock_name, percentage)
			VALUES (?, ?, ?, ?)
		`, fundCode, th.StockCode, th.StockName, th.Percentage); err != nil {
			return fmt.Errorf("failed to insert top holding for %s: %w", fundCode, err)
		}
	}
	return tx.Commit()
}

// TopHoldings returns a fund's stored top holdings.
func (r *Repository) TopHoldings(fundCode string) ([]domain.TopHolding, error) {
	rows, err := r.db.Query(`
		SELECT fund_code, stock_code, stock_name, percentage
		FROM fund_top_holdings WHERE fund_code = ? ORDER BY percentage DESC
	`, fundCode)
	if err != nil {
		return nil, fmt.Errorf("failed to query top holdings for %s: %w", fundCode, err)
	}
	defer rows.Close()

	var holdings []domain.TopHolding
	for rows.Next() {
		var th domain.TopHolding
		if err := rows.Scan(&th.FundCode, &th.StockCode, &th.StockName, &th.Percentage); err != nil {
			return nil, fmt.Errorf("failed to scan top holding: %w", err)
		}
		holdings = append(holdings, th)
	}
	return holdings, rows.Err()
}

func scanAllocationRows(rows *sql.Rows) ([]domain.FundAllocationRow, error) {
	var result []domain.FundAllocationRow
	for rows.Next() {
		var row domain.FundAllocationRow
		if err := rows.Scan(&row.FundCode, &row.Dimension, &row.Category, &row.Percentage, &row.Source, &row.ReportDate); err != nil {
			return nil, fmt.Errorf("failed to scan allocation row: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
