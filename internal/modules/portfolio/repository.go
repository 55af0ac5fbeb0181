// Package portfolio aggregates the household's raw records into the summary,
// per-platform and trend views, and maintains the daily value snapshots the
// trend is computed from.
package portfolio

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

// Snapshot is one day's portfolio value, written once per day.
type Snapshot struct {
	Date       string  `json:"date"` // YYYY-MM-DD
	TotalValue float64 `json:"total_value"`
	TotalCost  float64 `json:"total_cost"`
}

// SnapshotRepository handles portfolio snapshot database operations
type SnapshotRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *sql.DB, log zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:  db,
		log: log.With().Str("repository", "snapshots").Logger(),
	}
}

// Upsert writes a snapshot, replacing any existing record for the same day.
func (r *SnapshotRepository) Upsert(s Snapshot) error {
	_, err := r.db.Exec(`
		INSERT INTO portfolio_snapshots (date, total_value, total_cost)
		VALUES (?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			total_value = excluded.total_value,
			total_cost = excluded.total_cost
	`, s.Date, s.TotalValue, s.TotalCost)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot for %s: %w", s.Date, err)
	}
	return nil
}

// Range returns snapshots between start and end (inclusive, YYYY-MM-DD, empty
// bound means unbounded), in ascending date order.
func (r *SnapshotRepository) Range(start, end string) ([]Snapshot, error) {
	query := `SELECT date, total_value, total_cost FROM portfolio_snapshots WHERE 1=1`
	args := []interface{}{}
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
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(&s.Date, &s.TotalValue, &s.TotalCost); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

// Latest returns the most recent snapshot, or nil when none exist.
func (r *SnapshotRepository) Latest() (*Snapshot, error) {
	var s Snapshot
	err := r.db.QueryRow(`
		SELECT date, total_value, total_cost FROM portfolio_snapshots
		ORDER BY date DESC LIMIT 1
	`).Scan(&s.Date, &s.TotalValue, &s.TotalCost)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}
	return &s, nil
}
