package position

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository handles position budget database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new position repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "position").Logger(),
	}
}

// GetOrCreateBudget returns the budget row, creating it with defaults on
// first use. There is only ever one row.
func (r *Repository) GetOrCreateBudget() (*Budget, error) {
	budget, err := r.getBudget()
	if err != nil {
		return nil, err
	}
	if budget != nil {
		return budget, nil
	}

	if _, err := r.db.Exec(`INSERT INTO position_budget DEFAULT VALUES`); err != nil {
		return nil, fmt.Errorf("failed to create budget: %w", err)
	}
	return r.getBudget()
}

func (r *Repository) getBudget() (*Budget, error) {
	var b Budget
	var updated string
	err := r.db.QueryRow(`
		SELECT id, total_budget, target_position_min, target_position_max, active_strategy, updated_at
		FROM position_budget ORDER BY id LIMIT 1
	`).Scan(&b.ID, &b.TotalBudget, &b.TargetPositionMin, &b.TargetPositionMax, &b.ActiveStrategy, &updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get budget: %w", err)
	}
	if t, perr := time.Parse("2006-01-02 15:04:05", updated); perr == nil {
		b.UpdatedAt = t
	}
	return &b, nil
}

// UpdateBudget writes the budget row and, when the amount changed, appends a
// changelog entry in the same transaction so the log can never miss a change.
func (r *Repository) UpdateBudget(b *Budget, oldBudget float64, reason *string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin budget update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`
		UPDATE position_budget
		SET total_budget = ?, target_position_min = ?, target_position_max = ?,
			active_strategy = ?, updated_at = datetime('now')
		WHERE id = ?
	`, b.TotalBudget, b.TargetPositionMin, b.TargetPositionMax, b.ActiveStrategy, b.ID); err != nil {
		return fmt.Errorf("failed to update budget: %w", err)
	}

	if b.TotalBudget != oldBudget {
		if _, err := tx.Exec(`
			INSERT INTO budget_change_log (old_budget, new_budget, reason)
			VALUES (?, ?, ?)
		`, oldBudget, b.TotalBudget, reason); err != nil {
			return fmt.Errorf("failed to append change log: %w", err)
		}
	}

	return tx.Commit()
}

// Changelog returns all budget changes, newest first.
func (r *Repository) Changelog() ([]ChangeLogEntry, error) {
	rows, err := r.db.Query(`
		SELECT id, old_budget, new_budget, reason, created_at
		FROM budget_change_log
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query change log: %w", err)
	}
	defer rows.Close()

	var entries []ChangeLogEntry
	for rows.Next() {
		var e ChangeLogEntry
		var created string
		if err := rows.Scan(&e.ID, &e.OldBudget, &e.NewBudget, &e.Reason, &created); err != nil {
			return nil, fmt.Errorf("failed to scan change log entry: %w", err)
		}
		if t, perr := time.Parse("2006-01-02 15:04:05", created); perr == nil {
			e.CreatedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// StrategyConfig returns the stored config JSON for a strategy, "{}" when
// none has been saved.
func (r *Repository) StrategyConfig(name string) (string, error) {
	var config string
	err := r.db.QueryRow(`
		SELECT config_json FROM strategy_configs WHERE strategy_name = ?
	`, name).Scan(&config)
	if err == sql.ErrNoRows {
		return "{}", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get strategy config for %s: %w", name, err)
	}
	return config, nil
}

// SetStrategyConfig stores the config JSON for a strategy.
func (r *Repository) SetStrategyConfig(name, configJSON string) error {
	_, err := r.db.Exec(`
		INSERT INTO strategy_configs (strategy_name, config_json, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(strategy_name) DO UPDATE SET
			config_json = excluded.config_json,
			updated_at = excluded.updated_at
	`, name, configJSON)
	if err != nil {
		return fmt.Errorf("failed to set strategy config for %s: %w", name, err)
	}
	return nil
}
