// Package prefs stores UI preferences as key-value pairs. The server does not
// interpret the values; clients own their meaning (panel-open flags, theme,
// chart dimension selections).
package prefs

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

// Repository handles preference database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new prefs repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "prefs").Logger(),
	}
}

// Get retrieves a preference by key. Returns nil when the key has never been
// set (not an error).
func (r *Repository) Get(key string) (*string, error) {
	var value string
	err := r.db.QueryRow("SELECT value FROM prefs WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pref %s: %w", key, err)
	}
	return &value, nil
}

// Set stores a preference, replacing any previous value.
func (r *Repository) Set(key, value string) error {
	_, err := r.db.Exec(`
		INSERT INTO prefs (key, value, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set pref %s: %w", key, err)
	}
	return nil
}

// All returns every stored preference.
func (r *Repository) All() (map[string]string, error) {
	rows, err := r.db.Query("SELECT key, value FROM prefs ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("failed to list prefs: %w", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan pref: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Delete removes a preference. Deleting an absent key is not an error.
func (r *Repository) Delete(key string) error {
	_, err := r.db.Exec("DELETE FROM prefs WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("failed to delete pref %s: %w", key, err)
	}
	return nil
}
