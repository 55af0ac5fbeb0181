package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
	path string
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	// In-memory databases (tests) skip directory handling
	if !strings.HasPrefix(dbPath, "file:") {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Open database connection
	// Use WAL mode for better concurrency
	conn, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Configure connection pool
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)

	return &DB{
		conn: conn,
		path: dbPath,
	}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sql.DB connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// Migrate creates the schema. Statements are idempotent so the server can run
// them on every startup.
func (db *DB) Migrate() error {
	for _, stmt := range schema {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Begin starts a new transaction
func (db *DB) Begin() (*sql.Tx, error) {
	return db.conn.Begin()
}

// Exec executes a query without returning rows
func (db *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	return db.conn.Exec(query, args...)
}

// Query executes a query that returns rows
func (db *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return db.conn.Query(query, args...)
}

// QueryRow executes a query that returns at most one row
func (db *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	return db.conn.QueryRow(query, args...)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS funds (
		fund_code   TEXT PRIMARY KEY,
		fund_name   TEXT NOT NULL DEFAULT '',
		fund_type   TEXT NOT NULL DEFAULT '',
		updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
	)`,
	`CREATE TABLE IF NOT EXISTS fund_nav_history (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		fund_code  TEXT NOT NULL,
		date       TEXT NOT NULL,
		nav        REAL NOT NULL,
		UNIQUE(fund_code, date)
	)`,
	`CREATE TABLE IF NOT EXISTS fund_allocations (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		fund_code   TEXT NOT NULL,
		dimension   TEXT NOT NULL,
		category    TEXT NOT NULL,
		percentage  REAL NOT NULL,
		source      TEXT NOT NULL DEFAULT '',
		report_date TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_fund_allocations_code_dim
		ON fund_allocations(fund_code, dimension)`,
	`CREATE TABLE IF NOT EXISTS fund_top_holdings (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		fund_code  TEXT NOT NULL,
		stock_code TEXT NOT NULL,
		stock_name TEXT NOT NULL,
		percentage REAL NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS holdings (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		fund_code  TEXT NOT NULL,
		platform   TEXT NOT NULL DEFAULT '',
		shares     REAL NOT NULL,
		cost_price REAL NOT NULL,
		created_at TEXT NOT NULL DEFAULT (datetime('now')),
		updated_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`,
	`CREATE TABLE IF NOT EXISTS liquid_assets (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		name       TEXT NOT NULL,
		platform   TEXT NOT NULL DEFAULT '',
		amount     REAL NOT NULL,
		note       TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`,
	`CREATE TABLE IF NOT EXISTS stable_assets (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		name       TEXT NOT NULL,
		platform   TEXT NOT NULL DEFAULT '',
		amount     REAL NOT NULL,
		annual_rate REAL NOT NULL DEFAULT 0,
		start_date TEXT,
		end_date   TEXT,
		note       TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`,
	`CREATE TABLE IF NOT EXISTS insurance_policies (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		name            TEXT NOT NULL,
		insurer         TEXT NOT NULL DEFAULT '',
		policy_type     TEXT NOT NULL DEFAULT '',
		insured         TEXT NOT NULL DEFAULT '',
		annual_premium  REAL NOT NULL DEFAULT 0,
		coverage_amount REAL NOT NULL DEFAULT 0,
		status          TEXT NOT NULL DEFAULT 'active',
		next_payment_date TEXT,
		note            TEXT NOT NULL DEFAULT '',
		updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
	)`,
	`CREATE TABLE IF NOT EXISTS position_budget (
		id                  INTEGER PRIMARY KEY AUTOINCREMENT,
		total_budget        REAL NOT NULL DEFAULT 0,
		target_position_min REAL NOT NULL DEFAULT 50,
		target_position_max REAL NOT NULL DEFAULT 80,
		active_strategy     TEXT NOT NULL DEFAULT 'simple',
		updated_at          TEXT NOT NULL DEFAULT (datetime('now'))
	)`,
	`CREATE TABLE IF NOT EXISTS budget_change_log (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		old_budget REAL NOT NULL,
		new_budget REAL NOT NULL,
		reason     TEXT,
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`,
	`CREATE TABLE IF NOT EXISTS strategy_configs (
		strategy_name TEXT PRIMARY KEY,
		config_json   TEXT NOT NULL DEFAULT '{}',
		updated_at    TEXT NOT NULL DEFAULT (datetime('now'))
	)`,
	`CREATE TABLE IF NOT EXISTS portfolio_snapshots (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		date        TEXT NOT NULL UNIQUE,
		total_value REAL NOT NULL,
		total_cost  REAL NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS prefs (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`,
}
