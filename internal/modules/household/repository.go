// Package household holds the thin CRUD layer for the family's raw records:
// fund holdings, liquid assets, term deposits and insurance policies. These
// repositories feed the analytics modules; there is no derived logic here.
package household

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mosaicfin/mosaic/internal/domain"
)

// Repository handles household record database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new household repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "household").Logger(),
	}
}

// --- Holdings ---

// ListHoldings returns all fund holdings.
func (r *Repository) ListHoldings() ([]Holding, error) {
	rows, err := r.db.Query(`
		SELECT id, fund_code, platform, shares, cost_price, created_at, updated_at
		FROM holdings
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []Holding
	for rows.Next() {
		var h Holding
		var created, updated string
		if err := rows.Scan(&h.ID, &h.FundCode, &h.Platform, &h.Shares, &h.CostPrice, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		h.CreatedAt = parseTimestamp(created)
		h.UpdatedAt = parseTimestamp(updated)
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

// DistinctFundCodes returns the unique fund codes currently held, in code
// order. Batch refreshes use this as the unit list.
func (r *Repository) DistinctFundCodes() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT fund_code FROM holdings ORDER BY fund_code`)
	if err != nil {
		return nil, fmt.Errorf("failed to query fund codes: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan fund code: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// CreateHolding inserts a new holding and returns it with its ID.
func (r *Repository) CreateHolding(h Holding) (Holding, error) {
	res, err := r.db.Exec(`
		INSERT INTO holdings (fund_code, platform, shares, cost_price)
		VALUES (?, ?, ?, ?)
	`, h.FundCode, h.Platform, h.Shares, h.CostPrice)
	if err != nil {
		return Holding{}, fmt.Errorf("failed to insert holding: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Holding{}, fmt.Errorf("failed to get holding id: %w", err)
	}
	h.ID = id
	return h, nil
}

// UpdateHolding updates an existing holding. Returns sql.ErrNoRows when the
// id does not exist.
func (r *Repository) UpdateHolding(h Holding) error {
	res, err := r.db.Exec(`
		UPDATE holdings
		SET fund_code = ?, platform = ?, shares = ?, cost_price = ?, updated_at = datetime('now')
		WHERE id = ?
	`, h.FundCode, h.Platform, h.Shares, h.CostPrice, h.ID)
	if err != nil {
		return fmt.Errorf("failed to update holding: %w", err)
	}
	return requireRow(res)
}

// DeleteHolding removes a holding.
func (r *Repository) DeleteHolding(id int64) error {
	res, err := r.db.Exec(`DELETE FROM holdings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}
	return requireRow(res)
}

// --- Liquid assets ---

// ListLiquidAssets returns all liquid assets.
func (r *Repository) ListLiquidAssets() ([]LiquidAsset, error) {
	rows, err := r.db.Query(`
		SELECT id, name, platform, amount, note, updated_at FROM liquid_assets ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query liquid assets: %w", err)
	}
	defer rows.Close()

	var assets []LiquidAsset
	for rows.Next() {
		var a LiquidAsset
		var updated string
		if err := rows.Scan(&a.ID, &a.Name, &a.Platform, &a.Amount, &a.Note, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan liquid asset: %w", err)
		}
		a.UpdatedAt = parseTimestamp(updated)
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// CreateLiquidAsset inserts a new liquid asset.
func (r *Repository) CreateLiquidAsset(a LiquidAsset) (LiquidAsset, error) {
	res, err := r.db.Exec(`
		INSERT INTO liquid_assets (name, platform, amount, note) VALUES (?, ?, ?, ?)
	`, a.Name, a.Platform, a.Amount, a.Note)
	if err != nil {
		return LiquidAsset{}, fmt.Errorf("failed to insert liquid asset: %w", err)
	}
	a.ID, err = res.LastInsertId()
	if err != nil {
		return LiquidAsset{}, fmt.Errorf("failed to get liquid asset id: %w", err)
	}
	return a, nil
}

// UpdateLiquidAsset updates an existing liquid asset.
func (r *Repository) UpdateLiquidAsset(a LiquidAsset) error {
	res, err := r.db.Exec(`
		UPDATE liquid_assets
		SET name = ?, platform = ?, amount = ?, note = ?, updated_at = datetime('now')
		WHERE id = ?
	`, a.Name, a.Platform, a.Amount, a.Note, a.ID)
	if err != nil {
		return fmt.Errorf("failed to update liquid asset: %w", err)
	}
	return requireRow(res)
}

// DeleteLiquidAsset removes a liquid asset.
func (r *Repository) DeleteLiquidAsset(id int64) error {
	res, err := r.db.Exec(`DELETE FROM liquid_assets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete liquid asset: %w", err)
	}
	return requireRow(res)
}

// --- Stable assets ---

// ListStableAssets returns all stable assets.
func (r *Repository) ListStableAssets() ([]StableAsset, error) {
	rows, err := r.db.Query(`
		SELECT id, name, platform, amount, annual_rate, start_date, end_date, note, updated_at
		FROM stable_assets ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stable assets: %w", err)
	}
	defer rows.Close()

	var assets []StableAsset
	for rows.Next() {
		var a StableAsset
		var updated string
		if err := rows.Scan(&a.ID, &a.Name, &a.Platform, &a.Amount, &a.AnnualRate, &a.StartDate, &a.EndDate, &a.Note, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan stable asset: %w", err)
		}
		a.UpdatedAt = parseTimestamp(updated)
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// CreateStableAsset inserts a new stable asset.
func (r *Repository) CreateStableAsset(a StableAsset) (StableAsset, error) {
	res, err := r.db.Exec(`
		INSERT INTO stable_assets (name, platform, amount, annual_rate, start_date, end_date, note)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.Name, a.Platform, a.Amount, a.AnnualRate, a.StartDate, a.EndDate, a.Note)
	if err != nil {
		return StableAsset{}, fmt.Errorf("failed to insert stable asset: %w", err)
	}
	a.ID, err = res.LastInsertId()
	if err != nil {
		return StableAsset{}, fmt.Errorf("failed to get stable asset id: %w", err)
	}
	return a, nil
}

// UpdateStableAsset updates an existing stable asset.
func (r *Repository) UpdateStableAsset(a StableAsset) error {
	res, err := r.db.Exec(`
		UPDATE stable_assets
		SET name = ?, platform = ?, amount = ?, annual_rate = ?, start_date = ?, end_date = ?, note = ?, updated_at = datetime('now')
		WHERE id = ?
	`, a.Name, a.Platform, a.Amount, a.AnnualRate, a.StartDate, a.EndDate, a.Note, a.ID)
	if err != nil {
		return fmt.Errorf("failed to update stable asset: %w", err)
	}
	return requireRow(res)
}

// DeleteStableAsset removes a stable asset.
func (r *Repository) DeleteStableAsset(id int64) error {
	res, err := r.db.Exec(`DELETE FROM stable_assets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete stable asset: %w", err)
	}
	return requireRow(res)
}

// --- Insurance policies ---

// ListInsurancePolicies returns all insurance policies.
func (r *Repository) ListInsurancePolicies() ([]InsurancePolicy, error) {
	rows, err := r.db.Query(`
		SELECT id, name, insurer, policy_type, insured, annual_premium, coverage_amount, status, next_payment_date, note, updated_at
		FROM insurance_policies ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query insurance policies: %w", err)
	}
	defer rows.Close()

	var policies []InsurancePolicy
	for rows.Next() {
		var p InsurancePolicy
		var updated string
		if err := rows.Scan(&p.ID, &p.Name, &p.Insurer, &p.PolicyType, &p.Insured, &p.AnnualPremium, &p.CoverageAmount, &p.Status, &p.NextPaymentDate, &p.Note, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan insurance policy: %w", err)
		}
		p.UpdatedAt = parseTimestamp(updated)
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

// CreateInsurancePolicy inserts a new policy. An empty status defaults to
// active.
func (r *Repository) CreateInsurancePolicy(p InsurancePolicy) (InsurancePolicy, error) {
	if p.Status == "" {
		p.Status = domain.PolicyStatusActive
	}
	res, err := r.db.Exec(`
		INSERT INTO insurance_policies (name, insurer, policy_type, insured, annual_premium, coverage_amount, status, next_payment_date, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.Name, p.Insurer, p.PolicyType, p.Insured, p.AnnualPremium, p.CoverageAmount, p.Status, p.NextPaymentDate, p.Note)
	if err != nil {
		return InsurancePolicy{}, fmt.Errorf("failed to insert insurance policy: %w", err)
	}
	p.ID, err = res.LastInsertId()
	if err != nil {
		return InsurancePolicy{}, fmt.Errorf("failed to get insurance policy id: %w", err)
	}
	return p, nil
}

// UpdateInsurancePolicy updates an existing policy.
func (r *Repository) UpdateInsurancePolicy(p InsurancePolicy) error {
	if p.Status == "" {
		p.Status = domain.PolicyStatusActive
	}
	res, err := r.db.Exec(`
		UPDATE insurance_policies
		SET name = ?, insurer = ?, policy_type = ?, insured = ?, annual_premium = ?, coverage_amount = ?, status = ?, next_payment_date = ?, note = ?, updated_at = datetime('now')
		WHERE id = ?
	`, p.Name, p.Insurer, p.PolicyType, p.Insured, p.AnnualPremium, p.CoverageAmount, p.Status, p.NextPaymentDate, p.Note, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update insurance policy: %w", err)
	}
	return requireRow(res)
}

// DeleteInsurancePolicy removes a policy.
func (r *Repository) DeleteInsurancePolicy(id int64) error {
	res, err := r.db.Exec(`DELETE FROM insurance_policies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete insurance policy: %w", err)
	}
	return requireRow(res)
}

// requireRow converts a zero-row mutation into sql.ErrNoRows so handlers can
// answer 404 instead of 200.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func parseTimestamp(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
