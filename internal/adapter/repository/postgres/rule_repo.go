package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mfonseca/dcaflow-backend/internal/domain"
)

// ruleRepository implements domain.RuleRepository
type ruleRepository struct {
	db *DB
}

// NewRuleRepository creates a new recurrence rule repository
func NewRuleRepository(db *DB) domain.RuleRepository {
	return &ruleRepository{db: db}
}

// Create creates a new rule row
func (r *ruleRepository) Create(ctx context.Context, rule *domain.RecurrenceRule) error {
	query := `
		INSERT INTO dca_rules (id, pair, cadence, anchor_date, time_of_day, timezone, monthly_day, contribution, end_date, next_run_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		rule.ID,
		rule.Pair,
		string(rule.Cadence),
		rule.AnchorDate,
		rule.TimeOfDay,
		rule.TimeZone,
		rule.MonthlyDay,
		rule.Contribution.String(),
		rule.EndDate,
		rule.NextRunAt,
		rule.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}

	return nil
}

// GetByID retrieves a rule by its ID
func (r *ruleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RecurrenceRule, error) {
	query := `
		SELECT id, pair, cadence, anchor_date, time_of_day, timezone, monthly_day, contribution, end_date, next_run_at, created_at
		FROM dca_rules
		WHERE id = $1
	`

	rule, err := scanRule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRuleNotFound
		}
		return nil, fmt.Errorf("failed to get rule %s: %w", id, err)
	}

	return rule, nil
}

// List retrieves all rules, oldest first
func (r *ruleRepository) List(ctx context.Context) ([]*domain.RecurrenceRule, error) {
	query := `
		SELECT id, pair, cadence, anchor_date, time_of_day, timezone, monthly_day, contribution, end_date, next_run_at, created_at
		FROM dca_rules
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	rules := make([]*domain.RecurrenceRule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule row: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rule rows: %w", err)
	}

	return rules, nil
}

// Update replaces the stored rule
func (r *ruleRepository) Update(ctx context.Context, rule *domain.RecurrenceRule) error {
	query := `
		UPDATE dca_rules
		SET pair = $2, cadence = $3, anchor_date = $4, time_of_day = $5, timezone = $6,
		    monthly_day = $7, contribution = $8, end_date = $9, next_run_at = $10
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		rule.ID,
		rule.Pair,
		string(rule.Cadence),
		rule.AnchorDate,
		rule.TimeOfDay,
		rule.TimeZone,
		rule.MonthlyDay,
		rule.Contribution.String(),
		rule.EndDate,
		rule.NextRunAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update rule %s: %w", rule.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrRuleNotFound
	}

	return nil
}

// SetNextRun stores the next scheduled instant; nil marks the rule expired
func (r *ruleRepository) SetNextRun(ctx context.Context, id uuid.UUID, nextRunAt *time.Time) error {
	query := `UPDATE dca_rules SET next_run_at = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, nextRunAt)
	if err != nil {
		return fmt.Errorf("failed to set next run for rule %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrRuleNotFound
	}

	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRule reads one dca_rules row into the domain entity
func scanRule(row rowScanner) (*domain.RecurrenceRule, error) {
	var rule domain.RecurrenceRule
	var cadence string
	var contributionStr string
	var endDate sql.NullTime
	var nextRunAt sql.NullTime

	err := row.Scan(
		&rule.ID,
		&rule.Pair,
		&cadence,
		&rule.AnchorDate,
		&rule.TimeOfDay,
		&rule.TimeZone,
		&rule.MonthlyDay,
		&contributionStr,
		&endDate,
		&nextRunAt,
		&rule.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rule.Cadence = domain.Cadence(cadence)

	// Parse contribution (DECIMAL)
	contribution, err := decimal.NewFromString(contributionStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse contribution: %w", err)
	}
	rule.Contribution = contribution

	if endDate.Valid {
		t := endDate.Time
		rule.EndDate = &t
	}
	if nextRunAt.Valid {
		t := nextRunAt.Time
		rule.NextRunAt = &t
	}

	return &rule, nil
}
