package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Leadflow/internal/domain"
)

// RuleRepo — репозиторий для работы с followup_rules.
type RuleRepo struct {
	pool *pgxpool.Pool
}

// NewRuleRepo создаёт новый RuleRepo.
func NewRuleRepo(pool *pgxpool.Pool) *RuleRepo {
	return &RuleRepo{pool: pool}
}

const ruleColumns = `id, status, delay, text, is_enabled`

// Create создаёт правило.
// Возвращает ErrAlreadyExists при конфликте (status, delay).
func (r *RuleRepo) Create(ctx context.Context, rule *domain.FollowupRule) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO followup_rules (id, status, delay, text, is_enabled)
		VALUES ($1, $2, $3, $4, $5)
	`, rule.ID, rule.Status, rule.DelayMinutes, rule.Text, rule.IsEnabled)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: rule %s/%d", ErrAlreadyExists, rule.Status, rule.DelayMinutes)
	}
	if err != nil {
		return fmt.Errorf("insert rule: %w", err)
	}
	return nil
}

// Upsert создаёт правило или обновляет text/is_enabled существующего
// с той же парой (status, delay). rule.ID заполняется ID из БД.
func (r *RuleRepo) Upsert(ctx context.Context, rule *domain.FollowupRule) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO followup_rules (id, status, delay, text, is_enabled)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (status, delay)
		DO UPDATE SET text = EXCLUDED.text, is_enabled = EXCLUDED.is_enabled
		RETURNING id
	`, rule.ID, rule.Status, rule.DelayMinutes, rule.Text, rule.IsEnabled).Scan(&rule.ID)
	if err != nil {
		return fmt.Errorf("upsert rule: %w", err)
	}
	return nil
}

// GetByID возвращает правило по ID.
func (r *RuleRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.FollowupRule, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+ruleColumns+` FROM followup_rules WHERE id = $1`, id)
	return scanRule(row)
}

// List возвращает правила (по умолчанию сортировка по status desc).
func (r *RuleRepo) List(ctx context.Context, params ListParams) ([]domain.FollowupRule, error) {
	p := params.normalize([]string{"status", "delay", "is_enabled", "text"}, "status")
	query := `SELECT ` + ruleColumns + ` FROM followup_rules ` + p.orderClause() + ` LIMIT $1 OFFSET $2`
	return queryRules(ctx, r.pool, query, p.Limit, p.Offset)
}

// SetEnabled включает/выключает правило.
func (r *RuleRepo) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	result, err := r.pool.Exec(ctx, `UPDATE followup_rules SET is_enabled = $2 WHERE id = $1`, id, enabled)
	if err != nil {
		return fmt.Errorf("set enabled: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// querier — общий интерфейс pgxpool.Pool и pgx.Tx для чтения.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func queryRules(ctx context.Context, q querier, query string, args ...any) ([]domain.FollowupRule, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var rules []domain.FollowupRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

func scanRule(row pgx.Row) (*domain.FollowupRule, error) {
	var rule domain.FollowupRule
	err := row.Scan(&rule.ID, &rule.Status, &rule.DelayMinutes, &rule.Text, &rule.IsEnabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan rule: %w", err)
	}
	return &rule, nil
}
