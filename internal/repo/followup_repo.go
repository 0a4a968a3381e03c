package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Leadflow/internal/domain"
)

// FollowupRepo — репозиторий для работы с followups.
type FollowupRepo struct {
	pool *pgxpool.Pool
}

// NewFollowupRepo создаёт новый FollowupRepo.
func NewFollowupRepo(pool *pgxpool.Pool) *FollowupRepo {
	return &FollowupRepo{pool: pool}
}

// CreateUnlessRecent добавляет запись follow-up, если для той же пары
// (lead, rule) нет записи новее since. Возвращает false, если запись
// уже есть и ничего не создано.
//
// Проверка и вставка выполняются под pg_advisory_xact_lock по ключу пары,
// так что два воркера с одной парой не создадут две записи.
func (r *FollowupRepo) CreateUnlessRecent(ctx context.Context, f *domain.Followup, since time.Time) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	pairKey := f.LeadID.String() + "/" + f.RuleID.String()
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, pairKey); err != nil {
		return false, fmt.Errorf("lock pair: %w", err)
	}

	var exists bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM followups
			WHERE lead_id = $1 AND rule_id = $2 AND created_at > $3
		)
	`, f.LeadID, f.RuleID, since).Scan(&exists); err != nil {
		return false, fmt.Errorf("check recent followup: %w", err)
	}
	if exists {
		return false, nil
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO followups (id, lead_id, rule_id, created_at)
		VALUES ($1, $2, $3, $4)
	`, f.ID, f.LeadID, f.RuleID, f.CreatedAt); err != nil {
		return false, fmt.Errorf("insert followup: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// List возвращает follow-up записи (по умолчанию created_at desc).
func (r *FollowupRepo) List(ctx context.Context, params ListParams) ([]domain.Followup, error) {
	p := params.normalize([]string{"created_at"}, "created_at")
	query := `
		SELECT id, lead_id, rule_id, created_at
		FROM followups
		` + p.orderClause() + `
		LIMIT $1 OFFSET $2
	`
	rows, err := r.pool.Query(ctx, query, p.Limit, p.Offset)
	if err != nil {
		return nil, fmt.Errorf("list followups: %w", err)
	}
	defer rows.Close()

	var followups []domain.Followup
	for rows.Next() {
		var f domain.Followup
		if err := rows.Scan(&f.ID, &f.LeadID, &f.RuleID, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan followup: %w", err)
		}
		followups = append(followups, f)
	}
	return followups, rows.Err()
}
