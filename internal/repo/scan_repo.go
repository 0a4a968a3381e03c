package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Leadflow/internal/domain"
)

// ScanRepo даёт сканеру застрявших лидов согласованный снимок данных.
type ScanRepo struct {
	pool *pgxpool.Pool
}

// NewScanRepo создаёт новый ScanRepo.
func NewScanRepo(pool *pgxpool.Pool) *ScanRepo {
	return &ScanRepo{pool: pool}
}

// Snapshot выполняет fn внутри read-only транзакции REPEATABLE READ:
// все запросы fn видят одно состояние БД.
func (r *ScanRepo) Snapshot(ctx context.Context, fn func(ctx context.Context, view domain.StallView) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &stallView{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// stallView реализует domain.StallView поверх транзакции.
type stallView struct {
	tx pgx.Tx
}

func (v *stallView) ListEnabledRules(ctx context.Context) ([]domain.FollowupRule, error) {
	return queryRules(ctx, v.tx, `
		SELECT `+ruleColumns+`
		FROM followup_rules
		WHERE is_enabled = true
		ORDER BY status, delay
	`)
}

// ListStalledLeadIDs — лиды, застрявшие в статусе правила.
//
// Исключаются лиды, которым по этому правилу уже отправлен follow-up
// после последней смены статуса и не раньше repeatSince.
func (v *stallView) ListStalledLeadIDs(ctx context.Context, rule domain.FollowupRule, cutoff, repeatSince time.Time) ([]uuid.UUID, error) {
	rows, err := v.tx.Query(ctx, `
		SELECT l.id
		FROM leads l
		WHERE l.status = $1
		  AND l.updated_at <= $2
		  AND NOT EXISTS (
		      SELECT 1 FROM followups f
		      WHERE f.lead_id = l.id
		        AND f.rule_id = $3
		        AND f.created_at >= l.updated_at
		        AND f.created_at >= $4
		  )
		ORDER BY l.updated_at ASC
	`, rule.Status, cutoff, rule.ID, repeatSince)
	if err != nil {
		return nil, fmt.Errorf("list stalled leads: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan lead id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
