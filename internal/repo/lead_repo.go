package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Leadflow/internal/domain"
)

// LeadRepo — репозиторий для работы с leads и lead_events.
type LeadRepo struct {
	pool *pgxpool.Pool
}

// NewLeadRepo создаёт новый LeadRepo.
func NewLeadRepo(pool *pgxpool.Pool) *LeadRepo {
	return &LeadRepo{pool: pool}
}

// leadOrderColumns — колонки, по которым разрешена сортировка лидов.
var leadOrderColumns = []string{"phone", "status", "updated_at"}

// Create создаёт нового лида.
// Возвращает ErrAlreadyExists, если телефон уже занят.
func (r *LeadRepo) Create(ctx context.Context, lead *domain.Lead) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO leads (id, phone, status, updated_at)
		VALUES ($1, $2, $3, $4)
	`, lead.ID, lead.Phone, lead.Status, lead.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: phone %s", ErrAlreadyExists, lead.Phone)
	}
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

// GetByID возвращает лида по ID.
func (r *LeadRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, phone, status, updated_at
		FROM leads
		WHERE id = $1
	`, id)
	return scanLead(row)
}

// List возвращает лидов с пагинацией и сортировкой (по умолчанию updated_at desc).
func (r *LeadRepo) List(ctx context.Context, params ListParams) ([]domain.Lead, error) {
	p := params.normalize(leadOrderColumns, "updated_at")
	query := `
		SELECT id, phone, status, updated_at
		FROM leads
		` + p.orderClause() + `
		LIMIT $1 OFFSET $2
	`
	rows, err := r.pool.Query(ctx, query, p.Limit, p.Offset)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var leads []domain.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *lead)
	}
	return leads, rows.Err()
}

// SetStatus меняет статус лида и пишет событие в историю.
//
// Строка лида блокируется (SELECT ... FOR UPDATE) на время транзакции.
// updated_at обновляется только при реальной смене статуса:
// scheduler считает от него время нахождения в статусе.
// Событие пишется всегда, даже если статус не изменился.
//
// Метка времени now приходит от вызывающего, как в Create и при записи
// follow-up: все времена, которые сравнивает сканер, идут от часов сервисов.
func (r *LeadRepo) SetStatus(ctx context.Context, id uuid.UUID, status domain.LeadStatus, now time.Time) (*domain.LeadEvent, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var current domain.LeadStatus
	err = tx.QueryRow(ctx, `SELECT status FROM leads WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock lead: %w", err)
	}

	if current != status {
		if _, err := tx.Exec(ctx, `
			UPDATE leads SET status = $2, updated_at = $3 WHERE id = $1
		`, id, status, now); err != nil {
			return nil, fmt.Errorf("update lead status: %w", err)
		}
	}

	event := domain.NewLeadEvent(id, status, now)
	if _, err := tx.Exec(ctx, `
		INSERT INTO lead_events (id, lead_id, status, created_at)
		VALUES ($1, $2, $3, $4)
	`, event.ID, event.LeadID, event.Status, event.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert lead event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return event, nil
}

// ListEvents возвращает историю смены статусов (по умолчанию created_at desc).
func (r *LeadRepo) ListEvents(ctx context.Context, params ListParams) ([]domain.LeadEvent, error) {
	p := params.normalize([]string{"status", "created_at"}, "created_at")
	query := `
		SELECT id, lead_id, status, created_at
		FROM lead_events
		` + p.orderClause() + `
		LIMIT $1 OFFSET $2
	`
	rows, err := r.pool.Query(ctx, query, p.Limit, p.Offset)
	if err != nil {
		return nil, fmt.Errorf("list lead events: %w", err)
	}
	defer rows.Close()

	var events []domain.LeadEvent
	for rows.Next() {
		var e domain.LeadEvent
		if err := rows.Scan(&e.ID, &e.LeadID, &e.Status, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan lead event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// scanLead сканирует одну строку в Lead.
// pgx.Rows тоже реализует pgx.Row, поэтому функция общая для QueryRow и Query.
func scanLead(row pgx.Row) (*domain.Lead, error) {
	var lead domain.Lead
	err := row.Scan(&lead.ID, &lead.Phone, &lead.Status, &lead.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan lead: %w", err)
	}
	return &lead, nil
}
