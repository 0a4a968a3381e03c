// Package followuptest предоставляет in-memory реализации репозиториев
// для тестов scheduler, worker и api.
//
// Store повторяет семантику SQL-запросов из internal/repo:
// уникальность телефона и (status, delay), NOT EXISTS-исключение
// сканера, дедупликацию CreateUnlessRecent и протухание блокировок.
package followuptest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Leadflow/internal/domain"
	"github.com/shaiso/Leadflow/internal/repo"
)

// Store — общее in-memory состояние всех фейковых репозиториев.
type Store struct {
	mu sync.Mutex

	// Now — часы «БД». По умолчанию time.Now.
	Now func() time.Time

	leads     map[uuid.UUID]domain.Lead
	events    []domain.LeadEvent
	rules     map[uuid.UUID]domain.FollowupRule
	followups []domain.Followup
	locks     map[string]*time.Time

	// Err, если задан, возвращается из всех операций (недоступная БД).
	Err error
}

// NewStore создаёт пустой Store.
func NewStore() *Store {
	return &Store{
		Now:   time.Now,
		leads: make(map[uuid.UUID]domain.Lead),
		rules: make(map[uuid.UUID]domain.FollowupRule),
		locks: make(map[string]*time.Time),
	}
}

func (s *Store) now() time.Time {
	return s.Now().UTC()
}

// AddLead добавляет лида с заданным updated_at.
func (s *Store) AddLead(phone string, status domain.LeadStatus, updatedAt time.Time) domain.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()

	lead := domain.Lead{ID: uuid.New(), Phone: phone, Status: status, UpdatedAt: updatedAt.UTC()}
	s.leads[lead.ID] = lead
	return lead
}

// DeleteLead удаляет лида (имитирует удаление между сканом и отправкой).
func (s *Store) DeleteLead(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.leads, id)
}

// Lead возвращает текущее состояние лида.
func (s *Store) Lead(id uuid.UUID) (domain.Lead, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[id]
	return lead, ok
}

// AddRule добавляет правило.
func (s *Store) AddRule(status domain.LeadStatus, delayMinutes int, text string, enabled bool) domain.FollowupRule {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule := domain.FollowupRule{
		ID:           uuid.New(),
		Status:       status,
		DelayMinutes: delayMinutes,
		Text:         text,
		IsEnabled:    enabled,
	}
	s.rules[rule.ID] = rule
	return rule
}

// AddFollowup добавляет запись follow-up с заданным created_at.
func (s *Store) AddFollowup(leadID, ruleID uuid.UUID, createdAt time.Time) domain.Followup {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := domain.Followup{ID: uuid.New(), LeadID: leadID, RuleID: ruleID, CreatedAt: createdAt.UTC()}
	s.followups = append(s.followups, f)
	return f
}

// FollowupsFor возвращает записи follow-up для пары.
func (s *Store) FollowupsFor(leadID, ruleID uuid.UUID) []domain.Followup {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []domain.Followup
	for _, f := range s.followups {
		if f.LeadID == leadID && f.RuleID == ruleID {
			result = append(result, f)
		}
	}
	return result
}

// Events возвращает историю статусов лида.
func (s *Store) Events(leadID uuid.UUID) []domain.LeadEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []domain.LeadEvent
	for _, e := range s.events {
		if e.LeadID == leadID {
			result = append(result, e)
		}
	}
	return result
}

// SetLockedAt выставляет locked_at блокировки напрямую.
func (s *Store) SetLockedAt(name string, lockedAt *time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks[name] = lockedAt
}

// LockedAt возвращает locked_at блокировки и признак существования строки.
func (s *Store) LockedAt(name string) (*time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lockedAt, ok := s.locks[name]
	return lockedAt, ok
}

// Leads возвращает фейковый репозиторий лидов.
func (s *Store) Leads() *LeadRepo { return &LeadRepo{s: s} }

// Rules возвращает фейковый репозиторий правил.
func (s *Store) Rules() *RuleRepo { return &RuleRepo{s: s} }

// Followups возвращает фейковый репозиторий follow-up.
func (s *Store) Followups() *FollowupRepo { return &FollowupRepo{s: s} }

// Locks возвращает фейковый репозиторий блокировок.
func (s *Store) Locks() *LockRepo { return &LockRepo{s: s} }

// Scan возвращает фейковый источник снимков для сканера.
func (s *Store) Scan() *ScanRepo { return &ScanRepo{s: s} }

// page применяет limit/offset к срезу.
func page[T any](items []T, params repo.ListParams) []T {
	limit := params.Limit
	if limit <= 0 {
		limit = repo.DefaultLimit
	}
	offset := max(params.Offset, 0)
	if offset >= len(items) {
		return nil
	}
	end := min(offset+limit, len(items))
	return items[offset:end]
}

// --- Leads ---

// LeadRepo — in-memory аналог repo.LeadRepo.
type LeadRepo struct{ s *Store }

func (r *LeadRepo) Create(_ context.Context, lead *domain.Lead) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	for _, existing := range r.s.leads {
		if existing.Phone == lead.Phone {
			return repo.ErrAlreadyExists
		}
	}
	r.s.leads[lead.ID] = *lead
	return nil
}

func (r *LeadRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Lead, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	lead, ok := r.s.leads[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &lead, nil
}

func (r *LeadRepo) List(_ context.Context, params repo.ListParams) ([]domain.Lead, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	leads := make([]domain.Lead, 0, len(r.s.leads))
	for _, lead := range r.s.leads {
		leads = append(leads, lead)
	}
	sort.Slice(leads, func(i, j int) bool {
		if params.OrderDir == "asc" {
			return leads[i].UpdatedAt.Before(leads[j].UpdatedAt)
		}
		return leads[i].UpdatedAt.After(leads[j].UpdatedAt)
	})
	return page(leads, params), nil
}

func (r *LeadRepo) SetStatus(_ context.Context, id uuid.UUID, status domain.LeadStatus, now time.Time) (*domain.LeadEvent, error) {
	if !status.IsValid() {
		return nil, domain.ErrInvalidStatus
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	lead, ok := r.s.leads[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	if lead.SetStatus(status, now) {
		r.s.leads[id] = lead
	}
	event := domain.NewLeadEvent(id, status, now)
	r.s.events = append(r.s.events, *event)
	return event, nil
}

func (r *LeadRepo) ListEvents(_ context.Context, params repo.ListParams) ([]domain.LeadEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	events := append([]domain.LeadEvent(nil), r.s.events...)
	sort.SliceStable(events, func(i, j int) bool { return events[i].CreatedAt.After(events[j].CreatedAt) })
	return page(events, params), nil
}

// --- Rules ---

// RuleRepo — in-memory аналог repo.RuleRepo.
type RuleRepo struct{ s *Store }

func (r *RuleRepo) Create(_ context.Context, rule *domain.FollowupRule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	for _, existing := range r.s.rules {
		if existing.Status == rule.Status && existing.DelayMinutes == rule.DelayMinutes {
			return repo.ErrAlreadyExists
		}
	}
	r.s.rules[rule.ID] = *rule
	return nil
}

func (r *RuleRepo) Upsert(_ context.Context, rule *domain.FollowupRule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	for id, existing := range r.s.rules {
		if existing.Status == rule.Status && existing.DelayMinutes == rule.DelayMinutes {
			rule.ID = id
			break
		}
	}
	r.s.rules[rule.ID] = *rule
	return nil
}

func (r *RuleRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.FollowupRule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	rule, ok := r.s.rules[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &rule, nil
}

func (r *RuleRepo) List(_ context.Context, params repo.ListParams) ([]domain.FollowupRule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	return page(sortedRules(r.s.rules, false), params), nil
}

func (r *RuleRepo) SetEnabled(_ context.Context, id uuid.UUID, enabled bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	rule, ok := r.s.rules[id]
	if !ok {
		return repo.ErrNotFound
	}
	rule.IsEnabled = enabled
	r.s.rules[id] = rule
	return nil
}

func sortedRules(all map[uuid.UUID]domain.FollowupRule, enabledOnly bool) []domain.FollowupRule {
	rules := make([]domain.FollowupRule, 0, len(all))
	for _, rule := range all {
		if enabledOnly && !rule.IsEnabled {
			continue
		}
		rules = append(rules, rule)
	}
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Status != rules[j].Status {
			return rules[i].Status < rules[j].Status
		}
		return rules[i].DelayMinutes < rules[j].DelayMinutes
	})
	return rules
}

// --- Followups ---

// FollowupRepo — in-memory аналог repo.FollowupRepo.
type FollowupRepo struct{ s *Store }

func (r *FollowupRepo) CreateUnlessRecent(_ context.Context, f *domain.Followup, since time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return false, r.s.Err
	}
	for _, existing := range r.s.followups {
		if existing.LeadID == f.LeadID && existing.RuleID == f.RuleID && existing.CreatedAt.After(since) {
			return false, nil
		}
	}
	r.s.followups = append(r.s.followups, *f)
	return true, nil
}

func (r *FollowupRepo) List(_ context.Context, params repo.ListParams) ([]domain.Followup, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	followups := append([]domain.Followup(nil), r.s.followups...)
	sort.SliceStable(followups, func(i, j int) bool { return followups[i].CreatedAt.After(followups[j].CreatedAt) })
	return page(followups, params), nil
}

// --- Locks ---

// LockRepo — in-memory аналог repo.LockRepo.
// Мьютекс Store играет роль строковой блокировки SELECT ... FOR UPDATE.
type LockRepo struct{ s *Store }

func (r *LockRepo) TryAcquire(_ context.Context, name string, timeout time.Duration) (domain.LockAttempt, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return domain.LockAttempt{}, r.s.Err
	}

	now := r.s.now()
	prev := domain.ExecutionLock{Name: name, LockedAt: r.s.locks[name]}
	if prev.IsHeld(now, timeout) {
		return domain.LockAttempt{LockedAt: *prev.LockedAt}, nil
	}

	r.s.locks[name] = &now
	return domain.LockAttempt{Acquired: true, LockedAt: now, Recovered: prev.IsStale(now, timeout)}, nil
}

func (r *LockRepo) Release(_ context.Context, name string, lockedAt time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return false, r.s.Err
	}
	current := r.s.locks[name]
	if current == nil || !current.Equal(lockedAt) {
		return false, nil
	}
	r.s.locks[name] = nil
	return true, nil
}

func (r *LockRepo) List(_ context.Context) ([]domain.ExecutionLock, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	locks := make([]domain.ExecutionLock, 0, len(r.s.locks))
	for name, lockedAt := range r.s.locks {
		locks = append(locks, domain.ExecutionLock{Name: name, LockedAt: lockedAt})
	}
	sort.Slice(locks, func(i, j int) bool { return locks[i].Name < locks[j].Name })
	return locks, nil
}

// --- Scan ---

// ScanRepo — in-memory аналог repo.ScanRepo.
// Снимок — копия состояния на момент вызова Snapshot.
type ScanRepo struct{ s *Store }

func (r *ScanRepo) Snapshot(ctx context.Context, fn func(ctx context.Context, view domain.StallView) error) error {
	r.s.mu.Lock()
	if r.s.Err != nil {
		r.s.mu.Unlock()
		return r.s.Err
	}
	view := &snapshotView{
		leads:     make([]domain.Lead, 0, len(r.s.leads)),
		rules:     sortedRules(r.s.rules, true),
		followups: append([]domain.Followup(nil), r.s.followups...),
	}
	for _, lead := range r.s.leads {
		view.leads = append(view.leads, lead)
	}
	r.s.mu.Unlock()

	sort.Slice(view.leads, func(i, j int) bool { return view.leads[i].UpdatedAt.Before(view.leads[j].UpdatedAt) })
	return fn(ctx, view)
}

type snapshotView struct {
	leads     []domain.Lead
	rules     []domain.FollowupRule
	followups []domain.Followup
}

func (v *snapshotView) ListEnabledRules(_ context.Context) ([]domain.FollowupRule, error) {
	return v.rules, nil
}

func (v *snapshotView) ListStalledLeadIDs(_ context.Context, rule domain.FollowupRule, cutoff, repeatSince time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, lead := range v.leads {
		if lead.Status != rule.Status || lead.UpdatedAt.After(cutoff) {
			continue
		}
		if v.followedUp(lead, rule.ID, repeatSince) {
			continue
		}
		ids = append(ids, lead.ID)
	}
	return ids, nil
}

// followedUp — аналог NOT EXISTS подзапроса из repo.ScanRepo.
func (v *snapshotView) followedUp(lead domain.Lead, ruleID uuid.UUID, repeatSince time.Time) bool {
	for _, f := range v.followups {
		if f.LeadID != lead.ID || f.RuleID != ruleID {
			continue
		}
		if !f.CreatedAt.Before(lead.UpdatedAt) && !f.CreatedAt.Before(repeatSince) {
			return true
		}
	}
	return false
}
