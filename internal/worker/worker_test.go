package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Leadflow/internal/domain"
	"github.com/shaiso/Leadflow/internal/followuptest"
	"github.com/shaiso/Leadflow/internal/lock"
	"github.com/shaiso/Leadflow/internal/mq"
	"github.com/shaiso/Leadflow/internal/scheduler"
	"github.com/shaiso/Leadflow/internal/telemetry"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type sentSMS struct {
	Phone string
	Text  string
}

// fakeSMS запоминает отправленные сообщения.
type fakeSMS struct {
	mu   sync.Mutex
	sent []sentSMS
	err  error
}

func (f *fakeSMS) Send(_ context.Context, phone, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentSMS{Phone: phone, Text: text})
	return nil
}

func (f *fakeSMS) Sent() []sentSMS {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentSMS(nil), f.sent...)
}

func newTestSender(store *followuptest.Store, sms *fakeSMS) *FollowupSender {
	return NewFollowupSender(SenderConfig{
		Leads:           store.Leads(),
		Rules:           store.Rules(),
		Followups:       store.Followups(),
		SMS:             sms,
		RepeatThreshold: 24 * time.Hour,
		Now:             func() time.Time { return testNow },
		Logger:          telemetry.DiscardLogger(),
	})
}

// --- FollowupSender ---

func TestSendFollowup_CreatesRecordAndSends(t *testing.T) {
	store := followuptest.NewStore()
	rule := store.AddRule(domain.LeadStatusNew, 1, "Still interested?", true)
	lead := store.AddLead("+1000", domain.LeadStatusNew, testNow.Add(-2*time.Minute))
	sms := &fakeSMS{}

	err := newTestSender(store, sms).SendFollowup(context.Background(), lead.ID, rule.ID)

	require.NoError(t, err)
	followups := store.FollowupsFor(lead.ID, rule.ID)
	require.Len(t, followups, 1)
	assert.Equal(t, testNow, followups[0].CreatedAt)
	assert.Equal(t, []sentSMS{{Phone: "+1000", Text: "Still interested?"}}, sms.Sent())
}

func TestSendFollowup_SkipsWithinThreshold(t *testing.T) {
	store := followuptest.NewStore()
	rule := store.AddRule(domain.LeadStatusNew, 10, "ping", true)
	lead := store.AddLead("+1000", domain.LeadStatusNew, testNow.Add(-3*time.Hour))
	store.AddFollowup(lead.ID, rule.ID, testNow.Add(-time.Hour))
	sms := &fakeSMS{}

	err := newTestSender(store, sms).SendFollowup(context.Background(), lead.ID, rule.ID)

	require.NoError(t, err)
	assert.Len(t, store.FollowupsFor(lead.ID, rule.ID), 1)
	assert.Empty(t, sms.Sent())
}

func TestSendFollowup_RefiresAfterThreshold(t *testing.T) {
	store := followuptest.NewStore()
	rule := store.AddRule(domain.LeadStatusNew, 10, "ping", true)
	lead := store.AddLead("+1000", domain.LeadStatusNew, testNow.Add(-72*time.Hour))
	store.AddFollowup(lead.ID, rule.ID, testNow.Add(-25*time.Hour))
	sms := &fakeSMS{}

	err := newTestSender(store, sms).SendFollowup(context.Background(), lead.ID, rule.ID)

	require.NoError(t, err)
	assert.Len(t, store.FollowupsFor(lead.ID, rule.ID), 2)
	assert.Len(t, sms.Sent(), 1)
}

func TestSendFollowup_ThresholdIgnoresStatusEpisode(t *testing.T) {
	store := followuptest.NewStore()
	rule := store.AddRule(domain.LeadStatusNew, 10, "ping", true)
	// Лид сменил статус после follow-up, но порог ещё не истёк
	lead := store.AddLead("+1000", domain.LeadStatusNew, testNow.Add(-30*time.Minute))
	store.AddFollowup(lead.ID, rule.ID, testNow.Add(-2*time.Hour))
	sms := &fakeSMS{}

	err := newTestSender(store, sms).SendFollowup(context.Background(), lead.ID, rule.ID)

	require.NoError(t, err)
	assert.Len(t, store.FollowupsFor(lead.ID, rule.ID), 1)
	assert.Empty(t, sms.Sent())
}

func TestSendFollowup_ConcurrentDuplicatesSendOnce(t *testing.T) {
	store := followuptest.NewStore()
	rule := store.AddRule(domain.LeadStatusNew, 1, "ping", true)
	lead := store.AddLead("+1000", domain.LeadStatusNew, testNow.Add(-time.Hour))
	sms := &fakeSMS{}
	sender := newTestSender(store, sms)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, sender.SendFollowup(context.Background(), lead.ID, rule.ID))
		}()
	}
	wg.Wait()

	assert.Len(t, store.FollowupsFor(lead.ID, rule.ID), 1)
	assert.Len(t, sms.Sent(), 1)
}

func TestSendFollowup_LeadNotFound(t *testing.T) {
	store := followuptest.NewStore()
	rule := store.AddRule(domain.LeadStatusNew, 1, "ping", true)
	lead := store.AddLead("+1000", domain.LeadStatusNew, testNow.Add(-time.Hour))
	store.DeleteLead(lead.ID)
	sms := &fakeSMS{}

	err := newTestSender(store, sms).SendFollowup(context.Background(), lead.ID, rule.ID)

	assert.ErrorIs(t, err, ErrLeadNotFound)
	assert.Empty(t, store.FollowupsFor(lead.ID, rule.ID))
	assert.Empty(t, sms.Sent())
}

func TestSendFollowup_RuleNotFound(t *testing.T) {
	store := followuptest.NewStore()
	lead := store.AddLead("+1000", domain.LeadStatusNew, testNow.Add(-time.Hour))

	err := newTestSender(store, &fakeSMS{}).SendFollowup(context.Background(), lead.ID, uuid.New())

	assert.ErrorIs(t, err, ErrRuleNotFound)
}

func TestSendFollowup_SendFailureKeepsRecord(t *testing.T) {
	store := followuptest.NewStore()
	rule := store.AddRule(domain.LeadStatusNew, 1, "ping", true)
	lead := store.AddLead("+1000", domain.LeadStatusNew, testNow.Add(-time.Hour))
	gatewayErr := errors.New("gateway unavailable")
	sms := &fakeSMS{err: gatewayErr}
	sender := newTestSender(store, sms)

	err := sender.SendFollowup(context.Background(), lead.ID, rule.ID)

	assert.ErrorIs(t, err, ErrSendFailed)
	assert.ErrorIs(t, err, gatewayErr)
	assert.Len(t, store.FollowupsFor(lead.ID, rule.ID), 1)

	// Повторная доставка отсекается дедупликацией
	sms.err = nil
	require.NoError(t, sender.SendFollowup(context.Background(), lead.ID, rule.ID))
	assert.Len(t, store.FollowupsFor(lead.ID, rule.ID), 1)
	assert.Empty(t, sms.Sent())
}

func TestSendFollowup_DatabaseError(t *testing.T) {
	store := followuptest.NewStore()
	store.Err = errors.New("db down")

	err := newTestSender(store, &fakeSMS{}).SendFollowup(context.Background(), uuid.New(), uuid.New())

	assert.ErrorIs(t, err, store.Err)
	assert.NotErrorIs(t, err, ErrLeadNotFound)
}

// --- handleFollowupSend ---

func newDelivery(t *testing.T, msgType mq.MessageType, payload any) *mq.Delivery {
	t.Helper()
	msg, err := mq.NewMessage(msgType, payload)
	require.NoError(t, err)
	return &mq.Delivery{Message: *msg}
}

func TestHandleFollowupSend_AckPolicy(t *testing.T) {
	store := followuptest.NewStore()
	rule := store.AddRule(domain.LeadStatusNew, 1, "ping", true)
	lead := store.AddLead("+1000", domain.LeadStatusNew, testNow.Add(-time.Hour))
	sms := &fakeSMS{}
	w := New(Config{Sender: newTestSender(store, sms), Logger: telemetry.DiscardLogger()})
	ctx := context.Background()

	payload := mq.FollowupSendPayload{LeadID: lead.ID, RuleID: rule.ID}

	// Успех
	require.NoError(t, w.handleFollowupSend(ctx, newDelivery(t, mq.MessageTypeFollowupSend, payload)))
	assert.Len(t, sms.Sent(), 1)

	// Дубликат — ack без отправки
	require.NoError(t, w.handleFollowupSend(ctx, newDelivery(t, mq.MessageTypeFollowupSend, payload)))
	assert.Len(t, sms.Sent(), 1)

	// Лид не найден: ack
	missing := mq.FollowupSendPayload{LeadID: uuid.New(), RuleID: rule.ID}
	assert.NoError(t, w.handleFollowupSend(ctx, newDelivery(t, mq.MessageTypeFollowupSend, missing)))
}

func TestHandleFollowupSend_SendFailureAcked(t *testing.T) {
	store := followuptest.NewStore()
	rule := store.AddRule(domain.LeadStatusNew, 1, "ping", true)
	lead := store.AddLead("+1000", domain.LeadStatusNew, testNow.Add(-time.Hour))
	w := New(Config{Sender: newTestSender(store, &fakeSMS{err: errors.New("boom")}), Logger: telemetry.DiscardLogger()})

	err := w.handleFollowupSend(context.Background(),
		newDelivery(t, mq.MessageTypeFollowupSend, mq.FollowupSendPayload{LeadID: lead.ID, RuleID: rule.ID}))

	assert.NoError(t, err)
}

func TestHandleFollowupSend_DatabaseErrorRequeued(t *testing.T) {
	store := followuptest.NewStore()
	store.Err = errors.New("db down")
	w := New(Config{Sender: newTestSender(store, &fakeSMS{}), Logger: telemetry.DiscardLogger()})

	err := w.handleFollowupSend(context.Background(),
		newDelivery(t, mq.MessageTypeFollowupSend, mq.FollowupSendPayload{LeadID: uuid.New(), RuleID: uuid.New()}))

	assert.ErrorIs(t, err, store.Err)
	assert.NotErrorIs(t, err, mq.ErrReject)
}

func TestHandleFollowupSend_Rejects(t *testing.T) {
	w := New(Config{Sender: newTestSender(followuptest.NewStore(), &fakeSMS{}), Logger: telemetry.DiscardLogger()})
	ctx := context.Background()

	err := w.handleFollowupSend(ctx, newDelivery(t, "lead.created", map[string]string{}))
	assert.ErrorIs(t, err, mq.ErrReject)

	bad := &mq.Delivery{Message: mq.Message{Type: mq.MessageTypeFollowupSend, Payload: json.RawMessage(`"oops"`)}}
	assert.ErrorIs(t, w.handleFollowupSend(ctx, bad), mq.ErrReject)
}

// stoppableSMS сигнализирует о начале отправки и завершается либо по
// release, либо по отмене ctx.
type stoppableSMS struct {
	started chan struct{}
	release chan struct{}

	mu        sync.Mutex
	delivered int
}

func (s *stoppableSMS) Send(ctx context.Context, _, _ string) error {
	close(s.started)
	select {
	case <-s.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.mu.Lock()
	s.delivered++
	s.mu.Unlock()
	return nil
}

func TestHandleFollowupSend_ShutdownDoesNotCancelSend(t *testing.T) {
	store := followuptest.NewStore()
	rule := store.AddRule(domain.LeadStatusNew, 1, "ping", true)
	lead := store.AddLead("+1000", domain.LeadStatusNew, testNow.Add(-time.Hour))
	sms := &stoppableSMS{started: make(chan struct{}), release: make(chan struct{})}
	w := New(Config{
		Sender: NewFollowupSender(SenderConfig{
			Leads:           store.Leads(),
			Rules:           store.Rules(),
			Followups:       store.Followups(),
			SMS:             sms,
			RepeatThreshold: 24 * time.Hour,
			SendTimeout:     5 * time.Second,
			Now:             func() time.Time { return testNow },
			Logger:          telemetry.DiscardLogger(),
		}),
		Logger: telemetry.DiscardLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.handleFollowupSend(ctx,
			newDelivery(t, mq.MessageTypeFollowupSend, mq.FollowupSendPayload{LeadID: lead.ID, RuleID: rule.ID}))
	}()

	<-sms.started
	cancel() // SIGTERM во время отправки
	close(sms.release)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("handler did not return")
	}

	assert.Len(t, store.FollowupsFor(lead.ID, rule.ID), 1)
	sms.mu.Lock()
	defer sms.mu.Unlock()
	assert.Equal(t, 1, sms.delivered, "record exists, so the SMS must be delivered")
}

// --- InlineEnqueuer ---

func TestInlineEnqueuer_SendsInBackground(t *testing.T) {
	store := followuptest.NewStore()
	rule := store.AddRule(domain.LeadStatusNew, 1, "ping", true)
	lead := store.AddLead("+1000", domain.LeadStatusNew, testNow.Add(-time.Hour))
	sms := &fakeSMS{}
	enqueuer := NewInlineEnqueuer(newTestSender(store, sms), 2, telemetry.DiscardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, enqueuer.EnqueueFollowup(ctx, domain.Pair{LeadID: lead.ID, RuleID: rule.ID}))
	cancel()
	enqueuer.Wait()

	assert.Len(t, sms.Sent(), 1, "send must outlive the enqueue context")
}

// blockingSMS держит отправку до закрытия release.
type blockingSMS struct {
	release chan struct{}
}

func (b *blockingSMS) Send(ctx context.Context, _, _ string) error {
	<-b.release
	return nil
}

func TestInlineEnqueuer_Busy(t *testing.T) {
	store := followuptest.NewStore()
	rule := store.AddRule(domain.LeadStatusNew, 1, "ping", true)
	first := store.AddLead("+1001", domain.LeadStatusNew, testNow.Add(-time.Hour))
	second := store.AddLead("+1002", domain.LeadStatusNew, testNow.Add(-time.Hour))

	blocking := &blockingSMS{release: make(chan struct{})}
	sender := NewFollowupSender(SenderConfig{
		Leads:     store.Leads(),
		Rules:     store.Rules(),
		Followups: store.Followups(),
		SMS:       blocking,
		Now:       func() time.Time { return testNow },
		Logger:    telemetry.DiscardLogger(),
	})
	enqueuer := NewInlineEnqueuer(sender, 1, telemetry.DiscardLogger())

	require.NoError(t, enqueuer.EnqueueFollowup(context.Background(), domain.Pair{LeadID: first.ID, RuleID: rule.ID}))
	err := enqueuer.EnqueueFollowup(context.Background(), domain.Pair{LeadID: second.ID, RuleID: rule.ID})
	assert.ErrorIs(t, err, ErrInlineBusy)

	close(blocking.release)
	enqueuer.Wait()
	assert.Empty(t, store.FollowupsFor(second.ID, rule.ID))
}

// --- Scheduler + worker ---

func TestScheduledFollowupEndToEnd(t *testing.T) {
	store := followuptest.NewStore()
	rule := store.AddRule(domain.LeadStatusNew, 1, "Still interested?", true)
	lead := store.AddLead("+1000", domain.LeadStatusNew, testNow.Add(-2*time.Minute))
	disabled := store.AddRule(domain.LeadStatusNew, 1, "disabled rule", false)

	sms := &fakeSMS{}
	logger := telemetry.DiscardLogger()
	enqueuer := NewInlineEnqueuer(newTestSender(store, sms), 4, logger)
	sched := scheduler.New(scheduler.Config{
		Locker:     lock.New(store.Locks(), logger),
		Scanner:    scheduler.NewScanner(store.Scan(), 24*time.Hour, logger),
		Dispatcher: scheduler.NewDispatcher(enqueuer, logger),
		Now:        func() time.Time { return testNow },
		Logger:     logger,
	})

	ran, err := sched.Tick(context.Background())
	require.NoError(t, err)
	require.True(t, ran)
	enqueuer.Wait()

	assert.Len(t, store.FollowupsFor(lead.ID, rule.ID), 1)
	assert.Empty(t, store.FollowupsFor(lead.ID, disabled.ID))
	assert.Equal(t, []sentSMS{{Phone: "+1000", Text: "Still interested?"}}, sms.Sent())

	// Следующий тик не находит пару: follow-up уже есть в этом эпизоде
	ran, err = sched.Tick(context.Background())
	require.NoError(t, err)
	require.True(t, ran)
	enqueuer.Wait()

	assert.Len(t, store.FollowupsFor(lead.ID, rule.ID), 1)
	assert.Len(t, sms.Sent(), 1)
}
