package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/AlanMedina53232/RawConnect/internal/checkout"
	"github.com/AlanMedina53232/RawConnect/internal/domain"
)

type mockRepo struct {
	events         []*checkout.OutboxEvent
	eventsErr      error
	processedIDs   []int64
	markErr        error
	abandoned      []*checkout.Session
	abandonedErr   error
	failedSessions map[string]string
	failErr        error
	failCallCount  int
}

func newMockRepo() *mockRepo {
	return &mockRepo{failedSessions: map[string]string{}}
}

func (m *mockRepo) CreateSession(context.Context, *checkout.Session) error { return nil }

func (m *mockRepo) GetSessionByIdempotencyKey(context.Context, string) (*checkout.Session, error) {
	return nil, nil
}

func (m *mockRepo) UpdateSessionStatus(context.Context, string, domain.CheckoutStatus) error {
	return nil
}

func (m *mockRepo) FailSession(_ context.Context, id string, reason string) error {
	m.failCallCount++
	if m.failErr != nil {
		return m.failErr
	}
	m.failedSessions[id] = reason
	return nil
}

func (m *mockRepo) CompleteSession(context.Context, string, []byte) error { return nil }

func (m *mockRepo) GetUnprocessedEvents(context.Context, int) ([]*checkout.OutboxEvent, error) {
	if m.eventsErr != nil {
		return nil, m.eventsErr
	}
	if len(m.events) > 0 {
		ev := []*checkout.OutboxEvent{m.events[0]}
		m.events = m.events[1:]
		return ev, nil
	}
	return nil, nil
}

func (m *mockRepo) MarkEventAsProcessed(_ context.Context, id int64) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.processedIDs = append(m.processedIDs, id)
	return nil
}

func (m *mockRepo) GetAbandonedSessions(context.Context, time.Duration) ([]*checkout.Session, error) {
	if m.abandonedErr != nil {
		return nil, m.abandonedErr
	}
	return m.abandoned, nil
}

func (m *mockRepo) RunMigrations(*checkout.Credentials) error { return nil }
func (m *mockRepo) Close() error                              { return nil }

func TestSweepAbandonedSessions_FailsStuckSessions(t *testing.T) {
	repo := newMockRepo()
	repo.abandoned = []*checkout.Session{
		{ID: "sess-1", Status: domain.CheckoutStatusPaymentCompleted, UpdatedAt: time.Now().Add(-time.Hour)},
		{ID: "sess-2", Status: domain.CheckoutStatusStockReserved, UpdatedAt: time.Now().Add(-time.Hour)},
	}

	poller := NewOutboxPoller(repo)
	poller.sweepAbandonedSessions(context.Background())

	require.Len(t, repo.failedSessions, 2)
	assert.Equal(t, "abandoned in status PAYMENT_COMPLETED", repo.failedSessions["sess-1"])
	assert.Equal(t, "abandoned in status STOCK_RESERVED", repo.failedSessions["sess-2"])
}

func TestSweepAbandonedSessions_RepoError(t *testing.T) {
	repo := newMockRepo()
	repo.abandonedErr = errors.New("database connection error")

	poller := NewOutboxPoller(repo)
	poller.sweepAbandonedSessions(context.Background())

	assert.Equal(t, 0, repo.failCallCount)
}

func TestSweepAbandonedSessions_Empty(t *testing.T) {
	repo := newMockRepo()

	poller := NewOutboxPoller(repo)
	poller.sweepAbandonedSessions(context.Background())

	assert.Empty(t, repo.failedSessions)
}

func TestSweepAbandonedSessions_FailErrorDoesNotStopSweep(t *testing.T) {
	repo := newMockRepo()
	repo.abandoned = []*checkout.Session{
		{ID: "sess-1", Status: domain.CheckoutStatusInitiated, UpdatedAt: time.Now().Add(-time.Hour)},
		{ID: "sess-2", Status: domain.CheckoutStatusInitiated, UpdatedAt: time.Now().Add(-time.Hour)},
	}
	repo.failErr = errors.New("database deadlock")

	poller := NewOutboxPoller(repo)
	poller.sweepAbandonedSessions(context.Background())

	assert.Equal(t, 2, repo.failCallCount)
}

func TestProcessUnpublishedEvents_FetchError(t *testing.T) {
	repo := newMockRepo()
	repo.eventsErr = errors.New("database connection error")

	poller := NewOutboxPoller(repo)
	poller.processUnpublishedEvents(context.Background())

	assert.Empty(t, repo.processedIDs)
}

func setupKafka(t *testing.T) (string, func()) {
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	}

	return brokers[0], cleanup
}

func TestOutboxPoller_PublishesEventsToKafka(t *testing.T) {
	brokerAddr, cleanup := setupKafka(t)
	defer cleanup()

	payload := json.RawMessage(`{"checkout_id":"chk-123","buyer_email":"buyer@test.mx"}`)
	repo := newMockRepo()
	repo.events = []*checkout.OutboxEvent{
		{
			ID:          1,
			AggregateID: "chk-123",
			EventType:   "checkout.completed",
			Payload:     payload,
			CreatedAt:   time.Now(),
		},
	}

	poller := NewOutboxPoller(repo, brokerAddr)
	defer poller.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	go poller.Run(ctx)

	reader := kafkaGo.NewReader(kafkaGo.ReaderConfig{
		Brokers:  []string{brokerAddr},
		Topic:    "order-events",
		GroupID:  "test-consumer",
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	msg, err := reader.ReadMessage(ctx)
	require.NoError(t, err)

	assert.Equal(t, "chk-123", string(msg.Key))
	assert.JSONEq(t, string(payload), string(msg.Value))

	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, "checkout.completed", string(msg.Headers[0].Value))

	require.NotEmpty(t, repo.processedIDs)
	assert.Equal(t, int64(1), repo.processedIDs[0])
}
