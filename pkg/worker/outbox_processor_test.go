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
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	"github.com/jwalitptl/clinic-api/pkg/event"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

type published struct {
	topic   string
	payload []byte
}

type recordingBroker struct {
	mu       sync.Mutex
	messages []published
	failures int
}

func (b *recordingBroker) Publish(ctx context.Context, topic string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures > 0 {
		b.failures--
		return errors.New("broker unavailable")
	}
	b.messages = append(b.messages, published{topic: topic, payload: payload})
	return nil
}

func (b *recordingBroker) Close() error { return nil }

type mockOutbox struct {
	mock.Mock
}

func (m *mockOutbox) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	args := m.Called(limit)
	events, _ := args.Get(0).([]*model.OutboxEvent)
	return events, args.Error(1)
}

func (m *mockOutbox) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error {
	return m.Called(id, status, errMsg).Error(0)
}

func (m *mockOutbox) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(before)
	return args.Get(0).(int64), args.Error(1)
}

func testConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	}
}

func seedEvent(t *testing.T, s *memory.Store, eventType string) *model.OutboxEvent {
	t.Helper()
	e, err := event.New(eventType, uuid.New(), map[string]string{"status": "confirmed"})
	require.NoError(t, err)
	s.Seed(model.KindOutboxEvent, e)
	return e
}

func TestOutboxProcessor_PublishesEnvelopes(t *testing.T) {
	s := memory.NewStore()
	booked := seedEvent(t, s, model.EventAppointmentBooked)
	seedEvent(t, s, model.EventLabTestCompleted)

	broker := &recordingBroker{}
	p := NewOutboxProcessor(s.Outbox(), broker, testConfig(), logger.Nop(), metrics.New("test"))

	n, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, broker.messages, 2)
	topics := []string{broker.messages[0].topic, broker.messages[1].topic}
	assert.ElementsMatch(t, []string{model.EventAppointmentBooked, model.EventLabTestCompleted}, topics)

	for _, m := range broker.messages {
		if m.topic != model.EventAppointmentBooked {
			continue
		}
		var env event.Envelope
		require.NoError(t, json.Unmarshal(m.payload, &env))
		assert.Equal(t, booked.ID, env.ID)
		assert.Equal(t, booked.AggregateID, env.AggregateID)
		assert.JSONEq(t, `{"status":"confirmed"}`, string(env.Data))
	}

	pending, err := s.Outbox().GetPendingEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	n, err = p.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "processed events are not published twice")
}

func TestOutboxProcessor_RetriesTransientFailures(t *testing.T) {
	s := memory.NewStore()
	seedEvent(t, s, model.EventPaymentStatusChanged)

	broker := &recordingBroker{failures: 2}
	p := NewOutboxProcessor(s.Outbox(), broker, testConfig(), logger.Nop(), metrics.New("test"))

	n, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, broker.messages, 1)
}

func TestOutboxProcessor_MarksExhaustedEventFailed(t *testing.T) {
	e, err := event.New(model.EventVideoCallStarted, uuid.New(), struct{}{})
	require.NoError(t, err)

	repo := new(mockOutbox)
	repo.On("GetPendingEvents", 10).Return([]*model.OutboxEvent{e}, nil)
	repo.On("UpdateStatus", e.ID, model.OutboxStatusFailed, mock.MatchedBy(func(msg *string) bool {
		return msg != nil && *msg == "broker unavailable"
	})).Return(nil).Once()

	broker := &recordingBroker{failures: 100}
	p := NewOutboxProcessor(repo, broker, testConfig(), logger.Nop(), metrics.New("test"))

	n, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 97, broker.failures, "three attempts were made")
	repo.AssertExpectations(t)
}

func TestOutboxProcessor_RepositoryError(t *testing.T) {
	repo := new(mockOutbox)
	repo.On("GetPendingEvents", 10).Return(nil, errors.New("connection reset"))

	p := NewOutboxProcessor(repo, &recordingBroker{}, testConfig(), logger.Nop(), metrics.New("test"))
	_, err := p.ProcessBatch(context.Background())
	assert.ErrorContains(t, err, "connection reset")
}

func TestNewOutboxProcessor_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.BatchSize = 0
	assert.Panics(t, func() {
		NewOutboxProcessor(memory.NewStore().Outbox(), &recordingBroker{}, cfg, logger.Nop(), metrics.New("test"))
	})
}

func TestOutboxCleanupWorker(t *testing.T) {
	s := memory.NewStore()
	old := seedEvent(t, s, model.EventAppointmentBooked)
	seedEvent(t, s, model.EventAppointmentBooked)
	require.NoError(t, s.Outbox().UpdateStatus(context.Background(), old.ID, model.OutboxStatusProcessed, nil))

	w := NewOutboxCleanupWorker(s.Outbox(), time.Hour, time.Minute, logger.Nop(), metrics.New("test"))
	rows, err := w.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Zero(t, rows, "within retention")

	w.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	rows, err = w.Cleanup(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, rows)

	pending, err := s.Outbox().GetPendingEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1, "unpublished events are never purged")
}
