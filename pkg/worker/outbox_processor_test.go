package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

type fakeBroker struct {
	mu        sync.Mutex
	failTimes int
	published []messaging.Message
}

func (b *fakeBroker) Publish(_ context.Context, _ string, message interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failTimes > 0 {
		b.failTimes--
		return errors.New("broker down")
	}
	b.published = append(b.published, message.(messaging.Message))
	return nil
}

func (b *fakeBroker) Subscribe(context.Context, string) (<-chan []byte, error) { return nil, nil }
func (b *fakeBroker) Close() error                                              { return nil }

func newProcessor(broker messaging.Broker, attempts int) (*OutboxProcessor, *memoryOutbox) {
	store := memory.NewStore()
	p := NewOutboxProcessor(store.Outbox, broker, OutboxProcessorConfig{
		Channel:       "clinic.events",
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: attempts,
		RetryDelay:    time.Millisecond,
	}, logger.Nop(), metrics.NewMetrics(prometheus.NewRegistry(), "test", "outbox"))
	return p, &memoryOutbox{store.Outbox}
}

type memoryOutbox struct {
	repo repository.OutboxRepository
}

func (m *memoryOutbox) add(t *testing.T, eventType string) *model.OutboxEvent {
	e := &model.OutboxEvent{EventType: eventType, Payload: json.RawMessage(`{"k":"v"}`)}
	require.NoError(t, m.repo.Create(context.Background(), e))
	return e
}

func TestProcessBatchPublishesAndMarksProcessed(t *testing.T) {
	broker := &fakeBroker{}
	p, outbox := newProcessor(broker, 1)
	e := outbox.add(t, model.EventAppointmentBooked)

	require.NoError(t, p.ProcessBatch(context.Background()))

	require.Len(t, broker.published, 1)
	assert.Equal(t, e.ID.String(), broker.published[0].ID)
	assert.Equal(t, model.EventAppointmentBooked, broker.published[0].Type)

	pending, err := outbox.repo.GetPendingEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestProcessBatchRetriesBeforeGivingUp(t *testing.T) {
	broker := &fakeBroker{failTimes: 1}
	p, outbox := newProcessor(broker, 2)
	outbox.add(t, model.EventRatingSubmitted)

	require.NoError(t, p.ProcessBatch(context.Background()))
	assert.Len(t, broker.published, 1)
}

func TestProcessBatchMarksFailedEvents(t *testing.T) {
	broker := &fakeBroker{failTimes: 5}
	p, outbox := newProcessor(broker, 2)
	outbox.add(t, model.EventDoctorCreated)

	require.NoError(t, p.ProcessBatch(context.Background()))
	assert.Empty(t, broker.published)

	// failed events leave the pending queue
	pending, err := outbox.repo.GetPendingEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestNewOutboxProcessorRejectsBadConfig(t *testing.T) {
	assert.Panics(t, func() {
		NewOutboxProcessor(nil, nil, OutboxProcessorConfig{Channel: "x"}, logger.Nop(), nil)
	})
}
