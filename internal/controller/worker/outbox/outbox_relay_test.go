package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kactica/og-image-generator/internal/entity"
	"github.com/kactica/og-image-generator/pkg/logger"
)

// fakeEventSource serves one batch of pending events and records the batch
// transitions the relay applies.
type fakeEventSource struct {
	mu      sync.Mutex
	pending []*entity.OutboxEvent

	processing [][]uuid.UUID
	completed  [][]uuid.UUID
	retried    [][]uuid.UUID
}

func (f *fakeEventSource) ClaimPending(_ context.Context, _ int) ([]*entity.Screenshot, error) {
	return nil, nil
}

func (f *fakeEventSource) CompleteTask(_ context.Context, _ *entity.Screenshot, _ *entity.Artifact) error {
	return nil
}

func (f *fakeEventSource) FailTask(_ context.Context, _ *entity.Screenshot, _ string) error {
	return nil
}

func (f *fakeEventSource) GetPendingEvents(_ context.Context, _, _ int) ([]*entity.OutboxEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	events := f.pending
	f.pending = nil

	return events, nil
}

func ids(events []*entity.OutboxEvent) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}

	return out
}

func (f *fakeEventSource) MarkAsProcessingBatch(_ context.Context, events []*entity.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.processing = append(f.processing, ids(events))

	return nil
}

func (f *fakeEventSource) MarkAsCompletedBatch(_ context.Context, events []*entity.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.completed = append(f.completed, ids(events))

	return nil
}

func (f *fakeEventSource) IncrementRetryCountBatch(_ context.Context, events []*entity.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.retried = append(f.retried, ids(events))

	return nil
}

func (f *fakeEventSource) MarkMaxRetriesAsFailed(_ context.Context, _ int) error { return nil }
func (f *fakeEventSource) CleanupOutbox(_ context.Context) error { return nil }

type fakeSender struct {
	mu      sync.Mutex
	sent    [][]*entity.OutboxEvent
	sendErr error
	closed  bool

	notify chan struct{}
}

func newFakeSender() *fakeSender {
	return &fakeSender{notify: make(chan struct{}, 16)}
}

func (f *fakeSender) SendEvents(_ context.Context, events []*entity.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	defer func() { f.notify <- struct{}{} }()

	if f.sendErr != nil {
		return f.sendErr
	}

	f.sent = append(f.sent, events)

	return nil
}

func (f *fakeSender) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true

	return nil
}

func startRelay(t *testing.T, source *fakeEventSource, sender *fakeSender) *OutboxRelay {
	t.Helper()

	relay := New(
		source,
		sender,
		logger.New("error"),
		10*time.Millisecond,
		time.Hour,
		time.Hour,
		time.Second,
		100,
		3,
	)

	require.NoError(t, relay.Start(context.Background()))

	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = relay.Shutdown(shutdownCtx)
	})

	return relay
}

func pendingEvent() *entity.OutboxEvent {
	return &entity.OutboxEvent{
		ID:          uuid.New(),
		AggregateID: uuid.New(),
		Payload:     []byte(`{"type":"screenshot.completed"}`),
		Status:      entity.Pending,
		CreatedAt:   time.Now(),
	}
}

func waitForSend(t *testing.T, sender *fakeSender) {
	t.Helper()

	select {
	case <-sender.notify:
	case <-time.After(5 * time.Second):
		t.Fatal("no send observed")
	}
}

func TestRelayShipsPendingEvents(t *testing.T) {
	events := []*entity.OutboxEvent{pendingEvent(), pendingEvent()}
	source := &fakeEventSource{pending: events}
	sender := newFakeSender()

	startRelay(t, source, sender)
	waitForSend(t, sender)

	require.Eventually(t, func() bool {
		source.mu.Lock()
		defer source.mu.Unlock()

		return len(source.completed) == 1
	}, 5*time.Second, 10*time.Millisecond)

	source.mu.Lock()
	defer source.mu.Unlock()
	require.Len(t, source.processing, 1)
	assert.ElementsMatch(t, ids(events), source.processing[0])
	assert.ElementsMatch(t, ids(events), source.completed[0])
	assert.Empty(t, source.retried)
}

func TestRelayRetriesFailedSend(t *testing.T) {
	events := []*entity.OutboxEvent{pendingEvent()}
	source := &fakeEventSource{pending: events}
	sender := newFakeSender()
	sender.sendErr = errors.New("broker down")

	startRelay(t, source, sender)
	waitForSend(t, sender)

	require.Eventually(t, func() bool {
		source.mu.Lock()
		defer source.mu.Unlock()

		return len(source.retried) == 1
	}, 5*time.Second, 10*time.Millisecond)

	source.mu.Lock()
	defer source.mu.Unlock()
	assert.ElementsMatch(t, ids(events), source.retried[0])
	assert.Empty(t, source.completed)
}

func TestRelayStartTwiceFails(t *testing.T) {
	relay := startRelay(t, &fakeEventSource{}, newFakeSender())

	assert.Error(t, relay.Start(context.Background()))
}

func TestRelayShutdownClosesSender(t *testing.T) {
	sender := newFakeSender()
	relay := startRelay(t, &fakeEventSource{}, sender)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, relay.Shutdown(shutdownCtx))

	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.True(t, sender.closed)
}
