package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/helpdesk-kit/servicedesk/internal/config"
	"github.com/helpdesk-kit/servicedesk/internal/events"
	"github.com/helpdesk-kit/servicedesk/internal/repository"
)

type memoryOutbox struct {
	mu     sync.Mutex
	rows   []repository.OutboxRow
	nextID int64
}

func (o *memoryOutbox) Enqueue(_ context.Context, event events.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nextID++
	o.rows = append(o.rows, repository.OutboxRow{
		ID:            o.nextID,
		EventID:       event.ID,
		Payload:       event,
		NextAttemptAt: time.Now(),
		CreatedAt:     time.Now(),
	})
	return nil
}

func (o *memoryOutbox) ListDue(_ context.Context, now time.Time, maxAttempts, limit int) ([]repository.OutboxRow, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var due []repository.OutboxRow
	for _, row := range o.rows {
		if row.DispatchedAt == nil && row.Attempts < maxAttempts && !row.NextAttemptAt.After(now) {
			due = append(due, row)
		}
		if len(due) == limit {
			break
		}
	}
	return due, nil
}

func (o *memoryOutbox) MarkDispatched(_ context.Context, id int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.rows {
		if o.rows[i].ID == id {
			now := time.Now()
			o.rows[i].DispatchedAt = &now
			return nil
		}
	}
	return errors.New("row not found")
}

func (o *memoryOutbox) MarkFailed(_ context.Context, id int64, nextAttemptAt time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.rows {
		if o.rows[i].ID == id {
			o.rows[i].Attempts++
			o.rows[i].NextAttemptAt = nextAttemptAt
			return nil
		}
	}
	return errors.New("row not found")
}

func (o *memoryOutbox) row(id int64) repository.OutboxRow {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, row := range o.rows {
		if row.ID == id {
			return row
		}
	}
	return repository.OutboxRow{}
}

func workerConfig() config.WorkerConfig {
	return config.WorkerConfig{
		PollIntervalSeconds: 1,
		MaxAttempts:         3,
		BackoffSeconds:      30,
		BatchSize:           10,
	}
}

func TestDrainOnceDispatchesDueRows(t *testing.T) {
	outbox := &memoryOutbox{}
	ctx := context.Background()
	require.NoError(t, outbox.Enqueue(ctx, events.Event{ID: "evt-1", Kind: events.KindTicketClosed, TicketID: "t-1"}))
	require.NoError(t, outbox.Enqueue(ctx, events.Event{ID: "evt-2", Kind: events.KindTicketAssigned, TicketID: "t-2"}))

	var dispatched []events.Event
	handler := func(_ context.Context, event events.Event) error {
		dispatched = append(dispatched, event)
		return nil
	}

	w := NewNotificationWorker(outbox, handler, workerConfig(), zap.NewNop())
	w.DrainOnce(ctx)

	require.Len(t, dispatched, 2)
	assert.NotNil(t, outbox.row(1).DispatchedAt)
	assert.NotNil(t, outbox.row(2).DispatchedAt)

	// A second drain finds nothing left.
	dispatched = nil
	w.DrainOnce(ctx)
	assert.Empty(t, dispatched)
}

func TestDrainOnceRetriesWithBackoff(t *testing.T) {
	outbox := &memoryOutbox{}
	ctx := context.Background()
	require.NoError(t, outbox.Enqueue(ctx, events.Event{ID: "evt-1", Kind: events.KindTicketClosed, TicketID: "t-1"}))

	handler := func(_ context.Context, _ events.Event) error {
		return errors.New("mail relay down")
	}

	w := NewNotificationWorker(outbox, handler, workerConfig(), zap.NewNop())
	before := time.Now()
	w.DrainOnce(ctx)

	row := outbox.row(1)
	assert.Equal(t, 1, row.Attempts)
	assert.Nil(t, row.DispatchedAt)
	// Linear backoff: first failure delays by one backoff unit.
	assert.True(t, row.NextAttemptAt.After(before.Add(29*time.Second)))
	assert.True(t, row.NextAttemptAt.Before(before.Add(32*time.Second)))

	// The row is not due again until its next attempt time passes.
	var calls int
	w.dispatch = func(_ context.Context, _ events.Event) error {
		calls++
		return nil
	}
	w.DrainOnce(ctx)
	assert.Zero(t, calls)
}

func TestDrainOnceStopsRetryingAtAttemptCap(t *testing.T) {
	outbox := &memoryOutbox{}
	ctx := context.Background()
	require.NoError(t, outbox.Enqueue(ctx, events.Event{ID: "evt-1", Kind: events.KindTicketClosed, TicketID: "t-1"}))
	outbox.rows[0].Attempts = 3

	var calls int
	handler := func(_ context.Context, _ events.Event) error {
		calls++
		return nil
	}

	w := NewNotificationWorker(outbox, handler, workerConfig(), zap.NewNop())
	w.DrainOnce(ctx)

	assert.Zero(t, calls)
	assert.Nil(t, outbox.row(1).DispatchedAt)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	outbox := &memoryOutbox{}
	w := NewNotificationWorker(outbox, func(_ context.Context, _ events.Event) error { return nil }, workerConfig(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}
