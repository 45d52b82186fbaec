package audit

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisherWorkerRoundTrip(t *testing.T) {
	store := NewInMemoryStore()
	publisher := NewPublisher(8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker := NewWorker(store, publisher.Inbox(), slog.New(slog.DiscardHandler))
	done := make(chan struct{})
	go func() {
		_ = worker.Run(ctx)
		close(done)
	}()

	publisher.Emit(ctx, Event{UserID: "u1", Action: ActionLogin, Outcome: OutcomeSuccess})
	publisher.Emit(ctx, Event{UserID: "u2", Action: ActionGrantIssued, Outcome: OutcomeSuccess})
	publisher.Emit(ctx, Event{UserID: "u1", Action: ActionLogout, Outcome: OutcomeSuccess})

	require.Eventually(t, func() bool {
		events, err := store.ListByUser(context.Background(), "u1")
		return err == nil && len(events) == 2
	}, time.Second, 10*time.Millisecond)

	events, err := store.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, ActionLogin, events[0].Action)
	assert.Equal(t, ActionLogout, events[1].Action)
	assert.False(t, events[0].Timestamp.IsZero(), "emit stamps events")

	cancel()
	<-done
}

func TestEmitNeverBlocks(t *testing.T) {
	publisher := NewPublisher(1)

	// No worker draining; the second emit must drop instead of blocking.
	publisher.Emit(context.Background(), Event{Action: ActionLogin})
	finished := make(chan struct{})
	go func() {
		publisher.Emit(context.Background(), Event{Action: ActionLogout})
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("emit blocked on a full inbox")
	}
}
