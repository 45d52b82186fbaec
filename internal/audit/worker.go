package audit

import (
	"context"
	"log/slog"
)

// Sink receives a copy of every persisted event, e.g. a Kafka producer.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Worker consumes audit events from the publisher's inbox, persists them,
// and fans out to optional sinks. Sink failures are logged, not fatal; the
// store is the system of record.
type Worker struct {
	store  Store
	sinks  []Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(store Store, inbox <-chan Event, logger *slog.Logger, sinks ...Sink) *Worker {
	return &Worker{store: store, sinks: sinks, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				return err
			}
			for _, sink := range w.sinks {
				if err := sink.Publish(ctx, event); err != nil {
					w.logger.WarnContext(ctx, "audit sink publish failed",
						"action", event.Action,
						"error", err,
					)
				}
			}
		}
	}
}
