package audit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var droppedEvents = promauto.NewCounter(prometheus.CounterOpts{
	Name: "canguard_audit_events_dropped_total",
	Help: "Audit events dropped because the inbox was full",
})

// Publisher hands events to the background worker. Emit never blocks the
// request path: when the inbox is full the event is dropped and counted.
type Publisher struct {
	inbox chan Event
}

func NewPublisher(buffer int) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Publisher{inbox: make(chan Event, buffer)}
}

func (p *Publisher) Emit(_ context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
	default:
		droppedEvents.Inc()
	}
}

// Inbox exposes the channel for the worker.
func (p *Publisher) Inbox() <-chan Event { return p.inbox }
