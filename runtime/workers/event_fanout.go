package workers

import (
	"context"
	"log/slog"

	"chat-relay/contract"
	"chat-relay/domain/event"
)

// EventFanout hands domain events to the registered in-process sinks.
//
// It is best-effort with no guarantees regarding delivery, ordering,
// durability, or retries. EventFanout is not a message broker; the
// conversation logs are the durable record, sinks only derive data
// (archive, search index) from them.
//
// EventFanout is safe for concurrent use by multiple goroutines.
type EventFanout struct {
	log    *slog.Logger
	events <-chan event.DomainEvent
	sinks  []contract.EventSink
}

func NewEventFanout(log *slog.Logger, events <-chan event.DomainEvent) *EventFanout {
	return &EventFanout{log: log, events: events}
}

func (w *EventFanout) Add(sinks ...contract.EventSink) *EventFanout {
	w.sinks = append(w.sinks, sinks...)
	return w
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt := <-w.events:
			w.fanout(ctx, evt)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping event fan-out")
			return nil
		}
	}
}

// fanout delivers one event to every sink. A failing sink is logged
// and skipped; it never blocks the other sinks.
func (w *EventFanout) fanout(ctx context.Context, evt event.DomainEvent) {
	for _, sink := range w.sinks {
		if err := sink.Consume(ctx, evt); err != nil {
			w.log.Warn("Event sink failed", "sink", contract.GetSinkName(sink), "error", err)
		}
	}
}
