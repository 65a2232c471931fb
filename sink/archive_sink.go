// Package sink holds the event consumers fed by the fan-out worker.
package sink

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chat-relay/domain/event"
	"chat-relay/repositories"
)

// ArchiveSink copies every persisted chat entry into the archive:
// badger for ordered raw storage, bluge for full-text search. It sits
// behind the fan-out, so archive trouble never slows the message path.
// The consume time drives the archive key order; events arrive in
// append order off a single channel.
type ArchiveSink struct {
	archive repositories.Archiver
	log     *slog.Logger
}

func NewArchiveSink(archive repositories.Archiver, log *slog.Logger) ArchiveSink {
	return ArchiveSink{archive: archive, log: log}
}

func (s ArchiveSink) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.EntryLogged:
		return s.archive.Store(evt.Key, evt.Entry, time.Now())
	default:
		s.log.Debug(fmt.Sprintf("Not implemented event : %v", evt))
		return nil
	}
}
