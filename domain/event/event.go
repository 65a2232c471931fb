// Package event defines the domain events flowing through the fan-out
// pipeline. Events are best-effort notifications for side effects
// (archive, metrics), never part of the routing path itself.
package event

import "chat-relay/domain"

type DomainEvent interface {
	Conversation() string
}

// EntryLogged is emitted after a ChatEntry has been written to its
// conversation log on disk.
type EntryLogged struct {
	Key   string
	Entry domain.ChatEntry
}

func (e EntryLogged) Conversation() string {
	return e.Key
}
