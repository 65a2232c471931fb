// Package search describes archive queries. It decouples what callers
// ask for (a term, an optional kind, a visibility scope) from the
// index engine actually serving the request.
package search

import "chat-relay/domain"

const (
	KindAll    = "all"
	KindDirect = "direct"
	KindGroup  = "group"
)

// Query selects archived entries matching a full-text term.
//
// When Participant is set, results are restricted to conversations that
// participant can see: entries they sent, direct entries addressed to
// them, and entries of the groups listed in Groups. An empty Participant
// searches the whole archive (offline viewer use).
type Query struct {
	Terms       string
	Kind        string
	Participant string
	Groups      []string
	Limit       int
}

// ForParticipant builds the scoped query backing the live search command.
func ForParticipant(name, terms string, groups []string, limit int) Query {
	return Query{
		Terms:       terms,
		Kind:        KindAll,
		Participant: name,
		Groups:      groups,
		Limit:       limit,
	}
}

// ByKind builds an unscoped query, optionally filtered by entry type.
func ByKind(terms, kind string, limit int) Query {
	if kind != KindDirect && kind != KindGroup {
		kind = KindAll
	}
	return Query{Terms: terms, Kind: kind, Limit: limit}
}

// Result is one archive hit, already resolved back to its full entry.
type Result struct {
	Key          string
	Conversation string
	Entry        domain.ChatEntry
}
