package runtime

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/protocol"
	"chat-relay/repositories"
)

// Router moves one inbound message to its recipients. Delivery is
// best-effort per recipient: a failed send skips that recipient and
// is left to the recipient's own reader goroutine to tear down, the
// router never unregisters anyone. Moderation runs once per message,
// before formatting and persistence, so recipients, echoes and logs
// all agree on the text.
type Router struct {
	log      *slog.Logger
	sessions *SessionRegistry
	groups   *GroupRegistry
	store    *repositories.ConversationStore
	censor   *moderation.Moderator
	events   chan<- event.DomainEvent
	metrics  *observability.Metrics
}

func NewRouter(log *slog.Logger, sessions *SessionRegistry, groups *GroupRegistry,
	store *repositories.ConversationStore, censor *moderation.Moderator,
	events chan<- event.DomainEvent, metrics *observability.Metrics) *Router {
	return &Router{
		log:      log,
		sessions: sessions,
		groups:   groups,
		store:    store,
		censor:   censor,
		events:   events,
		metrics:  metrics,
	}
}

// Broadcast sends a public message to everyone except the sender.
// Each reached recipient gets a direct entry appended to the shared
// conversation log of that pair, so public history lands in the same
// files as private history.
func (r *Router) Broadcast(from contract.Client, text string) int {
	sender := from.Name()
	text = r.censor.Censor(text)
	line := protocol.PublicLine(sender, text)
	now := time.Now()

	delivered := 0
	for _, client := range r.sessions.Snapshot() {
		if client.Name() == sender {
			continue
		}
		if err := client.Send(line); err != nil {
			r.metrics.IncrDeliveryFailure()
			r.log.Warn("Skipping unreachable recipient", "from", sender, "to", client.Name(), "error", err)
			continue
		}
		delivered++
		r.persist(domain.ConversationKey(sender, client.Name()),
			domain.NewDirectEntry(sender, client.Name(), text, now))
	}
	r.metrics.IncrPublicMessage()
	return delivered
}

// SendPrivate delivers a direct message to one participant and echoes
// the delivered text back to the sender. The entry is persisted only
// after the target actually received it.
func (r *Router) SendPrivate(from contract.Client, target, text string) error {
	client, online := r.sessions.Lookup(target)
	if !online {
		return errors.ErrUserNotFound
	}

	sender := from.Name()
	text = r.censor.Censor(text)
	if err := client.Send(protocol.PrivateLine(sender, text)); err != nil {
		r.metrics.IncrDeliveryFailure()
		return fmt.Errorf("delivering to %s: %w", target, err)
	}
	if err := from.Send(protocol.PrivateEcho(target, text)); err != nil {
		r.log.Warn("Private echo lost", "sender", sender, "error", err)
	}

	r.persist(domain.ConversationKey(sender, target),
		domain.NewDirectEntry(sender, target, text, time.Now()))
	r.metrics.IncrPrivateMessage()
	return nil
}

// SendGroup fans a message out to every member of the group. The
// sender is a member too, so their copy of the line doubles as the
// delivery confirmation. One group entry is persisted per message no
// matter how many members were reachable.
func (r *Router) SendGroup(from contract.Client, group, text string) (int, error) {
	members, exists := r.groups.MembersFor(group)
	if !exists {
		return 0, errors.ErrGroupNotFound
	}
	sender := from.Name()
	if !lo.Contains(members, sender) {
		return 0, errors.ErrNotGroupMember
	}

	text = r.censor.Censor(text)
	line := protocol.GroupLine(group, sender, text)

	delivered := 0
	for _, member := range members {
		client, online := r.sessions.Lookup(member)
		if !online {
			continue
		}
		if err := client.Send(line); err != nil {
			r.metrics.IncrDeliveryFailure()
			r.log.Warn("Skipping unreachable group member", "group", group, "to", member, "error", err)
			continue
		}
		delivered++
	}

	r.persist(group, domain.NewGroupEntry(sender, group, text, time.Now()))
	r.metrics.IncrGroupMessage()
	return delivered, nil
}

// Announce pushes one already-formatted line to every connected
// participant except the named one. Announcements are not persisted.
func (r *Router) Announce(line, except string) {
	for _, client := range r.sessions.Snapshot() {
		if client.Name() == except {
			continue
		}
		if err := client.Send(line); err != nil {
			r.log.Warn("Announcement lost", "to", client.Name(), "error", err)
		}
	}
}

// AnnounceGroup pushes a system notice to every online member of a
// group. Notices are not persisted; participants who join later never
// see them.
func (r *Router) AnnounceGroup(group, text string) {
	members, exists := r.groups.MembersFor(group)
	if !exists {
		return
	}
	line := protocol.GroupSystemLine(group, text)
	for _, member := range members {
		client, online := r.sessions.Lookup(member)
		if !online {
			continue
		}
		if err := client.Send(line); err != nil {
			r.log.Warn("Group notice lost", "group", group, "to", member, "error", err)
		}
	}
}

// Tell delivers one line to a single named participant, if online.
func (r *Router) Tell(name, line string) {
	client, online := r.sessions.Lookup(name)
	if !online {
		return
	}
	if err := client.Send(line); err != nil {
		r.log.Warn("Notification lost", "to", name, "error", err)
	}
}

func (r *Router) persist(key string, entry domain.ChatEntry) {
	if err := r.store.Append(key, entry); err != nil {
		r.log.Error("Appending chat entry failed", "conversation", key, "error", err)
		return
	}
	r.metrics.IncrPersisted()
	r.emit(event.EntryLogged{Key: key, Entry: entry})
}

// emit hands the event to the fan-out without ever blocking a message
// path. The JSON logs are the durable record; a dropped event only
// means the archive misses one entry.
func (r *Router) emit(e event.DomainEvent) {
	select {
	case r.events <- e:
	default:
		r.metrics.IncrDroppedEvent()
		r.log.Warn("Event buffer full, dropping archive event", "conversation", e.Conversation())
	}
}
