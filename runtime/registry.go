// Package runtime owns the live server state: connected sessions,
// groups, and message routing. It orchestrates the system without
// containing wire parsing or storage format knowledge.
package runtime

import (
	"sort"
	"sync"

	"chat-relay/contract"
	"chat-relay/errors"
)

// SessionRegistry tracks connected participants by display name.
// Claiming a name and registering the session is one atomic step, two
// connections racing for the same name can never both win.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]contract.Client
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]contract.Client),
	}
}

// Register claims the client's name. Returns ErrNameTaken when another
// live session already holds it.
func (r *SessionRegistry) Register(client contract.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := client.Name()
	if _, taken := r.sessions[name]; taken {
		return errors.ErrNameTaken
	}
	r.sessions[name] = client
	return nil
}

// Unregister releases a name. Releasing an unknown name is a no-op so
// teardown paths can call it unconditionally.
func (r *SessionRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, name)
}

func (r *SessionRegistry) Lookup(name string) (contract.Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.sessions[name]
	return client, ok
}

// Names returns a sorted snapshot of connected display names.
func (r *SessionRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sessions))
	for name := range r.sessions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns the live sessions. Fan-out iterates the snapshot
// without holding the registry lock during sends.
func (r *SessionRegistry) Snapshot() []contract.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]contract.Client, 0, len(r.sessions))
	for _, client := range r.sessions {
		clients = append(clients, client)
	}
	return clients
}

func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
