package runtime

import (
	"log/slog"
	"sync"
	"time"

	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
)

// GroupRegistry owns group membership. Membership is in-memory state:
// it survives member disconnects but not a server restart. Every
// change is written through to the group info file as an audit record;
// a failed write is logged and does not roll the change back.
type GroupRegistry struct {
	mu       sync.RWMutex
	groups   map[string]*domain.Group
	order    []string
	sessions *SessionRegistry
	store    repositories.GroupInfoWriter
	log      *slog.Logger
}

func NewGroupRegistry(sessions *SessionRegistry, store repositories.GroupInfoWriter, log *slog.Logger) *GroupRegistry {
	return &GroupRegistry{
		groups:   make(map[string]*domain.Group),
		sessions: sessions,
		store:    store,
		log:      log,
	}
}

// GroupSummary is one row of a participant's group listing.
type GroupSummary struct {
	Name    string
	Admin   string
	Members int
}

// LeaveResult describes what a departure did to the group.
type LeaveResult struct {
	Deleted  bool
	NewAdmin string
}

// Create registers a new group with the creator as admin and sole member.
func (g *GroupRegistry) Create(admin, name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.groups[name]; exists {
		return errors.ErrGroupExists
	}
	group := domain.NewGroup(name, admin, time.Now())
	g.groups[name] = group
	g.order = append(g.order, name)
	g.persist(group)
	return nil
}

// AddMember lets the admin add an online user. Checks run in a fixed
// order so the caller always reports the first failing one: group
// exists, caller is admin, user is online, user not already a member.
func (g *GroupRegistry) AddMember(admin, name, user string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	group, exists := g.groups[name]
	if !exists {
		return errors.ErrGroupNotFound
	}
	if group.Admin != admin {
		return errors.ErrNotGroupAdmin
	}
	if _, online := g.sessions.Lookup(user); !online {
		return errors.ErrUserOffline
	}
	if group.HasMember(user) {
		return errors.ErrAlreadyMember
	}

	group.AddMember(user)
	g.persist(group)
	return nil
}

// Leave removes a member. An emptied group is deleted together with
// its info file; when the admin leaves a non-empty group the handover
// target is reported in the result.
func (g *GroupRegistry) Leave(user, name string) (LeaveResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	group, exists := g.groups[name]
	if !exists {
		return LeaveResult{}, errors.ErrGroupNotFound
	}
	if !group.HasMember(user) {
		return LeaveResult{}, errors.ErrNotGroupMember
	}

	newAdmin := group.RemoveMember(user)
	if group.Empty() {
		delete(g.groups, name)
		g.dropFromOrder(name)
		if err := g.store.DeleteGroupInfo(name); err != nil {
			g.log.Warn("Deleting group info failed", "group", name, "error", err)
		}
		return LeaveResult{Deleted: true}, nil
	}

	g.persist(group)
	return LeaveResult{NewAdmin: newAdmin}, nil
}

// ListForUser returns the groups a participant belongs to, in group
// creation order.
func (g *GroupRegistry) ListForUser(user string) []GroupSummary {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var summaries []GroupSummary
	for _, name := range g.order {
		group := g.groups[name]
		if group.HasMember(user) {
			summaries = append(summaries, GroupSummary{
				Name:    group.Name,
				Admin:   group.Admin,
				Members: len(group.Members),
			})
		}
	}
	return summaries
}

// GroupsOf returns just the names of the groups a participant belongs
// to. It feeds the archive search scope.
func (g *GroupRegistry) GroupsOf(user string) []string {
	var names []string
	for _, summary := range g.ListForUser(user) {
		names = append(names, summary.Name)
	}
	return names
}

// Members returns the member list in join order plus the admin name.
// Only members may look inside a group.
func (g *GroupRegistry) Members(user, name string) ([]string, string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	group, exists := g.groups[name]
	if !exists {
		return nil, "", errors.ErrGroupNotFound
	}
	if !group.HasMember(user) {
		return nil, "", errors.ErrNotGroupMember
	}
	members := make([]string, len(group.Members))
	copy(members, group.Members)
	return members, group.Admin, nil
}

// MembersFor resolves delivery targets for a group send.
func (g *GroupRegistry) MembersFor(name string) ([]string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	group, exists := g.groups[name]
	if !exists {
		return nil, false
	}
	members := make([]string, len(group.Members))
	copy(members, group.Members)
	return members, true
}

// HasMember reports whether user belongs to the named group.
func (g *GroupRegistry) HasMember(name, user string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	group, exists := g.groups[name]
	return exists && group.HasMember(user)
}

func (g *GroupRegistry) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.groups)
}

func (g *GroupRegistry) persist(group *domain.Group) {
	if err := g.store.WriteGroupInfo(group.Info()); err != nil {
		g.log.Warn("Writing group info failed", "group", group.Name, "error", err)
	}
}

func (g *GroupRegistry) dropFromOrder(name string) {
	for i, n := range g.order {
		if n == name {
			g.order = append(g.order[:i], g.order[i+1:]...)
			return
		}
	}
}
