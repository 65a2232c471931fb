//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks

// Package services executes parsed commands against the registries and
// the router. All reply strings a participant ever sees are chosen
// here; transports stay byte-dumb.
package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/lo"

	"chat-relay/contract"
	"chat-relay/domain/search"
	chaterrors "chat-relay/errors"
	"chat-relay/observability"
	"chat-relay/protocol"
	"chat-relay/repositories"
	"chat-relay/runtime"
)

type IChatService interface {
	// Join claims the client's name and runs the arrival ceremony.
	// On error the caller owns the rejection reply and the teardown.
	Join(client contract.Client) error
	// Leave deregisters the client and tells the room. Call only
	// after a successful Join.
	Leave(client contract.Client)
	// Handle executes one inbound line. A true result means the
	// client asked to quit.
	Handle(ctx context.Context, client contract.Client, line string) bool
}

type ChatService struct {
	log         *slog.Logger
	sessions    *runtime.SessionRegistry
	groups      *runtime.GroupRegistry
	router      *runtime.Router
	archive     repositories.Archiver
	metrics     *observability.Metrics
	searchLimit int
}

func NewChatService(log *slog.Logger, sessions *runtime.SessionRegistry,
	groups *runtime.GroupRegistry, router *runtime.Router,
	archive repositories.Archiver, metrics *observability.Metrics,
	searchLimit int) *ChatService {
	return &ChatService{
		log:         log,
		sessions:    sessions,
		groups:      groups,
		router:      router,
		archive:     archive,
		metrics:     metrics,
		searchLimit: searchLimit,
	}
}

func (s *ChatService) Join(client contract.Client) error {
	name := client.Name()
	if !protocol.ValidName(name) {
		return chaterrors.ErrInvalidName
	}
	if err := s.sessions.Register(client); err != nil {
		return err
	}

	// Others first, then the welcome block. Latecomers to the notice
	// already see the name in /users.
	s.router.Announce(protocol.JoinNotice(name), name)
	s.reply(client, protocol.Welcome(name))
	return nil
}

func (s *ChatService) Leave(client contract.Client) {
	name := client.Name()
	s.sessions.Unregister(name)
	s.router.Announce(protocol.LeaveNotice(name), name)
}

func (s *ChatService) Handle(ctx context.Context, client contract.Client, line string) bool {
	switch cmd := protocol.Parse(line).(type) {
	case protocol.Quit:
		return true
	case protocol.Public:
		s.router.Broadcast(client, cmd.Text)
	case protocol.Private:
		s.sendPrivate(client, cmd)
	case protocol.GroupMessage:
		s.sendGroup(client, cmd)
	case protocol.CreateGroup:
		s.createGroup(client, cmd.Name)
	case protocol.AddToGroup:
		s.addToGroup(client, cmd)
	case protocol.LeaveGroup:
		s.leaveGroup(client, cmd.Name)
	case protocol.ListGroups:
		s.listGroups(client)
	case protocol.GroupMembers:
		s.groupMembers(client, cmd.Name)
	case protocol.ListUsers:
		s.reply(client, protocol.OnlineUsers(s.sessions.Names()))
	case protocol.Search:
		s.search(ctx, client, cmd.Term)
	case protocol.Invalid:
		s.reply(client, cmd.Reply)
	case protocol.Unknown:
		s.reply(client, protocol.UnknownCommand(cmd.Name))
	}
	return false
}

func (s *ChatService) sendPrivate(client contract.Client, cmd protocol.Private) {
	err := s.router.SendPrivate(client, cmd.Target, cmd.Text)
	switch {
	case err == nil:
	case errors.Is(err, chaterrors.ErrUserNotFound):
		s.reply(client, protocol.UserNotFound(cmd.Target))
	default:
		s.reply(client, protocol.CouldNotSend(cmd.Target))
	}
}

func (s *ChatService) sendGroup(client contract.Client, cmd protocol.GroupMessage) {
	_, err := s.router.SendGroup(client, cmd.Group, cmd.Text)
	switch {
	case err == nil:
	case errors.Is(err, chaterrors.ErrGroupNotFound):
		s.reply(client, protocol.GroupNotFound(cmd.Group))
	case errors.Is(err, chaterrors.ErrNotGroupMember):
		s.reply(client, protocol.NotGroupMember(cmd.Group))
	}
}

func (s *ChatService) createGroup(client contract.Client, name string) {
	if !protocol.ValidName(name) {
		s.reply(client, protocol.InvalidGroupNameReply)
		return
	}
	err := s.groups.Create(client.Name(), name)
	switch {
	case err == nil:
		s.reply(client, protocol.GroupCreated(name))
	case errors.Is(err, chaterrors.ErrGroupExists):
		s.reply(client, protocol.GroupExists(name))
	}
}

// addToGroup keeps the original ceremony order: the added user hears
// about it first, then the group, then the admin gets the confirmation.
func (s *ChatService) addToGroup(client contract.Client, cmd protocol.AddToGroup) {
	admin := client.Name()
	err := s.groups.AddMember(admin, cmd.Group, cmd.User)
	switch {
	case err == nil:
		s.router.Tell(cmd.User, protocol.AddedNotification(cmd.Group, admin))
		s.router.AnnounceGroup(cmd.Group, protocol.MemberAddedNotice(cmd.User, admin))
		s.reply(client, protocol.AddedToGroup(cmd.User, cmd.Group))
	case errors.Is(err, chaterrors.ErrGroupNotFound):
		s.reply(client, protocol.GroupNotFound(cmd.Group))
	case errors.Is(err, chaterrors.ErrNotGroupAdmin):
		s.reply(client, protocol.OnlyAdminCanAdd(cmd.Group))
	case errors.Is(err, chaterrors.ErrUserOffline):
		s.reply(client, protocol.UserNotOnline(cmd.User))
	case errors.Is(err, chaterrors.ErrAlreadyMember):
		s.reply(client, protocol.AlreadyInGroup(cmd.User))
	}
}

func (s *ChatService) leaveGroup(client contract.Client, name string) {
	user := client.Name()
	result, err := s.groups.Leave(user, name)
	switch {
	case err == nil:
		if result.NewAdmin != "" {
			s.router.Tell(result.NewAdmin, protocol.NewAdminNotification(name))
		}
		if result.Deleted {
			s.reply(client, protocol.LeftGroupDeleted(name))
			return
		}
		s.router.AnnounceGroup(name, protocol.MemberLeftNotice(user))
		s.reply(client, protocol.LeftGroup(name))
	case errors.Is(err, chaterrors.ErrGroupNotFound):
		s.reply(client, protocol.GroupNotFound(name))
	case errors.Is(err, chaterrors.ErrNotGroupMember):
		s.reply(client, protocol.NotGroupMember(name))
	}
}

func (s *ChatService) listGroups(client contract.Client) {
	summaries := s.groups.ListForUser(client.Name())
	if len(summaries) == 0 {
		s.reply(client, protocol.NoGroupsReply)
		return
	}
	lines := lo.Map(summaries, func(g runtime.GroupSummary, _ int) string {
		return protocol.GroupSummary(g.Name, g.Admin, g.Members)
	})
	s.reply(client, protocol.YourGroups(lines))
}

func (s *ChatService) groupMembers(client contract.Client, name string) {
	members, admin, err := s.groups.Members(client.Name(), name)
	switch {
	case err == nil:
		lines := lo.Map(members, func(member string, _ int) string {
			return protocol.MemberLine(member, member == admin)
		})
		s.reply(client, protocol.GroupMembersReply(name, lines))
	case errors.Is(err, chaterrors.ErrGroupNotFound):
		s.reply(client, protocol.GroupNotFound(name))
	case errors.Is(err, chaterrors.ErrNotGroupMember):
		s.reply(client, protocol.NotGroupMember(name))
	}
}

// search scopes the query to what the requester is allowed to see:
// their own direct traffic plus their current groups.
func (s *ChatService) search(ctx context.Context, client contract.Client, term string) {
	name := client.Name()
	query := search.ForParticipant(name, term, s.groups.GroupsOf(name), s.searchLimit)

	results, err := s.archive.Search(ctx, query)
	if err != nil {
		s.log.Error("Archive search failed", "participant", name, "error", err)
		s.reply(client, protocol.NoMatchesReply)
		return
	}
	s.metrics.IncrSearch()

	if len(results) == 0 {
		s.reply(client, protocol.NoMatchesReply)
		return
	}
	for _, result := range results {
		entry := result.Entry
		s.reply(client, protocol.SearchResultLine(entry.Timestamp, entry.Sender, entry.Receiver, entry.Message))
	}
}

func (s *ChatService) reply(client contract.Client, text string) {
	if err := client.Send(text); err != nil {
		s.log.Warn("Reply lost", "to", client.Name(), "error", err)
	}
}
