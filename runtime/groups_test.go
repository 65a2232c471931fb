package runtime

import (
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/mocks"
)

type fakeInfoStore struct {
	mu      sync.Mutex
	writes  []domain.GroupInfo
	deletes []string
	err     error
}

func (s *fakeInfoStore) WriteGroupInfo(info domain.GroupInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.writes = append(s.writes, info)
	return nil
}

func (s *fakeInfoStore) DeleteGroupInfo(group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.deletes = append(s.deletes, group)
	return nil
}

func (s *fakeInfoStore) lastWrite() domain.GroupInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes[len(s.writes)-1]
}

func newGroupFixture(t *testing.T, online ...string) (*GroupRegistry, *SessionRegistry, *fakeInfoStore) {
	t.Helper()
	sessions := NewSessionRegistry()
	for _, name := range online {
		require.NoError(t, sessions.Register(newFakeClient(name)))
	}
	store := &fakeInfoStore{}
	return NewGroupRegistry(sessions, store, slog.Default()), sessions, store
}

func TestGroupRegistry_Create_Makes_The_Creator_Admin(t *testing.T) {
	req := require.New(t)
	groups, _, store := newGroupFixture(t, "alice")

	// When alice creates a group
	req.NoError(groups.Create("alice", "devops"))

	// Then she is its admin and only member
	summaries := groups.ListForUser("alice")
	req.Len(summaries, 1)
	req.Equal(GroupSummary{Name: "devops", Admin: "alice", Members: 1}, summaries[0])

	// And the metadata file was written through
	info := store.lastWrite()
	req.Equal("devops", info.GroupName)
	req.Equal("alice", info.Admin)
	req.Equal([]string{"alice"}, info.Members)
	req.NotEmpty(info.CreatedDate)
}

func TestGroupRegistry_Create_Rejects_A_Duplicate_Name(t *testing.T) {
	req := require.New(t)
	groups, _, _ := newGroupFixture(t, "alice", "bob")
	req.NoError(groups.Create("alice", "devops"))

	err := groups.Create("bob", "devops")

	req.ErrorIs(err, errors.ErrGroupExists)
	req.Equal(1, groups.Count())
}

func TestGroupRegistry_AddMember_Checks_Run_In_A_Fixed_Order(t *testing.T) {
	req := require.New(t)
	groups, _, _ := newGroupFixture(t, "alice", "bob")
	req.NoError(groups.Create("alice", "devops"))
	req.NoError(groups.AddMember("alice", "devops", "bob"))

	// Unknown group wins over everything else
	req.ErrorIs(groups.AddMember("alice", "ghosts", "bob"), errors.ErrGroupNotFound)

	// Then admin rights
	req.ErrorIs(groups.AddMember("bob", "devops", "carol"), errors.ErrNotGroupAdmin)

	// Then target presence
	req.ErrorIs(groups.AddMember("alice", "devops", "carol"), errors.ErrUserOffline)

	// Then prior membership
	req.ErrorIs(groups.AddMember("alice", "devops", "bob"), errors.ErrAlreadyMember)
}

func TestGroupRegistry_AddMember_Keeps_Join_Order(t *testing.T) {
	req := require.New(t)
	groups, _, store := newGroupFixture(t, "alice", "bob", "carol")
	req.NoError(groups.Create("alice", "devops"))

	req.NoError(groups.AddMember("alice", "devops", "carol"))
	req.NoError(groups.AddMember("alice", "devops", "bob"))

	members, admin, err := groups.Members("alice", "devops")
	req.NoError(err)
	req.Equal("alice", admin)
	req.Equal([]string{"alice", "carol", "bob"}, members)
	req.Equal([]string{"alice", "carol", "bob"}, store.lastWrite().Members)
}

func TestGroupRegistry_Members_Is_For_Members_Only(t *testing.T) {
	req := require.New(t)
	groups, _, _ := newGroupFixture(t, "alice", "mallory")
	req.NoError(groups.Create("alice", "devops"))

	_, _, err := groups.Members("mallory", "devops")
	req.ErrorIs(err, errors.ErrNotGroupMember)

	_, _, err = groups.Members("alice", "ghosts")
	req.ErrorIs(err, errors.ErrGroupNotFound)
}

func TestGroupRegistry_Leave_Deletes_An_Emptied_Group(t *testing.T) {
	req := require.New(t)
	groups, _, store := newGroupFixture(t, "alice")
	req.NoError(groups.Create("alice", "devops"))

	result, err := groups.Leave("alice", "devops")

	req.NoError(err)
	req.True(result.Deleted)
	req.Empty(result.NewAdmin)
	req.Zero(groups.Count())
	req.Equal([]string{"devops"}, store.deletes)
}

func TestGroupRegistry_Leave_Hands_Admin_To_The_Earliest_Member(t *testing.T) {
	req := require.New(t)
	groups, _, _ := newGroupFixture(t, "alice", "bob", "carol")
	req.NoError(groups.Create("alice", "devops"))
	req.NoError(groups.AddMember("alice", "devops", "bob"))
	req.NoError(groups.AddMember("alice", "devops", "carol"))

	// When the admin leaves
	result, err := groups.Leave("alice", "devops")

	// Then the earliest remaining member takes over
	req.NoError(err)
	req.False(result.Deleted)
	req.Equal("bob", result.NewAdmin)

	members, admin, err := groups.Members("bob", "devops")
	req.NoError(err)
	req.Equal("bob", admin)
	req.Equal([]string{"bob", "carol"}, members)
}

func TestGroupRegistry_Leave_Rejects_Outsiders(t *testing.T) {
	req := require.New(t)
	groups, _, _ := newGroupFixture(t, "alice", "mallory")
	req.NoError(groups.Create("alice", "devops"))

	_, err := groups.Leave("mallory", "devops")
	req.ErrorIs(err, errors.ErrNotGroupMember)

	_, err = groups.Leave("alice", "ghosts")
	req.ErrorIs(err, errors.ErrGroupNotFound)
}

func TestGroupRegistry_ListForUser_Keeps_Creation_Order(t *testing.T) {
	req := require.New(t)
	groups, _, _ := newGroupFixture(t, "alice")
	req.NoError(groups.Create("alice", "zeta"))
	req.NoError(groups.Create("alice", "alpha"))

	summaries := groups.ListForUser("alice")

	req.Len(summaries, 2)
	req.Equal("zeta", summaries[0].Name)
	req.Equal("alpha", summaries[1].Name)
	req.Equal([]string{"zeta", "alpha"}, groups.GroupsOf("alice"))
}

func TestGroupRegistry_Membership_Survives_A_Disconnect(t *testing.T) {
	req := require.New(t)
	groups, sessions, _ := newGroupFixture(t, "alice", "bob")
	req.NoError(groups.Create("alice", "devops"))
	req.NoError(groups.AddMember("alice", "devops", "bob"))

	// When bob disconnects
	sessions.Unregister("bob")

	// Then he is still a member
	req.True(groups.HasMember("devops", "bob"))
	members, _ := groups.MembersFor("devops")
	req.Equal([]string{"alice", "bob"}, members)
}

func TestGroupRegistry_A_Failed_Info_Write_Does_Not_Roll_Back(t *testing.T) {
	req := require.New(t)
	groups, _, store := newGroupFixture(t, "alice")
	store.err = fmt.Errorf("disk full")

	// When the write-through fails
	req.NoError(groups.Create("alice", "devops"))

	// Then the in-memory group still exists
	req.Equal(1, groups.Count())
	req.True(groups.HasMember("devops", "alice"))
}

func TestGroupRegistry_A_Failed_Info_Delete_Still_Removes_The_Group(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sessions := NewSessionRegistry()
	req.NoError(sessions.Register(newFakeClient("alice")))
	store := mocks.NewMockGroupInfoWriter(ctrl)
	store.EXPECT().WriteGroupInfo(gomock.Any()).Return(nil)
	store.EXPECT().DeleteGroupInfo("devops").Return(fmt.Errorf("unlink failed"))
	groups := NewGroupRegistry(sessions, store, slog.Default())
	req.NoError(groups.Create("alice", "devops"))

	// When the last member leaves and the file removal fails
	result, err := groups.Leave("alice", "devops")

	// Then the registry still drops the group
	req.NoError(err)
	req.True(result.Deleted)
	req.Zero(groups.Count())
}
