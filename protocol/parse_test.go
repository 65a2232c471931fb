package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_Public_Message(t *testing.T) {
	req := require.New(t)

	cmd := Parse("hello everyone")

	req.Equal(Public{Text: "hello everyone"}, cmd)
}

func TestParse_Private_Message(t *testing.T) {
	req := require.New(t)

	cmd := Parse("@bob are you there?")

	req.Equal(Private{Target: "bob", Text: "are you there?"}, cmd)
}

func TestParse_Private_Preserves_Body_Spacing(t *testing.T) {
	req := require.New(t)

	// Only the first space separates target and body
	cmd := Parse("@bob  double spaced")

	req.Equal(Private{Target: "bob", Text: " double spaced"}, cmd)
}

func TestParse_Private_Without_Body_Is_Invalid(t *testing.T) {
	req := require.New(t)

	cmd := Parse("@bob")

	req.Equal(Invalid{Reply: InvalidPrivateFormat}, cmd)
}

func TestParse_Private_Empty_Body_Is_Allowed(t *testing.T) {
	req := require.New(t)

	// "@bob " historically routes an empty body
	cmd := Parse("@bob ")

	req.Equal(Private{Target: "bob", Text: ""}, cmd)
}

func TestParse_Group_Message(t *testing.T) {
	req := require.New(t)

	cmd := Parse("#devs ship it")

	req.Equal(GroupMessage{Group: "devs", Text: "ship it"}, cmd)
}

func TestParse_Group_Message_Without_Body_Is_Invalid(t *testing.T) {
	req := require.New(t)

	cmd := Parse("#devs")

	req.Equal(Invalid{Reply: InvalidGroupFormat}, cmd)
}

func TestParse_Slash_Commands(t *testing.T) {
	req := require.New(t)

	tests := []struct {
		name     string
		line     string
		expected Command
	}{
		{"quit", "/quit", Quit{}},
		{"users", "/users", ListUsers{}},
		{"listgroups", "/listgroups", ListGroups{}},
		{"creategroup", "/creategroup devs", CreateGroup{Name: "devs"}},
		{"creategroup missing name", "/creategroup", Invalid{Reply: UsageCreateGroup}},
		{"creategroup blank name", "/creategroup   ", Invalid{Reply: UsageCreateGroup}},
		{"addtogroup", "/addtogroup devs bob", AddToGroup{Group: "devs", User: "bob"}},
		{"addtogroup missing user", "/addtogroup devs", Invalid{Reply: UsageAddToGroup}},
		{"addtogroup missing all", "/addtogroup", Invalid{Reply: UsageAddToGroup}},
		{"leavegroup", "/leavegroup devs", LeaveGroup{Name: "devs"}},
		{"leavegroup missing name", "/leavegroup", Invalid{Reply: UsageLeaveGroup}},
		{"groupmembers", "/groupmembers devs", GroupMembers{Name: "devs"}},
		{"groupmembers missing name", "/groupmembers", Invalid{Reply: UsageGroupMembers}},
		{"search", "/search deploy friday", Search{Term: "deploy friday"}},
		{"search missing term", "/search", Invalid{Reply: UsageSearch}},
		{"unknown", "/dance", Unknown{Name: "/dance"}},
		{"unknown with args", "/dance hard", Unknown{Name: "/dance"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req.Equal(tt.expected, Parse(tt.line))
		})
	}
}

func TestParse_Slash_Text_Stays_Out_Of_Broadcast(t *testing.T) {
	req := require.New(t)

	// A mistyped command must never leak to every connected user
	cmd := Parse("/quitt")

	req.IsType(Unknown{}, cmd)
}

func TestValidName(t *testing.T) {
	req := require.New(t)

	req.True(ValidName("alice"))
	req.True(ValidName("a"))
	req.True(ValidName("user_42-x"))
	req.False(ValidName(""))
	req.False(ValidName("with space"))
	req.False(ValidName("slash/name"))
	req.False(ValidName("dot.name"))
	req.False(ValidName("waytoolongname_waytoolongname_pls"))
}

func TestWelcome_Lists_Every_Command(t *testing.T) {
	req := require.New(t)

	welcome := Welcome("alice")

	req.Contains(welcome, "Welcome to the chat, alice!")
	for _, command := range []string{
		"/creategroup", "/addtogroup", "/leavegroup",
		"/listgroups", "/groupmembers", "/users", "/quit",
	} {
		req.Contains(welcome, command)
	}
}
