// Package protocol defines the line-oriented wire protocol: the
// command grammar parsed from inbound lines and the exact reply
// strings written back. Reply texts are part of the compatibility
// surface, existing clients match on them.
package protocol

// Command is one parsed input line. Concrete types carry the
// arguments; dispatch happens by type switch.
type Command interface {
	command()
}

// Public is a plain line broadcast to everyone else.
type Public struct {
	Text string
}

// Private targets one online user (@user text).
type Private struct {
	Target string
	Text   string
}

// GroupMessage targets the members of one group (#group text).
type GroupMessage struct {
	Group string
	Text  string
}

type CreateGroup struct {
	Name string
}

type AddToGroup struct {
	Group string
	User  string
}

type LeaveGroup struct {
	Name string
}

type ListGroups struct{}

type GroupMembers struct {
	Name string
}

type ListUsers struct{}

// Search runs a full-text query over the requester's archived history.
type Search struct {
	Term string
}

type Quit struct{}

// Invalid is a recognized command with unusable arguments. Reply holds
// the usage line to send back.
type Invalid struct {
	Reply string
}

// Unknown is a slash command the server does not implement.
type Unknown struct {
	Name string
}

func (Public) command()       {}
func (Private) command()      {}
func (GroupMessage) command() {}
func (CreateGroup) command()  {}
func (AddToGroup) command()   {}
func (LeaveGroup) command()   {}
func (ListGroups) command()   {}
func (GroupMembers) command() {}
func (ListUsers) command()    {}
func (Search) command()       {}
func (Quit) command()         {}
func (Invalid) command()      {}
func (Unknown) command()      {}
