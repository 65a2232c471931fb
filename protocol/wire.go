package protocol

import (
	"fmt"
	"regexp"
	"strings"
)

// Handshake strings. Existing clients match on these as substrings,
// they must not change.
const (
	NamePrompt     = "Enter your username: "
	NameTakenReply = "Username already taken. Please try again."
)

// InvalidNameReply rejects names that would not survive as file path
// fragments or as @/# routing targets.
const InvalidNameReply = "Invalid username. Use 1-32 letters, digits, '_' or '-'."

// InvalidGroupNameReply is the /creategroup counterpart: group names
// feed file names and #-routing the same way usernames do.
const InvalidGroupNameReply = "Invalid group name. Use 1-32 letters, digits, '_' or '-'."

const (
	UsageCreateGroup  = "Usage: /creategroup groupname"
	UsageAddToGroup   = "Usage: /addtogroup groupname username"
	UsageLeaveGroup   = "Usage: /leavegroup groupname"
	UsageGroupMembers = "Usage: /groupmembers groupname"
	UsageSearch       = "Usage: /search term"

	InvalidPrivateFormat = "Invalid private message format. Use: @username message"
	InvalidGroupFormat   = "Invalid group message format. Use: #groupname message"

	NoGroupsReply  = "You are not a member of any groups"
	NoMatchesReply = "No matches found"
)

var nameRE = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

// ValidName reports whether a display or group name is routable and
// safe to embed in log file names.
func ValidName(name string) bool {
	return nameRE.MatchString(name)
}

func Welcome(name string) string {
	return fmt.Sprintf(`Welcome to the chat, %s!
Commands:
- Type normally for public messages
- Use @username message for private messages
- Use #groupname message for group messages
- /creategroup groupname - Create a new group
- /addtogroup groupname username - Add user to group (admin only)
- /leavegroup groupname - Leave a group
- /listgroups - List your groups
- /groupmembers groupname - List group members
- /users - See online users
- /quit - Leave chat`, name)
}

func JoinNotice(name string) string {
	return fmt.Sprintf("%s has joined the chat", name)
}

func LeaveNotice(name string) string {
	return fmt.Sprintf("%s has left the chat", name)
}

func PublicLine(sender, text string) string {
	return fmt.Sprintf("%s: %s", sender, text)
}

func PrivateLine(sender, text string) string {
	return fmt.Sprintf("[Private] %s: %s", sender, text)
}

func PrivateEcho(target, text string) string {
	return fmt.Sprintf("[Private to %s]: %s", target, text)
}

func GroupLine(group, sender, text string) string {
	return fmt.Sprintf("[%s] %s: %s", group, sender, text)
}

func GroupSystemLine(group, text string) string {
	return fmt.Sprintf("[%s] %s", group, text)
}

func UserNotFound(target string) string {
	return fmt.Sprintf("Error: User %s not found", target)
}

func CouldNotSend(target string) string {
	return fmt.Sprintf("Error: Could not send message to %s", target)
}

func GroupCreated(group string) string {
	return fmt.Sprintf("Group '%s' created successfully. You are the admin.", group)
}

func GroupExists(group string) string {
	return fmt.Sprintf("Group '%s' already exists", group)
}

func GroupNotFound(group string) string {
	return fmt.Sprintf("Group '%s' does not exist", group)
}

func OnlyAdminCanAdd(group string) string {
	return fmt.Sprintf("Only the admin can add members to '%s'", group)
}

func UserNotOnline(user string) string {
	return fmt.Sprintf("User '%s' is not online", user)
}

func AlreadyInGroup(user string) string {
	return fmt.Sprintf("User '%s' is already in the group", user)
}

func AddedToGroup(user, group string) string {
	return fmt.Sprintf("User '%s' added to group '%s'", user, group)
}

func AddedNotification(group, admin string) string {
	return fmt.Sprintf("You have been added to group '%s' by %s", group, admin)
}

func MemberAddedNotice(user, admin string) string {
	return fmt.Sprintf("%s has been added to the group by %s", user, admin)
}

func NotGroupMember(group string) string {
	return fmt.Sprintf("You are not a member of group '%s'", group)
}

func LeftGroupDeleted(group string) string {
	return fmt.Sprintf("Left group '%s'. Group was deleted as it became empty.", group)
}

func LeftGroup(group string) string {
	return fmt.Sprintf("Left group '%s'", group)
}

func MemberLeftNotice(user string) string {
	return fmt.Sprintf("%s has left the group", user)
}

func NewAdminNotification(group string) string {
	return fmt.Sprintf("You are now the admin of group '%s'", group)
}

// GroupSummary is one line of the /listgroups reply.
func GroupSummary(group, admin string, members int) string {
	return fmt.Sprintf("%s (Admin: %s, Members: %d)", group, admin, members)
}

func YourGroups(summaries []string) string {
	return "Your groups:\n" + strings.Join(summaries, "\n")
}

// MemberLine is one line of the /groupmembers reply.
func MemberLine(member string, isAdmin bool) string {
	if isAdmin {
		return fmt.Sprintf("%s (Admin)", member)
	}
	return member
}

func GroupMembersReply(group string, lines []string) string {
	return fmt.Sprintf("Members of '%s':\n%s", group, strings.Join(lines, "\n"))
}

func OnlineUsers(names []string) string {
	return "Online users: " + strings.Join(names, ", ")
}

func UnknownCommand(name string) string {
	return fmt.Sprintf("Unknown command: %s", name)
}

// SearchResultLine renders one archive hit of the /search reply.
func SearchResultLine(timestamp, sender, receiver, text string) string {
	return fmt.Sprintf("[%s] %s -> %s: %s", timestamp, sender, receiver, text)
}
