package protocol

import "strings"

// Parse classifies one inbound line. The caller must have stripped the
// line terminator already. Empty lines never reach Parse.
//
// Sigil messages keep their historical split behavior: everything after
// the first space is the message body, untrimmed, so "@bob  hi" targets
// bob with the body " hi".
func Parse(line string) Command {
	if strings.HasPrefix(line, "@") {
		target, text, ok := strings.Cut(line[1:], " ")
		if !ok {
			return Invalid{Reply: InvalidPrivateFormat}
		}
		return Private{Target: target, Text: text}
	}

	if strings.HasPrefix(line, "#") {
		group, text, ok := strings.Cut(line[1:], " ")
		if !ok {
			return Invalid{Reply: InvalidGroupFormat}
		}
		return GroupMessage{Group: group, Text: text}
	}

	if !strings.HasPrefix(line, "/") {
		return Public{Text: line}
	}

	word, rest, _ := strings.Cut(line, " ")
	switch word {
	case "/quit":
		return Quit{}

	case "/users":
		return ListUsers{}

	case "/listgroups":
		return ListGroups{}

	case "/creategroup":
		name := strings.TrimSpace(rest)
		if name == "" {
			return Invalid{Reply: UsageCreateGroup}
		}
		return CreateGroup{Name: name}

	case "/addtogroup":
		group, user, ok := strings.Cut(rest, " ")
		group = strings.TrimSpace(group)
		user = strings.TrimSpace(user)
		if !ok || group == "" || user == "" {
			return Invalid{Reply: UsageAddToGroup}
		}
		return AddToGroup{Group: group, User: user}

	case "/leavegroup":
		name := strings.TrimSpace(rest)
		if name == "" {
			return Invalid{Reply: UsageLeaveGroup}
		}
		return LeaveGroup{Name: name}

	case "/groupmembers":
		name := strings.TrimSpace(rest)
		if name == "" {
			return Invalid{Reply: UsageGroupMembers}
		}
		return GroupMembers{Name: name}

	case "/search":
		term := strings.TrimSpace(rest)
		if term == "" {
			return Invalid{Reply: UsageSearch}
		}
		return Search{Term: term}

	default:
		return Unknown{Name: word}
	}
}
