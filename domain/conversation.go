package domain

import "strings"

// ConversationKey identifies the log a direct message belongs to.
// Participants are sorted so both directions of a pair map to the
// same conversation.
func ConversationKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "_" + b
}

// SplitConversationKey returns the two participants of a direct
// conversation key. The second value is false when the key does not
// contain a separator.
func SplitConversationKey(key string) (string, string, bool) {
	a, b, ok := strings.Cut(key, "_")
	return a, b, ok
}
