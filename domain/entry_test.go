package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHashMessage_Known_Digest(t *testing.T) {
	req := require.New(t)

	// sha256 of "hello" is a published vector
	req.Equal(
		"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		HashMessage("hello"),
	)
	req.Equal(
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		HashMessage(""),
	)
}

func TestNewDirectEntry_Fields(t *testing.T) {
	req := require.New(t)
	at := time.Date(2026, 3, 14, 15, 9, 26, 0, time.Local)

	entry := NewDirectEntry("alice", "bob", "see you at noon", at)

	req.Equal("2026-03-14 15:09:26", entry.Timestamp)
	req.Equal("alice", entry.Sender)
	req.Equal("bob", entry.Receiver)
	req.Equal("see you at noon", entry.Message)
	req.Equal(HashMessage("see you at noon"), entry.MessageHash)
	req.Equal(EntryTypeDirect, entry.Type)
	req.True(entry.Verify())
}

func TestNewGroupEntry_Type(t *testing.T) {
	req := require.New(t)

	entry := NewGroupEntry("alice", "devs", "standup in 5", time.Now())

	req.Equal(EntryTypeGroup, entry.Type)
	req.Equal("devs", entry.Receiver)
}

func TestChatEntry_Verify_Detects_Tampering(t *testing.T) {
	req := require.New(t)
	entry := NewDirectEntry("alice", "bob", "original", time.Now())

	// Given a message body edited after the hash was computed
	entry.Message = "edited"

	// Then verification fails
	req.False(entry.Verify())
}

func TestChatEntry_LoggedAt_Roundtrip(t *testing.T) {
	req := require.New(t)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local)

	entry := NewDirectEntry("a", "b", "x", at)
	parsed, err := entry.LoggedAt()

	req.NoError(err)
	req.True(at.Equal(parsed))
}

func TestConversationKey_Is_Order_Independent(t *testing.T) {
	req := require.New(t)

	req.Equal("alice_bob", ConversationKey("alice", "bob"))
	req.Equal("alice_bob", ConversationKey("bob", "alice"))
	req.Equal("anna_anna", ConversationKey("anna", "anna"))
}
