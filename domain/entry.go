// Package domain contains core concepts of the chat system:
// persisted entries, conversations and groups. No runtime,
// network, or UI logic should be added here.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// TimestampLayout is the wall-clock format used in persisted entries.
// External readers of the log files parse this exact layout.
const TimestampLayout = "2006-01-02 15:04:05"

const (
	EntryTypeDirect = "direct"
	EntryTypeGroup  = "group"
)

// ChatEntry is one persisted message. Field order matters: the log
// files are consumed by external tooling that expects this exact shape.
type ChatEntry struct {
	Timestamp   string `json:"timestamp"`
	Sender      string `json:"sender"`
	Receiver    string `json:"receiver"`
	Message     string `json:"message"`
	MessageHash string `json:"message_hash"`
	Type        string `json:"type"`
}

// HashMessage derives the integrity checksum stored next to each message.
// It detects file corruption or accidental edits; it is not a security
// feature, anyone rewriting the file can recompute it.
func HashMessage(message string) string {
	sum := sha256.Sum256([]byte(message))
	return hex.EncodeToString(sum[:])
}

func NewDirectEntry(sender, receiver, message string, at time.Time) ChatEntry {
	return newEntry(sender, receiver, message, EntryTypeDirect, at)
}

func NewGroupEntry(sender, group, message string, at time.Time) ChatEntry {
	return newEntry(sender, group, message, EntryTypeGroup, at)
}

func newEntry(sender, receiver, message, entryType string, at time.Time) ChatEntry {
	return ChatEntry{
		Timestamp:   at.Format(TimestampLayout),
		Sender:      sender,
		Receiver:    receiver,
		Message:     message,
		MessageHash: HashMessage(message),
		Type:        entryType,
	}
}

// Verify recomputes the checksum of the message body and compares it
// to the stored one.
func (e ChatEntry) Verify() bool {
	return e.MessageHash == HashMessage(e.Message)
}

// LoggedAt parses the entry timestamp back into a time value.
func (e ChatEntry) LoggedAt() (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, e.Timestamp, time.Local)
}
