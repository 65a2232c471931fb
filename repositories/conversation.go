//go:generate go run go.uber.org/mock/mockgen -source=conversation.go -destination=../mocks/mock_conversation_store.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"chat-relay/domain"
	chaterrors "chat-relay/errors"
)

const (
	directSuffix    = "_conversation.json"
	groupSuffix     = "_group.json"
	groupInfoSuffix = "_info.json"
	groupsSubdir    = "groups"
)

// GroupInfoWriter is the slice of the store the group registry needs.
type GroupInfoWriter interface {
	WriteGroupInfo(info domain.GroupInfo) error
	DeleteGroupInfo(group string) error
}

// ConversationStore persists chat entries as per-conversation JSON
// array files. The layout is shared with external tooling:
//
//	<dir>/<a>_<b>_conversation.json
//	<dir>/groups/<g>_group.json
//	<dir>/groups/<g>_info.json
//
// Appends rewrite the whole file. A per-conversation mutex serializes
// concurrent appends to the same file so no read-modify-write cycle
// can lose an entry. There is no partial-write recovery: a crash in
// the middle of a rewrite can corrupt one conversation file.
type ConversationStore struct {
	dir   string
	log   *slog.Logger
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewConversationStore(dir string, log *slog.Logger) (*ConversationStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, groupsSubdir), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directories: %w", err)
	}
	return &ConversationStore{
		dir:   dir,
		log:   log,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

func (s *ConversationStore) Dir() string { return s.dir }

// Append adds one entry to the log identified by key: a sorted
// participant pair for direct entries, the group name for group
// entries. A log that fails to decode is restarted empty so a single
// corrupted file cannot take message persistence down.
func (s *ConversationStore) Append(key string, entry domain.ChatEntry) error {
	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	path := s.entryFile(key, entry.Type)
	entries, err := decodeEntries(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("Conversation log unreadable, starting a fresh one",
				"path", path, "error", err)
		}
		entries = nil
	}

	entries = append(entries, entry)
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding conversation %s: %w", key, err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("writing conversation %s: %w", key, err)
	}
	return nil
}

// ReadDirect loads the direct conversation between two participants,
// in either order. A missing log yields no entries and no error.
func (s *ConversationStore) ReadDirect(a, b string) ([]domain.ChatEntry, error) {
	return s.ReadDirectKey(domain.ConversationKey(a, b))
}

// ReadDirectKey loads a direct conversation by its key.
func (s *ConversationStore) ReadDirectKey(key string) ([]domain.ChatEntry, error) {
	return s.read(s.entryFile(key, domain.EntryTypeDirect))
}

// ReadGroup loads a group conversation log.
func (s *ConversationStore) ReadGroup(group string) ([]domain.ChatEntry, error) {
	return s.read(s.entryFile(group, domain.EntryTypeGroup))
}

func (s *ConversationStore) read(path string) ([]domain.ChatEntry, error) {
	entries, err := decodeEntries(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", chaterrors.ErrCorruptedLog, path, err)
	}
	return entries, nil
}

// ListDirect returns the keys of all direct conversation logs, sorted.
func (s *ConversationStore) ListDirect() ([]string, error) {
	return listStems(s.dir, directSuffix)
}

// ListGroups returns the names of all groups with a conversation log, sorted.
func (s *ConversationStore) ListGroups() ([]string, error) {
	return listStems(filepath.Join(s.dir, groupsSubdir), groupSuffix)
}

// ListGroupInfos loads every persisted group description, sorted by name.
func (s *ConversationStore) ListGroupInfos() ([]domain.GroupInfo, error) {
	names, err := listStems(filepath.Join(s.dir, groupsSubdir), groupInfoSuffix)
	if err != nil {
		return nil, err
	}
	infos := make([]domain.GroupInfo, 0, len(names))
	for _, name := range names {
		info, err := s.ReadGroupInfo(name)
		if err != nil {
			s.log.Warn("Skipping unreadable group info", "group", name, "error", err)
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// ReadGroupInfo loads one group description file.
func (s *ConversationStore) ReadGroupInfo(group string) (domain.GroupInfo, error) {
	raw, err := os.ReadFile(s.groupInfoFile(group))
	if err != nil {
		return domain.GroupInfo{}, err
	}
	var info domain.GroupInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return domain.GroupInfo{}, fmt.Errorf("decoding group info %s: %w", group, err)
	}
	return info, nil
}

// WriteGroupInfo rewrites the group description after a membership change.
func (s *ConversationStore) WriteGroupInfo(info domain.GroupInfo) error {
	raw, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding group info %s: %w", info.GroupName, err)
	}
	if err := os.WriteFile(s.groupInfoFile(info.GroupName), raw, 0o644); err != nil {
		return fmt.Errorf("writing group info %s: %w", info.GroupName, err)
	}
	return nil
}

// DeleteGroupInfo removes the description of a deleted group. The
// conversation log itself is kept as history.
func (s *ConversationStore) DeleteGroupInfo(group string) error {
	err := os.Remove(s.groupInfoFile(group))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting group info %s: %w", group, err)
	}
	return nil
}

func (s *ConversationStore) lockFor(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

func (s *ConversationStore) entryFile(key, entryType string) string {
	if entryType == domain.EntryTypeGroup {
		return filepath.Join(s.dir, groupsSubdir, key+groupSuffix)
	}
	return filepath.Join(s.dir, key+directSuffix)
}

func (s *ConversationStore) groupInfoFile(group string) string {
	return filepath.Join(s.dir, groupsSubdir, group+groupInfoSuffix)
}

func decodeEntries(path string) ([]domain.ChatEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []domain.ChatEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func listStems(dir, suffix string) ([]string, error) {
	items, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var stems []string
	for _, item := range items {
		if item.IsDir() || !strings.HasSuffix(item.Name(), suffix) {
			continue
		}
		stems = append(stems, strings.TrimSuffix(item.Name(), suffix))
	}
	sort.Strings(stems)
	return stems, nil
}
