//go:generate go run go.uber.org/mock/mockgen -source=archive.go -destination=../mocks/mock_archive_repository.go -package=mocks
package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"chat-relay/domain"
	"chat-relay/domain/search"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// KeyPrefix namespaces archived entries inside BadgerDB.
const KeyPrefix = "msg:"

// ArchiveDirs resolves the archive layout under the log directory.
// Server and viewer must agree on it.
func ArchiveDirs(logDir string) (badgerDir, indexDir string) {
	return filepath.Join(logDir, "archive", "badger"),
		filepath.Join(logDir, "archive", "index")
}

type Archiver interface {
	Store(conversation string, entry domain.ChatEntry, at time.Time) error
	Search(ctx context.Context, query search.Query) ([]search.Result, error)
}

// ArchiveRepository keeps a queryable copy of every persisted entry:
// the payload in BadgerDB under time-ordered keys, the message text in
// a Bluge full-text index. The JSON log files stay the authoritative
// record; the archive only serves search and inspection.
type ArchiveRepository struct {
	db     *badger.DB
	writer *bluge.Writer
	log    *slog.Logger
	limit  int
}

func NewArchiveRepository(db *badger.DB, writer *bluge.Writer, log *slog.Logger, limit int) *ArchiveRepository {
	return &ArchiveRepository{db: db, writer: writer, log: log, limit: limit}
}

// Store persists one entry under "msg:{conversation}:{timestamp_padded}:{uuid}".
//  1. The 19-digit zero padded UnixNano keeps keys chronologically
//     sorted under lexicographic iteration.
//  2. The UUID disambiguates two entries landing on the same nanosecond.
//
// Conversation keys never contain ':' (names are validated at the
// protocol layer), so the key segments stay parseable.
func (a *ArchiveRepository) Store(conversation string, entry domain.ChatEntry, at time.Time) error {
	key := fmt.Sprintf("%s%s:%019d:%s", KeyPrefix, conversation, at.UnixNano(), uuid.New())

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding archive entry: %w", err)
	}
	err = a.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), raw)
	})
	if err != nil {
		return fmt.Errorf("archiving entry %s: %w", key, err)
	}

	doc := bluge.NewDocument(key).
		AddField(bluge.NewTextField("message", entry.Message)).
		AddField(bluge.NewKeywordField("conversation", conversation)).
		AddField(bluge.NewKeywordField("sender", entry.Sender)).
		AddField(bluge.NewKeywordField("receiver", entry.Receiver)).
		AddField(bluge.NewKeywordField("type", entry.Type))
	if err := a.writer.Update(doc.ID(), doc); err != nil {
		return fmt.Errorf("indexing entry %s: %w", key, err)
	}
	return nil
}

// Search runs a full-text query against the index and hydrates each
// hit from BadgerDB. Results come back in relevance order.
func (a *ArchiveRepository) Search(ctx context.Context, query search.Query) ([]search.Result, error) {
	reader, err := a.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("opening index reader: %w", err)
	}
	defer reader.Close()

	limit := query.Limit
	if limit <= 0 {
		limit = a.limit
	}

	keys, err := searchKeys(ctx, reader, query, limit)
	if err != nil {
		return nil, err
	}
	return hydrate(a.db, a.log, keys)
}

// archiveQuery translates a search query into the index's terms.
func archiveQuery(query search.Query) *bluge.BooleanQuery {
	matches := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(query.Terms).SetField("message"))

	if query.Kind == search.KindDirect || query.Kind == search.KindGroup {
		matches.AddMust(bluge.NewTermQuery(query.Kind).SetField("type"))
	}

	if query.Participant != "" {
		// Visibility scope: sent by them, addressed to them, or in one
		// of their groups.
		scope := bluge.NewBooleanQuery().SetMinShould(1)
		scope.AddShould(bluge.NewTermQuery(query.Participant).SetField("sender"))
		scope.AddShould(bluge.NewTermQuery(query.Participant).SetField("receiver"))
		for _, group := range query.Groups {
			scope.AddShould(bluge.NewTermQuery(group).SetField("receiver"))
		}
		matches.AddMust(scope)
	}
	return matches
}

func searchKeys(ctx context.Context, reader *bluge.Reader, query search.Query, limit int) ([]string, error) {
	iter, err := reader.Search(ctx, bluge.NewTopNSearch(limit, archiveQuery(query)))
	if err != nil {
		return nil, fmt.Errorf("searching archive: %w", err)
	}

	var keys []string
	for {
		match, err := iter.Next()
		if err != nil {
			return nil, fmt.Errorf("iterating matches: %w", err)
		}
		if match == nil {
			break
		}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				keys = append(keys, string(value))
			}
			return true
		})
		if err != nil {
			return nil, fmt.Errorf("reading match fields: %w", err)
		}
	}
	return keys, nil
}

// All scans every archived entry in key order, oldest first within
// each conversation. It backs the offline inspection table.
func (a *ArchiveRepository) All() ([]search.Result, error) {
	return scanAll(a.db, a.log)
}

// ArchiveReader is the viewer's side of the archive: the same data,
// opened read-only (BadgerDB with BypassLockGuard, a Bluge snapshot
// reader) so it works while the server holds the write locks.
type ArchiveReader struct {
	db     *badger.DB
	reader *bluge.Reader
	log    *slog.Logger
	limit  int
}

func NewArchiveReader(db *badger.DB, reader *bluge.Reader, log *slog.Logger, limit int) *ArchiveReader {
	return &ArchiveReader{db: db, reader: reader, log: log, limit: limit}
}

func (a *ArchiveReader) Search(ctx context.Context, query search.Query) ([]search.Result, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = a.limit
	}
	keys, err := searchKeys(ctx, a.reader, query, limit)
	if err != nil {
		return nil, err
	}
	return hydrate(a.db, a.log, keys)
}

func (a *ArchiveReader) All() ([]search.Result, error) {
	return scanAll(a.db, a.log)
}

func scanAll(db *badger.DB, log *slog.Logger) ([]search.Result, error) {
	var results []search.Result
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(KeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := string(item.Key())
			err := item.Value(func(val []byte) error {
				result, err := decodeResult(key, val)
				if err != nil {
					log.Warn("Skipping undecodable archive entry", "key", key, "error", err)
					return nil
				}
				results = append(results, result)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return results, err
}

func hydrate(db *badger.DB, log *slog.Logger, keys []string) ([]search.Result, error) {
	results := make([]search.Result, 0, len(keys))
	err := db.View(func(txn *badger.Txn) error {
		for _, key := range keys {
			item, err := txn.Get([]byte(key))
			if err != nil {
				// The index can briefly know entries badger no longer has.
				log.Warn("Archive hit without payload", "key", key, "error", err)
				continue
			}
			err = item.Value(func(val []byte) error {
				result, err := decodeResult(key, val)
				if err != nil {
					return err
				}
				results = append(results, result)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return results, err
}

func decodeResult(key string, val []byte) (search.Result, error) {
	var entry domain.ChatEntry
	if err := json.Unmarshal(val, &entry); err != nil {
		return search.Result{}, fmt.Errorf("decoding archive entry %s: %w", key, err)
	}
	return search.Result{
		Key:          key,
		Conversation: conversationFromKey(key),
		Entry:        entry,
	}, nil
}

func conversationFromKey(key string) string {
	parts := strings.Split(key, ":")
	if len(parts) != 4 {
		return ""
	}
	return parts[1]
}
