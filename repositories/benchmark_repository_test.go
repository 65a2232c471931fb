package repositories

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	db "github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"chat-relay/domain"
	"chat-relay/domain/search"
)

func Test_ArchiveScan_Performance(t *testing.T) {
	req := require.New(t)
	path := t.TempDir()
	badgerDB, err := badger.Open(badger.DefaultOptions(path).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	req.NoError(err)
	defer badgerDB.Close()

	log := logs.GetLoggerFromString("ERROR")
	totalEntries := 500_000

	// --- Phase 1: SEEDING ---
	// Seed BadgerDB directly with the real key layout, bypassing the
	// index so the scan is the only thing on the clock
	fmt.Printf("Starting seeding of %d entries...\n", totalEntries)
	startSeed := time.Now()
	wb := badgerDB.NewWriteBatch()

	for i := 0; i < totalEntries; i++ {
		at := time.Now().Add(time.Duration(i) * time.Nanosecond)
		sender := fmt.Sprintf("user_%d", i%500)
		receiver := fmt.Sprintf("user_%d", (i+1)%500)
		conversation := domain.ConversationKey(sender, receiver)

		entry := domain.NewDirectEntry(sender, receiver, "Hello world, this is a performance test!", at)
		raw, err := json.Marshal(entry)
		req.NoError(err)

		key := fmt.Sprintf("%s%s:%019d:%s", KeyPrefix, conversation, at.UnixNano(), uuid.New())
		_ = wb.Set([]byte(key), raw)

		if i%100_000 == 0 && i > 0 {
			fmt.Printf("  -> Inserted %d entries...\n", i)
		}
	}

	req.NoError(wb.Flush())
	fmt.Printf("✅ Seeded %d entries in %v\n", totalEntries, time.Since(startSeed))

	// --- Phase 2: FULL SCAN ---
	repo := NewArchiveRepository(badgerDB, nil, log, 50)
	startScan := time.Now()

	results, err := repo.All()
	req.NoError(err)

	duration := time.Since(startScan)
	fmt.Printf("✅ Scanned %d entries in %v (%.0f entries/sec)\n",
		len(results), duration, float64(len(results))/duration.Seconds())

	// --- VERIFICATION ---
	req.Len(results, totalEntries)
	req.NotEmpty(results[0].Conversation)
	req.Equal(domain.EntryTypeDirect, results[0].Entry.Type)
}

// ============================================================================
// CONCURRENCY TESTS
// ============================================================================

// TestArchiveRepository_ConcurrentStores validates thread-safety when multiple
// goroutines archive different entries simultaneously.
func TestArchiveRepository_ConcurrentStores(t *testing.T) {
	req := require.New(t)
	ctx, log, badgerDB, blugeWriter, err := db.SetupBenchmark(t.TempDir())
	req.NoError(err)
	defer db.CleanupDB(badgerDB, blugeWriter)

	repo := NewArchiveRepository(badgerDB, blugeWriter, log, 50)

	// Given: Configuration for concurrent writes
	const (
		numGoroutines    = 10
		writesPerRoutine = 50
		totalWrites      = numGoroutines * writesPerRoutine
	)

	var wg sync.WaitGroup
	var successCount atomic.Int32
	var errorCount atomic.Int32

	// When: Multiple goroutines archive concurrently
	startTime := time.Now()

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(routineID int) {
			defer wg.Done()

			receiver := fmt.Sprintf("user%d", routineID)
			conversation := domain.ConversationKey("alice", receiver)

			for j := 0; j < writesPerRoutine; j++ {
				at := time.Now().UTC()
				entry := domain.NewDirectEntry("alice", receiver,
					fmt.Sprintf("Concurrent write test content %d-%d", routineID, j), at)

				if err := repo.Store(conversation, entry, at); err != nil {
					t.Logf("Store error in routine %d: %v", routineID, err)
					errorCount.Add(1)
				} else {
					successCount.Add(1)
				}
			}
		}(i)
	}

	wg.Wait()
	duration := time.Since(startTime)

	// Then: All writes should succeed
	req.Equal(int32(totalWrites), successCount.Load(), "All stores should succeed")
	req.Equal(int32(0), errorCount.Load(), "No errors should occur")

	t.Logf("Concurrent stores: %d writes in %v (%.0f writes/sec)",
		totalWrites, duration, float64(totalWrites)/duration.Seconds())

	// And: All entries should be retrievable from BadgerDB
	results, err := repo.All()
	req.NoError(err)
	req.Len(results, totalWrites, "All entries should be retrievable")

	// And: Search should find all entries
	hits, err := repo.Search(ctx, search.ByKind("concurrent", search.KindAll, totalWrites+1))
	req.NoError(err)
	req.Len(hits, totalWrites, "Search should find all entries")
}

// TestArchiveRepository_SameConversation_PreservesEveryEntry validates that
// concurrent archiving into one conversation never overwrites: each store
// gets its own key.
func TestArchiveRepository_SameConversation_PreservesEveryEntry(t *testing.T) {
	req := require.New(t)
	_, log, badgerDB, blugeWriter, err := db.SetupBenchmark(t.TempDir())
	req.NoError(err)
	defer db.CleanupDB(badgerDB, blugeWriter)

	repo := NewArchiveRepository(badgerDB, blugeWriter, log, 50)
	conversation := domain.ConversationKey("alice", "bob")

	const numGoroutines = 20
	const writesPerRoutine = 10

	var wg sync.WaitGroup
	var errorCount atomic.Int32
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(routineID int) {
			defer wg.Done()
			for j := 0; j < writesPerRoutine; j++ {
				at := time.Now().UTC()
				entry := domain.NewDirectEntry("alice", "bob",
					fmt.Sprintf("burst %d-%d", routineID, j), at)
				if err := repo.Store(conversation, entry, at); err != nil {
					errorCount.Add(1)
				}
			}
		}(i)
	}
	wg.Wait()
	req.Equal(int32(0), errorCount.Load(), "No errors should occur")

	results, err := repo.All()
	req.NoError(err)
	req.Len(results, numGoroutines*writesPerRoutine)

	seen := make(map[string]struct{}, len(results))
	for _, result := range results {
		req.Equal(conversation, result.Conversation)
		seen[result.Key] = struct{}{}
	}
	req.Len(seen, numGoroutines*writesPerRoutine, "Every entry should keep a distinct key")
}
