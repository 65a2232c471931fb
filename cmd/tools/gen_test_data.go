// Command gen_test_data populates a log directory with sample
// conversations so the viewer and the moderation loader can be tried
// without running a live server.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mama165/sdk-go/logs"

	"chat-relay/domain"
	"chat-relay/repositories"
)

func main() {
	outputDir := "./test_data"
	log := logs.GetLoggerFromString("WARN")

	store, err := repositories.NewConversationStore(outputDir, log)
	if err != nil {
		panic(fmt.Sprintf("Could not create the log directory: %v", err))
	}

	fmt.Println("🚀 Generating chat fixture data...")

	// 1. Direct conversations (for --users and --list-chats)
	genDirectHistory(store)

	// 2. A group with its metadata file (for --group and --list-groups)
	genGroupHistory(store)

	// 3. A censored words file (for MODERATION_PATH)
	genWordsFile(filepath.Join(outputDir, "censored_words.txt"))

	fmt.Println("\n✅ Ready! Point the viewer at it:")
	fmt.Printf("   LOG_DIR=%s go run ./cmd/viewer --list-chats\n", outputDir)
	fmt.Printf("   LOG_DIR=%s go run ./cmd/viewer --group devs\n", outputDir)
	fmt.Printf("   LOG_DIR=%s go run ./cmd/viewer --search lunch\n", outputDir)
}

// genDirectHistory writes two private histories with verifiable hashes
func genDirectHistory(store *repositories.ConversationStore) {
	base := time.Now().Add(-2 * time.Hour)
	script := []struct {
		from, to, text string
	}{
		{"alice", "bob", "morning, did the deploy finish?"},
		{"bob", "alice", "yes, all green since 9am"},
		{"alice", "bob", "perfect, lunch at noon then?"},
		{"carol", "alice", "can you review my branch today?"},
		{"alice", "carol", "after lunch, promise"},
	}

	for i, m := range script {
		at := base.Add(time.Duration(i) * time.Minute)
		entry := domain.NewDirectEntry(m.from, m.to, m.text, at)
		if err := store.Append(domain.ConversationKey(m.from, m.to), entry); err != nil {
			fmt.Printf("❌ Direct entry error: %v\n", err)
			return
		}
	}
	fmt.Println("💬 Direct conversations generated: alice_bob, alice_carol")
}

// genGroupHistory writes a group log plus the metadata file the
// server would have produced for it
func genGroupHistory(store *repositories.ConversationStore) {
	createdAt := time.Now().Add(-90 * time.Minute)
	info := domain.GroupInfo{
		GroupName:   "devs",
		Admin:       "alice",
		Members:     []string{"alice", "bob", "carol"},
		CreatedDate: createdAt.Format(domain.TimestampLayout),
	}
	if err := store.WriteGroupInfo(info); err != nil {
		fmt.Printf("❌ Group info error: %v\n", err)
		return
	}

	script := []struct {
		from, text string
	}{
		{"alice", "welcome to the devs group"},
		{"bob", "standup moved to 10am"},
		{"carol", "noted, lunch first then meetings"},
	}
	for i, m := range script {
		at := createdAt.Add(time.Duration(i+1) * time.Minute)
		entry := domain.NewGroupEntry(m.from, "devs", m.text, at)
		if err := store.Append("devs", entry); err != nil {
			fmt.Printf("❌ Group entry error: %v\n", err)
			return
		}
	}
	fmt.Println("👥 Group generated: devs (3 members)")
}

// genWordsFile writes a small moderation list usable as MODERATION_PATH
func genWordsFile(path string) {
	words := "# demo censored words\nfoobar\ndagnabbit\n"
	if err := os.WriteFile(path, []byte(words), 0o644); err != nil {
		fmt.Printf("❌ Words file error: %v\n", err)
		return
	}
	fmt.Printf("🚫 Moderation list generated: %s\n", path)
}
