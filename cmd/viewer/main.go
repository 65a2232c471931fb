// The viewer inspects chat histories offline: direct and group logs,
// the searchable archive, and per-entry integrity marks. It opens the
// archive read-only so it can run next to a live server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"

	"chat-relay/domain"
	"chat-relay/domain/search"
	chaterrors "chat-relay/errors"
	"chat-relay/repositories"
)

// Archive searches are bounded; log scans are not, matching the
// original file-walking behaviour.
const searchLimit = 100

type Config struct {
	LogDir   string `env:"LOG_DIR,default=server_logs"`
	LogLevel string `env:"LOG_LEVEL,default=WARN"`
}

type viewer struct {
	store    *repositories.ConversationStore
	log      *slog.Logger
	logDir   string
	showHash bool
}

func main() {
	users := flag.String("users", "", "Two usernames (\"alice bob\") to view their direct history")
	group := flag.String("group", "", "Group name to view its history")
	listChats := flag.Bool("list-chats", false, "List all direct chat histories")
	listGroups := flag.Bool("list-groups", false, "List all group chat histories")
	searchTerm := flag.String("search", "", "Search messages containing a term")
	searchType := flag.String("search-type", search.KindAll, "Limit search to: all, direct or group")
	archiveDump := flag.Bool("archive", false, "Dump the raw archive table")
	showHash := flag.Bool("show-hash", false, "Show message hashes next to each entry")
	export := flag.String("export", "", "Export the output to a text file")
	flag.Parse()

	// 1. Load config
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	modes := 0
	for _, active := range []bool{*users != "", *group != "", *listChats, *listGroups, *searchTerm != "", *archiveDump} {
		if active {
			modes++
		}
	}
	if modes != 1 {
		fmt.Fprintln(os.Stderr, "Pick exactly one mode: --users, --group, --list-chats, --list-groups, --search or --archive")
		flag.Usage()
		os.Exit(2)
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	store, err := repositories.NewConversationStore(config.LogDir, logger)
	if err != nil {
		log.Fatalf("Failed to open logs in %s: %v", config.LogDir, err)
	}

	if *export != "" {
		// Keep ANSI escapes out of exported files.
		color.Disable()
	}

	v := &viewer{store: store, log: logger, logDir: config.LogDir, showHash: *showHash}

	// 2. Render the selected mode into a buffer so it can be exported as printed.
	out := &strings.Builder{}
	switch {
	case *users != "":
		pair := strings.Fields(strings.ReplaceAll(*users, ",", " "))
		if len(pair) != 2 {
			log.Fatalf("--users needs exactly two names, got %q", *users)
		}
		err = v.direct(out, pair[0], pair[1])
	case *group != "":
		err = v.groupHistory(out, *group)
	case *listChats:
		err = v.listChats(out)
	case *listGroups:
		err = v.listGroups(out)
	case *searchTerm != "":
		err = v.search(out, *searchTerm, *searchType)
	case *archiveDump:
		err = v.archiveTable(out)
	}
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	fmt.Print(out.String())

	if *export != "" {
		if err := os.WriteFile(*export, []byte(out.String()), 0o644); err != nil {
			log.Fatalf("Error exporting chat: %v", err)
		}
		fmt.Println("Chat exported to:", *export)
	}
}

func (v *viewer) direct(out io.Writer, user1, user2 string) error {
	entries, err := v.store.ReadDirect(user1, user2)
	if errors.Is(err, chaterrors.ErrCorruptedLog) {
		fmt.Fprintln(out, "Error: Chat file is corrupted")
		return nil
	}
	if err != nil {
		return err
	}
	if entries == nil {
		fmt.Fprintf(out, "No chat history found between %s and %s\n", user1, user2)
		return nil
	}

	title(out, fmt.Sprintf("Chat history: %s <-> %s (%d messages)", user1, user2, len(entries)))
	if len(entries) == 0 {
		fmt.Fprintln(out, "The history is empty")
		return nil
	}
	v.renderEntries(out, entries)
	return nil
}

func (v *viewer) groupHistory(out io.Writer, name string) error {
	entries, err := v.store.ReadGroup(name)
	if errors.Is(err, chaterrors.ErrCorruptedLog) {
		fmt.Fprintln(out, "Error: Group chat file is corrupted")
		return nil
	}
	if err != nil {
		return err
	}
	if entries == nil {
		fmt.Fprintf(out, "No group chat history found for '%s'\n", name)
		return nil
	}

	title(out, fmt.Sprintf("Group chat history: %s (%d messages)", name, len(entries)))
	if info, err := v.store.ReadGroupInfo(name); err == nil {
		fmt.Fprintf(out, "Admin: %s\n", info.Admin)
		fmt.Fprintf(out, "Members: %s\n", strings.Join(info.Members, ", "))
		fmt.Fprintf(out, "Created: %s\n", info.CreatedDate)
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "The history is empty")
		return nil
	}
	v.renderEntries(out, entries)
	return nil
}

func (v *viewer) listChats(out io.Writer) error {
	keys, err := v.store.ListDirect()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Fprintln(out, "No direct chat histories found")
		return nil
	}

	title(out, "Direct chats")
	table := newTable(out, []string{"Participants", "Messages", "Last Message"})
	for _, key := range keys {
		user1, user2, ok := domain.SplitConversationKey(key)
		if !ok {
			continue
		}
		participants := user1 + " <-> " + user2
		entries, err := v.store.ReadDirectKey(key)
		if err != nil {
			table.Append([]string{participants, "-", "unreadable: " + err.Error()})
			continue
		}
		table.Append([]string{participants, strconv.Itoa(len(entries)), lastTimestamp(entries)})
	}
	table.Render()
	return nil
}

func (v *viewer) listGroups(out io.Writer) error {
	names, err := v.store.ListGroups()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(out, "No group chat histories found")
		return nil
	}

	title(out, "Group chats")
	table := newTable(out, []string{"Group", "Admin", "Members", "Messages", "Last Message"})
	for _, name := range names {
		admin, members := "Unknown", 0
		if info, err := v.store.ReadGroupInfo(name); err == nil {
			admin = info.Admin
			members = len(info.Members)
		}
		entries, err := v.store.ReadGroup(name)
		if err != nil {
			table.Append([]string{name, admin, strconv.Itoa(members), "-", "unreadable: " + err.Error()})
			continue
		}
		table.Append([]string{name, admin, strconv.Itoa(members), strconv.Itoa(len(entries)), lastTimestamp(entries)})
	}
	table.Render()
	return nil
}

func (v *viewer) search(out io.Writer, term, kind string) error {
	switch kind {
	case search.KindAll, search.KindDirect, search.KindGroup:
	default:
		return fmt.Errorf("unknown --search-type %q (want all, direct or group)", kind)
	}

	results, fromArchive, err := v.archiveSearch(term, kind)
	if err != nil {
		return err
	}
	if !fromArchive {
		if results, err = v.scanLogs(term, kind); err != nil {
			return err
		}
	}

	source := "archive"
	if !fromArchive {
		source = "log scan"
	}
	title(out, fmt.Sprintf("Search results for '%s' via %s", term, source))

	if len(results) == 0 {
		fmt.Fprintln(out, "No matches found")
		return nil
	}

	table := newTable(out, []string{"Conversation", "Timestamp", "", "Sender", "Receiver", "Message"})
	for _, result := range results {
		entry := result.Entry
		table.Append([]string{result.Conversation, entry.Timestamp, integrityMark(entry), entry.Sender, entry.Receiver, entry.Message})
	}
	table.Render()
	fmt.Fprintf(out, "Found %d messages containing '%s'\n", len(results), term)
	return nil
}

// archiveSearch queries the archive when one exists. The boolean
// reports whether it did; a missing or unopenable archive is not an
// error, the caller falls back to scanning the JSON logs.
func (v *viewer) archiveSearch(term, kind string) ([]search.Result, bool, error) {
	badgerDir, indexDir := repositories.ArchiveDirs(v.logDir)
	if _, err := os.Stat(indexDir); err != nil {
		return nil, false, nil
	}

	db, reader, err := openArchive(badgerDir, indexDir)
	if err != nil {
		v.log.Warn("Archive unavailable, falling back to log scan", "error", err)
		return nil, false, nil
	}
	defer func() {
		_ = reader.Close()
		_ = db.Close()
	}()

	archive := repositories.NewArchiveReader(db, reader, v.log, searchLimit)
	results, err := archive.Search(context.Background(), search.ByKind(term, kind, searchLimit))
	if err != nil {
		return nil, false, err
	}
	return results, true, nil
}

func (v *viewer) scanLogs(term, kind string) ([]search.Result, error) {
	var results []search.Result
	needle := strings.ToLower(term)

	appendMatches := func(conversation string, entries []domain.ChatEntry) {
		for _, entry := range entries {
			if strings.Contains(strings.ToLower(entry.Message), needle) {
				results = append(results, search.Result{Conversation: conversation, Entry: entry})
			}
		}
	}

	if kind == search.KindAll || kind == search.KindDirect {
		keys, err := v.store.ListDirect()
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			entries, err := v.store.ReadDirectKey(key)
			if err != nil {
				continue
			}
			appendMatches(key, entries)
		}
	}

	if kind == search.KindAll || kind == search.KindGroup {
		names, err := v.store.ListGroups()
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			entries, err := v.store.ReadGroup(name)
			if err != nil {
				continue
			}
			appendMatches(name, entries)
		}
	}
	return results, nil
}

func (v *viewer) archiveTable(out io.Writer) error {
	badgerDir, indexDir := repositories.ArchiveDirs(v.logDir)
	db, reader, err := openArchive(badgerDir, indexDir)
	if err != nil {
		return err
	}
	defer func() {
		_ = reader.Close()
		_ = db.Close()
	}()

	archive := repositories.NewArchiveReader(db, reader, v.log, searchLimit)
	results, err := archive.All()
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(out, "The archive is empty")
		return nil
	}

	title(out, "Archived entries")
	table := newTable(out, []string{"Key", "Conversation", "Type", "Timestamp", "Sender", "Receiver", "Message"})
	for _, result := range results {
		entry := result.Entry
		table.Append([]string{result.Key, result.Conversation, entry.Type, entry.Timestamp, entry.Sender, entry.Receiver, entry.Message})
	}
	table.Render()
	return nil
}

func (v *viewer) renderEntries(out io.Writer, entries []domain.ChatEntry) {
	headers := []string{"Timestamp", "", "Sender", "Receiver", "Message"}
	if v.showHash {
		headers = append(headers, "Hash")
	}
	table := newTable(out, headers)
	for _, entry := range entries {
		receiver := entry.Receiver
		if entry.Type == domain.EntryTypeGroup {
			receiver = "[" + receiver + "]"
		}
		row := []string{entry.Timestamp, integrityMark(entry), entry.Sender, receiver, entry.Message}
		if v.showHash {
			row = append(row, shortHash(entry.MessageHash))
		}
		table.Append(row)
	}
	table.Render()
}

func newTable(out io.Writer, headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func title(out io.Writer, text string) {
	fmt.Fprintln(out, color.New(color.BgBlack, color.FgGreen).Render(text))
}

// integrityMark recomputes the entry hash. A mismatch means the log
// was edited after the fact; it is a corruption check, not a security
// feature.
func integrityMark(entry domain.ChatEntry) string {
	if entry.Verify() {
		return color.Green.Render("✓")
	}
	return color.Red.Render("⚠")
}

func shortHash(hash string) string {
	if len(hash) > 16 {
		return hash[:16] + "..."
	}
	return hash
}

func lastTimestamp(entries []domain.ChatEntry) string {
	if len(entries) == 0 {
		return "No messages"
	}
	return entries[len(entries)-1].Timestamp
}

func openArchive(badgerDir, indexDir string) (*badger.DB, *bluge.Reader, error) {
	opts := badger.DefaultOptions(badgerDir).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("opening archive database: %w", err)
	}

	reader, err := bluge.OpenReader(bluge.DefaultConfig(indexDir))
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("opening archive index: %w", err)
	}
	return db, reader, nil
}
