package test

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"chat-relay/sink"
	"chat-relay/tcp"
)

// harness boots the whole server stack on a loopback listener: store,
// archive, registries, router, supervised fan-out and the TCP front.
type harness struct {
	addr    string
	store   *repositories.ConversationStore
	metrics *observability.Metrics
}

func startStack(t *testing.T) harness {
	t.Helper()
	req := require.New(t)
	logDir := t.TempDir()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	store, err := repositories.NewConversationStore(logDir, log)
	req.NoError(err)

	// Reduced to 16 Mo for testing (avoid 20 Go of storage)
	badgerDir, indexDir := repositories.ArchiveDirs(logDir)
	db, err := badger.Open(badger.DefaultOptions(badgerDir).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	req.NoError(err)

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(indexDir))
	req.NoError(err)

	archive := repositories.NewArchiveRepository(db, blugeWriter, log, 10)

	metrics := observability.NewMetrics()
	sessions := runtime.NewSessionRegistry()
	groups := runtime.NewGroupRegistry(sessions, store, log)
	events := make(chan event.DomainEvent, 64)
	router := runtime.NewRouter(log, sessions, groups, store, moderation.NewPassthrough(), events, metrics)
	service := services.NewChatService(log, sessions, groups, router, archive, metrics, 10)

	ctx, cancel := context.WithCancel(context.Background())

	sup := workers.NewSupervisor(log, 200*time.Millisecond)
	sup.Add(workers.NewEventFanout(log, events).Add(sink.NewArchiveSink(archive, log)))
	go sup.Run(ctx)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)

	server := tcp.NewServer(log, service, metrics, 4096)
	serverDone := make(chan error, 1)
	go func() { serverDone <- server.Serve(ctx, listener) }()

	// Clean everything at the end of the test
	t.Cleanup(func() {
		cancel()
		select {
		case <-serverDone:
		case <-time.After(2 * time.Second):
			t.Error("server did not stop in time")
		}
		sup.Stop()
		_ = blugeWriter.Close()
		_ = db.Close()
	})

	return harness{addr: listener.Addr().String(), store: store, metrics: metrics}
}

type chatClient struct {
	t       *testing.T
	name    string
	sock    net.Conn
	scanner *bufio.Scanner
}

// connect dials the server and walks through the handshake, draining
// the welcome block so the next read is real traffic.
func connect(t *testing.T, addr, name string) *chatClient {
	t.Helper()
	sock, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sock.Close() })

	c := &chatClient{t: t, name: name, sock: sock, scanner: bufio.NewScanner(sock)}
	c.expectLine("Enter your username: ")
	c.send(name)
	c.expectLine("Welcome to the chat, " + name + "!")
	c.awaitLine("- /quit - Leave chat")
	return c
}

func (c *chatClient) send(line string) {
	c.t.Helper()
	_, err := fmt.Fprintf(c.sock, "%s\n", line)
	require.NoError(c.t, err)
}

func (c *chatClient) readLine() string {
	c.t.Helper()
	require.NoError(c.t, c.sock.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.True(c.t, c.scanner.Scan(), "%s expected a line, got: %v", c.name, c.scanner.Err())
	return c.scanner.Text()
}

func (c *chatClient) expectLine(want string) {
	c.t.Helper()
	require.Equal(c.t, want, c.readLine(), "next line for %s", c.name)
}

// awaitLine reads until the wanted line shows up, skipping unrelated
// traffic such as join notices.
func (c *chatClient) awaitLine(want string) {
	c.t.Helper()
	for i := 0; i < 50; i++ {
		if c.readLine() == want {
			return
		}
	}
	c.t.Fatalf("%s never received %q", c.name, want)
}

func TestScenario_Group_Lifecycle(t *testing.T) {
	req := require.New(t)
	h := startStack(t)

	alice := connect(t, h.addr, "alice")
	bob := connect(t, h.addr, "bob")
	alice.awaitLine("bob has joined the chat")

	// Creation makes alice the admin
	alice.send("/creategroup g1")
	alice.expectLine("Group 'g1' created successfully. You are the admin.")

	// Adding bob notifies him first, then the group, then the admin
	alice.send("/addtogroup g1 bob")
	bob.expectLine("You have been added to group 'g1' by alice")
	bob.expectLine("[g1] bob has been added to the group by alice")
	alice.expectLine("[g1] bob has been added to the group by alice")
	alice.expectLine("User 'bob' added to group 'g1'")

	// Both members see the group
	alice.send("/listgroups")
	alice.expectLine("Your groups:")
	alice.expectLine("g1 (Admin: alice, Members: 2)")
	bob.send("/listgroups")
	bob.expectLine("Your groups:")
	bob.expectLine("g1 (Admin: alice, Members: 2)")

	info, err := h.store.ReadGroupInfo("g1")
	req.NoError(err)
	req.Equal("alice", info.Admin)
	req.Equal([]string{"alice", "bob"}, info.Members)

	// The admin leaving hands the group to bob
	alice.send("/leavegroup g1")
	bob.expectLine("You are now the admin of group 'g1'")
	bob.expectLine("[g1] alice has left the group")
	alice.expectLine("Left group 'g1'")

	// The last member leaving deletes the group and its metadata
	bob.send("/leavegroup g1")
	bob.expectLine("Left group 'g1'. Group was deleted as it became empty.")

	_, err = h.store.ReadGroupInfo("g1")
	req.ErrorIs(err, os.ErrNotExist)
}

func TestScenario_Private_Message_Delivery(t *testing.T) {
	req := require.New(t)
	h := startStack(t)

	alice := connect(t, h.addr, "alice")
	bob := connect(t, h.addr, "bob")
	alice.awaitLine("bob has joined the chat")

	alice.send("@bob hello")
	bob.expectLine("[Private] alice: hello")
	alice.expectLine("[Private to bob]: hello")

	// Exactly one direct entry lands in the alice/bob log
	req.Eventually(func() bool {
		entries, err := h.store.ReadDirect("alice", "bob")
		return err == nil && len(entries) == 1
	}, 2*time.Second, 20*time.Millisecond)

	entries, err := h.store.ReadDirect("alice", "bob")
	req.NoError(err)
	req.Equal("alice", entries[0].Sender)
	req.Equal("bob", entries[0].Receiver)
	req.Equal("hello", entries[0].Message)
	req.Equal(domain.EntryTypeDirect, entries[0].Type)
	req.True(entries[0].Verify())
}

func TestScenario_Private_To_An_Absent_User(t *testing.T) {
	req := require.New(t)
	h := startStack(t)

	alice := connect(t, h.addr, "alice")

	alice.send("@charlie hello")
	alice.expectLine("Error: User charlie not found")

	// Nothing was persisted
	entries, err := h.store.ReadDirect("alice", "charlie")
	req.NoError(err)
	req.Empty(entries)
}

func TestScenario_Broadcast_Reaches_The_Archive(t *testing.T) {
	req := require.New(t)
	h := startStack(t)

	alice := connect(t, h.addr, "alice")
	bob := connect(t, h.addr, "bob")
	alice.awaitLine("bob has joined the chat")

	alice.send("hello everyone")
	bob.expectLine("alice: hello everyone")

	// The write-behind archive eventually serves the search command
	deadline := time.Now().Add(3 * time.Second)
	for {
		alice.send("/search everyone")
		line := alice.readLine()
		if strings.Contains(line, "alice -> bob: hello everyone") {
			break
		}
		req.Equal("No matches found", line)
		req.True(time.Now().Before(deadline), "archive never indexed the broadcast")
		time.Sleep(50 * time.Millisecond)
	}

	req.Positive(h.metrics.Stats().Searches)
}
