package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"

	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"chat-relay/sink"
	"chat-relay/tcp"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// Deferred cleanups (database close, index flush) only execute reliably
// when run() returns instead of exiting the process mid-flight.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, fmt.Errorf("config validation: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Conversation logs & archive (BadgerDB + Bluge)
	store, err := repositories.NewConversationStore(config.LogDir, log)
	if err != nil {
		return exitRuntime, fmt.Errorf("conversation store: %w", err)
	}

	badgerDir, indexDir := repositories.ArchiveDirs(config.LogDir)
	db, err := badger.Open(badger.DefaultOptions(badgerDir).WithLoggingLevel(badger.WARNING))
	if err != nil {
		return exitRuntime, fmt.Errorf("archive database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(indexDir))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		log.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	archive := repositories.NewArchiveRepository(db, blugeWriter, log, config.SearchLimit)

	ctx := context.Background()
	if log.Enabled(ctx, slog.LevelDebug) {
		debugPort := 8081
		endpoint := "/inspect"
		log.Info("Debug archive inspector available",
			"url", fmt.Sprintf("http://localhost:%d%s?prefix=%s", debugPort, endpoint, repositories.KeyPrefix))
		database.StartDebugServer(db, debugPort, endpoint, ChatEntryMapper)
	}

	// 3. Runtime: registries, moderation, router, service
	metrics := observability.NewMetrics()
	sessions := runtime.NewSessionRegistry()
	groups := runtime.NewGroupRegistry(sessions, store, log)
	metrics.ObserveSizes(sessions.Count, groups.Count)

	censor, err := buildModerator(config, log)
	if err != nil {
		return exitConfig, err
	}

	events := make(chan event.DomainEvent, config.EventBufferSize)
	router := runtime.NewRouter(log, sessions, groups, store, censor, events, metrics)
	service := services.NewChatService(log, sessions, groups, router, archive, metrics, config.SearchLimit)

	// 4. Context & Signals
	// NotifyContext captures OS signals and cancels the context to trigger a shutdown.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Supervised workers: event fan-out, health sampler, channel watcher, ops surface
	sup := workers.NewSupervisor(log, config.RestartInterval)
	fanout := workers.NewEventFanout(log, events).Add(sink.NewArchiveSink(archive, log))
	watched := []workers.NamedChannel{{Name: "events", Channel: events}}
	sup.Add(fanout,
		workers.NewHealthMonitoringWorker(log, config.HealthInterval, metrics),
		workers.NewChannelCapacityWorker(log, watched, metrics, config.MetricInterval))
	if config.OpsPort > 0 {
		opsAddr := fmt.Sprintf("%s:%d", config.Host, config.OpsPort)
		sup.Add(internal.NewOpsServer(log, metrics, opsAddr))
	}
	go sup.Run(ctx)

	// 6. TCP listener
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	server := tcp.NewServer(log, service, metrics, config.MaxLineBytes)
	serverDone := make(chan error, 1)
	go func() {
		log.Info("Chat server listening", "address", address)
		serverDone <- server.Serve(ctx, listener)
	}()

	// 7. Wait for Stop
	// The execution blocks here until a signal arrives or the listener dies.
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
		if err := <-serverDone; err != nil {
			log.Warn("Listener stopped with error", "error", err)
		}
	case err := <-serverDone:
		if err != nil {
			return exitRuntime, fmt.Errorf("server error: %w", err)
		}
	}

	// 8. Final Cleanup (graceful shutdown)
	log.Info("Shutting down gracefully...")
	sup.Stop()
	log.Info("Program stopped cleanly")

	return exitOK, nil
}

func buildModerator(config Config, log *slog.Logger) (*moderation.Moderator, error) {
	if config.ModerationPath == "" {
		return moderation.NewPassthrough(), nil
	}
	replacement, err := config.CharacterRune()
	if err != nil {
		return nil, err
	}
	words, err := moderation.LoadWords(config.ModerationPath)
	if err != nil {
		return nil, fmt.Errorf("moderation list: %w", err)
	}
	return moderation.NewModerator(words, replacement, log)
}

// ChatEntryMapper renders archived chat entries in the debug inspector.
func ChatEntryMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)

	var entry domain.ChatEntry
	if err := json.Unmarshal(val, &entry); err != nil {
		row.Detail = "Error: unmarshal failed"
		return row
	}

	row.Type = strings.ToUpper(entry.Type)
	row.Timestamp = entry.Timestamp
	row.Detail = fmt.Sprintf("%s -> %s: %s", entry.Sender, entry.Receiver, entry.Message)
	return row
}
