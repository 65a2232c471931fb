package sink

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/mocks"
)

type foreignEvent struct{}

func (foreignEvent) Conversation() string { return "elsewhere" }

func TestArchiveSink_Stores_Logged_Entries(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	archive := mocks.NewMockArchiver(ctrl)

	entry := domain.NewDirectEntry("alice", "bob", "hello", time.Now())
	evt := event.EntryLogged{Key: "alice_bob", Entry: entry}

	// Given the archive accepts the entry under its conversation key
	archive.EXPECT().Store("alice_bob", entry, gomock.Any()).Return(nil).Times(1)

	s := NewArchiveSink(archive, slog.Default())

	req.NoError(s.Consume(context.Background(), evt))
}

func TestArchiveSink_Reports_Store_Failures(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	archive := mocks.NewMockArchiver(ctrl)

	entry := domain.NewGroupEntry("alice", "team", "hello", time.Now())
	evt := event.EntryLogged{Key: "team", Entry: entry}

	archive.EXPECT().Store("team", entry, gomock.Any()).
		Return(fmt.Errorf("badger unavailable")).Times(1)

	s := NewArchiveSink(archive, slog.Default())

	req.Error(s.Consume(context.Background(), evt))
}

func TestArchiveSink_Ignores_Foreign_Events(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	archive := mocks.NewMockArchiver(ctrl)

	// No Store expectation: the sink must not touch the archive
	s := NewArchiveSink(archive, slog.Default())

	req.NoError(s.Consume(context.Background(), foreignEvent{}))
}
