package contextstore

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/groupmind-tgbot-go/internal/config"
	"github.com/groupmind-tgbot-go/internal/models"
)

func newTestManager(t *testing.T, window int) *Manager {
	t.Helper()

	cfg := &config.Config{}
	cfg.Storage = config.StorageConfig{
		Type:            "memory",
		ContextTTL:      time.Hour,
		CleanupInterval: time.Hour,
	}
	cfg.Behavior.ContextSize = window

	log := logrus.New()
	log.SetOutput(io.Discard)

	m, err := NewManager(cfg, log)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func mustRecordAll(t *testing.T, m *Manager, chatID int64, texts []string) *models.ChatContext {
	t.Helper()

	var last *models.ChatContext
	for _, text := range texts {
		c, err := m.Record(context.Background(), chatID, 1, "chat", text)
		if err != nil {
			t.Fatalf("record %q: %v", text, err)
		}
		last = c
	}
	return last
}

func TestRecordCreatesContextLazily(t *testing.T) {
	m := newTestManager(t, 5)
	ctx := context.Background()

	got, err := m.Get(ctx, 100)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected no context before first message, got %+v", got)
	}

	chatCtx, err := m.Record(ctx, 100, 1, "test chat", "hello")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if chatCtx.ChatID != 100 || chatCtx.Title != "test chat" {
		t.Fatalf("unexpected context: %+v", chatCtx)
	}
	if len(chatCtx.Messages) != 1 || chatCtx.Messages[0] != "hello" {
		t.Fatalf("unexpected messages: %v", chatCtx.Messages)
	}
}

func TestRecordBoundsWindowToTail(t *testing.T) {
	window := 5
	m := newTestManager(t, window)

	inputs := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	chatCtx := mustRecordAll(t, m, 7, inputs)

	if len(chatCtx.Messages) != window {
		t.Fatalf("window length = %d, want %d", len(chatCtx.Messages), window)
	}
	want := inputs[len(inputs)-window:]
	for i, msg := range chatCtx.Messages {
		if msg != want[i] {
			t.Fatalf("messages = %v, want tail %v", chatCtx.Messages, want)
		}
	}
}

func TestRecordNeverExceedsWindowMidStream(t *testing.T) {
	window := 3
	m := newTestManager(t, window)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		chatCtx, err := m.Record(ctx, 8, 1, "chat", "msg")
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		if len(chatCtx.Messages) > window {
			t.Fatalf("window exceeded at message %d: %d > %d", i, len(chatCtx.Messages), window)
		}
	}
}

func TestParticipantsAccumulate(t *testing.T) {
	m := newTestManager(t, 5)
	ctx := context.Background()

	var chatCtx *models.ChatContext
	var err error
	for _, u := range []int64{1, 2, 1, 3, 2} {
		chatCtx, err = m.Record(ctx, 55, u, "chat", "x")
		if err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	if len(chatCtx.Participants) != 3 {
		t.Fatalf("participants = %d, want 3", len(chatCtx.Participants))
	}
	for _, u := range []int64{1, 2, 3} {
		if _, ok := chatCtx.Participants[u]; !ok {
			t.Fatalf("participant %d missing", u)
		}
	}
}

func TestChatsAreIsolated(t *testing.T) {
	m := newTestManager(t, 5)
	ctx := context.Background()

	if _, err := m.Record(ctx, 1, 10, "one", "first"); err != nil {
		t.Fatalf("record: %v", err)
	}
	other, err := m.Record(ctx, 2, 20, "two", "second")
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	if len(other.Messages) != 1 || other.Messages[0] != "second" {
		t.Fatalf("chat 2 saw chat 1's messages: %v", other.Messages)
	}
}
