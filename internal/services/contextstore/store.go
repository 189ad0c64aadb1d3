// Package contextstore keeps the rolling per-chat conversation contexts.
// Contexts are created lazily on first message and expire after the
// configured TTL, so a long-lived deployment does not accumulate state
// for every chat it has ever seen.
package contextstore

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/groupmind-tgbot-go/internal/config"
	"github.com/groupmind-tgbot-go/internal/models"
)

// Backend persists chat contexts. A nil context (no error) means the chat
// has no live context yet.
type Backend interface {
	Get(ctx context.Context, chatID int64) (*models.ChatContext, error)
	Save(ctx context.Context, chatCtx *models.ChatContext) error
	Delete(ctx context.Context, chatID int64) error
}

// Manager owns the window-maintenance logic on top of a backend.
type Manager struct {
	backend Backend
	window  int
	logger  *logrus.Logger
}

// NewManager selects a backend from config and wraps it.
func NewManager(cfg *config.Config, logger *logrus.Logger) (*Manager, error) {
	var backend Backend
	switch cfg.Storage.Type {
	case "redis":
		rb, err := NewRedisBackend(&cfg.Storage, logger)
		if err != nil {
			return nil, err
		}
		backend = rb
	case "memory":
		backend = NewMemoryBackend(&cfg.Storage)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}

	return &Manager{
		backend: backend,
		window:  cfg.Behavior.ContextSize,
		logger:  logger,
	}, nil
}

// Record appends text to the chat's window, truncating to the configured
// size, adds userID to the participant set, and returns the updated
// context. An absent chat is created implicitly with empty state.
func (m *Manager) Record(ctx context.Context, chatID, userID int64, title, text string) (*models.ChatContext, error) {
	chatCtx, err := m.backend.Get(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to load context: %w", err)
	}

	if chatCtx == nil {
		chatCtx = &models.ChatContext{
			ChatID:       chatID,
			Participants: make(map[int64]struct{}),
		}
		m.logger.WithField("chat_id", chatID).Debug("New chat context created")
	}
	if chatCtx.Participants == nil {
		chatCtx.Participants = make(map[int64]struct{})
	}

	chatCtx.Title = title
	chatCtx.Messages = append(chatCtx.Messages, text)
	if len(chatCtx.Messages) > m.window {
		tail := chatCtx.Messages[len(chatCtx.Messages)-m.window:]
		chatCtx.Messages = append([]string(nil), tail...)
	}
	chatCtx.Participants[userID] = struct{}{}

	if err := m.backend.Save(ctx, chatCtx); err != nil {
		return nil, fmt.Errorf("failed to save context: %w", err)
	}

	return chatCtx, nil
}

// Get returns the chat's live context, or nil if none.
func (m *Manager) Get(ctx context.Context, chatID int64) (*models.ChatContext, error) {
	return m.backend.Get(ctx, chatID)
}

// Save persists a mutated context, refreshing its expiry.
func (m *Manager) Save(ctx context.Context, chatCtx *models.ChatContext) error {
	return m.backend.Save(ctx, chatCtx)
}

// Delete drops a chat's context.
func (m *Manager) Delete(ctx context.Context, chatID int64) error {
	return m.backend.Delete(ctx, chatID)
}
