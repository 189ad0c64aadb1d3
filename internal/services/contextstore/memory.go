package contextstore

import (
	"context"
	"fmt"

	gocache "github.com/patrickmn/go-cache"

	"github.com/groupmind-tgbot-go/internal/config"
	"github.com/groupmind-tgbot-go/internal/models"
)

// MemoryBackend keeps contexts in process memory with TTL expiry.
type MemoryBackend struct {
	contexts *gocache.Cache
}

// NewMemoryBackend creates the in-memory backend. Contexts untouched for
// the configured TTL are dropped by the cleanup sweep.
func NewMemoryBackend(cfg *config.StorageConfig) *MemoryBackend {
	return &MemoryBackend{
		contexts: gocache.New(cfg.ContextTTL, cfg.CleanupInterval),
	}
}

func contextKey(chatID int64) string {
	return fmt.Sprintf("context:%d", chatID)
}

func (m *MemoryBackend) Get(ctx context.Context, chatID int64) (*models.ChatContext, error) {
	if val, found := m.contexts.Get(contextKey(chatID)); found {
		return val.(*models.ChatContext), nil
	}
	return nil, nil
}

func (m *MemoryBackend) Save(ctx context.Context, chatCtx *models.ChatContext) error {
	m.contexts.SetDefault(contextKey(chatCtx.ChatID), chatCtx)
	return nil
}

func (m *MemoryBackend) Delete(ctx context.Context, chatID int64) error {
	m.contexts.Delete(contextKey(chatID))
	return nil
}

// Len reports the number of live contexts, for the active-chats gauge.
func (m *MemoryBackend) Len() int {
	return m.contexts.ItemCount()
}
