// Package cache holds the bounded completion-result cache. The cache is
// keyed by a hash of the full request payload and evicts the
// oldest-inserted entry once it reaches capacity. Lookups go through
// Peek, which does not refresh recency, so the underlying LRU degenerates
// into exactly that insertion-order policy.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/groupmind-tgbot-go/internal/config"
)

// Service defines completion cache operations.
type Service interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Len() int
}

// CompletionCache is the bounded cache of raw completion results.
type CompletionCache struct {
	enabled bool
	entries *lru.Cache[string, string]
	logger  *logrus.Logger
}

// New creates the completion cache. A disabled cache misses on every
// lookup and drops every insert.
func New(cfg *config.CacheConfig, logger *logrus.Logger) (Service, error) {
	if !cfg.Enabled {
		return &CompletionCache{enabled: false}, nil
	}

	entries, err := lru.New[string, string](cfg.MaxSize)
	if err != nil {
		return nil, err
	}

	return &CompletionCache{
		enabled: true,
		entries: entries,
		logger:  logger,
	}, nil
}

// Get returns the cached completion for key, if any.
func (c *CompletionCache) Get(key string) (string, bool) {
	if !c.enabled {
		return "", false
	}
	return c.entries.Peek(key)
}

// Set stores a completion, evicting the oldest-inserted entry when full.
func (c *CompletionCache) Set(key, value string) {
	if !c.enabled {
		return
	}
	if evicted := c.entries.Add(key, value); evicted {
		c.logger.WithField("size", c.entries.Len()).Debug("Completion cache full, oldest entry evicted")
	}
}

// Len reports the current number of cached entries.
func (c *CompletionCache) Len() int {
	if !c.enabled {
		return 0
	}
	return c.entries.Len()
}
