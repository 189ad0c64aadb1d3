package contextstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/groupmind-tgbot-go/internal/config"
	"github.com/groupmind-tgbot-go/internal/models"
)

// RedisBackend keeps contexts in Redis so they survive restarts and can
// be shared by multiple bot instances. Expiry is the key TTL.
type RedisBackend struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

func NewRedisBackend(cfg *config.StorageConfig, logger *logrus.Logger) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisBackend{
		client: client,
		ttl:    cfg.ContextTTL,
		logger: logger,
	}, nil
}

func (r *RedisBackend) Get(ctx context.Context, chatID int64) (*models.ChatContext, error) {
	data, err := r.client.Get(ctx, contextKey(chatID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var chatCtx models.ChatContext
	if err := json.Unmarshal([]byte(data), &chatCtx); err != nil {
		return nil, err
	}
	return &chatCtx, nil
}

func (r *RedisBackend) Save(ctx context.Context, chatCtx *models.ChatContext) error {
	data, err := json.Marshal(chatCtx)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, contextKey(chatCtx.ChatID), data, r.ttl).Err()
}

func (r *RedisBackend) Delete(ctx context.Context, chatID int64) error {
	return r.client.Del(ctx, contextKey(chatID)).Err()
}
