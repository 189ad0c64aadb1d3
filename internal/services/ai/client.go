package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/groupmind-tgbot-go/internal/config"
	"github.com/groupmind-tgbot-go/internal/middleware"
	"github.com/groupmind-tgbot-go/internal/models"
	"github.com/groupmind-tgbot-go/internal/services/cache"
)

// Completer issues a single completion request against one model.
type Completer interface {
	Complete(ctx context.Context, model string, messages []models.Message, maxTokens int, jsonMode bool) (string, error)
}

// Client wraps the OpenAI-compatible completion endpoint with a bounded
// result cache. The cache is keyed by the message list alone, so an
// identical prompt is never regenerated, even across chats and model
// fallbacks. That is a deliberate trade-off carried over from the
// original deployment, not an accident.
type Client struct {
	api     *openai.Client
	cache   cache.Service
	pause   time.Duration
	timeout time.Duration
	metrics *middleware.Metrics
	logger  *logrus.Logger
}

// NewClient creates the completion client.
func NewClient(cfg *config.OpenAIConfig, cacheService cache.Service, metrics *middleware.Metrics, logger *logrus.Logger) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Client{
		api:     openai.NewClientWithConfig(clientCfg),
		cache:   cacheService,
		pause:   cfg.RateLimitPause,
		timeout: cfg.RequestTimeout,
		metrics: metrics,
		logger:  logger,
	}
}

// Complete returns the completion for messages, consulting the cache
// first. Every backend failure is logged here and surfaced as an error;
// callers treat any error as "no reply this turn".
func (c *Client) Complete(ctx context.Context, model string, messages []models.Message, maxTokens int, jsonMode bool) (string, error) {
	key, err := requestKey(messages)
	if err != nil {
		return "", fmt.Errorf("failed to build cache key: %w", err)
	}

	if text, found := c.cache.Get(key); found {
		c.metrics.RecordCacheHit()
		c.logger.WithField("model", model).Debug("Completion served from cache")
		return text, nil
	}
	c.metrics.RecordCacheMiss()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    toOpenAIMessages(messages),
		MaxTokens:   maxTokens,
		Temperature: 0.7,
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(reqCtx, req)
	if err != nil {
		c.metrics.RecordAIRequest(model, "error", time.Since(start))
		return "", c.handleRequestError(ctx, model, err)
	}
	c.metrics.RecordAIRequest(model, "success", time.Since(start))

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}

	text := resp.Choices[0].Message.Content
	c.cache.Set(key, text)
	return text, nil
}

// handleRequestError classifies a backend failure. A rate-limit signal
// additionally blocks the calling path for the configured pause; callers
// must tolerate the resulting latency spike.
func (c *Client) handleRequestError(ctx context.Context, model string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			c.logger.WithError(err).WithField("model", model).Warn("Completion backend rate limited, pausing")
			select {
			case <-ctx.Done():
			case <-time.After(c.pause):
			}
			return fmt.Errorf("completion rate limited: %w", err)
		}
		c.logger.WithError(err).WithFields(logrus.Fields{
			"model":  model,
			"status": apiErr.HTTPStatusCode,
		}).Error("Completion backend returned an error")
		return fmt.Errorf("completion provider error: %w", err)
	}

	c.logger.WithError(err).WithField("model", model).Error("Completion request failed")
	return fmt.Errorf("completion request failed: %w", err)
}

// requestKey hashes the serialized ordered message list.
func requestKey(messages []models.Message) (string, error) {
	payload, err := json.Marshal(messages)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

func toOpenAIMessages(messages []models.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		}
	}
	return out
}
