package ai

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/groupmind-tgbot-go/internal/config"
	"github.com/groupmind-tgbot-go/internal/middleware"
)

// moderationAPI is the slice of the OpenAI client the checker uses.
type moderationAPI interface {
	Moderations(ctx context.Context, request openai.ModerationRequest) (openai.ModerationResponse, error)
}

// SafetyChecker classifies window text through the moderation endpoint.
//
// Policy: the check fails open. Content is treated as unsafe only when
// the classifier explicitly flags it; if the classifier cannot run at all
// the content is treated as safe and the pipeline proceeds.
type SafetyChecker struct {
	api     moderationAPI
	metrics *middleware.Metrics
	logger  *logrus.Logger
}

func NewSafetyChecker(cfg *config.OpenAIConfig, metrics *middleware.Metrics, logger *logrus.Logger) *SafetyChecker {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &SafetyChecker{
		api:     openai.NewClientWithConfig(clientCfg),
		metrics: metrics,
		logger:  logger,
	}
}

// IsSafe reports whether text passed moderation.
func (s *SafetyChecker) IsSafe(ctx context.Context, text string) bool {
	resp, err := s.api.Moderations(ctx, openai.ModerationRequest{Input: text})
	if err != nil {
		s.logger.WithError(err).Warn("Moderation unavailable, failing open")
		s.metrics.RecordModerationCheck("unavailable")
		return true
	}

	for _, result := range resp.Results {
		if result.Flagged {
			s.metrics.RecordModerationCheck("flagged")
			return false
		}
	}

	s.metrics.RecordModerationCheck("clean")
	return true
}
