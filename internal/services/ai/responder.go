package ai

import (
	"context"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/groupmind-tgbot-go/internal/config"
	"github.com/groupmind-tgbot-go/internal/models"
)

// quotedReply matches a reply wrapped in a single layer of quotes, which
// some models like to add around short conversational answers.
var quotedReply = regexp.MustCompile(`^["'](.*)["']$`)

// Responder turns a context window into a reply, falling back across the
// configured model list until one produces a usable completion.
type Responder struct {
	completer    Completer
	models       []string
	systemPrompt string
	maxTokens    int
	maxReplyLen  int
	logger       *logrus.Logger
}

func NewResponder(cfg *config.Config, completer Completer, logger *logrus.Logger) *Responder {
	return &Responder{
		completer:    completer,
		models:       cfg.OpenAI.Models,
		systemPrompt: cfg.Behavior.SystemPrompt,
		maxTokens:    cfg.OpenAI.MaxTokens,
		maxReplyLen:  cfg.Behavior.MaxReplyLength,
		logger:       logger,
	}
}

// GenerateResponse builds the prompt from the window and tries each model
// in order. It returns "" when every model fails or the result is empty;
// the caller stays silent in that case.
func (r *Responder) GenerateResponse(ctx context.Context, window []string) string {
	messages := make([]models.Message, 0, len(window)+1)
	messages = append(messages, models.Message{Role: "system", Content: r.systemPrompt})
	for _, text := range window {
		messages = append(messages, models.Message{Role: "user", Content: text})
	}

	for _, model := range r.models {
		text, err := r.completer.Complete(ctx, model, messages, r.maxTokens, false)
		if err != nil {
			r.logger.WithError(err).WithField("model", model).Warn("Response generation failed, trying next model")
			continue
		}

		text = strings.TrimSpace(text)
		text = quotedReply.ReplaceAllString(text, "$1")
		if runes := []rune(text); len(runes) > r.maxReplyLen {
			text = string(runes[:r.maxReplyLen])
		}

		if text != "" {
			return text
		}
	}

	return ""
}
