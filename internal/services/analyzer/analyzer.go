// Package analyzer derives a coarse topic/sentiment summary of a context
// window. The primary path asks the completion backend for a structured
// judgment; a keyword heuristic covers malformed output, and hard
// failures fall back to neutral defaults.
package analyzer

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/groupmind-tgbot-go/internal/config"
	"github.com/groupmind-tgbot-go/internal/models"
	"github.com/groupmind-tgbot-go/internal/services/ai"
)

const (
	SentimentNeutral  = "neutral"
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	TopicUndetermined = "undetermined"
)

const analyzerPrompt = `You are a chat analyst. Return JSON: {"topic": string, "sentiment": string, "participants_count": number}`

var (
	positiveWords = []string{"позитив", "рад", "хорош", "positiv", "good", "great", "happy"}
	negativeWords = []string{"негатив", "плох", "злит", "negativ", "bad", "angry"}
)

type Analyzer struct {
	completer ai.Completer
	model     string
	maxTokens int
	logger    *logrus.Logger
}

func New(cfg *config.OpenAIConfig, completer ai.Completer, logger *logrus.Logger) *Analyzer {
	return &Analyzer{
		completer: completer,
		model:     cfg.AnalyzerModel,
		maxTokens: cfg.AnalyzerMaxTokens,
		logger:    logger,
	}
}

// Analyze summarizes the window. participants is the size of the chat's
// tracked participant set and is the fallback value whenever the backend
// does not supply a count of its own.
func (a *Analyzer) Analyze(ctx context.Context, window []string, participants int) models.Analysis {
	result := models.Analysis{
		Topic:        TopicUndetermined,
		Sentiment:    SentimentNeutral,
		Participants: participants,
	}

	payload, err := json.Marshal(window)
	if err != nil {
		a.logger.WithError(err).Error("Failed to serialize window for analysis")
		return result
	}

	messages := []models.Message{
		{Role: "system", Content: analyzerPrompt},
		{Role: "user", Content: "Analyze this chat: " + string(payload)},
	}

	text, err := a.completer.Complete(ctx, a.model, messages, a.maxTokens, true)
	if err != nil {
		// Call failure leaves the defaults untouched; only a parse
		// failure triggers the keyword heuristic below.
		a.logger.WithError(err).Debug("Context analysis call failed")
		return result
	}

	var parsed models.Analysis
	if span, ok := firstJSONObject(text); ok && json.Unmarshal([]byte(span), &parsed) == nil {
		if parsed.Topic != "" {
			result.Topic = parsed.Topic
		}
		if parsed.Sentiment != "" {
			result.Sentiment = parsed.Sentiment
		}
		if parsed.Participants > 0 {
			result.Participants = parsed.Participants
		}
		return result
	}

	a.logger.WithField("response", text).Debug("Structured analysis unparseable, using keyword fallback")

	lower := strings.ToLower(text)
	if containsAny(lower, positiveWords) {
		result.Sentiment = SentimentPositive
	} else if containsAny(lower, negativeWords) {
		result.Sentiment = SentimentNegative
	}

	if topic := mostFrequentToken(window); topic != "" {
		result.Topic = topic
	}

	return result
}

// firstJSONObject returns the first balanced {...} span in text.
func firstJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// mostFrequentToken picks the most common whitespace-delimited token
// across the window; ties go to the token seen first.
func mostFrequentToken(window []string) string {
	counts := make(map[string]int)
	var order []string

	for _, msg := range window {
		for _, token := range strings.Fields(msg) {
			if counts[token] == 0 {
				order = append(order, token)
			}
			counts[token]++
		}
	}

	best := ""
	for _, token := range order {
		if best == "" || counts[token] > counts[best] {
			best = token
		}
	}
	return best
}
