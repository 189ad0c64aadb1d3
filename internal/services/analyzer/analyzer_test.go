package analyzer

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/groupmind-tgbot-go/internal/config"
	"github.com/groupmind-tgbot-go/internal/models"
)

type fakeCompleter struct {
	reply string
	err   error
}

func (f *fakeCompleter) Complete(ctx context.Context, model string, messages []models.Message, maxTokens int, jsonMode bool) (string, error) {
	return f.reply, f.err
}

func newTestAnalyzer(completer *fakeCompleter) *Analyzer {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(&config.OpenAIConfig{AnalyzerModel: "gpt-3.5-turbo", AnalyzerMaxTokens: 200}, completer, log)
}

func TestAnalyzeParsesStructuredReply(t *testing.T) {
	a := newTestAnalyzer(&fakeCompleter{
		reply: `{"topic": "weather", "sentiment": "positive", "participants_count": 7}`,
	})

	got := a.Analyze(context.Background(), []string{"nice weather today"}, 2)

	if got.Topic != "weather" {
		t.Errorf("Topic = %q, want %q", got.Topic, "weather")
	}
	if got.Sentiment != SentimentPositive {
		t.Errorf("Sentiment = %q, want %q", got.Sentiment, SentimentPositive)
	}
	if got.Participants != 7 {
		t.Errorf("Participants = %d, want 7", got.Participants)
	}
}

func TestAnalyzeExtractsEmbeddedJSON(t *testing.T) {
	a := newTestAnalyzer(&fakeCompleter{
		reply: `Here is the analysis: {"topic": "deploys", "sentiment": "negative"} hope that helps`,
	})

	got := a.Analyze(context.Background(), []string{"deploy broke again"}, 3)

	if got.Topic != "deploys" {
		t.Errorf("Topic = %q, want %q", got.Topic, "deploys")
	}
	if got.Sentiment != SentimentNegative {
		t.Errorf("Sentiment = %q, want %q", got.Sentiment, SentimentNegative)
	}
	if got.Participants != 3 {
		t.Errorf("Participants = %d, want tracked-set fallback 3", got.Participants)
	}
}

func TestAnalyzeKeywordFallbackOnUnparseableReply(t *testing.T) {
	a := newTestAnalyzer(&fakeCompleter{reply: "все очень рад обсуждению, никакого JSON"})

	window := []string{"погода сегодня хорошая", "погода завтра плохая"}
	got := a.Analyze(context.Background(), window, 2)

	if got.Sentiment != SentimentPositive {
		t.Errorf("Sentiment = %q, want %q from keyword heuristic", got.Sentiment, SentimentPositive)
	}
	if got.Topic != "погода" {
		t.Errorf("Topic = %q, want most frequent window token %q", got.Topic, "погода")
	}
}

func TestAnalyzeNegativeKeywordFallback(t *testing.T) {
	a := newTestAnalyzer(&fakeCompleter{reply: "it was bad, not valid json"})

	got := a.Analyze(context.Background(), []string{"one two two"}, 4)

	if got.Sentiment != SentimentNegative {
		t.Errorf("Sentiment = %q, want %q", got.Sentiment, SentimentNegative)
	}
	if got.Topic != "two" {
		t.Errorf("Topic = %q, want %q", got.Topic, "two")
	}
}

func TestAnalyzeDefaultsOnBackendFailure(t *testing.T) {
	a := newTestAnalyzer(&fakeCompleter{err: errors.New("backend down")})

	got := a.Analyze(context.Background(), []string{"anything"}, 5)

	if got.Topic != TopicUndetermined {
		t.Errorf("Topic = %q, want %q", got.Topic, TopicUndetermined)
	}
	if got.Sentiment != SentimentNeutral {
		t.Errorf("Sentiment = %q, want %q", got.Sentiment, SentimentNeutral)
	}
	if got.Participants != 5 {
		t.Errorf("Participants = %d, want passthrough 5", got.Participants)
	}
}
