package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/groupmind-tgbot-go/internal/config"
	"github.com/groupmind-tgbot-go/internal/middleware"
	"github.com/groupmind-tgbot-go/internal/models"
	"github.com/groupmind-tgbot-go/internal/services/contextstore"
	"github.com/groupmind-tgbot-go/internal/services/history"
	"github.com/groupmind-tgbot-go/internal/worker"
	"github.com/groupmind-tgbot-go/pkg/markdown"
)

// commandPrefix matches a leading /command or /command@botname token.
var commandPrefix = regexp.MustCompile(`^/[\w]+@?[\w]*\s*`)

// Sender is the slice of the Telegram bot API the pipeline uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Responder produces a reply for a context window, or "" to stay silent.
type Responder interface {
	GenerateResponse(ctx context.Context, window []string) string
}

// Safety classifies window text before the bot is allowed to reply.
type Safety interface {
	IsSafe(ctx context.Context, text string) bool
}

// Analyzer summarizes a window into topic/sentiment/participant count.
type Analyzer interface {
	Analyze(ctx context.Context, window []string, participants int) models.Analysis
}

// MessageHandler is the ingestion pipeline: it filters inbound group
// messages, maintains the chat context, optionally replies, and hands a
// snapshot to the worker pool for analysis and persistence.
type MessageHandler struct {
	config      *config.Config
	bot         Sender
	contexts    *contextstore.Manager
	policy      *DecisionPolicy
	responder   Responder
	safety      Safety
	analyzer    Analyzer
	history     *history.Repo
	pool        *worker.Pool
	rateLimiter middleware.RateLimiter
	metrics     *middleware.Metrics
	logger      *logrus.Logger
}

func NewMessageHandler(
	cfg *config.Config,
	bot Sender,
	contexts *contextstore.Manager,
	policy *DecisionPolicy,
	responder Responder,
	safety Safety,
	analyzer Analyzer,
	historyRepo *history.Repo,
	pool *worker.Pool,
	rateLimiter middleware.RateLimiter,
	metrics *middleware.Metrics,
	logger *logrus.Logger,
) *MessageHandler {
	return &MessageHandler{
		config:      cfg,
		bot:         bot,
		contexts:    contexts,
		policy:      policy,
		responder:   responder,
		safety:      safety,
		analyzer:    analyzer,
		history:     historyRepo,
		pool:        pool,
		rateLimiter: rateLimiter,
		metrics:     metrics,
		logger:      logger,
	}
}

// HandleMessage processes one inbound update end to end.
func (h *MessageHandler) HandleMessage(ctx context.Context, update *tgbotapi.Update) error {
	msg := update.Message
	if msg == nil {
		return nil
	}

	// Join/leave service events and non-text messages are ignored, and
	// the bot only participates in multi-party chats.
	if len(msg.NewChatMembers) > 0 || msg.LeftChatMember != nil {
		return nil
	}
	if msg.Text == "" || msg.From == nil {
		return nil
	}
	if !msg.Chat.IsGroup() && !msg.Chat.IsSuperGroup() {
		return nil
	}

	text := strings.TrimSpace(commandPrefix.ReplaceAllString(msg.Text, ""))
	if text == "" {
		return nil
	}

	chatID := msg.Chat.ID
	userID := msg.From.ID
	title := msg.Chat.Title
	if title == "" {
		title = fmt.Sprintf("Chat %d", chatID)
	}

	chatType := "group"
	if msg.Chat.IsSuperGroup() {
		chatType = "supergroup"
	}
	h.metrics.RecordMessageReceived(chatType)

	chatCtx, err := h.contexts.Record(ctx, chatID, userID, title, text)
	if err != nil {
		h.logger.WithError(err).WithField("chat_id", chatID).Error("Failed to record message into context")
		return err
	}

	reply, responded := h.maybeRespond(ctx, msg, chatCtx)

	snapshot := models.InteractionSnapshot{
		Timestamp:         time.Now(),
		ChatID:            chatID,
		ChatTitle:         title,
		Messages:          append([]string(nil), chatCtx.Messages...),
		Participants:      len(chatCtx.Participants),
		BotResponse:       reply,
		ResponseGenerated: responded,
	}

	job := worker.Job{
		ChatID: chatID,
		Run: func(jobCtx context.Context) error {
			return h.finishInteraction(jobCtx, snapshot)
		},
	}
	if err := h.pool.Enqueue(ctx, job); err != nil {
		h.logger.WithError(err).WithField("chat_id", chatID).Error("Failed to enqueue post-processing job")
	}

	return nil
}

// maybeRespond runs the decision policy, rate limit, and safety check,
// and sends a generated reply when all of them pass. It returns the
// generated text (possibly unsent) and whether a reply actually went out.
func (h *MessageHandler) maybeRespond(ctx context.Context, msg *tgbotapi.Message, chatCtx *models.ChatContext) (string, bool) {
	if !h.policy.ShouldRespond(chatCtx) {
		return "", false
	}
	if !h.rateLimiter.Allow(msg.From.ID) {
		return "", false
	}

	windowText := strings.Join(chatCtx.Messages, "\n")
	if !h.safety.IsSafe(ctx, windowText) {
		h.logger.WithField("chat_id", chatCtx.ChatID).Warn("Window flagged by moderation, staying silent")
		return "", false
	}

	reply := h.responder.GenerateResponse(ctx, chatCtx.Messages)
	if utf8.RuneCountInString(reply) <= 1 {
		return reply, false
	}

	if err := h.sendReply(msg, reply); err != nil {
		h.logger.WithError(err).WithField("chat_id", chatCtx.ChatID).Error("Failed to send reply")
		return reply, false
	}

	h.metrics.RecordResponseSent()
	chatCtx.LastResponse = time.Now()
	if err := h.contexts.Save(ctx, chatCtx); err != nil {
		h.logger.WithError(err).WithField("chat_id", chatCtx.ChatID).Error("Failed to save context after reply")
	}

	return reply, true
}

// finishInteraction is the background half of the pipeline: analyze the
// snapshot and append the interaction row. It runs on the worker pool.
func (h *MessageHandler) finishInteraction(ctx context.Context, snapshot models.InteractionSnapshot) error {
	analysis := h.analyzer.Analyze(ctx, snapshot.Messages, snapshot.Participants)

	window, err := json.Marshal(snapshot.Messages)
	if err != nil {
		return fmt.Errorf("failed to serialize context snapshot: %w", err)
	}

	rec := &history.Interaction{
		Timestamp:         snapshot.Timestamp.Format(history.TimeLayout),
		ChatID:            snapshot.ChatID,
		ChatTitle:         snapshot.ChatTitle,
		ContextMessages:   string(window),
		DetectedTopic:     analysis.Topic,
		Sentiment:         analysis.Sentiment,
		BotResponse:       snapshot.BotResponse,
		ResponseGenerated: snapshot.ResponseGenerated,
		ParticipantsCount: snapshot.Participants,
	}

	if err := h.history.Append(ctx, rec); err != nil {
		return err
	}

	h.metrics.RecordInteractionWritten()
	h.logger.WithFields(logrus.Fields{
		"chat_id":    snapshot.ChatID,
		"chat_title": snapshot.ChatTitle,
		"topic":      analysis.Topic,
		"sentiment":  analysis.Sentiment,
		"responded":  snapshot.ResponseGenerated,
	}).Info("Interaction recorded")

	return nil
}

// sendReply renders the reply as Telegram HTML, falling back to plain
// text when Telegram rejects the markup.
func (h *MessageHandler) sendReply(msg *tgbotapi.Message, text string) error {
	reply := tgbotapi.NewMessage(msg.Chat.ID, markdown.ToTelegramHTML(text))
	reply.ReplyToMessageID = msg.MessageID
	reply.ParseMode = tgbotapi.ModeHTML

	if _, err := h.bot.Send(reply); err != nil {
		h.logger.WithError(err).Warn("HTML reply rejected, retrying as plain text")
		reply.ParseMode = ""
		reply.Text = text
		if _, err := h.bot.Send(reply); err != nil {
			return err
		}
	}
	return nil
}
