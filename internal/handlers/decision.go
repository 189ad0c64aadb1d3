package handlers

import (
	"math/rand"

	"github.com/groupmind-tgbot-go/internal/config"
	"github.com/groupmind-tgbot-go/internal/models"
)

// DecisionPolicy is the gate controlling whether the bot attempts a
// reply. It is a pure function of the context state and one draw from
// Rand, which tests replace with a deterministic source.
type DecisionPolicy struct {
	MinMessages int
	Probability float64
	Rand        func() float64
}

func NewDecisionPolicy(cfg *config.BehaviorConfig) *DecisionPolicy {
	return &DecisionPolicy{
		MinMessages: cfg.MinResponseMessages,
		Probability: cfg.ResponseProbability,
		Rand:        rand.Float64,
	}
}

// ShouldRespond is false while the window holds fewer than MinMessages
// texts, and otherwise true with probability Probability.
func (p *DecisionPolicy) ShouldRespond(chatCtx *models.ChatContext) bool {
	if chatCtx == nil || len(chatCtx.Messages) < p.MinMessages {
		return false
	}
	return p.Rand() < p.Probability
}
