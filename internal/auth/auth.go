package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mattjoyce/leeroy/internal/slack"
)

// ErrUnauthorized is returned for every denied authorization, whatever the cause.
var ErrUnauthorized = errors.New("conversation not authorized")

//go:generate mockgen -destination=mocks/mock_lookup.go -package=mocks github.com/mattjoyce/leeroy/internal/auth ChannelLookup

// ChannelLookup resolves a conversation id to its channel metadata.
type ChannelLookup interface {
	ConversationInfo(ctx context.Context, channelID string) (*slack.Channel, error)
}

// ChannelGate allows commands only from the one sanctioned channel.
// It fails closed: lookup errors, timeouts and ambiguous answers all deny.
type ChannelGate struct {
	lookup  ChannelLookup
	channel string
	logger  *slog.Logger
}

// NewChannelGate creates a gate for the sanctioned channel name.
func NewChannelGate(lookup ChannelLookup, sanctionedChannel string, logger *slog.Logger) *ChannelGate {
	return &ChannelGate{
		lookup:  lookup,
		channel: sanctionedChannel,
		logger:  logger,
	}
}

// Authorize returns nil only when the conversation is the sanctioned channel.
// There is no retry; a failed lookup is a denial.
func (g *ChannelGate) Authorize(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		g.logger.Warn("authorization denied", "reason", "missing conversation id")
		return ErrUnauthorized
	}
	if g.channel == "" {
		g.logger.Error("authorization denied", "reason", "no sanctioned channel configured")
		return ErrUnauthorized
	}

	ch, err := g.lookup.ConversationInfo(ctx, conversationID)
	if err != nil {
		g.logger.Warn("authorization denied",
			"reason", "channel lookup failed",
			"conversation_id", conversationID,
			"error", err,
		)
		return ErrUnauthorized
	}
	if ch == nil || ch.NameNormalized != g.channel {
		name := ""
		if ch != nil {
			name = ch.NameNormalized
		}
		g.logger.Warn("authorization denied",
			"reason", "channel mismatch",
			"conversation_id", conversationID,
			"channel", name,
			"sanctioned_channel", g.channel,
		)
		return ErrUnauthorized
	}

	g.logger.Debug("authorization granted", "conversation_id", conversationID, "channel", ch.NameNormalized)
	return nil
}
