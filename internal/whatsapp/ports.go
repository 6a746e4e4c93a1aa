package whatsapp

import (
	"context"

	"github.com/Vovarama1992/trivia-mel-bridge/internal/conversation"
)

// Inbound is the conversation pipeline fed by the webhook.
type Inbound interface {
	HandleInbound(ctx context.Context, msg conversation.InboundMessage) error
}

// Jobs runs work after the webhook has been acknowledged.
type Jobs interface {
	Go(name string, fn func(ctx context.Context) error) string
}
