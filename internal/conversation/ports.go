package conversation

import (
	"context"
	"time"
)

const TypeText = "text"

// InboundMessage is one user message as delivered by the messaging provider.
type InboundMessage struct {
	ID          string
	From        string
	Type        string
	Text        string
	ProfileName string
	ReceivedAt  time.Time
}

// Sender delivers a text to a WhatsApp contact.
type Sender interface {
	Send(ctx context.Context, to, text string) error
}
