package ai

import (
	"context"

	"github.com/pkg/errors"
)

// Client is the external language model. It knows nothing about WhatsApp or
// sessions.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Message is one turn of the dialogue sent to the model.
type Message struct {
	Role string // "user" | "assistant" | "system"
	Text string
}

type Request struct {
	System   string
	Messages []Message

	Temperature      float32
	MaxTokens        int
	FrequencyPenalty float32
	PresencePenalty  float32
}

// DefaultRequest carries the generation parameters used for chat replies.
func DefaultRequest() Request {
	return Request{
		Temperature:      0.75,
		MaxTokens:        220,
		FrequencyPenalty: 0.25,
		PresencePenalty:  0.15,
	}
}

var (
	ErrRateLimited   = errors.New("ai: rate limited or out of quota")
	ErrNotConfigured = errors.New("ai: api key not configured")
	ErrEmptyResponse = errors.New("ai: empty response")
)
