package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/Vovarama1992/trivia-mel-bridge/internal/ai"
	"github.com/Vovarama1992/trivia-mel-bridge/internal/classify"
	"github.com/Vovarama1992/trivia-mel-bridge/internal/session"
)

// Responder produces free-form chat replies through the language model and
// keeps them from echoing the previous reply.
type Responder struct {
	client ai.Client
	system string
	script Script
}

func NewResponder(client ai.Client, system string, script Script) *Responder {
	return &Responder{client: client, system: system, script: script}
}

// Reply never fails: provider errors turn into in-persona fallback lines.
// history must not yet contain text.
func (r *Responder) Reply(ctx context.Context, history []session.Turn, text, last string) string {
	logger := zerolog.Ctx(ctx)

	req := ai.DefaultRequest()
	req.System = r.system
	req.Messages = buildMessages(history, text)

	out, err := r.client.Complete(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("model call failed")
		return r.fallbackFor(err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		out = r.script.EmptyReply
	}
	if !classify.TooSimilar(out, last) {
		return out
	}

	logger.Debug().Msg("model reply repeats the last one, asking again")
	retry := req
	retry.System = req.System + "\n" + fmt.Sprintf(avoidRepeatTemplate, last)
	again, err := r.client.Complete(ctx, retry)
	if err != nil {
		logger.Warn().Err(err).Msg("model retry failed")
	}
	if again = strings.TrimSpace(again); err == nil && again != "" && !classify.TooSimilar(again, last) {
		return again
	}
	return r.varied(len(history), last)
}

func (r *Responder) fallbackFor(err error) string {
	switch {
	case errors.Is(err, ai.ErrRateLimited):
		return r.script.QuotaExceeded
	case errors.Is(err, ai.ErrNotConfigured):
		return r.script.Offline
	default:
		return r.script.Apology
	}
}

// varied picks a fixed follow-up question, rotating by seed and skipping any
// that would itself read as a repeat.
func (r *Responder) varied(seed int, last string) string {
	n := len(r.script.Varied)
	for i := range n {
		c := r.script.Varied[(seed+i)%n]
		if !classify.TooSimilar(c, last) {
			return c
		}
	}
	return r.script.EmptyReply
}

func buildMessages(history []session.Turn, text string) []ai.Message {
	if over := len(history) - session.MaxHistory; over > 0 {
		history = history[over:]
	}
	msgs := make([]ai.Message, 0, len(history)+1)
	for _, t := range history {
		msgs = append(msgs, ai.Message{Role: string(t.Role), Text: t.Text})
	}
	return append(msgs, ai.Message{Role: string(session.RoleUser), Text: text})
}
