package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Vovarama1992/trivia-mel-bridge/internal/conversation"
)

const maxBodyBytes = 10 << 20

type Handler struct {
	verifyToken string
	appSecret   string
	inbound     Inbound
	jobs        Jobs
}

// NewHandler wires the webhook. An empty appSecret skips the
// X-Hub-Signature-256 check.
func NewHandler(verifyToken, appSecret string, inbound Inbound, jobs Jobs) *Handler {
	return &Handler{
		verifyToken: verifyToken,
		appSecret:   appSecret,
		inbound:     inbound,
		jobs:        jobs,
	}
}

// Verify answers the subscription handshake from Meta.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if h.verifyToken == "" ||
		q.Get("hub.mode") != "subscribe" ||
		q.Get("hub.verify_token") != h.verifyToken {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(q.Get("hub.challenge")))
}

// Receive acknowledges every delivery at once and hands the messages to the
// background jobs. Meta only learns whether the call arrived.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		log.Warn().Err(err).Msg("webhook body read failed")
		w.WriteHeader(http.StatusOK)
		return
	}

	if h.appSecret != "" && !validSignature(h.appSecret, body, r.Header.Get("X-Hub-Signature-256")) {
		log.Warn().Str("remote", r.RemoteAddr).Msg("webhook signature mismatch")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	w.WriteHeader(http.StatusOK)

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Warn().Err(err).Int("bytes", len(body)).Msg("webhook payload is not json")
		return
	}

	for _, msg := range extractMessages(payload, time.Now()) {
		h.jobs.Go("inbound", func(ctx context.Context) error {
			return h.inbound.HandleInbound(ctx, msg)
		})
	}
}

// extractMessages flattens the envelope. Status-only changes carry no
// messages and yield nothing.
func extractMessages(p webhookPayload, now time.Time) []conversation.InboundMessage {
	var out []conversation.InboundMessage
	for _, e := range p.Entry {
		for _, c := range e.Changes {
			names := make(map[string]string, len(c.Value.Contacts))
			for _, ct := range c.Value.Contacts {
				names[ct.WaID] = ct.Profile.Name
			}
			for _, m := range c.Value.Messages {
				if m.From == "" {
					continue
				}
				msg := conversation.InboundMessage{
					ID:          m.ID,
					From:        m.From,
					Type:        m.Type,
					ProfileName: names[m.From],
					ReceivedAt:  parseUnix(m.Timestamp, now),
				}
				if m.Text != nil {
					msg.Text = m.Text.Body
				}
				out = append(out, msg)
			}
		}
	}
	return out
}

func parseUnix(ts string, fallback time.Time) time.Time {
	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil || sec <= 0 {
		return fallback
	}
	return time.Unix(sec, 0)
}

func validSignature(secret string, body []byte, header string) bool {
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
