// Package conversation turns inbound WhatsApp messages into replies: it
// dedups deliveries, loads the sender's session, classifies the text, decides
// the next stage and sends either a scripted line or a model reply.
package conversation

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/Vovarama1992/trivia-mel-bridge/internal/audit"
	"github.com/Vovarama1992/trivia-mel-bridge/internal/classify"
	"github.com/Vovarama1992/trivia-mel-bridge/internal/dedup"
	"github.com/Vovarama1992/trivia-mel-bridge/internal/session"
)

// DefaultEchoWindow drops an identical text from the same sender arriving
// again this soon.
const DefaultEchoWindow = 2500 * time.Millisecond

type Deps struct {
	Ledger     dedup.Ledger
	Sessions   session.Store
	Classifier *classify.Classifier
	Responder  *Responder
	Sender     Sender
	Audit      audit.Repo
	Script     Script

	// CommercialRecipient receives lead summaries. Empty disables them.
	CommercialRecipient string
	EchoWindow          time.Duration
	Clock               func() time.Time
}

type Service struct {
	ledger     dedup.Ledger
	sessions   session.Store
	classifier *classify.Classifier
	machine    *Machine
	responder  *Responder
	sender     Sender
	audit      audit.Repo
	script     Script
	recipient  string
	echoWindow time.Duration
	now        func() time.Time
	locks      *keyedMutex
}

func NewService(d Deps) *Service {
	s := &Service{
		ledger:     d.Ledger,
		sessions:   d.Sessions,
		classifier: d.Classifier,
		machine:    NewMachine(d.Script),
		responder:  d.Responder,
		sender:     d.Sender,
		audit:      d.Audit,
		script:     d.Script,
		recipient:  strings.TrimSpace(d.CommercialRecipient),
		echoWindow: d.EchoWindow,
		now:        d.Clock,
		locks:      newKeyedMutex(),
	}
	if s.classifier == nil {
		s.classifier = classify.Default
	}
	if s.audit == nil {
		s.audit = audit.NopRepo{}
	}
	if s.echoWindow <= 0 {
		s.echoWindow = DefaultEchoWindow
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// HandleInbound runs the whole pipeline for one message. Duplicates and
// messages without a sender are dropped silently; a message without an id
// skips deduplication. Only storage failures are returned.
func (s *Service) HandleInbound(ctx context.Context, msg InboundMessage) error {
	from := strings.TrimSpace(msg.From)
	if from == "" {
		return nil
	}
	logger := zerolog.Ctx(ctx).With().Str("sender", from).Str("msg_id", msg.ID).Logger()
	ctx = logger.WithContext(ctx)

	dup, err := s.ledger.CheckAndMark(ctx, msg.ID)
	if err != nil {
		logger.Warn().Err(err).Msg("dedup check failed, processing anyway")
	}
	if dup {
		logger.Debug().Msg("duplicate delivery dropped")
		return nil
	}

	unlock := s.locks.Lock(from)
	defer unlock()

	sess, err := s.sessions.GetOrCreate(ctx, from)
	if err != nil {
		return errors.Wrap(err, "load session")
	}

	if msg.Type != TypeText {
		return s.handleNonText(ctx, sess, msg)
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil
	}

	now := s.now()
	fp := fingerprint(text)
	if fp == sess.LastInboundFingerprint && now.Sub(sess.LastInboundAt) < s.echoWindow {
		logger.Debug().Msg("repeated text dropped")
		return nil
	}

	in := Classify(s.classifier, text)
	d := s.machine.Decide(stateOf(sess), in)

	if d.Reset {
		if sess, err = s.sessions.Reset(ctx, from); err != nil {
			return errors.Wrap(err, "reset session")
		}
	}

	sess.LastInboundFingerprint = fp
	sess.LastInboundAt = now
	prior := append([]session.Turn(nil), sess.History...)
	sess.PushHistory(session.RoleUser, text)
	s.record(ctx, audit.Message{
		SenderID:  from,
		MessageID: msg.ID,
		Direction: audit.DirectionIn,
		Text:      text,
		Stage:     sess.Stage.String(),
		CreatedAt: now,
	})

	reply := d.Reply
	if d.Action == ActionModel {
		reply = s.responder.Reply(ctx, prior, text, sess.LastAssistantText)
	}

	sess.Advance(d.Next.Stage)
	sess.Handoff = d.Next.Handoff
	sess.Lead = d.Next.Lead

	if reply != "" {
		s.deliver(ctx, sess, reply)
	}
	if d.NotifyLead {
		s.notifyLead(ctx, sess, text)
	}

	logger.Info().
		Str("rule", d.Rule).
		Stringer("action", d.Action).
		Stringer("stage", sess.Stage).
		Msg("inbound handled")

	return errors.Wrap(s.sessions.Touch(ctx, sess), "save session")
}

func (s *Service) handleNonText(ctx context.Context, sess *session.Session, msg InboundMessage) error {
	reply := s.script.NonText
	if classify.TooSimilar(reply, sess.LastAssistantText) {
		return nil
	}
	s.record(ctx, audit.Message{
		SenderID:  sess.SenderID,
		MessageID: msg.ID,
		Direction: audit.DirectionIn,
		Text:      "[" + msg.Type + "]",
		Stage:     sess.Stage.String(),
		CreatedAt: s.now(),
	})
	if s.deliver(ctx, sess, reply) {
		sess.Advance(session.StageAskedHow)
	}
	return errors.Wrap(s.sessions.Touch(ctx, sess), "save session")
}

// deliver sends reply and, on success, remembers it as the last assistant
// turn. Send failures are logged only.
func (s *Service) deliver(ctx context.Context, sess *session.Session, reply string) bool {
	if err := s.sender.Send(ctx, sess.SenderID, reply); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("send reply failed")
		return false
	}
	sess.LastAssistantText = reply
	sess.PushHistory(session.RoleAssistant, reply)
	s.record(ctx, audit.Message{
		SenderID:  sess.SenderID,
		Direction: audit.DirectionOut,
		Text:      reply,
		Stage:     sess.Stage.String(),
		CreatedAt: s.now(),
	})
	return true
}

func (s *Service) notifyLead(ctx context.Context, sess *session.Session, lastText string) {
	logger := zerolog.Ctx(ctx)

	if err := s.audit.SaveLead(ctx, audit.Lead{
		SenderID:  sess.SenderID,
		Company:   sess.Lead.Company,
		City:      sess.Lead.City,
		LastText:  lastText,
		CreatedAt: s.now(),
	}); err != nil {
		logger.Warn().Err(err).Msg("audit lead failed")
	}

	if s.recipient == "" {
		logger.Warn().Msg("lead captured but COMMERCIAL_RECIPIENT_ID is not set")
		return
	}
	summary := s.script.LeadSummary(sess.SenderID, sess.Lead, lastText)
	if err := s.sender.Send(ctx, s.recipient, summary); err != nil {
		logger.Error().Err(err).Msg("lead notification failed")
		return
	}
	logger.Info().Str("company", sess.Lead.Company).Str("city", sess.Lead.City).Msg("lead sent to commercial")
}

func (s *Service) record(ctx context.Context, m audit.Message) {
	if err := s.audit.SaveMessage(ctx, m); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("audit message failed")
	}
}

// SessionCount is reported by the health endpoint.
func (s *Service) SessionCount(ctx context.Context) (int, error) {
	return s.sessions.Len(ctx)
}

func fingerprint(text string) string {
	sum := sha1.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}
