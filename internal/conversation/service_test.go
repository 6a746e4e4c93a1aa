package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vovarama1992/trivia-mel-bridge/internal/ai"
	"github.com/Vovarama1992/trivia-mel-bridge/internal/dedup"
	"github.com/Vovarama1992/trivia-mel-bridge/internal/session"
)

const (
	user       = "5531988887777"
	commercial = "5531900000000"
)

type harness struct {
	svc      *Service
	sender   *fakeSender
	model    *fakeModel
	audit    *fakeAudit
	sessions *session.MemoryStore
	now      time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		sender: &fakeSender{},
		model:  &fakeModel{},
		audit:  &fakeAudit{},
		now:    time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return h.now }
	h.sessions = session.NewMemoryStore(session.WithClock(clock))
	h.svc = NewService(Deps{
		Ledger:              dedup.NewMemoryLedger(dedup.WithClock(clock)),
		Sessions:            h.sessions,
		Responder:           NewResponder(h.model, SystemPrompt("Mel", "TRÍVIA", "", 0), testScript),
		Sender:              h.sender,
		Audit:               h.audit,
		Script:              testScript,
		CommercialRecipient: commercial,
		Clock:               clock,
	})
	return h
}

var msgSeq int

func (h *harness) text(t *testing.T, body string) {
	t.Helper()
	msgSeq++
	h.now = h.now.Add(5 * time.Second)
	require.NoError(t, h.svc.HandleInbound(context.Background(), InboundMessage{
		ID:   fmt.Sprintf("wamid.%d", msgSeq),
		From: user,
		Type: TypeText,
		Text: body,
	}))
}

func (h *harness) session(t *testing.T) *session.Session {
	t.Helper()
	s, err := h.sessions.GetOrCreate(context.Background(), user)
	require.NoError(t, err)
	return s
}

func (h *harness) setStage(t *testing.T, st session.Stage) {
	t.Helper()
	s := h.session(t)
	s.Stage = st
	require.NoError(t, h.sessions.Touch(context.Background(), s))
}

func TestHandleInbound_GreetingFromNewSender(t *testing.T) {
	h := newHarness(t)
	h.text(t, "oi")

	assert.Equal(t, []string{testScript.Opening}, h.sender.to(user))
	s := h.session(t)
	assert.Equal(t, session.StageAskedHow, s.Stage)
	assert.Equal(t, testScript.Opening, s.LastAssistantText)
	assert.Len(t, s.History, 2)
}

func TestHandleInbound_IdentityAtAnyStage(t *testing.T) {
	h := newHarness(t)
	h.setStage(t, session.StageAskedKnows)
	h.text(t, "você é um robô?")

	assert.Equal(t, []string{testScript.Identity}, h.sender.to(user))
	assert.Equal(t, session.StageChat, h.session(t).Stage)
}

func TestHandleInbound_CommercialHandoff(t *testing.T) {
	h := newHarness(t)
	h.text(t, "quero contratar, minha empresa é Salão Beleza, Belo Horizonte MG")

	assert.Equal(t, []string{testScript.HandoffContact}, h.sender.to(user))
	notes := h.sender.to(commercial)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0], "Salão Beleza")
	assert.Contains(t, notes[0], "Belo Horizonte")
	assert.Contains(t, notes[0], user)

	s := h.session(t)
	assert.Equal(t, session.HandoffDone, s.Handoff)
	assert.Equal(t, "Salão Beleza", s.Lead.Company)
	assert.Contains(t, s.Lead.City, "Belo Horizonte")
	require.Len(t, h.audit.leads, 1)

	h.text(t, "quero contratar")
	assert.Equal(t, []string{testScript.HandoffContact, testScript.HandoffReminder}, h.sender.to(user))
	assert.Len(t, h.sender.to(commercial), 1)
	assert.Len(t, h.audit.leads, 1)
}

func TestHandleInbound_HandoffAnswerReachesCommercialNote(t *testing.T) {
	h := newHarness(t)
	h.setStage(t, session.StageChat)

	h.text(t, "quero contratar, tenho interesse")
	assert.Equal(t, []string{testScript.HandoffAsk}, h.sender.to(user))
	assert.Empty(t, h.sender.to(commercial))

	h.text(t, "Clínica Sorriso, Recife")
	s := h.session(t)
	assert.Equal(t, session.HandoffDone, s.Handoff)
	assert.Equal(t, "Clínica Sorriso", s.Lead.Company)
	assert.Equal(t, "Recife", s.Lead.City)

	notes := h.sender.to(commercial)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0], "Clínica Sorriso")
	assert.Contains(t, notes[0], "Recife")
	assert.NotContains(t, notes[0], "Empresa: tenho interesse")
}

func TestHandleInbound_HandoffWithoutRecipient(t *testing.T) {
	h := newHarness(t)
	h.svc.recipient = ""
	h.text(t, "quero contratar, minha empresa é Salão Beleza, Belo Horizonte MG")

	assert.Equal(t, []string{testScript.HandoffContact}, h.sender.to(user))
	assert.Len(t, h.sender.all(), 1)
	assert.Equal(t, session.HandoffDone, h.session(t).Handoff)
}

func TestHandleInbound_DuplicateDelivery(t *testing.T) {
	h := newHarness(t)
	msg := InboundMessage{ID: "wamid.dup", From: user, Type: TypeText, Text: "oi"}

	require.NoError(t, h.svc.HandleInbound(context.Background(), msg))
	h.now = h.now.Add(time.Minute)
	require.NoError(t, h.svc.HandleInbound(context.Background(), msg))

	assert.Len(t, h.sender.all(), 1)
	assert.Equal(t, session.StageAskedHow, h.session(t).Stage)
}

func TestHandleInbound_RateLimitedModel(t *testing.T) {
	h := newHarness(t)
	h.setStage(t, session.StageChat)
	h.model.replies = []reply{{err: ai.ErrRateLimited}}

	h.text(t, "hoje tá uma correria por aqui")

	assert.Equal(t, []string{testScript.QuotaExceeded}, h.sender.to(user))
	assert.Equal(t, testScript.QuotaExceeded, h.session(t).LastAssistantText)
}

func TestHandleInbound_ModelReplyUsesPriorHistory(t *testing.T) {
	h := newHarness(t)
	h.setStage(t, session.StageChat)
	h.model.replies = []reply{{text: "Imagino! E quem responde os clientes aí?"}}

	h.text(t, "hoje tá uma correria por aqui")

	calls := h.model.calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0].Messages, 1)
	assert.Equal(t, "hoje tá uma correria por aqui", calls[0].Messages[0].Text)
	assert.Equal(t, []string{"Imagino! E quem responde os clientes aí?"}, h.sender.to(user))
}

func TestHandleInbound_OutOfScopeQuestion(t *testing.T) {
	h := newHarness(t)
	h.setStage(t, session.StageChat)
	h.text(t, "qual a capital da frança?")

	assert.Equal(t, []string{testScript.OutOfScope}, h.sender.to(user))
	assert.Empty(t, h.model.calls())
}

func TestHandleInbound_EchoSuppressed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.svc.HandleInbound(ctx, InboundMessage{ID: "a", From: user, Type: TypeText, Text: "oi"}))
	h.now = h.now.Add(time.Second)
	require.NoError(t, h.svc.HandleInbound(ctx, InboundMessage{ID: "b", From: user, Type: TypeText, Text: "oi"}))
	assert.Len(t, h.sender.all(), 1)

	h.now = h.now.Add(3 * time.Second)
	require.NoError(t, h.svc.HandleInbound(ctx, InboundMessage{ID: "c", From: user, Type: TypeText, Text: "oi"}))
	assert.Len(t, h.sender.all(), 2)
}

func TestHandleInbound_NonText(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.svc.HandleInbound(ctx, InboundMessage{ID: "img1", From: user, Type: "image"}))
	assert.Equal(t, []string{testScript.NonText}, h.sender.to(user))
	assert.Equal(t, session.StageAskedHow, h.session(t).Stage)

	require.NoError(t, h.svc.HandleInbound(ctx, InboundMessage{ID: "img2", From: user, Type: "audio"}))
	assert.Len(t, h.sender.all(), 1)
}

func TestHandleInbound_Reset(t *testing.T) {
	h := newHarness(t)
	h.setStage(t, session.StageChat)
	h.text(t, "reset")

	assert.Equal(t, []string{testScript.Opening}, h.sender.to(user))
	s := h.session(t)
	assert.Equal(t, session.StageAskedHow, s.Stage)
	assert.Equal(t, session.HandoffNone, s.Handoff)
}

func TestHandleInbound_MalformedIgnored(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.svc.HandleInbound(ctx, InboundMessage{ID: "x", Type: TypeText, Text: "oi"}))
	require.NoError(t, h.svc.HandleInbound(ctx, InboundMessage{ID: "y", From: user, Type: TypeText, Text: "   "}))
	assert.Empty(t, h.sender.all())
}

func TestHandleInbound_MissingIDStillAnswered(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.svc.HandleInbound(ctx, InboundMessage{From: user, Type: TypeText, Text: "oi"}))
	assert.Equal(t, []string{testScript.Opening}, h.sender.to(user))

	h.now = h.now.Add(5 * time.Second)
	require.NoError(t, h.svc.HandleInbound(ctx, InboundMessage{From: user, Type: TypeText, Text: "tudo ótimo e você"}))
	assert.Equal(t, []string{testScript.Opening, testScript.AskKnows}, h.sender.to(user))
	assert.Equal(t, session.StageAskedKnows, h.session(t).Stage)
}

func TestHandleInbound_SendFailureKeepsLastReply(t *testing.T) {
	h := newHarness(t)
	h.sender.err = errors.New("whatsapp 500")
	h.text(t, "oi")

	s := h.session(t)
	assert.Empty(t, s.LastAssistantText)
	assert.Equal(t, session.StageAskedHow, s.Stage)
}

func TestHandleInbound_ConcurrentSameSender(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.svc.HandleInbound(ctx, InboundMessage{
				ID:   fmt.Sprintf("c%d", i),
				From: user,
				Type: TypeText,
				Text: fmt.Sprintf("mensagem %d", i),
			})
		}()
	}
	wg.Wait()

	assert.Len(t, h.sender.all(), 4)
	assert.Len(t, h.session(t).History, 8)
	assert.Zero(t, h.svc.locks.size())
}
