package session

import (
	"context"
	"strings"
	"time"
)

// MaxHistory bounds the rolling conversation memory kept per sender.
const MaxHistory = 12

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Stage is a step of the scripted onboarding. Stages only move forward;
// Chat is terminal.
type Stage int

const (
	StageIntro Stage = iota
	StageAskedHow
	StageAskedKnows
	StageAskedSegment
	StageChat
)

func (s Stage) String() string {
	switch s {
	case StageIntro:
		return "INTRO"
	case StageAskedHow:
		return "ASKED_HOW"
	case StageAskedKnows:
		return "ASKED_KNOWS"
	case StageAskedSegment:
		return "ASKED_SEGMENT"
	case StageChat:
		return "CHAT"
	default:
		return "UNKNOWN"
	}
}

// Handoff tracks the commercial handoff flow, orthogonal to Stage.
type Handoff string

const (
	HandoffNone     Handoff = ""
	HandoffAwaiting Handoff = "awaiting_lead"
	HandoffDone     Handoff = "done"
)

type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

type Lead struct {
	Company string `json:"company,omitempty"`
	City    string `json:"city,omitempty"`
}

func (l Lead) Complete() bool { return l.Company != "" && l.City != "" }

// Merge fills the empty fields of l from o.
func (l Lead) Merge(o Lead) Lead {
	if l.Company == "" {
		l.Company = o.Company
	}
	if l.City == "" {
		l.City = o.City
	}
	return l
}

type Session struct {
	SenderID               string    `json:"sender_id"`
	Stage                  Stage     `json:"stage"`
	History                []Turn    `json:"history"`
	Lead                   Lead      `json:"lead"`
	Handoff                Handoff   `json:"handoff,omitempty"`
	LastAssistantText      string    `json:"last_assistant_text,omitempty"`
	LastInboundFingerprint string    `json:"last_inbound_fingerprint,omitempty"`
	LastInboundAt          time.Time `json:"last_inbound_at"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

func newSession(senderID string, now time.Time) *Session {
	return &Session{
		SenderID:  senderID,
		Stage:     StageIntro,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// PushHistory appends a turn, dropping the oldest ones beyond MaxHistory.
// Blank text is ignored.
func (s *Session) PushHistory(role Role, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.History = append(s.History, Turn{Role: role, Text: text})
	if over := len(s.History) - MaxHistory; over > 0 {
		s.History = append(s.History[:0:0], s.History[over:]...)
	}
}

// Advance moves the session to a later stage. It reports false and leaves
// the stage alone when to is not ahead of the current one.
func (s *Session) Advance(to Stage) bool {
	if to <= s.Stage {
		return false
	}
	s.Stage = to
	return true
}

func (s *Session) clone() *Session {
	c := *s
	c.History = append([]Turn(nil), s.History...)
	return &c
}

// Store keeps sessions keyed by sender. Sessions returned by GetOrCreate are
// copies; changes become visible to other callers only after Touch.
type Store interface {
	GetOrCreate(ctx context.Context, senderID string) (*Session, error)
	Touch(ctx context.Context, s *Session) error
	Reset(ctx context.Context, senderID string) (*Session, error)
	EvictExpired(ctx context.Context) (int, error)
	Len(ctx context.Context) (int, error)
}
