package conversation

import (
	"strings"

	"github.com/Vovarama1992/trivia-mel-bridge/internal/classify"
	"github.com/Vovarama1992/trivia-mel-bridge/internal/session"
)

type Action int

const (
	ActionNone Action = iota
	ActionScripted
	ActionModel
	ActionHandoff
)

func (a Action) String() string {
	switch a {
	case ActionScripted:
		return "scripted"
	case ActionModel:
		return "model"
	case ActionHandoff:
		return "handoff"
	default:
		return "none"
	}
}

// State is the part of a session the transition function reads.
type State struct {
	Stage   session.Stage
	Handoff session.Handoff
	Lead    session.Lead
}

func stateOf(s *session.Session) State {
	return State{Stage: s.Stage, Handoff: s.Handoff, Lead: s.Lead}
}

// Input is an inbound text after classification.
type Input struct {
	Text       string
	Reset      bool
	Identity   bool
	Question   bool
	InScope    bool
	Commercial bool
	LeadLike   bool
	// Named is set when a company marker introduced Lead.Company.
	Named bool
	Knows classify.Knows
	Lead  session.Lead
}

// Classify runs every predicate once over text.
func Classify(c *classify.Classifier, text string) Input {
	text = strings.TrimSpace(text)
	company, city := c.ExtractLead(text)
	return Input{
		Text:       text,
		Reset:      c.IsReset(text),
		Identity:   c.IsIdentityQuestion(text),
		Question:   c.IsQuestion(text),
		InScope:    c.IsInScope(text),
		Commercial: c.IsCommercialIntent(text),
		LeadLike:   c.LooksLikeLeadAnswer(text),
		Named:      c.NamesCompany(text),
		Knows:      c.ClassifyKnows(text),
		Lead:       session.Lead{Company: company, City: city},
	}
}

// Decision is what to do with one inbound message. Reply is set for scripted
// and handoff actions; model replies are produced later by the Responder.
type Decision struct {
	Action Action
	Reply  string
	Next   State
	Rule   string

	// Reset discards the session before Next is applied.
	Reset bool
	// NotifyLead sends the lead summary to the commercial recipient.
	NotifyLead bool
}

// Machine is the stage graph INTRO → ASKED_HOW → ASKED_KNOWS →
// ASKED_SEGMENT → CHAT with the commercial handoff running beside it.
type Machine struct {
	script Script
}

func NewMachine(script Script) *Machine {
	return &Machine{script: script}
}

// Decide maps the current state and a classified input to the next state and
// the action to take. It has no side effects.
func (m *Machine) Decide(st State, in Input) Decision {
	sc := m.script

	switch {
	case in.Reset:
		return Decision{
			Action: ActionScripted,
			Reply:  sc.Opening,
			Next:   State{Stage: session.StageAskedHow},
			Rule:   "reset",
			Reset:  true,
		}

	case in.Identity:
		next := st
		next.Stage = session.StageChat
		return Decision{Action: ActionScripted, Reply: sc.Identity, Next: next, Rule: "identity"}

	case in.Question && !in.InScope:
		return Decision{Action: ActionScripted, Reply: sc.OutOfScope, Next: st, Rule: "out_of_scope"}

	case st.Handoff == session.HandoffAwaiting && (in.LeadLike || in.Commercial || !in.Question):
		return m.completeHandoff(st, in)

	case in.Commercial:
		return m.startHandoff(st, in)
	}

	return m.byStage(st, in)
}

func (m *Machine) startHandoff(st State, in Input) Decision {
	next := st
	if st.Handoff == session.HandoffDone {
		return Decision{Action: ActionHandoff, Reply: m.script.HandoffReminder, Next: next, Rule: "handoff_reminder"}
	}

	// Leftover clauses of a bare purchase request are not a company name.
	if in.LeadLike || in.Named {
		next.Lead = st.Lead.Merge(in.Lead)
	}
	if next.Lead.Complete() {
		next.Handoff = session.HandoffDone
		return Decision{
			Action:     ActionHandoff,
			Reply:      m.script.HandoffContact,
			Next:       next,
			Rule:       "handoff_complete",
			NotifyLead: true,
		}
	}

	next.Handoff = session.HandoffAwaiting
	return Decision{Action: ActionHandoff, Reply: m.script.HandoffAsk, Next: next, Rule: "handoff_ask"}
}

// completeHandoff closes a pending handoff with whatever the answer holds;
// the lead is asked for only once. Fields from the answer win over anything
// kept from the request that started the handoff.
func (m *Machine) completeHandoff(st State, in Input) Decision {
	next := st
	next.Lead = in.Lead.Merge(st.Lead)
	if next.Lead.Company == "" && next.Lead.City == "" && !in.Commercial {
		next.Lead.Company = in.Text
	}
	next.Handoff = session.HandoffDone
	return Decision{
		Action:     ActionHandoff,
		Reply:      m.script.HandoffContact,
		Next:       next,
		Rule:       "handoff_complete",
		NotifyLead: true,
	}
}

func (m *Machine) byStage(st State, in Input) Decision {
	sc := m.script
	next := st

	switch st.Stage {
	case session.StageIntro:
		next.Stage = session.StageAskedHow
		return Decision{Action: ActionScripted, Reply: sc.Opening, Next: next, Rule: "opening"}

	case session.StageAskedHow:
		next.Stage = session.StageAskedKnows
		return Decision{Action: ActionScripted, Reply: sc.AskKnows, Next: next, Rule: "ask_knows"}

	case session.StageAskedKnows:
		if in.Text == "" {
			return Decision{Action: ActionScripted, Reply: sc.KnowsUnclear, Next: next, Rule: "knows_unclear"}
		}
		switch in.Knows {
		case classify.KnowsYes:
			next.Stage = session.StageChat
			return Decision{Action: ActionScripted, Reply: sc.KnowsYes, Next: next, Rule: "knows_yes"}
		case classify.KnowsNo:
			next.Stage = session.StageAskedSegment
			return Decision{Action: ActionScripted, Reply: sc.KnowsNo, Next: next, Rule: "knows_no"}
		default:
			return Decision{Action: ActionScripted, Reply: sc.KnowsUnclear, Next: next, Rule: "knows_unclear"}
		}

	case session.StageAskedSegment:
		next.Stage = session.StageChat
		return Decision{Action: ActionScripted, Reply: sc.Segment, Next: next, Rule: "segment"}

	default:
		return Decision{Action: ActionModel, Next: next, Rule: "chat"}
	}
}
