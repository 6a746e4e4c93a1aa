package conversation

import (
	"context"
	"sync"

	"github.com/Vovarama1992/trivia-mel-bridge/internal/ai"
	"github.com/Vovarama1992/trivia-mel-bridge/internal/audit"
)

type sent struct {
	To   string
	Text string
}

type fakeSender struct {
	mu   sync.Mutex
	msgs []sent
	err  error
}

func (f *fakeSender) Send(_ context.Context, to, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, sent{To: to, Text: text})
	return nil
}

func (f *fakeSender) all() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.msgs...)
}

func (f *fakeSender) to(id string) []string {
	var out []string
	for _, m := range f.all() {
		if m.To == id {
			out = append(out, m.Text)
		}
	}
	return out
}

type reply struct {
	text string
	err  error
}

// fakeModel answers with the queued replies in order, repeating the last.
type fakeModel struct {
	mu      sync.Mutex
	replies []reply
	reqs    []ai.Request
}

func (f *fakeModel) Complete(_ context.Context, req ai.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if len(f.replies) == 0 {
		return "", nil
	}
	r := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return r.text, r.err
}

func (f *fakeModel) calls() []ai.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ai.Request(nil), f.reqs...)
}

type fakeAudit struct {
	mu    sync.Mutex
	msgs  []audit.Message
	leads []audit.Lead
}

func (f *fakeAudit) SaveMessage(_ context.Context, m audit.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, m)
	return nil
}

func (f *fakeAudit) SaveLead(_ context.Context, l audit.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leads = append(f.leads, l)
	return nil
}
