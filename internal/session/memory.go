package session

import (
	"context"
	"sync"
	"time"
)

const DefaultTTL = 40 * time.Minute

type Option func(*options)

type options struct {
	ttl time.Duration
	now func() time.Time
}

func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{ttl: DefaultTTL, now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// MemoryStore holds sessions in process memory. Everything is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	opts     options
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		opts:     buildOptions(opts),
	}
}

func (m *MemoryStore) GetOrCreate(_ context.Context, senderID string) (*Session, error) {
	now := m.opts.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[senderID]
	if ok && now.Sub(s.UpdatedAt) > m.opts.ttl {
		delete(m.sessions, senderID)
		ok = false
	}
	if !ok {
		s = newSession(senderID, now)
		m.sessions[senderID] = s
	}
	return s.clone(), nil
}

func (m *MemoryStore) Touch(_ context.Context, s *Session) error {
	s.UpdatedAt = m.opts.now()

	m.mu.Lock()
	m.sessions[s.SenderID] = s.clone()
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Reset(_ context.Context, senderID string) (*Session, error) {
	s := newSession(senderID, m.opts.now())

	m.mu.Lock()
	m.sessions[senderID] = s
	m.mu.Unlock()
	return s.clone(), nil
}

func (m *MemoryStore) EvictExpired(_ context.Context) (int, error) {
	now := m.opts.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, s := range m.sessions {
		if now.Sub(s.UpdatedAt) > m.opts.ttl {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Len(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions), nil
}
