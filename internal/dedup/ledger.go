// Package dedup remembers inbound message ids so that webhook retries from
// the provider are processed once.
package dedup

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 15 * time.Minute

type Ledger interface {
	// CheckAndMark reports true when id was already marked within the TTL.
	// Otherwise it marks id and reports false. An empty id is never a
	// duplicate and is not recorded.
	CheckAndMark(ctx context.Context, id string) (bool, error)
	EvictExpired(ctx context.Context) (int, error)
}

type Option func(*MemoryLedger)

func WithTTL(ttl time.Duration) Option {
	return func(l *MemoryLedger) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *MemoryLedger) { l.now = now }
}

type MemoryLedger struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

func NewMemoryLedger(opts ...Option) *MemoryLedger {
	l := &MemoryLedger{
		seen: make(map[string]time.Time),
		ttl:  DefaultTTL,
		now:  time.Now,
	}
	for _, fn := range opts {
		fn(l)
	}
	return l
}

func (l *MemoryLedger) CheckAndMark(_ context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.purge(now)
	if _, ok := l.seen[id]; ok {
		return true, nil
	}
	l.seen[id] = now
	return false, nil
}

func (l *MemoryLedger) EvictExpired(context.Context) (int, error) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.purge(now), nil
}

func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}

// purge drops entries older than the TTL. Callers hold l.mu.
func (l *MemoryLedger) purge(now time.Time) int {
	n := 0
	for id, ts := range l.seen {
		if now.Sub(ts) > l.ttl {
			delete(l.seen, id)
			n++
		}
	}
	return n
}

const redisKeyPrefix = "trivia:dedup:"

// RedisLedger shares the ledger between replicas using SET NX with expiry.
type RedisLedger struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewRedisLedger(rdb redis.UniversalClient, ttl time.Duration) *RedisLedger {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisLedger{rdb: rdb, ttl: ttl}
}

func (r *RedisLedger) CheckAndMark(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	ok, err := r.rdb.SetNX(ctx, redisKeyPrefix+id, 1, r.ttl).Result()
	if err != nil {
		return false, errors.Wrapf(err, "mark message %s", id)
	}
	return !ok, nil
}

// EvictExpired is a no-op: Redis expires the keys itself.
func (r *RedisLedger) EvictExpired(context.Context) (int, error) { return 0, nil }
