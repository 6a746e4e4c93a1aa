package session

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "trivia:session:"

// RedisStore keeps sessions as JSON blobs whose expiry is refreshed on every
// Touch, so eviction is left to Redis.
type RedisStore struct {
	rdb  redis.UniversalClient
	opts options
}

func NewRedisStore(rdb redis.UniversalClient, opts ...Option) *RedisStore {
	return &RedisStore{rdb: rdb, opts: buildOptions(opts)}
}

func (r *RedisStore) GetOrCreate(ctx context.Context, senderID string) (*Session, error) {
	raw, err := r.rdb.Get(ctx, redisKeyPrefix+senderID).Bytes()
	if errors.Is(err, redis.Nil) {
		return newSession(senderID, r.opts.now()), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get session %s", senderID)
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errors.Wrapf(err, "decode session %s", senderID)
	}
	return &s, nil
}

func (r *RedisStore) Touch(ctx context.Context, s *Session) error {
	s.UpdatedAt = r.opts.now()
	raw, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "encode session")
	}
	if err := r.rdb.Set(ctx, redisKeyPrefix+s.SenderID, raw, r.opts.ttl).Err(); err != nil {
		return errors.Wrapf(err, "set session %s", s.SenderID)
	}
	return nil
}

func (r *RedisStore) Reset(ctx context.Context, senderID string) (*Session, error) {
	if err := r.rdb.Del(ctx, redisKeyPrefix+senderID).Err(); err != nil {
		return nil, errors.Wrapf(err, "delete session %s", senderID)
	}
	return newSession(senderID, r.opts.now()), nil
}

// EvictExpired is a no-op: keys carry their own TTL.
func (r *RedisStore) EvictExpired(context.Context) (int, error) { return 0, nil }

func (r *RedisStore) Len(ctx context.Context) (int, error) {
	var (
		n      int
		cursor uint64
	)
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, redisKeyPrefix+"*", 200).Result()
		if err != nil {
			return 0, errors.Wrap(err, "scan sessions")
		}
		n += len(keys)
		if next == 0 {
			return n, nil
		}
		cursor = next
	}
}
