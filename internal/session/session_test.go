package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func TestPushHistory_KeepsMostRecentInOrder(t *testing.T) {
	s := newSession("5511999990000", time.Now())
	total := MaxHistory + 5
	for i := 0; i < total; i++ {
		s.PushHistory(RoleUser, fmt.Sprintf("msg %d", i))
	}

	require.Len(t, s.History, MaxHistory)
	for i, turn := range s.History {
		assert.Equal(t, fmt.Sprintf("msg %d", total-MaxHistory+i), turn.Text)
	}
}

func TestPushHistory_IgnoresBlank(t *testing.T) {
	s := newSession("x", time.Now())
	s.PushHistory(RoleUser, "   ")
	s.PushHistory(RoleAssistant, "")
	assert.Empty(t, s.History)

	s.PushHistory(RoleAssistant, "  oi  ")
	require.Len(t, s.History, 1)
	assert.Equal(t, "oi", s.History[0].Text)
}

func TestAdvance_NeverRegresses(t *testing.T) {
	s := newSession("x", time.Now())
	assert.True(t, s.Advance(StageAskedKnows))
	assert.False(t, s.Advance(StageAskedHow))
	assert.False(t, s.Advance(StageAskedKnows))
	assert.Equal(t, StageAskedKnows, s.Stage)
	assert.True(t, s.Advance(StageChat))
	assert.Equal(t, "CHAT", s.Stage.String())
}

func TestLeadMerge(t *testing.T) {
	l := Lead{Company: "Salão Beleza"}.Merge(Lead{Company: "other", City: "BH"})
	assert.Equal(t, Lead{Company: "Salão Beleza", City: "BH"}, l)
	assert.True(t, l.Complete())
	assert.False(t, Lead{City: "BH"}.Complete())
}

func TestMemoryStore_GetOrCreateAndTouch(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	st := NewMemoryStore(WithTTL(time.Minute), WithClock(clk.now))

	s, err := st.GetOrCreate(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, StageIntro, s.Stage)

	s.Advance(StageAskedHow)
	s.PushHistory(RoleUser, "oi")
	clk.advance(30 * time.Second)
	require.NoError(t, st.Touch(ctx, s))
	assert.Equal(t, clk.t, s.UpdatedAt)

	again, err := st.GetOrCreate(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, StageAskedHow, again.Stage)
	assert.Len(t, again.History, 1)

	// copies are isolated until touched
	again.PushHistory(RoleUser, "unsaved")
	third, _ := st.GetOrCreate(ctx, "a")
	assert.Len(t, third.History, 1)
}

func TestMemoryStore_EvictExpired(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	st := NewMemoryStore(WithTTL(time.Minute), WithClock(clk.now))

	old, _ := st.GetOrCreate(ctx, "old")
	require.NoError(t, st.Touch(ctx, old))
	clk.advance(45 * time.Second)
	fresh, _ := st.GetOrCreate(ctx, "fresh")
	require.NoError(t, st.Touch(ctx, fresh))
	clk.advance(30 * time.Second)

	n, err := st.EvictExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	size, _ := st.Len(ctx)
	assert.Equal(t, 1, size)
}

func TestMemoryStore_ExpiredSessionRestarts(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	st := NewMemoryStore(WithTTL(time.Minute), WithClock(clk.now))

	s, _ := st.GetOrCreate(ctx, "a")
	s.Advance(StageChat)
	require.NoError(t, st.Touch(ctx, s))

	clk.advance(2 * time.Minute)
	s, _ = st.GetOrCreate(ctx, "a")
	assert.Equal(t, StageIntro, s.Stage)
}

func TestMemoryStore_Reset(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	s, _ := st.GetOrCreate(ctx, "a")
	s.Advance(StageChat)
	s.Handoff = HandoffDone
	require.NoError(t, st.Touch(ctx, s))

	s, err := st.Reset(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, StageIntro, s.Stage)
	assert.Equal(t, HandoffNone, s.Handoff)

	stored, _ := st.GetOrCreate(ctx, "a")
	assert.Equal(t, StageIntro, stored.Stage)
}

func TestRedisStore_RoundTripAndTTL(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	st := NewRedisStore(rdb, WithTTL(time.Minute))

	s, err := st.GetOrCreate(ctx, "5531")
	require.NoError(t, err)
	assert.Equal(t, StageIntro, s.Stage)

	s.Advance(StageAskedKnows)
	s.Lead = Lead{Company: "Salão Beleza"}
	s.PushHistory(RoleUser, "oi")
	require.NoError(t, st.Touch(ctx, s))

	got, err := st.GetOrCreate(ctx, "5531")
	require.NoError(t, err)
	assert.Equal(t, StageAskedKnows, got.Stage)
	assert.Equal(t, "Salão Beleza", got.Lead.Company)
	require.Len(t, got.History, 1)

	n, err := st.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	mr.FastForward(2 * time.Minute)
	got, err = st.GetOrCreate(ctx, "5531")
	require.NoError(t, err)
	assert.Equal(t, StageIntro, got.Stage)

	s.Advance(StageChat)
	require.NoError(t, st.Touch(ctx, s))
	reset, err := st.Reset(ctx, "5531")
	require.NoError(t, err)
	assert.Equal(t, StageIntro, reset.Stage)
	n, _ = st.Len(ctx)
	assert.Equal(t, 0, n)
}
