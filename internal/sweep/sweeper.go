// Package sweep periodically evicts expired dedup entries and sessions so
// that memory stays bounded even when no traffic triggers lazy expiry.
package sweep

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

type Evictor interface {
	EvictExpired(ctx context.Context) (int, error)
}

type Sweeper struct {
	interval time.Duration
	targets  map[string]Evictor
}

func New(interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{interval: interval, targets: map[string]Evictor{}}
}

// Register adds a named target. Not safe to call after Run has started.
func (s *Sweeper) Register(name string, e Evictor) *Sweeper {
	s.targets[name] = e
	return s
}

// Run sweeps on every tick until ctx is done. It always returns nil so it can
// sit in an errgroup next to the HTTP server.
func (s *Sweeper) Run(ctx context.Context) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s.SweepOnce(ctx)
		}
	}
}

func (s *Sweeper) SweepOnce(ctx context.Context) map[string]int {
	out := make(map[string]int, len(s.targets))
	for name, e := range s.targets {
		n, err := e.EvictExpired(ctx)
		if err != nil {
			log.Warn().Err(err).Str("target", name).Msg("sweep failed")
			continue
		}
		out[name] = n
		if n > 0 {
			log.Debug().Str("target", name).Int("evicted", n).Msg("sweep")
		}
	}
	return out
}
