package conversation

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultJobTimeout bounds one detached job, model call included.
const DefaultJobTimeout = 90 * time.Second

// Dispatcher runs work detached from the request that scheduled it. Failures
// and panics are logged and never reach the caller.
type Dispatcher struct {
	wg      sync.WaitGroup
	timeout time.Duration
}

func NewDispatcher(timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	return &Dispatcher{timeout: timeout}
}

// Go schedules fn. The context passed to fn carries a logger tagged with the
// job name and a fresh job id.
func (d *Dispatcher) Go(name string, fn func(ctx context.Context) error) string {
	id := uuid.NewString()
	logger := log.With().Str("job", name).Str("job_id", id).Logger()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("job panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(logger.WithContext(context.Background()), d.timeout)
		defer cancel()

		start := time.Now()
		if err := fn(ctx); err != nil {
			logger.Error().Err(err).Dur("took", time.Since(start)).Msg("job failed")
			return
		}
		logger.Debug().Dur("took", time.Since(start)).Msg("job done")
	}()
	return id
}

// Wait blocks until every scheduled job has returned or ctx ends.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
