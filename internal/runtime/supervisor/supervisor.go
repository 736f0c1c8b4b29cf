// Package supervisor owns the bot's background goroutines: the poll loop,
// the config watcher and the ops server. They share one context; a panic
// or error in any of them is recorded and, with WithCancelOnError, stops
// the rest.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime/debug"
	"sync"
	"time"

	logx "homeworkbot/pkg/logx"
)

type Supervisor struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    logx.Logger

	failFast bool

	wg       sync.WaitGroup
	mu       sync.Mutex
	err      error
	done     chan struct{}
	waitOnce sync.Once
}

type Option func(*Supervisor)

func WithLogger(log logx.Logger) Option { return func(s *Supervisor) { s.log = log } }

// WithCancelOnError stops every goroutine once one of them fails.
func WithCancelOnError(enabled bool) Option { return func(s *Supervisor) { s.failFast = enabled } }

func New(parent context.Context, opts ...Option) *Supervisor {
	s := &Supervisor{done: make(chan struct{})}
	s.ctx, s.cancel = context.WithCancel(parent)
	for _, o := range opts {
		o(s)
	}
	if s.log.IsZero() {
		s.log = logx.Nop()
	}
	return s
}

func (s *Supervisor) Context() context.Context { return s.ctx }

func (s *Supervisor) Cancel() { s.cancel() }

// Err returns the first recorded failure.
func (s *Supervisor) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Go runs fn once. Returning context.Canceled counts as a clean stop.
func (s *Supervisor) Go(name string, fn func(ctx context.Context) error) {
	if fn == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.log.Debug("goroutine started", logx.String("name", name))
		err := s.call(name, fn)
		s.log.Debug("goroutine stopped", logx.String("name", name))
		if err != nil && !errors.Is(err, context.Canceled) {
			s.record(fmt.Errorf("%s: %w", name, err), s.failFast)
		}
	}()
}

// Go0 is Go for functions that cannot fail.
func (s *Supervisor) Go0(name string, fn func(ctx context.Context)) {
	if fn == nil {
		return
	}
	s.Go(name, func(ctx context.Context) error { fn(ctx); return nil })
}

// RestartOption tunes GoRestart.
type RestartOption func(*restartPolicy)

type restartPolicy struct {
	first, ceiling time.Duration
	limit          int // 0: unlimited
	publish        bool
}

// WithRestartBackoff sets the first and the largest pause between attempts.
func WithRestartBackoff(first, ceiling time.Duration) RestartOption {
	return func(p *restartPolicy) {
		if first > 0 {
			p.first = first
		}
		if ceiling > 0 {
			p.ceiling = ceiling
		}
	}
}

// WithMaxRestarts gives up after n failed restarts and fails the supervisor.
func WithMaxRestarts(n int) RestartOption { return func(p *restartPolicy) { p.limit = n } }

// WithPublishFirstError records restartable failures in Err.
func WithPublishFirstError(enabled bool) RestartOption {
	return func(p *restartPolicy) { p.publish = enabled }
}

// GoRestart keeps fn running: a failure or panic is retried after a
// doubling, jittered pause. fn returning nil ends it.
func (s *Supervisor) GoRestart(name string, fn func(ctx context.Context) error, opts ...RestartOption) {
	if fn == nil {
		return
	}
	p := restartPolicy{first: 250 * time.Millisecond, ceiling: 30 * time.Second}
	for _, o := range opts {
		o(&p)
	}
	p.ceiling = max(p.ceiling, p.first)

	s.Go0(name, func(ctx context.Context) {
		pause := p.first
		for attempt := 1; ; attempt++ {
			began := time.Now()
			err := s.call(name, fn)
			if err == nil || ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			err = fmt.Errorf("%s: %w", name, err)
			if p.publish {
				s.record(err, false)
			}
			if p.limit > 0 && attempt > p.limit {
				s.log.Error("giving up", logx.String("name", name), logx.Int("attempts", attempt), logx.Err(err))
				s.record(err, s.failFast)
				return
			}
			if time.Since(began) > 30*time.Second {
				pause = p.first
			}
			wait := pause + rand.N(pause/5+1)
			s.log.Warn("restarting", logx.String("name", name), logx.Duration("in", wait), logx.Err(err))
			if !sleep(ctx, wait) {
				return
			}
			pause = min(2*pause, p.ceiling)
		}
	})
}

// call runs fn and turns a panic into an error.
func (s *Supervisor) call(name string, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic", logx.String("name", name), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(s.ctx)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (s *Supervisor) record(err error, stop bool) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	if stop {
		s.cancel()
	}
}

// Stop cancels every goroutine and waits for them.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.cancel()
	return s.Wait(ctx)
}

// Wait blocks until every goroutine returned or ctx is done.
func (s *Supervisor) Wait(ctx context.Context) error {
	s.waitOnce.Do(func() {
		go func() {
			s.wg.Wait()
			close(s.done)
		}()
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return s.Err()
	}
}
