// Package supervisor runs named goroutines under one cancellable context.
//
// Panics are recovered and logged with a stack. The first failure is kept
// and returned by Err and Wait; with WithCancelOnError it also cancels the
// context, taking every sibling goroutine down with it.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	logx "animebot/pkg/logx"
)

type Supervisor struct {
	ctx    context.Context
	cancel context.CancelFunc

	log         logx.Logger
	cancelOnErr bool

	wg     sync.WaitGroup
	active atomic.Int64

	mu  sync.Mutex
	err error

	waitOnce sync.Once
	done     chan struct{}
}

type Option func(*Supervisor)

func WithLogger(log logx.Logger) Option {
	return func(s *Supervisor) { s.log = log }
}

// WithCancelOnError cancels the supervisor context on the first failure.
func WithCancelOnError(enabled bool) Option {
	return func(s *Supervisor) { s.cancelOnErr = enabled }
}

func New(parent context.Context, opts ...Option) *Supervisor {
	ctx, cancel := context.WithCancel(parent)
	s := &Supervisor{ctx: ctx, cancel: cancel, log: logx.Nop(), done: make(chan struct{})}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Supervisor) Context() context.Context { return s.ctx }

// Cancel cancels the context without waiting.
func (s *Supervisor) Cancel() { s.cancel() }

// Active is the number of goroutines still running.
func (s *Supervisor) Active() int { return int(s.active.Load()) }

// Err is the first recorded failure, if any.
func (s *Supervisor) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Supervisor) record(err error, cancel bool) {
	if err == nil {
		return
	}
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	if cancel && s.cancelOnErr {
		s.cancel()
	}
}

// Go runs fn in its own goroutine. A non-nil error other than
// context.Canceled, or a panic, is recorded as a failure.
func (s *Supervisor) Go(name string, fn func(ctx context.Context) error) {
	if fn == nil {
		return
	}
	s.wg.Add(1)
	s.active.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.active.Add(-1)

		s.log.Debug("goroutine started", logx.String("name", name))
		err := s.guard(name, fn)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.record(fmt.Errorf("%s: %w", name, err), true)
		}
		s.log.Debug("goroutine stopped", logx.String("name", name))
	}()
}

// Go0 is Go for functions that cannot fail.
func (s *Supervisor) Go0(name string, fn func(ctx context.Context)) {
	if fn == nil {
		return
	}
	s.Go(name, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}

// guard runs fn, converting a panic into an error.
func (s *Supervisor) guard(name string, fn func(ctx context.Context) error) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		s.log.Error("goroutine panicked",
			logx.String("name", name),
			logx.Any("panic", r),
			logx.Stack(string(debug.Stack())),
		)
		err = fmt.Errorf("panic in %s: %v", name, r)
	}()
	return fn(s.ctx)
}

type RestartOption func(*restartPolicy)

type restartPolicy struct {
	min, max        time.Duration
	maxRestarts     int // 0 = unlimited
	stopOnCleanExit bool
	publish         bool
}

// WithRestartBackoff bounds the exponential delay between restarts.
func WithRestartBackoff(lo, hi time.Duration) RestartOption {
	return func(p *restartPolicy) {
		if lo > 0 {
			p.min = lo
		}
		if hi > 0 {
			p.max = hi
		}
	}
}

// WithMaxRestarts gives up after n restarts; the first run does not count.
// Giving up is a failure of the whole group.
func WithMaxRestarts(n int) RestartOption { return func(p *restartPolicy) { p.maxRestarts = n } }

// WithPublishFirstError makes restart causes visible through Err without
// cancelling anything.
func WithPublishFirstError(enabled bool) RestartOption {
	return func(p *restartPolicy) { p.publish = enabled }
}

// WithStopOnCleanExit ends the loop when fn returns nil. Default true.
func WithStopOnCleanExit(enabled bool) RestartOption {
	return func(p *restartPolicy) { p.stopOnCleanExit = enabled }
}

// GoRestart keeps fn running: after an error or panic it is started again
// with jittered exponential backoff until the context ends.
func (s *Supervisor) GoRestart(name string, fn func(ctx context.Context) error, opts ...RestartOption) {
	if fn == nil {
		return
	}
	p := restartPolicy{min: 250 * time.Millisecond, max: 30 * time.Second, stopOnCleanExit: true}
	for _, o := range opts {
		o(&p)
	}
	p.max = max(p.max, p.min)

	s.Go0(name+".restart", func(ctx context.Context) {
		s.restartLoop(ctx, name, fn, p)
	})
}

func (s *Supervisor) restartLoop(ctx context.Context, name string, fn func(ctx context.Context) error, p restartPolicy) {
	delay := p.min
	for restarts := 0; ; restarts++ {
		began := time.Now()
		err := s.guard(name, fn)
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return
		}
		if err == nil {
			if p.stopOnCleanExit {
				return
			}
			err = errors.New("exited")
		}
		if p.publish {
			s.record(fmt.Errorf("%s: %w", name, err), false)
		}
		if p.maxRestarts > 0 && restarts >= p.maxRestarts {
			s.log.Error("goroutine gave up",
				logx.String("name", name), logx.Int("restarts", restarts), logx.Err(err))
			s.record(fmt.Errorf("%s: gave up after %d restarts: %w", name, restarts, err), true)
			return
		}

		// a run that stayed up for a while starts the backoff over
		if time.Since(began) >= 30*time.Second {
			delay = p.min
		}
		wait := delay
		if j := int64(wait) / 5; j > 0 {
			wait += time.Duration(rand.Int64N(j + 1))
		}
		s.log.Warn("goroutine restarting",
			logx.String("name", name), logx.Duration("backoff", wait), logx.Err(err))

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		delay = min(delay*2, p.max)
	}
}

// Wait blocks until every goroutine has returned or ctx ends.
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

// Stop cancels and waits.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.cancel()
	return s.Wait(ctx)
}
