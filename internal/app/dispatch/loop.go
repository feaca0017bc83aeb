// Package dispatch provides the single-goroutine loop that owns all
// playback state. Work from other goroutines is posted onto it.
package dispatch

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// ErrClosed is returned when work is submitted to a closed loop.
var ErrClosed = errors.New("dispatch loop closed")

// Loop runs posted functions one at a time, in post order, on one goroutine.
// The queue is unbounded so Post never blocks.
type Loop struct {
	mu       sync.Mutex
	queue    []func()
	wake     chan struct{}
	closed   bool
	running  bool
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a loop. Call Run to start executing work.
func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Post queues fn. It reports false if the loop is closed.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Dispatch queues fn and drops it silently when the loop is closed.
// It has the shape engine and permission collaborators expect.
func (l *Loop) Dispatch(fn func()) {
	if !l.Post(fn) {
		zlog.Debug().Msg("dispatch: dropped work after close")
	}
}

// Call runs fn on the loop and waits for it to finish.
// It must not be called from the loop itself.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrClosed
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "dispatch call canceled")
	}
}

// Run executes queued work until ctx is canceled or Close is called.
// Work still queued at that point is discarded.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	if l.running {
		l.mu.Unlock()
		return errors.New("dispatch loop already running")
	}
	l.running = true
	l.mu.Unlock()

	defer l.shutdown()

	for {
		fn, ok := l.next()
		if ok {
			l.run(fn)
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-l.wake:
			if l.isClosed() {
				return nil
			}
		}
	}
}

// Close stops the loop. Pending work is discarded.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	running := l.running
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	if !running {
		l.shutdown()
	}
}

// Done is closed once the loop has stopped.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("dispatch: recovered panic: %v", r)
		}
	}()
	fn()
}

func (l *Loop) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *Loop) shutdown() {
	l.stopOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.queue = nil
		l.mu.Unlock()
		close(l.done)
	})
}
