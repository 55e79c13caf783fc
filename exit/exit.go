// Package exit coordinates a cooperative shutdown with in-flight writes.
//
// Mutating operations that must not be interrupted halfway (flush,
// truncate) bracket themselves with Enter and Leave. Exit refuses new
// entries and blocks until every entered operation has left, so a process
// can stop without leaving a column with a half-written tail.
//
//	g := exit.New()
//	col, _ := ledgercol.Import(grp, "price", 1, codec.Float64, ledgercol.WithExitGuard(g))
//	...
//	g.Exit() // returns once no flush is running
package exit

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
)

// ErrExiting is returned by Enter once an exit was requested.
var ErrExiting = errors.New("exit: shutdown in progress")

// Guard tracks in-flight operations. The zero value is ready to use.
// A nil *Guard never refuses and never blocks.
type Guard struct {
	mu      sync.RWMutex
	exiting atomic.Bool
}

// New returns a new Guard.
func New() *Guard {
	return &Guard{}
}

// Enter registers an operation. Every successful Enter must be paired with
// exactly one Leave.
func (g *Guard) Enter() error {
	if g == nil {
		return nil
	}
	if g.exiting.Load() {
		return ErrExiting
	}
	g.mu.RLock()
	// Exit may have started between the check and the lock.
	if g.exiting.Load() {
		g.mu.RUnlock()
		return ErrExiting
	}
	return nil
}

// Leave ends an operation started with Enter.
func (g *Guard) Leave() {
	if g == nil {
		return
	}
	g.mu.RUnlock()
}

// Exit refuses new operations and waits for running ones to leave.
// It is safe to call more than once.
func (g *Guard) Exit() {
	if g == nil {
		return
	}
	g.exiting.Store(true)
	g.mu.Lock()
	// Nothing else can take the read side any more; release immediately.
	g.mu.Unlock()
}

// Exiting reports whether Exit was called.
func (g *Guard) Exiting() bool {
	return g != nil && g.exiting.Load()
}

// Run executes fn between Enter and Leave.
func (g *Guard) Run(fn func() error) error {
	if err := g.Enter(); err != nil {
		return err
	}
	defer g.Leave()
	return fn()
}

// NotifyOnSignal calls Exit when one of signals arrives (os.Interrupt if
// none are given). The returned channel is closed after Exit completed. The
// watcher stops without exiting when ctx is done.
func (g *Guard) NotifyOnSignal(ctx context.Context, signals ...os.Signal) <-chan struct{} {
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt}
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)

	done := make(chan struct{})
	go func() {
		defer signal.Stop(ch)
		select {
		case <-ch:
			g.Exit()
			close(done)
		case <-ctx.Done():
		}
	}()
	return done
}
