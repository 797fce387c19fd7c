package guard

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrBusy is returned when another run already holds the slot for a name.
// It is an expected condition, safe to retry after the holder finishes.
var ErrBusy = errors.New("another run is already in progress")

// Guard serializes orchestration runs per certificate name.
type Guard interface {
	// WithExclusiveRun executes fn while holding the exclusive slot for
	// name, releasing it when fn returns. A second concurrent call for the
	// same name fails immediately with an error wrapping ErrBusy.
	WithExclusiveRun(ctx context.Context, name string, fn func(context.Context) error) error
}

// Local is an in-process Guard backed by a per-name slot map.
type Local struct {
	mu      sync.Mutex
	running map[string]struct{}
}

// NewLocal creates an in-process guard.
func NewLocal() *Local {
	return &Local{running: make(map[string]struct{})}
}

// WithExclusiveRun implements Guard.
func (l *Local) WithExclusiveRun(ctx context.Context, name string, fn func(context.Context) error) error {
	if !l.acquire(name) {
		return fmt.Errorf("%q: %w", name, ErrBusy)
	}
	defer l.release(name)

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

func (l *Local) acquire(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.running[name]; taken {
		return false
	}
	l.running[name] = struct{}{}
	return true
}

func (l *Local) release(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.running, name)
}
