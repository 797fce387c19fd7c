package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/certkeeper/core/guard"
)

// Compile-time check that Lock satisfies the guard contract.
var _ guard.Guard = (*Lock)(nil)

// releaseScript deletes the lease only when the stored owner token matches,
// so a process whose lease expired cannot release a successor's lease.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) else return 0 end`

const defaultLeaseTTL = 10 * time.Minute

// lockClient captures the Redis commands the lock uses. It is satisfied by
// *redis.Client and by fakes in tests.
type lockClient interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
}

// Lock is a cross-process exclusive-run guard backed by Redis leases.
// At most one holder per name; a second caller is rejected immediately
// with guard.ErrBusy.
type Lock struct {
	client   lockClient
	leaseTTL time.Duration
	newToken func() string
}

// LockOption configures the Lock.
type LockOption func(*Lock)

// WithLeaseTTL bounds how long a crashed holder blocks other processes.
// The TTL must exceed the longest expected renewal run.
func WithLeaseTTL(ttl time.Duration) LockOption {
	return func(l *Lock) {
		if ttl > 0 {
			l.leaseTTL = ttl
		}
	}
}

// NewLock creates a Redis-backed execution lock.
func NewLock(client lockClient, opts ...LockOption) *Lock {
	l := &Lock{
		client:   client,
		leaseTTL: defaultLeaseTTL,
		newToken: uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// WithExclusiveRun executes fn while holding the lease for name. When
// another process holds the lease, it returns guard.ErrBusy without
// waiting. The lease is released on return; a lease that expired mid-run
// is reported as ErrLeaseNotHeld alongside fn's result.
func (l *Lock) WithExclusiveRun(ctx context.Context, name string, fn func(context.Context) error) error {
	key := leaseKey(name)
	token := l.newToken()

	ok, err := l.client.SetNX(ctx, key, token, l.leaseTTL).Result()
	if err != nil {
		return fmt.Errorf("acquire lease for %q: %w", name, err)
	}
	if !ok {
		return fmt.Errorf("%q: %w", name, guard.ErrBusy)
	}

	runErr := fn(ctx)

	released, relErr := l.client.Eval(context.WithoutCancel(ctx), releaseScript, []string{key}, token).Int64()
	if relErr != nil {
		return errors.Join(runErr, fmt.Errorf("release lease for %q: %w", name, relErr))
	}
	if released == 0 {
		return errors.Join(runErr, fmt.Errorf("%q: %w", name, ErrLeaseNotHeld))
	}
	return runErr
}

func leaseKey(name string) string {
	return "certkeeper:lock:" + name
}
