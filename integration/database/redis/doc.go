// Package redis provides Redis client initialization with connection
// verification and a lease-based execution lock for certificate renewals.
//
// Connect validates the connection URL, dials with retry, and verifies
// connectivity with a ping before returning the client. Healthcheck returns
// a probe function suitable for readiness endpoints.
//
// # Configuration
//
//	type Config struct {
//		ConnectionURL  string        `env:"REDIS_URL,required"`
//		RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
//		RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`
//		ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
//	}
//
// Both redis:// and rediss:// (TLS) URL schemes are supported.
//
// # Execution Lock
//
// Lock implements the renewal engine's exclusive-run guard across
// processes. It takes a per-certificate lease with SET NX and a TTL, tags
// the lease with a random owner token, and releases it with an
// owner-checked script so an expired lease is never released out from
// under the process that took it over:
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	lock := redis.NewLock(client, redis.WithLeaseTTL(10*time.Minute))
//
//	err = lock.WithExclusiveRun(ctx, "api-example-com", func(ctx context.Context) error {
//		// renewal work, at most one process at a time
//		return nil
//	})
//	if errors.Is(err, guard.ErrBusy) {
//		// another process holds the lease
//	}
//
// A second caller for the same name is rejected immediately with
// guard.ErrBusy rather than queued.
package redis
