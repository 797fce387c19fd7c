// Package guard enforces single-flight execution per certificate name.
//
// Two orchestration runs racing on the same name could interleave DNS
// challenge records and secret writes, so at most one run per name is
// allowed at a time. Runs for distinct names proceed in parallel.
//
// The package ships an in-process Local guard suitable for a single binary
// and for tests. Deployments with multiple orchestrator instances should
// use a distributed implementation such as the redis-backed lock in
// integration/database/redis.
//
//	g := guard.NewLocal()
//	err := g.WithExclusiveRun(ctx, "site-a", func(ctx context.Context) error {
//		return doRenewal(ctx)
//	})
//	if errors.Is(err, guard.ErrBusy) {
//		// another run holds the slot; safe to retry later
//	}
package guard
