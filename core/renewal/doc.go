// Package renewal decides whether a managed TLS certificate is still usable
// and drives a DNS-01 issuance workflow when it is not.
//
// The package owns no infrastructure. The certificate registry, the secret
// store, the ACME ordering engine, and the execution guard are consumed
// through small interfaces so the engine can be exercised end to end with
// in-memory fakes.
//
// # Basic Usage
//
//	engine := renewal.NewEngine(registry, secrets, issuer,
//		renewal.WithGuard(guardImpl),
//		renewal.WithLogger(log),
//	)
//
//	desc, err := engine.Ensure(ctx, renewal.Request{
//		Name:    "site-a",
//		Domains: renewal.DomainSet{"a.example.com", "www.a.example.com"},
//		Email:   "ops@example.com",
//		Staging: true,
//	})
//
// Ensure is idempotent: while the stored certificate has more than the
// renewal threshold of validity left, the call is a side-effect-free read
// that returns the existing descriptor. Otherwise a new certificate is
// obtained, its private key written to the secret store, and the chain
// imported into the registry as a new, immutable record.
//
// All failures are wrapped in *renewal.Error carrying the certificate name,
// the stage that failed, and whether a previously issued certificate is
// still usable. Sentinel errors (ErrChallengeTimeout, ErrRateLimited, ...)
// remain checkable through errors.Is for caller retry policies.
package renewal
