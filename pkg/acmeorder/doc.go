// Package acmeorder obtains publicly-trusted TLS certificates through an
// ACME certificate authority using the DNS-01 challenge.
//
// The ACME protocol itself is handled by go-acme/lego; this package wires
// lego's challenge callbacks to a ChallengeDNS implementation (typically the
// Route 53 adapter), tracks every TXT record it creates, and guarantees the
// records are removed on every exit path. Challenge records are ephemeral:
// one left behind after a run is stale DNS state, so leftovers are swept
// and logged even when the order itself failed.
//
//	orderer, err := acmeorder.NewOrderer(dnsAdapter,
//		acmeorder.WithDNSTimeout(2*time.Minute),
//	)
//	bundle, err := orderer.Issue(ctx, domains, "ops@example.com", true)
//
// The staging flag selects the Let's Encrypt staging directory so test runs
// do not consume production issuance quota. Quota rejections surface as
// renewal.ErrRateLimited, propagation failures as renewal.ErrChallengeTimeout.
package acmeorder
