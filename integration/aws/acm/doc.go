// Package acm stores issued certificates in AWS Certificate Manager and
// looks them up by domain set.
//
// ACM is treated as an append-only registry: every renewal imports a new
// certificate instead of re-importing over an existing ARN, so records are
// immutable and a racing invocation can never produce a torn write. Lookups
// consider only imported, ISSUED certificates whose subject alternative
// names equal the requested domain set; when several match, the one with
// the furthest-future expiry wins.
//
// Certificates obtained from the staging ACME endpoint carry a "Fake" test
// issuer. The adapter uses that marker to keep staging and production
// certificates apart, so a staging dry run never shadows the production
// certificate for the same domains.
package acm
