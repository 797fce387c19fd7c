package renewal

import (
	"errors"
	"fmt"
)

// Sentinel errors shared between the engine and its adapters. Adapters wrap
// these so callers can classify failures with errors.Is regardless of the
// backing service.
var (
	// ErrInvalidInput marks malformed invocation input. Never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRecordNotFound is returned by Registry lookups when no matching
	// certificate record exists.
	ErrRecordNotFound = errors.New("certificate record not found")

	// ErrSecretNotFound is returned by SecretStore.Get for a missing entry.
	ErrSecretNotFound = errors.New("secret not found")

	// ErrChallengeTimeout marks DNS propagation or ACME validation that
	// exceeded its allotted time. Retryable on the next scheduled run.
	ErrChallengeTimeout = errors.New("challenge validation timed out")

	// ErrRateLimited marks a rejection by the issuance authority's quota.
	// Callers should back off on a much longer cadence.
	ErrRateLimited = errors.New("issuance rate limited")

	// ErrPartialIssuance marks a run where ownership was proven but the
	// finalize or persistence step failed. The previous certificate, if
	// any, remains untouched.
	ErrPartialIssuance = errors.New("certificate issued but not persisted")
)

// Stage names the phase of an orchestration run in which an error occurred.
type Stage string

const (
	StageDecision  Stage = "decision"
	StageChallenge Stage = "challenge"
	StageFinalize  Stage = "finalize"
	StagePersist   Stage = "persist"
)

// Error wraps a collaborator failure with the certificate name and the
// stage at which it occurred.
type Error struct {
	// Name is the certificate name the run was scoped to.
	Name string

	// Stage identifies the failed phase.
	Stage Stage

	// CertificateRetained reports whether a previously issued certificate
	// is still usable despite this failure. False means the system is left
	// without any certificate for the domain set.
	CertificateRetained bool

	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("certificate %q: %s stage: %v", e.Name, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsRetryable reports whether err is safe to retry on the caller's normal
// cadence. Rate-limit errors are retryable too, but on a much longer one;
// check ErrRateLimited separately to pick the cadence.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrChallengeTimeout) || errors.Is(err, ErrRateLimited)
}
