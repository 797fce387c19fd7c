package renewal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dmitrymomot/certkeeper/core/guard"
)

// Registry is the authoritative store of issued certificates.
type Registry interface {
	// FindLatest returns the newest usable record whose domain set equals
	// domains and whose issuing endpoint matches the staging flag. When
	// several records match, the one with the furthest-future NotAfter
	// wins. Returns ErrRecordNotFound when nothing matches.
	FindLatest(ctx context.Context, domains DomainSet, staging bool) (*Record, error)

	// Import stores a freshly issued certificate as a new record and
	// returns its identifier. Existing records are never mutated.
	Import(ctx context.Context, name string, bundle *Bundle) (string, error)
}

// SecretStore holds private key material, namespaced per certificate name.
type SecretStore interface {
	// Get returns the stored key, or an error wrapping ErrSecretNotFound.
	Get(ctx context.Context, name string) ([]byte, error)

	// Put overwrites the stored key for name.
	Put(ctx context.Context, name string, value []byte) error
}

// Issuer performs the domain-ownership proof and certificate signing
// workflow. Implementations clean up every challenge record they create,
// on success and on failure alike.
type Issuer interface {
	Issue(ctx context.Context, domains DomainSet, email string, staging bool) (*Bundle, error)
}

// Engine is the renewal decision and issuance orchestrator.
type Engine struct {
	registry Registry
	secrets  SecretStore
	issuer   Issuer
	guard    guard.Guard
	log      *slog.Logger
	now      func() time.Time

	retryInitial time.Duration
	retryMax     uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithGuard replaces the default in-process execution guard. Use a
// distributed guard when several orchestrator instances may run at once.
func WithGuard(g guard.Guard) Option {
	return func(e *Engine) {
		if g != nil {
			e.guard = g
		}
	}
}

// WithLogger sets the logger for orchestration progress. Key material is
// never logged regardless of level.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIssueRetry tunes the bounded retry around the issuance workflow:
// initial is the first backoff interval, retries the number of attempts
// after the first.
func WithIssueRetry(initial time.Duration, retries uint64) Option {
	return func(e *Engine) {
		if initial > 0 {
			e.retryInitial = initial
		}
		e.retryMax = retries
	}
}

// NewEngine creates an orchestration engine over the given collaborators.
func NewEngine(registry Registry, secrets SecretStore, issuer Issuer, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		secrets:  secrets,
		issuer:   issuer,
		guard:    guard.NewLocal(),
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,

		retryInitial: 2 * time.Second,
		retryMax:     3,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ensure returns a descriptor for a certificate that is valid for more than
// the renewal threshold, issuing a replacement first when necessary.
//
// The happy read path has no side effects. Concurrent calls for the same
// name are serialized by the execution guard; the loser receives
// guard.ErrBusy and can simply retry later.
func (e *Engine) Ensure(ctx context.Context, req Request) (*Descriptor, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var desc *Descriptor
	err := e.guard.WithExclusiveRun(ctx, req.Name, func(ctx context.Context) error {
		d, err := e.ensure(ctx, req)
		desc = d
		return err
	})
	if err != nil {
		return nil, err
	}
	return desc, nil
}

func (e *Engine) ensure(ctx context.Context, req Request) (*Descriptor, error) {
	rec, err := e.currentRecord(ctx, req)
	if err != nil {
		return nil, e.fail(req.Name, StageDecision, false, err)
	}

	state := StateOf(rec, e.now(), req.threshold())
	hadPrev := state != StateAbsent && state != StateExpired

	if !state.NeedsIssuance() {
		e.log.InfoContext(ctx, "certificate still valid, nothing to do",
			"name", req.Name, "arn", rec.ARN, "not_after", rec.NotAfter)
		return &Descriptor{ARN: rec.ARN, Domains: req.Domains, NotAfter: rec.NotAfter}, nil
	}

	e.log.InfoContext(ctx, "issuing certificate",
		"name", req.Name, "state", string(state), "domains", []string(req.Domains), "staging", req.Staging)

	bundle, err := e.issueWithRetry(ctx, req)
	if err != nil {
		// Rate limits come back from order creation and finalize, so
		// they belong to the finalize stage; only a propagation timeout
		// is a challenge-stage failure.
		stage := StageFinalize
		if errors.Is(err, ErrChallengeTimeout) {
			stage = StageChallenge
		}
		return nil, e.fail(req.Name, stage, hadPrev, err)
	}

	// Key first, certificate second: the registry import carries its own
	// copy of the key, so a failed import leaves the previous record fully
	// usable even though the stored key was already overwritten.
	if err := e.secrets.Put(ctx, req.Name, bundle.PrivateKeyPEM); err != nil {
		return nil, e.fail(req.Name, StagePersist, hadPrev, wrapPartial(err))
	}

	arn, err := e.registry.Import(ctx, req.Name, bundle)
	if err != nil {
		return nil, e.fail(req.Name, StagePersist, hadPrev, wrapPartial(err))
	}

	e.log.InfoContext(ctx, "certificate issued and persisted",
		"name", req.Name, "arn", arn, "not_after", bundle.NotAfter)

	return &Descriptor{ARN: arn, Domains: req.Domains, NotAfter: bundle.NotAfter}, nil
}

// issueWithRetry drives the issuance workflow with bounded exponential
// backoff, so a flaky network or a brief DNS API outage does not fail the
// whole run. Challenge timeouts and rate limits abort immediately: those
// are retryable only at the caller's cadence, not within a run.
func (e *Engine) issueWithRetry(ctx context.Context, req Request) (*Bundle, error) {
	var bundle *Bundle
	attempt := 0
	operation := func() error {
		attempt++
		b, err := e.issuer.Issue(ctx, req.Domains, req.Email, req.Staging)
		if err != nil {
			if !isTransientIssueError(err) {
				return backoff.Permanent(err)
			}
			e.log.WarnContext(ctx, "issuance attempt failed",
				"name", req.Name, "attempt", attempt, "error", err)
			return err
		}
		bundle = b
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.retryInitial
	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, e.retryMax), ctx)); err != nil {
		return nil, err
	}
	return bundle, nil
}

func isTransientIssueError(err error) bool {
	switch {
	case errors.Is(err, ErrChallengeTimeout),
		errors.Is(err, ErrRateLimited),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

// currentRecord looks up the newest matching registry record and verifies
// its private key is still retrievable. A record whose key is gone is
// unusable and treated as absent, which makes the next run re-issue instead
// of serving a certificate nobody can terminate TLS with.
func (e *Engine) currentRecord(ctx context.Context, req Request) (*Record, error) {
	rec, err := e.registry.FindLatest(ctx, req.Domains, req.Staging)
	switch {
	case errors.Is(err, ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}

	if _, err := e.secrets.Get(ctx, req.Name); err != nil {
		if errors.Is(err, ErrSecretNotFound) {
			e.log.WarnContext(ctx, "registry record has no stored private key, re-issuing",
				"name", req.Name, "arn", rec.ARN)
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

func (e *Engine) fail(name string, stage Stage, retained bool, err error) error {
	return &Error{Name: name, Stage: stage, CertificateRetained: retained, Err: err}
}

func wrapPartial(err error) error {
	if errors.Is(err, ErrPartialIssuance) {
		return err
	}
	return errors.Join(ErrPartialIssuance, err)
}
