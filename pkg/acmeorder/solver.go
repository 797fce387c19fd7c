package acmeorder

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-acme/lego/v4/challenge/dns01"
)

// ChallengeDNS creates and removes the TXT records that answer DNS-01
// challenges. Implemented by integration/aws/route53.
type ChallengeDNS interface {
	// CreateRecord upserts a TXT record and returns an opaque change id.
	CreateRecord(ctx context.Context, fqdn, value string) (changeID string, err error)

	// WaitForPropagation blocks until the change is visible, polling the
	// change status with a bounded timeout. A timeout is fatal and wraps
	// renewal.ErrChallengeTimeout.
	WaitForPropagation(ctx context.Context, changeID string) error

	// DeleteRecord removes a previously created TXT record.
	DeleteRecord(ctx context.Context, fqdn, value string) error
}

// ChallengeRecord is one TXT record published for a DNS-01 challenge. It
// lives only for the duration of a single order.
type ChallengeRecord struct {
	Domain   string
	FQDN     string
	Value    string
	ChangeID string
}

// dnsSolver bridges lego's challenge.Provider contract to a ChallengeDNS.
// It remembers every record it created so the orderer can sweep leftovers
// after lego is done, whatever way the order ended.
//
// Record creation and propagation waiting are separate phases: Present only
// publishes records, and the waits run from the validation-phase pre-check.
// All records of an order are therefore created before any propagation wait
// begins, bounding the total DNS wait to one round instead of one per domain.
type dnsSolver struct {
	ctx      context.Context
	dns      ChallengeDNS
	timeout  time.Duration
	interval time.Duration

	mu             sync.Mutex
	records        []ChallengeRecord
	pendingChanges []string
	lastErr        error
}

func newDNSSolver(ctx context.Context, dns ChallengeDNS, timeout time.Duration) *dnsSolver {
	return &dnsSolver{
		ctx:      ctx,
		dns:      dns,
		timeout:  timeout,
		interval: 4 * time.Second,
	}
}

// Present publishes the TXT record proving control of domain. Called by
// lego once per authorization, before any authorization is validated, so
// no propagation wait happens here.
func (s *dnsSolver) Present(domain, token, keyAuth string) error {
	fqdn, value := dns01.GetRecord(domain, keyAuth)

	changeID, err := s.dns.CreateRecord(s.ctx, fqdn, value)
	if err != nil {
		return s.remember(err)
	}
	s.track(ChallengeRecord{Domain: domain, FQDN: fqdn, Value: value, ChangeID: changeID})
	return nil
}

// preCheck replaces lego's default DNS lookup loop. Wired in via
// dns01.WrapPreCheck, which lego invokes only after every Present of the
// order has run. It drains the pending change ids in one pass, so the
// record creates of an order all land before the first propagation wait.
// The change status is authoritative, so once the waits succeed the record
// is reported visible without a second lookup.
func (s *dnsSolver) preCheck(_, _, _ string, _ dns01.PreCheckFunc) (bool, error) {
	if err := s.awaitPropagation(s.ctx); err != nil {
		return false, err
	}
	return true, nil
}

// awaitPropagation waits on every change id recorded since the last call.
// Idempotent; change ids are dropped from the pending set once claimed,
// so repeated pre-checks do not wait twice.
func (s *dnsSolver) awaitPropagation(ctx context.Context) error {
	s.mu.Lock()
	pending := s.pendingChanges
	s.pendingChanges = nil
	s.mu.Unlock()

	for _, changeID := range pending {
		if err := s.dns.WaitForPropagation(ctx, changeID); err != nil {
			return s.remember(err)
		}
	}
	return nil
}

// CleanUp removes the TXT record for domain. Called by lego after the
// authorization reached a final state, valid or not.
func (s *dnsSolver) CleanUp(domain, token, keyAuth string) error {
	fqdn, value := dns01.GetRecord(domain, keyAuth)
	if err := s.dns.DeleteRecord(s.ctx, fqdn, value); err != nil {
		return s.remember(err)
	}
	s.forget(fqdn, value)
	return nil
}

// Timeout implements lego's challenge.ProviderTimeout, bounding its own
// propagation pre-check loop.
func (s *dnsSolver) Timeout() (timeout, interval time.Duration) {
	return s.timeout, s.interval
}

// CleanupOutstanding deletes every record lego did not clean up itself.
// Safe to call multiple times; successfully removed records are dropped
// from the tracked set.
func (s *dnsSolver) CleanupOutstanding(ctx context.Context) error {
	s.mu.Lock()
	pending := make([]ChallengeRecord, len(s.records))
	copy(pending, s.records)
	s.mu.Unlock()

	var errs []error
	for _, rec := range pending {
		if err := s.dns.DeleteRecord(ctx, rec.FQDN, rec.Value); err != nil {
			errs = append(errs, err)
			continue
		}
		s.forget(rec.FQDN, rec.Value)
	}
	return errors.Join(errs...)
}

// Outstanding returns the records that have been created but not yet
// cleaned up.
func (s *dnsSolver) Outstanding() []ChallengeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChallengeRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Err returns the first DNS-side failure observed during the order, used
// to classify lego's aggregated obtain error.
func (s *dnsSolver) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *dnsSolver) track(rec ChallengeRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	s.pendingChanges = append(s.pendingChanges, rec.ChangeID)
}

func (s *dnsSolver) forget(fqdn, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, rec := range s.records {
		if rec.FQDN == fqdn && rec.Value == value {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return
		}
	}
}

func (s *dnsSolver) remember(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastErr == nil {
		s.lastErr = err
	}
	return err
}
