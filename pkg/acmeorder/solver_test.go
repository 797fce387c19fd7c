package acmeorder

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-acme/lego/v4/challenge/dns01"
)

func TestSolverPresentTracksRecords(t *testing.T) {
	dns := &fakeDNS{}
	solver := newDNSSolver(context.Background(), dns, time.Minute)

	if err := solver.Present("example.com", "token", "key-auth"); err != nil {
		t.Fatalf("Present: %v", err)
	}

	fqdn, value := dns01.GetRecord("example.com", "key-auth")
	outstanding := solver.Outstanding()
	if len(outstanding) != 1 {
		t.Fatalf("expected 1 outstanding record, got %d", len(outstanding))
	}
	if outstanding[0].FQDN != fqdn || outstanding[0].Value != value {
		t.Fatalf("unexpected record: %+v", outstanding[0])
	}
	if outstanding[0].ChangeID == "" {
		t.Fatalf("expected record to carry its change id")
	}
}

func TestSolverCreatesAllRecordsBeforeWaiting(t *testing.T) {
	dns := &fakeDNS{}
	solver := newDNSSolver(context.Background(), dns, time.Minute)

	if err := solver.Present("a.example.com", "token", "auth-a"); err != nil {
		t.Fatalf("Present a: %v", err)
	}
	if err := solver.Present("b.example.com", "token", "auth-b"); err != nil {
		t.Fatalf("Present b: %v", err)
	}

	// No propagation wait may run while records are still being created.
	for _, op := range dns.seq {
		if strings.HasPrefix(op, "wait:") {
			t.Fatalf("Present waited for propagation: %v", dns.seq)
		}
	}

	ok, err := solver.preCheck("a.example.com", "", "", nil)
	if err != nil {
		t.Fatalf("preCheck: %v", err)
	}
	if !ok {
		t.Fatalf("expected pre-check to report propagation complete")
	}

	want := []string{
		"create:_acme-challenge.a.example.com.",
		"create:_acme-challenge.b.example.com.",
		"wait:change-1",
		"wait:change-2",
	}
	if len(dns.seq) != len(want) {
		t.Fatalf("unexpected call sequence: %v", dns.seq)
	}
	for i, op := range want {
		if dns.seq[i] != op {
			t.Fatalf("call %d: got %q want %q (sequence %v)", i, dns.seq[i], op, dns.seq)
		}
	}

	// Change ids are claimed once; later pre-checks must not wait again.
	if _, err := solver.preCheck("b.example.com", "", "", nil); err != nil {
		t.Fatalf("second preCheck: %v", err)
	}
	if got := len(dns.seq); got != len(want) {
		t.Fatalf("expected no extra waits, sequence %v", dns.seq)
	}
}

func TestSolverCleanUpForgetsRecords(t *testing.T) {
	dns := &fakeDNS{}
	solver := newDNSSolver(context.Background(), dns, time.Minute)

	if err := solver.Present("example.com", "token", "key-auth"); err != nil {
		t.Fatalf("Present: %v", err)
	}
	if err := solver.CleanUp("example.com", "token", "key-auth"); err != nil {
		t.Fatalf("CleanUp: %v", err)
	}

	if got := len(solver.Outstanding()); got != 0 {
		t.Fatalf("expected no outstanding records, got %d", got)
	}
	if got := len(dns.deleted); got != 1 {
		t.Fatalf("expected 1 deletion, got %d", got)
	}
}

func TestSolverCleanupOutstandingIsIdempotent(t *testing.T) {
	dns := &fakeDNS{}
	solver := newDNSSolver(context.Background(), dns, time.Minute)

	if err := solver.Present("a.example.com", "token", "auth-a"); err != nil {
		t.Fatalf("Present a: %v", err)
	}
	if err := solver.Present("b.example.com", "token", "auth-b"); err != nil {
		t.Fatalf("Present b: %v", err)
	}

	if err := solver.CleanupOutstanding(context.Background()); err != nil {
		t.Fatalf("CleanupOutstanding: %v", err)
	}
	if got := len(dns.deleted); got != 2 {
		t.Fatalf("expected 2 deletions, got %d", got)
	}

	// Second sweep has nothing left to do.
	if err := solver.CleanupOutstanding(context.Background()); err != nil {
		t.Fatalf("second CleanupOutstanding: %v", err)
	}
	if got := len(dns.deleted); got != 2 {
		t.Fatalf("expected no extra deletions, got %d", got)
	}
}

func TestSolverCleanupOutstandingKeepsFailedRecords(t *testing.T) {
	dns := &fakeDNS{}
	solver := newDNSSolver(context.Background(), dns, time.Minute)

	if err := solver.Present("example.com", "token", "key-auth"); err != nil {
		t.Fatalf("Present: %v", err)
	}

	dns.deleteErr = errors.New("route53 unavailable")
	if err := solver.CleanupOutstanding(context.Background()); err == nil {
		t.Fatalf("expected sweep error")
	}
	if got := len(solver.Outstanding()); got != 1 {
		t.Fatalf("failed deletion must keep the record tracked, got %d", got)
	}

	// Record is swept once the backend recovers.
	dns.deleteErr = nil
	if err := solver.CleanupOutstanding(context.Background()); err != nil {
		t.Fatalf("CleanupOutstanding after recovery: %v", err)
	}
	if got := len(solver.Outstanding()); got != 0 {
		t.Fatalf("expected no outstanding records, got %d", got)
	}
}

func TestSolverRemembersFirstError(t *testing.T) {
	dns := &fakeDNS{createErr: errors.New("first failure")}
	solver := newDNSSolver(context.Background(), dns, time.Minute)

	if err := solver.Present("example.com", "token", "key-auth"); err == nil {
		t.Fatalf("expected Present to fail")
	}

	dns.createErr = errors.New("second failure")
	_ = solver.Present("example.com", "token", "key-auth")

	if got := solver.Err(); got == nil || got.Error() != "first failure" {
		t.Fatalf("expected first failure to be remembered, got %v", got)
	}
}

func TestSolverTimeout(t *testing.T) {
	solver := newDNSSolver(context.Background(), &fakeDNS{}, 3*time.Minute)

	timeout, interval := solver.Timeout()
	if timeout != 3*time.Minute {
		t.Fatalf("unexpected timeout: %v", timeout)
	}
	if interval <= 0 {
		t.Fatalf("interval must be positive, got %v", interval)
	}
}
