package renewal

import "time"

// State is the derived renewal state of a certificate. It is computed on
// every invocation and never persisted.
type State string

const (
	// StateAbsent means no matching record exists in the registry.
	StateAbsent State = "absent"

	// StateValid means the record has more than the renewal threshold of
	// validity remaining. The only steady state.
	StateValid State = "valid"

	// StateExpiringSoon means the record expires within the threshold.
	StateExpiringSoon State = "expiring_soon"

	// StateExpired means the record's not-valid-after is in the past.
	StateExpired State = "expired"
)

// NeedsIssuance reports whether the state triggers the issuance workflow.
// ExpiringSoon and Expired are treated identically.
func (s State) NeedsIssuance() bool {
	return s != StateValid
}

// StateOf computes the renewal state of rec relative to now. A nil record
// maps to StateAbsent.
func StateOf(rec *Record, now time.Time, threshold time.Duration) State {
	switch {
	case rec == nil:
		return StateAbsent
	case !rec.NotAfter.After(now):
		return StateExpired
	case rec.NotAfter.Sub(now) < threshold:
		return StateExpiringSoon
	default:
		return StateValid
	}
}
