package logger

import (
	"log/slog"
	"runtime"
	"strconv"
	"time"
)

// Attribute helpers use the empty Attr pattern for nil safety.
// This allows calls like log.Info("msg", logger.Error(err)) without explicit nil checks,
// following the principle of making zero values useful.

// Group creates a group of attributes under a single key.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// ============================================================================
// Error Handling
// ============================================================================

// Errors groups multiple non-nil errors under the key "errors".
// Uses index-based keys to preserve error order. Returns empty Attr for all nil errors.
func Errors(errs ...error) slog.Attr {
	count := 0
	for _, err := range errs {
		if err != nil {
			count++
		}
	}
	if count == 0 {
		return slog.Attr{}
	}

	as := make([]slog.Attr, 0, count)
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// Returns empty Attr for nil errors, enabling safe usage without nil checks.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// ============================================================================
// Performance and Timing
// ============================================================================

// Duration creates an attribute for a duration.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Elapsed calculates and logs the duration since the start time.
func Elapsed(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}

// ============================================================================
// Certificates and Renewal
// ============================================================================

// CertName creates an attribute for certificate names.
func CertName(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("cert_name", name)
}

// Domains creates an attribute for the domain set on a certificate.
func Domains(domains []string) slog.Attr {
	if len(domains) == 0 {
		return slog.Attr{}
	}
	return slog.Any("domains", domains)
}

// ARN creates an attribute for AWS resource identifiers.
func ARN(arn string) slog.Attr {
	if arn == "" {
		return slog.Attr{}
	}
	return slog.String("arn", arn)
}

// NotAfter creates an attribute for certificate expiry timestamps.
func NotAfter(t time.Time) slog.Attr {
	if t.IsZero() {
		return slog.Attr{}
	}
	return slog.Time("not_after", t)
}

// State creates an attribute for renewal decision states.
func State(state string) slog.Attr {
	if state == "" {
		return slog.Attr{}
	}
	return slog.String("state", state)
}

// Stage creates an attribute for the renewal stage a failure occurred in.
func Stage(stage string) slog.Attr {
	if stage == "" {
		return slog.Attr{}
	}
	return slog.String("stage", stage)
}

// ============================================================================
// DNS
// ============================================================================

// Zone creates an attribute for hosted zone identifiers.
func Zone(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("zone_id", id)
}

// FQDN creates an attribute for challenge record names.
func FQDN(fqdn string) slog.Attr {
	if fqdn == "" {
		return slog.Attr{}
	}
	return slog.String("fqdn", fqdn)
}

// ChangeID creates an attribute for DNS change batch identifiers.
func ChangeID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("change_id", id)
}

// ============================================================================
// Generic Metadata
// ============================================================================

// Component creates an attribute for component names.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event creates an attribute for event names.
func Event(name string) slog.Attr {
	return slog.String("event", name)
}

// Count creates a generic counter attribute.
func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

// Key creates a generic key-value attribute.
func Key(key string, value any) slog.Attr {
	if value == nil {
		return slog.Attr{}
	}
	return slog.Any(key, value)
}

// RetryCount creates an attribute for retry attempts.
func RetryCount(count int) slog.Attr {
	return slog.Int("retry_count", count)
}

// ============================================================================
// Debugging
// ============================================================================

// Stack captures and returns the current stack trace.
func Stack() slog.Attr {
	const size = 64 << 10
	buf := make([]byte, size)
	buf = buf[:runtime.Stack(buf, false)]
	return slog.String("stack", string(buf))
}
