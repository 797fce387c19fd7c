package renewal

import (
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"time"
)

// DomainSet is an ordered list of domain names covered by one certificate.
// The first entry is the subject (primary) name; the remainder become
// subject alternative names. Matching against registry records is
// order-insensitive, but the order is preserved on the issued certificate.
type DomainSet []string

// Primary returns the subject name, or "" for an empty set.
func (ds DomainSet) Primary() string {
	if len(ds) == 0 {
		return ""
	}
	return ds[0]
}

// Validate checks that the set is non-empty, free of duplicates, and that
// every entry is a syntactically valid DNS name. A leading "*." wildcard
// label is accepted.
func (ds DomainSet) Validate() error {
	if len(ds) == 0 {
		return fmt.Errorf("%w: empty domain set", ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(ds))
	for _, d := range ds {
		key := strings.ToLower(d)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate domain %q", ErrInvalidInput, d)
		}
		seen[key] = struct{}{}
		if !isDNSName(d) {
			return fmt.Errorf("%w: invalid domain %q", ErrInvalidInput, d)
		}
	}
	return nil
}

// Equal reports whether both sets cover the same domains, ignoring order
// and letter case.
func (ds DomainSet) Equal(other DomainSet) bool {
	if len(ds) != len(other) {
		return false
	}
	a := normalized(ds)
	b := normalized(other)
	return slices.Equal(a, b)
}

// Contains reports whether the set covers domain, ignoring letter case
// and a trailing dot.
func (ds DomainSet) Contains(domain string) bool {
	want := strings.ToLower(strings.TrimSuffix(domain, "."))
	for _, d := range ds {
		if strings.ToLower(strings.TrimSuffix(d, ".")) == want {
			return true
		}
	}
	return false
}

func normalized(ds DomainSet) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = strings.ToLower(strings.TrimSuffix(d, "."))
	}
	slices.Sort(out)
	return out
}

// isDNSName validates one domain name: total length up to 253 characters,
// labels of 1-63 characters, letters/digits/hyphens with no leading or
// trailing hyphen. A single leading wildcard label is allowed.
func isDNSName(name string) bool {
	name = strings.TrimSuffix(name, ".")
	name = strings.TrimPrefix(name, "*.")
	if name == "" || len(name) > 253 {
		return false
	}
	labels := strings.Split(name, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if len(label) == 0 || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for i := 0; i < len(label); i++ {
			c := label[i]
			switch {
			case c >= 'a' && c <= 'z':
			case c >= 'A' && c <= 'Z':
			case c >= '0' && c <= '9':
			case c == '-':
			default:
				return false
			}
		}
	}
	return true
}

// Record is a certificate known to the registry. Records are immutable:
// renewal creates a new record instead of mutating an existing one.
type Record struct {
	ARN      string
	Domains  DomainSet
	NotAfter time.Time
	ChainPEM []byte // full PEM chain as stored by the registry
}

// Descriptor identifies a usable certificate to the caller. It never
// carries private key material.
type Descriptor struct {
	ARN      string    `json:"arn"`
	Domains  DomainSet `json:"domains"`
	NotAfter time.Time `json:"not_after"`
}

// Bundle is the output of a completed issuance: the leaf certificate with
// its chain, the issuer certificate, and the private key, all PEM encoded.
type Bundle struct {
	CertificatePEM []byte
	IssuerPEM      []byte
	PrivateKeyPEM  []byte
	NotAfter       time.Time
}

// DefaultRenewalThreshold is how long before expiry a certificate is
// considered due for renewal.
const DefaultRenewalThreshold = 30 * 24 * time.Hour

// Request describes one orchestration run.
type Request struct {
	// Name namespaces the secret store entries and the execution guard slot.
	Name string

	// Domains is the ordered domain set for the certificate.
	Domains DomainSet

	// Email is the ACME account contact address.
	Email string

	// Staging selects the non-production ACME endpoint. Staging and
	// production certificates are kept apart in the registry.
	Staging bool

	// Threshold overrides DefaultRenewalThreshold when positive.
	Threshold time.Duration
}

// Validate fails fast on malformed input before any side effect happens.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: empty certificate name", ErrInvalidInput)
	}
	if err := r.Domains.Validate(); err != nil {
		return err
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return fmt.Errorf("%w: invalid contact email %q", ErrInvalidInput, r.Email)
	}
	if r.Threshold < 0 {
		return fmt.Errorf("%w: negative renewal threshold", ErrInvalidInput)
	}
	return nil
}

func (r Request) threshold() time.Duration {
	if r.Threshold > 0 {
		return r.Threshold
	}
	return DefaultRenewalThreshold
}
