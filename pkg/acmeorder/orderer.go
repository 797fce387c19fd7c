package acmeorder

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-acme/lego/v4/certcrypto"
	"github.com/go-acme/lego/v4/certificate"
	"github.com/go-acme/lego/v4/challenge"
	"github.com/go-acme/lego/v4/challenge/dns01"
	"github.com/go-acme/lego/v4/lego"
	"github.com/go-acme/lego/v4/registration"

	"github.com/dmitrymomot/certkeeper/core/renewal"
)

// Option configures an Orderer.
type Option func(*Orderer) error

// WithDirectoryURL overrides the ACME directory for both staging and
// production runs. Useful against pebble or another private CA.
func WithDirectoryURL(url string) Option {
	return func(o *Orderer) error {
		o.directoryURL = url
		return nil
	}
}

// WithKeyType overrides the key type for issued certificates (default EC256).
func WithKeyType(kt certcrypto.KeyType) Option {
	return func(o *Orderer) error {
		o.keyType = kt
		return nil
	}
}

// WithAccountKey supplies a persistent ACME account key instead of
// generating an ephemeral one per order.
func WithAccountKey(key crypto.PrivateKey) Option {
	return func(o *Orderer) error {
		if key == nil {
			return errors.New("acmeorder: nil account key")
		}
		o.accountKeyMaker = func() (crypto.PrivateKey, error) { return key, nil }
		return nil
	}
}

// WithDNSTimeout bounds the DNS propagation wait per challenge record.
func WithDNSTimeout(d time.Duration) Option {
	return func(o *Orderer) error {
		if d <= 0 {
			return errors.New("acmeorder: non-positive dns timeout")
		}
		o.dnsTimeout = d
		return nil
	}
}

// WithLogger sets the logger for order progress.
func WithLogger(log *slog.Logger) Option {
	return func(o *Orderer) error {
		if log != nil {
			o.log = log
		}
		return nil
	}
}

// Compile-time check that Orderer satisfies the engine's issuer contract.
var _ renewal.Issuer = (*Orderer)(nil)

// Orderer drives DNS-01 certificate orders against an ACME authority.
type Orderer struct {
	dns           ChallengeDNS
	directoryURL  string
	keyType       certcrypto.KeyType
	dnsTimeout    time.Duration
	log           *slog.Logger
	clientFactory func(*lego.Config) (acmeClient, error)

	accountKeyMaker func() (crypto.PrivateKey, error)
}

// NewOrderer constructs an Orderer delegating challenge fulfillment to dns.
func NewOrderer(dns ChallengeDNS, opts ...Option) (*Orderer, error) {
	if dns == nil {
		return nil, errors.New("acmeorder: nil challenge dns")
	}

	o := &Orderer{
		dns:           dns,
		keyType:       certcrypto.EC256,
		dnsTimeout:    2 * time.Minute,
		log:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		clientFactory: defaultClientFactory,
		accountKeyMaker: func() (crypto.PrivateKey, error) {
			return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		},
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Issue runs the full ownership-proof and signing workflow for domains and
// returns the signed chain plus the generated private key. Any validation
// failure aborts the whole order; no partial certificates are produced.
// Every challenge record created during the order is removed before Issue
// returns, on failure paths included.
func (o *Orderer) Issue(ctx context.Context, domains renewal.DomainSet, email string, staging bool) (*renewal.Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	accountKey, err := o.accountKeyMaker()
	if err != nil {
		return nil, fmt.Errorf("account key: %w", err)
	}

	user := &accountUser{email: email, key: accountKey}

	cfg := lego.NewConfig(user)
	cfg.CADirURL = o.directory(staging)
	cfg.Certificate.KeyType = o.keyType

	client, err := o.clientFactory(cfg)
	if err != nil {
		return nil, fmt.Errorf("create acme client: %w", err)
	}

	solver := newDNSSolver(ctx, o.dns, o.dnsTimeout)
	if err := client.SetDNS01Provider(solver,
		dns01.AddDNSTimeout(o.dnsTimeout),
		dns01.WrapPreCheck(solver.preCheck),
	); err != nil {
		return nil, fmt.Errorf("configure dns-01 provider: %w", err)
	}

	reg, err := client.Register(registration.RegisterOptions{TermsOfServiceAgreed: true})
	if err != nil {
		return nil, fmt.Errorf("register acme account: %w", err)
	}
	user.registration = reg

	res, obtainErr := client.Obtain(certificate.ObtainRequest{
		Domains: domains,
		Bundle:  true,
	})

	// lego cleans up the challenges it presented; sweep whatever is left
	// so no TXT record outlives this order.
	if err := solver.CleanupOutstanding(ctx); err != nil {
		o.log.WarnContext(ctx, "failed to remove leftover challenge records", "error", err)
	}

	if obtainErr != nil {
		return nil, classifyObtainError(obtainErr, solver.Err())
	}

	notAfter, err := leafNotAfter(res.Certificate)
	if err != nil {
		return nil, errors.Join(renewal.ErrPartialIssuance, fmt.Errorf("parse issued certificate: %w", err))
	}

	o.log.InfoContext(ctx, "certificate obtained",
		"domains", []string(domains), "not_after", notAfter, "staging", staging)

	return &renewal.Bundle{
		CertificatePEM: res.Certificate,
		IssuerPEM:      res.IssuerCertificate,
		PrivateKeyPEM:  res.PrivateKey,
		NotAfter:       notAfter,
	}, nil
}

func (o *Orderer) directory(staging bool) string {
	if o.directoryURL != "" {
		return o.directoryURL
	}
	if staging {
		return lego.LEDirectoryStaging
	}
	return lego.LEDirectoryProduction
}

// leafNotAfter extracts the expiry of the first certificate in a PEM chain.
func leafNotAfter(chainPEM []byte) (time.Time, error) {
	block, _ := pem.Decode(chainPEM)
	if block == nil {
		return time.Time{}, errors.New("no PEM block in certificate chain")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return time.Time{}, err
	}
	return cert.NotAfter, nil
}

// acmeClient is the part of lego's surface the orderer needs; an interface
// so tests can stub the whole ACME exchange.
type acmeClient interface {
	Register(options registration.RegisterOptions) (*registration.Resource, error)
	SetDNS01Provider(provider challenge.Provider, opts ...dns01.ChallengeOption) error
	Obtain(request certificate.ObtainRequest) (*certificate.Resource, error)
}

func defaultClientFactory(cfg *lego.Config) (acmeClient, error) {
	client, err := lego.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &legoClientAdapter{client: client}, nil
}

type legoClientAdapter struct {
	client *lego.Client
}

func (l *legoClientAdapter) Register(options registration.RegisterOptions) (*registration.Resource, error) {
	return l.client.Registration.Register(options)
}

func (l *legoClientAdapter) SetDNS01Provider(provider challenge.Provider, opts ...dns01.ChallengeOption) error {
	return l.client.Challenge.SetDNS01Provider(provider, opts...)
}

func (l *legoClientAdapter) Obtain(request certificate.ObtainRequest) (*certificate.Resource, error) {
	return l.client.Certificate.Obtain(request)
}

type accountUser struct {
	email        string
	registration *registration.Resource
	key          crypto.PrivateKey
}

func (u *accountUser) GetEmail() string                        { return u.email }
func (u *accountUser) GetRegistration() *registration.Resource { return u.registration }
func (u *accountUser) GetPrivateKey() crypto.PrivateKey        { return u.key }
