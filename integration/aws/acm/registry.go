package acm

import (
	"context"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsacm "github.com/aws/aws-sdk-go-v2/service/acm"
	"github.com/aws/aws-sdk-go-v2/service/acm/types"

	"github.com/dmitrymomot/certkeeper/core/renewal"
)

// Compile-time check that Registry satisfies the engine's registry contract.
var _ renewal.Registry = (*Registry)(nil)

// Client captures the subset of the ACM API the registry uses.
// It is satisfied by *acm.Client and by mocks in tests.
type Client interface {
	ListCertificates(ctx context.Context, params *awsacm.ListCertificatesInput, optFns ...func(*awsacm.Options)) (*awsacm.ListCertificatesOutput, error)
	DescribeCertificate(ctx context.Context, params *awsacm.DescribeCertificateInput, optFns ...func(*awsacm.Options)) (*awsacm.DescribeCertificateOutput, error)
	GetCertificate(ctx context.Context, params *awsacm.GetCertificateInput, optFns ...func(*awsacm.Options)) (*awsacm.GetCertificateOutput, error)
	ImportCertificate(ctx context.Context, params *awsacm.ImportCertificateInput, optFns ...func(*awsacm.Options)) (*awsacm.ImportCertificateOutput, error)
}

// Config contains settings for the ACM registry.
type Config struct {
	Region      string `env:"AWS_REGION" envDefault:"us-east-1"`
	AccessKeyID string `env:"AWS_ACCESS_KEY_ID"`
	SecretKey   string `env:"AWS_SECRET_ACCESS_KEY"`
}

// Registry implements certificate lookup and import on top of ACM.
type Registry struct {
	client Client
}

// Option configures the Registry.
type Option func(*Registry)

// WithClient replaces the AWS SDK client, primarily for testing.
func WithClient(client Client) Option {
	return func(r *Registry) {
		r.client = client
	}
}

// New creates an ACM-backed certificate registry.
func New(ctx context.Context, cfg Config, opts ...Option) (*Registry, error) {
	r := &Registry{}

	for _, opt := range opts {
		opt(r)
	}

	if r.client == nil {
		loadOpts := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(cfg.Region),
		}
		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
			))
		}

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, errors.Join(ErrFailedToLoadAWSConfig, err)
		}

		r.client = awsacm.NewFromConfig(awsCfg)
	}

	return r, nil
}

// FindLatest returns the imported ISSUED certificate whose subject
// alternative names equal domains. When several match, the one expiring
// last wins. Returns renewal.ErrRecordNotFound when no certificate matches.
func (r *Registry) FindLatest(ctx context.Context, domains renewal.DomainSet, staging bool) (*renewal.Record, error) {
	var best *renewal.Record

	paginator := awsacm.NewListCertificatesPaginator(r.client, &awsacm.ListCertificatesInput{
		CertificateStatuses: []types.CertificateStatus{types.CertificateStatusIssued},
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classifyError(err)
		}

		for _, summary := range page.CertificateSummaryList {
			if !domains.Contains(aws.ToString(summary.DomainName)) {
				continue
			}

			rec, err := r.matchCertificate(ctx, aws.ToString(summary.CertificateArn), domains, staging)
			if err != nil {
				return nil, err
			}
			if rec == nil {
				continue
			}
			if best == nil || rec.NotAfter.After(best.NotAfter) {
				best = rec
			}
		}
	}

	if best == nil {
		return nil, fmt.Errorf("certificate for %q: %w", domains.Primary(), renewal.ErrRecordNotFound)
	}
	return best, nil
}

// matchCertificate describes the certificate at arn and returns a record
// when it is an imported certificate covering exactly domains on the
// requested endpoint tier, or nil when it does not match.
func (r *Registry) matchCertificate(ctx context.Context, arn string, domains renewal.DomainSet, staging bool) (*renewal.Record, error) {
	out, err := r.client.DescribeCertificate(ctx, &awsacm.DescribeCertificateInput{
		CertificateArn: aws.String(arn),
	})
	if err != nil {
		// The certificate can disappear between the list and describe calls.
		if classified := classifyError(err); !errors.Is(classified, renewal.ErrRecordNotFound) {
			return nil, classified
		}
		return nil, nil
	}

	detail := out.Certificate
	if detail == nil || detail.ImportedAt == nil || detail.NotAfter == nil {
		return nil, nil
	}
	if !renewal.DomainSet(detail.SubjectAlternativeNames).Equal(domains) {
		return nil, nil
	}
	if isStagingIssuer(aws.ToString(detail.Issuer)) != staging {
		return nil, nil
	}

	return r.recordFromDetail(ctx, detail)
}

// recordFromDetail assembles a registry record from certificate metadata,
// fetching the stored PEM chain alongside.
func (r *Registry) recordFromDetail(ctx context.Context, detail *types.CertificateDetail) (*renewal.Record, error) {
	chain, err := r.client.GetCertificate(ctx, &awsacm.GetCertificateInput{
		CertificateArn: detail.CertificateArn,
	})
	if err != nil {
		return nil, classifyError(err)
	}

	pemChain := aws.ToString(chain.Certificate)
	if extra := aws.ToString(chain.CertificateChain); extra != "" {
		pemChain = pemChain + "\n" + extra
	}

	return &renewal.Record{
		ARN:      aws.ToString(detail.CertificateArn),
		Domains:  renewal.DomainSet(detail.SubjectAlternativeNames),
		NotAfter: *detail.NotAfter,
		ChainPEM: []byte(pemChain),
	}, nil
}

// Describe returns the record stored at arn, chain included. Returns
// renewal.ErrRecordNotFound for an unknown ARN.
func (r *Registry) Describe(ctx context.Context, arn string) (*renewal.Record, error) {
	out, err := r.client.DescribeCertificate(ctx, &awsacm.DescribeCertificateInput{
		CertificateArn: aws.String(arn),
	})
	if err != nil {
		return nil, classifyError(err)
	}

	detail := out.Certificate
	if detail == nil || detail.NotAfter == nil {
		return nil, fmt.Errorf("certificate %s: %w", arn, renewal.ErrRecordNotFound)
	}

	return r.recordFromDetail(ctx, detail)
}

// Import stores a freshly issued certificate bundle in ACM and returns the
// new certificate's ARN. The leaf is split from the bundled chain because
// ACM rejects imports whose Certificate field carries more than one block.
func (r *Registry) Import(ctx context.Context, name string, bundle *renewal.Bundle) (string, error) {
	leaf, chain, err := splitBundle(bundle)
	if err != nil {
		return "", err
	}

	input := &awsacm.ImportCertificateInput{
		Certificate: leaf,
		PrivateKey:  bundle.PrivateKeyPEM,
		Tags: []types.Tag{
			{Key: aws.String("Name"), Value: aws.String(name)},
			{Key: aws.String("ManagedBy"), Value: aws.String("certkeeper")},
		},
	}
	if len(chain) > 0 {
		input.CertificateChain = chain
	}

	out, err := r.client.ImportCertificate(ctx, input)
	if err != nil {
		return "", classifyError(err)
	}

	return aws.ToString(out.CertificateArn), nil
}

// splitBundle separates the leaf certificate from the rest of the chain.
// CertificatePEM usually holds the full bundle; when it carries only the
// leaf, the chain comes from IssuerPEM.
func splitBundle(bundle *renewal.Bundle) (leaf, chain []byte, err error) {
	block, rest := pem.Decode(bundle.CertificatePEM)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, nil, ErrInvalidCertificatePEM
	}

	leaf = pem.EncodeToMemory(block)
	rest = trimPEM(rest)
	if len(rest) > 0 {
		return leaf, rest, nil
	}
	return leaf, trimPEM(bundle.IssuerPEM), nil
}

func trimPEM(b []byte) []byte {
	return []byte(strings.TrimSpace(string(b)))
}

// isStagingIssuer reports whether the issuer name belongs to a staging CA.
// Let's Encrypt staging issuers carry "Fake" or "STAGING" in their names.
func isStagingIssuer(issuer string) bool {
	lower := strings.ToLower(issuer)
	return strings.Contains(lower, "fake") || strings.Contains(lower, "staging")
}
