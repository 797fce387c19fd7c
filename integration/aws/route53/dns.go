package route53

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsroute53 "github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/cenkalti/backoff/v4"

	"github.com/dmitrymomot/certkeeper/core/renewal"
	"github.com/dmitrymomot/certkeeper/pkg/acmeorder"
)

// Compile-time check that ChallengeDNS satisfies the issuance contract.
var _ acmeorder.ChallengeDNS = (*ChallengeDNS)(nil)

// Client is the part of the Route 53 API the adapter uses. An interface so
// tests can supply a mock.
type Client interface {
	ChangeResourceRecordSets(ctx context.Context, params *awsroute53.ChangeResourceRecordSetsInput, optFns ...func(*awsroute53.Options)) (*awsroute53.ChangeResourceRecordSetsOutput, error)
	GetChange(ctx context.Context, params *awsroute53.GetChangeInput, optFns ...func(*awsroute53.Options)) (*awsroute53.GetChangeOutput, error)
}

// Config contains configuration for the Route 53 adapter.
type Config struct {
	HostedZoneID string `env:"HOSTED_ZONE_ID,required"`
	Region       string `env:"AWS_REGION" envDefault:"us-east-1"`
	AccessKeyID  string `env:"AWS_ACCESS_KEY_ID"`
	SecretKey    string `env:"AWS_SECRET_ACCESS_KEY"`

	// RecordTTL is the TTL of challenge TXT records in seconds.
	RecordTTL int64 `env:"CHALLENGE_RECORD_TTL" envDefault:"60"`

	// PropagationTimeout bounds WaitForPropagation.
	PropagationTimeout time.Duration `env:"DNS_PROPAGATION_TIMEOUT" envDefault:"2m"`

	// PollInterval is the initial interval between change status polls.
	PollInterval time.Duration `env:"DNS_POLL_INTERVAL" envDefault:"5s"`
}

// Option configures the adapter.
type Option func(*ChallengeDNS)

// WithClient sets a pre-configured Route 53 client, primarily for tests.
func WithClient(client Client) Option {
	return func(d *ChallengeDNS) {
		d.client = client
	}
}

// ChallengeDNS manages challenge TXT records in one hosted zone.
type ChallengeDNS struct {
	client             Client
	zoneID             string
	recordTTL          int64
	propagationTimeout time.Duration
	pollInterval       time.Duration
}

// New creates a Route 53 challenge DNS adapter.
func New(ctx context.Context, cfg Config, opts ...Option) (*ChallengeDNS, error) {
	if cfg.HostedZoneID == "" {
		return nil, errors.New("route53: hosted zone id is required")
	}

	d := &ChallengeDNS{
		zoneID:             normalizeZoneID(cfg.HostedZoneID),
		recordTTL:          cfg.RecordTTL,
		propagationTimeout: cfg.PropagationTimeout,
		pollInterval:       cfg.PollInterval,
	}
	if d.recordTTL <= 0 {
		d.recordTTL = 60
	}
	if d.propagationTimeout <= 0 {
		d.propagationTimeout = 2 * time.Minute
	}
	if d.pollInterval <= 0 {
		d.pollInterval = 5 * time.Second
	}

	for _, opt := range opts {
		opt(d)
	}
	if d.client == nil {
		awsOptions := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(cfg.Region),
		}
		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			awsOptions = append(awsOptions,
				awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
					cfg.AccessKeyID, cfg.SecretKey, "",
				)),
			)
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOptions...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		d.client = awsroute53.NewFromConfig(awsCfg)
	}

	return d, nil
}

// CreateRecord upserts the challenge TXT record and returns the Route 53
// change id to wait on.
func (d *ChallengeDNS) CreateRecord(ctx context.Context, fqdn, value string) (string, error) {
	out, err := d.client.ChangeResourceRecordSets(ctx, d.changeInput(types.ChangeActionUpsert, fqdn, value))
	if err != nil {
		return "", classifyError(err, "create record")
	}
	if out.ChangeInfo == nil || out.ChangeInfo.Id == nil {
		return "", errors.New("route53: change response without change id")
	}
	return aws.ToString(out.ChangeInfo.Id), nil
}

// errPropagationPending marks a poll round that found the change not yet in
// sync. Internal retry signal, never returned to callers.
var errPropagationPending = errors.New("route53: change still pending")

// WaitForPropagation polls the change status until Route 53 reports INSYNC.
// The wait is bounded by the configured propagation timeout; exceeding it
// is fatal for the current run and wraps renewal.ErrChallengeTimeout.
func (d *ChallengeDNS) WaitForPropagation(ctx context.Context, changeID string) error {
	poll := func() error {
		out, err := d.client.GetChange(ctx, &awsroute53.GetChangeInput{
			Id: aws.String(changeID),
		})
		if err != nil {
			return backoff.Permanent(classifyError(err, "get change"))
		}
		if out.ChangeInfo != nil && out.ChangeInfo.Status == types.ChangeStatusInsync {
			return nil
		}
		return errPropagationPending
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = d.pollInterval
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = d.propagationTimeout

	err := backoff.Retry(poll, backoff.WithContext(bo, ctx))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errPropagationPending), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: change %s not in sync after %s", renewal.ErrChallengeTimeout, changeID, d.propagationTimeout)
	default:
		return err
	}
}

// DeleteRecord removes the challenge TXT record. The value must match what
// CreateRecord published, as Route 53 requires an exact record match.
func (d *ChallengeDNS) DeleteRecord(ctx context.Context, fqdn, value string) error {
	_, err := d.client.ChangeResourceRecordSets(ctx, d.changeInput(types.ChangeActionDelete, fqdn, value))
	if err != nil {
		return classifyError(err, "delete record")
	}
	return nil
}

func (d *ChallengeDNS) changeInput(action types.ChangeAction, fqdn, value string) *awsroute53.ChangeResourceRecordSetsInput {
	return &awsroute53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(d.zoneID),
		ChangeBatch: &types.ChangeBatch{
			Changes: []types.Change{
				{
					Action: action,
					ResourceRecordSet: &types.ResourceRecordSet{
						Name: aws.String(fqdn),
						Type: types.RRTypeTxt,
						TTL:  aws.Int64(d.recordTTL),
						ResourceRecords: []types.ResourceRecord{
							// TXT record values must be quoted.
							{Value: aws.String(fmt.Sprintf("%q", value))},
						},
					},
				},
			},
		},
	}
}

// normalizeZoneID strips the /hostedzone/ prefix some APIs return.
func normalizeZoneID(zoneID string) string {
	return strings.TrimPrefix(zoneID, "/hostedzone/")
}
