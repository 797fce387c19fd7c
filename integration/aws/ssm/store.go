package ssm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/dmitrymomot/certkeeper/core/renewal"
)

// Compile-time check that Store satisfies the engine's secret contract.
var _ renewal.SecretStore = (*Store)(nil)

// Client captures the subset of the SSM API the store uses.
// It is satisfied by *ssm.Client and by mocks in tests.
type Client interface {
	GetParameter(ctx context.Context, params *awsssm.GetParameterInput, optFns ...func(*awsssm.Options)) (*awsssm.GetParameterOutput, error)
	PutParameter(ctx context.Context, params *awsssm.PutParameterInput, optFns ...func(*awsssm.Options)) (*awsssm.PutParameterOutput, error)
}

// Config contains settings for the parameter store.
type Config struct {
	Prefix      string `env:"SSM_KEY_PREFIX" envDefault:"/certkeeper"`
	KMSKeyID    string `env:"SSM_KMS_KEY_ID"`
	Region      string `env:"AWS_REGION" envDefault:"us-east-1"`
	AccessKeyID string `env:"AWS_ACCESS_KEY_ID"`
	SecretKey   string `env:"AWS_SECRET_ACCESS_KEY"`
}

// Store implements private key storage on top of SSM Parameter Store.
type Store struct {
	client   Client
	prefix   string
	kmsKeyID string
}

// Option configures the Store.
type Option func(*Store)

// WithClient replaces the AWS SDK client, primarily for testing.
func WithClient(client Client) Option {
	return func(s *Store) {
		s.client = client
	}
}

// New creates a Parameter Store backed secret store.
func New(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{
		prefix:   normalizePrefix(cfg.Prefix),
		kmsKeyID: cfg.KMSKeyID,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
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

		s.client = awsssm.NewFromConfig(awsCfg)
	}

	return s, nil
}

// Get returns the decrypted private key stored for name. Returns
// renewal.ErrSecretNotFound when no parameter exists.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	out, err := s.client.GetParameter(ctx, &awsssm.GetParameterInput{
		Name:           aws.String(s.parameterName(name)),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, classifyError(err, name)
	}

	if out.Parameter == nil || out.Parameter.Value == nil {
		return nil, fmt.Errorf("parameter %q: %w", name, renewal.ErrSecretNotFound)
	}
	return []byte(aws.ToString(out.Parameter.Value)), nil
}

// Put stores the private key for name as an encrypted parameter,
// overwriting any previous value.
func (s *Store) Put(ctx context.Context, name string, value []byte) error {
	input := &awsssm.PutParameterInput{
		Name:        aws.String(s.parameterName(name)),
		Value:       aws.String(string(value)),
		Type:        types.ParameterTypeSecureString,
		Overwrite:   aws.Bool(true),
		Description: aws.String(fmt.Sprintf("Private key for certificate %s", name)),
	}
	if s.kmsKeyID != "" {
		input.KeyId = aws.String(s.kmsKeyID)
	}

	if _, err := s.client.PutParameter(ctx, input); err != nil {
		return classifyError(err, name)
	}
	return nil
}

func (s *Store) parameterName(name string) string {
	return s.prefix + "/" + name + "/private-key"
}

// normalizePrefix ensures a single leading slash and no trailing slash so
// parameter names stay stable however the prefix was configured.
func normalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return "/certkeeper"
	}
	return "/" + prefix
}
