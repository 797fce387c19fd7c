package route53_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsroute53 "github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/certkeeper/core/renewal"
	"github.com/dmitrymomot/certkeeper/integration/aws/route53"
)

type mockClient struct {
	mu          sync.Mutex
	changes     []*awsroute53.ChangeResourceRecordSetsInput
	changeErr   error
	getCalls    int
	getStatuses []types.ChangeStatus
	getErr      error
}

func (m *mockClient) ChangeResourceRecordSets(_ context.Context, params *awsroute53.ChangeResourceRecordSetsInput, _ ...func(*awsroute53.Options)) (*awsroute53.ChangeResourceRecordSetsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.changeErr != nil {
		return nil, m.changeErr
	}
	m.changes = append(m.changes, params)
	return &awsroute53.ChangeResourceRecordSetsOutput{
		ChangeInfo: &types.ChangeInfo{
			Id:     aws.String("/change/C123"),
			Status: types.ChangeStatusPending,
		},
	}, nil
}

func (m *mockClient) GetChange(_ context.Context, params *awsroute53.GetChangeInput, _ ...func(*awsroute53.Options)) (*awsroute53.GetChangeOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}

	status := types.ChangeStatusPending
	if m.getCalls < len(m.getStatuses) {
		status = m.getStatuses[m.getCalls]
	}
	m.getCalls++

	return &awsroute53.GetChangeOutput{
		ChangeInfo: &types.ChangeInfo{Id: params.Id, Status: status},
	}, nil
}

func newTestDNS(t *testing.T, client *mockClient, cfg route53.Config) *route53.ChallengeDNS {
	t.Helper()

	if cfg.HostedZoneID == "" {
		cfg.HostedZoneID = "/hostedzone/Z123456"
	}
	dns, err := route53.New(context.Background(), cfg, route53.WithClient(client))
	require.NoError(t, err)
	return dns
}

func TestNewRequiresHostedZone(t *testing.T) {
	t.Parallel()

	_, err := route53.New(context.Background(), route53.Config{}, route53.WithClient(&mockClient{}))
	require.Error(t, err)
}

func TestCreateRecord(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	dns := newTestDNS(t, client, route53.Config{RecordTTL: 120})

	changeID, err := dns.CreateRecord(context.Background(), "_acme-challenge.example.com.", "token-value")
	require.NoError(t, err)
	assert.Equal(t, "/change/C123", changeID)

	require.Len(t, client.changes, 1)
	input := client.changes[0]
	assert.Equal(t, "Z123456", aws.ToString(input.HostedZoneId), "hostedzone prefix must be stripped")

	require.Len(t, input.ChangeBatch.Changes, 1)
	change := input.ChangeBatch.Changes[0]
	assert.Equal(t, types.ChangeActionUpsert, change.Action)
	assert.Equal(t, types.RRTypeTxt, change.ResourceRecordSet.Type)
	assert.Equal(t, "_acme-challenge.example.com.", aws.ToString(change.ResourceRecordSet.Name))
	assert.Equal(t, int64(120), aws.ToInt64(change.ResourceRecordSet.TTL))

	require.Len(t, change.ResourceRecordSet.ResourceRecords, 1)
	assert.Equal(t, `"token-value"`, aws.ToString(change.ResourceRecordSet.ResourceRecords[0].Value),
		"TXT values must be quoted")
}

func TestDeleteRecord(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	dns := newTestDNS(t, client, route53.Config{})

	require.NoError(t, dns.DeleteRecord(context.Background(), "_acme-challenge.example.com.", "token-value"))

	require.Len(t, client.changes, 1)
	change := client.changes[0].ChangeBatch.Changes[0]
	assert.Equal(t, types.ChangeActionDelete, change.Action)
	assert.Equal(t, `"token-value"`, aws.ToString(change.ResourceRecordSet.ResourceRecords[0].Value))
}

func TestWaitForPropagation(t *testing.T) {
	t.Parallel()

	t.Run("returns once the change is in sync", func(t *testing.T) {
		t.Parallel()

		client := &mockClient{
			getStatuses: []types.ChangeStatus{
				types.ChangeStatusPending,
				types.ChangeStatusPending,
				types.ChangeStatusInsync,
			},
		}
		dns := newTestDNS(t, client, route53.Config{
			PollInterval:       time.Millisecond,
			PropagationTimeout: time.Second,
		})

		require.NoError(t, dns.WaitForPropagation(context.Background(), "/change/C123"))
		assert.Equal(t, 3, client.getCalls)
	})

	t.Run("times out with challenge timeout error", func(t *testing.T) {
		t.Parallel()

		client := &mockClient{} // stays pending forever
		dns := newTestDNS(t, client, route53.Config{
			PollInterval:       time.Millisecond,
			PropagationTimeout: 20 * time.Millisecond,
		})

		err := dns.WaitForPropagation(context.Background(), "/change/C123")
		require.Error(t, err)
		assert.ErrorIs(t, err, renewal.ErrChallengeTimeout)
	})

	t.Run("cancelled context maps to challenge timeout", func(t *testing.T) {
		t.Parallel()

		client := &mockClient{}
		dns := newTestDNS(t, client, route53.Config{
			PollInterval:       10 * time.Millisecond,
			PropagationTimeout: time.Minute,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Millisecond)
		defer cancel()

		err := dns.WaitForPropagation(ctx, "/change/C123")
		assert.ErrorIs(t, err, renewal.ErrChallengeTimeout)
	})

	t.Run("api error is fatal immediately", func(t *testing.T) {
		t.Parallel()

		client := &mockClient{getErr: &types.NoSuchChange{Message: aws.String("no such change")}}
		dns := newTestDNS(t, client, route53.Config{
			PollInterval:       time.Millisecond,
			PropagationTimeout: time.Second,
		})

		err := dns.WaitForPropagation(context.Background(), "/change/C404")
		require.Error(t, err)
		assert.NotErrorIs(t, err, renewal.ErrChallengeTimeout)
	})
}

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	t.Run("missing zone", func(t *testing.T) {
		t.Parallel()

		client := &mockClient{changeErr: &types.NoSuchHostedZone{Message: aws.String("nope")}}
		dns := newTestDNS(t, client, route53.Config{})

		_, err := dns.CreateRecord(context.Background(), "_acme-challenge.example.com.", "v")
		assert.ErrorIs(t, err, route53.ErrZoneNotFound)
	})

	t.Run("throttling", func(t *testing.T) {
		t.Parallel()

		client := &mockClient{changeErr: &smithy.GenericAPIError{Code: "Throttling", Message: "slow down"}}
		dns := newTestDNS(t, client, route53.Config{})

		_, err := dns.CreateRecord(context.Background(), "_acme-challenge.example.com.", "v")
		assert.ErrorIs(t, err, route53.ErrThrottled)
	})
}
