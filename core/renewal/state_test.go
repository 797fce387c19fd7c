package renewal_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/certkeeper/core/renewal"
)

func TestStateOf(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	threshold := 30 * 24 * time.Hour

	record := func(notAfter time.Time) *renewal.Record {
		return &renewal.Record{ARN: "arn:test", NotAfter: notAfter}
	}

	tests := []struct {
		name string
		rec  *renewal.Record
		want renewal.State
	}{
		{"no record", nil, renewal.StateAbsent},
		{"expires in 60 days", record(now.Add(60 * 24 * time.Hour)), renewal.StateValid},
		{"expires in 10 days", record(now.Add(10 * 24 * time.Hour)), renewal.StateExpiringSoon},
		{"expires exactly at threshold", record(now.Add(threshold)), renewal.StateValid},
		{"expires just inside threshold", record(now.Add(threshold - time.Minute)), renewal.StateExpiringSoon},
		{"expires this second", record(now), renewal.StateExpired},
		{"expired yesterday", record(now.Add(-24 * time.Hour)), renewal.StateExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, renewal.StateOf(tt.rec, now, threshold))
		})
	}
}

func TestStateNeedsIssuance(t *testing.T) {
	t.Parallel()

	assert.False(t, renewal.StateValid.NeedsIssuance())
	assert.True(t, renewal.StateAbsent.NeedsIssuance())
	assert.True(t, renewal.StateExpiringSoon.NeedsIssuance())
	assert.True(t, renewal.StateExpired.NeedsIssuance())
}
