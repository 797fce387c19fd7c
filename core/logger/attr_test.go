package logger_test

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/certkeeper/core/logger"
)

func TestNilSafeAttrs(t *testing.T) {
	t.Parallel()

	empty := slog.Attr{}

	assert.Equal(t, empty, logger.Error(nil))
	assert.Equal(t, empty, logger.Errors(nil, nil))
	assert.Equal(t, empty, logger.CertName(""))
	assert.Equal(t, empty, logger.ARN(""))
	assert.Equal(t, empty, logger.Domains(nil))
	assert.Equal(t, empty, logger.NotAfter(time.Time{}))
	assert.Equal(t, empty, logger.State(""))
	assert.Equal(t, empty, logger.Stage(""))
	assert.Equal(t, empty, logger.Zone(""))
	assert.Equal(t, empty, logger.FQDN(""))
	assert.Equal(t, empty, logger.ChangeID(""))
	assert.Equal(t, empty, logger.Key("k", nil))
}

func TestAttrKeys(t *testing.T) {
	t.Parallel()

	err := errors.New("boom")
	assert.Equal(t, "error", logger.Error(err).Key)
	assert.Equal(t, "cert_name", logger.CertName("api-example-com").Key)
	assert.Equal(t, "arn", logger.ARN("arn:aws:acm:::certificate/x").Key)
	assert.Equal(t, "domains", logger.Domains([]string{"example.com"}).Key)
	assert.Equal(t, "zone_id", logger.Zone("Z123").Key)
	assert.Equal(t, "state", logger.State("valid").Key)
	assert.Equal(t, "retry_count", logger.RetryCount(2).Key)
}

func TestErrorsGroupsInOrder(t *testing.T) {
	t.Parallel()

	a := errors.New("a")
	b := errors.New("b")

	attr := logger.Errors(a, nil, b)
	assert.Equal(t, "errors", attr.Key)

	group := attr.Value.Group()
	assert.Len(t, group, 2)
	assert.Equal(t, "0", group[0].Key)
	assert.Equal(t, "2", group[1].Key)
}
