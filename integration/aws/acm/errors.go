package acm

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/acm/types"
	"github.com/aws/smithy-go"

	"github.com/dmitrymomot/certkeeper/core/renewal"
)

// Domain-specific errors for the ACM adapter, checkable via errors.Is.
var (
	ErrFailedToLoadAWSConfig = errors.New("failed to load AWS config")
	ErrInvalidCertificatePEM = errors.New("invalid certificate PEM")
	ErrThrottled             = errors.New("acm request throttled")
	ErrQuotaExceeded         = errors.New("acm certificate quota exceeded")
)

// classifyError converts ACM errors to stable adapter errors so callers can
// tell a missing certificate from throttling or an exhausted import quota.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %s", renewal.ErrRecordNotFound, err)
	}

	var limit *types.LimitExceededException
	if errors.As(err, &limit) {
		return fmt.Errorf("%w: %s", ErrQuotaExceeded, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "Throttling", "ThrottlingException", "RequestLimitExceeded":
			return fmt.Errorf("%w: %s", ErrThrottled, err)
		default:
			return fmt.Errorf("acm request failed (code: %s): %w", apiErr.ErrorCode(), err)
		}
	}

	return fmt.Errorf("acm request failed: %w", err)
}
