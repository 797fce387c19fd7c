package route53

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/aws/smithy-go"
)

// Domain-specific errors for the Route 53 adapter, checkable via errors.Is.
var (
	ErrZoneNotFound = errors.New("hosted zone not found")
	ErrThrottled    = errors.New("route53 request throttled")
)

// classifyError converts Route 53 errors to stable adapter errors so the
// orchestrator can tell configuration mistakes from transient throttling.
func classifyError(err error, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", operation, err)
	}

	var noZone *types.NoSuchHostedZone
	if errors.As(err, &noZone) {
		return fmt.Errorf("%w: %s", ErrZoneNotFound, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "Throttling", "PriorRequestNotComplete":
			return fmt.Errorf("%w: %s operation", ErrThrottled, operation)
		case "NoSuchHostedZone":
			return fmt.Errorf("%w: %s", ErrZoneNotFound, err)
		default:
			return fmt.Errorf("%s operation failed (code: %s): %w", operation, apiErr.ErrorCode(), err)
		}
	}

	return fmt.Errorf("%s operation failed: %w", operation, err)
}
