package ssm

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/aws/smithy-go"

	"github.com/dmitrymomot/certkeeper/core/renewal"
)

// Domain-specific errors for the Parameter Store adapter.
var (
	ErrFailedToLoadAWSConfig = errors.New("failed to load AWS config")
	ErrThrottled             = errors.New("ssm request throttled")
)

// classifyError converts SSM errors to stable adapter errors. A missing
// parameter maps to renewal.ErrSecretNotFound.
func classifyError(err error, name string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	var notFound *types.ParameterNotFound
	if errors.As(err, &notFound) {
		return fmt.Errorf("parameter %q: %w", name, renewal.ErrSecretNotFound)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "Throttling", "ThrottlingException":
			return fmt.Errorf("%w: parameter %q", ErrThrottled, name)
		default:
			return fmt.Errorf("ssm request for %q failed (code: %s): %w", name, apiErr.ErrorCode(), err)
		}
	}

	return fmt.Errorf("ssm request for %q failed: %w", name, err)
}
