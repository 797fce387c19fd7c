package acmeorder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-acme/lego/v4/acme"

	"github.com/dmitrymomot/certkeeper/core/renewal"
)

// classifyObtainError maps a failed order to the renewal error taxonomy.
// solverErr is the first DNS-side failure seen during the order; lego
// aggregates per-domain errors into an opaque type, so the solver's own
// record is the reliable signal for propagation timeouts.
func classifyObtainError(obtainErr, solverErr error) error {
	if solverErr != nil && errors.Is(solverErr, renewal.ErrChallengeTimeout) {
		return fmt.Errorf("dns challenge: %w", solverErr)
	}
	if isRateLimited(obtainErr) {
		return fmt.Errorf("%w: %v", renewal.ErrRateLimited, obtainErr)
	}
	return fmt.Errorf("obtain certificate: %w", obtainErr)
}

// isRateLimited detects quota rejections by the issuance authority, either
// through the typed ACME problem document or, since lego's obtain error
// flattens causes into text, by the well-known markers in the message.
func isRateLimited(err error) bool {
	if err == nil {
		return false
	}

	var problem *acme.ProblemDetails
	if errors.As(err, &problem) {
		if strings.Contains(problem.Type, "rateLimited") || problem.HTTPStatus == 429 {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"ratelimited",
		"rate limit",
		"too many certificates",
		"too many requests",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
