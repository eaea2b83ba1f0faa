package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/cloo-solutions/mpedge/internal/domain"
)

// ErrEmptyAnswer is returned when a provider responds without usable text.
var ErrEmptyAnswer = errors.New("provider returned an empty answer")

// ProviderError carries the failure class of one provider attempt.
type ProviderError struct {
	Kind       domain.FailureKind
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError wraps err with an explicit classification.
func NewProviderError(kind domain.FailureKind, status int, err error) *ProviderError {
	return &ProviderError{Kind: kind, StatusCode: status, Err: err}
}

// KindForStatus maps an HTTP status code to a failure class.
func KindForStatus(status int) domain.FailureKind {
	switch {
	case status == http.StatusTooManyRequests:
		return domain.FailureRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return domain.FailureTimeout
	case status >= 500:
		return domain.FailureUnavailable
	case status == http.StatusUnauthorized || status == http.StatusForbidden || status == http.StatusNotFound:
		return domain.FailureUnavailable
	default:
		return domain.FailureInvalidResponse
	}
}

// Classify assigns a failure class to any error returned by a provider.
// Unrecognized errors count as Unavailable.
func Classify(err error) domain.FailureKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.FailureTimeout
	}
	if errors.Is(err, ErrEmptyAnswer) {
		return domain.FailureInvalidResponse
	}
	return domain.FailureUnavailable
}
