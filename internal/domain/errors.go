package domain

import (
	"fmt"
	"strings"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches domain errors by code and message so that wrapped copies created
// with NewDomainErrorWithCause still compare equal to the sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithCause returns a copy of a sentinel error carrying the given cause.
func (e *DomainError) WithCause(err error) *DomainError {
	return NewDomainErrorWithCause(e.Code, e.Message, err)
}

// Common domain error codes
const (
	ErrCodeValidation            = "VALIDATION_ERROR"
	ErrCodeNotFound              = "NOT_FOUND"
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeInternalError         = "INTERNAL_ERROR"
	ErrCodeNoChaptersMatched     = "NO_CHAPTERS_MATCHED"
	ErrCodeNoPassagesFound       = "NO_PASSAGES_FOUND"
	ErrCodeAllProvidersExhausted = "ALL_PROVIDERS_EXHAUSTED"
)

// Validation errors
var (
	ErrEmptyQuery     = NewDomainError(ErrCodeValidation, "query cannot be empty")
	ErrUnknownChapter = NewDomainError(ErrCodeValidation, "unknown chapter")
	ErrInvalidCorpus  = NewDomainError(ErrCodeValidation, "invalid corpus")
)

// Not found errors
var (
	ErrCorpusEmpty     = NewDomainError(ErrCodeNotFound, "corpus has no chapters")
	ErrChapterNotFound = NewDomainError(ErrCodeNotFound, "chapter not found")
)

// Pipeline errors
var (
	ErrNoChaptersMatched     = NewDomainError(ErrCodeNoChaptersMatched, "no chapter scored above the selection threshold")
	ErrNoPassagesFound       = NewDomainError(ErrCodeNoPassagesFound, "no passages found in the selected chapters")
	ErrAllProvidersExhausted = NewDomainError(ErrCodeAllProvidersExhausted, "all language model providers failed")
)

// ExhaustedError is the terminal failure of the provider fallback chain. It
// carries one failure per attempted provider in configured order.
type ExhaustedError struct {
	Failures []ProviderFailure
}

func (e *ExhaustedError) Error() string {
	if len(e.Failures) == 0 {
		return fmt.Sprintf("%s: no providers configured", ErrAllProvidersExhausted.Error())
	}
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.String()
	}
	return fmt.Sprintf("%s: %s", ErrAllProvidersExhausted.Error(), strings.Join(parts, "; "))
}

// Unwrap lets errors.Is(err, ErrAllProvidersExhausted) succeed.
func (e *ExhaustedError) Unwrap() error {
	return ErrAllProvidersExhausted
}
