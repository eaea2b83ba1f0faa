package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cloo-solutions/mpedge/internal/domain"
)

// SuccessResponse wraps successful API responses
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse represents an error API response. Failures lists the provider
// attempts when every provider failed.
type ErrorResponse struct {
	Error    string                   `json:"error"`
	Code     string                   `json:"code,omitempty"`
	Failures []domain.ProviderFailure `json:"failures,omitempty"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Success writes a successful JSON response
func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// DomainErrorToHTTP maps domain errors to HTTP status codes
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}

	switch domainErr.Code {
	case domain.ErrCodeValidation:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case domain.ErrCodeNoChaptersMatched, domain.ErrCodeNoPassagesFound:
		return http.StatusUnprocessableEntity
	case domain.ErrCodeAllProvidersExhausted:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// HandleError writes a structured error response based on the error type
func HandleError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error(), Code: domain.ErrCodeInternalError}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		resp.Code = domainErr.Code
	}
	var exhausted *domain.ExhaustedError
	if errors.As(err, &exhausted) {
		resp.Failures = exhausted.Failures
	}

	JSON(w, DomainErrorToHTTP(err), resp)
}
