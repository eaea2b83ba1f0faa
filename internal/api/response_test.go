package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/mpedge/internal/domain"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusOK, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var result map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)
	assert.Equal(t, "value", result["key"])
}

func TestJSON_NilData(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusNoContent, nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestSuccess(t *testing.T) {
	w := httptest.NewRecorder()

	Success(w, http.StatusOK, map[string]string{"answer": "elect one invention"})

	assert.Equal(t, http.StatusOK, w.Code)

	var result SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	data, ok := result.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "elect one invention", data["answer"])
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()

	Error(w, http.StatusBadRequest, "invalid input")

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var result ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "invalid input", result.Error)
	assert.Empty(t, result.Code)
}

func TestDomainErrorToHTTP(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, http.StatusOK},
		{"validation error", domain.ErrEmptyQuery, http.StatusBadRequest},
		{"unknown chapter", domain.ErrUnknownChapter.WithCause(fmt.Errorf("9999")), http.StatusBadRequest},
		{"not found error", domain.ErrChapterNotFound, http.StatusNotFound},
		{"unauthorized error", domain.NewDomainError(domain.ErrCodeUnauthorized, "invalid API key"), http.StatusUnauthorized},
		{"no chapters matched", domain.ErrNoChaptersMatched, http.StatusUnprocessableEntity},
		{"no passages found", domain.ErrNoPassagesFound, http.StatusUnprocessableEntity},
		{"providers exhausted", &domain.ExhaustedError{}, http.StatusBadGateway},
		{"wrapped domain error", fmt.Errorf("ask: %w", domain.ErrNoChaptersMatched), http.StatusUnprocessableEntity},
		{"internal error", domain.NewDomainError(domain.ErrCodeInternalError, "internal"), http.StatusInternalServerError},
		{"unknown domain error", domain.NewDomainError("UNKNOWN", "unknown"), http.StatusInternalServerError},
		{"non-domain error", assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DomainErrorToHTTP(tt.err))
		})
	}
}

func TestHandleError(t *testing.T) {
	w := httptest.NewRecorder()

	HandleError(w, domain.ErrNoChaptersMatched)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var result ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, domain.ErrCodeNoChaptersMatched, result.Code)
	assert.Contains(t, result.Error, "no chapter")
	assert.Empty(t, result.Failures)
}

func TestHandleError_Exhausted(t *testing.T) {
	w := httptest.NewRecorder()
	err := &domain.ExhaustedError{Failures: []domain.ProviderFailure{
		{Provider: "openai", Model: "gpt-4o-mini", Kind: domain.FailureRateLimited, Message: "429"},
		{Provider: "huggingface", Model: "mistral", Kind: domain.FailureTimeout, Message: "deadline exceeded"},
	}}

	HandleError(w, err)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	var result ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, domain.ErrCodeAllProvidersExhausted, result.Code)
	require.Len(t, result.Failures, 2)
	assert.Equal(t, domain.FailureTimeout, result.Failures[1].Kind)
}

func TestHandleError_Internal(t *testing.T) {
	w := httptest.NewRecorder()

	HandleError(w, assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var result ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, domain.ErrCodeInternalError, result.Code)
}
