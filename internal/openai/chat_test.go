package openai

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/mpedge/internal/domain"
	"github.com/cloo-solutions/mpedge/internal/llm"
)

type MockChatAPI struct {
	mock.Mock
}

func (m *MockChatAPI) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(openai.ChatCompletionResponse), args.Error(1)
}

func completion(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: content}}},
	}
}

func TestChatProvider_Generate(t *testing.T) {
	mockAPI := new(MockChatAPI)
	p := newChatProvider(mockAPI, "", "")

	assert.Equal(t, "openai", p.Name())
	assert.Equal(t, DefaultChatModel, p.Model())

	req := llm.Request{Query: "What is a restriction requirement?", Context: "[1] (Chapter 800) text", Params: llm.Params{MaxTokens: 300, Temperature: 0.1}}
	mockAPI.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(r openai.ChatCompletionRequest) bool {
		return r.Model == DefaultChatModel &&
			len(r.Messages) == 2 &&
			r.Messages[0].Role == openai.ChatMessageRoleSystem &&
			r.Messages[1].Content == llm.BuildPrompt(req) &&
			r.MaxTokens == 300
	})).Return(completion("  It requires election [1].  "), nil)

	answer, err := p.Generate(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "It requires election [1].", answer)
	mockAPI.AssertExpectations(t)
}

func TestChatProvider_GenerateFailures(t *testing.T) {
	tests := []struct {
		name string
		resp openai.ChatCompletionResponse
		err  error
		want domain.FailureKind
	}{
		{"rate limited", openai.ChatCompletionResponse{}, &openai.APIError{HTTPStatusCode: 429, Message: "slow down"}, domain.FailureRateLimited},
		{"server error", openai.ChatCompletionResponse{}, &openai.RequestError{HTTPStatusCode: 502, Err: errors.New("bad gateway")}, domain.FailureUnavailable},
		{"deadline", openai.ChatCompletionResponse{}, context.DeadlineExceeded, domain.FailureTimeout},
		{"no choices", openai.ChatCompletionResponse{}, nil, domain.FailureInvalidResponse},
		{"blank answer", completion("   "), nil, domain.FailureInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockAPI := new(MockChatAPI)
			mockAPI.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(tt.resp, tt.err)

			_, err := newChatProvider(mockAPI, "primary", "gpt-4o-mini").Generate(context.Background(), llm.Request{Query: "q"})

			require.Error(t, err)
			assert.Equal(t, tt.want, llm.Classify(err))
		})
	}
}
