//go:build integration

package openai

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/mpedge/internal/llm"
)

func TestIntegration_GenerateEmbedding_RealAPI(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set, skipping integration test")
	}

	client := NewClient(apiKey)
	embedding, err := client.GenerateEmbedding(context.Background(), "What is a restriction requirement?")

	require.NoError(t, err)
	assert.Len(t, embedding, DefaultEmbeddingDimensions)
}

func TestIntegration_ChatProvider_RealAPI(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set, skipping integration test")
	}

	p := NewChatProvider(ChatConfig{APIKey: apiKey})
	answer, err := p.Generate(context.Background(), llm.Request{
		Query:   "What is a restriction requirement?",
		Context: "[1] (Chapter 800) If two or more independent and distinct inventions are claimed in one application, the Director may require the application to be restricted to one of the inventions.",
		Params:  llm.Params{MaxTokens: 128},
	})

	require.NoError(t, err)
	assert.NotEmpty(t, answer)
}
