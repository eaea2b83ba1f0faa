package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cloo-solutions/mpedge/internal/domain"
	"github.com/cloo-solutions/mpedge/internal/llm"
)

// DefaultChatModel is the first provider in the default fallback chain
const DefaultChatModel = openai.GPT4oMini

// ChatAPI defines the interface for chat completions
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ChatConfig configures an OpenAI-compatible chat provider. BaseURL points it
// at other OpenAI-compatible endpoints (Ollama, DeepSeek, vLLM).
type ChatConfig struct {
	Name    string
	APIKey  string
	BaseURL string
	Model   string
}

// ChatProvider answers questions through the chat completions API
type ChatProvider struct {
	api   ChatAPI
	name  string
	model string
}

func NewChatProvider(cfg ChatConfig) *ChatProvider {
	return newChatProvider(newAPIClient(cfg.APIKey, cfg.BaseURL), cfg.Name, cfg.Model)
}

func newChatProvider(api ChatAPI, name, model string) *ChatProvider {
	if name == "" {
		name = "openai"
	}
	if model == "" {
		model = DefaultChatModel
	}
	return &ChatProvider{api: api, name: name, model: model}
}

func (p *ChatProvider) Name() string  { return p.name }
func (p *ChatProvider) Model() string { return p.model }

// Generate sends the system instructions and the rendered prompt
func (p *ChatProvider) Generate(ctx context.Context, req llm.Request) (string, error) {
	chatReq := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: llm.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: llm.BuildPrompt(req)},
		},
		MaxTokens:   req.Params.MaxTokens,
		Temperature: req.Params.Temperature,
	}

	resp, err := p.api.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", classifyAPIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", llm.NewProviderError(domain.FailureInvalidResponse, 0, errors.New("no choices returned"))
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", llm.NewProviderError(domain.FailureInvalidResponse, 0, llm.ErrEmptyAnswer)
	}
	return answer, nil
}

func classifyAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return llm.NewProviderError(llm.KindForStatus(apiErr.HTTPStatusCode), apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return llm.NewProviderError(llm.KindForStatus(reqErr.HTTPStatusCode), reqErr.HTTPStatusCode, err)
	}
	return fmt.Errorf("chat completion failed: %w", err)
}
