package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cloo-solutions/mpedge/internal/domain"
)

const (
	DefaultHuggingFaceBaseURL = "https://api-inference.huggingface.co"
	DefaultHuggingFaceModel   = "mistralai/Mistral-7B-Instruct-v0.2"

	defaultMaxNewTokens = 512
	maxErrorBodyBytes   = 512

	DefaultMaxResponseBytes = 1 << 20
)

// HuggingFaceConfig configures the Inference API text-generation client.
type HuggingFaceConfig struct {
	Name             string
	BaseURL          string
	APIKey           string
	Model            string
	WaitForModel     bool
	HTTPClient       *http.Client
	MaxResponseBytes int64 // 0 means DefaultMaxResponseBytes
}

// HuggingFace calls the HuggingFace Inference API text-generation task.
type HuggingFace struct {
	name         string
	baseURL      string
	apiKey       string
	model        string
	waitForModel bool
	client       *http.Client
	maxBody      int64
}

func NewHuggingFace(cfg HuggingFaceConfig) *HuggingFace {
	if cfg.Name == "" {
		cfg.Name = "huggingface"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultHuggingFaceBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultHuggingFaceModel
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = DefaultMaxResponseBytes
	}
	return &HuggingFace{
		name:         cfg.Name,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
		waitForModel: cfg.WaitForModel,
		client:       cfg.HTTPClient,
		maxBody:      cfg.MaxResponseBytes,
	}
}

func (h *HuggingFace) Name() string  { return h.name }
func (h *HuggingFace) Model() string { return h.model }

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
	Options    *hfOptions   `json:"options,omitempty"`
}

type hfParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens,omitempty"`
	Temperature    float32 `json:"temperature,omitempty"`
	TopP           float64 `json:"top_p,omitempty"`
	DoSample       bool    `json:"do_sample"`
	ReturnFullText bool    `json:"return_full_text"`
}

type hfOptions struct {
	WaitForModel bool `json:"wait_for_model,omitempty"`
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

func (h *HuggingFace) Generate(ctx context.Context, req Request) (string, error) {
	maxTokens := req.Params.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxNewTokens
	}
	body := hfRequest{
		Inputs: BuildPrompt(req),
		Parameters: hfParameters{
			MaxNewTokens:   maxTokens,
			Temperature:    req.Params.Temperature,
			DoSample:       req.Params.Temperature > 0,
			ReturnFullText: false,
		},
	}
	if body.Parameters.DoSample {
		body.Parameters.TopP = 0.95
	}
	if h.waitForModel {
		body.Options = &hfOptions{WaitForModel: true}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s", h.baseURL, h.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("huggingface request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBody+1))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(data)) > h.maxBody {
		return "", NewProviderError(domain.FailureInvalidResponse, resp.StatusCode,
			fmt.Errorf("huggingface: response exceeds %d bytes", h.maxBody))
	}

	if resp.StatusCode != http.StatusOK {
		snippet := data
		if len(snippet) > maxErrorBodyBytes {
			snippet = snippet[:maxErrorBodyBytes]
		}
		return "", NewProviderError(KindForStatus(resp.StatusCode), resp.StatusCode,
			fmt.Errorf("huggingface: %s", strings.TrimSpace(string(snippet))))
	}

	text, err := decodeGeneration(data)
	if err != nil {
		return "", NewProviderError(domain.FailureInvalidResponse, resp.StatusCode, err)
	}

	answer := ExtractAnswer(text)
	if answer == "" {
		return "", NewProviderError(domain.FailureInvalidResponse, resp.StatusCode, ErrEmptyAnswer)
	}
	return answer, nil
}

// decodeGeneration accepts both the list form and the single-object form of
// the text-generation response.
func decodeGeneration(data []byte) (string, error) {
	var list []hfGeneration
	if err := json.Unmarshal(data, &list); err == nil {
		if len(list) == 0 {
			return "", errors.New("huggingface: empty generation list")
		}
		return list[0].GeneratedText, nil
	}

	var single hfGeneration
	if err := json.Unmarshal(data, &single); err != nil {
		return "", fmt.Errorf("huggingface: failed to decode response: %w", err)
	}
	return single.GeneratedText, nil
}
