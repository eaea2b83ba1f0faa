package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cloo-solutions/mpedge/internal/domain"
)

// Environment variables holding provider credentials in the default chain.
const (
	OpenAIKeyEnv      = "MPEDGE_OPENAI_API_KEY"
	HuggingFaceKeyEnv = "MPEDGE_HF_API_KEY"
)

// LoadProviders reads the provider chain from c.ProvidersFile, or derives the
// default chain from the configured keys when no file is set.
func (c *Config) LoadProviders() (domain.ProviderConfig, error) {
	if c.ProvidersFile == "" {
		return c.DefaultProviders(), nil
	}
	return LoadProvidersFile(c.ProvidersFile)
}

// LoadProvidersFile parses and validates a YAML provider chain.
func LoadProvidersFile(path string) (domain.ProviderConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.ProviderConfig{}, fmt.Errorf("failed to read providers file: %w", err)
	}

	var pc domain.ProviderConfig
	if err := yaml.Unmarshal(data, &pc); err != nil {
		return domain.ProviderConfig{}, fmt.Errorf("failed to parse providers file %s: %w", path, err)
	}
	if err := pc.Validate(); err != nil {
		return domain.ProviderConfig{}, err
	}
	return pc, nil
}

// DefaultProviders is OpenAI gpt-4o-mini followed by HuggingFace Mistral,
// each included only when its key is set.
func (c *Config) DefaultProviders() domain.ProviderConfig {
	var pc domain.ProviderConfig
	if c.HasOpenAI() {
		pc.Providers = append(pc.Providers, domain.ProviderSpec{
			Name:      "openai",
			Kind:      domain.ProviderKindOpenAI,
			Model:     "gpt-4o-mini",
			BaseURL:   c.OpenAIBaseURL,
			APIKeyEnv: OpenAIKeyEnv,
		})
	}
	if c.HasHuggingFace() {
		pc.Providers = append(pc.Providers, domain.ProviderSpec{
			Name:      "huggingface",
			Kind:      domain.ProviderKindHuggingFace,
			Model:     "mistralai/Mistral-7B-Instruct-v0.2",
			APIKeyEnv: HuggingFaceKeyEnv,
		})
	}
	return pc
}
