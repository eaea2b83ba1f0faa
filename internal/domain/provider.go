package domain

import (
	"fmt"
	"time"
)

// ProviderKind selects the client implementation for a provider.
type ProviderKind string

const (
	ProviderKindOpenAI      ProviderKind = "openai"
	ProviderKindHuggingFace ProviderKind = "huggingface"
)

// FailureKind classifies why a provider attempt failed.
type FailureKind string

const (
	FailureRateLimited     FailureKind = "rate_limited"
	FailureUnavailable     FailureKind = "unavailable"
	FailureInvalidResponse FailureKind = "invalid_response"
	FailureTimeout         FailureKind = "timeout"
)

// ProviderSpec describes one entry of the fallback chain.
type ProviderSpec struct {
	Name         string        `yaml:"name" json:"name"`
	Kind         ProviderKind  `yaml:"kind" json:"kind"`
	Model        string        `yaml:"model" json:"model"`
	BaseURL      string        `yaml:"base_url" json:"base_url,omitempty"`
	APIKeyEnv    string        `yaml:"api_key_env" json:"api_key_env,omitempty"`
	MaxTokens    int           `yaml:"max_tokens" json:"max_tokens,omitempty"`
	Temperature  float32       `yaml:"temperature" json:"temperature,omitempty"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout,omitempty"`
	Enabled      *bool         `yaml:"enabled" json:"enabled,omitempty"`
	Capabilities []string      `yaml:"capabilities" json:"capabilities,omitempty"`
}

// IsEnabled treats an unset flag as enabled.
func (s ProviderSpec) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// ValidateProviderSpec checks the fields every provider needs.
func ValidateProviderSpec(s ProviderSpec) error {
	if s.Name == "" {
		return NewDomainError(ErrCodeValidation, "provider name is required")
	}
	switch s.Kind {
	case ProviderKindOpenAI, ProviderKindHuggingFace:
	default:
		return NewDomainError(ErrCodeValidation, fmt.Sprintf("provider %s: unsupported kind %q", s.Name, s.Kind))
	}
	if s.Model == "" {
		return NewDomainError(ErrCodeValidation, fmt.Sprintf("provider %s: model is required", s.Name))
	}
	if s.Timeout < 0 {
		return NewDomainError(ErrCodeValidation, fmt.Sprintf("provider %s: timeout must not be negative", s.Name))
	}
	return nil
}

// ProviderConfig is the ordered provider chain.
type ProviderConfig struct {
	Providers []ProviderSpec `yaml:"providers" json:"providers"`
}

// Active returns the enabled providers in configured order.
func (c ProviderConfig) Active() []ProviderSpec {
	out := make([]ProviderSpec, 0, len(c.Providers))
	for _, p := range c.Providers {
		if p.IsEnabled() {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks every spec and rejects duplicate names.
func (c ProviderConfig) Validate() error {
	seen := make(map[string]struct{}, len(c.Providers))
	for _, p := range c.Providers {
		if err := ValidateProviderSpec(p); err != nil {
			return err
		}
		if _, dup := seen[p.Name]; dup {
			return NewDomainError(ErrCodeValidation, fmt.Sprintf("duplicate provider name %q", p.Name))
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}

// ProviderFailure records one failed provider attempt.
type ProviderFailure struct {
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Kind     FailureKind `json:"kind"`
	Message  string      `json:"message"`
}

func (f ProviderFailure) String() string {
	return fmt.Sprintf("%s/%s: %s (%s)", f.Provider, f.Model, f.Kind, f.Message)
}
