package admin

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/cloo-solutions/mpedge/internal/domain"
	"github.com/cloo-solutions/mpedge/internal/llm"
	"github.com/cloo-solutions/mpedge/internal/openai"
	"github.com/cloo-solutions/mpedge/internal/service"
)

// buildProviderChain instantiates the enabled providers in configured order.
// A provider whose api_key_env is named but unset is skipped.
func buildProviderChain(pc domain.ProviderConfig, log zerolog.Logger) []service.ConfiguredProvider {
	var chain []service.ConfiguredProvider
	for _, spec := range pc.Active() {
		var apiKey string
		if spec.APIKeyEnv != "" {
			apiKey = os.Getenv(spec.APIKeyEnv)
			if apiKey == "" {
				log.Warn().Str("provider", spec.Name).Str("env", spec.APIKeyEnv).Msg("provider key not set, skipping")
				continue
			}
		}

		var provider llm.Provider
		switch spec.Kind {
		case domain.ProviderKindOpenAI:
			provider = openai.NewChatProvider(openai.ChatConfig{
				Name:    spec.Name,
				APIKey:  apiKey,
				BaseURL: spec.BaseURL,
				Model:   spec.Model,
			})
		case domain.ProviderKindHuggingFace:
			provider = llm.NewHuggingFace(llm.HuggingFaceConfig{
				Name:         spec.Name,
				BaseURL:      spec.BaseURL,
				APIKey:       apiKey,
				Model:        spec.Model,
				WaitForModel: true,
			})
		default:
			log.Warn().Str("provider", spec.Name).Str("kind", string(spec.Kind)).Msg("unsupported provider kind, skipping")
			continue
		}

		chain = append(chain, service.ConfiguredProvider{Spec: spec, Provider: provider})
		log.Info().Str("provider", spec.Name).Str("model", spec.Model).Int("position", len(chain)).Msg("provider configured")
	}
	return chain
}
