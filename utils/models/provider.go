package models

import (
	"context"
	"fmt"
	"strings"

	"github.com/kris-hansen/pfmea/utils/config"
)

// ModelConfig represents configuration options for model calls
type ModelConfig struct {
	Temperature         float64
	MaxTokens           int
	MaxCompletionTokens int
	TopP                float64
}

// DefaultModelConfig matches the sampling settings the generator was tuned with
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Temperature: config.DefaultTemperature,
		TopP:        1.0,
	}
}

// Provider represents a chat-completion backend
type Provider interface {
	Name() string
	SupportsModel(modelName string) bool
	SendPrompt(ctx context.Context, modelName string, prompt string) (string, error)
	Configure(apiKey string) error
	SetVerbose(verbose bool)
}

// DetectProviderFunc is the type for the provider detection function
type DetectProviderFunc func(modelName string) Provider

// DetectProvider determines the appropriate provider based on the model name.
// Tests may swap it out.
var DetectProvider DetectProviderFunc = defaultDetectProvider

func defaultDetectProvider(modelName string) Provider {
	config.DebugLog("[Provider] Attempting to detect provider for model: %s", modelName)

	// Most specific first; openai's families are the broadest
	for _, name := range []string{"deepseek", "xai", "moonshot", "vllm", "openai"} {
		p, err := NewCompatProvider(name)
		if err != nil {
			continue
		}
		if p.SupportsModel(modelName) {
			config.DebugLog("[Provider] Found provider %s for model %s", p.Name(), modelName)
			return p
		}
	}

	config.DebugLog("[Provider] No provider claims model %s", modelName)
	return nil
}

// ResolveProvider returns a configured provider for modelName. A provider
// that lists the model in the config file wins over name-based detection.
func ResolveProvider(env *config.EnvConfig, modelName string, verbose bool) (Provider, error) {
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		return nil, fmt.Errorf("no model specified")
	}

	var provider Provider
	if name := env.ProviderForModel(modelName); name != "" {
		p, err := NewCompatProvider(name)
		if err != nil {
			return nil, err
		}
		GetRegistry().RegisterModels(name, []string{strings.ToLower(modelName)})
		provider = p
	} else {
		provider = DetectProvider(modelName)
	}
	if provider == nil {
		return nil, fmt.Errorf("could not detect provider for model: %s", modelName)
	}
	provider.SetVerbose(verbose)

	providerConfig, err := env.GetProviderConfig(provider.Name())
	if err != nil {
		providerConfig = &config.Provider{}
	}

	if cp, ok := provider.(*CompatProvider); ok {
		if providerConfig.BaseURL != "" {
			cp.SetBaseURL(providerConfig.BaseURL)
		}
		cfg := DefaultModelConfig()
		cfg.Temperature = env.GetTemperature()
		if env.MaxTokens > 0 {
			cfg.MaxTokens = env.MaxTokens
			cfg.MaxCompletionTokens = env.MaxTokens
		}
		cp.SetConfig(cfg)
		if providerConfig.APIKey == "" && !cp.RequiresAPIKey() {
			return cp, nil
		}
	}

	if providerConfig.APIKey == "" {
		return nil, fmt.Errorf("no API key configured for provider %s (set %s_API_KEY or providers.%s.api_key)",
			provider.Name(), strings.ToUpper(provider.Name()), provider.Name())
	}
	if err := provider.Configure(providerConfig.APIKey); err != nil {
		return nil, fmt.Errorf("failed to configure provider %s: %w", provider.Name(), err)
	}
	return provider, nil
}

// ProviderNames lists every provider preset
func ProviderNames() []string {
	names := make([]string, 0, len(presets))
	for _, p := range presets {
		names = append(names, p.Name)
	}
	return names
}
