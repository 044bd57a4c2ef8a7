package models

import (
	"sort"
	"strings"
	"sync"
)

// ModelRegistry maps provider names to the models and model-name prefixes
// they serve
type ModelRegistry struct {
	models   map[string][]string
	families map[string][]string
	mu       sync.RWMutex
}

var globalRegistry = NewModelRegistry()

// NewModelRegistry creates a registry seeded with the known models
func NewModelRegistry() *ModelRegistry {
	registry := &ModelRegistry{
		models:   make(map[string][]string),
		families: make(map[string][]string),
	}
	registry.initializeDefaultModels()
	return registry
}

func (r *ModelRegistry) initializeDefaultModels() {
	r.RegisterModels("openai", []string{
		"gpt-4",
		"gpt-4-turbo",
		"gpt-4o",
		"gpt-4o-mini",
		"gpt-4.1",
		"gpt-4.1-mini",
		"gpt-5",
		"gpt-5-mini",
		"o1",
		"o3",
		"o3-mini",
		"o4-mini",
	})
	r.RegisterFamilies("openai", []string{"gpt-", "chatgpt-", "o1", "o3", "o4"})

	r.RegisterModels("deepseek", []string{"deepseek-chat", "deepseek-reasoner"})
	r.RegisterFamilies("deepseek", []string{"deepseek-"})

	r.RegisterModels("xai", []string{"grok-3", "grok-4"})
	r.RegisterFamilies("xai", []string{"grok-"})

	r.RegisterModels("moonshot", []string{"moonshot-v1-8k", "moonshot-v1-32k", "moonshot-v1-128k"})
	r.RegisterFamilies("moonshot", []string{"moonshot-", "kimi-"})

	// vllm serves whatever the operator loaded; models come from config only
}

// RegisterModels adds models to the registry for a specific provider
func (r *ModelRegistry) RegisterModels(provider string, models []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range models {
		if !contains(r.models[provider], m) {
			r.models[provider] = append(r.models[provider], m)
		}
	}
}

// RegisterFamilies adds model families (prefixes) to the registry for a specific provider
func (r *ModelRegistry) RegisterFamilies(provider string, families []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range families {
		if !contains(r.families[provider], f) {
			r.families[provider] = append(r.families[provider], f)
		}
	}
}

// GetModels returns the list of models for a specific provider
func (r *ModelRegistry) GetModels(provider string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.models[provider]...)
}

// GetFamilies returns the list of model families for a specific provider
func (r *ModelRegistry) GetFamilies(provider string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.families[provider]...)
}

// ValidateModel checks if a model is valid for a specific provider
func (r *ModelRegistry) ValidateModel(provider string, modelName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	modelName = strings.TrimSpace(strings.ToLower(modelName))

	if contains(r.models[provider], modelName) {
		return true
	}
	for _, family := range r.families[provider] {
		if strings.HasPrefix(modelName, family) {
			return true
		}
	}
	return false
}

// GetAllModelsList returns every registered model, sorted
func (r *ModelRegistry) GetAllModelsList() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []string
	for _, models := range r.models {
		all = append(all, models...)
	}
	sort.Strings(all)
	return all
}

// GetRegistry returns the global model registry instance
func GetRegistry() *ModelRegistry {
	return globalRegistry
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
