package models

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/kris-hansen/pfmea/utils/retry"
	openai "github.com/sashabaranov/go-openai"
)

// Preset describes an OpenAI-compatible chat endpoint
type Preset struct {
	Name           string
	BaseURL        string
	RequiresAPIKey bool
}

var presets = []Preset{
	{Name: "openai", BaseURL: "https://api.openai.com/v1", RequiresAPIKey: true},
	{Name: "deepseek", BaseURL: "https://api.deepseek.com/v1", RequiresAPIKey: true},
	{Name: "xai", BaseURL: "https://api.x.ai/v1", RequiresAPIKey: true},
	{Name: "moonshot", BaseURL: "https://api.moonshot.cn/v1", RequiresAPIKey: true},
	{Name: "vllm", BaseURL: "http://localhost:8000/v1"},
	{Name: "ollama", BaseURL: "http://localhost:11434/v1"},
}

func lookupPreset(name string) (Preset, bool) {
	for _, p := range presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// CompatProvider talks to any OpenAI-compatible chat completions API
type CompatProvider struct {
	preset     Preset
	apiKey     string
	baseURL    string
	config     ModelConfig
	verbose    bool
	retry      retry.RetryConfig
	httpClient *http.Client
	mu         sync.Mutex
}

// NewCompatProvider creates a provider for one of the known presets
func NewCompatProvider(name string) (*CompatProvider, error) {
	preset, ok := lookupPreset(name)
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
	return &CompatProvider{
		preset:  preset,
		baseURL: preset.BaseURL,
		config:  DefaultModelConfig(),
		retry:   retry.DefaultRetryConfig,
	}, nil
}

// Name returns the provider name
func (c *CompatProvider) Name() string {
	return c.preset.Name
}

// RequiresAPIKey reports whether calls fail without a key
func (c *CompatProvider) RequiresAPIKey() bool {
	return c.preset.RequiresAPIKey
}

func (c *CompatProvider) debugf(format string, args ...interface{}) {
	if c.verbose {
		c.mu.Lock()
		defer c.mu.Unlock()
		log.Printf("[DEBUG][%s] "+format+"\n", append([]interface{}{c.preset.Name}, args...)...)
	}
}

// SupportsModel checks the registry for the model or one of its families
func (c *CompatProvider) SupportsModel(modelName string) bool {
	supported := GetRegistry().ValidateModel(c.preset.Name, modelName)
	c.debugf("Model %s supported: %v", modelName, supported)
	return supported
}

// Configure sets up the provider with necessary credentials
func (c *CompatProvider) Configure(apiKey string) error {
	if apiKey == "" && c.preset.RequiresAPIKey {
		return fmt.Errorf("API key is required for %s provider", c.preset.Name)
	}
	c.apiKey = apiKey
	c.debugf("API key configured successfully")
	return nil
}

// SetBaseURL points the provider at a different endpoint
func (c *CompatProvider) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimRight(baseURL, "/")
}

// BaseURL returns the endpoint in use
func (c *CompatProvider) BaseURL() string {
	return c.baseURL
}

// SetHTTPClient overrides the HTTP client used for API calls
func (c *CompatProvider) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// SetRetryConfig overrides the backoff used on rate limits
func (c *CompatProvider) SetRetryConfig(cfg retry.RetryConfig) {
	c.retry = cfg
}

// SetConfig updates the sampling configuration
func (c *CompatProvider) SetConfig(config ModelConfig) {
	c.debugf("Updating config: Temperature=%.2f, MaxTokens=%d, MaxCompletionTokens=%d, TopP=%.2f",
		config.Temperature, config.MaxTokens, config.MaxCompletionTokens, config.TopP)
	c.config = config
}

// GetConfig returns the current provider configuration
func (c *CompatProvider) GetConfig() ModelConfig {
	return c.config
}

// SetVerbose enables or disables verbose mode
func (c *CompatProvider) SetVerbose(verbose bool) {
	c.verbose = verbose
}

// isReasoningModel reports models that reject temperature and max_tokens
func isReasoningModel(modelName string) bool {
	m := strings.ToLower(modelName)
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(m, prefix) {
			return true
		}
	}
	return strings.HasSuffix(m, "reasoner")
}

func (c *CompatProvider) createChatCompletionRequest(modelName, prompt string) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model: modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	if isReasoningModel(modelName) {
		req.MaxCompletionTokens = c.config.MaxCompletionTokens
		return req
	}

	req.MaxTokens = c.config.MaxTokens
	req.Temperature = float32(c.config.Temperature)
	req.TopP = float32(c.config.TopP)
	return req
}

func (c *CompatProvider) newClient() *openai.Client {
	cfg := openai.DefaultConfig(c.apiKey)
	cfg.BaseURL = c.baseURL
	if c.httpClient != nil {
		cfg.HTTPClient = c.httpClient
	}
	return openai.NewClientWithConfig(cfg)
}

// SendPrompt sends a single user message and returns the first choice's content
func (c *CompatProvider) SendPrompt(ctx context.Context, modelName string, prompt string) (string, error) {
	c.debugf("Preparing to send prompt to model: %s", modelName)
	c.debugf("Prompt length: %d characters", len(prompt))

	if c.apiKey == "" && c.preset.RequiresAPIKey {
		return "", fmt.Errorf("%s provider not configured: missing API key", c.preset.Name)
	}

	client := c.newClient()
	req := c.createChatCompletionRequest(modelName, prompt)

	response, err := retry.WithRetry(ctx, func(ctx context.Context) (string, error) {
		resp, err := client.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", fmt.Errorf("%s API error: %w", c.preset.Name, err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("no response choices returned from %s", c.preset.Name)
		}
		return resp.Choices[0].Message.Content, nil
	}, IsRetryable, c.retry)
	if err != nil {
		return "", err
	}

	c.debugf("API call completed, response length: %d characters", len(response))
	return response, nil
}

// IsRetryable reports rate limits and transient server errors
func IsRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return retry.Is429Error(err)
}
