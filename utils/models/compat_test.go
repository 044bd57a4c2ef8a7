package models

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kris-hansen/pfmea/utils/config"
	"github.com/kris-hansen/pfmea/utils/retry"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatServer(t *testing.T, handler func(w http.ResponseWriter, req openai.ChatCompletionRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		handler(w, req)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeCompletion(w http.ResponseWriter, content string) {
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  "gpt-4",
		"choices": []map[string]interface{}{
			{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": content},
			},
		},
	})
}

func TestCompatProviderSendPrompt(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := chatServer(t, func(w http.ResponseWriter, req openai.ChatCompletionRequest) {
		got = req
		writeCompletion(w, "| a |\n|---|\n| 1 |")
	})

	p, err := NewCompatProvider("openai")
	require.NoError(t, err)
	require.NoError(t, p.Configure("sk-test"))
	p.SetBaseURL(srv.URL + "/v1/")

	out, err := p.SendPrompt(context.Background(), "gpt-4", "build a table")
	require.NoError(t, err)
	assert.Equal(t, "| a |\n|---|\n| 1 |", out)

	assert.Equal(t, "gpt-4", got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, openai.ChatMessageRoleUser, got.Messages[0].Role)
	assert.Equal(t, "build a table", got.Messages[0].Content)
	assert.InDelta(t, 0.7, got.Temperature, 0.0001)
}

func TestCompatProviderReasoningModelOmitsTemperature(t *testing.T) {
	p, err := NewCompatProvider("openai")
	require.NoError(t, err)
	p.SetConfig(ModelConfig{Temperature: 0.7, MaxTokens: 500, MaxCompletionTokens: 800, TopP: 1})

	req := p.createChatCompletionRequest("o3-mini", "x")
	assert.Zero(t, req.Temperature)
	assert.Zero(t, req.MaxTokens)
	assert.Equal(t, 800, req.MaxCompletionTokens)

	req = p.createChatCompletionRequest("gpt-4", "x")
	assert.InDelta(t, 0.7, req.Temperature, 0.0001)
	assert.Equal(t, 500, req.MaxTokens)
}

func TestCompatProviderRetriesRateLimit(t *testing.T) {
	var calls int32
	srv := chatServer(t, func(w http.ResponseWriter, req openai.ChatCompletionRequest) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]string{"message": "Rate limit reached", "type": "requests"},
			})
			return
		}
		writeCompletion(w, "done")
	})

	p, err := NewCompatProvider("deepseek")
	require.NoError(t, err)
	require.NoError(t, p.Configure("ds-key"))
	p.SetBaseURL(srv.URL + "/v1")
	p.SetRetryConfig(retry.RetryConfig{MaxRetries: 2, InitialWait: time.Millisecond, MaxWait: time.Millisecond, Factor: 1})

	out, err := p.SendPrompt(context.Background(), "deepseek-chat", "hi")
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCompatProviderNoChoices(t *testing.T) {
	srv := chatServer(t, func(w http.ResponseWriter, req openai.ChatCompletionRequest) {
		json.NewEncoder(w).Encode(map[string]interface{}{"id": "x", "choices": []interface{}{}})
	})

	p, err := NewCompatProvider("openai")
	require.NoError(t, err)
	require.NoError(t, p.Configure("sk-test"))
	p.SetBaseURL(srv.URL + "/v1")

	_, err = p.SendPrompt(context.Background(), "gpt-4", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no response choices")
}

func TestCompatProviderRequiresKey(t *testing.T) {
	p, err := NewCompatProvider("openai")
	require.NoError(t, err)
	assert.Error(t, p.Configure(""))

	_, err = p.SendPrompt(context.Background(), "gpt-4", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing API key")

	local, err := NewCompatProvider("vllm")
	require.NoError(t, err)
	assert.NoError(t, local.Configure(""))
	assert.False(t, local.RequiresAPIKey())

	ollama, err := NewCompatProvider("ollama")
	require.NoError(t, err)
	assert.NoError(t, ollama.Configure(""))
	assert.False(t, ollama.RequiresAPIKey())
	assert.Contains(t, ProviderNames(), "ollama")
}

func TestNewCompatProviderUnknown(t *testing.T) {
	_, err := NewCompatProvider("nope")
	assert.Error(t, err)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&openai.APIError{HTTPStatusCode: 429}))
	assert.True(t, IsRetryable(&openai.APIError{HTTPStatusCode: 503}))
	assert.False(t, IsRetryable(&openai.APIError{HTTPStatusCode: 401}))
	assert.True(t, IsRetryable(&openai.RequestError{HTTPStatusCode: 502, Err: errors.New("bad gateway")}))
	assert.True(t, IsRetryable(errors.New("too many requests")))
	assert.False(t, IsRetryable(errors.New("boom")))
}

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		model string
		want  string
	}{
		{"gpt-4", "openai"},
		{"GPT-4o", "openai"},
		{"o3-mini", "openai"},
		{"deepseek-chat", "deepseek"},
		{"grok-4", "xai"},
		{"moonshot-v1-8k", "moonshot"},
		{"llama3", ""},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			p := DetectProvider(tt.model)
			if tt.want == "" {
				assert.Nil(t, p)
				return
			}
			require.NotNil(t, p)
			assert.Equal(t, tt.want, p.Name())
		})
	}
}

func TestResolveProvider(t *testing.T) {
	env := &config.EnvConfig{}
	env.AddProvider("openai", config.Provider{APIKey: "sk-test", BaseURL: "http://example.test/v1"})
	env.AddProvider("vllm", config.Provider{Models: []string{"llama3-8b"}})
	temp := 0.2
	env.Temperature = &temp
	env.MaxTokens = 1024

	p, err := ResolveProvider(env, "gpt-4", false)
	require.NoError(t, err)
	cp, ok := p.(*CompatProvider)
	require.True(t, ok)
	assert.Equal(t, "openai", cp.Name())
	assert.Equal(t, "http://example.test/v1", cp.BaseURL())
	assert.InDelta(t, 0.2, cp.GetConfig().Temperature, 0.0001)
	assert.Equal(t, 1024, cp.GetConfig().MaxTokens)

	p, err = ResolveProvider(env, "llama3-8b", false)
	require.NoError(t, err)
	assert.Equal(t, "vllm", p.Name())
	assert.True(t, p.SupportsModel("llama3-8b"))

	_, err = ResolveProvider(env, "deepseek-chat", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEEPSEEK_API_KEY")

	_, err = ResolveProvider(env, "unknown-model", false)
	assert.Error(t, err)

	_, err = ResolveProvider(env, " ", false)
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	r := NewModelRegistry()
	assert.True(t, r.ValidateModel("openai", " GPT-4 "))
	assert.True(t, r.ValidateModel("deepseek", "deepseek-coder"))
	assert.False(t, r.ValidateModel("deepseek", "gpt-4"))

	r.RegisterModels("vllm", []string{"mistral-7b", "mistral-7b"})
	assert.Equal(t, []string{"mistral-7b"}, r.GetModels("vllm"))
	assert.Contains(t, r.GetAllModelsList(), "mistral-7b")
	assert.Contains(t, ProviderNames(), "vllm")
}
