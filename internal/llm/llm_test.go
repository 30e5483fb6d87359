package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Harshitk-cp/signalrealm/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func account(provider string) domain.Account {
	return domain.Account{ID: "acct-1", Name: "primary", Provider: provider, APIKey: "sk-test", Enabled: true}
}

func TestAnthropicProvider_Generate(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "claude-test",
			"content": [{"type": "text", "text": "{\"title\": \"Mill\"}"}],
			"usage": {"input_tokens": 12, "output_tokens": 30}
		}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider(srv.URL, srv.Client())
	gen, err := p.Generate(context.Background(), account(ProviderAnthropic), Request{System: "sys", User: "usr"})
	require.NoError(t, err)

	assert.Equal(t, "sys", got.System)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "usr", got.Messages[0].Content)
	assert.Equal(t, anthropicModel, got.Model)

	assert.Equal(t, "claude-test", gen.Model)
	assert.Equal(t, `{"title": "Mill"}`, gen.Content)
	require.NotNil(t, gen.Usage)
	assert.Equal(t, 42, gen.Usage.TotalTokens)
}

func TestAnthropicProvider_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "non-2xx becomes ProviderError",
			status: http.StatusTooManyRequests,
			body:   `{"error":{"message":"slow down"}}`,
			check: func(t *testing.T, err error) {
				var pe *ProviderError
				require.ErrorAs(t, err, &pe)
				assert.Equal(t, http.StatusTooManyRequests, pe.StatusCode)
				assert.Contains(t, pe.Body, "slow down")
			},
		},
		{
			name:   "no text block",
			status: http.StatusOK,
			body:   `{"model":"m","content":[]}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMalformedResponse)
			},
		},
		{
			name:   "not json",
			status: http.StatusOK,
			body:   `<html>`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMalformedResponse)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewAnthropicProvider(srv.URL, srv.Client()).Generate(context.Background(), account(ProviderAnthropic), Request{User: "u"})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestChatCompletionsProvider_Generate(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)

		_, _ = w.Write([]byte(`{
			"model": "gpt-test",
			"choices": [{"message": {"content": "a reflection"}}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 7, "total_tokens": 12}
		}`))
	}))
	defer srv.Close()

	acct := account(ProviderOpenAI)
	acct.Model = "gpt-custom"
	gen, err := NewOpenAIProvider(srv.URL, srv.Client()).Generate(context.Background(), acct, Request{System: "sys", User: "usr"})
	require.NoError(t, err)

	assert.Equal(t, "gpt-custom", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)

	assert.Equal(t, "a reflection", gen.Content)
	assert.Equal(t, "gpt-test", gen.Model)
	require.NotNil(t, gen.Usage)
	assert.Equal(t, 12, gen.Usage.TotalTokens)
}

func TestChatCompletionsProvider_MissingContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"model":"m","choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewCerebrasProvider(srv.URL, srv.Client()).Generate(context.Background(), account(ProviderCerebras), Request{User: "u"})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

type geminiBody struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	SystemInstruction *struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"systemInstruction"`
}

func TestGeminiProvider_Generate(t *testing.T) {
	var got geminiBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/"+geminiModel+":generateContent", r.URL.Path)
		assert.Equal(t, "sk-test", r.Header.Get("x-goog-api-key"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "{\"energy\": \"low\"}"}]}}],
			"usageMetadata": {"promptTokenCount": 9, "candidatesTokenCount": 4, "totalTokenCount": 13},
			"modelVersion": "gemini-test-001"
		}`))
	}))
	defer srv.Close()

	gen, err := NewGeminiProvider(srv.URL, srv.Client()).Generate(context.Background(), account(ProviderGemini), Request{System: "sys", User: "usr"})
	require.NoError(t, err)

	require.Len(t, got.Contents, 1)
	assert.Equal(t, "user", got.Contents[0].Role)
	require.Len(t, got.Contents[0].Parts, 1)
	assert.Equal(t, "usr", got.Contents[0].Parts[0].Text)
	require.NotNil(t, got.SystemInstruction)
	require.Len(t, got.SystemInstruction.Parts, 1)
	assert.Equal(t, "sys", got.SystemInstruction.Parts[0].Text)

	assert.Equal(t, `{"energy": "low"}`, gen.Content)
	assert.Equal(t, "gemini-test-001", gen.Model)
	require.NotNil(t, gen.Usage)
	assert.Equal(t, 9, gen.Usage.InputTokens)
	assert.Equal(t, 4, gen.Usage.OutputTokens)
	assert.Equal(t, 13, gen.Usage.TotalTokens)
}

func TestGeminiProvider_NoSystemInstruction(t *testing.T) {
	var got geminiBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"ok"}]}}]}`))
	}))
	defer srv.Close()

	acct := account(ProviderGemini)
	acct.Model = "gemini-custom"
	gen, err := NewGeminiProvider(srv.URL, srv.Client()).Generate(context.Background(), acct, Request{User: "usr"})
	require.NoError(t, err)

	assert.Nil(t, got.SystemInstruction)
	assert.Equal(t, "gemini-custom", gen.Model)
	assert.Nil(t, gen.Usage)
}

func TestGeminiProvider_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "non-2xx becomes ProviderError",
			status: http.StatusTooManyRequests,
			body:   `{"error":{"code":429,"message":"quota exhausted","status":"RESOURCE_EXHAUSTED"}}`,
			check: func(t *testing.T, err error) {
				var pe *ProviderError
				require.ErrorAs(t, err, &pe)
				assert.Equal(t, ProviderGemini, pe.Provider)
				assert.Equal(t, http.StatusTooManyRequests, pe.StatusCode)
				assert.Contains(t, pe.Body, "quota exhausted")
			},
		},
		{
			name:   "no candidates",
			status: http.StatusOK,
			body:   `{"candidates":[]}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMalformedResponse)
			},
		},
		{
			name:   "empty text",
			status: http.StatusOK,
			body:   `{"candidates":[{"content":{"role":"model","parts":[{"text":""}]}}]}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMalformedResponse)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewGeminiProvider(srv.URL, srv.Client()).Generate(context.Background(), account(ProviderGemini), Request{User: "u"})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestGeminiProvider_MissingKey(t *testing.T) {
	acct := account(ProviderGemini)
	acct.APIKey = ""
	_, err := NewGeminiProvider("http://127.0.0.1:1", nil).Generate(context.Background(), acct, Request{User: "u"})
	assert.ErrorContains(t, err, "no api key")
}

type blockingProvider struct{}

func (blockingProvider) Generate(ctx context.Context, _ domain.Account, _ Request) (*domain.Generation, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRouter_Generate(t *testing.T) {
	mock := NewMockProvider()
	mock.Response = "hello"

	r := NewRouter(zap.NewNop())
	r.Register(ProviderMock, mock)
	r.Register(ProviderXAI, Unimplemented(ProviderXAI))

	t.Run("dispatches by provider", func(t *testing.T) {
		gen, err := r.Generate(context.Background(), account(ProviderMock), "user prompt", "system prompt")
		require.NoError(t, err)
		assert.Equal(t, "hello", gen.Content)
		require.Equal(t, 1, mock.CallCount())
		assert.Equal(t, Request{System: "system prompt", User: "user prompt"}, mock.Calls[0])
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := r.Generate(context.Background(), account("bard"), "u", "s")
		assert.ErrorIs(t, err, ErrUnknownProvider)
	})

	t.Run("stub provider", func(t *testing.T) {
		_, err := r.Generate(context.Background(), account(ProviderXAI), "u", "s")
		assert.ErrorIs(t, err, ErrProviderNotImplemented)
	})

	t.Run("disabled account", func(t *testing.T) {
		acct := account(ProviderMock)
		acct.Enabled = false
		_, err := r.Generate(context.Background(), acct, "u", "s")
		assert.ErrorIs(t, err, domain.ErrAccountDisabled)
	})

	t.Run("provider error passes through", func(t *testing.T) {
		mock.Err = &ProviderError{Provider: ProviderMock, StatusCode: 500, Body: "boom"}
		defer mock.Reset()

		_, err := r.Generate(context.Background(), account(ProviderMock), "u", "s")
		var pe *ProviderError
		assert.True(t, errors.As(err, &pe))
	})
}

func TestRouter_Timeout(t *testing.T) {
	r := NewRouter(zap.NewNop(), WithTimeout(20*time.Millisecond))
	r.Register("slow", blockingProvider{})

	_, err := r.Generate(context.Background(), account("slow"), "u", "s")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRouter_AccountRateLimit(t *testing.T) {
	r := NewRouter(zap.NewNop(), WithAccountRateLimit(0.001, 1))
	r.Register(ProviderMock, NewMockProvider())

	_, err := r.Generate(context.Background(), account(ProviderMock), "u", "s")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = r.Generate(ctx, account(ProviderMock), "u", "s")
	assert.Error(t, err)

	// A different account has its own bucket.
	other := account(ProviderMock)
	other.ID = "acct-2"
	_, err = r.Generate(context.Background(), other, "u", "s")
	assert.NoError(t, err)
}

func TestNewDefaultRouter_Providers(t *testing.T) {
	r := NewDefaultRouter(zap.NewNop(), Endpoints{})
	assert.Equal(t, []string{"anthropic", "cerebras", "gemini", "openai", "xai"}, r.Providers())

	_, err := r.Generate(context.Background(), account(ProviderMock), "u", "s")
	assert.ErrorIs(t, err, ErrUnknownProvider)

	r = NewDefaultRouter(zap.NewNop(), Endpoints{}, WithMockProvider(true))
	assert.Equal(t, []string{"anthropic", "cerebras", "gemini", "mock", "openai", "xai"}, r.Providers())
}
