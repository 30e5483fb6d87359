package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Harshitk-cp/signalrealm/internal/domain"
)

const (
	openAIBaseURL = "https://api.openai.com"
	openAIModel   = "gpt-4o-mini"

	// Cerebras serves the same chat completions protocol.
	cerebrasBaseURL = "https://api.cerebras.ai"
	cerebrasModel   = "llama-3.3-70b"
)

// ChatCompletionsProvider talks to any OpenAI-compatible /v1/chat/completions endpoint.
type ChatCompletionsProvider struct {
	name         string
	baseURL      string
	defaultModel string
	temperature  float32
	httpClient   *http.Client
}

func NewOpenAIProvider(baseURL string, httpClient *http.Client) *ChatCompletionsProvider {
	return newChatCompletionsProvider(ProviderOpenAI, baseURL, openAIBaseURL, openAIModel, httpClient)
}

func NewCerebrasProvider(baseURL string, httpClient *http.Client) *ChatCompletionsProvider {
	return newChatCompletionsProvider(ProviderCerebras, baseURL, cerebrasBaseURL, cerebrasModel, httpClient)
}

func newChatCompletionsProvider(name, baseURL, fallbackURL, model string, httpClient *http.Client) *ChatCompletionsProvider {
	if baseURL == "" {
		baseURL = fallbackURL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &ChatCompletionsProvider{
		name:         name,
		baseURL:      strings.TrimRight(baseURL, "/"),
		defaultModel: model,
		temperature:  0.4,
		httpClient:   httpClient,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *ChatCompletionsProvider) Generate(ctx context.Context, account domain.Account, in Request) (*domain.Generation, error) {
	model := account.Model
	if model == "" {
		model = p.defaultModel
	}

	messages := make([]chatMessage, 0, 2)
	if in.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: in.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: in.User})

	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: p.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", p.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", p.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+account.APIKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", p.name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", p.name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ProviderError{Provider: p.name, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedResponse, p.name, err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("%s API error: %s", p.name, result.Error.Message)
	}
	if len(result.Choices) == 0 || result.Choices[0].Message.Content == nil {
		return nil, fmt.Errorf("%w: %s returned no message content", ErrMalformedResponse, p.name)
	}

	gen := &domain.Generation{Model: result.Model, Content: *result.Choices[0].Message.Content}
	if gen.Model == "" {
		gen.Model = model
	}
	if result.Usage != nil {
		gen.Usage = &domain.Usage{
			InputTokens:  result.Usage.PromptTokens,
			OutputTokens: result.Usage.CompletionTokens,
			TotalTokens:  result.Usage.TotalTokens,
		}
	}
	return gen, nil
}
