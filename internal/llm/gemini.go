package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Harshitk-cp/signalrealm/internal/domain"
	"google.golang.org/genai"
)

const geminiModel = "gemini-2.0-flash"

// GeminiProvider calls the Gemini API through the genai SDK. A client is built
// per call because the API key belongs to the realm's account, not the process.
type GeminiProvider struct {
	baseURL    string
	httpClient *http.Client
}

func NewGeminiProvider(baseURL string, httpClient *http.Client) *GeminiProvider {
	return &GeminiProvider{baseURL: baseURL, httpClient: httpClient}
}

func (p *GeminiProvider) Generate(ctx context.Context, account domain.Account, in Request) (*domain.Generation, error) {
	if account.APIKey == "" {
		return nil, fmt.Errorf("gemini account %s has no api key", account.ID)
	}

	cfg := &genai.ClientConfig{
		APIKey:     account.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: p.httpClient,
	}
	if p.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: p.baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := account.Model
	if model == "" {
		model = geminiModel
	}

	var genCfg *genai.GenerateContentConfig
	if in.System != "" {
		genCfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(in.System, genai.RoleUser),
		}
	}

	resp, err := client.Models.GenerateContent(ctx, model,
		[]*genai.Content{genai.NewContentFromText(in.User, genai.RoleUser)},
		genCfg,
	)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, &ProviderError{Provider: ProviderGemini, StatusCode: apiErr.Code, Body: apiErr.Message}
		}
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: gemini returned no candidates", ErrMalformedResponse)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("%w: gemini returned no text", ErrMalformedResponse)
	}

	gen := &domain.Generation{Model: resp.ModelVersion, Content: text}
	if gen.Model == "" {
		gen.Model = model
	}
	if u := resp.UsageMetadata; u != nil {
		gen.Usage = &domain.Usage{
			InputTokens:  int(u.PromptTokenCount),
			OutputTokens: int(u.CandidatesTokenCount),
			TotalTokens:  int(u.TotalTokenCount),
		}
	}
	return gen, nil
}
