package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/Harshitk-cp/signalrealm/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Provider constants
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderCerebras  = "cerebras"
	ProviderXAI       = "xai"
	ProviderMock      = "mock"
)

var (
	ErrUnknownProvider        = errors.New("unknown llm provider")
	ErrProviderNotImplemented = errors.New("llm provider not yet implemented")
	ErrMalformedResponse      = errors.New("malformed provider response")
)

// ProviderError is returned when a provider answers with a non-2xx status.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s API returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Request is one (system, user) prompt pair.
type Request struct {
	System string
	User   string
}

// Provider performs a single text-generation call for an account. Providers do
// not retry and do not stream.
type Provider interface {
	Generate(ctx context.Context, account domain.Account, req Request) (*domain.Generation, error)
}

// Endpoints overrides provider base URLs. Empty values use the public APIs.
type Endpoints struct {
	Anthropic string
	OpenAI    string
	Gemini    string
	Cerebras  string
}

// Router dispatches generation requests by account.Provider.
type Router struct {
	providers map[string]Provider
	timeout   time.Duration
	rps       rate.Limit
	burst     int
	mock      bool
	logger    *zap.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

type RouterOption func(*Router)

// WithTimeout bounds every provider call.
func WithTimeout(d time.Duration) RouterOption {
	return func(r *Router) { r.timeout = d }
}

// WithAccountRateLimit throttles calls per account. rps <= 0 disables throttling.
func WithAccountRateLimit(rps float64, burst int) RouterOption {
	return func(r *Router) {
		if rps <= 0 {
			r.rps = rate.Inf
			return
		}
		r.rps = rate.Limit(rps)
		r.burst = burst
	}
}

// WithMockProvider makes NewDefaultRouter register the canned mock provider.
// Off by default so a realm account naming "mock" fails in production.
func WithMockProvider(enabled bool) RouterOption {
	return func(r *Router) { r.mock = enabled }
}

// NewRouter returns a router with no providers registered.
func NewRouter(logger *zap.Logger, opts ...RouterOption) *Router {
	r := &Router{
		providers: make(map[string]Provider),
		rps:       rate.Inf,
		burst:     1,
		logger:    logger,
		limiters:  make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.burst <= 0 {
		r.burst = 1
	}
	return r
}

// NewDefaultRouter registers every built-in provider. The mock provider is
// only added under WithMockProvider(true).
func NewDefaultRouter(logger *zap.Logger, endpoints Endpoints, opts ...RouterOption) *Router {
	httpClient := &http.Client{}

	r := NewRouter(logger, opts...)
	r.Register(ProviderAnthropic, NewAnthropicProvider(endpoints.Anthropic, httpClient))
	r.Register(ProviderOpenAI, NewOpenAIProvider(endpoints.OpenAI, httpClient))
	r.Register(ProviderCerebras, NewCerebrasProvider(endpoints.Cerebras, httpClient))
	r.Register(ProviderGemini, NewGeminiProvider(endpoints.Gemini, httpClient))
	r.Register(ProviderXAI, Unimplemented(ProviderXAI))
	if r.mock {
		r.Register(ProviderMock, NewMockProvider())
	}
	return r
}

func (r *Router) Register(name string, p Provider) {
	r.providers[name] = p
}

// Providers lists the registered provider names.
func (r *Router) Providers() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Generate sends the prompts to the account's provider and returns the
// normalized result.
func (r *Router) Generate(ctx context.Context, account domain.Account, userPrompt, systemPrompt string) (*domain.Generation, error) {
	if !account.Enabled {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountDisabled, account.ID)
	}
	p, ok := r.providers[account.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q (valid options: %v)", ErrUnknownProvider, account.Provider, r.Providers())
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	if err := r.limiter(account.ID).Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for account %s rate limit: %w", account.ID, err)
	}

	start := time.Now()
	gen, err := p.Generate(ctx, account, Request{System: systemPrompt, User: userPrompt})
	if err != nil {
		r.logger.Debug("model call failed",
			zap.String("provider", account.Provider),
			zap.String("account_id", account.ID),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return nil, err
	}

	fields := []zap.Field{
		zap.String("provider", account.Provider),
		zap.String("account_id", account.ID),
		zap.String("model", gen.Model),
		zap.Duration("duration", time.Since(start)),
	}
	if gen.Usage != nil {
		fields = append(fields, zap.Int("total_tokens", gen.Usage.TotalTokens))
	}
	r.logger.Debug("model call complete", fields...)
	return gen, nil
}

func (r *Router) limiter(accountID string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.limiters[accountID]
	if !ok {
		l = rate.NewLimiter(r.rps, r.burst)
		r.limiters[accountID] = l
	}
	return l
}

type unimplemented struct {
	name string
}

// Unimplemented returns a provider that fails every call with
// ErrProviderNotImplemented.
func Unimplemented(name string) Provider {
	return unimplemented{name: name}
}

func (u unimplemented) Generate(context.Context, domain.Account, Request) (*domain.Generation, error) {
	return nil, fmt.Errorf("%w: %s", ErrProviderNotImplemented, u.name)
}
