package llm

import (
	"context"
	"sync"

	"github.com/Harshitk-cp/signalrealm/internal/domain"
)

const mockModel = "mock-model"

// MockProvider is a scriptable provider for local runs and tests.
// Set Respond for per-request behaviour, or Response/Err for a fixed answer.
type MockProvider struct {
	mu sync.Mutex

	Response string
	Err      error
	Respond  func(account domain.Account, req Request) (string, error)

	// Call tracking for assertions
	Calls []Request
}

func NewMockProvider() *MockProvider {
	return &MockProvider{Response: "Mock response"}
}

func (m *MockProvider) Generate(ctx context.Context, account domain.Account, req Request) (*domain.Generation, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	respond, response, respErr := m.Respond, m.Response, m.Err
	m.mu.Unlock()

	if respond != nil {
		content, err := respond(account, req)
		if err != nil {
			return nil, err
		}
		response = content
	} else if respErr != nil {
		return nil, respErr
	}

	return &domain.Generation{
		Model:   mockModel,
		Content: response,
		Usage:   &domain.Usage{TotalTokens: len(req.System) + len(req.User) + len(response)},
	}, nil
}

// CallCount returns how many calls have been recorded.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Reset clears recorded calls and scripted behaviour.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Response = "Mock response"
	m.Err = nil
	m.Respond = nil
	m.Calls = nil
}
