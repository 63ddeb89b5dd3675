package llm

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

var errNoMockResponse = errors.New("no canned response left")

// MockResponse is a canned answer: raw output, or an error.
type MockResponse struct {
	Content string
	Err     error
}

// MockProvider replays canned responses in order and records the requests it got.
// The output goes through the same cleaning and validation as real providers.
type MockProvider struct {
	mu        sync.Mutex
	responses []MockResponse
	calls     []Request
}

func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{responses: responses}
}

func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)
	if len(m.responses) == 0 {
		return nil, &UnavailableError{Err: errNoMockResponse}
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	if resp.Err != nil {
		return nil, resp.Err
	}

	content, err := validateContent(req.Schema, resp.Content)
	if err != nil {
		return nil, err
	}
	return &Response{Content: content, Model: "mock"}, nil
}

func (m *MockProvider) ModelID() string { return "mock" }

func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

func (m *MockProvider) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}
