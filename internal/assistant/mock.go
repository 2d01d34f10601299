package assistant

import (
	"context"
	"sync"
)

// MockClient is a test double for Client.
type MockClient struct {
	SendFunc func(ctx context.Context, req Request) (*Reply, error)

	mu       sync.Mutex
	requests []Request
}

func (m *MockClient) Send(ctx context.Context, req Request) (*Reply, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.SendFunc != nil {
		return m.SendFunc(ctx, req)
	}
	return &Reply{Text: "mock response", Field: "response", Status: 200}, nil
}

// Requests returns a copy of every request received so far.
func (m *MockClient) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}
