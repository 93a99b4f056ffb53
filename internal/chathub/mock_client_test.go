package chathub_test

import (
	"context"
	"sync"

	"givebox/backend/internal/chathub"

	"github.com/stretchr/testify/mock"
)

type mockClient struct {
	userID string
	frames chan chathub.ServerFrame

	mu     sync.Mutex
	closed bool
}

func newMockClient(userID string) *mockClient {
	return &mockClient{userID: userID, frames: make(chan chathub.ServerFrame, 32)}
}

func (c *mockClient) GetUserID() string { return c.userID }

func (c *mockClient) Deliver(f chathub.ServerFrame) bool {
	select {
	case c.frames <- f:
		return true
	default:
		return false
	}
}

func (c *mockClient) Run() {}

func (c *mockClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *mockClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type MockAuthorizer struct{ mock.Mock }

func (m *MockAuthorizer) CanSubscribe(ctx context.Context, userID, conversationID string) error {
	args := m.Called(ctx, userID, conversationID)
	return args.Error(0)
}

type presenceCall struct {
	userID, conversationID string
	online                 bool
}

type recordingPresence struct {
	mu    sync.Mutex
	calls []presenceCall
}

func (p *recordingPresence) SetOnline(_ context.Context, userID, conversationID string, online bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, presenceCall{userID, conversationID, online})
	return nil
}

func (p *recordingPresence) all() []presenceCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]presenceCall(nil), p.calls...)
}
