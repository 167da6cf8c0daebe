// Package testutil provides centralized test mocks, fixtures, and helpers.
// All test files should import mocks from here instead of defining their own.
package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/realcamp/guidebot/internal/completion"
)

// MockCompletionClient implements completion.Client for tests.
type MockCompletionClient struct {
	mock.Mock
}

func (m *MockCompletionClient) Complete(ctx context.Context, req completion.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// StaticCompletionClient always returns the same text. Handy when the test
// only cares that a completion happened, not what was asked.
type StaticCompletionClient struct {
	Text string
	Err  error
	// Requests records every request received, in order.
	Requests []completion.Request
}

func (c *StaticCompletionClient) Complete(_ context.Context, req completion.Request) (string, error) {
	c.Requests = append(c.Requests, req)
	if c.Err != nil {
		return "", c.Err
	}
	return c.Text, nil
}
