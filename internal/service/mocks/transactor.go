package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockTransactor records the call and then runs fn inline, unless the
// expectation returns an error.
type MockTransactor struct {
	mock.Mock
}

func (m *MockTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx)
}
