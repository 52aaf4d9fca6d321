package mocks

import (
	"context"

	"UD_contest_bot/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockChannelRepository struct {
	mock.Mock
}

func (m *MockChannelRepository) ListChannels(ctx context.Context) ([]model.Channel, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Channel), args.Error(1)
}

type MockMembershipChecker struct {
	mock.Mock
}

func (m *MockMembershipChecker) IsMember(ctx context.Context, chatID, telegramID int64) (bool, error) {
	args := m.Called(ctx, chatID, telegramID)
	return args.Bool(0), args.Error(1)
}
