package mocks

import (
	"context"

	"UD_contest_bot/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockReferralRepository struct {
	mock.Mock
}

func (m *MockReferralRepository) CreateReferral(ctx context.Context, referrerID, refereeID int64) error {
	args := m.Called(ctx, referrerID, refereeID)
	return args.Error(0)
}

func (m *MockReferralRepository) ConfirmReferral(ctx context.Context, referrerID, refereeID int64) error {
	args := m.Called(ctx, referrerID, refereeID)
	return args.Error(0)
}

func (m *MockReferralRepository) GetReferralStats(ctx context.Context, telegramID int64) (*model.ReferralStats, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReferralStats), args.Error(1)
}
