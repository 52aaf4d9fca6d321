package service

import (
	"context"
	"errors"
	"fmt"

	"UD_contest_bot/internal/model"
	"UD_contest_bot/internal/repository"
)

const leaderboardSize = 100

type UserService struct {
	repo      UserRepository
	referrals ReferralRepository
}

func NewUserService(repo UserRepository, referrals ReferralRepository) *UserService {
	return &UserService{
		repo:      repo,
		referrals: referrals,
	}
}

func (s *UserService) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	user, err := s.repo.GetUser(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by telegram ID: %w", err)
	}
	return user, nil
}

func (s *UserService) GetUserByPhone(ctx context.Context, phone string) (*model.User, error) {
	user, err := s.repo.GetUserByPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by phone: %w", err)
	}
	return user, nil
}

func (s *UserService) GetLeaderboard(ctx context.Context) ([]*model.LeaderboardEntry, error) {
	users, err := s.repo.GetTopUsers(ctx, leaderboardSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", err)
	}
	return users, nil
}

func (s *UserService) GetReferralStats(ctx context.Context, telegramID int64) (*model.ReferralStats, error) {
	if _, err := s.repo.GetUser(ctx, telegramID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	stats, err := s.referrals.GetReferralStats(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to get referral stats: %w", err)
	}
	return stats, nil
}
