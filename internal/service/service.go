package service

import (
	"context"
	"errors"

	"UD_contest_bot/internal/model"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrAlreadyRegistered  = errors.New("user has already completed registration")
	ErrChannelCheckFailed = errors.New("failed to check channel membership")
)

type Service struct {
	*RegistrationService
	*SubscriptionService
	*UserService
}

func NewService(registration *RegistrationService, subscription *SubscriptionService, users *UserService) *Service {
	return &Service{
		RegistrationService: registration,
		SubscriptionService: subscription,
		UserService:         users,
	}
}

type RegistrationServiceI interface {
	RegisterUser(ctx context.Context, telegramID int64, firstName, username string, referrerID *int64) (*model.User, error)
	UpdateUserProfile(ctx context.Context, telegramID int64, update model.ProfileUpdate) error
	CompleteRegistrationStepChannels(ctx context.Context, telegramID int64) error
	CompleteRegistration(ctx context.Context, telegramID int64) (*int64, error)
}

type SubscriptionServiceI interface {
	CheckUserSubscription(ctx context.Context, telegramID int64) (bool, []model.Channel, error)
}

type UserServiceI interface {
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*model.User, error)
	GetLeaderboard(ctx context.Context) ([]*model.LeaderboardEntry, error)
	GetReferralStats(ctx context.Context, telegramID int64) (*model.ReferralStats, error)
}

type UserRepository interface {
	GetUser(ctx context.Context, telegramID int64) (*model.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*model.User, error)
	CreateUser(ctx context.Context, user *model.User) error
	UpdateProfile(ctx context.Context, telegramID int64, update model.ProfileUpdate) error
	UpdateStatus(ctx context.Context, telegramID int64, status model.UserStatus) error
	AddPoints(ctx context.Context, telegramID int64, amount int, reason string) error
	GetTopUsers(ctx context.Context, limit int) ([]*model.LeaderboardEntry, error)
}

type ReferralRepository interface {
	CreateReferral(ctx context.Context, referrerID, refereeID int64) error
	ConfirmReferral(ctx context.Context, referrerID, refereeID int64) error
	GetReferralStats(ctx context.Context, telegramID int64) (*model.ReferralStats, error)
}

// Transactor runs fn atomically. Repository calls made with the ctx handed to fn
// take part in the same transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type ChannelRepository interface {
	ListChannels(ctx context.Context) ([]model.Channel, error)
}

type MembershipChecker interface {
	IsMember(ctx context.Context, chatID, telegramID int64) (bool, error)
}
