package service

import (
	"context"
	"errors"
	"fmt"

	"UD_contest_bot/internal/model"
	"UD_contest_bot/internal/repository"
)

type RegistrationService struct {
	users     UserRepository
	referrals ReferralRepository
	tx        Transactor
}

func NewRegistrationService(users UserRepository, referrals ReferralRepository, tx Transactor) *RegistrationService {
	return &RegistrationService{
		users:     users,
		referrals: referrals,
		tx:        tx,
	}
}

// RegisterUser creates the user on first contact. An existing user is returned as is;
// the referrer is only ever considered for brand new users.
func (s *RegistrationService) RegisterUser(ctx context.Context, telegramID int64, firstName, username string, referrerID *int64) (*model.User, error) {
	user, err := s.users.GetUser(ctx, telegramID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	referrer, err := s.validReferrer(ctx, telegramID, referrerID)
	if err != nil {
		return nil, err
	}

	user = &model.User{
		TelegramID: telegramID,
		FirstName:  firstName,
		Username:   username,
		Status:     model.UserStatusNew,
		Referrer:   referrer,
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.users.CreateUser(ctx, user); err != nil {
			return err
		}
		if id, ok := referrer.ID(); ok {
			if err := s.referrals.CreateReferral(ctx, id, telegramID); err != nil {
				return fmt.Errorf("failed to create referral: %w", err)
			}
		}
		return nil
	})
	if errors.Is(err, repository.ErrAlreadyExists) {
		// Lost a race against a concurrent /start for the same account.
		existing, getErr := s.users.GetUser(ctx, telegramID)
		if getErr != nil {
			return nil, fmt.Errorf("failed to get user: %w", getErr)
		}
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func (s *RegistrationService) validReferrer(ctx context.Context, telegramID int64, referrerID *int64) (model.Referrer, error) {
	if referrerID == nil || *referrerID == telegramID {
		return model.Unreferred(), nil
	}

	_, err := s.users.GetUser(ctx, *referrerID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Unreferred(), nil
	}
	if err != nil {
		return model.Unreferred(), fmt.Errorf("failed to get referrer: %w", err)
	}

	return model.ReferredBy(*referrerID), nil
}

func (s *RegistrationService) UpdateUserProfile(ctx context.Context, telegramID int64, update model.ProfileUpdate) error {
	if update.IsEmpty() {
		return nil
	}
	if err := s.users.UpdateProfile(ctx, telegramID, update); err != nil {
		return fmt.Errorf("failed to update user profile: %w", err)
	}
	return nil
}

func (s *RegistrationService) CompleteRegistrationStepChannels(ctx context.Context, telegramID int64) error {
	err := s.users.UpdateStatus(ctx, telegramID, model.UserStatusWaitSurvey)
	if err != nil && !errors.Is(err, repository.ErrStatusUnchanged) {
		return fmt.Errorf("failed to update user status: %w", err)
	}
	return nil
}

// CompleteRegistration activates the user and pays the registration and referral
// bonuses in one transaction. It returns the referrer to notify, if any.
// Activation is a compare-and-set on the user status, so a second call for the same
// user fails with ErrAlreadyRegistered and pays nothing.
func (s *RegistrationService) CompleteRegistration(ctx context.Context, telegramID int64) (*int64, error) {
	var referrerID *int64

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		err := s.users.UpdateStatus(ctx, telegramID, model.UserStatusActive)
		if errors.Is(err, repository.ErrStatusUnchanged) {
			return ErrAlreadyRegistered
		}
		if err != nil {
			return fmt.Errorf("failed to activate user: %w", err)
		}

		err = s.users.AddPoints(ctx, telegramID, model.RegistrationBonus, model.RegistrationBonusReason)
		if err != nil {
			return fmt.Errorf("failed to add registration bonus: %w", err)
		}

		// The referrer is fixed at creation, so reading it back here sees the value
		// recorded at registration time.
		user, err := s.users.GetUser(ctx, telegramID)
		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}

		id, ok := user.Referrer.ID()
		if !ok {
			return nil
		}

		err = s.referrals.ConfirmReferral(ctx, id, telegramID)
		if errors.Is(err, repository.ErrReferralNotPending) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to confirm referral: %w", err)
		}

		err = s.users.AddPoints(ctx, id, model.ReferralBonus, model.ReferralBonusReason(user.FirstName))
		if err != nil {
			return fmt.Errorf("failed to add referral bonus: %w", err)
		}

		referrerID = &id
		return nil
	})
	if err != nil {
		return nil, err
	}

	return referrerID, nil
}
