package service

import (
	"context"
	"fmt"

	"UD_contest_bot/internal/model"

	"golang.org/x/sync/errgroup"
)

const maxConcurrentChecks = 4

type SubscriptionService struct {
	channels ChannelRepository
	checker  MembershipChecker
}

func NewSubscriptionService(channels ChannelRepository, checker MembershipChecker) *SubscriptionService {
	return &SubscriptionService{
		channels: channels,
		checker:  checker,
	}
}

// CheckUserSubscription reports whether the user has joined every required channel.
// Missing channels are returned in their configured order.
func (s *SubscriptionService) CheckUserSubscription(ctx context.Context, telegramID int64) (bool, []model.Channel, error) {
	channels, err := s.channels.ListChannels(ctx)
	if err != nil {
		return false, nil, fmt.Errorf("failed to list channels: %w", err)
	}

	joined := make([]bool, len(channels))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentChecks)
	for i, ch := range channels {
		g.Go(func() error {
			ok, err := s.checker.IsMember(gctx, ch.ChatID, telegramID)
			if err != nil {
				return fmt.Errorf("%w %q: %w", ErrChannelCheckFailed, ch.Name, err)
			}
			joined[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, nil, err
	}

	missing := make([]model.Channel, 0)
	for i, ch := range channels {
		if !joined[i] {
			missing = append(missing, ch)
		}
	}

	return len(missing) == 0, missing, nil
}
