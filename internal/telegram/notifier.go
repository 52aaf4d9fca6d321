package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Notifier struct {
	api Sender
}

func NewNotifier(api Sender) *Notifier {
	return &Notifier{api: api}
}

// NotifyReferrer fails when the referrer blocked the bot or never opened it.
func (n *Notifier) NotifyReferrer(ctx context.Context, referrerID int64, refereeName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := n.api.Send(tgbotapi.NewMessage(referrerID, ReferralText(refereeName))); err != nil {
		return fmt.Errorf("failed to send referral notification: %w", err)
	}
	return nil
}
