package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"

	"UD_contest_bot/internal/flow"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	defaultUpdateTimeout = 60
	defaultWorkers       = 32
)

type Config struct {
	BotToken      string `yaml:"botToken"`
	Debug         bool   `yaml:"debug"`
	UpdateTimeout int    `yaml:"updateTimeout"`
	Workers       int    `yaml:"workers"`
}

func NewAPI(cfg Config) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bot: %w", err)
	}

	api.Debug = cfg.Debug

	return api, nil
}

// API is the part of tgbotapi.BotAPI the bot uses.
type API interface {
	Sender
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Registration interface {
	Start(ctx context.Context, ev flow.StartEvent) (flow.Reply, error)
	CheckSubscription(ctx context.Context, userID int64) (flow.Reply, error)
	Text(ctx context.Context, userID int64, text string) (flow.Reply, error)
	Contact(ctx context.Context, ev flow.ContactEvent) (flow.Reply, error)
	Select(ctx context.Context, userID int64, data string) (flow.Reply, error)
	Reset(ctx context.Context, userID int64) (flow.Reply, error)
}

type UpdateObserver interface {
	ObserveUpdate(kind string, err error, start time.Time)
}

type Bot struct {
	api          API
	registration Registration
	observer     UpdateObserver
	log          *zap.Logger

	updateTimeout int
	workers       int
}

func NewBot(cfg Config, api API, registration Registration, observer UpdateObserver, log *zap.Logger) *Bot {
	b := &Bot{
		api:           api,
		registration:  registration,
		observer:      observer,
		log:           log,
		updateTimeout: cfg.UpdateTimeout,
		workers:       cfg.Workers,
	}
	if b.updateTimeout <= 0 {
		b.updateTimeout = defaultUpdateTimeout
	}
	if b.workers <= 0 {
		b.workers = defaultWorkers
	}
	if b.log == nil {
		b.log = zap.NewNop()
	}
	return b
}

// Run long-polls Telegram until ctx is cancelled. Each update is handled in its own
// goroutine, at most b.workers at a time. Updates already being handled are allowed
// to finish.
func (b *Bot) Run(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = b.updateTimeout

	updates := b.api.GetUpdatesChan(updateConfig)
	defer b.api.StopReceivingUpdates()

	handlerCtx := context.WithoutCancel(ctx)
	sem := make(chan struct{}, b.workers)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return nil
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-sem }()
				b.HandleUpdate(handlerCtx, update)
			}()
		}
	}
}

func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()

	var (
		kind   string
		chatID int64
		userID int64
		reply  flow.Reply
		err    error
	)

	switch {
	case update.CallbackQuery != nil:
		kind = "callback"
		reply, err = b.handleCallback(ctx, update.CallbackQuery)
		userID = update.CallbackQuery.From.ID
		if update.CallbackQuery.Message != nil {
			chatID = update.CallbackQuery.Message.Chat.ID
		} else {
			chatID = userID
		}

	case update.Message != nil && update.Message.From != nil:
		msg := update.Message
		chatID = msg.Chat.ID
		userID = msg.From.ID
		kind, reply, err = b.handleMessage(ctx, msg)

	default:
		return
	}

	if b.observer != nil {
		b.observer.ObserveUpdate(kind, err, start)
	}

	if err != nil {
		b.log.Error("failed to handle update",
			zap.String("kind", kind),
			zap.Int64("telegram_id", userID),
			zap.Error(err),
		)
		b.send(TryAgain(chatID))
		return
	}

	for _, c := range Render(chatID, reply) {
		b.send(c)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) (string, flow.Reply, error) {
	userID := msg.From.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			reply, err := b.registration.Start(ctx, flow.StartEvent{
				UserID:    userID,
				FirstName: msg.From.FirstName,
				Username:  msg.From.UserName,
				Payload:   msg.CommandArguments(),
			})
			return "start", reply, err
		case "cancel":
			reply, err := b.registration.Reset(ctx, userID)
			return "cancel", reply, err
		}
	}

	if msg.Contact != nil {
		reply, err := b.registration.Contact(ctx, flow.ContactEvent{
			UserID:        userID,
			ContactUserID: msg.Contact.UserID,
			PhoneNumber:   msg.Contact.PhoneNumber,
		})
		return "contact", reply, err
	}

	reply, err := b.registration.Text(ctx, userID, msg.Text)
	return "text", reply, err
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) (flow.Reply, error) {
	var (
		reply flow.Reply
		err   error
	)
	if query.Data == flow.CheckSubscriptionData {
		reply, err = b.registration.CheckSubscription(ctx, query.From.ID)
	} else {
		reply, err = b.registration.Select(ctx, query.From.ID, query.Data)
	}

	answer := tgbotapi.NewCallback(query.ID, "")
	if err == nil && reply.Kind == flow.ReplyNotSubscribed {
		answer = tgbotapi.NewCallbackWithAlert(query.ID, textNotSubscribedAlert)
	}
	if _, reqErr := b.api.Request(answer); reqErr != nil {
		b.log.Debug("failed to answer callback", zap.Error(reqErr))
	}

	// Buttons of an answered step must not be pressed twice.
	if err == nil && query.Message != nil && !reply.Corrective && reply.Kind != flow.ReplyNotSubscribed {
		edit := tgbotapi.NewEditMessageReplyMarkup(query.Message.Chat.ID, query.Message.MessageID,
			tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
		if _, reqErr := b.api.Request(edit); reqErr != nil {
			b.log.Debug("failed to clear keyboard", zap.Error(reqErr))
		}
	}

	return reply, err
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.log.Warn("failed to send message", zap.Error(err))
	}
}
