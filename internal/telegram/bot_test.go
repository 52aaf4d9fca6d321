package telegram

import (
	"context"
	"sync"
	"testing"
	"time"

	"UD_contest_bot/internal/flow"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRegistration struct {
	mock.Mock
}

func (m *mockRegistration) Start(ctx context.Context, ev flow.StartEvent) (flow.Reply, error) {
	args := m.Called(ctx, ev)
	return args.Get(0).(flow.Reply), args.Error(1)
}

func (m *mockRegistration) CheckSubscription(ctx context.Context, userID int64) (flow.Reply, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(flow.Reply), args.Error(1)
}

func (m *mockRegistration) Text(ctx context.Context, userID int64, text string) (flow.Reply, error) {
	args := m.Called(ctx, userID, text)
	return args.Get(0).(flow.Reply), args.Error(1)
}

func (m *mockRegistration) Contact(ctx context.Context, ev flow.ContactEvent) (flow.Reply, error) {
	args := m.Called(ctx, ev)
	return args.Get(0).(flow.Reply), args.Error(1)
}

func (m *mockRegistration) Select(ctx context.Context, userID int64, data string) (flow.Reply, error) {
	args := m.Called(ctx, userID, data)
	return args.Get(0).(flow.Reply), args.Error(1)
}

func (m *mockRegistration) Reset(ctx context.Context, userID int64) (flow.Reply, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(flow.Reply), args.Error(1)
}

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	updates  chan tgbotapi.Update
	stopped  bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update, 10)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeAPI) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, msg.Text)
		}
	}
	return out
}

func messageUpdate(text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: 7, FirstName: "Ali", UserName: "ali"},
		Chat:      &tgbotapi.Chat{ID: 7},
		Text:      text,
	}
	if len(text) > 0 && text[0] == '/' {
		end := len(text)
		for i, r := range text {
			if r == ' ' {
				end = i
				break
			}
		}
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: end}}
	}
	return tgbotapi.Update{Message: msg}
}

func TestBot_HandleUpdate(t *testing.T) {
	tests := []struct {
		name          string
		update        tgbotapi.Update
		setupMocks    func(reg *mockRegistration)
		expectedTexts []string
	}{
		{
			name:   "Start command with referral payload",
			update: messageUpdate("/start 12345"),
			setupMocks: func(reg *mockRegistration) {
				reg.On("Start", mock.Anything, flow.StartEvent{UserID: 7, FirstName: "Ali", Username: "ali", Payload: "12345"}).
					Return(flow.Reply{Kind: flow.ReplyAskName}, nil)
			},
			expectedTexts: []string{textAskName},
		},
		{
			name:   "Cancel command",
			update: messageUpdate("/cancel"),
			setupMocks: func(reg *mockRegistration) {
				reg.On("Reset", mock.Anything, int64(7)).Return(flow.Reply{Kind: flow.ReplyCancelled}, nil)
			},
			expectedTexts: []string{textCancelled},
		},
		{
			name:   "Plain text",
			update: messageUpdate("Ali Valiyev"),
			setupMocks: func(reg *mockRegistration) {
				reg.On("Text", mock.Anything, int64(7), "Ali Valiyev").Return(flow.Reply{Kind: flow.ReplyAskPhone}, nil)
			},
			expectedTexts: []string{textAskPhone},
		},
		{
			name: "Shared contact",
			update: tgbotapi.Update{Message: &tgbotapi.Message{
				From:    &tgbotapi.User{ID: 7},
				Chat:    &tgbotapi.Chat{ID: 7},
				Contact: &tgbotapi.Contact{PhoneNumber: "998901234567", UserID: 7},
			}},
			setupMocks: func(reg *mockRegistration) {
				reg.On("Contact", mock.Anything, flow.ContactEvent{UserID: 7, ContactUserID: 7, PhoneNumber: "998901234567"}).
					Return(flow.Reply{Kind: flow.ReplyAskRegion, Regions: []string{"Tashkent"}}, nil)
			},
			expectedTexts: []string{textAskRegion},
		},
		{
			name:   "Text outside the flow sends nothing",
			update: messageUpdate("hello"),
			setupMocks: func(reg *mockRegistration) {
				reg.On("Text", mock.Anything, int64(7), "hello").Return(flow.Reply{Kind: flow.ReplyNone}, nil)
			},
		},
		{
			name:   "Failure answers with a generic message",
			update: messageUpdate("/start"),
			setupMocks: func(reg *mockRegistration) {
				reg.On("Start", mock.Anything, mock.Anything).Return(flow.Reply{}, assert.AnError)
			},
			expectedTexts: []string{textTryAgain},
		},
		{
			name: "Selection callback",
			update: tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
				ID:      "cb",
				From:    &tgbotapi.User{ID: 7},
				Message: &tgbotapi.Message{MessageID: 3, Chat: &tgbotapi.Chat{ID: 7}},
				Data:    "region:Tashkent",
			}},
			setupMocks: func(reg *mockRegistration) {
				reg.On("Select", mock.Anything, int64(7), "region:Tashkent").Return(flow.Reply{Kind: flow.ReplyAskStudyStatus}, nil)
			},
			expectedTexts: []string{textAskStudyStatus},
		},
		{
			name: "Subscription recheck callback",
			update: tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
				ID:      "cb",
				From:    &tgbotapi.User{ID: 7},
				Message: &tgbotapi.Message{MessageID: 3, Chat: &tgbotapi.Chat{ID: 7}},
				Data:    flow.CheckSubscriptionData,
			}},
			setupMocks: func(reg *mockRegistration) {
				reg.On("CheckSubscription", mock.Anything, int64(7)).Return(flow.Reply{Kind: flow.ReplyWelcomeBack}, nil)
			},
			expectedTexts: []string{textWelcomeBack},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &mockRegistration{}
			tt.setupMocks(reg)
			api := newFakeAPI()
			bot := NewBot(Config{}, api, reg, nil, nil)

			bot.HandleUpdate(context.Background(), tt.update)

			assert.Equal(t, tt.expectedTexts, api.sentTexts())
			reg.AssertExpectations(t)
		})
	}
}

func TestBot_CallbackIsAnsweredAndKeyboardCleared(t *testing.T) {
	reg := &mockRegistration{}
	reg.On("Select", mock.Anything, int64(7), "age:25-34").Return(flow.Reply{Kind: flow.ReplyCompleted, FullName: "Ali"}, nil)
	api := newFakeAPI()
	bot := NewBot(Config{}, api, reg, nil, nil)

	bot.HandleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: 7},
		Message: &tgbotapi.Message{MessageID: 3, Chat: &tgbotapi.Chat{ID: 7}},
		Data:    "age:25-34",
	}})

	require.Len(t, api.requests, 2)
	answer, ok := api.requests[0].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	assert.Equal(t, "cb", answer.CallbackQueryID)
	edit, ok := api.requests[1].(tgbotapi.EditMessageReplyMarkupConfig)
	require.True(t, ok)
	assert.Equal(t, 3, edit.MessageID)
}

func TestBot_NotSubscribedShowsAlert(t *testing.T) {
	reg := &mockRegistration{}
	reg.On("CheckSubscription", mock.Anything, int64(7)).Return(flow.Reply{Kind: flow.ReplyNotSubscribed}, nil)
	api := newFakeAPI()
	bot := NewBot(Config{}, api, reg, nil, nil)

	bot.HandleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: 7},
		Message: &tgbotapi.Message{MessageID: 3, Chat: &tgbotapi.Chat{ID: 7}},
		Data:    flow.CheckSubscriptionData,
	}})

	require.Len(t, api.requests, 1)
	answer, ok := api.requests[0].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	assert.True(t, answer.ShowAlert)
}

func TestBot_RunStopsOnCancel(t *testing.T) {
	reg := &mockRegistration{}
	reg.On("Text", mock.Anything, int64(7), "hi").Return(flow.Reply{Kind: flow.ReplyAskPhone}, nil)
	api := newFakeAPI()
	bot := NewBot(Config{Workers: 2}, api, reg, nil, nil)
	api.updates <- messageUpdate("hi")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bot.Run(ctx) }()

	require.Eventually(t, func() bool { return len(api.sentTexts()) == 1 }, time.Second, 10*time.Millisecond)
	cancel()

	require.NoError(t, <-done)
	assert.True(t, api.stopped)
}
