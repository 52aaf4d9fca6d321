package flow

import (
	"context"
	"maps"
	"slices"
	"sync"

	"UD_contest_bot/internal/model"
	"UD_contest_bot/internal/repository"
)

type pointsEntry struct {
	telegramID int64
	amount     int
	reason     string
}

// memUsers is an in-memory user store with the same status and phone rules as Postgres.
type memUsers struct {
	mu      sync.Mutex
	users   map[int64]*model.User
	history []pointsEntry
	writes  int

	addPointsErr error
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[int64]*model.User)}
}

func (m *memUsers) put(u model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.TelegramID] = &u
}

func (m *memUsers) get(id int64) model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.users[id]
}

func (m *memUsers) snapshot() (map[int64]model.User, []pointsEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make(map[int64]model.User, len(m.users))
	for id, u := range m.users {
		users[id] = *u
	}
	return users, slices.Clone(m.history)
}

func (m *memUsers) restore(users map[int64]model.User, history []pointsEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = make(map[int64]*model.User, len(users))
	for id, u := range users {
		m.users[id] = &u
	}
	m.history = history
}

func (m *memUsers) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *memUsers) GetUser(_ context.Context, telegramID int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[telegramID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (m *memUsers) GetUserByPhone(_ context.Context, phone string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.PhoneNumber != nil && *u.PhoneNumber == phone {
			out := *u
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) CreateUser(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.TelegramID]; ok {
		return repository.ErrAlreadyExists
	}
	m.writes++
	u := *user
	m.users[u.TelegramID] = &u
	return nil
}

func (m *memUsers) UpdateProfile(_ context.Context, telegramID int64, update model.ProfileUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[telegramID]
	if !ok {
		return repository.ErrNotFound
	}
	if update.PhoneNumber != nil {
		for id, other := range m.users {
			if id != telegramID && other.PhoneNumber != nil && *other.PhoneNumber == *update.PhoneNumber {
				return repository.ErrPhoneTaken
			}
		}
	}
	m.writes++
	if update.FullName != nil {
		u.FullName = update.FullName
	}
	if update.PhoneNumber != nil {
		u.PhoneNumber = update.PhoneNumber
	}
	if update.Region != nil {
		u.Region = update.Region
	}
	if update.StudyStatus != nil {
		u.StudyStatus = update.StudyStatus
	}
	if update.AgeRange != nil {
		u.AgeRange = update.AgeRange
	}
	return nil
}

func (m *memUsers) UpdateStatus(_ context.Context, telegramID int64, status model.UserStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[telegramID]
	if !ok {
		return repository.ErrNotFound
	}
	if !slices.Contains(status.Before(), u.Status) {
		return repository.ErrStatusUnchanged
	}
	m.writes++
	u.Status = status
	return nil
}

func (m *memUsers) AddPoints(_ context.Context, telegramID int64, amount int, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addPointsErr != nil {
		return m.addPointsErr
	}
	u, ok := m.users[telegramID]
	if !ok {
		return repository.ErrNotFound
	}
	m.writes++
	u.Points += amount
	m.history = append(m.history, pointsEntry{telegramID: telegramID, amount: amount, reason: reason})
	return nil
}

func (m *memUsers) GetTopUsers(context.Context, int) ([]*model.LeaderboardEntry, error) {
	return nil, nil
}

type referralKey struct {
	referrer, referee int64
}

type memReferrals struct {
	mu        sync.Mutex
	referrals map[referralKey]model.ReferralStatus
}

func newMemReferrals() *memReferrals {
	return &memReferrals{referrals: make(map[referralKey]model.ReferralStatus)}
}

func (m *memReferrals) status(referrerID, refereeID int64) (model.ReferralStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.referrals[referralKey{referrerID, refereeID}]
	return s, ok
}

func (m *memReferrals) snapshot() map[referralKey]model.ReferralStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.referrals)
}

func (m *memReferrals) restore(referrals map[referralKey]model.ReferralStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.referrals = referrals
}

func (m *memReferrals) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.referrals)
}

func (m *memReferrals) CreateReferral(_ context.Context, referrerID, refereeID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.referrals[referralKey{referrerID, refereeID}] = model.ReferralStatusPending
	return nil
}

func (m *memReferrals) ConfirmReferral(_ context.Context, referrerID, refereeID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := referralKey{referrerID, refereeID}
	if m.referrals[k] != model.ReferralStatusPending {
		return repository.ErrReferralNotPending
	}
	m.referrals[k] = model.ReferralStatusConfirmed
	return nil
}

func (m *memReferrals) GetReferralStats(context.Context, int64) (*model.ReferralStats, error) {
	return &model.ReferralStats{}, nil
}

// snapshotTx restores both stores when fn fails, the way a rolled back
// transaction would.
type snapshotTx struct {
	users     *memUsers
	referrals *memReferrals
}

func (tx snapshotTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	users, history := tx.users.snapshot()
	referrals := tx.referrals.snapshot()

	if err := fn(ctx); err != nil {
		tx.users.restore(users, history)
		tx.referrals.restore(referrals)
		return err
	}
	return nil
}

type blockingSubscriptions struct {
	blockUser int64
	entered   chan struct{}
	release   chan struct{}
}

func newBlockingSubscriptions(userID int64) *blockingSubscriptions {
	return &blockingSubscriptions{
		blockUser: userID,
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
}

func (b *blockingSubscriptions) CheckUserSubscription(_ context.Context, telegramID int64) (bool, []model.Channel, error) {
	if telegramID == b.blockUser {
		close(b.entered)
		<-b.release
	}
	return true, []model.Channel{}, nil
}

type fakeSubscriptions struct {
	mu      sync.Mutex
	missing []model.Channel
	err     error
}

func (f *fakeSubscriptions) setMissing(missing ...model.Channel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.missing = missing
}

func (f *fakeSubscriptions) CheckUserSubscription(context.Context, int64) (bool, []model.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, nil, f.err
	}
	missing := slices.Clone(f.missing)
	if missing == nil {
		missing = []model.Channel{}
	}
	return len(missing) == 0, missing, nil
}

type notification struct {
	referrerID  int64
	refereeName string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification
	err  error
}

func (f *fakeNotifier) NotifyReferrer(_ context.Context, referrerID int64, refereeName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, notification{referrerID: referrerID, refereeName: refereeName})
	return f.err
}

type fakePublisher struct {
	mu     sync.Mutex
	events []model.RegistrationEvent
}

func (f *fakePublisher) Publish(event model.RegistrationEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}
