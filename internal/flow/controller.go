package flow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"UD_contest_bot/internal/model"
	"UD_contest_bot/internal/repository"
	"UD_contest_bot/internal/service"
	"UD_contest_bot/internal/session"

	"go.uber.org/zap"
)

type UserLookup interface {
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*model.User, error)
}

// Notifier tells a referrer that someone they invited finished registration.
type Notifier interface {
	NotifyReferrer(ctx context.Context, referrerID int64, refereeName string) error
}

type EventPublisher interface {
	Publish(event model.RegistrationEvent)
}

type Recorder interface {
	RegistrationStarted()
	StepCompleted(step model.Step)
	InputRejected(step model.Step)
	RegistrationCompleted(referred bool)
}

type StartEvent struct {
	UserID    int64
	FirstName string
	Username  string
	// Payload is the deep-link argument of /start.
	Payload string
}

type ContactEvent struct {
	UserID int64
	// ContactUserID is the account the shared contact belongs to. Contacts without
	// one (zero) are rejected like contacts of other users.
	ContactUserID int64
	PhoneNumber   string
}

// Controller drives a user through the registration steps. Events of one user are
// handled one at a time; events of different users run in parallel.
type Controller struct {
	registration  service.RegistrationServiceI
	users         UserLookup
	subscriptions service.SubscriptionServiceI
	sessions      session.Store

	notifier  Notifier
	publisher EventPublisher
	metrics   Recorder
	regions   []string
	log       *zap.Logger
	now       func() time.Time

	locks *userLocks
}

type Option func(*Controller)

func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

func WithPublisher(p EventPublisher) Option {
	return func(c *Controller) { c.publisher = p }
}

func WithMetrics(r Recorder) Option {
	return func(c *Controller) { c.metrics = r }
}

// WithRegions replaces the default region list. An empty list is ignored.
func WithRegions(regions []string) Option {
	return func(c *Controller) {
		if len(regions) > 0 {
			c.regions = slices.Clone(regions)
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

func New(
	registration service.RegistrationServiceI,
	users UserLookup,
	subscriptions service.SubscriptionServiceI,
	sessions session.Store,
	opts ...Option,
) *Controller {
	c := &Controller{
		registration:  registration,
		users:         users,
		subscriptions: subscriptions,
		sessions:      sessions,
		notifier:      nopNotifier{},
		publisher:     nopPublisher{},
		metrics:       nopRecorder{},
		regions:       model.DefaultRegions,
		log:           zap.NewNop(),
		now:           time.Now,
		locks:         newUserLocks(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) lock(userID int64) func() {
	return c.locks.lock(userID)
}

// Start handles /start. The user is created on first contact and a fresh session
// begins at the subscription gate.
func (c *Controller) Start(ctx context.Context, ev StartEvent) (Reply, error) {
	defer c.lock(ev.UserID)()

	referrerID := parseReferrer(ev.Payload)
	user, err := c.registration.RegisterUser(ctx, ev.UserID, ev.FirstName, ev.Username, referrerID)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to register user: %w", err)
	}
	if referrerID != nil && !user.Referrer.IsReferred() && user.Status == model.UserStatusNew {
		c.log.Debug("referral ignored",
			zap.Int64("telegram_id", ev.UserID),
			zap.Int64("referrer_id", *referrerID),
		)
	}

	if user.Status == model.UserStatusActive {
		if err := c.sessions.Delete(ctx, ev.UserID); err != nil {
			return Reply{}, fmt.Errorf("failed to delete session: %w", err)
		}
		return Reply{Kind: ReplyAlreadyRegistered}, nil
	}

	ok, missing, err := c.subscriptions.CheckUserSubscription(ctx, ev.UserID)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to check subscription: %w", err)
	}

	sess := &model.Session{UserID: ev.UserID, FirstName: user.FirstName, Step: model.StepWaitChannel}
	if ok {
		sess.Step = model.StepWaitName
	}
	if err := c.save(ctx, sess); err != nil {
		return Reply{}, err
	}
	c.metrics.RegistrationStarted()

	if !ok {
		return Reply{Kind: ReplySubscribe, Step: model.StepWaitChannel, Missing: missing}, nil
	}
	c.metrics.StepCompleted(model.StepWaitChannel)
	return c.prompt(model.StepWaitName, false), nil
}

// CheckSubscription handles the "check again" button of the subscription gate.
func (c *Controller) CheckSubscription(ctx context.Context, userID int64) (Reply, error) {
	defer c.lock(userID)()

	ok, missing, err := c.subscriptions.CheckUserSubscription(ctx, userID)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to check subscription: %w", err)
	}
	if !ok {
		return Reply{Kind: ReplyNotSubscribed, Step: model.StepWaitChannel, Missing: missing}, nil
	}

	user, err := c.users.GetUserByTelegramID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return Reply{Kind: ReplyRestart}, nil
	}
	if err != nil {
		return Reply{}, fmt.Errorf("failed to get user: %w", err)
	}
	if user.Status == model.UserStatusActive {
		if err := c.sessions.Delete(ctx, userID); err != nil {
			return Reply{}, fmt.Errorf("failed to delete session: %w", err)
		}
		return Reply{Kind: ReplyWelcomeBack}, nil
	}

	sess, err := c.sessions.Get(ctx, userID)
	switch {
	case errors.Is(err, session.ErrNotFound):
		sess = &model.Session{UserID: userID, FirstName: user.FirstName}
	case err != nil:
		return Reply{}, fmt.Errorf("failed to get session: %w", err)
	case sess.Step != model.StepWaitChannel:
		return c.prompt(sess.Step, false), nil
	}

	sess.Step = model.StepWaitName
	if err := c.save(ctx, sess); err != nil {
		return Reply{}, err
	}
	c.metrics.StepCompleted(model.StepWaitChannel)
	return c.prompt(model.StepWaitName, false), nil
}

// Text handles a plain text message. Only the name step accepts text.
func (c *Controller) Text(ctx context.Context, userID int64, text string) (Reply, error) {
	defer c.lock(userID)()

	sess, err := c.sessions.Get(ctx, userID)
	if errors.Is(err, session.ErrNotFound) {
		return Reply{Kind: ReplyNone}, nil
	}
	if err != nil {
		return Reply{}, fmt.Errorf("failed to get session: %w", err)
	}

	if sess.Step != model.StepWaitName {
		return c.reject(sess.Step), nil
	}

	name := strings.TrimSpace(text)
	if name == "" {
		return c.reject(sess.Step), nil
	}

	sess.Profile.FullName = &name
	return c.advance(ctx, sess, model.StepWaitPhone)
}

// Contact handles a shared contact on the phone step.
func (c *Controller) Contact(ctx context.Context, ev ContactEvent) (Reply, error) {
	defer c.lock(ev.UserID)()

	sess, err := c.sessions.Get(ctx, ev.UserID)
	if errors.Is(err, session.ErrNotFound) {
		return Reply{Kind: ReplyNone}, nil
	}
	if err != nil {
		return Reply{}, fmt.Errorf("failed to get session: %w", err)
	}

	if sess.Step != model.StepWaitPhone {
		return c.reject(sess.Step), nil
	}
	if ev.ContactUserID != ev.UserID {
		c.metrics.InputRejected(sess.Step)
		return Reply{Kind: ReplyOwnContactOnly, Step: sess.Step, Corrective: true}, nil
	}

	phone := normalizePhone(ev.PhoneNumber)
	if phone == "" {
		return c.reject(sess.Step), nil
	}

	owner, err := c.users.GetUserByPhone(ctx, phone)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return Reply{}, fmt.Errorf("failed to check phone: %w", err)
	case owner.TelegramID != ev.UserID:
		c.metrics.InputRejected(sess.Step)
		return Reply{Kind: ReplyPhoneTaken, Step: sess.Step, Corrective: true}, nil
	}

	sess.Profile.PhoneNumber = &phone
	return c.advance(ctx, sess, model.StepWaitRegion)
}

// Select handles an inline keyboard choice such as "region:Tashkent".
// The last choice finalizes the registration.
func (c *Controller) Select(ctx context.Context, userID int64, data string) (Reply, error) {
	defer c.lock(userID)()

	sess, err := c.sessions.Get(ctx, userID)
	if errors.Is(err, session.ErrNotFound) {
		return Reply{Kind: ReplyStale}, nil
	}
	if err != nil {
		return Reply{}, fmt.Errorf("failed to get session: %w", err)
	}

	switch sess.Step {
	case model.StepWaitRegion:
		value, ok := strings.CutPrefix(data, selectRegion)
		if !ok || !slices.Contains(c.regions, value) {
			return c.reject(sess.Step), nil
		}
		sess.Profile.Region = &value
		return c.advance(ctx, sess, model.StepWaitStudyStatus)

	case model.StepWaitStudyStatus:
		value, ok := strings.CutPrefix(data, selectStudy)
		if !ok {
			return c.reject(sess.Step), nil
		}
		status, ok := model.ParseStudyStatus(value)
		if !ok {
			return c.reject(sess.Step), nil
		}
		sess.Profile.StudyStatus = &status
		return c.advance(ctx, sess, model.StepWaitAgeRange)

	case model.StepWaitAgeRange:
		value, ok := strings.CutPrefix(data, selectAge)
		if !ok {
			return c.reject(sess.Step), nil
		}
		age, ok := model.ParseAgeRange(value)
		if !ok {
			return c.reject(sess.Step), nil
		}
		sess.Profile.AgeRange = &age
		if err := c.save(ctx, sess); err != nil {
			return Reply{}, err
		}
		return c.finalize(ctx, sess)

	default:
		return c.reject(sess.Step), nil
	}
}

// Reset drops the user's registration progress.
func (c *Controller) Reset(ctx context.Context, userID int64) (Reply, error) {
	defer c.lock(userID)()

	if err := c.sessions.Delete(ctx, userID); err != nil {
		return Reply{}, fmt.Errorf("failed to delete session: %w", err)
	}
	return Reply{Kind: ReplyCancelled}, nil
}

func (c *Controller) finalize(ctx context.Context, sess *model.Session) (Reply, error) {
	err := c.registration.UpdateUserProfile(ctx, sess.UserID, sess.Profile.Update())
	if errors.Is(err, repository.ErrPhoneTaken) {
		// Someone else bound the number after the contact step.
		sess.Profile.PhoneNumber = nil
		sess.Step = model.StepWaitPhone
		if err := c.save(ctx, sess); err != nil {
			return Reply{}, err
		}
		c.metrics.InputRejected(model.StepWaitPhone)
		return Reply{Kind: ReplyPhoneTaken, Step: model.StepWaitPhone, Corrective: true}, nil
	}
	if err != nil {
		return Reply{}, fmt.Errorf("failed to save profile: %w", err)
	}

	referrerID, err := c.registration.CompleteRegistration(ctx, sess.UserID)
	if errors.Is(err, service.ErrAlreadyRegistered) {
		if err := c.sessions.Delete(ctx, sess.UserID); err != nil {
			return Reply{}, fmt.Errorf("failed to delete session: %w", err)
		}
		return Reply{Kind: ReplyAlreadyRegistered}, nil
	}
	if err != nil {
		return Reply{}, fmt.Errorf("failed to complete registration: %w", err)
	}

	if err := c.sessions.Delete(ctx, sess.UserID); err != nil {
		c.log.Warn("failed to delete finished session",
			zap.Int64("telegram_id", sess.UserID),
			zap.Error(err),
		)
	}

	c.metrics.StepCompleted(model.StepWaitAgeRange)
	c.metrics.RegistrationCompleted(referrerID != nil)

	referee := model.User{FirstName: sess.FirstName, FullName: sess.Profile.FullName}
	name := referee.DisplayName()
	if referrerID != nil {
		c.notifyReferrer(ctx, *referrerID, name)
	}

	c.publisher.Publish(model.RegistrationEvent{
		TelegramID:  sess.UserID,
		FullName:    name,
		Region:      deref(sess.Profile.Region),
		ReferrerID:  referrerID,
		CompletedAt: c.now().UTC(),
	})

	return Reply{Kind: ReplyCompleted, FullName: name}, nil
}

// notifyReferrer is best effort. The payout is already committed, so a failed
// notification is only logged.
func (c *Controller) notifyReferrer(ctx context.Context, referrerID int64, refereeName string) {
	if err := c.notifier.NotifyReferrer(ctx, referrerID, refereeName); err != nil {
		c.log.Warn("failed to notify referrer",
			zap.Int64("referrer_id", referrerID),
			zap.Error(err),
		)
	}
}

func (c *Controller) advance(ctx context.Context, sess *model.Session, next model.Step) (Reply, error) {
	done := sess.Step
	sess.Step = next
	if err := c.save(ctx, sess); err != nil {
		return Reply{}, err
	}
	c.metrics.StepCompleted(done)
	return c.prompt(next, false), nil
}

func (c *Controller) reject(step model.Step) Reply {
	c.metrics.InputRejected(step)
	return c.prompt(step, true)
}

func (c *Controller) prompt(step model.Step, corrective bool) Reply {
	r := Reply{Step: step, Corrective: corrective}
	switch step {
	case model.StepWaitChannel:
		r.Kind = ReplySubscribe
	case model.StepWaitName:
		r.Kind = ReplyAskName
	case model.StepWaitPhone:
		r.Kind = ReplyAskPhone
		if corrective {
			r.Kind = ReplyPhoneRequired
		}
	case model.StepWaitRegion:
		r.Kind = ReplyAskRegion
		r.Regions = c.regions
	case model.StepWaitStudyStatus:
		r.Kind = ReplyAskStudyStatus
	case model.StepWaitAgeRange:
		r.Kind = ReplyAskAgeRange
	default:
		r.Kind = ReplyStale
	}
	return r
}

func (c *Controller) save(ctx context.Context, sess *model.Session) error {
	sess.UpdatedAt = c.now().UTC()
	if err := c.sessions.Save(ctx, sess); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// parseReferrer reads a referrer id from a /start payload made only of digits.
func parseReferrer(payload string) *int64 {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil
	}
	for _, r := range payload {
		if r < '0' || r > '9' {
			return nil
		}
	}
	id, err := strconv.ParseInt(payload, 10, 64)
	if err != nil || id == 0 {
		return nil
	}
	return &id
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type nopNotifier struct{}

func (nopNotifier) NotifyReferrer(context.Context, int64, string) error { return nil }

type nopPublisher struct{}

func (nopPublisher) Publish(model.RegistrationEvent) {}

type nopRecorder struct{}

func (nopRecorder) RegistrationStarted()       {}
func (nopRecorder) StepCompleted(model.Step)   {}
func (nopRecorder) InputRejected(model.Step)   {}
func (nopRecorder) RegistrationCompleted(bool) {}
