package session

import (
	"context"
	"time"

	"UD_contest_bot/internal/model"

	"github.com/stretchr/testify/suite"
)

// storeSuite holds the behaviour every Store implementation must share.
type storeSuite struct {
	suite.Suite
	newStore func() Store
	store    Store
}

func (s *storeSuite) SetupTest() {
	s.store = s.newStore()
}

func strPtr(v string) *string {
	return &v
}

func (s *storeSuite) TestSessionLookup() {
	ctx := context.Background()

	s.Run("returns ErrNotFound for unknown user", func() {
		_, err := s.store.Get(ctx, 1)
		s.Require().ErrorIs(err, ErrNotFound)
	})

	s.Run("returns saved session", func() {
		study := model.StudyStatusNew
		sess := &model.Session{
			UserID: 2,
			Step:   model.StepWaitAgeRange,
			Profile: model.ProfileDraft{
				FullName:    strPtr("Ali Valiyev"),
				PhoneNumber: strPtr("+998901234567"),
				Region:      strPtr("Tashkent"),
				StudyStatus: &study,
			},
			UpdatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		}
		s.Require().NoError(s.store.Save(ctx, sess))

		found, err := s.store.Get(ctx, 2)
		s.Require().NoError(err)
		s.Equal(sess, found)
	})
}

func (s *storeSuite) TestSessionOverwrite() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, &model.Session{UserID: 3, Step: model.StepWaitName}))
	s.Require().NoError(s.store.Save(ctx, &model.Session{UserID: 3, Step: model.StepWaitPhone, Profile: model.ProfileDraft{FullName: strPtr("Ali")}}))

	found, err := s.store.Get(ctx, 3)
	s.Require().NoError(err)
	s.Equal(model.StepWaitPhone, found.Step)
	s.Require().NotNil(found.Profile.FullName)
	s.Equal("Ali", *found.Profile.FullName)
}

func (s *storeSuite) TestSessionDeletion() {
	ctx := context.Background()

	s.Run("deletes only the given user", func() {
		s.Require().NoError(s.store.Save(ctx, &model.Session{UserID: 4, Step: model.StepWaitName}))
		s.Require().NoError(s.store.Save(ctx, &model.Session{UserID: 5, Step: model.StepWaitRegion}))

		s.Require().NoError(s.store.Delete(ctx, 4))

		_, err := s.store.Get(ctx, 4)
		s.Require().ErrorIs(err, ErrNotFound)
		other, err := s.store.Get(ctx, 5)
		s.Require().NoError(err)
		s.Equal(model.StepWaitRegion, other.Step)
	})

	s.Run("deleting a missing session is a no-op", func() {
		s.Require().NoError(s.store.Delete(ctx, 404))
	})
}
