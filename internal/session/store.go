package session

import (
	"context"
	"errors"

	"UD_contest_bot/internal/model"
)

var ErrNotFound = errors.New("session not found")

// Store is the keyed session table: one registration session per user id.
// Get returns ErrNotFound for users without a live session. Delete of a missing
// session is not an error.
type Store interface {
	Get(ctx context.Context, userID int64) (*model.Session, error)
	Save(ctx context.Context, s *model.Session) error
	Delete(ctx context.Context, userID int64) error
}
