package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"UD_contest_bot/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

const (
	usersPKey       = "users_pkey"
	usersPhoneKey   = "users_phone_number_key"
	userColumnsList = "telegram_id, first_name, username, full_name, phone_number, region, study_status, age_range, status, referrer_id, points, created_at, activated_at"
)

type User struct {
	TelegramID  int64      `db:"telegram_id"`
	FirstName   string     `db:"first_name"`
	Username    *string    `db:"username"`
	FullName    *string    `db:"full_name"`
	PhoneNumber *string    `db:"phone_number"`
	Region      *string    `db:"region"`
	StudyStatus *string    `db:"study_status"`
	AgeRange    *string    `db:"age_range"`
	Status      string     `db:"status"`
	ReferrerID  *int64     `db:"referrer_id"`
	Points      int        `db:"points"`
	CreatedAt   time.Time  `db:"created_at"`
	ActivatedAt *time.Time `db:"activated_at"`
}

func (u User) toModel() *model.User {
	user := &model.User{
		TelegramID:  u.TelegramID,
		FirstName:   u.FirstName,
		FullName:    u.FullName,
		PhoneNumber: u.PhoneNumber,
		Region:      u.Region,
		Status:      model.UserStatus(u.Status),
		Referrer:    model.ReferrerFromPtr(u.ReferrerID),
		Points:      u.Points,
		CreatedAt:   u.CreatedAt,
		ActivatedAt: u.ActivatedAt,
	}
	if u.Username != nil {
		user.Username = *u.Username
	}
	if u.StudyStatus != nil {
		s := model.StudyStatus(*u.StudyStatus)
		user.StudyStatus = &s
	}
	if u.AgeRange != nil {
		a := model.AgeRange(*u.AgeRange)
		user.AgeRange = &a
	}
	return user
}

func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if user.Status == "" {
		user.Status = model.UserStatusNew
	}

	var username *string
	if user.Username != "" {
		username = &user.Username
	}

	query, args, err := squirrel.
		Insert("users").
		SetMap(map[string]interface{}{
			"telegram_id": user.TelegramID,
			"first_name":  user.FirstName,
			"username":    username,
			"status":      string(user.Status),
			"referrer_id": user.Referrer.Ptr(),
			"points":      user.Points,
			"created_at":  user.CreatedAt,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build user insert query: %w", err)
	}

	_, err = r.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err, usersPKey) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

func (r *Repository) GetUser(ctx context.Context, telegramID int64) (*model.User, error) {
	return r.getUserWhere(ctx, squirrel.Eq{"telegram_id": telegramID})
}

func (r *Repository) GetUserByPhone(ctx context.Context, phone string) (*model.User, error) {
	return r.getUserWhere(ctx, squirrel.Eq{"phone_number": phone})
}

func (r *Repository) getUserWhere(ctx context.Context, where squirrel.Eq) (*model.User, error) {
	var user User
	query, args, err := squirrel.
		Select(userColumnsList).
		From("users").
		Where(where).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = r.conn(ctx).GetContext(ctx, &user, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return user.toModel(), nil
}

func (r *Repository) UpdateProfile(ctx context.Context, telegramID int64, update model.ProfileUpdate) error {
	if update.IsEmpty() {
		return nil
	}

	fields := map[string]interface{}{}
	if update.FullName != nil {
		fields["full_name"] = *update.FullName
	}
	if update.PhoneNumber != nil {
		fields["phone_number"] = *update.PhoneNumber
	}
	if update.Region != nil {
		fields["region"] = *update.Region
	}
	if update.StudyStatus != nil {
		fields["study_status"] = string(*update.StudyStatus)
	}
	if update.AgeRange != nil {
		fields["age_range"] = string(*update.AgeRange)
	}

	query, args, err := squirrel.
		Update("users").
		SetMap(fields).
		Where(squirrel.Eq{"telegram_id": telegramID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build profile update query: %w", err)
	}

	result, err := r.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err, usersPhoneKey) {
			return ErrPhoneTaken
		}
		return fmt.Errorf("failed to update profile: %w", err)
	}

	return requireAffected(result)
}

// UpdateStatus moves a user forward to status. A user already at or past status is
// left untouched and ErrStatusUnchanged is returned, which makes the call usable as
// a compare-and-set guard.
func (r *Repository) UpdateStatus(ctx context.Context, telegramID int64, status model.UserStatus) error {
	before := status.Before()
	if len(before) == 0 {
		return ErrStatusUnchanged
	}

	from := make([]string, len(before))
	for i, s := range before {
		from[i] = string(s)
	}

	builder := squirrel.
		Update("users").
		Set("status", string(status)).
		Where(squirrel.Eq{
			"telegram_id": telegramID,
			"status":      from,
		}).
		PlaceholderFormat(squirrel.Dollar)
	if status == model.UserStatusActive {
		builder = builder.Set("activated_at", time.Now().UTC())
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build status update query: %w", err)
	}

	result, err := r.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows > 0 {
		return nil
	}

	if _, err := r.GetUser(ctx, telegramID); err != nil {
		return err
	}
	return ErrStatusUnchanged
}

func (r *Repository) AddPoints(ctx context.Context, telegramID int64, amount int, reason string) error {
	return r.WithinTransaction(ctx, func(ctx context.Context) error {
		updateQuery, updateArgs, err := squirrel.
			Update("users").
			Set("points", squirrel.Expr("points + ?", amount)).
			Where(squirrel.Eq{"telegram_id": telegramID}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build points update query: %w", err)
		}

		result, err := r.conn(ctx).ExecContext(ctx, updateQuery, updateArgs...)
		if err != nil {
			return fmt.Errorf("failed to update points: %w", err)
		}
		if err := requireAffected(result); err != nil {
			return err
		}

		historyQuery, historyArgs, err := squirrel.
			Insert("points_history").
			SetMap(map[string]interface{}{
				"id":               uuid.New(),
				"user_telegram_id": telegramID,
				"amount":           amount,
				"reason":           reason,
				"created_at":       time.Now().UTC(),
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build points history insert query: %w", err)
		}

		_, err = r.conn(ctx).ExecContext(ctx, historyQuery, historyArgs...)
		if err != nil {
			return fmt.Errorf("failed to insert points history: %w", err)
		}

		return nil
	})
}

type leaderboardRow struct {
	TelegramID int64   `db:"telegram_id"`
	Name       string  `db:"name"`
	Username   *string `db:"username"`
	Points     int     `db:"points"`
	Referrals  int     `db:"referrals"`
}

func (r *Repository) GetTopUsers(ctx context.Context, limit int) ([]*model.LeaderboardEntry, error) {
	query, args, err := squirrel.
		Select(
			"u.telegram_id",
			"COALESCE(u.full_name, u.first_name) AS name",
			"u.username",
			"u.points",
			"COUNT(r.id) FILTER (WHERE r.status = 'CONFIRMED') AS referrals",
		).
		From("users u").
		LeftJoin("referrals r ON r.referrer_id = u.telegram_id").
		Where(squirrel.Eq{"u.status": string(model.UserStatusActive)}).
		GroupBy("u.telegram_id").
		OrderBy("u.points DESC", "u.activated_at ASC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build leaderboard query: %w", err)
	}

	var rows []leaderboardRow
	err = r.conn(ctx).SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", err)
	}

	entries := make([]*model.LeaderboardEntry, len(rows))
	for i, row := range rows {
		entries[i] = &model.LeaderboardEntry{
			TelegramID: row.TelegramID,
			Name:       row.Name,
			Points:     row.Points,
			Referrals:  row.Referrals,
		}
		if row.Username != nil {
			entries[i].Username = *row.Username
		}
	}

	return entries, nil
}

func requireAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
