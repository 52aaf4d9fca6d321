package repository

import (
	"context"
	"fmt"
	"time"

	"UD_contest_bot/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const recentRefereesLimit = 10

func (r *Repository) CreateReferral(ctx context.Context, referrerID, refereeID int64) error {
	query, args, err := squirrel.
		Insert("referrals").
		SetMap(map[string]interface{}{
			"id":          uuid.New(),
			"referrer_id": referrerID,
			"referee_id":  refereeID,
			"status":      string(model.ReferralStatusPending),
			"created_at":  time.Now().UTC(),
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build referral insert query: %w", err)
	}

	_, err = r.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err, "") {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert referral: %w", err)
	}

	return nil
}

// ConfirmReferral flips a pending referral to confirmed. It only ever succeeds once
// per pair; later calls return ErrReferralNotPending.
func (r *Repository) ConfirmReferral(ctx context.Context, referrerID, refereeID int64) error {
	query, args, err := squirrel.
		Update("referrals").
		Set("status", string(model.ReferralStatusConfirmed)).
		Set("confirmed_at", time.Now().UTC()).
		Where(squirrel.Eq{
			"referrer_id": referrerID,
			"referee_id":  refereeID,
			"status":      string(model.ReferralStatusPending),
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build referral confirm query: %w", err)
	}

	result, err := r.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to confirm referral: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return ErrReferralNotPending
	}

	return nil
}

type referralStats struct {
	Pending   int            `db:"pending"`
	Confirmed int            `db:"confirmed"`
	Referees  pq.StringArray `db:"referees"`
}

func (r *Repository) GetReferralStats(ctx context.Context, telegramID int64) (*model.ReferralStats, error) {
	query, args, err := squirrel.
		Select(
			"COUNT(*) FILTER (WHERE r.status = 'PENDING') AS pending",
			"COUNT(*) FILTER (WHERE r.status = 'CONFIRMED') AS confirmed",
			"COALESCE(array_agg(COALESCE(u.full_name, u.first_name) ORDER BY r.confirmed_at DESC) FILTER (WHERE r.status = 'CONFIRMED'), '{}') AS referees",
		).
		From("referrals r").
		Join("users u ON u.telegram_id = r.referee_id").
		Where(squirrel.Eq{"r.referrer_id": telegramID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build referral stats query: %w", err)
	}

	var stats referralStats
	err = r.conn(ctx).GetContext(ctx, &stats, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get referral stats: %w", err)
	}

	referees := []string(stats.Referees)
	if len(referees) > recentRefereesLimit {
		referees = referees[:recentRefereesLimit]
	}

	return &model.ReferralStats{
		TelegramID:     telegramID,
		Pending:        stats.Pending,
		Confirmed:      stats.Confirmed,
		RecentReferees: referees,
	}, nil
}
