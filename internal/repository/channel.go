package repository

import (
	"context"
	"fmt"

	"UD_contest_bot/internal/model"

	"github.com/Masterminds/squirrel"
)

type channel struct {
	ChatID int64  `db:"chat_id"`
	Name   string `db:"name"`
	Link   string `db:"link"`
}

func (r *Repository) ListChannels(ctx context.Context) ([]model.Channel, error) {
	query, args, err := squirrel.
		Select("chat_id", "name", "link").
		From("required_channels").
		Where(squirrel.Eq{"enabled": true}).
		OrderBy("position", "chat_id").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build channels query: %w", err)
	}

	var rows []channel
	err = r.conn(ctx).SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}

	channels := make([]model.Channel, len(rows))
	for i, row := range rows {
		channels[i] = model.Channel{
			ChatID: row.ChatID,
			Name:   row.Name,
			Link:   row.Link,
		}
	}

	return channels, nil
}
