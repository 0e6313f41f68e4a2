package feed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrInvalidCursor = errors.New("invalid feed cursor")

type FeedRepo struct {
	db sqlx.ExtContext
}

func NewFeedRepo(db sqlx.ExtContext) *FeedRepo {
	return &FeedRepo{db: db}
}

// Append writes a new event. ID and CreatedAt are filled in when empty.
func (r *FeedRepo) Append(ctx context.Context, e *Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	query := r.db.Rebind(`
		INSERT INTO feed_events (id, type, project_id, update_id, actor_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if _, err := r.db.ExecContext(ctx, query, e.ID, e.Type, e.ProjectID, e.UpdateID, e.ActorID, e.CreatedAt); err != nil {
		return fmt.Errorf("failed to append feed event: %w", err)
	}

	return nil
}

const selectEvents = `
	SELECT f.id, f.type, f.created_at,
	       p.id AS project_id, p.title AS project_title, p.slug AS project_slug, p.visibility AS project_visibility,
	       u.id AS update_id, u.headline AS update_headline, u.created_at AS update_created_at,
	       a.id AS actor_id, a.username AS actor_username, a.display_name AS actor_display_name
	FROM feed_events f
	JOIN projects p ON p.id = f.project_id
	LEFT JOIN project_updates u ON u.id = f.update_id
	LEFT JOIN users a ON a.id = f.actor_id
	WHERE p.visibility = 'PUBLIC' AND p.is_deleted = FALSE
`

// ListPublic returns up to limit events of public projects, newest first,
// starting strictly after the event identified by cursor.
func (r *FeedRepo) ListPublic(ctx context.Context, cursor string, limit int) ([]*EventView, error) {
	query := selectEvents
	args := []interface{}{}

	if cursor != "" {
		var anchor Event
		err := sqlx.GetContext(ctx, r.db, &anchor,
			r.db.Rebind(`SELECT id, type, project_id, update_id, actor_id, created_at FROM feed_events WHERE id = ?`), cursor)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrInvalidCursor
			}
			return nil, fmt.Errorf("failed to load feed cursor: %w", err)
		}

		query += ` AND (f.created_at < ? OR (f.created_at = ? AND f.id < ?))`
		args = append(args, anchor.CreatedAt, anchor.CreatedAt, anchor.ID)
	}

	query += ` ORDER BY f.created_at DESC, f.id DESC LIMIT ?`
	args = append(args, limit)

	var rows []*eventRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list feed events: %w", err)
	}

	events := make([]*EventView, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.view())
	}

	return events, nil
}
