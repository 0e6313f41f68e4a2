package follow

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type FollowRepo struct {
	db sqlx.ExtContext
}

func NewFollowRepo(db sqlx.ExtContext) *FollowRepo {
	return &FollowRepo{db: db}
}

// Add inserts the follow unless it already exists.
func (r *FollowRepo) Add(ctx context.Context, f *Follow) error {
	query := r.db.Rebind(`
		INSERT INTO follows (follower_id, project_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (follower_id, project_id) DO NOTHING
	`)
	if _, err := r.db.ExecContext(ctx, query, f.FollowerID, f.ProjectID, f.CreatedAt); err != nil {
		return fmt.Errorf("failed to follow project: %w", err)
	}
	return nil
}

func (r *FollowRepo) Remove(ctx context.Context, followerID, projectID string) error {
	query := r.db.Rebind(`DELETE FROM follows WHERE follower_id = ? AND project_id = ?`)
	if _, err := r.db.ExecContext(ctx, query, followerID, projectID); err != nil {
		return fmt.Errorf("failed to unfollow project: %w", err)
	}
	return nil
}
