package update

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

var ErrUpdateNotFound = errors.New("update not found")

const updateColumns = `id, project_id, author_id, headline, is_draft, created_at`

type UpdateRepo struct {
	db sqlx.ExtContext
}

func NewUpdateRepo(db sqlx.ExtContext) *UpdateRepo {
	return &UpdateRepo{db: db}
}

func (r *UpdateRepo) Create(ctx context.Context, u *Update) error {
	query := r.db.Rebind(`INSERT INTO project_updates (` + updateColumns + `) VALUES (?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query, u.ID, u.ProjectID, u.AuthorID, u.Headline, u.IsDraft, u.CreatedAt); err != nil {
		return fmt.Errorf("failed to create update: %w", err)
	}
	return nil
}

// CreateBlocks inserts all blocks with a single statement.
func (r *UpdateRepo) CreateBlocks(ctx context.Context, blocks []*Block) error {
	if len(blocks) == 0 {
		return nil
	}

	values := make([]string, 0, len(blocks))
	args := make([]interface{}, 0, len(blocks)*6)
	for _, b := range blocks {
		values = append(values, "(?, ?, ?, ?, ?, ?)")
		args = append(args, b.ID, b.UpdateID, b.Position, b.Type, b.Text, b.Data)
	}

	query := r.db.Rebind(`INSERT INTO update_blocks (id, update_id, position, type, text, data) VALUES ` + strings.Join(values, ", "))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create update blocks: %w", err)
	}
	return nil
}

func (r *UpdateRepo) GetByID(ctx context.Context, id string) (*Update, error) {
	var u Update
	query := r.db.Rebind(`SELECT ` + updateColumns + ` FROM project_updates WHERE id = ?`)
	if err := sqlx.GetContext(ctx, r.db, &u, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUpdateNotFound
		}
		return nil, fmt.Errorf("failed to get update: %w", err)
	}
	return &u, nil
}

// ListPublished returns the non-draft updates of a project, oldest first.
func (r *UpdateRepo) ListPublished(ctx context.Context, projectID string) ([]*Update, error) {
	query := r.db.Rebind(`
		SELECT ` + updateColumns + `
		FROM project_updates
		WHERE project_id = ? AND is_draft = FALSE
		ORDER BY created_at ASC, id ASC
	`)

	updates := []*Update{}
	if err := sqlx.SelectContext(ctx, r.db, &updates, query, projectID); err != nil {
		return nil, fmt.Errorf("failed to list updates: %w", err)
	}
	return updates, nil
}

// BlocksFor returns blocks keyed by update id, ordered by position.
func (r *UpdateRepo) BlocksFor(ctx context.Context, updateIDs []string) (map[string][]*Block, error) {
	out := make(map[string][]*Block, len(updateIDs))
	if len(updateIDs) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, update_id, position, type, text, data
		FROM update_blocks
		WHERE update_id IN (?)
		ORDER BY update_id, position
	`, updateIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build block query: %w", err)
	}

	var blocks []*Block
	if err := sqlx.SelectContext(ctx, r.db, &blocks, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list blocks: %w", err)
	}

	for _, b := range blocks {
		out[b.UpdateID] = append(out[b.UpdateID], b)
	}
	return out, nil
}

// HighlightsFor returns the highlight rows of a project keyed by update id.
func (r *UpdateRepo) HighlightsFor(ctx context.Context, projectID string) (map[string]*Highlight, error) {
	query := r.db.Rebind(`SELECT id, project_id, update_id, created_at FROM project_highlights WHERE project_id = ?`)

	var highlights []*Highlight
	if err := sqlx.SelectContext(ctx, r.db, &highlights, query, projectID); err != nil {
		return nil, fmt.Errorf("failed to list highlights: %w", err)
	}

	out := make(map[string]*Highlight, len(highlights))
	for _, h := range highlights {
		out[h.UpdateID] = h
	}
	return out, nil
}

func (r *UpdateRepo) CountHighlights(ctx context.Context, projectID string) (int, error) {
	var n int
	query := r.db.Rebind(`SELECT COUNT(*) FROM project_highlights WHERE project_id = ?`)
	if err := r.db.QueryRowxContext(ctx, query, projectID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count highlights: %w", err)
	}
	return n, nil
}

func (r *UpdateRepo) IsHighlighted(ctx context.Context, updateID string) (bool, error) {
	var n int
	query := r.db.Rebind(`SELECT COUNT(*) FROM project_highlights WHERE update_id = ?`)
	if err := r.db.QueryRowxContext(ctx, query, updateID).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check highlight: %w", err)
	}
	return n > 0, nil
}

// AddHighlight inserts a highlight unless the update already has one.
// It reports whether a row was written.
func (r *UpdateRepo) AddHighlight(ctx context.Context, h *Highlight) (bool, error) {
	query := r.db.Rebind(`
		INSERT INTO project_highlights (id, project_id, update_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (update_id) DO NOTHING
	`)
	result, err := r.db.ExecContext(ctx, query, h.ID, h.ProjectID, h.UpdateID, h.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to add highlight: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *UpdateRepo) RemoveHighlight(ctx context.Context, updateID string) error {
	query := r.db.Rebind(`DELETE FROM project_highlights WHERE update_id = ?`)
	if _, err := r.db.ExecContext(ctx, query, updateID); err != nil {
		return fmt.Errorf("failed to remove highlight: %w", err)
	}
	return nil
}
