package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/curaious/projectchron/internal/db"
)

var ErrProjectNotFound = errors.New("project not found")

const projectColumns = `p.id, p.owner_id, p.title, p.slug, p.summary, p.visibility, p.cover_image_id, p.is_deleted, p.created_at, p.updated_at`

// ProjectRepo handles database operations for projects and their tags.
// Soft-deleted rows are returned by Get/GetForUpdate; callers decide.
type ProjectRepo struct {
	db sqlx.ExtContext
}

// NewProjectRepo creates a new project repository
func NewProjectRepo(db sqlx.ExtContext) *ProjectRepo {
	return &ProjectRepo{db: db}
}

// Create inserts a new project row
func (r *ProjectRepo) Create(ctx context.Context, p *Project) error {
	query := r.db.Rebind(`
		INSERT INTO projects (id, owner_id, title, slug, summary, visibility, cover_image_id, is_deleted, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.OwnerID, p.Title, p.Slug, p.Summary, p.Visibility, p.CoverImageID, p.IsDeleted, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// Get retrieves a project by ID, including soft-deleted ones
func (r *ProjectRepo) Get(ctx context.Context, id string) (*Project, error) {
	return r.get(ctx, `SELECT `+projectColumns+` FROM projects p WHERE p.id = ?`, id)
}

// GetForUpdate is Get with a row lock held until the transaction ends.
func (r *ProjectRepo) GetForUpdate(ctx context.Context, id string) (*Project, error) {
	return r.get(ctx, `SELECT `+projectColumns+` FROM projects p WHERE p.id = ?`+db.ForUpdate(r.db), id)
}

// GetBySlug retrieves a live project by slug
func (r *ProjectRepo) GetBySlug(ctx context.Context, slug string) (*Project, error) {
	return r.get(ctx, `SELECT `+projectColumns+` FROM projects p WHERE p.slug = ? AND p.is_deleted = FALSE`, slug)
}

func (r *ProjectRepo) get(ctx context.Context, query string, args ...interface{}) (*Project, error) {
	var project Project
	if err := sqlx.GetContext(ctx, r.db, &project, r.db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &project, nil
}

// SlugTaken reports whether any project other than exceptID uses slug.
// Soft-deleted projects keep their slug.
func (r *ProjectRepo) SlugTaken(ctx context.Context, slug, exceptID string) (bool, error) {
	var n int
	query := r.db.Rebind(`SELECT COUNT(*) FROM projects WHERE slug = ? AND id <> ?`)
	if err := r.db.QueryRowxContext(ctx, query, slug, exceptID).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return n > 0, nil
}

// Save writes every mutable column of p
func (r *ProjectRepo) Save(ctx context.Context, p *Project) error {
	query := r.db.Rebind(`
		UPDATE projects
		SET title = ?, slug = ?, summary = ?, visibility = ?, cover_image_id = ?, is_deleted = ?, updated_at = ?
		WHERE id = ?
	`)
	result, err := r.db.ExecContext(ctx, query,
		p.Title, p.Slug, p.Summary, p.Visibility, p.CoverImageID, p.IsDeleted, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// ListByOwner returns the owner's live projects, oldest first
func (r *ProjectRepo) ListByOwner(ctx context.Context, ownerID string) ([]*DashboardProject, error) {
	query := r.db.Rebind(`
		SELECT ` + projectColumns + `,
		       (SELECT COUNT(*) FROM project_highlights h WHERE h.project_id = p.id) AS highlight_count
		FROM projects p
		WHERE p.owner_id = ? AND p.is_deleted = FALSE
		ORDER BY p.created_at ASC
	`)

	projects := []*DashboardProject{}
	if err := sqlx.SelectContext(ctx, r.db, &projects, query, ownerID); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// ListPublic returns live public projects, most recently updated first
func (r *ProjectRepo) ListPublic(ctx context.Context, limit int) ([]*GalleryProject, error) {
	query := r.db.Rebind(`
		SELECT ` + projectColumns + `, u.username AS owner_username, u.display_name AS owner_display_name
		FROM projects p
		JOIN users u ON u.id = p.owner_id
		WHERE p.visibility = 'PUBLIC' AND p.is_deleted = FALSE
		ORDER BY p.updated_at DESC
		LIMIT ?
	`)

	projects := []*GalleryProject{}
	if err := sqlx.SelectContext(ctx, r.db, &projects, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list public projects: %w", err)
	}
	return projects, nil
}

// Tags returns the tags linked to a project, by name
func (r *ProjectRepo) Tags(ctx context.Context, projectID string) ([]Tag, error) {
	query := r.db.Rebind(`
		SELECT t.id, t.name
		FROM tags t
		JOIN project_tags pt ON pt.tag_id = t.id
		WHERE pt.project_id = ?
		ORDER BY t.name
	`)

	tags := []Tag{}
	if err := sqlx.SelectContext(ctx, r.db, &tags, query, projectID); err != nil {
		return nil, fmt.Errorf("failed to list project tags: %w", err)
	}
	return tags, nil
}

// TagNamesFor returns tag names keyed by project id
func (r *ProjectRepo) TagNamesFor(ctx context.Context, projectIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(projectIDs))
	if len(projectIDs) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(`
		SELECT pt.project_id, t.name
		FROM project_tags pt
		JOIN tags t ON t.id = pt.tag_id
		WHERE pt.project_id IN (?)
		ORDER BY t.name
	`, projectIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build tag query: %w", err)
	}

	var rows []struct {
		ProjectID string `db:"project_id"`
		Name      string `db:"name"`
	}
	if err := sqlx.SelectContext(ctx, r.db, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}

	for _, row := range rows {
		out[row.ProjectID] = append(out[row.ProjectID], row.Name)
	}
	return out, nil
}

// UpsertTag returns the id of the tag called name, creating it if needed.
// A concurrent insert of the same name is absorbed by the unique index.
func (r *ProjectRepo) UpsertTag(ctx context.Context, name string) (string, error) {
	insert := r.db.Rebind(`INSERT INTO tags (id, name) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`)
	if _, err := r.db.ExecContext(ctx, insert, uuid.NewString(), name); err != nil {
		return "", fmt.Errorf("failed to upsert tag %q: %w", name, err)
	}

	var id string
	if err := r.db.QueryRowxContext(ctx, r.db.Rebind(`SELECT id FROM tags WHERE name = ?`), name).Scan(&id); err != nil {
		return "", fmt.Errorf("failed to load tag %q: %w", name, err)
	}
	return id, nil
}

func (r *ProjectRepo) LinkTag(ctx context.Context, projectID, tagID string) error {
	query := r.db.Rebind(`INSERT INTO project_tags (project_id, tag_id) VALUES (?, ?) ON CONFLICT (project_id, tag_id) DO NOTHING`)
	if _, err := r.db.ExecContext(ctx, query, projectID, tagID); err != nil {
		return fmt.Errorf("failed to link tag: %w", err)
	}
	return nil
}

func (r *ProjectRepo) UnlinkTag(ctx context.Context, projectID, tagID string) error {
	query := r.db.Rebind(`DELETE FROM project_tags WHERE project_id = ? AND tag_id = ?`)
	if _, err := r.db.ExecContext(ctx, query, projectID, tagID); err != nil {
		return fmt.Errorf("failed to unlink tag: %w", err)
	}
	return nil
}

// Owner returns the public profile of the project's owner
func (r *ProjectRepo) Owner(ctx context.Context, ownerID string) (*Owner, error) {
	var owner Owner
	query := r.db.Rebind(`SELECT id, username, display_name FROM users WHERE id = ?`)
	if err := sqlx.GetContext(ctx, r.db, &owner, query, ownerID); err != nil {
		return nil, fmt.Errorf("failed to get project owner: %w", err)
	}
	return &owner, nil
}

// Highlights returns the highlighted updates of a project, newest update first
func (r *ProjectRepo) Highlights(ctx context.Context, projectID string) ([]*Highlight, error) {
	query := r.db.Rebind(`
		SELECT h.update_id, u.headline, h.created_at, u.created_at AS published_at
		FROM project_highlights h
		JOIN project_updates u ON u.id = h.update_id
		WHERE h.project_id = ?
		ORDER BY u.created_at DESC
	`)

	highlights := []*Highlight{}
	if err := sqlx.SelectContext(ctx, r.db, &highlights, query, projectID); err != nil {
		return nil, fmt.Errorf("failed to list highlights: %w", err)
	}
	return highlights, nil
}

func (r *ProjectRepo) FollowerCount(ctx context.Context, projectID string) (int, error) {
	var n int
	query := r.db.Rebind(`SELECT COUNT(*) FROM follows WHERE project_id = ?`)
	if err := r.db.QueryRowxContext(ctx, query, projectID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count followers: %w", err)
	}
	return n, nil
}

func (r *ProjectRepo) IsFollowing(ctx context.Context, projectID, userID string) (bool, error) {
	var n int
	query := r.db.Rebind(`SELECT COUNT(*) FROM follows WHERE project_id = ? AND follower_id = ?`)
	if err := r.db.QueryRowxContext(ctx, query, projectID, userID).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check follow: %w", err)
	}
	return n > 0, nil
}
