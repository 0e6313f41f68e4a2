package media

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrAssetNotFound = errors.New("media asset not found")

const jobColumns = `j.id, j.media_id, j.job_type, j.status, j.attempts, j.max_attempts, j.scheduled_at, j.started_at, j.completed_at, j.last_error, j.created_at`

type MediaRepo struct {
	db sqlx.ExtContext
}

func NewMediaRepo(db sqlx.ExtContext) *MediaRepo {
	return &MediaRepo{db: db}
}

func (r *MediaRepo) CreateAsset(ctx context.Context, a *Asset) error {
	query := r.db.Rebind(`
		INSERT INTO media_assets (id, project_id, update_id, type, status, original_path, storage_bucket,
			width, height, duration_seconds, filesize, alt_text, caption, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.ProjectID, a.UpdateID, a.Type, a.Status, a.OriginalPath, a.StorageBucket,
		a.Width, a.Height, a.DurationSeconds, a.Filesize, a.AltText, a.Caption, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create media asset: %w", err)
	}
	return nil
}

func (r *MediaRepo) CreateJob(ctx context.Context, j *Job) error {
	query := r.db.Rebind(`
		INSERT INTO media_jobs (id, media_id, job_type, status, attempts, max_attempts, scheduled_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query, j.ID, j.MediaID, j.JobType, j.Status, j.Attempts, j.MaxAttempts, j.ScheduledAt, j.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create media job: %w", err)
	}
	return nil
}

func (r *MediaRepo) GetAsset(ctx context.Context, id string) (*Asset, error) {
	query := r.db.Rebind(`
		SELECT id, project_id, update_id, type, status, original_path, storage_bucket,
		       width, height, duration_seconds, filesize, alt_text, caption, created_at, updated_at
		FROM media_assets
		WHERE id = ?
	`)

	var a Asset
	if err := sqlx.GetContext(ctx, r.db, &a, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("failed to get media asset: %w", err)
	}
	return &a, nil
}

// ListJobs returns the newest jobs with their asset.
func (r *MediaRepo) ListJobs(ctx context.Context, limit int) ([]*JobWithMedia, error) {
	query := r.db.Rebind(`
		SELECT ` + jobColumns + `,
		       m.id AS "media.id", m.type AS "media.type", m.status AS "media.status", m.original_path AS "media.original_path"
		FROM media_jobs j
		JOIN media_assets m ON m.id = j.media_id
		ORDER BY j.created_at DESC, j.id DESC
		LIMIT ?
	`)

	jobs := []*JobWithMedia{}
	if err := sqlx.SelectContext(ctx, r.db, &jobs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list media jobs: %w", err)
	}
	return jobs, nil
}

// PendingJobs returns up to limit runnable jobs, oldest first. A PROCESSING
// job whose claim started before staleBefore counts as runnable again.
func (r *MediaRepo) PendingJobs(ctx context.Context, now, staleBefore time.Time, limit int) ([]*Job, error) {
	query := r.db.Rebind(`
		SELECT ` + jobColumns + `
		FROM media_jobs j
		WHERE (j.status = ? AND j.scheduled_at <= ?)
		   OR (j.status = ? AND j.started_at <= ?)
		ORDER BY j.created_at ASC, j.id ASC
		LIMIT ?
	`)

	jobs := []*Job{}
	if err := sqlx.SelectContext(ctx, r.db, &jobs, query, JobPending, now, JobProcessing, staleBefore, limit); err != nil {
		return nil, fmt.Errorf("failed to fetch pending media jobs: %w", err)
	}
	return jobs, nil
}

// ClaimJob moves a runnable job to PROCESSING and counts the attempt. It
// reports false when another worker got there first.
func (r *MediaRepo) ClaimJob(ctx context.Context, id string, now, staleBefore time.Time) (bool, error) {
	query := r.db.Rebind(`
		UPDATE media_jobs
		SET status = ?, attempts = attempts + 1, started_at = ?
		WHERE id = ? AND (status = ? OR (status = ? AND started_at <= ?))
	`)
	result, err := r.db.ExecContext(ctx, query, JobProcessing, now, id, JobPending, JobProcessing, staleBefore)
	if err != nil {
		return false, fmt.Errorf("failed to claim media job: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// ReleaseJob hands a claimed job back to the queue without counting the
// attempt.
func (r *MediaRepo) ReleaseJob(ctx context.Context, id string) error {
	query := r.db.Rebind(`
		UPDATE media_jobs
		SET status = ?, attempts = attempts - 1, started_at = NULL
		WHERE id = ? AND status = ?
	`)
	if _, err := r.db.ExecContext(ctx, query, JobPending, id, JobProcessing); err != nil {
		return fmt.Errorf("failed to release media job: %w", err)
	}
	return nil
}

func (r *MediaRepo) CompleteJob(ctx context.Context, id string, now time.Time) error {
	query := r.db.Rebind(`UPDATE media_jobs SET status = ?, completed_at = ?, last_error = NULL WHERE id = ?`)
	if _, err := r.db.ExecContext(ctx, query, JobCompleted, now, id); err != nil {
		return fmt.Errorf("failed to complete media job: %w", err)
	}
	return nil
}

// FailJob records a failed attempt. The job goes back to PENDING at retryAt
// unless it has used up its attempts, in which case it becomes FAILED.
// It returns the resulting status.
func (r *MediaRepo) FailJob(ctx context.Context, id, lastError string, retryAt time.Time) (JobStatus, error) {
	query := r.db.Rebind(`
		UPDATE media_jobs
		SET status = CASE WHEN attempts >= max_attempts THEN ? ELSE ? END,
		    scheduled_at = ?, last_error = ?
		WHERE id = ?
	`)
	if _, err := r.db.ExecContext(ctx, query, JobFailed, JobPending, retryAt, lastError, id); err != nil {
		return "", fmt.Errorf("failed to record media job failure: %w", err)
	}

	var status JobStatus
	if err := r.db.QueryRowxContext(ctx, r.db.Rebind(`SELECT status FROM media_jobs WHERE id = ?`), id).Scan(&status); err != nil {
		return "", fmt.Errorf("failed to read media job status: %w", err)
	}
	return status, nil
}

// UnfinishedJobs counts the jobs of an asset that are not COMPLETED.
func (r *MediaRepo) UnfinishedJobs(ctx context.Context, mediaID string) (int, error) {
	var n int
	query := r.db.Rebind(`SELECT COUNT(*) FROM media_jobs WHERE media_id = ? AND status <> ?`)
	if err := r.db.QueryRowxContext(ctx, query, mediaID, JobCompleted).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count media jobs: %w", err)
	}
	return n, nil
}

func (r *MediaRepo) SetAssetStatus(ctx context.Context, id string, status AssetStatus, now time.Time) error {
	query := r.db.Rebind(`UPDATE media_assets SET status = ?, updated_at = ? WHERE id = ?`)
	if _, err := r.db.ExecContext(ctx, query, status, now, id); err != nil {
		return fmt.Errorf("failed to update media asset: %w", err)
	}
	return nil
}
