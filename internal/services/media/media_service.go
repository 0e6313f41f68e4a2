package media

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/curaious/projectchron/internal/db"
	"github.com/curaious/projectchron/internal/pubsub"
	"github.com/curaious/projectchron/internal/services/audit"
	"github.com/curaious/projectchron/internal/services/project"
	"github.com/curaious/projectchron/internal/services/update"
	"github.com/curaious/projectchron/internal/services/user"
	"github.com/curaious/projectchron/internal/validation"
)

var ErrAdminOnly = errors.New("only administrators can do this")

const (
	DefaultJobListLimit = 50
	MaxJobListLimit     = 200
)

var tracer = otel.Tracer("MediaService")

type MediaService struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewMediaService(conn *sqlx.DB) *MediaService {
	return &MediaService{
		db:  conn,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Register records an uploaded asset and queues the jobs its type needs.
// The actor must own the referenced project or have authored the referenced
// update, unless they are an admin.
func (s *MediaService) Register(ctx context.Context, actor *user.User, req *RegisterAssetRequest, ipAddress string) (*Asset, error) {
	ctx, span := tracer.Start(ctx, "MediaService.Register")
	defer span.End()

	if err := validation.Struct("Invalid media asset", req); err != nil {
		return nil, err
	}

	now := s.now()
	asset := &Asset{
		ID:              uuid.NewString(),
		ProjectID:       req.ProjectID,
		UpdateID:        req.UpdateID,
		Type:            req.Type,
		Status:          AssetPending,
		OriginalPath:    req.OriginalPath,
		StorageBucket:   req.StorageBucket,
		Width:           req.Width,
		Height:          req.Height,
		DurationSeconds: req.DurationSeconds,
		Filesize:        req.Filesize,
		AltText:         req.AltText,
		Caption:         req.Caption,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := authorize(ctx, tx, actor, asset); err != nil {
			return err
		}

		repo := NewMediaRepo(tx)
		if err := repo.CreateAsset(ctx, asset); err != nil {
			return err
		}

		for _, jt := range JobsFor(asset.Type) {
			job := &Job{
				ID:          uuid.NewString(),
				MediaID:     asset.ID,
				JobType:     jt,
				Status:      JobPending,
				MaxAttempts: DefaultMaxAttempts,
				ScheduledAt: now,
				CreatedAt:   now,
			}
			if err := repo.CreateJob(ctx, job); err != nil {
				return err
			}
			asset.Jobs = append(asset.Jobs, job)
		}

		if _, err := audit.NewAuditRepo(tx).Record(ctx, actor.ID, audit.ActionMediaRegister, audit.EntityMedia, asset.ID,
			map[string]any{"type": string(asset.Type), "jobs": len(asset.Jobs)}, ipAddress); err != nil {
			return err
		}

		// Delivered on commit; wakes a listening worker.
		if db.IsPostgres(tx) {
			if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, pubsub.MediaJobsChannel, asset.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.String("media.id", asset.ID), attribute.Int("media.jobs", len(asset.Jobs)))
	return asset, nil
}

// ListJobs returns the newest jobs for administrators.
func (s *MediaService) ListJobs(ctx context.Context, actor *user.User, limit int) ([]*JobWithMedia, error) {
	if actor == nil || !actor.IsAdmin {
		return nil, ErrAdminOnly
	}

	if limit <= 0 {
		limit = DefaultJobListLimit
	}
	if limit > MaxJobListLimit {
		limit = MaxJobListLimit
	}

	return NewMediaRepo(s.db).ListJobs(ctx, limit)
}

func authorize(ctx context.Context, tx *sqlx.Tx, actor *user.User, asset *Asset) error {
	projects := project.NewProjectRepo(tx)

	if asset.UpdateID != nil {
		u, err := update.NewUpdateRepo(tx).GetByID(ctx, *asset.UpdateID)
		if err != nil {
			return err
		}
		if asset.ProjectID != nil && *asset.ProjectID != u.ProjectID {
			return update.ErrUpdateNotFound
		}

		p, err := projects.Get(ctx, u.ProjectID)
		if err != nil {
			return err
		}
		if p.IsDeleted {
			return project.ErrProjectNotFound
		}
		if !actor.IsAdmin && u.AuthorID != actor.ID && p.OwnerID != actor.ID {
			return project.ErrForbidden
		}
		asset.ProjectID = &p.ID
		return nil
	}

	p, err := projects.Get(ctx, *asset.ProjectID)
	if err != nil {
		return err
	}
	if p.IsDeleted {
		return project.ErrProjectNotFound
	}
	if !actor.IsAdmin && p.OwnerID != actor.ID {
		return project.ErrForbidden
	}
	return nil
}
