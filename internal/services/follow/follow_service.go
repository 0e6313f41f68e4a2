package follow

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/curaious/projectchron/internal/db"
	"github.com/curaious/projectchron/internal/services/project"
)

var ErrProjectNotPublic = errors.New("only public projects can be followed")

var tracer = otel.Tracer("FollowService")

type FollowService struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewFollowService(conn *sqlx.DB) *FollowService {
	return &FollowService{
		db:  conn,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Follow subscribes userID to a live project. Private projects can only be
// followed by their owner. Following twice is a no-op.
func (s *FollowService) Follow(ctx context.Context, projectID, userID string) error {
	ctx, span := tracer.Start(ctx, "FollowService.Follow")
	defer span.End()
	span.SetAttributes(attribute.String("project.id", projectID))

	return db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		p, err := liveProject(ctx, tx, projectID)
		if err != nil {
			return err
		}
		if p.Visibility != project.VisibilityPublic && p.OwnerID != userID {
			return ErrProjectNotPublic
		}

		return NewFollowRepo(tx).Add(ctx, &Follow{FollowerID: userID, ProjectID: p.ID, CreatedAt: s.now()})
	})
}

// Unfollow removes the follow if present.
func (s *FollowService) Unfollow(ctx context.Context, projectID, userID string) error {
	ctx, span := tracer.Start(ctx, "FollowService.Unfollow")
	defer span.End()
	span.SetAttributes(attribute.String("project.id", projectID))

	return db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := liveProject(ctx, tx, projectID); err != nil {
			return err
		}
		return NewFollowRepo(tx).Remove(ctx, userID, projectID)
	})
}

func liveProject(ctx context.Context, q sqlx.ExtContext, id string) (*project.Project, error) {
	p, err := project.NewProjectRepo(q).Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsDeleted {
		return nil, project.ErrProjectNotFound
	}
	return p, nil
}
