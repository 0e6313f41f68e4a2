package update

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/curaious/projectchron/internal/db"
	"github.com/curaious/projectchron/internal/services/audit"
	"github.com/curaious/projectchron/internal/services/feed"
	"github.com/curaious/projectchron/internal/services/project"
	"github.com/curaious/projectchron/internal/validation"
)

var (
	ErrInvalidBlockCount     = errors.New("an update needs between 1 and 200 blocks")
	ErrHighlightLimitReached = errors.New("highlight limit reached")
)

var tracer = otel.Tracer("UpdateService")

type UpdateService struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewUpdateService(conn *sqlx.DB) *UpdateService {
	return &UpdateService{
		db:  conn,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// ProjectUpdates is a project together with its published updates.
type ProjectUpdates struct {
	Project *project.Project `json:"project"`
	Updates []*Update        `json:"updates"`
}

// Create posts an update on a project owned by authorID. Published updates
// also append an UPDATE_PUBLISHED feed event.
func (s *UpdateService) Create(ctx context.Context, projectID, authorID string, req *CreateUpdateRequest, ipAddress string) (*Update, error) {
	ctx, span := tracer.Start(ctx, "UpdateService.Create")
	defer span.End()
	span.SetAttributes(attribute.String("project.id", projectID), attribute.Int("update.blocks", len(req.Blocks)))

	if len(req.Blocks) < MinBlocks || len(req.Blocks) > MaxBlocks {
		return nil, ErrInvalidBlockCount
	}
	if err := validation.Struct("Invalid update", req); err != nil {
		return nil, err
	}

	now := s.now()
	u := &Update{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		AuthorID:  authorID,
		Headline:  trimToNil(req.Headline),
		IsDraft:   req.IsDraft,
		CreatedAt: now,
	}
	u.Blocks = orderBlocks(u.ID, req.Blocks)

	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		p, err := project.NewProjectRepo(tx).Get(ctx, projectID)
		if err != nil {
			return err
		}
		if p.IsDeleted {
			return project.ErrProjectNotFound
		}
		if p.OwnerID != authorID {
			return project.ErrForbidden
		}

		updates := NewUpdateRepo(tx)
		if err := updates.Create(ctx, u); err != nil {
			return err
		}
		if err := updates.CreateBlocks(ctx, u.Blocks); err != nil {
			return err
		}

		if _, err := audit.NewAuditRepo(tx).Record(ctx, authorID, audit.ActionUpdateCreate, audit.EntityUpdate, u.ID,
			map[string]any{"projectId": projectID, "blocks": len(u.Blocks), "isDraft": u.IsDraft}, ipAddress); err != nil {
			return err
		}

		if u.IsDraft {
			return nil
		}
		return feed.NewFeedRepo(tx).Append(ctx, &feed.Event{
			Type:      feed.EventUpdatePublished,
			ProjectID: projectID,
			UpdateID:  &u.ID,
			ActorID:   &authorID,
			CreatedAt: now,
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return u, nil
}

// ListForProject returns the project and its published updates, oldest first.
// Private projects are only readable by their owner.
func (s *UpdateService) ListForProject(ctx context.Context, projectID, viewerID string) (*ProjectUpdates, error) {
	ctx, span := tracer.Start(ctx, "UpdateService.ListForProject")
	defer span.End()

	p, err := project.NewProjectRepo(s.db).Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.IsDeleted {
		return nil, project.ErrProjectNotFound
	}
	if !p.IsVisibleTo(viewerID) {
		return nil, project.ErrForbidden
	}

	updates, err := s.ListPublished(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	return &ProjectUpdates{Project: p, Updates: updates}, nil
}

// ListPublished loads the published updates of a project with their blocks
// and highlight entries. Access checks are up to the caller.
func (s *UpdateService) ListPublished(ctx context.Context, projectID string) ([]*Update, error) {
	repo := NewUpdateRepo(s.db)

	updates, err := repo.ListPublished(ctx, projectID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(updates))
	for _, u := range updates {
		ids = append(ids, u.ID)
	}

	blocks, err := repo.BlocksFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	highlights, err := repo.HighlightsFor(ctx, projectID)
	if err != nil {
		return nil, err
	}

	for _, u := range updates {
		u.Blocks = blocks[u.ID]
		if u.Blocks == nil {
			u.Blocks = []*Block{}
		}
		u.Highlight = highlights[u.ID]
	}

	return updates, nil
}

// ToggleHighlight marks or unmarks an update as a project highlight. The
// project row is locked so the limit check and the insert see the same count.
// Enabling an already highlighted update changes nothing.
func (s *UpdateService) ToggleHighlight(ctx context.Context, projectID, actorID string, req *HighlightRequest, ipAddress string) error {
	ctx, span := tracer.Start(ctx, "UpdateService.ToggleHighlight")
	defer span.End()
	span.SetAttributes(
		attribute.String("project.id", projectID),
		attribute.String("update.id", req.UpdateID),
		attribute.Bool("highlight.enabled", req.Enabled),
	)

	if err := validation.Struct("Invalid highlight", req); err != nil {
		return err
	}

	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		p, err := project.NewProjectRepo(tx).GetForUpdate(ctx, projectID)
		if err != nil {
			return err
		}
		if p.IsDeleted {
			return project.ErrProjectNotFound
		}
		if p.OwnerID != actorID {
			return project.ErrForbidden
		}

		updates := NewUpdateRepo(tx)
		u, err := updates.GetByID(ctx, req.UpdateID)
		if err != nil {
			return err
		}
		if u.ProjectID != p.ID {
			return ErrUpdateNotFound
		}

		action := audit.ActionHighlightDisable
		if req.Enabled {
			action = audit.ActionHighlightEnable
			if err := s.enableHighlight(ctx, tx, updates, p.ID, u.ID, actorID); err != nil {
				return err
			}
		} else if err := updates.RemoveHighlight(ctx, u.ID); err != nil {
			return err
		}

		_, err = audit.NewAuditRepo(tx).Record(ctx, actorID, action, audit.EntityUpdate, u.ID,
			map[string]any{"projectId": p.ID, "enabled": req.Enabled}, ipAddress)
		return err
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (s *UpdateService) enableHighlight(ctx context.Context, tx *sqlx.Tx, updates *UpdateRepo, projectID, updateID, actorID string) error {
	already, err := updates.IsHighlighted(ctx, updateID)
	if err != nil {
		return err
	}
	if already {
		return nil
	}

	count, err := updates.CountHighlights(ctx, projectID)
	if err != nil {
		return err
	}
	if count >= MaxHighlights {
		return ErrHighlightLimitReached
	}

	now := s.now()
	inserted, err := updates.AddHighlight(ctx, &Highlight{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		UpdateID:  updateID,
		CreatedAt: now,
	})
	if err != nil || !inserted {
		return err
	}

	return feed.NewFeedRepo(tx).Append(ctx, &feed.Event{
		Type:      feed.EventProjectHighlighted,
		ProjectID: projectID,
		UpdateID:  &updateID,
		ActorID:   &actorID,
		CreatedAt: now,
	})
}

// orderBlocks sorts blocks by their requested position, keeping input order
// for ties, and renumbers them from zero.
func orderBlocks(updateID string, in []BlockInput) []*Block {
	type indexed struct {
		key   int
		input BlockInput
	}

	items := make([]indexed, len(in))
	for i, b := range in {
		key := i
		if b.Position != nil {
			key = *b.Position
		}
		items[i] = indexed{key: key, input: b}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].key < items[j].key })

	blocks := make([]*Block, len(items))
	for i, it := range items {
		blocks[i] = &Block{
			ID:       uuid.NewString(),
			UpdateID: updateID,
			Position: i,
			Type:     it.input.Type,
			Text:     it.input.Text,
			Data:     it.input.Data,
		}
	}
	return blocks
}

func trimToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
