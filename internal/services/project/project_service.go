package project

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/curaious/projectchron/internal/db"
	"github.com/curaious/projectchron/internal/services/audit"
	"github.com/curaious/projectchron/internal/services/feed"
	"github.com/curaious/projectchron/internal/slug"
	"github.com/curaious/projectchron/internal/validation"
)

var ErrForbidden = errors.New("you do not have access to this project")

const (
	maxSlugAttempts = 3
	galleryLimit    = 60
	auditListLimit  = 200
)

var tracer = otel.Tracer("ProjectService")

// ProjectService contains business logic for projects. Every write runs in
// one transaction together with its audit row and feed event.
type ProjectService struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewProjectService constructs a new ProjectService
func NewProjectService(conn *sqlx.DB) *ProjectService {
	return &ProjectService{
		db:  conn,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts a project with its tags, audit row and PROJECT_CREATED event.
func (s *ProjectService) Create(ctx context.Context, ownerID string, req *CreateProjectRequest, ipAddress string) (*Project, error) {
	ctx, span := tracer.Start(ctx, "ProjectService.Create")
	defer span.End()

	req.Title = strings.TrimSpace(req.Title)
	if err := validation.Struct("Invalid project", req); err != nil {
		return nil, err
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = VisibilityPrivate
	}
	tags := NormalizeTags(req.Tags)
	slices.Sort(tags)

	var project *Project
	err := s.withSlugRetry(ctx, func(tx *sqlx.Tx) error {
		projects := NewProjectRepo(tx)
		now := s.now()

		p := &Project{
			ID:           uuid.NewString(),
			OwnerID:      ownerID,
			Title:        req.Title,
			Summary:      emptyToNil(req.Summary),
			Visibility:   visibility,
			CoverImageID: emptyToNil(req.CoverImageID),
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		var err error
		p.Slug, err = slug.EnsureUnique(ctx, func(ctx context.Context, candidate string) (bool, error) {
			return projects.SlugTaken(ctx, candidate, p.ID)
		}, p.Title, now)
		if err != nil {
			return err
		}

		if err := projects.Create(ctx, p); err != nil {
			return err
		}

		for _, name := range tags {
			tagID, err := projects.UpsertTag(ctx, name)
			if err != nil {
				return err
			}
			if err := projects.LinkTag(ctx, p.ID, tagID); err != nil {
				return err
			}
		}
		p.Tags = tags

		if _, err := audit.NewAuditRepo(tx).Record(ctx, ownerID, audit.ActionProjectCreate, audit.EntityProject, p.ID, snapshot(p), ipAddress); err != nil {
			return err
		}

		if err := feed.NewFeedRepo(tx).Append(ctx, &feed.Event{
			Type:      feed.EventProjectCreated,
			ProjectID: p.ID,
			ActorID:   &ownerID,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		project = p
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.String("project.id", project.ID), attribute.String("project.slug", project.Slug))
	return project, nil
}

// Update applies the supplied fields. The slug follows the title; tags are
// diffed against the current links instead of being recreated.
func (s *ProjectService) Update(ctx context.Context, id, actorID string, req *UpdateProjectRequest, ipAddress string) (*Project, error) {
	ctx, span := tracer.Start(ctx, "ProjectService.Update")
	defer span.End()
	span.SetAttributes(attribute.String("project.id", id))

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		req.Title = &title
	}
	if err := validation.Struct("Invalid project", req); err != nil {
		return nil, err
	}

	var project *Project
	err := s.withSlugRetry(ctx, func(tx *sqlx.Tx) error {
		projects := NewProjectRepo(tx)
		now := s.now()

		p, err := s.loadOwned(ctx, projects, id, actorID)
		if err != nil {
			return err
		}

		current, err := projects.Tags(ctx, p.ID)
		if err != nil {
			return err
		}
		tagIDs := make(map[string]string, len(current))
		for _, t := range current {
			tagIDs[t.Name] = t.ID
			p.Tags = append(p.Tags, t.Name)
		}

		before := snapshot(p)
		previousVisibility := p.Visibility

		if req.Title != nil && *req.Title != p.Title {
			p.Title = *req.Title
			p.Slug, err = slug.EnsureUnique(ctx, func(ctx context.Context, candidate string) (bool, error) {
				return projects.SlugTaken(ctx, candidate, p.ID)
			}, p.Title, now)
			if err != nil {
				return err
			}
		}
		if req.Summary != nil {
			p.Summary = emptyToNil(req.Summary)
		}
		if req.Visibility != nil {
			p.Visibility = *req.Visibility
		}
		if req.CoverImageID != nil {
			p.CoverImageID = emptyToNil(req.CoverImageID)
		}

		if req.Tags != nil {
			next := NormalizeTags(*req.Tags)
			add, remove := diffTags(p.Tags, next)

			for _, name := range remove {
				if err := projects.UnlinkTag(ctx, p.ID, tagIDs[name]); err != nil {
					return err
				}
			}
			for _, name := range add {
				tagID, err := projects.UpsertTag(ctx, name)
				if err != nil {
					return err
				}
				if err := projects.LinkTag(ctx, p.ID, tagID); err != nil {
					return err
				}
			}

			slices.Sort(next)
			p.Tags = next
		}

		p.UpdatedAt = now
		if err := projects.Save(ctx, p); err != nil {
			return err
		}

		changes := audit.Diff(before, snapshot(p))
		if _, err := audit.NewAuditRepo(tx).Record(ctx, actorID, audit.ActionProjectUpdate, audit.EntityProject, p.ID, changes, ipAddress); err != nil {
			return err
		}

		if p.Visibility != previousVisibility {
			if err := feed.NewFeedRepo(tx).Append(ctx, &feed.Event{
				Type:      feed.EventProjectVisibilityChanged,
				ProjectID: p.ID,
				ActorID:   &actorID,
				CreatedAt: now,
			}); err != nil {
				return err
			}
		}

		project = p
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return project, nil
}

// SoftDelete hides a project from every listing. Updates, tags and media are kept.
func (s *ProjectService) SoftDelete(ctx context.Context, id, actorID, ipAddress string) error {
	ctx, span := tracer.Start(ctx, "ProjectService.SoftDelete")
	defer span.End()
	span.SetAttributes(attribute.String("project.id", id))

	return db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		projects := NewProjectRepo(tx)

		p, err := s.loadOwned(ctx, projects, id, actorID)
		if err != nil {
			return err
		}

		p.IsDeleted = true
		p.UpdatedAt = s.now()
		if err := projects.Save(ctx, p); err != nil {
			return err
		}

		_, err = audit.NewAuditRepo(tx).Record(ctx, actorID, audit.ActionProjectDelete, audit.EntityProject, p.ID,
			map[string]any{"isDeleted": true}, ipAddress)
		return err
	})
}

// ListByOwner returns the owner's dashboard
func (s *ProjectService) ListByOwner(ctx context.Context, ownerID string) ([]*DashboardProject, error) {
	repo := NewProjectRepo(s.db)

	projects, err := repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	tags, err := repo.TagNamesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		p.Tags = orEmpty(tags[p.ID])
	}

	return projects, nil
}

// ListPublic returns the public gallery
func (s *ProjectService) ListPublic(ctx context.Context) ([]*GalleryProject, error) {
	repo := NewProjectRepo(s.db)

	projects, err := repo.ListPublic(ctx, galleryLimit)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	tags, err := repo.TagNamesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		p.Tags = orEmpty(tags[p.ID])
	}

	return projects, nil
}

// GetBySlug loads the project page. Private projects look missing to
// everyone but their owner.
func (s *ProjectService) GetBySlug(ctx context.Context, projectSlug, viewerID string) (*Detail, error) {
	ctx, span := tracer.Start(ctx, "ProjectService.GetBySlug")
	defer span.End()

	repo := NewProjectRepo(s.db)

	p, err := repo.GetBySlug(ctx, projectSlug)
	if err != nil {
		return nil, err
	}
	if !p.IsVisibleTo(viewerID) {
		return nil, ErrProjectNotFound
	}

	tags, err := repo.Tags(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Tags = make([]string, 0, len(tags))
	for _, t := range tags {
		p.Tags = append(p.Tags, t.Name)
	}

	detail := &Detail{Project: p}

	if detail.Owner, err = repo.Owner(ctx, p.OwnerID); err != nil {
		return nil, err
	}
	if detail.Highlights, err = repo.Highlights(ctx, p.ID); err != nil {
		return nil, err
	}
	if detail.FollowerCount, err = repo.FollowerCount(ctx, p.ID); err != nil {
		return nil, err
	}
	if viewerID != "" {
		if detail.IsFollowing, err = repo.IsFollowing(ctx, p.ID, viewerID); err != nil {
			return nil, err
		}
	}

	return detail, nil
}

// ListAudit returns the audit trail of a project, soft-deleted or not. Only
// the owner may read it.
func (s *ProjectService) ListAudit(ctx context.Context, id, actorID string) ([]*audit.Entry, error) {
	p, err := NewProjectRepo(s.db).Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != actorID {
		return nil, ErrForbidden
	}

	return audit.NewAuditRepo(s.db).ListForEntity(ctx, audit.EntityProject, p.ID, auditListLimit)
}

// loadOwned locks a live project and checks that actorID owns it.
func (s *ProjectService) loadOwned(ctx context.Context, projects *ProjectRepo, id, actorID string) (*Project, error) {
	p, err := projects.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsDeleted {
		return nil, ErrProjectNotFound
	}
	if p.OwnerID != actorID {
		return nil, ErrForbidden
	}
	return p, nil
}

// withSlugRetry reruns fn in a fresh transaction when it loses a slug race
// to a concurrent writer.
func (s *ProjectService) withSlugRetry(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxSlugAttempts; attempt++ {
		err = db.WithTx(ctx, s.db, fn)
		if err == nil || !db.IsUniqueViolation(err) {
			return err
		}
		slog.WarnContext(ctx, "Unique violation while saving project, retrying", slog.Int("attempt", attempt), slog.Any("error", err))
	}
	return err
}

func snapshot(p *Project) map[string]any {
	tags := slices.Clone(p.Tags)
	slices.Sort(tags)
	return map[string]any{
		"title":        p.Title,
		"slug":         p.Slug,
		"summary":      deref(p.Summary),
		"visibility":   string(p.Visibility),
		"coverImageId": deref(p.CoverImageID),
		"tags":         orEmpty(tags),
	}
}

func emptyToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
