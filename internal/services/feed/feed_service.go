package feed

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultLimit = 20
	MaxLimit     = 50
)

var tracer = otel.Tracer("FeedService")

type FeedService struct {
	repo *FeedRepo
}

func NewFeedService(repo *FeedRepo) *FeedService {
	return &FeedService{repo: repo}
}

// NewService is a shorthand for a service reading through conn.
func NewService(conn *sqlx.DB) *FeedService {
	return NewFeedService(NewFeedRepo(conn))
}

// GetGlobalFeed reads one page of the public activity feed. One extra row is
// fetched to learn whether another page exists.
func (s *FeedService) GetGlobalFeed(ctx context.Context, cursor string, limit int) (*Page, error) {
	ctx, span := tracer.Start(ctx, "FeedService.GetGlobalFeed")
	defer span.End()

	limit = ClampLimit(limit)
	span.SetAttributes(attribute.Int("feed.limit", limit), attribute.String("feed.cursor", cursor))

	events, err := s.repo.ListPublic(ctx, cursor, limit+1)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	page := &Page{Events: events}
	if len(events) > limit {
		page.Events = events[:limit]
		next := page.Events[limit-1].ID
		page.NextCursor = &next
	}

	return page, nil
}

// ClampLimit applies the default and maximum page size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
