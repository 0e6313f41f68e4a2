package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curaious/projectchron/internal/testutil"
)

func appendEvents(t *testing.T, repo *FeedRepo, projectID string, n int, start time.Time) []string {
	t.Helper()

	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		e := &Event{
			Type:      EventProjectCreated,
			ProjectID: projectID,
			CreatedAt: start.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Append(context.Background(), e))
		ids = append(ids, e.ID)
	}
	return ids
}

func TestFeedService_Pagination(t *testing.T) {
	conn := testutil.NewDB(t)
	ctx := context.Background()
	owner := testutil.InsertUser(t, conn, "owner")
	projectID := testutil.InsertProject(t, conn, owner, "public-one", "PUBLIC")

	repo := NewFeedRepo(conn)
	ids := appendEvents(t, repo, projectID, 5, time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC))
	svc := NewFeedService(repo)

	page, err := svc.GetGlobalFeed(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, page.Events, 2)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, ids[4], page.Events[0].ID)
	assert.Equal(t, ids[3], page.Events[1].ID)
	assert.Equal(t, ids[3], *page.NextCursor)

	page, err = svc.GetGlobalFeed(ctx, *page.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, page.Events, 2)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, ids[2], page.Events[0].ID)
	assert.Equal(t, ids[1], page.Events[1].ID)

	page, err = svc.GetGlobalFeed(ctx, *page.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, page.Events, 1)
	assert.Equal(t, ids[0], page.Events[0].ID)
	assert.Nil(t, page.NextCursor)

	assert.Equal(t, "public-one", page.Events[0].Project.Slug)
	assert.Nil(t, page.Events[0].Update)
	assert.Nil(t, page.Events[0].Actor)
}

func TestFeedService_ExactPageHasNoCursor(t *testing.T) {
	conn := testutil.NewDB(t)
	owner := testutil.InsertUser(t, conn, "owner")
	projectID := testutil.InsertProject(t, conn, owner, "p", "PUBLIC")
	repo := NewFeedRepo(conn)
	appendEvents(t, repo, projectID, 2, time.Now().UTC())

	page, err := NewFeedService(repo).GetGlobalFeed(context.Background(), "", 2)
	require.NoError(t, err)
	assert.Len(t, page.Events, 2)
	assert.Nil(t, page.NextCursor)
}

func TestFeedService_HidesPrivateAndDeletedProjects(t *testing.T) {
	conn := testutil.NewDB(t)
	ctx := context.Background()
	owner := testutil.InsertUser(t, conn, "owner")
	public := testutil.InsertProject(t, conn, owner, "public", "PUBLIC")
	private := testutil.InsertProject(t, conn, owner, "private", "PRIVATE")
	deleted := testutil.InsertProject(t, conn, owner, "deleted", "PUBLIC")
	_, err := conn.Exec(`UPDATE projects SET is_deleted = TRUE WHERE id = ?`, deleted)
	require.NoError(t, err)

	repo := NewFeedRepo(conn)
	now := time.Now().UTC()
	for _, id := range []string{public, private, deleted} {
		require.NoError(t, repo.Append(ctx, &Event{Type: EventProjectCreated, ProjectID: id, ActorID: &owner, CreatedAt: now}))
	}

	page, err := NewFeedService(repo).GetGlobalFeed(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, page.Events, 1)
	assert.Equal(t, public, page.Events[0].Project.ID)
	require.NotNil(t, page.Events[0].Actor)
	assert.Equal(t, "owner", page.Events[0].Actor.Username)
}

func TestFeedService_UnknownCursor(t *testing.T) {
	conn := testutil.NewDB(t)

	_, err := NewService(conn).GetGlobalFeed(context.Background(), "missing", 10)
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, ClampLimit(0))
	assert.Equal(t, 7, ClampLimit(7))
	assert.Equal(t, MaxLimit, ClampLimit(500))
}
