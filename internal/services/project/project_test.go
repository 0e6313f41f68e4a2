package project

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curaious/projectchron/internal/perrors"
	"github.com/curaious/projectchron/internal/services/audit"
	"github.com/curaious/projectchron/internal/testutil"
)

func strPtr(s string) *string { return &s }

func countRows(t *testing.T, conn *sqlx.DB, query string, args ...interface{}) int {
	t.Helper()
	var n int
	require.NoError(t, conn.Get(&n, conn.Rebind(query), args...))
	return n
}

func TestProjectService_Create(t *testing.T) {
	conn := testutil.NewDB(t)
	ctx := context.Background()
	owner := testutil.InsertUser(t, conn, "alice")
	svc := NewProjectService(conn)

	p, err := svc.Create(ctx, owner, &CreateProjectRequest{
		Title:   "  My First Project ",
		Summary: strPtr("A summary"),
		Tags:    []string{"Go", " go ", "Databases", ""},
	}, "10.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, "My First Project", p.Title)
	assert.Equal(t, "my-first-project", p.Slug)
	assert.Equal(t, VisibilityPrivate, p.Visibility)
	assert.Equal(t, []string{"databases", "go"}, p.Tags)

	assert.Equal(t, 2, countRows(t, conn, `SELECT COUNT(*) FROM project_tags WHERE project_id = ?`, p.ID))
	assert.Equal(t, 1, countRows(t, conn, `SELECT COUNT(*) FROM audit_logs WHERE action = ? AND entity_id = ?`, audit.ActionProjectCreate, p.ID))
	assert.Equal(t, 1, countRows(t, conn, `SELECT COUNT(*) FROM feed_events WHERE type = 'PROJECT_CREATED' AND project_id = ?`, p.ID))
}

func TestProjectService_CreateDuplicateTitles(t *testing.T) {
	conn := testutil.NewDB(t)
	ctx := context.Background()
	owner := testutil.InsertUser(t, conn, "alice")
	svc := NewProjectService(conn)

	first, err := svc.Create(ctx, owner, &CreateProjectRequest{Title: "Same Title"}, "")
	require.NoError(t, err)
	second, err := svc.Create(ctx, owner, &CreateProjectRequest{Title: "Same Title"}, "")
	require.NoError(t, err)
	third, err := svc.Create(ctx, owner, &CreateProjectRequest{Title: "same title!!"}, "")
	require.NoError(t, err)

	assert.Equal(t, "same-title", first.Slug)
	assert.Equal(t, "same-title-2", second.Slug)
	assert.Equal(t, "same-title-3", third.Slug)
}

func TestProjectService_CreateSharesTags(t *testing.T) {
	conn := testutil.NewDB(t)
	ctx := context.Background()
	owner := testutil.InsertUser(t, conn, "alice")
	svc := NewProjectService(conn)

	_, err := svc.Create(ctx, owner, &CreateProjectRequest{Title: "One", Tags: []string{"go"}}, "")
	require.NoError(t, err)
	_, err = svc.Create(ctx, owner, &CreateProjectRequest{Title: "Two", Tags: []string{"GO"}}, "")
	require.NoError(t, err)

	assert.Equal(t, 1, countRows(t, conn, `SELECT COUNT(*) FROM tags`))
	assert.Equal(t, 2, countRows(t, conn, `SELECT COUNT(*) FROM project_tags`))
}

func TestProjectService_CreateValidation(t *testing.T) {
	conn := testutil.NewDB(t)
	owner := testutil.InsertUser(t, conn, "alice")

	_, err := NewProjectService(conn).Create(context.Background(), owner, &CreateProjectRequest{
		Title:      "ab",
		Visibility: "SECRET",
	}, "")

	var perr perrors.Err
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, perrors.ErrCodeValidation, perr.Code)
	assert.Contains(t, perr.Issues, "title")
	assert.Contains(t, perr.Issues, "visibility")
	assert.Equal(t, 0, countRows(t, conn, `SELECT COUNT(*) FROM projects`))
}

func TestProjectService_Update(t *testing.T) {
	conn := testutil.NewDB(t)
	ctx := context.Background()
	owner := testutil.InsertUser(t, conn, "alice")
	svc := NewProjectService(conn)

	p, err := svc.Create(ctx, owner, &CreateProjectRequest{Title: "Old Name", Summary: strPtr("x"), Tags: []string{"a", "b"}}, "")
	require.NoError(t, err)

	public := VisibilityPublic
	updated, err := svc.Update(ctx, p.ID, owner, &UpdateProjectRequest{
		Title:      strPtr("New Name"),
		Summary:    strPtr(""),
		Visibility: &public,
		Tags:       &[]string{"B", "c"},
	}, "")
	require.NoError(t, err)

	assert.Equal(t, "new-name", updated.Slug)
	assert.Nil(t, updated.Summary)
	assert.Equal(t, VisibilityPublic, updated.Visibility)
	assert.Equal(t, []string{"b", "c"}, updated.Tags)

	tags, err := NewProjectRepo(conn).Tags(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "b", tags[0].Name)
	assert.Equal(t, "c", tags[1].Name)

	assert.Equal(t, 1, countRows(t, conn, `SELECT COUNT(*) FROM feed_events WHERE type = 'PROJECT_VISIBILITY_CHANGED'`))

	entries, err := svc.ListAudit(ctx, p.ID, owner)
	require.NoError(t, err)
	var updateEntry *audit.Entry
	for _, e := range entries {
		if e.Action == audit.ActionProjectUpdate {
			updateEntry = e
		}
	}
	require.NotNil(t, updateEntry)

	var changes map[string]audit.Change
	require.NoError(t, sonic.Unmarshal(updateEntry.Changes, &changes))
	assert.Equal(t, "New Name", changes["title"].To)
	assert.Equal(t, "new-name", changes["slug"].To)
	assert.Contains(t, changes, "tags")

	// Same visibility again: audited, but no new feed event.
	again, err := svc.Update(ctx, p.ID, owner, &UpdateProjectRequest{Visibility: &public}, "")
	require.NoError(t, err)
	assert.Equal(t, "new-name", again.Slug)
	assert.Equal(t, []string{"b", "c"}, again.Tags)
	assert.Equal(t, 1, countRows(t, conn, `SELECT COUNT(*) FROM feed_events WHERE type = 'PROJECT_VISIBILITY_CHANGED'`))
	assert.Equal(t, 2, countRows(t, conn, `SELECT COUNT(*) FROM audit_logs WHERE action = ?`, audit.ActionProjectUpdate))
}

func TestProjectService_UpdateKeepsSlugForEquivalentTitle(t *testing.T) {
	conn := testutil.NewDB(t)
	ctx := context.Background()
	owner := testutil.InsertUser(t, conn, "alice")
	svc := NewProjectService(conn)

	p, err := svc.Create(ctx, owner, &CreateProjectRequest{Title: "Rocket Build"}, "")
	require.NoError(t, err)

	updated, err := svc.Update(ctx, p.ID, owner, &UpdateProjectRequest{Title: strPtr("Rocket build!")}, "")
	require.NoError(t, err)
	assert.Equal(t, "rocket-build", updated.Slug)
}

func TestProjectService_OwnershipAndMissing(t *testing.T) {
	conn := testutil.NewDB(t)
	ctx := context.Background()
	owner := testutil.InsertUser(t, conn, "alice")
	other := testutil.InsertUser(t, conn, "mallory")
	svc := NewProjectService(conn)

	p, err := svc.Create(ctx, owner, &CreateProjectRequest{Title: "Mine"}, "")
	require.NoError(t, err)

	_, err = svc.Update(ctx, p.ID, other, &UpdateProjectRequest{Title: strPtr("Theirs")}, "")
	assert.ErrorIs(t, err, ErrForbidden)

	err = svc.SoftDelete(ctx, p.ID, other, "")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.ListAudit(ctx, p.ID, other)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Update(ctx, "missing", owner, &UpdateProjectRequest{}, "")
	assert.ErrorIs(t, err, ErrProjectNotFound)

	err = svc.SoftDelete(ctx, "missing", owner, "")
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestProjectService_SoftDelete(t *testing.T) {
	conn := testutil.NewDB(t)
	ctx := context.Background()
	owner := testutil.InsertUser(t, conn, "alice")
	svc := NewProjectService(conn)

	p, err := svc.Create(ctx, owner, &CreateProjectRequest{Title: "Short Lived", Visibility: VisibilityPublic}, "")
	require.NoError(t, err)
	kept, err := svc.Create(ctx, owner, &CreateProjectRequest{Title: "Kept", Visibility: VisibilityPublic}, "")
	require.NoError(t, err)

	require.NoError(t, svc.SoftDelete(ctx, p.ID, owner, ""))

	owned, err := svc.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, kept.ID, owned[0].ID)

	gallery, err := svc.ListPublic(ctx)
	require.NoError(t, err)
	require.Len(t, gallery, 1)
	assert.Equal(t, "alice", gallery[0].OwnerUsername)

	_, err = svc.GetBySlug(ctx, p.Slug, owner)
	assert.ErrorIs(t, err, ErrProjectNotFound)

	_, err = svc.Update(ctx, p.ID, owner, &UpdateProjectRequest{Title: strPtr("Back")}, "")
	assert.ErrorIs(t, err, ErrProjectNotFound)

	// The slug stays reserved.
	again, err := svc.Create(ctx, owner, &CreateProjectRequest{Title: "Short Lived"}, "")
	require.NoError(t, err)
	assert.Equal(t, "short-lived-2", again.Slug)

	entries, err := svc.ListAudit(ctx, p.ID, owner)
	require.NoError(t, err)
	actions := []string{}
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	assert.ElementsMatch(t, []string{audit.ActionProjectCreate, audit.ActionProjectDelete}, actions)
}

func TestProjectService_GetBySlug(t *testing.T) {
	conn := testutil.NewDB(t)
	ctx := context.Background()
	owner := testutil.InsertUser(t, conn, "alice")
	viewer := testutil.InsertUser(t, conn, "bob")
	svc := NewProjectService(conn)

	private, err := svc.Create(ctx, owner, &CreateProjectRequest{Title: "Hidden", Tags: []string{"x"}}, "")
	require.NoError(t, err)

	_, err = svc.GetBySlug(ctx, private.Slug, viewer)
	assert.ErrorIs(t, err, ErrProjectNotFound)
	_, err = svc.GetBySlug(ctx, private.Slug, "")
	assert.ErrorIs(t, err, ErrProjectNotFound)

	detail, err := svc.GetBySlug(ctx, private.Slug, owner)
	require.NoError(t, err)
	assert.Equal(t, private.ID, detail.Project.ID)
	assert.Equal(t, "alice", detail.Owner.Username)
	assert.Equal(t, []string{"x"}, detail.Project.Tags)
	assert.Empty(t, detail.Highlights)
	assert.Equal(t, 0, detail.FollowerCount)
	assert.False(t, detail.IsFollowing)
}

func TestProjectService_CreateRollsBackOnFailure(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	conn := sqlx.NewDb(mockDB, "sqlmock")
	svc := NewProjectService(conn)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM projects`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO projects`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO audit_logs`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO feed_events`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err = svc.Create(context.Background(), "owner-id", &CreateProjectRequest{Title: "Doomed"}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNormalizeTags(t *testing.T) {
	in := []string{"A", "b", "a", " ", "c", "d", "e", "f", "g", "h", "i", "j", "k"}
	out := NormalizeTags(in)
	assert.Len(t, out, MaxTags)
	assert.Equal(t, "a", out[0])
	assert.NotContains(t, out, "k")
}

func TestDiffTags(t *testing.T) {
	add, remove := diffTags([]string{"a", "b"}, []string{"b", "c"})
	assert.Equal(t, []string{"c"}, add)
	assert.Equal(t, []string{"a"}, remove)

	add, remove = diffTags([]string{"a"}, []string{"a"})
	assert.Empty(t, add)
	assert.Empty(t, remove)
}
