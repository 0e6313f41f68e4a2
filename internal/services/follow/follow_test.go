package follow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curaious/projectchron/internal/services/project"
	"github.com/curaious/projectchron/internal/testutil"
)

func TestFollowService(t *testing.T) {
	conn := testutil.NewDB(t)
	ctx := context.Background()
	owner := testutil.InsertUser(t, conn, "owner")
	fan := testutil.InsertUser(t, conn, "fan")
	public := testutil.InsertProject(t, conn, owner, "public", "PUBLIC")
	private := testutil.InsertProject(t, conn, owner, "private", "PRIVATE")
	svc := NewFollowService(conn)

	followers := func(projectID string) int {
		n, err := project.NewProjectRepo(conn).FollowerCount(ctx, projectID)
		require.NoError(t, err)
		return n
	}

	t.Run("private project rejects non-owner", func(t *testing.T) {
		assert.ErrorIs(t, svc.Follow(ctx, private, fan), ErrProjectNotPublic)
		assert.Equal(t, 0, followers(private))
	})

	t.Run("owner may follow own private project", func(t *testing.T) {
		require.NoError(t, svc.Follow(ctx, private, owner))
		assert.Equal(t, 1, followers(private))
	})

	t.Run("follow is idempotent", func(t *testing.T) {
		require.NoError(t, svc.Follow(ctx, public, fan))
		require.NoError(t, svc.Follow(ctx, public, fan))
		assert.Equal(t, 1, followers(public))
	})

	t.Run("unfollow is idempotent", func(t *testing.T) {
		require.NoError(t, svc.Unfollow(ctx, public, fan))
		require.NoError(t, svc.Unfollow(ctx, public, fan))
		assert.Equal(t, 0, followers(public))
	})

	t.Run("missing or deleted project", func(t *testing.T) {
		assert.ErrorIs(t, svc.Follow(ctx, "missing", fan), project.ErrProjectNotFound)

		_, err := conn.Exec(`UPDATE projects SET is_deleted = TRUE WHERE id = ?`, public)
		require.NoError(t, err)
		assert.ErrorIs(t, svc.Follow(ctx, public, fan), project.ErrProjectNotFound)
		assert.ErrorIs(t, svc.Unfollow(ctx, public, fan), project.ErrProjectNotFound)
	})
}
