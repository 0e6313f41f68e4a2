package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curaious/projectchron/internal/testutil"
)

func countSessions(t *testing.T, svc *SessionService) int {
	t.Helper()
	var n int
	require.NoError(t, svc.repo.db.QueryRowxContext(context.Background(), `SELECT COUNT(*) FROM sessions`).Scan(&n))
	return n
}

func TestSessionService_CreateAndLookup(t *testing.T) {
	conn := testutil.NewDB(t)
	ctx := context.Background()
	userID := testutil.InsertUser(t, conn, "alice")
	svc := NewService(conn)

	issued, err := svc.Create(ctx, userID, ClientMeta{IPAddress: "10.0.0.1", UserAgent: "test"})
	require.NoError(t, err)
	assert.Len(t, issued.Token, 43)
	assert.NotEqual(t, issued.Token, issued.Session.TokenHash)
	assert.Equal(t, Digest(issued.Token), issued.Session.TokenHash)
	assert.WithinDuration(t, time.Now().Add(Lifetime), issued.ExpiresAt, time.Minute)

	sess, err := svc.Lookup(ctx, issued.Token)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, issued.Session.ID, sess.ID)
	require.NotNil(t, sess.User)
	assert.Equal(t, "alice", sess.User.Username)
	require.NotNil(t, sess.IPAddress)
	assert.Equal(t, "10.0.0.1", *sess.IPAddress)

	sess, err = svc.Lookup(ctx, "not-a-token")
	require.NoError(t, err)
	assert.Nil(t, sess)

	sess, err = svc.Lookup(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestSessionService_ExpiredLookupRemovesRow(t *testing.T) {
	conn := testutil.NewDB(t)
	ctx := context.Background()
	userID := testutil.InsertUser(t, conn, "alice")
	svc := NewService(conn)

	issued, err := svc.Create(ctx, userID, ClientMeta{})
	require.NoError(t, err)
	require.Equal(t, 1, countSessions(t, svc))

	svc.now = func() time.Time { return time.Now().UTC().Add(Lifetime + time.Hour) }

	sess, err := svc.Lookup(ctx, issued.Token)
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Equal(t, 0, countSessions(t, svc))
}

func TestSessionService_Rotate(t *testing.T) {
	conn := testutil.NewDB(t)
	ctx := context.Background()
	userID := testutil.InsertUser(t, conn, "alice")
	svc := NewService(conn)

	issued, err := svc.Create(ctx, userID, ClientMeta{})
	require.NoError(t, err)

	rotated, err := svc.Rotate(ctx, issued.Session.ID)
	require.NoError(t, err)
	assert.NotEqual(t, issued.Token, rotated.Token)

	old, err := svc.Lookup(ctx, issued.Token)
	require.NoError(t, err)
	assert.Nil(t, old)

	sess, err := svc.Lookup(ctx, rotated.Token)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, issued.Session.ID, sess.ID)

	_, err = svc.Rotate(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionService_Invalidate(t *testing.T) {
	conn := testutil.NewDB(t)
	ctx := context.Background()
	userID := testutil.InsertUser(t, conn, "alice")
	svc := NewService(conn)

	first, err := svc.Create(ctx, userID, ClientMeta{})
	require.NoError(t, err)
	second, err := svc.Create(ctx, userID, ClientMeta{})
	require.NoError(t, err)

	require.NoError(t, svc.Invalidate(ctx, first.Token))
	require.NoError(t, svc.Invalidate(ctx, first.Token))
	require.NoError(t, svc.Invalidate(ctx, ""))

	sess, err := svc.Lookup(ctx, first.Token)
	require.NoError(t, err)
	assert.Nil(t, sess)

	sess, err = svc.Lookup(ctx, second.Token)
	require.NoError(t, err)
	assert.NotNil(t, sess)
}

func TestSessionService_PurgeExpired(t *testing.T) {
	conn := testutil.NewDB(t)
	ctx := context.Background()
	userID := testutil.InsertUser(t, conn, "alice")
	svc := NewService(conn)

	_, err := svc.Create(ctx, userID, ClientMeta{})
	require.NoError(t, err)

	require.NoError(t, svc.PurgeExpired(ctx))
	assert.Equal(t, 1, countSessions(t, svc))

	svc.now = func() time.Time { return time.Now().UTC().Add(Lifetime + time.Hour) }
	require.NoError(t, svc.PurgeExpired(ctx))
	assert.Equal(t, 0, countSessions(t, svc))
}
