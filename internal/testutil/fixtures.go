package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// InsertUser writes a bare user row and returns its id.
func InsertUser(t testing.TB, conn *sqlx.DB, username string) string {
	t.Helper()

	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := conn.Exec(conn.Rebind(`
		INSERT INTO users (id, username, password_hash, is_admin, created_at, updated_at)
		VALUES (?, ?, 'x', FALSE, ?, ?)
	`), id, username, now, now)
	require.NoError(t, err)

	return id
}

// InsertProject writes a bare project row and returns its id.
func InsertProject(t testing.TB, conn *sqlx.DB, ownerID, slug, visibility string) string {
	t.Helper()

	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := conn.Exec(conn.Rebind(`
		INSERT INTO projects (id, owner_id, title, slug, visibility, is_deleted, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, FALSE, ?, ?)
	`), id, ownerID, "Project "+slug, slug, visibility, now, now)
	require.NoError(t, err)

	return id
}
