// Package testutil provides an in-memory database with the full schema for
// package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/curaious/projectchron/internal/db"
	"github.com/curaious/projectchron/internal/migrations"
)

var dbSeq atomic.Int64

// NewDB returns a fresh migrated SQLite database that is closed when t ends.
func NewDB(t testing.TB) *sqlx.DB {
	t.Helper()

	name := fmt.Sprintf("file:projectchron_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	conn, err := db.OpenSQLite(name)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	m, err := migrations.NewMigrator(conn)
	require.NoError(t, err)
	require.NoError(t, m.Up(0))

	return conn
}
