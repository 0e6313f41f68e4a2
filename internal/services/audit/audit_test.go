package audit

import (
	"context"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curaious/projectchron/internal/testutil"
)

func TestAuditRepo_RecordAndList(t *testing.T) {
	conn := testutil.NewDB(t)
	ctx := context.Background()
	repo := NewAuditRepo(conn)

	_, err := repo.Record(ctx, "", ActionProjectCreate, EntityProject, "p1", nil, "")
	require.NoError(t, err)
	_, err = repo.Record(ctx, "", ActionProjectUpdate, EntityProject, "p1",
		map[string]Change{"title": {From: "Old", To: "New"}}, "127.0.0.1")
	require.NoError(t, err)
	_, err = repo.Record(ctx, "", ActionProjectCreate, EntityProject, "p2", nil, "")
	require.NoError(t, err)

	entries, err := NewService(conn).ListForEntity(ctx, EntityProject, "p1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	actions := []string{entries[0].Action, entries[1].Action}
	assert.ElementsMatch(t, []string{ActionProjectCreate, ActionProjectUpdate}, actions)

	for _, e := range entries {
		assert.Nil(t, e.ActorID)
		if e.Action != ActionProjectUpdate {
			assert.Empty(t, e.Changes)
			continue
		}
		require.NotNil(t, e.IPAddress)
		assert.Equal(t, "127.0.0.1", *e.IPAddress)

		var changes map[string]Change
		require.NoError(t, sonic.Unmarshal(e.Changes, &changes))
		assert.Equal(t, "New", changes["title"].To)
	}
}

func TestDiff(t *testing.T) {
	before := map[string]any{"title": "A", "tags": []string{"go"}, "visibility": "PRIVATE"}
	after := map[string]any{"title": "A", "tags": []string{"go", "db"}, "visibility": "PUBLIC"}

	changes := Diff(before, after)
	assert.Len(t, changes, 2)
	assert.Equal(t, "PUBLIC", changes["visibility"].To)
	assert.Equal(t, []string{"go"}, changes["tags"].From)
	_, ok := changes["title"]
	assert.False(t, ok)
}
