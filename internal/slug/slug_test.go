package slug

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	cases := map[string]string{
		"My First Project":     "my-first-project",
		"!Project -- Alpha!!":  "project-alpha",
		"  spaces   around  ":  "spaces-around",
		"Ünïcode & Friends":    "n-code-friends",
		"already-a-slug":       "already-a-slug",
		"---":                  "",
		"Version 2.0 (beta)":   "version-2-0-beta",
	}

	for in, want := range cases {
		assert.Equal(t, want, Generate(in, ""), in)
	}
}

func TestGenerate_Suffix(t *testing.T) {
	assert.Equal(t, "my-project-3", Generate("My Project", "3"))
}

func TestEnsureUnique(t *testing.T) {
	taken := map[string]bool{"demo": true, "demo-2": true}
	exists := func(_ context.Context, c string) (bool, error) { return taken[c], nil }

	got, err := EnsureUnique(context.Background(), exists, "Demo", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "demo-3", got)

	got, err = EnsureUnique(context.Background(), exists, "Fresh Title", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "fresh-title", got)
}

func TestEnsureUnique_EmptyBaseFallsBackToTimestamp(t *testing.T) {
	exists := func(context.Context, string) (bool, error) { return false, nil }
	now := time.UnixMilli(1700000000000)

	got, err := EnsureUnique(context.Background(), exists, "!!!", now)
	require.NoError(t, err)
	assert.Equal(t, "project-1700000000000", got)
}

func TestEnsureUnique_ProbeError(t *testing.T) {
	boom := errors.New("connection reset")
	exists := func(context.Context, string) (bool, error) { return false, boom }

	_, err := EnsureUnique(context.Background(), exists, "Demo", time.Now())
	assert.ErrorIs(t, err, boom)
}
