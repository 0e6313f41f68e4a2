// Package slug derives URL-safe identifiers from titles.
package slug

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Generate lowercases input and collapses every run of non-alphanumeric
// characters into a single hyphen, trimming hyphens at both ends. A non-empty
// suffix is appended as "-<suffix>".
func Generate(input string, suffix string) string {
	base := nonAlphanumeric.ReplaceAllString(strings.ToLower(input), "-")
	base = strings.Trim(base, "-")
	if suffix == "" {
		return base
	}
	return fmt.Sprintf("%s-%s", base, suffix)
}

// ExistsFunc reports whether a slug is already taken.
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

// EnsureUnique returns the first free slug among base, base-2, base-3, ...
// Titles that normalize to nothing fall back to a timestamp-seeded base.
//
// The probe is not atomic: the unique index on the slug column is the real
// guard, and callers retry when an insert loses the race.
func EnsureUnique(ctx context.Context, exists ExistsFunc, title string, now time.Time) (string, error) {
	base := Generate(title, "")
	if base == "" {
		base = Generate("project-"+strconv.FormatInt(now.UnixMilli(), 10), "")
	}

	candidate := base
	for suffix := 2; ; suffix++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to probe slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = Generate(base, strconv.Itoa(suffix))
	}
}
