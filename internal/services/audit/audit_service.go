package audit

import (
	"context"

	"github.com/jmoiron/sqlx"
)

const maxListLimit = 200

type AuditService struct {
	repo *AuditRepo
}

func NewAuditService(repo *AuditRepo) *AuditService {
	return &AuditService{repo: repo}
}

// NewService is a shorthand for a service reading through conn.
func NewService(conn *sqlx.DB) *AuditService {
	return NewAuditService(NewAuditRepo(conn))
}

// ListForEntity returns up to limit entries for one entity, newest first.
func (s *AuditService) ListForEntity(ctx context.Context, entityType, entityID string, limit int) ([]*Entry, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	return s.repo.ListForEntity(ctx, entityType, entityID, limit)
}

// Diff returns the fields whose values differ between before and after.
// Both maps are keyed by JSON field name.
func Diff(before, after map[string]any) map[string]Change {
	changes := map[string]Change{}
	for field, to := range after {
		from := before[field]
		if !equal(from, to) {
			changes[field] = Change{From: from, To: to}
		}
	}
	return changes
}

func equal(a, b any) bool {
	switch av := a.(type) {
	case []string:
		bv, ok := b.([]string)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
