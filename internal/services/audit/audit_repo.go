package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/curaious/projectchron/internal/db"
)

// AuditRepo writes audit entries. It is usually built on the transaction of
// the operation being audited so that both commit together.
type AuditRepo struct {
	db sqlx.ExtContext
}

func NewAuditRepo(db sqlx.ExtContext) *AuditRepo {
	return &AuditRepo{db: db}
}

// Record appends an entry. changes is marshalled to JSON when not nil.
func (r *AuditRepo) Record(ctx context.Context, actorID, action, entityType, entityID string, changes any, ipAddress string) (*Entry, error) {
	entry := &Entry{
		ID:         uuid.NewString(),
		ActorID:    optional(actorID),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		IPAddress:  optional(ipAddress),
		CreatedAt:  time.Now().UTC(),
	}

	if changes != nil {
		b, err := sonic.Marshal(changes)
		if err != nil {
			return nil, fmt.Errorf("failed to encode audit changes: %w", err)
		}
		entry.Changes = db.JSON(b)
	}

	query := r.db.Rebind(`
		INSERT INTO audit_logs (id, actor_id, action, entity_type, entity_id, changes, ip_address, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.ActorID, entry.Action, entry.EntityType, entry.EntityID, entry.Changes, entry.IPAddress, entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to write audit entry: %w", err)
	}

	return entry, nil
}

// ListForEntity returns entries for one entity, newest first.
func (r *AuditRepo) ListForEntity(ctx context.Context, entityType, entityID string, limit int) ([]*Entry, error) {
	query := r.db.Rebind(`
		SELECT id, actor_id, action, entity_type, entity_id, changes, ip_address, created_at
		FROM audit_logs
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`)

	entries := []*Entry{}
	if err := sqlx.SelectContext(ctx, r.db, &entries, query, entityType, entityID, limit); err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}

	return entries, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
