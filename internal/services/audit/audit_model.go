package audit

import (
	"time"

	"github.com/curaious/projectchron/internal/db"
)

const (
	ActionAuthRegister       = "auth.register"
	ActionAuthLogin          = "auth.login"
	ActionAuthChangePassword = "auth.change_password"
	ActionProjectCreate      = "project.create"
	ActionProjectUpdate      = "project.update"
	ActionProjectDelete      = "project.delete"
	ActionUpdateCreate       = "update.create"
	ActionHighlightEnable    = "highlight.enable"
	ActionHighlightDisable   = "highlight.disable"
	ActionMediaRegister      = "media.register"
)

const (
	EntityUser    = "user"
	EntityProject = "project"
	EntityUpdate  = "update"
	EntityMedia   = "media"
)

// Entry is one append-only audit record.
type Entry struct {
	ID         string    `db:"id" json:"id"`
	ActorID    *string   `db:"actor_id" json:"actorId"`
	Action     string    `db:"action" json:"action"`
	EntityType string    `db:"entity_type" json:"entityType"`
	EntityID   string    `db:"entity_id" json:"entityId"`
	Changes    db.JSON   `db:"changes" json:"changes"`
	IPAddress  *string   `db:"ip_address" json:"ipAddress"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// Change is the before/after pair of one field in a structured diff.
type Change struct {
	From any `json:"from"`
	To   any `json:"to"`
}
