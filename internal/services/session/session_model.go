package session

import (
	"time"

	"github.com/curaious/projectchron/internal/services/user"
)

const (
	CookieName = "pc_session"
	Lifetime   = 30 * 24 * time.Hour
)

// Session is a server-side login. Only the SHA-256 digest of the bearer
// token is stored.
type Session struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"userId"`
	TokenHash string     `db:"token_hash" json:"-"`
	ExpiresAt time.Time  `db:"expires_at" json:"expiresAt"`
	IPAddress *string    `db:"ip_address" json:"ipAddress"`
	UserAgent *string    `db:"user_agent" json:"userAgent"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	User      *user.User `db:"-" json:"user,omitempty"`
}

// ClientMeta is optional request metadata stored with a session.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}

// Issued is a freshly minted bearer token. Token is only ever held in memory
// and in the client's cookie.
type Issued struct {
	Session   *Session
	Token     string
	ExpiresAt time.Time
}
