package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/curaious/projectchron/internal/services/user"
)

var ErrSessionNotFound = errors.New("session not found")

type SessionRepo struct {
	db sqlx.ExtContext
}

func NewSessionRepo(db sqlx.ExtContext) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Create(ctx context.Context, s *Session) error {
	query := r.db.Rebind(`
		INSERT INTO sessions (id, user_id, token_hash, expires_at, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query, s.ID, s.UserID, s.TokenHash, s.ExpiresAt, s.IPAddress, s.UserAgent, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

type sessionWithUser struct {
	Session
	User user.User `db:"user"`
}

// GetByTokenHash loads a session together with its user.
func (r *SessionRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error) {
	query := r.db.Rebind(`
		SELECT s.id, s.user_id, s.token_hash, s.expires_at, s.ip_address, s.user_agent, s.created_at,
		       u.id AS "user.id", u.username AS "user.username", u.password_hash AS "user.password_hash",
		       u.display_name AS "user.display_name", u.is_admin AS "user.is_admin",
		       u.created_at AS "user.created_at", u.updated_at AS "user.updated_at"
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = ?
	`)

	var row sessionWithUser
	if err := sqlx.GetContext(ctx, r.db, &row, query, tokenHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	s := row.Session
	s.User = &row.User
	return &s, nil
}

// UpdateToken swaps the digest and expiry of an existing row.
func (r *SessionRepo) UpdateToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	query := r.db.Rebind(`UPDATE sessions SET token_hash = ?, expires_at = ? WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, tokenHash, expiresAt, id)
	if err != nil {
		return fmt.Errorf("failed to rotate session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepo) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM sessions WHERE id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *SessionRepo) DeleteByTokenHash(ctx context.Context, tokenHash string) (int64, error) {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM sessions WHERE token_hash = ?`), tokenHash)
	if err != nil {
		return 0, fmt.Errorf("failed to delete session: %w", err)
	}
	return result.RowsAffected()
}

func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM sessions WHERE expires_at < ?`), now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return result.RowsAffected()
}
