package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
)

const tokenBytes = 32

var tracer = otel.Tracer("SessionService")

type SessionService struct {
	repo *SessionRepo
	now  func() time.Time
}

func NewSessionService(repo *SessionRepo) *SessionService {
	return &SessionService{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// NewService is a shorthand for a service backed by conn.
func NewService(conn *sqlx.DB) *SessionService {
	return NewSessionService(NewSessionRepo(conn))
}

// Create issues a new bearer token for userID.
func (s *SessionService) Create(ctx context.Context, userID string, meta ClientMeta) (*Issued, error) {
	ctx, span := tracer.Start(ctx, "SessionService.Create")
	defer span.End()

	token, digest, err := newToken()
	if err != nil {
		return nil, err
	}

	now := s.now()
	sess := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: digest,
		ExpiresAt: now.Add(Lifetime),
		IPAddress: optional(meta.IPAddress),
		UserAgent: optional(meta.UserAgent),
		CreatedAt: now,
	}

	if err := s.repo.Create(ctx, sess); err != nil {
		span.RecordError(err)
		return nil, err
	}

	return &Issued{Session: sess, Token: token, ExpiresAt: sess.ExpiresAt}, nil
}

// Lookup resolves a bearer token. A missing or expired session is reported as
// (nil, nil); an expired row is deleted on the way out.
func (s *SessionService) Lookup(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, nil
	}

	ctx, span := tracer.Start(ctx, "SessionService.Lookup")
	defer span.End()

	sess, err := s.repo.GetByTokenHash(ctx, Digest(token))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, err
	}

	if sess.ExpiresAt.Before(s.now()) {
		if err := s.repo.DeleteByID(ctx, sess.ID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	return sess, nil
}

// Rotate gives an existing session a new token and expiry. The previous token
// stops resolving as soon as the row is updated.
func (s *SessionService) Rotate(ctx context.Context, sessionID string) (*Issued, error) {
	ctx, span := tracer.Start(ctx, "SessionService.Rotate")
	defer span.End()

	token, digest, err := newToken()
	if err != nil {
		return nil, err
	}

	expiresAt := s.now().Add(Lifetime)
	if err := s.repo.UpdateToken(ctx, sessionID, digest, expiresAt); err != nil {
		span.RecordError(err)
		return nil, err
	}

	return &Issued{Token: token, ExpiresAt: expiresAt}, nil
}

// Invalidate deletes every session matching token. An empty token is a no-op.
func (s *SessionService) Invalidate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	_, err := s.repo.DeleteByTokenHash(ctx, Digest(token))
	return err
}

// PurgeExpired removes every session past its expiry.
func (s *SessionService) PurgeExpired(ctx context.Context) error {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return err
	}
	if n > 0 {
		slog.InfoContext(ctx, "Purged expired sessions", slog.Int64("count", n))
	}
	return nil
}

// Digest is the stored form of a bearer token.
func Digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newToken() (token string, digest string, err error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("failed to generate session token: %w", err)
	}
	token = base64.RawURLEncoding.EncodeToString(b)
	return token, Digest(token), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
