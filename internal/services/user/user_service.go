package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/curaious/projectchron/internal/credential"
	"github.com/curaious/projectchron/internal/db"
	"github.com/curaious/projectchron/internal/services/audit"
	"github.com/curaious/projectchron/internal/validation"
)

var (
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrWrongPassword      = errors.New("current password is incorrect")
)

var tracer = otel.Tracer("UserService")

type UserService struct {
	db     *sqlx.DB
	hasher *credential.Hasher
	now    func() time.Time
}

func NewUserService(conn *sqlx.DB, hasher *credential.Hasher) *UserService {
	return &UserService{
		db:     conn,
		hasher: hasher,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a new account and records auth.register in the same transaction.
func (s *UserService) Register(ctx context.Context, req *RegisterRequest, ipAddress string) (*User, error) {
	ctx, span := tracer.Start(ctx, "UserService.Register")
	defer span.End()

	req.Username = NormalizeUsername(req.Username)
	if err := validation.Struct("Invalid registration details", req); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		PasswordHash: hash,
		DisplayName:  req.DisplayName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		users := NewUserRepo(tx)
		if _, err := users.GetByUsername(ctx, user.Username); err == nil {
			return ErrUsernameTaken
		} else if !errors.Is(err, ErrUserNotFound) {
			return err
		}

		if err := users.Create(ctx, user); err != nil {
			if db.IsUniqueViolation(err) {
				return ErrUsernameTaken
			}
			return err
		}

		_, err := audit.NewAuditRepo(tx).Record(ctx, user.ID, audit.ActionAuthRegister, audit.EntityUser, user.ID, nil, ipAddress)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.String("user.id", user.ID))
	return user, nil
}

// Authenticate checks a username and password pair and records auth.login.
// Unknown users and wrong passwords are indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, req *LoginRequest, ipAddress string) (*User, error) {
	ctx, span := tracer.Start(ctx, "UserService.Authenticate")
	defer span.End()

	if err := validation.Struct("Invalid login details", req); err != nil {
		return nil, err
	}

	user, err := NewUserRepo(s.db).GetByUsername(ctx, NormalizeUsername(req.Username))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := s.hasher.Verify(user.PasswordHash, req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if _, err := audit.NewAuditRepo(s.db).Record(ctx, user.ID, audit.ActionAuthLogin, audit.EntityUser, user.ID, nil, ipAddress); err != nil {
		return nil, err
	}

	return user, nil
}

// ChangePassword re-verifies the current password before storing the new hash.
// The caller is expected to rotate the active session afterwards.
func (s *UserService) ChangePassword(ctx context.Context, userID string, req *ChangePasswordRequest, ipAddress string) error {
	ctx, span := tracer.Start(ctx, "UserService.ChangePassword")
	defer span.End()

	if err := validation.Struct("Invalid password change", req); err != nil {
		return err
	}

	return db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		users := NewUserRepo(tx)
		user, err := users.GetByID(ctx, userID)
		if err != nil {
			return err
		}

		ok, err := s.hasher.Verify(user.PasswordHash, req.CurrentPassword)
		if err != nil {
			return fmt.Errorf("failed to verify password: %w", err)
		}
		if !ok {
			return ErrWrongPassword
		}

		hash, err := s.hasher.Hash(req.NewPassword)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		if err := users.UpdatePasswordHash(ctx, userID, hash, s.now()); err != nil {
			return err
		}

		_, err = audit.NewAuditRepo(tx).Record(ctx, userID, audit.ActionAuthChangePassword, audit.EntityUser, userID, nil, ipAddress)
		return err
	})
}

func (s *UserService) GetByID(ctx context.Context, id string) (*User, error) {
	return NewUserRepo(s.db).GetByID(ctx, id)
}

// EnsureAdmin creates an admin account, or promotes and resets the password
// of an existing one.
func (s *UserService) EnsureAdmin(ctx context.Context, req *RegisterRequest) (*User, error) {
	req.Username = NormalizeUsername(req.Username)
	if err := validation.Struct("Invalid admin details", req); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var user *User
	err = db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		users := NewUserRepo(tx)
		now := s.now()

		existing, err := users.GetByUsername(ctx, req.Username)
		if err != nil && !errors.Is(err, ErrUserNotFound) {
			return err
		}

		if existing != nil {
			if err := users.UpdatePasswordHash(ctx, existing.ID, hash, now); err != nil {
				return err
			}
			if err := users.SetAdmin(ctx, existing.ID, true, now); err != nil {
				return err
			}
			user, err = users.GetByID(ctx, existing.ID)
			return err
		}

		user = &User{
			ID:           uuid.NewString(),
			Username:     req.Username,
			PasswordHash: hash,
			DisplayName:  req.DisplayName,
			IsAdmin:      true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := users.Create(ctx, user); err != nil {
			return err
		}

		_, err = audit.NewAuditRepo(tx).Record(ctx, "", audit.ActionAuthRegister, audit.EntityUser, user.ID, map[string]any{"isAdmin": true}, "")
		return err
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}
