package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrUserNotFound = errors.New("user not found")

const userColumns = `id, username, password_hash, display_name, is_admin, created_at, updated_at`

type UserRepo struct {
	db sqlx.ExtContext
}

func NewUserRepo(db sqlx.ExtContext) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, u *User) error {
	query := r.db.Rebind(`
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query, u.ID, u.Username, u.PasswordHash, u.DisplayName, u.IsAdmin, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *UserRepo) get(ctx context.Context, query string, args ...interface{}) (*User, error) {
	var user User
	err := sqlx.GetContext(ctx, r.db, &user, r.db.Rebind(query), args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *UserRepo) UpdatePasswordHash(ctx context.Context, id, hash string, now time.Time) error {
	query := r.db.Rebind(`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, hash, now, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return expectRow(result)
}

func (r *UserRepo) SetAdmin(ctx context.Context, id string, isAdmin bool, now time.Time) error {
	query := r.db.Rebind(`UPDATE users SET is_admin = ?, updated_at = ? WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, isAdmin, now, id)
	if err != nil {
		return fmt.Errorf("failed to update user role: %w", err)
	}
	return expectRow(result)
}

func expectRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}
