package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curaious/projectchron/internal/credential"
	"github.com/curaious/projectchron/internal/perrors"
	"github.com/curaious/projectchron/internal/testutil"
)

var testParams = credential.Params{Memory: 64, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func newTestService(t *testing.T) *UserService {
	return NewUserService(testutil.NewDB(t), credential.NewHasher(testParams))
}

func TestUserService_RegisterThenLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []struct{ username, password string }{
		{"alice", "correct horse battery"},
		{"bob_the-builder", "123456789012"},
		{"Carol", "a-much-longer-password-with-symbols!@#"},
	}

	for _, tc := range cases {
		t.Run(tc.username, func(t *testing.T) {
			registered, err := svc.Register(ctx, &RegisterRequest{Username: tc.username, Password: tc.password}, "10.0.0.1")
			require.NoError(t, err)
			assert.Equal(t, NormalizeUsername(tc.username), registered.Username)
			assert.NotEqual(t, tc.password, registered.PasswordHash)

			loggedIn, err := svc.Authenticate(ctx, &LoginRequest{Username: tc.username, Password: tc.password}, "10.0.0.1")
			require.NoError(t, err)
			assert.Equal(t, registered.ID, loggedIn.ID)
		})
	}
}

func TestUserService_RegisterTakenUsername(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{Username: "alice", Password: "correct horse battery"}, "")
	require.NoError(t, err)

	_, err = svc.Register(ctx, &RegisterRequest{Username: "ALICE", Password: "another password!"}, "")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestUserService_RegisterValidation(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Register(context.Background(), &RegisterRequest{Username: "a!", Password: "short"}, "")
	require.Error(t, err)

	var perr perrors.Err
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, perrors.ErrCodeValidation, perr.Code)
	assert.Contains(t, perr.Issues, "username")
	assert.Contains(t, perr.Issues, "password")
}

func TestUserService_AuthenticateFailures(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{Username: "alice", Password: "correct horse battery"}, "")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, &LoginRequest{Username: "alice", Password: "wrong horse battery"}, "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, &LoginRequest{Username: "nobody", Password: "correct horse battery"}, "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserService_ChangePassword(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, &RegisterRequest{Username: "alice", Password: "correct horse battery"}, "")
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, u.ID, &ChangePasswordRequest{CurrentPassword: "nope nope nope", NewPassword: "brand new password"}, "")
	assert.ErrorIs(t, err, ErrWrongPassword)

	err = svc.ChangePassword(ctx, u.ID, &ChangePasswordRequest{CurrentPassword: "correct horse battery", NewPassword: "brand new password"}, "")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, &LoginRequest{Username: "alice", Password: "correct horse battery"}, "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, &LoginRequest{Username: "alice", Password: "brand new password"}, "")
	assert.NoError(t, err)
}

func TestUserService_EnsureAdmin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, &RegisterRequest{Username: "root", Password: "correct horse battery"}, "")
	require.NoError(t, err)
	assert.False(t, u.IsAdmin)

	admin, err := svc.EnsureAdmin(ctx, &RegisterRequest{Username: "root", Password: "another long password"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, admin.ID)
	assert.True(t, admin.IsAdmin)

	fresh, err := svc.EnsureAdmin(ctx, &RegisterRequest{Username: "ops", Password: "another long password"})
	require.NoError(t, err)
	assert.True(t, fresh.IsAdmin)
}
