package auth_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/internal/security"
	"github.com/fastygo/taskhub/repository/bolt"
	"github.com/fastygo/taskhub/usecase/auth"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fixture struct {
	store  *bolt.Store
	codec  *security.TokenCodec
	hasher *security.BcryptHasher
	uc     *auth.UseCase
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store, err := bolt.Open(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	codec := security.NewTokenCodec(testSecret, time.Hour, nil)
	return &fixture{
		store:  store,
		codec:  codec,
		hasher: hasher,
		uc:     auth.New(store.Users(), hasher, codec, nil),
	}
}

func TestUseCase_SignUp(t *testing.T) {
	ctx := context.Background()

	t.Run("Should register an active ROLE_USER account by default", func(t *testing.T) {
		f := setup(t)
		user, err := f.uc.SignUp(ctx, auth.SignUpInput{Username: "alice", Email: "alice@example.com", Password: "secret1"})
		require.NoError(t, err)
		assert.Equal(t, []domain.Role{domain.RoleUser}, user.Roles)
		assert.True(t, user.Active)
		assert.NotEqual(t, "secret1", user.PasswordHash)
		assert.True(t, f.hasher.Verify(user.PasswordHash, "secret1"))
		assert.False(t, user.CreatedAt.IsZero())
		assert.Equal(t, user.CreatedAt, user.UpdatedAt)
	})

	t.Run("Should map role tokens and default unknown ones to ROLE_USER", func(t *testing.T) {
		f := setup(t)
		user, err := f.uc.SignUp(ctx, auth.SignUpInput{
			Username: "boss",
			Email:    "boss@example.com",
			Password: "secret1",
			Roles:    []string{"admin", "mod", "superuser"},
		})
		require.NoError(t, err)
		assert.Equal(t, []domain.Role{domain.RoleAdmin, domain.RoleModerator, domain.RoleUser}, user.Roles)
	})

	t.Run("Should reject a duplicate username without creating a row", func(t *testing.T) {
		f := setup(t)
		_, err := f.uc.SignUp(ctx, auth.SignUpInput{Username: "alice", Email: "alice@example.com", Password: "secret1"})
		require.NoError(t, err)

		_, err = f.uc.SignUp(ctx, auth.SignUpInput{Username: "alice", Email: "other@example.com", Password: "secret1"})
		assert.True(t, domain.IsDomainError(err, domain.ErrCodeConflict))

		stats, err := f.store.Users().Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.TotalUsers)
	})

	t.Run("Should reject a duplicate email", func(t *testing.T) {
		f := setup(t)
		_, err := f.uc.SignUp(ctx, auth.SignUpInput{Username: "alice", Email: "alice@example.com", Password: "secret1"})
		require.NoError(t, err)

		_, err = f.uc.SignUp(ctx, auth.SignUpInput{Username: "alice2", Email: "Alice@example.com", Password: "secret1"})
		assert.True(t, errors.Is(err, domain.ErrEmailTaken))
	})

	t.Run("Should reject invalid input", func(t *testing.T) {
		f := setup(t)
		cases := []auth.SignUpInput{
			{Username: "al", Email: "al@example.com", Password: "secret1"},
			{Username: "alice", Email: "not-an-email", Password: "secret1"},
			{Username: "alice", Email: "alice@example.com", Password: "short"},
		}
		for _, input := range cases {
			_, err := f.uc.SignUp(ctx, input)
			assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid), "input %+v", input)
		}
	})
}

func TestUseCase_SignIn(t *testing.T) {
	ctx := context.Background()

	t.Run("Should issue a token whose subject is the username", func(t *testing.T) {
		f := setup(t)
		_, err := f.uc.SignUp(ctx, auth.SignUpInput{Username: "alice", Email: "alice@example.com", Password: "secret1"})
		require.NoError(t, err)

		session, err := f.uc.SignIn(ctx, auth.SignInInput{Username: "alice", Password: "secret1"})
		require.NoError(t, err)
		assert.Equal(t, "Bearer", session.Type)
		assert.Equal(t, "alice", session.User.Username)
		subject, ok := f.codec.Verify(session.Token)
		assert.True(t, ok)
		assert.Equal(t, "alice", subject)
	})

	t.Run("Should not issue a token for a wrong password", func(t *testing.T) {
		f := setup(t)
		_, err := f.uc.SignUp(ctx, auth.SignUpInput{Username: "alice", Email: "alice@example.com", Password: "secret1"})
		require.NoError(t, err)

		session, err := f.uc.SignIn(ctx, auth.SignInInput{Username: "alice", Password: "wrong-one"})
		assert.Nil(t, session)
		assert.True(t, errors.Is(err, domain.ErrBadCredentials))
	})

	t.Run("Should answer unknown users like wrong passwords", func(t *testing.T) {
		f := setup(t)
		session, err := f.uc.SignIn(ctx, auth.SignInInput{Username: "ghost", Password: "secret1"})
		assert.Nil(t, session)
		assert.True(t, errors.Is(err, domain.ErrBadCredentials))
	})

	t.Run("Should refuse disabled accounts", func(t *testing.T) {
		f := setup(t)
		user, err := f.uc.SignUp(ctx, auth.SignUpInput{Username: "alice", Email: "alice@example.com", Password: "secret1"})
		require.NoError(t, err)
		user.Active = false
		require.NoError(t, f.store.Users().Update(ctx, user))

		session, err := f.uc.SignIn(ctx, auth.SignInInput{Username: "alice", Password: "secret1"})
		assert.Nil(t, session)
		assert.True(t, errors.Is(err, domain.ErrAccountDisabled))
	})
}
