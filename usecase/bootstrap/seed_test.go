package bootstrap_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/internal/security"
	"github.com/fastygo/taskhub/repository"
	"github.com/fastygo/taskhub/repository/bolt"
	"github.com/fastygo/taskhub/usecase/bootstrap"
)

func TestSeeder_Seed(t *testing.T) {
	ctx := context.Background()
	store, err := bolt.Open(filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	seeder := bootstrap.New(store.Users(), store.Tasks(), hasher, nil)
	opts := bootstrap.Options{
		SeedDemo:      true,
		AdminUsername: "root",
		AdminEmail:    "root@example.com",
		AdminPassword: "rootpass",
	}

	t.Run("Should create the admin, the demo user and three demo tasks", func(t *testing.T) {
		require.NoError(t, seeder.Seed(ctx, opts))

		admin, err := store.Users().GetByUsername(ctx, "root")
		require.NoError(t, err)
		assert.Equal(t, []domain.Role{domain.RoleAdmin}, admin.Roles)

		demo, err := store.Users().GetByUsername(ctx, "test")
		require.NoError(t, err)
		assert.True(t, hasher.Verify(demo.PasswordHash, "password"))

		tasks, err := store.Tasks().List(ctx, repository.TaskFilter{UserID: demo.ID})
		require.NoError(t, err)
		assert.Len(t, tasks, 3)
	})

	t.Run("Should be idempotent", func(t *testing.T) {
		require.NoError(t, seeder.Seed(ctx, opts))

		stats, err := store.Users().Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.TotalUsers)

		demo, err := store.Users().GetByUsername(ctx, "test")
		require.NoError(t, err)
		tasks, err := store.Tasks().List(ctx, repository.TaskFilter{UserID: demo.ID})
		require.NoError(t, err)
		assert.Len(t, tasks, 3)
	})
}

func TestSeeder_ResumesDemoTasks(t *testing.T) {
	t.Run("Should add the demo tasks when the demo account exists without any", func(t *testing.T) {
		ctx := context.Background()
		store, err := bolt.Open(filepath.Join(t.TempDir(), "resume.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		hasher := security.NewBcryptHasher(bcrypt.MinCost)
		hash, err := hasher.Hash("password")
		require.NoError(t, err)
		require.NoError(t, store.Users().Create(ctx, &domain.User{
			ID:           "demo-id",
			Username:     "test",
			Email:        "test@example.com",
			PasswordHash: hash,
			Roles:        []domain.Role{domain.RoleUser},
			Active:       true,
		}))

		seeder := bootstrap.New(store.Users(), store.Tasks(), hasher, nil)
		require.NoError(t, seeder.Seed(ctx, bootstrap.Options{SeedDemo: true}))

		tasks, err := store.Tasks().List(ctx, repository.TaskFilter{UserID: "demo-id"})
		require.NoError(t, err)
		assert.Len(t, tasks, 3)

		require.NoError(t, seeder.Seed(ctx, bootstrap.Options{SeedDemo: true}))
		tasks, err = store.Tasks().List(ctx, repository.TaskFilter{UserID: "demo-id"})
		require.NoError(t, err)
		assert.Len(t, tasks, 3)
	})
}
