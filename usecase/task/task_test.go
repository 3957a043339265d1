package task_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/repository/bolt"
	"github.com/fastygo/taskhub/usecase"
	"github.com/fastygo/taskhub/usecase/task"
)

var (
	alice = &domain.Principal{ID: "id-alice", Username: "alice", Roles: []domain.Role{domain.RoleUser}}
	bob   = &domain.Principal{ID: "id-bob", Username: "bob", Roles: []domain.Role{domain.RoleUser}}
	root  = &domain.Principal{ID: "id-root", Username: "root", Roles: []domain.Role{domain.RoleAdmin}}
)

type fixture struct {
	now time.Time
	uc  *task.UseCase
}

func setup(t *testing.T, adminOverride bool) *fixture {
	t.Helper()
	store, err := bolt.Open(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	for _, p := range []*domain.Principal{alice, bob, root} {
		require.NoError(t, store.Users().Create(context.Background(), &domain.User{
			ID:       p.ID,
			Username: p.Username,
			Email:    p.Username + "@example.com",
			Roles:    p.Roles,
			Active:   true,
		}))
	}

	f := &fixture{now: time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)}
	f.uc = task.New(store.Tasks(), adminOverride, nil, usecase.WithClock(func() time.Time {
		f.now = f.now.Add(time.Millisecond)
		return f.now
	}))
	return f
}

func at(t time.Time) *time.Time { return &t }

func ids(tasks []domain.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Title)
	}
	return out
}

func TestUseCase_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Should default to MEDIUM, incomplete and owned by the caller", func(t *testing.T) {
		f := setup(t, false)
		created, err := f.uc.Create(ctx, alice, task.Input{Title: "  Buy milk ", Completed: true})
		require.NoError(t, err)
		assert.Equal(t, "Buy milk", created.Title)
		assert.Equal(t, domain.PriorityMedium, created.Priority)
		assert.False(t, created.Completed)
		assert.Equal(t, alice.ID, created.UserID)
		assert.False(t, created.CreatedAt.IsZero())
	})

	t.Run("Should reject a blank title and unknown priorities", func(t *testing.T) {
		f := setup(t, false)
		_, err := f.uc.Create(ctx, alice, task.Input{Title: "   "})
		assert.True(t, errors.Is(err, domain.ErrTitleRequired))
		_, err = f.uc.Create(ctx, alice, task.Input{Title: "x", Priority: "URGENT"})
		assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
	})

	t.Run("Should require a principal", func(t *testing.T) {
		f := setup(t, false)
		_, err := f.uc.Create(ctx, nil, task.Input{Title: "x"})
		assert.True(t, errors.Is(err, domain.ErrUnauthenticated))
	})
}

func TestUseCase_Ownership(t *testing.T) {
	ctx := context.Background()

	t.Run("Should deny every operation on another user's task", func(t *testing.T) {
		f := setup(t, false)
		own, err := f.uc.Create(ctx, alice, task.Input{Title: "private"})
		require.NoError(t, err)

		_, err = f.uc.GetByID(ctx, bob, own.ID)
		assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))
		_, err = f.uc.Update(ctx, bob, own.ID, task.Input{Title: "hijacked"})
		assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))
		_, err = f.uc.ToggleCompletion(ctx, bob, own.ID)
		assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))
		err = f.uc.Delete(ctx, bob, own.ID)
		assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))

		stored, err := f.uc.GetByID(ctx, alice, own.ID)
		require.NoError(t, err)
		assert.Equal(t, "private", stored.Title)
		assert.False(t, stored.Completed)
	})

	t.Run("Should deny admins unless override is enabled", func(t *testing.T) {
		f := setup(t, false)
		own, err := f.uc.Create(ctx, alice, task.Input{Title: "private"})
		require.NoError(t, err)
		_, err = f.uc.GetByID(ctx, root, own.ID)
		assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))

		g := setup(t, true)
		own, err = g.uc.Create(ctx, alice, task.Input{Title: "private"})
		require.NoError(t, err)
		_, err = g.uc.GetByID(ctx, root, own.ID)
		assert.NoError(t, err)
		_, err = g.uc.GetByID(ctx, bob, own.ID)
		assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))
	})

	t.Run("Should report NotFound before ownership", func(t *testing.T) {
		f := setup(t, false)
		_, err := f.uc.GetByID(ctx, bob, "missing")
		assert.True(t, errors.Is(err, domain.ErrTaskNotFound))
	})

	t.Run("Should scope listings to the caller", func(t *testing.T) {
		f := setup(t, false)
		_, err := f.uc.Create(ctx, alice, task.Input{Title: "a1"})
		require.NoError(t, err)
		_, err = f.uc.Create(ctx, bob, task.Input{Title: "b1"})
		require.NoError(t, err)

		list, err := f.uc.ListTasks(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, []string{"a1"}, ids(list))
	})
}

func TestUseCase_Queries(t *testing.T) {
	ctx := context.Background()
	f := setup(t, false)
	base := f.now
	seed := []task.Input{
		{Title: "Low soon", Priority: "LOW", DueDate: at(base.Add(24 * time.Hour))},
		{Title: "High undated", Priority: "HIGH"},
		{Title: "Medium late", Priority: "MEDIUM", DueDate: at(base.Add(-24 * time.Hour))},
		{Title: "High early", Priority: "high", DueDate: at(base.Add(2 * time.Hour))},
		{Title: "Finished", Priority: "HIGH", DueDate: at(base.Add(-48 * time.Hour))},
	}
	for _, input := range seed {
		created, err := f.uc.Create(ctx, alice, input)
		require.NoError(t, err)
		if created.Title == "Finished" {
			_, err = f.uc.ToggleCompletion(ctx, alice, created.ID)
			require.NoError(t, err)
		}
	}

	t.Run("Should order pending tasks by priority then due date with undated last", func(t *testing.T) {
		list, err := f.uc.ListPendingOrdered(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, []string{"High early", "High undated", "Medium late", "Low soon"}, ids(list))
	})

	t.Run("Should list overdue incomplete tasks", func(t *testing.T) {
		list, err := f.uc.ListOverdue(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, []string{"Medium late"}, ids(list))
	})

	t.Run("Should filter by completion and priority", func(t *testing.T) {
		done, err := f.uc.ListByCompletion(ctx, alice, true)
		require.NoError(t, err)
		assert.Equal(t, []string{"Finished"}, ids(done))

		high, err := f.uc.ListByPriority(ctx, alice, "high")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"High undated", "High early", "Finished"}, ids(high))
	})

	t.Run("Should reject a blank priority filter", func(t *testing.T) {
		list, err := f.uc.ListByPriority(ctx, alice, "  ")
		assert.Nil(t, list)
		assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))

		_, err = f.uc.ListByPriority(ctx, alice, "urgent")
		assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
	})

	t.Run("Should search titles case-insensitively", func(t *testing.T) {
		list, err := f.uc.SearchByTitle(ctx, alice, "HIGH")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"High undated", "High early"}, ids(list))
	})
}

func TestUseCase_Mutations(t *testing.T) {
	ctx := context.Background()

	t.Run("Should keep the priority on a full update without one", func(t *testing.T) {
		f := setup(t, false)
		created, err := f.uc.Create(ctx, alice, task.Input{Title: "draft", Priority: "HIGH", DueDate: at(f.now)})
		require.NoError(t, err)

		updated, err := f.uc.Update(ctx, alice, created.ID, task.Input{Title: "final", Completed: true})
		require.NoError(t, err)
		assert.Equal(t, "final", updated.Title)
		assert.True(t, updated.Completed)
		assert.Equal(t, domain.PriorityHigh, updated.Priority)
		assert.Nil(t, updated.DueDate)
		assert.True(t, updated.UpdatedAt.After(created.CreatedAt))
	})

	t.Run("Should patch only supplied fields", func(t *testing.T) {
		f := setup(t, false)
		created, err := f.uc.Create(ctx, alice, task.Input{Title: "draft", Description: "keep", Priority: "LOW"})
		require.NoError(t, err)

		done := true
		patched, err := f.uc.Patch(ctx, alice, created.ID, task.Patch{Completed: &done})
		require.NoError(t, err)
		assert.Equal(t, "draft", patched.Title)
		assert.Equal(t, "keep", patched.Description)
		assert.Equal(t, domain.PriorityLow, patched.Priority)
		assert.True(t, patched.Completed)
	})

	t.Run("Should toggle completion back and forth", func(t *testing.T) {
		f := setup(t, false)
		created, err := f.uc.Create(ctx, alice, task.Input{Title: "flip"})
		require.NoError(t, err)

		toggled, err := f.uc.ToggleCompletion(ctx, alice, created.ID)
		require.NoError(t, err)
		assert.True(t, toggled.Completed)
		toggled, err = f.uc.ToggleCompletion(ctx, alice, created.ID)
		require.NoError(t, err)
		assert.False(t, toggled.Completed)
	})

	t.Run("Should delete owned tasks", func(t *testing.T) {
		f := setup(t, false)
		created, err := f.uc.Create(ctx, alice, task.Input{Title: "bye"})
		require.NoError(t, err)

		require.NoError(t, f.uc.Delete(ctx, alice, created.ID))
		_, err = f.uc.GetByID(ctx, alice, created.ID)
		assert.True(t, errors.Is(err, domain.ErrTaskNotFound))
	})
}
