package bootstrap

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/repository"
	"github.com/fastygo/taskhub/usecase"
)

const (
	demoUsername = "test"
	demoEmail    = "test@example.com"
	demoPassword = "password"
)

// Options selects what Seed writes.
type Options struct {
	SeedDemo      bool
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

// Seeder writes the initial accounts. Every step is skipped when its
// account already exists, so Seed can run on every start.
type Seeder struct {
	users  repository.UserRepository
	tasks  repository.TaskRepository
	hasher usecase.PasswordHasher
	now    func() time.Time
	logger *zap.Logger
}

func New(users repository.UserRepository, tasks repository.TaskRepository, hasher usecase.PasswordHasher, logger *zap.Logger, opts ...usecase.Option) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{
		users:  users,
		tasks:  tasks,
		hasher: hasher,
		now:    usecase.ApplyOptions(opts...).Now,
		logger: logger,
	}
}

func (s *Seeder) Seed(ctx context.Context, opts Options) error {
	if opts.AdminUsername != "" && opts.AdminPassword != "" {
		if _, err := s.ensureUser(ctx, opts.AdminUsername, opts.AdminEmail, opts.AdminPassword, domain.RoleAdmin); err != nil {
			return err
		}
	}
	if !opts.SeedDemo {
		return nil
	}
	demo, err := s.ensureUser(ctx, demoUsername, demoEmail, demoPassword, domain.RoleUser)
	if err != nil {
		return err
	}
	if demo == nil {
		// A previous run may have stopped between the account and its tasks.
		demo, err = s.users.GetByUsername(ctx, demoUsername)
		if err != nil {
			return err
		}
		existing, err := s.tasks.List(ctx, repository.TaskFilter{UserID: demo.ID})
		if err != nil || len(existing) > 0 {
			return err
		}
	}
	return s.seedDemoTasks(ctx, demo.ID)
}

// ensureUser creates the account and returns it, or returns nil when the
// username is already registered.
func (s *Seeder) ensureUser(ctx context.Context, username, email, password string, role domain.Role) (*domain.User, error) {
	exists, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if exists {
		s.logger.Debug("seed account present", zap.String("username", username))
		return nil, nil
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	now := s.now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Roles:        []domain.Role{role},
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("seed account created", zap.String("username", username), zap.String("role", string(role)))
	return user, nil
}

func (s *Seeder) seedDemoTasks(ctx context.Context, userID string) error {
	now := s.now()
	day := 24 * time.Hour
	due := func(d time.Duration) *time.Time {
		t := now.Add(d)
		return &t
	}
	demo := []domain.Task{
		{
			Title:       "Add JWT authentication",
			Description: "Protect the API with signed bearer tokens",
			Completed:   true,
			Priority:    domain.PriorityHigh,
			CreatedAt:   now.Add(-5 * day),
			UpdatedAt:   now.Add(-2 * day),
		},
		{
			Title:       "Expose GraphQL",
			Description: "Serve task queries and mutations over GraphQL",
			Priority:    domain.PriorityMedium,
			DueDate:     due(2 * day),
			CreatedAt:   now.Add(-3 * day),
			UpdatedAt:   now.Add(-3 * day),
		},
		{
			Title:       "Write documentation",
			Description: "Document the REST and GraphQL APIs",
			Priority:    domain.PriorityLow,
			DueDate:     due(5 * day),
			CreatedAt:   now.Add(-day),
			UpdatedAt:   now.Add(-day),
		},
	}
	for i := range demo {
		demo[i].ID = uuid.NewString()
		demo[i].UserID = userID
		if _, err := s.tasks.Create(ctx, &demo[i]); err != nil {
			return err
		}
	}
	s.logger.Info("demo tasks created", zap.Int("count", len(demo)))
	return nil
}
