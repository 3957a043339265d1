package user

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/repository"
	"github.com/fastygo/taskhub/usecase"
)

const (
	minPasswordLength = 6
	maxPasswordLength = 40
)

// CreateInput describes an account created by an administrator.
type CreateInput struct {
	Username string   `validate:"required,min=3,max=20"`
	Email    string   `validate:"required,email,max=50"`
	Password string   `validate:"required,min=6,max=40"`
	Roles    []string `validate:"-"`
	Active   *bool    `validate:"-"`
}

// UpdateInput replaces the editable fields of an account. Active and Roles
// are honoured for administrators only.
type UpdateInput struct {
	Username string   `validate:"required,min=3,max=20"`
	Email    string   `validate:"required,email,max=50"`
	Active   *bool    `validate:"-"`
	Roles    []string `validate:"-"`
}

// Service manages accounts. Every method receives the calling principal and
// checks it before reading or writing.
type Service struct {
	users  repository.UserRepository
	hasher usecase.PasswordHasher
	opts   usecase.Options
	logger *zap.Logger
}

func New(users repository.UserRepository, hasher usecase.PasswordHasher, logger *zap.Logger, opts ...usecase.Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		users:  users,
		hasher: hasher,
		opts:   usecase.ApplyOptions(opts...),
		logger: logger,
	}
}

func (s *Service) authorize(p *domain.Principal, allowed bool, operation string) error {
	return s.opts.Authorize(s.logger, p, allowed, operation)
}

func (s *Service) CreateUser(ctx context.Context, p *domain.Principal, input CreateInput) (*domain.User, error) {
	if err := s.authorize(p, domain.IsAdmin(p), "create user"); err != nil {
		return nil, err
	}
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if err := usecase.Validate(input); err != nil {
		return nil, err
	}
	if err := s.ensureAvailable(ctx, input.Username, input.Email); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "hash password", err)
	}
	active := true
	if input.Active != nil {
		active = *input.Active
	}
	now := s.opts.Now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		Roles:        domain.RolesFromTokens(input.Roles),
		Active:       active,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("by", p.Username))
	return user, nil
}

func (s *Service) ensureAvailable(ctx context.Context, username, email string) error {
	if username != "" {
		taken, err := s.users.ExistsByUsername(ctx, username)
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrUsernameTaken
		}
	}
	if email != "" {
		taken, err := s.users.ExistsByEmail(ctx, email)
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrEmailTaken
		}
	}
	return nil
}

func (s *Service) GetUser(ctx context.Context, p *domain.Principal, id string) (*domain.User, error) {
	if err := s.authorize(p, domain.IsSelfOrAdmin(p, id), "get user"); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, id)
}

func (s *Service) GetUserByUsername(ctx context.Context, p *domain.Principal, username string) (*domain.User, error) {
	allowed := domain.IsAdmin(p) || (p != nil && p.Username == username)
	if err := s.authorize(p, allowed, "get user by username"); err != nil {
		return nil, err
	}
	return s.users.GetByUsername(ctx, username)
}

func (s *Service) UpdateUser(ctx context.Context, p *domain.Principal, id string, input UpdateInput) (*domain.User, error) {
	if err := s.authorize(p, domain.IsSelfOrAdmin(p, id), "update user"); err != nil {
		return nil, err
	}
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if err := usecase.Validate(input); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var username, email string
	if input.Username != user.Username {
		username = input.Username
	}
	if !strings.EqualFold(input.Email, user.Email) {
		email = input.Email
	}
	if err := s.ensureAvailable(ctx, username, email); err != nil {
		return nil, err
	}

	user.Username = input.Username
	user.Email = input.Email
	if domain.IsAdmin(p) {
		if input.Active != nil {
			user.Active = *input.Active
		}
		if len(input.Roles) > 0 {
			user.Roles = domain.RolesFromTokens(input.Roles)
		}
	}
	user.Touch(s.opts.Now())

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user updated", zap.String("user_id", id), zap.String("by", p.Username))
	return user, nil
}

// ChangePassword replaces the password of id. The current password must
// verify unless an administrator resets another user's password.
func (s *Service) ChangePassword(ctx context.Context, p *domain.Principal, id, current, next string) error {
	if err := s.authorize(p, domain.IsSelfOrAdmin(p, id), "change password"); err != nil {
		return err
	}
	if len(next) < minPasswordLength {
		return domain.ErrPasswordTooShort
	}
	if len(next) > maxPasswordLength {
		return domain.NewError(domain.ErrCodeInvalid, "new password must be at most 40 characters")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	adminReset := domain.IsAdmin(p) && !domain.IsSelf(p, id)
	if !adminReset && !s.hasher.Verify(user.PasswordHash, current) {
		s.logger.Info("password change rejected", zap.String("user_id", id))
		return domain.ErrWrongPassword
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return domain.WrapError(domain.ErrCodeInternal, "hash password", err)
	}
	user.PasswordHash = hash
	user.Touch(s.opts.Now())
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}
	s.logger.Info("password changed", zap.String("user_id", id), zap.Bool("admin_reset", adminReset))
	return nil
}

func (s *Service) DeactivateUser(ctx context.Context, p *domain.Principal, id string) (*domain.User, error) {
	return s.setActive(ctx, p, id, false, "deactivate user")
}

func (s *Service) ActivateUser(ctx context.Context, p *domain.Principal, id string) (*domain.User, error) {
	return s.setActive(ctx, p, id, true, "activate user")
}

func (s *Service) setActive(ctx context.Context, p *domain.Principal, id string, active bool, operation string) (*domain.User, error) {
	if err := s.authorize(p, domain.IsAdmin(p), operation); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Active = active
	user.Touch(s.opts.Now())
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info(operation, zap.String("user_id", id), zap.String("by", p.Username))
	return user, nil
}

// DeleteUser removes the account and every task it owns.
func (s *Service) DeleteUser(ctx context.Context, p *domain.Principal, id string) error {
	if err := s.authorize(p, domain.IsAdmin(p), "delete user"); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", zap.String("user_id", id), zap.String("by", p.Username))
	return nil
}

func (s *Service) ListUsersByRole(ctx context.Context, p *domain.Principal, roleName string, page repository.Page) (repository.Result[domain.User], error) {
	if err := s.authorize(p, domain.HasAnyRole(p, domain.RoleAdmin, domain.RoleModerator), "list users by role"); err != nil {
		return repository.Result[domain.User]{}, err
	}
	role, err := domain.ParseRoleName(roleName)
	if err != nil {
		return repository.Result[domain.User]{}, err
	}
	return s.list(ctx, repository.UserFilter{Role: role, Page: page})
}

func (s *Service) ListUsers(ctx context.Context, p *domain.Principal, page repository.Page) (repository.Result[domain.User], error) {
	if err := s.authorize(p, domain.IsAdmin(p), "list users"); err != nil {
		return repository.Result[domain.User]{}, err
	}
	return s.list(ctx, repository.UserFilter{Page: page})
}

func (s *Service) list(ctx context.Context, filter repository.UserFilter) (repository.Result[domain.User], error) {
	filter.Page = filter.Page.Normalize()
	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return repository.Result[domain.User]{}, err
	}
	return repository.NewResult(users, filter.Page, total), nil
}

// Profile returns the account of the calling principal.
func (s *Service) Profile(ctx context.Context, p *domain.Principal) (*domain.User, error) {
	if err := domain.RequirePrincipal(p); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, p.ID)
}

func (s *Service) Stats(ctx context.Context, p *domain.Principal) (domain.UserStats, error) {
	if err := s.authorize(p, domain.IsAdmin(p), "user stats"); err != nil {
		return domain.UserStats{}, err
	}
	return s.users.Stats(ctx)
}
