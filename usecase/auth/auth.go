package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/repository"
	"github.com/fastygo/taskhub/usecase"
)

// SignUpInput is a self-registration request. Roles holds client role
// tokens such as "admin" or "mod".
type SignUpInput struct {
	Username string   `validate:"required,min=3,max=20"`
	Email    string   `validate:"required,email,max=50"`
	Password string   `validate:"required,min=6,max=40"`
	Roles    []string `validate:"-"`
}

type SignInInput struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// Session is the result of a successful sign-in.
type Session struct {
	Token     string
	Type      string
	ExpiresAt time.Time
	User      *domain.User
}

// UseCase verifies credentials and issues session tokens.
type UseCase struct {
	users  repository.UserRepository
	hasher usecase.PasswordHasher
	tokens usecase.TokenIssuer
	opts   usecase.Options
	logger *zap.Logger
}

func New(users repository.UserRepository, hasher usecase.PasswordHasher, tokens usecase.TokenIssuer, logger *zap.Logger, opts ...usecase.Option) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		opts:   usecase.ApplyOptions(opts...),
		logger: logger,
	}
}

// SignIn checks the credentials and issues a bearer token. Unknown users and
// wrong passwords are indistinguishable to the caller.
func (uc *UseCase) SignIn(ctx context.Context, input SignInInput) (*Session, error) {
	if err := usecase.Validate(input); err != nil {
		return nil, domain.ErrBadCredentials
	}

	user, err := uc.users.GetByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			uc.logger.Info("sign-in rejected", zap.String("username", input.Username), zap.String("reason", "unknown user"))
			return nil, domain.ErrBadCredentials
		}
		return nil, err
	}
	if !uc.hasher.Verify(user.PasswordHash, input.Password) {
		uc.logger.Info("sign-in rejected", zap.String("username", input.Username), zap.String("reason", "bad password"))
		return nil, domain.ErrBadCredentials
	}
	if !user.IsActive() {
		uc.logger.Info("sign-in rejected", zap.String("username", input.Username), zap.String("reason", "disabled"))
		return nil, domain.ErrAccountDisabled
	}

	token, expiresAt, err := uc.tokens.Issue(user.Username)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "issue token", err)
	}
	uc.logger.Info("user signed in", zap.String("user_id", user.ID))
	return &Session{Token: token, Type: "Bearer", ExpiresAt: expiresAt, User: user}, nil
}

// SignUp registers an active account. Without role tokens the account gets
// ROLE_USER.
func (uc *UseCase) SignUp(ctx context.Context, input SignUpInput) (*domain.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if err := usecase.Validate(input); err != nil {
		return nil, err
	}

	taken, err := uc.users.ExistsByUsername(ctx, input.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domain.ErrUsernameTaken
	}
	taken, err = uc.users.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domain.ErrEmailTaken
	}

	hash, err := uc.hasher.Hash(input.Password)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "hash password", err)
	}

	now := uc.opts.Now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		Roles:        domain.RolesFromTokens(input.Roles),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.users.Create(ctx, user); err != nil {
		return nil, err
	}
	uc.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}
