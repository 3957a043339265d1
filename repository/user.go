package repository

import (
	"context"

	"github.com/fastygo/taskhub/domain"
)

// UserFilter narrows user listings. An empty Role lists every user.
type UserFilter struct {
	Role domain.Role
	Page Page
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *domain.User) error
	// Update replaces the user row and its role set in one transaction.
	Update(ctx context.Context, user *domain.User) error
	// Delete removes the user and every task it owns in one transaction.
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter UserFilter) ([]domain.User, int, error)
	Stats(ctx context.Context) (domain.UserStats, error)
}
