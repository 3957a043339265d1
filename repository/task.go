package repository

import (
	"context"
	"time"

	"github.com/fastygo/taskhub/domain"
)

// TaskFilter scopes task queries. UserID is mandatory for listings.
type TaskFilter struct {
	UserID        string
	Completed     *bool
	Priority      domain.Priority
	TitleContains string
	// DueBefore keeps tasks whose due date is strictly before the instant.
	DueBefore *time.Time
	// PendingOrder sorts by priority rank, then due date with nulls last.
	PendingOrder bool
}

type TaskRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	Update(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, id string) error
}
