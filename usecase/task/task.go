package task

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/repository"
	"github.com/fastygo/taskhub/usecase"
)

// Input carries the full set of editable task fields. An empty Priority
// means MEDIUM on create and "keep the current value" on update.
type Input struct {
	Title       string `validate:"required,max=100"`
	Description string `validate:"max=500"`
	Completed   bool
	Priority    string
	DueDate     *time.Time
}

// Patch changes only the non-nil fields.
type Patch struct {
	Title       *string
	Description *string
	Completed   *bool
	Priority    *string
	DueDate     *time.Time
}

// UseCase is the task ledger. Tasks are only visible to their owner unless
// admin override is enabled.
type UseCase struct {
	tasks         repository.TaskRepository
	adminOverride bool
	opts          usecase.Options
	logger        *zap.Logger
}

func New(tasks repository.TaskRepository, adminOverride bool, logger *zap.Logger, opts ...usecase.Option) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:         tasks,
		adminOverride: adminOverride,
		opts:          usecase.ApplyOptions(opts...),
		logger:        logger,
	}
}

func (uc *UseCase) mayAccess(p *domain.Principal, task *domain.Task) bool {
	if uc.adminOverride {
		return domain.IsOwnerOrAdmin(p, task.UserID)
	}
	return domain.IsOwner(p, task.UserID)
}

func (uc *UseCase) list(ctx context.Context, p *domain.Principal, filter repository.TaskFilter) ([]domain.Task, error) {
	if err := domain.RequirePrincipal(p); err != nil {
		return nil, err
	}
	filter.UserID = p.ID
	return uc.tasks.List(ctx, filter)
}

func (uc *UseCase) ListTasks(ctx context.Context, p *domain.Principal) ([]domain.Task, error) {
	return uc.list(ctx, p, repository.TaskFilter{})
}

func (uc *UseCase) ListByCompletion(ctx context.Context, p *domain.Principal, completed bool) ([]domain.Task, error) {
	return uc.list(ctx, p, repository.TaskFilter{Completed: &completed})
}

// ListByPriority filters by an explicit priority. Unlike task input, a
// blank value does not mean MEDIUM here.
func (uc *UseCase) ListByPriority(ctx context.Context, p *domain.Principal, priority string) ([]domain.Task, error) {
	if strings.TrimSpace(priority) == "" {
		return nil, domain.ErrPriorityRequired
	}
	parsed, err := domain.ParsePriority(priority)
	if err != nil {
		return nil, err
	}
	return uc.list(ctx, p, repository.TaskFilter{Priority: parsed})
}

// ListOverdue returns incomplete tasks whose due date has passed.
func (uc *UseCase) ListOverdue(ctx context.Context, p *domain.Principal) ([]domain.Task, error) {
	pending := false
	now := uc.opts.Now()
	return uc.list(ctx, p, repository.TaskFilter{Completed: &pending, DueBefore: &now})
}

// ListPendingOrdered returns incomplete tasks, highest priority first and
// earliest due date next. Undated tasks trail their priority group.
func (uc *UseCase) ListPendingOrdered(ctx context.Context, p *domain.Principal) ([]domain.Task, error) {
	pending := false
	return uc.list(ctx, p, repository.TaskFilter{Completed: &pending, PendingOrder: true})
}

func (uc *UseCase) SearchByTitle(ctx context.Context, p *domain.Principal, title string) ([]domain.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return uc.ListTasks(ctx, p)
	}
	return uc.list(ctx, p, repository.TaskFilter{TitleContains: title})
}

// GetByID loads a task the principal may access. A missing task is reported
// before an ownership failure.
func (uc *UseCase) GetByID(ctx context.Context, p *domain.Principal, id string) (*domain.Task, error) {
	if err := domain.RequirePrincipal(p); err != nil {
		return nil, err
	}
	task, err := uc.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := uc.opts.Authorize(uc.logger, p, uc.mayAccess(p, task), "access task"); err != nil {
		return nil, err
	}
	return task, nil
}

func (uc *UseCase) Create(ctx context.Context, p *domain.Principal, input Input) (*domain.Task, error) {
	if err := domain.RequirePrincipal(p); err != nil {
		return nil, err
	}
	if err := validateInput(&input); err != nil {
		return nil, err
	}
	priority, err := domain.ParsePriority(input.Priority)
	if err != nil {
		return nil, err
	}

	now := uc.opts.Now()
	task := &domain.Task{
		ID:          uuid.NewString(),
		UserID:      p.ID,
		Title:       input.Title,
		Description: input.Description,
		Completed:   false,
		Priority:    priority,
		DueDate:     input.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	created, err := uc.tasks.Create(ctx, task)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("task created", zap.String("task_id", created.ID), zap.String("user_id", p.ID))
	return created, nil
}

// Update replaces every editable field of the task.
func (uc *UseCase) Update(ctx context.Context, p *domain.Principal, id string, input Input) (*domain.Task, error) {
	task, err := uc.GetByID(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := validateInput(&input); err != nil {
		return nil, err
	}
	if input.Priority != "" {
		priority, err := domain.ParsePriority(input.Priority)
		if err != nil {
			return nil, err
		}
		task.Priority = priority
	}
	task.Title = input.Title
	task.Description = input.Description
	task.Completed = input.Completed
	task.DueDate = input.DueDate
	return uc.save(ctx, task, "task updated")
}

// Patch applies the non-nil fields of patch.
func (uc *UseCase) Patch(ctx context.Context, p *domain.Principal, id string, patch Patch) (*domain.Task, error) {
	task, err := uc.GetByID(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, domain.ErrTitleRequired
		}
		task.Title = title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Completed != nil {
		task.Completed = *patch.Completed
	}
	if patch.Priority != nil {
		priority, err := domain.ParsePriority(*patch.Priority)
		if err != nil {
			return nil, err
		}
		task.Priority = priority
	}
	if patch.DueDate != nil {
		due := *patch.DueDate
		task.DueDate = &due
	}
	if err := usecase.Validate(Input{Title: task.Title, Description: task.Description}); err != nil {
		return nil, err
	}
	return uc.save(ctx, task, "task patched")
}

func (uc *UseCase) ToggleCompletion(ctx context.Context, p *domain.Principal, id string) (*domain.Task, error) {
	task, err := uc.GetByID(ctx, p, id)
	if err != nil {
		return nil, err
	}
	task.Completed = !task.Completed
	return uc.save(ctx, task, "task toggled")
}

func (uc *UseCase) Delete(ctx context.Context, p *domain.Principal, id string) error {
	if _, err := uc.GetByID(ctx, p, id); err != nil {
		return err
	}
	if err := uc.tasks.Delete(ctx, id); err != nil {
		return err
	}
	uc.logger.Info("task deleted", zap.String("task_id", id), zap.String("user_id", p.ID))
	return nil
}

func (uc *UseCase) save(ctx context.Context, task *domain.Task, msg string) (*domain.Task, error) {
	task.UpdatedAt = uc.opts.Now()
	if err := uc.tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	uc.logger.Info(msg, zap.String("task_id", task.ID), zap.Bool("completed", task.Completed))
	return task, nil
}

func validateInput(input *Input) error {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return domain.ErrTitleRequired
	}
	return usecase.Validate(*input)
}
