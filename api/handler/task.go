package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/api/transport"
	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/pkg/httpcontext"
	taskUC "github.com/fastygo/taskhub/usecase/task"
)

type TaskHandler struct {
	baseHandler
	uc *taskUC.UseCase
}

func NewTaskHandler(uc *taskUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

type taskLister func(ctx context.Context, p *domain.Principal) ([]domain.Task, error)

func (h *TaskHandler) list(ctx *fasthttp.RequestCtx, fetch taskLister) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()
	p, ok := h.principal(stdCtx, ctx)
	if !ok {
		return
	}

	tasks, err := fetch(stdCtx, p)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, tasks)
}

// @Summary List own tasks
// @Tags tasks
// @Router /api/tasks [get]
func (h *TaskHandler) GetTasks(ctx *fasthttp.RequestCtx) {
	h.list(ctx, h.uc.ListTasks)
}

// @Summary List own tasks by completion flag
// @Tags tasks
// @Router /api/tasks/status [get]
func (h *TaskHandler) GetTasksByStatus(ctx *fasthttp.RequestCtx) {
	completed, err := strconv.ParseBool(string(ctx.QueryArgs().Peek("completed")))
	if err != nil {
		stdCtx, cancel := h.requestContext(ctx)
		defer cancel()
		h.respondError(stdCtx, ctx, domain.NewError(domain.ErrCodeInvalid, "completed must be true or false"))
		return
	}
	h.list(ctx, func(stdCtx context.Context, p *domain.Principal) ([]domain.Task, error) {
		return h.uc.ListByCompletion(stdCtx, p, completed)
	})
}

// @Summary List own tasks by priority
// @Tags tasks
// @Router /api/tasks/priority/{priority} [get]
func (h *TaskHandler) GetTasksByPriority(ctx *fasthttp.RequestCtx) {
	priority := pathParam(ctx, "priority")
	h.list(ctx, func(stdCtx context.Context, p *domain.Principal) ([]domain.Task, error) {
		return h.uc.ListByPriority(stdCtx, p, priority)
	})
}

// @Summary List own overdue tasks
// @Tags tasks
// @Router /api/tasks/overdue [get]
func (h *TaskHandler) GetOverdueTasks(ctx *fasthttp.RequestCtx) {
	h.list(ctx, h.uc.ListOverdue)
}

// @Summary List own pending tasks, most urgent first
// @Tags tasks
// @Router /api/tasks/pending [get]
func (h *TaskHandler) GetPendingTasks(ctx *fasthttp.RequestCtx) {
	h.list(ctx, h.uc.ListPendingOrdered)
}

// @Summary Search own tasks by title
// @Tags tasks
// @Router /api/tasks/search [get]
func (h *TaskHandler) SearchTasks(ctx *fasthttp.RequestCtx) {
	title := string(ctx.QueryArgs().Peek("title"))
	h.list(ctx, func(stdCtx context.Context, p *domain.Principal) ([]domain.Task, error) {
		return h.uc.SearchByTitle(stdCtx, p, title)
	})
}

// @Summary Get task
// @Tags tasks
// @Router /api/tasks/{id} [get]
func (h *TaskHandler) GetTask(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()
	p, ok := h.principal(stdCtx, ctx)
	if !ok {
		return
	}

	task, err := h.uc.GetByID(stdCtx, p, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, task)
}

// @Summary Create task
// @Tags tasks
// @Router /api/tasks [post]
func (h *TaskHandler) CreateTask(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()
	p, ok := h.principal(stdCtx, ctx)
	if !ok {
		return
	}

	var req transport.TaskRequest
	if !h.decode(stdCtx, ctx, &req) {
		return
	}

	created, err := h.uc.Create(stdCtx, p, taskInput(req))
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, created)
}

// @Summary Replace task
// @Tags tasks
// @Router /api/tasks/{id} [put]
func (h *TaskHandler) UpdateTask(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()
	p, ok := h.principal(stdCtx, ctx)
	if !ok {
		return
	}

	var req transport.TaskRequest
	if !h.decode(stdCtx, ctx, &req) {
		return
	}

	updated, err := h.uc.Update(stdCtx, p, pathParam(ctx, "id"), taskInput(req))
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, updated)
}

// @Summary Patch task
// @Tags tasks
// @Router /api/tasks/{id} [patch]
func (h *TaskHandler) PatchTask(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()
	p, ok := h.principal(stdCtx, ctx)
	if !ok {
		return
	}

	var req transport.TaskPatchRequest
	if !h.decode(stdCtx, ctx, &req) {
		return
	}

	updated, err := h.uc.Patch(stdCtx, p, pathParam(ctx, "id"), taskUC.Patch{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	})
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, updated)
}

// @Summary Toggle task completion
// @Tags tasks
// @Router /api/tasks/{id}/toggle [patch]
func (h *TaskHandler) ToggleTask(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()
	p, ok := h.principal(stdCtx, ctx)
	if !ok {
		return
	}

	updated, err := h.uc.ToggleCompletion(stdCtx, p, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, updated)
}

// @Summary Delete task
// @Tags tasks
// @Router /api/tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()
	p, ok := h.principal(stdCtx, ctx)
	if !ok {
		return
	}

	if err := h.uc.Delete(stdCtx, p, pathParam(ctx, "id")); err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.MessageResponse{Message: "Task deleted successfully"})
}

func taskInput(req transport.TaskRequest) taskUC.Input {
	return taskUC.Input{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	}
}
