package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/api/transport"
	"github.com/fastygo/taskhub/pkg/httpcontext"
	userUC "github.com/fastygo/taskhub/usecase/user"
)

type UserHandler struct {
	baseHandler
	svc *userUC.Service
}

func NewUserHandler(svc *userUC.Service, adapter *httpcontext.Adapter, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		baseHandler: newBaseHandler(adapter, logger),
		svc:         svc,
	}
}

// @Summary List users
// @Tags users
// @Router /api/users [get]
func (h *UserHandler) ListUsers(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()
	p, ok := h.principal(stdCtx, ctx)
	if !ok {
		return
	}

	result, err := h.svc.ListUsers(stdCtx, p, pageFromQuery(ctx))
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, result)
}

// @Summary Current user profile
// @Tags users
// @Router /api/users/profile [get]
func (h *UserHandler) Profile(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()
	p, ok := h.principal(stdCtx, ctx)
	if !ok {
		return
	}

	user, err := h.svc.Profile(stdCtx, p)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, user)
}

// @Summary User statistics
// @Tags users
// @Router /api/users/stats [get]
func (h *UserHandler) Stats(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()
	p, ok := h.principal(stdCtx, ctx)
	if !ok {
		return
	}

	stats, err := h.svc.Stats(stdCtx, p)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, stats)
}

// @Summary Get user by id
// @Tags users
// @Router /api/users/{id} [get]
func (h *UserHandler) GetUser(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()
	p, ok := h.principal(stdCtx, ctx)
	if !ok {
		return
	}

	user, err := h.svc.GetUser(stdCtx, p, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, user)
}

// @Summary Get user by username
// @Tags users
// @Router /api/users/username/{username} [get]
func (h *UserHandler) GetUserByUsername(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()
	p, ok := h.principal(stdCtx, ctx)
	if !ok {
		return
	}

	user, err := h.svc.GetUserByUsername(stdCtx, p, pathParam(ctx, "username"))
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, user)
}

// @Summary Create user
// @Tags users
// @Router /api/users [post]
func (h *UserHandler) CreateUser(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()
	p, ok := h.principal(stdCtx, ctx)
	if !ok {
		return
	}

	var req transport.UserCreateRequest
	if !h.decode(stdCtx, ctx, &req) {
		return
	}

	user, err := h.svc.CreateUser(stdCtx, p, userUC.CreateInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Roles:    req.Roles,
		Active:   req.Active,
	})
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, user)
}

// @Summary Update user
// @Tags users
// @Router /api/users/{id} [put]
func (h *UserHandler) UpdateUser(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()
	p, ok := h.principal(stdCtx, ctx)
	if !ok {
		return
	}

	var req transport.UserUpdateRequest
	if !h.decode(stdCtx, ctx, &req) {
		return
	}

	user, err := h.svc.UpdateUser(stdCtx, p, pathParam(ctx, "id"), userUC.UpdateInput{
		Username: req.Username,
		Email:    req.Email,
		Roles:    req.Roles,
		Active:   req.Active,
	})
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, user)
}

// @Summary Change password
// @Tags users
// @Router /api/users/{id}/password [patch]
func (h *UserHandler) ChangePassword(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()
	p, ok := h.principal(stdCtx, ctx)
	if !ok {
		return
	}

	var req transport.PasswordChangeRequest
	if !h.decode(stdCtx, ctx, &req) {
		return
	}

	if err := h.svc.ChangePassword(stdCtx, p, pathParam(ctx, "id"), req.CurrentPassword, req.NewPassword); err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.MessageResponse{Message: "Password changed successfully"})
}

// @Summary Deactivate user
// @Tags users
// @Router /api/users/{id}/deactivate [patch]
func (h *UserHandler) DeactivateUser(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()
	p, ok := h.principal(stdCtx, ctx)
	if !ok {
		return
	}

	user, err := h.svc.DeactivateUser(stdCtx, p, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, user)
}

// @Summary Activate user
// @Tags users
// @Router /api/users/{id}/activate [patch]
func (h *UserHandler) ActivateUser(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()
	p, ok := h.principal(stdCtx, ctx)
	if !ok {
		return
	}

	user, err := h.svc.ActivateUser(stdCtx, p, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, user)
}

// @Summary Delete user and owned tasks
// @Tags users
// @Router /api/users/{id} [delete]
func (h *UserHandler) DeleteUser(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()
	p, ok := h.principal(stdCtx, ctx)
	if !ok {
		return
	}

	if err := h.svc.DeleteUser(stdCtx, p, pathParam(ctx, "id")); err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.MessageResponse{Message: "User deleted successfully"})
}

// @Summary List users holding a role
// @Tags users
// @Router /api/users/role/{roleName} [get]
func (h *UserHandler) ListUsersByRole(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()
	p, ok := h.principal(stdCtx, ctx)
	if !ok {
		return
	}

	result, err := h.svc.ListUsersByRole(stdCtx, p, pathParam(ctx, "roleName"), pageFromQuery(ctx))
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, result)
}
