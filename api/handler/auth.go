package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/api/transport"
	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/pkg/httpcontext"
	authUC "github.com/fastygo/taskhub/usecase/auth"
)

type AuthHandler struct {
	baseHandler
	uc *authUC.UseCase
}

func NewAuthHandler(uc *authUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Exchange credentials for a bearer token
// @Tags auth
// @Router /api/auth/signin [post]
func (h *AuthHandler) SignIn(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var req transport.SignInRequest
	if !h.decode(stdCtx, ctx, &req) {
		return
	}

	session, err := h.uc.SignIn(stdCtx, authUC.SignInInput{Username: req.Username, Password: req.Password})
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, NewJwtResponse(session))
}

// @Summary Register a new account
// @Tags auth
// @Router /api/auth/signup [post]
func (h *AuthHandler) SignUp(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var req transport.SignUpRequest
	if !h.decode(stdCtx, ctx, &req) {
		return
	}

	_, err := h.uc.SignUp(stdCtx, authUC.SignUpInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Roles:    req.Role,
	})
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.MessageResponse{Message: "User registered successfully!"})
}

// NewJwtResponse flattens a session into the sign-in payload.
func NewJwtResponse(s *authUC.Session) transport.JwtResponse {
	return transport.JwtResponse{
		Token:     s.Token,
		Type:      s.Type,
		ID:        s.User.ID,
		Username:  s.User.Username,
		Email:     s.User.Email,
		Roles:     roleNames(s.User.Roles),
		ExpiresAt: s.ExpiresAt,
	}
}

func roleNames(roles []domain.Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}
