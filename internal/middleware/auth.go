package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/api/transport"
	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/pkg/httpcontext"
)

// TokenVerifier resolves a bearer token to its subject.
type TokenVerifier interface {
	Verify(token string) (string, bool)
}

// UserLookup loads the account named by a token subject.
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

const lookupTimeout = 5 * time.Second

// JWTAuth rejects requests without a valid bearer token for a known user.
func JWTAuth(tokens TokenVerifier, users UserLookup, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return authenticate(tokens, users, true, logger)
}

// OptionalAuth attaches the principal when a valid token is present and
// passes anonymous requests through untouched.
func OptionalAuth(tokens TokenVerifier, users UserLookup, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return authenticate(tokens, users, false, logger)
}

func authenticate(tokens TokenVerifier, users UserLookup, required bool, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			principal, err := resolve(ctx, tokens, users)
			switch {
			case err == nil:
			case domain.IsDomainError(err, domain.ErrCodeNotFound):
				logger.Warn("authentication failed",
					zap.String("path", string(ctx.Path())),
					zap.String("request_id", httpcontext.RequestID(ctx)),
					zap.Error(err),
				)
			default:
				// Store failures are not token failures.
				logger.Error("principal lookup failed",
					zap.String("path", string(ctx.Path())),
					zap.String("request_id", httpcontext.RequestID(ctx)),
					zap.Error(err),
				)
				transport.WriteError(ctx, http.StatusInternalServerError, string(domain.ErrCodeInternal), "internal error")
				return
			}
			if principal == nil {
				if required {
					transport.WriteError(ctx, http.StatusUnauthorized, string(domain.ErrCodeUnauthorized), domain.ErrUnauthenticated.Message)
					return
				}
				next(ctx)
				return
			}

			ctx.SetUserValue(httpcontext.PrincipalUserValue, principal)
			next(ctx)
		}
	}
}

func resolve(ctx *fasthttp.RequestCtx, tokens TokenVerifier, users UserLookup) (*domain.Principal, error) {
	raw := extractToken(ctx)
	if raw == "" {
		return nil, nil
	}
	subject, ok := tokens.Verify(raw)
	if !ok {
		return nil, nil
	}

	lookupCtx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	user, err := users.GetByUsername(lookupCtx, subject)
	if err != nil {
		return nil, err
	}
	return user.Principal(), nil
}

func extractToken(ctx *fasthttp.RequestCtx) string {
	header := strings.TrimSpace(string(ctx.Request.Header.Peek("Authorization")))
	if header == "" {
		return ""
	}
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}
