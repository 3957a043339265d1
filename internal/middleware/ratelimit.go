package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	goRedis "github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/api/transport"
	"github.com/fastygo/taskhub/pkg/httpcontext"
)

// RateLimitRecorder counts rejected requests per route.
type RateLimitRecorder interface {
	RateLimited(route string)
}

// NewLimiterStore returns a Redis backed store when client is set and an
// in-process store otherwise.
func NewLimiterStore(client *goRedis.Client, prefix string) (limiter.Store, error) {
	opts := limiter.StoreOptions{
		Prefix:          prefix,
		CleanUpInterval: time.Minute,
	}
	if client == nil {
		return memory.NewStoreWithOptions(opts), nil
	}
	return sredis.NewStoreWithOptions(client, opts)
}

// RateLimiter throttles requests per client IP and route.
type RateLimiter struct {
	limiter  *limiter.Limiter
	recorder RateLimitRecorder
	logger   *zap.Logger
}

// NewRateLimiter allows perMinute requests per client and route.
func NewRateLimiter(store limiter.Store, perMinute int64, recorder RateLimitRecorder, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	rate := limiter.Rate{Period: time.Minute, Limit: perMinute}
	return &RateLimiter{
		limiter:  limiter.New(store, rate),
		recorder: recorder,
		logger:   logger,
	}
}

// Limit wraps next with the limiter under the given route name.
func (rl *RateLimiter) Limit(route string, next fasthttp.RequestHandler) fasthttp.RequestHandler {
	if rl == nil {
		return next
	}
	return func(ctx *fasthttp.RequestCtx) {
		key := route + ":" + ctx.RemoteIP().String()

		stdCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		res, err := rl.limiter.Get(stdCtx, key)
		cancel()
		if err != nil {
			// store outages must not lock users out
			rl.logger.Error("rate limiter unavailable",
				zap.String("route", route),
				zap.String("request_id", httpcontext.RequestID(ctx)),
				zap.Error(err),
			)
			next(ctx)
			return
		}

		ctx.Response.Header.Set("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
		ctx.Response.Header.Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
		ctx.Response.Header.Set("X-RateLimit-Reset", strconv.FormatInt(res.Reset, 10))

		if res.Reached {
			if rl.recorder != nil {
				rl.recorder.RateLimited(route)
			}
			rl.logger.Warn("rate limit reached",
				zap.String("route", route),
				zap.String("client", ctx.RemoteIP().String()),
			)
			transport.WriteError(ctx, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
			return
		}
		next(ctx)
	}
}
