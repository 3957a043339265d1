package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/taskhub/internal/infrastructure/metrics"
)

func TestMetrics(t *testing.T) {
	t.Run("Should count token failures and denials", func(t *testing.T) {
		m := metrics.New()
		m.TokenRejected("expired")
		m.TokenRejected("expired")
		m.AccessDenied("delete user")

		count, err := testutil.GatherAndCount(m.Registry(), "taskhub_token_failures_total", "taskhub_access_denied_total")
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("Should expose the registry over HTTP", func(t *testing.T) {
		m := metrics.New()
		m.AccessDenied("list users")

		var ctx fasthttp.RequestCtx
		ctx.Request.SetRequestURI("/metrics")
		m.Handler()(&ctx)

		assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
		assert.Contains(t, string(ctx.Response.Body()), `taskhub_access_denied_total{operation="list users"} 1`)
	})

	t.Run("Should tolerate a nil recorder", func(t *testing.T) {
		var m *metrics.Metrics
		assert.NotPanics(t, func() {
			m.TokenRejected("empty")
			m.AccessDenied("x")
			m.RateLimited("/api/auth/signin")
		})
	})
}
