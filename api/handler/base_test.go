package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/taskhub/domain"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHORIZED"},
		{domain.Deny("delete task"), http.StatusForbidden, "FORBIDDEN"},
		{domain.ErrTaskNotFound, http.StatusNotFound, "NOT_FOUND"},
		{domain.ErrEmailTaken, http.StatusBadRequest, "CONFLICT"},
		{domain.ErrTitleRequired, http.StatusBadRequest, "INVALID"},
		{domain.ErrWrongPassword, http.StatusBadRequest, "INVALID_CREDENTIAL"},
		{fmt.Errorf("wrapped: %w", domain.ErrUserNotFound), http.StatusNotFound, "NOT_FOUND"},
		{errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		t.Run("Should map "+tc.err.Error(), func(t *testing.T) {
			status, code := mapError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, code)
		})
	}
}

func TestRespondError(t *testing.T) {
	t.Run("Should hide internal error details", func(t *testing.T) {
		h := newBaseHandler(nil, nil)
		rc := &fasthttp.RequestCtx{}
		rc.Request.SetRequestURI("/api/tasks")

		h.respondError(context.Background(), rc, errors.New("pq: password authentication failed"))

		assert.Equal(t, http.StatusInternalServerError, rc.Response.StatusCode())
		body := string(rc.Response.Body())
		assert.Contains(t, body, `"message":"internal error"`)
		assert.NotContains(t, body, "pq:")
	})
}
