package graphql_test

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/fastygo/taskhub/api/graphql"
	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/internal/security"
	"github.com/fastygo/taskhub/pkg/httpcontext"
	"github.com/fastygo/taskhub/repository/bolt"
	authUC "github.com/fastygo/taskhub/usecase/auth"
	taskUC "github.com/fastygo/taskhub/usecase/task"
	userUC "github.com/fastygo/taskhub/usecase/user"
)

type gqlResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []struct {
		Message    string                 `json:"message"`
		Extensions map[string]interface{} `json:"extensions"`
	} `json:"errors"`
}

type fixture struct {
	store   *bolt.Store
	handler *graphql.Handler
}

func setup(t *testing.T) *fixture {
	t.Helper()
	return setupWithLogger(t, nil)
}

func setupWithLogger(t *testing.T, logger *zap.Logger) *fixture {
	t.Helper()
	store, err := bolt.Open(filepath.Join(t.TempDir(), "graphql.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	codec := security.NewTokenCodec("0123456789abcdef0123456789abcdef", time.Hour, nil)
	schema, err := graphql.NewSchema(
		authUC.New(store.Users(), hasher, codec, nil),
		userUC.New(store.Users(), hasher, nil),
		taskUC.New(store.Tasks(), false, nil),
	)
	require.NoError(t, err)
	return &fixture{store: store, handler: graphql.NewHandler(schema, httpcontext.NewAdapter(time.Second), logger)}
}

func (f *fixture) user(t *testing.T, username string) *domain.Principal {
	t.Helper()
	u := &domain.User{ID: "id-" + username, Username: username, Email: username + "@example.com", Roles: []domain.Role{domain.RoleUser}, Active: true}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return u.Principal()
}

func (f *fixture) exec(t *testing.T, p *domain.Principal, query string, variables map[string]interface{}) gqlResponse {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{"query": query, "variables": variables})
	require.NoError(t, err)

	rc := &fasthttp.RequestCtx{}
	rc.Request.Header.SetMethod(http.MethodPost)
	rc.Request.SetRequestURI("/api/graphql")
	rc.Request.SetBody(body)
	if p != nil {
		rc.SetUserValue(httpcontext.PrincipalUserValue, p)
	}
	f.handler.Serve(rc)
	require.Equal(t, http.StatusOK, rc.Response.StatusCode())

	var out gqlResponse
	require.NoError(t, json.Unmarshal(rc.Response.Body(), &out))
	return out
}

func TestHandler_Auth(t *testing.T) {
	t.Run("Should register and log in without a token", func(t *testing.T) {
		f := setup(t)

		out := f.exec(t, nil, `mutation { register(username: "alice", email: "alice@example.com", password: "secret1") }`, nil)
		require.Empty(t, out.Errors)
		assert.JSONEq(t, `"User registered successfully!"`, string(out.Data["register"]))

		out = f.exec(t, nil, `mutation { login(username: "alice", password: "secret1") { token type username roles } }`, nil)
		require.Empty(t, out.Errors)
		var payload struct {
			Token    string   `json:"token"`
			Type     string   `json:"type"`
			Username string   `json:"username"`
			Roles    []string `json:"roles"`
		}
		require.NoError(t, json.Unmarshal(out.Data["login"], &payload))
		assert.NotEmpty(t, payload.Token)
		assert.Equal(t, "Bearer", payload.Type)
		assert.Equal(t, []string{"ROLE_USER"}, payload.Roles)
	})

	t.Run("Should report bad credentials with an UNAUTHORIZED code", func(t *testing.T) {
		f := setup(t)
		out := f.exec(t, nil, `mutation { login(username: "ghost", password: "secret1") { token } }`, nil)
		require.Len(t, out.Errors, 1)
		assert.Equal(t, "UNAUTHORIZED", out.Errors[0].Extensions["code"])
	})

	t.Run("Should require a principal for task queries", func(t *testing.T) {
		f := setup(t)
		out := f.exec(t, nil, `{ me { username } }`, nil)
		require.Len(t, out.Errors, 1)
		assert.Equal(t, "UNAUTHORIZED", out.Errors[0].Extensions["code"])
	})
}

func TestHandler_Tasks(t *testing.T) {
	const create = `mutation($input: TaskInput!) { createTask(input: $input) { id title description priority completed } }`

	t.Run("Should create and partially update a task", func(t *testing.T) {
		f := setup(t)
		alice := f.user(t, "alice")

		out := f.exec(t, alice, create, map[string]interface{}{
			"input": map[string]interface{}{"title": "Draft", "description": "first pass", "priority": "HIGH"},
		})
		require.Empty(t, out.Errors)
		var created struct {
			ID          string `json:"id"`
			Description string `json:"description"`
			Priority    string `json:"priority"`
		}
		require.NoError(t, json.Unmarshal(out.Data["createTask"], &created))
		assert.Equal(t, "HIGH", created.Priority)

		out = f.exec(t, alice, `mutation($id: ID!) { updateTask(id: $id, input: {title: "Final"}) { title description priority } }`,
			map[string]interface{}{"id": created.ID})
		require.Empty(t, out.Errors)
		assert.JSONEq(t, `{"title":"Final","description":"first pass","priority":"HIGH"}`, string(out.Data["updateTask"]))

		out = f.exec(t, alice, `{ getPendingTasks { title } getTasksByStatus(completed: false) { title } }`, nil)
		require.Empty(t, out.Errors)
		assert.JSONEq(t, `[{"title":"Final"}]`, string(out.Data["getPendingTasks"]))
		assert.JSONEq(t, `[{"title":"Final"}]`, string(out.Data["getTasksByStatus"]))
	})

	t.Run("Should refuse another owner's task with a FORBIDDEN code", func(t *testing.T) {
		f := setup(t)
		alice := f.user(t, "alice")
		bob := f.user(t, "bob")

		out := f.exec(t, alice, create, map[string]interface{}{"input": map[string]interface{}{"title": "Secret"}})
		require.Empty(t, out.Errors)
		var created struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(out.Data["createTask"], &created))

		out = f.exec(t, bob, `mutation($id: ID!) { deleteTask(id: $id) }`, map[string]interface{}{"id": created.ID})
		require.Len(t, out.Errors, 1)
		assert.Equal(t, "FORBIDDEN", out.Errors[0].Extensions["code"])

		out = f.exec(t, alice, `mutation($id: ID!) { toggleTaskCompletion(id: $id) { completed } }`, map[string]interface{}{"id": created.ID})
		require.Empty(t, out.Errors)
		assert.JSONEq(t, `{"completed":true}`, string(out.Data["toggleTaskCompletion"]))
	})

	t.Run("Should reject a blank title with an INVALID code", func(t *testing.T) {
		f := setup(t)
		alice := f.user(t, "alice")
		out := f.exec(t, alice, create, map[string]interface{}{"input": map[string]interface{}{"description": "no title"}})
		require.Len(t, out.Errors, 1)
		assert.Equal(t, "INVALID", out.Errors[0].Extensions["code"])
	})
}

func TestHandler_BadRequest(t *testing.T) {
	t.Run("Should answer 400 for a body without a query", func(t *testing.T) {
		f := setup(t)
		rc := &fasthttp.RequestCtx{}
		rc.Request.SetBodyString(`{}`)
		f.handler.Serve(rc)
		assert.Equal(t, http.StatusBadRequest, rc.Response.StatusCode())
	})
}

func TestHandler_InternalErrors(t *testing.T) {
	t.Run("Should hide the cause from clients and log it at error level", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		f := setupWithLogger(t, zap.New(core))
		alice := f.user(t, "alice")
		require.NoError(t, f.store.Close())

		out := f.exec(t, alice, `{ getAllTasks { id } }`, nil)
		require.Len(t, out.Errors, 1)
		assert.Equal(t, "internal error", out.Errors[0].Message)
		assert.Equal(t, "INTERNAL", out.Errors[0].Extensions["code"])

		failures := logs.FilterMessage("graphql resolver failed").All()
		require.Len(t, failures, 1)
		assert.Equal(t, zapcore.ErrorLevel, failures[0].Level)
		assert.Contains(t, failures[0].ContextMap()["error"], "database not open")
	})

	t.Run("Should not log client errors at error level", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		f := setupWithLogger(t, zap.New(core))

		out := f.exec(t, nil, `{ getAllTasks { id } }`, nil)
		require.Len(t, out.Errors, 1)
		assert.Equal(t, "UNAUTHORIZED", out.Errors[0].Extensions["code"])
		assert.Empty(t, logs.FilterLevelExact(zapcore.ErrorLevel).All())
	})
}
