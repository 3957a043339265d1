package handler_test

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
	"golang.org/x/crypto/bcrypt"

	"github.com/fastygo/taskhub/api/handler"
	"github.com/fastygo/taskhub/api/transport"
	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/internal/infrastructure/monitor"
	"github.com/fastygo/taskhub/internal/security"
	"github.com/fastygo/taskhub/pkg/httpcontext"
	"github.com/fastygo/taskhub/repository/bolt"
	authUC "github.com/fastygo/taskhub/usecase/auth"
	taskUC "github.com/fastygo/taskhub/usecase/task"
	userUC "github.com/fastygo/taskhub/usecase/user"
)

type response struct {
	Status string              `json:"status"`
	Code   string              `json:"code"`
	Data   json.RawMessage     `json:"data"`
	Error  transport.ErrorBody `json:"error"`
}

type fixture struct {
	store *bolt.Store
	auth  *handler.AuthHandler
	users *handler.UserHandler
	tasks *handler.TaskHandler
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store, err := bolt.Open(filepath.Join(t.TempDir(), "handler.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	codec := security.NewTokenCodec("0123456789abcdef0123456789abcdef", time.Hour, nil)
	adapter := httpcontext.NewAdapter(time.Second)
	return &fixture{
		store: store,
		auth:  handler.NewAuthHandler(authUC.New(store.Users(), hasher, codec, nil), adapter, nil),
		users: handler.NewUserHandler(userUC.New(store.Users(), hasher, nil), adapter, nil),
		tasks: handler.NewTaskHandler(taskUC.New(store.Tasks(), false, nil), adapter, nil),
	}
}

func (f *fixture) principal(t *testing.T, username string, roles ...domain.Role) *domain.Principal {
	t.Helper()
	user := &domain.User{
		ID:       "id-" + username,
		Username: username,
		Email:    username + "@example.com",
		Roles:    roles,
		Active:   true,
	}
	require.NoError(t, f.store.Users().Create(context.Background(), user))
	return user.Principal()
}

func newRequest(method, uri, body string, p *domain.Principal, params map[string]string) *fasthttp.RequestCtx {
	rc := &fasthttp.RequestCtx{}
	rc.Request.Header.SetMethod(method)
	rc.Request.SetRequestURI(uri)
	if body != "" {
		rc.Request.SetBodyString(body)
	}
	if p != nil {
		rc.SetUserValue(httpcontext.PrincipalUserValue, p)
	}
	for k, v := range params {
		rc.SetUserValue(k, v)
	}
	return rc
}

func decode(t *testing.T, rc *fasthttp.RequestCtx) response {
	t.Helper()
	var out response
	require.NoError(t, json.Unmarshal(rc.Response.Body(), &out))
	return out
}

func TestAuthHandler(t *testing.T) {
	t.Run("Should register and then sign in with a bearer token", func(t *testing.T) {
		f := setup(t)

		rc := newRequest(http.MethodPost, "/api/auth/signup", `{"username":"alice","email":"alice@example.com","password":"secret1","role":["mod"]}`, nil, nil)
		f.auth.SignUp(rc)
		require.Equal(t, http.StatusOK, rc.Response.StatusCode())
		assert.JSONEq(t, `{"message":"User registered successfully!"}`, string(decode(t, rc).Data))

		rc = newRequest(http.MethodPost, "/api/auth/signin", `{"username":"alice","password":"secret1"}`, nil, nil)
		f.auth.SignIn(rc)
		require.Equal(t, http.StatusOK, rc.Response.StatusCode())

		var jwt transport.JwtResponse
		require.NoError(t, json.Unmarshal(decode(t, rc).Data, &jwt))
		assert.NotEmpty(t, jwt.Token)
		assert.Equal(t, "Bearer", jwt.Type)
		assert.Equal(t, "alice", jwt.Username)
		assert.Equal(t, []string{"ROLE_MODERATOR"}, jwt.Roles)
	})

	t.Run("Should answer 401 with the error body on bad credentials", func(t *testing.T) {
		f := setup(t)
		rc := newRequest(http.MethodPost, "/api/auth/signin", `{"username":"nobody","password":"secret1"}`, nil, nil)
		f.auth.SignIn(rc)

		assert.Equal(t, http.StatusUnauthorized, rc.Response.StatusCode())
		out := decode(t, rc)
		assert.Equal(t, "error", out.Status)
		assert.Equal(t, "UNAUTHORIZED", out.Code)
		assert.Equal(t, http.StatusUnauthorized, out.Error.StatusCode)
		assert.Equal(t, "uri=/api/auth/signin", out.Error.Description)
		assert.False(t, out.Error.Timestamp.IsZero())
	})

	t.Run("Should answer 400 for a duplicate username", func(t *testing.T) {
		f := setup(t)
		body := `{"username":"alice","email":"alice@example.com","password":"secret1"}`
		f.auth.SignUp(newRequest(http.MethodPost, "/api/auth/signup", body, nil, nil))

		rc := newRequest(http.MethodPost, "/api/auth/signup", `{"username":"alice","email":"other@example.com","password":"secret1"}`, nil, nil)
		f.auth.SignUp(rc)
		assert.Equal(t, http.StatusBadRequest, rc.Response.StatusCode())
		assert.Equal(t, "CONFLICT", decode(t, rc).Code)
	})

	t.Run("Should answer 400 for a malformed body", func(t *testing.T) {
		f := setup(t)
		rc := newRequest(http.MethodPost, "/api/auth/signup", `{"username":`, nil, nil)
		f.auth.SignUp(rc)
		assert.Equal(t, http.StatusBadRequest, rc.Response.StatusCode())
		assert.Equal(t, "INVALID", decode(t, rc).Code)
	})
}

func TestTaskHandler(t *testing.T) {
	t.Run("Should create a task owned by the caller", func(t *testing.T) {
		f := setup(t)
		alice := f.principal(t, "alice", domain.RoleUser)

		rc := newRequest(http.MethodPost, "/api/tasks", `{"title":"Write report","priority":"high"}`, alice, nil)
		f.tasks.CreateTask(rc)
		require.Equal(t, http.StatusCreated, rc.Response.StatusCode())

		var created domain.Task
		require.NoError(t, json.Unmarshal(decode(t, rc).Data, &created))
		assert.Equal(t, alice.ID, created.UserID)
		assert.Equal(t, domain.PriorityHigh, created.Priority)
		assert.False(t, created.Completed)
	})

	t.Run("Should answer 403 for another owner's task and 404 for a missing one", func(t *testing.T) {
		f := setup(t)
		alice := f.principal(t, "alice", domain.RoleUser)
		bob := f.principal(t, "bob", domain.RoleUser)

		rc := newRequest(http.MethodPost, "/api/tasks", `{"title":"Private"}`, alice, nil)
		f.tasks.CreateTask(rc)
		var created domain.Task
		require.NoError(t, json.Unmarshal(decode(t, rc).Data, &created))

		rc = newRequest(http.MethodGet, "/api/tasks/"+created.ID, "", bob, map[string]string{"id": created.ID})
		f.tasks.GetTask(rc)
		assert.Equal(t, http.StatusForbidden, rc.Response.StatusCode())

		rc = newRequest(http.MethodGet, "/api/tasks/missing", "", bob, map[string]string{"id": "missing"})
		f.tasks.GetTask(rc)
		assert.Equal(t, http.StatusNotFound, rc.Response.StatusCode())
	})

	t.Run("Should toggle completion and filter by status", func(t *testing.T) {
		f := setup(t)
		alice := f.principal(t, "alice", domain.RoleUser)

		rc := newRequest(http.MethodPost, "/api/tasks", `{"title":"Ship"}`, alice, nil)
		f.tasks.CreateTask(rc)
		var created domain.Task
		require.NoError(t, json.Unmarshal(decode(t, rc).Data, &created))

		rc = newRequest(http.MethodPatch, "/api/tasks/"+created.ID+"/toggle", "", alice, map[string]string{"id": created.ID})
		f.tasks.ToggleTask(rc)
		require.Equal(t, http.StatusOK, rc.Response.StatusCode())

		rc = newRequest(http.MethodGet, "/api/tasks/status?completed=true", "", alice, nil)
		f.tasks.GetTasksByStatus(rc)
		require.Equal(t, http.StatusOK, rc.Response.StatusCode())
		var done []domain.Task
		require.NoError(t, json.Unmarshal(decode(t, rc).Data, &done))
		require.Len(t, done, 1)
		assert.True(t, done[0].Completed)
	})

	t.Run("Should reject an unparsable completion flag", func(t *testing.T) {
		f := setup(t)
		alice := f.principal(t, "alice", domain.RoleUser)
		rc := newRequest(http.MethodGet, "/api/tasks/status?completed=maybe", "", alice, nil)
		f.tasks.GetTasksByStatus(rc)
		assert.Equal(t, http.StatusBadRequest, rc.Response.StatusCode())
	})

	t.Run("Should answer 401 without a principal", func(t *testing.T) {
		f := setup(t)
		rc := newRequest(http.MethodGet, "/api/tasks", "", nil, nil)
		f.tasks.GetTasks(rc)
		assert.Equal(t, http.StatusUnauthorized, rc.Response.StatusCode())
	})
}

func TestUserHandler(t *testing.T) {
	t.Run("Should forbid listing users for a regular user", func(t *testing.T) {
		f := setup(t)
		alice := f.principal(t, "alice", domain.RoleUser)

		rc := newRequest(http.MethodGet, "/api/users", "", alice, nil)
		f.users.ListUsers(rc)
		assert.Equal(t, http.StatusForbidden, rc.Response.StatusCode())
	})

	t.Run("Should page users for an admin", func(t *testing.T) {
		f := setup(t)
		root := f.principal(t, "root", domain.RoleAdmin)
		f.principal(t, "alice", domain.RoleUser)

		rc := newRequest(http.MethodGet, "/api/users?page=0&size=1&sortBy=username&sortDir=asc", "", root, nil)
		f.users.ListUsers(rc)
		require.Equal(t, http.StatusOK, rc.Response.StatusCode())

		var page struct {
			Content       []domain.User `json:"content"`
			TotalElements int           `json:"totalElements"`
			TotalPages    int           `json:"totalPages"`
		}
		require.NoError(t, json.Unmarshal(decode(t, rc).Data, &page))
		require.Len(t, page.Content, 1)
		assert.Equal(t, "alice", page.Content[0].Username)
		assert.Equal(t, 2, page.TotalElements)
		assert.Equal(t, 2, page.TotalPages)
	})

	t.Run("Should let moderators list users by role", func(t *testing.T) {
		f := setup(t)
		mod := f.principal(t, "mod", domain.RoleModerator)
		f.principal(t, "root", domain.RoleAdmin)

		rc := newRequest(http.MethodGet, "/api/users/role/admin", "", mod, map[string]string{"roleName": "admin"})
		f.users.ListUsersByRole(rc)
		require.Equal(t, http.StatusOK, rc.Response.StatusCode())
		assert.Contains(t, string(decode(t, rc).Data), `"username":"root"`)
	})

	t.Run("Should never expose password hashes", func(t *testing.T) {
		f := setup(t)
		alice := f.principal(t, "alice", domain.RoleUser)

		rc := newRequest(http.MethodGet, "/api/users/profile", "", alice, nil)
		f.users.Profile(rc)
		require.Equal(t, http.StatusOK, rc.Response.StatusCode())
		assert.NotContains(t, string(rc.Response.Body()), "password")
	})

	t.Run("Should reject a wrong current password with 400", func(t *testing.T) {
		f := setup(t)
		rc := newRequest(http.MethodPost, "/api/auth/signup", `{"username":"alice","email":"alice@example.com","password":"secret1"}`, nil, nil)
		f.auth.SignUp(rc)
		user, err := f.store.Users().GetByUsername(context.Background(), "alice")
		require.NoError(t, err)

		rc = newRequest(http.MethodPatch, "/api/users/"+user.ID+"/password", `{"currentPassword":"nope","newPassword":"secret2"}`, user.Principal(), map[string]string{"id": user.ID})
		f.users.ChangePassword(rc)
		assert.Equal(t, http.StatusBadRequest, rc.Response.StatusCode())
		assert.Equal(t, "INVALID_CREDENTIAL", decode(t, rc).Code)
	})
}

type staticStatus monitor.Status

func (s staticStatus) GetStatus() monitor.Status { return monitor.Status(s) }

func TestHealthHandler(t *testing.T) {
	t.Run("Should answer 200 when required dependencies are online", func(t *testing.T) {
		h := handler.NewHealthHandler(staticStatus{Healthy: true, Components: map[string]monitor.Component{"bolt": {Online: true, Required: true}}}, nil, nil)
		rc := newRequest(http.MethodGet, "/health", "", nil, nil)
		h.Check(rc)
		assert.Equal(t, http.StatusOK, rc.Response.StatusCode())
	})

	t.Run("Should answer 503 when degraded", func(t *testing.T) {
		h := handler.NewHealthHandler(staticStatus{Healthy: false}, nil, nil)
		rc := newRequest(http.MethodGet, "/health", "", nil, nil)
		h.Check(rc)
		assert.Equal(t, http.StatusServiceUnavailable, rc.Response.StatusCode())
		assert.Equal(t, "DEGRADED", decode(t, rc).Code)
	})
}
