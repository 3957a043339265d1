package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiGraphQL "github.com/fastygo/taskhub/api/graphql"
	apiHandler "github.com/fastygo/taskhub/api/handler"
	"github.com/fastygo/taskhub/internal/middleware"
)

type Middleware func(fasthttp.RequestHandler) fasthttp.RequestHandler

type Handlers struct {
	Auth    *apiHandler.AuthHandler
	User    *apiHandler.UserHandler
	Task    *apiHandler.TaskHandler
	Health  *apiHandler.HealthHandler
	GraphQL *apiGraphQL.Handler
	// Metrics is mounted on /metrics when set.
	Metrics fasthttp.RequestHandler
}

type Middlewares struct {
	Auth         Middleware
	OptionalAuth Middleware
	// RateLimit may be nil to disable throttling of the credential endpoints.
	RateLimit *middleware.RateLimiter
}

func New(handlers Handlers, mw Middlewares) *router.Router {
	r := router.New()
	r.SaveMatchedRoutePath = true

	r.GET("/health", handlers.Health.Check)
	if handlers.Metrics != nil {
		r.GET("/metrics", handlers.Metrics)
	}

	api := r.Group("/api")

	// Auth routes
	api.POST("/auth/signin", mw.RateLimit.Limit("signin", handlers.Auth.SignIn))
	api.POST("/auth/signup", mw.RateLimit.Limit("signup", handlers.Auth.SignUp))

	api.POST("/graphql", mw.OptionalAuth(handlers.GraphQL.Serve))

	auth := mw.Auth

	api.GET("/users", auth(handlers.User.ListUsers))
	api.POST("/users", auth(handlers.User.CreateUser))
	users := api.Group("/users")
	users.GET("/profile", auth(handlers.User.Profile))
	users.GET("/stats", auth(handlers.User.Stats))
	users.GET("/username/{username}", auth(handlers.User.GetUserByUsername))
	users.GET("/role/{roleName}", auth(handlers.User.ListUsersByRole))
	users.GET("/{id}", auth(handlers.User.GetUser))
	users.PUT("/{id}", auth(handlers.User.UpdateUser))
	users.DELETE("/{id}", auth(handlers.User.DeleteUser))
	users.PATCH("/{id}/password", auth(handlers.User.ChangePassword))
	users.PATCH("/{id}/deactivate", auth(handlers.User.DeactivateUser))
	users.PATCH("/{id}/activate", auth(handlers.User.ActivateUser))

	api.GET("/tasks", auth(handlers.Task.GetTasks))
	api.POST("/tasks", auth(handlers.Task.CreateTask))
	tasks := api.Group("/tasks")
	tasks.GET("/status", auth(handlers.Task.GetTasksByStatus))
	tasks.GET("/priority/{priority}", auth(handlers.Task.GetTasksByPriority))
	tasks.GET("/overdue", auth(handlers.Task.GetOverdueTasks))
	tasks.GET("/pending", auth(handlers.Task.GetPendingTasks))
	tasks.GET("/search", auth(handlers.Task.SearchTasks))
	tasks.GET("/{id}", auth(handlers.Task.GetTask))
	tasks.PUT("/{id}", auth(handlers.Task.UpdateTask))
	tasks.PATCH("/{id}", auth(handlers.Task.PatchTask))
	tasks.PATCH("/{id}/toggle", auth(handlers.Task.ToggleTask))
	tasks.DELETE("/{id}", auth(handlers.Task.DeleteTask))

	return r
}
