package graphql

import (
	"errors"
	"time"

	gql "github.com/graphql-go/graphql"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/pkg/httpcontext"
	authUC "github.com/fastygo/taskhub/usecase/auth"
	taskUC "github.com/fastygo/taskhub/usecase/task"
	userUC "github.com/fastygo/taskhub/usecase/user"
)

// codedError exposes the domain error code under extensions.code.
type codedError struct {
	message string
	code    domain.ErrorCode
	cause   error
}

func (e *codedError) Error() string { return e.message }

func (e *codedError) Unwrap() error { return e.cause }

func (e *codedError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": string(e.code)}
}

func toGraphQLError(err error) error {
	var dErr *domain.Error
	if errors.As(err, &dErr) && dErr.Code != domain.ErrCodeInternal {
		return &codedError{message: dErr.Error(), code: dErr.Code}
	}
	return &codedError{message: "internal error", code: domain.ErrCodeInternal, cause: err}
}

type resolver struct {
	auth  *authUC.UseCase
	users *userUC.Service
	tasks *taskUC.UseCase
}

type principalResolver func(p gql.ResolveParams, principal *domain.Principal) (interface{}, error)

// authenticated runs fn with the caller principal and converts failures.
func authenticated(fn principalResolver) gql.FieldResolveFn {
	return func(p gql.ResolveParams) (interface{}, error) {
		principal, err := httpcontext.CurrentPrincipal(p.Context)
		if err != nil {
			return nil, toGraphQLError(err)
		}
		out, err := fn(p, principal)
		if err != nil {
			return nil, toGraphQLError(err)
		}
		return out, nil
	}
}

func listing(tasks []domain.Task, err error) (interface{}, error) {
	if err != nil {
		return nil, err
	}
	return taskViews(tasks), nil
}

func single(task *domain.Task, err error) (interface{}, error) {
	if err != nil {
		return nil, err
	}
	return taskView(task), nil
}

func (r *resolver) login(p gql.ResolveParams) (interface{}, error) {
	username, _ := p.Args["username"].(string)
	password, _ := p.Args["password"].(string)
	session, err := r.auth.SignIn(p.Context, authUC.SignInInput{Username: username, Password: password})
	if err != nil {
		return nil, toGraphQLError(err)
	}
	view := userView(session.User)
	view["token"] = session.Token
	view["type"] = session.Type
	view["expiresAt"] = session.ExpiresAt.Format(time.RFC3339)
	return view, nil
}

func (r *resolver) register(p gql.ResolveParams) (interface{}, error) {
	input := authUC.SignUpInput{}
	input.Username, _ = p.Args["username"].(string)
	input.Email, _ = p.Args["email"].(string)
	input.Password, _ = p.Args["password"].(string)
	if roles, ok := p.Args["roles"].([]interface{}); ok {
		for _, role := range roles {
			if s, ok := role.(string); ok {
				input.Roles = append(input.Roles, s)
			}
		}
	}
	if _, err := r.auth.SignUp(p.Context, input); err != nil {
		return nil, toGraphQLError(err)
	}
	return "User registered successfully!", nil
}

func (r *resolver) me(p gql.ResolveParams) (interface{}, error) {
	return authenticated(func(p gql.ResolveParams, principal *domain.Principal) (interface{}, error) {
		user, err := r.users.Profile(p.Context, principal)
		if err != nil {
			return nil, err
		}
		return userView(user), nil
	})(p)
}

func (r *resolver) allTasks(p gql.ResolveParams) (interface{}, error) {
	return authenticated(func(p gql.ResolveParams, principal *domain.Principal) (interface{}, error) {
		return listing(r.tasks.ListTasks(p.Context, principal))
	})(p)
}

func (r *resolver) taskByID(p gql.ResolveParams) (interface{}, error) {
	return authenticated(func(p gql.ResolveParams, principal *domain.Principal) (interface{}, error) {
		id, _ := p.Args["id"].(string)
		return single(r.tasks.GetByID(p.Context, principal, id))
	})(p)
}

func (r *resolver) tasksByStatus(p gql.ResolveParams) (interface{}, error) {
	return authenticated(func(p gql.ResolveParams, principal *domain.Principal) (interface{}, error) {
		completed, _ := p.Args["completed"].(bool)
		return listing(r.tasks.ListByCompletion(p.Context, principal, completed))
	})(p)
}

func (r *resolver) tasksByPriority(p gql.ResolveParams) (interface{}, error) {
	return authenticated(func(p gql.ResolveParams, principal *domain.Principal) (interface{}, error) {
		priority, _ := p.Args["priority"].(string)
		return listing(r.tasks.ListByPriority(p.Context, principal, priority))
	})(p)
}

func (r *resolver) overdueTasks(p gql.ResolveParams) (interface{}, error) {
	return authenticated(func(p gql.ResolveParams, principal *domain.Principal) (interface{}, error) {
		return listing(r.tasks.ListOverdue(p.Context, principal))
	})(p)
}

func (r *resolver) pendingTasks(p gql.ResolveParams) (interface{}, error) {
	return authenticated(func(p gql.ResolveParams, principal *domain.Principal) (interface{}, error) {
		return listing(r.tasks.ListPendingOrdered(p.Context, principal))
	})(p)
}

func (r *resolver) searchTasks(p gql.ResolveParams) (interface{}, error) {
	return authenticated(func(p gql.ResolveParams, principal *domain.Principal) (interface{}, error) {
		title, _ := p.Args["title"].(string)
		return listing(r.tasks.SearchByTitle(p.Context, principal, title))
	})(p)
}

func (r *resolver) createTask(p gql.ResolveParams) (interface{}, error) {
	return authenticated(func(p gql.ResolveParams, principal *domain.Principal) (interface{}, error) {
		patch, err := patchFromArgs(p.Args["input"])
		if err != nil {
			return nil, err
		}
		input := taskUC.Input{DueDate: patch.DueDate}
		if patch.Title != nil {
			input.Title = *patch.Title
		}
		if patch.Description != nil {
			input.Description = *patch.Description
		}
		if patch.Completed != nil {
			input.Completed = *patch.Completed
		}
		if patch.Priority != nil {
			input.Priority = *patch.Priority
		}
		return single(r.tasks.Create(p.Context, principal, input))
	})(p)
}

func (r *resolver) updateTask(p gql.ResolveParams) (interface{}, error) {
	return authenticated(func(p gql.ResolveParams, principal *domain.Principal) (interface{}, error) {
		id, _ := p.Args["id"].(string)
		patch, err := patchFromArgs(p.Args["input"])
		if err != nil {
			return nil, err
		}
		return single(r.tasks.Patch(p.Context, principal, id, patch))
	})(p)
}

func (r *resolver) toggleTask(p gql.ResolveParams) (interface{}, error) {
	return authenticated(func(p gql.ResolveParams, principal *domain.Principal) (interface{}, error) {
		id, _ := p.Args["id"].(string)
		return single(r.tasks.ToggleCompletion(p.Context, principal, id))
	})(p)
}

func (r *resolver) deleteTask(p gql.ResolveParams) (interface{}, error) {
	return authenticated(func(p gql.ResolveParams, principal *domain.Principal) (interface{}, error) {
		id, _ := p.Args["id"].(string)
		if err := r.tasks.Delete(p.Context, principal, id); err != nil {
			return nil, err
		}
		return true, nil
	})(p)
}

// patchFromArgs keeps only the input fields that carry a value.
func patchFromArgs(raw interface{}) (taskUC.Patch, error) {
	var patch taskUC.Patch
	fields, _ := raw.(map[string]interface{})
	if v, ok := fields["title"].(string); ok {
		patch.Title = &v
	}
	if v, ok := fields["description"].(string); ok {
		patch.Description = &v
	}
	if v, ok := fields["completed"].(bool); ok {
		patch.Completed = &v
	}
	if v, ok := fields["priority"].(string); ok {
		patch.Priority = &v
	}
	if v, ok := fields["dueDate"].(string); ok && v != "" {
		due, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return patch, domain.NewError(domain.ErrCodeInvalid, "dueDate must be an RFC 3339 timestamp")
		}
		patch.DueDate = &due
	}
	return patch, nil
}
