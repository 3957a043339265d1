package graphql

import (
	"time"

	gql "github.com/graphql-go/graphql"

	"github.com/fastygo/taskhub/domain"
	authUC "github.com/fastygo/taskhub/usecase/auth"
	taskUC "github.com/fastygo/taskhub/usecase/task"
	userUC "github.com/fastygo/taskhub/usecase/user"
)

var taskType = gql.NewObject(gql.ObjectConfig{
	Name: "Task",
	Fields: gql.Fields{
		"id":          &gql.Field{Type: gql.NewNonNull(gql.ID)},
		"userId":      &gql.Field{Type: gql.NewNonNull(gql.ID)},
		"title":       &gql.Field{Type: gql.NewNonNull(gql.String)},
		"description": &gql.Field{Type: gql.String},
		"completed":   &gql.Field{Type: gql.NewNonNull(gql.Boolean)},
		"priority":    &gql.Field{Type: gql.NewNonNull(gql.String)},
		"dueDate":     &gql.Field{Type: gql.String},
		"createdAt":   &gql.Field{Type: gql.String},
		"updatedAt":   &gql.Field{Type: gql.String},
	},
})

var userType = gql.NewObject(gql.ObjectConfig{
	Name: "User",
	Fields: gql.Fields{
		"id":        &gql.Field{Type: gql.NewNonNull(gql.ID)},
		"username":  &gql.Field{Type: gql.NewNonNull(gql.String)},
		"email":     &gql.Field{Type: gql.NewNonNull(gql.String)},
		"roles":     &gql.Field{Type: gql.NewList(gql.String)},
		"active":    &gql.Field{Type: gql.Boolean},
		"createdAt": &gql.Field{Type: gql.String},
	},
})

var authPayloadType = gql.NewObject(gql.ObjectConfig{
	Name: "AuthPayload",
	Fields: gql.Fields{
		"token":     &gql.Field{Type: gql.NewNonNull(gql.String)},
		"type":      &gql.Field{Type: gql.NewNonNull(gql.String)},
		"id":        &gql.Field{Type: gql.NewNonNull(gql.ID)},
		"username":  &gql.Field{Type: gql.NewNonNull(gql.String)},
		"email":     &gql.Field{Type: gql.String},
		"roles":     &gql.Field{Type: gql.NewList(gql.String)},
		"expiresAt": &gql.Field{Type: gql.String},
	},
})

// TaskInput fields are all optional so the same input serves creation and
// partial updates.
var taskInputType = gql.NewInputObject(gql.InputObjectConfig{
	Name: "TaskInput",
	Fields: gql.InputObjectConfigFieldMap{
		"title":       &gql.InputObjectFieldConfig{Type: gql.String},
		"description": &gql.InputObjectFieldConfig{Type: gql.String},
		"completed":   &gql.InputObjectFieldConfig{Type: gql.Boolean},
		"priority":    &gql.InputObjectFieldConfig{Type: gql.String},
		"dueDate":     &gql.InputObjectFieldConfig{Type: gql.String},
	},
})

// NewSchema builds the task schema on top of the use cases.
func NewSchema(auth *authUC.UseCase, users *userUC.Service, tasks *taskUC.UseCase) (gql.Schema, error) {
	r := &resolver{auth: auth, users: users, tasks: tasks}

	idArg := gql.FieldConfigArgument{"id": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.ID)}}
	taskList := gql.NewNonNull(gql.NewList(gql.NewNonNull(taskType)))

	query := gql.NewObject(gql.ObjectConfig{
		Name: "Query",
		Fields: gql.Fields{
			"getAllTasks": &gql.Field{Type: taskList, Resolve: r.allTasks},
			"getTaskById": &gql.Field{Type: taskType, Args: idArg, Resolve: r.taskByID},
			"getTasksByStatus": &gql.Field{
				Type:    taskList,
				Args:    gql.FieldConfigArgument{"completed": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.Boolean)}},
				Resolve: r.tasksByStatus,
			},
			"getTasksByPriority": &gql.Field{
				Type:    taskList,
				Args:    gql.FieldConfigArgument{"priority": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.String)}},
				Resolve: r.tasksByPriority,
			},
			"getOverdueTasks": &gql.Field{Type: taskList, Resolve: r.overdueTasks},
			"getPendingTasks": &gql.Field{Type: taskList, Resolve: r.pendingTasks},
			"searchTasks": &gql.Field{
				Type:    taskList,
				Args:    gql.FieldConfigArgument{"title": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.String)}},
				Resolve: r.searchTasks,
			},
			"me": &gql.Field{Type: userType, Resolve: r.me},
		},
	})

	mutation := gql.NewObject(gql.ObjectConfig{
		Name: "Mutation",
		Fields: gql.Fields{
			"login": &gql.Field{
				Type: authPayloadType,
				Args: gql.FieldConfigArgument{
					"username": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.String)},
					"password": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.String)},
				},
				Resolve: r.login,
			},
			"register": &gql.Field{
				Type: gql.String,
				Args: gql.FieldConfigArgument{
					"username": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.String)},
					"email":    &gql.ArgumentConfig{Type: gql.NewNonNull(gql.String)},
					"password": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.String)},
					"roles":    &gql.ArgumentConfig{Type: gql.NewList(gql.String)},
				},
				Resolve: r.register,
			},
			"createTask": &gql.Field{
				Type:    taskType,
				Args:    gql.FieldConfigArgument{"input": &gql.ArgumentConfig{Type: gql.NewNonNull(taskInputType)}},
				Resolve: r.createTask,
			},
			"updateTask": &gql.Field{
				Type: taskType,
				Args: gql.FieldConfigArgument{
					"id":    &gql.ArgumentConfig{Type: gql.NewNonNull(gql.ID)},
					"input": &gql.ArgumentConfig{Type: gql.NewNonNull(taskInputType)},
				},
				Resolve: r.updateTask,
			},
			"toggleTaskCompletion": &gql.Field{Type: taskType, Args: idArg, Resolve: r.toggleTask},
			"deleteTask":           &gql.Field{Type: gql.Boolean, Args: idArg, Resolve: r.deleteTask},
		},
	})

	return gql.NewSchema(gql.SchemaConfig{Query: query, Mutation: mutation})
}

func taskView(t *domain.Task) map[string]interface{} {
	if t == nil {
		return nil
	}
	return map[string]interface{}{
		"id":          t.ID,
		"userId":      t.UserID,
		"title":       t.Title,
		"description": t.Description,
		"completed":   t.Completed,
		"priority":    string(t.Priority),
		"dueDate":     formatTime(t.DueDate),
		"createdAt":   t.CreatedAt.Format(time.RFC3339),
		"updatedAt":   t.UpdatedAt.Format(time.RFC3339),
	}
}

func taskViews(tasks []domain.Task) []map[string]interface{} {
	out := make([]map[string]interface{}, len(tasks))
	for i := range tasks {
		out[i] = taskView(&tasks[i])
	}
	return out
}

func userView(u *domain.User) map[string]interface{} {
	roles := make([]string, len(u.Roles))
	for i, role := range u.Roles {
		roles[i] = string(role)
	}
	return map[string]interface{}{
		"id":        u.ID,
		"username":  u.Username,
		"email":     u.Email,
		"roles":     roles,
		"active":    u.Active,
		"createdAt": u.CreatedAt.Format(time.RFC3339),
	}
}

func formatTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}
