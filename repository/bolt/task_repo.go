package bolt

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/google/uuid"
	bbolt "go.etcd.io/bbolt"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/repository"
)

// TaskRepository implements repository.TaskRepository on top of Bolt. Tasks
// are indexed by owner so listings never scan foreign rows.
type TaskRepository struct {
	db *bbolt.DB
}

var _ repository.TaskRepository = (*TaskRepository)(nil)

func (r *TaskRepository) GetByID(_ context.Context, id string) (*domain.Task, error) {
	var task *domain.Task
	err := r.db.View(func(tx *bbolt.Tx) error {
		var err error
		task, err = loadTask(tx, id)
		return err
	})
	return task, err
}

func (r *TaskRepository) List(_ context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	tasks := []domain.Task{}
	err := r.db.View(func(tx *bbolt.Tx) error {
		prefix := ownerPrefix(filter.UserID)
		c := tx.Bucket(bucketTaskOwners).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			task, err := loadTask(tx, string(k[len(prefix):]))
			if err != nil {
				return err
			}
			if matches(task, filter) {
				tasks = append(tasks, *task)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if filter.PendingOrder {
		domain.SortPending(tasks)
	} else {
		sort.SliceStable(tasks, func(i, j int) bool {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		})
	}
	return tasks, nil
}

func matches(task *domain.Task, filter repository.TaskFilter) bool {
	if filter.Completed != nil && task.Completed != *filter.Completed {
		return false
	}
	if filter.Priority != "" && task.Priority != filter.Priority {
		return false
	}
	if filter.TitleContains != "" &&
		!strings.Contains(strings.ToLower(task.Title), strings.ToLower(filter.TitleContains)) {
		return false
	}
	if filter.DueBefore != nil && (task.DueDate == nil || !task.DueDate.Before(*filter.DueBefore)) {
		return false
	}
	return true
}

func (r *TaskRepository) Create(_ context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	err := r.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketUsers).Get([]byte(task.UserID)) == nil {
			return domain.ErrUserNotFound
		}
		if err := put(tx.Bucket(bucketTasks), task.ID, task); err != nil {
			return err
		}
		return tx.Bucket(bucketTaskOwners).Put(ownerKey(task.UserID, task.ID), []byte{})
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r *TaskRepository) Update(_ context.Context, task *domain.Task) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		current, err := loadTask(tx, task.ID)
		if err != nil {
			return err
		}
		// ownership never moves
		task.UserID = current.UserID
		return put(tx.Bucket(bucketTasks), task.ID, task)
	})
}

func (r *TaskRepository) Delete(_ context.Context, id string) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		task, err := loadTask(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketTaskOwners).Delete(ownerKey(task.UserID, id)); err != nil {
			return err
		}
		return tx.Bucket(bucketTasks).Delete([]byte(id))
	})
}

func loadTask(tx *bbolt.Tx, id string) (*domain.Task, error) {
	raw := tx.Bucket(bucketTasks).Get([]byte(id))
	if raw == nil {
		return nil, domain.ErrTaskNotFound
	}
	var task domain.Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, err
	}
	return &task, nil
}
