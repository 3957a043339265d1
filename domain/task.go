package domain

import (
	"sort"
	"strings"
	"time"
)

// Priority ranks how urgent a task is.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Rank orders priorities for pending lists: HIGH=0, MEDIUM=1, LOW=2.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// ParsePriority accepts priorities case-insensitively. Empty input yields MEDIUM.
func ParsePriority(value string) (Priority, error) {
	if strings.TrimSpace(value) == "" {
		return PriorityMedium, nil
	}
	p := Priority(strings.ToUpper(strings.TrimSpace(value)))
	if !p.Valid() {
		return "", ErrUnknownPriority
	}
	return p, nil
}

// Task represents a user-owned activity item.
type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Completed   bool       `json:"completed"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (t *Task) IsCompleted() bool {
	return t != nil && t.Completed
}

// IsOverdue reports whether the task is open and past its due date at now.
func (t *Task) IsOverdue(now time.Time) bool {
	return t != nil && !t.Completed && t.DueDate != nil && t.DueDate.Before(now)
}

// PendingLess orders open tasks by priority rank, then due date ascending
// with missing due dates last.
func PendingLess(a, b Task) bool {
	if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
		return ra < rb
	}
	switch {
	case a.DueDate == nil && b.DueDate == nil:
		return false
	case a.DueDate == nil:
		return false
	case b.DueDate == nil:
		return true
	default:
		return a.DueDate.Before(*b.DueDate)
	}
}

// SortPending sorts tasks in place using PendingLess. The sort is stable.
func SortPending(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool { return PendingLess(tasks[i], tasks[j]) })
}
