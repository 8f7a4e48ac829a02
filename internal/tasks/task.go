package tasks

import (
	"context"
	"time"

	"taskgate.org/internal/auth"
	"taskgate.org/internal/authz"
)

// Status is the workflow state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Category groups tasks on the board.
type Category string

const (
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
)

func (c Category) Valid() bool {
	return c == CategoryWork || c == CategoryPersonal
}

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
)

// Task belongs to exactly one organization. AssignedToID, when set, names an
// identity of the same organization.
type Task struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Status         Status    `json:"status"`
	Category       Category  `json:"category"`
	OrderIndex     int       `json:"orderIndex"`
	OrganizationID string    `json:"organizationId"`
	CreatedByID    string    `json:"createdById"`
	AssignedToID   string    `json:"assignedToId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Store persists tasks. FindTaskByID, UpdateTask and DeleteTask return
// auth.ErrNotFound for unknown ids. ListTasks returns only tasks admitted by
// scope, ordered by OrderIndex ascending then CreatedAt descending.
type Store interface {
	CreateTask(ctx context.Context, task *Task) error
	FindTaskByID(ctx context.Context, id string) (*Task, error)
	UpdateTask(ctx context.Context, task *Task) error
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context, scope authz.Scope) ([]*Task, error)
}

// IdentityFinder resolves assignees.
type IdentityFinder interface {
	FindIdentityByID(ctx context.Context, id string) (*auth.Identity, error)
}
