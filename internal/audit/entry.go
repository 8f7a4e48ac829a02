package audit

import (
	"context"
	"time"

	"taskgate.org/internal/authz"
)

// Actions recorded by the services.
const (
	ActionTaskCreated         = "task.created"
	ActionTaskUpdated         = "task.updated"
	ActionTaskDeleted         = "task.deleted"
	ActionOrganizationCreated = "organization.created"
	ActionOwnerCreated        = "user.owner_created"
	ActionAdminCreated        = "user.admin_created"
)

// Entity types.
const (
	EntityTask         = "task"
	EntityOrganization = "organization"
	EntityUser         = "user"
)

// Entry is a write-once audit record.
type Entry struct {
	ID             string            `json:"id"`
	OrganizationID string            `json:"organizationId,omitempty"`
	UserID         string            `json:"userId"`
	Action         string            `json:"action"`
	EntityType     string            `json:"entityType"`
	EntityID       string            `json:"entityId,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
}

// Query selects entries visible under Scope. Zero EntityType and Action match everything.
type Query struct {
	Scope      authz.Scope
	EntityType string
	Action     string
	Limit      int
	Offset     int
}

// Store appends and lists audit entries. ListAudit returns one page ordered
// by CreatedAt descending along with the total number of matching entries.
type Store interface {
	AppendAuditEntry(ctx context.Context, entry *Entry) error
	ListAudit(ctx context.Context, q Query) ([]*Entry, int, error)
}
