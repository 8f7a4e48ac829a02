package pg

import (
	"context"
	"database/sql"
	"fmt"

	"taskgate.org/internal/auth"
	"taskgate.org/internal/authz"
	"taskgate.org/internal/ids"
	"taskgate.org/internal/tasks"
)

var _ tasks.Store = (*Store)(nil)

const taskColumns = `id, title, description, status, category, order_index, organization_id, created_by_id, assigned_to_id, created_at, updated_at`

func scanTask(row rowScanner) (*tasks.Task, error) {
	var (
		task     tasks.Task
		assignee sql.NullString
	)
	if err := row.Scan(&task.ID, &task.Title, &task.Description, &task.Status, &task.Category, &task.OrderIndex,
		&task.OrganizationID, &task.CreatedByID, &assignee, &task.CreatedAt, &task.UpdatedAt); err != nil {
		return nil, err
	}
	task.AssignedToID = assignee.String
	return &task, nil
}

// scopeClause renders scope as a where clause over a table with
// organization_id and, for tasks, assigned_to_id. ok is false when the
// scope admits nothing.
func scopeClause(scope authz.Scope, assigneeColumn string, args []any) (string, []any, bool) {
	switch {
	case scope.AssigneeID != "":
		if assigneeColumn == "" {
			return "", args, false
		}
		args = append(args, scope.AssigneeID)
		return fmt.Sprintf("%s = $%d", assigneeColumn, len(args)), args, true
	case scope.All:
		return "", args, true
	case len(scope.OrganizationIDs) > 0:
		args = append(args, scope.OrganizationIDs)
		return fmt.Sprintf("organization_id = any($%d)", len(args)), args, true
	default:
		return "", args, false
	}
}

func (s *Store) CreateTask(ctx context.Context, task *tasks.Task) error {
	if s.db == nil {
		return errNoDatabase
	}
	_, err := s.db.ExecContext(ctx, `
		insert into tasks (id, title, description, status, category, order_index, organization_id, created_by_id, assigned_to_id, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, task.ID, task.Title, task.Description, string(task.Status), string(task.Category), task.OrderIndex,
		task.OrganizationID, task.CreatedByID, nullIfEmpty(task.AssignedToID), task.CreatedAt, task.UpdatedAt)
	return translate(err)
}

func (s *Store) FindTaskByID(ctx context.Context, id string) (*tasks.Task, error) {
	if s.db == nil {
		return nil, errNoDatabase
	}
	if !ids.Valid(id) {
		return nil, auth.ErrNotFound
	}
	task, err := scanTask(s.db.QueryRowContext(ctx, `select `+taskColumns+` from tasks where id = $1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return task, nil
}

func (s *Store) UpdateTask(ctx context.Context, task *tasks.Task) error {
	if s.db == nil {
		return errNoDatabase
	}
	res, err := s.db.ExecContext(ctx, `
		update tasks
		set title = $2, description = $3, status = $4, category = $5, order_index = $6,
		    assigned_to_id = $7, updated_at = $8
		where id = $1
	`, task.ID, task.Title, task.Description, string(task.Status), string(task.Category), task.OrderIndex,
		nullIfEmpty(task.AssignedToID), task.UpdatedAt)
	if err != nil {
		return translate(err)
	}
	return expectOne(res)
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	if s.db == nil {
		return errNoDatabase
	}
	res, err := s.db.ExecContext(ctx, `delete from tasks where id = $1`, id)
	if err != nil {
		return translate(err)
	}
	return expectOne(res)
}

// ListTasks returns tasks admitted by scope in board order.
func (s *Store) ListTasks(ctx context.Context, scope authz.Scope) ([]*tasks.Task, error) {
	if s.db == nil {
		return nil, errNoDatabase
	}
	where, args, ok := scopeClause(scope, "assigned_to_id", nil)
	if !ok {
		return []*tasks.Task{}, nil
	}
	query := `select ` + taskColumns + ` from tasks`
	if where != "" {
		query += ` where ` + where
	}
	query += ` order by order_index asc, created_at desc`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*tasks.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
