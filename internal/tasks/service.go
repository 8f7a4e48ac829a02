package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"taskgate.org/internal/audit"
	"taskgate.org/internal/auth"
	"taskgate.org/internal/authz"
	"taskgate.org/internal/ids"
)

// CreateInput describes a new task. OrganizationID defaults to the caller's
// organization and is required for super admins.
type CreateInput struct {
	Title          string
	Description    string
	Status         Status
	Category       Category
	OrderIndex     int
	OrganizationID string
	AssignedToID   string
}

// UpdateInput carries a partial update. Nil fields are left unchanged; an
// empty AssignedToID clears the assignment.
type UpdateInput struct {
	Title        *string
	Description  *string
	Status       *Status
	Category     *Category
	OrderIndex   *int
	AssignedToID *string
}

// Service implements scoped task operations.
type Service struct {
	store      Store
	identities IdentityFinder
	gate       *authz.Gate
	recorder   *audit.Recorder
	logger     *slog.Logger
	now        func() time.Time
}

// NewService wires the task service. recorder may be nil.
func NewService(store Store, identities IdentityFinder, gate *authz.Gate, recorder *audit.Recorder, logger *slog.Logger) *Service {
	if gate == nil {
		gate = authz.NewGate(logger)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      store,
		identities: identities,
		gate:       gate,
		recorder:   recorder,
		logger:     logger,
		now:        time.Now,
	}
}

// List returns the tasks visible to actor. orgFilter narrows super admin listings.
func (s *Service) List(ctx context.Context, actor auth.Principal, orgFilter string) ([]*Task, error) {
	if err := s.gate.Authorize(ctx, actor, auth.PermViewTasks, nil).Err(); err != nil {
		return nil, err
	}
	scope := authz.Resolve(actor, authz.Tasks, orgFilter)
	if scope.Empty() {
		return []*Task{}, nil
	}
	list, err := s.store.ListTasks(ctx, scope)
	if err != nil {
		return nil, err
	}
	// Stores filter by scope; re-checking keeps a faulty adapter from widening it.
	out := make([]*Task, 0, len(list))
	for _, t := range list {
		if scope.AdmitsTask(t.OrganizationID, t.AssignedToID) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Get returns one task or auth.ErrNotFound when actor cannot see it.
func (s *Service) Get(ctx context.Context, actor auth.Principal, id string) (*Task, error) {
	if err := s.gate.Authorize(ctx, actor, auth.PermViewTasks, nil).Err(); err != nil {
		return nil, err
	}
	return s.visible(ctx, actor, id)
}

// Create stores a new task in the caller's organization.
func (s *Service) Create(ctx context.Context, actor auth.Principal, in CreateInput) (*Task, error) {
	orgID := strings.TrimSpace(in.OrganizationID)
	if orgID == "" {
		orgID = actor.OrganizationID
	}
	if err := s.gate.Authorize(ctx, actor, auth.PermCreateTask, authz.InOrganization(orgID)).Err(); err != nil {
		return nil, err
	}
	if orgID == "" {
		return nil, fmt.Errorf("%w: organizationId is required", auth.ErrInvalidInput)
	}
	if in.Status == "" {
		in.Status = StatusPending
	}
	if in.Category == "" {
		in.Category = CategoryWork
	}
	now := s.now().UTC()
	task := &Task{
		ID:             ids.New(),
		Title:          strings.TrimSpace(in.Title),
		Description:    strings.TrimSpace(in.Description),
		Status:         in.Status,
		Category:       in.Category,
		OrderIndex:     in.OrderIndex,
		OrganizationID: orgID,
		CreatedByID:    actor.ID,
		AssignedToID:   strings.TrimSpace(in.AssignedToID),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := validate(task); err != nil {
		return nil, err
	}
	if err := s.checkAssignee(ctx, task); err != nil {
		return nil, err
	}
	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	s.recorder.Record(ctx, actor, audit.Entry{
		OrganizationID: task.OrganizationID,
		Action:         audit.ActionTaskCreated,
		EntityType:     audit.EntityTask,
		EntityID:       task.ID,
		Metadata:       map[string]string{"title": task.Title},
	})
	return task, nil
}

// Update applies in to a task the caller can see and is allowed to change.
func (s *Service) Update(ctx context.Context, actor auth.Principal, id string, in UpdateInput) (*Task, error) {
	task, err := s.mutable(ctx, actor, id, auth.PermUpdateTask)
	if err != nil {
		return nil, err
	}
	changed := apply(task, in)
	if err := validate(task); err != nil {
		return nil, err
	}
	if in.AssignedToID != nil {
		if err := s.checkAssignee(ctx, task); err != nil {
			return nil, err
		}
	}
	task.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateTask(ctx, task); err != nil {
		return nil, err
	}
	s.recorder.Record(ctx, actor, audit.Entry{
		OrganizationID: task.OrganizationID,
		Action:         audit.ActionTaskUpdated,
		EntityType:     audit.EntityTask,
		EntityID:       task.ID,
		Metadata:       map[string]string{"fields": strings.Join(changed, ",")},
	})
	return task, nil
}

// Delete removes a task the caller can see and is allowed to delete.
func (s *Service) Delete(ctx context.Context, actor auth.Principal, id string) error {
	task, err := s.mutable(ctx, actor, id, auth.PermDeleteTask)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTask(ctx, task.ID); err != nil {
		return err
	}
	s.recorder.Record(ctx, actor, audit.Entry{
		OrganizationID: task.OrganizationID,
		Action:         audit.ActionTaskDeleted,
		EntityType:     audit.EntityTask,
		EntityID:       task.ID,
		Metadata:       map[string]string{"title": task.Title},
	})
	return nil
}

func (s *Service) visible(ctx context.Context, actor auth.Principal, id string) (*Task, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, auth.ErrNotFound
	}
	task, err := s.store.FindTaskByID(ctx, id)
	if err != nil {
		return nil, err
	}
	scope := authz.Resolve(actor, authz.Tasks, "")
	if !scope.AdmitsTask(task.OrganizationID, task.AssignedToID) {
		return nil, auth.ErrNotFound
	}
	return task, nil
}

func (s *Service) mutable(ctx context.Context, actor auth.Principal, id string, perm auth.Permission) (*Task, error) {
	task, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	d := s.gate.Authorize(ctx, actor, perm, authz.InOrganization(task.OrganizationID))
	if err := authz.Collapse(d, actor, task.OrganizationID); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *Service) checkAssignee(ctx context.Context, task *Task) error {
	if task.AssignedToID == "" {
		return nil
	}
	assignee, err := s.identities.FindIdentityByID(ctx, task.AssignedToID)
	if errors.Is(err, auth.ErrNotFound) {
		return fmt.Errorf("%w: assignee %s does not exist", auth.ErrInvalidInput, task.AssignedToID)
	}
	if err != nil {
		return err
	}
	return authz.CheckAssignment(task.OrganizationID, assignee)
}

func apply(task *Task, in UpdateInput) []string {
	var changed []string
	if in.Title != nil {
		task.Title = strings.TrimSpace(*in.Title)
		changed = append(changed, "title")
	}
	if in.Description != nil {
		task.Description = strings.TrimSpace(*in.Description)
		changed = append(changed, "description")
	}
	if in.Status != nil {
		task.Status = *in.Status
		changed = append(changed, "status")
	}
	if in.Category != nil {
		task.Category = *in.Category
		changed = append(changed, "category")
	}
	if in.OrderIndex != nil {
		task.OrderIndex = *in.OrderIndex
		changed = append(changed, "orderIndex")
	}
	if in.AssignedToID != nil {
		task.AssignedToID = strings.TrimSpace(*in.AssignedToID)
		changed = append(changed, "assignedToId")
	}
	sort.Strings(changed)
	return changed
}

func validate(task *Task) error {
	if task.Title == "" {
		return fmt.Errorf("%w: title is required", auth.ErrInvalidInput)
	}
	if utf8.RuneCountInString(task.Title) > MaxTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters", auth.ErrInvalidInput, MaxTitleLength)
	}
	if utf8.RuneCountInString(task.Description) > MaxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", auth.ErrInvalidInput, MaxDescriptionLength)
	}
	if !task.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", auth.ErrInvalidInput, task.Status)
	}
	if !task.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", auth.ErrInvalidInput, task.Category)
	}
	if task.OrderIndex < 0 {
		return fmt.Errorf("%w: orderIndex must not be negative", auth.ErrInvalidInput)
	}
	return nil
}

// Sort orders tasks by OrderIndex ascending, newest first within an index.
func Sort(list []*Task) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].OrderIndex != list[j].OrderIndex {
			return list[i].OrderIndex < list[j].OrderIndex
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}
