// Package memory is an in-process store used by tests and by the API server
// when no database DSN is configured. It enforces the same uniqueness and
// reference constraints as the PostgreSQL schema.
package memory

import (
	"context"
	"sort"
	"sync"

	"taskgate.org/internal/audit"
	"taskgate.org/internal/auth"
	"taskgate.org/internal/authz"
	"taskgate.org/internal/tasks"
)

// Store keeps every record in maps guarded by one mutex. Returned values are copies.
type Store struct {
	mu         sync.RWMutex
	orgs       map[string]*auth.Organization
	orgNames   map[string]string
	identities map[string]*auth.Identity
	emails     map[string]string
	tasks      map[string]*tasks.Task
	entries    []*audit.Entry
}

// New returns an empty store.
func New() *Store {
	return &Store{
		orgs:       make(map[string]*auth.Organization),
		orgNames:   make(map[string]string),
		identities: make(map[string]*auth.Identity),
		emails:     make(map[string]string),
		tasks:      make(map[string]*tasks.Task),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) CreateOrganization(_ context.Context, org *auth.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.orgNames[org.Name]; taken {
		return auth.ErrOrganizationNameTaken
	}
	if org.ParentOrganizationID != "" {
		if _, ok := s.orgs[org.ParentOrganizationID]; !ok {
			return auth.ErrOrganizationNotFound
		}
	}
	cp := *org
	s.orgs[org.ID] = &cp
	s.orgNames[org.Name] = org.ID
	return nil
}

func (s *Store) FindOrganizationByID(_ context.Context, id string) (*auth.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.orgs[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *org
	return &cp, nil
}

func (s *Store) FindOrganizationByName(_ context.Context, name string) (*auth.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.orgNames[name]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *s.orgs[id]
	return &cp, nil
}

// ListOrganizations returns every organization ordered by name.
func (s *Store) ListOrganizations(context.Context) ([]*auth.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*auth.Organization, 0, len(s.orgs))
	for _, org := range s.orgs {
		cp := *org
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) FindIdentityByEmail(_ context.Context, email string) (*auth.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[auth.NormalizeEmail(email)]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *s.identities[id]
	return &cp, nil
}

func (s *Store) FindIdentityByID(_ context.Context, id string) (*auth.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.identities[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *identity
	return &cp, nil
}

func (s *Store) CreateIdentity(_ context.Context, identity *auth.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := auth.NormalizeEmail(identity.Email)
	if _, taken := s.emails[email]; taken {
		return auth.ErrEmailAlreadyExists
	}
	if identity.OrganizationID != "" {
		if _, ok := s.orgs[identity.OrganizationID]; !ok {
			return auth.ErrOrganizationNotFound
		}
	}
	cp := *identity
	cp.Email = email
	s.identities[identity.ID] = &cp
	s.emails[email] = identity.ID
	return nil
}

func (s *Store) UpdatePassword(_ context.Context, id, passwordHash string, requiresChange bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.identities[id]
	if !ok {
		return auth.ErrNotFound
	}
	identity.PasswordHash = passwordHash
	identity.RequiresPasswordChange = requiresChange
	return nil
}

// ListIdentities returns matching identities, oldest first.
func (s *Store) ListIdentities(_ context.Context, filter auth.IdentityFilter) ([]*auth.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*auth.Identity, 0)
	for _, identity := range s.identities {
		if filter.OrganizationID != "" && identity.OrganizationID != filter.OrganizationID {
			continue
		}
		if len(filter.Roles) > 0 && !hasRole(filter.Roles, identity.Role) {
			continue
		}
		cp := *identity
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func hasRole(roles []auth.Role, role auth.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func (s *Store) CreateTask(_ context.Context, task *tasks.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkTaskRefs(task); err != nil {
		return err
	}
	cp := *task
	s.tasks[task.ID] = &cp
	return nil
}

func (s *Store) FindTaskByID(_ context.Context, id string) (*tasks.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *task
	return &cp, nil
}

func (s *Store) UpdateTask(_ context.Context, task *tasks.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[task.ID]; !ok {
		return auth.ErrNotFound
	}
	if err := s.checkTaskRefs(task); err != nil {
		return err
	}
	cp := *task
	s.tasks[task.ID] = &cp
	return nil
}

func (s *Store) DeleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return auth.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

// ListTasks returns tasks admitted by scope in board order.
func (s *Store) ListTasks(_ context.Context, scope authz.Scope) ([]*tasks.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*tasks.Task, 0)
	for _, task := range s.tasks {
		if !scope.AdmitsTask(task.OrganizationID, task.AssignedToID) {
			continue
		}
		cp := *task
		out = append(out, &cp)
	}
	tasks.Sort(out)
	return out, nil
}

func (s *Store) checkTaskRefs(task *tasks.Task) error {
	if _, ok := s.orgs[task.OrganizationID]; !ok {
		return auth.ErrOrganizationNotFound
	}
	if task.AssignedToID != "" {
		if _, ok := s.identities[task.AssignedToID]; !ok {
			return auth.ErrNotFound
		}
	}
	return nil
}

func (s *Store) AppendAuditEntry(_ context.Context, entry *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	if entry.Metadata != nil {
		cp.Metadata = make(map[string]string, len(entry.Metadata))
		for k, v := range entry.Metadata {
			cp.Metadata[k] = v
		}
	}
	s.entries = append(s.entries, &cp)
	return nil
}

// ListAudit returns one page of entries newest first and the number of matches.
func (s *Store) ListAudit(_ context.Context, q audit.Query) ([]*audit.Entry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]*audit.Entry, 0)
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if !q.Scope.AdmitsOrganization(e.OrganizationID) {
			continue
		}
		if q.EntityType != "" && e.EntityType != q.EntityType {
			continue
		}
		if q.Action != "" && e.Action != q.Action {
			continue
		}
		cp := *e
		matched = append(matched, &cp)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := len(matched)
	if q.Offset >= total {
		return []*audit.Entry{}, total, nil
	}
	end := total
	if q.Limit > 0 && q.Offset+q.Limit < end {
		end = q.Offset + q.Limit
	}
	return matched[q.Offset:end], total, nil
}
