package tasks_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskgate.org/internal/audit"
	"taskgate.org/internal/auth"
	"taskgate.org/internal/authz"
	"taskgate.org/internal/store/memory"
	"taskgate.org/internal/tasks"
)

type fixture struct {
	store  *memory.Store
	svc    *tasks.Service
	sa     auth.Principal
	ownerA auth.Principal
	adminA auth.Principal
	userA  auth.Principal
	userA2 auth.Principal
	adminB auth.Principal
	userB  auth.Principal
	ctx    context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	for _, org := range []*auth.Organization{{ID: "org-a", Name: "Acme"}, {ID: "org-b", Name: "Beta"}, {ID: "org-c", Name: "Gamma"}} {
		require.NoError(t, store.CreateOrganization(ctx, org))
	}
	add := func(id string, role auth.Role, org string) auth.Principal {
		identity := &auth.Identity{ID: id, Email: id + "@example.com", Name: id, Role: role, OrganizationID: org}
		require.NoError(t, store.CreateIdentity(ctx, identity))
		return identity.Principal()
	}
	gate := authz.NewGate(nil)
	f := &fixture{
		store:  store,
		svc:    tasks.NewService(store, store, gate, audit.NewRecorder(store, nil), nil),
		sa:     add("sa", auth.RoleSuperAdmin, ""),
		ownerA: add("owner-a", auth.RoleOwner, "org-a"),
		adminA: add("admin-a", auth.RoleAdmin, "org-a"),
		userA:  add("user-a", auth.RoleUser, "org-a"),
		userA2: add("user-a2", auth.RoleUser, "org-a"),
		adminB: add("admin-b", auth.RoleAdmin, "org-b"),
		userB:  add("user-b", auth.RoleUser, "org-b"),
		ctx:    ctx,
	}
	return f
}

func (f *fixture) create(t *testing.T, actor auth.Principal, title, assignee string) *tasks.Task {
	t.Helper()
	task, err := f.svc.Create(f.ctx, actor, tasks.CreateInput{Title: title, AssignedToID: assignee})
	require.NoError(t, err)
	return task
}

func ptr[T any](v T) *T { return &v }

func TestCreateDefaultsAndAudit(t *testing.T) {
	f := newFixture(t)
	task := f.create(t, f.adminA, "  write report ", f.userA.ID)

	assert.Equal(t, "write report", task.Title)
	assert.Equal(t, tasks.StatusPending, task.Status)
	assert.Equal(t, tasks.CategoryWork, task.Category)
	assert.Equal(t, "org-a", task.OrganizationID)
	assert.Equal(t, f.adminA.ID, task.CreatedByID)
	assert.NotEmpty(t, task.ID)

	entries, total, err := f.store.ListAudit(f.ctx, audit.Query{Scope: authz.Scope{All: true}, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, audit.ActionTaskCreated, entries[0].Action)
	assert.Equal(t, task.ID, entries[0].EntityID)
	assert.Equal(t, f.adminA.ID, entries[0].UserID)
}

func TestCreateOrganizationResolution(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(f.ctx, f.userA, tasks.CreateInput{Title: "x"})
	assert.ErrorIs(t, err, auth.ErrInsufficientRole)

	_, err = f.svc.Create(f.ctx, f.adminA, tasks.CreateInput{Title: "x", OrganizationID: "org-b"})
	assert.ErrorIs(t, err, auth.ErrOutOfScope)

	_, err = f.svc.Create(f.ctx, f.sa, tasks.CreateInput{Title: "x"})
	assert.ErrorIs(t, err, auth.ErrInvalidInput)

	task, err := f.svc.Create(f.ctx, f.sa, tasks.CreateInput{Title: "x", OrganizationID: "org-b"})
	require.NoError(t, err)
	assert.Equal(t, "org-b", task.OrganizationID)

	_, err = f.svc.Create(f.ctx, f.sa, tasks.CreateInput{Title: "x", OrganizationID: "org-missing"})
	assert.ErrorIs(t, err, auth.ErrOrganizationNotFound)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	cases := []tasks.CreateInput{
		{Title: "   "},
		{Title: string(make([]rune, tasks.MaxTitleLength+1))},
		{Title: "ok", Status: "archived"},
		{Title: "ok", Category: "hobby"},
		{Title: "ok", OrderIndex: -1},
		{Title: "ok", AssignedToID: "ghost"},
	}
	for _, in := range cases {
		_, err := f.svc.Create(f.ctx, f.adminA, in)
		assert.ErrorIs(t, err, auth.ErrInvalidInput, "%+v", in)
	}
}

func TestUserSeesOnlyAssignedTasks(t *testing.T) {
	f := newFixture(t)
	mine := f.create(t, f.adminA, "mine", f.userA.ID)
	f.create(t, f.adminA, "colleague", f.userA2.ID)
	f.create(t, f.adminA, "unassigned", "")
	f.create(t, f.adminB, "foreign", f.userB.ID)

	list, err := f.svc.List(f.ctx, f.userA, "org-b")
	require.NoError(t, err)
	require.Len(t, list, 1)
	for _, task := range list {
		assert.Equal(t, f.userA.ID, task.AssignedToID)
	}
	assert.Equal(t, mine.ID, list[0].ID)
}

func TestAdminNeverSeesForeignTasks(t *testing.T) {
	f := newFixture(t)
	f.create(t, f.adminA, "a1", "")
	f.create(t, f.ownerA, "a2", f.userA.ID)
	foreign := f.create(t, f.adminB, "b1", "")

	list, err := f.svc.List(f.ctx, f.adminA, "org-b")
	require.NoError(t, err)
	assert.Len(t, list, 2)
	for _, task := range list {
		assert.Equal(t, "org-a", task.OrganizationID)
	}

	_, err = f.svc.Get(f.ctx, f.adminA, foreign.ID)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestSuperAdminSeesEveryOrganization(t *testing.T) {
	f := newFixture(t)
	f.create(t, f.adminA, "a", "")
	f.create(t, f.adminB, "b", "")
	_, err := f.svc.Create(f.ctx, f.sa, tasks.CreateInput{Title: "c", OrganizationID: "org-c"})
	require.NoError(t, err)

	list, err := f.svc.List(f.ctx, f.sa, "")
	require.NoError(t, err)
	orgs := map[string]bool{}
	for _, task := range list {
		orgs[task.OrganizationID] = true
	}
	assert.Equal(t, map[string]bool{"org-a": true, "org-b": true, "org-c": true}, orgs)

	filtered, err := f.svc.List(f.ctx, f.sa, "org-b")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "org-b", filtered[0].OrganizationID)
}

func TestListOrder(t *testing.T) {
	f := newFixture(t)
	clock := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, in := range []tasks.CreateInput{
		{Title: "late", OrderIndex: 2},
		{Title: "first-old", OrderIndex: 0},
		{Title: "first-new", OrderIndex: 0},
	} {
		task, err := f.svc.Create(f.ctx, f.adminA, in)
		require.NoError(t, err)
		task.CreatedAt = clock.Add(time.Duration(i) * time.Minute)
		require.NoError(t, f.store.UpdateTask(f.ctx, task))
	}
	list, err := f.svc.List(f.ctx, f.ownerA, "")
	require.NoError(t, err)
	var titles []string
	for _, task := range list {
		titles = append(titles, task.Title)
	}
	assert.Equal(t, []string{"first-new", "first-old", "late"}, titles)
}

func TestUpdateAndDeletePermissions(t *testing.T) {
	f := newFixture(t)
	task := f.create(t, f.adminA, "shared", f.userA.ID)

	// Visible to the assignee, but users cannot modify.
	_, err := f.svc.Update(f.ctx, f.userA, task.ID, tasks.UpdateInput{Title: ptr("mine now")})
	assert.ErrorIs(t, err, auth.ErrForbidden)
	assert.ErrorIs(t, f.svc.Delete(f.ctx, f.userA, task.ID), auth.ErrForbidden)

	// Invisible to another organization: indistinguishable from missing.
	_, err = f.svc.Update(f.ctx, f.adminB, task.ID, tasks.UpdateInput{Title: ptr("hijack")})
	assert.ErrorIs(t, err, auth.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(f.ctx, f.adminB, task.ID), auth.ErrNotFound)
	_, err = f.svc.Get(f.ctx, f.userA2, task.ID)
	assert.ErrorIs(t, err, auth.ErrNotFound)

	updated, err := f.svc.Update(f.ctx, f.ownerA, task.ID, tasks.UpdateInput{
		Status:       ptr(tasks.StatusInProgress),
		AssignedToID: ptr(""),
	})
	require.NoError(t, err)
	assert.Equal(t, tasks.StatusInProgress, updated.Status)
	assert.Empty(t, updated.AssignedToID)

	_, err = f.svc.Update(f.ctx, f.ownerA, task.ID, tasks.UpdateInput{Status: ptr(tasks.Status("done"))})
	assert.ErrorIs(t, err, auth.ErrInvalidInput)

	require.NoError(t, f.svc.Delete(f.ctx, f.sa, task.ID))
	_, err = f.svc.Get(f.ctx, f.sa, task.ID)
	assert.ErrorIs(t, err, auth.ErrNotFound)

	entries, _, err := f.store.ListAudit(f.ctx, audit.Query{Scope: authz.Scope{All: true}, Limit: 10})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, audit.ActionTaskDeleted, entries[0].Action)
	assert.Equal(t, audit.ActionTaskUpdated, entries[1].Action)
	assert.Equal(t, "assignedToId,status", entries[1].Metadata["fields"])
}

func TestCrossOrganizationAssignmentForEveryUpdatingRole(t *testing.T) {
	f := newFixture(t)
	actors := map[auth.Role]auth.Principal{
		auth.RoleSuperAdmin: f.sa,
		auth.RoleOwner:      f.ownerA,
		auth.RoleAdmin:      f.adminA,
	}
	for _, role := range auth.Roles {
		if !auth.Permits(role, auth.PermUpdateTask) {
			continue
		}
		actor, ok := actors[role]
		require.True(t, ok, "no fixture for %s", role)
		t.Run(role.String(), func(t *testing.T) {
			task := f.create(t, f.adminA, "assign me", "")

			_, err := f.svc.Update(f.ctx, actor, task.ID, tasks.UpdateInput{AssignedToID: ptr(f.userB.ID)})
			assert.ErrorIs(t, err, auth.ErrCrossOrganizationAssignment)

			_, err = f.svc.Update(f.ctx, actor, task.ID, tasks.UpdateInput{AssignedToID: ptr(f.sa.ID)})
			assert.ErrorIs(t, err, auth.ErrCrossOrganizationAssignment)

			stored, err := f.store.FindTaskByID(f.ctx, task.ID)
			require.NoError(t, err)
			assert.Empty(t, stored.AssignedToID)

			_, err = f.svc.Create(f.ctx, actor, tasks.CreateInput{Title: "x", OrganizationID: "org-a", AssignedToID: f.userB.ID})
			assert.ErrorIs(t, err, auth.ErrCrossOrganizationAssignment)

			updated, err := f.svc.Update(f.ctx, actor, task.ID, tasks.UpdateInput{AssignedToID: ptr(f.userA.ID)})
			require.NoError(t, err)
			assert.Equal(t, f.userA.ID, updated.AssignedToID)
		})
	}
}

func TestUnknownRoleSeesNothing(t *testing.T) {
	f := newFixture(t)
	f.create(t, f.adminA, "a", "")
	_, err := f.svc.List(f.ctx, auth.Principal{ID: "ghost", OrganizationID: "org-a"}, "")
	assert.ErrorIs(t, err, auth.ErrInsufficientRole)
}
