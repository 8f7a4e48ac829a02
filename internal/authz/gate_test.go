package authz

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskgate.org/internal/auth"
	"taskgate.org/internal/obs"
)

func TestAuthorize(t *testing.T) {
	cases := []struct {
		name   string
		actor  auth.Principal
		action auth.Permission
		target *Target
		want   Decision
	}{
		{"role only", adminA, auth.PermViewAudit, nil, Decision{Verdict: Allow}},
		{"missing permission", adminA, auth.PermCreateAdmin, InOrganization("org-a"), Decision{Verdict: Deny, Reason: ReasonInsufficientRole}},
		{"role checked before scope", userA, auth.PermUpdateTask, InOrganization("org-b"), Decision{Verdict: Deny, Reason: ReasonInsufficientRole}},
		{"own organization", adminA, auth.PermUpdateTask, InOrganization("org-a"), Decision{Verdict: Allow}},
		{"foreign organization", adminB, auth.PermUpdateTask, InOrganization("org-a"), Decision{Verdict: Deny, Reason: ReasonOutOfScope}},
		{"empty target organization", ownerA, auth.PermManageUsers, InOrganization(""), Decision{Verdict: Deny, Reason: ReasonOutOfScope}},
		{"super admin anywhere", superAdmin, auth.PermDeleteTask, InOrganization("org-z"), Decision{Verdict: Allow}},
		{"super admin platform", superAdmin, auth.PermManageOrg, Platform(), Decision{Verdict: Allow}},
		{"owner platform", ownerA, auth.PermManageOrg, Platform(), Decision{Verdict: Deny, Reason: ReasonOutOfScope}},
		{"owner creates owner", ownerA, auth.PermCreateOwner, InOrganization("org-a"), Decision{Verdict: Deny, Reason: ReasonInsufficientRole}},
		{"unknown role", auth.Principal{OrganizationID: "org-a"}, auth.PermViewTasks, nil, Decision{Verdict: Deny, Reason: ReasonInsufficientRole}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Authorize(tc.actor, tc.action, tc.target))
		})
	}
}

func TestDecisionErr(t *testing.T) {
	assert.NoError(t, Decision{Verdict: Allow}.Err())
	assert.ErrorIs(t, Decision{Verdict: Deny, Reason: ReasonInsufficientRole}.Err(), auth.ErrInsufficientRole)
	assert.ErrorIs(t, Decision{Verdict: Deny, Reason: ReasonOutOfScope}.Err(), auth.ErrOutOfScope)
}

func TestCollapse(t *testing.T) {
	// Admin in org-a lacks create_admin: reach without permission is Forbidden.
	d := Authorize(adminA, auth.PermCreateAdmin, InOrganization("org-a"))
	assert.ErrorIs(t, Collapse(d, adminA, "org-a"), auth.ErrForbidden)

	// Same role gap in a foreign organization must not leak existence.
	d = Authorize(adminB, auth.PermCreateAdmin, InOrganization("org-a"))
	assert.ErrorIs(t, Collapse(d, adminB, "org-a"), auth.ErrNotFound)

	d = Authorize(adminB, auth.PermUpdateTask, InOrganization("org-a"))
	assert.ErrorIs(t, Collapse(d, adminB, "org-a"), auth.ErrNotFound)

	d = Authorize(adminA, auth.PermUpdateTask, InOrganization("org-a"))
	assert.NoError(t, Collapse(d, adminA, "org-a"))

	assert.True(t, HasReach(superAdmin, "org-q"))
	assert.False(t, HasReach(userA, "org-b"))
}

func TestCheckAssignmentForEveryUpdatingRole(t *testing.T) {
	foreign := &auth.Identity{ID: "u-b", Role: auth.RoleUser, OrganizationID: "org-b"}
	local := &auth.Identity{ID: "u-a", Role: auth.RoleUser, OrganizationID: "org-a"}
	platform := &auth.Identity{ID: "sa", Role: auth.RoleSuperAdmin}

	for _, role := range auth.Roles {
		if !auth.Permits(role, auth.PermUpdateTask) {
			continue
		}
		actor := auth.Principal{ID: "actor", Role: role, OrganizationID: "org-a"}
		if role == auth.RoleSuperAdmin {
			actor.OrganizationID = ""
		}
		t.Run(role.String(), func(t *testing.T) {
			require.True(t, Authorize(actor, auth.PermUpdateTask, InOrganization("org-a")).Allowed())
			assert.ErrorIs(t, CheckAssignment("org-a", foreign), auth.ErrCrossOrganizationAssignment)
			assert.ErrorIs(t, CheckAssignment("org-a", platform), auth.ErrCrossOrganizationAssignment)
			assert.NoError(t, CheckAssignment("org-a", local))
			assert.NoError(t, CheckAssignment("org-a", nil))
		})
	}
}

func TestGateCountsDecisions(t *testing.T) {
	obs.Init()
	gate := NewGate(nil)
	counter := func(verdict, reason string) float64 {
		return testutil.ToFloat64(obs.DecisionCounter(string(auth.PermViewAudit), verdict, reason))
	}
	allowedBefore := counter("allow", "none")
	deniedBefore := counter("deny", "insufficient_role")

	assert.True(t, gate.Authorize(context.Background(), adminA, auth.PermViewAudit, nil).Allowed())
	assert.False(t, gate.Authorize(context.Background(), userA, auth.PermViewAudit, nil).Allowed())

	assert.Equal(t, allowedBefore+1, counter("allow", "none"))
	assert.Equal(t, deniedBefore+1, counter("deny", "insufficient_role"))
}
