package authz

import (
	"strings"

	"taskgate.org/internal/auth"
)

// Family names a group of tenant-scoped resources.
type Family int

const (
	Organizations Family = iota + 1
	Users
	Tasks
	Audit
)

func (f Family) String() string {
	switch f {
	case Organizations:
		return "organizations"
	case Users:
		return "users"
	case Tasks:
		return "tasks"
	case Audit:
		return "audit"
	default:
		return "unknown"
	}
}

// Scope is a visibility predicate. A zero Scope admits nothing.
type Scope struct {
	// All admits every organization.
	All bool
	// OrganizationIDs admits records in any of the listed organizations.
	OrganizationIDs []string
	// AssigneeID admits only tasks assigned to this identity.
	AssigneeID string
}

// Empty reports whether the scope admits no records at all.
func (s Scope) Empty() bool {
	return !s.All && len(s.OrganizationIDs) == 0 && s.AssigneeID == ""
}

// AdmitsOrganization reports whether records of orgID are visible.
// Assignee-restricted scopes never admit whole organizations.
func (s Scope) AdmitsOrganization(orgID string) bool {
	if s.AssigneeID != "" {
		return false
	}
	if s.All {
		return true
	}
	for _, id := range s.OrganizationIDs {
		if id == orgID {
			return true
		}
	}
	return false
}

// AdmitsTask reports whether a task in orgID assigned to assigneeID is visible.
func (s Scope) AdmitsTask(orgID, assigneeID string) bool {
	if s.AssigneeID != "" {
		return assigneeID != "" && assigneeID == s.AssigneeID
	}
	return s.AdmitsOrganization(orgID)
}

// Resolve computes the scope of actor over family. orgFilter is honoured only
// for super admins; other callers are always pinned to their own organization.
func Resolve(actor auth.Principal, family Family, orgFilter string) Scope {
	orgFilter = strings.TrimSpace(orgFilter)
	switch actor.Role {
	case auth.RoleSuperAdmin:
		if orgFilter != "" {
			return Scope{OrganizationIDs: []string{orgFilter}}
		}
		return Scope{All: true}
	case auth.RoleOwner, auth.RoleAdmin:
		if actor.OrganizationID == "" {
			return Scope{}
		}
		return Scope{OrganizationIDs: []string{actor.OrganizationID}}
	case auth.RoleUser:
		if family == Tasks && actor.ID != "" {
			return Scope{AssigneeID: actor.ID}
		}
		return Scope{}
	default:
		return Scope{}
	}
}
