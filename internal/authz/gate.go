package authz

import (
	"context"
	"log/slog"

	"taskgate.org/internal/auth"
	"taskgate.org/internal/obs"
)

// Verdict is the outcome of an authorization decision.
type Verdict int

const (
	Deny Verdict = iota
	Allow
)

// Reason explains a denial.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonInsufficientRole
	ReasonOutOfScope
)

func (r Reason) String() string {
	switch r {
	case ReasonInsufficientRole:
		return "insufficient_role"
	case ReasonOutOfScope:
		return "out_of_scope"
	default:
		return "none"
	}
}

// Decision is either Allow or Deny with a reason.
type Decision struct {
	Verdict Verdict
	Reason  Reason
}

// Allowed reports whether the decision permits the action.
func (d Decision) Allowed() bool { return d.Verdict == Allow }

// Err returns nil for Allow, otherwise the error kind matching the reason.
func (d Decision) Err() error {
	if d.Allowed() {
		return nil
	}
	if d.Reason == ReasonOutOfScope {
		return auth.ErrOutOfScope
	}
	return auth.ErrInsufficientRole
}

func allow() Decision              { return Decision{Verdict: Allow} }
func deny(reason Reason) Decision { return Decision{Verdict: Deny, Reason: reason} }

// Target is the resource an action applies to.
type Target struct {
	OrganizationID string
	platform       bool
}

// InOrganization targets a resource owned by orgID. For creations pass the
// organization the new resource will belong to.
func InOrganization(orgID string) *Target {
	return &Target{OrganizationID: orgID}
}

// Platform targets platform-wide state that no single organization owns.
func Platform() *Target {
	return &Target{platform: true}
}

// Authorize decides whether actor may perform action on target. A nil target
// checks the role-permission table only.
func Authorize(actor auth.Principal, action auth.Permission, target *Target) Decision {
	if !auth.Permits(actor.Role, action) {
		return deny(ReasonInsufficientRole)
	}
	if target == nil || actor.IsSuperAdmin() {
		return allow()
	}
	if target.platform || !actor.InOrganization(target.OrganizationID) {
		return deny(ReasonOutOfScope)
	}
	return allow()
}

// HasReach reports whether actor can see anything in orgID at all.
func HasReach(actor auth.Principal, orgID string) bool {
	return actor.IsSuperAdmin() || actor.InOrganization(orgID)
}

// Collapse maps a decision about an existing resource in orgID to the error
// the caller may observe.
func Collapse(d Decision, actor auth.Principal, orgID string) error {
	if d.Allowed() {
		return nil
	}
	if d.Reason == ReasonInsufficientRole && HasReach(actor, orgID) {
		return auth.ErrForbidden
	}
	return auth.ErrNotFound
}

// Gate is Authorize with decision metrics and debug logging of denials.
type Gate struct {
	logger *slog.Logger
}

// NewGate returns a gate logging to logger (slog.Default when nil).
func NewGate(logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{logger: logger}
}

// Authorize evaluates and records a decision.
func (g *Gate) Authorize(ctx context.Context, actor auth.Principal, action auth.Permission, target *Target) Decision {
	d := Authorize(actor, action, target)
	verdict := "allow"
	if !d.Allowed() {
		verdict = "deny"
		g.logger.DebugContext(ctx, "authorization denied",
			slog.String("user_id", actor.ID),
			slog.String("role", actor.Role.String()),
			slog.String("permission", string(action)),
			slog.String("reason", d.Reason.String()))
	}
	obs.ObserveDecision(string(action), verdict, d.Reason.String())
	return d
}

// CheckAssignment enforces that a task assignee belongs to the task's
// organization. It applies to every caller, super admins included.
func CheckAssignment(taskOrgID string, assignee *auth.Identity) error {
	if assignee == nil {
		return nil
	}
	if assignee.OrganizationID == "" || assignee.OrganizationID != taskOrgID {
		return auth.ErrCrossOrganizationAssignment
	}
	return nil
}
