// Package authz decides what a verified principal may see and change.
//
// Resolve computes the visibility scope of a caller for a resource family.
// The scope is derived from the caller's own role and organization; only a
// super admin may narrow it further with an explicit organization filter.
//
// Authorize answers a single (actor, permission, target) question with a
// Decision. It first consults the role-permission table and then, when a
// target is supplied, the mutability rule: the target must live in the
// caller's organization unless the caller is a super admin.
//
// Collapse turns a denied decision about an existing resource into the error a
// caller is allowed to observe. Callers without any reach into the resource's
// organization get ErrNotFound so that existence is not leaked; callers that
// can see the organization but lack the permission get ErrForbidden.
package authz
