package auth

import "context"

// IdentityStore persists identities. Lookups return ErrNotFound when absent.
// CreateIdentity reports ErrEmailAlreadyExists on a duplicate email and
// ErrOrganizationNotFound when the organization reference does not resolve.
type IdentityStore interface {
	FindIdentityByEmail(ctx context.Context, email string) (*Identity, error)
	FindIdentityByID(ctx context.Context, id string) (*Identity, error)
	CreateIdentity(ctx context.Context, identity *Identity) error
	UpdatePassword(ctx context.Context, id, passwordHash string, requiresChange bool) error
	ListIdentities(ctx context.Context, filter IdentityFilter) ([]*Identity, error)
}

// OrganizationStore persists organizations. CreateOrganization reports
// ErrOrganizationNameTaken on a duplicate name.
type OrganizationStore interface {
	CreateOrganization(ctx context.Context, org *Organization) error
	FindOrganizationByID(ctx context.Context, id string) (*Organization, error)
	FindOrganizationByName(ctx context.Context, name string) (*Organization, error)
	ListOrganizations(ctx context.Context) ([]*Organization, error)
}

// Store is the persistence surface required by the auth service.
type Store interface {
	IdentityStore
	OrganizationStore
}
