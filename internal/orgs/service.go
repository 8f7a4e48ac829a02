// Package orgs implements organization management and the user listings that
// hang off an organization: provisioning owners and admins, and the scoped
// views of who belongs where.
package orgs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"taskgate.org/internal/audit"
	"taskgate.org/internal/auth"
	"taskgate.org/internal/authz"
	"taskgate.org/internal/ids"
)

const MaxNameLength = 255

// Provisioner creates accounts with temporary passwords.
type Provisioner interface {
	Provision(ctx context.Context, req auth.ProvisionRequest) (auth.ProvisionedCredentials, *auth.Identity, error)
}

// CreateInput describes a new organization.
type CreateInput struct {
	Name                 string
	ParentOrganizationID string
}

// AccountInput names the account to provision.
type AccountInput struct {
	Email string
	Name  string
}

// Service implements organization operations.
type Service struct {
	store       auth.Store
	provisioner Provisioner
	gate        *authz.Gate
	recorder    *audit.Recorder
	logger      *slog.Logger
	now         func() time.Time
}

// NewService wires the organization service. recorder may be nil.
func NewService(store auth.Store, provisioner Provisioner, gate *authz.Gate, recorder *audit.Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if gate == nil {
		gate = authz.NewGate(logger)
	}
	return &Service{
		store:       store,
		provisioner: provisioner,
		gate:        gate,
		recorder:    recorder,
		logger:      logger,
		now:         time.Now,
	}
}

// PublicList returns id and name of every organization for signup forms.
func (s *Service) PublicList(ctx context.Context) ([]auth.OrganizationSummary, error) {
	list, err := s.store.ListOrganizations(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]auth.OrganizationSummary, 0, len(list))
	for _, org := range list {
		out = append(out, auth.OrganizationSummary{ID: org.ID, Name: org.Name})
	}
	return out, nil
}

// List returns every organization. Platform operation.
func (s *Service) List(ctx context.Context, actor auth.Principal) ([]*auth.Organization, error) {
	if err := s.gate.Authorize(ctx, actor, auth.PermManageOrg, authz.Platform()).Err(); err != nil {
		return nil, err
	}
	return s.store.ListOrganizations(ctx)
}

// Create adds an organization. Names are trimmed and globally unique.
func (s *Service) Create(ctx context.Context, actor auth.Principal, in CreateInput) (*auth.Organization, error) {
	if err := s.gate.Authorize(ctx, actor, auth.PermManageOrg, authz.Platform()).Err(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", auth.ErrInvalidInput)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return nil, fmt.Errorf("%w: name exceeds %d characters", auth.ErrInvalidInput, MaxNameLength)
	}
	switch _, err := s.store.FindOrganizationByName(ctx, name); {
	case err == nil:
		return nil, auth.ErrOrganizationNameTaken
	case !errors.Is(err, auth.ErrNotFound):
		return nil, err
	}
	parent := strings.TrimSpace(in.ParentOrganizationID)
	if parent != "" {
		p, err := s.store.FindOrganizationByID(ctx, parent)
		if errors.Is(err, auth.ErrNotFound) {
			return nil, auth.ErrOrganizationNotFound
		}
		if err != nil {
			return nil, err
		}
		if p.ParentOrganizationID != "" {
			return nil, fmt.Errorf("%w: organizations nest one level deep", auth.ErrInvalidInput)
		}
	}
	now := s.now().UTC()
	org := &auth.Organization{
		ID:                   ids.New(),
		Name:                 name,
		ParentOrganizationID: parent,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.store.CreateOrganization(ctx, org); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "organization created",
		slog.String("organization_id", org.ID),
		slog.String("created_by", actor.ID))
	s.recorder.Record(ctx, actor, audit.Entry{
		OrganizationID: org.ID,
		Action:         audit.ActionOrganizationCreated,
		EntityType:     audit.EntityOrganization,
		EntityID:       org.ID,
		Metadata:       map[string]string{"name": org.Name},
	})
	return org, nil
}

// Get returns an organization within actor's reach.
func (s *Service) Get(ctx context.Context, actor auth.Principal, id string) (*auth.Organization, error) {
	id = strings.TrimSpace(id)
	if !authz.Resolve(actor, authz.Organizations, "").AdmitsOrganization(id) {
		return nil, auth.ErrNotFound
	}
	return s.store.FindOrganizationByID(ctx, id)
}

// CreateOwner provisions an owner for organization orgID.
func (s *Service) CreateOwner(ctx context.Context, actor auth.Principal, orgID string, in AccountInput) (auth.ProvisionedCredentials, error) {
	orgID = strings.TrimSpace(orgID)
	d := s.gate.Authorize(ctx, actor, auth.PermCreateOwner, authz.InOrganization(orgID))
	if err := authz.Collapse(d, actor, orgID); err != nil {
		return auth.ProvisionedCredentials{}, err
	}
	return s.provision(ctx, actor, auth.RoleOwner, orgID, in, audit.ActionOwnerCreated)
}

// CreateAdmin provisions an admin in the caller's own organization.
func (s *Service) CreateAdmin(ctx context.Context, actor auth.Principal, in AccountInput) (auth.ProvisionedCredentials, error) {
	if err := s.gate.Authorize(ctx, actor, auth.PermCreateAdmin, authz.InOrganization(actor.OrganizationID)).Err(); err != nil {
		return auth.ProvisionedCredentials{}, err
	}
	if actor.OrganizationID == "" {
		return auth.ProvisionedCredentials{}, fmt.Errorf("%w: caller has no organization", auth.ErrInvalidInput)
	}
	return s.provision(ctx, actor, auth.RoleAdmin, actor.OrganizationID, in, audit.ActionAdminCreated)
}

func (s *Service) provision(ctx context.Context, actor auth.Principal, role auth.Role, orgID string, in AccountInput, action string) (auth.ProvisionedCredentials, error) {
	creds, identity, err := s.provisioner.Provision(ctx, auth.ProvisionRequest{
		Email:          in.Email,
		Name:           in.Name,
		Role:           role,
		OrganizationID: orgID,
	})
	if err != nil {
		return auth.ProvisionedCredentials{}, err
	}
	s.recorder.Record(ctx, actor, audit.Entry{
		OrganizationID: orgID,
		Action:         action,
		EntityType:     audit.EntityUser,
		EntityID:       identity.ID,
		Metadata:       map[string]string{"email": identity.Email, "role": role.String()},
	})
	return creds, nil
}

// UsersByOrg lists the identities of orgID visible to actor.
func (s *Service) UsersByOrg(ctx context.Context, actor auth.Principal, orgID string) ([]auth.Principal, error) {
	orgID = strings.TrimSpace(orgID)
	if !authz.Resolve(actor, authz.Users, "").AdmitsOrganization(orgID) {
		if authz.HasReach(actor, orgID) {
			return nil, auth.ErrForbidden
		}
		return nil, auth.ErrNotFound
	}
	if _, err := s.store.FindOrganizationByID(ctx, orgID); err != nil {
		return nil, err
	}
	return s.principals(ctx, auth.IdentityFilter{OrganizationID: orgID})
}

// MyUsers lists the identities of the caller's own organization.
func (s *Service) MyUsers(ctx context.Context, actor auth.Principal) ([]auth.Principal, error) {
	if actor.OrganizationID == "" {
		return []auth.Principal{}, nil
	}
	return s.UsersByOrg(ctx, actor, actor.OrganizationID)
}

// AdminsByOrg lists the admins of orgID for super admins and the org's owner.
func (s *Service) AdminsByOrg(ctx context.Context, actor auth.Principal, orgID string) ([]auth.Principal, error) {
	orgID = strings.TrimSpace(orgID)
	d := s.gate.Authorize(ctx, actor, auth.PermManageUsers, authz.InOrganization(orgID))
	if err := authz.Collapse(d, actor, orgID); err != nil {
		return nil, err
	}
	if _, err := s.store.FindOrganizationByID(ctx, orgID); err != nil {
		return nil, err
	}
	return s.principals(ctx, auth.IdentityFilter{OrganizationID: orgID, Roles: []auth.Role{auth.RoleAdmin}})
}

// PlatformUsers lists every identity. Super admin only.
func (s *Service) PlatformUsers(ctx context.Context, actor auth.Principal) ([]auth.Principal, error) {
	if err := s.gate.Authorize(ctx, actor, auth.PermViewPlatformUsers, nil).Err(); err != nil {
		return nil, err
	}
	return s.principals(ctx, auth.IdentityFilter{})
}

func (s *Service) principals(ctx context.Context, filter auth.IdentityFilter) ([]auth.Principal, error) {
	list, err := s.store.ListIdentities(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]auth.Principal, 0, len(list))
	for _, identity := range list {
		out = append(out, identity.Principal())
	}
	return out, nil
}
