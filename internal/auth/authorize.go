package auth

// Principal is the verified caller: the projection of an Identity that every
// authorization decision is made against.
type Principal struct {
	ID                     string `json:"id"`
	Name                   string `json:"name"`
	Email                  string `json:"email"`
	Role                   Role   `json:"role"`
	OrganizationID         string `json:"organizationId,omitempty"`
	RequiresPasswordChange bool   `json:"requiresPasswordChange"`
}

// HasPermission reports whether the principal's role grants perm.
func (p Principal) HasPermission(perm Permission) bool {
	return Permits(p.Role, perm)
}

// IsSuperAdmin reports whether the principal has platform-wide reach.
func (p Principal) IsSuperAdmin() bool {
	return p.Role == RoleSuperAdmin
}

// InOrganization reports whether the principal belongs to orgID.
func (p Principal) InOrganization(orgID string) bool {
	return orgID != "" && p.OrganizationID == orgID
}
