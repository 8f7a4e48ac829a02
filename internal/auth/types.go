package auth

import (
	"strings"
	"time"
)

// Organization is an isolated tenant. Parent links are a single level deep.
type Organization struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	ParentOrganizationID string    `json:"parentOrganizationId,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// OrganizationSummary is the public projection offered to signup forms.
type OrganizationSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Identity is a stored account. OrganizationID is empty only for super admins.
type Identity struct {
	ID                     string
	Name                   string
	Email                  string
	PasswordHash           string
	Role                   Role
	OrganizationID         string
	RequiresPasswordChange bool
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Principal returns the read-only projection of the identity.
func (i *Identity) Principal() Principal {
	return Principal{
		ID:                     i.ID,
		Name:                   i.Name,
		Email:                  i.Email,
		Role:                   i.Role,
		OrganizationID:         i.OrganizationID,
		RequiresPasswordChange: i.RequiresPasswordChange,
	}
}

// IdentityFilter narrows identity listings. Zero values match everything.
type IdentityFilter struct {
	OrganizationID string
	Roles          []Role
}

// Session is the result of a successful login, signup or password change.
type Session struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        Principal `json:"user"`
}

// ProvisionRequest describes an account created on someone else's behalf.
type ProvisionRequest struct {
	Email          string
	Name           string
	Role           Role
	OrganizationID string
}

// ProvisionedCredentials carries the only plaintext copy of a temporary password.
type ProvisionedCredentials struct {
	Email             string `json:"email"`
	TemporaryPassword string `json:"temporaryPassword"`
}

// SignupRequest is the self-service registration payload.
type SignupRequest struct {
	Name           string
	Email          string
	Password       string
	OrganizationID string
}

// NormalizeEmail lower-cases and trims an address for lookups and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func defaultName(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}
