package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestIssuer(t *testing.T, opts ...IssuerOption) *Issuer {
	t.Helper()
	iss, err := NewIssuer("test-secret-value", opts...)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	return iss
}

func TestIssuerRequiresSecret(t *testing.T) {
	if _, err := NewIssuer("   "); err == nil {
		t.Fatalf("expected error for blank secret")
	}
}

func TestIssuerIssueAndParse(t *testing.T) {
	iss := newTestIssuer(t, WithIssuerName("test-issuer"), WithTokenTTL(30*time.Minute))
	identity := &Identity{ID: "user-42", Email: "owner@acme.test", Role: RoleOwner, OrganizationID: "org-1"}

	token, exp, err := iss.Issue(identity)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(exp) <= 0 || time.Until(exp) > 31*time.Minute {
		t.Fatalf("unexpected expiry %v", exp)
	}

	claims, err := iss.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "user-42" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if claims.Issuer != "test-issuer" {
		t.Fatalf("unexpected issuer: %s", claims.Issuer)
	}
	if claims.Role != "OWNER" || claims.OrganizationID != "org-1" || claims.Email != "owner@acme.test" {
		t.Fatalf("claims not preserved: %+v", claims)
	}
	if claims.ID == "" {
		t.Fatalf("expected jti")
	}
}

func TestIssuerSuperAdminOmitsOrganization(t *testing.T) {
	iss := newTestIssuer(t)
	token, _, err := iss.Issue(&Identity{ID: "root", Email: "root@platform.test", Role: RoleSuperAdmin})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := iss.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.OrganizationID != "" {
		t.Fatalf("expected empty organization, got %q", claims.OrganizationID)
	}
}

func TestIssuerRejectsExpiredToken(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	old := newTestIssuer(t, WithTokenTTL(time.Hour), WithIssuerClock(func() time.Time { return past }))
	token, _, err := old.Issue(&Identity{ID: "u1", Role: RoleUser})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := newTestIssuer(t).Parse(token); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid, got %v", err)
	}
}

func TestIssuerRejectsForeignSignatures(t *testing.T) {
	identity := &Identity{ID: "u1", Role: RoleAdmin, OrganizationID: "org"}
	other, err := NewIssuer("another-secret")
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	token, _, err := other.Issue(identity)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := newTestIssuer(t).Parse(token); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid for foreign secret, got %v", err)
	}

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Role: "SUPER_ADMIN",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    DefaultIssuer,
			Subject:   "u1",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := newTestIssuer(t).Parse(raw); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid for alg=none, got %v", err)
	}

	good, _, err := newTestIssuer(t).Issue(identity)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	parts := strings.Split(good, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]
	if _, err := newTestIssuer(t).Parse(tampered); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid for tampered token, got %v", err)
	}
}

func TestIssuerRejectsWrongIssuer(t *testing.T) {
	token, _, err := newTestIssuer(t, WithIssuerName("someone-else")).Issue(&Identity{ID: "u1", Role: RoleUser})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := newTestIssuer(t).Parse(token); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid, got %v", err)
	}
}

func TestIssuerRejectsEmpty(t *testing.T) {
	if _, err := newTestIssuer(t).Parse("  "); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid, got %v", err)
	}
}
