package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"taskgate.org/internal/ids"
)

const minPasswordLength = 8

// Service implements login, signup, password change, token authentication
// and account provisioning.
type Service struct {
	store  Store
	creds  *CredentialManager
	issuer *Issuer
	logger *slog.Logger
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs Service with optional configuration.
func NewService(store Store, creds *CredentialManager, issuer *Issuer, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if issuer == nil {
		return nil, errMissingSecret
	}
	if creds == nil {
		creds = NewCredentialManager(DefaultBcryptCost)
	}
	svc := &Service{
		store:  store,
		creds:  creds,
		issuer: issuer,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// Credentials exposes the credential manager used by the service.
func (s *Service) Credentials() *CredentialManager { return s.creds }

// Login authenticates email and password. Unknown emails and wrong passwords
// both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}
	identity, err := s.store.FindIdentityByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Spend the same bcrypt work as a real comparison.
			s.creds.Verify(password, s.timingHash())
			s.logger.InfoContext(ctx, "login rejected", slog.String("reason", "unknown_email"))
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if !s.creds.Verify(password, identity.PasswordHash) {
		s.logger.InfoContext(ctx, "login rejected",
			slog.String("reason", "password_mismatch"),
			slog.String("user_id", identity.ID))
		return Session{}, ErrInvalidCredentials
	}
	return s.session(identity)
}

// Authenticate validates a token and re-reads the identity it names.
func (s *Service) Authenticate(ctx context.Context, token string) (Principal, error) {
	claims, err := s.issuer.Parse(token)
	if err != nil {
		return Principal{}, err
	}
	identity, err := s.store.FindIdentityByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrSessionInvalid
		}
		return Principal{}, err
	}
	return identity.Principal(), nil
}

// Signup registers a USER in an existing organization and logs it in.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (Session, error) {
	email := NormalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	orgID := strings.TrimSpace(req.OrganizationID)
	switch {
	case email == "":
		return Session{}, fmt.Errorf("%w: email is required", ErrInvalidInput)
	case name == "":
		return Session{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	case orgID == "":
		return Session{}, fmt.Errorf("%w: organization is required", ErrInvalidInput)
	}
	if err := checkPassword(req.Password); err != nil {
		return Session{}, err
	}
	if _, err := s.store.FindOrganizationByID(ctx, orgID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrOrganizationNotFound
		}
		return Session{}, err
	}
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return Session{}, err
	}
	hash, err := s.creds.Hash(req.Password)
	if err != nil {
		return Session{}, err
	}
	identity := &Identity{
		ID:             ids.New(),
		Name:           name,
		Email:          email,
		PasswordHash:   hash,
		Role:           RoleUser,
		OrganizationID: orgID,
	}
	if err := s.create(ctx, identity); err != nil {
		return Session{}, err
	}
	s.logger.InfoContext(ctx, "identity registered",
		slog.String("user_id", identity.ID),
		slog.String("organization_id", orgID))
	return s.session(identity)
}

// ChangePassword replaces the password after verifying the current one,
// clears the forced-change flag and issues a fresh session.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) (Session, error) {
	identity, err := s.store.FindIdentityByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrSessionInvalid
		}
		return Session{}, err
	}
	if !s.creds.Verify(current, identity.PasswordHash) {
		return Session{}, ErrInvalidCredentials
	}
	if err := checkPassword(next); err != nil {
		return Session{}, err
	}
	hash, err := s.creds.Hash(next)
	if err != nil {
		return Session{}, err
	}
	if err := s.store.UpdatePassword(ctx, identity.ID, hash, false); err != nil {
		return Session{}, err
	}
	identity.PasswordHash = hash
	identity.RequiresPasswordChange = false
	identity.UpdatedAt = s.now().UTC()
	s.logger.InfoContext(ctx, "password changed", slog.String("user_id", identity.ID))
	return s.session(identity)
}

// Provision creates an identity with a generated temporary password that must
// be changed on first use. The plaintext is returned once and never stored.
// Callers are responsible for authorizing the request.
func (s *Service) Provision(ctx context.Context, req ProvisionRequest) (ProvisionedCredentials, *Identity, error) {
	email := NormalizeEmail(req.Email)
	if email == "" {
		return ProvisionedCredentials{}, nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if !req.Role.Valid() || req.Role == RoleSuperAdmin {
		return ProvisionedCredentials{}, nil, fmt.Errorf("%w: role %s cannot be provisioned", ErrInvalidInput, req.Role)
	}
	orgID := strings.TrimSpace(req.OrganizationID)
	if orgID == "" {
		return ProvisionedCredentials{}, nil, fmt.Errorf("%w: organization is required", ErrInvalidInput)
	}
	if _, err := s.store.FindOrganizationByID(ctx, orgID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ProvisionedCredentials{}, nil, ErrOrganizationNotFound
		}
		return ProvisionedCredentials{}, nil, err
	}
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return ProvisionedCredentials{}, nil, err
	}
	temp, err := s.creds.TemporaryPassword()
	if err != nil {
		return ProvisionedCredentials{}, nil, err
	}
	hash, err := s.creds.Hash(temp)
	if err != nil {
		return ProvisionedCredentials{}, nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = defaultName(email)
	}
	identity := &Identity{
		ID:                     ids.New(),
		Name:                   name,
		Email:                  email,
		PasswordHash:           hash,
		Role:                   req.Role,
		OrganizationID:         orgID,
		RequiresPasswordChange: true,
	}
	if err := s.create(ctx, identity); err != nil {
		return ProvisionedCredentials{}, nil, err
	}
	s.logger.InfoContext(ctx, "identity provisioned",
		slog.String("user_id", identity.ID),
		slog.String("role", identity.Role.String()),
		slog.String("organization_id", orgID))
	return ProvisionedCredentials{Email: email, TemporaryPassword: temp}, identity, nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.store.FindIdentityByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrEmailAlreadyExists
	case errors.Is(err, ErrNotFound):
		return nil
	default:
		return err
	}
}

func (s *Service) create(ctx context.Context, identity *Identity) error {
	now := s.now().UTC()
	identity.CreatedAt = now
	identity.UpdatedAt = now
	if err := s.store.CreateIdentity(ctx, identity); err != nil {
		if errors.Is(err, ErrEmailAlreadyExists) || errors.Is(err, ErrOrganizationNotFound) {
			return err
		}
		return fmt.Errorf("create identity: %w", err)
	}
	return nil
}

func (s *Service) session(identity *Identity) (Session, error) {
	token, exp, err := s.issuer.Issue(identity)
	if err != nil {
		return Session{}, err
	}
	return Session{AccessToken: token, ExpiresAt: exp, User: identity.Principal()}, nil
}

func (s *Service) timingHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.creds.Hash("taskgate-timing-equalizer")
	})
	return s.dummyHash
}

func checkPassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	if len(password) > MaxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, MaxPasswordBytes)
	}
	return nil
}
