package auth

import "errors"

var (
	ErrInvalidCredentials          = errors.New("auth: invalid credentials")
	ErrSessionInvalid              = errors.New("auth: session invalid")
	ErrEmailAlreadyExists          = errors.New("auth: email already exists")
	ErrOrganizationNotFound        = errors.New("auth: organization not found")
	ErrOrganizationNameTaken       = errors.New("auth: organization name taken")
	ErrInsufficientRole            = errors.New("auth: insufficient role")
	ErrOutOfScope                  = errors.New("auth: out of scope")
	ErrCrossOrganizationAssignment = errors.New("auth: assignee belongs to another organization")
	ErrNotFound                    = errors.New("auth: not found")
	ErrForbidden                   = errors.New("auth: forbidden")
	ErrInvalidInput                = errors.New("auth: invalid input")
)
