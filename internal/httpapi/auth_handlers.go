package httpapi

import (
	"net/http"

	"taskgate.org/internal/audit"
	"taskgate.org/internal/auth"
	"taskgate.org/internal/obs"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

type signupRequest struct {
	Name           string `json:"name" validate:"omitempty,max=255"`
	Email          string `json:"email" validate:"required,email,max=254"`
	Password       string `json:"password" validate:"required,min=8,max=72"`
	OrganizationID string `json:"organizationId" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := a.bind(r, &req); err != nil {
		obs.ObserveLogin("failure")
		a.writeServiceError(w, r, err)
		return
	}
	session, err := a.svc.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		obs.ObserveLogin("failure")
		a.writeServiceError(w, r, err)
		return
	}
	obs.ObserveLogin("success")
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id":         session.User.ID,
		"role":            session.User.Role.String(),
		"organization_id": session.User.OrganizationID,
	})
	writeJSON(w, http.StatusOK, session)
}

func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := a.bind(r, &req); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	session, err := a.svc.Auth.Signup(r.Context(), auth.SignupRequest{
		Name:           req.Name,
		Email:          req.Email,
		Password:       req.Password,
		OrganizationID: req.OrganizationID,
	})
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (a *API) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := a.bind(r, &req); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	session, err := a.svc.Auth.ChangePassword(r.Context(), principal(r).ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.password_changed", map[string]any{
		"user_id": session.User.ID,
	})
	writeJSON(w, http.StatusOK, session)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, principal(r))
}
