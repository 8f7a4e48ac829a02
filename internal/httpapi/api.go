package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"taskgate.org/internal/audit"
	"taskgate.org/internal/auth"
	"taskgate.org/internal/obs"
	"taskgate.org/internal/orgs"
	"taskgate.org/internal/tasks"
)

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyProbe checks that the backing store answers.
type ReadyProbe struct {
	Store Pinger
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.Store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return rp.Store.Ping(ctx)
}

// Services are the domain operations exposed over HTTP.
type Services struct {
	Auth  *auth.Service
	Orgs  *orgs.Service
	Tasks *tasks.Service
	Audit *audit.Service
}

// Options tunes the transport layer. Zero values fall back to defaults.
type Options struct {
	Version          string
	LoginRate        float64
	LoginBurst       int
	APIRatePerMinute int
	MaxBodyBytes     int64
	CORSOrigins      []string
	SecureSSL        bool
	TrustProxy       bool
}

// API is the HTTP layer.
type API struct {
	router   chi.Router
	svc      Services
	ready    ReadyProbe
	opts     Options
	logger   *slog.Logger
	validate *validator.Validate
}

func New(svc Services, rp ReadyProbe, opts Options, logger *slog.Logger) *API {
	if logger == nil {
		logger = obs.Logger()
	}
	if opts.LoginRate <= 0 {
		opts.LoginRate = 1
	}
	if opts.LoginBurst <= 0 {
		opts.LoginBurst = 5
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	a := &API{
		svc:      svc,
		ready:    rp,
		opts:     opts,
		logger:   logger,
		validate: newValidator(),
	}
	a.router = a.routes()
	return a
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Handler returns the root http.Handler.
func (a *API) Handler() http.Handler {
	return a.router
}

func (a *API) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(RequestID)
	r.Use(LoggingJSON)
	r.Use(obs.Instrument)
	r.Use(SecurityHeaders(a.opts.SecureSSL))
	r.Use(CORS(a.opts.CORSOrigins))
	r.Use(MaxBodyBytes(a.opts.MaxBodyBytes))
	if a.opts.APIRatePerMinute > 0 {
		keyFunc := httprate.KeyByIP
		if a.opts.TrustProxy {
			keyFunc = httprate.KeyByRealIP
		}
		r.Use(httprate.Limit(a.opts.APIRatePerMinute, time.Minute,
			httprate.WithKeyFuncs(keyFunc),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Retry-After", "60")
				writeError(w, r, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
			}),
		))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.Get("/healthz", a.Healthz)
	r.Get("/readyz", a.Ready)
	r.Method(http.MethodGet, "/metrics", obs.Handler())

	credentials := newIPLimiter(a.opts.LoginBurst, a.opts.LoginRate, a.opts.TrustProxy)
	r.With(credentials.Middleware).Post("/auth/login", a.handleLogin)
	r.With(credentials.Middleware).Post("/auth/signup", a.handleSignup)
	r.Get("/organizations/public", a.handlePublicOrganizations)

	r.Group(func(r chi.Router) {
		r.Use(a.requireAuth)

		r.Post("/auth/change-password", a.handleChangePassword)
		r.Get("/auth/me", a.handleMe)

		r.Get("/organizations", a.handleListOrganizations)
		r.Post("/organizations", a.handleCreateOrganization)
		r.Get("/organizations/me/users", a.handleMyUsers)
		r.Get("/organizations/{id}", a.handleGetOrganization)
		r.Post("/organizations/{id}/create-owner", a.handleCreateOwner)
		r.Get("/organizations/{id}/users", a.handleUsersByOrganization)
		r.Get("/organizations/{id}/admins", a.handleAdminsByOrganization)
		r.Post("/admins", a.handleCreateAdmin)
		r.Get("/platform/users", a.handlePlatformUsers)

		r.Get("/tasks", a.handleListTasks)
		r.Post("/tasks", a.handleCreateTask)
		r.Get("/tasks/{id}", a.handleGetTask)
		r.Put("/tasks/{id}", a.handleUpdateTask)
		r.Patch("/tasks/{id}", a.handleUpdateTask)
		r.Delete("/tasks/{id}", a.handleDeleteTask)

		r.Get("/audit-log", a.handleAuditLog)
	})
	return r
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "taskgate-api",
		"version": a.opts.Version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.ready.Check(r.Context()); err != nil {
		a.logger.WarnContext(r.Context(), "readiness check failed", slog.Any("error", err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}
