package app

import (
	"io/fs"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	audithttp "github.com/shepherd-hq/shepherd/internal/audit/http"
	"github.com/shepherd-hq/shepherd/internal/auth"
	"github.com/shepherd-hq/shepherd/internal/dashboard"
	"github.com/shepherd-hq/shepherd/internal/observability"
	"github.com/shepherd-hq/shepherd/internal/rbac"
	"github.com/shepherd-hq/shepherd/internal/roles"
	"github.com/shepherd-hq/shepherd/internal/routes"
	"github.com/shepherd-hq/shepherd/internal/shared"
	"github.com/shepherd-hq/shepherd/jobs"
	"github.com/shepherd-hq/shepherd/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Registry         *routes.Registry
	SessionManager   *shared.SessionManager
	CSRFManager      *shared.CSRFManager
	AuthHandler      *auth.Handler
	DashboardHandler *dashboard.Handler
	RolesHandler     *roles.Handler
	AuditHandler     *audithttp.Handler
	JobHandler       *jobs.Handler
	RBACMiddleware   rbac.Middleware
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router. Page paths come from the registry.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	params.DashboardHandler.MountHome(r)
	params.AuthHandler.MountRoutes(r)
	params.DashboardHandler.MountDashboards(r, params.RBACMiddleware)

	superAdmin := r.With(params.RBACMiddleware.RequireAuth, params.RBACMiddleware.RequireRole(roles.SuperAdmin))
	if params.RolesHandler != nil {
		superAdmin.Route(params.Registry.MustURL(routes.AdminRoles), params.RolesHandler.MountRoutes)
	}
	if params.AuditHandler != nil {
		superAdmin.Route(params.Registry.MustURL(routes.AdminAudit), params.AuditHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		superAdmin.Route(params.Registry.MustURL(routes.JobsHealth), params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	ensureMimeType(params.Logger, ".css", "text/css; charset=utf-8")
	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler lets browsers cache embedded assets for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}

// ensureMimeType registers typ for ext when the host has no mime.types entry.
func ensureMimeType(logger *slog.Logger, ext, typ string) {
	if mime.TypeByExtension(ext) != "" {
		return
	}
	if err := mime.AddExtensionType(ext, typ); err != nil {
		logger.Warn("register mime type", slog.String("ext", ext), slog.Any("error", err))
	}
}
