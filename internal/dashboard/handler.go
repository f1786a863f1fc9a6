// Package dashboard renders the welcome page and the role dashboards.
package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shepherd-hq/shepherd/internal/auth"
	"github.com/shepherd-hq/shepherd/internal/rbac"
	"github.com/shepherd-hq/shepherd/internal/roles"
	"github.com/shepherd-hq/shepherd/internal/routes"
	"github.com/shepherd-hq/shepherd/internal/shared"
	"github.com/shepherd-hq/shepherd/internal/view"
)

// Handler serves the page routes.
type Handler struct {
	logger      *slog.Logger
	templates   *view.Engine
	csrf        *shared.CSRFManager
	principals  rbac.PrincipalLoader
	registry    *routes.Registry
	canRegister bool
}

// NewHandler builds a Handler. canRegister only toggles the welcome page
// notice.
func NewHandler(logger *slog.Logger, templates *view.Engine, csrf *shared.CSRFManager, principals rbac.PrincipalLoader, registry *routes.Registry, canRegister bool) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:      logger,
		templates:   templates,
		csrf:        csrf,
		principals:  principals,
		registry:    registry,
		canRegister: canRegister,
	}
}

// MountHome registers the public welcome page on r.
func (h *Handler) MountHome(r chi.Router) {
	r.Get(h.registry.MustURL(routes.Home), h.welcome)
}

// MountDashboards registers the guarded dashboards on r.
func (h *Handler) MountDashboards(r chi.Router, mw rbac.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAuth)
		r.With(mw.RequireRole(roles.SuperAdmin)).Get(h.registry.MustURL(routes.AdminDashboard), h.adminDashboard)
		r.With(mw.RequireRole(roles.ChurchAdmin)).Get(h.registry.MustURL(routes.ChurchDashboard), h.churchDashboard)
	})
}

type welcomeData struct {
	CanRegister  bool
	DashboardURL string
}

type dashboardData struct {
	UserID int64
	Roles  []string
}

func (h *Handler) welcome(w http.ResponseWriter, r *http.Request) {
	data := welcomeData{CanRegister: h.canRegister}
	if userID, ok := rbac.CurrentUserID(r, h.logger); ok {
		principal, err := h.principals.Principal(r.Context(), userID)
		if err != nil {
			h.logger.Warn("welcome principal", slog.Int64("user_id", userID), slog.Any("error", err))
		} else if url, err := h.registry.URL(auth.RoleRoute(principal.Roles)); err == nil {
			data.DashboardURL = url
		}
	}
	h.render(w, r, "pages/welcome.html", "Welcome", data)
}

func (h *Handler) adminDashboard(w http.ResponseWriter, r *http.Request) {
	h.renderDashboard(w, r, "pages/admin_dashboard.html", "Dashboard")
}

func (h *Handler) churchDashboard(w http.ResponseWriter, r *http.Request) {
	h.renderDashboard(w, r, "pages/church_dashboard.html", "Church dashboard")
}

func (h *Handler) renderDashboard(w http.ResponseWriter, r *http.Request, page, title string) {
	principal, ok := rbac.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}
	names := make([]string, 0, len(principal.Roles))
	for _, role := range principal.Roles.Sorted() {
		names = append(names, role.String())
	}
	h.render(w, r, page, title, dashboardData{UserID: principal.UserID, Roles: names})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, page, title string, data any) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	authenticated := false
	if sess != nil {
		flash = sess.PopFlash()
		authenticated = sess.User() != ""
	}
	viewData := view.TemplateData{
		Title:         title,
		CSRFToken:     csrfToken,
		Flash:         flash,
		CurrentPath:   r.URL.Path,
		Authenticated: authenticated,
		Data:          data,
	}
	if err := h.templates.Render(w, page, viewData, http.StatusOK); err != nil {
		h.logger.Error("render page", slog.String("page", page), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
