package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/shepherd-hq/shepherd/internal/rbac"
	"github.com/shepherd-hq/shepherd/internal/routes"
	"github.com/shepherd-hq/shepherd/internal/shared"
	"github.com/shepherd-hq/shepherd/internal/view"
)

// RedirectObserver is notified of every post-login redirect.
type RedirectObserver interface {
	ObserveLoginRedirect(target string, fallback bool)
}

// HandlerDeps groups the collaborators of Handler. Observer and Audit are
// optional.
type HandlerDeps struct {
	Logger     *slog.Logger
	Service    *Service
	Templates  *view.Engine
	Sessions   *shared.SessionManager
	CSRF       *shared.CSRFManager
	Principals rbac.PrincipalLoader
	Routes     *routes.Registry
	Observer   RedirectObserver
	Audit      shared.AuditRecorder
	// LoginLimit caps login attempts per IP per minute; zero disables it.
	LoginLimit int
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	HandlerDeps
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(deps HandlerDeps) *Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Handler{HandlerDeps: deps, validator: validator.New()}
}

// MountRoutes registers the login and logout routes at their registry paths.
func (h *Handler) MountRoutes(r chi.Router) {
	login := h.Routes.MustURL(routes.Login)
	r.Get(login, h.showLogin)
	if h.LoginLimit > 0 {
		r.With(httprate.LimitByIP(h.LoginLimit, time.Minute)).Post(login, h.handleLogin)
	} else {
		r.Post(login, h.handleLogin)
	}
	r.Post(h.Routes.MustURL(routes.Logout), h.handleLogout)
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

type loginPageData struct {
	Form   loginForm
	Errors map[string]string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil && sess.User() != "" {
		http.Redirect(w, r, h.Routes.MustURL(routes.Home), http.StatusSeeOther)
		return
	}
	h.renderLogin(w, r, loginPageData{Errors: map[string]string{}}, http.StatusOK)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.Logger.Error("session missing during login")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	form := loginForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	errs := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fieldErr := range fieldErrs {
				errs[fieldErr.Field()] = fieldErr.Error()
			}
		} else {
			errs["general"] = "Invalid form submission"
		}
	}
	if len(errs) > 0 {
		h.renderLogin(w, r, loginPageData{Form: form, Errors: errs}, http.StatusBadRequest)
		return
	}

	user, err := h.Service.Authenticate(r.Context(), form.Email, form.Password)
	if errors.Is(err, shared.ErrInvalidCredentials) {
		errs["general"] = "These credentials do not match our records."
		h.renderLogin(w, r, loginPageData{Form: loginForm{Email: form.Email}, Errors: errs}, http.StatusBadRequest)
		return
	}
	if err != nil {
		h.Logger.Error("authenticate", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.Sessions.Regenerate(sess)
	sess.SetUser(strconv.FormatInt(user.ID, 10))
	if h.CSRF != nil {
		if _, err := h.CSRF.Rotate(sess); err != nil {
			h.Logger.Warn("rotate csrf token", slog.Any("error", err))
		}
	}
	if _, err := h.Service.StartSession(r.Context(), sess.ID, user.ID, h.Sessions.TTL(), r.RemoteAddr, r.UserAgent()); err != nil {
		h.Logger.Warn("record session", slog.Any("error", err))
	}

	location, target, err := h.redirectAfterLogin(r.Context(), sess, user.ID)
	if err != nil {
		h.Logger.Error("resolve login redirect", slog.Int64("user_id", user.ID), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.record(r.Context(), shared.AuditActionLogin, user.ID, map[string]any{"target": target.String()})
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// redirectAfterLogin loads the principal, consumes the intended URL and
// resolves where the login should land.
func (h *Handler) redirectAfterLogin(ctx context.Context, sess *shared.Session, userID int64) (string, Target, error) {
	principal, err := h.Principals.Principal(ctx, userID)
	if err != nil {
		return "", Target{}, fmt.Errorf("load principal: %w", err)
	}
	if len(principal.Unrecognized) > 0 {
		h.Logger.Warn("principal holds unrecognized roles",
			slog.Int64("user_id", userID),
			slog.Any("roles", principal.Unrecognized))
	}
	fallback := IsFallback(principal.Roles)
	if fallback {
		// Falls through to the default route, which is still role-guarded.
		h.Logger.Warn("principal holds no recognized role, using fallback route",
			slog.Int64("user_id", userID),
			slog.String("route", FallbackRoute))
	}

	target := ResolveRedirect(principal.Roles, sess.Pull(shared.IntendedURLKey))
	location, err := target.Location(h.Routes)
	if err != nil {
		return "", Target{}, err
	}
	if h.Observer != nil {
		label := target.Route
		if target.IsIntended() {
			label = "intended"
		}
		h.Observer.ObserveLoginRedirect(label, fallback && !target.IsIntended())
	}
	return location, target, nil
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if id, err := strconv.ParseInt(sess.User(), 10, 64); err == nil {
			h.record(r.Context(), shared.AuditActionLogout, id, nil)
		}
		if err := h.Service.EndSession(r.Context(), sess.ID); err != nil {
			h.Logger.Warn("end session", slog.Any("error", err))
		}
		h.Sessions.Destroy(sess)
	}
	http.Redirect(w, r, h.Routes.MustURL(routes.Home), http.StatusSeeOther)
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, data loginPageData, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.CSRF.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Log in",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if err := h.Templates.Render(w, "pages/login.html", viewData, status); err != nil {
		h.Logger.Error("render login", slog.Any("error", err))
	}
}

func (h *Handler) record(ctx context.Context, action string, userID int64, meta map[string]any) {
	if h.Audit == nil {
		return
	}
	id := strconv.FormatInt(userID, 10)
	if err := h.Audit.Record(ctx, shared.AuditLog{ActorID: userID, Action: action, Entity: "user", EntityID: id, Meta: meta}); err != nil {
		h.Logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}
