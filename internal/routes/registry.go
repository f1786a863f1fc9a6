// Package routes keeps the table of symbolic route names used for redirects
// and links, so handlers never hard-code paths.
package routes

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Symbolic route names.
const (
	Home            = "home"
	Login           = "login"
	Logout          = "logout"
	AdminDashboard  = "admin.dashboard"
	ChurchDashboard = "admin.church.dashboard"
	AdminRoles      = "admin.roles"
	AdminAudit      = "admin.audit"
	JobsHealth      = "jobs.health"
)

var (
	// ErrUnknownRoute is returned when a name has no registered path.
	ErrUnknownRoute = errors.New("routes: unknown route")
	// ErrDuplicateRoute is returned when a name is registered twice.
	ErrDuplicateRoute = errors.New("routes: duplicate route")
)

// Registry maps route names to concrete paths. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	paths map[string]string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{paths: make(map[string]string)}
}

// Default returns a Registry holding the application's routes.
func Default() *Registry {
	r := NewRegistry()
	for name, path := range map[string]string{
		Home:            "/",
		Login:           "/auth/login",
		Logout:          "/auth/logout",
		AdminDashboard:  "/admin/dashboard",
		ChurchDashboard: "/admin/church/dashboard",
		AdminRoles:      "/admin/roles",
		AdminAudit:      "/admin/audit",
		JobsHealth:      "/admin/jobs/health",
	} {
		if err := r.Register(name, path); err != nil {
			panic(err)
		}
	}
	return r
}

// Register binds name to path. Paths must be absolute.
func (r *Registry) Register(name, path string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("routes: name required")
	}
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("routes: path for %s must start with /", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.paths[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateRoute, name)
	}
	r.paths[name] = path
	return nil
}

// URL returns the path registered for name.
func (r *Registry) URL(name string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	path, ok := r.paths[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownRoute, name)
	}
	return path, nil
}

// MustURL is URL for names registered at startup; it panics on unknown names.
func (r *Registry) MustURL(name string) string {
	path, err := r.URL(name)
	if err != nil {
		panic(err)
	}
	return path
}

// Names returns every registered name in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.paths))
	for name := range r.paths {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
