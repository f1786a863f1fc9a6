package auth

import (
	"github.com/shepherd-hq/shepherd/internal/roles"
	"github.com/shepherd-hq/shepherd/internal/routes"
)

// Target is where a principal is sent after logging in: either a symbolic
// route name or, when one was captured, the URL requested before login.
type Target struct {
	Route    string
	Intended string
}

// IsIntended reports whether the target is a captured URL.
func (t Target) IsIntended() bool {
	return t.Intended != ""
}

// Location resolves the target to a concrete URL. Intended URLs are returned
// unchanged.
func (t Target) Location(reg *routes.Registry) (string, error) {
	if t.IsIntended() {
		return t.Intended, nil
	}
	return reg.URL(t.Route)
}

// String returns the intended URL or the route name.
func (t Target) String() string {
	if t.IsIntended() {
		return t.Intended
	}
	return t.Route
}

type roleDestination struct {
	role  roles.Role
	route string
}

// redirectPriority is evaluated top to bottom; the first held role wins.
var redirectPriority = []roleDestination{
	{role: roles.SuperAdmin, route: routes.AdminDashboard},
	{role: roles.ChurchAdmin, route: routes.ChurchDashboard},
}

// FallbackRoute is used when the principal holds none of the prioritised
// roles. The route itself stays guarded by the SuperAdmin role.
const FallbackRoute = routes.AdminDashboard

// ResolveRedirect picks the post-login destination. A non-empty intended URL
// is returned verbatim; otherwise the first role in priority order that the
// principal holds decides the route.
func ResolveRedirect(held roles.Set, intended string) Target {
	if intended != "" {
		return Target{Intended: intended}
	}
	return Target{Route: RoleRoute(held)}
}

// RoleRoute returns the role-derived route, ignoring any intended URL.
func RoleRoute(held roles.Set) string {
	for _, d := range redirectPriority {
		if held.Has(d.role) {
			return d.route
		}
	}
	return FallbackRoute
}

// IsFallback reports whether held matches no prioritised role.
func IsFallback(held roles.Set) bool {
	for _, d := range redirectPriority {
		if held.Has(d.role) {
			return false
		}
	}
	return true
}
