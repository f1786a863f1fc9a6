package rbac

import (
	"context"

	"github.com/shepherd-hq/shepherd/internal/roles"
)

// Principal is the authenticated actor as seen by guards and the login
// redirect.
type Principal struct {
	UserID   int64
	Verified bool
	Active   bool
	Roles    roles.Set
	// Unrecognized keeps stored role names outside the enumeration.
	Unrecognized []string
}

// NewPrincipal builds a Principal from stored role names. Names are matched
// exactly against the enumeration; anything else lands in Unrecognized.
func NewPrincipal(userID int64, verified, active bool, names []string) Principal {
	p := Principal{UserID: userID, Verified: verified, Active: active, Roles: roles.NewSet()}
	for _, name := range names {
		r, err := roles.Parse(name)
		if err != nil {
			p.Unrecognized = append(p.Unrecognized, name)
			continue
		}
		p.Roles[r] = struct{}{}
	}
	return p
}

// HasRole reports whether the principal holds r.
func (p Principal) HasRole(r roles.Role) bool {
	return p.Roles.Has(r)
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the principal stored by the role guard.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
