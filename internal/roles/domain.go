package roles

import (
	"errors"
	"fmt"
	"time"
)

// Role is one value of the closed set of roles a principal can hold.
// The zero value is not a valid role.
type Role uint8

const (
	// SuperAdmin administers the whole platform.
	SuperAdmin Role = iota + 1
	// ChurchAdmin administers a single church.
	ChurchAdmin
)

// GuardWeb is the guard name stored alongside every seeded role.
const GuardWeb = "web"

// ErrUnknownRole is returned by Parse for names outside the enumeration.
var ErrUnknownRole = errors.New("roles: unknown role")

// String returns the role name as stored in the roles table.
func (r Role) String() string {
	switch r {
	case SuperAdmin:
		return "Super Admin"
	case ChurchAdmin:
		return "Church Admin"
	default:
		return ""
	}
}

// Valid reports whether r belongs to the enumeration.
func (r Role) Valid() bool {
	return r.String() != ""
}

// All lists every role in declaration order.
func All() []Role {
	return []Role{SuperAdmin, ChurchAdmin}
}

// Names lists the stored names of every role.
func Names() []string {
	all := All()
	names := make([]string, len(all))
	for i, r := range all {
		names[i] = r.String()
	}
	return names
}

// Parse maps a stored role name back to its Role. Matching is exact and
// case-sensitive.
func Parse(name string) (Role, error) {
	for _, r := range All() {
		if r.String() == name {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRole, name)
}

// Set is the collection of roles held by a principal.
type Set map[Role]struct{}

// NewSet builds a Set, ignoring invalid roles.
func NewSet(held ...Role) Set {
	s := make(Set, len(held))
	for _, r := range held {
		if r.Valid() {
			s[r] = struct{}{}
		}
	}
	return s
}

// Has reports whether the set contains r. A nil set holds nothing.
func (s Set) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

// HasAny reports whether the set contains at least one of the given roles.
func (s Set) HasAny(want ...Role) bool {
	for _, r := range want {
		if s.Has(r) {
			return true
		}
	}
	return false
}

// Sorted returns the held roles in declaration order.
func (s Set) Sorted() []Role {
	out := make([]Role, 0, len(s))
	for _, r := range All() {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

// Record is a persisted row of the roles table.
type Record struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	GuardName string    `json:"guard_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
