package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleNames(t *testing.T) {
	assert.Equal(t, "Super Admin", SuperAdmin.String())
	assert.Equal(t, "Church Admin", ChurchAdmin.String())
	assert.Equal(t, []string{"Super Admin", "Church Admin"}, Names())
	assert.False(t, Role(0).Valid())
	assert.False(t, Role(42).Valid())
}

func TestParseRoundTrip(t *testing.T) {
	for _, r := range All() {
		got, err := Parse(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
}

func TestParseIsCaseSensitive(t *testing.T) {
	for _, name := range []string{"super admin", "SUPER ADMIN", "SuperAdmin", " Super Admin", ""} {
		_, err := Parse(name)
		assert.ErrorIs(t, err, ErrUnknownRole, name)
	}
}

func TestSet(t *testing.T) {
	s := NewSet(ChurchAdmin, Role(9), SuperAdmin)
	assert.True(t, s.Has(SuperAdmin))
	assert.True(t, s.Has(ChurchAdmin))
	assert.Len(t, s, 2)
	assert.Equal(t, []Role{SuperAdmin, ChurchAdmin}, s.Sorted())

	var empty Set
	assert.False(t, empty.Has(SuperAdmin))
	assert.False(t, empty.HasAny(SuperAdmin, ChurchAdmin))
	assert.True(t, NewSet(ChurchAdmin).HasAny(SuperAdmin, ChurchAdmin))
}
