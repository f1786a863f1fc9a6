package routes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryPaths(t *testing.T) {
	reg := Default()

	cases := map[string]string{
		Home:            "/",
		Login:           "/auth/login",
		AdminDashboard:  "/admin/dashboard",
		ChurchDashboard: "/admin/church/dashboard",
	}
	for name, want := range cases {
		got, err := reg.URL(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("reports.weekly", "/reports/weekly"))

	err := reg.Register("reports.weekly", "/reports/other")
	assert.ErrorIs(t, err, ErrDuplicateRoute)

	got, err := reg.URL("reports.weekly")
	require.NoError(t, err)
	assert.Equal(t, "/reports/weekly", got)
}

func TestRegisterRejectsRelativePath(t *testing.T) {
	reg := NewRegistry()
	assert.Error(t, reg.Register("bad", "reports"))
	assert.Error(t, reg.Register(" ", "/reports"))
}

func TestURLUnknownRoute(t *testing.T) {
	_, err := NewRegistry().URL("missing")
	assert.ErrorIs(t, err, ErrUnknownRoute)
	assert.Panics(t, func() { NewRegistry().MustURL("missing") })
}

func TestNamesSorted(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("b", "/b"))
	require.NoError(t, reg.Register("a", "/a"))
	assert.Equal(t, []string{"a", "b"}, reg.Names())
}
