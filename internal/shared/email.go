package shared

import (
	"strings"

	"golang.org/x/text/cases"
)

// NormalizeEmail trims and case-folds an address so lookups and unique keys
// agree regardless of how the address was typed.
func NormalizeEmail(email string) string {
	// Casers carry state and must not be shared between goroutines.
	return cases.Fold().String(strings.TrimSpace(email))
}
