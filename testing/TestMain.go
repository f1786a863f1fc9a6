// Package testing prepares the process environment for package tests. Import
// it for side effects.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

// Defaults are applied to the environment unless a variable is already set.
var Defaults = map[string]string{
	"SHEPHERD_TEST_MODE": "1",
	"SESSION_SECRET":     "test-session-secret",
	"CSRF_SECRET":        "test-csrf-secret",
	"LOG_LEVEL":          "error",
}

var once sync.Once

func applyDefaults() {
	once.Do(func() {
		for key, value := range Defaults {
			if _, ok := os.LookupEnv(key); !ok {
				_ = os.Setenv(key, value)
			}
		}
	})
}

func init() {
	applyDefaults()
}

// TestMain can be delegated to from a package TestMain.
func TestMain(m *stdtesting.M) {
	applyDefaults()
	os.Exit(m.Run())
}
