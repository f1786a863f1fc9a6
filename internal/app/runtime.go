package app

import "github.com/kelseyhightower/envconfig"

const testModeEnv = "SHEPHERD_TEST_MODE"

// Runtime carries process level switches that are not part of Config.
type Runtime struct {
	TestMode bool `envconfig:"SHEPHERD_TEST_MODE" default:"false"`
}

// LoadRuntime reads the runtime switches from the environment.
func LoadRuntime() (Runtime, error) {
	var rt Runtime
	if err := envconfig.Process("", &rt); err != nil {
		return Runtime{}, err
	}
	return rt, nil
}

// InTestMode reports whether binaries should return before touching Postgres
// or Redis. An unparsable value counts as off.
func InTestMode() bool {
	rt, err := LoadRuntime()
	return err == nil && rt.TestMode
}
