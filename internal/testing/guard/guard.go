// Package guard flips the runtime into test mode before any package init
// touches Postgres or Redis. Import it for side effects from tests.
package guard

import "os"

// Env is the variable the app runtime consults.
const Env = "COSTING_TEST_MODE"

func init() {
	if os.Getenv(Env) == "" {
		_ = os.Setenv(Env, "1")
	}
}
