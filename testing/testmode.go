// Package testing switches the process into test mode when imported for side
// effects, so entrypoints skip network and database startup.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("FINCOMPARE_TEST_MODE", "1")
		_ = os.Unsetenv("GOTENBERG_URL")
		_ = os.Unsetenv("PG_DSN")
	})
}

func init() {
	ensureTestMode()
}

// TestMain can be delegated to from a package's own TestMain.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
