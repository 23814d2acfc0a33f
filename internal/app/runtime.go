package app

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// testModeEnv is set by the testing package so the binaries return before
// they dial Postgres, Redis or Gotenberg.
const testModeEnv = "FINCOMPARE_TEST_MODE"

var testMode struct {
	once sync.Once
	on   atomic.Bool
}

// parseTestMode accepts the strconv.ParseBool spellings. Anything else,
// including an empty value, leaves test mode off.
func parseTestMode(raw string) bool {
	on, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && on
}

func loadTestMode() {
	testMode.on.Store(parseTestMode(os.Getenv(testModeEnv)))
}

// InTestMode reports whether entrypoints should skip startup.
func InTestMode() bool {
	testMode.once.Do(loadTestMode)
	return testMode.on.Load()
}

// RefreshTestMode rereads the environment.
func RefreshTestMode() {
	testMode.once.Do(func() {})
	loadTestMode()
}
