// Package testing flips the process into test mode. Test binaries that start
// entrypoints import it for its side effect.
package testing

import (
	"os"
	"sync"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("B2B_TEST_MODE", "1")
	})
}

func init() {
	ensureTestMode()
}
