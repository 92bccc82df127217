//go:build !noassert

package assert

import (
	"fmt"
	"runtime"
	"sync/atomic"
)

var disabled atomic.Bool

// Disable will disable assertion evaluation globally.
// This is concurrency safe, but can have side effects in other goroutines that use assertions.
func Disable() {
	disabled.Store(true)
}

// Enable can be used to re-enable assertion evaluation if Disable was called previously.
func Enable() {
	disabled.Store(false)
}

func getCallerDetails() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("'%s#%d'", file, line)
}

// True will panic with descriptive information if result is not true.
// Assertions guard internal invariants, a failure is a defect and not a recoverable condition.
func True(label string, result bool) {
	if disabled.Load() {
		return
	}
	if !result {
		panic(fmt.Sprintf("assertion '%s' failed at %s", label, getCallerDetails()))
	}
}

// TrueFunc will panic with descriptive information if assertion returns false.
// The assertion isn't evaluated at all while assertions are disabled.
func TrueFunc(label string, assertion func() bool) {
	if disabled.Load() {
		return
	}
	if !assertion() {
		panic(fmt.Sprintf("assertion '%s' failed at %s", label, getCallerDetails()))
	}
}
