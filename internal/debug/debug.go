// Package debug implements the conversion pipeline's only process-wide
// shared state: an optional debug-configuration singleton with
// init-on-first-use, explicit disable, and no teardown requirement (spec
// §5: "Shared resources").
package debug

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

var (
	mu        sync.Mutex
	enabled   bool
	verbosity int
)

// Enable turns on debug tracing process-wide at the given verbosity (higher
// is more verbose). Safe to call from multiple goroutines.
func Enable(verbosityLevel int) {
	mu.Lock()
	defer mu.Unlock()
	enabled = true
	verbosity = verbosityLevel
}

// Disable turns off debug tracing process-wide.
func Disable() {
	mu.Lock()
	defer mu.Unlock()
	enabled = false
}

// Enabled reports whether tracing is currently on.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// Tracef writes a trace line to stderr, indented by depth, if tracing is
// enabled and depth does not exceed the configured verbosity. depth is
// typically the caller's tree-traversal depth, so deeply nested detail is
// suppressed at low verbosity without the caller needing to know the
// current setting.
func Tracef(depth int, format string, args ...any) {
	mu.Lock()
	on, v := enabled, verbosity
	mu.Unlock()
	if !on || depth > v {
		return
	}
	fmt.Fprintf(os.Stderr, "%s%s\n", strings.Repeat("  ", depth), fmt.Sprintf(format, args...))
}
