//go:build !tinygo

package core

// State is a placeholder for interrupt state on regular Go.
type State uintptr

// disableInterrupts is a no-op on regular Go (host-side tests and the
// periph backend run handlers in goroutines instead of interrupts).
func disableInterrupts() State {
	return 0
}

// restoreInterrupts is a no-op on regular Go.
func restoreInterrupts(State) {
}
