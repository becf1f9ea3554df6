package core

// DebugWriter is a function type for writing debug messages.
type DebugWriter func(string)

var (
	// debugPrintln is the global debug print function, set by platform
	// code. No-op by default so the motion engine carries no output
	// dependency on TinyGo targets.
	debugPrintln DebugWriter = func(string) {}

	// Disabled by default; debug output from the homing path can disturb
	// pulse timing on slow serial links.
	debugEnabled bool
)

// SetDebugWriter sets the platform-specific debug output function.
// Targets redirect output to UART, USB serial or stdout.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output.
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// DebugPrintln writes a debug message using the platform writer.
// Never call from interrupt context; writers may block.
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}
