// Package core implements a trapezoidal-profile stepper motion engine:
// an interrupt-driven step sequencer, endstop handling and a blocking
// homing protocol, all on top of a small hardware abstraction layer.
// Platform backends live under targets/ and are selected by build tags.
package core

// DigitalOut is a single digital output line. Set writes the physical
// pin level; polarity (active-low enable, etc.) is handled by the caller.
type DigitalOut interface {
	Set(high bool)
}

// StepPulser generates step pulses and drives the direction output.
// Implementations can use plain GPIO, PIO state machines, or other
// hardware. Mirrors the stepper driver's STEP/DIR electrical interface.
type StepPulser interface {
	// Pulse emits one step pulse. The implementation must hold the step
	// line asserted long enough for the driver hardware (typically a few
	// microseconds) before deasserting; Pulse is called from timer
	// interrupt context and must be fast.
	Pulse()

	// SetDirection sets the direction output. true = forward.
	// Must ensure proper dir-to-step setup time before the next Pulse.
	SetDirection(forward bool)
}

// EdgeInput is a digital input capable of raising edge events, used for
// endstop switches. Pull mode is configured by the platform backend when
// the input is constructed.
type EdgeInput interface {
	// Read returns the current logical level of the input.
	Read() bool

	// SetEdgeHandler installs fn to be invoked from interrupt context on
	// every edge, with rising=true for a low-to-high transition.
	// Installing a new handler replaces the previous one.
	SetEdgeHandler(fn func(rising bool)) error
}

// PulseTimer is a re-armable one-shot timer. The step sequencer arms it
// once per pulse; fn runs in interrupt (or timer goroutine) context.
type PulseTimer interface {
	// Arm schedules fn to run once after delayMicros microseconds,
	// replacing any pending expiry.
	Arm(delayMicros uint32, fn func())

	// Cancel drops any pending expiry. Cancel may race with an expiry
	// already in flight; callers must tolerate one spurious callback.
	Cancel()
}
