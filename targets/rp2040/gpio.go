//go:build rp2040

// Package rp2040 provides the hardware backend for Raspberry Pi RP2040
// boards: machine-layer pin outputs, interrupt-driven endstop inputs, a
// TIMER-alarm pulse timer and step pulse generators (plain GPIO or PIO).
package rp2040

import (
	"machine"
)

// Output drives a single GPIO pin, optionally inverted for active-low
// hardware such as driver enable inputs.
type Output struct {
	pin    machine.Pin
	invert bool
}

// NewOutput configures pin as a push-pull output and returns it driven
// to its inactive level.
func NewOutput(pin machine.Pin, invert bool) *Output {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	o := &Output{pin: pin, invert: invert}
	o.Set(false)
	return o
}

func (o *Output) Set(high bool) {
	if high != o.invert {
		o.pin.High()
	} else {
		o.pin.Low()
	}
}

// EdgeInput wires an endstop switch through the pin interrupt unit. The
// handler runs in interrupt context, so it must stay short and lock-free
// on the caller's side.
type EdgeInput struct {
	pin     machine.Pin
	handler func(rising bool)
}

// NewEdgeInput configures pin as an input with the requested pull. Most
// endstop switches are wired to ground, so pullUp is the common choice.
func NewEdgeInput(pin machine.Pin, pullUp bool) *EdgeInput {
	mode := machine.PinInputPulldown
	if pullUp {
		mode = machine.PinInputPullup
	}
	pin.Configure(machine.PinConfig{Mode: mode})
	return &EdgeInput{pin: pin}
}

func (in *EdgeInput) Read() bool {
	return in.pin.Get()
}

// SetEdgeHandler installs fn for both edges. The reported polarity is
// the pin level sampled inside the interrupt, which survives the slight
// latency between the edge and the handler running.
func (in *EdgeInput) SetEdgeHandler(fn func(rising bool)) error {
	in.handler = fn
	return in.pin.SetInterrupt(machine.PinToggle, func(p machine.Pin) {
		if h := in.handler; h != nil {
			h(p.Get())
		}
	})
}
