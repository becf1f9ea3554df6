//go:build rp2040

package rp2040

import (
	"machine"
)

// GPIOPulser generates step pulses by toggling a GPIO pin directly.
// Simpler than the PIO backend and good to a few tens of kHz; pulse
// width comes from a short busy loop.
type GPIOPulser struct {
	stepPin    machine.Pin
	dirPin     machine.Pin
	invertStep bool
	invertDir  bool
}

// NewGPIOPulser configures the step and direction pins and leaves the
// step output at its idle level.
func NewGPIOPulser(stepPin, dirPin machine.Pin, invertStep, invertDir bool) *GPIOPulser {
	stepPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	dirPin.Configure(machine.PinConfig{Mode: machine.PinOutput})

	p := &GPIOPulser{
		stepPin:    stepPin,
		dirPin:     dirPin,
		invertStep: invertStep,
		invertDir:  invertDir,
	}
	p.stepIdle()
	p.SetDirection(true)
	return p
}

// Pulse emits one step edge pair. A4988/DRV8825-class drivers need
// roughly 2 µs high time; the busy loop gives about that at 125 MHz.
func (p *GPIOPulser) Pulse() {
	if p.invertStep {
		p.stepPin.Low()
	} else {
		p.stepPin.High()
	}
	for i := 0; i < 250; i++ {
	}
	p.stepIdle()
}

func (p *GPIOPulser) SetDirection(forward bool) {
	if forward != p.invertDir {
		p.dirPin.High()
	} else {
		p.dirPin.Low()
	}
}

func (p *GPIOPulser) stepIdle() {
	if p.invertStep {
		p.stepPin.High()
	} else {
		p.stepPin.Low()
	}
}
