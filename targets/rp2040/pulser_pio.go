//go:build rp2040

package rp2040

import (
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// PIOPulser generates step pulses on a PIO state machine, which keeps
// pulse width and edges hardware-timed regardless of interrupt load.
//
// Command word format, shifted out LSB first: see pulseCommand.
type PIOPulser struct {
	pio     *rp2pio.PIO
	sm      rp2pio.StateMachine
	stepPin machine.Pin
	dirPin  machine.Pin
	forward bool
	offset  uint8
}

// pulserProgram builds the PIO program: pull a command word, unpack
// count, delay and direction, then loop emitting pulses. Loaded at
// origin 0 so the jump targets are absolute.
func pulserProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		asm.Pull(false, true).Encode(),          // 0: pull block
		asm.Out(rp2pio.OutDestX, 16).Encode(),   // 1: out x, 16
		asm.Out(rp2pio.OutDestY, 8).Encode(),    // 2: out y, 8
		asm.Out(rp2pio.OutDestPins, 1).Encode(), // 3: out pins, 1 (direction)
		// step loop
		asm.Set(rp2pio.SetDestPins, 1).Delay(7).Encode(), // 4: set pins, 1 [7]
		asm.Set(rp2pio.SetDestPins, 0).Encode(),          // 5: set pins, 0
		asm.Jmp(6, rp2pio.JmpYNZeroDec).Encode(),         // 6: jmp y--, 6
		asm.Jmp(4, rp2pio.JmpXNZeroDec).Encode(),         // 7: jmp x--, 4
	}
}

const pulserOrigin = 0

// NewPIOPulser claims sm on the given PIO block, loads the pulse
// program and starts the state machine with both pins idle low.
func NewPIOPulser(pioNum, smNum uint8, stepPin, dirPin machine.Pin) (*PIOPulser, error) {
	pioHW := rp2pio.PIO0
	if pioNum != 0 {
		pioHW = rp2pio.PIO1
	}

	p := &PIOPulser{
		pio:     pioHW,
		sm:      pioHW.StateMachine(smNum),
		stepPin: stepPin,
		dirPin:  dirPin,
	}
	p.sm.TryClaim()

	program := pulserProgram()
	offset, err := p.pio.AddProgram(program, pulserOrigin)
	if err != nil {
		return nil, err
	}
	p.offset = offset

	stepPin.Configure(machine.PinConfig{Mode: p.pio.PinMode()})
	dirPin.Configure(machine.PinConfig{Mode: p.pio.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetSetPins(stepPin, 1)
	cfg.SetOutPins(dirPin, 1)
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)
	// 125 MHz / 1000: pulse width and delay cycles count in 8 µs units.
	cfg.SetClkDivIntFrac(1000, 0)

	p.sm.Init(offset, cfg)

	// Pin directions must be set after Init.
	p.sm.SetPindirsConsecutive(stepPin, 1, true)
	p.sm.SetPindirsConsecutive(dirPin, 1, true)
	p.sm.SetPinsConsecutive(stepPin, 1, false)
	p.sm.SetPinsConsecutive(dirPin, 1, false)

	p.sm.SetEnabled(true)
	return p, nil
}

// Pulse pushes a one-step command to the state machine. Safe from
// interrupt context: the FIFO wait is bounded by a single in-flight
// pulse at engine step rates.
func (p *PIOPulser) Pulse() {
	cmd := pulseCommand(1, 1, p.forward)
	for p.sm.IsTxFIFOFull() {
	}
	p.sm.TxPut(cmd)
}

func (p *PIOPulser) SetDirection(forward bool) {
	p.forward = forward
}

// Flush discards queued pulses and restarts the state machine. Useful
// after an abort so stale commands cannot emit extra steps.
func (p *PIOPulser) Flush() {
	p.sm.SetEnabled(false)
	p.sm.ClearFIFOs()
	p.sm.Restart()
	p.sm.SetEnabled(true)
}
