//go:build linux && !tinygo

// Package periph adapts periph.io GPIO to the motion engine, for
// driving a stepper from the header pins of a Raspberry Pi or similar
// single-board computer. Timing comes from the Go runtime, so expect
// jitter in the tens of microseconds; fine for slow axes and bench
// work, not for high step rates.
package periph

import (
	"fmt"
	"os"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"stepdrive/core"
)

// Init loads the periph host drivers. Call once before looking up pins.
func Init() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("periph host init: %w", err)
	}
	return nil
}

// EnableStderrDebug routes engine debug output to stderr.
func EnableStderrDebug() {
	core.SetDebugWriter(func(msg string) { fmt.Fprintln(os.Stderr, msg) })
	core.SetDebugEnabled(true)
}

// Output drives one GPIO pin, optionally inverted.
type Output struct {
	pin    gpio.PinIO
	invert bool
}

// NewOutput looks up a pin by name ("GPIO17", "P1_11", ...) and drives
// it to its inactive level.
func NewOutput(name string, invert bool) (*Output, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("no such pin %q", name)
	}
	o := &Output{pin: pin, invert: invert}
	if err := pin.Out(gpio.Level(invert)); err != nil {
		return nil, fmt.Errorf("configure %s as output: %w", name, err)
	}
	return o, nil
}

func (o *Output) Set(high bool) {
	_ = o.pin.Out(gpio.Level(high != o.invert))
}

// Pulser bit-bangs step and direction pins.
type Pulser struct {
	step       *Output
	dir        *Output
	pulseWidth time.Duration
}

// NewPulser configures step and direction outputs. A 5 µs pulse width
// satisfies common driver ICs with margin for scheduler jitter.
func NewPulser(stepName, dirName string) (*Pulser, error) {
	step, err := NewOutput(stepName, false)
	if err != nil {
		return nil, err
	}
	dir, err := NewOutput(dirName, false)
	if err != nil {
		return nil, err
	}
	return &Pulser{step: step, dir: dir, pulseWidth: 5 * time.Microsecond}, nil
}

func (p *Pulser) Pulse() {
	p.step.Set(true)
	time.Sleep(p.pulseWidth)
	p.step.Set(false)
}

func (p *Pulser) SetDirection(forward bool) {
	p.dir.Set(forward)
}

// EdgeInput watches an endstop switch. periph delivers edges through a
// blocking WaitForEdge, so the handler runs on a dedicated goroutine
// rather than in interrupt context.
type EdgeInput struct {
	pin  gpio.PinIO
	mu   sync.Mutex
	stop chan struct{}
}

// NewEdgeInput configures name as an input watching both edges.
func NewEdgeInput(name string, pull gpio.Pull) (*EdgeInput, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("no such pin %q", name)
	}
	if err := pin.In(pull, gpio.BothEdges); err != nil {
		return nil, fmt.Errorf("configure %s as edge input: %w", name, err)
	}
	return &EdgeInput{pin: pin}, nil
}

func (in *EdgeInput) Read() bool {
	return in.pin.Read() == gpio.High
}

// SetEdgeHandler starts a watcher goroutine delivering edges to fn.
// Installing a new handler replaces the previous watcher. The timeout
// on WaitForEdge keeps shutdown prompt.
func (in *EdgeInput) SetEdgeHandler(fn func(rising bool)) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.stop != nil {
		close(in.stop)
	}
	stop := make(chan struct{})
	in.stop = stop

	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}
			if !in.pin.WaitForEdge(100 * time.Millisecond) {
				continue
			}
			fn(in.pin.Read() == gpio.High)
		}
	}()
	return nil
}

// Close stops the edge watcher and halts the pin.
func (in *EdgeInput) Close() error {
	in.mu.Lock()
	if in.stop != nil {
		close(in.stop)
		in.stop = nil
	}
	in.mu.Unlock()
	return in.pin.Halt()
}

// RuntimeTimer implements the engine's pulse timer with time.AfterFunc.
// Expiries run on the runtime timer goroutine.
type RuntimeTimer struct {
	mu sync.Mutex
	t  *time.Timer
}

func NewRuntimeTimer() *RuntimeTimer {
	return &RuntimeTimer{}
}

func (rt *RuntimeTimer) Arm(delayMicros uint32, fn func()) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.t != nil {
		rt.t.Stop()
	}
	rt.t = time.AfterFunc(time.Duration(delayMicros)*time.Microsecond, fn)
}

func (rt *RuntimeTimer) Cancel() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.t != nil {
		rt.t.Stop()
	}
}
