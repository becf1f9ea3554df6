package core

// Mock hardware for host-side tests: recording pins, a manually fired
// one-shot timer and an endstop input with synthetic edges.

import (
	"sync"
	"testing"
)

type mockOut struct {
	mu    sync.Mutex
	level bool
}

func (o *mockOut) Set(high bool) {
	o.mu.Lock()
	o.level = high
	o.mu.Unlock()
}

func (o *mockOut) Level() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.level
}

type mockPulser struct {
	mu     sync.Mutex
	pulses int
	dir    bool
}

func (p *mockPulser) Pulse() {
	p.mu.Lock()
	p.pulses++
	p.mu.Unlock()
}

func (p *mockPulser) SetDirection(forward bool) {
	p.mu.Lock()
	p.dir = forward
	p.mu.Unlock()
}

func (p *mockPulser) Pulses() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pulses
}

func (p *mockPulser) Direction() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dir
}

// mockTimer implements PulseTimer; expiries happen only when the test
// calls Fire, so every pulse is deterministic.
type mockTimer struct {
	mu    sync.Mutex
	armed bool
	delay uint32
	fn    func()
}

func (t *mockTimer) Arm(delayMicros uint32, fn func()) {
	t.mu.Lock()
	t.armed = true
	t.delay = delayMicros
	t.fn = fn
	t.mu.Unlock()
}

func (t *mockTimer) Cancel() {
	t.mu.Lock()
	t.armed = false
	t.fn = nil
	t.mu.Unlock()
}

// Fire runs the pending expiry, if any. The callback executes outside
// the mock's lock because it re-arms the timer.
func (t *mockTimer) Fire() bool {
	t.mu.Lock()
	if !t.armed || t.fn == nil {
		t.mu.Unlock()
		return false
	}
	fn := t.fn
	t.armed = false
	t.mu.Unlock()
	fn()
	return true
}

func (t *mockTimer) Armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed
}

func (t *mockTimer) Delay() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.delay
}

// mockEndstop implements EdgeInput. setLevel raises an edge event on
// every level change, like a real switch wired to an interrupt pin.
type mockEndstop struct {
	mu      sync.Mutex
	level   bool
	handler func(rising bool)
}

func (e *mockEndstop) Read() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.level
}

func (e *mockEndstop) SetEdgeHandler(fn func(rising bool)) error {
	e.mu.Lock()
	e.handler = fn
	e.mu.Unlock()
	return nil
}

func (e *mockEndstop) setLevel(level bool) {
	e.mu.Lock()
	if e.level == level {
		e.mu.Unlock()
		return
	}
	e.level = level
	fn := e.handler
	e.mu.Unlock()
	if fn != nil {
		fn(level)
	}
}

func newTestStepper(t *testing.T) (*Stepper, *mockOut, *mockPulser, *mockTimer) {
	t.Helper()
	enable := &mockOut{}
	pulser := &mockPulser{}
	timer := &mockTimer{}
	s, err := New(enable, pulser, timer, 200, 1.0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, enable, pulser, timer
}

// drainTimer fires pending expiries until the sequencer goes idle.
func drainTimer(t *testing.T, timer *mockTimer) {
	t.Helper()
	for i := 0; i < 1000000; i++ {
		if !timer.Fire() {
			return
		}
	}
	t.Fatal("timer never went idle")
}
