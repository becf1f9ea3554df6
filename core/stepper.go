// Stepper motion engine: timed step-pulse sequencing with a trapezoidal
// velocity profile. One calling thread plus interrupt context share the
// motion state; see the field comments for the ownership rules.
package core

import (
	"math"
	"sync/atomic"
	"time"
)

// Rotation directions. Clockwise increments the step counter.
const (
	Clockwise     = true
	Anticlockwise = false
)

// Defaults, in abstract speed units (revolutions of speed per profiler
// tick; the absolute scale is set by the steps-per-revolution figure).
const (
	DefaultMaxSpeed  = 1.0
	DefaultMinSpeed  = 0.1
	DefaultHomeSpeed = 0.25

	// BaseSpeedInterval is the per-step speed change at acceleration
	// multiplier 1.0.
	BaseSpeedInterval = 0.001

	// DefaultLockTimeout bounds state-lock acquisition for every public
	// operation.
	DefaultLockTimeout = 50 * time.Millisecond

	// DefaultHomingTimeout bounds the whole homing protocol. Zero
	// disables the bound.
	DefaultHomingTimeout = 30 * time.Second
)

// Stepper drives one stepper motor through a StepPulser and a one-shot
// PulseTimer, tracking up to two endstops.
//
// Concurrency model: configuration fields are guarded by a timed lock.
// The fields written per pulse (currentStep, remainingSteps, moving,
// speed) are owned by the sequencer while a move is in flight; the
// application thread observes them through atomics and may see a value
// stale by at most one pulse. The interrupt-context paths never take
// the lock.
type Stepper struct {
	mu          *timedMutex
	lockTimeout time.Duration

	enable DigitalOut // may be nil if the driver has no enable input
	pulser StepPulser
	timer  PulseTimer

	stepsPerRev uint32
	unitsPerRev float64

	// Configuration, lock-guarded.
	enActiveLow   bool
	reverse       bool
	activeBraking bool
	maxSpeed      float64
	minSpeed      float64
	homeSpeed     float64
	speedInterval float64
	homingTimeout time.Duration

	// Endstop slots and callbacks; see endstop.go.
	lower           EdgeInput
	upper           EdgeInput
	invertEndstops  atomic.Bool
	onHit           func(EndstopID)
	onReleased      func(EndstopID)
	endstopHit      atomic.Int32
	endstopReleased atomic.Int32

	// Per-move state, written under lock before the first pulse and then
	// read only by the sequencer.
	logicalDir        bool
	slowdownThreshold uint32
	speed             float64

	// Time-critical fields, sequencer-owned during a move.
	currentStep    atomic.Int64
	remainingSteps atomic.Uint32
	moving         atomic.Bool
	homing         atomic.Bool

	// Travel-end signal. travelDone is replaced per move under the lock
	// and closed exactly once via travelEnded.
	travelDone  chan struct{}
	travelEnded atomic.Bool
	energized   atomic.Bool
}

// New creates a stepper. enable may be nil for drivers without an
// enable input. The motor starts de-energized; the first move (or an
// explicit Enable call) energizes it.
func New(enable DigitalOut, pulser StepPulser, timer PulseTimer, stepsPerRev uint32, unitsPerRev float64) (*Stepper, error) {
	if pulser == nil || timer == nil || stepsPerRev == 0 {
		return nil, ErrInvalidConfig
	}
	if unitsPerRev == 0 {
		unitsPerRev = 1.0
	}
	s := &Stepper{
		mu:            newTimedMutex(),
		lockTimeout:   DefaultLockTimeout,
		enable:        enable,
		pulser:        pulser,
		timer:         timer,
		stepsPerRev:   stepsPerRev,
		unitsPerRev:   unitsPerRev,
		enActiveLow:   true,
		maxSpeed:      DefaultMaxSpeed,
		minSpeed:      DefaultMinSpeed,
		homeSpeed:     DefaultHomeSpeed,
		speedInterval: BaseSpeedInterval,
		homingTimeout: DefaultHomingTimeout,
		travelDone:    make(chan struct{}),
	}
	// No move has run yet; leave the initial channel closed so waits
	// return immediately.
	close(s.travelDone)
	s.travelEnded.Store(true)
	s.setEnergized(false)
	return s, nil
}

// step validates and arms a move of steps pulses in the given logical
// direction, emitting the first pulse synchronously. Asynchronous from
// there on; the call does not wait for completion.
func (s *Stepper) step(steps uint32, direction bool) error {
	if !s.mu.lockFor(s.lockTimeout) {
		return ErrMutexTimeout
	}
	defer s.mu.unlock()

	if EndstopID(s.endstopHit.Load()) != EndstopNone && !s.homing.Load() {
		return ErrEndstopHit
	}
	if s.moving.Load() {
		return ErrAlreadyMoving
	}
	if steps == 0 {
		return nil
	}

	s.setEnergized(true)

	s.logicalDir = direction
	phys := direction
	if s.reverse {
		phys = !phys
	}
	s.pulser.SetDirection(phys)

	s.slowdownThreshold = slowdownThreshold(steps, s.maxSpeed, s.minSpeed, s.speedInterval)
	s.speed = s.minSpeed

	s.remainingSteps.Store(steps)
	s.travelDone = make(chan struct{})
	s.travelEnded.Store(false)
	s.moving.Store(true)

	// First pulse fires inside the call so motion observably begins
	// before step returns; the timer takes over afterwards.
	s.onStepTimer()
	return nil
}

// onStepTimer is the per-pulse sequencer, invoked synchronously for the
// first pulse and from timer expiry for all subsequent ones. It is never
// re-entered: the timer is re-armed only after bookkeeping completes.
func (s *Stepper) onStepTimer() {
	if !s.moving.Load() {
		// Canceled between expiry and dispatch. An endstop or Stop won
		// the race; swallow the spurious callback.
		return
	}

	remaining := s.remainingSteps.Load()
	if remaining == 0 {
		s.finishMove()
		return
	}

	s.pulser.Pulse()
	if s.logicalDir {
		s.currentStep.Add(1)
	} else {
		s.currentStep.Add(-1)
	}

	// Homing moves are unbounded: the step budget stays put and the
	// endstop interrupt is what ends the move.
	if !s.homing.Load() {
		remaining = s.remainingSteps.Add(^uint32(0))
	}
	if remaining == 0 {
		s.finishMove()
		return
	}

	s.advanceSpeed(remaining)
	s.timer.Arm(s.stepDelayMicros(), s.onStepTimer)
}

// finishMove transitions Stepping back to Idle.
func (s *Stepper) finishMove() {
	s.moving.Store(false)
	if !s.activeBraking {
		s.setEnergized(false)
	}
	s.signalTravelEnd()
}

// signalTravelEnd wakes travel-end waiters exactly once per move. Safe
// from any context and idempotent.
func (s *Stepper) signalTravelEnd() {
	if s.travelEnded.CompareAndSwap(false, true) {
		close(s.travelDone)
	}
}

// Stop cancels the pending pulse and halts motion. Safe to call from
// any context, idempotent, and never blocks.
func (s *Stepper) Stop() {
	state := disableInterrupts()
	s.timer.Cancel()
	s.moving.Store(false)
	restoreInterrupts(state)
	s.signalTravelEnd()
}

// MoveSteps moves by a signed step count. Positive is clockwise.
// Magnitudes beyond the sequencer's 32-bit step budget saturate.
func (s *Stepper) MoveSteps(steps int64) error {
	if steps < 0 {
		return s.step(clampStepCount(uint64(-steps)), Anticlockwise)
	}
	return s.step(clampStepCount(uint64(steps)), Clockwise)
}

// clampStepCount saturates a step magnitude to the 32-bit budget. The
// uint64 magnitude is exact even for math.MinInt64, whose int64
// negation wraps to itself.
func clampStepCount(n uint64) uint32 {
	if n > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(n)
}

// MoveDegrees moves by a signed rotation. Positive is clockwise.
func (s *Stepper) MoveDegrees(degrees float64) error {
	direction := Clockwise
	if degrees < 0 {
		degrees = -degrees
		direction = Anticlockwise
	}
	return s.step(uint32((degrees/360.0)*float64(s.stepsPerRev)), direction)
}

// MovePosition moves by a signed distance in linear units.
func (s *Stepper) MovePosition(units float64) error {
	return s.MoveDegrees((units / s.unitsPerRev) * 360.0)
}

// GoToRotation moves to a net rotation. Targets beyond 360 degrees are
// valid; the counter is cumulative since startup or the last home.
func (s *Stepper) GoToRotation(degrees float64) error {
	return s.MoveDegrees(degrees - s.GetDegrees())
}

// GoToPosition moves to a net position in linear units.
func (s *Stepper) GoToPosition(units float64) error {
	return s.GoToRotation((units / s.unitsPerRev) * 360.0)
}

// WaitBlocking polls until the motor stops moving.
func (s *Stepper) WaitBlocking() {
	for s.moving.Load() {
		time.Sleep(time.Millisecond)
	}
}

// WaitForTravelEnd blocks until the in-flight move ends or timeout
// elapses (timeout <= 0 waits forever). On ErrTravelWaitTimeout the
// motion state is unknown; re-query IsMoving and LastEndstopHit.
func (s *Stepper) WaitForTravelEnd(timeout time.Duration) error {
	if !s.mu.lockFor(s.lockTimeout) {
		return ErrMutexTimeout
	}
	done := s.travelDone
	s.mu.unlock()

	if timeout <= 0 {
		<-done
		return nil
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-done:
		return nil
	case <-t.C:
		return ErrTravelWaitTimeout
	}
}

// CurrentStep returns the signed net step count since startup or the
// last home. Updated exactly once per emitted pulse.
func (s *Stepper) CurrentStep() int64 {
	return s.currentStep.Load()
}

// GetDegrees returns the net rotation in degrees.
func (s *Stepper) GetDegrees() float64 {
	return (float64(s.currentStep.Load()) / float64(s.stepsPerRev)) * 360.0
}

// GetPosition returns the net position in linear units.
func (s *Stepper) GetPosition() float64 {
	return s.GetDegrees() * (s.unitsPerRev / 360.0)
}

// IsMoving reports whether a move (including homing travel) is in
// flight. May lag the sequencer by one pulse.
func (s *Stepper) IsMoving() bool {
	return s.moving.Load()
}

// IsHoming reports whether the homing protocol owns the sequencer.
func (s *Stepper) IsHoming() bool {
	return s.homing.Load()
}

// Enable energizes the motor independent of any move.
func (s *Stepper) Enable() error {
	return s.setEnable(true)
}

// Disable de-energizes the motor. With no active braking the shaft
// free-spins.
func (s *Stepper) Disable() error {
	return s.setEnable(false)
}

// IsEnabled reports whether the enable output is energized.
func (s *Stepper) IsEnabled() bool {
	return s.energized.Load()
}

func (s *Stepper) setEnable(on bool) error {
	if !s.mu.lockFor(s.lockTimeout) {
		return ErrMutexTimeout
	}
	defer s.mu.unlock()
	s.setEnergized(on)
	return nil
}

// setEnergized drives the enable pin, honoring active-low polarity.
// Called from both the API (under lock) and interrupt context; the pin
// write itself is a single level change.
func (s *Stepper) setEnergized(on bool) {
	s.energized.Store(on)
	if s.enable == nil {
		return
	}
	s.enable.Set(on != s.enActiveLow)
}

// SetActiveBraking selects whether the enable output stays energized
// after a move ends (holding torque) or is released (free spin, power
// saving). An endstop hit always de-energizes regardless.
func (s *Stepper) SetActiveBraking(enabled bool) error {
	if !s.mu.lockFor(s.lockTimeout) {
		return ErrMutexTimeout
	}
	defer s.mu.unlock()
	s.activeBraking = enabled
	return nil
}

// SetEnableActiveLow sets the enable pin polarity. Active-low is the
// default, matching common driver boards.
func (s *Stepper) SetEnableActiveLow(activeLow bool) error {
	if !s.mu.lockFor(s.lockTimeout) {
		return ErrMutexTimeout
	}
	defer s.mu.unlock()
	s.enActiveLow = activeLow
	return nil
}

// Reverse flips the motor output direction: requested clockwise becomes
// physical anticlockwise and vice versa. The step counter keeps counting
// in the requested sense.
func (s *Stepper) Reverse(reverse bool) error {
	if !s.mu.lockFor(s.lockTimeout) {
		return ErrMutexTimeout
	}
	defer s.mu.unlock()
	s.reverse = reverse
	return nil
}

// SetHomingTimeout bounds the whole homing protocol. Zero disables the
// bound; leave it set on real hardware so broken endstop wiring surfaces
// as ErrHomingTimeout instead of a hang.
func (s *Stepper) SetHomingTimeout(d time.Duration) error {
	if !s.mu.lockFor(s.lockTimeout) {
		return ErrMutexTimeout
	}
	defer s.mu.unlock()
	s.homingTimeout = d
	return nil
}
