package core

import (
	"math"
	"testing"
	"time"
)

func TestMoveStepsCompletesExactCount(t *testing.T) {
	s, _, pulser, timer := newTestStepper(t)

	if err := s.MoveSteps(50); err != nil {
		t.Fatalf("MoveSteps: %v", err)
	}
	if !s.IsMoving() {
		t.Fatal("expected stepper to be moving after MoveSteps")
	}
	drainTimer(t, timer)

	if got := s.CurrentStep(); got != 50 {
		t.Errorf("currentStep = %d, want 50", got)
	}
	if got := pulser.Pulses(); got != 50 {
		t.Errorf("pulses = %d, want 50", got)
	}
	if s.IsMoving() {
		t.Error("still moving after travel ended")
	}
}

func TestMoveStepsNegativeDirection(t *testing.T) {
	s, _, pulser, timer := newTestStepper(t)

	if err := s.MoveSteps(-30); err != nil {
		t.Fatalf("MoveSteps: %v", err)
	}
	drainTimer(t, timer)

	if got := s.CurrentStep(); got != -30 {
		t.Errorf("currentStep = %d, want -30", got)
	}
	if pulser.Direction() != Anticlockwise {
		t.Error("direction pin not set anticlockwise")
	}
}

func TestMoveZeroStepsIsNoop(t *testing.T) {
	s, _, pulser, timer := newTestStepper(t)

	if err := s.MoveSteps(0); err != nil {
		t.Fatalf("MoveSteps(0): %v", err)
	}
	if s.IsMoving() || timer.Armed() || pulser.Pulses() != 0 {
		t.Error("zero-step move should not start the sequencer")
	}
}

func TestMoveStepsSaturatesExtremeCounts(t *testing.T) {
	s, _, pulser, _ := newTestStepper(t)

	// math.MinInt64 has no int64 negation; the magnitude must still come
	// out right and clamp to the 32-bit budget.
	if err := s.MoveSteps(math.MinInt64); err != nil {
		t.Fatalf("MoveSteps(MinInt64): %v", err)
	}
	if pulser.Direction() != Anticlockwise {
		t.Error("MinInt64 move not anticlockwise")
	}
	// First pulse fires inside the call.
	if got := s.remainingSteps.Load(); got != math.MaxUint32-1 {
		t.Errorf("remainingSteps = %d, want %d", got, uint32(math.MaxUint32-1))
	}
	s.Stop()

	if err := s.MoveSteps(math.MaxInt64); err != nil {
		t.Fatalf("MoveSteps(MaxInt64): %v", err)
	}
	if pulser.Direction() != Clockwise {
		t.Error("MaxInt64 move not clockwise")
	}
	if got := s.remainingSteps.Load(); got != math.MaxUint32-1 {
		t.Errorf("remainingSteps = %d, want %d", got, uint32(math.MaxUint32-1))
	}
	s.Stop()
}

func TestStepWhileMovingRefused(t *testing.T) {
	s, _, _, _ := newTestStepper(t)

	if err := s.MoveSteps(10); err != nil {
		t.Fatalf("MoveSteps: %v", err)
	}
	// First pulse fires inside the call, so 9 remain.
	before := s.remainingSteps.Load()

	if err := s.MoveSteps(5); err != ErrAlreadyMoving {
		t.Fatalf("second MoveSteps = %v, want ErrAlreadyMoving", err)
	}
	if got := s.remainingSteps.Load(); got != before {
		t.Errorf("remainingSteps mutated by refused move: %d -> %d", before, got)
	}
}

func TestMutexTimeoutSurfaced(t *testing.T) {
	s, _, _, _ := newTestStepper(t)
	s.lockTimeout = 10 * time.Millisecond

	if !s.mu.lockFor(time.Second) {
		t.Fatal("could not take lock for test")
	}
	defer s.mu.unlock()

	if err := s.MoveSteps(10); err != ErrMutexTimeout {
		t.Fatalf("MoveSteps with held lock = %v, want ErrMutexTimeout", err)
	}
	if err := s.SetMaxSpeed(2.0); err != ErrMutexTimeout {
		t.Fatalf("SetMaxSpeed with held lock = %v, want ErrMutexTimeout", err)
	}
}

func TestWaitForTravelEnd(t *testing.T) {
	s, _, _, timer := newTestStepper(t)

	// No move in flight: returns immediately.
	if err := s.WaitForTravelEnd(10 * time.Millisecond); err != nil {
		t.Fatalf("idle wait: %v", err)
	}

	if err := s.MoveSteps(20); err != nil {
		t.Fatalf("MoveSteps: %v", err)
	}
	go func() {
		for timer.Fire() {
			time.Sleep(100 * time.Microsecond)
		}
	}()
	if err := s.WaitForTravelEnd(time.Second); err != nil {
		t.Fatalf("WaitForTravelEnd: %v", err)
	}
	if s.IsMoving() {
		t.Error("moving after travel end signaled")
	}
}

func TestWaitForTravelEndTimeout(t *testing.T) {
	s, _, _, _ := newTestStepper(t)

	if err := s.MoveSteps(100); err != nil {
		t.Fatalf("MoveSteps: %v", err)
	}
	// Nobody fires the timer, so the move never finishes.
	if err := s.WaitForTravelEnd(20 * time.Millisecond); err != ErrTravelWaitTimeout {
		t.Fatalf("WaitForTravelEnd = %v, want ErrTravelWaitTimeout", err)
	}
	if !s.IsMoving() {
		t.Error("timeout should leave the move in flight")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	s, _, _, timer := newTestStepper(t)

	if err := s.MoveSteps(100); err != nil {
		t.Fatalf("MoveSteps: %v", err)
	}
	s.Stop()
	if s.IsMoving() || timer.Armed() {
		t.Error("Stop left the sequencer running")
	}
	s.Stop() // second call must be safe

	if err := s.WaitForTravelEnd(10 * time.Millisecond); err != nil {
		t.Errorf("wait after Stop: %v", err)
	}
}

func TestActiveBrakingPolicy(t *testing.T) {
	s, _, _, timer := newTestStepper(t)

	// Default: release the enable output at travel end.
	if err := s.MoveSteps(5); err != nil {
		t.Fatalf("MoveSteps: %v", err)
	}
	if !s.IsEnabled() {
		t.Fatal("move start should energize the motor")
	}
	drainTimer(t, timer)
	if s.IsEnabled() {
		t.Error("default policy should de-energize at travel end")
	}

	if err := s.SetActiveBraking(true); err != nil {
		t.Fatalf("SetActiveBraking: %v", err)
	}
	if err := s.MoveSteps(5); err != nil {
		t.Fatalf("MoveSteps: %v", err)
	}
	drainTimer(t, timer)
	if !s.IsEnabled() {
		t.Error("active braking should hold the motor energized")
	}
}

func TestEnablePinActiveLow(t *testing.T) {
	s, enable, _, _ := newTestStepper(t)

	if err := s.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if enable.Level() {
		t.Error("active-low enable should drive the pin low when energized")
	}
	if err := s.Disable(); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	if !enable.Level() {
		t.Error("active-low enable should drive the pin high when released")
	}

	if err := s.SetEnableActiveLow(false); err != nil {
		t.Fatalf("SetEnableActiveLow: %v", err)
	}
	if err := s.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if !enable.Level() {
		t.Error("active-high enable should drive the pin high when energized")
	}
}

func TestReverseFlipsOutputNotCounter(t *testing.T) {
	s, _, pulser, timer := newTestStepper(t)

	if err := s.Reverse(true); err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	if err := s.MoveSteps(10); err != nil {
		t.Fatalf("MoveSteps: %v", err)
	}
	drainTimer(t, timer)

	if pulser.Direction() != Anticlockwise {
		t.Error("reversed clockwise move should drive the pin anticlockwise")
	}
	if got := s.CurrentStep(); got != 10 {
		t.Errorf("currentStep = %d, want 10 (counter follows the request)", got)
	}
}

func TestDegreeAndPositionConversions(t *testing.T) {
	s, _, _, timer := newTestStepper(t)

	// 200 steps/rev: 90 degrees is 50 steps.
	if err := s.MoveDegrees(90); err != nil {
		t.Fatalf("MoveDegrees: %v", err)
	}
	drainTimer(t, timer)
	if got := s.CurrentStep(); got != 50 {
		t.Fatalf("currentStep = %d, want 50", got)
	}
	if got := s.GetDegrees(); math.Abs(got-90) > 1e-9 {
		t.Errorf("GetDegrees = %v, want 90", got)
	}

	// unitsPerRev=1.0: a quarter revolution is 0.25 units.
	if got := s.GetPosition(); math.Abs(got-0.25) > 1e-9 {
		t.Errorf("GetPosition = %v, want 0.25", got)
	}

	if err := s.GoToRotation(0); err != nil {
		t.Fatalf("GoToRotation: %v", err)
	}
	drainTimer(t, timer)
	if got := s.CurrentStep(); got != 0 {
		t.Errorf("currentStep after GoToRotation(0) = %d, want 0", got)
	}

	if err := s.GoToPosition(0.5); err != nil {
		t.Fatalf("GoToPosition: %v", err)
	}
	drainTimer(t, timer)
	if got := s.CurrentStep(); got != 100 {
		t.Errorf("currentStep after GoToPosition(0.5) = %d, want 100", got)
	}
}

func TestWaitBlocking(t *testing.T) {
	s, _, _, timer := newTestStepper(t)

	if err := s.MoveSteps(20); err != nil {
		t.Fatalf("MoveSteps: %v", err)
	}
	go func() {
		for timer.Fire() {
			time.Sleep(50 * time.Microsecond)
		}
	}()
	s.WaitBlocking()
	if s.IsMoving() {
		t.Error("WaitBlocking returned while still moving")
	}
}
