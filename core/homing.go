// Homing: a blocking three-phase protocol that drives into an endstop,
// backs off until the switch releases, overtravels a caller-supplied
// step count, and re-zeros the position counter.
package core

import "time"

// homingMoveSteps is the nominal step budget for a homing move. With
// the homing flag suppressing step accounting the budget is never
// consumed; the endstop interrupt or an explicit Stop ends the move.
const homingMoveSteps = 1000000000

// Home runs the homing protocol against the given endstop slot and
// blocks until the stepper sits bounceSteps past the switch release
// point with currentStep zeroed. The lower endstop is sought
// anticlockwise, the upper clockwise. Homing paces every pulse at the
// homing speed; the trapezoidal profile does not apply.
//
// Concurrent calls fail with ErrAlreadyHoming. If the endstop never
// triggers within the homing timeout, Home stops the motor and returns
// ErrHomingTimeout.
func (s *Stepper) Home(bounceSteps uint32, id EndstopID) error {
	if !s.homing.CompareAndSwap(false, true) {
		return ErrAlreadyHoming
	}
	defer s.homing.Store(false)

	if !s.mu.lockFor(s.lockTimeout) {
		return ErrMutexTimeout
	}
	in, err := s.endstopInput(id)
	timeout := s.homingTimeout
	s.mu.unlock()
	if err != nil {
		return err
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	s.Stop()
	DebugPrintln("homing: seeking " + id.String() + " endstop")

	seekDir := Anticlockwise
	if id == EndstopUpper {
		seekDir = Clockwise
	}

	// Seek: drive toward the endstop until it triggers. Each issued move
	// is effectively unbounded and runs until the endstop interrupt cuts
	// it short; the outer loop re-reads the switch before trusting the
	// trigger.
	for !s.endstopTriggered(in) {
		if err := s.step(homingMoveSteps, seekDir); err != nil {
			return err
		}
		if err := s.waitTravel(deadline); err != nil {
			s.Stop()
			return err
		}
	}

	DebugPrintln("homing: bouncing off endstop")

	// Bounce: back away until the switch physically releases. A switch
	// stays asserted while depressed, and the releasing edge records
	// state without stopping motion, so poll and stop explicitly.
	for s.endstopTriggered(in) {
		if err := s.step(homingMoveSteps, !seekDir); err != nil {
			return err
		}
		for s.endstopTriggered(in) {
			if deadlineExpired(deadline) {
				s.Stop()
				return ErrHomingTimeout
			}
			time.Sleep(200 * time.Microsecond)
		}
		s.Stop()
	}

	// Overtravel: put bounceSteps between the switch and the rest
	// position so the next approach re-triggers cleanly instead of
	// sitting at the exact threshold.
	if bounceSteps > 0 {
		start := s.currentStep.Load()
		if err := s.step(homingMoveSteps, !seekDir); err != nil {
			return err
		}
		for stepDelta(s.currentStep.Load(), start) < int64(bounceSteps) {
			if deadlineExpired(deadline) {
				s.Stop()
				return ErrHomingTimeout
			}
			time.Sleep(200 * time.Microsecond)
		}
		s.Stop()
	}

	// Zero: this hit was the point of the exercise, not an error.
	s.currentStep.Store(0)
	if err := s.ClearEndstopHit(); err != nil {
		return err
	}
	DebugPrintln("homing: done")
	return nil
}

// waitTravel blocks until the current homing move ends, bounded by the
// homing deadline.
func (s *Stepper) waitTravel(deadline time.Time) error {
	if deadline.IsZero() {
		return s.WaitForTravelEnd(0)
	}
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return ErrHomingTimeout
	}
	if err := s.WaitForTravelEnd(remaining); err != nil {
		if err == ErrTravelWaitTimeout {
			return ErrHomingTimeout
		}
		return err
	}
	return nil
}

func deadlineExpired(deadline time.Time) bool {
	return !deadline.IsZero() && time.Now().After(deadline)
}

func stepDelta(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}
