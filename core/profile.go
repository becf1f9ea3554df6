// Trapezoidal velocity profile: constant acceleration up to the cruise
// speed, constant deceleration back down, symmetric about the midpoint
// for moves too short to reach cruise.
package core

// slowdownThreshold computes, once per move, the remaining-step count at
// which deceleration begins. Capped at half the move so short moves ramp
// symmetrically and never reach maxSpeed.
func slowdownThreshold(steps uint32, maxSpeed, minSpeed, speedInterval float64) uint32 {
	accelerationSteps := uint32((maxSpeed - minSpeed) / speedInterval)
	if half := steps / 2; accelerationSteps > half {
		return half
	}
	return accelerationSteps
}

// advanceSpeed updates the profiled speed for the pulse just emitted,
// given the remaining-step count after decrement. Sequencer context
// only.
func (s *Stepper) advanceSpeed(remaining uint32) {
	if remaining > s.slowdownThreshold {
		if s.speed < s.maxSpeed {
			s.speed += s.speedInterval
			if s.speed > s.maxSpeed {
				s.speed = s.maxSpeed
			}
		}
		return
	}

	s.speed -= s.speedInterval
	if s.speed < s.minSpeed {
		// Floor at minSpeed; the delay computation divides by speed.
		s.speed = s.minSpeed
	}
}

// stepDelayMicros converts the current speed into the inter-pulse delay.
// Homing ignores the profile and paces every pulse at the fixed home
// speed.
func (s *Stepper) stepDelayMicros() uint32 {
	speed := s.speed
	if s.homing.Load() {
		speed = s.homeSpeed
	}
	return uint32(1000000.0 / (float64(s.stepsPerRev) * speed))
}

// SetMaxSpeed sets the cruise speed ceiling, in abstract speed units.
// Must be at least the current floor, keeping the ramp length
// non-negative. Takes effect from the next move; an in-flight move
// keeps the slowdown threshold computed at its start.
func (s *Stepper) SetMaxSpeed(speed float64) error {
	if speed <= 0 {
		return ErrInvalidSpeed
	}
	if !s.mu.lockFor(s.lockTimeout) {
		return ErrMutexTimeout
	}
	defer s.mu.unlock()
	if speed < s.minSpeed {
		return ErrInvalidSpeed
	}
	s.maxSpeed = speed
	return nil
}

// SetMinSpeed sets the speed floor. Must be positive (the floor is what
// keeps the pulse-delay division away from zero) and at most the
// current ceiling.
func (s *Stepper) SetMinSpeed(speed float64) error {
	if speed <= 0 {
		return ErrInvalidSpeed
	}
	if !s.mu.lockFor(s.lockTimeout) {
		return ErrMutexTimeout
	}
	defer s.mu.unlock()
	if speed > s.maxSpeed {
		return ErrInvalidSpeed
	}
	s.minSpeed = speed
	return nil
}

// SetHomingSpeed sets the fixed speed used for every homing pulse.
func (s *Stepper) SetHomingSpeed(speed float64) error {
	if speed <= 0 {
		return ErrInvalidSpeed
	}
	if !s.mu.lockFor(s.lockTimeout) {
		return ErrMutexTimeout
	}
	defer s.mu.unlock()
	s.homeSpeed = speed
	return nil
}

// SetAccelerationMultiplier scales the per-step speed change relative to
// BaseSpeedInterval.
func (s *Stepper) SetAccelerationMultiplier(multiplier float64) error {
	if multiplier <= 0 {
		return ErrInvalidSpeed
	}
	if !s.mu.lockFor(s.lockTimeout) {
		return ErrMutexTimeout
	}
	defer s.mu.unlock()
	s.speedInterval = BaseSpeedInterval * multiplier
	return nil
}
