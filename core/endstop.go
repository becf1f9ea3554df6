// Endstop handling: up to two edge-interrupt limit switches per stepper.
// A triggering edge stops the sequencer immediately and latches a sticky
// hit flag that blocks further moves until explicitly cleared.
package core

// EndstopID identifies an endstop slot. The first registered input is
// the lower endstop, the second the upper.
type EndstopID int32

const (
	EndstopNone  EndstopID = 0
	EndstopLower EndstopID = 1
	EndstopUpper EndstopID = 2
)

func (id EndstopID) String() string {
	switch id {
	case EndstopLower:
		return "lower"
	case EndstopUpper:
		return "upper"
	default:
		return "none"
	}
}

// RegisterEndstop attaches an edge-interrupt input to the next free
// slot and returns its id. The stepper takes exclusive ownership of the
// input for its lifetime; a third registration fails with
// ErrNoFreeEndstopSlots.
func (s *Stepper) RegisterEndstop(in EdgeInput) (EndstopID, error) {
	if in == nil {
		return EndstopNone, ErrEndstopNotRegistered
	}
	if !s.mu.lockFor(s.lockTimeout) {
		return EndstopNone, ErrMutexTimeout
	}
	defer s.mu.unlock()

	var id EndstopID
	switch {
	case s.lower == nil:
		s.lower, id = in, EndstopLower
	case s.upper == nil:
		s.upper, id = in, EndstopUpper
	default:
		return EndstopNone, ErrNoFreeEndstopSlots
	}

	if err := in.SetEdgeHandler(func(rising bool) { s.endstopEdge(id, rising) }); err != nil {
		if id == EndstopLower {
			s.lower = nil
		} else {
			s.upper = nil
		}
		return EndstopNone, err
	}
	return id, nil
}

// endstopEdge runs in interrupt context on every endstop edge. The
// inversion flag decides which physical edge means "triggered"; it is
// read per event so flipping it needs no re-registration.
func (s *Stepper) endstopEdge(id EndstopID, rising bool) {
	triggered := rising
	if s.invertEndstops.Load() {
		triggered = !triggered
	}

	if !triggered {
		s.endstopReleased.Store(int32(id))
		if fn := s.onReleased; fn != nil {
			fn(id)
		}
		return
	}

	// Triggering edge: win the race against a pending expiry before any
	// further pulse can be emitted. A pulse already in flight may still
	// land; the sequencer swallows it via the moving flag.
	state := disableInterrupts()
	s.timer.Cancel()
	s.moving.Store(false)
	restoreInterrupts(state)

	// Safety: de-energize regardless of the braking policy.
	s.setEnergized(false)

	s.endstopHit.Store(int32(id))
	s.signalTravelEnd()

	// Callbacks run synchronously in interrupt context; users are
	// expected to defer heavy work.
	if fn := s.onHit; fn != nil {
		fn(id)
	}
}

// endstopInput returns the registered input for id.
func (s *Stepper) endstopInput(id EndstopID) (EdgeInput, error) {
	var in EdgeInput
	switch id {
	case EndstopLower:
		in = s.lower
	case EndstopUpper:
		in = s.upper
	default:
		return nil, ErrInvalidEndstopID
	}
	if in == nil {
		return nil, ErrEndstopNotRegistered
	}
	return in, nil
}

// endstopTriggered reads an endstop input, honoring the inversion flag.
func (s *Stepper) endstopTriggered(in EdgeInput) bool {
	level := in.Read()
	if s.invertEndstops.Load() {
		level = !level
	}
	return level
}

// InvertEndstops flips which physical level and edge are treated as
// "triggered", uniformly for both endstops.
func (s *Stepper) InvertEndstops(invert bool) error {
	if !s.mu.lockFor(s.lockTimeout) {
		return ErrMutexTimeout
	}
	defer s.mu.unlock()
	s.invertEndstops.Store(invert)
	return nil
}

// LastEndstopHit returns the sticky id of the last triggering endstop,
// or EndstopNone. While set, new moves are refused.
func (s *Stepper) LastEndstopHit() EndstopID {
	return EndstopID(s.endstopHit.Load())
}

// LastEndstopReleased returns the id of the last released endstop.
// Informative only; never blocks motion.
func (s *Stepper) LastEndstopReleased() EndstopID {
	return EndstopID(s.endstopReleased.Load())
}

// ClearEndstopHit clears the sticky hit flag, re-allowing moves. Must be
// called after handling a hit.
func (s *Stepper) ClearEndstopHit() error {
	if !s.mu.lockFor(s.lockTimeout) {
		return ErrMutexTimeout
	}
	defer s.mu.unlock()
	s.endstopHit.Store(int32(EndstopNone))
	return nil
}

// ClearEndstopReleased clears the informative released flag.
func (s *Stepper) ClearEndstopReleased() error {
	if !s.mu.lockFor(s.lockTimeout) {
		return ErrMutexTimeout
	}
	defer s.mu.unlock()
	s.endstopReleased.Store(int32(EndstopNone))
	return nil
}

// SetEndstopHitCallback installs fn, to be invoked from interrupt
// context with the triggering endstop's id. Replaces any previous
// callback; the returned flag reports whether one was overwritten so an
// unnoticed replacement of a safety callback is detectable.
func (s *Stepper) SetEndstopHitCallback(fn func(EndstopID)) (replaced bool, err error) {
	if !s.mu.lockFor(s.lockTimeout) {
		return false, ErrMutexTimeout
	}
	defer s.mu.unlock()
	replaced = s.onHit != nil
	s.onHit = fn
	return replaced, nil
}

// SetEndstopReleasedCallback installs fn for releasing edges. Same
// overwrite semantics as SetEndstopHitCallback.
func (s *Stepper) SetEndstopReleasedCallback(fn func(EndstopID)) (replaced bool, err error) {
	if !s.mu.lockFor(s.lockTimeout) {
		return false, ErrMutexTimeout
	}
	defer s.mu.unlock()
	replaced = s.onReleased != nil
	s.onReleased = fn
	return replaced, nil
}
