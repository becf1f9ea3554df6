package core

import "errors"

// Motion errors. All public operations report failures as sentinel
// errors; interrupt-context code never produces an error return.
var (
	// ErrMutexTimeout means the state lock could not be acquired within
	// the bound. Transient; the caller may retry.
	ErrMutexTimeout = errors.New("stepper: state lock acquisition timed out")

	// ErrAlreadyMoving is returned when a move is requested while one is
	// already in flight. Wait for travel end or Stop first.
	ErrAlreadyMoving = errors.New("stepper: already moving")

	// ErrAlreadyHoming is returned when Home is invoked re-entrantly.
	ErrAlreadyHoming = errors.New("stepper: already homing")

	// ErrEndstopHit blocks new moves until ClearEndstopHit is called.
	ErrEndstopHit = errors.New("stepper: endstop hit not cleared")

	// ErrEndstopNotRegistered means the referenced endstop slot is empty.
	ErrEndstopNotRegistered = errors.New("stepper: endstop not registered")

	// ErrInvalidEndstopID means the endstop id is not Lower or Upper.
	ErrInvalidEndstopID = errors.New("stepper: invalid endstop id")

	// ErrNoFreeEndstopSlots means both endstop slots are taken.
	ErrNoFreeEndstopSlots = errors.New("stepper: no free endstop slots")

	// ErrHomingTimeout means the endstop never triggered within the
	// configured homing timeout. Suspect wiring; not retried.
	ErrHomingTimeout = errors.New("stepper: homing timed out")

	// ErrTravelWaitTimeout means a travel-end wait expired. The motion
	// state is unknown; re-query IsMoving and LastEndstopHit.
	ErrTravelWaitTimeout = errors.New("stepper: travel wait timed out")

	// ErrInvalidSpeed means a speed parameter was zero or negative.
	ErrInvalidSpeed = errors.New("stepper: speed must be positive")

	// ErrInvalidConfig means the constructor was given a nil pulser or
	// timer, or a zero steps-per-revolution figure.
	ErrInvalidConfig = errors.New("stepper: invalid configuration")
)
