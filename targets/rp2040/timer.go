//go:build rp2040

package rp2040

import (
	"device/rp"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"
)

// RP2040 TIMER peripheral: a 64-bit 1 MHz counter with four 32-bit
// alarm comparators. TinyGo's runtime owns alarm 0 for its own sleeps,
// so step pacing uses alarm 1 / TIMER_IRQ_1.
//
// Register offsets from the datasheet:
//
//	ALARM1   @ 0x14 - fires when the low 32 counter bits match
//	ARMED    @ 0x20 - write 1 to an alarm's bit to disarm it
//	TIMERAWL @ 0x28 - raw low 32 bits, no latching
//	INTR     @ 0x34 - raw interrupts, write 1 to clear
//	INTE     @ 0x38 - interrupt enable
const (
	timerBase     = 0x40054000
	timerAlarm1   = timerBase + 0x14
	timerArmed    = timerBase + 0x20
	timerRawLow   = timerBase + 0x28
	timerIntRaw   = timerBase + 0x34
	timerIntEn    = timerBase + 0x38
	alarm1Bit     = 1 << 1
)

var (
	alarm1Reg = (*volatile.Register32)(unsafe.Pointer(uintptr(timerAlarm1)))
	armedReg  = (*volatile.Register32)(unsafe.Pointer(uintptr(timerArmed)))
	rawLowReg = (*volatile.Register32)(unsafe.Pointer(uintptr(timerRawLow)))
	intRawReg = (*volatile.Register32)(unsafe.Pointer(uintptr(timerIntRaw)))
	intEnReg  = (*volatile.Register32)(unsafe.Pointer(uintptr(timerIntEn)))
)

// AlarmTimer implements the engine's pulse timer on TIMER alarm 1.
// Only one instance can exist; the alarm is a chip-wide resource.
type AlarmTimer struct{}

var (
	alarmCallback func()
	alarmClaimed  bool
)

// NewAlarmTimer claims alarm 1 and enables its interrupt. Returns nil
// if the alarm is already claimed.
func NewAlarmTimer() *AlarmTimer {
	if alarmClaimed {
		return nil
	}
	alarmClaimed = true

	intr := interrupt.New(rp.IRQ_TIMER_IRQ_1, alarmISR)
	intr.Enable()
	intEnReg.SetBits(alarm1Bit)
	return &AlarmTimer{}
}

func alarmISR(interrupt.Interrupt) {
	intRawReg.Set(alarm1Bit) // acknowledge
	if fn := alarmCallback; fn != nil {
		fn()
	}
}

// Arm schedules fn to run in interrupt context after delayMicros.
// Re-arming replaces the pending expiry. Writing the alarm register
// arms the comparator against the free-running counter.
func (t *AlarmTimer) Arm(delayMicros uint32, fn func()) {
	alarmCallback = fn
	alarm1Reg.Set(rawLowReg.Get() + delayMicros)
}

// Cancel disarms any pending expiry. A concurrent fire that already
// entered the ISR may still run; callers gate on their own state.
func (t *AlarmTimer) Cancel() {
	armedReg.Set(alarm1Bit)
	intRawReg.Set(alarm1Bit)
	alarmCallback = nil
}

// Now returns the low 32 bits of the microsecond counter.
func Now() uint32 {
	return rawLowReg.Get()
}
