package rp2040

// pulseCommand builds a state-machine command word for the pulse
// program. The step loop's JMP X-- branch-tests X before decrementing,
// so the count field carries count-1: a zero field emits one pulse.
//
//	bits 0-15:  pulse count minus one
//	bits 16-23: delay cycles between pulses
//	bit 24:     direction pin level
func pulseCommand(count uint16, delayCycles uint8, forward bool) uint32 {
	cmd := uint32(count-1) | uint32(delayCycles)<<16
	if forward {
		cmd |= 1 << 24
	}
	return cmd
}
