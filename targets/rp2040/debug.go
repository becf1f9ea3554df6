//go:build rp2040

package rp2040

import (
	"stepdrive/core"
)

// EnableSerialDebug routes engine debug output to the default serial
// console (USB CDC or UART, whichever the board maps println to).
func EnableSerialDebug() {
	core.SetDebugWriter(func(msg string) { println(msg) })
	core.SetDebugEnabled(true)
}
