// Package jtag provides the TAP device model abstraction shared by every
// device that can occupy a position in a scanned JTAG chain, and a Chain
// type that pipelines shifts and broadcasts the rest across the devices in
// scan order.
package jtag

import "errors"

// Model is implemented by anything that can sit at one position in a JTAG
// scan chain: it receives the same entry-action calls the TAP controller
// fires on its own state machine (see pkg/tap), so a Model can be driven
// directly as a tap.Hooks, or composed into a Chain that fans the calls out
// to several devices at once.
type Model interface {
	Reset()
	RunIdle()
	CaptureDR()
	ShiftDR(tdi bool) bool
	UpdateDR()
	CaptureIR()
	ShiftIR(tdi bool) bool
	UpdateIR()
}

// ErrNotImplemented signals that a register access fell on a capability a
// device model doesn't support, rather than silently returning zero
// values. pkg/armdebug's MEM-AP and JTAG-AP register decoders return it for
// registers real debug sessions have not been observed to exercise.
var ErrNotImplemented = errors.New("jtag: not implemented")
