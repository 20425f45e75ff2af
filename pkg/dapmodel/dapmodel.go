// Package dapmodel implements the ARM DAP JTAG TAP as a jtag.Model: a
// 4-bit IR selecting one of BYPASS/IDCODE/ABORT/DPACC/APACC, gated by a
// two-phase enable latch armed through the Zynq PS TAP's JTAG_CTRL
// register and committed only on the next TAP reset.
package dapmodel

import (
	"fmt"

	"github.com/jtagtrace/jtagtrace/pkg/drstate"
	"github.com/jtagtrace/jtagtrace/pkg/shiftreg"
)

// Model is the ARM DAP TAP. Its drCb callback is invoked with the selected
// DR role and its value whenever DRUPDATE is entered.
type Model struct {
	ir *shiftreg.Register
	dr *shiftreg.Register

	drCb func(drstate.State, uint64)

	dapState drstate.State

	// willEnable/enabled form a two-phase latch: SetEnable only arms
	// willEnable, and Reset is what actually commits it to enabled (and
	// picks the post-reset DR state). The silicon behaves the same way:
	// a JTAG_CTRL enable write takes effect at the next TAP reset, not
	// immediately.
	willEnable bool
	enabled    bool
}

// NewModel returns a DAP model gated by drCb, initially armed to enable
// (or not) the first time Reset is called.
func NewModel(drCb func(drstate.State, uint64), initialWillEnable bool) *Model {
	return &Model{
		ir:         shiftreg.New(4),
		dapState:   drstate.Bypass,
		drCb:       drCb,
		willEnable: initialWillEnable,
	}
}

// SetEnable arms (or disarms) the DAP to become enabled the next time
// Reset is called. It has no effect on the DAP's current state.
func (m *Model) SetEnable(enable bool) {
	m.willEnable = enable
}

// Enabled reports whether the DAP is currently responding to DPACC/APACC
// instructions rather than being forced to BYPASS.
func (m *Model) Enabled() bool {
	return m.enabled
}

func (m *Model) Reset() {
	if m.willEnable {
		m.enabled = true
		m.dapState = drstate.IDCode
	} else {
		m.enabled = false
		m.dapState = drstate.Bypass
	}
}

func (m *Model) RunIdle() {}

func (m *Model) CaptureIR() {
	m.ir.Load(0x01)
}

func (m *Model) CaptureDR() {
	switch m.dapState {
	case drstate.Bypass:
		m.dr = shiftreg.New(1)
		m.dr.Load(0x0)
	case drstate.IDCode:
		m.dr = shiftreg.New(32)
		m.dr.Load(0x5ba00477)
	case drstate.Abort, drstate.DPACC, drstate.APACC:
		m.dr = shiftreg.New(35)
	default:
		panic(fmt.Sprintf("dapmodel: capture_dr entered with unreachable DAP state %s", m.dapState))
	}
}

func (m *Model) UpdateDR() {
	m.drCb(m.dapState, m.dr.Read())
}

func (m *Model) UpdateIR() {
	ir := m.ir.Read()
	if !m.enabled {
		m.dapState = drstate.Bypass
		return
	}

	switch ir {
	case 0b1000:
		m.dapState = drstate.Abort
	case 0b1010:
		m.dapState = drstate.DPACC
	case 0b1011:
		m.dapState = drstate.APACC
	case 0b1110:
		m.dapState = drstate.IDCode
	case 0b1111:
		m.dapState = drstate.Bypass
	default:
		// An unknown DAP IR while enabled means the capture doesn't
		// match this model of the DAP; never fall back to BYPASS.
		panic(fmt.Sprintf("dapmodel: unknown DAP IR 0x%x while enabled", ir))
	}
}

func (m *Model) ShiftDR(tdi bool) bool {
	return m.dr.Shift(tdi)
}

func (m *Model) ShiftIR(tdi bool) bool {
	return m.ir.Shift(tdi)
}
