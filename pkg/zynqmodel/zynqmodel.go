// Package zynqmodel implements the combined Zynq UltraScale+ PS/PL TAP as
// a jtag.Model. Its 12-bit IR splits into a high 6-bit "PS" field and a
// low 6-bit "PL" field, each of which can claim control of the DR role
// depending on the other's value — see UpdateIR for the exact table.
package zynqmodel

import (
	"fmt"

	"github.com/jtagtrace/jtagtrace/pkg/drstate"
	"github.com/jtagtrace/jtagtrace/pkg/shiftreg"
)

// DREntered is called when DRUPDATE is entered: state is the DR role the
// IR selected, capturedIR is the raw 12-bit IR value last captured (nil
// before the first IR update), and value is the DR contents. cfgInBits is
// the number of bits shifted into CFG_IN's sink register when state is
// drstate.CfgIn (its value has no fixed-width integer form), 0 otherwise.
type DREntered func(state drstate.State, capturedIR *uint16, value uint64, cfgInBits int)

// IRCallback is called at IR-update time for IR states that are never
// followed by a DRCAPTURE (JPROGRAM, JSTART, ISC_NOOP, UNKNOWN_STATE_9FF),
// and at DRCAPTURE time for PS_IDCODE_DEVICE_ID.
type IRCallback func(state drstate.State)

// DAPEnabler is the capability this model needs from the DAP TAP sharing
// its scan chain: arming the DAP's enable latch when JTAG_CTRL is
// written with its enable bit set.
type DAPEnabler interface {
	SetEnable(enable bool)
}

// Model is the combined Zynq PS/PL TAP.
type Model struct {
	dap DAPEnabler

	ir         *shiftreg.Register
	capturedIR *uint16
	dr         driveableDR
	drState    drstate.State

	drCb DREntered
	irCb IRCallback
}

// driveableDR is satisfied by both shiftreg.Register and shiftreg.Sink:
// every DR role this model captures is one or the other.
type driveableDR interface {
	Shift(in bool) bool
	Read() uint64
}

// sinkDR adapts shiftreg.Sink (which has no Read) to driveableDR: CFG_IN's
// "value" is the full accumulated bitstream, not a fixed-width integer, so
// Read here always reports 0 and callers needing the payload use Bits.
type sinkDR struct {
	*shiftreg.Sink
}

func (sinkDR) Read() uint64 { return 0 }

// NewModel returns a Zynq PS/PL TAP model. dap is armed via JTAG_CTRL
// writes; drCb/irCb are as described above.
func NewModel(dap DAPEnabler, drCb DREntered, irCb IRCallback) *Model {
	return &Model{
		dap:     dap,
		ir:      shiftreg.New(12),
		drState: drstate.IDCode,
		drCb:    drCb,
		irCb:    irCb,
	}
}

// DRState reports the DR role currently selected by the IR.
func (m *Model) DRState() drstate.State {
	return m.drState
}

func (m *Model) Reset() {
	m.drState = drstate.IDCode
	m.capturedIR = nil
}

func (m *Model) RunIdle() {}

func (m *Model) CaptureIR() {
	m.ir.Load(0x051)
}

func (m *Model) CaptureDR() {
	switch m.drState {
	case drstate.Bypass:
		r := shiftreg.New(1)
		r.Load(0x1)
		m.dr = r
	case drstate.IDCode:
		r := shiftreg.New(32)
		r.Load(0x14710093)
		m.dr = r
	case drstate.JTAGCtrl, drstate.JTAGStatus, drstate.IPDisable,
		drstate.User1, drstate.User2, drstate.User3, drstate.User4,
		drstate.CfgOut, drstate.PMUMDM:
		m.dr = shiftreg.New(32)
	case drstate.PSIDCodeDeviceID:
		// This DR appears to never actually be read back; emit irCb
		// since DRUPDATE for it carries no useful information.
		m.irCb(drstate.PSIDCodeDeviceID)
		r := shiftreg.New(64)
		r.Load((uint64(0x14710093) << 32) | 0x0)
		m.dr = r
	case drstate.CfgIn:
		m.dr = sinkDR{shiftreg.NewSink()}
	case drstate.JProgram, drstate.JStart, drstate.ISCNoop:
		panic(fmt.Sprintf("zynqmodel: %s has no DRCAPTURE", m.drState))
	case drstate.ErrorStatus:
		m.dr = shiftreg.New(121)
	case drstate.FuseDNA:
		m.dr = shiftreg.New(96)
	default:
		panic(fmt.Sprintf("zynqmodel: capture_dr entered with unreachable DR state %s", m.drState))
	}
}

func (m *Model) UpdateDR() {
	value := m.dr.Read()
	if m.drState == drstate.JTAGCtrl && value&0x2 != 0 {
		m.dap.SetEnable(true)
	}
	cfgInBits := 0
	if sink, ok := m.dr.(sinkDR); ok {
		cfgInBits = sink.Len()
	}
	m.drCb(m.drState, m.capturedIR, value, cfgInBits)
}

func (m *Model) ShiftDR(tdi bool) bool {
	return m.dr.Shift(tdi)
}

func (m *Model) ShiftIR(tdi bool) bool {
	return m.ir.Shift(tdi)
}

// UpdateIR decodes the raw 12-bit IR into a DR role. The high 6 bits
// (psIR) and low 6 bits (plIR) each name an instruction in one of two
// independent encodings — which one is "in control" depends on the other
// field being held at its all-PL or all-PS idle value.
func (m *Model) UpdateIR() {
	raw := uint16(m.ir.Read())
	m.capturedIR = &raw

	psIR := (raw >> 6) & 0x3f
	plIR := raw & 0x3f

	switch {
	case psIR == 0x9 && plIR == 0x9:
		m.drState = drstate.PSIDCodeDeviceID

	case psIR == 0x3f && plIR == 0x3f:
		m.drState = drstate.Bypass

	case psIR == 0x19 && plIR == 0x3f:
		m.drState = drstate.IPDisable

	case psIR == 0x27 && plIR == 0x3f:
		// Entered in the IR, but DRCAPTURE is never entered with it.
		m.drState = drstate.UnknownState9FF
		m.irCb(drstate.UnknownState9FF)

	case psIR == 0x24:
		m.updatePLControlled(plIR)

	case plIR == 0x24:
		m.updatePSControlled(psIR)

	default:
		panic(fmt.Sprintf("zynqmodel: unhandled IR 0x%03x (ps=0x%02x pl=0x%02x)", raw, psIR, plIR))
	}
}

// updatePLControlled decodes plIR per UG570 Table 6-3 (UltraScale FPGA
// Boundary-Scan Instructions) for the case where the PS field is parked
// and the PL field selects the instruction.
func (m *Model) updatePLControlled(plIR uint16) {
	switch plIR {
	case 0b000010:
		m.drState = drstate.User1
	case 0b000011:
		m.drState = drstate.User2
	case 0b000100:
		m.drState = drstate.CfgOut
	case 0b000101:
		m.drState = drstate.CfgIn
	case 0b001011:
		m.drState = drstate.JProgram
		m.irCb(drstate.JProgram)
	case 0b001100:
		m.drState = drstate.JStart
		m.irCb(drstate.JStart)
	case 0b010100:
		m.drState = drstate.ISCNoop
		m.irCb(drstate.ISCNoop)
	case 0b100010:
		m.drState = drstate.User3
	case 0b100011:
		m.drState = drstate.User4
	case 0b110010:
		// UG570 Table 8-3, eFUSE-related JTAG instructions.
		m.drState = drstate.FuseDNA
	default:
		panic(fmt.Sprintf("zynqmodel: unhandled PL instruction 0x%02x", plIR))
	}
}

// updatePSControlled decodes psIR per the PS TAP controller instruction
// table for the case where the PL field is parked and the PS field
// selects the instruction.
func (m *Model) updatePSControlled(psIR uint16) {
	switch psIR {
	case 0x03:
		m.drState = drstate.PMUMDM
	case 0x19:
		m.drState = drstate.IPDisable
	case 0x1f:
		m.drState = drstate.JTAGStatus
	case 0x20:
		m.drState = drstate.JTAGCtrl
	case 0x3e:
		m.drState = drstate.ErrorStatus
	default:
		panic(fmt.Sprintf("zynqmodel: unhandled PS instruction 0x%02x", psIR))
	}
}
