package tap_test

import (
	"testing"

	"github.com/jtagtrace/jtagtrace/pkg/armdebug"
	"github.com/jtagtrace/jtagtrace/pkg/dapmodel"
	"github.com/jtagtrace/jtagtrace/pkg/drstate"
	"github.com/jtagtrace/jtagtrace/pkg/jtag"
	"github.com/jtagtrace/jtagtrace/pkg/tap"
	"github.com/jtagtrace/jtagtrace/pkg/zynqmodel"
)

// TestFullChainLiftsBankedAPRegisterRead drives the real TAP state
// machine, with the Zynq PS/PL TAP and the ARM DAP TAP chained together
// exactly as cmd/jtagtrace wires them, through: reset (committing the
// DAP's enable latch), an IR shift selecting DPACC, a DR shift writing
// SELECT to bank apsel/apbanksel/dpbanksel, a second IR shift selecting
// APACC, and a DR shift reading a banked AP register — then checks the
// armdebug decoder lifts exactly one event, for the APACC read, with the
// register address composed from the banked SELECT fields.
func TestFullChainLiftsBankedAPRegisterRead(t *testing.T) {
	var events []armdebug.Event
	decoder := armdebug.NewDecoder(func(e armdebug.Event) { events = append(events, e) })

	dap := dapmodel.NewModel(func(state drstate.State, value uint64) {
		if err := decoder.DRAccess(state, value); err != nil {
			t.Fatalf("DRAccess: %v", err)
		}
	}, true)

	zynq := zynqmodel.NewModel(dap,
		func(drstate.State, *uint16, uint64, int) {},
		func(drstate.State) {},
	)

	chain := jtag.NewChain(zynq, dap)
	sm := tap.NewStateMachine()
	// A fresh state machine starts with its pins locked; unlock it the way
	// the first SET_GPIO_LOW does.
	sm.Unlock()

	advance := func(tms bool) {
		if _, err := sm.Clock(chain, false, tms); err != nil {
			t.Fatalf("Clock: %v", err)
		}
	}
	// shiftCombined drives len(bits) clocks with tdi=bits[i], tms=false
	// except on the final bit where tms=exitOnLast — the standard JTAG
	// convention of exiting ShiftDR/ShiftIR on the same edge as the last
	// shift.
	shiftCombined := func(bits []bool, exitOnLast bool) {
		for i, b := range bits {
			tms := exitOnLast && i == len(bits)-1
			if _, err := sm.Clock(chain, b, tms); err != nil {
				t.Fatalf("Clock (shift): %v", err)
			}
		}
	}

	// --- Reset: five TMS=1 cycles, committing the DAP's will-enable
	// latch into "enabled" and resetting both TAPs' DR state.
	for i := 0; i < 5; i++ {
		advance(true)
	}
	advance(false) // -> RunTestIdle

	// selectIR walks RunTestIdle -> ... -> CaptureIR (firing its hook,
	// reloading both models' IR capture values) -> ShiftIR.
	selectIR := func() {
		advance(true)  // RunTestIdle -> SelectDRScan
		advance(true)  // SelectDRScan -> SelectIRScan
		advance(false) // SelectIRScan -> CaptureIR
		advance(false) // CaptureIR hook fires -> ShiftIR
	}
	// exitIRToRunIdle finishes an IR shift: Exit1IR -> UpdateIR (hook
	// fires, committing the shifted IR) -> RunTestIdle.
	exitIRToRunIdle := func() {
		advance(true)  // Exit1IR -> UpdateIR
		advance(false) // UpdateIR hook fires -> RunTestIdle
	}
	selectDR := func() {
		advance(true)  // RunTestIdle -> SelectDRScan
		advance(false) // SelectDRScan -> CaptureDR
		advance(false) // CaptureDR hook fires -> ShiftDR
	}
	exitDRToRunIdle := func() {
		advance(true)  // Exit1DR -> UpdateDR
		advance(false) // UpdateDR hook fires -> RunTestIdle
	}

	// lsbBits returns the width low bits of v, bit 0 first.
	lsbBits := func(v uint64, width int) []bool {
		bits := make([]bool, width)
		for i := 0; i < width; i++ {
			bits[i] = v&(1<<uint(i)) != 0
		}
		return bits
	}

	// chainIRBits lays out a combined IR shift for this two-TAP chain
	// (zynq 12 bits upstream of dap's 4 bits): since zynq sits first in
	// scan order, dap's desired bits must be fed first (positions
	// 1..len(dapBits)), with zynq's desired bits following, so that by
	// the time the full sequence has rippled through zynq's 12-bit pipe
	// the last 4 global bits delivered to dap are exactly dapBits and the
	// last 12 global bits consumed by zynq are exactly zynqBits.
	chainIRBits := func(dapBits, zynqBits []bool) []bool {
		return append(append([]bool{}, dapBits...), zynqBits...)
	}
	// chainDRBits is the same layout for the DR shift (zynq BYPASS is
	// 1 bit, dap's DR is 35 bits): dap's bits first, zynq's single
	// (irrelevant, BYPASS) bit last.
	chainDRBits := func(dapBits []bool, zynqBit bool) []bool {
		return append(append([]bool{}, dapBits...), zynqBit)
	}

	zynqBypassIR := lsbBits(0xFFF, 12) // ps_ir=pl_ir=0x3F -> BYPASS

	// --- Select DPACC on the DAP, BYPASS on the Zynq PS/PL TAP.
	selectIR()
	shiftCombined(chainIRBits(lsbBits(0b1010, 4), zynqBypassIR), true)
	exitIRToRunIdle()

	// --- DR shift: write SELECT with apsel=0, apbanksel=0x1,
	// dpbanksel=0x3 (datain=0x00000013).
	datain := uint32(0x00000013)
	selectValue := (uint64(datain) << 3) | (2 << 1) | 0 // A field 2 -> A=0x8 (SELECT), RnW=0 (write)
	selectDR()
	shiftCombined(chainDRBits(lsbBits(selectValue, 35), true), true)
	exitDRToRunIdle()

	if len(events) != 0 {
		t.Fatalf("events after SELECT write = %v, want none", events)
	}

	// --- Select APACC on the DAP (Zynq stays in BYPASS).
	selectIR()
	shiftCombined(chainIRBits(lsbBits(0b1011, 4), zynqBypassIR), true)
	exitIRToRunIdle()

	// --- DR shift: APACC read, A=0x4 (A field 1), RnW=1.
	apValue := uint64(0)<<3 | uint64(1)<<1 | 1
	selectDR()
	shiftCombined(chainDRBits(lsbBits(apValue, 35), true), true)
	exitDRToRunIdle()

	if len(events) != 1 {
		t.Fatalf("events after APACC read = %v, want exactly 1", events)
	}
	ev := events[0]
	if ev.Command != armdebug.CommandReadAPRegister {
		t.Fatalf("Command = %v, want CommandReadAPRegister", ev.Command)
	}
	if ev.APNum != 0 {
		t.Fatalf("APNum = %d, want 0", ev.APNum)
	}
	wantReg := uint8(0x1<<4 | 0x4)
	if ev.Reg != wantReg {
		t.Fatalf("Reg = 0x%02x, want 0x%02x", ev.Reg, wantReg)
	}
}
