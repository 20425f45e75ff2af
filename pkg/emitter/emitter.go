// Package emitter renders decoded ARM debug events and Zynq PS/PL TAP
// activity as an OpenOCD-style TCL transcript, grouping AP register scans
// under a comment header naming the access they belong to once that
// access produces a result (e.g. a memory read).
package emitter

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/jtagtrace/jtagtrace/pkg/armdebug"
	"github.com/jtagtrace/jtagtrace/pkg/drstate"
	"github.com/jtagtrace/jtagtrace/pkg/idcode"
)

const chipName = "$_CHIPNAME"

var apNames = [3]string{"MEM-AP AXI", "MEM-AP Debug", "JTAG-AP"}

var dpRegisterNames = map[uint8]string{
	uint8(armdebug.DPIDR):     "DPIDR",
	uint8(armdebug.CTRLSTAT):  "CTRL/STAT",
	uint8(armdebug.DLCR):      "DLCR",
	uint8(armdebug.TARGETID):  "TARGETID",
	uint8(armdebug.DLPIDR):    "DLPIDR",
	uint8(armdebug.EVENTSTAT): "EVENTSTAT",
	uint8(armdebug.SELECT):    "SELECT",
	uint8(armdebug.RDBUFF):    "RDBUFF",
}

func dpRegisterName(reg uint8) string {
	if name, ok := dpRegisterNames[reg]; ok {
		return name
	}
	return fmt.Sprintf("DPREG 0x%02x", reg)
}

// Writer accumulates the OpenOCD transcript. AP register scan lines
// queue up until the addressed AP model reports a human-readable result,
// at which point a comment header is emitted and the queue flushes.
type Writer struct {
	out   io.Writer
	color bool

	lines []string

	memAps [2]*armdebug.MemAp
	jtagAp *armdebug.JtagAp
}

// NewWriter returns a Writer over out. When out is a terminal, the
// comment headers this Writer emits are highlighted via ANSI color codes
// (wrapped through go-colorable for Windows ANSI translation); otherwise
// output is plain text suitable for an OpenOCD script file.
func NewWriter(out *os.File) *Writer {
	color := isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd())
	w := colorable.NewColorable(out)
	return &Writer{out: w, color: color}
}

// NewPlainWriter returns a Writer with color disabled, for destinations
// that aren't a terminal (a script file, a buffer in tests).
func NewPlainWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

func (w *Writer) headerf(format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	if w.color {
		fmt.Fprintf(w.out, "\x1b[36m%s\x1b[0m\n", line)
		return
	}
	fmt.Fprintln(w.out, line)
}

func (w *Writer) memAp(apNum uint8) (*armdebug.MemAp, bool) {
	if apNum >= uint8(len(w.memAps)) {
		return nil, false
	}
	ap := w.memAps[apNum]
	if ap == nil {
		ap = armdebug.NewMemAp()
		w.memAps[apNum] = ap
	}
	return ap, true
}

func (w *Writer) readAP(apNum, reg uint8) (string, error) {
	if apNum == 2 {
		if w.jtagAp == nil {
			w.jtagAp = armdebug.NewJtagAp()
		}
		return w.jtagAp.ReadRegister(armdebug.JtagApRegister(reg))
	}
	ap, ok := w.memAp(apNum)
	if !ok {
		return "", fmt.Errorf("emitter: unknown AP number %d", apNum)
	}
	return ap.ReadRegister(armdebug.MemApRegister(reg))
}

func (w *Writer) writeAP(apNum, reg uint8, value uint32) (string, error) {
	if apNum == 2 {
		if w.jtagAp == nil {
			w.jtagAp = armdebug.NewJtagAp()
		}
		return w.jtagAp.WriteRegister(armdebug.JtagApRegister(reg), value)
	}
	ap, ok := w.memAp(apNum)
	if !ok {
		return "", fmt.Errorf("emitter: unknown AP number %d", apNum)
	}
	return ap.WriteRegister(armdebug.MemApRegister(reg), value)
}

func (w *Writer) apName(apNum uint8) string {
	if int(apNum) < len(apNames) {
		return apNames[apNum]
	}
	return fmt.Sprintf("AP%d", apNum)
}

// HandleEvent renders one decoded ARM debug event.
func (w *Writer) HandleEvent(e armdebug.Event) error {
	switch e.Command {
	case armdebug.CommandAbort:
		fmt.Fprintf(w.out, "irscan %s.tap [dap_ir ABORT]\n", chipName)
		fmt.Fprintf(w.out, "drscan %s.tap 35 0x%09x\n", chipName, e.Value)
		fmt.Fprintln(w.out)

	case armdebug.CommandReadAPRegister:
		result, err := w.readAP(e.APNum, e.Reg)
		if err != nil {
			return err
		}
		w.lines = append(w.lines, fmt.Sprintf(
			"set ap_reg_value [%s.dap apreg %d 0x%02x]", chipName, e.APNum, e.Reg))
		if result != "" {
			w.flushGroup(e.APNum, result)
		}

	case armdebug.CommandWriteAPRegister:
		result, err := w.writeAP(e.APNum, e.Reg, e.Value)
		if err != nil {
			return err
		}
		w.lines = append(w.lines, fmt.Sprintf(
			"%s.dap apreg %d 0x%02x 0x%08x", chipName, e.APNum, e.Reg, e.Value))
		if result != "" {
			w.flushGroup(e.APNum, result)
		}

	case armdebug.CommandReadDPRegister:
		w.headerf("# Reading %s", dpRegisterName(e.Reg))
		fmt.Fprintf(w.out, "set dp_reg_value [%s.dap dpreg 0x%02x]\n", chipName, e.Reg)
		fmt.Fprintln(w.out)

	case armdebug.CommandWriteDPRegister:
		w.headerf("# Writing %s = 0x%08x", dpRegisterName(e.Reg), e.Value)
		fmt.Fprintf(w.out, "%s.dap dpreg 0x%02x 0x%08x\n", chipName, e.Reg, e.Value)
		fmt.Fprintln(w.out)

	default:
		return fmt.Errorf("emitter: unhandled ARM debug command %v", e.Command)
	}
	return nil
}

// flushGroup writes the queued apreg lines once the addressed AP model
// reports a result, the way a CSW/TAR setup sequence has no result of its
// own and only flushes when the following DRW or banked-data access does.
func (w *Writer) flushGroup(apNum uint8, result string) {
	w.headerf("# %s: %s", w.apName(apNum), result)
	for _, l := range w.lines {
		fmt.Fprintln(w.out, l)
	}
	fmt.Fprintln(w.out)
	w.lines = nil
}

// HandleZynqDR renders a Zynq PS/PL DRUPDATE. Most DR roles (JTAG_CTRL,
// JTAG_STATUS, user registers, ...) are setup/status traffic with nothing
// the transcript needs beyond a comment naming the access; BYPASS and
// IDCODE carry no information worth a line; CFG_IN is the one role with a
// documented transcript form.
func (w *Writer) HandleZynqDR(state drstate.State, capturedIR *uint16, value uint64, cfgInBits int) {
	switch state {
	case drstate.Bypass, drstate.IDCode:
		return
	case drstate.CfgIn:
		w.headerf("# Zynq PL configuration: %d bits shifted via CFG_IN", cfgInBits)
		fmt.Fprintln(w.out, "pld load 0 xxx.bit")
		fmt.Fprintln(w.out)
	case drstate.PSIDCodeDeviceID:
		id := idcode.Parse(uint32(value >> 32))
		w.headerf("# Zynq PS IDCODE/device ID = 0x%016x (%s)", value, id.ManufacturerName())
		fmt.Fprintln(w.out)
	default:
		w.headerf("# Zynq PS/PL %s = 0x%x", state, value)
		fmt.Fprintln(w.out)
	}
}

// HandleZynqIR renders a Zynq PS/PL IR selection for states that never
// reach DRCAPTURE (JPROGRAM, JSTART, ISC_NOOP, UNKNOWN_STATE_9FF), which
// are only observable at IR-update time, and for PS_IDCODE_DEVICE_ID,
// reported when its DR is captured.
func (w *Writer) HandleZynqIR(state drstate.State) {
	w.headerf("# Zynq PS/PL TAP selects %s", state)
	fmt.Fprintln(w.out)
}

// HandleDAPIDCode renders the ARM DAP's own IDCODE DR role, captured at
// reset rather than reported through armdebug.Event.
func (w *Writer) HandleDAPIDCode(value uint32) {
	id := idcode.Parse(value)
	w.headerf("# DAP IDCODE = 0x%08x (%s)", value, id.ManufacturerName())
	fmt.Fprintln(w.out)
}
