// Package replay drives a pkg/tap state machine with the decoded FTDI
// command stream from pkg/mpsse, reproducing the bit-level TMS/TDI/TDO
// clocking the bridge performed and the GPIO pin-lock/unlock protocol
// that gates it.
package replay

import (
	"fmt"

	"github.com/jtagtrace/jtagtrace/pkg/mpsse"
	"github.com/jtagtrace/jtagtrace/pkg/tap"
)

// FTDI ADBUS pin assignments used by the bridge's JTAG personality.
const (
	PinTCK = 0
	PinTDI = 1
	PinTDO = 2
	PinTMS = 3
)

// Engine replays decoded FTDI commands against a TAP state machine and
// the device chain it drives.
type Engine struct {
	sm    *tap.StateMachine
	hooks tap.Hooks
}

// NewEngine returns an Engine that drives hooks (typically a jtag.Chain)
// through a fresh TAP state machine starting at Test-Logic-Reset.
func NewEngine(hooks tap.Hooks) *Engine {
	return &Engine{sm: tap.NewStateMachine(), hooks: hooks}
}

// State reports the TAP controller state the engine currently occupies.
func (e *Engine) State() tap.State {
	return e.sm.State()
}

// Run executes one decoded command against the TAP state machine. It
// returns the bytes the bridge would have driven back on TDO, packed
// LSB-first per byte, for commands that produce a reply; nil otherwise.
func (e *Engine) Run(cmd mpsse.Command) ([]byte, error) {
	switch cmd.Kind {
	case mpsse.KindSetGPIOLow:
		return nil, e.runSetGPIOLow(cmd)
	case mpsse.KindClockTMS:
		return e.runClockTMS(cmd)
	case mpsse.KindClockTDI:
		return e.runClockTDI(cmd)
	case mpsse.KindClockTDO:
		return e.runClockTDO(cmd)
	case mpsse.KindClockNoData:
		// The bridge pulses TCK with nothing driven onto TMS/TDI. This
		// has no effect on the TAP state machine: TMS idles at whatever
		// level it was last configured to, holding the controller in
		// RUN_IDLE or RESET.
		return nil, nil
	default:
		return nil, nil
	}
}

func (e *Engine) runSetGPIOLow(cmd mpsse.Command) error {
	if len(cmd.Data) != 2 {
		return fmt.Errorf("replay: SET_GPIO_LOW expects 2 data bytes, got %d", len(cmd.Data))
	}
	data, direction := cmd.Data[0], cmd.Data[1]

	if direction == 0 {
		return e.sm.Lock()
	}

	if direction&(1<<PinTCK) == 0 {
		return fmt.Errorf("replay: SET_GPIO_LOW direction 0x%02x does not drive TCK as an output", direction)
	}
	if direction&(1<<PinTDI) == 0 {
		return fmt.Errorf("replay: SET_GPIO_LOW direction 0x%02x does not drive TDI as an output", direction)
	}
	if direction&(1<<PinTMS) == 0 {
		return fmt.Errorf("replay: SET_GPIO_LOW direction 0x%02x does not drive TMS as an output", direction)
	}
	if direction&(1<<PinTDO) != 0 {
		return fmt.Errorf("replay: SET_GPIO_LOW direction 0x%02x drives TDO as an output", direction)
	}
	if data&(1<<PinTCK) != 0 {
		return fmt.Errorf("replay: SET_GPIO_LOW data 0x%02x holds TCK high at idle", data)
	}
	if data&(1<<PinTDI) != 0 {
		return fmt.Errorf("replay: SET_GPIO_LOW data 0x%02x holds TDI high at idle", data)
	}
	if data&(1<<PinTMS) == 0 {
		return fmt.Errorf("replay: SET_GPIO_LOW data 0x%02x does not hold TMS high at idle", data)
	}

	e.sm.Unlock()
	return nil
}

// runClockTMS replays a CLOCK_TMS command: the single data byte's low 7
// bits are TMS values, shifted out LSB first one per cycle; bit 7 is a
// constant TDI value held for the whole sequence.
func (e *Engine) runClockTMS(cmd mpsse.Command) ([]byte, error) {
	if len(cmd.Data) == 0 {
		return nil, fmt.Errorf("replay: CLOCK_TMS carries no data")
	}
	tdi := cmd.Data[0]&0x80 != 0

	var out []bool
	for bit := 0; bit < cmd.Length; bit++ {
		tms := cmd.Data[0]&(1<<uint(bit)) != 0
		tdo, err := e.sm.Clock(e.hooks, tdi, tms)
		if err != nil {
			return nil, err
		}
		if cmd.HasReply {
			out = append(out, tdo)
		}
	}
	return packBits(out), nil
}

// runClockTDI replays a CLOCK_TDI command: TMS stays low throughout while
// TDI is driven from the data bytes, bit 0 (LSB) first.
func (e *Engine) runClockTDI(cmd mpsse.Command) ([]byte, error) {
	const tms = false
	var out []bool

	if cmd.Flags&mpsse.Bitwise != 0 {
		if len(cmd.Data) == 0 {
			return nil, fmt.Errorf("replay: CLOCK_TDI carries no data")
		}
		for bit := 0; bit < cmd.Length; bit++ {
			tdi := cmd.Data[0]&(1<<uint(bit)) != 0
			tdo, err := e.sm.Clock(e.hooks, tdi, tms)
			if err != nil {
				return nil, err
			}
			if cmd.HasReply {
				out = append(out, tdo)
			}
		}
		return packBits(out), nil
	}

	for _, b := range cmd.Data {
		for bit := 0; bit < 8; bit++ {
			tdi := b&(1<<uint(bit)) != 0
			tdo, err := e.sm.Clock(e.hooks, tdi, tms)
			if err != nil {
				return nil, err
			}
			if cmd.HasReply {
				out = append(out, tdo)
			}
		}
	}
	return packBits(out), nil
}

// runClockTDO replays a read-only CLOCK_TDO command: TDI is held high and
// TMS low while TDO is sampled every cycle.
func (e *Engine) runClockTDO(cmd mpsse.Command) ([]byte, error) {
	const tdi = true
	const tms = false
	var out []bool

	if cmd.Flags&mpsse.Bitwise != 0 {
		for bit := 0; bit < cmd.Length; bit++ {
			tdo, err := e.sm.Clock(e.hooks, tdi, tms)
			if err != nil {
				return nil, err
			}
			out = append(out, tdo)
		}
		return packBits(out), nil
	}

	for i := 0; i < cmd.Length; i++ {
		for bit := 0; bit < 8; bit++ {
			tdo, err := e.sm.Clock(e.hooks, tdi, tms)
			if err != nil {
				return nil, err
			}
			out = append(out, tdo)
		}
	}
	return packBits(out), nil
}

// packBits packs bits LSB first into bytes, the last byte zero-padded if
// the bit count isn't a multiple of 8 — matching utils.bits_to_bytes.
func packBits(bits []bool) []byte {
	if len(bits) == 0 {
		return nil
	}
	out := make([]byte, 0, (len(bits)+7)/8)
	var cur byte
	var n uint
	for _, b := range bits {
		if b {
			cur |= 1 << n
		}
		n++
		if n == 8 {
			out = append(out, cur)
			cur, n = 0, 0
		}
	}
	if n > 0 {
		out = append(out, cur)
	}
	return out
}
