// Package armdebug lifts DPACC/APACC/ABORT DR values into ARM debug
// events, and models the MEM-AP and JTAG-AP register files those events
// address.
package armdebug

import (
	"fmt"

	"github.com/jtagtrace/jtagtrace/pkg/drstate"
)

// Command identifies the kind of ARM debug access an Event represents.
type Command uint8

const (
	CommandAbort Command = iota
	CommandReadAPRegister
	CommandWriteAPRegister
	CommandReadDPRegister
	CommandWriteDPRegister
)

// DPRegister enumerates the DPACC address-map registers (Table 2-6,
// ADIv5.0-ADIv5.2).
type DPRegister uint8

const (
	DPIDR     DPRegister = 0x0
	CTRLSTAT  DPRegister = 0x4
	DLCR      DPRegister = 0x14
	TARGETID  DPRegister = 0x24
	DLPIDR    DPRegister = 0x34
	EVENTSTAT DPRegister = 0x44
	SELECT    DPRegister = 0x8
	RDBUFF    DPRegister = 0xC
)

// Event is one decoded ARM debug access. Which fields are meaningful
// depends on Command: ABORT carries only Value, DP accesses carry Reg
// (and Value on writes), AP accesses additionally carry APNum.
type Event struct {
	Command Command
	APNum   uint8
	Reg     uint8
	Value   uint32
}

// Decoder turns DPACC/APACC/ABORT DR updates into Events, tracking the DP
// SELECT register's apsel/apbanksel/dpbanksel banking state across calls.
type Decoder struct {
	callback func(Event)

	apsel     uint8
	apbanksel uint8
	dpbanksel uint8
}

// NewDecoder returns a Decoder that reports every decoded access to cb.
func NewDecoder(cb func(Event)) *Decoder {
	return &Decoder{callback: cb}
}

// DRAccess decodes one DR update. state names which DR was selected when
// the update occurred (the IR-selected role, not a raw IR bit pattern);
// value is the full DR contents.
func (d *Decoder) DRAccess(state drstate.State, value uint64) error {
	switch state {
	case drstate.Abort:
		d.callback(Event{Command: CommandAbort, Value: uint32(value)})
		return nil

	case drstate.IDCode, drstate.Bypass:
		return nil

	case drstate.APACC, drstate.DPACC:
		return d.accAccess(state, value)

	default:
		return fmt.Errorf("armdebug: DR state %s has no ARM debug access semantics", state)
	}
}

func (d *Decoder) accAccess(state drstate.State, value uint64) error {
	rnw := value&0x1 != 0
	a := uint8(((value >> 1) & 0x3) << 2)
	datain := uint32((value >> 3) & 0xFFFFFFFF)

	switch {
	case state == drstate.DPACC && a == 0x0:
		if !rnw {
			return fmt.Errorf("armdebug: DPIDR (A=0x0) is read-only, got write 0x%08x", datain)
		}
		d.callback(Event{Command: CommandReadDPRegister, Reg: a})

	case state == drstate.DPACC && a == 0x8:
		if rnw {
			return fmt.Errorf("armdebug: SELECT (A=0x8) is write-only, got read")
		}
		d.apsel = uint8(datain >> 24)
		d.dpbanksel = uint8(datain & 0xF)
		d.apbanksel = uint8((datain >> 4) & 0xF)

	case state == drstate.DPACC && a == 0x4:
		dpreg := (d.dpbanksel << 4) | a
		if rnw {
			d.callback(Event{Command: CommandReadDPRegister, Reg: dpreg})
		} else {
			d.callback(Event{Command: CommandWriteDPRegister, Reg: dpreg, Value: datain})
		}

	case state == drstate.DPACC && a == 0xC:
		if !rnw {
			return fmt.Errorf("armdebug: RDBUFF (A=0xC) is read-only, got write 0x%08x", datain)
		}
		d.callback(Event{Command: CommandReadDPRegister, Reg: a})

	case state == drstate.APACC:
		apreg := (d.apbanksel << 4) | a
		if rnw {
			d.callback(Event{Command: CommandReadAPRegister, APNum: d.apsel, Reg: apreg})
		} else {
			d.callback(Event{Command: CommandWriteAPRegister, APNum: d.apsel, Reg: apreg, Value: datain})
		}

	default:
		return fmt.Errorf("armdebug: unhandled %s access A=0x%x value=0x%x", state, a, value)
	}
	return nil
}
