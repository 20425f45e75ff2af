package mpsse

import (
	"fmt"

	"github.com/jtagtrace/jtagtrace/pkg/buffer"
)

const (
	opClockTDI        = 0x10
	opClockTDO        = 0x20
	opClockTMS        = 0x40
	opSetGPIOLow      = 0x80
	opGetGPIOLow      = 0x81
	opSetGPIOHigh     = 0x82
	opGetGPIOHigh     = 0x83
	opDisableLoopback = 0x85
	opSetDivisor      = 0x86
	opFlush           = 0x87
	opDisableDivBy5   = 0x8a
	opClockNoData     = 0x8f
	opDisableRCLK     = 0x97
	opUnknownBadCmd   = 0xaa
	opUnknownBadCmd2  = 0xab
)

// decoder holds the running state of a single Decode call: the two byte
// streams and the commands accumulated so far, so a DecodeError can carry
// everything decoded up to the point of failure.
type decoder struct {
	tx         *buffer.Buffer
	rx         *buffer.Buffer
	commands   []Command
	lastTXByte byte
}

func (d *decoder) fail(format string, args ...interface{}) *DecodeError {
	msg := fmt.Sprintf(format, args...)
	return newDecodeError(msg, d.commands, d.lastTXByte, d.tx.Context(10))
}

func (d *decoder) add(kind Kind, opcode byte, flags Flag, length int, data, reply []byte) {
	cmd := Command{
		Kind:         kind,
		Opcode:       opcode,
		Flags:        flags,
		Length:       length,
		CommandFrame: d.tx.CurrentFrame(),
		Data:         data,
	}
	if reply != nil {
		cmd.Reply = reply
		cmd.ReplyFrame = d.rx.CurrentFrame()
		cmd.HasReply = true
	}
	d.commands = append(d.commands, cmd)
}

// Decode consumes tx (and its matching replies in rx) and returns every
// FTDI command found. On a decode failure it returns a *DecodeError
// carrying the commands decoded so far and the offending byte.
func Decode(tx, rx *buffer.Buffer) ([]Command, error) {
	d := &decoder{tx: tx, rx: rx}

	for d.tx.Len() > 0 {
		opcode := d.tx.PopFront()
		d.lastTXByte = opcode

		switch {
		case opcode == opUnknownBadCmd || opcode == opUnknownBadCmd2:
			reply, err := d.popReply(2)
			if err != nil {
				return nil, err
			}
			d.add(KindUnknown, opcode, 0, -1, nil, reply)

		case opcode == opDisableRCLK:
			d.add(KindDisableRCLK, opcode, 0, -1, nil, nil)

		case opcode&opClockTMS != 0:
			if opcode&opClockTDI != 0 {
				return nil, d.fail("cannot clock TDI and TMS simultaneously (opcode 0x%02x)", opcode)
			}
			flags := getWriteFlags(opcode)
			reading := opcode&opClockTDO != 0
			length, data, reply, err := d.readData(flags, reading)
			if err != nil {
				return nil, err
			}
			d.add(KindClockTMS, opcode, flags, length, data, reply)

		case opcode&opClockTDI != 0:
			flags := getWriteFlags(opcode)
			reading := opcode&opClockTDO != 0
			length, data, reply, err := d.readData(flags, reading)
			if err != nil {
				return nil, err
			}
			d.add(KindClockTDI, opcode, flags, length, data, reply)

		case opcode&opClockTDO != 0:
			flags := getWriteFlags(opcode)
			length, reply, err := d.readTDOOnly(flags)
			if err != nil {
				return nil, err
			}
			d.add(KindClockTDO, opcode, flags, length, nil, reply)

		case opcode == opClockNoData:
			lengthBytes, err := d.popTX(2)
			if err != nil {
				return nil, err
			}
			length := (int(lengthBytes[0]) | int(lengthBytes[1])<<8) + 1
			d.add(KindClockNoData, opcode, 0, length, nil, nil)

		case opcode == opSetGPIOLow || opcode == opSetGPIOHigh:
			data, err := d.popTX(2)
			if err != nil {
				return nil, err
			}
			kind := KindSetGPIOLow
			if opcode == opSetGPIOHigh {
				kind = KindSetGPIOHigh
			}
			d.add(kind, opcode, 0, -1, data, nil)

		case opcode == opGetGPIOLow || opcode == opGetGPIOHigh:
			reply, err := d.popReply(1)
			if err != nil {
				return nil, err
			}
			kind := KindGetGPIOLow
			if opcode == opGetGPIOHigh {
				kind = KindGetGPIOHigh
			}
			d.add(kind, opcode, 0, -1, nil, reply)

		case opcode == opDisableLoopback:
			d.add(KindDisableLoopback, opcode, 0, -1, nil, nil)

		case opcode == opSetDivisor:
			data, err := d.popTX(2)
			if err != nil {
				return nil, err
			}
			d.add(KindSetDivisor, opcode, 0, -1, data, nil)

		case opcode == opFlush:
			if !d.rx.AtBoundary() {
				return nil, d.fail("FLUSH seen but RX buffer is not at a frame boundary")
			}
			d.add(KindFlush, opcode, 0, -1, nil, nil)

		case opcode == opDisableDivBy5:
			d.add(KindDisableDivBy5, opcode, 0, -1, nil, nil)

		default:
			return nil, d.fail("unknown FTDI opcode 0x%02x", opcode)
		}
	}

	if d.rx.Len() != 0 {
		msg := fmt.Sprintf("leftover RX data after decoding all commands: %d byte(s)", d.rx.Len())
		return nil, &DecodeError{Msg: msg, Commands: d.commands, Context: d.rx.Context(10)}
	}

	return d.commands, nil
}

func (d *decoder) popTX(n int) ([]byte, error) {
	if d.tx.Len() < n {
		return nil, d.fail("expected %d more TX byte(s), only %d available", n, d.tx.Len())
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = d.tx.PopFront()
		d.lastTXByte = out[i]
	}
	return out, nil
}

func (d *decoder) popReply(n int) ([]byte, error) {
	if d.rx.Len() < n {
		return nil, d.fail("expected %d reply byte(s), only %d available in RX", n, d.rx.Len())
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = d.rx.PopFront()
	}
	return out, nil
}

// readData implements the shared length/data/reply decode used by
// CLOCK_TMS and CLOCK_TDI: a bit count and single data byte when BITWISE
// is set, otherwise a 16-bit little-endian byte count followed by that
// many data bytes.
func (d *decoder) readData(flags Flag, reading bool) (length int, data []byte, reply []byte, err error) {
	if flags&Bitwise != 0 {
		lenByte, e := d.popTX(1)
		if e != nil {
			return 0, nil, nil, e
		}
		length = int(lenByte[0]) + 1
		if length > 7 {
			return 0, nil, nil, d.fail("bitwise clock length %d exceeds 7 bits", length)
		}
		data, err = d.popTX(1)
		if err != nil {
			return 0, nil, nil, err
		}
		if reading {
			reply, err = d.popReply(1)
			if err != nil {
				return 0, nil, nil, err
			}
		}
		return length, data, reply, nil
	}

	lenBytes, e := d.popTX(2)
	if e != nil {
		return 0, nil, nil, e
	}
	length = (int(lenBytes[0]) | int(lenBytes[1])<<8) + 1
	data, err = d.popTX(length)
	if err != nil {
		return 0, nil, nil, err
	}
	if reading {
		reply, err = d.popReply(length)
		if err != nil {
			return 0, nil, nil, err
		}
	}
	return length, data, reply, nil
}

// readTDOOnly implements the CLOCK_TDO decode: it never writes data, only
// clocks out already-latched TDI and reads TDO back.
func (d *decoder) readTDOOnly(flags Flag) (length int, reply []byte, err error) {
	if flags&Bitwise != 0 {
		lenByte, e := d.popTX(1)
		if e != nil {
			return 0, nil, e
		}
		length = int(lenByte[0]) + 1
		if length > 7 {
			return 0, nil, d.fail("bitwise clock length %d exceeds 7 bits", length)
		}
		reply, err = d.popReply(1)
		return length, reply, err
	}

	lenBytes, e := d.popTX(2)
	if e != nil {
		return 0, nil, e
	}
	length = (int(lenBytes[0]) | int(lenBytes[1])<<8) + 1
	reply, err = d.popReply(length)
	return length, reply, err
}
