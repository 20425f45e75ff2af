// Package mpsse decodes a raw FTDI MPSSE transmit/receive byte stream into
// a sequence of typed commands with their replies.
//
// The opcode layout is FTDI's own; see AN_135 MPSSE Basics.
package mpsse

import (
	"fmt"

	"github.com/jtagtrace/jtagtrace/pkg/buffer"
)

// Kind identifies the decoded meaning of an FTDI command.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindClockTDI
	KindClockTDO
	KindClockTMS
	KindSetGPIOLow
	KindGetGPIOLow
	KindSetGPIOHigh
	KindGetGPIOHigh
	KindDisableLoopback
	KindSetDivisor
	KindFlush
	KindDisableDivBy5
	KindDisableRCLK
	KindClockNoData
)

var kindNames = [...]string{
	"UNKNOWN", "CLOCK_TDI", "CLOCK_TDO", "CLOCK_TMS", "SET_GPIO_LOW",
	"GET_GPIO_LOW", "SET_GPIO_HIGH", "GET_GPIO_HIGH", "DISABLE_LOOPBACK",
	"SET_DIVISOR", "FLUSH", "DISABLE_DIV_BY_5", "DISABLE_RCLK", "CLOCK_NO_DATA",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Flag is a bitmask of MPSSE clocking modifiers.
type Flag uint8

const (
	NegEdgeOut Flag = 1 << 0
	Bitwise    Flag = 1 << 1
	NegEdgeIn  Flag = 1 << 2
	LSBFirst   Flag = 1 << 3
	TDIHigh    Flag = 1 << 7
)

var flagBits = []struct {
	flag Flag
	name string
}{
	{NegEdgeOut, "NEG_EDGE_OUT"},
	{Bitwise, "BITWISE"},
	{NegEdgeIn, "NEG_EDGE_IN"},
	{LSBFirst, "LSB_FIRST"},
	{TDIHigh, "TDI_HIGH"},
}

func (f Flag) String() string {
	s := ""
	for _, b := range flagBits {
		if f&b.flag != 0 {
			if s != "" {
				s += "|"
			}
			s += b.name
		}
	}
	if s == "" {
		return "none"
	}
	return s
}

// writeFlagMask covers only the flags FTDI write opcodes actually encode in
// their low nibble (TDI_HIGH is a GPIO-configuration concept, not a
// clocking flag, and is never read back from a write opcode byte).
const writeFlagMask = NegEdgeOut | Bitwise | NegEdgeIn | LSBFirst

func getWriteFlags(opcode byte) Flag {
	return Flag(opcode) & writeFlagMask
}

// Command is one decoded FTDI command, with its payload and (if the
// opcode produced one) its reply.
type Command struct {
	Kind   Kind
	Opcode byte
	Flags  Flag
	// Length is a bit count when Flags&Bitwise is set, otherwise a byte
	// count. It is -1 for commands that carry no length.
	Length int

	CommandFrame int
	ReplyFrame   int
	HasReply     bool

	Data  []byte
	Reply []byte
}

// DecodeError is raised when the byte stream cannot be decoded further. It
// carries enough context to locate the offending byte in the capture.
type DecodeError struct {
	Msg         string
	Commands    []Command
	LastByte    byte
	HasLastByte bool
	Context     []buffer.ContextEntry
}

func (e *DecodeError) Error() string {
	if e.HasLastByte {
		return fmt.Sprintf("%s (last byte 0x%02x)", e.Msg, e.LastByte)
	}
	return e.Msg
}

func newDecodeError(msg string, commands []Command, lastByte byte, ctx []buffer.ContextEntry) *DecodeError {
	return &DecodeError{Msg: msg, Commands: commands, LastByte: lastByte, HasLastByte: true, Context: ctx}
}
