package armdebug

import (
	"fmt"

	"github.com/jtagtrace/jtagtrace/pkg/jtag"
)

// JtagApRegister enumerates the JTAG-AP register file (Table 7-6,
// IHI0031C). Only CSW, PSEL and IDR are exercised by the captures this
// decoder was built against; the rest are named for completeness.
type JtagApRegister uint8

const (
	JtagApCSW     JtagApRegister = 0x0
	JtagApPSEL    JtagApRegister = 0x04
	JtagApPSTA    JtagApRegister = 0x08
	JtagApBxFIFO1 JtagApRegister = 0x10
	JtagApBxFIFO2 JtagApRegister = 0x14
	JtagApBxFIFO3 JtagApRegister = 0x18
	JtagApBxFIFO4 JtagApRegister = 0x1C
	JtagApIDR     JtagApRegister = 0xFC
)

// JtagAp models the subset of the JTAG-AP register file this decoder
// understands: CSW/IDR reads, CSW/PSEL writes. The rest return
// ErrNotImplemented; no capture seen so far exercises the port FIFOs.
type JtagAp struct{}

// NewJtagAp returns a JtagAp model. It is stateless.
func NewJtagAp() *JtagAp {
	return &JtagAp{}
}

func (j *JtagAp) ReadRegister(reg JtagApRegister) (string, error) {
	switch reg {
	case JtagApCSW:
		return "Read JTAG-AP CSW", nil
	case JtagApIDR:
		return "Read JTAG-AP IDR", nil
	default:
		return "", fmt.Errorf("armdebug: JTAG-AP register 0x%02x: %w", uint8(reg), jtag.ErrNotImplemented)
	}
}

func (j *JtagAp) WriteRegister(reg JtagApRegister, value uint32) (string, error) {
	switch reg {
	case JtagApCSW:
		return fmt.Sprintf("Write JTAG-AP CSW = 0x%08x", value), nil
	case JtagApPSEL:
		return fmt.Sprintf("Write JTAG-AP PSEL = 0x%08x", value), nil
	default:
		return "", fmt.Errorf("armdebug: JTAG-AP register 0x%02x: %w", uint8(reg), jtag.ErrNotImplemented)
	}
}
