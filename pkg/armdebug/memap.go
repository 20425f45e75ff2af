package armdebug

import (
	"fmt"

	"github.com/jtagtrace/jtagtrace/pkg/jtag"
)

// MemApRegister enumerates the MEM-AP register file (Table 7-6, IHI0031C).
type MemApRegister uint8

const (
	MemApCSW      MemApRegister = 0x0
	MemApTAR      MemApRegister = 0x4
	MemApTARHigh  MemApRegister = 0x8
	MemApDRW      MemApRegister = 0xC
	MemApBD0      MemApRegister = 0x10
	MemApBD1      MemApRegister = 0x14
	MemApBD2      MemApRegister = 0x18
	MemApBD3      MemApRegister = 0x1C
	MemApMBT      MemApRegister = 0x20
	MemApBASE     MemApRegister = 0xF0
	MemApCFG      MemApRegister = 0xF4
	MemApBaseHigh MemApRegister = 0xF8
	MemApIDR      MemApRegister = 0xFC
)

// AutoIncrement is the MEM-AP CSW AddrInc field (Table 7-1, IHI0031C).
type AutoIncrement uint8

const (
	AutoIncrementOff    AutoIncrement = 0b00
	AutoIncrementSingle AutoIncrement = 0b01
	AutoIncrementPacked AutoIncrement = 0b10
)

// MemAp models a Memory Access Port's TAR auto-increment and CSW-selected
// access width, producing a human-readable description of each register
// access for the transcript.
type MemAp struct {
	tarLow, tarHigh uint32
	hasTAR          bool
	width           int
	autoIncrement   AutoIncrement
	hasWidth        bool
}

// NewMemAp returns a MemAp with no TAR or access width configured yet —
// both must be set via CSW/TAR writes before DRW or BDx can be accessed.
func NewMemAp() *MemAp {
	return &MemAp{tarHigh: 0}
}

func (m *MemAp) autoIncrementTAR() (string, error) {
	if !m.hasTAR {
		return "", fmt.Errorf("armdebug: MEM-AP TAR not yet configured")
	}
	if !m.hasWidth {
		return "", fmt.Errorf("armdebug: MEM-AP access width not yet configured")
	}

	switch m.autoIncrement {
	case AutoIncrementOff:
		return "", nil
	case AutoIncrementSingle:
		tar := (uint64(m.tarHigh) << 32) | uint64(m.tarLow)
		tar += uint64(m.width)
		msg := fmt.Sprintf(", address auto-incremented by %d-bits", m.width*8)
		m.tarLow = uint32(tar & 0xFFFFFFFF)
		m.tarHigh = uint32((tar >> 32) & 0xFFFFFFFF)
		return msg, nil
	case AutoIncrementPacked:
		return "", fmt.Errorf("armdebug: packed auto-increment: %w", jtag.ErrNotImplemented)
	default:
		return "", fmt.Errorf("armdebug: invalid auto-increment mode %d", m.autoIncrement)
	}
}

// readBanked and writeBanked implement the BD0-BD3 banked-data registers,
// which always address a 32-bit word at (TAR & ~0xF) | offset — note this
// truncates TAR to its low 32 bits even when TAR_HIGH is non-zero; a
// non-zero TAR_HIGH only switches the printed address to 16 hex digits.
func (m *MemAp) readBanked(offset uint32) (string, error) {
	if err := m.requireWidth4(); err != nil {
		return "", err
	}
	address := (m.tarLow &^ 0xF) | offset
	if m.tarHigh == 0 {
		return fmt.Sprintf("Reading %d-bits from 0x%08x", m.width*8, address), nil
	}
	return fmt.Sprintf("Reading %d-bits from 0x%016x", m.width*8, uint64(address)), nil
}

func (m *MemAp) writeBanked(offset, value uint32) (string, error) {
	if err := m.requireWidth4(); err != nil {
		return "", err
	}
	address := (m.tarLow &^ 0xF) | offset
	if m.tarHigh == 0 {
		return fmt.Sprintf("Writing %d-bits from 0x%08x to 0x%08x", m.width*8, address, value), nil
	}
	return fmt.Sprintf("Writing %d-bits from 0x%016x to 0x%08x", m.width*8, uint64(address), value), nil
}

func (m *MemAp) requireWidth4() error {
	if !m.hasTAR {
		return fmt.Errorf("armdebug: MEM-AP TAR not yet configured")
	}
	if !m.hasWidth || m.width != 4 {
		return fmt.Errorf("armdebug: banked MEM-AP registers require 4-byte access width")
	}
	return nil
}

// ReadRegister returns a description of reading reg.
func (m *MemAp) ReadRegister(reg MemApRegister) (string, error) {
	switch reg {
	case MemApCSW:
		return "Read MEM-AP CSW", nil
	case MemApTAR:
		return "Read MEM-AP TAR[31:0]", nil
	case MemApTARHigh:
		return "Read MEM-AP TAR[63:32]", nil
	case MemApDRW:
		if !m.hasTAR || !m.hasWidth {
			return "", fmt.Errorf("armdebug: MEM-AP DRW read before TAR/CSW configured")
		}
		var msg string
		if m.tarHigh == 0 {
			msg = fmt.Sprintf("Reading %d-bits from 0x%08x", m.width*8, m.tarLow)
		} else {
			tar := (uint64(m.tarHigh) << 32) | uint64(m.tarLow)
			msg = fmt.Sprintf("Reading %d-bits from 0x%016x", m.width*8, tar)
		}
		suffix, err := m.autoIncrementTAR()
		if err != nil {
			return "", err
		}
		return msg + suffix, nil
	case MemApBD0:
		return m.readBanked(0x0)
	case MemApBD1:
		return m.readBanked(0x4)
	case MemApBD2:
		return m.readBanked(0x8)
	case MemApBD3:
		return m.readBanked(0xC)
	case MemApMBT:
		return "", fmt.Errorf("armdebug: MBT: %w", jtag.ErrNotImplemented)
	case MemApBASE:
		return "Read MEM-AP BASE", nil
	case MemApCFG:
		return "Read MEM-AP CFG", nil
	case MemApBaseHigh:
		return "Read MEM-AP BASE_HIGH", nil
	case MemApIDR:
		return "Read MEM-AP IDR", nil
	default:
		return "", fmt.Errorf("armdebug: unknown MEM-AP register 0x%02x", uint8(reg))
	}
}

// WriteRegister applies a write to reg and returns a description of it, or
// "" for registers whose write has no side effect worth describing (CSW,
// TAR, TAR_HIGH just update internal state).
func (m *MemAp) WriteRegister(reg MemApRegister, value uint32) (string, error) {
	switch reg {
	case MemApCSW:
		opSize := value & 0x7
		switch opSize {
		case 0b000:
			m.width = 1
		case 0b001:
			m.width = 2
		case 0b010:
			m.width = 4
		case 0b011:
			m.width = 8
		case 0b100:
			m.width = 16
		case 0b101:
			m.width = 32
		default:
			return "", fmt.Errorf("armdebug: invalid MEM-AP CSW access size 0x%x", opSize)
		}
		m.hasWidth = true
		m.autoIncrement = AutoIncrement((value >> 4) & 0x3)

		if mode := (value >> 8) & 0xF; mode != 0 {
			return "", fmt.Errorf("armdebug: MEM-AP CSW barrier support: %w", jtag.ErrNotImplemented)
		}
		return "", nil

	case MemApTAR:
		m.tarLow = value
		m.hasTAR = true
		return "", nil

	case MemApTARHigh:
		m.tarHigh = value
		return "", nil

	case MemApDRW:
		if !m.hasTAR || !m.hasWidth {
			return "", fmt.Errorf("armdebug: MEM-AP DRW write before TAR/CSW configured")
		}
		var msg string
		if m.tarHigh == 0 {
			msg = fmt.Sprintf("Writing %d-bits from 0x%08x to 0x%08x", m.width*8, m.tarLow, value)
		} else {
			tar := (uint64(m.tarHigh) << 32) | uint64(m.tarLow)
			msg = fmt.Sprintf("Writing %d-bits from 0x%016x to 0x%08x", m.width*8, tar, value)
		}
		suffix, err := m.autoIncrementTAR()
		if err != nil {
			return "", err
		}
		return msg + suffix, nil

	case MemApBD0:
		return m.writeBanked(0x0, value)
	case MemApBD1:
		return m.writeBanked(0x4, value)
	case MemApBD2:
		return m.writeBanked(0x8, value)
	case MemApBD3:
		return m.writeBanked(0xC, value)
	case MemApMBT:
		return "", fmt.Errorf("armdebug: MBT: %w", jtag.ErrNotImplemented)
	case MemApBASE, MemApCFG, MemApBaseHigh, MemApIDR:
		return "", fmt.Errorf("armdebug: MEM-AP register 0x%02x is read-only", uint8(reg))
	default:
		return "", fmt.Errorf("armdebug: unknown MEM-AP register 0x%02x", uint8(reg))
	}
}
