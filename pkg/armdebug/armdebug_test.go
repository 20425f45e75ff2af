package armdebug

import (
	"testing"

	"github.com/jtagtrace/jtagtrace/pkg/drstate"
)

func TestDRAccessSelectBanksAPAndDPSel(t *testing.T) {
	var events []Event
	d := NewDecoder(func(e Event) { events = append(events, e) })

	// SELECT write: RnW=0, and A=0x8 per decode ((v>>1)&0x3)<<2==0x8, so
	// bits[2:1] = 0b10.
	datain := uint32(0x01<<24 | 0x3<<4 | 0x5) // apsel=1, apbanksel=3, dpbanksel=5
	value := uint64(datain)<<3 | uint64(2)<<1 | 0 // RnW=0 (write), A encodes to 0x8
	if err := d.DRAccess(drstate.DPACC, value); err != nil {
		t.Fatalf("DRAccess(SELECT write) error = %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("SELECT write produced events %v, want none", events)
	}

	// Now an APACC read should report apnum=1 reg=(apbanksel<<4)|A.
	// A=0x4 -> (v>>1)&0x3==1; RnW=1.
	apValue := uint64(0)<<3 | uint64(1)<<1 | 1
	if err := d.DRAccess(drstate.APACC, apValue); err != nil {
		t.Fatalf("DRAccess(APACC read) error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	ev := events[0]
	if ev.Command != CommandReadAPRegister {
		t.Fatalf("Command = %v, want CommandReadAPRegister", ev.Command)
	}
	if ev.APNum != 1 {
		t.Fatalf("APNum = %d, want 1", ev.APNum)
	}
	wantReg := uint8(3<<4 | 4)
	if ev.Reg != wantReg {
		t.Fatalf("Reg = 0x%x, want 0x%x", ev.Reg, wantReg)
	}
}

func TestDRAccessAbort(t *testing.T) {
	var events []Event
	d := NewDecoder(func(e Event) { events = append(events, e) })

	if err := d.DRAccess(drstate.Abort, 0x8); err != nil {
		t.Fatalf("DRAccess(Abort) error = %v", err)
	}
	if len(events) != 1 || events[0].Command != CommandAbort || events[0].Value != 8 {
		t.Fatalf("events = %+v, want one CommandAbort value=8", events)
	}
}

func TestDRAccessRDBUFFWriteRejected(t *testing.T) {
	d := NewDecoder(func(Event) {})
	// A=0xC -> (v>>1)&0x3==3; RnW=0 (write) should be rejected.
	value := uint64(0)<<3 | uint64(3)<<1 | 0
	if err := d.DRAccess(drstate.DPACC, value); err == nil {
		t.Fatalf("DRAccess(RDBUFF write) error = nil, want error")
	}
}

func TestMemApCSWConfiguresWidthThenDRW(t *testing.T) {
	m := NewMemAp()
	if _, err := m.WriteRegister(MemApCSW, 0x02); err != nil { // op_size=2 -> 4 bytes
		t.Fatalf("WriteRegister(CSW) error = %v", err)
	}
	if _, err := m.WriteRegister(MemApTAR, 0x1000); err != nil {
		t.Fatalf("WriteRegister(TAR) error = %v", err)
	}
	msg, err := m.ReadRegister(MemApDRW)
	if err != nil {
		t.Fatalf("ReadRegister(DRW) error = %v", err)
	}
	want := "Reading 32-bits from 0x00001000"
	if msg != want {
		t.Fatalf("msg = %q, want %q", msg, want)
	}
}

func TestMemApDRWBeforeConfigFails(t *testing.T) {
	m := NewMemAp()
	if _, err := m.ReadRegister(MemApDRW); err == nil {
		t.Fatalf("ReadRegister(DRW) before config = nil error, want error")
	}
}

func TestMemApAutoIncrementSingleAdvancesTAR(t *testing.T) {
	m := NewMemAp()
	if _, err := m.WriteRegister(MemApCSW, 0x02|(0b01<<4)); err != nil { // width 4, AddrInc=Single
		t.Fatalf("WriteRegister(CSW) error = %v", err)
	}
	if _, err := m.WriteRegister(MemApTAR, 0x10); err != nil {
		t.Fatalf("WriteRegister(TAR) error = %v", err)
	}
	msg, err := m.ReadRegister(MemApDRW)
	if err != nil {
		t.Fatalf("ReadRegister(DRW) error = %v", err)
	}
	if msg != "Reading 32-bits from 0x00000010, address auto-incremented by 32-bits" {
		t.Fatalf("msg = %q", msg)
	}
	// TAR should have advanced by width (4).
	msg2, err := m.ReadRegister(MemApDRW)
	if err != nil {
		t.Fatalf("ReadRegister(DRW) second call error = %v", err)
	}
	if msg2 != "Reading 32-bits from 0x00000014, address auto-incremented by 32-bits" {
		t.Fatalf("msg2 = %q", msg2)
	}
}

func TestMemApWriteReadOnlyRegisterFails(t *testing.T) {
	m := NewMemAp()
	if _, err := m.WriteRegister(MemApBASE, 0); err == nil {
		t.Fatalf("WriteRegister(BASE) = nil error, want error")
	}
}

func TestJtagApReadWrite(t *testing.T) {
	j := NewJtagAp()
	if msg, err := j.ReadRegister(JtagApCSW); err != nil || msg != "Read JTAG-AP CSW" {
		t.Fatalf("ReadRegister(CSW) = %q, %v", msg, err)
	}
	if _, err := j.ReadRegister(JtagApPSTA); err == nil {
		t.Fatalf("ReadRegister(PSTA) = nil error, want ErrNotImplemented")
	}
	if msg, err := j.WriteRegister(JtagApPSEL, 0x3); err != nil || msg != "Write JTAG-AP PSEL = 0x00000003" {
		t.Fatalf("WriteRegister(PSEL) = %q, %v", msg, err)
	}
}
