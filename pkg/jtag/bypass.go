package jtag

import "github.com/jtagtrace/jtagtrace/pkg/shiftreg"

// Bypass implements the standard IEEE 1149.1 BYPASS instruction: a 1-bit DR
// that always captures 0 and passes TDI to TDO with a single clock of
// latency. The DAP and Zynq PS/PL TAP models implement this behavior
// themselves for their own BYPASS instruction; Bypass exists separately so
// a chain position known only to be "some other device, always left in
// bypass" can be represented without writing a one-off Model for it.
type Bypass struct {
	dr *shiftreg.Register
}

// NewBypass returns a Bypass model with its DR already captured to 0.
func NewBypass() *Bypass {
	return &Bypass{dr: shiftreg.New(1)}
}

func (b *Bypass) Reset()     {}
func (b *Bypass) RunIdle()   {}
func (b *Bypass) CaptureDR() { b.dr.Load(0) }
func (b *Bypass) UpdateDR()  {}
func (b *Bypass) CaptureIR() {}
func (b *Bypass) UpdateIR()  {}

func (b *Bypass) ShiftDR(tdi bool) bool {
	return b.dr.Shift(tdi)
}

func (b *Bypass) ShiftIR(tdi bool) bool {
	return true
}
