package dapmodel

import (
	"testing"

	"github.com/jtagtrace/jtagtrace/pkg/drstate"
)

func TestStartsDisabledInBypass(t *testing.T) {
	m := NewModel(func(drstate.State, uint64) {}, false)
	m.Reset()
	if m.Enabled() {
		t.Fatalf("Enabled() = true, want false")
	}
	m.CaptureDR()
	if out := m.ShiftDR(true); out {
		t.Fatalf("ShiftDR in BYPASS = true, want false (captured 0)")
	}
}

func TestSetEnableOnlyCommitsOnNextReset(t *testing.T) {
	m := NewModel(func(drstate.State, uint64) {}, false)
	m.Reset() // disabled
	m.SetEnable(true)
	if m.Enabled() {
		t.Fatalf("Enabled() = true immediately after SetEnable, want false until next Reset")
	}
	m.Reset()
	if !m.Enabled() {
		t.Fatalf("Enabled() = false after committing Reset, want true")
	}
}

func TestEnabledIRSwitchesToDPACC(t *testing.T) {
	var gotState drstate.State
	m := NewModel(func(s drstate.State, v uint64) { gotState = s }, true)
	m.Reset()
	m.CaptureIR()
	shiftInIR(m, 0b1010) // DPACC
	m.UpdateIR()
	m.CaptureDR()
	shiftInDR(m, 35, 0)
	m.UpdateDR()
	if gotState != drstate.DPACC {
		t.Fatalf("drCb state = %v, want DPACC", gotState)
	}
}

func TestUnknownIRWhileEnabledPanics(t *testing.T) {
	m := NewModel(func(drstate.State, uint64) {}, true)
	m.Reset()
	m.CaptureIR()
	shiftInIR(m, 0b0001) // not a valid DAP IR

	defer func() {
		if recover() == nil {
			t.Fatalf("UpdateIR with unknown enabled IR did not panic")
		}
	}()
	m.UpdateIR()
}

func shiftInIR(m *Model, value uint64) {
	for i := 0; i < 4; i++ {
		m.ShiftIR(value&(1<<uint(i)) != 0)
	}
}

func shiftInDR(m *Model, width int, value uint64) {
	for i := 0; i < width; i++ {
		m.ShiftDR(value&(1<<uint(i)) != 0)
	}
}
