// Package tap implements the IEEE 1149.1 TAP controller state machine and
// its entry-action dispatch: the hook for a state fires on every TCK cycle
// spent IN that state, before the TMS-driven transition to the next one.
package tap

import (
	"fmt"
)

// State represents one of the 16 defined IEEE 1149.1 TAP controller states.
type State uint8

const (
	StateTestLogicReset State = iota
	StateRunTestIdle
	StateSelectDRScan
	StateCaptureDR
	StateShiftDR
	StateExit1DR
	StatePauseDR
	StateExit2DR
	StateUpdateDR
	StateSelectIRScan
	StateCaptureIR
	StateShiftIR
	StateExit1IR
	StatePauseIR
	StateExit2IR
	StateUpdateIR
)

var stateNames = map[State]string{
	StateTestLogicReset: "TestLogicReset",
	StateRunTestIdle:    "RunTestIdle",
	StateSelectDRScan:   "SelectDRScan",
	StateCaptureDR:      "CaptureDR",
	StateShiftDR:        "ShiftDR",
	StateExit1DR:        "Exit1DR",
	StatePauseDR:        "PauseDR",
	StateExit2DR:        "Exit2DR",
	StateUpdateDR:       "UpdateDR",
	StateSelectIRScan:   "SelectIRScan",
	StateCaptureIR:      "CaptureIR",
	StateShiftIR:        "ShiftIR",
	StateExit1IR:        "Exit1IR",
	StatePauseIR:        "PauseIR",
	StateExit2IR:        "Exit2IR",
	StateUpdateIR:       "UpdateIR",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", s)
}

// Sequence captures a TMS drive pattern and the states it visits.
type Sequence struct {
	TMS    []bool
	States []State
}

type stateTransitions struct {
	onZero State
	onOne  State
}

var transitions = map[State]stateTransitions{
	StateTestLogicReset: {onZero: StateRunTestIdle, onOne: StateTestLogicReset},
	StateRunTestIdle:    {onZero: StateRunTestIdle, onOne: StateSelectDRScan},
	StateSelectDRScan:   {onZero: StateCaptureDR, onOne: StateSelectIRScan},
	StateCaptureDR:      {onZero: StateShiftDR, onOne: StateExit1DR},
	StateShiftDR:        {onZero: StateShiftDR, onOne: StateExit1DR},
	StateExit1DR:        {onZero: StatePauseDR, onOne: StateUpdateDR},
	StatePauseDR:        {onZero: StatePauseDR, onOne: StateExit2DR},
	StateExit2DR:        {onZero: StateShiftDR, onOne: StateUpdateDR},
	StateUpdateDR:       {onZero: StateRunTestIdle, onOne: StateSelectDRScan},
	StateSelectIRScan:   {onZero: StateCaptureIR, onOne: StateTestLogicReset},
	StateCaptureIR:      {onZero: StateShiftIR, onOne: StateExit1IR},
	StateShiftIR:        {onZero: StateShiftIR, onOne: StateExit1IR},
	StateExit1IR:        {onZero: StatePauseIR, onOne: StateUpdateIR},
	StatePauseIR:        {onZero: StatePauseIR, onOne: StateExit2IR},
	StateExit2IR:        {onZero: StateShiftIR, onOne: StateUpdateIR},
	StateUpdateIR:       {onZero: StateRunTestIdle, onOne: StateSelectDRScan},
}

// NextState returns the next TAP state after clocking TCK with the provided TMS
// value. It panics if an invalid state is supplied, which should never happen
// when interacting through the exported API.
func NextState(current State, tms bool) State {
	row, ok := transitions[current]
	if !ok {
		panic(fmt.Sprintf("tap: unhandled state %d", current))
	}
	if tms {
		return row.onOne
	}
	return row.onZero
}

// Hooks receives the entry action for whichever state the TAP controller is
// currently in, fired once per TCK cycle spent there, before the machine
// moves to the next state. ShiftDR and ShiftIR carry the TDI bit presented
// on that cycle and return the TDO bit driven out in response; the other
// hooks carry no data.
type Hooks interface {
	Reset()
	RunIdle()
	CaptureDR()
	ShiftDR(tdi bool) bool
	UpdateDR()
	CaptureIR()
	ShiftIR(tdi bool) bool
	UpdateIR()
}

// NopHooks implements Hooks with no-ops, returning false from both shift
// hooks. It is useful for driving the state machine without a device chain
// attached, e.g. while testing transition coverage in isolation.
type NopHooks struct{}

func (NopHooks) Reset()            {}
func (NopHooks) RunIdle()          {}
func (NopHooks) CaptureDR()        {}
func (NopHooks) ShiftDR(bool) bool { return false }
func (NopHooks) UpdateDR()         {}
func (NopHooks) CaptureIR()        {}
func (NopHooks) ShiftIR(bool) bool { return false }
func (NopHooks) UpdateIR()         {}

// StateMachine tracks the TAP controller state and the last TDO bit
// produced by a shift hook. It does not perform any I/O itself.
type StateMachine struct {
	state   State
	lastTDO bool
	locked  bool
}

// NewStateMachine creates a TAP state machine initialized to
// Test-Logic-Reset, with its pins locked: the bridge's TCK/TDI/TMS lines
// are not yet configured as outputs, so Clock refuses to advance until
// the first SET_GPIO_LOW unlocks them (see Lock/Unlock).
func NewStateMachine() *StateMachine {
	return &StateMachine{state: StateTestLogicReset, locked: true}
}

// State reports the current TAP state tracked by the machine.
func (m *StateMachine) State() State {
	return m.state
}

// Locked reports whether the TCK/TDI/TMS pins are currently configured as
// inputs (see Lock), making Clock an error.
func (m *StateMachine) Locked() bool {
	return m.locked
}

// Lock marks the TCK/TMS/TDI pins as externally driven inputs rather than
// outputs under this state machine's control. It is only valid from
// RunTestIdle or TestLogicReset — the two states a capture is expected to
// idle in between GPIO reconfigurations.
func (m *StateMachine) Lock() error {
	if m.state != StateRunTestIdle && m.state != StateTestLogicReset {
		return fmt.Errorf("tap: cannot lock pins from state %s", m.state)
	}
	m.locked = true
	return nil
}

// Unlock reverts Lock, allowing Clock to advance the machine again.
func (m *StateMachine) Unlock() {
	m.locked = false
}

// Clock fires the entry-action hook for the state the machine currently
// occupies, then advances to the next state selected by tms. The returned
// tdo is the value most recently driven by a ShiftDR/ShiftIR hook; it is
// unaffected by cycles spent in states that define no shift action.
func (m *StateMachine) Clock(hooks Hooks, tdi, tms bool) (tdo bool, err error) {
	if m.locked {
		return false, fmt.Errorf("tap: cannot clock TCK while pins are locked")
	}

	switch m.state {
	case StateTestLogicReset:
		hooks.Reset()
	case StateRunTestIdle:
		hooks.RunIdle()
	case StateCaptureDR:
		hooks.CaptureDR()
	case StateShiftDR:
		m.lastTDO = hooks.ShiftDR(tdi)
	case StateUpdateDR:
		hooks.UpdateDR()
	case StateCaptureIR:
		hooks.CaptureIR()
	case StateShiftIR:
		m.lastTDO = hooks.ShiftIR(tdi)
	case StateUpdateIR:
		hooks.UpdateIR()
	}

	m.state = NextState(m.state, tms)
	return m.lastTDO, nil
}

// Reset applies the IEEE-recommended five consecutive TMS=1 cycles,
// returning the machine to TestLogicReset from any state.
func (m *StateMachine) Reset(hooks Hooks) (Sequence, error) {
	seq := Sequence{
		TMS:    make([]bool, 5),
		States: make([]State, 6),
	}
	seq.States[0] = m.state
	for i := 0; i < 5; i++ {
		seq.TMS[i] = true
		if _, err := m.Clock(hooks, false, true); err != nil {
			return Sequence{}, err
		}
		seq.States[i+1] = m.state
	}
	return seq, nil
}
