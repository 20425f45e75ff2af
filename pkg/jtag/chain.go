package jtag

// Chain pipelines a shift across every Model in scan order — TDO of device
// N becomes TDI of device N+1 — and broadcasts the stateless entry actions
// to all of them. It is itself a Model, so a Chain can be driven directly
// by a tap.StateMachine as that state machine's Hooks.
//
// Device order matters: for the combined Zynq PS/PL and DAP TAP, the PS
// model is upstream (shifted first) and the DAP model downstream.
type Chain struct {
	models []Model
}

// NewChain returns a Chain over the given models, in scan order.
func NewChain(models ...Model) *Chain {
	return &Chain{models: models}
}

func (c *Chain) Reset() {
	for _, m := range c.models {
		m.Reset()
	}
}

func (c *Chain) RunIdle() {
	for _, m := range c.models {
		m.RunIdle()
	}
}

func (c *Chain) CaptureDR() {
	for _, m := range c.models {
		m.CaptureDR()
	}
}

func (c *Chain) CaptureIR() {
	for _, m := range c.models {
		m.CaptureIR()
	}
}

func (c *Chain) UpdateDR() {
	for _, m := range c.models {
		m.UpdateDR()
	}
}

func (c *Chain) UpdateIR() {
	for _, m := range c.models {
		m.UpdateIR()
	}
}

func (c *Chain) ShiftDR(tdi bool) bool {
	out := tdi
	for _, m := range c.models {
		out = m.ShiftDR(out)
	}
	return out
}

func (c *Chain) ShiftIR(tdi bool) bool {
	out := tdi
	for _, m := range c.models {
		out = m.ShiftIR(out)
	}
	return out
}
