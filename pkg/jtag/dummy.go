package jtag

// Dummy stands in for a chain position with no device behind it — TDO
// floats high (pulled up) regardless of what is shifted in, and nothing
// else a TAP controller does has any effect. It is a placeholder for a
// TAP position the decoder does not otherwise model.
type Dummy struct{}

func (Dummy) Reset()            {}
func (Dummy) RunIdle()          {}
func (Dummy) CaptureDR()        {}
func (Dummy) UpdateDR()         {}
func (Dummy) CaptureIR()        {}
func (Dummy) UpdateIR()         {}
func (Dummy) ShiftDR(bool) bool { return true }
func (Dummy) ShiftIR(bool) bool { return true }
