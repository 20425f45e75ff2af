// Package shiftreg implements the two DR storage shapes used by the TAP
// device models: a fixed-width shift register and an unbounded sink used
// for the FPGA configuration bitstream.
package shiftreg

// Register is a fixed-width LSB-first shift register. Bit i of the
// register corresponds to bit i of the integer passed to Load or returned
// by Read.
type Register struct {
	bits  []bool
	width int
}

// New returns a Register of the given width, initialized to all zero.
func New(width int) *Register {
	return &Register{bits: make([]bool, width), width: width}
}

// Width reports the register's bit width.
func (r *Register) Width() int {
	return r.width
}

// Shift emits the current LSB (bit 0) and appends in at the MSB end,
// equivalent to one LSB-first shift-register clock.
func (r *Register) Shift(in bool) bool {
	out := r.bits[0]
	copy(r.bits, r.bits[1:])
	r.bits[r.width-1] = in
	return out
}

// Load initializes the register's contents from an integer.
func (r *Register) Load(value uint64) {
	for i := 0; i < r.width; i++ {
		r.bits[i] = value&(1<<uint(i)) != 0
	}
}

// Read packs the register's current contents into an integer.
func (r *Register) Read() uint64 {
	var v uint64
	for i, bit := range r.bits {
		if bit {
			v |= 1 << uint(i)
		}
	}
	return v
}

// Sink is an unbounded shift register that never returns non-zero TDO and
// retains every bit shifted in, in order. It models the Zynq CFG_IN DR,
// where the entire shifted-in payload (an FPGA bitstream) is the value —
// there is no fixed width to wrap around.
type Sink struct {
	bits []bool
}

// NewSink returns an empty Sink register.
func NewSink() *Sink {
	return &Sink{}
}

// Shift appends in to the accumulated bit vector and always returns false.
func (s *Sink) Shift(in bool) bool {
	s.bits = append(s.bits, in)
	return false
}

// Bits returns the accumulated bit vector, in shift order.
func (s *Sink) Bits() []bool {
	return s.bits
}

// Len reports how many bits have been shifted into the sink so far.
func (s *Sink) Len() int {
	return len(s.bits)
}
