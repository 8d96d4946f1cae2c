package schedule

// Mulberry32 is a small counter-based generator: every draw advances a
// 32-bit state by a fixed odd increment and mixes it. The sequence depends
// only on the seed and the number of prior draws.
type Mulberry32 struct {
	state uint32
}

// NewMulberry32 returns a generator seeded with seed.
func NewMulberry32(seed uint32) *Mulberry32 {
	return &Mulberry32{state: seed}
}

// Uint32 returns the next raw 32-bit value.
func (m *Mulberry32) Uint32() uint32 {
	m.state += 0x6D2B79F5
	t := m.state
	t = (t ^ t>>15) * (t | 1)
	t ^= t + (t^t>>7)*(t|61)
	return t ^ t>>14
}

// Float64 returns the next value in [0, 1).
func (m *Mulberry32) Float64() float64 {
	return float64(m.Uint32()) / (1 << 32)
}
