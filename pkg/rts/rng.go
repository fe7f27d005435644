package rts

// Rand is a deterministic pseudo-random source. Every stochastic decision in
// the simulation (AI tie-breaks, archetype generation, deliberate AI
// mistakes) draws from a Rand; nothing in this package or its consumers may
// touch the wall clock or the platform default source, because the math/rand
// stream is not guaranteed stable across Go releases and lockstep clients
// must agree on every draw.
//
// The generator is splitmix64: a single 64-bit state, full period, and a
// closed-form step that behaves identically on every platform.
type Rand struct {
	state uint64
}

// NewRand returns a Rand seeded with the given value. The same seed always
// produces the same draw sequence.
func NewRand(seed int64) *Rand {
	return &Rand{state: uint64(seed)}
}

// Uint64 returns the next raw 64-bit value.
func (r *Rand) Uint64() uint64 {
	r.state += 0x9e3779b97f4a7c15
	z := r.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Float64 returns a uniform value in [0, 1) with 53 bits of precision.
func (r *Rand) Float64() float64 {
	return float64(r.Uint64()>>11) / (1 << 53)
}

// FloatRange returns a uniform value in [min, max).
func (r *Rand) FloatRange(min, max float64) float64 {
	return min + r.Float64()*(max-min)
}

// Intn returns a uniform value in [0, n). Panics if n <= 0.
func (r *Rand) Intn(n int) int {
	if n <= 0 {
		panic("rts: Intn called with n <= 0")
	}
	return int(r.Uint64() % uint64(n))
}

// IntRange returns a uniform value in [min, max]. Panics if max < min.
func (r *Rand) IntRange(min, max int) int {
	return min + r.Intn(max-min+1)
}

// Shuffle performs a Fisher-Yates shuffle over n elements using swap.
func (r *Rand) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		swap(i, j)
	}
}

// Fork returns a new Rand derived from this one. Used to give each AI player
// an independent stream without sharing draw order with the simulation.
func (r *Rand) Fork() *Rand {
	return &Rand{state: r.Uint64()}
}
