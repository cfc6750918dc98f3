package procedural

import "github.com/wordgrid/server/internal/gridmap"

// Seed mixing primes. Changing either one changes every chunk in the world.
const (
	seedPrimeRow = 73856093
	seedPrimeCol = 19349663
)

// LCG parameters (Numerical Recipes), modulus 2^32.
const (
	lcgMultiplier = 1664525
	lcgIncrement  = 1013904223
)

// ChunkSeed derives the 32-bit generation seed of a chunk from its coordinates alone.
func ChunkSeed(coord gridmap.ChunkCoord) uint32 {
	return uint32((int64(coord.Row) * seedPrimeRow) ^ (int64(coord.Col) * seedPrimeCol))
}

// LCG is a linear congruential generator. Each chunk gets its own instance
// and nothing else draws from it.
type LCG struct {
	state uint32
}

// NewLCG creates a generator positioned at seed.
func NewLCG(seed uint32) *LCG {
	return &LCG{state: seed}
}

// Next advances the generator and returns the new 32-bit state.
func (r *LCG) Next() uint32 {
	r.state = r.state*lcgMultiplier + lcgIncrement
	return r.state
}

// Intn returns a value in [0, n). It panics if n <= 0.
func (r *LCG) Intn(n int) int {
	if n <= 0 {
		panic("procedural: Intn called with non-positive n")
	}
	return int((uint64(r.Next()) * uint64(n)) >> 32)
}
