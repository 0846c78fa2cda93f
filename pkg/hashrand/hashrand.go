// Package hashrand provides random numbers keyed to a position on the
// timeline instead of to call order.
//
// A Rand is derived from a (tag, key, slot) triple. The same triple always
// yields the same sequence, so a sequencer can be asked for any slot, in any
// order, and get the value it would have produced during continuous playback.
package hashrand

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/rand/v2"
)

// Rand is a short-lived generator for a single (tag, key, slot) query
type Rand struct {
	rng *rand.Rand
}

// New derives a generator from a domain tag, a seed key and a timeline slot
func New(tag string, key int64, slot float64) *Rand {
	d := Digest(tag, key, slot)
	src := rand.NewPCG(
		binary.BigEndian.Uint64(d[0:8]),
		binary.BigEndian.Uint64(d[8:16]),
	)
	return &Rand{rng: rand.New(src)}
}

// Digest returns the SHA-256 of the combined inputs.
// -0 and +0 hash the same.
func Digest(tag string, key int64, slot float64) [sha256.Size]byte {
	if slot == 0 {
		slot = 0
	}

	buf := make([]byte, 0, len(tag)+1+8+8)
	buf = append(buf, tag...)
	buf = append(buf, 0)
	buf = binary.BigEndian.AppendUint64(buf, uint64(key))
	buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(slot))

	return sha256.Sum256(buf)
}

// NextInt returns a uniform int in [lo, hi).
// Panics if hi <= lo.
func (r *Rand) NextInt(lo, hi int) int {
	if hi <= lo {
		panic("hashrand: NextInt requires hi > lo")
	}
	return lo + r.rng.IntN(hi-lo)
}

// Int63 returns a non-negative 63-bit value
func (r *Rand) Int63() int64 {
	return r.rng.Int64()
}

// Float64 returns a value in [0.0, 1.0)
func (r *Rand) Float64() float64 {
	return r.rng.Float64()
}

// Draw is shorthand for New(tag, key, slot).NextInt(0, n)
func Draw(tag string, key int64, slot float64, n int) int {
	return New(tag, key, slot).NextInt(0, n)
}
