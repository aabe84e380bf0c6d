// Package dice provides the deterministic dice source and dice-expression
// arithmetic used by casts.
package dice

import (
	"math/rand"

	"github.com/nathoo/spellcore/types"
)

// RNG is the seeded dice source of a session. It counts every die it rolls
// so a snapshot can resume it with RestoreRNG.
type RNG struct {
	seed int64
	src  *rand.Rand
	pos  int64
}

// NewRNG seeds a dice source.
func NewRNG(seed int64) *RNG {
	return &RNG{
		seed: seed,
		src:  rand.New(rand.NewSource(seed)),
	}
}

// Roll returns a random integer in [1, sides]. Every call consumes exactly
// one draw from the source so RestoreRNG can replay by position.
func (r *RNG) Roll(sides int) int {
	r.pos++
	if sides <= 1 {
		r.src.Int63()
		return 1
	}
	return int(r.src.Int63()%int64(sides)) + 1
}

// RollN rolls count dice of the given sides.
func (r *RNG) RollN(sides, count int) []int {
	out := make([]int, count)
	for i := range out {
		out[i] = r.Roll(sides)
	}
	return out
}

// Func adapts the RNG to the injected dice function shape.
func (r *RNG) Func() types.DiceFunc {
	return r.RollN
}

// Seed returns the seed the RNG was created with.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Position returns the number of draws made since creation.
func (r *RNG) Position() int64 {
	return r.pos
}

// RestoreRNG creates an RNG and advances it to the given position.
func RestoreRNG(seed int64, position int64) *RNG {
	rng := NewRNG(seed)
	for i := int64(0); i < position; i++ {
		rng.src.Int63()
	}
	rng.pos = position
	return rng
}

// Sequence returns a dice function that yields values in order, cycling
// when exhausted. Values are returned as-is regardless of sides, which makes
// it the scripted source for replaying a known table roll.
func Sequence(values ...int) types.DiceFunc {
	i := 0
	return func(sides, count int) []int {
		out := make([]int, count)
		for k := range out {
			if len(values) == 0 {
				out[k] = 1
				continue
			}
			out[k] = values[i%len(values)]
			i++
		}
		return out
	}
}

// Max returns a dice function that always rolls the highest face.
func Max() types.DiceFunc {
	return func(sides, count int) []int {
		out := make([]int, count)
		for k := range out {
			out[k] = sides
		}
		return out
	}
}

// D20 rolls a single d20 through fn.
func D20(fn types.DiceFunc) int {
	return fn(20, 1)[0]
}
