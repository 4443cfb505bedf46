// Package randx builds the seedable generators injected into the solvers and tasks.
package randx

import (
	"math/rand/v2"

	"github.com/seehuhn/mt19937"
	"github.com/sw965/omw/mathx/randx"
)

// New returns a Mersenne Twister backed generator. The same seed reproduces the
// same sequence of episodes.
func New(seed uint64) *rand.Rand {
	mt := mt19937.New()
	mt.Seed(int64(seed))
	return rand.New(mt)
}

// Bernoulli reports true with probability p.
func Bernoulli(p float64, rng *rand.Rand) bool {
	return rng.Float64() < p
}

// Coin is a fair coin flip.
func Coin(rng *rand.Rand) bool {
	return randx.Bool(rng)
}
