// Package tabrl provides the tables shared by the tabular solvers in vi, mc and ql,
// together with tie-aware greedy action selection.
//
// Package tabrl は vi, mc, ql の各ソルバーが共有するテーブル型と、
// 同値を考慮した貪欲行動の選択を提供します。
package tabrl

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/sw965/omw/mathx/randx"
)

var (
	ErrNilTask  = errors.New("task must not be nil")
	ErrNilRand  = errors.New("rand must not be nil")
	ErrNilTable = errors.New("table must not be nil")

	ErrEmptyActionSpace       = errors.New("action space must not be empty")
	ErrActionSpaceLenMismatch = errors.New("action space length does not match ActionSpaceLen")

	ErrInvalidEpsilon   = errors.New("epsilon must be in [0, 1]")
	ErrInvalidAlpha     = errors.New("alpha must be in (0, 1]")
	ErrInvalidTheta     = errors.New("theta must be > 0")
	ErrNegativeEpisodes = errors.New("number of episodes must be >= 0")
)

// StateActionPair is the key of an action-value table.
type StateActionPair[S, A comparable] struct {
	State  S
	Action A
}

// StateValues maps a state to V(s). Absent states read as 0.0.
type StateValues[S comparable] map[S]float64

// ActionValues maps a state-action pair to Q(s, a). Absent pairs read as 0.0,
// meaning "never visited".
type ActionValues[S, A comparable] map[StateActionPair[S, A]]float64

func (q ActionValues[S, A]) Get(s S, a A) float64 {
	return q[StateActionPair[S, A]{State: s, Action: a}]
}

func (q ActionValues[S, A]) Set(s S, a A, v float64) {
	q[StateActionPair[S, A]{State: s, Action: a}] = v
}

// Policy maps a state to every action currently tied for the maximum value.
type Policy[S, A comparable] map[S][]A

// MaxValueByActions returns the maximum of Q(s, a) over actions and all the actions
// that reach it. Ties are detected with exact float equality: a strictly greater value
// restarts the set, an equal value joins it.
//
// An empty action space yields (-math.MaxFloat64, nil).
func MaxValueByActions[S, A comparable](q ActionValues[S, A], s S, actions []A) (float64, []A) {
	return MaxBy(actions, func(a A) float64 {
		return q.Get(s, a)
	})
}

// MaxBy is MaxValueByActions over an arbitrary per-action value function.
// Value Iteration drives it with an expected Bellman backup.
func MaxBy[A any](actions []A, value func(A) float64) (float64, []A) {
	max := -math.MaxFloat64
	var argmax []A
	for _, a := range actions {
		v := value(a)
		switch {
		case v > max:
			max = v
			argmax = []A{a}
		case v == max:
			argmax = append(argmax, a)
		}
	}
	return max, argmax
}

// EpsilonGreedy draws one action of the behaviour policy. With probability epsilon,
// or when greedy is empty, it returns random(); otherwise it picks uniformly among greedy.
func EpsilonGreedy[A any](greedy []A, epsilon float64, random func() A, rng *rand.Rand) (A, error) {
	explore := rng.Float64() < epsilon
	if explore || len(greedy) == 0 {
		return random(), nil
	}
	return randx.Choice(greedy, rng)
}

// ValidateEpsilon checks that epsilon is a probability.
func ValidateEpsilon(epsilon float64) error {
	if epsilon < 0 || epsilon > 1 || math.IsNaN(epsilon) {
		return fmt.Errorf("%w: got %v", ErrInvalidEpsilon, epsilon)
	}
	return nil
}

func ValidateEpisodes(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: got %d", ErrNegativeEpisodes, n)
	}
	return nil
}
