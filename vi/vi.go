// Package vi implements Value Iteration over an exact transition model.
package vi

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/sw965/tabrl"
)

// DefaultMassTolerance is how far the probabilities of one possibility list may
// stray from 1 when Engine.MassTolerance is left at zero.
const DefaultMassTolerance = 1e-9

var (
	ErrProbabilityMass = errors.New("possibility probabilities do not sum to 1")
	ErrNotConverged    = errors.New("value iteration did not converge")
)

// Possibility is one outcome of taking an action in a state.
type Possibility[S comparable] struct {
	Probability float64
	NextState   S
	Reward      float64
}

// Task is an environment with a fully known transition model.
//
// StateSpace enumerates the non-terminal states in the order they are swept.
// Possibilities must return an error wrapping the task's invalid-action error for
// an action outside ActionSpace(s).
type Task[S, A comparable] interface {
	Gamma() float64
	Possibilities(S, A) ([]Possibility[S], error)
	ActionSpace(S) []A
	StateSpace() []S
	TerminalStateSpace() []S
}

type Engine[S, A comparable] struct {
	Task Task[S, A]

	// MassTolerance bounds |Σp - 1| for each possibility list. Zero means
	// DefaultMassTolerance. Tasks that deliberately truncate their distributions
	// must widen it by the dropped mass.
	MassTolerance float64

	// MaxSweeps stops ValueIteration with ErrNotConverged after that many sweeps.
	// Zero means no limit.
	MaxSweeps int
}

func New[S, A comparable](task Task[S, A]) *Engine[S, A] {
	return &Engine[S, A]{Task: task, MassTolerance: DefaultMassTolerance}
}

func (e *Engine[S, A]) Validate() error {
	if e.Task == nil {
		return tabrl.ErrNilTask
	}
	if e.MassTolerance < 0 || math.IsNaN(e.MassTolerance) {
		return fmt.Errorf("%w: mass tolerance %v", ErrProbabilityMass, e.MassTolerance)
	}
	return nil
}

func (e *Engine[S, A]) massTolerance() float64 {
	if e.MassTolerance == 0 {
		return DefaultMassTolerance
	}
	return e.MassTolerance
}

// ValueIteration sweeps the state space, replacing every V(s) in place with its
// Bellman optimality backup, until the largest change within one sweep is below
// theta. Terminal states are pinned to 0 before the first sweep. It returns the
// number of sweeps performed.
func (e *Engine[S, A]) ValueIteration(theta float64, v tabrl.StateValues[S]) (int, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	if !(theta > 0) {
		return 0, fmt.Errorf("%w: got %v", tabrl.ErrInvalidTheta, theta)
	}
	if v == nil {
		return 0, tabrl.ErrNilTable
	}

	for _, s := range e.Task.TerminalStateSpace() {
		v[s] = 0.0
	}

	states := e.Task.StateSpace()
	log.Info().Int("states", len(states)).Float64("theta", theta).Msg("value-iteration-start")

	sweeps := 0
	for {
		sweeps++
		delta := 0.0
		for _, s := range states {
			old := v[s]
			newV, _, err := e.MaxVA(v, s)
			if err != nil {
				return sweeps, err
			}
			v[s] = newV
			delta = math.Max(delta, math.Abs(newV-old))
		}
		log.Debug().Int("sweep", sweeps).Float64("delta", delta).Msg("value-iteration-sweep")

		if delta < theta {
			log.Info().Int("sweeps", sweeps).Msg("value-iteration-converged")
			return sweeps, nil
		}
		if e.MaxSweeps > 0 && sweeps >= e.MaxSweeps {
			return sweeps, fmt.Errorf("%w: delta %v >= theta %v after %d sweeps", ErrNotConverged, delta, theta, sweeps)
		}
	}
}

// ActionValue is the expected one-step backup Σ p·(r + γ·V(s')) of taking a in s.
func (e *Engine[S, A]) ActionValue(v tabrl.StateValues[S], s S, a A) (float64, error) {
	ps, err := e.Task.Possibilities(s, a)
	if err != nil {
		return 0, err
	}

	mass := lo.SumBy(ps, func(p Possibility[S]) float64 { return p.Probability })
	if !scalar.EqualWithinAbs(mass, 1.0, e.massTolerance()) {
		return 0, fmt.Errorf("%w: state %v action %v mass %v", ErrProbabilityMass, s, a, mass)
	}

	gamma := e.Task.Gamma()
	expected := 0.0
	for _, p := range ps {
		expected += p.Probability * (p.Reward + gamma*v[p.NextState])
	}
	return expected, nil
}

// MaxVA returns the best expected backup of s and every action achieving it,
// with the same exact-equality tie rule as tabrl.MaxValueByActions.
func (e *Engine[S, A]) MaxVA(v tabrl.StateValues[S], s S) (float64, []A, error) {
	actions := e.Task.ActionSpace(s)
	if len(actions) == 0 {
		return 0, nil, fmt.Errorf("%w: state %v", tabrl.ErrEmptyActionSpace, s)
	}

	var err error
	max, argmax := tabrl.MaxBy(actions, func(a A) float64 {
		if err != nil {
			return 0
		}
		q, qErr := e.ActionValue(v, s, a)
		if qErr != nil {
			err = qErr
		}
		return q
	})
	if err != nil {
		return 0, nil, err
	}
	return max, argmax, nil
}

// GreedyPolicy reads the greedy action sets off a (converged) value table.
func (e *Engine[S, A]) GreedyPolicy(v tabrl.StateValues[S]) (tabrl.Policy[S, A], error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	pi := tabrl.Policy[S, A]{}
	for _, s := range e.Task.StateSpace() {
		_, as, err := e.MaxVA(v, s)
		if err != nil {
			return nil, err
		}
		pi[s] = as
	}
	return pi, nil
}
