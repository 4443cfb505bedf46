// Package ql implements online one-step Q-Learning with an epsilon-greedy
// behaviour policy and a greedy bootstrap target.
package ql

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/rs/zerolog/log"

	"github.com/sw965/tabrl"
)

var ErrEpisodeTooLong = errors.New("episode did not reach a terminal state")

const logEvery = 1000

// Task has the same shape as mc.Task; any environment satisfying one satisfies both.
type Task[S, A comparable] interface {
	Gamma() float64
	ActionSpace(S) []A
	ActionSpaceLen(S) int
	RandomAction(S, *rand.Rand) A
	RandomState(*rand.Rand) S
	Transit(S, A, *rand.Rand) (S, float64, error)
	InTerminalStateSpace(S) bool
}

// UpdateQ moves q towards the one-step target reward + discountRate*nextMaxQ by lr.
func UpdateQ(q, nextMaxQ, reward, lr, discountRate float64) float64 {
	target := reward + discountRate*nextMaxQ
	return q + lr*(target-q)
}

type Engine[S, A comparable] struct {
	Task Task[S, A]
	Rand *rand.Rand

	// MaxEpisodeSteps aborts an episode with ErrEpisodeTooLong. Zero means no limit.
	MaxEpisodeSteps int
}

func New[S, A comparable](task Task[S, A], rng *rand.Rand) *Engine[S, A] {
	return &Engine[S, A]{Task: task, Rand: rng}
}

func (e *Engine[S, A]) Validate() error {
	if e.Task == nil {
		return tabrl.ErrNilTask
	}
	if e.Rand == nil {
		return tabrl.ErrNilRand
	}
	return nil
}

// MaxQA is the greedy value of s and every action tied for it.
func (e *Engine[S, A]) MaxQA(q tabrl.ActionValues[S, A], s S) (float64, []A) {
	return tabrl.MaxValueByActions(q, s, e.Task.ActionSpace(s))
}

// ValueEvaluation runs numEpisodes episodes, updating q in place after every transition.
func (e *Engine[S, A]) ValueEvaluation(q tabrl.ActionValues[S, A], epsilon, alpha float64, numEpisodes int) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if err := tabrl.ValidateEpsilon(epsilon); err != nil {
		return err
	}
	if !(alpha > 0 && alpha <= 1) {
		return fmt.Errorf("%w: got %v", tabrl.ErrInvalidAlpha, alpha)
	}
	if err := tabrl.ValidateEpisodes(numEpisodes); err != nil {
		return err
	}

	log.Info().Int("episodes", numEpisodes).Float64("epsilon", epsilon).Float64("alpha", alpha).Msg("q-learning-start")
	gamma := e.Task.Gamma()
	total := 0
	for i := 0; i < numEpisodes; i++ {
		s := e.Task.RandomState(e.Rand)
		steps := 0
		for !e.Task.InTerminalStateSpace(s) {
			if e.MaxEpisodeSteps > 0 && steps >= e.MaxEpisodeSteps {
				return fmt.Errorf("%w: episode %d: %d steps", ErrEpisodeTooLong, i, steps)
			}

			_, greedy := e.MaxQA(q, s)
			if len(greedy) == 0 {
				return fmt.Errorf("%w: state %v", tabrl.ErrEmptyActionSpace, s)
			}
			random := func() A { return e.Task.RandomAction(s, e.Rand) }
			a, err := tabrl.EpsilonGreedy(greedy, epsilon, random, e.Rand)
			if err != nil {
				return err
			}

			next, r, err := e.Task.Transit(s, a, e.Rand)
			if err != nil {
				return err
			}

			// 終端状態の行動価値は更新されないので0
			nextMax := 0.0
			if !e.Task.InTerminalStateSpace(next) {
				nextMax, _ = e.MaxQA(q, next)
			}
			sa := tabrl.StateActionPair[S, A]{State: s, Action: a}
			q[sa] = UpdateQ(q[sa], nextMax, r, alpha, gamma)

			s = next
			steps++
		}
		total += steps

		if (i+1)%logEvery == 0 {
			log.Debug().Int("episode", i+1).Int("steps", total).Int("pairs", len(q)).Msg("q-learning-progress")
		}
	}
	log.Info().Int("steps", total).Int("pairs", len(q)).Msg("q-learning-done")
	return nil
}

// GreedyPolicy derives the greedy action sets of the given states from q.
// States whose actions were never tried keep every action as tied.
func (e *Engine[S, A]) GreedyPolicy(q tabrl.ActionValues[S, A], states []S) tabrl.Policy[S, A] {
	pi := make(tabrl.Policy[S, A], len(states))
	for _, s := range states {
		_, greedy := e.MaxQA(q, s)
		pi[s] = greedy
	}
	return pi
}
