// Package mc implements off-policy every-visit Monte Carlo control with weighted
// importance sampling. Episodes are generated by an epsilon-greedy behaviour
// policy built on the target policy being learned.
package mc

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/sw965/tabrl"
)

var ErrEpisodeTooLong = errors.New("episode did not reach a terminal state")

const logEvery = 1000

// Task is an environment that can be sampled but whose transition model is unknown.
// ActionSpaceLen(s) must equal len(ActionSpace(s)).
type Task[S, A comparable] interface {
	Gamma() float64
	ActionSpace(S) []A
	ActionSpaceLen(S) int
	RandomAction(S, *rand.Rand) A
	RandomState(*rand.Rand) S
	Transit(S, A, *rand.Rand) (S, float64, error)
	InTerminalStateSpace(S) bool
}

type Step[S, A comparable] struct {
	State  S
	Action A
	Reward float64
}

// Episode runs from a start state up to, but excluding, the terminal state.
type Episode[S, A comparable] []Step[S, A]

func (e Episode[S, A]) Return(gamma float64) float64 {
	g := 0.0
	for i := len(e) - 1; i >= 0; i-- {
		g = gamma*g + e[i].Reward
	}
	return g
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

// GenerateEpisode plays one episode from Task.RandomState. With probability epsilon the
// action is Task.RandomAction; otherwise it is drawn uniformly from pi[s], falling back
// to Task.RandomAction when pi has no entry for s.
func (e *Engine[S, A]) GenerateEpisode(pi tabrl.Policy[S, A], epsilon float64) (Episode[S, A], error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	var episode Episode[S, A]
	s := e.Task.RandomState(e.Rand)
	for !e.Task.InTerminalStateSpace(s) {
		if e.MaxEpisodeSteps > 0 && len(episode) >= e.MaxEpisodeSteps {
			return episode, fmt.Errorf("%w: %d steps", ErrEpisodeTooLong, len(episode))
		}

		random := func() A { return e.Task.RandomAction(s, e.Rand) }
		a, err := tabrl.EpsilonGreedy(pi[s], epsilon, random, e.Rand)
		if err != nil {
			return episode, err
		}

		next, r, err := e.Task.Transit(s, a, e.Rand)
		if err != nil {
			return episode, err
		}
		episode = append(episode, Step[S, A]{State: s, Action: a, Reward: r})
		s = next
	}
	return episode, nil
}

// PolicyEvaluation runs numEpisodes episodes and folds each into q (action values),
// c (cumulative importance weights) and pi (greedy target policy), all in place.
//
// epsilon must be in (0, 1]: the importance correction divides by it.
func (e *Engine[S, A]) PolicyEvaluation(q, c tabrl.ActionValues[S, A], pi tabrl.Policy[S, A], epsilon float64, numEpisodes int) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if err := tabrl.ValidateEpsilon(epsilon); err != nil {
		return err
	}
	if epsilon == 0 {
		return fmt.Errorf("%w: importance sampling needs epsilon > 0", tabrl.ErrInvalidEpsilon)
	}
	if err := tabrl.ValidateEpisodes(numEpisodes); err != nil {
		return err
	}

	log.Info().Int("episodes", numEpisodes).Float64("epsilon", epsilon).Msg("monte-carlo-start")
	steps := 0
	for i := 0; i < numEpisodes; i++ {
		episode, err := e.GenerateEpisode(pi, epsilon)
		if err != nil {
			return err
		}
		steps += len(episode)

		if err := e.learn(episode, q, c, pi, epsilon); err != nil {
			return err
		}

		if (i+1)%logEvery == 0 {
			log.Debug().Int("episode", i+1).Int("steps", steps).Int("pairs", len(q)).Msg("monte-carlo-progress")
		}
	}
	log.Info().Int("steps", steps).Int("states", len(pi)).Msg("monte-carlo-done")
	return nil
}

// learn walks the episode backwards. Once a step's action falls outside the updated
// greedy set, the earlier steps carry no weight under the target policy and are skipped.
func (e *Engine[S, A]) learn(episode Episode[S, A], q, c tabrl.ActionValues[S, A], pi tabrl.Policy[S, A], epsilon float64) error {
	gamma := e.Task.Gamma()
	g := 0.0
	w := 1.0
	for i := len(episode) - 1; i >= 0; i-- {
		step := episode[i]
		g = gamma*g + step.Reward

		sa := tabrl.StateActionPair[S, A]{State: step.State, Action: step.Action}
		c[sa] += w
		lr := w / c[sa]
		q[sa] += lr * (g - q[sa])

		actions := e.Task.ActionSpace(step.State)
		if len(actions) == 0 {
			return fmt.Errorf("%w: state %v", tabrl.ErrEmptyActionSpace, step.State)
		}
		_, greedy := tabrl.MaxValueByActions(q, step.State, actions)
		pi[step.State] = greedy

		if !lo.Contains(greedy, step.Action) {
			break
		}

		n := e.Task.ActionSpaceLen(step.State)
		if n != len(actions) {
			return fmt.Errorf("%w: state %v: %d != %d", tabrl.ErrActionSpaceLenMismatch, step.State, n, len(actions))
		}
		// 探索で貪欲行動のいずれかを選ぶ確率
		prob := epsilon * float64(len(greedy)) / float64(n)
		w *= 1.0 / prob
	}
	return nil
}

func (e *Engine[S, A]) MaxValueByActions(q tabrl.ActionValues[S, A], s S) (float64, []A) {
	return tabrl.MaxValueByActions(q, s, e.Task.ActionSpace(s))
}
