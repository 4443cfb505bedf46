// Package gambler is the gambler's-ruin problem: a gambler stakes part of their
// capital on coin flips until they either reach the goal or lose everything.
//
// Package gambler はギャンブラー問題です。
// 目標金額に到達するか、全てを失うまでコイン投げに賭け続けます。
package gambler

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/sw965/tabrl/mathx/randx"
	"github.com/sw965/tabrl/vi"
)

const (
	DefaultHeadProbability = 0.4
	DefaultGoal            = 100
)

var (
	ErrInvalidAction = errors.New("gambler: bet must be between 0 and the current capital")
	ErrInvalidConfig = errors.New("gambler: invalid configuration")
)

// State is the gambler's capital. Action is the stake.
type (
	State  = int
	Action = int
)

type Gambler struct {
	HeadProbability float64
	Goal            int
}

func New() Gambler {
	return Gambler{HeadProbability: DefaultHeadProbability, Goal: DefaultGoal}
}

func (g Gambler) Validate() error {
	if g.HeadProbability < 0 || g.HeadProbability > 1 {
		return fmt.Errorf("%w: head probability %v", ErrInvalidConfig, g.HeadProbability)
	}
	if g.Goal < 2 {
		return fmt.Errorf("%w: goal %d must be >= 2", ErrInvalidConfig, g.Goal)
	}
	return nil
}

func (g Gambler) Gamma() float64 {
	return 1.0
}

// ActionSpace is every stake from 0 to the whole capital.
func (g Gambler) ActionSpace(s State) []Action {
	actions := make([]Action, 0, s+1)
	for a := 0; a <= s; a++ {
		actions = append(actions, a)
	}
	return actions
}

func (g Gambler) ActionSpaceLen(s State) int {
	return s + 1
}

func (g Gambler) RandomAction(s State, rng *rand.Rand) Action {
	return rng.IntN(s + 1)
}

// RandomState is uniform over the non-terminal capitals.
func (g Gambler) RandomState(rng *rand.Rand) State {
	return 1 + rng.IntN(g.Goal-1)
}

func (g Gambler) StateSpace() []State {
	states := make([]State, 0, g.Goal-1)
	for s := 1; s < g.Goal; s++ {
		states = append(states, s)
	}
	return states
}

func (g Gambler) TerminalStateSpace() []State {
	return []State{0, g.Goal}
}

func (g Gambler) InTerminalStateSpace(s State) bool {
	return s == 0 || s == g.Goal
}

func (g Gambler) validateAction(s State, a Action) error {
	if a < 0 || a > s {
		return fmt.Errorf("%w: capital %d bet %d", ErrInvalidAction, s, a)
	}
	return nil
}

func (g Gambler) win(s State, a Action) (State, float64) {
	next := min(s+a, g.Goal)
	if next == g.Goal {
		return next, 1.0
	}
	return next, 0.0
}

func (g Gambler) Transit(s State, a Action, rng *rand.Rand) (State, float64, error) {
	if err := g.validateAction(s, a); err != nil {
		return 0, 0, err
	}
	if randx.Bernoulli(g.HeadProbability, rng) {
		next, r := g.win(s, a)
		return next, r, nil
	}
	return s - a, 0.0, nil
}

func (g Gambler) Possibilities(s State, a Action) ([]vi.Possibility[State], error) {
	if err := g.validateAction(s, a); err != nil {
		return nil, err
	}
	next, r := g.win(s, a)
	return []vi.Possibility[State]{
		{Probability: g.HeadProbability, NextState: next, Reward: r},
		{Probability: 1.0 - g.HeadProbability, NextState: s - a, Reward: 0.0},
	}, nil
}
