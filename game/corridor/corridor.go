// Package corridor is a one-dimensional walk between a losing cell on the left
// and a winning cell on the right. Each step moves one cell in the chosen
// direction, or the opposite one with probability Slip.
//
// Its optimal policy is always Right, which makes it a small ground truth for
// comparing the solvers against each other.
package corridor

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/sw965/tabrl/mathx/randx"
	"github.com/sw965/tabrl/vi"
)

var (
	ErrInvalidAction = errors.New("corridor: unknown action")
	ErrInvalidConfig = errors.New("corridor: invalid configuration")
)

type State = int

type Action int

const (
	Left Action = iota
	Right
)

func (a Action) String() string {
	switch a {
	case Left:
		return "Left"
	case Right:
		return "Right"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

var actions = []Action{Left, Right}

// Corridor has walkable cells 1..Length; cell 0 pays -1 and cell Length+1 pays +1.
type Corridor struct {
	Length   int
	Slip     float64
	Discount float64
}

func New(length int, slip float64) Corridor {
	return Corridor{Length: length, Slip: slip, Discount: 0.9}
}

func (c Corridor) Validate() error {
	if c.Length < 1 {
		return fmt.Errorf("%w: length %d", ErrInvalidConfig, c.Length)
	}
	if c.Slip < 0 || c.Slip > 1 {
		return fmt.Errorf("%w: slip %v", ErrInvalidConfig, c.Slip)
	}
	return nil
}

func (c Corridor) Gamma() float64 {
	return c.Discount
}

func (c Corridor) ActionSpace(State) []Action {
	return slices.Clone(actions)
}

func (c Corridor) ActionSpaceLen(State) int {
	return len(actions)
}

func (c Corridor) RandomAction(_ State, rng *rand.Rand) Action {
	return actions[rng.IntN(len(actions))]
}

func (c Corridor) RandomState(rng *rand.Rand) State {
	return 1 + rng.IntN(c.Length)
}

func (c Corridor) StateSpace() []State {
	states := make([]State, 0, c.Length)
	for s := 1; s <= c.Length; s++ {
		states = append(states, s)
	}
	return states
}

func (c Corridor) TerminalStateSpace() []State {
	return []State{0, c.Length + 1}
}

func (c Corridor) InTerminalStateSpace(s State) bool {
	return s <= 0 || s > c.Length
}

func (c Corridor) step(s State, dir int) (State, float64) {
	next := s + dir
	switch {
	case next <= 0:
		return 0, -1.0
	case next > c.Length:
		return c.Length + 1, 1.0
	}
	return next, 0.0
}

func direction(a Action) (int, error) {
	switch a {
	case Left:
		return -1, nil
	case Right:
		return 1, nil
	}
	return 0, fmt.Errorf("%w: %v", ErrInvalidAction, a)
}

func (c Corridor) Transit(s State, a Action, rng *rand.Rand) (State, float64, error) {
	dir, err := direction(a)
	if err != nil {
		return 0, 0, err
	}
	if randx.Bernoulli(c.Slip, rng) {
		dir = -dir
	}
	next, r := c.step(s, dir)
	return next, r, nil
}

func (c Corridor) Possibilities(s State, a Action) ([]vi.Possibility[State], error) {
	dir, err := direction(a)
	if err != nil {
		return nil, err
	}
	intended, r := c.step(s, dir)
	ps := []vi.Possibility[State]{{Probability: 1.0 - c.Slip, NextState: intended, Reward: r}}
	if c.Slip > 0 {
		slipped, r := c.step(s, -dir)
		ps = append(ps, vi.Possibility[State]{Probability: c.Slip, NextState: slipped, Reward: r})
	}
	return ps, nil
}
