// Package jackscarrental is Jack's Car Rental: two rental locations whose daily
// requests and returns are Poisson distributed, and a nightly decision of how
// many cars to move between them.
//
// Package jackscarrental はジャックのレンタカー問題です。
// 各営業所の貸出と返却はポアソン分布に従い、毎晩営業所間で車を移動させます。
package jackscarrental

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sw965/tabrl/vi"
)

var (
	ErrInvalidAction = errors.New("jackscarrental: move outside the action space")
	ErrInvalidConfig = errors.New("jackscarrental: invalid configuration")
)

// State is the number of cars at each location at the end of a day.
type State struct {
	First  int
	Second int
}

// Action is the number of cars moved overnight from First to Second.
// A negative action moves cars the other way.
type Action = int

// Location holds the Poisson means of one location's daily requests and returns.
type Location struct {
	RentalRate float64
	ReturnRate float64
}

type Config struct {
	MaxCars    int
	MaxMove    int
	RentReward float64
	MoveCost   float64
	Gamma      float64

	// TailMass is the probability each Poisson support may leave out:
	// a support ends at the smallest n with CDF(n) >= 1-TailMass.
	TailMass float64

	First  Location
	Second Location
}

func DefaultConfig() Config {
	return Config{
		MaxCars:    20,
		MaxMove:    5,
		RentReward: 10.0,
		MoveCost:   2.0,
		Gamma:      0.9,
		TailMass:   0.01,
		First:      Location{RentalRate: 3.0, ReturnRate: 3.0},
		Second:     Location{RentalRate: 4.0, ReturnRate: 2.0},
	}
}

func (c Config) Validate() error {
	if c.MaxCars < 1 {
		return fmt.Errorf("%w: max cars %d", ErrInvalidConfig, c.MaxCars)
	}
	if c.MaxMove < 0 {
		return fmt.Errorf("%w: max move %d", ErrInvalidConfig, c.MaxMove)
	}
	if !(c.Gamma >= 0 && c.Gamma < 1) {
		return fmt.Errorf("%w: gamma %v must be in [0, 1)", ErrInvalidConfig, c.Gamma)
	}
	if !(c.TailMass > 0 && c.TailMass < 1) {
		return fmt.Errorf("%w: tail mass %v must be in (0, 1)", ErrInvalidConfig, c.TailMass)
	}
	for _, rate := range []float64{c.First.RentalRate, c.First.ReturnRate, c.Second.RentalRate, c.Second.ReturnRate} {
		if !(rate > 0) {
			return fmt.Errorf("%w: poisson rate %v", ErrInvalidConfig, rate)
		}
	}
	return nil
}

// truncatedPoisson returns the pmf of Poisson(lambda) on 0..n, n being the
// first count whose CDF reaches 1-tailMass. The remaining tail is dropped.
func truncatedPoisson(lambda, tailMass float64) []float64 {
	dist := distuv.Poisson{Lambda: lambda}
	pmf := []float64{}
	for k := 0; ; k++ {
		x := float64(k)
		pmf = append(pmf, dist.Prob(x))
		if dist.CDF(x) >= 1.0-tailMass {
			return pmf
		}
	}
}

func sum(xs []float64) float64 {
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s
}

// outcome is the probability of ending the day with a given number of cars and
// the rental income accumulated along those paths, weighted by probability.
type outcome struct {
	prob   float64
	income float64
}

type JacksCarRental struct {
	Config

	// days[i][n] is location i's distribution over the next count when the
	// day starts with n cars.
	days    [2][][]outcome
	dropped float64
}

func New(cfg Config) (*JacksCarRental, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	j := &JacksCarRental{Config: cfg}
	kept := 1.0
	for i, loc := range []Location{cfg.First, cfg.Second} {
		rentals := truncatedPoisson(loc.RentalRate, cfg.TailMass)
		returns := truncatedPoisson(loc.ReturnRate, cfg.TailMass)
		kept *= sum(rentals) * sum(returns)

		j.days[i] = make([][]outcome, cfg.MaxCars+1)
		for cars := 0; cars <= cfg.MaxCars; cars++ {
			j.days[i][cars] = j.day(cars, rentals, returns)
		}
	}
	j.dropped = 1.0 - kept
	return j, nil
}

func (j *JacksCarRental) day(cars int, rentals, returns []float64) []outcome {
	outcomes := make([]outcome, j.MaxCars+1)
	for requested, pReq := range rentals {
		rented := min(cars, requested)
		for returned, pRet := range returns {
			next := min(j.MaxCars, cars-rented+returned)
			p := pReq * pRet
			outcomes[next].prob += p
			outcomes[next].income += p * j.RentReward * float64(rented)
		}
	}
	return outcomes
}

// DroppedMass is 1 minus the probability kept after truncating the four Poisson
// supports. Every possibility list sums to 1-DroppedMass.
func (j *JacksCarRental) DroppedMass() float64 {
	return j.dropped
}

func (j *JacksCarRental) Gamma() float64 {
	return j.Config.Gamma
}

func (j *JacksCarRental) moveLimits(s State) (toFirst, toSecond int) {
	toFirst = min(s.Second, j.MaxMove, j.MaxCars-s.First)
	toSecond = min(s.First, j.MaxMove, j.MaxCars-s.Second)
	return toFirst, toSecond
}

// ActionSpace is every move that neither takes more cars than a location holds
// nor overfills the other one.
func (j *JacksCarRental) ActionSpace(s State) []Action {
	toFirst, toSecond := j.moveLimits(s)
	actions := make([]Action, 0, toFirst+toSecond+1)
	for a := -toFirst; a <= toSecond; a++ {
		actions = append(actions, a)
	}
	return actions
}

// StateSpace is every pair of counts except (0, 0).
func (j *JacksCarRental) StateSpace() []State {
	states := make([]State, 0, (j.MaxCars+1)*(j.MaxCars+1)-1)
	for first := 0; first <= j.MaxCars; first++ {
		for second := 0; second <= j.MaxCars; second++ {
			if first == 0 && second == 0 {
				continue
			}
			states = append(states, State{First: first, Second: second})
		}
	}
	return states
}

// TerminalStateSpace is (0, 0): with no cars left the business is over.
func (j *JacksCarRental) TerminalStateSpace() []State {
	return []State{{}}
}

// Possibilities is the product of the two locations' day distributions.
// The reward of each next state is the rental income expected given that state,
// minus the moving cost.
func (j *JacksCarRental) Possibilities(s State, a Action) ([]vi.Possibility[State], error) {
	toFirst, toSecond := j.moveLimits(s)
	if a < -toFirst || a > toSecond {
		return nil, fmt.Errorf("%w: state %v move %d", ErrInvalidAction, s, a)
	}

	first := j.days[0][s.First-a]
	second := j.days[1][s.Second+a]
	cost := j.MoveCost * float64(max(a, -a))

	possibilities := make([]vi.Possibility[State], 0, len(first)*len(second))
	for n1, o1 := range first {
		if o1.prob == 0 {
			continue
		}
		for n2, o2 := range second {
			if o2.prob == 0 {
				continue
			}
			possibilities = append(possibilities, vi.Possibility[State]{
				Probability: o1.prob * o2.prob,
				NextState:   State{First: n1, Second: n2},
				Reward:      o1.income/o1.prob + o2.income/o2.prob - cost,
			})
		}
	}
	return possibilities, nil
}
