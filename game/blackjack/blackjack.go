// Package blackjack is a simplified blackjack hand against a dealer showing one card.
// The player hits until they stick or bust; on sticking the dealer draws a single
// card and the hand is settled.
//
// Package blackjack は簡略化したブラックジャックです。
// プレイヤーはスティックするかバーストするまでヒットし、
// スティックするとディーラーが1枚だけ引いて勝敗が決まります。
package blackjack

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/sw965/omw/mathx/randx"

	trandx "github.com/sw965/tabrl/mathx/randx"
)

const (
	Limit = 21
	Ace   = 11
)

var ErrInvalidAction = errors.New("blackjack: unknown action")

// Deck is drawn with replacement. Face cards count as 10, the ace as 11.
var Deck = []int{2, 3, 4, 5, 6, 7, 8, 9, 10, 10, 10, 10, Ace}

type Action int

const (
	Hit Action = iota
	Stick
)

func (a Action) String() string {
	switch a {
	case Hit:
		return "Hit"
	case Stick:
		return "Stick"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

var actions = []Action{Hit, Stick}

type State struct {
	Dealer     int
	Me         int
	UsefulAce  bool
	AfterStick bool
}

func (s State) MeBusted() bool {
	return s.Me > Limit
}

func (s State) DealerBusted() bool {
	return s.Dealer > Limit
}

// MeGetCard adds card to the player's sum, spending a usable ace to stay alive.
// It returns -1 on a bust and 0 otherwise.
func (s *State) MeGetCard(card int) float64 {
	s.Me += card
	if card == Ace {
		s.UsefulAce = true
	}
	if s.MeBusted() && s.UsefulAce {
		s.Me -= 10
		s.UsefulAce = false
	}
	if s.MeBusted() {
		return -1.0
	}
	return 0.0
}

// DealerGetCard ends the hand: the dealer draws card and the higher sum wins.
func (s *State) DealerGetCard(card int) float64 {
	s.AfterStick = true
	prev := s.Dealer
	s.Dealer += card
	if s.DealerBusted() && (card == Ace || prev == Ace) {
		s.Dealer -= 10
	}
	if s.DealerBusted() {
		return 1.0
	}
	switch {
	case s.Dealer < s.Me:
		return 1.0
	case s.Dealer == s.Me:
		return 0.0
	}
	return -1.0
}

type Blackjack struct{}

func New() Blackjack {
	return Blackjack{}
}

func (Blackjack) Gamma() float64 {
	return 1.0
}

func (Blackjack) ActionSpace(State) []Action {
	return slices.Clone(actions)
}

func (Blackjack) ActionSpaceLen(State) int {
	return len(actions)
}

func (Blackjack) RandomAction(_ State, rng *rand.Rand) Action {
	return actions[rng.IntN(len(actions))]
}

func DrawCard(rng *rand.Rand) int {
	card, err := randx.Choice(Deck, rng)
	if err != nil {
		panic(fmt.Sprintf("BUG: %v", err))
	}
	return card
}

// RandomState deals the dealer's up card and a player sum between 12 and 21.
func (Blackjack) RandomState(rng *rand.Rand) State {
	return State{
		Dealer:    DrawCard(rng),
		Me:        12 + rng.IntN(Limit-12+1),
		UsefulAce: trandx.Coin(rng),
	}
}

func (Blackjack) Transit(s State, a Action, rng *rand.Rand) (State, float64, error) {
	next := s
	switch a {
	case Hit:
		r := next.MeGetCard(DrawCard(rng))
		return next, r, nil
	case Stick:
		r := next.DealerGetCard(DrawCard(rng))
		return next, r, nil
	}
	return s, 0, fmt.Errorf("%w: %v", ErrInvalidAction, a)
}

func (Blackjack) InTerminalStateSpace(s State) bool {
	return s.AfterStick || s.MeBusted()
}

// StateSpace lists every start-reachable non-terminal state, for reporting.
func (Blackjack) StateSpace() []State {
	states := make([]State, 0, 10*10*2)
	for dealer := 2; dealer <= Ace; dealer++ {
		for me := 12; me <= Limit; me++ {
			for _, ace := range []bool{false, true} {
				states = append(states, State{Dealer: dealer, Me: me, UsefulAce: ace})
			}
		}
	}
	return states
}
