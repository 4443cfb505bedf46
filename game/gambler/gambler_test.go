package gambler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sw965/tabrl/game/gambler"
	"github.com/sw965/tabrl/mathx/randx"
)

func TestPossibilities(t *testing.T) {
	g := gambler.New()
	for _, s := range g.StateSpace() {
		require.Len(t, g.ActionSpace(s), g.ActionSpaceLen(s))
		for _, a := range g.ActionSpace(s) {
			ps, err := g.Possibilities(s, a)
			require.NoError(t, err)
			require.Len(t, ps, 2)

			sum := 0.0
			for _, p := range ps {
				sum += p.Probability
				assert.GreaterOrEqual(t, p.NextState, 0)
				assert.LessOrEqual(t, p.NextState, g.Goal)
				if p.NextState == g.Goal {
					assert.Equal(t, 1.0, p.Reward)
				} else {
					assert.Equal(t, 0.0, p.Reward)
				}
			}
			assert.InDelta(t, 1.0, sum, 1e-12)
		}
	}
}

func TestOvershootIsCapped(t *testing.T) {
	g := gambler.New()
	ps, err := g.Possibilities(70, 40)
	require.NoError(t, err)
	assert.Equal(t, 100, ps[0].NextState)
	assert.Equal(t, 1.0, ps[0].Reward)
	assert.Equal(t, 30, ps[1].NextState)
}

func TestInvalidAction(t *testing.T) {
	g := gambler.New()
	rng := randx.New(1)

	testCases := []struct {
		name string
		s    gambler.State
		a    gambler.Action
	}{
		{name: "所持金を超える賭け", s: 10, a: 11},
		{name: "負の賭け", s: 10, a: -1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := g.Possibilities(tc.s, tc.a)
			assert.ErrorIs(t, err, gambler.ErrInvalidAction)
			_, _, err = g.Transit(tc.s, tc.a, rng)
			assert.ErrorIs(t, err, gambler.ErrInvalidAction)
		})
	}
}

func TestTransit(t *testing.T) {
	g := gambler.New()
	rng := randx.New(2)
	wins := 0
	const n = 10000
	for i := 0; i < n; i++ {
		next, r, err := g.Transit(50, 10, rng)
		require.NoError(t, err)
		switch next {
		case 60:
			wins++
		case 40:
		default:
			t.Fatalf("unexpected next state %d", next)
		}
		assert.Equal(t, 0.0, r)
	}
	assert.InDelta(t, g.HeadProbability, float64(wins)/n, 0.02)
}

func TestRandomState(t *testing.T) {
	g := gambler.New()
	rng := randx.New(3)
	for i := 0; i < 1000; i++ {
		s := g.RandomState(rng)
		assert.False(t, g.InTerminalStateSpace(s))
		assert.GreaterOrEqual(t, s, 1)
		assert.Less(t, s, g.Goal)
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		g       gambler.Gambler
		wantErr bool
	}{
		{name: "既定値", g: gambler.New()},
		{name: "確率が1を超える", g: gambler.Gambler{HeadProbability: 1.5, Goal: 100}, wantErr: true},
		{name: "目標が小さすぎる", g: gambler.Gambler{HeadProbability: 0.4, Goal: 1}, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.g.Validate()
			if tc.wantErr {
				assert.ErrorIs(t, err, gambler.ErrInvalidConfig)
				return
			}
			assert.NoError(t, err)
		})
	}
}
