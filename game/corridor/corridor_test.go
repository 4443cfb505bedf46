package corridor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sw965/tabrl/game/corridor"
	"github.com/sw965/tabrl/mathx/randx"
)

func TestPossibilities(t *testing.T) {
	tests := []struct {
		name string
		c    corridor.Corridor
		s    corridor.State
		a    corridor.Action
		want []struct {
			next   corridor.State
			reward float64
		}
	}{
		{
			name: "右端から右へ",
			c:    corridor.New(3, 0.0),
			s:    3,
			a:    corridor.Right,
			want: []struct {
				next   corridor.State
				reward float64
			}{{next: 4, reward: 1.0}},
		},
		{
			name: "左端から左へ滑って右",
			c:    corridor.New(3, 0.25),
			s:    1,
			a:    corridor.Left,
			want: []struct {
				next   corridor.State
				reward float64
			}{{next: 0, reward: -1.0}, {next: 2, reward: 0.0}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ps, err := tc.c.Possibilities(tc.s, tc.a)
			require.NoError(t, err)
			require.Len(t, ps, len(tc.want))
			sum := 0.0
			for i, p := range ps {
				assert.Equal(t, tc.want[i].next, p.NextState)
				assert.Equal(t, tc.want[i].reward, p.Reward)
				sum += p.Probability
			}
			assert.InDelta(t, 1.0, sum, 1e-12)
		})
	}
}

func TestTransit(t *testing.T) {
	c := corridor.New(5, 0.0)
	rng := randx.New(1)
	s := c.RandomState(rng)
	for !c.InTerminalStateSpace(s) {
		next, _, err := c.Transit(s, corridor.Right, rng)
		require.NoError(t, err)
		assert.Equal(t, s+1, next)
		s = next
	}
	assert.Equal(t, c.Length+1, s)

	_, _, err := c.Transit(1, corridor.Action(9), rng)
	assert.ErrorIs(t, err, corridor.ErrInvalidAction)
	_, err = c.Possibilities(1, corridor.Action(9))
	assert.ErrorIs(t, err, corridor.ErrInvalidAction)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, corridor.New(3, 0.1).Validate())
	assert.ErrorIs(t, corridor.New(0, 0.1).Validate(), corridor.ErrInvalidConfig)
	assert.ErrorIs(t, corridor.New(3, 1.5).Validate(), corridor.ErrInvalidConfig)
}

func TestActionSpaceIsFresh(t *testing.T) {
	c := corridor.New(3, 0.0)
	as := c.ActionSpace(1)
	as[0] = corridor.Right
	assert.Equal(t, []corridor.Action{corridor.Left, corridor.Right}, c.ActionSpace(1))
}
