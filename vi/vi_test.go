package vi_test

import (
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sw965/tabrl"
	"github.com/sw965/tabrl/game/corridor"
	"github.com/sw965/tabrl/game/gambler"
	"github.com/sw965/tabrl/vi"
)

func TestValueIterationGambler(t *testing.T) {
	task := gambler.New()
	engine := vi.New[gambler.State, gambler.Action](task)

	v := tabrl.StateValues[gambler.State]{0: 5.0, 100: 7.0}
	sweeps, err := engine.ValueIteration(0.01, v)
	require.NoError(t, err)
	assert.Greater(t, sweeps, 1)

	// 終端状態は常に0
	assert.Equal(t, 0.0, v[0])
	assert.Equal(t, 0.0, v[100])

	assert.Greater(t, v[50], 0.0)
	assert.Less(t, v[50], v[99])
	// 50で全額を賭けると勝率は表の確率そのもの
	assert.InDelta(t, gambler.DefaultHeadProbability, v[50], 1e-9)

	for _, s := range task.StateSpace() {
		assert.GreaterOrEqual(t, v[s], 0.0)
		assert.LessOrEqual(t, v[s], 1.0)
	}

	pi, err := engine.GreedyPolicy(v)
	require.NoError(t, err)
	assert.Len(t, pi, len(task.StateSpace()))
	assert.Contains(t, pi[50], 50)
}

func TestValueIterationIdempotent(t *testing.T) {
	const theta = 0.01
	engine := vi.New[gambler.State, gambler.Action](gambler.New())

	v := tabrl.StateValues[gambler.State]{}
	_, err := engine.ValueIteration(theta, v)
	require.NoError(t, err)
	converged := maps.Clone(v)

	sweeps, err := engine.ValueIteration(theta, v)
	require.NoError(t, err)
	assert.Equal(t, 1, sweeps)
	for s, want := range converged {
		assert.InDelta(t, want, v[s], theta, "state %d", s)
	}
}

func TestValueIterationCorridor(t *testing.T) {
	task := corridor.New(5, 0.1)
	engine := vi.New[corridor.State, corridor.Action](task)

	v := tabrl.StateValues[corridor.State]{}
	_, err := engine.ValueIteration(1e-9, v)
	require.NoError(t, err)

	for s := 1; s < task.Length; s++ {
		assert.Less(t, v[s], v[s+1])
	}

	pi, err := engine.GreedyPolicy(v)
	require.NoError(t, err)
	for _, s := range task.StateSpace() {
		assert.Equal(t, []corridor.Action{corridor.Right}, pi[s], "state %d", s)
	}

	// 決定的な通路では右端までの割引報酬になる
	det := corridor.New(4, 0.0)
	v = tabrl.StateValues[corridor.State]{}
	_, err = vi.New[corridor.State, corridor.Action](det).ValueIteration(1e-12, v)
	require.NoError(t, err)
	want := []float64{0, 0.729, 0.81, 0.9, 1.0}
	for s := 1; s <= det.Length; s++ {
		assert.InDelta(t, want[s], v[s], 1e-9)
	}
}

type leakyGambler struct {
	gambler.Gambler
}

// 裏の結果を落とす不正な遷移モデル
func (g leakyGambler) Possibilities(s gambler.State, a gambler.Action) ([]vi.Possibility[gambler.State], error) {
	ps, err := g.Gambler.Possibilities(s, a)
	if err != nil {
		return nil, err
	}
	return ps[:1], nil
}

type overbettingGambler struct {
	gambler.Gambler
}

// 所持金より1多く賭けられる不正な行動空間
func (g overbettingGambler) ActionSpace(s gambler.State) []gambler.Action {
	return append(g.Gambler.ActionSpace(s), s+1)
}

type noActions struct {
	gambler.Gambler
}

func (noActions) ActionSpace(gambler.State) []gambler.Action {
	return nil
}

func TestValueIterationErrors(t *testing.T) {
	tests := []struct {
		name    string
		engine  *vi.Engine[gambler.State, gambler.Action]
		theta   float64
		wantErr error
	}{
		{
			name:    "確率の合計が1でない",
			engine:  vi.New[gambler.State, gambler.Action](leakyGambler{gambler.New()}),
			theta:   0.01,
			wantErr: vi.ErrProbabilityMass,
		},
		{
			name:    "行動空間外の行動",
			engine:  vi.New[gambler.State, gambler.Action](overbettingGambler{gambler.New()}),
			theta:   0.01,
			wantErr: gambler.ErrInvalidAction,
		},
		{
			name:    "空の行動空間",
			engine:  vi.New[gambler.State, gambler.Action](noActions{gambler.New()}),
			theta:   0.01,
			wantErr: tabrl.ErrEmptyActionSpace,
		},
		{
			name:    "タスクがnil",
			engine:  &vi.Engine[gambler.State, gambler.Action]{},
			theta:   0.01,
			wantErr: tabrl.ErrNilTask,
		},
		{
			name:    "thetaが0",
			engine:  vi.New[gambler.State, gambler.Action](gambler.New()),
			theta:   0,
			wantErr: tabrl.ErrInvalidTheta,
		},
		{
			name: "収束しない",
			engine: &vi.Engine[gambler.State, gambler.Action]{
				Task:      gambler.New(),
				MaxSweeps: 1,
			},
			theta:   1e-12,
			wantErr: vi.ErrNotConverged,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.engine.ValueIteration(tc.theta, tabrl.StateValues[gambler.State]{})
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestValueIterationNilTable(t *testing.T) {
	engine := vi.New[gambler.State, gambler.Action](gambler.New())
	require.NotPanics(t, func() {
		_, err := engine.ValueIteration(0.01, nil)
		assert.ErrorIs(t, err, tabrl.ErrNilTable)
	})
}

func TestMassToleranceCoversTruncation(t *testing.T) {
	engine := vi.New[gambler.State, gambler.Action](leakyGambler{gambler.New()})
	engine.MassTolerance = 1 - gambler.DefaultHeadProbability + 1e-9

	v := tabrl.StateValues[gambler.State]{}
	q, err := engine.ActionValue(v, 50, 50)
	require.NoError(t, err)
	assert.InDelta(t, gambler.DefaultHeadProbability, q, 1e-12)
}
