package mcts_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/arena/internal/evaluation"
	"github.com/signalnine/arena/internal/logging"
	"github.com/signalnine/arena/internal/mcts"
	"github.com/signalnine/arena/internal/priors"
	"github.com/signalnine/arena/internal/simulator"
)

func twoBaseState() *simulator.FakeState {
	s := simulator.NewFakeState(200)
	s.AddUnit(simulator.Unit{Owner: 1, Kind: simulator.UnitBase, HP: 100, MaxHP: 100})
	s.AddUnit(simulator.Unit{Owner: 2, Kind: simulator.UnitBase, HP: 100, MaxHP: 100})
	s.AddUnit(simulator.Unit{Owner: 1, Kind: simulator.UnitLight, HP: 10, MaxHP: 10, Pos: simulator.Point{X: 1, Y: 1}})
	s.AddUnit(simulator.Unit{Owner: 2, Kind: simulator.UnitLight, HP: 10, MaxHP: 10, Pos: simulator.Point{X: 5, Y: 5}})
	return s
}

func TestSearchReturnsAnAction(t *testing.T) {
	cache := priors.NewCache(nil, 300, logging.Nop())
	tree := mcts.New(cache, 1, 2, evaluation.Goals{Primary: evaluation.BuildArmy}, logging.Nop())
	tree.SeedRNG(42)

	pa := tree.Search(context.Background(), twoBaseState(), 50, 0)

	require.NotNil(t, pa.Actions)
}

func TestStatsReportsGoalRefreshCounters(t *testing.T) {
	cache := priors.NewCache(nil, 300, logging.Nop())
	tree := mcts.New(cache, 1, 2, evaluation.Goals{Primary: evaluation.BuildArmy}, logging.Nop())

	assert.Contains(t, tree.Stats(), "goal_refreshes=0")
	assert.Contains(t, tree.Stats(), "goal_refresh_errors=0")
}

func TestSearchIsDeterministicWithFixedSeed(t *testing.T) {
	cache := priors.NewCache(nil, 300, logging.Nop())

	run := func() simulator.PlayerAction {
		tree := mcts.New(cache, 1, 2, evaluation.Goals{Primary: evaluation.AttackBase}, logging.Nop())
		tree.SeedRNG(7)
		return tree.Search(context.Background(), twoBaseState(), 30, 0)
	}

	a := run()
	b := run()
	assert.Equal(t, a, b)
}

func TestSearchRespectsContextCancellation(t *testing.T) {
	cache := priors.NewCache(nil, 300, logging.Nop())
	tree := mcts.New(cache, 1, 2, evaluation.Goals{}, logging.Nop())
	tree.SeedRNG(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pa := tree.Search(ctx, twoBaseState(), 1000, 0)
	assert.Equal(t, simulator.PlayerAction{}, pa)
}

func TestSearchRespectsPerIterationBudget(t *testing.T) {
	cache := priors.NewCache(nil, 300, logging.Nop())
	tree := mcts.New(cache, 1, 2, evaluation.Goals{}, logging.Nop())
	tree.SeedRNG(3)

	start := time.Now()
	tree.Search(context.Background(), twoBaseState(), 100000, 20*time.Millisecond)
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 500*time.Millisecond)
}
