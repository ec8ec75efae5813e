package evaluation_test

import (
	"testing"

	"github.com/signalnine/arena/internal/evaluation"
	"github.com/signalnine/arena/internal/simulator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseState() *simulator.FakeState {
	s := simulator.NewFakeState(1000)
	s.AddUnit(simulator.Unit{Owner: 1, Kind: simulator.UnitBase, HP: 100, MaxHP: 100, Cost: 0})
	s.AddUnit(simulator.Unit{Owner: 2, Kind: simulator.UnitBase, HP: 100, MaxHP: 100, Cost: 0})
	return s
}

func TestEvaluateSymmetricBaselineIsZero(t *testing.T) {
	state := baseState()
	v := evaluation.Evaluate(state, 1, 2, evaluation.Goals{})
	assert.InDelta(t, 0.0, v, 1e-9)
}

func TestEvaluateWithinBounds(t *testing.T) {
	state := baseState()
	for i := 0; i < 5; i++ {
		state.AddUnit(simulator.Unit{Owner: 1, Kind: simulator.UnitLight, HP: 10, MaxHP: 10, Cost: 50})
	}
	v := evaluation.Evaluate(state, 1, 2, evaluation.Goals{Primary: evaluation.BuildArmy})
	require.LessOrEqual(t, v, 1.0)
	require.GreaterOrEqual(t, v, -1.0)
	assert.Greater(t, v, 0.0)
}

func TestEvaluateMaterialAdvantageFavorsOwner(t *testing.T) {
	state := baseState()
	state.AddUnit(simulator.Unit{Owner: 1, Kind: simulator.UnitHeavy, HP: 40, MaxHP: 40, Cost: 100})
	v := evaluation.Evaluate(state, 1, 2, evaluation.Goals{})
	assert.Greater(t, v, 0.0)
}

func TestEvaluateSwappedRolesAreInverseWithoutGoals(t *testing.T) {
	state := baseState()
	state.AddUnit(simulator.Unit{Owner: 1, Kind: simulator.UnitHeavy, HP: 40, MaxHP: 40, Cost: 100})

	forward := evaluation.Evaluate(state, 1, 2, evaluation.Goals{})
	backward := evaluation.Evaluate(state, 2, 1, evaluation.Goals{})

	assert.InDelta(t, -forward, backward, 1e-9)
}

func TestAttackBaseBonusGrowsWithDamage(t *testing.T) {
	healthy := baseState()
	damaged := simulator.NewFakeState(1000)
	damaged.AddUnit(simulator.Unit{Owner: 1, Kind: simulator.UnitBase, HP: 100, MaxHP: 100})
	damaged.AddUnit(simulator.Unit{Owner: 2, Kind: simulator.UnitBase, HP: 10, MaxHP: 100})

	vHealthy := evaluation.Evaluate(healthy, 1, 2, evaluation.Goals{Primary: evaluation.AttackBase})
	vDamaged := evaluation.Evaluate(damaged, 1, 2, evaluation.Goals{Primary: evaluation.AttackBase})

	assert.Greater(t, vDamaged, vHealthy)
}

func TestAttackBaseBonusJumpsWhenBaseDestroyed(t *testing.T) {
	damaged := simulator.NewFakeState(1000)
	damaged.AddUnit(simulator.Unit{Owner: 1, Kind: simulator.UnitBase, HP: 100, MaxHP: 100})
	damaged.AddUnit(simulator.Unit{Owner: 2, Kind: simulator.UnitBase, HP: 10, MaxHP: 100})

	destroyed := simulator.NewFakeState(1000)
	destroyed.AddUnit(simulator.Unit{Owner: 1, Kind: simulator.UnitBase, HP: 100, MaxHP: 100})
	// Owner 2's base unit is gone entirely: the discrete destroyed-base bonus
	// applies on top of whatever continuous damage term still stands.

	// Both sides hold resources in both states so the opponent's material is
	// non-zero and neither score saturates at the +1 clamp.
	damaged.AddResources(1, 10)
	damaged.AddResources(2, 10)
	destroyed.AddResources(1, 10)
	destroyed.AddResources(2, 10)

	vDamaged := evaluation.Evaluate(damaged, 1, 2, evaluation.Goals{Primary: evaluation.AttackBase})
	vDestroyed := evaluation.Evaluate(destroyed, 1, 2, evaluation.Goals{Primary: evaluation.AttackBase})

	assert.Greater(t, vDestroyed, vDamaged)
}
