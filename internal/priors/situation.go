// Package priors implements the policy prior cache (C5): classifying a
// unit's situation and turning that into an action-kind probability
// distribution, optionally refreshed from an LLM. Grounded on
// original_source/src/ai/stochastic/LLMPolicyProbabilityDistribution.java.
package priors

import "github.com/signalnine/arena/internal/simulator"

// Situation is the classification of one unit in one game state.
type Situation string

const (
	WorkerNearResource   Situation = "worker-near-resource"
	WorkerIdle           Situation = "worker-idle"
	WorkerCarrying       Situation = "worker-carrying"
	MilitaryInCombat     Situation = "military-in-combat"
	MilitaryNotInCombat  Situation = "military-not-in-combat"
	BaseEconomy          Situation = "base-economy"
	BaseLowResources     Situation = "base-low-resources"
	Barracks             Situation = "barracks"
)

const (
	nearResourceDistance    = 3
	controlsResourceDistance = 4
)

// Classify maps a unit and its owning player's game state into exactly one
// Situation. This is a total function: every legal unit kind falls into
// one branch.
func Classify(u simulator.Unit, state simulator.GameState) Situation {
	switch u.Kind {
	case simulator.UnitHarvester:
		return classifyHarvester(u, state)
	case simulator.UnitLight, simulator.UnitHeavy, simulator.UnitRanged:
		return classifyMilitary(u, state)
	case simulator.UnitBase:
		return classifyBase(u, state)
	case simulator.UnitBarracks:
		return Barracks
	default:
		return WorkerIdle
	}
}

func classifyHarvester(u simulator.Unit, state simulator.GameState) Situation {
	if u.Carrying > 0 {
		return WorkerCarrying
	}
	if res, ok := state.NearestResource(u.Pos); ok && u.Pos.Manhattan(res) <= nearResourceDistance {
		return WorkerNearResource
	}
	return WorkerIdle
}

func classifyMilitary(u simulator.Unit, state simulator.GameState) Situation {
	if enemy, ok := state.NearestEnemy(u.Owner, u.Pos); ok {
		rng := u.AttackRange
		if rng <= 0 {
			rng = 1
		}
		if u.Pos.Manhattan(enemy.Pos) <= rng {
			return MilitaryInCombat
		}
	}
	return MilitaryNotInCombat
}

// classifyBase compares the owner's stockpile against the base's own
// production cost, matching classifySituation's resources >=
// unitType.produceTime check: a base is "low resources" once the owner
// can no longer afford to replace it.
func classifyBase(u simulator.Unit, state simulator.GameState) Situation {
	if state.ResourcesOf(u.Owner) < u.Cost {
		return BaseLowResources
	}
	return BaseEconomy
}

// ControlsResource reports whether a worker is within the "controls
// resource" radius used by the control-resources goal bonus in
// internal/evaluation.
func ControlsResource(pos simulator.Point, resource simulator.Point) bool {
	return pos.Manhattan(resource) <= controlsResourceDistance
}
