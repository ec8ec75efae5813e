// Package evaluation implements the strategic evaluation function (C6):
// material score plus goal-weighted bonuses, normalized to [-1, 1].
// Grounded on
// original_source/src/ai/evaluation/LLMStrategicEvaluation.java for the
// exact constants and formulas.
package evaluation

import (
	"math"

	"github.com/signalnine/arena/internal/priors"
	"github.com/signalnine/arena/internal/simulator"
)

// Goal is one of the six strategic goals an agent can pursue.
type Goal string

const (
	ExpandEconomy    Goal = "expand-economy"
	BuildArmy        Goal = "build-army"
	AttackBase       Goal = "attack-base"
	AttackWorkers    Goal = "attack-workers"
	Defend           Goal = "defend"
	ControlResources Goal = "control-resources"
)

// TargetPriority orthogonally biases the evaluation toward one enemy asset
// class, independent of the active goals.
type TargetPriority string

const (
	TargetNone    TargetPriority = ""
	TargetBase    TargetPriority = "base"
	TargetWorkers TargetPriority = "workers"
	TargetArmy    TargetPriority = "army"
)

// Material constants, grounded on LLMStrategicEvaluation.java.
const (
	resourceValue         = 20.0
	resourceInWorkerValue = 10.0
	unitBonusMultiplier   = 40.0
	goalBonusMultiplier   = 50.0
)

// Goal-bonus weights W1..W9, one per named goal-scoring formula below,
// reproducing calculateGoalProgressBonus's per-term coefficients.
const (
	wExpandWorkers        = 0.3
	wExpandResources      = 0.1
	wBuildArmyMilitary    = 0.4
	wBuildArmyBarracks    = 0.5
	wAttackBaseDamage     = 2.0
	wAttackBaseDestroyed  = 3.0
	wAttackWorkersDeficit = 0.5
	wDefendBaseHP         = 1.0
	wDefendMilitary       = 0.2
	wControlResources     = 0.3
)

// unitWeight returns the economy/military multiplier applied to a unit's
// cost when computing material score, matching the Java original's
// per-kind weighting.
func unitWeight(k simulator.UnitKind) float64 {
	switch k {
	case simulator.UnitHarvester:
		return 1.0
	case simulator.UnitLight, simulator.UnitHeavy, simulator.UnitRanged:
		return 1.5
	default:
		return 1.0
	}
}

// Goals is one agent's active primary/secondary strategic goals and
// optional target priority.
type Goals struct {
	Primary   Goal
	Secondary Goal
	Target    TargetPriority
}

// Evaluate scores state from owner's perspective against opponent, folding
// in owner's active goals, and returns a value in [-1, 1].
func Evaluate(state simulator.GameState, owner, opponent int, goals Goals) float64 {
	sOwner := materialScore(state, owner) + goalBonus(state, owner, opponent, goals)
	sOpponent := materialScore(state, opponent)

	if sOwner+sOpponent == 0 {
		return 0
	}
	v := (2*sOwner/(sOwner+sOpponent) - 1)
	if v > 1 {
		v = 1
	}
	if v < -1 {
		v = -1
	}
	return v
}

func materialScore(state simulator.GameState, owner int) float64 {
	score := float64(state.ResourcesOf(owner)) * resourceValue
	for _, u := range state.UnitsOf(owner) {
		hpRatio := 1.0
		if u.MaxHP > 0 {
			hpRatio = math.Sqrt(float64(u.HP) / float64(u.MaxHP))
		}
		score += float64(u.Cost) * hpRatio * unitWeight(u.Kind)
		if u.Kind == simulator.UnitHarvester && u.Carrying > 0 {
			score += float64(u.Carrying) * resourceInWorkerValue
		}
	}
	return score
}

func goalBonus(state simulator.GameState, owner, opponent int, goals Goals) float64 {
	var bonus float64
	if goals.Primary != "" {
		bonus += goalBonusFor(state, owner, opponent, goals.Primary) * 1.0
	}
	if goals.Secondary != "" && goals.Secondary != goals.Primary {
		bonus += goalBonusFor(state, owner, opponent, goals.Secondary) * 0.5
	}
	bonus += targetBonus(state, owner, opponent, goals.Target)
	return bonus
}

func goalBonusFor(state simulator.GameState, owner, opponent int, goal Goal) float64 {
	switch goal {
	case ExpandEconomy:
		workers := countKind(state, owner, simulator.UnitHarvester)
		return float64(workers)*wExpandWorkers*goalBonusMultiplier + float64(state.ResourcesOf(owner))*wExpandResources*goalBonusMultiplier
	case BuildArmy:
		military := countMilitary(state, owner)
		barracks := countKind(state, owner, simulator.UnitBarracks)
		return military*wBuildArmyMilitary*goalBonusMultiplier + float64(barracks)*wBuildArmyBarracks*goalBonusMultiplier
	case AttackBase:
		var bonus float64
		hp, maxHP, found := baseHP(state, opponent)
		if found && maxHP > 0 {
			damageRatio := 1.0 - float64(hp)/float64(maxHP)
			bonus += damageRatio * wAttackBaseDamage * goalBonusMultiplier
		}
		if !found || hp <= 0 {
			bonus += wAttackBaseDestroyed * goalBonusMultiplier
		}
		return bonus
	case AttackWorkers:
		enemyWorkers := countKind(state, opponent, simulator.UnitHarvester)
		deficit := 3 - enemyWorkers
		if deficit < 0 {
			deficit = 0
		}
		return float64(deficit) * wAttackWorkersDeficit * goalBonusMultiplier
	case Defend:
		return ownBaseHPRatio(state, owner)*wDefendBaseHP*goalBonusMultiplier + countMilitary(state, owner)*wDefendMilitary*goalBonusMultiplier
	case ControlResources:
		return countControlledResources(state, owner) * wControlResources * goalBonusMultiplier
	default:
		return 0
	}
}

func targetBonus(state simulator.GameState, owner, opponent int, target TargetPriority) float64 {
	switch target {
	case TargetBase:
		return damageRatioToBase(state, opponent) * goalBonusMultiplier
	case TargetWorkers:
		missing := 5 - countKind(state, opponent, simulator.UnitHarvester)
		if missing < 0 {
			missing = 0
		}
		return float64(missing) * goalBonusMultiplier / 5
	case TargetArmy:
		return (countMilitary(state, owner) - countMilitary(state, opponent)) * goalBonusMultiplier / 10
	default:
		return 0
	}
}

func countKind(state simulator.GameState, owner int, kind simulator.UnitKind) int {
	n := 0
	for _, u := range state.UnitsOf(owner) {
		if u.Kind == kind {
			n++
		}
	}
	return n
}

func countMilitary(state simulator.GameState, owner int) float64 {
	n := 0
	for _, u := range state.UnitsOf(owner) {
		if u.Kind == simulator.UnitLight || u.Kind == simulator.UnitHeavy || u.Kind == simulator.UnitRanged {
			n++
		}
	}
	return float64(n)
}

// baseHP returns owner's base HP/MaxHP, and whether a base unit was found
// at all. A missing base is reported as !found rather than folded into the
// ratio, so callers can distinguish "destroyed" from "damaged" the way
// calculateGoalProgressBonus's separate enemyBaseTotalHP==0 check does.
func baseHP(state simulator.GameState, owner int) (hp, maxHP int, found bool) {
	for _, u := range state.UnitsOf(owner) {
		if u.Kind == simulator.UnitBase {
			return u.HP, u.MaxHP, true
		}
	}
	return 0, 0, false
}

func damageRatioToBase(state simulator.GameState, owner int) float64 {
	hp, maxHP, found := baseHP(state, owner)
	if !found || maxHP == 0 {
		return 1.0
	}
	return 1.0 - float64(hp)/float64(maxHP)
}

func ownBaseHPRatio(state simulator.GameState, owner int) float64 {
	hp, maxHP, found := baseHP(state, owner)
	if !found || maxHP == 0 {
		return 0
	}
	return float64(hp) / float64(maxHP)
}

func countControlledResources(state simulator.GameState, owner int) float64 {
	n := 0
	for _, u := range state.UnitsOf(owner) {
		if u.Kind != simulator.UnitHarvester {
			continue
		}
		if res, ok := state.NearestResource(u.Pos); ok && priors.ControlsResource(u.Pos, res) {
			n++
		}
	}
	return float64(n)
}
