// Package hybrid implements the finite-state strategy agent (C7): a small
// set of named rush behaviors, most of the time executed directly, with an
// LLM consulted on a tick cadence to pick which one runs and to tune a
// handful of tactical scalars. Grounded on
// original_source/src/ai/abstraction/HybridLLMRush.java for the
// strategy-selection loop and
// original_source/src/ai/abstraction/StrategicLLMAgent.java for the
// combat-aware interval, retreat override, and tactical scalars.
package hybrid

import "github.com/signalnine/arena/internal/simulator"

// Name identifies one of the eight rush behaviors the controller switches
// between.
type Name string

const (
	WorkerRush    Name = "worker-rush"
	LightRush     Name = "light-rush"
	HeavyRush     Name = "heavy-rush"
	RangedRush    Name = "ranged-rush"
	TurtleDefense Name = "turtle-defense"
	BoomEconomy   Name = "boom-economy"
	CounterAttack Name = "counter-attack"
	Harass        Name = "harass"
)

// unitPrefs orders the action kinds a strategy prefers for one unit kind,
// falling back to the first legal action if none of the preferred kinds are
// available this tick.
type unitPrefs map[simulator.UnitKind][]simulator.ActionKind

// Strategy is one named rush behavior. All strategies share the
// preference-table execution model below; they differ only in the table,
// matching the abstraction-layer distinction the original strategies draw
// (which unit type gets trained) collapsed onto this module's coarser
// UnitKind boundary.
type Strategy struct {
	name  Name
	prefs unitPrefs
}

func (s Strategy) Name() Name { return s.name }

// Act picks one action per owned unit by walking its unit kind's preference
// list against this tick's legal actions.
func (s Strategy) Act(state simulator.GameState, owner int) simulator.PlayerAction {
	legalByUnit := groupLegalByUnit(state.LegalActions(owner))
	var actions []simulator.Action
	for _, u := range state.UnitsOf(owner) {
		legal := legalByUnit[u.ID]
		if len(legal) == 0 {
			continue
		}
		actions = append(actions, pickByOrder(legal, s.prefs[u.Kind]))
	}
	return simulator.PlayerAction{Actions: actions}
}

// Reset clears no internal state today; strategies are stateless between
// switches, but the method exists so Strategy satisfies simulator.GameStrategy
// and future strategies with per-run memory have a hook to clear it.
func (s Strategy) Reset() {}

func groupLegalByUnit(actions []simulator.Action) map[int][]simulator.Action {
	out := map[int][]simulator.Action{}
	for _, a := range actions {
		out[a.UnitID] = append(out[a.UnitID], a)
	}
	return out
}

func pickByOrder(legal []simulator.Action, order []simulator.ActionKind) simulator.Action {
	for _, k := range order {
		for _, a := range legal {
			if a.Kind == k {
				return a
			}
		}
	}
	return legal[0]
}

// defaultStrategies builds the eight named strategies with the preference
// tables grounded on HybridLLMRush.java/StrategicLLMAgent.java's strategy
// descriptions.
func defaultStrategies() map[Name]Strategy {
	harvesterEconomy := []simulator.ActionKind{simulator.ActionHarvest, simulator.ActionReturn, simulator.ActionMove}
	harvesterAggressive := []simulator.ActionKind{simulator.ActionAttack, simulator.ActionHarvest, simulator.ActionMove}
	baseProduce := []simulator.ActionKind{simulator.ActionProduce, simulator.ActionNone}
	militaryAggressive := []simulator.ActionKind{simulator.ActionAttack, simulator.ActionMove}
	militaryDefensive := []simulator.ActionKind{simulator.ActionMove, simulator.ActionNone, simulator.ActionAttack}
	militaryPassive := []simulator.ActionKind{simulator.ActionNone, simulator.ActionMove}

	return map[Name]Strategy{
		WorkerRush: {WorkerRush, unitPrefs{
			simulator.UnitHarvester: harvesterAggressive,
			simulator.UnitBase:      baseProduce,
		}},
		LightRush: {LightRush, unitPrefs{
			simulator.UnitHarvester: harvesterEconomy,
			simulator.UnitBase:      baseProduce,
			simulator.UnitBarracks:  baseProduce,
			simulator.UnitLight:     militaryAggressive,
		}},
		HeavyRush: {HeavyRush, unitPrefs{
			simulator.UnitHarvester: harvesterEconomy,
			simulator.UnitBase:      baseProduce,
			simulator.UnitBarracks:  baseProduce,
			simulator.UnitHeavy:     militaryAggressive,
		}},
		RangedRush: {RangedRush, unitPrefs{
			simulator.UnitHarvester: harvesterEconomy,
			simulator.UnitBase:      baseProduce,
			simulator.UnitBarracks:  baseProduce,
			simulator.UnitRanged:    militaryAggressive,
		}},
		TurtleDefense: {TurtleDefense, unitPrefs{
			simulator.UnitHarvester: harvesterEconomy,
			simulator.UnitBase:      baseProduce,
			simulator.UnitBarracks:  baseProduce,
			simulator.UnitLight:     militaryDefensive,
			simulator.UnitHeavy:     militaryDefensive,
			simulator.UnitRanged:    militaryDefensive,
		}},
		BoomEconomy: {BoomEconomy, unitPrefs{
			simulator.UnitHarvester: harvesterEconomy,
			simulator.UnitBase:      baseProduce,
			simulator.UnitBarracks:  baseProduce,
			simulator.UnitLight:     militaryPassive,
			simulator.UnitHeavy:     militaryPassive,
			simulator.UnitRanged:    militaryPassive,
		}},
		CounterAttack: {CounterAttack, unitPrefs{
			simulator.UnitHarvester: harvesterEconomy,
			simulator.UnitBase:      baseProduce,
			simulator.UnitBarracks:  baseProduce,
			simulator.UnitHeavy:     militaryAggressive,
			simulator.UnitLight:     militaryDefensive,
			simulator.UnitRanged:    militaryDefensive,
		}},
		Harass: {Harass, unitPrefs{
			simulator.UnitHarvester: harvesterAggressive,
			simulator.UnitBase:      baseProduce,
			simulator.UnitLight:     militaryAggressive,
		}},
	}
}
